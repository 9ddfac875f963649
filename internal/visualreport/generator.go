package visualreport

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/todoctl/internal/security"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(template.ParseFS(templateFS, "templates/report.html.tmpl"))

const (
	// SummaryFile はレポートディレクトリに書き出す要約ファイル名。
	SummaryFile = "summary.json"
	// NoChangesFile は差分がない場合に生成するレポートのファイル名。
	NoChangesFile = "no-changes.html"
	// notAvailable はPR番号やSHAが未設定の場合の表示。
	notAvailable = "N/A"
)

// Meta はレポートに埋め込むCI実行の情報。
type Meta struct {
	PRNumber  string
	CommitSHA string
}

// ReportRef は生成したレポート1件の要約。
type ReportRef struct {
	TestName string `json:"testName"`
	HTMLPath string `json:"htmlPath"`
}

// Summary はsummary.jsonの内容。
type Summary struct {
	HasChanges  bool        `json:"hasChanges"`
	ChangeCount int         `json:"changeCount"`
	Reports     []ReportRef `json:"reports"`
	Timestamp   string      `json:"timestamp"`
}

// Report は生成済みレポートの詳細。
type Report struct {
	ReportRef
	ExpectedURL string
	ActualURL   string
	DiffURL     string
}

type pageData struct {
	HasChanges    bool
	PRNumber      string
	CommitSHA     string
	TestName      string
	ExpectedImage string
	ActualImage   string
	DiffImage     string
}

// Generator は結果ごとに画像をアップロードし、比較レポートを書き出す。
type Generator struct {
	uploader    Uploader
	outDir      string
	meta        Meta
	sanitizer   *security.TextSanitizer
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

// NewGenerator はGeneratorを生成する。concurrencyは同時に処理する結果数で、0以下は1。
func NewGenerator(uploader Uploader, outDir string, meta Meta, logger *slog.Logger, concurrency int) *Generator {
	if meta.PRNumber == "" {
		meta.PRNumber = notAvailable
	}
	meta.CommitSHA = ShortSHA(meta.CommitSHA)
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Generator{
		uploader:    uploader,
		outDir:      outDir,
		meta:        meta,
		sanitizer:   security.NewTextSanitizer(),
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// ShortSHA はコミットSHAの先頭7文字を返す。空の場合は N/A。
func ShortSHA(sha string) string {
	if sha == "" {
		return notAvailable
	}
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// Run はresultsDirを走査してレポートを生成し、summary.jsonを書き出す。
func (g *Generator) Run(ctx context.Context, resultsDir, snapshotsDir string) (*Summary, error) {
	g.logger.Info("テスト結果を検索しています", slog.String("results_dir", resultsDir))
	results, err := FindResults(resultsDir, snapshotsDir)
	if err != nil {
		return nil, err
	}
	return g.Generate(ctx, results)
}

// Generate は結果ごとのレポートとsummary.jsonを書き出す。
// 結果が空の場合は「変更なし」レポートを生成する。
// 個々の結果の処理失敗はログに出力して読み飛ばす。
func (g *Generator) Generate(ctx context.Context, results []Result) (*Summary, error) {
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	var reports []Report
	if len(results) == 0 {
		g.logger.Info("視覚的な変更はありません")
		if err := g.writeNoChanges(); err != nil {
			return nil, err
		}
	} else {
		g.logger.Info("視覚的な変更が見つかりました", slog.Int("count", len(results)))
		reports = g.processAll(ctx, results)
	}

	summary := &Summary{
		HasChanges:  len(reports) > 0,
		ChangeCount: len(reports),
		Reports:     make([]ReportRef, 0, len(reports)),
		Timestamp:   g.now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	for _, r := range reports {
		summary.Reports = append(summary.Reports, r.ReportRef)
	}
	if err := WriteSummary(filepath.Join(g.outDir, SummaryFile), summary); err != nil {
		return nil, err
	}
	g.logger.Info("要約を書き出しました",
		slog.String("path", filepath.Join(g.outDir, SummaryFile)),
		slog.Int("change_count", summary.ChangeCount),
	)
	return summary, nil
}

// processAll は最大concurrency件を並行に処理する。レポートの順序は結果の順序を維持する。
func (g *Generator) processAll(ctx context.Context, results []Result) []Report {
	slots := make([]*Report, len(results))

	var eg errgroup.Group
	eg.SetLimit(g.concurrency)
	for i, r := range results {
		eg.Go(func() error {
			report, err := g.process(ctx, r)
			if err != nil {
				g.logger.Error("レポートの生成に失敗しました",
					slog.String("test_name", r.TestName),
					slog.String("error", err.Error()),
				)
				return nil
			}
			slots[i] = report
			g.logger.Info("レポートを生成しました", slog.String("path", report.HTMLPath))
			return nil
		})
	}
	_ = eg.Wait()

	reports := make([]Report, 0, len(results))
	for _, r := range slots {
		if r != nil {
			reports = append(reports, *r)
		}
	}
	return reports
}

// process は3枚の画像を並行にアップロードし、HTMLを書き出す。
func (g *Generator) process(ctx context.Context, r Result) (*Report, error) {
	var expectedURL, actualURL, diffURL string

	eg, ectx := errgroup.WithContext(ctx)
	if r.ExpectedPath != "" {
		eg.Go(func() (err error) {
			expectedURL, err = g.uploader.Upload(ectx, r.ExpectedPath)
			return err
		})
	}
	eg.Go(func() (err error) {
		actualURL, err = g.uploader.Upload(ectx, r.ActualPath)
		return err
	})
	if r.DiffPath != "" {
		eg.Go(func() (err error) {
			diffURL, err = g.uploader.Upload(ectx, r.DiffPath)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	name := g.sanitizer.Sanitize(r.TestName)
	expectedImage := expectedURL
	if expectedImage == "" {
		expectedImage = actualURL
	}

	out := filepath.Join(g.outDir, ReportFileName(name))
	data := pageData{
		HasChanges:    true,
		PRNumber:      g.meta.PRNumber,
		CommitSHA:     g.meta.CommitSHA,
		TestName:      name,
		ExpectedImage: expectedImage,
		ActualImage:   actualURL,
		DiffImage:     diffURL,
	}
	if err := render(out, data); err != nil {
		return nil, err
	}

	return &Report{
		ReportRef:   ReportRef{TestName: name, HTMLPath: out},
		ExpectedURL: expectedURL,
		ActualURL:   actualURL,
		DiffURL:     diffURL,
	}, nil
}

func (g *Generator) writeNoChanges() error {
	out := filepath.Join(g.outDir, NoChangesFile)
	if err := render(out, pageData{PRNumber: g.meta.PRNumber, CommitSHA: g.meta.CommitSHA}); err != nil {
		return err
	}
	g.logger.Info("変更なしレポートを生成しました", slog.String("path", out))
	return nil
}

func render(path string, data pageData) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := reportTemplate.Execute(f, data); err != nil {
		f.Close()
		return fmt.Errorf("failed to render report: %w", err)
	}
	return f.Close()
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// ReportFileName はテスト名からレポートのファイル名を作る。英数字とハイフン以外はハイフンに置き換える。
func ReportFileName(testName string) string {
	return unsafeFileChars.ReplaceAllString(testName, "-") + ".html"
}

// WriteSummary はsummaryをインデント付きJSONで書き出す。
func WriteSummary(path string, s *Summary) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// ErrNoSummary は要約ファイルが存在しないことを示す。
var ErrNoSummary = errors.New("summary file not found")

// ReadSummary はsummary.jsonを読み込む。ファイルがない場合はErrNoSummaryを返す。
func ReadSummary(path string) (*Summary, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSummary
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}
	var s Summary
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	return &s, nil
}
