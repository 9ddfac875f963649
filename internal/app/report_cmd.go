package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/hitoshi/todoctl/internal/config"
	"github.com/hitoshi/todoctl/internal/visualreport"
)

func newReportCmd(app *App) *cobra.Command {
	var resultsDir, snapshotsDir, outDir string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "ビジュアルリグレッションの比較レポートとsummary.jsonを生成する",
		Long: `テスト結果ディレクトリから差分のあるスクリーンショットを探し、
期待値・実際・差分の画像をアップロードしてHTMLレポートを生成する。
IMGUR_CLIENT_ID が必須。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadReport()
			if err != nil {
				return writeErr(cmd, fmt.Errorf("failed to load config: %w", err))
			}
			if resultsDir != "" {
				cfg.ResultsDir = resultsDir
			}
			if snapshotsDir != "" {
				cfg.SnapshotsDir = snapshotsDir
			}
			if outDir != "" {
				cfg.OutputDir = outDir
			}

			if err := app.guard.ValidateURL(cfg.ImgurEndpoint); err != nil {
				return writeErr(cmd, fmt.Errorf("invalid IMGUR_ENDPOINT: %w", err))
			}

			var limiter *rate.Limiter
			if cfg.UploadRate > 0 {
				limiter = rate.NewLimiter(rate.Limit(cfg.UploadRate), 1)
			}
			uploader := visualreport.NewImgurUploader(
				cfg.ImgurClientID,
				app.guard.NewSafeClient(cfg.UploadTimeout),
				limiter, app.logger, app.metrics,
			)
			uploader.SetEndpoint(cfg.ImgurEndpoint)

			gen := visualreport.NewGenerator(uploader, cfg.OutputDir, visualreport.Meta{
				PRNumber:  cfg.PRNumber,
				CommitSHA: cfg.CommitSHA,
			}, app.logger, cfg.UploadConcurrency)

			summary, err := gen.Run(cmd.Context(), cfg.ResultsDir, cfg.SnapshotsDir)
			if err != nil {
				return writeErr(cmd, err)
			}
			app.logger.Info("ビジュアルレポートを生成しました",
				slog.Bool("has_changes", summary.HasChanges),
				slog.Int("change_count", summary.ChangeCount),
				slog.String("output_dir", cfg.OutputDir),
			)
			return writeOut(cmd, app, summary)
		},
	}
	cmd.Flags().StringVar(&resultsDir, "results", "", "Test results directory (default: REPORT_RESULTS_DIR or test-results)")
	cmd.Flags().StringVar(&snapshotsDir, "snapshots", "", "Snapshots directory (default: REPORT_SNAPSHOTS_DIR or e2e)")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default: REPORT_OUTPUT_DIR or visual-reports)")
	return cmd
}
