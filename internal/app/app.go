// Package app はtodoctlのコマンドラインインターフェースを構築する。
// 各サブコマンドは環境変数から設定を読み込み、依存関係をワイヤリングして実行する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/hitoshi/todoctl/internal/config"
	"github.com/hitoshi/todoctl/internal/logger"
	"github.com/hitoshi/todoctl/internal/metrics"
	"github.com/hitoshi/todoctl/internal/security"
)

// App はコマンド間で共有するフラグと依存関係を保持する。
type App struct {
	PrettyJSON  bool
	Format      string
	EnvFile     string
	LogLevel    string
	MetricsFile string

	stderr   io.Writer
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector
	guard    security.URLGuard
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。コマンドの結果はstdoutに、JSONログはstderrに出力する。
func Run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	app := newApp(stderr)
	cmd := newRootCmd(app)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	return app.execute(ctx, cmd)
}

// execute はコマンドを実行し、成否にかかわらず --metrics-file にメトリクスを書き出す。
func (app *App) execute(ctx context.Context, cmd *cobra.Command) error {
	runErr := cmd.ExecuteContext(ctx)
	if err := app.writeMetrics(); err != nil {
		if runErr != nil {
			app.logger.Error("メトリクスの書き出しに失敗しました", slog.String("error", err.Error()))
			return runErr
		}
		return err
	}
	return runErr
}

func (app *App) writeMetrics() error {
	if app.MetricsFile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(app.MetricsFile, app.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	app.logger.Debug("メトリクスを書き出しました", slog.String("path", app.MetricsFile))
	return nil
}

// NewRootCmd はルートコマンドを生成する。logWはログの出力先。
func NewRootCmd(logW io.Writer) *cobra.Command {
	return newRootCmd(newApp(logW))
}

func newApp(logW io.Writer) *App {
	if logW == nil {
		logW = os.Stderr
	}
	reg := prometheus.NewRegistry()
	return &App{
		stderr:   logW,
		logger:   slog.Default(),
		registry: reg,
		metrics:  metrics.NewCollector(reg),
		guard:    security.NewURLGuard(),
	}
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "todoctl",
		Short:        "ToDoサービスのCLIクライアントとCI用ツール",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # モックAPIを起動する
  todoctl mockapi serve

  # ログインしてToDoを操作する
  todoctl auth login --email test@example.com --password password123
  todoctl todos list --completed=false --sort-by dueDate
  todoctl todos add "牛乳を買う" --category 買い物

  # CIでビジュアルリグレッションのレポートを作成し、PRにコメントする
  todoctl report
  todoctl comment
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.setup()
	}

	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("TODOCTL_FORMAT", "json"), "Output format (json|text)")
	cmd.PersistentFlags().StringVar(&app.EnvFile, "env-file", envOr("TODOCTL_ENV_FILE", ".env"), "Path to a .env file (ignored when missing)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error); defaults to LOG_LEVEL")
	cmd.PersistentFlags().StringVar(&app.MetricsFile, "metrics-file", envOr("TODOCTL_METRICS_FILE", ""), "Write Prometheus metrics to this file on exit")

	cmd.AddCommand(newAuthCmd(app))
	cmd.AddCommand(newTodosCmd(app))
	cmd.AddCommand(newReportCmd(app))
	cmd.AddCommand(newCommentCmd(app))
	cmd.AddCommand(newMockAPICmd(app))
	cmd.AddCommand(newMigrateCmd(app))

	return cmd
}

// setup は.envの読み込みとログの初期化を行う。
// .envは設定読み込みより前に反映する必要があるため、各コマンドの実行前に呼ばれる。
func (app *App) setup() error {
	if err := config.LoadDotEnv(app.EnvFile); err != nil {
		return err
	}
	switch app.Format {
	case formatJSON, formatText:
	default:
		return fmt.Errorf("unknown format: %s", app.Format)
	}
	level := app.LogLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	app.logger = logger.SetupDefault(app.stderr, config.ParseLogLevel(level))
	return nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
