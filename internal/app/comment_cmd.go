package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hitoshi/todoctl/internal/config"
	"github.com/hitoshi/todoctl/internal/prcomment"
	"github.com/hitoshi/todoctl/internal/visualreport"
)

func newCommentCmd(app *App) *cobra.Command {
	var (
		summaryPath string
		preview     bool
		width       int
	)
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "summary.jsonからPRにビジュアルリグレッションのコメントを投稿する",
		Long: `既存のボットコメントがあれば更新し、なければ新規作成する。
summary.json がない場合は何もしない。
GITHUB_TOKEN, GITHUB_REPOSITORY, GITHUB_PR_NUMBER が必須（--preview を除く）。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadComment(!preview)
			if err != nil {
				return writeErr(cmd, fmt.Errorf("failed to load config: %w", err))
			}
			if summaryPath != "" {
				cfg.SummaryPath = summaryPath
			}

			var repo prcomment.Repository
			if cfg.Repository != "" {
				if repo, err = prcomment.ParseRepository(cfg.Repository); err != nil {
					return writeErr(cmd, err)
				}
			}
			target := prcomment.Target{
				Repository: repo,
				PRNumber:   cfg.PRNumber,
				CommitSHA:  cfg.CommitSHA,
				RunID:      cfg.RunID,
			}

			if preview {
				body, err := prcomment.NewPoster(nil, target, cfg.SummaryPath, app.logger, app.metrics).Body()
				if errors.Is(err, visualreport.ErrNoSummary) {
					return writeOut(cmd, app, message{Message: "summary.json がないためコメントはありません"})
				}
				if err != nil {
					return writeErr(cmd, err)
				}
				out, err := prcomment.Preview(body, width)
				if err != nil {
					return writeErr(cmd, err)
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), out)
				return err
			}

			if err := app.guard.ValidateURL(cfg.GitHubAPIURL); err != nil {
				return writeErr(cmd, fmt.Errorf("invalid GITHUB_API_URL: %w", err))
			}
			gh := prcomment.NewGitHubClient(cfg.GitHubAPIURL, cfg.GitHubToken, app.guard.NewSafeClient(cfg.HTTPTimeout), app.logger)
			poster := prcomment.NewPoster(gh, target, cfg.SummaryPath, app.logger, app.metrics)

			action, err := poster.Post(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, struct {
				Action prcomment.Action `json:"action"`
			}{Action: action})
		},
	}
	cmd.Flags().StringVar(&summaryPath, "summary", "", "Path to summary.json (default: REPORT_SUMMARY_PATH or visual-reports/summary.json)")
	cmd.Flags().BoolVar(&preview, "preview", false, "Render the comment in the terminal instead of posting it")
	cmd.Flags().IntVar(&width, "width", 100, "Word-wrap width for --preview")
	return cmd
}
