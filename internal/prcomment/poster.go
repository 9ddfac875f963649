package prcomment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/hitoshi/todoctl/internal/metrics"
	"github.com/hitoshi/todoctl/internal/visualreport"
)

// CommentAPI はPosterが利用するコメントAPI。
type CommentAPI interface {
	ListComments(ctx context.Context, repo Repository, pr string) ([]Comment, error)
	CreateComment(ctx context.Context, repo Repository, pr, body string) (*Comment, error)
	UpdateComment(ctx context.Context, repo Repository, id int64, body string) (*Comment, error)
}

// Action はPostの結果。
type Action string

const (
	ActionSkipped Action = "skipped"
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Target は投稿先のPR。
type Target struct {
	Repository Repository
	PRNumber   string
	CommitSHA  string
	RunID      string
}

// Poster は要約ファイルを読み込み、PRのコメントを作成または更新する。
type Poster struct {
	api         CommentAPI
	target      Target
	summaryPath string
	logger      *slog.Logger
	metrics     metrics.MetricsCollector
	now         func() time.Time
}

// NewPoster はPosterを生成する。
func NewPoster(api CommentAPI, target Target, summaryPath string, logger *slog.Logger, m metrics.MetricsCollector) *Poster {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Poster{
		api:         api,
		target:      target,
		summaryPath: summaryPath,
		logger:      logger,
		metrics:     m,
		now:         time.Now,
	}
}

// Body は要約ファイルからコメント本文を生成する。要約がない場合はvisualreport.ErrNoSummary。
func (p *Poster) Body() (string, error) {
	summary, err := visualreport.ReadSummary(p.summaryPath)
	if err != nil {
		return "", err
	}
	return BuildBody(summary, BodyMeta{
		Repository: p.target.Repository,
		CommitSHA:  p.target.CommitSHA,
		RunID:      p.target.RunID,
		Now:        p.now(),
	}), nil
}

// Post はコメントを投稿する。要約ファイルがない場合は何もしない。
// 既存のボットコメントがあれば更新し、なければ新規作成する。
// 既存コメントの検索に失敗した場合は新規作成にフォールバックする。
func (p *Poster) Post(ctx context.Context) (Action, error) {
	body, err := p.Body()
	if errors.Is(err, visualreport.ErrNoSummary) {
		p.logger.Info("要約ファイルがないためコメントを作成しません", slog.String("path", p.summaryPath))
		p.metrics.RecordComment(string(ActionSkipped))
		return ActionSkipped, nil
	}
	if err != nil {
		return "", err
	}

	existing := p.findExisting(ctx)
	if existing != nil {
		p.logger.Info("既存のコメントを更新します", slog.Int64("comment_id", existing.ID))
		c, err := p.api.UpdateComment(ctx, p.target.Repository, existing.ID, body)
		if err != nil {
			return "", fmt.Errorf("failed to update comment: %w", err)
		}
		p.metrics.RecordComment(string(ActionUpdated))
		p.logger.Info("コメントを更新しました", slog.String("url", c.HTMLURL))
		return ActionUpdated, nil
	}

	p.logger.Info("新しいコメントを作成します", slog.String("pr", p.target.PRNumber))
	c, err := p.api.CreateComment(ctx, p.target.Repository, p.target.PRNumber, body)
	if err != nil {
		return "", fmt.Errorf("failed to create comment: %w", err)
	}
	p.metrics.RecordComment(string(ActionCreated))
	p.logger.Info("コメントを作成しました", slog.String("url", c.HTMLURL))
	return ActionCreated, nil
}

func (p *Poster) findExisting(ctx context.Context) *Comment {
	comments, err := p.api.ListComments(ctx, p.target.Repository, p.target.PRNumber)
	if err != nil {
		p.logger.Warn("既存コメントの検索に失敗しました", slog.String("error", err.Error()))
		return nil
	}
	for i := range comments {
		c := &comments[i]
		if strings.Contains(c.Body, Marker) && c.User.Login == BotLogin {
			return c
		}
	}
	return nil
}

// Preview はMarkdownの本文を端末向けに整形する。
func Preview(body string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := r.Render(body)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
