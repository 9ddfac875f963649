// Package prcomment はビジュアルリグレッションの要約をプルリクエストのコメントとして投稿する。
package prcomment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultAPIURL はGitHub REST APIのベースURL。
	DefaultAPIURL = "https://api.github.com"
	userAgent     = "Visual-Regression-Bot"
	acceptHeader  = "application/vnd.github.v3+json"
)

// Comment はIssue/PRコメント。
type Comment struct {
	ID      int64  `json:"id"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
	User    struct {
		Login string `json:"login"`
	} `json:"user"`
}

// Repository はowner/name形式のリポジトリ座標。
type Repository struct {
	Owner string
	Name  string
}

// ParseRepository は "owner/name" を分解する。
func ParseRepository(s string) (Repository, error) {
	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, fmt.Errorf("invalid repository %q: want owner/name", s)
	}
	return Repository{Owner: owner, Name: name}, nil
}

// String は "owner/name" を返す。
func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// GitHubClient はコメントAPIのクライアント。
type GitHubClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGitHubClient はGitHubClientを生成する。baseURLが空の場合はDefaultAPIURLを使う。
func NewGitHubClient(baseURL, token string, httpClient *http.Client, logger *slog.Logger) *GitHubClient {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &GitHubClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ListComments はPRのコメント一覧（先頭ページ）を取得する。
func (c *GitHubClient) ListComments(ctx context.Context, repo Repository, pr string) ([]Comment, error) {
	var comments []Comment
	path := fmt.Sprintf("/repos/%s/%s/issues/%s/comments", repo.Owner, repo.Name, pr)
	if err := c.do(ctx, http.MethodGet, path, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment はPRにコメントを投稿する。
func (c *GitHubClient) CreateComment(ctx context.Context, repo Repository, pr, body string) (*Comment, error) {
	var comment Comment
	path := fmt.Sprintf("/repos/%s/%s/issues/%s/comments", repo.Owner, repo.Name, pr)
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"body": body}, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// UpdateComment は既存のコメントを書き換える。
func (c *GitHubClient) UpdateComment(ctx context.Context, repo Repository, id int64, body string) (*Comment, error) {
	var comment Comment
	path := fmt.Sprintf("/repos/%s/%s/issues/comments/%d", repo.Owner, repo.Name, id)
	if err := c.do(ctx, http.MethodPatch, path, map[string]string{"body": body}, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// APIError はGitHub APIの非2xxレスポンス。
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API error (%d): %s", e.StatusCode, e.Message)
}

func (c *GitHubClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(b, &eb)
		c.logger.Warn("GitHub APIがエラーを返しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return &APIError{StatusCode: resp.StatusCode, Message: eb.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
