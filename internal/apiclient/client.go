// Package apiclient はリモートのToDoサービスに対するREST+JSONクライアントを提供する。
// セッショントークンはコンストラクタで渡されたsession.Sessionから読み出す。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hitoshi/todoctl/internal/metrics"
	"github.com/hitoshi/todoctl/internal/model"
	"github.com/hitoshi/todoctl/internal/session"
)

const (
	// DefaultBaseURL はAPIのデフォルトのベースURL。
	DefaultBaseURL = "http://localhost:3000/api"
	// defaultUserAgent はリクエストに付与するUser-Agent。
	defaultUserAgent = "todoctl/1.0"
	// maxErrorBodySize はエラーレスポンスとして読み取る最大バイト数。
	maxErrorBodySize = 64 << 10
)

// Client はToDoサービスのAPIクライアント。
// リトライやクライアント側のタイムアウトは行わず、呼び出し元のcontextに従う。
type Client struct {
	baseURL    string
	session    *session.Session
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	limiter    *rate.Limiter
	userAgent  string
}

// Option はClientの生成オプション。
type Option func(*Client)

// WithHTTPClient は使用するhttp.Clientを差し替える。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger はロガーを設定する。
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics はメトリクスコレクタを設定する。
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRateLimit は1秒あたりのリクエスト数を制限する。0以下は無制限。
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithUserAgent はUser-Agentを変更する。
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New はClientを生成する。baseURLが空の場合はDefaultBaseURLを使う。
func New(baseURL string, sess *session.Session, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    sess,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
		metrics:    metrics.Nop{},
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL はベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// errorBody は非2xxレスポンスのボディ。
type errorBody struct {
	Message string `json:"message"`
}

// do はリクエストを送信し、2xxの場合はレスポンスをoutにデコードする。
// routeはメトリクスとログ用のルートテンプレート（例: /todos/{id}）。
func (c *Client) do(ctx context.Context, method, route, path string, query url.Values, in, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	if c.session != nil {
		token, ok, err := c.session.Token(ctx)
		if err != nil {
			c.logger.Warn("セッションを読み込めないため認証なしで送信します",
				slog.String("route", route),
				slog.String("error", err.Error()),
			)
		} else if ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordRequestError(method, route)
		c.logger.Error("APIリクエストに失敗しました",
			slog.String("method", method),
			slog.String("route", route),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.metrics.RecordRequest(method, route, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp)
		c.logger.Warn("APIがエラーステータスを返しました",
			slog.String("method", method),
			slog.String("route", route),
			slog.Int("http_status", resp.StatusCode),
			slog.String("message", apiErr.Message),
		)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError は非2xxレスポンスをAPIErrorに変換する。
// ボディがJSONでない、またはmessageがない場合はフォールバックメッセージを使う。
func decodeError(resp *http.Response) *model.APIError {
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return model.NewAPIError(resp.StatusCode, "")
	}
	var eb errorBody
	if err := json.Unmarshal(b, &eb); err != nil {
		return model.NewAPIError(resp.StatusCode, "")
	}
	return model.NewAPIError(resp.StatusCode, eb.Message)
}

// todoPath はToDo個別リソースのパスを返す。IDはパスエスケープする。
func todoPath(id string) string {
	return "/todos/" + url.PathEscape(id)
}

// errEmptyID はIDが空の場合のエラー。
var errEmptyID = errors.New("todo id is empty")
