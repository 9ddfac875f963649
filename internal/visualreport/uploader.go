package visualreport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/todoctl/internal/metrics"
)

// DefaultImgurEndpoint は画像アップロードAPIのエンドポイント。
const DefaultImgurEndpoint = "https://api.imgur.com/3/image"

// Uploader は画像をアップロードして公開URLを返す。
// ファイルが存在しない場合は空のURLとnilを返す。
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// ImgurUploader はImgurの匿名アップロードAPIを使うUploader。
type ImgurUploader struct {
	clientID   string
	httpClient *http.Client
	endpoint   string
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
}

// NewImgurUploader はImgurUploaderを生成する。
// httpClientにはSSRF防止付きのクライアントを渡す想定。limiterはnilで無制限。
func NewImgurUploader(clientID string, httpClient *http.Client, limiter *rate.Limiter, logger *slog.Logger, m metrics.MetricsCollector) *ImgurUploader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &ImgurUploader{
		clientID:   clientID,
		httpClient: httpClient,
		endpoint:   DefaultImgurEndpoint,
		limiter:    limiter,
		logger:     logger,
		metrics:    m,
	}
}

// SetEndpoint はアップロード先を変更する。
func (u *ImgurUploader) SetEndpoint(endpoint string) {
	u.endpoint = endpoint
}

type imgurResponse struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    struct {
		Link  string `json:"link"`
		Error any    `json:"error"`
	} `json:"data"`
}

// Upload は画像をmultipartのimageフィールドとして送信する。
func (u *ImgurUploader) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		u.logger.Warn("画像ファイルが存在しません", slog.String("path", path))
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	if u.limiter != nil {
		if err := u.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+u.clientID)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	link, err := u.send(req)
	u.metrics.RecordUpload(err == nil)
	if err != nil {
		u.logger.Error("画像のアップロードに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return "", err
	}
	u.logger.Info("画像をアップロードしました",
		slog.String("file", filepath.Base(path)),
		slog.String("url", link),
	)
	return link, nil
}

func (u *ImgurUploader) send(req *http.Request) (string, error) {
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	var ir imgurResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return "", fmt.Errorf("failed to decode upload response (status %d): %w", resp.StatusCode, err)
	}
	if !ir.Success {
		return "", fmt.Errorf("upload rejected (status %d): %v", resp.StatusCode, ir.Data.Error)
	}
	if ir.Data.Link == "" {
		return "", fmt.Errorf("upload response has no link")
	}
	return ir.Data.Link, nil
}
