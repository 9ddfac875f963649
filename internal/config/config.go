// Package config は環境変数から各コマンドの設定を読み込む。
// 設定はコマンド起動時に1回だけ読み込み、以降はイミュータブルとして扱う。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session backends.
const (
	SessionBackendFile     = "file"
	SessionBackendSQLite   = "sqlite"
	SessionBackendPostgres = "postgres"
	SessionBackendMemory   = "memory"
)

// ClientConfig はAPIクライアント系コマンド（auth, todos）の設定。
type ClientConfig struct {
	// API
	APIBaseURL   string
	HTTPTimeout  time.Duration
	RequestRate  float64 // req/sec、0以下で無制限
	RequestBurst int

	// Session
	SessionBackend string
	SessionPath    string // file/sqlite のパス。空の場合は既定のパス
	DatabaseURL    string // postgres の場合は必須
	Token          string // 設定されている場合は保存済みトークンより優先

	// Logging
	LogLevel slog.Level
}

// LoadClient は環境変数からClientConfigを読み込む。
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{
		APIBaseURL:     getEnvString("API_BASE_URL", "http://localhost:3000/api"),
		HTTPTimeout:    getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		RequestRate:    getEnvFloat("API_RATE_LIMIT", 0),
		RequestBurst:   getEnvInt("API_RATE_BURST", 1),
		SessionBackend: strings.ToLower(getEnvString("SESSION_BACKEND", SessionBackendFile)),
		SessionPath:    os.Getenv("SESSION_PATH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Token:          os.Getenv("TODOCTL_TOKEN"),
		LogLevel:       ParseLogLevel(os.Getenv("LOG_LEVEL")),
	}

	switch cfg.SessionBackend {
	case SessionBackendFile, SessionBackendSQLite, SessionBackendMemory:
	case SessionBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("required environment variables are not set: %v", []string{"DATABASE_URL"})
		}
	default:
		return nil, fmt.Errorf("unsupported SESSION_BACKEND: %q", cfg.SessionBackend)
	}
	return cfg, nil
}

// ReportConfig はビジュアルレポート生成（report）の設定。
type ReportConfig struct {
	ImgurClientID     string
	ImgurEndpoint     string
	ResultsDir        string
	SnapshotsDir      string
	OutputDir         string
	PRNumber          string
	CommitSHA         string
	UploadTimeout     time.Duration
	UploadRate        float64
	UploadConcurrency int
	LogLevel          slog.Level
}

// LoadReport は環境変数からReportConfigを読み込む。IMGUR_CLIENT_IDは必須。
func LoadReport() (*ReportConfig, error) {
	cfg := &ReportConfig{
		ImgurClientID:     os.Getenv("IMGUR_CLIENT_ID"),
		ImgurEndpoint:     getEnvString("IMGUR_ENDPOINT", "https://api.imgur.com/3/image"),
		ResultsDir:        getEnvString("REPORT_RESULTS_DIR", "test-results"),
		SnapshotsDir:      getEnvString("REPORT_SNAPSHOTS_DIR", "e2e"),
		OutputDir:         getEnvString("REPORT_OUTPUT_DIR", "visual-reports"),
		PRNumber:          os.Getenv("GITHUB_PR_NUMBER"),
		CommitSHA:         os.Getenv("GITHUB_SHA"),
		UploadTimeout:     getEnvDuration("UPLOAD_TIMEOUT", 60*time.Second),
		UploadRate:        getEnvFloat("UPLOAD_RATE_LIMIT", 2),
		UploadConcurrency: getEnvInt("UPLOAD_CONCURRENCY", 2),
		LogLevel:          ParseLogLevel(os.Getenv("LOG_LEVEL")),
	}
	if cfg.ImgurClientID == "" {
		return nil, fmt.Errorf("required environment variables are not set: %v", []string{"IMGUR_CLIENT_ID"})
	}
	return cfg, nil
}

// CommentConfig はPRコメント投稿（comment）の設定。
type CommentConfig struct {
	GitHubToken  string
	Repository   string
	PRNumber     string
	CommitSHA    string
	RunID        string
	GitHubAPIURL string
	SummaryPath  string
	HTTPTimeout  time.Duration
	LogLevel     slog.Level
}

// LoadComment は環境変数からCommentConfigを読み込む。
// requireCredentialsがfalseの場合（プレビュー時）は必須チェックを行わない。
func LoadComment(requireCredentials bool) (*CommentConfig, error) {
	cfg := &CommentConfig{
		GitHubToken:  os.Getenv("GITHUB_TOKEN"),
		Repository:   os.Getenv("GITHUB_REPOSITORY"),
		PRNumber:     os.Getenv("GITHUB_PR_NUMBER"),
		CommitSHA:    os.Getenv("GITHUB_SHA"),
		RunID:        os.Getenv("GITHUB_RUN_ID"),
		GitHubAPIURL: getEnvString("GITHUB_API_URL", "https://api.github.com"),
		SummaryPath:  getEnvString("REPORT_SUMMARY_PATH", "visual-reports/summary.json"),
		HTTPTimeout:  getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		LogLevel:     ParseLogLevel(os.Getenv("LOG_LEVEL")),
	}
	if !requireCredentials {
		return cfg, nil
	}

	var missing []string
	if cfg.GitHubToken == "" {
		missing = append(missing, "GITHUB_TOKEN")
	}
	if cfg.Repository == "" {
		missing = append(missing, "GITHUB_REPOSITORY")
	}
	if cfg.PRNumber == "" {
		missing = append(missing, "GITHUB_PR_NUMBER")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}
	return cfg, nil
}

// MockAPIConfig はモックAPIサーバー（mockapi serve）の設定。
type MockAPIConfig struct {
	Port           string
	Secret         string
	FixedToken     string
	TokenTTL       time.Duration
	AllowedOrigins []string
	Seed           bool
	LogLevel       slog.Level
}

// LoadMockAPI は環境変数からMockAPIConfigを読み込む。
func LoadMockAPI() *MockAPIConfig {
	return &MockAPIConfig{
		Port:           getEnvString("MOCKAPI_PORT", "3000"),
		Secret:         os.Getenv("MOCKAPI_SECRET"),
		FixedToken:     getEnvString("MOCKAPI_FIXED_TOKEN", "mock-token"),
		TokenTTL:       getEnvDuration("MOCKAPI_TOKEN_TTL", 72*time.Hour),
		AllowedOrigins: splitList(getEnvString("MOCKAPI_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173")),
		Seed:           getEnvBool("MOCKAPI_SEED", true),
		LogLevel:       ParseLogLevel(os.Getenv("LOG_LEVEL")),
	}
}

// LoadDatabaseURL はマイグレーション用にDATABASE_URLを読み込む。未設定の場合はエラー。
func LoadDatabaseURL() (string, error) {
	v := os.Getenv("DATABASE_URL")
	if v == "" {
		return "", fmt.Errorf("required environment variables are not set: %v", []string{"DATABASE_URL"})
	}
	return v, nil
}

// LoadDotEnv はpathの.envファイルを読み込み、未設定の環境変数のみを設定する。
// ファイルが存在しない場合は何もしない。
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ParseLogLevel はLOG_LEVELの値をslog.Levelに変換する。不明な値はInfo。
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
