// Package metrics はPrometheusメトリクスの収集と公開を提供する。
// CLIでは --metrics-file でテキストファイルに書き出し、モックAPIでは /metrics で公開する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// APIクライアントやCIツールから利用する。
type MetricsCollector interface {
	RecordRequest(method, route string, statusCode int, duration time.Duration)
	RecordRequestError(method, route string)
	RecordUpload(success bool)
	RecordComment(action string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	requests       *prometheus.CounterVec
	requestErrors  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	uploads        *prometheus.CounterVec
	comments       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoctl_api_requests_total",
			Help: "APIリクエストの合計数（メソッド・ルート・ステータス別）",
		}, []string{"method", "route", "status_code"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoctl_api_request_errors_total",
			Help: "レスポンスを受け取れなかったAPIリクエストの合計数",
		}, []string{"method", "route"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "todoctl_api_request_duration_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoctl_image_uploads_total",
			Help: "スクリーンショット画像アップロードの合計数",
		}, []string{"result"}),
		comments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoctl_pr_comments_total",
			Help: "PRコメントの作成・更新の合計数",
		}, []string{"action"}),
	}

	reg.MustRegister(
		c.requests,
		c.requestErrors,
		c.requestLatency,
		c.uploads,
		c.comments,
	)

	return c
}

// RecordRequest はレスポンスを受け取ったリクエストを記録する。
func (c *Collector) RecordRequest(method, route string, statusCode int, duration time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.requestLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRequestError は通信エラーで失敗したリクエストを記録する。
func (c *Collector) RecordRequestError(method, route string) {
	c.requestErrors.WithLabelValues(method, route).Inc()
}

// RecordUpload は画像アップロードの結果を記録する。
func (c *Collector) RecordUpload(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.uploads.WithLabelValues(result).Inc()
}

// RecordComment はPRコメントの操作（created/updated）を記録する。
func (c *Collector) RecordComment(action string) {
	c.comments.WithLabelValues(action).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// WriteTextfile はメトリクスをnode_exporterのtextfile形式で書き出す。
// 短命なCLIプロセスの結果をCIで収集するために使う。
func WriteTextfile(path string, gatherer prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, gatherer)
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordRequest(string, string, int, time.Duration) {}
func (Nop) RecordRequestError(string, string)                {}
func (Nop) RecordUpload(bool)                                {}
func (Nop) RecordComment(string)                             {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
