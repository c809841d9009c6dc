package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 上传指标
	UploadSessionsOpened prometheus.Counter
	UploadSessionsSwept  prometheus.Counter
	UploadChunksReceived prometheus.Counter
	UploadBytesReceived  prometheus.Counter
	UploadFinalizeTotal  *prometheus.CounterVec
	UploadFileSize       *prometheus.HistogramVec
	DirectTargetsIssued  prometheus.Counter

	// 提交与看板指标
	SubmissionsCreated  prometheus.Counter
	SubmissionsPromoted prometheus.Counter
	CardsMoved          prometheus.Counter

	// 用户指标
	UsersRegistered prometheus.Counter
	UsersOnline     prometheus.Gauge

	// 系统指标
	DatabaseConnections prometheus.Gauge
	RedisConnections    prometheus.Gauge

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		// HTTP 请求指标
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskboard_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskboard_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskboard_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskboard_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "endpoint"},
		),

		// 上传指标
		UploadSessionsOpened: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "taskboard_upload_sessions_opened_total",
				Help: "Total number of upload sessions opened",
			},
		),

		UploadSessionsSwept: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "taskboard_upload_sessions_swept_total",
				Help: "Total number of expired upload sessions reclaimed",
			},
		),

		UploadChunksReceived: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "taskboard_upload_chunks_received_total",
				Help: "Total number of upload chunks received",
			},
		),

		UploadBytesReceived: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "taskboard_upload_bytes_received_total",
				Help: "Total number of upload bytes received",
			},
		),

		UploadFinalizeTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskboard_upload_finalize_total",
				Help: "Total number of finalize calls by outcome",
			},
			[]string{"outcome"},
		),

		UploadFileSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskboard_upload_file_size_bytes",
				Help:    "Finalized file size in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 12),
			},
			[]string{"file_type"},
		),

		DirectTargetsIssued: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "taskboard_direct_targets_issued_total",
				Help: "Total number of presigned direct-upload targets issued",
			},
		),

		// 提交与看板指标
		SubmissionsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "taskboard_submissions_created_total",
				Help: "Total number of client submissions created",
			},
		),

		SubmissionsPromoted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "taskboard_submissions_promoted_total",
				Help: "Total number of submissions promoted to cards",
			},
		),

		CardsMoved: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "taskboard_cards_moved_total",
				Help: "Total number of card move operations",
			},
		),

		// 用户指标
		UsersRegistered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "taskboard_users_registered_total",
				Help: "Total number of users registered",
			},
		),

		UsersOnline: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "taskboard_users_online",
				Help: "Number of connected realtime clients",
			},
		),

		// 系统指标
		DatabaseConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "taskboard_database_connections",
				Help: "Number of database connections",
			},
		),

		RedisConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "taskboard_redis_connections",
				Help: "Number of Redis connections",
			},
		),

		// 错误指标
		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskboard_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "taskboard_panics_total",
				Help: "Total number of panics",
			},
		),

		// 限流指标
		RateLimitBlocks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskboard_rate_limit_blocks_total",
				Help: "Total number of rate limited requests",
			},
			[]string{"type"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, requestSize, responseSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPRequestSize.WithLabelValues(method, endpoint).Observe(float64(requestSize))
	m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// Handler 返回 Prometheus 指标的 HTTP 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
