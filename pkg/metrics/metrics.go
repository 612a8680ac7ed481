package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 扫描执行次数
	ScanRunCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "immunization_scan_runs_total",
			Help: "Total number of due-date scan runs",
		},
		[]string{"outcome"}, // outcome: completed, failed, already_completed, in_progress
	)

	// 扫描耗时（秒）
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "immunization_scan_duration_seconds",
			Help:    "Due-date scan run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
	)

	// 扫描命中的计划行数
	ScanMatchCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "immunization_scan_matches_total",
			Help: "Total number of schedule entries matched by scans",
		},
	)

	// 提醒处理结果计数
	NotificationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "immunization_notifications_total",
			Help: "Total number of notification decisions",
		},
		[]string{"result"}, // result: emitted, skipped, failed
	)

	// 投递结果计数
	DeliveryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "immunization_deliveries_total",
			Help: "Total number of sink deliveries",
		},
		[]string{"sink", "status"}, // status: success, failed, dropped
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// RecordScanRun 记录一次扫描结果与耗时
func RecordScanRun(outcome string, duration time.Duration) {
	ScanRunCount.WithLabelValues(outcome).Inc()
	ScanDuration.Observe(duration.Seconds())
}

// AddScanMatches 累加扫描命中数
func AddScanMatches(n int) {
	ScanMatchCount.Add(float64(n))
}

// IncrementNotification 增加提醒处理计数
func IncrementNotification(result string) {
	NotificationCount.WithLabelValues(result).Inc()
}

// IncrementNotificationBy 批量增加提醒处理计数
func IncrementNotificationBy(result string, n int) {
	NotificationCount.WithLabelValues(result).Add(float64(n))
}

// IncrementDelivery 增加投递计数
func IncrementDelivery(sink, status string) {
	DeliveryCount.WithLabelValues(sink, status).Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
