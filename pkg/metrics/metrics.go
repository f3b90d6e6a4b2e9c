package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// KV 存储操作延迟（秒）
	KVOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kv_operation_duration_seconds",
			Help:    "Key-value store operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"backend", "operation"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of database queries slower than the configured threshold",
		},
	)

	// 数据变更计数
	StoreMutationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_mutation_count",
			Help: "Total number of record store mutations",
		},
		[]string{"operation", "result"}, // result: ok, rejected, error
	)

	// 事件发布计数
	EventPublishCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_publish_count",
			Help: "Total number of events published on the in-process bus",
		},
		[]string{"topic"},
	)

	// 用户通知计数
	NotificationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_count",
			Help: "Total number of user notifications by severity",
		},
		[]string{"type"},
	)

	// 导入时跳过的行
	ImportRowsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "import_rows_skipped_total",
			Help: "Spreadsheet rows skipped during import",
		},
	)

	// 当前任务状态分布
	TasksByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tasks_by_status",
			Help: "Current number of tasks per effective status",
		},
		[]string{"status"},
	)

	ProjectsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "projects_total",
			Help: "Current number of projects",
		},
	)

	WeeklyAllocated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weekly_allocated_tasks",
			Help: "Current number of tasks allocated to a weekday",
		},
	)
)

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordKVOperation 记录 KV 操作延迟
func RecordKVOperation(backend, operation string, duration time.Duration) {
	KVOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery() {
	SlowQueryCount.Inc()
}

// IncrementStoreMutation 增加数据变更计数
func IncrementStoreMutation(operation, result string) {
	StoreMutationCount.WithLabelValues(operation, result).Inc()
}

// IncrementEventPublish 增加事件发布计数
func IncrementEventPublish(topic string) {
	EventPublishCount.WithLabelValues(topic).Inc()
}

// IncrementNotification 增加通知计数
func IncrementNotification(kind string) {
	NotificationCount.WithLabelValues(kind).Inc()
}

// AddImportRowsSkipped 记录导入跳过的行数
func AddImportRowsSkipped(n int) {
	if n > 0 {
		ImportRowsSkipped.Add(float64(n))
	}
}

// SetStatusCounts 设置任务状态分布与项目总数
func SetStatusCounts(byStatus map[string]int, projects int) {
	for _, s := range []string{"completed", "in-progress", "overdue", "pending"} {
		TasksByStatus.WithLabelValues(s).Set(float64(byStatus[s]))
	}
	ProjectsTotal.Set(float64(projects))
}

// SetWeeklyAllocated 设置已分配到周计划的任务数
func SetWeeklyAllocated(n int) {
	WeeklyAllocated.Set(float64(n))
}
