package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksSubmitted считает принятые задачи по командам
	TasksSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "db_cleanup_tasks_submitted_total",
		Help: "Total accepted task submissions by command",
	}, []string{"command"})

	// TasksRejected считает отправки, отклоненные из-за занятой команды
	TasksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "db_cleanup_tasks_rejected_total",
		Help: "Total task submissions rejected while the command was in flight",
	}, []string{"command"})

	// TasksInFlight равен 1, пока у команды есть незавершенная задача
	TasksInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "db_cleanup_tasks_in_flight",
		Help: "Outstanding tasks by command",
	}, []string{"command"})

	// TaskDuration измеряет время выполнения единицы работы
	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_cleanup_task_duration_seconds",
		Help:    "Task duration in seconds by command and status",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10), // от 10мс до ~45мин
	}, []string{"command", "status"})

	// ReportLines считает строки, вычитанные из буфера вывода сервера
	ReportLines = promauto.NewCounter(prometheus.CounterOpts{
		Name: "db_cleanup_report_lines_total",
		Help: "Total report lines drained from the output buffer",
	})

	// ReportTruncations считает отчеты, обрезанные по лимиту строк
	ReportTruncations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "db_cleanup_report_truncations_total",
		Help: "Reports stopped at the configured line ceiling",
	})
)
