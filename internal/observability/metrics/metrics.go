package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricPrefix = "utbetaling_"

	resultSuccess = "success"
	resultError   = "error"
	resultSkipped = "skipped"
)

var (
	registerOnce sync.Once

	issueTotal   *prometheus.CounterVec
	issueLatency *prometheus.HistogramVec

	oppdragPublishTotal   *prometheus.CounterVec
	oppdragPublishLatency *prometheus.HistogramVec

	kvitteringTotal *prometheus.CounterVec

	avstemmingTotal   *prometheus.CounterVec
	avstemmingLatency *prometheus.HistogramVec
	avstemmingOppdrag *prometheus.GaugeVec

	jobTotal *prometheus.CounterVec

	outboxPublishTotal   *prometheus.CounterVec
	outboxPublishLatency *prometheus.HistogramVec
	outboxDispatchTotal  *prometheus.CounterVec
	outboxDispatchEvents *prometheus.CounterVec
	outboxDispatchTime   *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers service metrics and DB-backed gauges.
func Init(db *sql.DB, logger *zap.Logger) {
	registerOnce.Do(func() {
		issueTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "issue_total",
				Help: "Total decisions turned into payment instructions by result",
			},
			[]string{"result"},
		)
		issueLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "issue_latency_seconds",
				Help:    "Issue latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		oppdragPublishTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "oppdrag_publish_total",
				Help: "Total instruction publishes to the ledger channel by result",
			},
			[]string{"result"},
		)
		oppdragPublishLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "oppdrag_publish_latency_seconds",
				Help:    "Instruction publish latency including broker confirm",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		kvitteringTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "kvittering_total",
				Help: "Total receipts by outcome",
			},
			[]string{"outcome"},
		)

		avstemmingTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "avstemming_total",
				Help: "Total reconciliation runs by kind, benefit category and result",
			},
			[]string{"kind", "sak_type", "result"},
		)
		avstemmingLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "avstemming_latency_seconds",
				Help:    "Reconciliation run latency in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300},
			},
			[]string{"kind", "result"},
		)
		avstemmingOppdrag = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "avstemming_oppdrag",
				Help: "Instructions or cases covered by the last reconciliation run",
			},
			[]string{"kind", "sak_type"},
		)

		jobTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "scheduler_job_total",
				Help: "Total scheduled job ticks by job and result",
			},
			[]string{"job", "result"},
		)

		outboxPublishTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "outbox_publish_total",
				Help: "Total outbox inserts by result",
			},
			[]string{"result"},
		)
		outboxPublishLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "outbox_publish_latency_seconds",
				Help:    "Outbox insert latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		outboxDispatchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "outbox_dispatch_total",
				Help: "Total outbox dispatch runs by result",
			},
			[]string{"result"},
		)
		outboxDispatchEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "outbox_dispatch_events_total",
				Help: "Total dispatched outbox events by outcome",
			},
			[]string{"outcome"},
		)
		outboxDispatchTime = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "outbox_dispatch_latency_seconds",
				Help:    "Outbox dispatch run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "avstemming_export_total",
				Help: "Total reconciliation exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "avstemming_export_latency_seconds",
				Help:    "Reconciliation export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			issueTotal,
			issueLatency,
			oppdragPublishTotal,
			oppdragPublishLatency,
			kvitteringTotal,
			avstemmingTotal,
			avstemmingLatency,
			avstemmingOppdrag,
			jobTotal,
			outboxPublishTotal,
			outboxPublishLatency,
			outboxDispatchTotal,
			outboxDispatchEvents,
			outboxDispatchTime,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveIssue records issue latency and result.
func ObserveIssue(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if issueTotal != nil {
		issueTotal.WithLabelValues(result).Inc()
	}
	if issueLatency != nil {
		issueLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveOppdragPublish records an instruction publish.
func ObserveOppdragPublish(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if oppdragPublishTotal != nil {
		oppdragPublishTotal.WithLabelValues(result).Inc()
	}
	if oppdragPublishLatency != nil {
		oppdragPublishLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncKvittering increments the receipt counter.
func IncKvittering(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if kvitteringTotal != nil {
		kvitteringTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveAvstemming records a reconciliation run.
func ObserveAvstemming(kind, sakType, result string, duration time.Duration, antall int) {
	if result == "" {
		result = resultSuccess
	}
	if avstemmingTotal != nil {
		avstemmingTotal.WithLabelValues(kind, sakType, result).Inc()
	}
	if avstemmingLatency != nil {
		avstemmingLatency.WithLabelValues(kind, result).Observe(duration.Seconds())
	}
	if avstemmingOppdrag != nil && result == resultSuccess {
		avstemmingOppdrag.WithLabelValues(kind, sakType).Set(float64(antall))
	}
}

// IncJob increments the scheduled job counter.
func IncJob(job, result string) {
	if job == "" {
		job = "unknown"
	}
	if jobTotal != nil {
		jobTotal.WithLabelValues(job, result).Inc()
	}
}

// ObserveOutboxPublish records an outbox insert.
func ObserveOutboxPublish(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if outboxPublishTotal != nil {
		outboxPublishTotal.WithLabelValues(result).Inc()
	}
	if outboxPublishLatency != nil {
		outboxPublishLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveOutboxDispatch records one dispatch run.
func ObserveOutboxDispatch(result string, duration time.Duration, sent, failed, dlq int) {
	if result == "" {
		result = resultSuccess
	}
	if outboxDispatchTotal != nil {
		outboxDispatchTotal.WithLabelValues(result).Inc()
	}
	if outboxDispatchTime != nil {
		outboxDispatchTime.WithLabelValues(result).Observe(duration.Seconds())
	}
	if outboxDispatchEvents != nil {
		outboxDispatchEvents.WithLabelValues("sent").Add(float64(sent))
		outboxDispatchEvents.WithLabelValues("failed").Add(float64(failed))
		outboxDispatchEvents.WithLabelValues("dlq").Add(float64(dlq))
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultSkipped = resultSkipped

	IssueResultCreated  = "created"
	IssueResultExisting = "existing"
	IssueResultInvalid  = "invalid"
)
