package metrics

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// Scheduler metrics
	attemptsTotal      prometheus.Counter
	attemptErrorsTotal prometheus.Counter
	attemptDuration    prometheus.Histogram
	nextDelay          prometheus.Gauge

	// Fetcher metrics
	cacheLookupsTotal  *prometheus.CounterVec
	fetchFailuresTotal *prometheus.CounterVec

	// Ingestor metrics
	rowsUpsertedTotal   prometheus.Counter
	upsertFailuresTotal prometheus.Counter
	schemaFailuresTotal *prometheus.CounterVec

	// History metrics
	historyRecordedTotal prometheus.Counter
	historySkippedTotal  *prometheus.CounterVec
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initSchedulerMetrics(reg)
	s.initFetcherMetrics(reg)
	s.initIngestMetrics(reg)
	s.initHistoryMetrics(reg)
	return s
}

func (s *PrometheusSink) initSchedulerMetrics(reg prometheus.Registerer) {
	s.attemptsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "systemjumps_scheduler_attempts_total",
		Help: "Total number of pull attempts started.",
	})
	s.attemptErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "systemjumps_scheduler_attempt_errors_total",
		Help: "Total number of pull attempts that ended in failure.",
	})
	s.attemptDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "systemjumps_scheduler_attempt_duration_seconds",
		Help:    "Duration of each fetch-and-ingest attempt in seconds.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})
	s.nextDelay = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "systemjumps_scheduler_next_delay_seconds",
		Help: "Delay armed before the next attempt, in seconds.",
	})

	s.register(reg, s.attemptsTotal, "systemjumps_scheduler_attempts_total")
	s.register(reg, s.attemptErrorsTotal, "systemjumps_scheduler_attempt_errors_total")
	s.register(reg, s.attemptDuration, "systemjumps_scheduler_attempt_duration_seconds")
	s.register(reg, s.nextDelay, "systemjumps_scheduler_next_delay_seconds")
}

func (s *PrometheusSink) initFetcherMetrics(reg prometheus.Registerer) {
	s.cacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "systemjumps_fetcher_cache_lookups_total",
		Help: "Total number of document cache lookups by result.",
	}, []string{"status"})

	s.fetchFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "systemjumps_fetcher_failures_total",
		Help: "Total number of failed fetches by kind.",
	}, []string{"kind"})

	s.register(reg, s.cacheLookupsTotal, "systemjumps_fetcher_cache_lookups_total")
	s.register(reg, s.fetchFailuresTotal, "systemjumps_fetcher_failures_total")
}

func (s *PrometheusSink) initIngestMetrics(reg prometheus.Registerer) {
	s.rowsUpsertedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "systemjumps_ingest_rows_upserted_total",
		Help: "Total number of entity rows written.",
	})
	s.upsertFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "systemjumps_ingest_upsert_failures_total",
		Help: "Total number of entity rows that failed to write.",
	})
	s.schemaFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "systemjumps_ingest_schema_failures_total",
		Help: "Total number of table or column creation failures.",
	}, []string{"step"})

	s.register(reg, s.rowsUpsertedTotal, "systemjumps_ingest_rows_upserted_total")
	s.register(reg, s.upsertFailuresTotal, "systemjumps_ingest_upsert_failures_total")
	s.register(reg, s.schemaFailuresTotal, "systemjumps_ingest_schema_failures_total")
}

func (s *PrometheusSink) initHistoryMetrics(reg prometheus.Registerer) {
	s.historyRecordedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "systemjumps_history_recorded_total",
		Help: "Total number of pulls recorded in the history store.",
	})
	s.historySkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "systemjumps_history_skipped_total",
		Help: "Total number of pulls not recorded in the history store.",
	}, []string{"reason"})

	s.register(reg, s.historyRecordedTotal, "systemjumps_history_recorded_total")
	s.register(reg, s.historySkippedTotal, "systemjumps_history_skipped_total")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

// Scheduler metrics implementation

func (s *PrometheusSink) AttemptStarted() {
	s.attemptsTotal.Inc()
}

func (s *PrometheusSink) AttemptCompleted(duration time.Duration, err error) {
	s.attemptDuration.Observe(duration.Seconds())
	if err != nil {
		s.attemptErrorsTotal.Inc()
	}
}

func (s *PrometheusSink) NextDelaySet(delay time.Duration) {
	s.nextDelay.Set(delay.Seconds())
}

// Fetcher metrics implementation

func (s *PrometheusSink) CacheLookup(status string) {
	s.cacheLookupsTotal.WithLabelValues(status).Inc()
}

func (s *PrometheusSink) FetchFailure(kind string) {
	s.fetchFailuresTotal.WithLabelValues(kind).Inc()
}

// Ingestor metrics implementation

func (s *PrometheusSink) RowsUpserted(count int) {
	s.rowsUpsertedTotal.Add(float64(count))
}

func (s *PrometheusSink) UpsertFailures(count int) {
	s.upsertFailuresTotal.Add(float64(count))
}

func (s *PrometheusSink) SchemaFailure(step string) {
	s.schemaFailuresTotal.WithLabelValues(step).Inc()
}

// History metrics implementation

func (s *PrometheusSink) HistoryRecorded() {
	s.historyRecordedTotal.Inc()
}

func (s *PrometheusSink) HistorySkipped(reason string) {
	s.historySkippedTotal.WithLabelValues(reason).Inc()
}
