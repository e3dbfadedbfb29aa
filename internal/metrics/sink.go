package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate errors.
// If the metrics backend is unavailable, implementations log warnings and continue.
type Sink interface {
	// Scheduler metrics
	AttemptStarted()
	AttemptCompleted(duration time.Duration, err error)
	NextDelaySet(delay time.Duration)

	// Fetcher metrics
	CacheLookup(status string)
	FetchFailure(kind string)

	// Ingestor metrics
	RowsUpserted(count int)
	UpsertFailures(count int)
	SchemaFailure(step string)

	// History metrics
	HistoryRecorded()
	HistorySkipped(reason string) // reason: "breaker_open", "error"
}

// Step constants for SchemaFailure.
const (
	StepEnsureTable  = "ensure_table"
	StepEnsureColumn = "ensure_column"
)
