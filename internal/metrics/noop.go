package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) AttemptStarted()                                    {}
func (n *NoopSink) AttemptCompleted(duration time.Duration, err error) {}
func (n *NoopSink) NextDelaySet(delay time.Duration)                   {}
func (n *NoopSink) CacheLookup(status string)                          {}
func (n *NoopSink) FetchFailure(kind string)                           {}
func (n *NoopSink) RowsUpserted(count int)                             {}
func (n *NoopSink) UpsertFailures(count int)                           {}
func (n *NoopSink) SchemaFailure(step string)                          {}
func (n *NoopSink) HistoryRecorded()                                   {}
func (n *NoopSink) HistorySkipped(reason string)                       {}
