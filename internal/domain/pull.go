package domain

import "time"

// Entity is a single solar system row of a pull.
type Entity struct {
	ID    string
	Value int64
}

// PullResult is one parsed Jumps document.
type PullResult struct {
	Entities []Entity

	DataTime    time.Time // when the source generated the counters (UTC)
	CurrentTime time.Time // source clock at response time (UTC)
	CachedUntil time.Time // source guarantees no new data before this (UTC)
}

// Label returns the column name this pull is written under.
func (p PullResult) Label() string {
	return LabelFor(p.DataTime)
}

// CacheWindow is how long the source advertises its response as current.
func (p PullResult) CacheWindow() time.Duration {
	return p.CachedUntil.Sub(p.CurrentTime)
}

// Total sums every entity value.
func (p PullResult) Total() int64 {
	var total int64
	for _, e := range p.Entities {
		total += e.Value
	}
	return total
}
