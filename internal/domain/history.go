package domain

import "time"

// HistoryConfig controls how ingested pulls are recorded for later analysis.
type HistoryConfig struct {
	Enabled   bool
	Retention time.Duration // TTL of each per-pull record
}
