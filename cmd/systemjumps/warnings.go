package main

import (
	"log"
	"time"

	"github.com/caeruleus1F/systemjumps/internal/config"
	"github.com/caeruleus1F/systemjumps/internal/domain"
)

// minRetryInterval is the shortest retry that does not hammer the feed
// during an outage.
const minRetryInterval = 10 * time.Second

// logConfigWarnings logs settings that are valid but risky.
func logConfigWarnings(cfg *config.Config) {
	if cfg.SafetyMargin == 0 {
		log.Println("systemjumps: WARNING [P1]: SAFETY_MARGIN=0, the feed may still serve the previous document at cachedUntil")
	}
	if cfg.RetryInterval < minRetryInterval {
		log.Printf("systemjumps: WARNING [P1]: RETRY_INTERVAL=%s is below %s and will hammer the feed during outages",
			cfg.RetryInterval, minRetryInterval)
	}
	if !cfg.MetricsEnabled {
		log.Println("systemjumps: WARNING [P2]: METRICS_ENABLED=false, failed attempts are only visible in the log")
	}
	if domain.TableNamingMode(cfg.TableNamingMode) == domain.TableNamingFixed {
		log.Println("systemjumps: INFO: TABLE_NAMING_MODE=fixed, one column per pull accumulates in a single table; use period mode to roll over monthly")
	}
}
