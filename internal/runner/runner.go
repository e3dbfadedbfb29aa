// Package runner joins fetching and ingestion into the attempt the
// scheduler repeats.
package runner

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/caeruleus1F/systemjumps/internal/analytics"
	"github.com/caeruleus1F/systemjumps/internal/domain"
	"github.com/caeruleus1F/systemjumps/internal/fetcher"
	"github.com/caeruleus1F/systemjumps/internal/scheduler"
)

type Fetcher interface {
	Fetch(ctx context.Context) (fetcher.Result, error)
}

type Ingestor interface {
	Table(pull domain.PullResult) string
	Ingest(ctx context.Context, pull domain.PullResult) (int, error)
}

// HistoryRecorder stores a summary of each ingested pull. Optional.
type HistoryRecorder interface {
	Record(ctx context.Context, table string, pull domain.PullResult, written int) error
}

type Runner struct {
	fetcher  Fetcher
	ingestor Ingestor
	history  HistoryRecorder
}

func New(f Fetcher, i Ingestor) *Runner {
	return &Runner{fetcher: f, ingestor: i}
}

// WithHistory records every successfully ingested pull in h.
func (r *Runner) WithHistory(h HistoryRecorder) *Runner {
	r.history = h
	return r
}

// Attempt fetches one pull and ingests it. The returned delay is the
// source's hint for the next pull; a non-nil error sends the scheduler down
// its retry path instead.
func (r *Runner) Attempt(ctx context.Context) (time.Duration, error) {
	id := uuid.New().String()[:8]

	log.Printf("runner: [%s] fetch starting", id)
	res, err := r.fetcher.Fetch(ctx)
	if err != nil {
		log.Printf("runner: [%s] fetch failed: %v", id, err)
		return 0, err
	}

	pull := res.Pull
	if res.FromCache {
		log.Printf("runner: [%s] cache hit label=%s entities=%d", id, pull.Label(), len(pull.Entities))
	} else {
		log.Printf("runner: [%s] download complete label=%s entities=%d cached_until=%s",
			id, pull.Label(), len(pull.Entities), pull.CachedUntil.Format(time.RFC3339))
	}

	table := r.ingestor.Table(pull)
	written, err := r.ingestor.Ingest(ctx, pull)
	if err != nil {
		log.Printf("runner: [%s] insertion into %s incomplete: %d of %d rows written", id, table, written, len(pull.Entities))
		return 0, fmt.Errorf("ingest %s: %w", pull.Label(), err)
	}
	log.Printf("runner: [%s] insertion complete table=%s column=%s rows=%d", id, table, pull.Label(), written)

	if r.history != nil {
		if err := r.history.Record(ctx, table, pull, written); err != nil && !analytics.IsSkipped(err) {
			log.Printf("runner: [%s] history write failed: %v", id, err)
		}
	}

	return res.NextDelay, nil
}

// Compile-time interface assertion
var _ scheduler.Attempter = (*Runner)(nil)
