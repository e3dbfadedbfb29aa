package fetcher

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/caeruleus1F/systemjumps/internal/doccache"
	"github.com/caeruleus1F/systemjumps/internal/domain"
	"github.com/caeruleus1F/systemjumps/internal/metrics"
)

type Kind string

const (
	KindNetwork Kind = "network"
	KindParse   Kind = "parse"
)

// Error is returned for any failed fetch. Both kinds are handled the same
// way by the caller; Kind only distinguishes them in logs and metrics.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failure: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Source interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type ParseFunc func(raw []byte) (domain.PullResult, error)

type Cache interface {
	LoadIfValid(margin time.Duration) (domain.PullResult, doccache.Status, error)
	Save(raw []byte) error
}

type Config struct {
	URL          string
	SafetyMargin time.Duration
}

// Result is a successfully obtained pull plus the delay the source advertises
// before new data can be expected.
type Result struct {
	Pull      domain.PullResult
	NextDelay time.Duration
	FromCache bool
}

type Fetcher struct {
	config  Config
	source  Source
	parse   ParseFunc
	cache   Cache
	metrics metrics.Sink
	clock   func() time.Time
}

func New(config Config, source Source, parse ParseFunc, cache Cache) *Fetcher {
	return &Fetcher{
		config:  config,
		source:  source,
		parse:   parse,
		cache:   cache,
		metrics: metrics.NewNoopSink(),
		clock:   time.Now,
	}
}

// WithMetrics attaches a metrics sink to the fetcher.
func (f *Fetcher) WithMetrics(sink metrics.Sink) *Fetcher {
	f.metrics = sink
	return f
}

// WithClock sets a custom clock function for testing.
func (f *Fetcher) WithClock(clock func() time.Time) *Fetcher {
	f.clock = clock
	return f
}

// Fetch returns the cached pull while it is still valid, otherwise it
// downloads, parses and caches a fresh document. The cache is only written
// after the document parsed completely.
func (f *Fetcher) Fetch(ctx context.Context) (Result, error) {
	pull, status, err := f.cache.LoadIfValid(f.config.SafetyMargin)
	if err != nil {
		log.Printf("fetcher: cache unusable, refetching: %v", err)
	}
	f.metrics.CacheLookup(string(status))

	if status == doccache.StatusValid {
		delay := pull.CachedUntil.Add(f.config.SafetyMargin).Sub(f.clock().UTC())
		return Result{Pull: pull, NextDelay: delay, FromCache: true}, nil
	}

	raw, err := f.source.Fetch(ctx, f.config.URL)
	if err != nil {
		f.metrics.FetchFailure(string(KindNetwork))
		return Result{}, &Error{Kind: KindNetwork, Err: err}
	}

	pull, err = f.parse(raw)
	if err != nil {
		f.metrics.FetchFailure(string(KindParse))
		return Result{}, &Error{Kind: KindParse, Err: err}
	}

	if err := f.cache.Save(raw); err != nil {
		log.Printf("fetcher: cache write failed: %v", err)
	}

	return Result{
		Pull:      pull,
		NextDelay: pull.CacheWindow() + f.config.SafetyMargin,
	}, nil
}
