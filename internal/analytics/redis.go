// Package analytics records a summary of every ingested pull in Redis.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caeruleus1F/systemjumps/internal/circuitbreaker"
	"github.com/caeruleus1F/systemjumps/internal/domain"
	"github.com/caeruleus1F/systemjumps/internal/metrics"
)

const (
	defaultBreakerThreshold = 3
	defaultBreakerCooldown  = 5 * time.Minute
)

type RedisSink struct {
	client  redis.Cmdable
	config  domain.HistoryConfig
	breaker *circuitbreaker.Breaker
	metrics metrics.Sink
}

func NewRedisSink(client redis.Cmdable, config domain.HistoryConfig) *RedisSink {
	return &RedisSink{
		client:  client,
		config:  config,
		breaker: circuitbreaker.New(defaultBreakerThreshold, defaultBreakerCooldown),
		metrics: metrics.NewNoopSink(),
	}
}

// WithMetrics attaches a metrics sink.
func (s *RedisSink) WithMetrics(sink metrics.Sink) *RedisSink {
	s.metrics = sink
	return s
}

// WithBreaker replaces the default breaker (3 failures, 5m cooldown).
func (s *RedisSink) WithBreaker(b *circuitbreaker.Breaker) *RedisSink {
	s.breaker = b
	return s
}

// Record stores the pull summary under pull:<table>:<label> and bumps the
// monthly pull counter. While the breaker is open the pull is dropped and
// circuitbreaker.ErrOpen is returned.
func (s *RedisSink) Record(ctx context.Context, table string, pull domain.PullResult, written int) error {
	if !s.config.Enabled {
		return nil
	}
	if err := s.breaker.Allow(); err != nil {
		s.metrics.HistorySkipped("breaker_open")
		return err
	}

	key := pullKey(table, pull.Label())
	counter := counterKey(table, pull.DataTime)

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key,
		"entities", len(pull.Entities),
		"total", pull.Total(),
		"rows_written", written,
		"cached_until", pull.CachedUntil.UTC().Format(time.RFC3339),
	)
	if s.config.Retention > 0 {
		pipe.Expire(ctx, key, s.config.Retention)
	}
	pipe.Incr(ctx, counter)

	if _, err := pipe.Exec(ctx); err != nil {
		s.breaker.RecordFailure()
		s.metrics.HistorySkipped("error")
		if s.breaker.State() == circuitbreaker.StateOpen {
			log.Printf("analytics: redis failing, history writes paused: %v", err)
		}
		return fmt.Errorf("redis pipeline: %w", err)
	}

	s.breaker.RecordSuccess()
	s.metrics.HistoryRecorded()
	return nil
}

// IsSkipped reports whether err means the pull was dropped without a Redis call.
func IsSkipped(err error) bool {
	return errors.Is(err, circuitbreaker.ErrOpen)
}

func pullKey(table, label string) string {
	return fmt.Sprintf("pull:%s:%s", table, label)
}

func counterKey(table string, t time.Time) string {
	return fmt.Sprintf("pulls:%s:%s", table, t.UTC().Format("200601"))
}
