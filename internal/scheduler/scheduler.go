package scheduler

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caeruleus1F/systemjumps/internal/domain"
	"github.com/caeruleus1F/systemjumps/internal/metrics"
)

const defaultRetryInterval = time.Minute

// Attempter runs one fetch-and-ingest cycle. On success it returns the delay
// the source advertises before new data is expected.
type Attempter interface {
	Attempt(ctx context.Context) (time.Duration, error)
}

type Config struct {
	// RetryInterval is armed after a failed attempt and whenever a successful
	// attempt reports a non-positive delay.
	RetryInterval time.Duration
}

// Scheduler drives a single attempt at a time off one timer.
//
// The timer is only re-armed after the running attempt has returned and the
// next delay is known, so attempts never overlap.
type Scheduler struct {
	config    Config
	attempter Attempter
	metrics   metrics.Sink
	clock     func() time.Time

	busy    atomic.Bool
	trigger chan struct{}

	mu    sync.Mutex
	state domain.ScheduleState
}

func New(config Config, attempter Attempter) *Scheduler {
	if config.RetryInterval <= 0 {
		config.RetryInterval = defaultRetryInterval
	}
	return &Scheduler{
		config:    config,
		attempter: attempter,
		metrics:   metrics.NewNoopSink(),
		clock:     time.Now,
		trigger:   make(chan struct{}, 1),
		state:     domain.ScheduleState{LastOutcome: domain.OutcomeNone},
	}
}

// WithMetrics attaches a metrics sink to the scheduler.
func (s *Scheduler) WithMetrics(sink metrics.Sink) *Scheduler {
	s.metrics = sink
	return s
}

// NextDelay is the delay policy: a successful attempt waits for the advertised
// delay, anything else waits exactly retry.
func NextDelay(outcome domain.Outcome, hint, retry time.Duration) time.Duration {
	if outcome != domain.OutcomeSuccess || hint <= 0 {
		return retry
	}
	return hint
}

// State returns a copy of the current schedule state.
func (s *Scheduler) State() domain.ScheduleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Busy reports whether an attempt is in flight.
func (s *Scheduler) Busy() bool {
	return s.busy.Load()
}

// Trigger requests an attempt ahead of the timer. It returns false when an
// attempt is already running or another trigger is pending.
func (s *Scheduler) Trigger() bool {
	if s.busy.Load() {
		return false
	}
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run fires the first attempt immediately and keeps going until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	log.Printf("scheduler: started, retry=%s", s.config.RetryInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: stopped")
			return ctx.Err()
		case <-timer.C:
		case <-s.trigger:
			timer.Stop()
		}

		delay := s.runAttempt(ctx)

		if ctx.Err() != nil {
			log.Println("scheduler: stopped")
			return ctx.Err()
		}
		timer.Reset(delay)
	}
}

func (s *Scheduler) runAttempt(ctx context.Context) time.Duration {
	s.busy.Store(true)
	defer func() {
		// Triggers that raced with this attempt are absorbed by it.
		select {
		case <-s.trigger:
		default:
		}
		s.busy.Store(false)
	}()

	s.metrics.AttemptStarted()
	start := s.clock()

	hint, err := s.safeAttempt(ctx)

	s.metrics.AttemptCompleted(s.clock().Sub(start), err)

	outcome := domain.OutcomeSuccess
	if err != nil {
		outcome = domain.OutcomeFailure
		log.Printf("scheduler: attempt failed: %v", err)
	}

	delay := NextDelay(outcome, hint, s.config.RetryInterval)
	if outcome == domain.OutcomeSuccess && hint <= 0 {
		log.Printf("scheduler: non-positive delay %s from source, using retry interval", hint)
	}

	next := s.clock().UTC().Add(delay)
	s.mu.Lock()
	s.state = domain.ScheduleState{LastOutcome: outcome, NextAttemptAt: next}
	s.mu.Unlock()

	s.metrics.NextDelaySet(delay)
	log.Printf("scheduler: next attempt at %s (in %s)", next.Format(time.RFC3339), delay.Round(time.Second))
	return delay
}

// safeAttempt turns a panicking attempt into a failure so the loop keeps running.
func (s *Scheduler) safeAttempt(ctx context.Context) (hint time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduler: attempt panicked: %v\n%s", r, debug.Stack())
			hint, err = 0, fmt.Errorf("attempt panicked: %v", r)
		}
	}()
	return s.attempter.Attempt(ctx)
}
