package domain

import "time"

type Outcome string

const (
	OutcomeNone    Outcome = "none"
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// ScheduleState is owned by the scheduler and updated after every attempt.
type ScheduleState struct {
	LastOutcome   Outcome
	NextAttemptAt time.Time // UTC
}
