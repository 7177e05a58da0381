package orchestrator

import (
	"time"

	"mediastudio/internal/domain"
)

// State is the position of one run in the orchestration state machine.
type State string

const (
	StateIdle               State = "idle"
	StateValidating         State = "validating"
	StateSubmitting         State = "submitting"
	StatePolling            State = "polling"
	StatePersisting         State = "persisting"
	StateDone               State = "done"
	StateFailed             State = "failed"
	StatePersistedPartially State = "persisted_partially"
)

// Final reports whether the run has stopped.
func (s State) Final() bool {
	return s == StateDone || s == StateFailed || s == StatePersistedPartially
}

var transitions = map[State][]State{
	StateIdle:               {StateValidating},
	StateValidating:         {StateSubmitting, StateFailed},
	StateSubmitting:         {StatePolling, StateFailed},
	StatePolling:            {StatePersisting, StateFailed},
	StatePersisting:         {StateDone, StatePersistedPartially},
	StatePersistedPartially: {StatePersisting},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Observer is notified of run progress. Implementations must be safe for
// concurrent use.
type Observer interface {
	OnTransition(kind domain.JobKind, from, to State)
	OnFinish(kind domain.JobKind, state State, elapsed time.Duration)
	OnPersistRetry(kind domain.JobKind)
}

type nopObserver struct{}

func (nopObserver) OnTransition(domain.JobKind, State, State)    {}
func (nopObserver) OnFinish(domain.JobKind, State, time.Duration) {}
func (nopObserver) OnPersistRetry(domain.JobKind)                 {}
