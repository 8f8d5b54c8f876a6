// Package progress tracks the coarse-grained lifecycle of one import and
// reconciliation run. The tracker is the only writer of run state; the
// coordinator and orchestrator request transitions and observers subscribe
// to snapshots.
package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/backend/internal/domain/shared"
)

// State is the externally visible phase of a run. StatePolling means "work is
// outstanding against the tracking provider", not a literal poll loop.
type State string

const (
	StateIdle     State = "idle"
	StateCreating State = "creating"
	StatePolling  State = "polling"
	StateSaving   State = "saving"
	StateError    State = "error"
	StateDone     State = "done"
)

// IsTerminal reports whether a run in this state has finished
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateError
}

// allowedTransitions encodes the run lifecycle. StateError is reachable from
// every state and therefore not listed here.
var allowedTransitions = map[State][]State{
	StateIdle:     {StateCreating},
	StateCreating: {StatePolling},
	StatePolling:  {StateSaving, StateDone},
	StateSaving:   {StateDone},
	StateError:    {StateIdle},
	StateDone:     {StateIdle},
}

// Snapshot is an immutable view of the tracker handed to observers
type Snapshot struct {
	RunID     uuid.UUID `json:"run_id"`
	State     State     `json:"state"`
	Progress  int       `json:"progress"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker owns the progress state of the single active run. A transition
// request that the lifecycle does not allow is rejected, never silently
// applied.
type Tracker struct {
	mu        sync.RWMutex
	runID     uuid.UUID
	state     State
	completed int
	total     int
	percent   int
	updatedAt time.Time
	subs      map[int]chan Snapshot
	nextSubID int
}

// NewTracker creates a tracker in the idle state
func NewTracker() *Tracker {
	return &Tracker{
		state:     StateIdle,
		updatedAt: time.Now(),
		subs:      make(map[int]chan Snapshot),
	}
}

// Begin starts a new run. A previous run in a terminal state is implicitly
// acknowledged; Begin is rejected only while a run is still in flight.
func (t *Tracker) Begin(runID uuid.UUID, totalOrders int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateIdle && !t.state.IsTerminal() {
		return shared.ErrRunActive
	}

	t.runID = runID
	t.state = StateCreating
	t.completed = 0
	t.total = totalOrders
	t.percent = 0
	t.updatedAt = time.Now()
	t.publishLocked()
	return nil
}

// Transition requests a lifecycle transition for the active run
func (t *Tracker) Transition(to State) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transitionLocked(to)
}

func (t *Tracker) transitionLocked(to State) error {
	if to == StateError {
		t.state = StateError
		t.updatedAt = time.Now()
		t.publishLocked()
		return nil
	}
	for _, next := range allowedTransitions[t.state] {
		if next == to {
			t.state = to
			if to == StateDone {
				t.percent = 100
			}
			t.updatedAt = time.Now()
			t.publishLocked()
			return nil
		}
	}
	return shared.NewDomainError("INVALID_TRANSITION",
		fmt.Sprintf("cannot transition from %s to %s", t.state, to))
}

// Fail forces the run into the error state. Allowed from any state.
func (t *Tracker) Fail() {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.transitionLocked(StateError)
}

// Complete finishes the run normally
func (t *Tracker) Complete() error {
	return t.Transition(StateDone)
}

// Reset acknowledges a finished run and returns the tracker to idle
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateIdle {
		return nil
	}
	if !t.state.IsTerminal() {
		return shared.NewDomainError("RUN_ACTIVE", "cannot reset while a run is in progress")
	}
	t.state = StateIdle
	t.runID = uuid.Nil
	t.completed = 0
	t.total = 0
	t.percent = 0
	t.updatedAt = time.Now()
	t.publishLocked()
	return nil
}

// RecordCompleted advances the completed-order counter and recomputes the
// percentage. The percentage never decreases within a run.
func (t *Tracker) RecordCompleted() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.completed++
	if t.total > 0 {
		if p := 100 * t.completed / t.total; p > t.percent {
			t.percent = p
		}
	}
	t.updatedAt = time.Now()
	t.publishLocked()
}

// Snapshot returns the current state. By convention progress reads 0 in idle
// and 100 in done; in error it keeps the last computed value.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	percent := t.percent
	switch t.state {
	case StateIdle:
		percent = 0
	case StateDone:
		percent = 100
	}
	return Snapshot{
		RunID:     t.runID,
		State:     t.state,
		Progress:  percent,
		UpdatedAt: t.updatedAt,
	}
}

// State returns the current lifecycle state
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Subscribe registers an observer. The returned cancel function must be
// called to release the subscription. Slow observers miss intermediate
// snapshots rather than blocking transitions.
func (t *Tracker) Subscribe() (<-chan Snapshot, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextSubID
	t.nextSubID++
	ch := make(chan Snapshot, 16)
	t.subs[id] = ch

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if sub, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// publishLocked fans the current snapshot out to subscribers. Callers must
// hold t.mu.
func (t *Tracker) publishLocked() {
	percent := t.percent
	switch t.state {
	case StateIdle:
		percent = 0
	case StateDone:
		percent = 100
	}
	snap := Snapshot{
		RunID:     t.runID,
		State:     t.state,
		Progress:  percent,
		UpdatedAt: t.updatedAt,
	}
	for _, ch := range t.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
