package session

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// InternalErrorNotice is the only text shown to the user for an InternalError.
const InternalErrorNotice = "An error occurred. We apologize for the inconvenience"

// Notifier shows a short message to the user (an alert, a printed line).
type Notifier func(msg string)

// Store owns the current session State.
type Store struct {
	// deliverMu serializes whole dispatches so subscribers observe states
	// in the order they were reduced.
	deliverMu   sync.Mutex
	mu          sync.Mutex
	state       State
	logger      logging.Logger
	notify      Notifier
	subscribers []func(State)
}

// NewStore creates a store in the Loading state. notify may be nil.
func NewStore(logger logging.Logger, notify Notifier) *Store {
	if notify == nil {
		notify = func(string) {}
	}
	return &Store{state: Initial(), logger: logger, notify: notify}
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to be called with every new state, in dispatch
// order. fn may read State but must not dispatch.
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Dispatch applies a and returns the resulting state.
func (s *Store) Dispatch(ctx context.Context, a Action) State {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	next := Reduce(s.state, a)
	s.state = next
	subs := append([]func(State){}, s.subscribers...)
	s.mu.Unlock()

	s.logger.Debug(ctx, "session transition", "action", a.Name(), "phase", next.Phase())

	switch a := a.(type) {
	case InternalError:
		s.logger.Error(ctx, "internal error", "error", a.Cause)
		s.notify(InternalErrorNotice)
	case SignUpError:
		if a.Cause != nil {
			s.logger.Warn(ctx, "sign up failed", "error", a.Cause)
		}
	}

	for _, fn := range subs {
		fn(next.clone())
	}
	return next.clone()
}
