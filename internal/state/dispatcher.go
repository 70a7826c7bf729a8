package state

import (
	"log/slog"
	"slices"
	"sync"
)

// Dispatcher delivers actions to a store.
type Dispatcher interface {
	Dispatch(a Action) error
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(a Action) error

// Dispatch implements Dispatcher.
func (f DispatchFunc) Dispatch(a Action) error {
	return f(a)
}

// GuardingDispatcher protects the path into a store. It drops nil actions,
// refuses to dispatch while a previous dispatch is still running (for
// example from inside an observer callback), and logs every action whose
// kind is not ignored.
//
// It is not safe for concurrent use; the engine loop is its only caller.
type GuardingDispatcher struct {
	next        Dispatcher
	logger      *slog.Logger
	ignore      map[string]bool
	dispatching bool
}

// NewGuardingDispatcher wraps next. A nil logger means slog.Default().
func NewGuardingDispatcher(next Dispatcher, logger *slog.Logger) *GuardingDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuardingDispatcher{
		next:   next,
		logger: logger,
		ignore: make(map[string]bool),
	}
}

// Ignore stops logging actions of the given kinds. They are still
// dispatched.
func (g *GuardingDispatcher) Ignore(kinds ...string) {
	for _, k := range kinds {
		g.ignore[k] = true
	}
}

// Dispatch implements Dispatcher.
func (g *GuardingDispatcher) Dispatch(a Action) error {
	if a == nil {
		g.logger.Warn("trying to dispatch nil action")
		return ErrNilAction
	}

	if g.dispatching {
		g.logger.Warn("preventing recursive dispatch", "kind", a.ActionType())
		return ErrReentrantDispatch
	}

	g.dispatching = true
	defer func() { g.dispatching = false }()

	if !g.ignore[a.ActionType()] {
		g.logger.Info("action", "kind", a.ActionType(), "action", a)
	}

	return g.next.Dispatch(a)
}

// NullDispatcher discards every action.
type NullDispatcher struct{}

// Dispatch implements Dispatcher.
func (NullDispatcher) Dispatch(Action) error {
	return nil
}

// RecordingDispatcher records actions instead of applying them. It is safe
// for concurrent use.
type RecordingDispatcher struct {
	mu       sync.Mutex
	recorded []Action
}

// Dispatch implements Dispatcher.
func (r *RecordingDispatcher) Dispatch(a Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, a)
	return nil
}

// Recorded returns a copy of the recorded actions in dispatch order.
func (r *RecordingDispatcher) Recorded() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.recorded)
}
