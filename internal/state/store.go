package state

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Listener receives a store's transitions. *selector.Graph implements it.
type Listener[S any] interface {
	OnExternalChange(next S)
	OnError(err error)
	OnCompleted()
}

// StoreOption configures a Store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	logger *slog.Logger
}

// WithStoreLogger sets the store's logger. Defaults to slog.Default().
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(c *storeConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Store holds a snapshot and replaces it by reducing dispatched actions.
// Snapshots are compared with ==, so pointer snapshots make every reducer
// result that allocates a new value a transition.
type Store[S comparable] struct {
	reducer *Reducer[S]
	logger  *slog.Logger

	mu        sync.RWMutex
	current   S
	listeners []*listenerEntry[S]
	closed    bool
}

type listenerEntry[S any] struct {
	l Listener[S]
}

// NewStore creates a store with an initial snapshot.
func NewStore[S comparable](initial S, reducer *Reducer[S], opts ...StoreOption) *Store[S] {
	cfg := storeConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Store[S]{
		reducer: reducer,
		logger:  cfg.logger,
		current: initial,
	}
}

// Current returns the latest snapshot. It implements selector.Source.
func (s *Store[S]) Current() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Dispatch reduces a into the current snapshot and notifies listeners when
// the snapshot changed. Unknown kinds leave the state as it was and return
// ErrUnknownAction.
func (s *Store[S]) Dispatch(a Action) error {
	if a == nil {
		return ErrNilAction
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	next, handled := s.reducer.Reduce(s.current, a)
	changed := handled && next != s.current
	if changed {
		s.current = next
	}
	listeners := s.listeners
	s.mu.Unlock()

	if !handled {
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.ActionType())
	}
	if !changed {
		s.logger.Debug("action left state unchanged", "kind", a.ActionType())
		return nil
	}

	for _, e := range listeners {
		e.l.OnExternalChange(next)
	}
	return nil
}

// Subscribe registers l and returns a function that removes it. The
// returned function is idempotent.
func (s *Store[S]) Subscribe(l Listener[S]) func() {
	e := &listenerEntry[S]{l: l}

	s.mu.Lock()
	s.listeners = append(slices.Clip(s.listeners), e)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if i := slices.Index(s.listeners, e); i >= 0 {
				s.listeners = append(append(slices.Grow([]*listenerEntry[S](nil), len(s.listeners)-1), s.listeners[:i]...), s.listeners[i+1:]...)
			}
		})
	}
}

// Fail forwards a terminal error to listeners and closes the store.
func (s *Store[S]) Fail(err error) {
	listeners, ok := s.terminate()
	if !ok {
		return
	}
	s.logger.Error("store failed", "error", err)
	for _, e := range listeners {
		e.l.OnError(err)
	}
}

// Close signals completion to listeners. Further dispatches fail with
// ErrStoreClosed. Closing twice is a no-op.
func (s *Store[S]) Close() {
	listeners, ok := s.terminate()
	if !ok {
		return
	}
	for _, e := range listeners {
		e.l.OnCompleted()
	}
}

func (s *Store[S]) terminate() ([]*listenerEntry[S], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	s.closed = true
	return s.listeners, true
}
