package testutil

// EventKind distinguishes the three observer channels.
type EventKind string

const (
	KindNext      EventKind = "next"
	KindError     EventKind = "error"
	KindCompleted EventKind = "completed"
)

// Event is one recorded observer callback.
type Event[T any] struct {
	Kind  EventKind
	Value T
	Err   error
}

// Recorder is an observer double that records every callback in order.
//
// It satisfies selector.Observer[T] structurally, so it can be used from the
// selector package's own tests without an import cycle.
//
// Thread-safety: none. Observers are called from a single goroutine.
type Recorder[T any] struct {
	Events []Event[T]

	// Hook, if set, runs after each OnNext is recorded.
	Hook func(T)
}

// OnNext records a value.
func (r *Recorder[T]) OnNext(value T) {
	r.Events = append(r.Events, Event[T]{Kind: KindNext, Value: value})
	if r.Hook != nil {
		r.Hook(value)
	}
}

// OnError records an error.
func (r *Recorder[T]) OnError(err error) {
	r.Events = append(r.Events, Event[T]{Kind: KindError, Err: err})
}

// OnCompleted records completion.
func (r *Recorder[T]) OnCompleted() {
	r.Events = append(r.Events, Event[T]{Kind: KindCompleted})
}

// Values returns the recorded OnNext values in order.
func (r *Recorder[T]) Values() []T {
	values := make([]T, 0, len(r.Events))
	for _, e := range r.Events {
		if e.Kind == KindNext {
			values = append(values, e.Value)
		}
	}
	return values
}

// Count returns the number of recorded OnNext calls.
func (r *Recorder[T]) Count() int {
	return len(r.Values())
}

// Last returns the most recent OnNext value, or the zero value.
func (r *Recorder[T]) Last() T {
	var last T
	for _, e := range r.Events {
		if e.Kind == KindNext {
			last = e.Value
		}
	}
	return last
}

// Errors returns the recorded errors in order.
func (r *Recorder[T]) Errors() []error {
	var errs []error
	for _, e := range r.Events {
		if e.Kind == KindError {
			errs = append(errs, e.Err)
		}
	}
	return errs
}

// Completed reports whether OnCompleted was recorded.
func (r *Recorder[T]) Completed() bool {
	for _, e := range r.Events {
		if e.Kind == KindCompleted {
			return true
		}
	}
	return false
}

// Reset forgets all recorded events.
func (r *Recorder[T]) Reset() {
	r.Events = nil
}
