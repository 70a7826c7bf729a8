package selector

// Observer is a three-channel sink for a node's values.
//
// OnNext fires once at subscription with the then-current value, and then
// at most once per tick in which the node's own value changed. OnError and
// OnCompleted are terminal signals forwarded from the state source.
type Observer[T any] interface {
	OnNext(value T)
	OnError(err error)
	OnCompleted()
}

// Funcs adapts plain functions to Observer. Nil fields are ignored.
type Funcs[T any] struct {
	Next      func(T)
	Error     func(error)
	Completed func()
}

// OnNext implements Observer.
func (f Funcs[T]) OnNext(value T) {
	if f.Next != nil {
		f.Next(value)
	}
}

// OnError implements Observer.
func (f Funcs[T]) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// OnCompleted implements Observer.
func (f Funcs[T]) OnCompleted() {
	if f.Completed != nil {
		f.Completed()
	}
}

// NextFunc returns an observer that only handles values.
func NextFunc[T any](fn func(T)) Observer[T] {
	return Funcs[T]{Next: fn}
}

// Subscription is the handle returned by Node.Subscribe. It keeps the node
// alive until Unsubscribe is called.
type Subscription struct {
	detach func()
	done   bool
}

// Unsubscribe removes the observer from the node and drops the
// subscription's reference. Calling it more than once is a no-op, and it is
// safe to call from inside a delivery callback.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.done {
		return
	}
	s.done = true
	s.detach()
}

// Active reports whether Unsubscribe has not been called yet.
func (s *Subscription) Active() bool {
	return s != nil && !s.done
}
