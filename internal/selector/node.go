package selector

import (
	"slices"
)

// Dependency is the type-erased view of a node used as an input to other
// nodes. Only *Node values implement it.
type Dependency interface {
	// Synchronize brings the node up to date with the current tick.
	Synchronize()

	// LastChanged is the tick at which the node's value last changed.
	LastChanged() Tick

	// Name identifies the node in logs and metrics.
	Name() string

	owner() *core
	retain()
	releaseRef()
	isReleased() bool
}

// Node is a memoized computation over a snapshot and/or other nodes.
//
// A Node is not safe for concurrent use; see the package documentation.
type Node[T any] struct {
	core     *core
	name     string
	handle   Handle
	deps     []Dependency
	producer func() T
	equal    func(a, b T) bool

	current          T
	lastChanged      Tick
	lastSynchronized Tick

	// observers is replaced on every change, never mutated in place, so a
	// delivery loop ranging over an older slice is unaffected.
	observers []*observerEntry[T]

	refs      int
	reclaimed bool
}

type observerEntry[T any] struct {
	sink          Observer[T]
	lastDelivered Tick
}

// Name returns the node's name.
func (n *Node[T]) Name() string {
	return n.name
}

// Handle returns the node's arena handle.
func (n *Node[T]) Handle() Handle {
	return n.handle
}

// Current returns the cached value without synchronizing.
func (n *Node[T]) Current() T {
	return n.current
}

// Value synchronizes the node and returns its value for the current tick.
func (n *Node[T]) Value() T {
	n.Synchronize()
	return n.current
}

// LastChanged returns the tick at which the value last changed, or 0.
func (n *Node[T]) LastChanged() Tick {
	return n.lastChanged
}

// LastSynchronized returns the tick of the last synchronization, or 0.
func (n *Node[T]) LastSynchronized() Tick {
	return n.lastSynchronized
}

// Observers returns the number of registered observers.
func (n *Node[T]) Observers() int {
	return len(n.observers)
}

// Synchronize pulls the node up to date. It is idempotent per tick and runs
// the producer at most once per tick.
func (n *Node[T]) Synchronize() {
	if n.reclaimed {
		return
	}

	now := n.core.clock.Now()
	if n.lastSynchronized == now {
		return
	}

	// Dependency freshness precedes our own evaluation.
	for _, dep := range n.deps {
		dep.Synchronize()
	}

	if n.needsRecompute() {
		next := n.producer()
		changed := !n.equal(next, n.current)
		if changed {
			n.lastChanged = now
			n.current = next
		}
		if n.core.hooks.OnRecompute != nil {
			n.core.hooks.OnRecompute(n.name, changed)
		}
	}

	n.lastSynchronized = now
}

func (n *Node[T]) needsRecompute() bool {
	if len(n.deps) == 0 || n.lastSynchronized == 0 {
		return true
	}
	for _, dep := range n.deps {
		if dep.LastChanged() > n.lastSynchronized {
			return true
		}
	}
	return false
}

// Subscribe registers obs and delivers the current value to it once,
// synchronously. The returned subscription keeps the node alive.
func (n *Node[T]) Subscribe(obs Observer[T]) (*Subscription, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	if n.isReleased() {
		return nil, ErrNodeReleased
	}

	n.core.subscribed(n)
	n.Synchronize()

	// Every existing observer is already up to date, so only this one
	// needs the value.
	e := &observerEntry[T]{sink: obs, lastDelivered: n.core.clock.Now()}
	n.observers = append(slices.Clip(n.observers), e)
	n.refs++

	value := n.current
	n.deliver(func() { obs.OnNext(value) })

	return &Subscription{detach: func() {
		n.removeObserver(e)
		n.releaseRef()
	}}, nil
}

func (n *Node[T]) removeObserver(e *observerEntry[T]) {
	i := slices.Index(n.observers, e)
	if i < 0 {
		return
	}
	n.observers = append(append(slices.Grow([]*observerEntry[T](nil), len(n.observers)-1), n.observers[:i]...), n.observers[i+1:]...)
}

// ForwardIfNeeded pushes the current value to observers that have not seen
// this tick, but only when the node's own value changed on this tick.
func (n *Node[T]) ForwardIfNeeded() {
	now := n.core.clock.Now()
	observers := n.observers

	first := slices.IndexFunc(observers, func(e *observerEntry[T]) bool {
		return e.lastDelivered < now
	})
	if first < 0 {
		return
	}

	n.Synchronize()

	// Ancestors may have changed while our own output did not.
	if n.lastChanged < now {
		return
	}

	delivered := 0
	for _, e := range observers[first:] {
		if e.lastDelivered >= now {
			continue
		}
		e.lastDelivered = now
		value := n.current
		sink := e.sink
		n.deliver(func() { sink.OnNext(value) })
		delivered++
	}

	if n.core.hooks.OnNotify != nil {
		n.core.hooks.OnNotify(n.name, delivered)
	}
}

// ForwardError delivers err to every registered observer.
func (n *Node[T]) ForwardError(err error) {
	for _, e := range n.observers {
		sink := e.sink
		n.deliver(func() { sink.OnError(err) })
	}
}

// ForwardCompleted delivers completion to every registered observer.
func (n *Node[T]) ForwardCompleted() {
	for _, e := range n.observers {
		sink := e.sink
		n.deliver(func() { sink.OnCompleted() })
	}
}

// deliver runs one observer callback, containing any panic it raises.
func (n *Node[T]) deliver(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			n.core.logger.Warn("observer panicked",
				"node", n.name,
				"panic", r,
			)
			if n.core.hooks.OnObserverPanic != nil {
				n.core.hooks.OnObserverPanic(n.name, r)
			}
		}
	}()
	fn()
}

// Retain adds a reference. Each Retain must be paired with a Release.
// Retaining a released node has no effect: it cannot be resurrected.
func (n *Node[T]) Retain() {
	n.retain()
}

// Release drops a reference held by the caller (the one returned by the
// Create family, or one added with Retain). When no references remain the
// node is reclaimed by the next propagation pass.
func (n *Node[T]) Release() {
	n.releaseRef()
}

func (n *Node[T]) owner() *core {
	if n == nil {
		return nil
	}
	return n.core
}

func (n *Node[T]) retain() {
	if n.refs > 0 {
		n.refs++
	}
}

func (n *Node[T]) releaseRef() {
	if n.refs == 0 {
		return
	}
	n.refs--
	if n.refs == 0 {
		n.core.logger.Debug("node released", "node", n.name, "handle", n.handle)
	}
}

func (n *Node[T]) isReleased() bool {
	return n.refs == 0
}

func (n *Node[T]) forwardIfNeeded()       { n.ForwardIfNeeded() }
func (n *Node[T]) forwardError(err error) { n.ForwardError(err) }
func (n *Node[T]) forwardCompleted()      { n.ForwardCompleted() }

// reclaim is called once, by the registry sweep, after the slot was freed.
func (n *Node[T]) reclaim() {
	n.reclaimed = true
	deps := n.deps
	n.deps = nil
	n.producer = nil
	n.observers = nil
	for _, dep := range deps {
		dep.releaseRef()
	}
}
