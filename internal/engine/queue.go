package engine

import (
	"sync"
	"sync/atomic"

	"github.com/roach88/selgraph/internal/state"
)

type eventType int

const (
	eventDispatch eventType = iota + 1
	eventCall
)

// event is one unit of work for the Run loop: either an action to apply or
// a closure to run on the loop goroutine.
type event struct {
	typ    eventType
	action state.Action
	call   func() error
	done   chan error
	claim  *callClaim
}

const (
	callPending int32 = iota
	callRunning
	callAbandoned
)

// callClaim settles the race between the loop starting a call and its
// caller giving up on it. Exactly one side wins.
type callClaim struct {
	state atomic.Int32
}

// run marks the call as started. It fails if the caller already left.
func (c *callClaim) run() bool {
	return c.state.CompareAndSwap(callPending, callRunning)
}

// abandon marks the call as abandoned. It fails if the loop already
// started it.
func (c *callClaim) abandon() bool {
	return c.state.CompareAndSwap(callPending, callAbandoned)
}

// eventQueue is an unbounded FIFO safe for concurrent enqueuing. The Run
// loop waits on its signal channel so that waiting stays context-aware.
type eventQueue struct {
	mu     sync.Mutex
	events []event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends e. It returns false once the queue is closed.
func (q *eventQueue) Enqueue(e event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Coalesce signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue pops the front event without blocking.
func (q *eventQueue) TryDequeue() (event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return event{}, false
	}

	e := q.events[0]
	// Drop the reference so the backing array does not pin it.
	q.events[0] = event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns the channel signalled on enqueue and closed on Close.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close rejects further events and wakes the loop. Pending events are
// still drained.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Closed reports whether Close was called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
