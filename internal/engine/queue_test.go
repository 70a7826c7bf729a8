package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/selgraph/internal/counter"
)

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	require.True(t, q.Enqueue(event{typ: eventDispatch, action: counter.Increment{}}))
	require.True(t, q.Enqueue(event{typ: eventDispatch, action: counter.Set{Value: 2}}))
	require.True(t, q.Enqueue(event{typ: eventDispatch, action: counter.Reset{}}))
	assert.Equal(t, 3, q.Len())

	var kinds []string
	for {
		e, ok := q.TryDequeue()
		if !ok {
			break
		}
		kinds = append(kinds, e.action.ActionType())
	}

	assert.Equal(t, []string{"counter/increment", "counter/set", "counter/reset"}, kinds)
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_TryDequeue_Empty(t *testing.T) {
	q := newEventQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestEventQueue_SignalCoalesces(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(event{typ: eventDispatch})
	q.Enqueue(event{typ: eventDispatch})

	<-q.Wait()
	select {
	case <-q.Wait():
		t.Fatal("expected a single coalesced signal")
	default:
	}
}

func TestEventQueue_Close(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(event{typ: eventDispatch})

	q.Close()
	q.Close()

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(event{typ: eventDispatch}), "closed queue rejects events")

	// Pending events are still available, and Wait no longer blocks.
	_, ok := q.TryDequeue()
	assert.True(t, ok)
	<-q.Wait()
}

func TestEventQueue_ConcurrentEnqueue(t *testing.T) {
	q := newEventQueue()
	const goroutines = 20
	const perGoroutine = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				q.Enqueue(event{typ: eventDispatch})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*perGoroutine, q.Len())
}
