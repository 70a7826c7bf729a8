package selector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/selgraph/internal/testutil"
)

type snapshot struct {
	counter int
}

func TestGraph_StartsAtTickOne(t *testing.T) {
	g := NewGraphAt(&snapshot{})
	assert.Equal(t, Tick(1), g.CurrentTime())
	assert.Equal(t, 0, g.Len())
}

func TestGraph_NewGraph_NilSource(t *testing.T) {
	_, err := NewGraph[*snapshot](nil)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestGraph_NewGraph_PullsInitialSnapshot(t *testing.T) {
	initial := &snapshot{counter: 7}
	g, err := NewGraph[*snapshot](SourceFunc[*snapshot](func() *snapshot { return initial }))
	require.NoError(t, err)

	assert.Same(t, initial, g.Snapshot())
	assert.Equal(t, Tick(1), g.CurrentTime())
}

func TestGraph_OnExternalChange_AdvancesPerDistinctSnapshot(t *testing.T) {
	first := &snapshot{counter: 0}
	g := NewGraphAt(first)

	// Same identity: no transition.
	g.OnExternalChange(first)
	assert.Equal(t, Tick(1), g.CurrentTime())

	// Equal content, different identity: a transition.
	second := &snapshot{counter: 0}
	g.OnExternalChange(second)
	assert.Equal(t, Tick(2), g.CurrentTime())

	g.OnExternalChange(second)
	g.OnExternalChange(second)
	assert.Equal(t, Tick(2), g.CurrentTime())

	g.OnExternalChange(&snapshot{counter: 1})
	assert.Equal(t, Tick(3), g.CurrentTime())
}

func TestGraph_ClockIsMonotonic(t *testing.T) {
	g := NewGraphAt(0)
	last := g.CurrentTime()

	for _, v := range []int{1, 1, 2, 2, 2, 3, 1, 1} {
		g.OnExternalChange(v)
		now := g.CurrentTime()
		assert.GreaterOrEqual(t, now, last)
		assert.LessOrEqual(t, now-last, Tick(1))
		last = now
	}

	// 0 -> 1 -> 2 -> 3 -> 1 are the distinct transitions.
	assert.Equal(t, Tick(5), g.CurrentTime())
}

func TestGraph_OnSubscribe_PullsLatestSnapshot(t *testing.T) {
	current := &snapshot{counter: 1}
	g, err := NewGraph[*snapshot](SourceFunc[*snapshot](func() *snapshot { return current }))
	require.NoError(t, err)

	counter, err := Select(g, func(s *snapshot) int { return s.counter })
	require.NoError(t, err)

	// The source moves on before it notifies the graph.
	current = &snapshot{counter: 5}

	rec := &testutil.Recorder[int]{}
	_, err = counter.Subscribe(rec)
	require.NoError(t, err)

	assert.Equal(t, Tick(2), g.CurrentTime())
	assert.Equal(t, []int{5}, rec.Values())

	// The late notification for the same snapshot is elided.
	g.OnExternalChange(current)
	assert.Equal(t, Tick(2), g.CurrentTime())
	assert.Equal(t, []int{5}, rec.Values())
}

func TestGraph_OnExternalChange_ForwardsTickPulledBySubscribe(t *testing.T) {
	current := &snapshot{counter: 0}
	g, err := NewGraph[*snapshot](SourceFunc[*snapshot](func() *snapshot { return current }))
	require.NoError(t, err)

	x, err := Select(g, func(s *snapshot) int { return s.counter })
	require.NoError(t, err)
	y, err := Select(g, func(s *snapshot) int { return s.counter * 10 })
	require.NoError(t, err)

	recX := &testutil.Recorder[int]{}
	_, err = x.Subscribe(recX)
	require.NoError(t, err)

	// The source moves on; a new subscription to y pulls the snapshot
	// before the source gets to notify the graph.
	current = &snapshot{counter: 1}
	recY := &testutil.Recorder[int]{}
	_, err = y.Subscribe(recY)
	require.NoError(t, err)
	assert.Equal(t, Tick(2), g.CurrentTime())
	assert.Equal(t, []int{0}, recX.Values())

	g.OnExternalChange(current)
	assert.Equal(t, Tick(2), g.CurrentTime())
	assert.Equal(t, []int{0, 1}, recX.Values())
	assert.Equal(t, []int{10}, recY.Values())

	// A repeated notification for the same tick does not push again.
	g.OnExternalChange(current)
	assert.Equal(t, []int{0, 1}, recX.Values())
	assert.Equal(t, []int{10}, recY.Values())
}

func TestGraph_OnError_ForwardsToAllObservers(t *testing.T) {
	g := NewGraphAt(0)
	a, err := Select(g, func(s int) int { return s })
	require.NoError(t, err)
	b, err := Map(g, a, func(v int) int { return v + 1 })
	require.NoError(t, err)

	recA := &testutil.Recorder[int]{}
	recB := &testutil.Recorder[int]{}
	_, err = a.Subscribe(recA)
	require.NoError(t, err)
	_, err = b.Subscribe(recB)
	require.NoError(t, err)

	boom := errors.New("source failed")
	g.OnError(boom)

	assert.Equal(t, []error{boom}, recA.Errors())
	assert.Equal(t, []error{boom}, recB.Errors())
}

func TestGraph_OnCompleted_ForwardsToAllObservers(t *testing.T) {
	g := NewGraphAt(0)
	a, err := Select(g, func(s int) int { return s })
	require.NoError(t, err)

	rec1 := &testutil.Recorder[int]{}
	rec2 := &testutil.Recorder[int]{}
	_, err = a.Subscribe(rec1)
	require.NoError(t, err)
	_, err = a.Subscribe(rec2)
	require.NoError(t, err)

	g.OnCompleted()

	assert.True(t, rec1.Completed())
	assert.True(t, rec2.Completed())
}

func TestGraph_Hooks(t *testing.T) {
	var ticks []Tick
	recomputes := map[string]int{}
	notified := map[string]int{}

	g := NewGraphAt(0, WithHooks(Hooks{
		OnTick:      func(now Tick) { ticks = append(ticks, now) },
		OnRecompute: func(node string, changed bool) { recomputes[node]++ },
		OnNotify:    func(node string, delivered int) { notified[node] += delivered },
	}))

	counter, err := Select(g, func(s int) int { return s }, WithName("counter"))
	require.NoError(t, err)
	_, err = counter.Subscribe(&testutil.Recorder[int]{})
	require.NoError(t, err)

	g.OnExternalChange(1)
	g.OnExternalChange(2)

	assert.Equal(t, []Tick{2, 3}, ticks)
	assert.Equal(t, 3, recomputes["counter"])
	assert.Equal(t, 2, notified["counter"])
}
