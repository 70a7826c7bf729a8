package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/selgraph/internal/testutil"
)

func TestHandle_ZeroAndString(t *testing.T) {
	var h Handle
	assert.True(t, h.IsZero())

	g := NewGraphAt(0)
	n, err := Select(g, func(s int) int { return s })
	require.NoError(t, err)

	assert.False(t, n.Handle().IsZero())
	assert.Equal(t, "0#1", n.Handle().String())
	assert.False(t, g.Alive(h))
}

func TestRegistry_ReleasedNodeReclaimedOnNextPass(t *testing.T) {
	var reclaimed []string
	g := NewGraphAt(0, WithHooks(Hooks{
		OnReclaim: func(node string) { reclaimed = append(reclaimed, node) },
	}))

	n, err := Select(g, func(s int) int { return s }, WithName("temp"))
	require.NoError(t, err)
	require.Equal(t, 1, g.Len())

	n.Release()
	assert.False(t, g.Alive(n.Handle()))
	assert.Equal(t, 1, g.Len(), "reclamation waits for a propagation pass")

	g.OnExternalChange(1)
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, []string{"temp"}, reclaimed)
}

func TestRegistry_IdenticalSnapshotDoesNotSweep(t *testing.T) {
	g := NewGraphAt(0)
	n, err := Select(g, func(s int) int { return s })
	require.NoError(t, err)

	n.Release()
	g.OnExternalChange(0)
	assert.Equal(t, 1, g.Len())
}

func TestRegistry_StaleHandleAfterSlotReuse(t *testing.T) {
	g := NewGraphAt(0)
	a, err := Select(g, func(s int) int { return s })
	require.NoError(t, err)
	b, err := Select(g, func(s int) int { return s + 1 })
	require.NoError(t, err)

	stale := a.Handle()
	a.Release()
	g.OnExternalChange(1)

	c, err := Select(g, func(s int) int { return s + 2 })
	require.NoError(t, err)

	assert.Equal(t, stale.index, c.Handle().index, "free slot is reused")
	assert.NotEqual(t, stale, c.Handle())
	assert.False(t, g.Alive(stale))
	assert.True(t, g.Alive(c.Handle()))
	assert.True(t, g.Alive(b.Handle()))
}

func TestRegistry_StaleHandleAfterTrim(t *testing.T) {
	g := NewGraphAt(0)
	a, err := Select(g, func(s int) int { return s })
	require.NoError(t, err)
	b, err := Select(g, func(s int) int { return s + 1 })
	require.NoError(t, err)

	stale := b.Handle()
	b.Release()
	g.OnExternalChange(1)
	require.Len(t, g.registry.slots, 1, "trailing free slot is trimmed")

	d, err := Select(g, func(s int) int { return s + 3 })
	require.NoError(t, err)

	assert.Equal(t, stale.index, d.Handle().index)
	assert.False(t, g.Alive(stale))
	assert.True(t, g.Alive(d.Handle()))
	assert.True(t, g.Alive(a.Handle()))
}

func TestRegistry_SubscriptionKeepsNodeAlive(t *testing.T) {
	g := NewGraphAt(0)
	n, err := Select(g, func(s int) int { return s })
	require.NoError(t, err)

	rec := &testutil.Recorder[int]{}
	sub, err := n.Subscribe(rec)
	require.NoError(t, err)

	n.Release()
	g.OnExternalChange(1)
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, []int{0, 1}, rec.Values())

	sub.Unsubscribe()
	g.OnExternalChange(2)
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, []int{0, 1}, rec.Values(), "no delivery after unsubscribe")
}

func TestRegistry_DependentKeepsDependencyAlive(t *testing.T) {
	g := NewGraphAt(0)
	a, err := Select(g, func(s int) int { return s })
	require.NoError(t, err)
	b, err := Map(g, a, func(v int) int { return v * 2 })
	require.NoError(t, err)

	a.Release()
	g.OnExternalChange(1)

	assert.True(t, g.Alive(a.Handle()))
	assert.Equal(t, 2, b.Value())
}

func TestRegistry_CascadeAcrossPasses(t *testing.T) {
	g := NewGraphAt(0)
	counter, err := Select(g, func(s int) int { return s })
	require.NoError(t, err)
	doubled, err := Map(g, counter, func(v int) int { return v * 2 })
	require.NoError(t, err)
	isEven, err := Map(g, doubled, func(v int) bool { return v%2 == 0 })
	require.NoError(t, err)

	counter.Release()
	doubled.Release()
	isEven.Release()
	require.Equal(t, 3, g.Len())

	var sizes []int
	for i := 1; i <= 3; i++ {
		g.OnExternalChange(i)
		sizes = append(sizes, g.Len())
	}

	assert.Equal(t, []int{2, 1, 0}, sizes)
	assert.Empty(t, g.registry.slots)
	assert.Empty(t, g.registry.free)
}

func TestRegistry_CascadeWithinOnePass(t *testing.T) {
	g := NewGraphAt(0)
	placeholder, err := Select(g, func(s int) int { return s })
	require.NoError(t, err)
	placeholder.Release()
	g.OnExternalChange(1)

	// Force the dependency into a later slot than its dependent.
	filler, err := Select(g, func(s int) int { return s })
	require.NoError(t, err)
	dep, err := Select(g, func(s int) int { return s })
	require.NoError(t, err)
	filler.Release()
	g.OnExternalChange(2)

	user, err := Map(g, dep, func(v int) int { return v })
	require.NoError(t, err)
	require.Less(t, user.Handle().index, dep.Handle().index)

	dep.Release()
	user.Release()
	g.OnExternalChange(3)

	assert.Equal(t, 0, g.Len())
}

func TestRegistry_ReclaimedNodeIsInert(t *testing.T) {
	g := NewGraphAt(0)
	runs := 0
	n, err := Select(g, func(s int) int {
		runs++
		return s
	})
	require.NoError(t, err)

	n.Release()
	g.OnExternalChange(1)

	n.Synchronize()
	assert.Equal(t, 0, runs)
}
