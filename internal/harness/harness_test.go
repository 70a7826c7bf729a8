package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/selgraph/internal/journal"
)

func intp(n int) *int { return &n }

func TestRun_CounterChain(t *testing.T) {
	scenario := &Scenario{
		Name:          "chain",
		Subscriptions: []string{"doubled", "isEven"},
		Steps: []Step{
			{Dispatch: "counter/increment"},
			{Dispatch: "counter/increment"},
		},
		Assertions: []Assertion{
			{Type: AssertNotified, Node: "doubled", Values: []any{0, 2, 4}},
			{Type: AssertNotifyCount, Node: "isEven", Count: intp(1)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	assert.Equal(t, "test-session-default", result.Session)
	assert.Equal(t, int64(3), result.Tick)
	assert.Equal(t, int64(2), result.Seq)
	assert.Equal(t, []TraceEvent{
		{Tick: 1, Node: "doubled", Kind: KindNext, Value: int64(0)},
		{Tick: 1, Node: "isEven", Kind: KindNext, Value: true},
		{Tick: 2, Node: "doubled", Kind: KindNext, Value: int64(2)},
		{Tick: 3, Node: "doubled", Kind: KindNext, Value: int64(4)},
	}, result.Trace)
	assert.Equal(t, map[string]any{
		"counter": int64(2),
		"primes":  []any{int64(2)},
		"doubled": int64(4),
		"isEven":  true,
	}, result.Final)
}

func TestRun_InitialValue(t *testing.T) {
	result, err := Run(&Scenario{
		Name:          "initial",
		Initial:       12,
		Subscriptions: []string{"primes"},
	})
	require.NoError(t, err)
	assert.True(t, result.Pass)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, []any{int64(2), int64(2), int64(3)}, result.Trace[0].Value)
	assert.Equal(t, int64(1), result.Tick)
	assert.Equal(t, int64(0), result.Seq)
}

func TestRun_FailedAssertions(t *testing.T) {
	scenario := &Scenario{
		Name:          "failing",
		Subscriptions: []string{"counter"},
		Steps:         []Step{{Dispatch: "counter/increment"}},
		Assertions: []Assertion{
			{Type: AssertNotified, Node: "counter", Values: []any{0, 2}},
			{Type: AssertNotNotified, Node: "counter", Tick: 2},
			{Type: AssertFinalTick, Tick: 9},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Assertion failed: notified (counter)")
	assert.Contains(t, result.Errors[1], "Assertion failed: not_notified (counter)")
	assert.Contains(t, result.Errors[2], "Expected: tick 9")
}

func TestRun_StepErrors(t *testing.T) {
	scenario := &Scenario{
		Name: "step_errors",
		Steps: []Step{
			{Dispatch: "counter/explode"},
			{Unsubscribe: "counter"},
			{Dispatch: "counter/increment", Error: "boom"},
			{Release: "primes", Error: "released"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "step 0 (dispatch counter/explode): unexpected error")
	assert.Contains(t, result.Errors[1], `node "counter" is not subscribed`)
	assert.Contains(t, result.Errors[2], `expected error containing "boom", got none`)
	assert.Contains(t, result.Errors[3], `expected error containing "released", got none`)
}

func TestRun_ReleaseDropsNodeFromFinal(t *testing.T) {
	result, err := Run(&Scenario{
		Name: "release",
		Steps: []Step{
			{Release: "isEven"},
			{Dispatch: "counter/increment"},
		},
		Assertions: []Assertion{
			{Type: AssertFinalValue, Node: "isEven", Value: true},
		},
	})
	require.NoError(t, err)

	assert.NotContains(t, result.Final, "isEven")
	assert.Contains(t, result.Final, "doubled")
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "node was released")
}

func TestRun_SubscriptionKeepsReleasedNodeAlive(t *testing.T) {
	result, err := Run(&Scenario{
		Name:          "keepalive",
		Subscriptions: []string{"doubled"},
		Steps: []Step{
			{Release: "doubled"},
			{Dispatch: "counter/increment"},
			{Unsubscribe: "doubled"},
			{Dispatch: "counter/increment"},
		},
		Assertions: []Assertion{
			{Type: AssertNotified, Node: "doubled", Values: []any{0, 2}},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_InvalidScenario(t *testing.T) {
	_, err := Run(&Scenario{Name: "x", Subscriptions: []string{"tripled"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scenario")
}

func TestRun_WithJournal(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	scenario := &Scenario{
		Name:    "journaled",
		Session: "session-journaled",
		Steps: []Step{
			{Dispatch: "counter/set", Args: map[string]any{"value": 4}},
			{Dispatch: "counter/decrement"},
		},
	}

	_, err = Run(scenario, WithJournal(j))
	require.NoError(t, err)

	ctx := context.Background()
	entries, err := j.ReadSession(ctx, "session-journaled")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "counter/set", entries[0].Kind)
	assert.Equal(t, "counter/decrement", entries[1].Kind)
	assert.Equal(t, int64(2), entries[0].Tick)
	assert.Equal(t, int64(3), entries[1].Tick)

	sessions, err := j.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "journaled", sessions[0].Label)

	// Entry ids depend only on session, action and seq, so running the
	// scenario again appends nothing.
	_, err = Run(scenario, WithJournal(j))
	require.NoError(t, err)
	entries, err = j.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
