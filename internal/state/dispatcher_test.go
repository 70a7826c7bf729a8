package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardingDispatcher_Forwards(t *testing.T) {
	logger, buf := bufferLogger()
	s := NewStore(&tally{}, tallyReducer())
	g := NewGuardingDispatcher(s, logger)

	require.NoError(t, g.Dispatch(add{By: 2}))

	assert.Equal(t, 2, s.Current().Count)
	assert.Contains(t, buf.String(), "kind=tally/add")
}

func TestGuardingDispatcher_NilAction(t *testing.T) {
	logger, buf := bufferLogger()
	rec := &RecordingDispatcher{}
	g := NewGuardingDispatcher(rec, logger)

	assert.ErrorIs(t, g.Dispatch(nil), ErrNilAction)
	assert.Empty(t, rec.Recorded())
	assert.Contains(t, buf.String(), "trying to dispatch nil action")
}

func TestGuardingDispatcher_PreventsReentrantDispatch(t *testing.T) {
	logger, buf := bufferLogger()
	s := NewStore(&tally{}, tallyReducer())
	g := NewGuardingDispatcher(s, logger)

	var nested error
	l := &listener{onChange: func(next *tally) {
		if next.Count == 1 {
			nested = g.Dispatch(add{By: 10})
		}
	}}
	s.Subscribe(l)

	require.NoError(t, g.Dispatch(add{By: 1}))

	assert.ErrorIs(t, nested, ErrReentrantDispatch)
	assert.Equal(t, 1, s.Current().Count)
	assert.Contains(t, buf.String(), "preventing recursive dispatch")

	// The guard is released afterwards.
	require.NoError(t, g.Dispatch(add{By: 1}))
	assert.Equal(t, 2, s.Current().Count)
}

func TestGuardingDispatcher_GuardReleasedOnError(t *testing.T) {
	s := NewStore(&tally{}, tallyReducer())
	g := NewGuardingDispatcher(s, nil)

	assert.ErrorIs(t, g.Dispatch(unknown{}), ErrUnknownAction)
	assert.NoError(t, g.Dispatch(add{By: 1}))
}

func TestGuardingDispatcher_Ignore(t *testing.T) {
	logger, buf := bufferLogger()
	rec := &RecordingDispatcher{}
	g := NewGuardingDispatcher(rec, logger)
	g.Ignore("tally/noop")

	require.NoError(t, g.Dispatch(noop{}))
	require.NoError(t, g.Dispatch(rename{Label: "x"}))

	assert.NotContains(t, buf.String(), "kind=tally/noop")
	assert.Contains(t, buf.String(), "kind=tally/rename")
	assert.Equal(t, []Action{noop{}, rename{Label: "x"}}, rec.Recorded(), "ignored kinds are still dispatched")
}

func TestNullDispatcher(t *testing.T) {
	var d Dispatcher = NullDispatcher{}
	assert.NoError(t, d.Dispatch(add{By: 1}))
}

func TestDispatchFunc(t *testing.T) {
	var got []string
	d := DispatchFunc(func(a Action) error {
		got = append(got, a.ActionType())
		return nil
	})

	require.NoError(t, d.Dispatch(noop{}))
	assert.Equal(t, []string{"tally/noop"}, got)
}

func TestRecordingDispatcher_ReturnsCopy(t *testing.T) {
	rec := &RecordingDispatcher{}
	require.NoError(t, rec.Dispatch(noop{}))

	recorded := rec.Recorded()
	recorded[0] = add{}

	assert.Equal(t, []Action{noop{}}, rec.Recorded())
}
