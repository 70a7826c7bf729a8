package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReducer_Reduce(t *testing.T) {
	r := tallyReducer()
	start := &tally{Count: 1}

	next, ok := r.Reduce(start, add{By: 2})
	require.True(t, ok)
	assert.Equal(t, 3, next.Count)
	assert.Equal(t, 1, start.Count, "reducers must not mutate their input")

	next, ok = r.Reduce(next, rename{Label: "x"})
	require.True(t, ok)
	assert.Equal(t, &tally{Count: 3, Label: "x"}, next)
}

func TestReducer_UnknownKindLeavesState(t *testing.T) {
	r := tallyReducer()
	start := &tally{Count: 1}

	next, ok := r.Reduce(start, unknown{})
	assert.False(t, ok)
	assert.Same(t, start, next)
}

func TestReducer_DuplicateCase(t *testing.T) {
	_, err := NewReducer(
		On(func(t *tally, _ add) *tally { return t }),
		On(func(t *tally, _ add) *tally { return t }),
	)
	assert.ErrorIs(t, err, ErrDuplicateCase)

	assert.Panics(t, func() {
		MustReducer(
			On(func(t *tally, _ noop) *tally { return t }),
			On(func(t *tally, _ noop) *tally { return t }),
		)
	})
}

func TestReducer_Kinds(t *testing.T) {
	assert.Equal(t, []string{"tally/add", "tally/noop", "tally/rename"}, tallyReducer().Kinds())
	assert.Equal(t, "tally/add", On(func(t *tally, _ add) *tally { return t }).Kind())
}

func TestLens_OnLensWith(t *testing.T) {
	r := MustReducer(
		OnLensWith(countLens, func(s *tally, c int, a add) int {
			return c + a.By*len(s.Label)
		}),
	)

	next, ok := r.Reduce(&tally{Count: 1, Label: "abc"}, add{By: 2})
	require.True(t, ok)
	assert.Equal(t, 7, next.Count)
	assert.Equal(t, "abc", next.Label)
}

func TestLens_Compose(t *testing.T) {
	type outer struct{ Inner tally }

	innerLens := Lens[outer, tally]{
		Get: func(o outer) tally { return o.Inner },
		Set: func(o outer, t tally) outer { o.Inner = t; return o },
	}
	labelLens := Lens[tally, string]{
		Get: func(t tally) string { return t.Label },
		Set: func(t tally, l string) tally { t.Label = l; return t },
	}

	l := Compose(innerLens, labelLens)
	o := outer{Inner: tally{Count: 2, Label: "a"}}

	assert.Equal(t, "a", l.Get(o))
	assert.Equal(t, outer{Inner: tally{Count: 2, Label: "b"}}, l.Set(o, "b"))
	assert.Equal(t, "a", o.Inner.Label)
}
