// Package counter is the sample application: a bounded counter and the
// selectors derived from it.
package counter

import (
	"github.com/roach88/selgraph/internal/state"
)

// Bounds of the counter. Increment and Decrement saturate; Set clamps.
const (
	Min = 0
	Max = 999
)

// State is the counter application's state. Snapshots are *State, so every
// dispatched transition is a distinct snapshot even when the count is
// unchanged.
type State struct {
	Counter int `json:"counter"`
}

// Initial returns the starting snapshot.
func Initial() *State {
	return &State{}
}

// Increment adds one, saturating at Max.
type Increment struct{}

func (Increment) ActionType() string { return "counter/increment" }

// Decrement subtracts one, saturating at Min.
type Decrement struct{}

func (Decrement) ActionType() string { return "counter/decrement" }

// Set replaces the counter, clamped to [Min, Max].
type Set struct {
	Value int `mapstructure:"value"`
}

func (Set) ActionType() string { return "counter/set" }

// Reset sets the counter back to Min.
type Reset struct{}

func (Reset) ActionType() string { return "counter/reset" }

var valueLens = state.Lens[*State, int]{
	Get: func(s *State) int { return s.Counter },
	Set: func(s *State, v int) *State {
		next := *s
		next.Counter = v
		return &next
	},
}

// Reducer returns the counter reducer.
func Reducer() *state.Reducer[*State] {
	return state.MustReducer(
		state.OnLens(valueLens, func(v int, _ Increment) int { return min(v+1, Max) }),
		state.OnLens(valueLens, func(v int, _ Decrement) int { return max(v-1, Min) }),
		state.OnLens(valueLens, func(_ int, a Set) int { return clamp(a.Value) }),
		state.OnLens(valueLens, func(int, Reset) int { return Min }),
	)
}

// Codec returns a codec for every counter action.
func Codec() *state.Codec {
	c := state.NewCodec()
	state.Register[Increment](c)
	state.Register[Decrement](c)
	state.Register[Set](c)
	state.Register[Reset](c)
	return c
}

// NewStore returns a store at the initial state.
func NewStore(opts ...state.StoreOption) *state.Store[*State] {
	return state.NewStore(Initial(), Reducer(), opts...)
}

func clamp(v int) int {
	return max(Min, min(v, Max))
}
