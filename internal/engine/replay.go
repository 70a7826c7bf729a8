package engine

import (
	"context"
	"fmt"

	"github.com/roach88/selgraph/internal/journal"
	"github.com/roach88/selgraph/internal/payload"
	"github.com/roach88/selgraph/internal/state"
)

// Replay decodes entries and dispatches them through d in the order given,
// which for journal reads is seq order. It returns how many entries were
// dispatched and stops at the first failure.
//
// Replaying the same entries into a store built from the same initial
// state always yields the same final snapshot, so a selector graph attached
// to that store ends with the same node values as the original run.
func Replay(ctx context.Context, entries []journal.Entry, codec *state.Codec, d state.Dispatcher) (int, error) {
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		args, _ := payload.ToGo(entry.Args).(map[string]any)
		a, err := codec.Decode(entry.Kind, args)
		if err != nil {
			return i, fmt.Errorf("replay seq %d: %w", entry.Seq, err)
		}
		if err := d.Dispatch(a); err != nil {
			return i, fmt.Errorf("replay seq %d: %w", entry.Seq, err)
		}
	}
	return len(entries), nil
}

// Restore replays entries into the engine's store on the loop goroutine,
// bypassing the dispatcher and the journal: the entries are already
// recorded. The graph observes every restored transition.
func (e *Engine[S]) Restore(ctx context.Context, entries []journal.Entry) (int, error) {
	var n int
	err := e.Call(ctx, func() error {
		var err error
		n, err = Replay(ctx, entries, e.codec, e.store)
		return err
	})
	return n, err
}
