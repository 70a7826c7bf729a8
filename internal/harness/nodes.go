package harness

import (
	"fmt"

	"github.com/roach88/selgraph/internal/counter"
	"github.com/roach88/selgraph/internal/payload"
	"github.com/roach88/selgraph/internal/selector"
)

// nodeRef hides a node's value type from the scenario runner.
type nodeRef interface {
	Name() string
	Release()
	value() any
	subscribe(sink func(kind string, value any)) (*selector.Subscription, error)
}

type typedRef[T any] struct {
	node *selector.Node[T]
}

func (r typedRef[T]) Name() string { return r.node.Name() }
func (r typedRef[T]) Release()     { r.node.Release() }
func (r typedRef[T]) value() any   { return r.node.Value() }

func (r typedRef[T]) subscribe(sink func(kind string, value any)) (*selector.Subscription, error) {
	return r.node.Subscribe(selector.Funcs[T]{
		Next:      func(v T) { sink(KindNext, v) },
		Error:     func(err error) { sink(KindError, err.Error()) },
		Completed: func() { sink(KindCompleted, nil) },
	})
}

func nodeRefs(sel *counter.Selectors) map[string]nodeRef {
	return map[string]nodeRef{
		counter.NodeCounter: typedRef[int]{sel.Counter},
		counter.NodePrimes:  typedRef[[]int]{sel.Primes},
		counter.NodeDoubled: typedRef[int]{sel.Doubled},
		counter.NodeIsEven:  typedRef[bool]{sel.IsEven},
	}
}

// normalize maps node values and YAML values onto one representation:
// integers as int64, lists as []any, objects as map[string]any.
func normalize(v any) (any, error) {
	pv, err := payload.FromGo(v)
	if err != nil {
		return nil, fmt.Errorf("normalize %T: %w", v, err)
	}
	return payload.ToGo(pv), nil
}
