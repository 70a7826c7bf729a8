package counter

import (
	"fmt"
	"sort"

	"github.com/roach88/selgraph/internal/selector"
)

// Node names, as they appear in logs, metrics and traces.
const (
	NodeCounter = "counter"
	NodePrimes  = "primes"
	NodeDoubled = "doubled"
	NodeIsEven  = "isEven"
)

// Selectors are the derived values of the counter application.
type Selectors struct {
	Counter *selector.Node[int]
	Primes  *selector.Node[[]int]
	Doubled *selector.Node[int]
	IsEven  *selector.Node[bool]
}

// NewSelectors registers the counter selectors on g. On failure the nodes
// created so far are released.
func NewSelectors(g *selector.Graph[*State]) (*Selectors, error) {
	return newSelectors(g, PrimeFactors)
}

func newSelectors(g *selector.Graph[*State], factor func(int) []int) (sel *Selectors, err error) {
	var built []interface{ Release() }
	defer func() {
		if err == nil {
			return
		}
		for i := len(built) - 1; i >= 0; i-- {
			built[i].Release()
		}
	}()

	counter, err := selector.Select(g, func(s *State) int { return s.Counter },
		selector.WithName(NodeCounter))
	if err != nil {
		return nil, fmt.Errorf("counter selector: %w", err)
	}
	built = append(built, counter)

	primes, err := selector.Map(g, counter, factor,
		selector.WithName(NodePrimes))
	if err != nil {
		return nil, fmt.Errorf("primes selector: %w", err)
	}
	built = append(built, primes)

	doubled, err := selector.Map(g, counter, func(v int) int { return v * 2 },
		selector.WithName(NodeDoubled))
	if err != nil {
		return nil, fmt.Errorf("doubled selector: %w", err)
	}
	built = append(built, doubled)

	isEven, err := selector.Map(g, doubled, func(v int) bool { return v%2 == 0 },
		selector.WithName(NodeIsEven))
	if err != nil {
		return nil, fmt.Errorf("isEven selector: %w", err)
	}

	return &Selectors{
		Counter: counter,
		Primes:  primes,
		Doubled: doubled,
		IsEven:  isEven,
	}, nil
}

// Values synchronizes every selector and returns its value by node name.
func (s *Selectors) Values() map[string]any {
	return map[string]any{
		NodeCounter: s.Counter.Value(),
		NodePrimes:  s.Primes.Value(),
		NodeDoubled: s.Doubled.Value(),
		NodeIsEven:  s.IsEven.Value(),
	}
}

// Names returns the node names in a stable order.
func (s *Selectors) Names() []string {
	names := []string{NodeCounter, NodePrimes, NodeDoubled, NodeIsEven}
	sort.Strings(names)
	return names
}

// Release drops the creator references on every selector.
func (s *Selectors) Release() {
	s.IsEven.Release()
	s.Doubled.Release()
	s.Primes.Release()
	s.Counter.Release()
}

// PrimeFactors returns the prime factorization of n in ascending order,
// with repetition. Numbers below 2 have no factors.
func PrimeFactors(n int) []int {
	factors := []int{}
	for f := 2; f*f <= n; f++ {
		for n%f == 0 {
			factors = append(factors, f)
			n /= f
		}
	}
	if n > 1 {
		factors = append(factors, n)
	}
	return factors
}

// Watch subscribes fn to every selector. fn receives each current value at
// once and every change after that, tagged with the node name. The
// returned function unsubscribes all of them.
func (s *Selectors) Watch(fn func(name string, value any)) (func(), error) {
	var subs []*selector.Subscription
	cancel := func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}

	add := func(sub *selector.Subscription, err error) error {
		if err != nil {
			cancel()
			return err
		}
		subs = append(subs, sub)
		return nil
	}

	if err := add(watch(s.Counter, fn)); err != nil {
		return nil, err
	}
	if err := add(watch(s.Primes, fn)); err != nil {
		return nil, err
	}
	if err := add(watch(s.Doubled, fn)); err != nil {
		return nil, err
	}
	if err := add(watch(s.IsEven, fn)); err != nil {
		return nil, err
	}
	return cancel, nil
}

func watch[T any](n *selector.Node[T], fn func(string, any)) (*selector.Subscription, error) {
	name := n.Name()
	return n.Subscribe(selector.NextFunc(func(v T) { fn(name, v) }))
}
