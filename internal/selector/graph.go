package selector

import (
	"fmt"
	"log/slog"
)

// Source is the pull side of an external state container.
type Source[S any] interface {
	Current() S
}

// SourceFunc adapts a plain accessor to Source.
type SourceFunc[S any] func() S

// Current implements Source.
func (f SourceFunc[S]) Current() S {
	return f()
}

// Hooks are optional callbacks fired by the graph as it works. They are
// meant for instrumentation (see package metrics) and must not call back
// into the graph.
type Hooks struct {
	// OnTick fires after the clock advances.
	OnTick func(now Tick)

	// OnRecompute fires after a producer ran; changed reports whether the
	// result differed from the cached value.
	OnRecompute func(node string, changed bool)

	// OnNotify fires after a push delivered values to observers.
	OnNotify func(node string, delivered int)

	// OnReclaim fires when a released node's slot is freed.
	OnReclaim func(node string)

	// OnObserverPanic fires when an observer callback panicked.
	OnObserverPanic func(node string, recovered any)
}

// GraphOption configures a Graph.
type GraphOption func(*core)

// WithLogger sets the logger used by the graph and its nodes.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) GraphOption {
	return func(c *core) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHooks installs instrumentation hooks.
func WithHooks(h Hooks) GraphOption {
	return func(c *core) {
		c.hooks = h
	}
}

// core is the part of a graph its nodes hold on to. It is not generic over
// the snapshot type, which lets nodes of any value type share it.
type core struct {
	clock    *Clock
	registry registry
	logger   *slog.Logger
	hooks    Hooks
	seq      int

	// forwarded is the last tick a propagation pass ran for.
	forwarded Tick

	// subscribed is Graph.OnSubscribe, bound at construction.
	subscribed func(Dependency)
}

func (c *core) nextName() string {
	c.seq++
	return fmt.Sprintf("node-%d", c.seq)
}

func (c *core) propagate() {
	c.forwarded = c.clock.Now()
	c.registry.sweep(func(e entry) { e.forwardIfNeeded() }, c.reclaimed)
}

func (c *core) reclaimed(e entry) {
	c.logger.Debug("node reclaimed", "node", e.Name(), "live", c.registry.live)
	if c.hooks.OnReclaim != nil {
		c.hooks.OnReclaim(e.Name())
	}
}

// Graph owns the clock, the latest snapshot and the node registry, and
// mediates all propagation. S is the snapshot type; pointer snapshots give
// identity semantics.
//
// A Graph is not safe for concurrent use.
type Graph[S comparable] struct {
	*core
	source   Source[S]
	snapshot S
}

// NewGraph creates a graph reading snapshots from source. The initial
// snapshot is pulled immediately; the clock starts at 1.
func NewGraph[S comparable](source Source[S], opts ...GraphOption) (*Graph[S], error) {
	if source == nil {
		return nil, newConfigError(ErrCodeNilSource, "", "graph requires a state source")
	}
	g := newGraph[S](opts)
	g.source = source
	g.snapshot = source.Current()
	return g, nil
}

// NewGraphAt creates a graph with a fixed initial snapshot and no source to
// pull from. Subsequent snapshots arrive only through OnExternalChange.
func NewGraphAt[S comparable](initial S, opts ...GraphOption) *Graph[S] {
	g := newGraph[S](opts)
	g.snapshot = initial
	return g
}

func newGraph[S comparable](opts []GraphOption) *Graph[S] {
	c := &core{
		clock:  NewClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.forwarded = c.clock.Now()
	g := &Graph[S]{core: c}
	c.subscribed = g.OnSubscribe
	return g
}

// CurrentTime returns the current tick.
func (g *Graph[S]) CurrentTime() Tick {
	return g.clock.Now()
}

// Snapshot returns the snapshot the current tick refers to.
func (g *Graph[S]) Snapshot() S {
	return g.snapshot
}

// Len returns the number of registered nodes, including released nodes
// that have not been reclaimed yet.
func (g *Graph[S]) Len() int {
	return g.registry.live
}

// Alive reports whether h refers to a registered node that still has
// references.
func (g *Graph[S]) Alive(h Handle) bool {
	e, ok := g.registry.lookup(h)
	return ok && !e.isReleased()
}

// OnExternalChange is called by the state source once per transition. A
// snapshot identical to the stored one does not advance the clock; otherwise
// the clock advances. A propagation pass runs unless one already ran for
// the current tick, so a snapshot pulled early by OnSubscribe still reaches
// the observers of every other node.
func (g *Graph[S]) OnExternalChange(next S) {
	if !g.advance(next) && g.forwarded >= g.clock.Now() {
		return
	}
	g.propagate()
}

// OnSubscribe is invoked whenever a node gains an observer. It pulls the
// latest snapshot from the source so that a subscription made before the
// first change notification never sees stale state.
func (g *Graph[S]) OnSubscribe(node Dependency) {
	if g.source == nil {
		return
	}
	if g.advance(g.source.Current()) {
		g.logger.Debug("snapshot pulled on subscribe", "node", node.Name(), "tick", g.clock.Now())
	}
}

// OnError forwards a terminal error to every observer of every live node.
func (g *Graph[S]) OnError(err error) {
	g.registry.sweep(func(e entry) { e.forwardError(err) }, g.reclaimed)
}

// OnCompleted forwards completion to every observer of every live node.
func (g *Graph[S]) OnCompleted() {
	g.registry.sweep(func(e entry) { e.forwardCompleted() }, g.reclaimed)
}

func (g *Graph[S]) advance(next S) bool {
	if next == g.snapshot {
		return false
	}
	g.snapshot = next
	now := g.clock.Advance()
	g.logger.Debug("tick advanced", "tick", now)
	if g.hooks.OnTick != nil {
		g.hooks.OnTick(now)
	}
	return true
}
