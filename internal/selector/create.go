package selector

// Create registers a node computed by producer from the given dependencies.
// Every dependency must belong to g. Nothing is computed until the node is
// first synchronized.
//
// The returned node carries one reference owned by the caller; drop it with
// Release once the node is no longer needed.
func Create[S comparable, T any](g *Graph[S], deps []Dependency, producer func() T, opts ...Option) (*Node[T], error) {
	return newNode(g.core, deps, producer, opts)
}

// Select creates a root node deriving a value from the snapshot.
func Select[S comparable, T any](g *Graph[S], fn func(S) T, opts ...Option) (*Node[T], error) {
	var producer func() T
	if fn != nil {
		producer = func() T { return fn(g.snapshot) }
	}
	return newNode(g.core, nil, producer, opts)
}

// Map creates a node deriving a value from one other node.
func Map[S comparable, A, T any](g *Graph[S], a *Node[A], fn func(A) T, opts ...Option) (*Node[T], error) {
	var producer func() T
	if fn != nil {
		producer = func() T { return fn(a.current) }
	}
	return newNode(g.core, []Dependency{a}, producer, opts)
}

// Combine2 creates a node deriving a value from two other nodes.
func Combine2[S comparable, A, B, T any](g *Graph[S], a *Node[A], b *Node[B], fn func(A, B) T, opts ...Option) (*Node[T], error) {
	var producer func() T
	if fn != nil {
		producer = func() T { return fn(a.current, b.current) }
	}
	return newNode(g.core, []Dependency{a, b}, producer, opts)
}

// Combine3 creates a node deriving a value from three other nodes.
func Combine3[S comparable, A, B, C, T any](g *Graph[S], a *Node[A], b *Node[B], c *Node[C], fn func(A, B, C) T, opts ...Option) (*Node[T], error) {
	var producer func() T
	if fn != nil {
		producer = func() T { return fn(a.current, b.current, c.current) }
	}
	return newNode(g.core, []Dependency{a, b, c}, producer, opts)
}

// Combine4 creates a node deriving a value from four other nodes.
func Combine4[S comparable, A, B, C, D, T any](g *Graph[S], a *Node[A], b *Node[B], c *Node[C], d *Node[D], fn func(A, B, C, D) T, opts ...Option) (*Node[T], error) {
	var producer func() T
	if fn != nil {
		producer = func() T { return fn(a.current, b.current, c.current, d.current) }
	}
	return newNode(g.core, []Dependency{a, b, c, d}, producer, opts)
}

func newNode[T any](c *core, deps []Dependency, producer func() T, opts []Option) (*Node[T], error) {
	var cfg nodeConfig
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	if producer == nil {
		return nil, newConfigError(ErrCodeNilProducer, cfg.name, "producer is required")
	}

	for i, dep := range deps {
		if dep == nil || dep.owner() == nil {
			return nil, newConfigError(ErrCodeNilDependency, cfg.name, "dependency %d is nil", i)
		}
		if dep.owner() != c {
			return nil, newConfigError(ErrCodeForeignDependency, cfg.name,
				"dependency %q belongs to an unrelated graph", dep.Name())
		}
		if dep.isReleased() {
			return nil, newConfigError(ErrCodeReleasedDependency, cfg.name,
				"dependency %q has been released", dep.Name())
		}
	}

	equal, err := resolveEqual[T](cfg)
	if err != nil {
		return nil, err
	}

	name := cfg.name
	if name == "" {
		name = c.nextName()
	}

	n := &Node[T]{
		core:     c,
		name:     name,
		deps:     append([]Dependency(nil), deps...),
		producer: producer,
		equal:    equal,
		refs:     1,
	}
	for _, dep := range n.deps {
		dep.retain()
	}
	n.handle = c.registry.add(n)

	c.logger.Debug("node created",
		"node", name,
		"handle", n.handle,
		"dependencies", len(deps),
	)

	return n, nil
}
