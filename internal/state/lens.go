package state

// Lens focuses a reducer case on one part of the state.
type Lens[S, T any] struct {
	Get func(S) T
	Set func(S, T) S
}

// Compose focuses inner through outer.
func Compose[S, T, U any](outer Lens[S, T], inner Lens[T, U]) Lens[S, U] {
	return Lens[S, U]{
		Get: func(s S) U { return inner.Get(outer.Get(s)) },
		Set: func(s S, u U) S { return outer.Set(s, inner.Set(outer.Get(s), u)) },
	}
}

// OnLens builds a case that rewrites only the focused part of the state.
func OnLens[S, T any, A Action](l Lens[S, T], fn func(T, A) T) Case[S] {
	return On(func(s S, a A) S {
		return l.Set(s, fn(l.Get(s), a))
	})
}

// OnLensWith is OnLens for transitions that also need to read the whole
// state.
func OnLensWith[S, T any, A Action](l Lens[S, T], fn func(S, T, A) T) Case[S] {
	return On(func(s S, a A) S {
		return l.Set(s, fn(s, l.Get(s), a))
	})
}
