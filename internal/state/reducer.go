package state

import (
	"fmt"
	"slices"
)

// Action is a request to change state. ActionType must be callable on the
// zero value; it names the reducer case that handles the action.
type Action interface {
	ActionType() string
}

// Case handles one action kind.
type Case[S any] struct {
	kind  string
	apply func(S, Action) S
}

// Kind returns the action kind the case handles.
func (c Case[S]) Kind() string {
	return c.kind
}

// On builds a case for actions of type A.
func On[S any, A Action](fn func(S, A) S) Case[S] {
	var zero A
	return Case[S]{
		kind: zero.ActionType(),
		apply: func(s S, a Action) S {
			typed, ok := a.(A)
			if !ok {
				return s
			}
			return fn(s, typed)
		},
	}
}

// Reducer maps action kinds to pure state transitions.
type Reducer[S any] struct {
	cases map[string]func(S, Action) S
}

// NewReducer builds a reducer from cases. Two cases for the same kind are an
// error.
func NewReducer[S any](cases ...Case[S]) (*Reducer[S], error) {
	r := &Reducer[S]{cases: make(map[string]func(S, Action) S, len(cases))}
	for _, c := range cases {
		if _, dup := r.cases[c.kind]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCase, c.kind)
		}
		r.cases[c.kind] = c.apply
	}
	return r, nil
}

// MustReducer is NewReducer for statically known cases.
func MustReducer[S any](cases ...Case[S]) *Reducer[S] {
	r, err := NewReducer(cases...)
	if err != nil {
		panic(err)
	}
	return r
}

// Reduce applies a to s. The second result is false when no case handles
// the action, in which case s is returned unchanged.
func (r *Reducer[S]) Reduce(s S, a Action) (S, bool) {
	apply, ok := r.cases[a.ActionType()]
	if !ok {
		return s, false
	}
	return apply(s, a), true
}

// Kinds returns the handled action kinds, sorted.
func (r *Reducer[S]) Kinds() []string {
	kinds := make([]string, 0, len(r.cases))
	for k := range r.cases {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
