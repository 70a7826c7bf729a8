package state

import "errors"

var (
	// ErrUnknownAction is returned for an action kind with no reducer case
	// or codec registration. The state is left unchanged.
	ErrUnknownAction = errors.New("state: unknown action")

	// ErrDuplicateCase is returned when two reducer cases share a kind.
	ErrDuplicateCase = errors.New("state: duplicate reducer case")

	// ErrNilAction is returned when dispatching a nil action.
	ErrNilAction = errors.New("state: nil action")

	// ErrReentrantDispatch is returned when an action is dispatched while
	// another one is still being applied.
	ErrReentrantDispatch = errors.New("state: reentrant dispatch")

	// ErrStoreClosed is returned by Dispatch after Close or Fail.
	ErrStoreClosed = errors.New("state: store closed")
)
