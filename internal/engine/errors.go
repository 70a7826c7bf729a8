package engine

import (
	"errors"
	"fmt"
)

// ErrStopped is returned by Call once the engine has been stopped.
var ErrStopped = errors.New("engine: stopped")

// RuntimeError is an error raised while the loop processed an event.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Kind is the action kind being processed, if any.
	Kind string

	// Seq is the journal sequence number assigned to the action, or 0.
	Seq int64

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeProducerPanic indicates a selector producer panicked while
	// the action's transition propagated. The state transition itself
	// has been applied and journaled.
	ErrCodeProducerPanic RuntimeErrorCode = "PRODUCER_PANIC"

	// ErrCodeCallPanic indicates a closure passed to Call panicked.
	ErrCodeCallPanic RuntimeErrorCode = "CALL_PANIC"

	// ErrCodeJournalWrite indicates an applied action could not be
	// journaled.
	ErrCodeJournalWrite RuntimeErrorCode = "JOURNAL_WRITE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s: %s (kind=%s)", e.Code, e.Message, e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsProducerPanic reports whether err is, or wraps, a producer panic.
func IsProducerPanic(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeProducerPanic
	}
	return false
}

// IsJournalError reports whether err is, or wraps, a journal write failure.
func IsJournalError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeJournalWrite
	}
	return false
}

// NewProducerPanicError wraps a value recovered from a producer.
func NewProducerPanicError(kind string, recovered any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeProducerPanic,
		Message: fmt.Sprintf("selector producer panicked: %v", recovered),
		Kind:    kind,
	}
}

func newJournalError(kind string, seq int64, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeJournalWrite,
		Message: err.Error(),
		Kind:    kind,
		Seq:     seq,
		Details: map[string]string{"seq": fmt.Sprintf("%d", seq)},
	}
}
