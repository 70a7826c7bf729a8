package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer bounds the number of actions the loop applies in one burst,
// i.e. without the queue running empty in between.
//
// An observer that enqueues an action for every value it sees can keep the
// queue busy forever. Once the quota is exceeded, further actions are
// dropped until the queue drains, which breaks such a feedback loop.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer returns an enforcer allowing maxSteps actions per burst.
// A limit of 0 or less disables the quota.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check counts one step for an action of the given kind.
func (q *QuotaEnforcer) Check(kind string) error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &StepsExceededError{
			Kind:  kind,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Reset starts a new burst.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the steps taken in the current burst.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is reported for every action dropped by the quota.
type StepsExceededError struct {
	Kind  string
	Steps int
	Limit int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("action %s exceeded max steps quota: %d steps > %d limit",
		e.Kind, e.Steps, e.Limit)
}

// IsStepsExceededError reports whether err is, or wraps, a
// StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
