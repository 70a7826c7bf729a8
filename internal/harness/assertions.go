package harness

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// AssertionError is returned when an assertion fails. It carries the trace
// of the node involved to help debug the failure.
type AssertionError struct {
	Type     string
	Node     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	if e.Node != "" {
		fmt.Fprintf(&buf, "Assertion failed: %s (%s)\n", e.Type, e.Node)
	} else {
		fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	}
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for i, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] tick=%d %s %s %v\n", i+1, ev.Tick, ev.Node, ev.Kind, ev.Value)
		}
	}
	return buf.String()
}

// assertNotified checks that the node delivered something, at the given
// tick if set, and that the deliveries match the expected values if set.
func assertNotified(result *Result, a Assertion) error {
	deliveries := atTick(result.Deliveries(a.Node), a.Tick)
	if len(deliveries) == 0 {
		return &AssertionError{
			Type:     AssertNotified,
			Node:     a.Node,
			Expected: "at least one notification" + tickSuffix(a.Tick),
			Actual:   "none",
			Trace:    result.Trace,
		}
	}
	if a.Values == nil {
		return nil
	}

	want, err := normalize(a.Values)
	if err != nil {
		return fmt.Errorf("%s: %w", AssertNotified, err)
	}
	got := values(deliveries)
	if diff := cmp.Diff(want, got); diff != "" {
		return &AssertionError{
			Type:     AssertNotified,
			Node:     a.Node,
			Expected: fmt.Sprintf("values %v", want),
			Actual:   fmt.Sprintf("values %v (-want +got):\n%s", got, diff),
			Trace:    deliveries,
		}
	}
	return nil
}

func assertNotNotified(result *Result, a Assertion) error {
	deliveries := atTick(result.Deliveries(a.Node), a.Tick)
	if len(deliveries) > 0 {
		return &AssertionError{
			Type:     AssertNotNotified,
			Node:     a.Node,
			Expected: "no notification" + tickSuffix(a.Tick),
			Actual:   fmt.Sprintf("%d notifications", len(deliveries)),
			Trace:    deliveries,
		}
	}
	return nil
}

func assertNotifyCount(result *Result, a Assertion) error {
	deliveries := result.Deliveries(a.Node)
	if len(deliveries) != *a.Count {
		return &AssertionError{
			Type:     AssertNotifyCount,
			Node:     a.Node,
			Expected: fmt.Sprintf("%d notifications", *a.Count),
			Actual:   fmt.Sprintf("%d notifications", len(deliveries)),
			Trace:    deliveries,
		}
	}
	return nil
}

func assertFinalValue(result *Result, a Assertion) error {
	got, ok := result.Final[a.Node]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalValue,
			Node:     a.Node,
			Expected: fmt.Sprintf("value %v", a.Value),
			Actual:   "node was released",
		}
	}

	want, err := normalize(a.Value)
	if err != nil {
		return fmt.Errorf("%s: %w", AssertFinalValue, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		return &AssertionError{
			Type:     AssertFinalValue,
			Node:     a.Node,
			Expected: fmt.Sprintf("value %v", want),
			Actual:   fmt.Sprintf("value %v (-want +got):\n%s", got, diff),
		}
	}
	return nil
}

func assertFinalTick(result *Result, a Assertion) error {
	if result.Tick != a.Tick {
		return &AssertionError{
			Type:     AssertFinalTick,
			Expected: fmt.Sprintf("tick %d", a.Tick),
			Actual:   fmt.Sprintf("tick %d", result.Tick),
		}
	}
	return nil
}

func atTick(events []TraceEvent, tick int64) []TraceEvent {
	if tick == 0 {
		return events
	}
	var out []TraceEvent
	for _, ev := range events {
		if ev.Tick == tick {
			out = append(out, ev)
		}
	}
	return out
}

func values(events []TraceEvent) []any {
	out := make([]any, len(events))
	for i, ev := range events {
		out[i] = ev.Value
	}
	return out
}

func tickSuffix(tick int64) string {
	if tick == 0 {
		return ""
	}
	return fmt.Sprintf(" at tick %d", tick)
}

// EvaluateAssertions evaluates all assertions against the result and
// returns a message for each failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertNotified:
			err = assertNotified(result, assertion)
		case AssertNotNotified:
			err = assertNotNotified(result, assertion)
		case AssertNotifyCount:
			if assertion.Count == nil {
				err = fmt.Errorf("assertion[%d]: notify_count requires count", i)
			} else {
				err = assertNotifyCount(result, assertion)
			}
		case AssertFinalValue:
			err = assertFinalValue(result, assertion)
		case AssertFinalTick:
			err = assertFinalTick(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
