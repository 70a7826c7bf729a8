package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/selgraph/internal/payload"
)

// TraceSnapshot is the part of a result that golden files pin down.
type TraceSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Session      string         `json:"session,omitempty"`
	Trace        []TraceEvent   `json:"trace"`
	Final        map[string]any `json:"final"`
	Tick         int64          `json:"tick"`
}

// NewTraceSnapshot builds the snapshot of result.
func NewTraceSnapshot(name string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: name,
		Session:      result.Session,
		Trace:        result.Trace,
		Final:        result.Final,
		Tick:         result.Tick,
	}
}

// Canonical encodes the snapshot as canonical JSON. Events without a value
// (completions) omit the value key.
func (s TraceSnapshot) Canonical() ([]byte, error) {
	trace := make(payload.List, len(s.Trace))
	for i, ev := range s.Trace {
		obj := payload.Object{
			"tick": payload.Int(ev.Tick),
			"node": payload.String(ev.Node),
			"kind": payload.String(ev.Kind),
		}
		if ev.Kind != KindCompleted {
			v, err := payload.FromGo(ev.Value)
			if err != nil {
				return nil, fmt.Errorf("trace[%d]: %w", i, err)
			}
			obj["value"] = v
		}
		trace[i] = obj
	}

	final, err := payload.FromGo(s.Final)
	if err != nil {
		return nil, fmt.Errorf("final: %w", err)
	}

	snapshot := payload.Object{
		"scenario_name": payload.String(s.ScenarioName),
		"trace":         trace,
		"final":         final,
		"tick":          payload.Int(s.Tick),
	}
	if s.Session != "" {
		snapshot["session"] = payload.String(s.Session)
	}
	return payload.MarshalCanonical(snapshot)
}

// RunWithGolden executes a scenario and compares its trace with
// testdata/golden/{scenario.Name}.golden. Regenerate golden files with
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the golden file for
// name.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := NewTraceSnapshot(name, result).Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
