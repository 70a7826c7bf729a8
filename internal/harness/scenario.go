package harness

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/selgraph/internal/counter"
)

//go:embed schema.cue
var schemaSource string

// Step operations.
const (
	OpDispatch    = "dispatch"
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpRelease     = "release"
)

// Assertion types.
const (
	AssertNotified    = "notified"
	AssertNotNotified = "not_notified"
	AssertNotifyCount = "notify_count"
	AssertFinalValue  = "final_value"
	AssertFinalTick   = "final_tick"
)

// Nodes lists the node names a scenario may refer to.
var Nodes = []string{counter.NodeCounter, counter.NodePrimes, counter.NodeDoubled, counter.NodeIsEven}

// Scenario is one conformance test.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description,omitempty"`

	// Session is the fixed session token. Defaults to
	// "test-session-default".
	Session string `yaml:"session,omitempty"`

	// Initial is the counter value the store starts at.
	Initial int `yaml:"initial,omitempty"`

	// Subscriptions are nodes observed before the first step.
	Subscriptions []string `yaml:"subscriptions,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one scenario operation. Exactly one of Dispatch, Subscribe,
// Unsubscribe and Release is set.
type Step struct {
	Dispatch string         `yaml:"dispatch,omitempty"`
	Args     map[string]any `yaml:"args,omitempty"`

	Subscribe   string `yaml:"subscribe,omitempty"`
	Unsubscribe string `yaml:"unsubscribe,omitempty"`
	Release     string `yaml:"release,omitempty"`

	// Error, if set, is a substring the step's error must contain.
	Error string `yaml:"error,omitempty"`
}

// Op returns the step's operation and its operand.
func (s Step) Op() (op, operand string) {
	switch {
	case s.Dispatch != "":
		return OpDispatch, s.Dispatch
	case s.Subscribe != "":
		return OpSubscribe, s.Subscribe
	case s.Unsubscribe != "":
		return OpUnsubscribe, s.Unsubscribe
	case s.Release != "":
		return OpRelease, s.Release
	}
	return "", ""
}

// Assertion checks the trace or the final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Node is the node the assertion is about (all types but final_tick).
	Node string `yaml:"node,omitempty"`

	// Tick narrows notified and not_notified to one tick, and is the
	// expected time for final_tick.
	Tick int64 `yaml:"tick,omitempty"`

	// Values is the exact delivery sequence for notified.
	Values []any `yaml:"values,omitempty"`

	// Count is the expected delivery count for notify_count.
	Count *int `yaml:"count,omitempty"`

	// Value is the expected final value for final_value.
	Value any `yaml:"value,omitempty"`
}

// LoadScenario reads, validates and decodes a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(path, data)
}

// ParseScenario validates data against the scenario schema and decodes it.
// filename is only used in error messages.
func ParseScenario(filename string, data []byte) (*Scenario, error) {
	if err := ValidateSchema(filename, data); err != nil {
		return nil, err
	}

	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// ValidateSchema checks a YAML document against the embedded CUE schema.
func ValidateSchema(filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling scenario schema: %w", err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("failed to parse scenario YAML: %w", err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("failed to parse scenario YAML: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &SchemaError{Filename: filename, Details: cueerrors.Details(err, nil), err: err}
	}
	return nil
}

// SchemaError reports a scenario that does not satisfy the schema.
type SchemaError struct {
	Filename string
	Details  string
	err      error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: scenario does not match schema: %v", e.Filename, e.err)
}

// Unwrap returns the underlying CUE error.
func (e *SchemaError) Unwrap() error {
	return e.err
}

// IsSchemaError reports whether err is, or wraps, a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// validateScenario checks what the schema cannot express.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Initial < counter.Min || s.Initial > counter.Max {
		return fmt.Errorf("initial must be within [%d, %d], got %d", counter.Min, counter.Max, s.Initial)
	}

	seen := make(map[string]bool)
	for i, node := range s.Subscriptions {
		if !slices.Contains(Nodes, node) {
			return fmt.Errorf("subscriptions[%d]: unknown node %q", i, node)
		}
		if seen[node] {
			return fmt.Errorf("subscriptions[%d]: node %q listed twice", i, node)
		}
		seen[node] = true
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	set := 0
	for _, v := range []string{step.Dispatch, step.Subscribe, step.Unsubscribe, step.Release} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of dispatch, subscribe, unsubscribe, release is required", index)
	}

	op, operand := step.Op()
	if op != OpDispatch {
		if len(step.Args) > 0 {
			return fmt.Errorf("steps[%d]: args are only valid on dispatch", index)
		}
		if !slices.Contains(Nodes, operand) {
			return fmt.Errorf("steps[%d]: unknown node %q", index, operand)
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Type != AssertFinalTick && !slices.Contains(Nodes, a.Node) {
		return fmt.Errorf("assertions[%d]: unknown node %q", index, a.Node)
	}

	switch a.Type {
	case AssertNotified, AssertNotNotified, AssertFinalValue:
	case AssertNotifyCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for notify_count", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for notify_count", index)
		}
	case AssertFinalTick:
		if a.Tick < 1 {
			return fmt.Errorf("assertions[%d]: tick is required for final_tick", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
