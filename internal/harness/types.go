package harness

// Trace event kinds, one per observer channel.
const (
	KindNext      = "next"
	KindError     = "error"
	KindCompleted = "completed"
)

// TraceEvent is one observer callback seen by the scenario.
type TraceEvent struct {
	Tick  int64  `json:"tick"`
	Node  string `json:"node"`
	Kind  string `json:"kind"`
	Value any    `json:"value"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step and assertion held.
	Pass bool `json:"pass"`

	// Trace lists every delivery to a scenario observer, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes each failed step or assertion.
	Errors []string `json:"errors,omitempty"`

	// Final maps each node that was not released to its last value.
	Final map[string]any `json:"final"`

	// Tick is the graph time after the last step.
	Tick int64 `json:"tick"`

	// Seq is the number of actions applied.
	Seq int64 `json:"seq"`

	// Session is the session token actions were journaled under.
	Session string `json:"session"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Final:  make(map[string]any),
	}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace records a delivery.
func (r *Result) AddTrace(tick int64, node, kind string, value any) {
	r.Trace = append(r.Trace, TraceEvent{
		Tick:  tick,
		Node:  node,
		Kind:  kind,
		Value: value,
	})
}

// Deliveries returns the values delivered by node, in order.
func (r *Result) Deliveries(node string) []TraceEvent {
	var out []TraceEvent
	for _, ev := range r.Trace {
		if ev.Node == node && ev.Kind == KindNext {
			out = append(out, ev)
		}
	}
	return out
}
