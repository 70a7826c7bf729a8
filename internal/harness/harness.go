package harness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/selgraph/internal/counter"
	"github.com/roach88/selgraph/internal/engine"
	"github.com/roach88/selgraph/internal/journal"
	"github.com/roach88/selgraph/internal/logging"
	"github.com/roach88/selgraph/internal/selector"
	"github.com/roach88/selgraph/internal/state"
	"github.com/roach88/selgraph/internal/testutil"
)

// Option configures a scenario run.
type Option func(*options)

type options struct {
	journal *journal.Journal
	logger  *slog.Logger
}

// WithJournal records the scenario's actions in j under the scenario's
// session. Re-running a scenario appends nothing new: entry ids depend
// only on session, action and seq.
func WithJournal(j *journal.Journal) Option {
	return func(o *options) {
		o.journal = j
	}
}

// WithLogger sets the logger for the engine and graph. Runs are silent by
// default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Harness executes one scenario on a live engine.
//
// Fields below engine are only touched on the engine loop goroutine.
type Harness struct {
	engine *engine.Engine[*counter.State]
	logger *slog.Logger

	nodes    map[string]nodeRef
	subs     map[string]*selector.Subscription
	released map[string]bool
	failures []error
	result   *Result
}

// Run executes a scenario and evaluates its assertions. The returned error
// is reserved for infrastructure failures; failed steps and assertions are
// reported in the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()
	session := testutil.NewFixedSession(scenario.Session)

	store := state.NewStore(&counter.State{Counter: scenario.Initial}, counter.Reducer(),
		state.WithStoreLogger(o.logger))

	h := &Harness{
		logger:   o.logger,
		subs:     make(map[string]*selector.Subscription),
		released: make(map[string]bool),
		result:   NewResult(),
	}

	engineOpts := []engine.Option{
		engine.WithLogger(o.logger),
		engine.WithSessionGenerator(session),
		engine.WithErrorHandler(func(err error) { h.failures = append(h.failures, err) }),
	}
	if o.journal != nil {
		if err := o.journal.BeginSession(ctx, session.Generate(), scenario.Name); err != nil {
			return nil, fmt.Errorf("failed to begin journal session: %w", err)
		}
		engineOpts = append(engineOpts, engine.WithJournal(o.journal))
	}

	eng, err := engine.New(store, counter.Codec(), engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	h.engine = eng

	sel, err := counter.NewSelectors(eng.Graph())
	if err != nil {
		return nil, fmt.Errorf("failed to create selectors: %w", err)
	}
	h.nodes = nodeRefs(sel)

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()

	err = h.execute(ctx, scenario)
	eng.Stop()
	if rerr := <-runErr; err == nil {
		err = rerr
	}
	if err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func (h *Harness) execute(ctx context.Context, scenario *Scenario) error {
	h.result.Session = h.engine.Session()

	if err := h.engine.Call(ctx, func() error {
		for _, name := range scenario.Subscriptions {
			if err := h.subscribe(name); err != nil {
				return fmt.Errorf("subscription %q: %w", name, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	for i, step := range scenario.Steps {
		stepErr, err := h.executeStep(ctx, step)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		h.checkStep(i, step, stepErr)
	}

	return h.engine.Call(ctx, func() error {
		for name, ref := range h.nodes {
			if h.released[name] {
				continue
			}
			v, err := normalize(ref.value())
			if err != nil {
				return err
			}
			h.result.Final[name] = v
		}
		h.result.Tick = int64(h.engine.Graph().CurrentTime())
		h.result.Seq = h.engine.Seq()
		return nil
	})
}

// executeStep runs one step and returns the step's own failure, if any.
// The second error is an infrastructure failure.
func (h *Harness) executeStep(ctx context.Context, step Step) (error, error) {
	op, operand := step.Op()

	if op == OpDispatch {
		if err := h.engine.EnqueueEncoded(operand, step.Args); err != nil {
			return err, nil
		}
	}

	var stepErr error
	err := h.engine.Call(ctx, func() error {
		switch op {
		case OpSubscribe:
			stepErr = h.subscribe(operand)
		case OpUnsubscribe:
			stepErr = h.unsubscribe(operand)
		case OpRelease:
			stepErr = h.release(operand)
		case OpDispatch:
			// Errors reported by the loop while applying the action.
			if len(h.failures) > 0 {
				stepErr = h.failures[0]
				h.failures = nil
			}
		}
		return nil
	})
	return stepErr, err
}

func (h *Harness) checkStep(index int, step Step, err error) {
	op, operand := step.Op()
	switch {
	case step.Error == "" && err != nil:
		h.result.AddError(fmt.Sprintf("step %d (%s %s): unexpected error: %v", index, op, operand, err))
	case step.Error != "" && err == nil:
		h.result.AddError(fmt.Sprintf("step %d (%s %s): expected error containing %q, got none", index, op, operand, step.Error))
	case step.Error != "" && !strings.Contains(err.Error(), step.Error):
		h.result.AddError(fmt.Sprintf("step %d (%s %s): expected error containing %q, got: %v", index, op, operand, step.Error, err))
	default:
		h.logger.Debug("step completed", "step", index, "op", op, "operand", operand)
	}
}

func (h *Harness) subscribe(name string) error {
	if h.subs[name].Active() {
		return fmt.Errorf("node %q is already subscribed", name)
	}

	sub, err := h.nodes[name].subscribe(func(kind string, value any) {
		v, err := normalize(value)
		if err != nil {
			h.failures = append(h.failures, err)
			return
		}
		h.result.AddTrace(int64(h.engine.Graph().CurrentTime()), name, kind, v)
	})
	if err != nil {
		return err
	}
	h.subs[name] = sub
	return nil
}

func (h *Harness) unsubscribe(name string) error {
	sub := h.subs[name]
	if !sub.Active() {
		return fmt.Errorf("node %q is not subscribed", name)
	}
	sub.Unsubscribe()
	delete(h.subs, name)
	return nil
}

func (h *Harness) release(name string) error {
	if h.released[name] {
		return fmt.Errorf("node %q: %w", name, selector.ErrNodeReleased)
	}
	h.nodes[name].Release()
	h.released[name] = true
	return nil
}
