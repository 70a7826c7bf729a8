package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/selgraph/internal/journal"
	"github.com/roach88/selgraph/internal/payload"
	"github.com/roach88/selgraph/internal/selector"
	"github.com/roach88/selgraph/internal/state"
)

// Journal is the append side of the action log. *journal.Journal
// implements it.
type Journal interface {
	Append(ctx context.Context, e journal.Entry) error
}

// Option configures an Engine.
type Option func(*config)

type config struct {
	journal   Journal
	clock     *Clock
	sessions  SessionGenerator
	logger    *slog.Logger
	graphOpts []selector.GraphOption
	ignore    []string
	maxSteps  int
	onError   func(error)
	onAction  func(kind string, elapsed time.Duration, err error)
}

// WithJournal appends every applied action to j.
func WithJournal(j Journal) Option {
	return func(c *config) {
		c.journal = j
	}
}

// WithClock sets the seq clock, e.g. NewClockAt(lastSeq) to continue an
// existing journal.
func WithClock(clock *Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithSessionGenerator sets the session token source.
// Defaults to UUIDv7Generator.
func WithSessionGenerator(g SessionGenerator) Option {
	return func(c *config) {
		if g != nil {
			c.sessions = g
		}
	}
}

// WithLogger sets the logger for the engine, its dispatcher and its graph.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithGraphOptions passes options through to the selector graph.
func WithGraphOptions(opts ...selector.GraphOption) Option {
	return func(c *config) {
		c.graphOpts = append(c.graphOpts, opts...)
	}
}

// WithIgnoredKinds stops the dispatcher from logging the given kinds.
func WithIgnoredKinds(kinds ...string) Option {
	return func(c *config) {
		c.ignore = append(c.ignore, kinds...)
	}
}

// WithMaxSteps limits how many actions are applied in one burst. Actions
// over the limit are dropped with a StepsExceededError until the queue
// drains. Zero, the default, means no limit.
func WithMaxSteps(n int) Option {
	return func(c *config) {
		c.maxSteps = n
	}
}

// WithErrorHandler is called on the loop goroutine for every action that
// failed to process, after it has been logged.
func WithErrorHandler(fn func(error)) Option {
	return func(c *config) {
		c.onError = fn
	}
}

// WithActionHook is called on the loop goroutine after every dispatched
// action, successful or not.
func WithActionHook(fn func(kind string, elapsed time.Duration, err error)) Option {
	return func(c *config) {
		c.onAction = fn
	}
}

// Engine owns a store, the selector graph observing it and the dispatcher
// in front of it.
//
// Thread-safety:
//   - Enqueue, EnqueueEncoded, Call, Stop: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//   - Graph and nodes created on it: only from the loop, i.e. inside Call
//     or observer callbacks, or before Run starts
type Engine[S comparable] struct {
	store      *state.Store[S]
	graph      *selector.Graph[S]
	dispatcher *state.GuardingDispatcher
	codec      *state.Codec
	journal    Journal
	clock      *Clock
	queue      *eventQueue
	quota      *QuotaEnforcer
	session    string
	logger     *slog.Logger
	onError    func(error)
	onAction   func(kind string, elapsed time.Duration, err error)
	detach     func()
}

// New builds an engine over store. The codec converts actions to and from
// their journaled form.
func New[S comparable](store *state.Store[S], codec *state.Codec, opts ...Option) (*Engine[S], error) {
	if store == nil {
		return nil, errors.New("engine: store is required")
	}
	if codec == nil {
		return nil, errors.New("engine: codec is required")
	}

	cfg := config{
		clock:    NewClock(),
		sessions: UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	graphOpts := append([]selector.GraphOption{selector.WithLogger(cfg.logger)}, cfg.graphOpts...)
	graph, err := selector.NewGraph[S](store, graphOpts...)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	dispatcher := state.NewGuardingDispatcher(store, cfg.logger)
	dispatcher.Ignore(cfg.ignore...)

	e := &Engine[S]{
		store:      store,
		graph:      graph,
		dispatcher: dispatcher,
		codec:      codec,
		journal:    cfg.journal,
		clock:      cfg.clock,
		queue:      newEventQueue(),
		quota:      NewQuotaEnforcer(cfg.maxSteps),
		session:    cfg.sessions.Generate(),
		logger:     cfg.logger,
		onError:    cfg.onError,
		onAction:   cfg.onAction,
	}
	e.detach = store.Subscribe(graph)

	return e, nil
}

// Graph returns the selector graph. See the thread-safety notes on Engine.
func (e *Engine[S]) Graph() *selector.Graph[S] {
	return e.graph
}

// Store returns the underlying store.
func (e *Engine[S]) Store() *state.Store[S] {
	return e.store
}

// Codec returns the action codec.
func (e *Engine[S]) Codec() *state.Codec {
	return e.codec
}

// Session returns the session token stamped on journal entries.
func (e *Engine[S]) Session() string {
	return e.session
}

// Seq returns the seq of the last applied action.
func (e *Engine[S]) Seq() int64 {
	return e.clock.Current()
}

// Enqueue submits an action. It returns false once the engine is stopped.
func (e *Engine[S]) Enqueue(a state.Action) bool {
	return e.queue.Enqueue(event{typ: eventDispatch, action: a})
}

// EnqueueEncoded decodes an action from its kind and arguments and
// submits it.
func (e *Engine[S]) EnqueueEncoded(kind string, args map[string]any) error {
	a, err := e.codec.Decode(kind, args)
	if err != nil {
		return err
	}
	if !e.Enqueue(a) {
		return ErrStopped
	}
	return nil
}

// Call runs fn on the loop goroutine and waits for its result. Events
// enqueued earlier are processed first, so Call also acts as a barrier.
//
// If ctx is done before the loop reaches fn, fn never runs and Call returns
// ctx.Err(). Once fn has started, Call waits for it to finish.
func (e *Engine[S]) Call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	claim := &callClaim{}
	if !e.queue.Enqueue(event{typ: eventCall, call: fn, done: done, claim: claim}) {
		return ErrStopped
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if claim.abandon() {
			return ctx.Err()
		}
		return <-done
	}
}

// Run processes events until ctx is cancelled or Stop is called. Events
// already queued when Stop is called are still processed.
func (e *Engine[S]) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "session", e.session)

	for {
		ev, ok := e.queue.TryDequeue()
		if ok {
			e.processEvent(ctx, ev)
			continue
		}
		e.quota.Reset()

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel is closed by Stop.
			if e.queue.Closed() && e.queue.Len() == 0 {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop makes Run return once the queue is drained.
func (e *Engine[S]) Stop() {
	e.queue.Close()
}

// Detach disconnects the graph from the store. Later transitions are no
// longer propagated.
func (e *Engine[S]) Detach() {
	e.detach()
}

func (e *Engine[S]) processEvent(ctx context.Context, ev event) {
	switch ev.typ {
	case eventDispatch:
		start := time.Now()
		err := e.quota.Check(kindOf(ev.action))
		if err == nil {
			err = e.apply(ctx, ev.action)
		}
		if e.onAction != nil {
			e.onAction(kindOf(ev.action), time.Since(start), err)
		}
		if err != nil {
			e.logger.Error("action processing failed",
				"error", err,
				"kind", kindOf(ev.action),
				"seq", e.clock.Current(),
			)
			if e.onError != nil {
				e.onError(err)
			}
		}

	case eventCall:
		if !ev.claim.run() {
			e.logger.Debug("skipping abandoned call")
			return
		}
		ev.done <- e.runCall(ev.call)
	}
}

// apply dispatches a and journals it if the store accepted it.
func (e *Engine[S]) apply(ctx context.Context, a state.Action) error {
	err := e.dispatch(a)
	if err != nil && !IsProducerPanic(err) {
		return err
	}

	seq := e.clock.Next()
	if jerr := e.record(ctx, seq, a); jerr != nil {
		return errors.Join(err, jerr)
	}
	return err
}

func (e *Engine[S]) dispatch(a state.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewProducerPanicError(kindOf(a), r)
		}
	}()
	return e.dispatcher.Dispatch(a)
}

func (e *Engine[S]) record(ctx context.Context, seq int64, a state.Action) error {
	if e.journal == nil {
		return nil
	}

	kind, args, err := e.codec.Encode(a)
	if err != nil {
		return newJournalError(kindOf(a), seq, err)
	}
	v, err := payload.FromGo(args)
	if err != nil {
		return newJournalError(kind, seq, err)
	}
	obj, _ := v.(payload.Object)

	entry, err := journal.NewEntry(e.session, seq, kind, obj, int64(e.graph.CurrentTime()))
	if err != nil {
		return newJournalError(kind, seq, err)
	}
	if err := e.journal.Append(ctx, entry); err != nil {
		return newJournalError(kind, seq, err)
	}

	e.logger.Debug("action journaled",
		"kind", kind,
		"seq", seq,
		"tick", entry.Tick,
		"id", entry.ID,
	)
	return nil
}

func (e *Engine[S]) runCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RuntimeError{
				Code:    ErrCodeCallPanic,
				Message: fmt.Sprintf("call panicked: %v", r),
			}
		}
	}()
	return fn()
}

func kindOf(a state.Action) string {
	if a == nil {
		return ""
	}
	return a.ActionType()
}
