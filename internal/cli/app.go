package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/roach88/selgraph/internal/counter"
	"github.com/roach88/selgraph/internal/engine"
	"github.com/roach88/selgraph/internal/journal"
	"github.com/roach88/selgraph/internal/payload"
	"github.com/roach88/selgraph/internal/state"
)

// appConfig describes how to assemble a counter engine.
type appConfig struct {
	Journal *journal.Journal // optional; new actions are appended here
	Session string           // resume this session; empty starts a new one
	Label   string           // label for a new session
	Entries []journal.Entry  // restored instead of the session's journal entries
	Logger  *slog.Logger
	Options []engine.Option
}

// counterApp is a running counter engine with its selectors. Its state was
// restored from the resumed session's journal entries.
type counterApp struct {
	Engine    *engine.Engine[*counter.State]
	Selectors *counter.Selectors
	Restored  int

	done chan error
}

// AppSnapshot is the observable state of a counter app.
type AppSnapshot struct {
	Session string         `json:"session"`
	Tick    int64          `json:"tick"`
	Seq     int64          `json:"seq"`
	Digest  string         `json:"digest"`
	Values  map[string]any `json:"values"`
}

// startCounterApp builds an engine, starts its loop and restores the
// session's entries. Callers must Close the app.
func startCounterApp(ctx context.Context, cfg appConfig) (*counterApp, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []engine.Option{engine.WithLogger(logger)}
	entries := cfg.Entries
	if cfg.Journal != nil {
		lastSeq, err := cfg.Journal.LastSeq(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithJournal(cfg.Journal), engine.WithClock(engine.NewClockAt(lastSeq)))

		if cfg.Session != "" && entries == nil {
			entries, err = cfg.Journal.ReadSession(ctx, cfg.Session)
			if err != nil {
				return nil, err
			}
		}
	}
	if cfg.Session != "" {
		opts = append(opts, engine.WithSessionGenerator(engine.NewFixedGenerator(cfg.Session)))
	}
	opts = append(opts, cfg.Options...)

	eng, err := engine.New(counter.NewStore(state.WithStoreLogger(logger)), counter.Codec(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	sel, err := counter.NewSelectors(eng.Graph())
	if err != nil {
		return nil, fmt.Errorf("failed to create selectors: %w", err)
	}

	if cfg.Journal != nil {
		if err := cfg.Journal.BeginSession(ctx, eng.Session(), cfg.Label); err != nil {
			return nil, err
		}
	}

	app := &counterApp{Engine: eng, Selectors: sel, done: make(chan error, 1)}
	go func() { app.done <- eng.Run(context.WithoutCancel(ctx)) }()

	app.Restored, err = eng.Restore(ctx, entries)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to restore session %s: %w", cfg.Session, err)
	}
	logger.Debug("session restored", "session", eng.Session(), "entries", app.Restored)
	return app, nil
}

// Snapshot reads the app state on the loop goroutine, after every action
// enqueued so far.
func (a *counterApp) Snapshot(ctx context.Context) (AppSnapshot, error) {
	var snap AppSnapshot
	err := a.Engine.Call(ctx, func() error {
		v, err := payload.FromGo(a.Engine.Store().Current())
		if err != nil {
			return err
		}
		digest, err := payload.SnapshotDigest(v)
		if err != nil {
			return err
		}
		snap = AppSnapshot{
			Session: a.Engine.Session(),
			Tick:    int64(a.Engine.Graph().CurrentTime()),
			Seq:     a.Engine.Seq(),
			Digest:  digest,
			Values:  a.Selectors.Values(),
		}
		return nil
	})
	return snap, err
}

// Close stops the loop once the queue is drained and waits for it.
func (a *counterApp) Close() error {
	a.Engine.Stop()
	return <-a.done
}

// openExistingJournal opens a journal that must already exist. Opening a
// missing path would silently create an empty database.
func openExistingJournal(path string) (*journal.Journal, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", path))
	}
	j, err := journal.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return j, nil
}
