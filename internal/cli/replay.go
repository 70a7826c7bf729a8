package cli

import (
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/roach88/selgraph/internal/journal"
	"github.com/roach88/selgraph/internal/logging"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplaySessionResult is the replay outcome of one session.
type ReplaySessionResult struct {
	Session       string         `json:"session"`
	Label         string         `json:"label,omitempty"`
	Entries       int            `json:"entries"`
	Tick          int64          `json:"tick"`
	Digest        string         `json:"digest"`
	Values        map[string]any `json:"values"`
	Deterministic bool           `json:"deterministic"`
	Diff          string         `json:"diff,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal and verify determinism",
		Long: `Replay journaled sessions and verify that they are deterministic.

Each session's entries are applied in seq order to a fresh counter store
with the selector graph attached, twice. Both runs must end with the same
snapshot digest, tick and selector values.

Exit codes:
  0 - All sessions are deterministic
  1 - Determinism verification failed
  2 - Command error (journal not found, undecodable entry, etc.)

Examples:
  selgraph replay --db ./selgraph.db
  selgraph replay --db ./selgraph.db --session test-session-chain
  selgraph replay --db ./selgraph.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := NewOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	j, err := openExistingJournal(opts.Database)
	if err != nil {
		return err
	}
	defer j.Close()

	sessions, err := j.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}
	if opts.Session != "" {
		sessions = filterSessions(sessions, opts.Session)
		if len(sessions) == 0 {
			return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", opts.Session))
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}
	for _, s := range sessions {
		out.VerboseLog("replaying session %s (%d entries)", s.ID, s.Entries)
		sr, err := replayAndVerifySession(ctx, j, s, opts.Verbose)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", s.ID), err)
		}
		result.Sessions = append(result.Sessions, sr)
		if !sr.Deterministic {
			result.AllDeterministic = false
		}
	}

	if out.IsJSON() {
		var failure *CLIError
		if !result.AllDeterministic {
			failure = &CLIError{Code: CodeNonDeterminism, Message: "determinism verification failed"}
		}
		if err := out.Result(result, failure); err != nil {
			return err
		}
	} else {
		writeReplayText(cmd, result, opts.Verbose)
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// replayAndVerifySession replays one session twice and compares the runs.
func replayAndVerifySession(ctx context.Context, j *journal.Journal, s journal.Session, verbose bool) (ReplaySessionResult, error) {
	entries, err := j.ReadSession(ctx, s.ID)
	if err != nil {
		return ReplaySessionResult{}, err
	}

	first, err := replayOnce(ctx, s.ID, entries, verbose)
	if err != nil {
		return ReplaySessionResult{}, fmt.Errorf("first replay failed: %w", err)
	}
	second, err := replayOnce(ctx, s.ID, entries, verbose)
	if err != nil {
		return ReplaySessionResult{}, fmt.Errorf("second replay failed: %w", err)
	}

	diff := cmp.Diff(first, second)
	return ReplaySessionResult{
		Session:       s.ID,
		Label:         s.Label,
		Entries:       len(entries),
		Tick:          first.Tick,
		Digest:        first.Digest,
		Values:        first.Values,
		Deterministic: diff == "",
		Diff:          diff,
	}, nil
}

// replayOnce applies entries to a fresh engine without a journal and
// returns the final snapshot.
func replayOnce(ctx context.Context, session string, entries []journal.Entry, verbose bool) (AppSnapshot, error) {
	app, err := startCounterApp(ctx, appConfig{
		Session: session,
		Entries: entries,
		Logger:  logging.ForVerbosity(verbose),
	})
	if err != nil {
		return AppSnapshot{}, err
	}
	snap, err := app.Snapshot(ctx)
	if closeErr := app.Close(); err == nil {
		err = closeErr
	}
	return snap, err
}

func writeReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, s := range result.Sessions {
		status := "✓"
		if !s.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Session: %s\n", status, s.Session)
		fmt.Fprintf(w, "  Entries: %d, final tick %d\n", s.Entries, s.Tick)
		if verbose {
			fmt.Fprintf(w, "  Digest: %s\n", s.Digest)
			writeValues(w, s.Values)
		}
		if !s.Deterministic {
			fmt.Fprintln(w, "  Warning: Non-deterministic replay detected!")
			fmt.Fprintln(w, s.Diff)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All sessions verified deterministic")
		return
	}
	fmt.Fprintln(w, "✗ Determinism verification failed")
}

func filterSessions(sessions []journal.Session, id string) []journal.Session {
	for _, s := range sessions {
		if s.ID == id {
			return []journal.Session{s}
		}
	}
	return nil
}
