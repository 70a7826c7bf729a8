package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/selgraph/internal/journal"
	"github.com/roach88/selgraph/internal/payload"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Kind     string // optional - filter to one action kind
}

// TraceEvent is one journaled action in a session timeline.
type TraceEvent struct {
	Seq  int64          `json:"seq"`
	Tick int64          `json:"tick"`
	Kind string         `json:"kind"`
	Args payload.Object `json:"args"`
	ID   string         `json:"id"`
}

// TraceStats summarizes a session timeline.
type TraceStats struct {
	TotalEntries int            `json:"total_entries"`
	Shown        int            `json:"shown"`
	ByKind       map[string]int `json:"by_kind"`
	FirstSeq     int64          `json:"first_seq"`
	LastSeq      int64          `json:"last_seq"`
	LastTick     int64          `json:"last_tick"`
}

// TraceResult is the timeline of one session.
type TraceResult struct {
	Session  string       `json:"session"`
	Label    string       `json:"label,omitempty"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled sessions and their actions",
		Long: `Show the action journal.

Without --session, lists every session with its entry count and seq range.
With --session, prints the session's timeline in seq order: each applied
action with the tick it produced and its arguments.

Examples:
  selgraph trace --db ./selgraph.db
  selgraph trace --db ./selgraph.db --session test-session-chain
  selgraph trace --db ./selgraph.db --session test-session-chain --kind counter/set`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to trace")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one action kind")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
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

	if opts.Session == "" {
		if out.IsJSON() {
			return out.Success(sessions)
		}
		writeSessions(cmd.OutOrStdout(), sessions)
		return nil
	}

	found := filterSessions(sessions, opts.Session)
	if len(found) == 0 {
		out.Error(CodeNotFound, fmt.Sprintf("session not found: %s", opts.Session), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", opts.Session))
	}

	entries, err := j.ReadSession(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	result := buildTrace(found[0], entries, opts.Kind)

	if out.IsJSON() {
		return out.Success(result)
	}
	writeTraceText(cmd.OutOrStdout(), result, opts.Verbose)
	return nil
}

// buildTrace converts entries to a timeline. Stats cover every entry; the
// timeline only those matching kind when it is set.
func buildTrace(s journal.Session, entries []journal.Entry, kind string) TraceResult {
	result := TraceResult{
		Session:  s.ID,
		Label:    s.Label,
		Timeline: []TraceEvent{},
		Stats: TraceStats{
			TotalEntries: len(entries),
			ByKind:       make(map[string]int),
		},
	}

	for i, e := range entries {
		result.Stats.ByKind[e.Kind]++
		if i == 0 {
			result.Stats.FirstSeq = e.Seq
		}
		result.Stats.LastSeq = e.Seq
		result.Stats.LastTick = e.Tick

		if kind != "" && e.Kind != kind {
			continue
		}
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:  e.Seq,
			Tick: e.Tick,
			Kind: e.Kind,
			Args: e.Args,
			ID:   e.ID,
		})
	}
	result.Stats.Shown = len(result.Timeline)
	return result
}

func writeSessions(w io.Writer, sessions []journal.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions in journal.")
		return
	}
	fmt.Fprintf(w, "%d session(s)\n", len(sessions))
	for _, s := range sessions {
		fmt.Fprintf(w, "  %s  entries=%d seq=%d..%d", s.ID, s.Entries, s.FirstSeq, s.LastSeq)
		if s.Label != "" {
			fmt.Fprintf(w, "  (%s)", s.Label)
		}
		fmt.Fprintln(w)
	}
}

func writeTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session)
	if result.Label != "" {
		fmt.Fprintf(w, "Label: %s\n", result.Label)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no entries)")
	}
	for _, ev := range result.Timeline {
		fmt.Fprintf(w, "  [%d] tick=%d %s %s\n", ev.Seq, ev.Tick, ev.Kind, payload.MustCanonical(ev.Args))
		if verbose {
			fmt.Fprintf(w, "       ID: %s\n", truncateID(ev.ID))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Entries:   %d (%d shown)\n", result.Stats.TotalEntries, result.Stats.Shown)
	fmt.Fprintf(w, "  Seq range: %d..%d\n", result.Stats.FirstSeq, result.Stats.LastSeq)
	fmt.Fprintf(w, "  Last tick: %d\n", result.Stats.LastTick)

	kinds := make([]string, 0, len(result.Stats.ByKind))
	for k := range result.Stats.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "    %-20s %d\n", k, result.Stats.ByKind[k])
	}
}

// truncateID shortens a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
