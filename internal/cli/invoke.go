package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/selgraph/internal/engine"
	"github.com/roach88/selgraph/internal/journal"
	"github.com/roach88/selgraph/internal/logging"
	"github.com/roach88/selgraph/internal/payload"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Database string
	Session  string
	Args     string
}

// InvokeResult is the state after an invoked action.
type InvokeResult struct {
	Kind     string `json:"kind"`
	Restored int    `json:"restored"`
	AppSnapshot
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <kind>",
		Short: "Apply one action to a journaled session",
		Long: `Apply one action to a journaled counter session and print the selector
values afterwards.

The session is restored from the journal, the action is applied and
appended, and the engine stops. Without --session a new session is started.

Example:
  selgraph invoke counter/set --args '{"value":12}' --db ./selgraph.db
  selgraph invoke counter/increment --db ./selgraph.db --session 0192...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeAction(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to resume")
	cmd.Flags().StringVar(&opts.Args, "args", "{}", "action arguments as JSON")

	return cmd
}

func invokeAction(opts *InvokeOptions, kind string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := NewOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	args, err := parseArgs(opts.Args)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --args", err)
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	var failures []error
	app, err := startCounterApp(ctx, appConfig{
		Journal: j,
		Session: opts.Session,
		Label:   "invoke",
		Logger:  logging.ForVerbosity(opts.Verbose),
		Options: []engine.Option{
			engine.WithErrorHandler(func(err error) { failures = append(failures, err) }),
		},
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start engine", err)
	}
	out.VerboseLog("restored %d entries into session %s", app.Restored, app.Engine.Session())

	if err := app.Engine.EnqueueEncoded(kind, args); err != nil {
		app.Close()
		out.Error(CodeDispatch, err.Error(), map[string]any{"kind": kind})
		return WrapExitError(ExitCommandError, "failed to dispatch", err)
	}
	snap, err := app.Snapshot(ctx)
	if closeErr := app.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return WrapExitError(ExitFailure, "engine error", err)
	}
	// failures is only written on the loop goroutine, which has exited.
	if len(failures) > 0 {
		err := errors.Join(failures...)
		out.Error(CodeDispatch, err.Error(), map[string]any{"kind": kind})
		return WrapExitError(ExitFailure, "action failed", err)
	}

	result := InvokeResult{Kind: kind, Restored: app.Restored, AppSnapshot: snap}
	if out.IsJSON() {
		return out.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Applied %s to session %s\n", kind, snap.Session)
	fmt.Fprintf(w, "  seq=%d tick=%d restored=%d\n", snap.Seq, snap.Tick, result.Restored)
	writeValues(w, snap.Values)
	return nil
}

// parseArgs decodes a JSON object of action arguments. Numbers must be
// integers.
func parseArgs(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	v, err := payload.Parse([]byte(raw))
	if err != nil {
		return nil, err
	}
	obj, ok := v.(payload.Object)
	if !ok {
		return nil, fmt.Errorf("arguments must be a JSON object, got %s", payload.MustCanonical(v))
	}
	return payload.ToGo(obj).(map[string]any), nil
}

// writeValues prints selector values sorted by name.
func writeValues(w io.Writer, values map[string]any) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-8s %v\n", name, values[name])
	}
}

// commandContext returns the command's context, or Background when it has
// none (commands executed directly in tests).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
