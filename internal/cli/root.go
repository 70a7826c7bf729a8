package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// Output formats accepted by --format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ValidFormats lists the values --format accepts.
var ValidFormats = []string{FormatText, FormatJSON}

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

// RootOptions carries the persistent flags every subcommand shares.
type RootOptions struct {
	Verbose bool
	Format  string
}

// NewRootCommand builds the selgraph command tree. Errors are returned to
// the caller rather than printed, so that main decides the exit code.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "selgraph",
		Short:   "Drive a counter store through a reactive selector graph",
		Long:    "Run, serve and replay a counter application whose derived values live in a reactive selector graph.\nActions are journaled per session in SQLite, so any session can be traced or replayed later.",
		Version: Version,
		Example: `  selgraph invoke counter/increment --db journal.db
  selgraph trace --db journal.db
  selgraph replay --db journal.db --session <id>
  selgraph serve --db journal.db --addr :8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log engine and graph activity")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (json|text)")

	cmd.AddCommand(
		NewValidateCommand(opts),
		NewTestCommand(opts),
		NewInvokeCommand(opts),
		NewReplayCommand(opts),
		NewTraceCommand(opts),
		NewServeCommand(opts),
	)

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
