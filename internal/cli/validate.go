package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/selgraph/internal/harness"
)

// FileValidation is the validation outcome of one scenario file.
type FileValidation struct {
	Path    string `json:"path"`
	Name    string `json:"name,omitempty"`
	Valid   bool   `json:"valid"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-path>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files against the scenario schema.

Each path is a YAML file or a directory of YAML files. Files are checked
against the CUE schema, decoded strictly, and checked for references to
unknown nodes and duplicate subscriptions.

Exit codes:
  0 - All scenarios valid
  1 - One or more scenarios invalid
  2 - Command error (path not found)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	out := NewOutputFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	files, err := harness.FindScenarios(paths)
	if err != nil {
		var notFound *harness.ScenarioNotFoundError
		if errors.As(err, &notFound) {
			out.Error(CodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "scenario not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, path := range files {
		out.VerboseLog("validating %s", path)
		fv := validateFile(path)
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if out.IsJSON() {
		var failure *CLIError
		if !result.Valid {
			failure = &CLIError{Code: CodeSchema, Message: "one or more scenarios are invalid"}
		}
		if err := out.Result(result, failure); err != nil {
			return err
		}
	} else {
		writeValidationText(cmd, result, opts.Verbose)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func validateFile(path string) FileValidation {
	scenario, err := harness.LoadScenario(path)
	if err == nil {
		return FileValidation{Path: path, Name: scenario.Name, Valid: true}
	}

	fv := FileValidation{Path: path, Error: err.Error()}
	var schemaErr *harness.SchemaError
	if errors.As(err, &schemaErr) {
		fv.Details = schemaErr.Details
	}
	return fv
}

func writeValidationText(cmd *cobra.Command, result ValidationResult, verbose bool) {
	w := cmd.OutOrStdout()
	invalid := 0
	for _, f := range result.Files {
		if f.Valid {
			if verbose {
				fmt.Fprintf(w, "✓ %s (%s)\n", f.Path, f.Name)
			}
			continue
		}
		invalid++
		fmt.Fprintf(w, "✗ %s\n", f.Path)
		if f.Details != "" {
			fmt.Fprintf(w, "  %s\n", f.Details)
		} else {
			fmt.Fprintf(w, "  %s\n", f.Error)
		}
	}

	if result.Valid {
		fmt.Fprintf(w, "✓ All scenarios valid (%d file(s))\n", len(result.Files))
		return
	}
	fmt.Fprintf(w, "✗ %d of %d scenario(s) invalid\n", invalid, len(result.Files))
}
