package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/spotview/internal/layout"
)

// LayoutIssue is one compile or validation problem of a layout file.
type LayoutIssue struct {
	Code    string `json:"code"`
	Panel   string `json:"panel,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool          `json:"valid"`
	Panels int           `json:"panels"`
	Links  int           `json:"links"`
	Errors []LayoutIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [layout.cue]",
		Short: "Compile and validate a panel layout",
		Long: `Compile a CUE panel layout against the layout schema and check its
bindings and link graph: panel kinds fit their scopes, link members share
the hub's scope and accept gestures, and links form stars without cycles.

Without an argument the layout from ~/.spotview is checked, or the
built-in default layout when none is set.`,
		Args: cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Layout
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var l *layout.Layout
	if path == "" {
		formatter.VerboseLog("Validating built-in default layout")
		l = layout.Default()
	} else {
		formatter.VerboseLog("Validating %s", path)
		var err error
		l, err = layout.CompileFile(path)
		if err != nil {
			var cerr *layout.CompileError
			if errors.As(err, &cerr) {
				return outputValidationErrors(formatter, ValidationResult{Errors: []LayoutIssue{{
					Code:    ErrCodeLayout,
					Panel:   cerr.Field,
					Message: cerr.Message,
					Line:    lineOf(cerr.Pos),
				}}})
			}
			return formatter.Fail(ExitCommandError, "read layout", err)
		}
	}

	result := ValidationResult{Panels: len(l.Panels), Links: len(l.Links)}
	for _, verr := range l.Validate() {
		result.Errors = append(result.Errors, LayoutIssue{
			Code:    verr.Code,
			Panel:   verr.Panel,
			Message: verr.Message,
			Line:    lineOf(verr.Pos),
		})
	}
	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}

	result.Valid = true
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Layout valid (%d panels, %d links)\n", result.Panels, result.Links)
	return nil
}

func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		if err.Panel != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Panel, err.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
