package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/jamc/internal/compiler"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	PassOptions
}

// CheckResult holds check results.
type CheckResult struct {
	Valid      bool                       `json:"valid"`
	MaxLevel   int                        `json:"max_level,omitempty"`
	Conditions int                        `json:"conditions"`
	Activities int                        `json:"activities"`
	Errors     []compiler.ValidationError `json:"errors,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{PassOptions: PassOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "check <tree>",
		Short: "Compile and validate a tree without writing output",
		Long: `Compile a JAMScript syntax tree and validate the result.

Runs the full pass, then checks the compiled conditions and activities for
internal consistency. Nothing is written. Faster feedback than compile for
development.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	addPassFlags(cmd, &opts.PassOptions)

	return cmd
}

func runCheck(opts *CheckOptions, treePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	out, err := compileTree(commandContext(cmd), &opts.PassOptions, treePath, formatter, newLogger(opts.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		return outputPassError(formatter, err)
	}

	result := CheckResult{
		Valid:      true,
		MaxLevel:   out.MaxLevel,
		Conditions: len(out.Conditions),
		Activities: len(out.Activities),
		Errors:     compiler.Validate(out),
	}
	if len(result.Errors) > 0 {
		result.Valid = false
		return outputValidationErrors(formatter, result)
	}
	return outputCheckSuccess(formatter, treePath, result)
}

// outputCheckSuccess outputs successful validation results.
func outputCheckSuccess(formatter *OutputFormatter, treePath string, result CheckResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %s is valid: %d condition(s), %d activity(ies), max level %d\n",
		treePath, result.Conditions, result.Activities, result.MaxLevel)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result CheckResult) error {
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

		if err := encodeResponse(formatter.Writer, response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
