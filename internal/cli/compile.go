package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/roach88/jamc/internal/compiler"
	"github.com/roach88/jamc/internal/ir"
	"github.com/roach88/jamc/internal/store"
	"github.com/roach88/jamc/internal/symtab"
)

// PassOptions holds the flags shared by compile and check.
type PassOptions struct {
	*RootOptions
	Manifest   string // manifest path; default: jamc.yaml next to the tree
	YieldPoint bool   // force yield points on
	Install    bool   // force dependency installation on
}

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	PassOptions
	Output   string // output file path
	Database string // compilation history; empty disables recording

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs store.RunIDGenerator
}

// CompilationResult is the JSON payload of a successful compile.
type CompilationResult struct {
	Input      string         `json:"input"`
	OutputFile string         `json:"output_file,omitempty"`
	Program    string         `json:"program,omitempty"`
	RunID      string         `json:"run_id,omitempty"`
	OutputHash string         `json:"output_hash"`
	MaxLevel   int            `json:"max_level"`
	HasJData   bool           `json:"has_jdata"`
	Conditions []ir.Condition `json:"conditions"`
	Activities []ir.Activity  `json:"activities"`
	Functions  []string       `json:"functions"`
	Flows      []string       `json:"flows"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{PassOptions: PassOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "compile <tree>",
		Short: "Translate a JAMScript syntax tree",
		Long: `Translate a JAMScript syntax tree into the host program.

The tree is read from a .json, .yaml or .cue file. The translated program
is written to --output, or to stdout when no output file is given. With
--db the run is recorded in the compilation history.

Example:
  jamc compile app.json -o app.js
  jamc compile app.json --db ./jamc.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	addPassFlags(cmd, &opts.PassOptions)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")

	return cmd
}

func addPassFlags(cmd *cobra.Command, opts *PassOptions) {
	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "project manifest (default: jamc.yaml next to the tree)")
	cmd.Flags().BoolVar(&opts.YieldPoint, "yield-point", false, "insert yield points in loop bodies")
	cmd.Flags().BoolVar(&opts.Install, "install", false, "install missing required modules")
}

func runCompile(opts *CompileOptions, treePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	out, err := compileTree(ctx, &opts.PassOptions, treePath, formatter, newLogger(opts.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		return outputPassError(formatter, err)
	}

	hash, err := ir.OutputHash(out)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("hashing output: %v", err))
	}
	result := &CompilationResult{
		Input:      treePath,
		OutputFile: opts.Output,
		OutputHash: hash,
		MaxLevel:   out.MaxLevel,
		HasJData:   out.HasJData,
		Conditions: out.Conditions,
		Activities: out.Activities,
		Functions:  out.Functions,
		Flows:      out.Flows,
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(out.Text()), 0644); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
	} else {
		result.Program = out.Text()
	}

	if opts.Database != "" {
		run, err := recordRun(ctx, opts, treePath, out)
		if err != nil {
			return outputCommandError(formatter, ErrCodeStore, err.Error())
		}
		result.RunID = run.ID
		formatter.VerboseLog("Recorded run %s (seq %d)", run.ID, run.Seq)
	}

	return outputCompileSuccess(formatter, result)
}

// compileTree loads the manifest and the tree and runs one pass.
func compileTree(ctx context.Context, opts *PassOptions, treePath string, formatter *OutputFormatter, logger *slog.Logger) (*ir.Output, error) {
	manifest, manifestPath, err := LoadManifest(opts.Manifest, filepath.Dir(treePath))
	if err != nil {
		return nil, err
	}
	base := filepath.Dir(treePath)
	if manifestPath != "" {
		base = filepath.Dir(manifestPath)
		formatter.VerboseLog("Using manifest %s", manifestPath)
	}
	if opts.Install {
		manifest.Install.Enabled = true
	}

	tree, err := LoadTree(treePath)
	if err != nil {
		return nil, err
	}
	formatter.VerboseLog("Compiling %s", treePath)

	return compiler.Compile(ctx, tree, symtab.NewManager(), manifest.YieldPoint || opts.YieldPoint, manifest.Exports,
		compiler.WithLogger(logger),
		compiler.WithResolver(manifest.Resolver(base, logger)),
	)
}

func recordRun(ctx context.Context, opts *CompileOptions, treePath string, out *ir.Output) (store.Run, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return store.Run{}, fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	ids := opts.RunIDs
	if ids == nil {
		ids = store.UUIDv7Generator{}
	}
	run, err := st.WriteRun(ctx, ids.Generate(), treePath, out)
	if err != nil {
		return store.Run{}, fmt.Errorf("recording run: %w", err)
	}
	return run, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if result.OutputFile == "" {
		fmt.Fprint(formatter.Writer, result.Program)
		formatter.VerboseLog("✓ Compiled %s: %d condition(s), %d activity(ies), max level %d",
			result.Input, len(result.Conditions), len(result.Activities), result.MaxLevel)
		return nil
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %s: %d condition(s), %d activity(ies), max level %d\n",
		result.Input, len(result.Conditions), len(result.Activities), result.MaxLevel)
	fmt.Fprintf(formatter.Writer, "Wrote %s\n", result.OutputFile)
	if result.RunID != "" {
		fmt.Fprintf(formatter.Writer, "Recorded run %s\n", result.RunID)
	}
	return nil
}

// outputPassError reports a failed pass. Load and manifest problems are
// command errors (exit 2); compile errors are failures (exit 1).
func outputPassError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return outputCommandError(formatter, loadErr.Code, loadErr.Message)
	}
	if _, ok := compiler.KindOf(err); !ok {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	errs := multierr.Errors(err)
	cliErrors := make([]CLIError, len(errs))
	for i, e := range errs {
		cliErrors[i] = toCLIError(e)
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}
		if err := encodeResponse(formatter.Writer, response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range cliErrors {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", e.Code, e.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// toCLIError converts one compile error, keeping its source interval.
func toCLIError(err error) CLIError {
	var ce *compiler.CompileError
	if !errors.As(err, &ce) {
		return CLIError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	e := CLIError{Code: MapKindToErrorCode(ce.Kind), Message: ce.Error()}
	if ce.Pos.Valid() {
		e.Details = map[string]int{"from": ce.Pos.From, "to": ce.Pos.To}
	}
	return e
}

// outputCommandError outputs a single command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}
