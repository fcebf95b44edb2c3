package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/jamc/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // rewrite golden files instead of comparing
	Filter string // glob over scenario file names, without extension
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult is the outcome of a test run.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run compiler scenarios",
		Long: `Run conformance scenarios through the compiler.

Each YAML scenario names a syntax tree and the facts its compilation must
produce. When golden/<scenario>.golden exists next to a scenario file, the
compiled conditions, activities and call edges are also compared against it.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  jamc test ./scenarios
  jamc test ./scenarios --filter "jdata-*"
  jamc test ./scenarios --update
  jamc test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}
	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	r := &scenarioRunner{
		ctx:     commandContext(cmd),
		h:       harness.New(harness.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr()))),
		opts:    opts,
		out:     cmd.OutOrStdout(),
		verbose: newFormatter(opts.RootOptions, cmd),
	}
	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, f := range files {
		sr := r.run(f)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	if result.Total == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}
	return outputTestText(cmd, result)
}

// findScenarioFiles lists the .yaml and .yml files under dir in lexical
// order. Golden directories are not descended into.
func findScenarioFiles(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir():
			if path != dir && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

type scenarioRunner struct {
	ctx     context.Context
	h       *harness.Harness
	opts    *TestOptions
	out     io.Writer
	verbose *OutputFormatter
}

// run executes one scenario file. Text mode prints its outcome as it goes.
func (r *scenarioRunner) run(file string) ScenarioResult {
	name, errs := r.check(file)

	if r.opts.Format != "json" {
		mark := "✓"
		if len(errs) > 0 {
			mark = "✗"
		}
		fmt.Fprintf(r.out, "%s %s\n", mark, name)
		for _, e := range errs {
			fmt.Fprintf(r.out, "  %s\n", e)
		}
	}
	return ScenarioResult{Name: name, Pass: len(errs) == 0, Errors: errs}
}

// check returns the scenario's name, or the file name when it does not load,
// and its failures.
func (r *scenarioRunner) check(file string) (string, []string) {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return filepath.Base(file), []string{fmt.Sprintf("failed to load scenario: %v", err)}
	}
	return scenario.Name, r.compare(file, scenario)
}

func (r *scenarioRunner) compare(file string, scenario *harness.Scenario) []string {
	result, err := r.h.Run(r.ctx, scenario)
	if err != nil {
		return []string{fmt.Sprintf("execution failed: %v", err)}
	}
	errs := append([]string(nil), result.Errors...)

	snapshot, err := harness.NewSnapshot(scenario.Name, result).Canonical()
	if err != nil {
		return append(errs, fmt.Sprintf("failed to build snapshot: %v", err))
	}
	golden := goldenFilePath(file)

	if r.opts.Update {
		if err := writeGoldenFile(golden, snapshot); err != nil {
			return append(errs, fmt.Sprintf("failed to update golden file: %v", err))
		}
		r.verbose.VerboseLog("Updated %s", golden)
		return errs
	}

	want, err := os.ReadFile(golden)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No golden file: the expectations alone decide.
	case err != nil:
		errs = append(errs, fmt.Sprintf("golden comparison failed: %v", err))
	case !bytes.Equal(want, snapshot):
		errs = append(errs, "compiled output does not match golden file (run with --update to regenerate)")
	}
	return errs
}

// goldenFilePath returns golden/<name>.golden next to the scenario file.
func goldenFilePath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	return filepath.Join(filepath.Dir(scenarioFile), "golden", strings.TrimSuffix(base, filepath.Ext(base))+".golden")
}

func writeGoldenFile(path string, snapshot []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, snapshot, 0644)
}

func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed == 0 {
		return writeJSON(cmd, response)
	}

	msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
	response.Status = "error"
	response.Error = &CLIError{Code: ErrCodeTestsFailing, Message: msg}
	if err := writeJSON(cmd, response); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}

func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
