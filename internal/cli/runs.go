package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/jamc/internal/ir"
	"github.com/roach88/jamc/internal/store"
)

// HistoryOptions holds flags for the runs and show commands.
type HistoryOptions struct {
	*RootOptions
	Database string
	Callers  string // show: list the callers of this function
	Since    string // show: list the conditions changed since this run
}

// RunDetail is a recorded run with its child rows.
type RunDetail struct {
	store.Run
	Conditions []ir.Condition `json:"conditions"`
	Activities []ir.Activity  `json:"activities"`
	Calls      []ir.CallEdge  `json:"calls"`
	Exports    []ir.Export    `json:"exports"`
	Callers    []string       `json:"callers,omitempty"`
	Changed    []string       `json:"changed,omitempty"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded compilation runs",
		Long: `List the runs recorded with compile --db, oldest first.

Example:
  jamc runs --db ./jamc.db
  jamc runs --db ./jamc.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded compilation run",
		Long: `Show the conditions, activities, call edges and exports of a run.

Example:
  jamc show --db ./jamc.db 0190a0c4-6b1e-7c3a-9f00-5d2a1e4b7c11
  jamc show --db ./jamc.db <run-id> --callers sense
  jamc show --db ./jamc.db <run-id> --since <earlier-run-id>`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Callers, "callers", "", "list the functions that call this one")
	cmd.Flags().StringVar(&opts.Since, "since", "", "list the conditions that changed since this run")

	return cmd
}

// openHistory opens an existing database. Unlike compile --db, reading
// commands never create one.
func openHistory(path string) (*store.Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runRuns(opts *HistoryOptions, cmd *cobra.Command) error {
	st, err := openHistory(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd, CLIResponse{Status: "ok", Data: runs})
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		jdata := ""
		if r.HasJData {
			jdata = " jdata"
		}
		fmt.Fprintf(w, "%4d  %s  %s  level %d%s\n", r.Seq, r.ID, r.Input, r.MaxLevel, jdata)
	}
	return nil
}

func runShow(opts *HistoryOptions, runID string, cmd *cobra.Command) error {
	st, err := openHistory(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := commandContext(cmd)
	detail, err := loadRunDetail(ctx, st, runID)
	if errors.Is(err, sql.ErrNoRows) {
		formatter := newFormatter(opts.RootOptions, cmd)
		_ = formatter.Error(ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", runID), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if opts.Callers != "" {
		callers, err := st.Callers(ctx, runID, opts.Callers)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to query callers", err)
		}
		detail.Callers = callers
	}
	if opts.Since != "" {
		_, err := st.ReadRun(ctx, opts.Since)
		if errors.Is(err, sql.ErrNoRows) {
			formatter := newFormatter(opts.RootOptions, cmd)
			_ = formatter.Error(ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", opts.Since), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.Since))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		changed, err := st.ChangedConditions(ctx, opts.Since, runID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to compare conditions", err)
		}
		detail.Changed = changed
	}

	if opts.Format == "json" {
		return writeJSON(cmd, CLIResponse{Status: "ok", Data: detail})
	}
	printRunDetail(cmd, opts, detail)
	return nil
}

func loadRunDetail(ctx context.Context, st *store.Store, runID string) (*RunDetail, error) {
	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	d := &RunDetail{Run: run}
	if d.Conditions, err = st.ReadConditions(ctx, runID); err != nil {
		return nil, err
	}
	if d.Activities, err = st.ReadActivities(ctx, runID); err != nil {
		return nil, err
	}
	if d.Calls, err = st.ReadCallEdges(ctx, runID); err != nil {
		return nil, err
	}
	if d.Exports, err = st.ReadExports(ctx, runID); err != nil {
		return nil, err
	}
	return d, nil
}

func printRunDetail(cmd *cobra.Command, opts *HistoryOptions, d *RunDetail) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s (seq %d)\n", d.ID, d.Seq)
	fmt.Fprintf(w, "  input:     %s\n", d.Input)
	fmt.Fprintf(w, "  hash:      %s\n", d.OutputHash)
	fmt.Fprintf(w, "  max level: %d\n", d.MaxLevel)
	fmt.Fprintf(w, "  jdata:     %t\n", d.HasJData)
	fmt.Fprintf(w, "  compiler:  %s (IR %s)\n", d.CompilerVersion, d.IRVersion)

	if len(d.Conditions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Conditions:")
		for _, c := range d.Conditions {
			fmt.Fprintf(w, "  %s [%d]: %s\n", c.Name, c.Code, c.Expression)
		}
	}
	if len(d.Activities) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Activities:")
		for _, a := range d.Activities {
			fmt.Fprintf(w, "  %s %s(%d param(s)) [%d]\n", a.Kind, a.Name, len(a.Params), a.JCond.Code)
		}
	}
	if len(d.Calls) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Calls:")
		for _, c := range d.Calls {
			fmt.Fprintf(w, "  %s → %s%s\n", c.Caller, c.Callee, c.Args)
		}
	}
	if len(d.Exports) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Exports:")
		for _, e := range d.Exports {
			fmt.Fprintf(w, "  %s %s (%s)\n", e.Side, e.Function, e.Level)
		}
	}
	if opts.Callers != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Callers of %s:\n", opts.Callers)
		for _, c := range d.Callers {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
	if opts.Since != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Conditions changed since %s:\n", opts.Since)
		if len(d.Changed) == 0 {
			fmt.Fprintln(w, "  none")
		}
		for _, c := range d.Changed {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
}

func writeJSON(cmd *cobra.Command, response CLIResponse) error {
	return encodeResponse(cmd.OutOrStdout(), response)
}
