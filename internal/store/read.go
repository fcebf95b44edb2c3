package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/jamc/internal/ir"
)

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const runColumns = `seq, id, input, output_hash, max_level, has_jdata, ir_version, compiler_version`

func scanRun(row scanner) (Run, error) {
	var (
		r        Run
		hasJData int
	)
	err := row.Scan(&r.Seq, &r.ID, &r.Input, &r.OutputHash, &r.MaxLevel, &hasJData, &r.IRVersion, &r.CompilerVersion)
	if err != nil {
		return Run{}, err
	}
	r.HasJData = hasJData != 0
	return r, nil
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns all runs, oldest first.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadConditions returns the named-condition table of a run in source
// order. Dependent flow declarations are not stored.
func (s *Store) ReadConditions(ctx context.Context, runID string) ([]ir.Condition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, expression, code, callbacks, broadcast_deps
		FROM conditions
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query conditions: %w", err)
	}
	defer rows.Close()

	conds := []ir.Condition{}
	for rows.Next() {
		var (
			c                 ir.Condition
			callbacks, bcasts string
		)
		if err := rows.Scan(&c.Name, &c.Expression, &c.Code, &callbacks, &bcasts); err != nil {
			return nil, fmt.Errorf("scan condition: %w", err)
		}
		if c.Callbacks, err = unmarshalNames(callbacks); err != nil {
			return nil, err
		}
		if c.BroadcastDeps, err = unmarshalNames(bcasts); err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conditions: %w", err)
	}
	return conds, nil
}

// ChangedConditions returns the conditions of runID, in source order, that
// are new or whose descriptor differs from the condition of the same name in
// baseID. Conditions only present in baseID are not reported.
func (s *Store) ChangedConditions(ctx context.Context, baseID, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name
		FROM conditions c
		LEFT JOIN conditions b ON b.run_id = ? AND b.name = c.name
		WHERE c.run_id = ? AND (b.hash IS NULL OR b.hash != c.hash)
		ORDER BY c.seq ASC
	`, baseID, runID)
	if err != nil {
		return nil, fmt.Errorf("query changed conditions: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan changed condition: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changed conditions: %w", err)
	}
	return names, nil
}

// ReadActivities returns the activity registry of a run in registration
// order. Each activity's guard carries only its expression and code.
func (s *Store) ReadActivities(ctx context.Context, runID string) ([]ir.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, language, kind, callback, expression, code, params, body
		FROM activities
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	acts := []ir.Activity{}
	for rows.Next() {
		var (
			a        ir.Activity
			kind     string
			callback int
			params   string
		)
		err := rows.Scan(&a.Name, &a.Language, &kind, &callback, &a.JCond.Expression, &a.JCond.Code, &params, &a.Body)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Kind = ir.ActivityKind(kind)
		a.Callback = callback != 0
		if a.Params, err = unmarshalNames(params); err != nil {
			return nil, err
		}
		a.Signature = make([]string, len(a.Params))
		for i := range a.Signature {
			a.Signature[i] = ir.SignaturePlaceholder
		}
		acts = append(acts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return acts, nil
}

// ReadCallEdges returns the call edges of a run in call-site order.
func (s *Store) ReadCallEdges(ctx context.Context, runID string) ([]ir.CallEdge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT language, caller, callee, args
		FROM call_edges
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query call edges: %w", err)
	}
	defer rows.Close()

	edges := []ir.CallEdge{}
	for rows.Next() {
		var e ir.CallEdge
		if err := rows.Scan(&e.Language, &e.Caller, &e.Callee, &e.Args); err != nil {
			return nil, fmt.Errorf("scan call edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call edges: %w", err)
	}
	return edges, nil
}

// Callers returns the distinct functions of a run that call callee, sorted.
func (s *Store) Callers(ctx context.Context, runID, callee string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT caller
		FROM call_edges
		WHERE run_id = ? AND callee = ?
		ORDER BY caller COLLATE BINARY ASC
	`, runID, callee)
	if err != nil {
		return nil, fmt.Errorf("query callers: %w", err)
	}
	defer rows.Close()

	callers := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan caller: %w", err)
		}
		callers = append(callers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate callers: %w", err)
	}
	return callers, nil
}

// ReadExports returns the export list of a run.
func (s *Store) ReadExports(ctx context.Context, runID string) ([]ir.Export, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT function, level, side
		FROM exports
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer rows.Close()

	exports := []ir.Export{}
	for rows.Next() {
		var (
			e    ir.Export
			side string
		)
		if err := rows.Scan(&e.Function, &e.Level, &side); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		e.Side = ir.Side(side)
		exports = append(exports, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exports: %w", err)
	}
	return exports, nil
}

// RunExists reports whether id is recorded.
func (s *Store) RunExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query run: %w", err)
	}
	return true, nil
}
