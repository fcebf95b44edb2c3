package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/jamc/internal/ir"
)

// Run is the summary row of one recorded pass.
type Run struct {
	Seq             int64  `json:"seq"`
	ID              string `json:"id"`
	Input           string `json:"input"`
	OutputHash      string `json:"output_hash"`
	MaxLevel        int    `json:"max_level"`
	HasJData        bool   `json:"has_jdata"`
	IRVersion       string `json:"ir_version"`
	CompilerVersion string `json:"compiler_version"`
}

// ErrDuplicateRun is returned when a run ID is already recorded.
var ErrDuplicateRun = errors.New("run already recorded")

// WriteRun records a compiled output under id. The run row and all of its
// child rows are written in one transaction; either all of them are stored
// or none is.
//
// Returns ErrDuplicateRun if id is already recorded.
func (s *Store) WriteRun(ctx context.Context, id, input string, out *ir.Output) (Run, error) {
	if out == nil {
		return Run{}, fmt.Errorf("write run: nil output")
	}
	hash, err := ir.OutputHash(out)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	run := Run{
		ID:              id,
		Input:           input,
		OutputHash:      hash,
		MaxLevel:        out.MaxLevel,
		HasJData:        out.HasJData,
		IRVersion:       ir.IRVersion,
		CompilerVersion: ir.CompilerVersion,
	}
	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, input, output_hash, max_level, has_jdata, ir_version, compiler_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Input,
		run.OutputHash,
		run.MaxLevel,
		boolToInt(run.HasJData),
		run.IRVersion,
		run.CompilerVersion,
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return Run{}, fmt.Errorf("write run: rows affected: %w", err)
	}
	if n == 0 {
		return Run{}, fmt.Errorf("write run %s: %w", id, ErrDuplicateRun)
	}
	if run.Seq, err = result.LastInsertId(); err != nil {
		return Run{}, fmt.Errorf("write run: last insert id: %w", err)
	}

	if err := writeConditions(ctx, tx, id, out.Conditions); err != nil {
		return Run{}, err
	}
	if err := writeActivities(ctx, tx, id, out.Activities); err != nil {
		return Run{}, err
	}
	if err := writeCallEdges(ctx, tx, id, out.Calls); err != nil {
		return Run{}, err
	}
	if err := writeExports(ctx, tx, id, out.Exports); err != nil {
		return Run{}, err
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}
	return run, nil
}

func writeConditions(ctx context.Context, tx *sql.Tx, runID string, conds []ir.Condition) error {
	for i, c := range conds {
		callbacks, err := marshalNames(c.Callbacks)
		if err != nil {
			return fmt.Errorf("write condition %s: %w", c.Name, err)
		}
		bcasts, err := marshalNames(c.BroadcastDeps)
		if err != nil {
			return fmt.Errorf("write condition %s: %w", c.Name, err)
		}
		hash, err := ir.JCondHash(c.JCond)
		if err != nil {
			return fmt.Errorf("write condition %s: %w", c.Name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conditions
			(run_id, seq, name, expression, code, callbacks, broadcast_deps, hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, i, c.Name, c.Expression, c.Code, callbacks, bcasts, hash)
		if err != nil {
			return fmt.Errorf("write condition %s: %w", c.Name, err)
		}
	}
	return nil
}

func writeActivities(ctx context.Context, tx *sql.Tx, runID string, acts []ir.Activity) error {
	for i, a := range acts {
		params, err := marshalNames(a.Params)
		if err != nil {
			return fmt.Errorf("write activity %s: %w", a.Name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO activities
			(run_id, seq, name, language, kind, callback, expression, code, params, body)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID, i,
			a.Name,
			a.Language,
			string(a.Kind),
			boolToInt(a.Callback),
			a.JCond.Expression,
			a.JCond.Code,
			params,
			a.Body,
		)
		if err != nil {
			return fmt.Errorf("write activity %s: %w", a.Name, err)
		}
	}
	return nil
}

func writeCallEdges(ctx context.Context, tx *sql.Tx, runID string, edges []ir.CallEdge) error {
	for i, e := range edges {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO call_edges
			(run_id, seq, language, caller, callee, args)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, i, e.Language, e.Caller, e.Callee, e.Args)
		if err != nil {
			return fmt.Errorf("write call edge %s -> %s: %w", e.Caller, e.Callee, err)
		}
	}
	return nil
}

func writeExports(ctx context.Context, tx *sql.Tx, runID string, exports []ir.Export) error {
	for i, e := range exports {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO exports
			(run_id, seq, function, level, side)
			VALUES (?, ?, ?, ?, ?)
		`, runID, i, e.Function, e.Level, string(e.Side))
		if err != nil {
			return fmt.Errorf("write export %s: %w", e.Function, err)
		}
	}
	return nil
}
