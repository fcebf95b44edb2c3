package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jamc/internal/ir"
)

func TestWriteRun_Summary(t *testing.T) {
	s := createTestStore(t)
	out := createTestOutput()

	run, err := s.WriteRun(context.Background(), "run-1", "prog.json", out)
	require.NoError(t, err)

	assert.Equal(t, int64(1), run.Seq)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, "prog.json", run.Input)
	assert.Equal(t, ir.MustOutputHash(out), run.OutputHash)
	assert.Equal(t, 2, run.MaxLevel)
	assert.True(t, run.HasJData)
	assert.Equal(t, ir.IRVersion, run.IRVersion)
	assert.Equal(t, ir.CompilerVersion, run.CompilerVersion)

	got, err := s.ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)
}

func TestWriteRun_Duplicate(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1")

	_, err := s.WriteRun(context.Background(), "run-1", "other.json", createTestOutput())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateRun))

	run, err := s.ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "prog.json", run.Input, "duplicate write must not overwrite")
}

func TestWriteRun_NilOutput(t *testing.T) {
	s := createTestStore(t)
	_, err := s.WriteRun(context.Background(), "run-1", "prog.json", nil)
	assert.Error(t, err)
}

func TestWriteRun_RollsBackOnChildFailure(t *testing.T) {
	s := createTestStore(t)
	out := createTestOutput()
	// Two conditions with one name violate UNIQUE(run_id, name).
	out.Conditions = append(out.Conditions, out.Conditions[0])

	_, err := s.WriteRun(context.Background(), "run-1", "prog.json", out)
	require.Error(t, err)

	exists, err := s.RunExists(context.Background(), "run-1")
	require.NoError(t, err)
	assert.False(t, exists)
	for _, table := range []string{"conditions", "activities", "call_edges", "exports"} {
		var n int
		require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Zero(t, n, table)
	}
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRun(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListRuns_Order(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)

	writeTestRun(t, s, "b")
	writeTestRun(t, s, "a")
	writeTestRun(t, s, "c")

	runs, err = s.ListRuns(context.Background())
	require.NoError(t, err)
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids, "runs are listed in write order")
}

func TestReadConditions(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1")

	conds, err := s.ReadConditions(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, conds, 2)

	want := createTestOutput().Conditions
	assert.Equal(t, want[0].Name, conds[0].Name)
	assert.Equal(t, want[0].Expression, conds[0].Expression, "operators survive storage unescaped")
	assert.Equal(t, want[0].Code, conds[0].Code)
	assert.Equal(t, []string{"onFog"}, conds[0].Callbacks)
	assert.Equal(t, []string{"mode"}, conds[0].BroadcastDeps)
	assert.Equal(t, ir.TrueCond(), conds[1].JCond)
}

func TestConditionHashesStored(t *testing.T) {
	s := createTestStore(t)
	out := createTestOutput()
	writeTestRun(t, s, "run-1")

	var hash string
	require.NoError(t, s.db.QueryRow(
		`SELECT hash FROM conditions WHERE run_id = 'run-1' AND name = 'fogMode'`).Scan(&hash))
	assert.Equal(t, ir.MustJCondHash(out.Conditions[0].JCond), hash)
}

func TestChangedConditions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	writeTestRun(t, s, "run-1")

	next := createTestOutput()
	next.Conditions[0].JCond.Code = ir.TierCloud
	next.Conditions = append(next.Conditions, ir.Condition{Name: "extra", JCond: ir.TrueCond()})
	_, err := s.WriteRun(ctx, "run-2", "prog.json", next)
	require.NoError(t, err)

	changed, err := s.ChangedConditions(ctx, "run-1", "run-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"fogMode", "extra"}, changed)

	same, err := s.ChangedConditions(ctx, "run-1", "run-1")
	require.NoError(t, err)
	assert.Empty(t, same)

	all, err := s.ChangedConditions(ctx, "missing", "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"fogMode", "always"}, all)
}

func TestReadActivities(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1")

	acts, err := s.ReadActivities(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, acts, 2)

	assert.Equal(t, "sense", acts[0].Name)
	assert.Equal(t, ir.ActivitySync, acts[0].Kind)
	assert.Equal(t, []string{"a", "b"}, acts[0].Params)
	assert.Equal(t, []string{"x", "x"}, acts[0].Signature)
	assert.Equal(t, "log(a);", acts[0].Body)
	assert.Equal(t, 18, acts[0].JCond.Code)
	assert.False(t, acts[0].Callback)

	assert.True(t, acts[1].Callback)
	assert.Equal(t, "true", acts[1].JCond.Expression)
}

func TestReadCallEdgesAndCallers(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1")
	writeTestRun(t, s, "run-2")

	edges, err := s.ReadCallEdges(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, createTestOutput().Calls, edges)

	callers, err := s.Callers(context.Background(), "run-1", "sense")
	require.NoError(t, err)
	assert.Equal(t, []string{"helper", "root"}, callers)

	callers, err = s.Callers(context.Background(), "run-1", "nobody")
	require.NoError(t, err)
	assert.Equal(t, []string{}, callers)
}

func TestReadExports(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1")

	exports, err := s.ReadExports(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, createTestOutput().Exports, exports)
}

func TestReadUnknownRunIsEmpty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	conds, err := s.ReadConditions(ctx, "nope")
	require.NoError(t, err)
	assert.Equal(t, []ir.Condition{}, conds)

	edges, err := s.ReadCallEdges(ctx, "nope")
	require.NoError(t, err)
	assert.Equal(t, []ir.CallEdge{}, edges)
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, a, b)
}

func TestMarshalNames(t *testing.T) {
	got, err := marshalNames(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", got)

	got, err = marshalNames([]string{"a<b", "c&d"})
	require.NoError(t, err)
	assert.Equal(t, `["a<b","c&d"]`, got)

	names, err := unmarshalNames(got)
	require.NoError(t, err)
	assert.Equal(t, []string{"a<b", "c&d"}, names)

	_, err = unmarshalNames("{")
	assert.Error(t, err)
}
