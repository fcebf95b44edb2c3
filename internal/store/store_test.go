package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	writeTestRun(t, s, "run-1")
	require.NoError(t, s.Close())

	for i := 0; i < 2; i++ {
		s, err := Open(path)
		require.NoError(t, err, "reopen %d", i)
		runs, err := s.ListRuns(context.Background())
		require.NoError(t, err)
		assert.Len(t, runs, 1, "reopen %d must keep recorded runs", i)
		require.NoError(t, s.Close())
	}
}

func TestOpen_MissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent", "history.db"))
	assert.Error(t, err)
}

func TestClose_Twice(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Close())
	assert.NotPanics(t, func() { _ = s.Close() })
	assert.NoError(t, (&Store{}).Close())
}

func TestOpen_ConnectionSettings(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		var got string
		require.NoError(t, s.db.QueryRow("PRAGMA "+tt.pragma).Scan(&got), tt.pragma)
		assert.Equal(t, tt.want, got, tt.pragma)
	}
}

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	tests := map[string][]string{
		"runs":       {"seq", "id", "input", "output_hash", "max_level", "has_jdata", "ir_version", "compiler_version"},
		"conditions": {"run_id", "seq", "name", "expression", "code", "callbacks", "broadcast_deps", "hash"},
		"activities": {"run_id", "seq", "name", "language", "kind", "callback", "expression", "code", "params", "body"},
		"call_edges": {"run_id", "seq", "language", "caller", "callee", "args"},
		"exports":    {"run_id", "seq", "function", "level", "side"},
	}
	for table, want := range tests {
		assert.Equal(t, want, tableColumns(t, s.db, table), table)
	}
}

func TestSchema_Constraints(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO conditions (run_id, seq, name, expression, code, callbacks, broadcast_deps)
		VALUES ('missing', 0, 'c', 'true', 0, '[]', '[]')`)
	assert.Error(t, err, "condition rows need a run")

	writeTestRun(t, s, "run-1")
	_, err = s.db.Exec(`INSERT INTO activities (run_id, seq, name, language, kind, callback, expression, code, params, body)
		VALUES ('run-1', 9, 'a', 'js', 'batch', 0, 'true', 0, '[]', '')`)
	assert.Error(t, err, "activity kind is sync or async")

	_, err = s.db.Exec(`INSERT INTO conditions (run_id, seq, name, expression, code, callbacks, broadcast_deps)
		VALUES ('run-1', 9, 'always', 'true', 0, '[]', '[]')`)
	assert.Error(t, err, "condition names are unique within a run")
}

func TestSchema_CascadeDelete(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1")

	_, err := s.db.Exec(`DELETE FROM runs WHERE id = 'run-1'`)
	require.NoError(t, err)

	for _, table := range []string{"conditions", "activities", "call_edges", "exports"} {
		var n int
		require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Zero(t, n, table)
	}
}

func TestMigrate_FreshDatabase(t *testing.T) {
	s := createTestStore(t)

	v, err := s.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
	assert.Contains(t, tableIndexes(t, s.db, "call_edges"), "idx_call_edges_callee")
	assert.Contains(t, tableIndexes(t, s.db, "activities"), "idx_activities_name")
}

func TestMigrate_UpgradesOlderDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	// A database created before any migration existed.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
	assert.Contains(t, tableIndexes(t, s.db, "call_edges"), "idx_call_edges_callee")
}

func TestMigrate_SkipsAppliedVersions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	// Version 1 counts as applied, so only later migrations ran.
	assert.NotContains(t, tableIndexes(t, s.db, "call_edges"), "idx_call_edges_callee")
	assert.Contains(t, tableIndexes(t, s.db, "activities"), "idx_activities_name")
}

func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	require.NoError(t, err)
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		columns = append(columns, name)
	}
	require.NoError(t, rows.Err())
	return columns
}

func tableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ?", table)
	require.NoError(t, err)
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		indexes = append(indexes, name)
	}
	require.NoError(t, rows.Err())
	return indexes
}
