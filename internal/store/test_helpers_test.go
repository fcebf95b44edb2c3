package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/jamc/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestOutput builds an output with one record of every kind.
func createTestOutput() *ir.Output {
	guard := ir.JCond{
		Expression:    `jcondContext("jsys.type") == "fog" && jcondContext("bc.mode.getLastValue()") < 3`,
		Code:          ir.TierFog | ir.DynamicFlag,
		Callbacks:     []string{"onFog"},
		BroadcastDeps: []string{"mode"},
	}
	return &ir.Output{
		Source:   "x;\n",
		Header:   "var jsys;\n",
		MaxLevel: 2,
		HasJData: true,
		JData:    []ir.JDataDecl{{Name: "mode", Kind: ir.JDataBroadcaster, Type: "int"}},
		Conditions: []ir.Condition{
			{Name: "fogMode", JCond: guard},
			{Name: "always", JCond: ir.TrueCond()},
		},
		Activities: []ir.Activity{
			{Name: "sense", Language: "js", Kind: ir.ActivitySync, JCond: guard, Params: []string{"a", "b"}, Body: "log(a);", Signature: []string{"x", "x"}},
			{Name: "onFog", Language: "js", Kind: ir.ActivityAsync, Callback: true, JCond: ir.TrueCond(), Params: []string{"m"}, Signature: []string{"x"}},
		},
		Functions: []string{"sense", "onFog", "helper"},
		Calls: []ir.CallEdge{
			{Language: "js", Caller: "sense", Callee: "log", Args: "(a)"},
			{Language: "js", Caller: "helper", Callee: "sense", Args: "(1, 2)"},
			{Language: "js", Caller: "root", Callee: "sense", Args: "()"},
			{Language: "js", Caller: "helper", Callee: "sense", Args: "(3, 4)"},
		},
		Exports: []ir.Export{
			{Function: "helper", Level: ir.NoLevel, Side: ir.SideLocal},
			{Function: "native", Level: "fog", Side: ir.SideRemote},
		},
	}
}

// writeTestRun records createTestOutput under id.
func writeTestRun(t *testing.T, s *Store, id string) Run {
	t.Helper()
	run, err := s.WriteRun(context.Background(), id, "prog.json", createTestOutput())
	if err != nil {
		t.Fatalf("WriteRun(%q) failed: %v", id, err)
	}
	return run
}
