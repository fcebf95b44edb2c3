package compiler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jamc/internal/ast"
	"github.com/roach88/jamc/internal/ir"
	"github.com/roach88/jamc/internal/symtab"
	"github.com/roach88/jamc/internal/testutil"
)

type failingFactory struct{ err error }

func (f failingFactory) MachineFunction(ir.ActivityKind, string, ir.JCond, []string) (string, error) {
	return "", f.err
}

func TestUnguardedActivityIsAlwaysTrue(t *testing.T) {
	tr := testutil.NewTree()
	out := mustCompile(t, tr.Program(tr.Async("tick", nil, nil, nil)))

	a, ok := out.Activity("tick")
	require.True(t, ok)
	assert.Equal(t, ir.TrueCond(), a.JCond)
	assert.Equal(t, ir.ActivityAsync, a.Kind)
	assert.Equal(t, []string{}, a.Signature)
	assert.Equal(t,
		`jworklib.registerActivity("tick", "async", {"source":"true","code":0,"cback":null,"bcasts":[]}, []);`+"\n",
		out.Source)
}

func TestActivityCombinesConditions(t *testing.T) {
	tr := testutil.NewTree()
	out := mustCompile(t, tr.Program(
		tr.Jcond("",
			tr.Entry("fog", []*ast.JcondRule{tr.Rule(tr.Jsys("type"), "==", tr.Str("fog"))}),
			tr.Entry("cloud", []*ast.JcondRule{tr.Rule(tr.Jsys("type"), "==", tr.Str("cloud"))}),
		),
		tr.Sync("s", nil, []string{"fog", "cloud"}, nil),
	))

	a, ok := out.Activity("s")
	require.True(t, ok)
	assert.Equal(t, ir.TierFog|ir.TierCloud, a.JCond.Code)
	assert.Equal(t, `jcondContext("jsys.type") == "fog" && jcondContext("jsys.type") == "cloud"`, a.JCond.Expression)
	assert.Equal(t, 3, out.MaxLevel)
}

func TestUnknownConditionIsUndefined(t *testing.T) {
	tr := testutil.NewTree()
	act := tr.Sync("s", nil, []string{"nowhere"}, nil)
	syms := symtab.NewManager()

	_, err := Compile(context.Background(), tr.Program(act), syms, false, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUndefinedSymbol))
	assert.Contains(t, err.Error(), "condition nowhere is not defined")

	enters, exits := syms.Balance()
	assert.Equal(t, enters, exits)
	assert.Equal(t, 0, syms.Depth())
}

func TestScopesBalanceOnBodyError(t *testing.T) {
	tr := testutil.NewTree()
	body := tr.Generic("Block", tr.Reduce("max", tr.Ident("x")))
	syms := symtab.NewManager()

	_, err := Compile(context.Background(), tr.Program(
		tr.Sync("s", []string{"a"}, nil, body),
	), syms, false, nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindGrammar))

	enters, exits := syms.Balance()
	assert.Equal(t, 1, enters)
	assert.Equal(t, enters, exits)
	_, ok := syms.Resolve("a")
	assert.False(t, ok, "parameter leaked out of the activity scope")
}

func TestActivityRecordsSideEffects(t *testing.T) {
	tr := testutil.NewTree()
	body := tr.Seq(
		tr.Assign(tr.Ident("count"), tr.Num("1")),
		tr.Assign(tr.Member("state", "ready"), tr.Ident("true")),
		tr.Assign(tr.Ident("count"), tr.Num("2")),
	)
	out := mustCompile(t, tr.Program(tr.Sync("s", nil, nil, body)))

	a, _ := out.Activity("s")
	assert.Equal(t, []string{"count", "state.ready"}, a.SideEffects)
	assert.Equal(t, "count = 1;state.ready = true;count = 2;", a.Body)
}

func TestActivityParamsAreScoped(t *testing.T) {
	tr := testutil.NewTree()
	syms := symtab.NewManager()
	_, err := Compile(context.Background(), tr.Program(
		tr.Sync("s", []string{"p", "q"}, nil, nil),
	), syms, false, nil)
	require.NoError(t, err)

	_, ok := syms.Resolve("p")
	assert.False(t, ok)
	a, _ := syms.Activity("s")
	assert.Equal(t, []string{"p", "q"}, a.Params)
	assert.Equal(t, []string{"x", "x"}, a.Signature)
}

func TestActivityBodyCallsAttributedToActivity(t *testing.T) {
	tr := testutil.NewTree()
	out := mustCompile(t, tr.Program(
		tr.Sync("s", nil, nil, tr.Stmt(tr.Call(tr.Ident("helper")))),
		tr.Stmt(tr.Call(tr.Ident("s"))),
	))
	require.Len(t, out.Calls, 2)
	assert.Equal(t, "s", out.Calls[0].Caller)
	assert.Equal(t, "root", out.Calls[1].Caller)
}

func TestFactoryErrorAbortsPass(t *testing.T) {
	boom := errors.New("boom")
	tr := testutil.NewTree()
	_, err := compile(t, tr.Program(tr.Sync("s", nil, nil, nil)), WithFactory(failingFactory{err: boom}))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "activity s")
}

func TestUnknownActivityKind(t *testing.T) {
	tr := testutil.NewTree()
	act := tr.Sync("s", nil, nil, nil)
	act.Kind = "batch"
	_, err := compile(t, tr.Program(act))
	assert.True(t, IsKind(err, KindGrammar))
}

func TestTaskRegistersWithoutOutput(t *testing.T) {
	tr := testutil.NewTree()
	out := mustCompile(t, tr.Program(tr.Task("collect", "a", "b")), WithLanguage("c"))

	assert.Equal(t, "", out.Source)
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, "collect", out.Tasks[0].Name)
	assert.Equal(t, "c", out.Tasks[0].Language)
	assert.Equal(t, map[string]string{}, out.Tasks[0].Meta)
	assert.Empty(t, out.Activities)
}

func TestTaskWithoutNameIsGrammarError(t *testing.T) {
	tr := testutil.NewTree()
	_, err := compile(t, tr.Program(tr.Task("")))
	assert.True(t, IsKind(err, KindGrammar))
}

func TestGuardJdataReadsRecordedOnActivity(t *testing.T) {
	tr := testutil.NewTree()
	out := mustCompile(t, tr.Program(
		weatherJdata(tr),
		tr.Jcond("", tr.Entry("labelled", []*ast.JcondRule{
			tr.Rule(tr.Ident("label"), "==", tr.Str("x")),
		})),
		tr.Jcond("", tr.Entry("fog", []*ast.JcondRule{
			tr.Rule(tr.Jsys("type"), "==", tr.Str("fog")),
		})),
		tr.Sync("guarded", nil, []string{"labelled", "fog"}, nil),
		tr.Sync("tierOnly", nil, []string{"fog"}, nil),
	))

	a, ok := out.Activity("guarded")
	require.True(t, ok)
	assert.Equal(t, []string{"label"}, a.JDataReads)

	b, ok := out.Activity("tierOnly")
	require.True(t, ok)
	assert.Empty(t, b.JDataReads)
}

func TestFactoryErrorIsCompileError(t *testing.T) {
	boom := errors.New("boom")
	tr := testutil.NewTree()
	act := tr.Sync("s", nil, nil, nil)
	_, err := compile(t, tr.Program(act), WithFactory(failingFactory{err: boom}))

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindGrammar, ce.Kind)
	assert.Equal(t, act.Span, ce.Pos)
	assert.ErrorIs(t, err, boom)
}
