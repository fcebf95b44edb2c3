package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jamc/internal/compiler"
	"github.com/roach88/jamc/internal/ir"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func sampleOutput() *ir.Output {
	fog := ir.JCond{
		Expression:    `jcondContext("jsys.type") == "fog"`,
		Code:          ir.TierFog,
		Callbacks:     []string{},
		BroadcastDeps: []string{},
	}
	return &ir.Output{
		Header:     "var jsys;\n",
		Source:     `jworklib.registerActivity("sense", "sync", {}, []);` + "\n",
		MaxLevel:   2,
		Conditions: []ir.Condition{{Name: "onFog", JCond: fog}},
		Activities: []ir.Activity{
			{Name: "sense", Kind: ir.ActivitySync, JCond: fog},
			{Name: "report", Kind: ir.ActivityAsync, JCond: ir.TrueCond()},
			{Name: "alert", Kind: ir.ActivityAsync, JCond: ir.TrueCond()},
		},
	}
}

func TestExpectationError_Format(t *testing.T) {
	err := &ExpectationError{Field: "max_level", Expected: "2", Actual: "1"}
	assert.Equal(t, "expectation failed: max_level\n  Expected: 2\n  Actual: 1", err.Error())
}

func TestCheckExpectations_AllMatch(t *testing.T) {
	result := &Result{Output: sampleOutput()}
	msgs := CheckExpectations(result, Expect{
		MaxLevel:   intPtr(2),
		HasJData:   boolPtr(false),
		Codes:      map[string]int{"onFog": 2},
		Activities: []string{"sense", "alert"},
		Contains:   []string{`registerActivity("sense"`, "var jsys;"},
	}, nil)

	assert.Empty(t, msgs)
	assert.Empty(t, result.Validation)
}

func TestCheckExpectations_EmptyExpectPasses(t *testing.T) {
	assert.Empty(t, CheckExpectations(&Result{Output: sampleOutput()}, Expect{}, nil))
}

func TestCheckExpectations_Mismatches(t *testing.T) {
	msgs := CheckExpectations(&Result{Output: sampleOutput()}, Expect{
		MaxLevel: intPtr(3),
		HasJData: boolPtr(true),
		Codes:    map[string]int{"onFog": 4, "absent": 1},
		Contains: []string{"JAMLogger"},
	}, nil)

	require.Len(t, msgs, 5)
	assert.Contains(t, msgs[0], "max_level")
	assert.Contains(t, msgs[1], "has_jdata")
	assert.Contains(t, msgs[2], "codes.absent")
	assert.Contains(t, msgs[2], "condition not compiled")
	assert.Contains(t, msgs[3], "codes.onFog")
	assert.Contains(t, msgs[4], "contains[0]")
}

func TestCheckExpectations_ActivityOrder(t *testing.T) {
	out := sampleOutput()

	assert.Empty(t, CheckExpectations(&Result{Output: out}, Expect{Activities: []string{"sense", "report", "alert"}}, nil))
	assert.Empty(t, CheckExpectations(&Result{Output: out}, Expect{Activities: []string{"report"}}, nil))

	msgs := CheckExpectations(&Result{Output: out}, Expect{Activities: []string{"alert", "sense"}}, nil)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "[alert sense] in order")
	assert.Contains(t, msgs[0], "[sense report alert]")

	msgs = CheckExpectations(&Result{Output: out}, Expect{Activities: []string{"missing"}}, nil)
	require.Len(t, msgs, 1)
}

func TestCheckExpectations_ValidationFindingsFail(t *testing.T) {
	out := sampleOutput()
	out.MaxLevel = 0
	result := &Result{Output: out}

	msgs := CheckExpectations(result, Expect{}, nil)

	require.Len(t, result.Validation, 1)
	assert.Equal(t, compiler.ErrMaxLevelOutOfRange, result.Validation[0].Code)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "[E207]")
}

func TestCheckExpectations_ExpectedError(t *testing.T) {
	undefined := &compiler.CompileError{Kind: compiler.KindUndefinedSymbol, Message: "condition c is not defined"}

	t.Run("matching kind", func(t *testing.T) {
		assert.Empty(t, CheckExpectations(&Result{}, Expect{Error: "UNDEFINED_SYMBOL"}, undefined))
	})

	t.Run("wrong kind", func(t *testing.T) {
		msgs := CheckExpectations(&Result{}, Expect{Error: "GRAMMAR"}, undefined)
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "Expected: GRAMMAR")
		assert.Contains(t, msgs[0], "condition c is not defined")
	})

	t.Run("compile succeeded", func(t *testing.T) {
		msgs := CheckExpectations(&Result{Output: sampleOutput()}, Expect{Error: "GRAMMAR"}, nil)
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "compile succeeded")
	})
}

func TestCheckExpectations_UnexpectedError(t *testing.T) {
	err := &compiler.CompileError{Kind: compiler.KindGrammar, Message: "bad tree"}
	result := &Result{}

	msgs := CheckExpectations(result, Expect{MaxLevel: intPtr(1)}, err)

	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Expected: no error")
	assert.Contains(t, msgs[0], "bad tree")
	assert.Nil(t, result.Validation)
}
