package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jamc/internal/ir"
)

func TestGolden_FogSync(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/fog_sync.yaml")
	require.NoError(t, err)
	require.NoError(t, RunWithGolden(t, s))
}

func TestSnapshot_FailedPass(t *testing.T) {
	data, err := NewSnapshot("broken", &Result{ErrorKind: "GRAMMAR"}).Canonical()
	require.NoError(t, err)
	assert.Equal(t, `{"error_kind":"GRAMMAR","scenario_name":"broken"}`, string(data))
}

func TestSnapshot_OmitsGeneratedText(t *testing.T) {
	out := &ir.Output{
		Source:   "var secret = 1;\n",
		MaxLevel: 1,
		Activities: []ir.Activity{
			{Name: "tick", Kind: ir.ActivityAsync, JCond: ir.TrueCond(), Body: "secret++;"},
		},
		Flows: []string{"__logFlow_v"},
	}

	data, err := NewSnapshot("tick", &Result{Output: out}).Canonical()
	require.NoError(t, err)

	assert.Equal(t,
		`{"activities":[{"code":0,"kind":"async","name":"tick"}],"flows":["__logFlow_v"],"max_level":1,"scenario_name":"tick"}`,
		string(data))
	assert.NotContains(t, string(data), "secret")
}
