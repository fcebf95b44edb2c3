package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jamc/internal/compiler"
)

func TestCheckValidTree(t *testing.T) {
	out, _, err := execute(t, "check", fogTree())
	require.NoError(t, err)

	assert.Contains(t, out, "✓ "+fogTree()+" is valid")
	assert.Contains(t, out, "1 condition(s), 1 activity(ies), max level 2")
	assert.NotContains(t, out, "registerActivity")
}

func TestCheckValidTreeJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "check", fogTree())
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 2, resp.Data.MaxLevel)
	assert.Empty(t, resp.Data.Errors)
}

func TestCheckCompileError(t *testing.T) {
	out, _, err := execute(t, "check", filepath.Join("testdata", "ghost", "ghost.yaml"))
	require.Error(t, err)

	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeExport)
	assert.Contains(t, out, "ghostOne")
	assert.Contains(t, out, "ghostTwo")
}

func TestCheckMissingTree(t *testing.T) {
	_, _, err := execute(t, "check", "absent.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func invalidCheckResult() CheckResult {
	return CheckResult{
		Valid:      false,
		Conditions: 1,
		Errors: []compiler.ValidationError{
			{Field: "max_level", Message: "max level 0 outside 1..3", Code: compiler.ErrMaxLevelOutOfRange},
			{Field: "conditions[0].expression", Message: "condition c has an empty expression", Code: compiler.ErrEmptyExpression},
		},
	}
}

func TestOutputValidationErrors_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	err := outputValidationErrors(&OutputFormatter{Format: "text", Writer: buf}, invalidCheckResult())

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "2 error(s)")
	assert.Contains(t, buf.String(), "✗ Validation failed")
	assert.Contains(t, buf.String(), "E207: max_level: max level 0 outside 1..3")
	assert.Contains(t, buf.String(), "E202: conditions[0].expression")
}

func TestOutputValidationErrors_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	err := outputValidationErrors(&OutputFormatter{Format: "json", Writer: buf}, invalidCheckResult())
	require.Error(t, err)

	var resp struct {
		Status string      `json:"status"`
		Error  CLIError    `json:"error"`
		Data   CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E207", resp.Error.Code)
	assert.False(t, resp.Data.Valid)
	assert.Len(t, resp.Data.Errors, 2)
}
