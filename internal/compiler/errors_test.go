package compiler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/multierr"

	"github.com/roach88/jamc/internal/ast"
)

func TestCompileErrorFormat(t *testing.T) {
	e := &CompileError{Kind: KindGrammar, Message: "nested Program", Pos: ast.Span{From: 3, To: 9}}
	assert.Equal(t, "3-9: GRAMMAR: nested Program", e.Error())

	e = &CompileError{Kind: KindExportValidation, Message: "f is missing"}
	assert.Equal(t, "EXPORT_VALIDATION: f is missing", e.Error())
}

func TestIsKindAndKindOf(t *testing.T) {
	base := &CompileError{Kind: KindUndefinedSymbol, Message: "x"}
	wrapped := fmt.Errorf("pass: %w", base)

	assert.True(t, IsKind(wrapped, KindUndefinedSymbol))
	assert.False(t, IsKind(wrapped, KindGrammar))
	assert.False(t, IsKind(errors.New("plain"), KindGrammar))
	assert.False(t, IsKind(nil, KindGrammar))

	k, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindUndefinedSymbol, k)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsKindSearchesCombinedErrors(t *testing.T) {
	combined := multierr.Combine(
		&CompileError{Kind: KindExportValidation, Message: "a"},
		&CompileError{Kind: KindExportValidation, Message: "b"},
	)
	assert.True(t, IsKind(combined, KindExportValidation))
}

func TestCompileErrorUnwrap(t *testing.T) {
	cause := errors.New("network down")
	e := &CompileError{Kind: KindDependencyResolution, Message: "m", Err: cause}
	assert.ErrorIs(t, e, cause)
}

func TestErrorHelpersUseNodeSpan(t *testing.T) {
	id := &ast.Identifier{Span: ast.Span{From: 4, To: 7}, Name: "x"}
	e := illegalError(id, "cannot touch %s", id.Name)
	assert.Equal(t, KindIllegalOperation, e.Kind)
	assert.Equal(t, id.Span, e.Pos)
	assert.Equal(t, "cannot touch x", e.Message)

	e = grammarError(nil, "no node")
	assert.False(t, e.Pos.Valid())
}

func TestTreeError(t *testing.T) {
	assert.NoError(t, TreeError(nil))

	ue := &ast.UnpackError{Path: "elements[0]", Message: `missing field "kind"`}
	err := TreeError(ue)
	assert.True(t, IsKind(err, KindGrammar))
	assert.Equal(t, `GRAMMAR: elements[0]: missing field "kind"`, err.Error())

	var got *ast.UnpackError
	assert.ErrorAs(t, err, &got)
}
