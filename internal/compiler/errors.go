package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/jamc/internal/ast"
)

// Kind categorizes compile errors.
type Kind string

const (
	// KindGrammar indicates a tree that does not match the expected shape.
	KindGrammar Kind = "GRAMMAR"

	// KindUndefinedSymbol indicates a reference to an unregistered name.
	KindUndefinedSymbol Kind = "UNDEFINED_SYMBOL"

	// KindIllegalOperation indicates an operation the jdata model forbids,
	// such as writing to a logger or reducing a broadcaster.
	KindIllegalOperation Kind = "ILLEGAL_OPERATION"

	// KindExportValidation indicates an exported function that was never
	// defined locally.
	KindExportValidation Kind = "EXPORT_VALIDATION"

	// KindUnsupportedAggregation indicates an unknown reduction function.
	KindUnsupportedAggregation Kind = "UNSUPPORTED_AGGREGATION"

	// KindDependencyResolution indicates a required module could not be made
	// available.
	KindDependencyResolution Kind = "DEPENDENCY_RESOLUTION"
)

// CompileError is returned by Compile. Pos is the source interval of the
// offending node; it is the zero Span when no node applies.
type CompileError struct {
	Kind    Kind
	Message string
	Pos     ast.Span
	Err     error
}

func (e *CompileError) Error() string {
	if e.Pos.Valid() {
		return fmt.Sprintf("%d-%d: %s: %s", e.Pos.From, e.Pos.To, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CompileError) Unwrap() error { return e.Err }

// IsKind reports whether err, or any error it wraps, is a CompileError of
// the given kind. Errors combined with multierr are searched too.
func IsKind(err error, kind Kind) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first CompileError in err's chain.
func KindOf(err error) (Kind, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

func newError(kind Kind, n ast.Node, format string, args ...any) *CompileError {
	return &CompileError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Pos:     ast.SpanOf(n),
	}
}

func grammarError(n ast.Node, format string, args ...any) *CompileError {
	return newError(KindGrammar, n, format, args...)
}

func undefinedError(n ast.Node, format string, args ...any) *CompileError {
	return newError(KindUndefinedSymbol, n, format, args...)
}

func illegalError(n ast.Node, format string, args ...any) *CompileError {
	return newError(KindIllegalOperation, n, format, args...)
}

// TreeError reports a syntax tree that could not be loaded as a Grammar
// error. The position of an unpack failure is its path in the tree, which is
// kept in the message.
func TreeError(err error) error {
	if err == nil {
		return nil
	}
	return &CompileError{Kind: KindGrammar, Message: err.Error(), Err: err}
}
