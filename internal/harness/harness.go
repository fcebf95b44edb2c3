package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/jamc/internal/ast"
	"github.com/roach88/jamc/internal/compiler"
	"github.com/roach88/jamc/internal/deps"
	"github.com/roach88/jamc/internal/ir"
	"github.com/roach88/jamc/internal/symtab"
)

// Option configures a harness run.
type Option func(*Harness)

// Harness compiles scenarios. It never installs dependencies: require calls
// go to deps.Disabled unless a resolver is supplied.
type Harness struct {
	logger   *slog.Logger
	resolver deps.Resolver
}

// WithLogger sets the logger handed to the compiler.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithResolver sets the dependency resolver handed to the compiler.
func WithResolver(r deps.Resolver) Option {
	return func(h *Harness) { h.resolver = r }
}

// New creates a harness. Logs are discarded by default.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		resolver: deps.Disabled{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run compiles the scenario's tree and checks the expectations.
//
// Each scenario gets a fresh symbol manager, so scenarios are independent.
// The returned error is non-nil only when the scenario itself cannot be
// run; a pass that fails unexpectedly is reported in the Result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	if scenario == nil {
		return nil, fmt.Errorf("nil scenario")
	}
	result := NewResult()

	tree, err := loadTree(scenario)
	if err == nil {
		var out *ir.Output
		out, err = compiler.Compile(ctx, tree, symtab.NewManager(), scenario.YieldPoint, scenario.Exports,
			compiler.WithLogger(h.logger),
			compiler.WithResolver(h.resolver),
		)
		result.Output = out
	}

	if err != nil {
		kind, ok := compiler.KindOf(err)
		if !ok {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		result.ErrorKind = string(kind)
		h.logger.Debug("scenario compile failed", "scenario", scenario.Name, "kind", kind, "error", err)
	}

	for _, msg := range CheckExpectations(result, scenario.Expect, err) {
		result.AddError(msg)
	}
	return result, nil
}

// loadTree unpacks the inline tree or loads the tree file. Load failures
// are Grammar errors.
func loadTree(s *Scenario) (ast.Node, error) {
	if s.TreeFile != "" {
		tree, err := ast.LoadFile(s.TreeFile)
		return tree, compiler.TreeError(err)
	}
	tree, err := ast.Unpack(s.Tree)
	return tree, compiler.TreeError(err)
}
