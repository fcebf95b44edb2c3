// Package compiler implements the JAMScript pre-compilation pass.
//
// Compile walks a syntax tree bottom-up and produces the translated program,
// the registries of activities, functions and tasks, the call graph, and the
// compiled condition descriptors used by the runtime scheduler. A pass is
// all-or-nothing: the first hard error aborts it with no partial output.
package compiler

import (
	"context"
	"io"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/roach88/jamc/internal/ast"
	"github.com/roach88/jamc/internal/callgraph"
	"github.com/roach88/jamc/internal/deps"
	"github.com/roach88/jamc/internal/ir"
	"github.com/roach88/jamc/internal/machine"
	"github.com/roach88/jamc/internal/milestone"
	"github.com/roach88/jamc/internal/symtab"
)

// Factory turns a compiled activity into dispatchable code.
type Factory interface {
	MachineFunction(kind ir.ActivityKind, name string, cond ir.JCond, params []string) (string, error)
}

// Milestones records the dispatch kind of every function.
type Milestones interface {
	RegisterFunction(name string, kind milestone.Kind)
}

// CallGraph receives functions, activities and call sites.
type CallGraph interface {
	AddFunction(lang, name string)
	AddActivity(lang, name string, kind ir.ActivityKind)
	AddCall(e ir.CallEdge)
}

// Option configures a pass.
type Option func(*config)

type config struct {
	logger     *slog.Logger
	resolver   deps.Resolver
	factory    Factory
	milestones Milestones
	graph      CallGraph
	language   string
}

func defaultConfig() config {
	return config{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		resolver:   deps.Disabled{},
		factory:    machine.JSFactory{},
		milestones: milestone.NewRegistry(),
		graph:      callgraph.New(),
		language:   "js",
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithResolver sets the dependency resolver consulted for require calls.
//
// Default: deps.Disabled, which never installs anything.
func WithResolver(r deps.Resolver) Option {
	return func(c *config) {
		if r != nil {
			c.resolver = r
		}
	}
}

// WithFactory sets the machine-function factory.
func WithFactory(f Factory) Option {
	return func(c *config) {
		if f != nil {
			c.factory = f
		}
	}
}

func WithMilestones(m Milestones) Option {
	return func(c *config) {
		if m != nil {
			c.milestones = m
		}
	}
}

func WithCallGraph(g CallGraph) Option {
	return func(c *config) {
		if g != nil {
			c.graph = g
		}
	}
}

// WithLanguage sets the language tag recorded for functions, activities and
// call edges. Default: "js".
func WithLanguage(lang string) Option {
	return func(c *config) {
		if lang != "" {
			c.language = lang
		}
	}
}

// pass is the mutable state of one compilation. It is created by Compile
// and never shared.
type pass struct {
	ctx   context.Context
	cfg   config
	log   *slog.Logger
	syms  *symtab.Manager
	yield bool

	currentFunc string
	maxLevel    int
	hasJData    bool

	funcs     map[string]bool
	funcOrder []string

	conds     map[string]int
	condOrder []ir.Condition
	condReads map[string][]string // jdata each condition reads
	ruleReads []string            // jdata read by the entry being compiled

	flows     map[string]bool
	flowOrder []string

	exports   []ir.Export
	exportPos []ast.Span
	imports   []ir.Import
	importNS  map[string]bool

	jdata []ir.JDataDecl
	calls []ir.CallEdge
}

// Compile runs the pass over tree. syms is mutated in place and may be nil,
// in which case a fresh manager is used. exports is the externally supplied
// export list; export declarations found in the tree are appended to it.
func Compile(ctx context.Context, tree ast.Node, syms *symtab.Manager, yieldPoint bool, exports []ir.Export, opts ...Option) (*ir.Output, error) {
	prog, ok := tree.(*ast.Program)
	if !ok {
		return nil, grammarError(tree, "expected Program at the root of the tree, got %T", tree)
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if syms == nil {
		syms = symtab.NewManager()
	}
	p := &pass{
		ctx:       ctx,
		cfg:       cfg,
		log:       cfg.logger,
		syms:      syms,
		yield:     yieldPoint,
		maxLevel:  1,
		funcs:     make(map[string]bool),
		conds:     make(map[string]int),
		condReads: make(map[string][]string),
		flows:     make(map[string]bool),
		importNS:  make(map[string]bool),
		exports:   append([]ir.Export(nil), exports...),
		exportPos: make([]ast.Span, len(exports)),
	}
	p.log.Info("compile starting", "elements", len(prog.Elements), "yield_point", yieldPoint)

	src, err := p.program(prog)
	if err != nil {
		return nil, err
	}
	if err := p.validateExports(); err != nil {
		return nil, err
	}

	out := &ir.Output{
		Source:     src,
		Header:     header(p.hasJData),
		MaxLevel:   p.maxLevel,
		HasJData:   p.hasJData,
		JData:      p.jdata,
		Conditions: p.condOrder,
		Activities: syms.Activities(),
		Tasks:      syms.Tasks(),
		Functions:  p.funcOrder,
		Calls:      p.calls,
		Exports:    p.exports,
		Imports:    p.imports,
		Flows:      p.flowOrder,
	}
	p.log.Info("compile finished",
		"max_level", out.MaxLevel,
		"has_jdata", out.HasJData,
		"activities", len(out.Activities),
		"conditions", len(out.Conditions))
	return out, nil
}

// program translates the top-level elements. Dialect declarations contribute
// their text as-is; every other element is a host statement followed by a
// newline and is attributed to the implicit "root" function.
func (p *pass) program(prog *ast.Program) (string, error) {
	p.cfg.graph.AddFunction(p.cfg.language, "root")
	p.currentFunc = "root"

	var out string
	for _, el := range ast.Flatten(prog.Elements) {
		special := false
		switch el.(type) {
		case *ast.ActivityDef, *ast.TaskActivity, *ast.Jconditional, *ast.JdataDecl, *ast.Export, *ast.Require:
			special = true
		default:
			p.currentFunc = "root"
		}
		text, ok, err := p.eval(el)
		if err != nil {
			return "", err
		}
		switch {
		case special:
			out += text
		case ok:
			out += text + "\n"
		}
	}
	return out, nil
}

// validateExports checks that every local export names a function defined
// in this pass. All violations are reported together.
func (p *pass) validateExports() error {
	var errs error
	for i, e := range p.exports {
		if e.Side != ir.SideLocal || p.funcs[e.Function] {
			continue
		}
		errs = multierr.Append(errs, &CompileError{
			Kind:    KindExportValidation,
			Message: "function " + e.Function + " cannot be exported because it is not defined locally",
			Pos:     p.exportPos[i],
		})
	}
	return errs
}

// defineFunc records name as a locally defined function.
func (p *pass) defineFunc(name string) {
	if !p.funcs[name] {
		p.funcs[name] = true
		p.funcOrder = append(p.funcOrder, name)
	}
}

// withScope runs fn inside a fresh scope. The scope is exited on every
// path, including errors and panics, and returned for inspection.
func (p *pass) withScope(fn func() error) (s *symtab.Scope, err error) {
	p.syms.EnterScope()
	defer func() {
		s = p.syms.ExitScope()
	}()
	return nil, fn()
}

const (
	baseHeader = "const Worker = require('tiny-worker');\n" +
		"const jworklib = require('jamserver/jworklib');\n"
	jdataHeader = "const JAMManager = require('jamserver/jammanager');\n" +
		"const JAMLogger = require('jamserver/jamlogger');\n" +
		"const JAMBroadcaster = require('jamserver/jambroadcaster');\n" +
		"const JAMShuffler = require('jamserver/jamshuffler');\n"
	handlesHeader = "var jsys;\nvar jman;\n"
)

func header(hasJData bool) string {
	if hasJData {
		return baseHeader + jdataHeader + handlesHeader
	}
	return baseHeader + handlesHeader
}
