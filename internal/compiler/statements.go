package compiler

import (
	"strconv"
	"strings"

	"github.com/roach88/jamc/internal/ast"
	"github.com/roach88/jamc/internal/ir"
	"github.com/roach88/jamc/internal/milestone"
	"github.com/roach88/jamc/internal/symtab"
)

// anonymousFunc is the name functions without one are registered under.
const anonymousFunc = "anonymous"

// functionDecl translates a function declaration. Every declared function
// runs as a batch function; one taking a single parameter can also serve as
// an async callback activity.
func (p *pass) functionDecl(n *ast.FunctionDecl) (string, bool, error) {
	if n.Name == "" {
		return "", false, grammarError(n, "function declaration without a name")
	}
	lang := p.cfg.language
	body, err := p.functionBody(n.Name, n.Params, n.Body)
	if err != nil {
		return "", false, err
	}

	p.log.Debug("function", "name", n.Name, "params", len(n.Params))
	p.cfg.milestones.RegisterFunction(n.Name, milestone.Batch)
	p.defineFunc(n.Name)
	if len(n.Params) == 1 {
		p.syms.RegisterActivity(ir.Activity{
			Name:      n.Name,
			Language:  lang,
			Kind:      ir.ActivityAsync,
			Callback:  true,
			JCond:     ir.TrueCond(),
			Params:    append([]string{}, n.Params...),
			Body:      body,
			Signature: placeholders(1),
		})
	}
	p.syms.RegisterFunction(n.Name, lang)
	p.syms.Define(&symtab.Symbol{Name: n.Name, Kind: symtab.KindFunction})
	p.cfg.graph.AddFunction(lang, n.Name)

	return "function " + n.Name + "(" + strings.Join(n.Params, ", ") + ") {\n" + body + "}", true, nil
}

// functionExpr translates a function expression. Named expressions count as
// locally defined functions; anonymous ones do not.
func (p *pass) functionExpr(n *ast.FunctionExpr) (string, bool, error) {
	name := n.Name
	if name == "" {
		name = anonymousFunc
	}
	body, err := p.functionBody(name, n.Params, n.Body)
	if err != nil {
		return "", false, err
	}
	if n.Name != "" {
		p.defineFunc(n.Name)
	}
	p.syms.RegisterFunction(name, p.cfg.language)
	p.cfg.graph.AddFunction(p.cfg.language, name)

	return "function " + n.Name + "(" + strings.Join(n.Params, ", ") + ") {\n" + body + "}", true, nil
}

// functionBody translates body in a new scope holding the parameters, with
// calls attributed to name.
func (p *pass) functionBody(name string, params []string, body ast.Node) (string, error) {
	var text string
	_, err := p.withScope(func() error {
		for _, param := range params {
			p.syms.Define(&symtab.Symbol{Name: param, Kind: symtab.KindVariable})
		}
		saved := p.currentFunc
		p.currentFunc = name
		defer func() { p.currentFunc = saved }()

		var err error
		text, err = p.text(body)
		return err
	})
	return text, err
}

func (p *pass) varDecl(n *ast.VarDecl) (string, bool, error) {
	if n.Name == "" {
		return "", false, grammarError(n, "variable declaration without a name")
	}
	p.syms.Define(&symtab.Symbol{Name: n.Name, Kind: symtab.KindVariable})
	if fe, ok := n.Init.(*ast.FunctionExpr); ok && fe.Name == "" {
		p.defineFunc(n.Name)
	}
	if n.Init == nil {
		return n.Name, true, nil
	}
	init, err := p.text(n.Init)
	if err != nil {
		return "", false, err
	}
	return n.Name + " = " + init, true, nil
}

// assignment translates writes. A write to a broadcaster becomes a
// broadcast; loggers and shufflers are read-only from this side.
func (p *pass) assignment(n *ast.Assignment) (string, bool, error) {
	value, ok, err := p.eval(n.Value)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, grammarError(n, "assignment without a value")
	}

	switch t := n.Target.(type) {
	case *ast.Identifier:
		if sym, found := p.syms.ResolveJData(t.Name); found {
			switch sym.JDataKind {
			case symtab.Broadcaster:
				v := "String(Number(" + value + "))"
				if sym.Scalar() {
					v = "String(" + value + ")"
				}
				return "jman.broadcastMessage(" + strconv.Quote(t.Name) + ", " + v + ");", true, nil
			default:
				return "", false, illegalError(n, "cannot write to %s %s from javascript", sym.JDataKind, t.Name)
			}
		}
	case *ast.MemberExpr:
		if base, ok := rootIdentifier(t); ok {
			if sym, found := p.syms.ResolveJData(base); found {
				return "", false, illegalError(n, "cannot write to attribute %s of %s %s", t.Property, sym.JDataKind, base)
			}
		}
	}

	target, err := p.text(n.Target)
	if err != nil {
		return "", false, err
	}
	p.syms.MarkSideEffect(target)
	return target + " = " + value + ";", true, nil
}

// rootIdentifier returns the identifier a chain of member references starts
// from.
func rootIdentifier(m *ast.MemberExpr) (string, bool) {
	switch obj := m.Object.(type) {
	case *ast.Identifier:
		return obj.Name, true
	case *ast.MemberExpr:
		return rootIdentifier(obj)
	}
	return "", false
}

// call translates a call expression and records it in the call graph,
// except for require calls and calls into imported namespaces.
func (p *pass) call(n *ast.Call) (string, bool, error) {
	callee, err := p.text(n.Callee)
	if err != nil {
		return "", false, err
	}
	args := make([]string, 0, len(n.Args))
	for _, a := range n.Args {
		s, err := p.text(a)
		if err != nil {
			return "", false, err
		}
		args = append(args, s)
	}
	argText := strings.Join(args, ", ")

	if id, ok := n.Callee.(*ast.Identifier); ok && id.Name == "require" {
		if err := p.requireModule(n); err != nil {
			return "", false, err
		}
		return callee + "(" + argText + ")", true, nil
	}
	if m, ok := n.Callee.(*ast.MemberExpr); ok {
		if ns, ok := m.Object.(*ast.Identifier); ok && p.importNS[ns.Name] {
			return "CreateLibExec(" + strconv.Quote(ns.Name) + ", " + strconv.Quote(m.Property) + ", " + strconv.Quote(argText) + ")", true, nil
		}
	}

	edge := ir.CallEdge{
		Language: p.cfg.language,
		Caller:   p.currentFunc,
		Callee:   callee,
		Args:     "(" + argText + ")",
	}
	p.calls = append(p.calls, edge)
	p.cfg.graph.AddCall(edge)
	return callee + edge.Args, true, nil
}

// requireModule asks the resolver for the module named by a require call.
func (p *pass) requireModule(n *ast.Call) error {
	if len(n.Args) != 1 {
		return grammarError(n, "require expects one argument, got %d", len(n.Args))
	}
	lit, ok := n.Args[0].(*ast.Literal)
	if !ok {
		return grammarError(n, "require expects a string literal")
	}
	module, ok := lit.StringValue()
	if !ok {
		return grammarError(lit, "require expects a string literal, got %s", lit.Text)
	}
	p.log.Debug("dependency", "module", module)
	if err := p.cfg.resolver.Ensure(p.ctx, module); err != nil {
		return &CompileError{
			Kind:    KindDependencyResolution,
			Message: "cannot resolve module " + module + ": " + err.Error(),
			Pos:     ast.SpanOf(n),
			Err:     err,
		}
	}
	return nil
}

// loop translates an iteration statement, inserting a yield point at the
// top of the body when enabled.
func (p *pass) loop(n *ast.Loop) (string, bool, error) {
	if n.Keyword == "" {
		return "", false, grammarError(n, "loop without a keyword")
	}
	head, err := p.text(n.Head)
	if err != nil {
		return "", false, err
	}
	body, err := p.text(n.Body)
	if err != nil {
		return "", false, err
	}
	yp := ""
	if p.yield {
		yp = "jworklib.yieldPoint();\n"
	}
	return n.Keyword + " (" + head + ") {\n" + yp + body + "}", true, nil
}

// export records a function as invokable from the other side.
func (p *pass) export(n *ast.Export) (string, bool, error) {
	if n.Name == "" {
		return "", false, grammarError(n, "export without a function name")
	}
	level := n.Level
	if level == "" {
		level = ir.NoLevel
	}
	p.exports = append(p.exports, ir.Export{Function: n.Name, Level: level, Side: ir.SideLocal})
	p.exportPos = append(p.exportPos, n.Span)
	return "", false, nil
}

// require records a namespace provided by the other side.
func (p *pass) require(n *ast.Require) (string, bool, error) {
	if n.Namespace == "" {
		return "", false, grammarError(n, "jrequire without a namespace")
	}
	p.imports = append(p.imports, ir.Import{Function: n.Func, Namespace: n.Namespace, Level: n.Level})
	p.importNS[n.Namespace] = true
	return "", false, nil
}
