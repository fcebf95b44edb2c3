package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/jamc/internal/ast"
	"github.com/roach88/jamc/internal/ir"
	"github.com/roach88/jamc/internal/symtab"
)

// jdataDecl translates a jdata block, one line per declaration.
func (p *pass) jdataDecl(n *ast.JdataDecl) (string, bool, error) {
	p.hasJData = true
	var b strings.Builder
	for _, spec := range ast.Flatten(n.Specs) {
		var (
			text string
			ok   bool
			err  error
		)
		switch s := spec.(type) {
		case *ast.JdataSpec:
			text, ok, err = p.jdataSpec(s)
		case *ast.FlowDecl:
			text, ok, err = p.flowDecl(s)
		default:
			err = grammarError(spec, "unexpected %T in jdata block", spec)
		}
		if err != nil {
			return "", false, err
		}
		if ok {
			b.WriteString(text + "\n")
		}
	}
	return b.String(), true, nil
}

// jdataSpec declares a logger, broadcaster or shuffler. A jdata name may be
// declared once per program.
func (p *pass) jdataSpec(n *ast.JdataSpec) (string, bool, error) {
	if n.Name == "" {
		return "", false, grammarError(n, "jdata declaration without a name")
	}
	if n.Type == nil {
		return "", false, grammarError(n, "jdata %s has no element type", n.Name)
	}
	kind := symtab.JDataKind(n.Kind)
	if !kind.Valid() {
		return "", false, grammarError(n, "unknown jdata kind %q for %s", n.Kind, n.Name)
	}
	if prev, ok := p.syms.JData(n.Name); ok {
		return "", false, illegalError(n, "jdata %s is already declared as %s", n.Name, prev.JDataKind)
	}
	p.hasJData = true
	p.syms.DefineJData(&symtab.Symbol{
		Name:      n.Name,
		TypeSpec:  n.Type.String(),
		JDataKind: kind,
	})
	p.jdata = append(p.jdata, ir.JDataDecl{Name: n.Name, Kind: n.Kind, Type: n.Type.String()})
	p.log.Debug("jdata", "name", n.Name, "kind", kind, "type", n.Type.String())

	switch kind {
	case symtab.Logger:
		return fmt.Sprintf("var %[1]s = new JAMLogger(jman, %[1]q);\njworklib.addLogger(%[1]q, %[1]s.getMyDataStream());", n.Name), true, nil
	case symtab.Broadcaster:
		return fmt.Sprintf("var %[1]s = new JAMBroadcaster('%[1]s', jman);\njworklib.addBroadcaster(%[1]q, %[1]s);", n.Name), true, nil
	default:
		return fmt.Sprintf("var %[1]s = new JAMShuffler('%[1]s', jman);\njworklib.addShuffler(%[1]q, %[1]s);", n.Name), true, nil
	}
}

// flowDecl translates a user-declared flow over a jdata source.
func (p *pass) flowDecl(n *ast.FlowDecl) (string, bool, error) {
	if n.Name == "" {
		return "", false, grammarError(n, "flow declaration without a name")
	}
	switch n.Kind {
	case "flow":
		if n.Func == "" || n.Input == "" {
			return "", false, grammarError(n, "flow %s needs a function and an input", n.Name)
		}
		return "var " + n.Name + " = " + n.Func + "(Flow.from(" + n.Input + "));", true, nil
	case "outflow":
		if n.Input == "" {
			return "", false, grammarError(n, "outflow %s needs an input", n.Name)
		}
		return "var " + n.Name + " = new OutFlow(" + n.Input + ");", true, nil
	case "inflow":
		return "var " + n.Name + " = new InFlow();", true, nil
	}
	return "", false, grammarError(n, "unknown flow kind %q", n.Kind)
}
