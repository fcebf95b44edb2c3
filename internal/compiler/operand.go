package compiler

import (
	"strconv"

	"github.com/roach88/jamc/internal/ast"
	"github.com/roach88/jamc/internal/symtab"
)

// operand is one resolved side of a jcond rule.
type operand struct {
	text    string
	literal bool
	decls   string   // flow declarations the operand depends on
	bcasts  []string // broadcasters the operand reads
}

// runtime is the operand as it appears in the runtime expression.
// Literals are emitted verbatim; everything else is looked up through the
// condition context.
func (o operand) runtime() string {
	if o.literal {
		return o.text
	}
	return "jcondContext(" + strconv.Quote(o.text) + ")"
}

// reducers maps reduction functions to flow accessors.
var reducers = map[string]string{
	"max": "getMax",
	"min": "getMin",
	"avg": "getAverage",
	"sum": "getSum",
}

// defaultReducer is applied to aggregated reads with no reduction function.
const defaultReducer = "avg"

// operand resolves one side of a rule. reducer is the reduction function
// wrapping n, or empty.
func (p *pass) operand(n ast.Node, reducer string) (operand, error) {
	switch n := n.(type) {
	case *ast.Literal:
		if reducer != "" {
			return operand{}, illegalError(n, "reduction %s() cannot be applied to literal %s", reducer, n.Text)
		}
		return operand{text: n.Text, literal: true}, nil
	case *ast.ReduceExpr:
		if reducer != "" {
			return operand{}, illegalError(n, "nested reduction %s(%s())", reducer, n.Func)
		}
		if n.Func == "" {
			return operand{}, grammarError(n, "reduction without a function name")
		}
		return p.operand(n.Operand, n.Func)
	case *ast.Identifier:
		return p.jdataOperand(n, n.Name, "", reducer)
	case *ast.MemberExpr:
		if id, ok := n.Object.(*ast.Identifier); ok {
			if id.Name == "jsys" {
				if reducer != "" {
					return operand{}, illegalError(n, "reduction %s() cannot be applied to jsys.%s", reducer, n.Property)
				}
				return operand{text: "jsys." + n.Property}, nil
			}
			return p.jdataOperand(n, id.Name, n.Property, reducer)
		}
		return operand{}, illegalError(n, "only first level attributes allowed in jcond: %s", sourceText(n))
	case nil:
		return operand{}, grammarError(nil, "missing jcond operand")
	}
	return operand{}, illegalError(n, "unsupported jcond operand %s", sourceText(n))
}

// jdataOperand resolves name or name.field against the jdata symbols.
func (p *pass) jdataOperand(n ast.Node, name, field, reducer string) (operand, error) {
	sym, ok := p.syms.ResolveJData(name)
	if !ok {
		return operand{}, undefinedError(n, "%s is not defined in jdata", name)
	}
	p.markJDataRead(name)

	if sym.JDataKind == symtab.Broadcaster {
		if reducer != "" {
			return operand{}, illegalError(n, "function reduction %s() cannot be applied on broadcaster %s", reducer, name)
		}
		text := "bc." + name + ".getLastValue()"
		if field != "" {
			text += "." + field
		}
		return operand{text: text, bcasts: []string{name}}, nil
	}

	if reducer != "" {
		if _, ok := reducers[reducer]; !ok {
			return operand{}, newError(KindUnsupportedAggregation, n, "unsupported aggregation function in jcond: %s", reducer)
		}
	}
	if sym.Scalar() {
		return operand{text: "lgg." + name + ".lastValue()"}, nil
	}
	if reducer == "" {
		reducer = defaultReducer
	}
	flow, decl := p.ensureFlow(name, field)
	return operand{
		text:  "fl." + flow + "." + reducers[reducer] + "()",
		decls: decl,
	}, nil
}

// sourceText renders an operand expression for error messages.
func sourceText(n ast.Node) string {
	switch n := n.(type) {
	case *ast.Identifier:
		return n.Name
	case *ast.Literal:
		return n.Text
	case *ast.Terminal:
		return n.Text
	case *ast.MemberExpr:
		return sourceText(n.Object) + "." + n.Property
	case *ast.ReduceExpr:
		return n.Func + "(" + sourceText(n.Operand) + ")"
	case *ast.Call:
		return sourceText(n.Callee) + "(...)"
	}
	return "<expression>"
}
