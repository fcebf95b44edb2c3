package compiler

import (
	"strings"

	"github.com/roach88/jamc/internal/ast"
)

// eval computes the value of n. ok is false when the node contributes no
// text, which is different from contributing the empty string.
func (p *pass) eval(n ast.Node) (text string, ok bool, err error) {
	switch n := n.(type) {
	case nil:
		return "", false, nil
	case *ast.Terminal:
		return n.Text, true, nil
	case *ast.Identifier:
		return n.Name, true, nil
	case *ast.Literal:
		return n.Text, true, nil
	case *ast.Generic:
		return p.concat(n.Children)
	case *ast.Seq:
		return p.concat(n.Items)
	case *ast.MemberExpr:
		obj, _, err := p.eval(n.Object)
		if err != nil {
			return "", false, err
		}
		return obj + "." + n.Property, true, nil

	case *ast.Jconditional:
		return p.jconditional(n)
	case *ast.ActivityDef:
		return p.activity(n)
	case *ast.TaskActivity:
		return p.task(n)
	case *ast.JdataDecl:
		return p.jdataDecl(n)
	case *ast.JdataSpec:
		return p.jdataSpec(n)
	case *ast.FlowDecl:
		return p.flowDecl(n)
	case *ast.Export:
		return p.export(n)
	case *ast.Require:
		return p.require(n)

	case *ast.FunctionDecl:
		return p.functionDecl(n)
	case *ast.FunctionExpr:
		return p.functionExpr(n)
	case *ast.VarDecl:
		return p.varDecl(n)
	case *ast.Assignment:
		return p.assignment(n)
	case *ast.Call:
		return p.call(n)
	case *ast.Loop:
		return p.loop(n)

	case *ast.Program:
		return "", false, grammarError(n, "nested Program")
	case *ast.ReduceExpr:
		return "", false, grammarError(n, "reduction %s() is only allowed inside a jcond rule", n.Func)
	case *ast.JcondRule, *ast.JcondEntry:
		return "", false, grammarError(n, "jcond rule outside a jcond block")
	case *ast.CType:
		return "", false, grammarError(n, "type %s outside a jdata declaration", n.String())
	}
	return "", false, grammarError(n, "unexpected node %T", n)
}

// concat is the default rule: flatten iteration children, restore lexical
// order, and concatenate the values that are present.
func (p *pass) concat(children []ast.Node) (string, bool, error) {
	nodes := ast.Flatten(children)
	ast.SortByPos(nodes)

	var b strings.Builder
	present := false
	for _, c := range nodes {
		text, ok, err := p.eval(c)
		if err != nil {
			return "", false, err
		}
		if ok {
			present = true
			b.WriteString(text)
		}
	}
	return b.String(), present, nil
}

// text evaluates n and treats an absent value as the empty string.
func (p *pass) text(n ast.Node) (string, error) {
	s, _, err := p.eval(n)
	return s, err
}
