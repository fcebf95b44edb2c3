package testutil

import (
	"strconv"

	"github.com/roach88/jamc/internal/ast"
)

// Tree builds syntax trees for tests. Every node it creates gets a fresh,
// strictly increasing source interval, so siblings built in order are also
// in lexical order.
type Tree struct {
	pos int
}

func NewTree() *Tree {
	return &Tree{}
}

func (t *Tree) span() ast.Span {
	t.pos += 2
	return ast.Span{From: t.pos - 1, To: t.pos}
}

func (t *Tree) Program(elements ...ast.Node) *ast.Program {
	return &ast.Program{Span: t.span(), Elements: elements}
}

func (t *Tree) Ident(name string) *ast.Identifier {
	return &ast.Identifier{Span: t.span(), Name: name}
}

// Str builds a double-quoted string literal.
func (t *Tree) Str(s string) *ast.Literal {
	return &ast.Literal{Span: t.span(), Text: strconv.Quote(s)}
}

// Num builds a number literal from its source text.
func (t *Tree) Num(text string) *ast.Literal {
	return &ast.Literal{Span: t.span(), Text: text}
}

func (t *Tree) Term(text string) *ast.Terminal {
	return &ast.Terminal{Span: t.span(), Text: text}
}

func (t *Tree) Generic(kind string, children ...ast.Node) *ast.Generic {
	return &ast.Generic{Span: t.span(), Kind: kind, Children: children}
}

// Stmt builds an expression statement: the children followed by ";".
func (t *Tree) Stmt(children ...ast.Node) *ast.Generic {
	kids := append(append([]ast.Node{}, children...), t.Term(";"))
	return t.Generic("ExpressionStatement", kids...)
}

func (t *Tree) Seq(items ...ast.Node) *ast.Seq {
	return &ast.Seq{Span: t.span(), Items: items}
}

// Member builds obj.prop where obj is an identifier.
func (t *Tree) Member(obj, prop string) *ast.MemberExpr {
	id := t.Ident(obj)
	return &ast.MemberExpr{Span: t.span(), Object: id, Property: prop}
}

func (t *Tree) Jsys(field string) *ast.MemberExpr {
	return t.Member("jsys", field)
}

func (t *Tree) Reduce(fn string, operand ast.Node) *ast.ReduceExpr {
	return &ast.ReduceExpr{Span: t.span(), Func: fn, Operand: operand}
}

func (t *Tree) Rule(left ast.Node, op string, right ast.Node) *ast.JcondRule {
	return &ast.JcondRule{Span: t.span(), Left: left, Op: op, Right: right}
}

// Entry builds a named condition. ops join consecutive rules.
func (t *Tree) Entry(name string, rules []*ast.JcondRule, ops ...string) *ast.JcondEntry {
	return &ast.JcondEntry{Span: t.span(), Name: name, Rules: rules, Ops: ops}
}

func (t *Tree) Jcond(namespace string, entries ...*ast.JcondEntry) *ast.Jconditional {
	return &ast.Jconditional{Span: t.span(), Namespace: namespace, Entries: entries}
}

func (t *Tree) Func(name string, params []string, body ast.Node) *ast.FunctionDecl {
	return &ast.FunctionDecl{Span: t.span(), Name: name, Params: params, Body: body}
}

func (t *Tree) FuncExpr(name string, params []string, body ast.Node) *ast.FunctionExpr {
	return &ast.FunctionExpr{Span: t.span(), Name: name, Params: params, Body: body}
}

// Sync builds a jsync activity guarded by the named conditions.
func (t *Tree) Sync(name string, params []string, conds []string, body ast.Node) *ast.ActivityDef {
	fn := t.Func(name, params, body)
	return &ast.ActivityDef{Span: t.span(), Kind: "sync", Conds: conds, Func: fn}
}

// Async builds a jasync activity guarded by the named conditions.
func (t *Tree) Async(name string, params []string, conds []string, body ast.Node) *ast.ActivityDef {
	fn := t.Func(name, params, body)
	return &ast.ActivityDef{Span: t.span(), Kind: "async", Conds: conds, Func: fn}
}

func (t *Tree) Task(name string, params ...string) *ast.TaskActivity {
	return &ast.TaskActivity{Span: t.span(), Name: name, Params: params}
}

func (t *Tree) Var(name string, init ast.Node) *ast.VarDecl {
	return &ast.VarDecl{Span: t.span(), Name: name, Init: init}
}

func (t *Tree) Assign(target, value ast.Node) *ast.Assignment {
	return &ast.Assignment{Span: t.span(), Target: target, Value: value}
}

func (t *Tree) Call(callee ast.Node, args ...ast.Node) *ast.Call {
	return &ast.Call{Span: t.span(), Callee: callee, Args: args}
}

func (t *Tree) Loop(keyword string, head, body ast.Node) *ast.Loop {
	return &ast.Loop{Span: t.span(), Keyword: keyword, Head: head, Body: body}
}

func (t *Tree) Jdata(specs ...ast.Node) *ast.JdataDecl {
	return &ast.JdataDecl{Span: t.span(), Specs: specs}
}

// Scalar is the element type of text-valued jdata.
func (t *Tree) Scalar() *ast.CType {
	return &ast.CType{Span: t.span(), Name: "char", Pointer: true}
}

func (t *Tree) Type(name string) *ast.CType {
	return &ast.CType{Span: t.span(), Name: name}
}

func (t *Tree) Struct(name string, entries ...ast.StructEntry) *ast.CType {
	if entries == nil {
		entries = []ast.StructEntry{}
	}
	return &ast.CType{Span: t.span(), Name: name, Entries: entries}
}

func (t *Tree) Logger(name string, typ *ast.CType) *ast.JdataSpec {
	return &ast.JdataSpec{Span: t.span(), Type: typ, Name: name, Kind: "logger"}
}

func (t *Tree) Broadcaster(name string, typ *ast.CType) *ast.JdataSpec {
	return &ast.JdataSpec{Span: t.span(), Type: typ, Name: name, Kind: "broadcaster"}
}

func (t *Tree) Shuffler(name string, typ *ast.CType) *ast.JdataSpec {
	return &ast.JdataSpec{Span: t.span(), Type: typ, Name: name, Kind: "shuffler"}
}

func (t *Tree) Flow(name, fn, input string) *ast.FlowDecl {
	return &ast.FlowDecl{Span: t.span(), Name: name, Kind: "flow", Func: fn, Input: input}
}

func (t *Tree) OutFlow(name, input string) *ast.FlowDecl {
	return &ast.FlowDecl{Span: t.span(), Name: name, Kind: "outflow", Input: input}
}

func (t *Tree) InFlow(name string) *ast.FlowDecl {
	return &ast.FlowDecl{Span: t.span(), Name: name, Kind: "inflow"}
}

func (t *Tree) Export(name, level string) *ast.Export {
	return &ast.Export{Span: t.span(), Name: name, Level: level}
}

func (t *Tree) Require(fn, namespace, level string) *ast.Require {
	return &ast.Require{Span: t.span(), Func: fn, Namespace: namespace, Level: level}
}
