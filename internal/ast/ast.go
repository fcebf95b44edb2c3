// Package ast declares the syntax tree consumed by the JAMScript
// pre-compilation pass.
//
// The tree is produced by an external parser. Every node carries the source
// interval it was parsed from; the compiler uses it to restore lexical order
// and to position errors. Nodes are read-only once built.
package ast

// Node is implemented by every syntax tree node.
type Node interface {
	Pos() int // Offset of the first character belonging to the node.
	End() int // Offset of the first character after the node.
}

// Span is the half-open source interval [From, To) of a node.
type Span struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (s Span) Pos() int { return s.From }
func (s Span) End() int { return s.To }

// Valid reports whether the span was set by the parser.
func (s Span) Valid() bool { return s.To > s.From }

// SpanOf returns the interval of n, or the zero Span for a nil node.
func SpanOf(n Node) Span {
	if n == nil {
		return Span{}
	}
	return Span{From: n.Pos(), To: n.End()}
}

// Program is the root of a source unit.
type Program struct {
	Span
	Directives []Node
	Elements   []Node
}

// Generic is any production without a dedicated rule. Its value is the
// lexically ordered concatenation of its children's values.
type Generic struct {
	Span
	Kind     string
	Children []Node
}

// Seq is an iteration node. Its items are spliced into the parent when the
// parent is a Generic.
type Seq struct {
	Span
	Items []Node
}

// Terminal is literal source text emitted verbatim.
type Terminal struct {
	Span
	Text string
}

type Identifier struct {
	Span
	Name string
}

// Literal holds the raw source text of a string, number or boolean literal,
// quotes included.
type Literal struct {
	Span
	Text string
}

// MemberExpr is a property reference "object.property".
type MemberExpr struct {
	Span
	Object   Node
	Property string
}

// ReduceExpr wraps a condition operand in a reduction function such as
// max(w.temp).
type ReduceExpr struct {
	Span
	Func    string
	Operand Node
}

// JcondRule is a single comparison inside a condition entry, optionally
// followed by a callback name.
type JcondRule struct {
	Span
	Left     Node
	Op       string
	Right    Node
	Callback string
}

// JcondEntry is a named condition. Ops holds the boolean operators joining
// consecutive rules, so len(Ops) == len(Rules)-1.
type JcondEntry struct {
	Span
	Name  string
	Rules []*JcondRule
	Ops   []string
}

// Jconditional is a jcond block, optionally namespaced.
type Jconditional struct {
	Span
	Namespace string
	Entries   []*JcondEntry
}

// ActivityDef is a jsync or jasync activity. Conds names the conditions
// guarding the activity, possibly namespaced ("ns.name").
type ActivityDef struct {
	Span
	Kind  string // "sync" or "async"
	Conds []string
	Func  *FunctionDecl
}

// TaskActivity is a jtask declaration.
type TaskActivity struct {
	Span
	Name   string
	Params []string
	Body   Node
}

type FunctionDecl struct {
	Span
	Name   string
	Params []string
	Body   Node
}

// FunctionExpr is a function expression. Name is empty for anonymous
// functions.
type FunctionExpr struct {
	Span
	Name   string
	Params []string
	Body   Node
}

type VarDecl struct {
	Span
	Name string
	Init Node
}

type Assignment struct {
	Span
	Target Node
	Value  Node
}

type Call struct {
	Span
	Callee Node
	Args   []Node
}

// Loop is an iteration statement such as "for" or "while". Head is the
// parenthesized part without the parentheses.
type Loop struct {
	Span
	Keyword string
	Head    Node
	Body    Node
}

// JdataDecl is a jdata block. Specs holds JdataSpec and FlowDecl nodes.
type JdataDecl struct {
	Span
	Specs []Node
}

// JdataSpec declares a logger, broadcaster or shuffler.
type JdataSpec struct {
	Span
	Type  *CType
	Name  string
	Kind  string // "logger", "broadcaster" or "shuffler"
	Level string
}

// CType is the element type of a jdata variable.
type CType struct {
	Span
	Name    string
	Pointer bool
	Entries []StructEntry // non-nil for struct types
}

type StructEntry struct {
	Name string
	Type string
}

// String renders the type the way it is written in source: "int",
// "char*" or "struct weather".
func (t *CType) String() string {
	if t == nil {
		return ""
	}
	if t.Entries != nil {
		return "struct " + t.Name
	}
	if t.Pointer {
		return t.Name + "*"
	}
	return t.Name
}

// FlowDecl declares a flow over a jdata source.
type FlowDecl struct {
	Span
	Name  string
	Kind  string // "flow", "outflow" or "inflow"
	Func  string
	Input string
}

// Export marks a function as invokable from the other side. Level is empty
// when no tier level was given.
type Export struct {
	Span
	Name  string
	Level string
}

// Require imports a namespace provided by the other side.
type Require struct {
	Span
	Func      string
	Namespace string
	Level     string
}
