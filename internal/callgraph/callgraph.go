// Package callgraph records the functions, activities and call sites seen by
// one compilation pass.
package callgraph

import (
	"sort"

	"github.com/roach88/jamc/internal/ir"
)

// NodeKind distinguishes plain functions from tier-tagged activities.
type NodeKind string

const (
	NodeFunction NodeKind = "function"
	NodeSync     NodeKind = "sync"
	NodeAsync    NodeKind = "async"
)

// Node is a vertex of the graph.
type Node struct {
	Language string   `json:"language"`
	Name     string   `json:"name"`
	Kind     NodeKind `json:"kind"`
}

// Graph is an append-only call graph. It is not safe for concurrent use.
type Graph struct {
	nodes []Node
	index map[string]int
	edges []ir.CallEdge
}

func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// AddFunction adds a function node. A name already present keeps its
// original position; its kind is only upgraded, never downgraded.
func (g *Graph) AddFunction(lang, name string) {
	g.add(Node{Language: lang, Name: name, Kind: NodeFunction})
}

// AddActivity adds an activity node tagged with its kind.
func (g *Graph) AddActivity(lang, name string, kind ir.ActivityKind) {
	nk := NodeSync
	if kind == ir.ActivityAsync {
		nk = NodeAsync
	}
	g.add(Node{Language: lang, Name: name, Kind: nk})
}

func (g *Graph) add(n Node) {
	key := n.Language + "\x00" + n.Name
	if k, ok := g.index[key]; ok {
		if n.Kind != NodeFunction {
			g.nodes[k].Kind = n.Kind
		}
		return
	}
	g.index[key] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

// AddCall appends one call site.
func (g *Graph) AddCall(e ir.CallEdge) {
	g.edges = append(g.edges, e)
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []Node {
	return append([]Node(nil), g.nodes...)
}

// Edges returns the call sites in source order.
func (g *Graph) Edges() []ir.CallEdge {
	return append([]ir.CallEdge(nil), g.edges...)
}

// Callees returns the distinct callee texts called from caller, sorted.
func (g *Graph) Callees(caller string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range g.edges {
		if e.Caller == caller && !seen[e.Callee] {
			seen[e.Callee] = true
			out = append(out, e.Callee)
		}
	}
	sort.Strings(out)
	return out
}
