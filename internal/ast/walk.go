package ast

import "sort"

// Flatten splices the items of Seq nodes into the list, recursively, and
// drops nil nodes.
func Flatten(nodes []Node) []Node {
	var out []Node
	for _, n := range nodes {
		switch n := n.(type) {
		case nil:
		case *Seq:
			out = append(out, Flatten(n.Items)...)
		default:
			out = append(out, n)
		}
	}
	return out
}

// SortByPos orders nodes by the start of their source interval. Nodes with
// equal starts keep their relative order.
func SortByPos(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Pos() < nodes[j].Pos()
	})
}
