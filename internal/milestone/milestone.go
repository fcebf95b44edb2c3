// Package milestone tracks which kind of dispatch each function compiles to.
package milestone

import "sort"

// Kind is the dispatch kind of a function.
type Kind string

const (
	Sync  Kind = "SYNC"
	Async Kind = "ASYNC"
	Batch Kind = "BATCH"
)

// Registry maps function names to their kind. The last registration of a
// name wins.
type Registry struct {
	kinds map[string]Kind
}

func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

func (r *Registry) RegisterFunction(name string, kind Kind) {
	r.kinds[name] = kind
}

func (r *Registry) Kind(name string) (Kind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// Names returns every registered name of the given kind, sorted.
func (r *Registry) Names(kind Kind) []string {
	var out []string
	for name, k := range r.kinds {
		if k == kind {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Len() int { return len(r.kinds) }
