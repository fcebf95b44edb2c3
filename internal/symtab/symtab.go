// Package symtab is the scope and symbol manager of the pre-compilation
// pass.
//
// A Manager holds a stack of lexical scopes plus the global registries of
// jdata variables, activities, functions and tasks. It is supplied by the caller, mutated in
// place by one pass, and is not safe for concurrent use: scope enter/exit
// must not interleave across goroutines.
package symtab

import (
	"fmt"

	"github.com/roach88/jamc/internal/ir"
)

// SymbolKind classifies a symbol.
type SymbolKind int

const (
	KindVariable SymbolKind = iota
	KindJData
	KindActivity
	KindFunction
)

func (k SymbolKind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindJData:
		return "jdata"
	case KindActivity:
		return "activity"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// JDataKind is the sharing discipline of a jdata variable.
type JDataKind string

const (
	Logger      JDataKind = "logger"
	Broadcaster JDataKind = "broadcaster"
	Shuffler    JDataKind = "shuffler"
)

// Valid reports whether k is a known jdata kind.
func (k JDataKind) Valid() bool {
	return k == Logger || k == Broadcaster || k == Shuffler
}

// ScalarType is the element type read by last value only. Every other
// element type is aggregated through a flow.
const ScalarType = "char*"

// Symbol is a named entry in a scope.
type Symbol struct {
	Name      string
	Kind      SymbolKind
	TypeSpec  string    // jdata element type, e.g. "char*" or "struct weather"
	JDataKind JDataKind // set for KindJData only
}

// Scalar reports whether a jdata symbol holds opaque scalar values.
func (s *Symbol) Scalar() bool {
	return s.TypeSpec == ScalarType
}

// Scope is one entry of the scope stack.
type Scope struct {
	symbols     map[string]*Symbol
	names       []string
	inActivity  bool
	activity    string
	sideEffects nameSet
	jdataReads  nameSet
}

func newScope() *Scope {
	return &Scope{symbols: make(map[string]*Symbol)}
}

// Names returns the names declared in the scope in declaration order.
func (s *Scope) Names() []string { return append([]string(nil), s.names...) }

func (s *Scope) InActivity() bool { return s.inActivity }
func (s *Scope) ActivityName() string { return s.activity }
func (s *Scope) SideEffects() []string { return s.sideEffects.list() }
func (s *Scope) JDataReads() []string { return s.jdataReads.list() }

// nameSet is an insertion-ordered set of names.
type nameSet struct {
	seen  map[string]bool
	order []string
}

func (n *nameSet) add(name string) {
	if n.seen == nil {
		n.seen = make(map[string]bool)
	}
	if !n.seen[name] {
		n.seen[name] = true
		n.order = append(n.order, name)
	}
}

func (n *nameSet) list() []string { return append([]string(nil), n.order...) }

// Manager is the scope stack plus the global registries.
type Manager struct {
	stack      []*Scope
	jdata      map[string]*Symbol
	jdataOrder []string
	activities map[string]int
	actOrder   []ir.Activity
	functions  map[string]string
	funcOrder  []string
	tasks      map[string]int
	taskOrder  []ir.Task
	enters     int
	exits      int
}

// NewManager returns a manager holding only the global scope.
func NewManager() *Manager {
	return &Manager{
		stack:      []*Scope{newScope()},
		jdata:      make(map[string]*Symbol),
		activities: make(map[string]int),
		functions:  make(map[string]string),
		tasks:      make(map[string]int),
	}
}

func (m *Manager) tos() *Scope {
	return m.stack[len(m.stack)-1]
}

// Current returns the innermost scope.
func (m *Manager) Current() *Scope { return m.tos() }

// Depth is the number of scopes entered and not yet exited.
func (m *Manager) Depth() int { return len(m.stack) - 1 }

// Balance returns how many times EnterScope and ExitScope were called.
func (m *Manager) Balance() (enters, exits int) { return m.enters, m.exits }

func (m *Manager) EnterScope() {
	m.enters++
	m.stack = append(m.stack, newScope())
}

// ExitScope pops the innermost scope and returns it. Exiting the global
// scope is a programming error.
func (m *Manager) ExitScope() *Scope {
	if len(m.stack) == 1 {
		panic("symtab: ExitScope without matching EnterScope")
	}
	m.exits++
	s := m.tos()
	m.stack = m.stack[:len(m.stack)-1]
	return s
}

// Define inserts sym into the current scope. Redefinition replaces the
// previous entry; callers that must reject duplicates check first.
func (m *Manager) Define(sym *Symbol) {
	s := m.tos()
	if _, ok := s.symbols[sym.Name]; !ok {
		s.names = append(s.names, sym.Name)
	}
	s.symbols[sym.Name] = sym
}

// Resolve looks name up from the innermost scope outwards.
func (m *Manager) Resolve(name string) (*Symbol, bool) {
	for k := len(m.stack) - 1; k >= 0; k-- {
		if sym, ok := m.stack[k].symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// DefineJData registers a jdata variable in the global jdata registry. Plain
// declarations never replace a registered name. It returns false, leaving the
// registry unchanged, when the name is already registered.
func (m *Manager) DefineJData(sym *Symbol) bool {
	if _, ok := m.jdata[sym.Name]; ok {
		return false
	}
	sym.Kind = KindJData
	m.jdata[sym.Name] = sym
	m.jdataOrder = append(m.jdataOrder, sym.Name)
	return true
}

// JData returns the registered jdata variable called name.
func (m *Manager) JData(name string) (*Symbol, bool) {
	sym, ok := m.jdata[name]
	return sym, ok
}

// ResolveJData looks name up as a jdata variable from the current position.
// A parameter or local declared in an enclosing function scope shadows the
// jdata variable; declarations in the global scope do not.
func (m *Manager) ResolveJData(name string) (*Symbol, bool) {
	for k := len(m.stack) - 1; k > 0; k-- {
		if _, ok := m.stack[k].symbols[name]; ok {
			return nil, false
		}
	}
	return m.JData(name)
}

// JDataNames returns the registered jdata names in declaration order.
func (m *Manager) JDataNames() []string {
	return append([]string(nil), m.jdataOrder...)
}

func (m *Manager) MarkInActivity(in bool) { m.tos().inActivity = in }
func (m *Manager) SetActivityName(name string) { m.tos().activity = name }
func (m *Manager) MarkSideEffect(name string) { m.tos().sideEffects.add(name) }
func (m *Manager) MarkJDataRead(name string) { m.tos().jdataReads.add(name) }

// InActivity reports whether any enclosing scope belongs to an activity.
func (m *Manager) InActivity() bool {
	for k := len(m.stack) - 1; k >= 0; k-- {
		if m.stack[k].inActivity {
			return true
		}
	}
	return false
}

// ActivityName returns the name of the innermost enclosing activity.
func (m *Manager) ActivityName() string {
	for k := len(m.stack) - 1; k >= 0; k-- {
		if m.stack[k].activity != "" {
			return m.stack[k].activity
		}
	}
	return ""
}

// RegisterActivity records an activity in the global registry. A second
// registration under the same name replaces the record in place.
func (m *Manager) RegisterActivity(a ir.Activity) {
	if k, ok := m.activities[a.Name]; ok {
		m.actOrder[k] = a
		return
	}
	m.activities[a.Name] = len(m.actOrder)
	m.actOrder = append(m.actOrder, a)
}

func (m *Manager) Activity(name string) (ir.Activity, bool) {
	k, ok := m.activities[name]
	if !ok {
		return ir.Activity{}, false
	}
	return m.actOrder[k], true
}

// Activities returns the registered activities in registration order.
func (m *Manager) Activities() []ir.Activity {
	return append([]ir.Activity(nil), m.actOrder...)
}

// RegisterFunction records a function and the language it is written in.
func (m *Manager) RegisterFunction(name, lang string) {
	if _, ok := m.functions[name]; !ok {
		m.funcOrder = append(m.funcOrder, name)
	}
	m.functions[name] = lang
}

// Function returns the language of a registered function.
func (m *Manager) Function(name string) (string, bool) {
	lang, ok := m.functions[name]
	return lang, ok
}

func (m *Manager) Functions() []string {
	return append([]string(nil), m.funcOrder...)
}

// RegisterTask records a jtask with its metadata.
func (m *Manager) RegisterTask(name, lang string, meta map[string]string) {
	if meta == nil {
		meta = map[string]string{}
	}
	t := ir.Task{Name: name, Language: lang, Meta: meta}
	if k, ok := m.tasks[name]; ok {
		m.taskOrder[k] = t
		return
	}
	m.tasks[name] = len(m.taskOrder)
	m.taskOrder = append(m.taskOrder, t)
}

func (m *Manager) Tasks() []ir.Task {
	return append([]ir.Task(nil), m.taskOrder...)
}

func (m *Manager) String() string {
	return fmt.Sprintf("symtab(depth=%d, jdata=%d, activities=%d, functions=%d, tasks=%d)",
		m.Depth(), len(m.jdataOrder), len(m.actOrder), len(m.funcOrder), len(m.taskOrder))
}
