package ir

// Tier bits of a condition code. The low three bits select the tiers an
// activity may run on; the upper bits flag clauses the scheduler must
// evaluate at runtime.
const (
	TierDevice  = 1
	TierFog     = 2
	TierCloud   = 4
	SyncFlag    = 8  // jsys.sync requires synchronization
	DynamicFlag = 16 // clause depends on runtime values
)

// JCond is a compiled condition descriptor. It is immutable once built.
type JCond struct {
	Expression     string   `json:"expression"`
	Code           int      `json:"code"`
	Callbacks      []string `json:"callbacks"`
	DependentDecls string   `json:"dependent_decls,omitempty"`
	BroadcastDeps  []string `json:"broadcast_deps"`
}

// TrueCond is the descriptor of an unguarded activity.
func TrueCond() JCond {
	return JCond{Expression: "true", Callbacks: []string{}, BroadcastDeps: []string{}}
}

// Combine joins c and next with the boolean operator op: codes are ORed,
// expressions concatenated around op, callbacks appended and broadcast
// dependencies unioned in first-seen order. Neither input is modified.
func (c JCond) Combine(op string, next JCond) JCond {
	out := JCond{
		Expression:     c.Expression + " " + op + " " + next.Expression,
		Code:           c.Code | next.Code,
		DependentDecls: c.DependentDecls + next.DependentDecls,
	}
	out.Callbacks = append(append([]string{}, c.Callbacks...), next.Callbacks...)
	out.BroadcastDeps = MergeNames(c.BroadcastDeps, next.BroadcastDeps)
	return out
}

// MergeNames returns the union of a and b, keeping first-seen order.
func MergeNames(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// Condition is a named condition as exported to the flat condition table.
type Condition struct {
	Name string `json:"name"`
	JCond
}

// ActivityKind classifies an activity.
type ActivityKind string

const (
	ActivitySync  ActivityKind = "sync"
	ActivityAsync ActivityKind = "async"
)

// Activity is the registry record of an activity. Signature holds one
// placeholder element per parameter; concrete typing happens later.
type Activity struct {
	Name        string       `json:"name"`
	Language    string       `json:"language"`
	Kind        ActivityKind `json:"kind"`
	Callback    bool         `json:"callback,omitempty"`
	JCond       JCond        `json:"jcond"`
	Params      []string     `json:"params"`
	Body        string       `json:"body"`
	Signature   []string     `json:"signature"`
	SideEffects []string     `json:"side_effects,omitempty"`
	JDataReads  []string     `json:"jdata_reads,omitempty"`
}

// SignaturePlaceholder is the signature element given to every parameter.
const SignaturePlaceholder = "x"

// Task is a registered jtask. Tasks carry metadata only and emit no code.
type Task struct {
	Name     string            `json:"name"`
	Language string            `json:"language"`
	Meta     map[string]string `json:"meta"`
}

// CallEdge records one call site.
type CallEdge struct {
	Language string `json:"language"`
	Caller   string `json:"caller"`
	Callee   string `json:"callee"`
	Args     string `json:"args"`
}

// Side tags which half of a program an export or import belongs to.
type Side string

const (
	SideLocal  Side = "J" // the scripting side compiled by this pass
	SideRemote Side = "C" // the native side
)

// NoLevel is the level recorded for exports without a tier annotation.
const NoLevel = "None"

type Export struct {
	Function string `json:"function" yaml:"function"`
	Level    string `json:"level" yaml:"level"`
	Side     Side   `json:"side" yaml:"side"`
}

type Import struct {
	Function  string `json:"function"`
	Namespace string `json:"namespace"`
	Level     string `json:"level"`
}

// JData kinds as recorded in an Output.
const (
	JDataLogger      = "logger"
	JDataBroadcaster = "broadcaster"
	JDataShuffler    = "shuffler"
)

// JDataDecl is a declared jdata variable.
type JDataDecl struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Type string `json:"type"`
}

// Output is the result of one pass over a source unit.
type Output struct {
	Source     string      `json:"source"`
	Header     string      `json:"header"`
	MaxLevel   int         `json:"max_level"`
	HasJData   bool        `json:"has_jdata"`
	JData      []JDataDecl `json:"jdata"`
	Conditions []Condition `json:"conditions"`
	Activities []Activity  `json:"activities"`
	Tasks      []Task      `json:"tasks"`
	Functions  []string    `json:"functions"`
	Calls      []CallEdge  `json:"calls"`
	Exports    []Export    `json:"exports"`
	Imports    []Import    `json:"imports"`
	Flows      []string    `json:"flows"`
}

// Text returns the complete translated program: the runtime-imports header
// followed by the translated source.
func (o *Output) Text() string {
	return o.Header + o.Source
}

// Condition returns the named condition, if compiled.
func (o *Output) Condition(name string) (Condition, bool) {
	for _, c := range o.Conditions {
		if c.Name == name {
			return c, true
		}
	}
	return Condition{}, false
}

// Activity returns the named activity, if registered.
func (o *Output) Activity(name string) (Activity, bool) {
	for _, a := range o.Activities {
		if a.Name == name {
			return a, true
		}
	}
	return Activity{}, false
}
