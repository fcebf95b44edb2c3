package compiler

import (
	"strconv"
	"strings"

	"github.com/roach88/jamc/internal/ast"
	"github.com/roach88/jamc/internal/ir"
)

// tierBit is the code and minimum tier level of one jsys.type comparison.
type tierBit struct {
	code  int
	level int
}

// tierTable maps (operator, tier) to the tiers an activity may run on.
var tierTable = map[string]map[string]tierBit{
	"==": {
		"device": {code: ir.TierDevice, level: 1},
		"fog":    {code: ir.TierFog, level: 2},
		"cloud":  {code: ir.TierCloud, level: 3},
	},
	"!=": {
		"device": {code: ir.TierFog | ir.TierCloud, level: 1},
		"fog":    {code: ir.TierDevice | ir.TierCloud, level: 2},
		"cloud":  {code: ir.TierDevice | ir.TierFog, level: 3},
	},
}

// jconditional compiles every entry of a jcond block, stores the results
// in the condition table and emits their runtime registrations followed by
// the flow declarations the entries needed.
func (p *pass) jconditional(n *ast.Jconditional) (string, bool, error) {
	prefix := ""
	if n.Namespace != "" {
		prefix = n.Namespace + "."
	}
	var out strings.Builder
	decls := "\n"
	for _, e := range n.Entries {
		if e == nil {
			return "", false, grammarError(n, "empty jcond entry")
		}
		p.ruleReads = nil
		cond, err := p.entry(e)
		if err != nil {
			return "", false, err
		}
		name := prefix + e.Name
		p.condReads[name] = ir.MergeNames(nil, p.ruleReads)
		lit, err := cond.RuntimeLiteral()
		if err != nil {
			return "", false, grammarError(e, "encoding condition %s: %v", name, err)
		}
		out.WriteString("jworklib.setjcond(" + strconv.Quote(name) + ", " + lit + ");\n")
		decls += cond.DependentDecls
		p.defineCondition(name, cond)
	}
	return out.String() + decls, true, nil
}

func (p *pass) defineCondition(name string, cond ir.JCond) {
	c := ir.Condition{Name: name, JCond: cond}
	if k, ok := p.conds[name]; ok {
		p.condOrder[k] = c
		return
	}
	p.conds[name] = len(p.condOrder)
	p.condOrder = append(p.condOrder, c)
}

// markJDataRead records a jdata read in the current scope and against the
// condition entry being compiled.
func (p *pass) markJDataRead(name string) {
	p.syms.MarkJDataRead(name)
	p.ruleReads = append(p.ruleReads, name)
}

// condition returns a previously compiled condition by its qualified name.
func (p *pass) condition(name string) (ir.JCond, bool) {
	k, ok := p.conds[name]
	if !ok {
		return ir.JCond{}, false
	}
	return p.condOrder[k].JCond, true
}

// entry folds the rules of one named condition into a single descriptor.
func (p *pass) entry(e *ast.JcondEntry) (ir.JCond, error) {
	if e.Name == "" {
		return ir.JCond{}, grammarError(e, "condition without a name")
	}
	if len(e.Rules) == 0 {
		return ir.JCond{}, grammarError(e, "condition %s has no rules", e.Name)
	}
	if len(e.Ops) != len(e.Rules)-1 {
		return ir.JCond{}, grammarError(e, "condition %s: %d rules joined by %d operators", e.Name, len(e.Rules), len(e.Ops))
	}
	acc, err := p.rule(e.Rules[0])
	if err != nil {
		return ir.JCond{}, err
	}
	for i, r := range e.Rules[1:] {
		op := e.Ops[i]
		if op != "&&" && op != "||" {
			return ir.JCond{}, grammarError(e, "unknown boolean operator %q in condition %s", op, e.Name)
		}
		next, err := p.rule(r)
		if err != nil {
			return ir.JCond{}, err
		}
		acc = acc.Combine(op, next)
	}
	return acc, nil
}

// rule compiles one comparison into a descriptor.
func (p *pass) rule(r *ast.JcondRule) (ir.JCond, error) {
	if r == nil {
		return ir.JCond{}, grammarError(nil, "missing jcond rule")
	}
	if r.Left == nil || r.Right == nil || r.Op == "" {
		return ir.JCond{}, grammarError(r, "incomplete jcond rule")
	}
	left, right := r.Left, r.Right
	if isJsys(right, "type") {
		if isJsys(left, "type") {
			return ir.JCond{}, illegalError(r, "cannot have jsys.type on both sides of a condition")
		}
		left, right = right, left
	}

	code := 0
	switch {
	case isJsys(left, "type"):
		row, ok := tierTable[r.Op]
		if !ok {
			return ir.JCond{}, illegalError(r, "operator %s is not compatible with jsys.type", r.Op)
		}
		if lit, ok := right.(*ast.Literal); ok {
			if tier, ok := lit.StringValue(); ok {
				if bit, ok := row[tier]; ok {
					code = bit.code
					p.maxLevel = max(p.maxLevel, bit.level)
				}
			}
		}
	case isJsys(left, "sync"):
		// Only "at least one" or "exactly n" with a positive n asks for
		// synchronous execution; any other sync comparison carries no flag.
		if r.Op != ">=" && r.Op != "==" {
			break
		}
		if lit, ok := right.(*ast.Literal); ok {
			if v, ok := lit.Number(); ok && v > 0 {
				code = ir.SyncFlag
			}
		}
	case !isLiteral(left) || !isLiteral(right):
		code = ir.DynamicFlag
	}

	lhs, err := p.operand(left, "")
	if err != nil {
		return ir.JCond{}, err
	}
	rhs, err := p.operand(right, "")
	if err != nil {
		return ir.JCond{}, err
	}

	callbacks := []string{}
	if r.Callback != "" {
		callbacks = append(callbacks, r.Callback)
	}
	return ir.JCond{
		Expression:     lhs.runtime() + " " + r.Op + " " + rhs.runtime(),
		Code:           code,
		Callbacks:      callbacks,
		DependentDecls: lhs.decls + rhs.decls,
		BroadcastDeps:  ir.MergeNames(lhs.bcasts, rhs.bcasts),
	}, nil
}

func isLiteral(n ast.Node) bool {
	_, ok := n.(*ast.Literal)
	return ok
}

// isJsys reports whether n is the member reference jsys.<field>.
func isJsys(n ast.Node, field string) bool {
	m, ok := n.(*ast.MemberExpr)
	if !ok || m.Property != field {
		return false
	}
	id, ok := m.Object.(*ast.Identifier)
	return ok && id.Name == "jsys"
}
