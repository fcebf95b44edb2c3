package compiler

import (
	"github.com/roach88/jamc/internal/ast"
	"github.com/roach88/jamc/internal/ir"
	"github.com/roach88/jamc/internal/milestone"
	"github.com/roach88/jamc/internal/symtab"
)

// activity classifies a jsync or jasync declaration, registers it and
// emits the machine-function stub for it.
func (p *pass) activity(n *ast.ActivityDef) (string, bool, error) {
	if n.Func == nil || n.Func.Name == "" {
		return "", false, grammarError(n, "activity without a function declaration")
	}
	var (
		kind  ir.ActivityKind
		stone milestone.Kind
	)
	switch n.Kind {
	case "sync":
		kind, stone = ir.ActivitySync, milestone.Sync
	case "async":
		kind, stone = ir.ActivityAsync, milestone.Async
	default:
		return "", false, grammarError(n, "unknown activity kind %q", n.Kind)
	}
	name := n.Func.Name
	lang := p.cfg.language
	params := append([]string{}, n.Func.Params...)

	var cond ir.JCond
	_, err := p.withScope(func() error {
		p.syms.MarkInActivity(true)
		p.syms.SetActivityName(name)

		var err error
		if cond, err = p.activityCond(n); err != nil {
			return err
		}

		for _, param := range params {
			p.syms.Define(&symtab.Symbol{Name: param, Kind: symtab.KindVariable})
		}
		saved := p.currentFunc
		p.currentFunc = name
		p.defineFunc(name)
		body, err := p.text(n.Func.Body)
		p.currentFunc = saved
		if err != nil {
			return err
		}

		p.log.Debug(string(kind)+" activity", "name", name, "code", cond.Code)
		p.cfg.milestones.RegisterFunction(name, stone)
		p.cfg.graph.AddActivity(lang, name, kind)

		scope := p.syms.Current()
		p.syms.RegisterActivity(ir.Activity{
			Name:        name,
			Language:    lang,
			Kind:        kind,
			JCond:       cond,
			Params:      params,
			Body:        body,
			Signature:   placeholders(len(params)),
			SideEffects: scope.SideEffects(),
			JDataReads:  scope.JDataReads(),
		})
		return nil
	})
	if err != nil {
		return "", false, err
	}
	p.syms.Define(&symtab.Symbol{Name: name, Kind: symtab.KindActivity})

	stub, err := p.cfg.factory.MachineFunction(kind, name, cond, params)
	if err != nil {
		ce := grammarError(n, "activity %s: machine function: %v", name, err)
		ce.Err = err
		return "", false, ce
	}
	return stub, true, nil
}

// activityCond combines the conditions guarding an activity with &&. An
// unguarded activity gets the always-true descriptor. The jdata the guards
// read are marked in the activity's scope.
func (p *pass) activityCond(n *ast.ActivityDef) (ir.JCond, error) {
	if len(n.Conds) == 0 {
		return ir.TrueCond(), nil
	}
	var acc ir.JCond
	for i, name := range n.Conds {
		c, ok := p.condition(name)
		if !ok {
			return ir.JCond{}, undefinedError(n, "condition %s is not defined", name)
		}
		for _, read := range p.condReads[name] {
			p.syms.MarkJDataRead(read)
		}
		if i == 0 {
			acc = c
			continue
		}
		acc = acc.Combine("&&", c)
	}
	return acc, nil
}

// task registers a jtask. Tasks are not wired to code generation yet and
// emit nothing.
func (p *pass) task(n *ast.TaskActivity) (string, bool, error) {
	if n.Name == "" {
		return "", false, grammarError(n, "jtask without a name")
	}
	p.syms.RegisterTask(n.Name, p.cfg.language, nil)
	p.log.Debug("task", "name", n.Name)
	return "", false, nil
}

func placeholders(n int) []string {
	sig := make([]string, n)
	for i := range sig {
		sig[i] = ir.SignaturePlaceholder
	}
	return sig
}
