package ast

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// UnpackError reports a tree whose shape does not match the grammar.
type UnpackError struct {
	Path    string
	Message string
}

func (e *UnpackError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Unpack converts the generic map form of a tree into nodes. The map form is
// what encoding/json, yaml.v3 and CUE all decode to: every node is an object
// with a "kind" discriminator, an optional "pos": [from, to] and kind-specific
// fields. Objects of an unknown kind that carry "children" unpack as Generic
// productions.
func Unpack(v any) (Node, error) {
	return unpackNode("", v)
}

type object struct {
	path string
	m    map[string]any
}

func unpackNode(path string, v any) (Node, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := asMap(v)
	if !ok {
		return nil, &UnpackError{Path: path, Message: fmt.Sprintf("expected node object, got %T", v)}
	}
	o := object{path: path, m: m}
	kind, err := o.str("kind")
	if err != nil {
		return nil, err
	}
	span, err := o.span()
	if err != nil {
		return nil, err
	}
	switch kind {
	case "Program":
		dirs, err := o.nodes("directives")
		if err != nil {
			return nil, err
		}
		elems, err := o.nodes("elements")
		if err != nil {
			return nil, err
		}
		return &Program{Span: span, Directives: dirs, Elements: elems}, nil
	case "Generic":
		prod, err := o.str("production")
		if err != nil {
			return nil, err
		}
		children, err := o.nodes("children")
		if err != nil {
			return nil, err
		}
		return &Generic{Span: span, Kind: prod, Children: children}, nil
	case "Seq":
		items, err := o.nodes("items")
		if err != nil {
			return nil, err
		}
		return &Seq{Span: span, Items: items}, nil
	case "Terminal":
		text, err := o.optStr("text")
		return &Terminal{Span: span, Text: text}, err
	case "Identifier":
		name, err := o.str("name")
		return &Identifier{Span: span, Name: name}, err
	case "Literal":
		text, err := o.str("text")
		return &Literal{Span: span, Text: text}, err
	case "MemberExpr":
		obj, err := o.node("object")
		if err != nil {
			return nil, err
		}
		prop, err := o.str("property")
		return &MemberExpr{Span: span, Object: obj, Property: prop}, err
	case "ReduceExpr":
		fn, err := o.str("func")
		if err != nil {
			return nil, err
		}
		operand, err := o.node("operand")
		return &ReduceExpr{Span: span, Func: fn, Operand: operand}, err
	case "JcondRule":
		return o.rule(span)
	case "JcondEntry":
		return o.entry(span)
	case "Jconditional":
		ns, err := o.optStr("namespace")
		if err != nil {
			return nil, err
		}
		list, err := o.list("entries")
		if err != nil {
			return nil, err
		}
		cond := &Jconditional{Span: span, Namespace: ns}
		for k, item := range list {
			n, err := unpackNode(indexPath(o.path, "entries", k), item)
			if err != nil {
				return nil, err
			}
			entry, ok := n.(*JcondEntry)
			if !ok {
				return nil, &UnpackError{Path: indexPath(o.path, "entries", k), Message: "expected JcondEntry"}
			}
			cond.Entries = append(cond.Entries, entry)
		}
		return cond, nil
	case "ActivityDef":
		act, err := o.str("activity")
		if err != nil {
			return nil, err
		}
		conds, err := o.strs("conds")
		if err != nil {
			return nil, err
		}
		fn, err := o.node("func")
		if err != nil {
			return nil, err
		}
		decl, ok := fn.(*FunctionDecl)
		if !ok {
			return nil, &UnpackError{Path: o.path + ".func", Message: "expected FunctionDecl"}
		}
		return &ActivityDef{Span: span, Kind: act, Conds: conds, Func: decl}, nil
	case "TaskActivity":
		name, params, body, err := o.function()
		return &TaskActivity{Span: span, Name: name, Params: params, Body: body}, err
	case "FunctionDecl":
		name, params, body, err := o.function()
		return &FunctionDecl{Span: span, Name: name, Params: params, Body: body}, err
	case "FunctionExpr":
		name, params, body, err := o.function()
		return &FunctionExpr{Span: span, Name: name, Params: params, Body: body}, err
	case "VarDecl":
		name, err := o.str("name")
		if err != nil {
			return nil, err
		}
		init, err := o.node("init")
		return &VarDecl{Span: span, Name: name, Init: init}, err
	case "Assignment":
		target, err := o.node("target")
		if err != nil {
			return nil, err
		}
		value, err := o.node("value")
		return &Assignment{Span: span, Target: target, Value: value}, err
	case "Call":
		callee, err := o.node("callee")
		if err != nil {
			return nil, err
		}
		args, err := o.nodes("args")
		return &Call{Span: span, Callee: callee, Args: args}, err
	case "Loop":
		kw, err := o.str("keyword")
		if err != nil {
			return nil, err
		}
		head, err := o.node("head")
		if err != nil {
			return nil, err
		}
		body, err := o.node("body")
		return &Loop{Span: span, Keyword: kw, Head: head, Body: body}, err
	case "JdataDecl":
		specs, err := o.nodes("specs")
		return &JdataDecl{Span: span, Specs: specs}, err
	case "JdataSpec":
		return o.jdataSpec(span)
	case "CType":
		return o.ctype(span)
	case "FlowDecl":
		fd := &FlowDecl{Span: span}
		var err error
		if fd.Name, err = o.str("name"); err != nil {
			return nil, err
		}
		if fd.Kind, err = o.str("flow"); err != nil {
			return nil, err
		}
		if fd.Func, err = o.optStr("func"); err != nil {
			return nil, err
		}
		fd.Input, err = o.optStr("input")
		return fd, err
	case "Export":
		name, err := o.str("name")
		if err != nil {
			return nil, err
		}
		level, err := o.optStr("level")
		return &Export{Span: span, Name: name, Level: level}, err
	case "Require":
		req := &Require{Span: span}
		var err error
		if req.Func, err = o.optStr("func"); err != nil {
			return nil, err
		}
		if req.Namespace, err = o.str("namespace"); err != nil {
			return nil, err
		}
		req.Level, err = o.optStr("level")
		return req, err
	}
	if _, ok := o.m["children"]; ok {
		children, err := o.nodes("children")
		return &Generic{Span: span, Kind: kind, Children: children}, err
	}
	return nil, &UnpackError{Path: path, Message: fmt.Sprintf("unknown node kind %q", kind)}
}

func (o object) rule(span Span) (*JcondRule, error) {
	left, err := o.node("left")
	if err != nil {
		return nil, err
	}
	op, err := o.str("op")
	if err != nil {
		return nil, err
	}
	right, err := o.node("right")
	if err != nil {
		return nil, err
	}
	if left == nil || right == nil {
		return nil, &UnpackError{Path: o.path, Message: "rule requires both operands"}
	}
	cb, err := o.optStr("callback")
	return &JcondRule{Span: span, Left: left, Op: op, Right: right, Callback: cb}, err
}

func (o object) entry(span Span) (*JcondEntry, error) {
	name, err := o.str("name")
	if err != nil {
		return nil, err
	}
	ops, err := o.strs("ops")
	if err != nil {
		return nil, err
	}
	list, err := o.list("rules")
	if err != nil {
		return nil, err
	}
	entry := &JcondEntry{Span: span, Name: name, Ops: ops}
	for k, item := range list {
		n, err := unpackNode(indexPath(o.path, "rules", k), item)
		if err != nil {
			return nil, err
		}
		r, ok := n.(*JcondRule)
		if !ok {
			return nil, &UnpackError{Path: indexPath(o.path, "rules", k), Message: "expected JcondRule"}
		}
		entry.Rules = append(entry.Rules, r)
	}
	return entry, nil
}

func (o object) jdataSpec(span Span) (*JdataSpec, error) {
	spec := &JdataSpec{Span: span}
	var err error
	if spec.Name, err = o.str("name"); err != nil {
		return nil, err
	}
	if spec.Kind, err = o.str("jdata"); err != nil {
		return nil, err
	}
	if spec.Level, err = o.optStr("level"); err != nil {
		return nil, err
	}
	t, err := o.node("type")
	if err != nil {
		return nil, err
	}
	ct, ok := t.(*CType)
	if !ok {
		return nil, &UnpackError{Path: o.path + ".type", Message: "expected CType"}
	}
	spec.Type = ct
	return spec, nil
}

func (o object) ctype(span Span) (*CType, error) {
	name, err := o.str("name")
	if err != nil {
		return nil, err
	}
	t := &CType{Span: span, Name: name}
	if p, ok := o.m["pointer"]; ok {
		b, ok := p.(bool)
		if !ok {
			return nil, &UnpackError{Path: o.path + ".pointer", Message: "expected bool"}
		}
		t.Pointer = b
	}
	if _, ok := o.m["entries"]; !ok {
		return t, nil
	}
	list, err := o.list("entries")
	if err != nil {
		return nil, err
	}
	t.Entries = []StructEntry{}
	for k, item := range list {
		m, ok := asMap(item)
		if !ok {
			return nil, &UnpackError{Path: indexPath(o.path, "entries", k), Message: "expected struct entry"}
		}
		e := object{path: indexPath(o.path, "entries", k), m: m}
		var entry StructEntry
		if entry.Name, err = e.str("name"); err != nil {
			return nil, err
		}
		if entry.Type, err = e.str("type"); err != nil {
			return nil, err
		}
		t.Entries = append(t.Entries, entry)
	}
	return t, nil
}

func (o object) function() (string, []string, Node, error) {
	name, err := o.optStr("name")
	if err != nil {
		return "", nil, nil, err
	}
	params, err := o.strs("params")
	if err != nil {
		return "", nil, nil, err
	}
	body, err := o.node("body")
	return name, params, body, err
}

func (o object) span() (Span, error) {
	v, ok := o.m["pos"]
	if !ok || v == nil {
		return Span{}, nil
	}
	list, ok := v.([]any)
	if !ok || len(list) != 2 {
		return Span{}, &UnpackError{Path: o.path + ".pos", Message: "expected [from, to]"}
	}
	from, ok1 := asInt(list[0])
	to, ok2 := asInt(list[1])
	if !ok1 || !ok2 {
		return Span{}, &UnpackError{Path: o.path + ".pos", Message: "positions must be integers"}
	}
	return Span{From: from, To: to}, nil
}

func (o object) str(key string) (string, error) {
	v, ok := o.m[key]
	if !ok {
		return "", &UnpackError{Path: o.path, Message: fmt.Sprintf("missing field %q", key)}
	}
	s, ok := v.(string)
	if !ok {
		return "", &UnpackError{Path: o.path + "." + key, Message: fmt.Sprintf("expected string, got %T", v)}
	}
	return s, nil
}

func (o object) optStr(key string) (string, error) {
	if v, ok := o.m[key]; !ok || v == nil {
		return "", nil
	}
	return o.str(key)
}

func (o object) strs(key string) ([]string, error) {
	list, err := o.list(key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list))
	for k, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, &UnpackError{Path: indexPath(o.path, key, k), Message: fmt.Sprintf("expected string, got %T", v)}
		}
		out = append(out, s)
	}
	return out, nil
}

func (o object) list(key string) ([]any, error) {
	v, ok := o.m[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, &UnpackError{Path: o.path + "." + key, Message: fmt.Sprintf("expected list, got %T", v)}
	}
	return list, nil
}

func (o object) node(key string) (Node, error) {
	return unpackNode(o.path+"."+key, o.m[key])
}

func (o object) nodes(key string) ([]Node, error) {
	list, err := o.list(key)
	if err != nil {
		return nil, err
	}
	out := make([]Node, 0, len(list))
	for k, item := range list {
		n, err := unpackNode(indexPath(o.path, key, k), item)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

func indexPath(path, key string, k int) string {
	return path + "." + key + "[" + strconv.Itoa(k) + "]"
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[s] = val
		}
		return out, true
	}
	return nil, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}
