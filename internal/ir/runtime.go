package ir

import (
	"bytes"
	"encoding/json"
)

// runtimeCond is the object literal handed to the runtime scheduler.
type runtimeCond struct {
	Source string   `json:"source"`
	Code   int      `json:"code"`
	Cback  []string `json:"cback"`
	Bcasts []string `json:"bcasts"`
}

// RuntimeLiteral renders c as the JavaScript object literal the runtime
// expects: {"source":...,"code":...,"cback":...,"bcasts":[...]}. A
// descriptor without callbacks renders cback as null.
func (c JCond) RuntimeLiteral() (string, error) {
	rc := runtimeCond{Source: c.Expression, Code: c.Code, Bcasts: c.BroadcastDeps}
	if len(c.Callbacks) > 0 {
		rc.Cback = c.Callbacks
	}
	if rc.Bcasts == nil {
		rc.Bcasts = []string{}
	}
	return marshalJS(rc)
}

// MarshalJSLiteral encodes v as JSON suitable for embedding in generated
// code. Unlike json.Marshal it leaves <, > and & unescaped so operators in
// expressions survive verbatim.
func MarshalJSLiteral(v any) (string, error) {
	return marshalJS(v)
}

func marshalJS(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}
