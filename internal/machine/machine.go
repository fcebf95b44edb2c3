// Package machine turns compiled activities into the code that registers
// them with the worker runtime.
package machine

import (
	"fmt"

	"github.com/roach88/jamc/internal/ir"
)

// JSFactory emits registration calls for the JavaScript worker library.
type JSFactory struct {
	// Lib is the runtime handle the calls are made on. Defaults to
	// "jworklib".
	Lib string
}

// MachineFunction returns
//
//	<lib>.registerActivity("<name>", "<kind>", <jcond>, [<params>]);
//
// followed by a newline.
func (f JSFactory) MachineFunction(kind ir.ActivityKind, name string, cond ir.JCond, params []string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("machine: activity name is empty")
	}
	if kind != ir.ActivitySync && kind != ir.ActivityAsync {
		return "", fmt.Errorf("machine: activity %s: unknown kind %q", name, kind)
	}
	lit, err := cond.RuntimeLiteral()
	if err != nil {
		return "", fmt.Errorf("machine: activity %s: %w", name, err)
	}
	if params == nil {
		params = []string{}
	}
	plist, err := ir.MarshalJSLiteral(params)
	if err != nil {
		return "", fmt.Errorf("machine: activity %s: %w", name, err)
	}
	lib := f.Lib
	if lib == "" {
		lib = "jworklib"
	}
	return fmt.Sprintf("%s.registerActivity(%q, %q, %s, %s);\n", lib, name, string(kind), lit, plist), nil
}
