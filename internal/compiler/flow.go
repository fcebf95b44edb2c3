package compiler

import (
	"strconv"
	"strings"
)

// pollInterval is how often, in milliseconds, a derived flow checks whether
// its source has buffered data.
const pollInterval = 1000

// flowName is the generated name of the aggregate over src, projected on
// field when field is set.
func flowName(src, field string) string {
	name := "__" + src + "Flow"
	if field != "" {
		name += "_" + field
	}
	return name
}

// ensureFlow returns the name of the derived flow over (src, field) and the
// declaration text that creates it. The declaration is returned only the
// first time a key is requested; later requests get an empty string.
func (p *pass) ensureFlow(src, field string) (name, decl string) {
	name = flowName(src, field)
	if p.flows[name] {
		return name, ""
	}
	p.flows[name] = true
	p.flowOrder = append(p.flowOrder, name)
	p.log.Debug("flow", "name", name, "source", src, "field", field)
	return name, flowDecl(src, name, field)
}

// flowDecl emits the derived flow binding, its registration, the running
// reducer and a poller that starts the flow once the source has data.
func flowDecl(src, name, field string) string {
	fn := name + "Func"
	proj := "null"
	if field != "" {
		proj = strconv.Quote(field)
	}

	var b strings.Builder
	b.WriteString("var " + name + " = " + fn + "(Flow.from(" + src + "));\n")
	b.WriteString("jworklib.addFlow('" + name + "', " + name + ");\n")
	b.WriteString("function " + fn + "(inputFlow) {\n")
	b.WriteString("return inputFlow.select(\"data\").runningReduce({\n")
	b.WriteString("min: " + proj + ",\n")
	b.WriteString("max: " + proj + ",\n")
	b.WriteString("sum: " + proj + ",\n")
	b.WriteString("avg: " + proj + "\n")
	b.WriteString("});\n")
	b.WriteString("};\n")
	b.WriteString("(function poll(){ if (" + src + ".size() < 1) {\n")
	b.WriteString("console.log(\"Waiting for logger data \");\n")
	b.WriteString("setTimeout(poll, " + strconv.Itoa(pollInterval) + ");\n")
	b.WriteString("}\nelse {\n")
	b.WriteString(name + ".startPush();\n")
	b.WriteString("}\n")
	b.WriteString("})();\n")
	return b.String()
}
