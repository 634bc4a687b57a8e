// emit_standalone.go — the standalone-program output variant (spec.md
// §4.7: "a fixed-signature wrapper" is the embeddable variant's job; a
// script here gets a plain main whose body is the script's own statement
// sequence).
package mxc

// EmitStandalone renders the full standalone C++17 program: every file-
// level function definition, plus either a `main` running the script body
// (when the file has no function definitions) or a `main` that simply
// invokes the leading function and discards/prints its result (when the
// file is a function-file). A leading function that takes inputs is
// rejected with a TypeError: main has no argument values to pass it.
func EmitStandalone(t *Tree, opts Options) (string, error) {
	e := newEmitter(t, opts)
	e.emitHeader()
	e.emitImports()
	fns := e.forwardDecls()
	if err := e.emitFunctionDefs(fns); err != nil {
		return "", err
	}
	if err := e.emitStandaloneMain(fns); err != nil {
		return "", err
	}
	return e.buf.String(), nil
}

func (e *emitter) emitStandaloneMain(fns []NodeID) error {
	if e.buf.Len() > 0 {
		e.buf.WriteByte('\n')
	}
	e.emitLine("int main(int argc, char** argv) {")
	e.indent++
	if e.isScript() {
		if err := e.emitNestedClosures(e.t.Root); err != nil {
			return err
		}
		if err := e.emitBlock(e.t.Root); err != nil {
			return err
		}
	} else {
		lead, _ := e.leadingFunction()
		n := e.t.node(lead)
		ins := childList(e.t, n.Child[1])
		if len(ins) != 0 {
			return &TypeError{Line: n.Line, Msg: "not yet supported: standalone main cannot synthesize arguments for a parameterized leading function"}
		}
		name := e.t.Text(lead)
		outs := childList(e.t, n.Child[2])
		switch len(outs) {
		case 0:
			e.emitLine("%s();", name)
		case 1:
			e.emitLine("auto mx_result = %s();", name)
			e.emitVerboseEcho("mx_result", e.t.node(outs[0]).DataType)
		default:
			e.emitLine("auto mx_result = %s();", name)
			e.emitVerboseEcho("mx_result", TyDynamic)
		}
	}
	e.emitLine("return 0;")
	e.indent--
	e.emitLine("}")
	return nil
}
