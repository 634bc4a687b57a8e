// emit_embed.go — the embeddable entry-point output variant (spec.md
// §4.7: "a fixed-signature wrapper that parses inputs, invokes the leading
// function, and packages outputs"), for linkage back into the host
// interpreter as a native extension (spec.md §1).
package mxc

// embedReturnType is the fixed ABI the host interpreter calls into: an
// argument-count/argument-vector pair of the runtime's own dynamic value
// type in, the same out, matching how a native extension is loaded and
// invoked by that host (spec.md §1's "runtime value container used by
// emitted code" collaborator).
const embedReturnType = "mx::Dynamic"

// EmitEmbed renders the embeddable entry point: the shared header/import/
// forward-declaration/definition section from emit.go, followed by
// entryName(argc, argv) — a fixed-signature function that unpacks host
// arguments into typed locals, invokes the leading function (or runs the
// script body when the file has none), and marshals the result(s) back
// into the host's dynamic value type. When opts.WriteToWorkspace is set,
// updated base-scope variables are re-exported into the host workspace
// after the script body runs (spec.md §6's write_to_workspace flag).
func EmitEmbed(t *Tree, opts Options, entryName string) (string, error) {
	e := newEmitter(t, opts)
	e.emitHeader()
	e.emitImports()
	e.emitRaw("#include \"mx_runtime.hpp\"\n\n")
	fns := e.forwardDecls()
	if err := e.emitFunctionDefs(fns); err != nil {
		return "", err
	}
	if err := e.emitEmbedEntry(fns, entryName); err != nil {
		return "", err
	}
	return e.buf.String(), nil
}

func (e *emitter) emitEmbedEntry(fns []NodeID, entryName string) error {
	if e.buf.Len() > 0 {
		e.buf.WriteByte('\n')
	}
	e.emitLine("extern \"C\" %s %s(int argc, mx::Dynamic* argv) {", embedReturnType, entryName)
	e.indent++

	if e.isScript() {
		if err := e.emitNestedClosures(e.t.Root); err != nil {
			return err
		}
		if err := e.emitBlock(e.t.Root); err != nil {
			return err
		}
		if e.opts.WriteToWorkspace {
			e.emitWriteToWorkspace()
		}
		e.emitLine("return mx::Dynamic{};")
		e.indent--
		e.emitLine("}")
		return nil
	}

	lead, _ := e.leadingFunction()
	n := e.t.node(lead)
	ins := childList(e.t, n.Child[1])
	e.emitLine("if (argc != %d) {", len(ins))
	e.indent++
	e.emitLine(`throw std::runtime_error("%s expects %d argument(s)");`, e.t.Text(lead), len(ins))
	e.indent--
	e.emitLine("}")

	var argNames []string
	for i, in := range ins {
		name := e.t.Text(in)
		ty := cppType(e.t.node(in).DataType)
		e.emitLine("%s %s = mx::fromDynamic<%s>(argv[%d]);", ty, name, ty, i)
		argNames = append(argNames, name)
	}

	name := e.t.Text(lead)
	outs := childList(e.t, n.Child[2])
	switch len(outs) {
	case 0:
		e.emitLine("%s(%s);", name, joinArgs(argNames))
		e.emitLine("return mx::Dynamic{};")
	case 1:
		e.emitLine("auto mx_result = %s(%s);", name, joinArgs(argNames))
		e.emitLine("return mx::toDynamic(mx_result);")
	default:
		e.emitLine("auto mx_result = %s(%s);", name, joinArgs(argNames))
		e.emitLine("return mx::toDynamic(mx_result);")
	}

	e.indent--
	e.emitLine("}")
	return nil
}

// emitWriteToWorkspace re-exports every base-scope local back into the
// host workspace by name, per spec.md §6's write_to_workspace flag —
// meaningful only for the embeddable variant running a script body.
func (e *emitter) emitWriteToWorkspace() {
	sc := e.t.Scopes.Get(int(e.t.RootScope))
	for _, symID := range sc.Declared {
		sym := e.t.Symbols.Get(int(symID))
		e.emitLine("mx::exportToWorkspace(%q, %s);", sym.Name, sym.Name)
	}
}

func joinArgs(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
