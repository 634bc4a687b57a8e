// emit.go — shared emission machinery for the Emitter stage (spec.md §4.7).
//
// Both output variants (standalone program, embeddable entry point) walk
// the same annotated tree through the same statement/expression emission
// code; they diverge only in the header/import section and the final
// entry-point section, which live in emit_standalone.go and emit_embed.go.
// The buffer-plus-indent-depth shape is grounded on
// other_examples/janpfeifer-go-highway__c_ast_translator.go's
// CASTTranslator (*bytes.Buffer, an indent counter, and small
// write-a-line/write-indent helpers feeding every emission site instead of
// ad hoc string concatenation); the top-to-bottom single pass over the
// tree mirrors the teacher's printer.go pretty-printer.
package mxc

import (
	"bytes"
	"fmt"
	"strings"
)

// Options mirrors the invocation contract of spec.md §6/§8: the three
// behavioral flags threaded through shape inference and emission.
type Options struct {
	MathematicalNotation bool
	DisallowResizing     bool
	WriteToWorkspace     bool
}

// emitter accumulates one output variant's text. Unlike the analysis
// passes, Emitter never mutates the tree: by this stage every annotation
// is final, so emission is a read-only traversal.
type emitter struct {
	t    *Tree
	opts Options
	buf  bytes.Buffer

	indent int

	// predicates computed once up front (spec.md §4.7 "Layout", item 2),
	// gating which imports and helper emissions appear.
	hasDynamicValues  bool
	hasMatrices       bool
	programPrints     bool
	usesSystem        bool
	hasMultiOutput    bool
	hasNestedFuncs    bool
	hasIgnoredOutputs bool

	// declared tracks which (scope, binding-index) locals have already
	// had their C++ declaration emitted, in this pass's emission order —
	// a reassignment later in the same pass becomes a plain `=`, not a
	// second `T name = ...;` (which would be a redeclaration).
	declared map[[2]int]bool
}

func newEmitter(t *Tree, opts Options) *emitter {
	e := &emitter{t: t, opts: opts, declared: map[[2]int]bool{}}
	e.hasIgnoredOutputs = t.HasIgnoredOutputs
	e.computePredicates()
	return e
}

// declareOnce reports whether this is the first time binding b has been
// seen in this emission pass, recording it as seen either way.
func (e *emitter) declareOnce(b Binding) bool {
	key := [2]int{int(b.Scope), b.Index}
	if e.declared[key] {
		return false
	}
	e.declared[key] = true
	return true
}

func (e *emitter) emitIndent() {
	e.buf.WriteString(strings.Repeat("    ", e.indent))
}

func (e *emitter) emitLine(format string, args ...any) {
	e.emitIndent()
	fmt.Fprintf(&e.buf, format, args...)
	e.buf.WriteByte('\n')
}

func (e *emitter) emitRaw(s string) { e.buf.WriteString(s) }

// computePredicates walks every node once to decide which library imports
// and runtime-interop helpers the program needs (spec.md §4.7).
func (e *emitter) computePredicates() {
	t := e.t
	for id := t.Root; id != NoNode; id = t.node(id).ListLink {
		e.scanPredicates(id)
	}
}

func (e *emitter) scanPredicates(id NodeID) {
	if id == NoNode {
		return
	}
	n := e.t.node(id)
	switch n.Kind {
	case NodeFunctionDef:
		if n.OwnScope != NoScope && e.t.Scopes.Get(int(n.OwnScope)).Parent != e.t.RootScope {
			e.hasNestedFuncs = true
		}
		for c := n.Child[3]; c != NoNode; c = e.t.node(c).ListLink {
			e.scanPredicates(c)
		}
		return
	case NodeMatrixLit, NodeMatrixRow, NodeMatrixAccess:
		e.hasMatrices = true
	case NodeOSCall:
		e.usesSystem = true
	case NodeMultiAssign:
		e.hasMultiOutput = true
	}
	if n.DataType == TyDynamic {
		e.hasDynamicValues = true
	}
	if n.Verbose {
		e.programPrints = true
	}
	for _, c := range n.Child {
		e.scanPredicates(c)
	}
}

// emitHeader writes the documentation-comment block captured by the
// scanner (spec.md §4.7 "Layout", item 1); empty when none was captured.
func (e *emitter) emitHeader() {
	if e.t.DocComment == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(e.t.DocComment, "\n"), "\n") {
		e.emitLine("// %s", line)
	}
	e.buf.WriteByte('\n')
}

// emitImports writes the predicate-gated #include list shared by both
// output variants.
func (e *emitter) emitImports() {
	e.emitRaw("#include <cstdint>\n")
	e.emitRaw("#include <string>\n")
	if e.hasMatrices {
		e.emitRaw("#include <vector>\n")
		e.emitRaw("#include \"mx_matrix.hpp\"\n")
	}
	if e.programPrints {
		e.emitRaw("#include <iostream>\n")
		e.emitRaw("#include <iomanip>\n")
	}
	if e.usesSystem {
		e.emitRaw("#include <cstdlib>\n")
	}
	if e.hasDynamicValues || e.hasIgnoredOutputs {
		e.emitRaw("#include \"mx_runtime.hpp\"\n")
	}
	e.buf.WriteByte('\n')
}

// forwardDecls writes one prototype per file-level function, so emission
// order of definitions below never has to match call order (spec.md §4.7
// "Layout", item 3).
func (e *emitter) forwardDecls() []NodeID {
	var fns []NodeID
	for id := e.t.Root; id != NoNode; id = e.t.node(id).ListLink {
		if e.t.node(id).Kind == NodeFunctionDef {
			fns = append(fns, id)
		}
	}
	if len(fns) == 0 {
		return fns
	}
	wrapInAnon := len(fns) > 1
	// The leading function's prototype stays visible at file scope (the
	// entry point calls it); only the rest go in the anonymous namespace,
	// per spec.md §4.7 "Layout" item 3.
	e.emitLine("%s;", e.functionSignature(fns[0]))
	if wrapInAnon {
		e.emitRaw("\nnamespace {\n\n")
		for _, id := range fns[1:] {
			e.emitLine("%s;", e.functionSignature(id))
		}
		e.emitRaw("\n} // namespace\n")
	}
	e.buf.WriteByte('\n')
	return fns
}

// functionSignature renders a NodeFunctionDef's C++ prototype. Multi-output
// functions return a std::tuple; single-output functions return that
// output's element type directly, exactly as spec.md §4.7's "Multi-output
// tuples" prescribes for call sites.
func (e *emitter) functionSignature(id NodeID) string {
	n := e.t.node(id)
	name := e.t.Text(id)
	outs := childList(e.t, n.Child[2])

	var ret string
	switch len(outs) {
	case 0:
		ret = "void"
	case 1:
		ret = cppType(e.t.node(outs[0]).DataType)
	default:
		var parts []string
		for _, o := range outs {
			parts = append(parts, cppType(e.t.node(o).DataType))
		}
		ret = "std::tuple<" + strings.Join(parts, ", ") + ">"
	}

	ins := childList(e.t, n.Child[1])
	var params []string
	for _, in := range ins {
		params = append(params, fmt.Sprintf("%s %s", cppType(e.t.node(in).DataType), e.t.Text(in)))
	}
	return fmt.Sprintf("%s %s(%s)", ret, name, strings.Join(params, ", "))
}

// cppType maps an ElementType to the C++ spelling used in signatures and
// local declarations.
func cppType(ty ElementType) string {
	switch ty {
	case TyBoolean:
		return "bool"
	case TyChar:
		return "char"
	case TyInteger:
		return "int64_t"
	case TyReal:
		return "double"
	case TyString:
		return "std::string"
	case TyCell:
		return "mx::Cell"
	case TyFunction:
		return "mx::FunctionHandle"
	default:
		return "mx::Dynamic"
	}
}

func childList(t *Tree, head NodeID) []NodeID {
	var out []NodeID
	for id := head; id != NoNode; id = t.node(id).ListLink {
		out = append(out, id)
	}
	return out
}

// emitFunctionDefs writes every file-level function's body. Functions
// whose enclosing scope is not the file root are emitted inline as
// closures by emitNestedClosures when their containing function's body is
// written; only file-level ("leading" plus siblings) functions appear here.
func (e *emitter) emitFunctionDefs(fns []NodeID) error {
	for i, id := range fns {
		if err := e.emitFunctionDef(id); err != nil {
			return err
		}
		if i != len(fns)-1 {
			e.buf.WriteByte('\n')
		}
	}
	return nil
}

func (e *emitter) emitFunctionDef(id NodeID) error {
	n := e.t.node(id)
	e.emitLine("%s {", e.functionSignature(id))
	e.indent++
	if err := e.emitNestedClosures(n.Child[3]); err != nil {
		return err
	}
	if err := e.emitBlock(n.Child[3]); err != nil {
		return err
	}
	outs := childList(e.t, n.Child[2])
	if len(outs) == 1 {
		e.emitLine("return %s;", e.t.Text(outs[0]))
	} else if len(outs) > 1 {
		var names []string
		for _, o := range outs {
			names = append(names, e.t.Text(o))
		}
		e.emitLine("return std::make_tuple(%s);", strings.Join(names, ", "))
	}
	e.indent--
	e.emitLine("}")
	return nil
}

// emitNestedClosures declares, at the top of the enclosing body (before any
// other statement, so later lambdas may capture them), one by-reference
// capturing lambda per function nested directly in this body — spec.md
// §9's "Nested-function emulation": the emitted target language has no
// nested functions, so every nested NodeFunctionDef becomes a
// closure-typed local bound by reference to the enclosing scope.
func (e *emitter) emitNestedClosures(head NodeID) error {
	for id := head; id != NoNode; id = e.t.node(id).ListLink {
		n := e.t.node(id)
		if n.Kind != NodeFunctionDef {
			continue
		}
		name := e.t.Text(id)
		ins := childList(e.t, n.Child[1])
		outs := childList(e.t, n.Child[2])

		var ret string
		switch len(outs) {
		case 0:
			ret = "void"
		case 1:
			ret = cppType(e.t.node(outs[0]).DataType)
		default:
			var parts []string
			for _, o := range outs {
				parts = append(parts, cppType(e.t.node(o).DataType))
			}
			ret = "std::tuple<" + strings.Join(parts, ", ") + ">"
		}
		var params []string
		for _, in := range ins {
			params = append(params, fmt.Sprintf("%s %s", cppType(e.t.node(in).DataType), e.t.Text(in)))
		}
		e.emitLine("auto %s = [&](%s) -> %s {", name, strings.Join(params, ", "), ret)
		e.indent++
		if err := e.emitNestedClosures(n.Child[3]); err != nil {
			return err
		}
		if err := e.emitBlock(n.Child[3]); err != nil {
			return err
		}
		if len(outs) == 1 {
			e.emitLine("return %s;", e.t.Text(outs[0]))
		} else if len(outs) > 1 {
			var names []string
			for _, o := range outs {
				names = append(names, e.t.Text(o))
			}
			e.emitLine("return std::make_tuple(%s);", strings.Join(names, ", "))
		}
		e.indent--
		e.emitLine("};")
	}
	return nil
}

func (e *emitter) emitBlock(head NodeID) error {
	for id := head; id != NoNode; id = e.t.node(id).ListLink {
		n := e.t.node(id)
		if n.Kind == NodeFunctionDef {
			continue // already declared as a closure by emitNestedClosures
		}
		if err := e.emitStmt(id); err != nil {
			return err
		}
	}
	return nil
}

func (e *emitter) emitStmt(id NodeID) error {
	n := e.t.node(id)
	switch n.Kind {
	case NodeAssign:
		return e.emitAssign(id, n)
	case NodeMultiAssign:
		return e.emitMultiAssign(id, n)
	case NodeExprStmt:
		expr, err := e.emitExpr(n.Child[0])
		if err != nil {
			return err
		}
		e.emitLine("%s;", expr)
		if n.Verbose {
			target := "ans"
			if !n.IsAnsEval {
				target = expr
			}
			e.emitVerboseEcho(target, n.DataType)
		}
		return nil
	case NodeIf:
		return e.emitIf(n)
	case NodeFor, NodeParFor:
		return e.emitFor(n)
	case NodeWhile:
		return e.emitWhile(n)
	case NodeTry:
		return e.emitTry(n)
	case NodeSwitch:
		return e.emitSwitch(n)
	case NodeParallelBlock:
		return e.emitSpmd(n)
	case NodeOSCall:
		e.emitLine("std::system(%q);", e.t.Text(id))
		return nil
	case NodeBreak:
		e.emitLine("break;")
		return nil
	case NodeContinue:
		e.emitLine("continue;")
		return nil
	case NodeReturn:
		e.emitLine("return;")
		return nil
	case NodeGlobalDecl, NodePersistentDecl:
		return &TypeError{Line: n.Line, Msg: "not yet supported: global/persistent variables have no emission target"}
	}
	return nil
}

// emitVerboseEcho prints targetVar (or the naked expression text) in the
// source interpreter's default echo format (spec.md §4.7 "Verbosity"):
// a leading newline, the name, "=", a newline, then the value indented.
// Only one echo per named target is ever produced (spec.md §9's Open
// Question decision on call statements with more outputs than targets).
func (e *emitter) emitVerboseEcho(name string, ty ElementType) {
	e.emitLine(`std::cout << "\n" << %q << " =\n" << mx::indented(%s) << "\n";`, name, name)
	_ = ty
}

func (e *emitter) emitAssign(id NodeID, n *Node) error {
	lhsName := e.t.Text(n.Child[0])
	rhs, err := e.emitExpr(n.Child[1])
	if err != nil {
		return err
	}
	lhsDecl := e.t.node(n.Child[0])
	if lhsDecl.Binding.Kind == BindLocal && e.declareOnce(lhsDecl.Binding) {
		e.emitLine("%s %s = %s;", cppType(n.DataType), lhsName, rhs)
	} else {
		e.emitLine("%s = %s;", lhsName, rhs)
	}
	if n.Verbose {
		e.emitVerboseEcho(lhsName, n.DataType)
	}
	return nil
}

func (e *emitter) emitMultiAssign(id NodeID, n *Node) error {
	rhs, err := e.emitExpr(n.Child[1])
	if err != nil {
		return err
	}
	outs := childList(e.t, n.Child[0])
	var names []string
	for _, o := range outs {
		on := e.t.node(o)
		if on.Kind == NodeIgnoredOutput {
			names = append(names, "mx::Sink{}")
			continue
		}
		name := e.t.Text(o)
		names = append(names, name)
		if on.Binding.Kind == BindLocal && e.declareOnce(on.Binding) {
			e.emitLine("%s %s;", cppType(on.DataType), name)
		}
	}
	e.emitLine("std::tie(%s) = %s;", strings.Join(names, ", "), rhs)
	if n.Verbose {
		for _, o := range outs {
			if e.t.node(o).Kind != NodeIgnoredOutput {
				e.emitVerboseEcho(e.t.Text(o), e.t.node(o).DataType)
			}
		}
	}
	return nil
}

func (e *emitter) emitIf(n *Node) error {
	first := true
	for clause := n.Child[0]; clause != NoNode; clause = e.t.node(clause).ListLink {
		cn := e.t.node(clause)
		if cn.Child[0] == NoNode {
			e.emitLine("} else {")
			e.indent++
			if err := e.emitBlock(cn.Child[1]); err != nil {
				return err
			}
			e.indent--
			continue
		}
		cond, err := e.emitExpr(cn.Child[0])
		if err != nil {
			return err
		}
		if first {
			e.emitLine("if (%s) {", cond)
			first = false
		} else {
			e.emitLine("} else if (%s) {", cond)
		}
		e.indent++
		if err := e.emitBlock(cn.Child[1]); err != nil {
			return err
		}
		e.indent--
	}
	e.emitLine("}")
	return nil
}

func (e *emitter) emitFor(n *Node) error {
	iterName := e.t.Text(n.Child[0])
	rangeNode := e.t.node(n.Child[1])
	if rangeNode.Kind != NodeRange {
		return &TypeError{Line: n.Line, Msg: "not yet supported: for/parfor iterating a non-range expression"}
	}
	start, err := e.emitExpr(rangeNode.Child[0])
	if err != nil {
		return err
	}
	stop, err := e.emitExpr(rangeNode.Child[2])
	if err != nil {
		return err
	}
	if n.Kind == NodeParFor {
		e.emitLine("#pragma omp parallel for")
	}
	e.emitLine("for (int64_t %s = %s; %s <= %s; ++%s) {", iterName, start, iterName, stop, iterName)
	e.indent++
	if err := e.emitBlock(n.Child[2]); err != nil {
		return err
	}
	e.indent--
	e.emitLine("}")
	return nil
}

func (e *emitter) emitWhile(n *Node) error {
	cond, err := e.emitExpr(n.Child[0])
	if err != nil {
		return err
	}
	e.emitLine("while (%s) {", cond)
	e.indent++
	if err := e.emitBlock(n.Child[1]); err != nil {
		return err
	}
	e.indent--
	e.emitLine("}")
	return nil
}

func (e *emitter) emitTry(n *Node) error {
	e.emitLine("try {")
	e.indent++
	if err := e.emitBlock(n.Child[0]); err != nil {
		return err
	}
	e.indent--
	catchVar := "mx_err"
	if n.Child[1] != NoNode {
		catchVar = e.t.Text(n.Child[1])
	}
	e.emitLine("} catch (const std::exception& %s) {", catchVar)
	e.indent++
	if err := e.emitBlock(n.Child[2]); err != nil {
		return err
	}
	e.indent--
	e.emitLine("}")
	return nil
}

func (e *emitter) emitSwitch(n *Node) error {
	expr, err := e.emitExpr(n.Child[0])
	if err != nil {
		return err
	}
	e.emitLine("{")
	e.indent++
	e.emitLine("auto&& mx_switch_val = %s;", expr)
	first := true
	for c := n.Child[1]; c != NoNode; c = e.t.node(c).ListLink {
		cn := e.t.node(c)
		if cn.Child[0] == NoNode {
			e.emitLine("} else {")
			e.indent++
			if err := e.emitBlock(cn.Child[1]); err != nil {
				return err
			}
			e.indent--
			continue
		}
		caseExpr, err := e.emitExpr(cn.Child[0])
		if err != nil {
			return err
		}
		if first {
			e.emitLine("if (mx_switch_val == %s) {", caseExpr)
			first = false
		} else {
			e.emitLine("} else if (mx_switch_val == %s) {", caseExpr)
		}
		e.indent++
		if err := e.emitBlock(cn.Child[1]); err != nil {
			return err
		}
		e.indent--
	}
	e.emitLine("}")
	e.indent--
	e.emitLine("}")
	return nil
}

// emitSpmd emits a pragma-bounded parallel region enclosing the block
// (spec.md §4.7 "Parallel-block (spmd)").
func (e *emitter) emitSpmd(n *Node) error {
	e.emitLine("#pragma omp parallel")
	e.emitLine("{")
	e.indent++
	if err := e.emitBlock(n.Child[0]); err != nil {
		return err
	}
	e.indent--
	e.emitLine("}")
	return nil
}

func (e *emitter) emitExpr(id NodeID) (string, error) {
	if id == NoNode {
		return "", nil
	}
	n := e.t.node(id)
	switch n.Kind {
	case NodeScalarLit:
		return e.t.Text(id), nil
	case NodeStringLit:
		return fmt.Sprintf("std::string(%q)", e.t.Text(id)), nil
	case NodeCharArrayLit:
		return fmt.Sprintf("%q[0]", e.t.Text(id)), nil
	case NodeVarRef, NodeIdentifier, NodeFreeName:
		return e.t.Text(id), nil
	case NodeFuncRef, NodeFuncHandle:
		return e.t.Text(id), nil
	case NodeEndSentinel:
		return "mx::lastIndex", nil
	case NodeColonAll:
		return "mx::all()", nil
	case NodeUnaryPre:
		operand, err := e.emitExpr(n.Child[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s%s)", unaryOpText(e.t.TokKind(id)), operand), nil
	case NodeUnaryPost:
		operand, err := e.emitExpr(n.Child[0])
		if err != nil {
			return "", err
		}
		if e.t.TokKind(id) == TkTranspose || e.t.TokKind(id) == TkComplexConjugate {
			return fmt.Sprintf("mx::transpose(%s)", operand), nil
		}
		return operand, nil
	case NodeBinaryOp:
		return e.emitBinary(id, n)
	case NodeRange:
		start, err := e.emitExpr(n.Child[0])
		if err != nil {
			return "", err
		}
		stop, err := e.emitExpr(n.Child[2])
		if err != nil {
			return "", err
		}
		if n.Child[1] != NoNode {
			step, err := e.emitExpr(n.Child[1])
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("mx::range(%s, %s, %s)", start, step, stop), nil
		}
		return fmt.Sprintf("mx::range(%s, %s)", start, stop), nil
	case NodeCall, NodeFunctionCall, NodeCallStmt, NodeMatrixAccess:
		return e.emitCall(id, n)
	case NodeGet:
		obj, err := e.emitExpr(n.Child[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s.%s", obj, e.t.Text(id)), nil
	case NodeAnonFunc:
		return e.emitAnonFunc(n)
	case NodeMatrixLit:
		return e.emitMatrixLit(n)
	case NodeCellLit:
		return e.emitCellLit(n)
	}
	return "", &TypeError{Line: n.Line, Msg: "not yet supported: expression kind has no emission rule"}
}

func unaryOpText(k TokenKind) string {
	switch k {
	case TkSubtract:
		return "-"
	case TkAdd:
		return "+"
	case TkNot:
		return "!"
	}
	return ""
}

func binaryOpText(k TokenKind) string {
	switch k {
	case TkAdd:
		return "+"
	case TkSubtract:
		return "-"
	case TkMultiply, TkElementwiseMult:
		return "*"
	case TkDivide, TkElementwiseDiv:
		return "/"
	case TkBackDivide, TkElementwiseBackDiv:
		return "/" // pseudoinverse-aware division delegates to mx:: helpers below
	case TkPower, TkElementwisePower:
		return "^"
	case TkEquality:
		return "=="
	case TkNotEqual:
		return "!="
	case TkGreater:
		return ">"
	case TkGreaterEqual:
		return ">="
	case TkLess:
		return "<"
	case TkLessEqual:
		return "<="
	case TkAnd:
		return "&"
	case TkOr:
		return "|"
	case TkShortAnd:
		return "&&"
	case TkShortOr:
		return "||"
	}
	return "?"
}

func (e *emitter) emitBinary(id NodeID, n *Node) (string, error) {
	lhs, err := e.emitExpr(n.Child[0])
	if err != nil {
		return "", err
	}
	rhs, err := e.emitExpr(n.Child[1])
	if err != nil {
		return "", err
	}
	switch e.t.TokKind(id) {
	case TkPower:
		return fmt.Sprintf("mx::pow(%s, %s)", lhs, rhs), nil
	case TkElementwisePower:
		return fmt.Sprintf("mx::elementwisePow(%s, %s)", lhs, rhs), nil
	case TkBackDivide:
		return fmt.Sprintf("mx::leftDivide(%s, %s)", lhs, rhs), nil
	case TkElementwiseBackDiv:
		return fmt.Sprintf("mx::elementwiseLeftDivide(%s, %s)", lhs, rhs), nil
	case TkElementwiseMult:
		return fmt.Sprintf("mx::elementwiseMul(%s, %s)", lhs, rhs), nil
	case TkElementwiseDiv:
		return fmt.Sprintf("mx::elementwiseDiv(%s, %s)", lhs, rhs), nil
	}
	return fmt.Sprintf("(%s %s %s)", lhs, binaryOpText(e.t.TokKind(id)), rhs), nil
}

func (e *emitter) emitCall(id NodeID, n *Node) (string, error) {
	callee, err := e.emitExpr(n.Child[0])
	if err != nil {
		return "", err
	}
	var args []string
	for a := n.Child[1]; a != NoNode; a = e.t.node(a).ListLink {
		s, err := e.emitExpr(a)
		if err != nil {
			return "", err
		}
		args = append(args, s)
	}
	if n.Kind == NodeMatrixAccess {
		return fmt.Sprintf("%s(%s)", callee, strings.Join(args, ", ")), nil
	}
	return fmt.Sprintf("%s(%s)", callee, strings.Join(args, ", ")), nil
}

func (e *emitter) emitAnonFunc(n *Node) (string, error) {
	params := childList(e.t, n.Child[0])
	var names []string
	for _, p := range params {
		names = append(names, e.t.Text(p))
	}
	body, err := e.emitExpr(n.Child[1])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("[=](%s) { return %s; }", strings.Join(names, ", "), body), nil
}

func (e *emitter) emitMatrixLit(n *Node) (string, error) {
	var rows []string
	for r := n.Child[0]; r != NoNode; r = e.t.node(r).ListLink {
		rn := e.t.node(r)
		var items []string
		for it := rn.Child[0]; it != NoNode; it = e.t.node(it).ListLink {
			s, err := e.emitExpr(it)
			if err != nil {
				return "", err
			}
			items = append(items, s)
		}
		rows = append(rows, "{"+strings.Join(items, ", ")+"}")
	}
	return fmt.Sprintf("mx::Matrix{%s}", strings.Join(rows, ", ")), nil
}

func (e *emitter) emitCellLit(n *Node) (string, error) {
	var rows []string
	for r := n.Child[0]; r != NoNode; r = e.t.node(r).ListLink {
		rn := e.t.node(r)
		var items []string
		for it := rn.Child[0]; it != NoNode; it = e.t.node(it).ListLink {
			s, err := e.emitExpr(it)
			if err != nil {
				return "", err
			}
			items = append(items, s)
		}
		rows = append(rows, items...)
	}
	return fmt.Sprintf("mx::Cell{%s}", strings.Join(rows, ", ")), nil
}

// leadingFunction returns the first file-level function definition, the
// one invoked by both entry-point variants (spec.md §4.7 "Layout", item 5).
func (e *emitter) leadingFunction() (NodeID, bool) {
	for id := e.t.Root; id != NoNode; id = e.t.node(id).ListLink {
		if e.t.node(id).Kind == NodeFunctionDef {
			return id, true
		}
	}
	return NoNode, false
}

// isScript reports whether the file has no file-level function
// definitions at all — a bare script whose statements run directly in
// main (spec.md §4.7 "Layout", item 5, first branch).
func (e *emitter) isScript() bool {
	_, ok := e.leadingFunction()
	return !ok
}
