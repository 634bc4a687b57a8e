package mxc

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) *Tree {
	t.Helper()
	tr, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", src, err)
	}
	return tr
}

func stmts(t *Tree) []NodeID {
	return childList(t, t.Root)
}

// Property 2: nesting balance. A well-formed file's scanner counts satisfy
// either open==end (no "end" required to close functions) or
// open+function==end (every function closed by its own "end"), and a
// parse that succeeds never leaves either relation violated.
func Test_Property2_NestingBalance(t *testing.T) {
	src := "function r = sq(x)\nr = x*x;\nend\n\nfunction r = cube(x)\nr = x*x*x;\nend\n"
	l := NewLexer(src)
	if _, err := l.Scan(); err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if l.NumOpenKeywords != l.NumEndKeywords && l.NumOpenKeywords+l.NumFunctionKeywords != l.NumEndKeywords {
		t.Fatalf("nesting counts don't satisfy either balance relation: open=%d func=%d end=%d",
			l.NumOpenKeywords, l.NumFunctionKeywords, l.NumEndKeywords)
	}
	if _, err := Parse(src); err != nil {
		t.Fatalf("Parse error: %v", err)
	}
}

func Test_Property2_NestingBalance_ScriptWithoutEnd(t *testing.T) {
	src := "if true\n a = 1;\nend\nb = 2;\n"
	l := NewLexer(src)
	if _, err := l.Scan(); err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if l.NumOpenKeywords != l.NumEndKeywords {
		t.Fatalf("expected open==end with no function keywords, got open=%d end=%d", l.NumOpenKeywords, l.NumEndKeywords)
	}
}

// Property 3: call-nesting reset. 'end' used as "last index" inside call
// and index parentheses must leave nothing behind once those parentheses
// close: the source resolves, and a trailing block 'end' still closes its
// block.
func Test_Property3_CallDepthResetsAtEOF(t *testing.T) {
	src := "A = [1 2 3];\nv = A(end);\nw = foo(bar(1, end), 2);\n"
	tr := mustParse(t, src)
	if err := func() error {
		scopes, symbols, err := BuildScopes(tr)
		if err != nil {
			return err
		}
		tr.Scopes, tr.Symbols = scopes, symbols
		return Resolve(tr)
	}(); err != nil {
		t.Fatalf("resolve pipeline error: %v", err)
	}
	// The same source followed by an if/end block must still parse — if
	// the 'end's inside parentheses were taken as block closers, the
	// trailing 'end' would be misclassified.
	src2 := src + "if v > w\nend\n"
	if _, err := Parse(src2); err != nil {
		t.Fatalf("Parse error (a parenthesized 'end' taken as a block closer would break the trailing if/end): %v", err)
	}
}

// S4: A(:, end) — bare colon and 'end' both parse as index sentinels
// inside a matrix-access argument list, not as a block-closer.
func Test_S4_ColonAndEndInsideMatrixAccess(t *testing.T) {
	src := "A = [1 2; 3 4];\nv = A(:, end);\n"
	tr := mustParse(t, src)
	ss := stmts(tr)
	if len(ss) != 2 {
		t.Fatalf("want 2 statements, got %d", len(ss))
	}
	assign := tr.node(ss[1])
	if assign.Kind != NodeAssign {
		t.Fatalf("want NodeAssign, got %v", assign.Kind)
	}
	rhs := tr.node(assign.Child[1])
	if rhs.Kind != NodeCall {
		t.Fatalf("want NodeCall (pre-resolution), got %v", rhs.Kind)
	}
	args := childList(tr, rhs.Child[1])
	if len(args) != 2 {
		t.Fatalf("want 2 args, got %d", len(args))
	}
	if tr.node(args[0]).Kind != NodeColonAll {
		t.Fatalf("want NodeColonAll for first arg, got %v", tr.node(args[0]).Kind)
	}
	if tr.node(args[1]).Kind != NodeEndSentinel {
		t.Fatalf("want NodeEndSentinel for second arg, got %v", tr.node(args[1]).Kind)
	}

	scopes, symbols, err := BuildScopes(tr)
	if err != nil {
		t.Fatalf("BuildScopes error: %v", err)
	}
	tr.Scopes, tr.Symbols = scopes, symbols
	if err := Resolve(tr); err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	rhs2 := tr.node(assign.Child[1])
	if rhs2.Kind != NodeMatrixAccess {
		t.Fatalf("want reclassified NodeMatrixAccess, got %v", rhs2.Kind)
	}

	if err := ShapeInfer(tr, ShapeOptions{}); err != nil {
		t.Fatalf("ShapeInfer error: %v", err)
	}
	aAssign := tr.node(ss[0])
	if aAssign.Rows != 2 || aAssign.Cols != 2 {
		t.Fatalf("want A shaped 2x2, got %dx%d", aAssign.Rows, aAssign.Cols)
	}
	vAssign := tr.node(ss[1])
	if vAssign.Rows != 2 || vAssign.Cols != 1 {
		t.Fatalf("want v shaped 2x1, got %dx%d", vAssign.Rows, vAssign.Cols)
	}

	if err := TypeInfer(tr); err != nil {
		t.Fatalf("TypeInfer error: %v", err)
	}
	FinalizeDynamic(tr)
	if aAssign.DataType != TyInteger {
		t.Fatalf("want A typed integer, got %v", aAssign.DataType)
	}
	if vAssign.DataType != TyInteger {
		t.Fatalf("want v typed integer, got %v", vAssign.DataType)
	}
}

// S5: break directly inside a parfor body is a parse error.
func Test_S5_BreakInsideParfor_IsParseError(t *testing.T) {
	src := "parfor i = 1:5\n disp(i)\n break\nend\n"
	_, err := Parse(src)
	if err == nil {
		t.Fatal("expected a parse error for break inside parfor")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if !strings.Contains(pe.Msg, "break not allowed in parallel-for") {
		t.Fatalf("unexpected message: %q", pe.Msg)
	}
}

// break inside an ordinary loop nested within a parfor is still legal —
// the rejection only applies to the innermost enclosing loop.
func Test_BreakInsideOrdinaryLoopNestedInParfor_IsLegal(t *testing.T) {
	src := "parfor i = 1:5\n for j = 1:5\n  break\n end\nend\n"
	if _, err := Parse(src); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
}

func Test_BreakInsidePlainFor_IsLegal(t *testing.T) {
	src := "for i = 1:5\n break\nend\n"
	if _, err := Parse(src); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
}

// S6: classdef is rejected with a dedicated diagnostic, not the generic
// "unexpected token in expression" fallback.
func Test_S6_Classdef_IsParseError(t *testing.T) {
	src := "classdef Foo\nend\n"
	_, err := Parse(src)
	if err == nil {
		t.Fatal("expected a parse error for classdef")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if !strings.Contains(pe.Msg, "class definitions not supported") {
		t.Fatalf("unexpected message: %q", pe.Msg)
	}
}

// S1: three assignment statements, the last with verbosity 1 (no trailing
// semicolon).
func Test_S1_ThreeAssignments_LastVerbose(t *testing.T) {
	tr := mustParse(t, "a = 1; b = 2; c = a + b")
	ss := stmts(tr)
	if len(ss) != 3 {
		t.Fatalf("want 3 statements, got %d", len(ss))
	}
	for i, id := range ss {
		n := tr.node(id)
		if n.Kind != NodeAssign {
			t.Fatalf("statement %d: want NodeAssign, got %v", i, n.Kind)
		}
	}
	last := tr.node(ss[2])
	if !last.Verbose {
		t.Fatal("want the final (unterminated) assignment to be verbose")
	}
	first := tr.node(ss[0])
	if first.Verbose {
		t.Fatal("want the semicolon-terminated assignment to be non-verbose")
	}
}

// S2: a single function definition with one input, one output, one
// assignment in its body.
func Test_S2_SingleInputOutputFunction(t *testing.T) {
	tr := mustParse(t, "function r = sq(x)\n r = x*x;\nend\n")
	ss := stmts(tr)
	if len(ss) != 1 {
		t.Fatalf("want 1 statement, got %d", len(ss))
	}
	fn := tr.node(ss[0])
	if fn.Kind != NodeFunctionDef {
		t.Fatalf("want NodeFunctionDef, got %v", fn.Kind)
	}
	ins := childList(tr, fn.Child[1])
	outs := childList(tr, fn.Child[2])
	if len(ins) != 1 || len(outs) != 1 {
		t.Fatalf("want 1 input and 1 output, got %d in, %d out", len(ins), len(outs))
	}
	body := childList(tr, fn.Child[3])
	if len(body) != 1 {
		t.Fatalf("want 1 body statement, got %d", len(body))
	}
	if tr.node(body[0]).Kind != NodeAssign {
		t.Fatalf("want body statement NodeAssign, got %v", tr.node(body[0]).Kind)
	}
}

// S3: [a, ~] = size(eye(3)) — a call-statement with two output slots, the
// second flagged ignored.
func Test_S3_MultiAssignWithIgnoredOutput(t *testing.T) {
	tr := mustParse(t, "[a, ~] = size(eye(3))")
	ss := stmts(tr)
	if len(ss) != 1 {
		t.Fatalf("want 1 statement, got %d", len(ss))
	}
	ma := tr.node(ss[0])
	if ma.Kind != NodeMultiAssign {
		t.Fatalf("want NodeMultiAssign, got %v", ma.Kind)
	}
	outs := childList(tr, ma.Child[0])
	if len(outs) != 2 {
		t.Fatalf("want 2 output slots, got %d", len(outs))
	}
	if tr.node(outs[0]).Kind == NodeIgnoredOutput {
		t.Fatal("first output should not be ignored")
	}
	if tr.node(outs[1]).Kind != NodeIgnoredOutput {
		t.Fatalf("want second output NodeIgnoredOutput, got %v", tr.node(outs[1]).Kind)
	}
}

func Test_MatrixLiteral_RowsAndColumns(t *testing.T) {
	tr := mustParse(t, "A = [1 2; 3 4]")
	ss := stmts(tr)
	assign := tr.node(ss[0])
	lit := tr.node(assign.Child[1])
	if lit.Kind != NodeMatrixLit {
		t.Fatalf("want NodeMatrixLit, got %v", lit.Kind)
	}
	rows := childList(tr, lit.Child[0])
	if len(rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(rows))
	}
	for i, r := range rows {
		row := tr.node(r)
		if row.Kind != NodeMatrixRow {
			t.Fatalf("row %d: want NodeMatrixRow, got %v", i, row.Kind)
		}
		elems := childList(tr, row.Child[0])
		if len(elems) != 2 {
			t.Fatalf("row %d: want 2 elements, got %d", i, len(elems))
		}
	}
}

func Test_RangeExpression_ChildLayout(t *testing.T) {
	tr := mustParse(t, "v = 1:2:10")
	ss := stmts(tr)
	rhs := tr.node(tr.node(ss[0]).Child[1])
	if rhs.Kind != NodeRange {
		t.Fatalf("want NodeRange, got %v", rhs.Kind)
	}
	if rhs.Child[1] == NoNode {
		t.Fatal("want a step child present for a stepped range")
	}
}

func Test_RangeExpression_NoStep(t *testing.T) {
	tr := mustParse(t, "v = 1:10")
	ss := stmts(tr)
	rhs := tr.node(tr.node(ss[0]).Child[1])
	if rhs.Kind != NodeRange {
		t.Fatalf("want NodeRange, got %v", rhs.Kind)
	}
	if rhs.Child[1] != NoNode {
		t.Fatal("want no step child for an unstepped range")
	}
}

func Test_AnonymousFunction(t *testing.T) {
	tr := mustParse(t, "f = @(x) x*x")
	ss := stmts(tr)
	rhs := tr.node(tr.node(ss[0]).Child[1])
	if rhs.Kind != NodeAnonFunc {
		t.Fatalf("want NodeAnonFunc, got %v", rhs.Kind)
	}
}

func Test_TryCatch(t *testing.T) {
	tr := mustParse(t, "try\n a = 1;\ncatch err\n b = 2;\nend\n")
	ss := stmts(tr)
	tryN := tr.node(ss[0])
	if tryN.Kind != NodeTry {
		t.Fatalf("want NodeTry, got %v", tryN.Kind)
	}
	if tryN.Child[1] == NoNode {
		t.Fatal("want a catch-variable child when 'catch err' names one")
	}
}
