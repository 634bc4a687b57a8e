// shape.go — the Shape Inferrer stage (spec.md §4.5).
//
// Propagates (rows, cols) through the tree to a fixed point using the
// primitive matching helpers spec.md §4.5 names directly, gated by the
// mathematical_notation option for strict-vs-broadcast add/subtract. The
// teacher has no analogous matrix-shape system (MindScript values carry no
// static shape), so this pass is built from spec.md's prose rather than
// generalized from teacher code; the fixed-point convergence loop itself
// mirrors the monotonic repeated-merge shape of the teacher's
// types.go unifyTypes.
package mxc

import "fmt"

// unknownSize marks a not-yet-determined row/column count.
const unknownSize = -1

// ShapeError is a shape-inference diagnostic (spec.md §7.1).
type ShapeError struct {
	Line int
	Msg  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("SHAPE ERROR at line %d: %s", e.Line, e.Msg)
}

func matchRows(a, b int) (int, bool) {
	if a == unknownSize {
		return b, true
	}
	if b == unknownSize {
		return a, true
	}
	if a != b {
		return 0, false
	}
	return a, true
}

func matchCols(a, b int) (int, bool) { return matchRows(a, b) }

func matchRows3(a, b, c int) (int, bool) {
	v, ok := matchRows(a, b)
	if !ok {
		return 0, false
	}
	return matchRows(v, c)
}

func matchCols3(a, b, c int) (int, bool) { return matchRows3(a, b, c) }

// softMatchRows3/softMatchCols3 allow a 1 (scalar broadcast) to match any
// size, used by addition/subtraction when mathematical_notation is off.
func softMatchRows3(a, b, c int) (int, bool) {
	vals := []int{a, b, c}
	best := unknownSize
	for _, v := range vals {
		if v == unknownSize || v == 1 {
			continue
		}
		if best == unknownSize {
			best = v
		} else if best != v {
			return 0, false
		}
	}
	if best == unknownSize {
		return 1, true
	}
	return best, true
}

func softMatchCols3(a, b, c int) (int, bool) { return softMatchRows3(a, b, c) }

func matchSquare(rows, cols int) (int, bool) {
	r, ok := matchRows(rows, cols)
	if !ok {
		return 0, false
	}
	return r, true
}

func matchScalar(rows, cols int) bool {
	return (rows == unknownSize || rows == 1) && (cols == unknownSize || cols == 1)
}

func matchEmpty(rows, cols int) bool {
	return (rows == unknownSize || rows == 0) && (cols == unknownSize || cols == 0)
}

func flipSize(rows, cols int) (int, int) { return cols, rows }

// matchColsToRows reports whether a's column count is compatible with b's
// row count, used by matrix multiply.
func matchColsToRows(aCols, bRows int) (int, bool) {
	return matchRows(aCols, bRows)
}

// ShapeOptions mirrors the relevant slice of Options (emit.go) consulted
// during shape inference (spec.md §4.5, §8).
type ShapeOptions struct {
	MathematicalNotation bool

	// symbolShapes ties a variable reference's size to its binding target
	// (spec.md §4.5 "Variable reference: size tied to its binding target"):
	// keyed by (Scope, Index) of a BindLocal/BindInput/BindOutput binding,
	// filled wherever an assignment or loop iterator sets that binding's
	// shape, consulted by shapeExpr's NodeVarRef case. ShapeInfer
	// initializes it; callers never set it themselves. A map field is a
	// reference type, so every shapeStmt/shapeExpr call sharing a copy of
	// ShapeOptions by value still reads and writes the same table.
	symbolShapes map[[2]int][2]int
}

// ShapeInfer runs the fixed-point (rows, cols) propagation pass.
func ShapeInfer(t *Tree, opts ShapeOptions) error {
	if opts.symbolShapes == nil {
		opts.symbolShapes = map[[2]int][2]int{}
	}
	for {
		changed := false
		if err := shapeBlock(t, t.Root, opts, &changed); err != nil {
			return err
		}
		if !changed {
			return nil
		}
	}
}

// symbolShapeKey reports the table key for b, when b is a binding whose
// shape is worth remembering across occurrences (a plain variable, not a
// function or free name).
func symbolShapeKey(b Binding) ([2]int, bool) {
	switch b.Kind {
	case BindLocal, BindInput, BindOutput:
		return [2]int{int(b.Scope), b.Index}, true
	}
	return [2]int{}, false
}

// getSymbolShape looks up b's established shape, or (unknownSize,
// unknownSize) when nothing has filled it in yet.
func getSymbolShape(opts ShapeOptions, b Binding) (int, int) {
	key, ok := symbolShapeKey(b)
	if !ok {
		return unknownSize, unknownSize
	}
	cur, ok := opts.symbolShapes[key]
	if !ok {
		return unknownSize, unknownSize
	}
	return cur[0], cur[1]
}

// setSymbolShape monotonically fills b's table entry the same way setShape
// fills a node's own Rows/Cols: an unknown slot becomes known, an
// already-known slot is left alone (shape conflicts across reassignment
// are the separate, flag-gated concern of checkNoResize in translate.go).
func setSymbolShape(opts ShapeOptions, b Binding, rows, cols int, changed *bool) {
	key, ok := symbolShapeKey(b)
	if !ok {
		return
	}
	cur, ok := opts.symbolShapes[key]
	if !ok {
		cur = [2]int{unknownSize, unknownSize}
	}
	next := cur
	if cur[0] == unknownSize && rows != unknownSize {
		next[0] = rows
	}
	if cur[1] == unknownSize && cols != unknownSize {
		next[1] = cols
	}
	if next != cur {
		opts.symbolShapes[key] = next
		*changed = true
	}
}

func setShape(n *Node, rows, cols int, changed *bool) {
	if rows != unknownSize && n.Rows != rows {
		n.Rows = rows
		*changed = true
	}
	if cols != unknownSize && n.Cols != cols {
		n.Cols = cols
		*changed = true
	}
}

func initShape(n *Node) {
	if n.Rows == 0 && n.Cols == 0 {
		n.Rows, n.Cols = unknownSize, unknownSize
	}
}

func shapeBlock(t *Tree, head NodeID, opts ShapeOptions, changed *bool) error {
	for id := head; id != NoNode; id = t.node(id).ListLink {
		if err := shapeStmt(t, id, opts, changed); err != nil {
			return err
		}
	}
	return nil
}

func shapeStmt(t *Tree, id NodeID, opts ShapeOptions, changed *bool) error {
	n := t.node(id)
	initShape(n)
	switch n.Kind {
	case NodeFunctionDef:
		return shapeBlock(t, n.Child[3], opts, changed)
	case NodeAssign:
		if err := shapeExpr(t, n.Child[1], opts, changed); err != nil {
			return err
		}
		rhs := t.node(n.Child[1])
		lhs := t.node(n.Child[0])
		initShape(lhs)
		setShape(lhs, rhs.Rows, rhs.Cols, changed)
		setSymbolShape(opts, lhs.Binding, lhs.Rows, lhs.Cols, changed)
		setShape(n, rhs.Rows, rhs.Cols, changed)
		return nil
	case NodeMultiAssign:
		return shapeExpr(t, n.Child[1], opts, changed)
	case NodeExprStmt:
		return shapeExpr(t, n.Child[0], opts, changed)
	case NodeIf:
		for clause := n.Child[0]; clause != NoNode; clause = t.node(clause).ListLink {
			cn := t.node(clause)
			if cn.Child[0] != NoNode {
				if err := shapeExpr(t, cn.Child[0], opts, changed); err != nil {
					return err
				}
			}
			if err := shapeBlock(t, cn.Child[1], opts, changed); err != nil {
				return err
			}
		}
		return nil
	case NodeFor, NodeParFor:
		if err := shapeExpr(t, n.Child[1], opts, changed); err != nil {
			return err
		}
		if n.Kind == NodeParFor {
			if rn := t.node(n.Child[1]); rn.Kind == NodeRange && rn.Child[1] != NoNode {
				if t.Text(rn.Child[1]) != "1" {
					return &ShapeError{Line: n.Line, Msg: "parfor iterator step must be 1 (not yet supported)"}
				}
			}
		}
		iter := t.node(n.Child[0])
		initShape(iter)
		setShape(iter, 1, 1, changed)
		setSymbolShape(opts, iter.Binding, 1, 1, changed)
		return shapeBlock(t, n.Child[2], opts, changed)
	case NodeWhile:
		if err := shapeExpr(t, n.Child[0], opts, changed); err != nil {
			return err
		}
		return shapeBlock(t, n.Child[1], opts, changed)
	case NodeTry:
		if err := shapeBlock(t, n.Child[0], opts, changed); err != nil {
			return err
		}
		return shapeBlock(t, n.Child[2], opts, changed)
	case NodeSwitch:
		if err := shapeExpr(t, n.Child[0], opts, changed); err != nil {
			return err
		}
		for c := n.Child[1]; c != NoNode; c = t.node(c).ListLink {
			cn := t.node(c)
			if cn.Child[0] != NoNode {
				if err := shapeExpr(t, cn.Child[0], opts, changed); err != nil {
					return err
				}
			}
			if err := shapeBlock(t, cn.Child[1], opts, changed); err != nil {
				return err
			}
		}
		return nil
	case NodeParallelBlock:
		return shapeBlock(t, n.Child[0], opts, changed)
	}
	return nil
}

func shapeExpr(t *Tree, id NodeID, opts ShapeOptions, changed *bool) error {
	if id == NoNode {
		return nil
	}
	n := t.node(id)
	initShape(n)
	switch n.Kind {
	case NodeScalarLit, NodeCharArrayLit:
		setShape(n, 1, 1, changed)
		return nil
	case NodeStringLit:
		setShape(n, 1, len(t.Text(id)), changed)
		return nil
	case NodeVarRef:
		rows, cols := getSymbolShape(opts, n.Binding)
		setShape(n, rows, cols, changed)
		return nil
	case NodeIdentifier, NodeFreeName, NodeFuncRef, NodeEndSentinel,
		NodeFuncHandle, NodeAnonFunc, NodeDeclName, NodeIgnoredOutput, NodeColonAll:
		return nil
	case NodeUnaryPre:
		if err := shapeExpr(t, n.Child[0], opts, changed); err != nil {
			return err
		}
		operand := t.node(n.Child[0])
		setShape(n, operand.Rows, operand.Cols, changed)
		return nil
	case NodeUnaryPost:
		if err := shapeExpr(t, n.Child[0], opts, changed); err != nil {
			return err
		}
		operand := t.node(n.Child[0])
		if t.TokKind(id) == TkTranspose || t.TokKind(id) == TkComplexConjugate {
			r, c := flipSize(operand.Rows, operand.Cols)
			setShape(n, r, c, changed)
		} else {
			setShape(n, operand.Rows, operand.Cols, changed)
		}
		return nil
	case NodeBinaryOp:
		return shapeBinary(t, id, n, opts, changed)
	case NodeRange:
		for _, c := range n.Child[:3] {
			if c != NoNode {
				if err := shapeExpr(t, c, opts, changed); err != nil {
					return err
				}
			}
		}
		setShape(n, 1, unknownSize, changed)
		return nil
	case NodeCall, NodeFunctionCall, NodeCallStmt, NodeMatrixAccess:
		if err := shapeExpr(t, n.Child[0], opts, changed); err != nil {
			return err
		}
		for a := n.Child[1]; a != NoNode; a = t.node(a).ListLink {
			if err := shapeExpr(t, a, opts, changed); err != nil {
				return err
			}
		}
		if n.Kind == NodeMatrixAccess {
			shapeMatrixAccess(t, n, changed)
		}
		return nil
	case NodeGet:
		return nil
	case NodeMatrixLit:
		return shapeConcat(t, n, n.Child[0], false, opts, changed)
	case NodeMatrixRow:
		return shapeConcat(t, n, n.Child[0], true, opts, changed)
	case NodeCellLit:
		return shapeConcat(t, n, n.Child[0], false, opts, changed)
	case NodeCellRow:
		return shapeConcat(t, n, n.Child[0], true, opts, changed)
	}
	return nil
}

// shapeMatrixAccess sizes a two-argument matrix-access expression (S4:
// A(:, end)): a NodeColonAll argument selects the receiver's full extent
// along that dimension; any other argument is treated as a single scalar
// index, contributing size 1. Single-argument (linear) and N>2-argument
// (N-dimensional) indexing are left unsized (unknown shape) — this
// translator only has a fixed-point shape rule for the common 2-D case.
func shapeMatrixAccess(t *Tree, n *Node, changed *bool) {
	recv := t.node(n.Child[0])
	args := childList(t, n.Child[1])
	if len(args) != 2 {
		return
	}
	dimSize := func(argIdx int, recvDim int) int {
		arg := t.node(args[argIdx])
		if arg.Kind == NodeColonAll {
			return recvDim
		}
		return 1
	}
	initShape(n)
	setShape(n, dimSize(0, recv.Rows), dimSize(1, recv.Cols), changed)
}

// shapeConcat sizes a matrix/cell literal (or one of its rows) by summing
// along the concatenation axis and matching across the other axis, per
// spec.md §4.5's vertical/horizontal concatenation rules. horizontal==true
// means this node concatenates its children left-to-right (a row); false
// means top-to-bottom (rows stacked into the whole literal).
func shapeConcat(t *Tree, n *Node, head NodeID, horizontal bool, opts ShapeOptions, changed *bool) error {
	rows, cols := unknownSize, unknownSize
	sumAxis := 0
	count := 0
	for id := head; id != NoNode; id = t.node(id).ListLink {
		if err := shapeExpr(t, id, opts, changed); err != nil {
			return err
		}
		c := t.node(id)
		count++
		if horizontal {
			if r, ok := matchRows(rows, c.Rows); ok {
				rows = r
			} else {
				return &ShapeError{Line: n.Line, Msg: "inconsistent row count in matrix/cell row concatenation"}
			}
			if c.Cols != unknownSize {
				sumAxis += c.Cols
			}
		} else {
			if cc, ok := matchCols(cols, c.Cols); ok {
				cols = cc
			} else {
				return &ShapeError{Line: n.Line, Msg: "inconsistent column count stacking matrix/cell rows"}
			}
			if c.Rows != unknownSize {
				sumAxis += c.Rows
			}
		}
	}
	if count == 0 {
		setShape(n, 0, 0, changed)
		return nil
	}
	if horizontal {
		setShape(n, rows, sumAxis, changed)
	} else {
		setShape(n, sumAxis, cols, changed)
	}
	return nil
}

func shapeBinary(t *Tree, id NodeID, n *Node, opts ShapeOptions, changed *bool) error {
	if err := shapeExpr(t, n.Child[0], opts, changed); err != nil {
		return err
	}
	if err := shapeExpr(t, n.Child[1], opts, changed); err != nil {
		return err
	}
	l := t.node(n.Child[0])
	r := t.node(n.Child[1])

	switch t.TokKind(id) {
	case TkAdd, TkSubtract:
		if opts.MathematicalNotation {
			rows, rok := matchRows3(l.Rows, r.Rows, unknownSize)
			cols, cok := matchCols3(l.Cols, r.Cols, unknownSize)
			if !rok || !cok {
				return &ShapeError{Line: n.Line, Msg: "addition/subtraction requires matching dimensions under mathematical_notation"}
			}
			setShape(n, rows, cols, changed)
		} else {
			rows, _ := softMatchRows3(l.Rows, r.Rows, unknownSize)
			cols, _ := softMatchCols3(l.Cols, r.Cols, unknownSize)
			setShape(n, rows, cols, changed)
		}
	case TkElementwiseMult, TkElementwiseDiv, TkElementwiseBackDiv, TkElementwisePower:
		rows, rok := softMatchRows3(l.Rows, r.Rows, unknownSize)
		cols, cok := softMatchCols3(l.Cols, r.Cols, unknownSize)
		if !rok || !cok {
			return &ShapeError{Line: n.Line, Msg: "elementwise operator requires broadcast-compatible dimensions"}
		}
		setShape(n, rows, cols, changed)
	case TkMultiply:
		if matchScalar(l.Rows, l.Cols) {
			setShape(n, r.Rows, r.Cols, changed)
		} else if matchScalar(r.Rows, r.Cols) {
			setShape(n, l.Rows, l.Cols, changed)
		} else {
			if _, ok := matchColsToRows(l.Cols, r.Rows); !ok {
				return &ShapeError{Line: n.Line, Msg: "matrix multiply requires left columns to match right rows"}
			}
			setShape(n, l.Rows, r.Cols, changed)
		}
	case TkDivide, TkBackDivide:
		if matchScalar(r.Rows, r.Cols) || matchScalar(l.Rows, l.Cols) {
			rows, _ := matchRows(l.Rows, r.Rows)
			cols, _ := matchCols(l.Cols, r.Cols)
			setShape(n, rows, cols, changed)
		} else {
			setShape(n, l.Rows, r.Cols, changed)
		}
	case TkPower:
		if matchScalar(l.Rows, l.Cols) && matchScalar(r.Rows, r.Cols) {
			setShape(n, 1, 1, changed)
		} else if sq, ok := matchSquare(l.Rows, l.Cols); ok && matchScalar(r.Rows, r.Cols) {
			setShape(n, sq, sq, changed)
		}
	case TkEquality, TkNotEqual, TkGreater, TkGreaterEqual, TkLess, TkLessEqual,
		TkAnd, TkOr:
		rows, rok := softMatchRows3(l.Rows, r.Rows, unknownSize)
		cols, cok := softMatchCols3(l.Cols, r.Cols, unknownSize)
		if rok && cok {
			setShape(n, rows, cols, changed)
		}
	case TkShortAnd, TkShortOr:
		if !matchScalar(l.Rows, l.Cols) || !matchScalar(r.Rows, r.Cols) || !matchScalar(n.Rows, n.Cols) {
			return &ShapeError{Line: n.Line, Msg: "&& and || require scalar operands"}
		}
		setShape(n, 1, 1, changed)
	}
	return nil
}
