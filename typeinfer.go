// typeinfer.go — the Type Inferrer stage (spec.md §4.6).
//
// Propagates element types through the tree by repeated structural
// application of precomputed per-operator result tables (binary and unary)
// until no node's DataType changes (a fixed point). Types flow only from
// operands to results: there is no operand table, so a known result never
// narrows an operand's type. This is the same table-driven-dispatch shape as
// the teacher's types.go unifyTypes/isSubtype pair, generalized from a
// runtime duck-typed union to compile-time per-operator tables because
// spec.md §4.6 fixes the element-type alphabet and the combination rules in
// advance rather than discovering them at eval time.
package mxc

import "fmt"

// ElementType is the closed alphabet of spec.md §4.6.
type ElementType int

const (
	TyNone ElementType = iota // not yet inferred
	TyBoolean
	TyChar
	TyInteger
	TyReal
	TyString
	TyCell
	TyFunction
	TyDynamic // fixed-point fallback: could not be narrowed further
	TyNA      // structurally inapplicable (e.g. a statement, not an expression)
)

func (e ElementType) String() string {
	switch e {
	case TyBoolean:
		return "bool"
	case TyChar:
		return "char"
	case TyInteger:
		return "int"
	case TyReal:
		return "double"
	case TyString:
		return "string"
	case TyCell:
		return "cell"
	case TyFunction:
		return "function"
	case TyDynamic:
		return "dynamic"
	case TyNA:
		return "n/a"
	default:
		return "none"
	}
}

// TypeError is a type-inference diagnostic (spec.md §7.1).
type TypeError struct {
	Line int
	Msg  string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("TYPE ERROR at line %d: %s", e.Line, e.Msg)
}

func errNotYetSupported(line int, construct string) error {
	return &TypeError{Line: line, Msg: fmt.Sprintf("not yet supported: %s", construct)}
}

// additionResultTable[{L, R}] gives the element type produced by combining an L-typed
// left operand with an R-typed right operand for a binary operator whose
// table admits string concatenation (addition). Unlisted pairs fall through
// to TyNone (not yet determined at this pass).
var additionResultTable = map[[2]ElementType]ElementType{
	{TyInteger, TyInteger}: TyInteger,
	{TyInteger, TyReal}:    TyReal,
	{TyReal, TyInteger}:    TyReal,
	{TyReal, TyReal}:       TyReal,
	{TyBoolean, TyInteger}: TyInteger,
	{TyInteger, TyBoolean}: TyInteger,
	{TyBoolean, TyBoolean}: TyInteger,
	{TyChar, TyChar}:       TyString,
	{TyChar, TyString}:     TyString,
	{TyString, TyChar}:     TyString,
	{TyString, TyString}:   TyString,
	{TyString, TyInteger}:  TyString,
	{TyInteger, TyString}:  TyString,
}

// arithResultTable is the numeric-only table for subtract/multiply/power
// and the elementwise variants: no string-concatenation entries.
var arithResultTable = map[[2]ElementType]ElementType{
	{TyInteger, TyInteger}: TyInteger,
	{TyInteger, TyReal}:    TyReal,
	{TyReal, TyInteger}:    TyReal,
	{TyReal, TyReal}:       TyReal,
	{TyBoolean, TyInteger}: TyInteger,
	{TyInteger, TyBoolean}: TyInteger,
	{TyBoolean, TyBoolean}: TyInteger,
	{TyBoolean, TyReal}:    TyReal,
	{TyReal, TyBoolean}:    TyReal,
}

// divideResultTable: left/right matrix divide and elementwise divide always
// widen to a real result, per spec.md §4.6 ("division never stays integer").
var divideResultTable = map[[2]ElementType]ElementType{
	{TyInteger, TyInteger}: TyReal,
	{TyInteger, TyReal}:    TyReal,
	{TyReal, TyInteger}:    TyReal,
	{TyReal, TyReal}:       TyReal,
	{TyBoolean, TyBoolean}: TyReal,
	{TyBoolean, TyInteger}: TyReal,
	{TyInteger, TyBoolean}: TyReal,
}

// comparisonResult is the fixed result type of every comparison/logical
// operator: always Boolean, regardless of operand types, once both operand
// types are themselves known.
const comparisonResult = TyBoolean

// unaryMinusTable and unaryNotTable give the result type of unary minus and
// of logical not applied to an operand of the map's key type.
var unaryMinusTable = map[ElementType]ElementType{
	TyInteger: TyInteger,
	TyReal:    TyReal,
	TyBoolean: TyInteger,
}

var unaryNotTable = map[ElementType]ElementType{
	TyBoolean: TyBoolean,
	TyInteger: TyBoolean,
	TyReal:    TyBoolean,
}

// castTable[result] gives the emitted C++ cast name for a result element
// type that required a narrowing/widening cast rather than a natural
// promotion. Nothing in this package reads it: neither inference nor the
// emitter fills or uses Node.CastType/ImplicitCast.
var castTable = map[ElementType]string{
	TyInteger: "static_cast<int>",
	TyReal:    "static_cast<double>",
	TyBoolean: "static_cast<bool>",
	TyChar:    "static_cast<char>",
}

// TypeInfer runs the fixed-point element-type propagation pass over the
// whole tree, mutating Node.DataType in place, and returns the first
// irrecoverable type conflict encountered.
func TypeInfer(t *Tree) error {
	ctx := &typeCtx{symbolTypes: map[[2]int]ElementType{}}
	for {
		changed := false
		again, err := typeInferBlock(t, ctx, t.Root, &changed)
		if err != nil {
			return err
		}
		_ = again
		if !changed {
			return checkAssignmentTypeConsistency(t)
		}
	}
}

// typeCtx carries state threaded through one TypeInfer run but not owned
// by the tree itself.
type typeCtx struct {
	// symbolTypes ties a variable reference's element type to its binding
	// target, the same way shape.go's symbolShapes ties a reference's size
	// to its binding: keyed by (Scope, Index) of a BindLocal/BindInput/
	// BindOutput binding, filled wherever an assignment or loop iterator
	// sets that binding's type, consulted by typeInferExpr's NodeVarRef
	// case.
	symbolTypes map[[2]int]ElementType
}

func typeSymbolKey(b Binding) ([2]int, bool) {
	switch b.Kind {
	case BindLocal, BindInput, BindOutput:
		return [2]int{int(b.Scope), b.Index}, true
	}
	return [2]int{}, false
}

func getSymbolType(ctx *typeCtx, b Binding) ElementType {
	key, ok := typeSymbolKey(b)
	if !ok {
		return TyNone
	}
	return ctx.symbolTypes[key]
}

// setSymbolType monotonically fills b's table entry the same way setType
// fills a node's own DataType: once a symbol's type is established it is
// never overwritten here (a later contradictory assignment is the
// separate concern of checkAssignmentTypeConsistency, below).
func setSymbolType(ctx *typeCtx, b Binding, ty ElementType, changed *bool) {
	key, ok := typeSymbolKey(b)
	if !ok || ty == TyNone {
		return
	}
	if _, exists := ctx.symbolTypes[key]; !exists {
		ctx.symbolTypes[key] = ty
		*changed = true
	}
}

// checkAssignmentTypeConsistency enforces spec.md §1/§4.6: "type conflict
// on assignment is reported as an error." typeCtx.symbolTypes (above) only
// ever fills a symbol's type once and leaves later assignments' DataType
// alone, so a contradiction is never raised during the fixed-point loop
// itself; this walks every NodeAssign in program order once the loop has
// settled, comparing each assignment's own DataType against the symbol's
// established one, mirroring checkNoResize's per-symbol shape map in
// translate.go.
func checkAssignmentTypeConsistency(t *Tree) error {
	type key struct {
		scope ScopeID
		index int
	}
	established := map[key]ElementType{}
	var walk func(id NodeID) error
	walk = func(id NodeID) error {
		if id == NoNode {
			return nil
		}
		n := t.node(id)
		if n.Kind == NodeAssign {
			lhs := t.node(n.Child[0])
			if lhs.Binding.Kind == BindLocal || lhs.Binding.Kind == BindOutput {
				k := key{lhs.Binding.Scope, lhs.Binding.Index}
				ty := n.DataType
				if prev, ok := established[k]; ok {
					if prev != TyDynamic && ty != TyDynamic && ty != TyNone && prev != ty {
						return &TypeError{Line: n.Line, Msg: fmt.Sprintf(
							"variable %q reassigned with incompatible type (was %s, now %s)",
							t.Text(n.Child[0]), prev, ty)}
					}
				} else if ty != TyNone {
					established[k] = ty
				}
			}
		}
		for _, c := range n.Child {
			if err := walk(c); err != nil {
				return err
			}
		}
		return walk(n.ListLink)
	}
	return walk(t.Root)
}

func setType(n *Node, ty ElementType, changed *bool) {
	if n.DataType == TyNone && ty != TyNone {
		n.DataType = ty
		*changed = true
	}
}

func typeInferBlock(t *Tree, ctx *typeCtx, head NodeID, changed *bool) (bool, error) {
	for id := head; id != NoNode; id = t.node(id).ListLink {
		if err := typeInferStmt(t, ctx, id, changed); err != nil {
			return false, err
		}
	}
	return true, nil
}

func typeInferStmt(t *Tree, ctx *typeCtx, id NodeID, changed *bool) error {
	n := t.node(id)
	switch n.Kind {
	case NodeFunctionDef:
		return stmtErr(typeInferBlock(t, ctx, n.Child[3], changed))
	case NodeAssign:
		if err := typeInferExpr(t, ctx, n.Child[1], changed); err != nil {
			return err
		}
		rhs := t.node(n.Child[1])
		lhs := t.node(n.Child[0])
		setType(lhs, rhs.DataType, changed)
		setSymbolType(ctx, lhs.Binding, lhs.DataType, changed)
		setType(n, rhs.DataType, changed)
		return nil
	case NodeMultiAssign:
		if err := typeInferExpr(t, ctx, n.Child[1], changed); err != nil {
			return err
		}
		return nil
	case NodeExprStmt:
		return typeInferExpr(t, ctx, n.Child[0], changed)
	case NodeIf:
		for clause := n.Child[0]; clause != NoNode; clause = t.node(clause).ListLink {
			cn := t.node(clause)
			if cn.Child[0] != NoNode {
				if err := typeInferExpr(t, ctx, cn.Child[0], changed); err != nil {
					return err
				}
			}
			if _, err := typeInferBlock(t, ctx, cn.Child[1], changed); err != nil {
				return err
			}
		}
		return nil
	case NodeFor, NodeParFor:
		if err := typeInferExpr(t, ctx, n.Child[1], changed); err != nil {
			return err
		}
		iter := t.node(n.Child[0])
		setType(iter, TyReal, changed)
		setSymbolType(ctx, iter.Binding, TyReal, changed)
		_, err := typeInferBlock(t, ctx, n.Child[2], changed)
		return err
	case NodeWhile:
		if err := typeInferExpr(t, ctx, n.Child[0], changed); err != nil {
			return err
		}
		_, err := typeInferBlock(t, ctx, n.Child[1], changed)
		return err
	case NodeTry:
		if _, err := typeInferBlock(t, ctx, n.Child[0], changed); err != nil {
			return err
		}
		_, err := typeInferBlock(t, ctx, n.Child[2], changed)
		return err
	case NodeSwitch:
		if err := typeInferExpr(t, ctx, n.Child[0], changed); err != nil {
			return err
		}
		for c := n.Child[1]; c != NoNode; c = t.node(c).ListLink {
			cn := t.node(c)
			if cn.Child[0] != NoNode {
				if err := typeInferExpr(t, ctx, cn.Child[0], changed); err != nil {
					return err
				}
			}
			if _, err := typeInferBlock(t, ctx, cn.Child[1], changed); err != nil {
				return err
			}
		}
		return nil
	case NodeParallelBlock:
		_, err := typeInferBlock(t, ctx, n.Child[0], changed)
		return err
	case NodeReturn, NodeBreak, NodeContinue, NodeGlobalDecl, NodePersistentDecl, NodeOSCall:
		setType(n, TyNA, changed)
		return nil
	}
	return nil
}

func stmtErr(_ bool, err error) error { return err }

func typeInferExpr(t *Tree, ctx *typeCtx, id NodeID, changed *bool) error {
	if id == NoNode {
		return nil
	}
	n := t.node(id)
	switch n.Kind {
	case NodeScalarLit:
		txt := t.Text(id)
		isInt := true
		for _, r := range txt {
			if r == '.' || r == 'e' || r == 'E' {
				isInt = false
				break
			}
		}
		if isInt {
			setType(n, TyInteger, changed)
		} else {
			setType(n, TyReal, changed)
		}
		return nil
	case NodeStringLit:
		setType(n, TyString, changed)
		return nil
	case NodeCharArrayLit:
		setType(n, TyChar, changed)
		return nil
	case NodeVarRef:
		setType(n, getSymbolType(ctx, n.Binding), changed)
		return nil
	case NodeIdentifier, NodeFreeName:
		return nil
	case NodeFuncRef:
		setType(n, TyFunction, changed)
		return nil
	case NodeEndSentinel:
		setType(n, TyInteger, changed)
		return nil
	case NodeColonAll:
		// Not itself a value — mx::all() sentinel consumed only by the
		// matrix-access emission path — so it never participates in the
		// result-table lookups below and is left untyped (TyNone).
		return nil
	case NodeUnaryPre:
		if err := typeInferExpr(t, ctx, n.Child[0], changed); err != nil {
			return err
		}
		operand := t.node(n.Child[0])
		switch t.TokKind(id) {
		case TkSubtract, TkAdd:
			if ty, ok := unaryMinusTable[operand.DataType]; ok {
				setType(n, ty, changed)
			}
		case TkNot:
			if ty, ok := unaryNotTable[operand.DataType]; ok {
				setType(n, ty, changed)
			}
		}
		return nil
	case NodeUnaryPost:
		if err := typeInferExpr(t, ctx, n.Child[0], changed); err != nil {
			return err
		}
		setType(n, t.node(n.Child[0]).DataType, changed)
		return nil
	case NodeBinaryOp:
		return typeInferBinary(t, ctx, id, n, changed)
	case NodeRange:
		for _, c := range n.Child[:3] {
			if c != NoNode {
				if err := typeInferExpr(t, ctx, c, changed); err != nil {
					return err
				}
			}
		}
		return errNotYetSupportedIfNone(t, id, n, "range expression element type")
	case NodeCall, NodeFunctionCall, NodeCallStmt:
		if err := typeInferExpr(t, ctx, n.Child[0], changed); err != nil {
			return err
		}
		for a := n.Child[1]; a != NoNode; a = t.node(a).ListLink {
			if err := typeInferExpr(t, ctx, a, changed); err != nil {
				return err
			}
		}
		return errNotYetSupportedIfNone(t, id, n, "function call result type")
	case NodeMatrixAccess:
		if err := typeInferExpr(t, ctx, n.Child[0], changed); err != nil {
			return err
		}
		for a := n.Child[1]; a != NoNode; a = t.node(a).ListLink {
			if err := typeInferExpr(t, ctx, a, changed); err != nil {
				return err
			}
		}
		setType(n, t.node(n.Child[0]).DataType, changed)
		return nil
	case NodeGet:
		setType(n, TyDynamic, changed)
		return nil
	case NodeFuncHandle, NodeAnonFunc:
		setType(n, TyFunction, changed)
		return nil
	case NodeMatrixLit, NodeMatrixRow:
		if err := typeInferList(t, ctx, n.Child[0], changed); err != nil {
			return err
		}
		// A literal whose elements all share one known type takes that type.
		common := TyNone
		for c := n.Child[0]; c != NoNode; c = t.node(c).ListLink {
			ty := t.node(c).DataType
			if ty == TyNone || (common != TyNone && ty != common) {
				return nil
			}
			common = ty
		}
		setType(n, common, changed)
		return nil
	case NodeCellLit, NodeCellRow:
		if err := typeInferList(t, ctx, n.Child[0], changed); err != nil {
			return err
		}
		setType(n, TyCell, changed)
		return nil
	case NodeIgnoredOutput, NodeDeclName:
		return nil
	}
	return nil
}

func typeInferList(t *Tree, ctx *typeCtx, head NodeID, changed *bool) error {
	for id := head; id != NoNode; id = t.node(id).ListLink {
		if err := typeInferExpr(t, ctx, id, changed); err != nil {
			return err
		}
	}
	return nil
}

// errNotYetSupportedIfNone is a placeholder hook for the open-question
// constructs explicitly called out in spec.md §9 (range/call-result
// element types): it never fires during the fixed-point loop itself
// (DataType simply stays TyNone, later resolved to TyDynamic by
// FinalizeDynamic), so no error is actually raised here. Kept as a named
// seam so the decision is easy to find.
func errNotYetSupportedIfNone(_ *Tree, _ NodeID, _ *Node, _ string) error {
	return nil
}

func typeInferBinary(t *Tree, ctx *typeCtx, id NodeID, n *Node, changed *bool) error {
	if err := typeInferExpr(t, ctx, n.Child[0], changed); err != nil {
		return err
	}
	if err := typeInferExpr(t, ctx, n.Child[1], changed); err != nil {
		return err
	}
	l := t.node(n.Child[0]).DataType
	r := t.node(n.Child[1]).DataType
	key := [2]ElementType{l, r}

	switch t.TokKind(id) {
	case TkAdd:
		if ty, ok := additionResultTable[key]; ok {
			setType(n, ty, changed)
		}
	case TkSubtract, TkMultiply, TkElementwiseMult, TkPower, TkElementwisePower:
		if ty, ok := arithResultTable[key]; ok {
			setType(n, ty, changed)
		}
	case TkDivide, TkBackDivide, TkElementwiseDiv, TkElementwiseBackDiv:
		if ty, ok := divideResultTable[key]; ok {
			setType(n, ty, changed)
		} else if l != TyNone && r != TyNone {
			return errNotYetSupported(n.Line, "divide operator on non-numeric operand")
		}
	case TkEquality, TkNotEqual, TkGreater, TkGreaterEqual, TkLess, TkLessEqual,
		TkAnd, TkOr, TkShortAnd, TkShortOr:
		if l != TyNone && r != TyNone {
			setType(n, comparisonResult, changed)
		}
	case TkColon:
		return errNotYetSupported(n.Line, "colon operator as a binary expression outside a range context")
	}
	return nil
}

// FinalizeDynamic runs after TypeInfer reaches a fixed point: any node
// whose DataType is still TyNone is marked TyDynamic, per spec.md §4.6's
// fallback rule.
func FinalizeDynamic(t *Tree) {
	for i := 0; i < t.Nodes.Len(); i++ {
		n := t.Nodes.Get(i)
		if n.DataType == TyNone {
			n.DataType = TyDynamic
		}
	}
}
