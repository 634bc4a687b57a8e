// resolve.go — the Name Resolver stage (spec.md §4.4).
//
// Walks the tree once, climbing each identifier's enclosing scope chain
// (inputs, then outputs, then every name the scope builder declared in
// that scope, wherever its first assignment sits; innermost scope first),
// then the file's base-workspace functions, and finally marking the name
// free if nothing matched. Grounded on the teacher's Env.Get parent-chain
// walk in interpreter.go, generalized here from a runtime value lookup
// performed once per evaluation into a compile-time binding-site lookup
// performed once per identifier node.
package mxc

import "fmt"

// ResolveError is a name-resolution diagnostic (spec.md §7.1).
type ResolveError struct {
	Line int
	Msg  string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("RESOLVE ERROR at line %d: %s", e.Line, e.Msg)
}

type resolver struct {
	t *Tree
	// callDepth counts nested call-argument positions, so an 'end' token
	// found there is recognized as the last-index sentinel rather than a
	// block terminator (spec.md §4.2's call-nesting counter, carried
	// through to here because 'end'-as-sentinel is only legal inside a
	// call/matrix-access argument list bound to a variable, spec.md §4.4).
	callDepth int
}

// Resolve runs the name-resolution pass over the whole tree. Scopes and
// Symbols must already be populated by BuildScopes.
func Resolve(t *Tree) error {
	r := &resolver{t: t}
	return r.block(t.Root, t.RootScope)
}

func (r *resolver) block(head NodeID, scope ScopeID) error {
	for id := head; id != NoNode; id = r.t.node(id).ListLink {
		if err := r.stmt(id, scope); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) stmt(id NodeID, scope ScopeID) error {
	n := r.t.node(id)
	switch n.Kind {
	case NodeFunctionDef:
		return r.functionDef(id, scope)
	case NodeAssign:
		if err := r.expr(n.Child[1], scope); err != nil {
			return err
		}
		return r.bindPlain(n.Child[0], scope)
	case NodeMultiAssign:
		for outID := n.Child[0]; outID != NoNode; outID = r.t.node(outID).ListLink {
			if r.t.node(outID).Kind == NodeIgnoredOutput {
				continue
			}
			if err := r.bindPlain(outID, scope); err != nil {
				return err
			}
		}
		return r.expr(n.Child[1], scope)
	case NodeExprStmt:
		return r.exprCtx(n.Child[0], scope, true)
	case NodeIf:
		for clause := n.Child[0]; clause != NoNode; clause = r.t.node(clause).ListLink {
			cn := r.t.node(clause)
			if cn.Child[0] != NoNode {
				if err := r.expr(cn.Child[0], scope); err != nil {
					return err
				}
			}
			if err := r.block(cn.Child[1], scope); err != nil {
				return err
			}
		}
		return nil
	case NodeFor, NodeParFor:
		if err := r.expr(n.Child[1], scope); err != nil {
			return err
		}
		if err := r.bindPlain(n.Child[0], scope); err != nil {
			return err
		}
		return r.block(n.Child[2], scope)
	case NodeWhile:
		if err := r.expr(n.Child[0], scope); err != nil {
			return err
		}
		return r.block(n.Child[1], scope)
	case NodeTry:
		if err := r.block(n.Child[0], scope); err != nil {
			return err
		}
		if n.Child[1] != NoNode {
			if err := r.bindPlain(n.Child[1], scope); err != nil {
				return err
			}
		}
		return r.block(n.Child[2], scope)
	case NodeSwitch:
		if err := r.expr(n.Child[0], scope); err != nil {
			return err
		}
		for c := n.Child[1]; c != NoNode; c = r.t.node(c).ListLink {
			cn := r.t.node(c)
			if cn.Child[0] != NoNode {
				if err := r.expr(cn.Child[0], scope); err != nil {
					return err
				}
			}
			if err := r.block(cn.Child[1], scope); err != nil {
				return err
			}
		}
		return nil
	case NodeGlobalDecl:
		return &ResolveError{Line: n.Line, Msg: "\"global\" is not supported: cross-scope variable sharing is out of scope"}
	case NodePersistentDecl:
		return &ResolveError{Line: n.Line, Msg: "\"persistent\" is not supported: function-local static state is out of scope"}
	case NodeParallelBlock:
		return r.block(n.Child[0], scope)
	}
	return nil
}

// bindPlain resolves (or declares) a bare identifier appearing in a
// binding position: assignment LHS, for-loop iterator, catch target.
func (r *resolver) bindPlain(id NodeID, scope ScopeID) error {
	n := r.t.node(id)
	if n.Kind != NodeIdentifier && n.Kind != NodeDeclName {
		return r.expr(id, scope)
	}
	name := r.t.Text(id)
	b, ok := r.lookupLocal(scope, name)
	if !ok {
		return &ResolveError{Line: n.Line, Msg: fmt.Sprintf("internal error: %q was not pre-declared by the scope builder", name)}
	}
	n.Kind = NodeVarRef
	n.Binding = b
	return nil
}

// lookupLocal finds name within scope's own Inputs/Outputs/Declared lists
// only (no climbing), in that precedence order, per spec.md §4.4.
func (r *resolver) lookupLocal(scope ScopeID, name string) (Binding, bool) {
	sc := r.t.Scopes.Get(int(scope))
	for i, symID := range sc.Inputs {
		if r.t.Symbols.Get(int(symID)).Name == name {
			return Binding{Kind: BindInput, Scope: scope, Index: i}, true
		}
	}
	for i, symID := range sc.Outputs {
		if r.t.Symbols.Get(int(symID)).Name == name {
			return Binding{Kind: BindOutput, Scope: scope, Index: i}, true
		}
	}
	for i, symID := range sc.Declared {
		if r.t.Symbols.Get(int(symID)).Name == name {
			return Binding{Kind: BindLocal, Scope: scope, Index: i}, true
		}
	}
	return Binding{}, false
}

// lookupChain climbs scope -> ... -> file root, then checks base-workspace
// function definitions, and finally reports free-name.
func (r *resolver) lookupChain(scope ScopeID, name string) Binding {
	for s := scope; s != NoScope; s = r.t.Scopes.Get(int(s)).Parent {
		if b, ok := r.lookupLocal(s, name); ok {
			return b
		}
	}
	if b, ok := r.lookupFunction(name); ok {
		return b
	}
	return Binding{Kind: BindFree}
}

// lookupFunction finds a top-level function definition by name: every
// NodeFunctionDef's own scope is reachable as a "base workspace" callee
// regardless of lexical nesting depth (spec.md §4.4).
func (r *resolver) lookupFunction(name string) (Binding, bool) {
	for id := r.t.Root; id != NoNode; id = r.t.node(id).ListLink {
		n := r.t.node(id)
		if n.Kind == NodeFunctionDef && r.t.Text(id) == name {
			return Binding{Kind: BindFunction, Scope: n.OwnScope, Index: int(id)}, true
		}
	}
	return Binding{}, false
}

func (r *resolver) functionDef(id NodeID, parent ScopeID) error {
	n := r.t.node(id)
	fnScope := n.OwnScope

	// Validate duplicate names across inputs/outputs and the
	// output-reuses-input-slot rule (spec.md §4.4): duplicates within the
	// same parameter list are rejected; a name repeated between the input
	// and output list is legal and already folded into one symbol by the
	// scope builder.
	seen := map[string]bool{}
	for p := n.Child[1]; p != NoNode; p = r.t.node(p).ListLink {
		name := r.t.Text(p)
		if name == "varargin" {
			return &ResolveError{Line: r.t.node(p).Line, Msg: "variadic inputs (\"varargin\") are not supported"}
		}
		if seen[name] {
			return &ResolveError{Line: r.t.node(p).Line, Msg: fmt.Sprintf("duplicate input parameter %q", name)}
		}
		seen[name] = true
	}
	seenOut := map[string]bool{}
	for p := n.Child[2]; p != NoNode; p = r.t.node(p).ListLink {
		name := r.t.Text(p)
		if name == "varargout" {
			return &ResolveError{Line: r.t.node(p).Line, Msg: "variadic outputs (\"varargout\") are not supported"}
		}
		if seenOut[name] {
			return &ResolveError{Line: r.t.node(p).Line, Msg: fmt.Sprintf("duplicate output parameter %q", name)}
		}
		seenOut[name] = true
	}

	for p := n.Child[1]; p != NoNode; p = r.t.node(p).ListLink {
		pn := r.t.node(p)
		b, _ := r.lookupLocal(fnScope, r.t.Text(p))
		pn.Kind = NodeVarRef
		pn.Binding = b
	}
	for p := n.Child[2]; p != NoNode; p = r.t.node(p).ListLink {
		pn := r.t.node(p)
		b, _ := r.lookupLocal(fnScope, r.t.Text(p))
		pn.Kind = NodeVarRef
		pn.Binding = b
	}

	return r.block(n.Child[3], fnScope)
}

func (r *resolver) expr(id NodeID, scope ScopeID) error {
	return r.exprCtx(id, scope, false)
}

// exprCtx resolves an expression node. isStmtPos is true only for the
// direct child of a NodeExprStmt, distinguishing a bare call statement
// (spec.md §4.2's NodeCallStmt) from the same call used as a sub-expression.
func (r *resolver) exprCtx(id NodeID, scope ScopeID, isStmtPos bool) error {
	if id == NoNode {
		return nil
	}
	n := r.t.node(id)
	switch n.Kind {
	case NodeIdentifier:
		return r.resolveIdentifier(id, n, scope)
	case NodeScalarLit, NodeStringLit, NodeCharArrayLit, NodeEndSentinel, NodeColonAll:
		return nil
	case NodeUnaryPre, NodeUnaryPost:
		return r.expr(n.Child[0], scope)
	case NodeBinaryOp:
		if err := r.expr(n.Child[0], scope); err != nil {
			return err
		}
		return r.expr(n.Child[1], scope)
	case NodeRange:
		for _, c := range n.Child[:3] {
			if c != NoNode {
				if err := r.expr(c, scope); err != nil {
					return err
				}
			}
		}
		return nil
	case NodeCall:
		return r.resolveCall(id, n, scope, isStmtPos)
	case NodeGet:
		return r.expr(n.Child[0], scope)
	case NodeFuncHandle:
		// A bare '@name' handle refers to a function by name without
		// invoking it; resolve against the function namespace only.
		if b, ok := r.lookupFunction(r.t.Text(id)); ok {
			n.Binding = b
			n.Kind = NodeFuncRef
		} else {
			n.Kind = NodeFreeName
		}
		return nil
	case NodeAnonFunc:
		for p := n.Child[0]; p != NoNode; p = r.t.node(p).ListLink {
			r.t.node(p).Kind = NodeVarRef
		}
		return r.expr(n.Child[1], scope)
	case NodeMatrixLit, NodeCellLit:
		for row := n.Child[0]; row != NoNode; row = r.t.node(row).ListLink {
			rowN := r.t.node(row)
			for item := rowN.Child[0]; item != NoNode; item = r.t.node(item).ListLink {
				if err := r.resolveEndSentinel(item, scope); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return nil
}

// resolveEndSentinel is exprCtx for an element of a matrix literal: 'end'
// there still means "last index of the enclosing indexable" when the
// literal is nested inside a call's arguments (resolveCall raises the
// call-nesting counter while resolving them); a bare matrix literal is not
// itself indexable, so 'end' directly inside one at nesting depth zero is
// rejected.
func (r *resolver) resolveEndSentinel(id NodeID, scope ScopeID) error {
	n := r.t.node(id)
	if n.Kind == NodeEndSentinel && r.callDepth == 0 {
		return &ResolveError{Line: n.Line, Msg: "\"end\" may only appear inside a call or matrix-access argument list"}
	}
	return r.expr(id, scope)
}

func (r *resolver) resolveIdentifier(id NodeID, n *Node, scope ScopeID) error {
	name := r.t.Text(id)
	b := r.lookupChain(scope, name)
	n.Binding = b
	switch b.Kind {
	case BindFunction:
		n.Kind = NodeFuncRef
	case BindFree:
		n.Kind = NodeFreeName
	default:
		n.Kind = NodeVarRef
	}
	return nil
}

// resolveCall reclassifies a generic NodeCall once its callee's binding is
// known: a function binding makes it NodeFunctionCall (or NodeCallStmt in
// statement position); a variable binding makes it NodeMatrixAccess, and
// 'end' sentinels in its argument list become legal (spec.md §4.2, §4.4).
func (r *resolver) resolveCall(id NodeID, n *Node, scope ScopeID, isStmtPos bool) error {
	if err := r.expr(n.Child[0], scope); err != nil {
		return err
	}
	callee := r.t.node(n.Child[0])

	r.callDepth++
	hasEndArg := false
	for a := n.Child[1]; a != NoNode; a = r.t.node(a).ListLink {
		if r.t.node(a).Kind == NodeEndSentinel {
			hasEndArg = true
		}
		if err := r.resolveEndSentinel(a, scope); err != nil {
			r.callDepth--
			return err
		}
	}
	r.callDepth--

	switch callee.Kind {
	case NodeFuncRef:
		if hasEndArg {
			return &ResolveError{Line: n.Line, Msg: "\"end\" used as variable, conflicts with use as function"}
		}
		if isStmtPos {
			n.Kind = NodeCallStmt
		} else {
			n.Kind = NodeFunctionCall
		}
	case NodeVarRef:
		n.Kind = NodeMatrixAccess
	default:
		// Free name used as a call: keep it a generic call so the emitter
		// can still surface the "unresolved" identifier text in its
		// diagnostic, but the shape/type passes will bottom out on
		// TyDynamic for it.
	}
	return nil
}
