// scope.go — the Scope Builder stage (spec.md §4.3).
//
// Builds the lexical scope tree ahead of name resolution: one Scope per
// file root plus one per function definition, each owning an ordered
// declaration list in first-use order. Grounded on the teacher's Env{parent}
// chain in interpreter.go/modules.go, generalized from a runtime lookup
// chain into a static pre-pass over the tree — the same depth-first
// traversal the teacher's evaluator does to install a new Env per call,
// done once here over the AST instead of once per invocation.
package mxc

import "fmt"

// ScopeID indexes into a Tree's scope arena. NoScope marks the absence of a
// parent (the file root).
type ScopeID int

const NoScope ScopeID = -1

// SymbolID indexes into a Tree's symbol arena.
type SymbolID int

const NoSymbol SymbolID = -1

// Symbol is one declared name within a Scope: a function input, a function
// output, or a plain local first assigned somewhere in the body.
type Symbol struct {
	Name  string
	Scope ScopeID
	Line  int // line of first declaration/use
}

// Scope is one node of the lexical scope tree: the file root, or a single
// function's body. Declared holds every name bound in this scope in
// first-use order; Inputs and Outputs are the subsets (in parameter order)
// that are also input/output parameters, per spec.md §4.3.
type Scope struct {
	Parent  ScopeID
	Body    NodeID // first top-level statement (file root) or NodeFunctionDef
	IsFile  bool
	FuncName string // empty for the file root

	Declared []SymbolID
	Inputs   []SymbolID
	Outputs  []SymbolID
}

// ScopeError is a scope-building diagnostic. It is its own type, but
// Diagnose renders it under the same RESOLVE ERROR label as *ResolveError,
// since both come from the pre-resolution pass.
type ScopeError struct {
	Line int
	Msg  string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("SCOPE ERROR at line %d: %s", e.Line, e.Msg)
}

// ScopeBuilder assembles Tree.Scopes and Tree.Symbols and stamps
// Node.OwnScope on every NodeFunctionDef.
type ScopeBuilder struct {
	t       *Tree
	scopes  Arena[Scope]
	symbols Arena[Symbol]

	// funcNames maps a function's declared name to the line of its first
	// definition, to catch duplicates (spec.md §4.3).
	funcNames map[string]int
}

// BuildScopes walks the whole tree once and returns the populated scope and
// symbol arenas, or the first duplicate-function-name error encountered.
func BuildScopes(t *Tree) (Arena[Scope], Arena[Symbol], error) {
	b := &ScopeBuilder{t: t, funcNames: map[string]int{}}
	fileScope := b.scopes.New(Scope{Parent: NoScope, Body: t.Root, IsFile: true})
	t.RootScope = ScopeID(fileScope)
	if err := b.walkBlock(t.Root, ScopeID(fileScope)); err != nil {
		return Arena[Scope]{}, Arena[Symbol]{}, err
	}
	return b.scopes, b.symbols, nil
}

// walkBlock visits a NodeProgram/body list's statements in order, building
// function scopes as it encounters NodeFunctionDef and recording plain
// declarations (for/catch targets, assignment LHS names) into the current
// scope's Declared list in first-use order.
func (b *ScopeBuilder) walkBlock(head NodeID, scope ScopeID) error {
	for id := head; id != NoNode; id = b.t.node(id).ListLink {
		if err := b.walkStmt(id, scope); err != nil {
			return err
		}
	}
	return nil
}

func (b *ScopeBuilder) walkStmt(id NodeID, scope ScopeID) error {
	n := b.t.node(id)
	switch n.Kind {
	case NodeFunctionDef:
		return b.walkFunctionDef(id, scope)
	case NodeAssign:
		b.declareIfPlainName(n.Child[0], scope)
	case NodeMultiAssign:
		for outID := n.Child[0]; outID != NoNode; outID = b.t.node(outID).ListLink {
			b.declareIfPlainName(outID, scope)
		}
	case NodeFor, NodeParFor:
		b.declareIfPlainName(n.Child[0], scope)
		if err := b.walkBlock(n.Child[2], scope); err != nil {
			return err
		}
		return nil
	case NodeIf:
		for clause := n.Child[0]; clause != NoNode; clause = b.t.node(clause).ListLink {
			cn := b.t.node(clause)
			if err := b.walkBlock(cn.Child[1], scope); err != nil {
				return err
			}
		}
		return nil
	case NodeWhile:
		return b.walkBlock(n.Child[1], scope)
	case NodeTry:
		if err := b.walkBlock(n.Child[0], scope); err != nil {
			return err
		}
		if n.Child[1] != NoNode {
			b.declareIfPlainName(n.Child[1], scope)
		}
		return b.walkBlock(n.Child[2], scope)
	case NodeSwitch:
		for c := n.Child[1]; c != NoNode; c = b.t.node(c).ListLink {
			cn := b.t.node(c)
			if err := b.walkBlock(cn.Child[1], scope); err != nil {
				return err
			}
		}
		return nil
	case NodeParallelBlock:
		return b.walkBlock(n.Child[0], scope)
	}
	return nil
}

// declareIfPlainName registers id in scope's Declared list the first time
// a bare identifier is seen there, e.g. the LHS of a simple assignment.
func (b *ScopeBuilder) declareIfPlainName(id NodeID, scope ScopeID) {
	if id == NoNode {
		return
	}
	n := b.t.node(id)
	if n.Kind != NodeIdentifier && n.Kind != NodeDeclName {
		return
	}
	name := b.t.Text(id)
	sc := b.scopes.Get(int(scope))
	for _, symID := range sc.Declared {
		if b.symbols.Get(int(symID)).Name == name {
			return // already declared in this scope
		}
	}
	symID := b.symbols.New(Symbol{Name: name, Scope: scope, Line: n.Line})
	sc.Declared = append(sc.Declared, SymbolID(symID))
}

// walkFunctionDef allocates a new Scope for the function body, populates
// Inputs/Outputs from the parameter lists, and records the definition for
// the duplicate-name check.
func (b *ScopeBuilder) walkFunctionDef(id NodeID, parent ScopeID) error {
	n := b.t.node(id)
	name := b.t.Text(id)
	if prevLine, ok := b.funcNames[name]; ok {
		return &ScopeError{Line: n.Line, Msg: fmt.Sprintf(
			"function %q redefines the function declared at line %d", name, prevLine)}
	}
	b.funcNames[name] = n.Line

	fnScope := ScopeID(b.scopes.New(Scope{Parent: parent, Body: id, FuncName: name}))
	n.OwnScope = fnScope

	// Child[1] = input-param list head, Child[2] = output-param list head,
	// Child[3] = body statement-list head (see ast.go / parser.go layout).
	for p := n.Child[1]; p != NoNode; p = b.t.node(p).ListLink {
		pn := b.t.node(p)
		name := b.t.Text(p)
		symID := b.symbols.New(Symbol{Name: name, Scope: fnScope, Line: pn.Line})
		sc := b.scopes.Get(int(fnScope))
		sc.Declared = append(sc.Declared, SymbolID(symID))
		sc.Inputs = append(sc.Inputs, SymbolID(symID))
	}
	for p := n.Child[2]; p != NoNode; p = b.t.node(p).ListLink {
		pn := b.t.node(p)
		name := b.t.Text(p)
		sc := b.scopes.Get(int(fnScope))
		// spec.md §4.4: an output name reuses its matching input's symbol
		// slot when names collide; otherwise it is a fresh declaration.
		reused := false
		for _, symID := range sc.Inputs {
			if b.symbols.Get(int(symID)).Name == name {
				sc.Outputs = append(sc.Outputs, symID)
				reused = true
				break
			}
		}
		if !reused {
			symID := b.symbols.New(Symbol{Name: name, Scope: fnScope, Line: pn.Line})
			sc.Declared = append(sc.Declared, SymbolID(symID))
			sc.Outputs = append(sc.Outputs, SymbolID(symID))
		}
	}

	return b.walkBlock(n.Child[3], fnScope)
}
