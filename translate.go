// translate.go — the public entry point wiring the whole pipeline
// together: scan → parse → build scopes → resolve → infer shapes → infer
// types → emit (spec.md §2's "Data flow is linear").
//
// Grounded on the teacher's NewInterpreter/EvalAST pair (interpreter.go):
// a small public API surface returning a plain error rather than
// panicking across the package boundary, which is the convention this
// package follows for Translate/WriteOutputs as well (spec.md §5's "fatal,
// unrecoverable error" becomes a returned error, never a panic, at this
// public boundary).
package mxc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Result is everything one call to Translate produced: the annotated tree
// (useful to callers that want to inspect it, e.g. a -watch preview) plus
// the two rendered output variants and the optional doc-comment sidecar.
type Result struct {
	Tree *Tree

	StandaloneSource string
	EmbedSource      string

	// DocComment is the captured header documentation, or empty when the
	// source carried none (spec.md §6 "Output files").
	DocComment string
}

// Translate runs the full pipeline over src and renders both output
// variants. entryName is the embeddable entry point's exported function
// name (spec.md §6's "desired embeddable-entry-point base name").
func Translate(src string, opts Options, entryName string) (*Result, error) {
	t, err := Parse(src)
	if err != nil {
		return nil, err
	}

	scopes, symbols, err := BuildScopes(t)
	if err != nil {
		return nil, err
	}
	t.Scopes, t.Symbols = scopes, symbols

	if err := Resolve(t); err != nil {
		return nil, err
	}

	if err := ShapeInfer(t, ShapeOptions{MathematicalNotation: opts.MathematicalNotation}); err != nil {
		return nil, err
	}
	if opts.DisallowResizing {
		if err := checkNoResize(t); err != nil {
			return nil, err
		}
	}

	if err := TypeInfer(t); err != nil {
		return nil, err
	}
	FinalizeDynamic(t)

	standalone, err := EmitStandalone(t, opts)
	if err != nil {
		return nil, err
	}
	embed, err := EmitEmbed(t, opts, entryName)
	if err != nil {
		return nil, err
	}

	return &Result{
		Tree:             t,
		StandaloneSource: standalone,
		EmbedSource:      embed,
		DocComment:       t.DocComment,
	}, nil
}

// checkNoResize enforces the disallow_resizing contract of spec.md §6: a
// variable's shape is fixed at its first assignment, and a later
// assignment with a different shape is a compile error. (When the flag is
// unset, dynamic resizing across reassignment is the reserved non-goal of
// spec.md §1 — the translator already never narrows a variable's shape
// across reassignment, so no separate "resizing allowed" path exists; this
// function is the only place shape stability is actually enforced.)
func checkNoResize(t *Tree) error {
	type key struct {
		scope ScopeID
		index int
	}
	first := map[key][2]int{}
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
				if prev, ok := first[k]; ok {
					rowsDiffer := prev[0] != unknownSize && n.Rows != unknownSize && prev[0] != n.Rows
					colsDiffer := prev[1] != unknownSize && n.Cols != unknownSize && prev[1] != n.Cols
					if rowsDiffer || colsDiffer {
						return &ShapeError{Line: n.Line, Msg: fmt.Sprintf(
							"variable %q resized on reassignment (disallow_resizing is set)", t.Text(n.Child[0]))}
					}
				} else {
					first[k] = [2]int{n.Rows, n.Cols}
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

// WriteOutputs writes a Result's rendered text to disk following spec.md
// §6's "Output files": the standalone program, the embeddable entry
// point, and (only when a doc comment was captured) a help-documentation
// sidecar next to the standalone program. Every write is flushed before
// the next begins (spec.md §5); the first failure is returned, wrapped
// with the name of the output that failed, and is fatal to the caller,
// matching the teacher's own I/O error
// convention in cmd/msg/main.go (os.ReadFile/os.Create errors are
// propagated, never swallowed).
func WriteOutputs(res *Result, standalonePath, embedPath string) error {
	if err := os.WriteFile(standalonePath, []byte(res.StandaloneSource), 0o644); err != nil {
		return fmt.Errorf("writing standalone program: %w", err)
	}
	if err := os.WriteFile(embedPath, []byte(res.EmbedSource), 0o644); err != nil {
		return fmt.Errorf("writing embeddable entry point: %w", err)
	}
	if res.DocComment != "" {
		sidecarPath := docSidecarPath(standalonePath)
		if err := os.WriteFile(sidecarPath, []byte(res.DocComment), 0o644); err != nil {
			return fmt.Errorf("writing doc-comment sidecar: %w", err)
		}
	}
	return nil
}

// docSidecarPath derives the help-documentation sidecar path from the
// standalone program's output path by swapping its extension for ".help.txt".
func docSidecarPath(standalonePath string) string {
	ext := filepath.Ext(standalonePath)
	base := strings.TrimSuffix(standalonePath, ext)
	return base + ".help.txt"
}
