// errors.go — user-facing diagnostic rendering for all five error kinds
// (spec.md §7.1).
//
// Grounded on the teacher's errors.go prettyErrorStringLabeled: a header
// line plus up to one line of context before and after the offending
// source line. The teacher carries a column and places a caret beneath it;
// this source's tokens only carry a line (spec.md §3's Token has no column
// field), so Diagnose underlines the whole offending line instead of
// pointing a caret at one column.
package mxc

import (
	"fmt"
	"strings"
)

// Diagnose renders err with a snippet of src if err is one of the five
// translation error kinds (spec.md §7.1); any other error is rendered with
// its own Error() text, unlabeled.
func Diagnose(err error, src string) string {
	switch e := err.(type) {
	case *LexError:
		return labeled(src, "LEXICAL ERROR", e.Line, e.Msg)
	case *ParseError:
		return labeled(src, "PARSE ERROR", e.Line, e.Msg)
	case *ResolveError:
		return labeled(src, "RESOLVE ERROR", e.Line, e.Msg)
	case *ScopeError:
		return labeled(src, "RESOLVE ERROR", e.Line, e.Msg)
	case *ShapeError:
		return labeled(src, "SHAPE ERROR", e.Line, e.Msg)
	case *TypeError:
		return labeled(src, "TYPE ERROR", e.Line, e.Msg)
	default:
		if err == nil {
			return ""
		}
		return err.Error()
	}
}

// labeled builds the header-plus-context snippet. Coordinates are 1-based
// and clamped to the source's line count so a stale or out-of-range line
// never panics the renderer.
func labeled(src, header string, line int, msg string) string {
	lines := strings.Split(src, "\n")
	if len(lines) == 0 {
		lines = []string{""}
	}
	if line < 1 {
		line = 1
	}
	if line > len(lines) {
		line = len(lines)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s at line %d: %s\n\n", header, line, msg)
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	fmt.Fprintf(&b, "     | %s\n", strings.Repeat("^", max(1, len(lines[line-1]))))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
