package mxc

import (
	"strings"
	"testing"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	l := NewLexer(src)
	toks, err := l.Scan()
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	return toks
}

func kindsWithoutEOF(toks []Token) []TokenKind {
	if len(toks) == 0 {
		return nil
	}
	end := len(toks)
	if toks[end-1].Kind == TkEOF {
		end--
	}
	out := make([]TokenKind, 0, end)
	for i := 0; i < end; i++ {
		out = append(out, toks[i].Kind)
	}
	return out
}

func wantKinds(t *testing.T, src string, want []TokenKind) []Token {
	t.Helper()
	toks := scanAll(t, src)
	got := kindsWithoutEOF(toks)
	if len(got) != len(want) {
		t.Fatalf("source %q: want %d tokens %v, got %d %v", src, len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("source %q: token %d: want %v, got %v (full want %v got %v)", src, i, want[i], got[i], want, got)
		}
	}
	return toks
}

// Property 6: apostrophe disambiguation. A bare apostrophe immediately
// after a value-ending token is the complex-conjugate postfix operator
// (".'" is the plain-transpose spelling, scanned separately via scanDot);
// anywhere else it opens a char-array literal.
func Test_Apostrophe_PostfixAfterValue(t *testing.T) {
	wantKinds(t, "A' * B'",
		[]TokenKind{TkIdentifier, TkComplexConjugate, TkMultiply, TkIdentifier, TkComplexConjugate})
}

func Test_Apostrophe_StringWhenValuePosition(t *testing.T) {
	wantKinds(t, "s = 'hello'",
		[]TokenKind{TkIdentifier, TkEquals, TkCharArray})
}

func Test_Apostrophe_AfterCloseParenIsPostfix(t *testing.T) {
	wantKinds(t, "(A)'",
		[]TokenKind{TkLeftParen, TkIdentifier, TkRightParen, TkComplexConjugate})
}

func Test_DoubleQuotedString(t *testing.T) {
	toks := wantKinds(t, `"hi there"`, []TokenKind{TkString})
	if got := toks[0].Text(`"hi there"`); got != `"hi there"` {
		t.Fatalf("unexpected text %q", got)
	}
}

func Test_StringDoubledDelimiterEscape(t *testing.T) {
	src := `s = 'it''s'`
	wantKinds(t, src, []TokenKind{TkIdentifier, TkEquals, TkCharArray})
}

// Property 1: scanner round-trip.
func Test_RoundTrip_TokenSpansCoverSource(t *testing.T) {
	src := "a = 1 + 2;\nb = a * 3\n"
	toks := scanAll(t, src)
	// Walk tokens in order; every gap between consecutive spans (and
	// before the first / after the last) must be pure whitespace, and the
	// concatenation of spans plus gaps reproduces src exactly.
	var rebuilt strings.Builder
	last := 0
	for _, tok := range toks {
		if tok.Kind == TkEOF {
			continue
		}
		if tok.StartOffset < last {
			t.Fatalf("token %v starts before previous token ended", tok)
		}
		gap := src[last:tok.StartOffset]
		if strings.TrimSpace(gap) != "" {
			t.Fatalf("non-whitespace gap %q before token %v", gap, tok)
		}
		rebuilt.WriteString(gap)
		rebuilt.WriteString(tok.Text(src))
		last = tok.EndOffset
	}
	rebuilt.WriteString(src[last:])
	if rebuilt.String() != src {
		t.Fatalf("round-trip mismatch:\nwant %q\ngot  %q", src, rebuilt.String())
	}
}

// Dot-prefixed token disambiguation (spec.md §4.1).
func Test_DotPrefixedOperators(t *testing.T) {
	wantKinds(t, "A.*B", []TokenKind{TkIdentifier, TkElementwiseMult, TkIdentifier})
	wantKinds(t, "A./B", []TokenKind{TkIdentifier, TkElementwiseDiv, TkIdentifier})
	wantKinds(t, "A.^B", []TokenKind{TkIdentifier, TkElementwisePower, TkIdentifier})
	wantKinds(t, "A.'", []TokenKind{TkIdentifier, TkTranspose})
}

func Test_DotMemberAccess(t *testing.T) {
	wantKinds(t, "s.field", []TokenKind{TkIdentifier, TkDot, TkIdentifier})
}

func Test_NumericLiteral_TrailingDotNotConsumed(t *testing.T) {
	// "10.*20" must scan as "10", ".*", "20" — the trailing dot of "10."
	// is not absorbed into the number because it is followed by '*'.
	wantKinds(t, "10.*20", []TokenKind{TkScalar, TkElementwiseMult, TkScalar})
}

func Test_NumericLiteral_Exponent(t *testing.T) {
	toks := wantKinds(t, "1.5e-3", []TokenKind{TkScalar})
	if got := toks[0].Text("1.5e-3"); got != "1.5e-3" {
		t.Fatalf("unexpected lexeme %q", got)
	}
}

func Test_LineContinuation(t *testing.T) {
	src := "a = 1 + ... comment text\n2"
	wantKinds(t, src, []TokenKind{TkIdentifier, TkEquals, TkScalar, TkAdd, TkLineContinuation, TkScalar})
}

func Test_SingleLineComment(t *testing.T) {
	wantKinds(t, "a = 1 % a comment\n", []TokenKind{TkIdentifier, TkEquals, TkScalar, TkComment, TkNewline})
}

func Test_BlockComment_RequiresOwnLine(t *testing.T) {
	src := "%{\ninside\n%}\na = 1\n"
	wantKinds(t, src, []TokenKind{TkBlockComment, TkIdentifier, TkEquals, TkScalar, TkNewline})
}

func Test_BlockComment_Nests(t *testing.T) {
	src := "%{\nouter\n%{\ninner\n%}\nstill outer\n%}\na = 1\n"
	wantKinds(t, src, []TokenKind{TkBlockComment, TkIdentifier, TkEquals, TkScalar, TkNewline})
}

func Test_OSCallConsumesWholeLine(t *testing.T) {
	toks := wantKinds(t, "!ls -la\na = 1\n", []TokenKind{TkOSCall, TkNewline, TkIdentifier, TkEquals, TkScalar, TkNewline})
	if got := toks[0].Text("!ls -la\na = 1\n"); got != "!ls -la" {
		t.Fatalf("unexpected OS-call payload %q", got)
	}
}

func Test_AdjacentCommasRejected(t *testing.T) {
	l := NewLexer("[1,,2]")
	if _, err := l.Scan(); err == nil {
		t.Fatal("expected LexError for adjacent commas")
	} else if _, ok := err.(*LexError); !ok {
		t.Fatalf("expected *LexError, got %T: %v", err, err)
	}
}

func Test_UnterminatedString(t *testing.T) {
	l := NewLexer(`"never closed`)
	if _, err := l.Scan(); err == nil {
		t.Fatal("expected LexError for unterminated string")
	}
}

func Test_CRLFIsOneNewline(t *testing.T) {
	wantKinds(t, "a = 1\r\nb = 2", []TokenKind{
		TkIdentifier, TkEquals, TkScalar, TkNewline,
		TkIdentifier, TkEquals, TkScalar,
	})
}

// Function-syntax detection (spec.md §4.1, S6-adjacent).
func Test_FunctionsRequireEnd_WhenCountsMatchWithFunction(t *testing.T) {
	l := NewLexer("function r = sq(x)\nr = x*x;\nend\n")
	if _, err := l.Scan(); err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	need, err := l.FunctionsRequireEnd()
	if err != nil {
		t.Fatalf("FunctionsRequireEnd error: %v", err)
	}
	if !need {
		t.Fatal("expected functions to require 'end' in this file")
	}
}

func Test_FunctionsDoNotRequireEnd_WhenNoEndAtAll(t *testing.T) {
	l := NewLexer("function r = sq(x)\nr = x*x;\n")
	if _, err := l.Scan(); err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	need, err := l.FunctionsRequireEnd()
	if err != nil {
		t.Fatalf("FunctionsRequireEnd error: %v", err)
	}
	if need {
		t.Fatal("expected functions NOT to require 'end' in this file")
	}
}

// spec.md §4.2: "end" as the last-index sentinel inside an open "(...)"
// is not a block closer and must not count toward the file-global
// function/end balance.
func Test_Lexer_EndInsideParens_NotCountedTowardFunctionBalance(t *testing.T) {
	l := NewLexer("v = A(:, end);\n")
	if _, err := l.Scan(); err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if l.NumEndKeywords != 0 {
		t.Fatalf("want NumEndKeywords == 0, got %d", l.NumEndKeywords)
	}
}

func Test_Lexer_BareEnd_StillCountsTowardFunctionBalance(t *testing.T) {
	l := NewLexer("function r = sq(x)\nr = x*x;\nend\n")
	if _, err := l.Scan(); err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if l.NumEndKeywords != 1 {
		t.Fatalf("want NumEndKeywords == 1, got %d", l.NumEndKeywords)
	}
}

func Test_DocCommentPreamble(t *testing.T) {
	src := "function r = sq(x)\n% squares x\n% returns r\nr = x*x;\nend\n"
	l := NewLexer(src)
	doc := l.CaptureDocComment()
	if !strings.Contains(doc, "squares x") || !strings.Contains(doc, "returns r") {
		t.Fatalf("doc comment missing expected lines, got %q", doc)
	}
}

// "and"/"or"/"not" are builtin-function names, not reserved keywords
// (spec.md §4.1/§6's closed keyword list is the disjoint set "function, end, if,
// elseif, else, while, for, parfor, switch, case, otherwise, break,
// continue, return, try, catch, global, persistent, spmd, classdef").
// They must scan as plain identifiers so that "and(a, b)" and "or = 5;"
// both lex as calls/assignments rather than operator tokens.
func Test_Lexer_AndOrNot_ScanAsIdentifiers_NotKeywords(t *testing.T) {
	wantKinds(t, "and", []TokenKind{TkIdentifier})
	wantKinds(t, "or", []TokenKind{TkIdentifier})
	wantKinds(t, "not", []TokenKind{TkIdentifier})
}
