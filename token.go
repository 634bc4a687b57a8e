// token.go — the closed token alphabet and the Token record.
//
// Grounded on the teacher's lexer.go Token{Type, Lexeme, Literal, Line, Col}
// and its keywords map, adjusted per spec.md §3: a Token never copies
// lexeme text, so there is no Lexeme/Literal field here — callers reread
// src[StartOffset:EndOffset] and, for literals, redecode at the point of
// use during AST construction.
package mxc

// TokenKind is one of the closed enumeration of spec.md §6.
type TokenKind int

const (
	TkEOF TokenKind = iota
	TkString
	TkCharArray
	TkScalar
	TkIdentifier
	TkNewline
	TkFunction

	TkAdd
	TkSubtract
	TkMultiply
	TkDivide
	TkBackDivide
	TkPower
	TkElementwiseMult
	TkElementwiseDiv
	TkElementwiseBackDiv
	TkElementwisePower
	TkTranspose
	TkComplexConjugate

	TkEquals
	TkEquality
	TkNotEqual
	TkGreater
	TkGreaterEqual
	TkLess
	TkLessEqual
	TkAnd
	TkOr
	TkShortAnd
	TkShortOr
	TkNot

	TkLeftParen
	TkRightParen
	TkLeftBracket
	TkRightBracket
	TkLeftBrace
	TkRightBrace
	TkSemicolon
	TkComma
	TkColon
	TkDot

	TkOSCall
	TkMetaclass
	TkFunctionHandle
	TkLineContinuation
	TkComment
	TkBlockComment

	TkEnd
	TkIf
	TkElseif
	TkElse
	TkWhile
	TkFor
	TkParfor
	TkSwitch
	TkCase
	TkOtherwise
	TkBreak
	TkContinue
	TkReturn
	TkTry
	TkCatch
	TkGlobal
	TkPersistent
	TkSpmd
	TkClassdef
)

var keywords = map[string]TokenKind{
	"function": TkFunction,
	"end":      TkEnd,
	"if":       TkIf,
	"elseif":   TkElseif,
	"else":     TkElse,
	"while":    TkWhile,
	"for":      TkFor,
	"parfor":   TkParfor,
	"switch":   TkSwitch,
	"case":     TkCase,
	"otherwise": TkOtherwise,
	"break":    TkBreak,
	"continue": TkContinue,
	"return":   TkReturn,
	"try":      TkTry,
	"catch":    TkCatch,
	"global":   TkGlobal,
	"persistent": TkPersistent,
	"spmd":     TkSpmd,
	"classdef": TkClassdef,
}

// Token is the 4-field record of spec.md §3. Lexeme text is never stored;
// reread it from the original source using StartOffset/EndOffset.
type Token struct {
	Kind        TokenKind
	Line        int
	StartOffset int
	EndOffset   int
}

// Text rereads the lexeme for tok from src.
func (tok Token) Text(src string) string {
	return src[tok.StartOffset:tok.EndOffset]
}
