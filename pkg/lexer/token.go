package lexer

import "fmt"

// Kind identifies the lexical category of a token.
type Kind int

const (
	EOF Kind = iota

	Ident
	Int
	Float
	// String is a complete string literal with no interpolation (including
	// raw strings, which reach the parser fully decoded).
	String
	// StringOpen/StringMid/StringClose delimit an interpolated string:
	// StringOpen carries the literal text before the first `${`, each
	// StringMid the text between two interpolation spans, and StringClose
	// the trailing text. Expression tokens appear between them.
	StringOpen
	StringMid
	StringClose

	// Keywords
	KwFn
	KwStruct
	KwTrait
	KwEnum
	KwImpl
	KwFor
	KwIn
	KwWhile
	KwIf
	KwElse
	KwMatch
	KwCase
	KwReturn
	KwBreak
	KwContinue
	KwDefer
	KwRequires
	KwEnsures
	KwInvariant
	KwOld
	KwTrue
	KwFalse
	KwNil
	KwImport
	KwAs
	KwPriv

	// Punctuation and operators
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	MapOpen // #{
	Comma
	Colon
	Semicolon
	// Newline is a statement-separating line break. It is emitted only
	// where a line break can end a statement (see Scanner.Next); elsewhere
	// line breaks are plain whitespace.
	Newline
	Dot
	DotDot   // ..
	DotDotEq // ..=
	Arrow    // ->
	FatArrow // =>
	Question
	Assign        // =
	Declare       // :=
	PlusAssign    // +=
	MinusAssign   // -=
	StarAssign    // *=
	SlashAssign   // /=
	PercentAssign // %=
	Plus
	Minus
	Star
	Slash
	Percent
	Bang
	EqEq
	BangEq
	Lt
	LtEq
	Gt
	GtEq
	AndAnd
	OrOr
)

var kindNames = map[Kind]string{
	EOF:           "end of file",
	Ident:         "identifier",
	Int:           "integer literal",
	Float:         "float literal",
	String:        "string literal",
	StringOpen:    "interpolated string",
	StringMid:     "interpolation segment",
	StringClose:   "interpolation end",
	KwFn:          "'fn'",
	KwStruct:      "'struct'",
	KwTrait:       "'trait'",
	KwEnum:        "'enum'",
	KwImpl:        "'impl'",
	KwFor:         "'for'",
	KwIn:          "'in'",
	KwWhile:       "'while'",
	KwIf:          "'if'",
	KwElse:        "'else'",
	KwMatch:       "'match'",
	KwCase:        "'case'",
	KwReturn:      "'return'",
	KwBreak:       "'break'",
	KwContinue:    "'continue'",
	KwDefer:       "'defer'",
	KwRequires:    "'requires'",
	KwEnsures:     "'ensures'",
	KwInvariant:   "'invariant'",
	KwOld:         "'old'",
	KwTrue:        "'true'",
	KwFalse:       "'false'",
	KwNil:         "'nil'",
	KwImport:      "'import'",
	KwAs:          "'as'",
	KwPriv:        "'priv'",
	LParen:        "'('",
	RParen:        "')'",
	LBrace:        "'{'",
	RBrace:        "'}'",
	LBracket:      "'['",
	RBracket:      "']'",
	MapOpen:       "'#{'",
	Comma:         "','",
	Colon:         "':'",
	Semicolon:     "';'",
	Newline:       "newline",
	Dot:           "'.'",
	DotDot:        "'..'",
	DotDotEq:      "'..='",
	Arrow:         "'->'",
	FatArrow:      "'=>'",
	Question:      "'?'",
	Assign:        "'='",
	Declare:       "':='",
	PlusAssign:    "'+='",
	MinusAssign:   "'-='",
	StarAssign:    "'*='",
	SlashAssign:   "'/='",
	PercentAssign: "'%='",
	Plus:          "'+'",
	Minus:         "'-'",
	Star:          "'*'",
	Slash:         "'/'",
	Percent:       "'%'",
	Bang:          "'!'",
	EqEq:          "'=='",
	BangEq:        "'!='",
	Lt:            "'<'",
	LtEq:          "'<='",
	Gt:            "'>'",
	GtEq:          "'>='",
	AndAnd:        "'&&'",
	OrOr:          "'||'",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var keywords = map[string]Kind{
	"fn":        KwFn,
	"struct":    KwStruct,
	"trait":     KwTrait,
	"enum":      KwEnum,
	"impl":      KwImpl,
	"for":       KwFor,
	"in":        KwIn,
	"while":     KwWhile,
	"if":        KwIf,
	"else":      KwElse,
	"match":     KwMatch,
	"case":      KwCase,
	"return":    KwReturn,
	"break":     KwBreak,
	"continue":  KwContinue,
	"defer":     KwDefer,
	"requires":  KwRequires,
	"ensures":   KwEnsures,
	"invariant": KwInvariant,
	"old":       KwOld,
	"true":      KwTrue,
	"false":     KwFalse,
	"nil":       KwNil,
	"import":    KwImport,
	"as":        KwAs,
	"priv":      KwPriv,
}

// Pos locates a token within its source file. Offset is the byte offset of
// the token's first byte.
type Pos struct {
	File   string
	Line   int
	Col    int
	Offset int
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Token is one lexical unit. Lexeme is the raw source slice; Value is the
// decoded text for string-like tokens (escapes resolved) and equals Lexeme
// otherwise.
type Token struct {
	Kind   Kind
	Lexeme string
	Value  string
	Pos    Pos
	// End is the byte offset one past the token, used by the parser to
	// recover literal clause text.
	End int
}

// LexError reports an unrecoverable scanning failure: an unterminated
// string or comment, or an unrecognized byte.
type LexError struct {
	Pos  Pos
	Byte byte
	Msg  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}
