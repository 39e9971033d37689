// Package lexer converts Oath source text into a token stream.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Scanner walks UTF-8 source one token at a time. Interpolated strings make
// the scan a two-mode push-down: `${` inside a string switches to expression
// scanning until the balancing `}`, at which point literal scanning resumes.
type Scanner struct {
	source string
	file   string
	pos    int
	line   int
	col    int

	// interp tracks open interpolation spans. Each entry counts the brace
	// nesting inside its expression span so that struct and block braces
	// do not terminate the span early.
	interp []int

	// last is the kind of the previously emitted token and depth the open
	// paren/bracket nesting; together they decide whether a line break
	// separates statements.
	last  Kind
	depth int
}

// NewScanner returns a scanner positioned at the start of source.
func NewScanner(source, file string) *Scanner {
	return &Scanner{source: source, file: file, line: 1, col: 1}
}

// Tokenize scans the whole input, including the terminating EOF token.
func Tokenize(source, file string) ([]Token, error) {
	s := NewScanner(source, file)
	var tokens []Token
	for {
		tok, err := s.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == EOF {
			return tokens, nil
		}
	}
}

func (s *Scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *Scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *Scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *Scanner) here() Pos {
	return Pos{File: s.file, Line: s.line, Col: s.col, Offset: s.pos}
}

func (s *Scanner) token(kind Kind, start Pos) Token {
	lexeme := s.source[start.Offset:s.pos]
	return Token{Kind: kind, Lexeme: lexeme, Value: lexeme, Pos: start, End: s.pos}
}

func (s *Scanner) errf(start Pos, b byte, format string, args ...any) error {
	return &LexError{Pos: start, Byte: b, Msg: fmt.Sprintf(format, args...)}
}

// skipWhitespaceAndComments consumes spaces and comments but stops at a
// line break, which Next decides how to treat.
func (s *Scanner) skipWhitespaceAndComments() error {
	for !s.atEnd() {
		switch ch := s.peek(); {
		case ch == ' ' || ch == '\t' || ch == '\r':
			s.advance()
		case ch == '/' && s.peekAt(1) == '/':
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		case ch == '/' && s.peekAt(1) == '*':
			start := s.here()
			s.advance()
			s.advance()
			closed := false
			for !s.atEnd() {
				if s.peek() == '*' && s.peekAt(1) == '/' {
					s.advance()
					s.advance()
					closed = true
					break
				}
				s.advance()
			}
			if !closed {
				return s.errf(start, '*', "unterminated block comment")
			}
		default:
			return nil
		}
	}
	return nil
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Next returns the next token in the stream. A line break becomes a
// Newline token only where it can end a statement: after a token that may
// terminate an expression, outside parens, brackets, and interpolation
// spans. Every other line break is whitespace, so an expression continues
// across lines after an open delimiter or a trailing operator.
func (s *Scanner) Next() (Token, error) {
	tok, err := s.scan()
	if err != nil {
		return Token{}, err
	}
	switch tok.Kind {
	case LParen, LBracket:
		s.depth++
	case RParen, RBracket:
		if s.depth > 0 {
			s.depth--
		}
	}
	s.last = tok.Kind
	return tok, nil
}

// statementEnd reports whether the previous token can end a statement, so
// a following line break separates statements rather than continuing one.
func (s *Scanner) statementEnd() bool {
	if s.depth > 0 || len(s.interp) > 0 {
		return false
	}
	switch s.last {
	case Ident, Int, Float, String, StringClose, RParen, RBracket, RBrace,
		Question, KwTrue, KwFalse, KwNil, KwReturn, KwBreak, KwContinue:
		return true
	}
	return false
}

func (s *Scanner) scan() (Token, error) {
	for {
		if err := s.skipWhitespaceAndComments(); err != nil {
			return Token{}, err
		}
		if s.atEnd() || s.peek() != '\n' {
			break
		}
		nlStart := s.here()
		s.advance()
		if s.statementEnd() {
			return Token{Kind: Newline, Lexeme: "\n", Value: "\n", Pos: nlStart, End: s.pos}, nil
		}
	}

	start := s.here()
	if s.atEnd() {
		if len(s.interp) > 0 {
			return Token{}, s.errf(start, 0, "unterminated string interpolation")
		}
		return Token{Kind: EOF, Pos: start, End: s.pos}, nil
	}

	ch := s.peek()

	// A `}` that balances the innermost interpolation span resumes literal
	// scanning of the surrounding string.
	if ch == '}' && len(s.interp) > 0 && s.interp[len(s.interp)-1] == 0 {
		s.interp = s.interp[:len(s.interp)-1]
		s.advance()
		return s.scanStringPart(start, false)
	}

	switch {
	case ch == '"':
		s.advance()
		return s.scanStringPart(start, true)
	case ch == 'r' && (s.peekAt(1) == '"' || s.peekAt(1) == '#'):
		if tok, ok, err := s.scanRawString(start); err != nil {
			return Token{}, err
		} else if ok {
			return tok, nil
		}
		return s.scanIdentOrKeyword(start), nil
	case isDigit(ch):
		return s.scanNumber(start), nil
	case isAlpha(ch):
		return s.scanIdentOrKeyword(start), nil
	}

	s.advance()
	switch ch {
	case '(':
		return s.token(LParen, start), nil
	case ')':
		return s.token(RParen, start), nil
	case '{':
		if len(s.interp) > 0 {
			s.interp[len(s.interp)-1]++
		}
		return s.token(LBrace, start), nil
	case '}':
		if len(s.interp) > 0 {
			s.interp[len(s.interp)-1]--
		}
		return s.token(RBrace, start), nil
	case '[':
		return s.token(LBracket, start), nil
	case ']':
		return s.token(RBracket, start), nil
	case ',':
		return s.token(Comma, start), nil
	case ';':
		return s.token(Semicolon, start), nil
	case '?':
		return s.token(Question, start), nil
	case '#':
		if s.peek() == '{' {
			s.advance()
			if len(s.interp) > 0 {
				s.interp[len(s.interp)-1]++
			}
			return s.token(MapOpen, start), nil
		}
		return Token{}, s.errf(start, ch, "unexpected character '#'")
	case ':':
		if s.peek() == '=' {
			s.advance()
			return s.token(Declare, start), nil
		}
		return s.token(Colon, start), nil
	case '.':
		if s.peek() == '.' {
			s.advance()
			if s.peek() == '=' {
				s.advance()
				return s.token(DotDotEq, start), nil
			}
			return s.token(DotDot, start), nil
		}
		return s.token(Dot, start), nil
	case '-':
		switch s.peek() {
		case '>':
			s.advance()
			return s.token(Arrow, start), nil
		case '=':
			s.advance()
			return s.token(MinusAssign, start), nil
		}
		return s.token(Minus, start), nil
	case '+':
		if s.peek() == '=' {
			s.advance()
			return s.token(PlusAssign, start), nil
		}
		return s.token(Plus, start), nil
	case '*':
		if s.peek() == '=' {
			s.advance()
			return s.token(StarAssign, start), nil
		}
		return s.token(Star, start), nil
	case '/':
		if s.peek() == '=' {
			s.advance()
			return s.token(SlashAssign, start), nil
		}
		return s.token(Slash, start), nil
	case '%':
		if s.peek() == '=' {
			s.advance()
			return s.token(PercentAssign, start), nil
		}
		return s.token(Percent, start), nil
	case '=':
		switch s.peek() {
		case '=':
			s.advance()
			return s.token(EqEq, start), nil
		case '>':
			s.advance()
			return s.token(FatArrow, start), nil
		}
		return s.token(Assign, start), nil
	case '!':
		if s.peek() == '=' {
			s.advance()
			return s.token(BangEq, start), nil
		}
		return s.token(Bang, start), nil
	case '<':
		if s.peek() == '=' {
			s.advance()
			return s.token(LtEq, start), nil
		}
		return s.token(Lt, start), nil
	case '>':
		if s.peek() == '=' {
			s.advance()
			return s.token(GtEq, start), nil
		}
		return s.token(Gt, start), nil
	case '&':
		if s.peek() == '&' {
			s.advance()
			return s.token(AndAnd, start), nil
		}
		return Token{}, s.errf(start, ch, "unexpected character '&'")
	case '|':
		if s.peek() == '|' {
			s.advance()
			return s.token(OrOr, start), nil
		}
		return Token{}, s.errf(start, ch, "unexpected character '|'")
	}
	return Token{}, s.errf(start, ch, "unrecognized character %q", string(rune(ch)))
}

// scanStringPart scans literal text up to the closing quote or the next
// `${`. opening distinguishes the first part of a string from a part that
// resumes after an interpolation span.
func (s *Scanner) scanStringPart(start Pos, opening bool) (Token, error) {
	var buf strings.Builder
	for {
		if s.atEnd() {
			return Token{}, s.errf(start, '"', "unterminated string literal")
		}
		ch := s.peek()
		switch {
		case ch == '"':
			s.advance()
			kind := String
			if !opening {
				kind = StringClose
			}
			tok := s.token(kind, start)
			tok.Value = buf.String()
			return tok, nil
		case ch == '$' && s.peekAt(1) == '{':
			s.advance()
			s.advance()
			s.interp = append(s.interp, 0)
			kind := StringOpen
			if !opening {
				kind = StringMid
			}
			tok := s.token(kind, start)
			tok.Value = buf.String()
			return tok, nil
		case ch == '\\':
			s.advance()
			if s.atEnd() {
				return Token{}, s.errf(start, '\\', "unterminated string escape")
			}
			esc := s.advance()
			switch esc {
			case 'n':
				buf.WriteByte('\n')
			case 't':
				buf.WriteByte('\t')
			case 'r':
				buf.WriteByte('\r')
			case '0':
				buf.WriteByte(0)
			case '\\':
				buf.WriteByte('\\')
			case '"':
				buf.WriteByte('"')
			case '$':
				buf.WriteByte('$')
			case '{':
				buf.WriteByte('{')
			case '}':
				buf.WriteByte('}')
			case 'u':
				if s.peek() != '{' {
					return Token{}, s.errf(start, esc, "expected '{' after \\u")
				}
				s.advance()
				hexStart := s.pos
				for !s.atEnd() && s.peek() != '}' {
					s.advance()
				}
				if s.atEnd() {
					return Token{}, s.errf(start, esc, "unterminated unicode escape")
				}
				hex := s.source[hexStart:s.pos]
				s.advance()
				code, err := strconv.ParseUint(hex, 16, 32)
				if err != nil || !utf8.ValidRune(rune(code)) {
					return Token{}, s.errf(start, esc, "invalid unicode escape \\u{%s}", hex)
				}
				buf.WriteRune(rune(code))
			default:
				return Token{}, s.errf(start, esc, "invalid escape '\\%c'", esc)
			}
		case ch == '\n':
			return Token{}, s.errf(start, ch, "unterminated string literal")
		default:
			r, size := utf8.DecodeRuneInString(s.source[s.pos:])
			if r == utf8.RuneError && size == 1 {
				return Token{}, s.errf(start, ch, "invalid UTF-8 byte in string")
			}
			buf.WriteRune(r)
			for i := 0; i < size; i++ {
				s.advance()
			}
		}
	}
}

// scanRawString handles r"..." and the delimiter-extensible r#"..."# forms.
// The body is taken verbatim: no escapes, no interpolation. Returns ok=false
// when the lookahead turns out not to be a raw string (e.g. `r#` not
// followed by a quote), letting the caller fall back to identifier scanning.
func (s *Scanner) scanRawString(start Pos) (Token, bool, error) {
	hashes := 0
	for s.peekAt(1+hashes) == '#' {
		hashes++
	}
	if s.peekAt(1+hashes) != '"' {
		return Token{}, false, nil
	}
	// consume r, hashes, opening quote
	for i := 0; i < hashes+2; i++ {
		s.advance()
	}
	terminator := `"` + strings.Repeat("#", hashes)
	bodyStart := s.pos
	for {
		if s.atEnd() {
			return Token{}, false, s.errf(start, '"', "unterminated raw string literal")
		}
		if s.peek() == '"' && strings.HasPrefix(s.source[s.pos:], terminator) {
			body := s.source[bodyStart:s.pos]
			for i := 0; i < len(terminator); i++ {
				s.advance()
			}
			tok := s.token(String, start)
			tok.Value = body
			return tok, true, nil
		}
		s.advance()
	}
}

func (s *Scanner) scanNumber(start Pos) Token {
	isFloat := false
	for !s.atEnd() && (isDigit(s.peek()) || s.peek() == '_') {
		s.advance()
	}
	// A '.' starts a fraction only when followed by a digit; `1..5` must
	// leave the range operator intact.
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		isFloat = true
		s.advance()
		for !s.atEnd() && (isDigit(s.peek()) || s.peek() == '_') {
			s.advance()
		}
	}
	if s.peek() == 'e' || s.peek() == 'E' {
		next := s.peekAt(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(s.peekAt(2))) {
			isFloat = true
			s.advance()
			if s.peek() == '+' || s.peek() == '-' {
				s.advance()
			}
			for !s.atEnd() && isDigit(s.peek()) {
				s.advance()
			}
		}
	}
	kind := Int
	if isFloat {
		kind = Float
	}
	tok := s.token(kind, start)
	tok.Value = strings.ReplaceAll(tok.Lexeme, "_", "")
	return tok
}

func (s *Scanner) scanIdentOrKeyword(start Pos) Token {
	for !s.atEnd() && (isAlpha(s.peek()) || isDigit(s.peek())) {
		s.advance()
	}
	tok := s.token(Ident, start)
	if kw, ok := keywords[tok.Lexeme]; ok {
		tok.Kind = kw
	}
	return tok
}
