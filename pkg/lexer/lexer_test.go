package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(t *testing.T, source string) []Kind {
	t.Helper()
	tokens, err := Tokenize(source, "test.oath")
	require.NoError(t, err)
	out := make([]Kind, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Kind)
	}
	return out
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	tokens, err := Tokenize("fn foo requires ensure ensures old older", "t.oath")
	require.NoError(t, err)
	expected := []Kind{KwFn, Ident, KwRequires, Ident, KwEnsures, KwOld, Ident, EOF}
	require.Len(t, tokens, len(expected))
	for i, k := range expected {
		assert.Equal(t, k, tokens[i].Kind, "token %d (%q)", i, tokens[i].Lexeme)
	}
	assert.Equal(t, "ensure", tokens[3].Value)
	assert.Equal(t, "older", tokens[6].Value)
}

func TestNumbers(t *testing.T) {
	tokens, err := Tokenize("42 1_000 3.14 1e9 2.5e-3", "t.oath")
	require.NoError(t, err)
	assert.Equal(t, Int, tokens[0].Kind)
	assert.Equal(t, "42", tokens[0].Value)
	assert.Equal(t, Int, tokens[1].Kind)
	assert.Equal(t, "1000", tokens[1].Value)
	assert.Equal(t, Float, tokens[2].Kind)
	assert.Equal(t, Float, tokens[3].Kind)
	assert.Equal(t, Float, tokens[4].Kind)
	assert.Equal(t, "2.5e-3", tokens[4].Value)
}

func TestRangeOperatorsDoNotEatFloats(t *testing.T) {
	assert.Equal(t, []Kind{Int, DotDot, Int, EOF}, kinds(t, "0..3"))
	assert.Equal(t, []Kind{Int, DotDotEq, Int, EOF}, kinds(t, "0..=3"))
	assert.Equal(t, []Kind{Float, DotDot, Float, EOF}, kinds(t, "0.5..1.5"))
}

func TestStringEscapes(t *testing.T) {
	tokens, err := Tokenize(`"a\nb\t\"c\"\u{1F600}\$"`, "t.oath")
	require.NoError(t, err)
	require.Equal(t, String, tokens[0].Kind)
	assert.Equal(t, "a\nb\t\"c\"\U0001F600$", tokens[0].Value)
}

func TestInterpolationTokenSequence(t *testing.T) {
	tokens, err := Tokenize(`"a ${x + 1} b ${y} c"`, "t.oath")
	require.NoError(t, err)
	expected := []Kind{StringOpen, Ident, Plus, Int, StringMid, Ident, StringClose, EOF}
	require.Len(t, tokens, len(expected))
	for i, k := range expected {
		assert.Equal(t, k, tokens[i].Kind, "token %d (%q)", i, tokens[i].Lexeme)
	}
	assert.Equal(t, "a ", tokens[0].Value)
	assert.Equal(t, " b ", tokens[4].Value)
	assert.Equal(t, " c", tokens[6].Value)
}

func TestInterpolationTracksNestedBraces(t *testing.T) {
	// The struct literal's braces must not terminate the span.
	expected := []Kind{StringOpen, Ident, LBrace, Ident, Colon, Int, RBrace, Dot, Ident, StringClose, EOF}
	assert.Equal(t, expected, kinds(t, `"p = ${Point { x: 1 }.x}"`))
}

func TestNestedInterpolatedStrings(t *testing.T) {
	expected := []Kind{StringOpen, StringOpen, Ident, StringClose, StringClose, EOF}
	assert.Equal(t, expected, kinds(t, `"outer ${"inner ${x}"}"`))
}

func TestEscapedDollarIsLiteral(t *testing.T) {
	tokens, err := Tokenize(`"cost: \${x}"`, "t.oath")
	require.NoError(t, err)
	require.Equal(t, String, tokens[0].Kind)
	assert.Equal(t, "cost: ${x}", tokens[0].Value)
}

func TestRawStringPreservesContent(t *testing.T) {
	tokens, err := Tokenize(`r"no \n escapes, no ${interp}"`, "t.oath")
	require.NoError(t, err)
	require.Equal(t, String, tokens[0].Kind)
	assert.Equal(t, `no \n escapes, no ${interp}`, tokens[0].Value)
}

func TestRawStringHashDelimiters(t *testing.T) {
	tokens, err := Tokenize(`r#"she said "hi" there"#`, "t.oath")
	require.NoError(t, err)
	require.Equal(t, String, tokens[0].Kind)
	assert.Equal(t, `she said "hi" there`, tokens[0].Value)

	tokens, err = Tokenize(`r##"quote-hash "# inside"##`, "t.oath")
	require.NoError(t, err)
	assert.Equal(t, `quote-hash "# inside`, tokens[0].Value)
}

func TestRawPrefixedIdentifierIsNotARawString(t *testing.T) {
	tokens, err := Tokenize("radius r2d2", "t.oath")
	require.NoError(t, err)
	assert.Equal(t, Ident, tokens[0].Kind)
	assert.Equal(t, "radius", tokens[0].Value)
	assert.Equal(t, Ident, tokens[1].Kind)
}

func TestMapOpenVersusBlock(t *testing.T) {
	expected := []Kind{MapOpen, String, Colon, Int, RBrace, EOF}
	assert.Equal(t, expected, kinds(t, `#{ "a": 1 }`))
}

func TestCompoundOperators(t *testing.T) {
	expected := []Kind{Ident, Declare, Int, Semicolon, Ident, PlusAssign, Int, Semicolon, Ident, FatArrow, Ident, EOF}
	assert.Equal(t, expected, kinds(t, "x := 1; x += 2; a => b"))
}

func TestCommentsAreSkipped(t *testing.T) {
	expected := []Kind{Ident, Newline, Ident, EOF}
	assert.Equal(t, expected, kinds(t, "a // line\n/* block\nstill block */ b"))
}

func TestNewlineSeparatesCompleteStatements(t *testing.T) {
	assert.Equal(t, []Kind{Ident, Declare, Int, Newline, Minus, Int, EOF}, kinds(t, "x := 10\n-2"))
	// Blank lines collapse into one separator and leading breaks vanish.
	assert.Equal(t, []Kind{Ident, Newline, Ident, Newline, EOF}, kinds(t, "\na\n\n\nb\n"))
}

func TestNewlineContinuationRules(t *testing.T) {
	// A trailing operator continues the statement onto the next line.
	assert.Equal(t, []Kind{Int, Plus, Int, EOF}, kinds(t, "1 +\n2"))
	// Open parens and brackets suppress separation entirely.
	assert.Equal(t, []Kind{Ident, LParen, Ident, Comma, Ident, RParen, EOF}, kinds(t, "f(a,\nb\n)"))
	assert.Equal(t, []Kind{LBracket, Int, Comma, Int, RBracket, EOF}, kinds(t, "[1,\n2]"))
}

func TestLexErrors(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   string
	}{
		{"unterminated string", `"abc`, "unterminated string literal"},
		{"newline in string", "\"ab\nc\"", "unterminated string literal"},
		{"unterminated raw string", `r"abc`, "unterminated raw string literal"},
		{"unterminated comment", "/* nope", "unterminated block comment"},
		{"unterminated interpolation", `"a ${x`, "unterminated string"},
		{"bad escape", `"\q"`, "invalid escape"},
		{"stray at", "a @ b", "unrecognized character"},
		{"stray hash", "# x", "unexpected character '#'"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Tokenize(tc.source, "t.oath")
			require.Error(t, err)
			var lexErr *LexError
			require.ErrorAs(t, err, &lexErr)
			assert.Contains(t, lexErr.Error(), tc.want)
			assert.NotZero(t, lexErr.Pos.Line)
		})
	}
}

func TestPositions(t *testing.T) {
	tokens, err := Tokenize("a\n  bb", "t.oath")
	require.NoError(t, err)
	assert.Equal(t, 1, tokens[0].Pos.Line)
	assert.Equal(t, 1, tokens[0].Pos.Col)
	require.Equal(t, Newline, tokens[1].Kind)
	assert.Equal(t, 2, tokens[2].Pos.Line)
	assert.Equal(t, 3, tokens[2].Pos.Col)
	assert.Equal(t, 6, tokens[2].End)
}
