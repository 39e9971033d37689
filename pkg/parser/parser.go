// Package parser builds an Oath AST from source text.
//
// The parser is recursive descent and collects diagnostics in a batch: a
// malformed construct records an expected-vs-found error, the parser
// resynchronizes at the next statement boundary, and parsing continues so
// one pass reports every independent mistake (bounded, see maxDiagnostics).
package parser

import (
	"fmt"
	"strings"

	"github.com/oath-lang/oath/pkg/ast"
	"github.com/oath-lang/oath/pkg/lexer"
)

// maxDiagnostics caps one parse's error batch; past this the input is
// assumed to be garbage and parsing stops.
const maxDiagnostics = 25

// ParseError is one diagnostic: what the parser needed and what it saw.
type ParseError struct {
	Pos      lexer.Pos
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: expected %s, found %s", e.Pos, e.Expected, e.Found)
}

// Parse tokenizes and parses one source file. The module is always
// returned; it holds every construct that parsed cleanly. A non-empty
// error slice means the module is incomplete.
func Parse(source, file string) (*ast.Module, []*ParseError) {
	tokens, err := lexer.Tokenize(source, file)
	if err != nil {
		lexErr := err.(*lexer.LexError)
		return ast.NewModule(nil, nil, ""), []*ParseError{{
			Pos:      lexErr.Pos,
			Expected: "a valid token",
			Found:    lexErr.Msg,
		}}
	}
	p := &parser{source: source, tokens: tokens}
	return p.parseModule(), p.errors
}

type parser struct {
	source string
	tokens []lexer.Token
	pos    int
	errors []*ParseError

	// noStructLit disables `Ident { ... }` struct literals while parsing
	// the header expression of if/while/for/match, where the brace opens
	// the body instead. Bracketed subexpressions re-enable them.
	noStructLit bool
}

// bailout aborts the current construct after a diagnostic; recovery
// happens at the enclosing statement loop.
type bailout struct{}

func (p *parser) cur() lexer.Token  { return p.tokens[p.pos] }
func (p *parser) prev() lexer.Token { return p.tokens[p.pos-1] }

func (p *parser) peekKind(offset int) lexer.Kind {
	i := p.pos + offset
	if i >= len(p.tokens) {
		return lexer.EOF
	}
	return p.tokens[i].Kind
}

func (p *parser) at(kind lexer.Kind) bool {
	return p.cur().Kind == kind
}

func (p *parser) next() lexer.Token {
	tok := p.cur()
	if tok.Kind != lexer.EOF {
		p.pos++
	}
	return tok
}

func (p *parser) match(kind lexer.Kind) bool {
	if p.at(kind) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(kind lexer.Kind) lexer.Token {
	if p.at(kind) {
		return p.next()
	}
	p.fail(kind.String())
	return lexer.Token{} // unreachable
}

func (p *parser) describeCur() string {
	tok := p.cur()
	if tok.Kind == lexer.Ident {
		return fmt.Sprintf("identifier %q", tok.Lexeme)
	}
	return tok.Kind.String()
}

// fail records a diagnostic at the current token and unwinds to the
// nearest statement loop.
func (p *parser) fail(expected string) {
	if len(p.errors) < maxDiagnostics {
		p.errors = append(p.errors, &ParseError{
			Pos:      p.cur().Pos,
			Expected: expected,
			Found:    p.describeCur(),
		})
	}
	panic(bailout{})
}

// synchronize skips tokens until a statement boundary: a semicolon (which
// it consumes), a closing brace, a declaration keyword, or end of input.
func (p *parser) synchronize() {
	for {
		switch p.cur().Kind {
		case lexer.EOF, lexer.RBrace:
			return
		case lexer.Semicolon, lexer.Newline:
			p.next()
			return
		case lexer.KwFn, lexer.KwStruct, lexer.KwTrait, lexer.KwEnum,
			lexer.KwImpl, lexer.KwImport, lexer.KwPriv, lexer.KwReturn,
			lexer.KwWhile, lexer.KwFor, lexer.KwDefer:
			return
		case lexer.Ident:
			// `name :=` is almost certainly the start of a fresh statement.
			if p.peekKind(1) == lexer.Declare {
				return
			}
		}
		p.next()
	}
}

func (p *parser) skipSeparators() {
	for p.match(lexer.Semicolon) || p.match(lexer.Newline) {
	}
}

func (p *parser) skipNewlines() {
	for p.match(lexer.Newline) {
	}
}

func (p *parser) exhausted() bool {
	return len(p.errors) >= maxDiagnostics
}

func (p *parser) parseModule() *ast.Module {
	var body []ast.Statement
	var imports []*ast.ImportStatement
	for {
		p.skipSeparators()
		if p.at(lexer.EOF) || p.exhausted() {
			break
		}
		stmt := p.recoverStatement()
		switch s := stmt.(type) {
		case nil:
		case *ast.ImportStatement:
			imports = append(imports, s)
		default:
			body = append(body, s)
		}
	}
	return ast.NewModule(body, imports, "")
}

// recoverStatement parses one statement, converting a bailout into a
// resynchronization so the surrounding loop keeps going.
func (p *parser) recoverStatement() (stmt ast.Statement) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			p.synchronize()
			stmt = nil
		}
	}()
	return p.parseStatement()
}

func (p *parser) parseStatement() ast.Statement {
	switch p.cur().Kind {
	case lexer.KwImport:
		return p.parseImport()
	case lexer.KwPriv:
		p.next()
		switch p.cur().Kind {
		case lexer.KwFn:
			return p.parseFunction(true)
		case lexer.KwStruct:
			return p.parseStruct(true)
		case lexer.KwTrait:
			return p.parseTrait(true)
		case lexer.KwEnum:
			return p.parseEnum(true)
		}
		p.fail("a declaration after 'priv'")
	case lexer.KwFn:
		return p.parseFunction(false)
	case lexer.KwStruct:
		return p.parseStruct(false)
	case lexer.KwTrait:
		return p.parseTrait(false)
	case lexer.KwEnum:
		return p.parseEnum(false)
	case lexer.KwImpl:
		return p.parseImpl()
	case lexer.KwReturn:
		p.next()
		if p.at(lexer.Semicolon) || p.at(lexer.Newline) || p.at(lexer.RBrace) || p.at(lexer.EOF) {
			return ast.NewReturnStatement(nil)
		}
		return ast.NewReturnStatement(p.parseExpression())
	case lexer.KwBreak:
		p.next()
		return ast.NewBreakStatement()
	case lexer.KwContinue:
		p.next()
		return ast.NewContinueStatement()
	case lexer.KwDefer:
		p.next()
		return ast.NewDeferStatement(p.parseExpression())
	case lexer.KwWhile:
		return p.parseWhile()
	case lexer.KwFor:
		return p.parseFor()
	}
	return p.parseExpression()
}

func (p *parser) parseImport() *ast.ImportStatement {
	p.expect(lexer.KwImport)
	path := []*ast.Identifier{p.parseIdentifier()}
	for p.match(lexer.Slash) {
		path = append(path, p.parseIdentifier())
	}
	var alias *ast.Identifier
	if p.match(lexer.KwAs) {
		alias = p.parseIdentifier()
	}
	return ast.NewImportStatement(path, alias)
}

func (p *parser) parseIdentifier() *ast.Identifier {
	tok := p.expect(lexer.Ident)
	return ast.NewIdentifier(tok.Lexeme)
}

// clauseText slices the literal source text between two token offsets and
// trims surrounding whitespace. Contract violations quote this verbatim.
func (p *parser) clauseText(startOffset, endOffset int) string {
	return strings.TrimSpace(p.source[startOffset:endOffset])
}

// parseContractClauses consumes any run of requires/ensures clauses, in
// source order, splitting them into the two lists. Clauses customarily sit
// on their own lines between the signature and the body, so line breaks
// are skipped here.
func (p *parser) parseContractClauses() (requires, ensures []*ast.ContractClause) {
	for {
		p.skipNewlines()
		switch p.cur().Kind {
		case lexer.KwRequires:
			p.next()
			start := p.cur().Pos.Offset
			expr := p.parseExpression()
			text := p.clauseText(start, p.prev().End)
			requires = append(requires, ast.NewContractClause(ast.ClauseRequires, expr, text))
		case lexer.KwEnsures:
			p.next()
			start := p.cur().Pos.Offset
			expr := p.parseExpression()
			text := p.clauseText(start, p.prev().End)
			ensures = append(ensures, ast.NewContractClause(ast.ClauseEnsures, expr, text))
		default:
			return requires, ensures
		}
	}
}

func (p *parser) parseParameters() []*ast.FunctionParameter {
	p.expect(lexer.LParen)
	var params []*ast.FunctionParameter
	for !p.at(lexer.RParen) {
		name := p.parseIdentifier()
		var ty ast.TypeExpression
		if p.match(lexer.Colon) {
			ty = p.parseTypeExpression()
		}
		params = append(params, ast.NewFunctionParameter(name, ty))
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RParen)
	return params
}

func (p *parser) parseTypeExpression() ast.TypeExpression {
	return ast.NewSimpleTypeExpression(p.parseIdentifier())
}

func (p *parser) parseFunction(isPrivate bool) *ast.FunctionDefinition {
	p.expect(lexer.KwFn)
	name := p.parseIdentifier()
	params := p.parseParameters()
	var returnType ast.TypeExpression
	if p.match(lexer.Arrow) {
		returnType = p.parseTypeExpression()
	}
	requires, ensures := p.parseContractClauses()
	body := p.parseBlock()
	return ast.NewFunctionDefinition(name, params, body, returnType, requires, ensures, isPrivate)
}

func (p *parser) parseStruct(isPrivate bool) *ast.StructDefinition {
	p.expect(lexer.KwStruct)
	name := p.parseIdentifier()
	p.expect(lexer.LBrace)
	var fields []*ast.StructFieldDefinition
	var invariants []*ast.ContractClause
	for {
		p.skipSeparators()
		if p.at(lexer.RBrace) || p.at(lexer.EOF) {
			break
		}
		if p.match(lexer.KwInvariant) {
			start := p.cur().Pos.Offset
			expr := p.parseExpression()
			text := p.clauseText(start, p.prev().End)
			invariants = append(invariants, ast.NewContractClause(ast.ClauseInvariant, expr, text))
		} else {
			fieldName := p.parseIdentifier()
			var ty ast.TypeExpression
			if p.match(lexer.Colon) {
				ty = p.parseTypeExpression()
			}
			fields = append(fields, ast.NewStructFieldDefinition(fieldName, ty))
		}
		p.match(lexer.Comma)
	}
	p.expect(lexer.RBrace)
	return ast.NewStructDefinition(name, fields, invariants, isPrivate)
}

func (p *parser) parseTrait(isPrivate bool) *ast.TraitDefinition {
	p.expect(lexer.KwTrait)
	name := p.parseIdentifier()
	p.expect(lexer.LBrace)
	var signatures []*ast.FunctionSignature
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		p.expect(lexer.KwFn)
		sigName := p.parseIdentifier()
		params := p.parseParameters()
		var returnType ast.TypeExpression
		if p.match(lexer.Arrow) {
			returnType = p.parseTypeExpression()
		}
		requires, ensures := p.parseContractClauses()
		var defaultBody *ast.BlockExpression
		if p.at(lexer.LBrace) {
			defaultBody = p.parseBlock()
		}
		signatures = append(signatures, ast.NewFunctionSignature(sigName, params, returnType, requires, ensures, defaultBody))
		p.skipSeparators()
	}
	p.expect(lexer.RBrace)
	return ast.NewTraitDefinition(name, signatures, isPrivate)
}

func (p *parser) parseEnum(isPrivate bool) *ast.EnumDefinition {
	p.expect(lexer.KwEnum)
	name := p.parseIdentifier()
	p.expect(lexer.LBrace)
	var variants []*ast.EnumVariantDefinition
	for {
		p.skipSeparators()
		if p.at(lexer.RBrace) || p.at(lexer.EOF) {
			break
		}
		variantName := p.parseIdentifier()
		var payload []ast.TypeExpression
		if p.match(lexer.LParen) {
			for !p.at(lexer.RParen) {
				payload = append(payload, p.parseTypeExpression())
				if !p.match(lexer.Comma) {
					break
				}
			}
			p.expect(lexer.RParen)
		}
		variants = append(variants, ast.NewEnumVariantDefinition(variantName, payload))
		if !p.match(lexer.Comma) && !p.at(lexer.Newline) {
			break
		}
	}
	p.expect(lexer.RBrace)
	return ast.NewEnumDefinition(name, variants, isPrivate)
}

func (p *parser) parseImpl() *ast.ImplementationDefinition {
	p.expect(lexer.KwImpl)
	first := p.parseIdentifier()
	var traitName, targetType *ast.Identifier
	if p.match(lexer.KwFor) {
		traitName = first
		targetType = p.parseIdentifier()
	} else {
		targetType = first
	}
	p.expect(lexer.LBrace)
	var defs []*ast.FunctionDefinition
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		defs = append(defs, p.parseFunction(false))
		p.skipSeparators()
	}
	p.expect(lexer.RBrace)
	return ast.NewImplementationDefinition(traitName, targetType, defs)
}

func (p *parser) parseWhile() *ast.WhileLoop {
	p.expect(lexer.KwWhile)
	condition := p.parseHeaderExpression()
	body := p.parseBlock()
	return ast.NewWhileLoop(condition, body)
}

func (p *parser) parseFor() *ast.ForLoop {
	p.expect(lexer.KwFor)
	pattern := p.parsePattern()
	p.expect(lexer.KwIn)
	iterable := p.parseHeaderExpression()
	body := p.parseBlock()
	return ast.NewForLoop(pattern, iterable, body)
}

// parseHeaderExpression parses the expression before a `{` body, where a
// struct literal would swallow the body's opening brace.
func (p *parser) parseHeaderExpression() ast.Expression {
	saved := p.noStructLit
	p.noStructLit = true
	expr := p.parseExpression()
	p.noStructLit = saved
	return expr
}

func (p *parser) parseBlock() *ast.BlockExpression {
	p.expect(lexer.LBrace)
	saved := p.noStructLit
	p.noStructLit = false
	var body []ast.Statement
	for {
		p.skipSeparators()
		if p.at(lexer.RBrace) || p.at(lexer.EOF) || p.exhausted() {
			break
		}
		if stmt := p.recoverStatement(); stmt != nil {
			body = append(body, stmt)
		}
	}
	p.noStructLit = saved
	p.expect(lexer.RBrace)
	return ast.NewBlockExpression(body)
}

func (p *parser) parsePattern() ast.Pattern {
	switch p.cur().Kind {
	case lexer.Ident:
		tok := p.next()
		if tok.Lexeme == "_" {
			return ast.NewWildcardPattern()
		}
		if p.at(lexer.LParen) {
			p.next()
			var elements []ast.Pattern
			for !p.at(lexer.RParen) {
				elements = append(elements, p.parsePattern())
				if !p.match(lexer.Comma) {
					break
				}
			}
			p.expect(lexer.RParen)
			return ast.NewVariantPattern(ast.NewIdentifier(tok.Lexeme), elements)
		}
		return ast.NewIdentifier(tok.Lexeme)
	case lexer.Int, lexer.Float, lexer.String, lexer.KwTrue, lexer.KwFalse, lexer.KwNil:
		return ast.NewLiteralPattern(p.parseLiteral())
	case lexer.Minus:
		p.next()
		lit := p.parseLiteral()
		switch l := lit.(type) {
		case *ast.IntegerLiteral:
			return ast.NewLiteralPattern(ast.NewIntegerLiteral(l.Value.Neg(l.Value)))
		case *ast.FloatLiteral:
			return ast.NewLiteralPattern(ast.NewFloatLiteral(-l.Value))
		}
		p.fail("a numeric literal after '-'")
	}
	p.fail("a pattern")
	return nil
}
