package parser

import (
	"math/big"
	"strconv"

	"github.com/oath-lang/oath/pkg/ast"
	"github.com/oath-lang/oath/pkg/lexer"
)

// Expression parsing is precedence climbing: each level parses the next
// tighter level and then folds its own operators left to right. Range
// operators are non-associative.

func (p *parser) parseExpression() ast.Expression {
	return p.parseAssignment()
}

var assignmentOps = map[lexer.Kind]ast.AssignmentOperator{
	lexer.Declare:       ast.AssignmentDeclare,
	lexer.Assign:        ast.AssignmentAssign,
	lexer.PlusAssign:    ast.AssignmentAdd,
	lexer.MinusAssign:   ast.AssignmentSub,
	lexer.StarAssign:    ast.AssignmentMul,
	lexer.SlashAssign:   ast.AssignmentDiv,
	lexer.PercentAssign: ast.AssignmentMod,
}

func (p *parser) parseAssignment() ast.Expression {
	left := p.parseOr()
	op, ok := assignmentOps[p.cur().Kind]
	if !ok {
		return left
	}
	opTok := p.next()
	value := p.parseAssignment() // right associative
	switch left.(type) {
	case *ast.Identifier:
	case *ast.MemberAccessExpression, *ast.IndexExpression:
		if op == ast.AssignmentDeclare {
			p.errorAt(opTok.Pos, "an identifier on the left of ':='")
		}
	default:
		p.errorAt(opTok.Pos, "an assignable target")
	}
	return ast.NewAssignmentExpression(op, left, value)
}

// errorAt records a diagnostic at a specific position without unwinding;
// the surrounding expression is still produced so later statements parse.
func (p *parser) errorAt(pos lexer.Pos, expected string) {
	if len(p.errors) < maxDiagnostics {
		p.errors = append(p.errors, &ParseError{Pos: pos, Expected: expected, Found: "expression"})
	}
}

func (p *parser) parseOr() ast.Expression {
	left := p.parseAnd()
	for p.at(lexer.OrOr) {
		p.next()
		left = ast.NewBinaryExpression("||", left, p.parseAnd())
	}
	return left
}

func (p *parser) parseAnd() ast.Expression {
	left := p.parseEquality()
	for p.at(lexer.AndAnd) {
		p.next()
		left = ast.NewBinaryExpression("&&", left, p.parseEquality())
	}
	return left
}

func (p *parser) parseEquality() ast.Expression {
	left := p.parseComparison()
	for {
		switch p.cur().Kind {
		case lexer.EqEq:
			p.next()
			left = ast.NewBinaryExpression("==", left, p.parseComparison())
		case lexer.BangEq:
			p.next()
			left = ast.NewBinaryExpression("!=", left, p.parseComparison())
		default:
			return left
		}
	}
}

func (p *parser) parseComparison() ast.Expression {
	left := p.parseRange()
	for {
		var op string
		switch p.cur().Kind {
		case lexer.Lt:
			op = "<"
		case lexer.LtEq:
			op = "<="
		case lexer.Gt:
			op = ">"
		case lexer.GtEq:
			op = ">="
		default:
			return left
		}
		p.next()
		left = ast.NewBinaryExpression(op, left, p.parseRange())
	}
}

func (p *parser) parseRange() ast.Expression {
	left := p.parseAdditive()
	switch p.cur().Kind {
	case lexer.DotDot:
		p.next()
		return ast.NewRangeExpression(left, p.parseAdditive(), false)
	case lexer.DotDotEq:
		p.next()
		return ast.NewRangeExpression(left, p.parseAdditive(), true)
	}
	return left
}

func (p *parser) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()
	for {
		switch p.cur().Kind {
		case lexer.Plus:
			p.next()
			left = ast.NewBinaryExpression("+", left, p.parseMultiplicative())
		case lexer.Minus:
			p.next()
			left = ast.NewBinaryExpression("-", left, p.parseMultiplicative())
		default:
			return left
		}
	}
}

func (p *parser) parseMultiplicative() ast.Expression {
	left := p.parseUnary()
	for {
		var op string
		switch p.cur().Kind {
		case lexer.Star:
			op = "*"
		case lexer.Slash:
			op = "/"
		case lexer.Percent:
			op = "%"
		default:
			return left
		}
		p.next()
		left = ast.NewBinaryExpression(op, left, p.parseUnary())
	}
}

func (p *parser) parseUnary() ast.Expression {
	switch p.cur().Kind {
	case lexer.Bang:
		p.next()
		return ast.NewUnaryExpression("!", p.parseUnary())
	case lexer.Minus:
		p.next()
		return ast.NewUnaryExpression("-", p.parseUnary())
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() ast.Expression {
	expr := p.parsePrimary()
	for {
		switch p.cur().Kind {
		case lexer.LParen:
			expr = ast.NewFunctionCall(expr, p.parseArguments())
		case lexer.LBracket:
			p.next()
			index := p.parseBracketed()
			p.expect(lexer.RBracket)
			expr = ast.NewIndexExpression(expr, index)
		case lexer.Dot:
			p.next()
			expr = ast.NewMemberAccessExpression(expr, p.parseIdentifier())
		case lexer.Question:
			p.next()
			expr = ast.NewPropagationExpression(expr)
		default:
			return expr
		}
	}
}

func (p *parser) parseArguments() []ast.Expression {
	p.expect(lexer.LParen)
	var args []ast.Expression
	for !p.at(lexer.RParen) {
		args = append(args, p.parseBracketed())
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RParen)
	return args
}

// parseBracketed parses an expression inside explicit delimiters, where
// struct literals are unambiguous again even in a loop header.
func (p *parser) parseBracketed() ast.Expression {
	saved := p.noStructLit
	p.noStructLit = false
	expr := p.parseExpression()
	p.noStructLit = saved
	return expr
}

func (p *parser) parsePrimary() ast.Expression {
	switch p.cur().Kind {
	case lexer.Int, lexer.Float, lexer.String, lexer.KwTrue, lexer.KwFalse, lexer.KwNil:
		return p.parseLiteral()
	case lexer.StringOpen:
		return p.parseInterpolation()
	case lexer.Ident:
		id := p.parseIdentifier()
		if p.at(lexer.LBrace) && !p.noStructLit && p.looksLikeStructBody() {
			return p.parseStructLiteral(id)
		}
		return id
	case lexer.KwOld:
		p.next()
		p.expect(lexer.LParen)
		start := p.cur().Pos.Offset
		inner := p.parseBracketed()
		source := p.clauseText(start, p.prev().End)
		p.expect(lexer.RParen)
		return ast.NewOldExpression(inner, source)
	case lexer.LParen:
		p.next()
		expr := p.parseBracketed()
		p.expect(lexer.RParen)
		return expr
	case lexer.LBracket:
		return p.parseArrayLiteral()
	case lexer.MapOpen:
		return p.parseMapLiteral()
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwMatch:
		return p.parseMatch()
	case lexer.LBrace:
		return p.parseBlock()
	}
	p.fail("an expression")
	return nil
}

func (p *parser) parseLiteral() ast.Literal {
	tok := p.next()
	switch tok.Kind {
	case lexer.Int:
		value, ok := new(big.Int).SetString(tok.Value, 10)
		if !ok {
			p.errorAt(tok.Pos, "a valid integer literal")
			value = big.NewInt(0)
		}
		return ast.NewIntegerLiteral(value)
	case lexer.Float:
		value, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.errorAt(tok.Pos, "a valid float literal")
		}
		return ast.NewFloatLiteral(value)
	case lexer.String:
		return ast.NewStringLiteral(tok.Value)
	case lexer.KwTrue:
		return ast.NewBooleanLiteral(true)
	case lexer.KwFalse:
		return ast.NewBooleanLiteral(false)
	case lexer.KwNil:
		return ast.NewNilLiteral()
	}
	p.fail("a literal")
	return nil
}

// parseInterpolation consumes a StringOpen ... StringClose token run,
// alternating literal parts with embedded expressions.
func (p *parser) parseInterpolation() ast.Expression {
	open := p.next()
	var parts []ast.Expression
	if open.Value != "" {
		parts = append(parts, ast.NewStringLiteral(open.Value))
	}
	for {
		parts = append(parts, p.parseBracketed())
		switch p.cur().Kind {
		case lexer.StringMid:
			mid := p.next()
			if mid.Value != "" {
				parts = append(parts, ast.NewStringLiteral(mid.Value))
			}
		case lexer.StringClose:
			closing := p.next()
			if closing.Value != "" {
				parts = append(parts, ast.NewStringLiteral(closing.Value))
			}
			return ast.NewStringInterpolation(parts)
		default:
			p.fail("the end of a string interpolation")
		}
	}
}

// looksLikeStructBody peeks past a `{` to decide between a struct literal
// and a block: `}` or `name :` means fields.
func (p *parser) looksLikeStructBody() bool {
	if p.peekKind(1) == lexer.RBrace {
		return true
	}
	return p.peekKind(1) == lexer.Ident && p.peekKind(2) == lexer.Colon
}

func (p *parser) parseStructLiteral(structType *ast.Identifier) ast.Expression {
	p.expect(lexer.LBrace)
	var fields []*ast.StructFieldInitializer
	for {
		p.skipSeparators()
		if p.at(lexer.RBrace) || p.at(lexer.EOF) {
			break
		}
		name := p.parseIdentifier()
		p.expect(lexer.Colon)
		value := p.parseBracketed()
		fields = append(fields, ast.NewStructFieldInitializer(name, value))
		if !p.match(lexer.Comma) && !p.at(lexer.Newline) {
			break
		}
	}
	p.expect(lexer.RBrace)
	return ast.NewStructLiteral(structType, fields)
}

func (p *parser) parseArrayLiteral() ast.Expression {
	p.expect(lexer.LBracket)
	var elements []ast.Expression
	for !p.at(lexer.RBracket) {
		elements = append(elements, p.parseBracketed())
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RBracket)
	return ast.NewArrayLiteral(elements)
}

func (p *parser) parseMapLiteral() ast.Expression {
	p.expect(lexer.MapOpen)
	var entries []*ast.MapEntry
	for {
		p.skipSeparators()
		if p.at(lexer.RBrace) || p.at(lexer.EOF) {
			break
		}
		key := p.parseBracketed()
		p.expect(lexer.Colon)
		value := p.parseBracketed()
		entries = append(entries, ast.NewMapEntry(key, value))
		if !p.match(lexer.Comma) && !p.at(lexer.Newline) {
			break
		}
	}
	p.expect(lexer.RBrace)
	return ast.NewMapLiteral(entries)
}

func (p *parser) parseIf() ast.Expression {
	p.expect(lexer.KwIf)
	condition := p.parseHeaderExpression()
	then := p.parseBlock()
	var elseExpr ast.Expression
	if p.match(lexer.KwElse) {
		if p.at(lexer.KwIf) {
			elseExpr = p.parseIf()
		} else {
			elseExpr = p.parseBlock()
		}
	}
	return ast.NewIfExpression(condition, then, elseExpr)
}

func (p *parser) parseMatch() ast.Expression {
	p.expect(lexer.KwMatch)
	subject := p.parseHeaderExpression()
	p.expect(lexer.LBrace)
	var clauses []*ast.MatchClause
	for {
		p.skipSeparators()
		if p.at(lexer.RBrace) || p.at(lexer.EOF) {
			break
		}
		p.expect(lexer.KwCase)
		pattern := p.parsePattern()
		var guard ast.Expression
		if p.match(lexer.KwIf) {
			guard = p.parseExpression()
		}
		p.expect(lexer.FatArrow)
		body := p.parseBracketed()
		clauses = append(clauses, ast.NewMatchClause(pattern, guard, body))
		p.match(lexer.Comma)
	}
	p.expect(lexer.RBrace)
	return ast.NewMatchExpression(subject, clauses)
}
