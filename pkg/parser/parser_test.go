package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oath-lang/oath/pkg/ast"
)

func parseOK(t *testing.T, source string) *ast.Module {
	t.Helper()
	module, errs := Parse(source, "test.oath")
	require.Empty(t, errs, "unexpected parse errors")
	return module
}

func TestDeclareAndAssign(t *testing.T) {
	module := parseOK(t, "x := 1; x = 2; x += 3")
	require.Len(t, module.Body, 3)

	decl := module.Body[0].(*ast.AssignmentExpression)
	assert.Equal(t, ast.AssignmentDeclare, decl.Operator)
	assert.Equal(t, "x", decl.Target.(*ast.Identifier).Name)

	assign := module.Body[1].(*ast.AssignmentExpression)
	assert.Equal(t, ast.AssignmentAssign, assign.Operator)

	compound := module.Body[2].(*ast.AssignmentExpression)
	assert.Equal(t, ast.AssignmentAdd, compound.Operator)
}

func TestOperatorPrecedence(t *testing.T) {
	module := parseOK(t, "a + b * c == d || e")
	or := module.Body[0].(*ast.BinaryExpression)
	require.Equal(t, "||", or.Operator)
	eq := or.Left.(*ast.BinaryExpression)
	require.Equal(t, "==", eq.Operator)
	add := eq.Left.(*ast.BinaryExpression)
	require.Equal(t, "+", add.Operator)
	mul := add.Right.(*ast.BinaryExpression)
	assert.Equal(t, "*", mul.Operator)
}

func TestPostfixChain(t *testing.T) {
	module := parseOK(t, "a.b(1)[2]?")
	prop := module.Body[0].(*ast.PropagationExpression)
	index := prop.Expression.(*ast.IndexExpression)
	call := index.Object.(*ast.FunctionCall)
	member := call.Callee.(*ast.MemberAccessExpression)
	assert.Equal(t, "b", member.Member.Name)
	assert.Equal(t, "a", member.Object.(*ast.Identifier).Name)
}

func TestRangeExpressions(t *testing.T) {
	module := parseOK(t, "x := 0..10; y := 1..=5")
	excl := module.Body[0].(*ast.AssignmentExpression).Value.(*ast.RangeExpression)
	assert.False(t, excl.Inclusive)
	incl := module.Body[1].(*ast.AssignmentExpression).Value.(*ast.RangeExpression)
	assert.True(t, incl.Inclusive)
}

func TestFunctionWithContracts(t *testing.T) {
	source := `
fn withdraw(balance, amount)
  requires amount > 0
  requires balance >= amount
  ensures result == old(balance) - amount
{
  balance - amount
}
`
	module := parseOK(t, source)
	fn := module.Body[0].(*ast.FunctionDefinition)
	assert.Equal(t, "withdraw", fn.ID.Name)
	require.Len(t, fn.Requires, 2)
	require.Len(t, fn.Ensures, 1)
	assert.Equal(t, "amount > 0", fn.Requires[0].Source)
	assert.Equal(t, "balance >= amount", fn.Requires[1].Source)
	assert.Equal(t, "result == old(balance) - amount", fn.Ensures[0].Source)

	eq := fn.Ensures[0].Expression.(*ast.BinaryExpression)
	sub := eq.Right.(*ast.BinaryExpression)
	old := sub.Left.(*ast.OldExpression)
	assert.Equal(t, "balance", old.Source)
}

func TestStructWithInvariants(t *testing.T) {
	source := `
struct Account {
  owner,
  balance: Int,
  invariant balance >= 0,
  invariant owner != nil
}
`
	module := parseOK(t, source)
	def := module.Body[0].(*ast.StructDefinition)
	require.Len(t, def.Fields, 2)
	assert.Equal(t, "owner", def.Fields[0].Name.Name)
	require.NotNil(t, def.Fields[1].FieldType)
	require.Len(t, def.Invariants, 2)
	assert.Equal(t, "balance >= 0", def.Invariants[0].Source)
}

func TestTraitWithDefault(t *testing.T) {
	source := `
trait Greet {
  fn name(self)
  fn greet(self) { "hello, ${self.name()}" }
}
`
	module := parseOK(t, source)
	trait := module.Body[0].(*ast.TraitDefinition)
	require.Len(t, trait.Signatures, 2)
	assert.Nil(t, trait.Signatures[0].DefaultBody)
	assert.NotNil(t, trait.Signatures[1].DefaultBody)
}

func TestEnumAndImpl(t *testing.T) {
	source := `
enum Option { None, Some(Value) }
impl Option {
  fn is_some(self) { match self { case Some(_) => true, case None => false } }
}
impl Display for Point {
  fn show(self) { "point" }
}
`
	module := parseOK(t, source)
	enum := module.Body[0].(*ast.EnumDefinition)
	require.Len(t, enum.Variants, 2)
	assert.Empty(t, enum.Variants[0].PayloadTypes)
	assert.Len(t, enum.Variants[1].PayloadTypes, 1)

	inherent := module.Body[1].(*ast.ImplementationDefinition)
	assert.Nil(t, inherent.TraitName)
	assert.Equal(t, "Option", inherent.TargetType.Name)

	traitImpl := module.Body[2].(*ast.ImplementationDefinition)
	require.NotNil(t, traitImpl.TraitName)
	assert.Equal(t, "Display", traitImpl.TraitName.Name)
	assert.Equal(t, "Point", traitImpl.TargetType.Name)
}

func TestMatchClauses(t *testing.T) {
	source := `
match x {
  case 0 => "zero",
  case Some(v) if v > 10 => "big",
  case _ => "other"
}
`
	module := parseOK(t, source)
	m := module.Body[0].(*ast.MatchExpression)
	require.Len(t, m.Clauses, 3)
	assert.IsType(t, &ast.LiteralPattern{}, m.Clauses[0].Pattern)
	variant := m.Clauses[1].Pattern.(*ast.VariantPattern)
	assert.Equal(t, "Some", variant.Variant.Name)
	assert.NotNil(t, m.Clauses[1].Guard)
	assert.IsType(t, &ast.WildcardPattern{}, m.Clauses[2].Pattern)
}

func TestStructLiteralVersusBlock(t *testing.T) {
	module := parseOK(t, "if ready { go() }")
	ifExpr := module.Body[0].(*ast.IfExpression)
	assert.IsType(t, &ast.Identifier{}, ifExpr.Condition)

	module = parseOK(t, "p := Point { x: 1, y: 2 }")
	lit := module.Body[0].(*ast.AssignmentExpression).Value.(*ast.StructLiteral)
	assert.Equal(t, "Point", lit.StructType.Name)
	require.Len(t, lit.Fields, 2)

	// Inside parentheses the brace is unambiguous again.
	module = parseOK(t, "while contains((Point { x: 1 })) { step() }")
	loop := module.Body[0].(*ast.WhileLoop)
	call := loop.Condition.(*ast.FunctionCall)
	assert.IsType(t, &ast.StructLiteral{}, call.Arguments[0])
}

func TestInterpolationParses(t *testing.T) {
	module := parseOK(t, `msg := "a ${x + 1} b"`)
	interp := module.Body[0].(*ast.AssignmentExpression).Value.(*ast.StringInterpolation)
	require.Len(t, interp.Parts, 3)
	assert.IsType(t, &ast.StringLiteral{}, interp.Parts[0])
	assert.IsType(t, &ast.BinaryExpression{}, interp.Parts[1])
	assert.IsType(t, &ast.StringLiteral{}, interp.Parts[2])
}

func TestImports(t *testing.T) {
	module := parseOK(t, "import math/linear as lin\nimport core/io")
	require.Len(t, module.Imports, 2)
	first := module.Imports[0]
	assert.Equal(t, "math", first.Path[0].Name)
	assert.Equal(t, "linear", first.Path[1].Name)
	require.NotNil(t, first.Alias)
	assert.Equal(t, "lin", first.Alias.Name)
	assert.Nil(t, module.Imports[1].Alias)
}

func TestBatchDiagnosticsAndRecovery(t *testing.T) {
	source := `
fn broken( {
x := 1
struct Bad { field
y := ) 2
z := 3
`
	module, errs := Parse(source, "test.oath")
	require.NotEmpty(t, errs)
	assert.GreaterOrEqual(t, len(errs), 2, "each broken construct reports separately")
	for _, e := range errs {
		assert.NotEmpty(t, e.Expected)
		assert.NotZero(t, e.Pos.Line)
	}
	// Recovery keeps the healthy statements.
	names := make([]string, 0)
	for _, stmt := range module.Body {
		if a, ok := stmt.(*ast.AssignmentExpression); ok {
			names = append(names, a.Target.(*ast.Identifier).Name)
		}
	}
	assert.Contains(t, names, "z")
}

func TestDiagnosticBound(t *testing.T) {
	bad := ""
	for i := 0; i < 100; i++ {
		bad += ") ;"
	}
	_, errs := Parse(bad, "test.oath")
	require.NotEmpty(t, errs)
	assert.LessOrEqual(t, len(errs), 25)
}

func TestLexErrorSurfacesAsDiagnostic(t *testing.T) {
	_, errs := Parse(`x := "unterminated`, "test.oath")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Found, "unterminated")
}

func TestDeferAndControlStatements(t *testing.T) {
	source := `
fn f(path) {
  defer close(path)
  while running { if done { break } else { continue } }
  return 1
}
`
	module := parseOK(t, source)
	fn := module.Body[0].(*ast.FunctionDefinition)
	body := fn.Body.Body
	require.Len(t, body, 3)
	assert.IsType(t, &ast.DeferStatement{}, body[0])
	assert.IsType(t, &ast.WhileLoop{}, body[1])
	assert.IsType(t, &ast.ReturnStatement{}, body[2])
}

func TestForLoopPatterns(t *testing.T) {
	module := parseOK(t, "for x in 0..10 { total += x }")
	loop := module.Body[0].(*ast.ForLoop)
	assert.Equal(t, "x", loop.Pattern.(*ast.Identifier).Name)
	assert.IsType(t, &ast.RangeExpression{}, loop.Iterable)
}

func TestPrivateDeclarations(t *testing.T) {
	module := parseOK(t, "priv fn helper() { 1 }\npriv struct Inner { a }")
	fn := module.Body[0].(*ast.FunctionDefinition)
	assert.True(t, fn.IsPrivate)
	st := module.Body[1].(*ast.StructDefinition)
	assert.True(t, st.IsPrivate)
}

func TestMapAndArrayLiterals(t *testing.T) {
	module := parseOK(t, `m := #{ "a": 1, "b": 2 }; a := [1, 2, 3]`)
	m := module.Body[0].(*ast.AssignmentExpression).Value.(*ast.MapLiteral)
	require.Len(t, m.Entries, 2)
	arr := module.Body[1].(*ast.AssignmentExpression).Value.(*ast.ArrayLiteral)
	require.Len(t, arr.Elements, 3)
}

func TestNewlineSeparatesStatements(t *testing.T) {
	module := parseOK(t, "x := 10\n-2")
	require.Len(t, module.Body, 2)
	assert.IsType(t, &ast.AssignmentExpression{}, module.Body[0])
	neg := module.Body[1].(*ast.UnaryExpression)
	assert.Equal(t, "-", neg.Operator)
}

func TestNewlineContinuation(t *testing.T) {
	// A trailing binary operator keeps the statement going.
	module := parseOK(t, "x := 1 +\n2")
	require.Len(t, module.Body, 1)
	sum := module.Body[0].(*ast.AssignmentExpression).Value.(*ast.BinaryExpression)
	assert.Equal(t, "+", sum.Operator)

	// So does an open argument list.
	module = parseOK(t, "y := f(1,\n2)")
	require.Len(t, module.Body, 1)
	call := module.Body[0].(*ast.AssignmentExpression).Value.(*ast.FunctionCall)
	require.Len(t, call.Arguments, 2)
}

func TestNewlineSeparatedBodies(t *testing.T) {
	module := parseOK(t, "struct Account {\n  owner\n  balance\n  invariant balance >= 0\n}")
	def := module.Body[0].(*ast.StructDefinition)
	require.Len(t, def.Fields, 2)
	require.Len(t, def.Invariants, 1)

	module = parseOK(t, "enum Flag {\n  On\n  Off\n}")
	en := module.Body[0].(*ast.EnumDefinition)
	require.Len(t, en.Variants, 2)

	module = parseOK(t, "m := #{\n  \"a\": 1\n  \"b\": 2\n}")
	m := module.Body[0].(*ast.AssignmentExpression).Value.(*ast.MapLiteral)
	require.Len(t, m.Entries, 2)
}

func TestBareReturnEndsAtLineBreak(t *testing.T) {
	module := parseOK(t, "fn f() {\n  return\n  1\n}")
	fn := module.Body[0].(*ast.FunctionDefinition)
	require.Len(t, fn.Body.Body, 2)
	ret := fn.Body.Body[0].(*ast.ReturnStatement)
	assert.Nil(t, ret.Argument)
}
