package ast

import "math/big"

// Terse constructors used throughout the evaluator tests. Names mirror the
// surface syntax rather than the node type names.

// Identifier and literal helpers.

func ID(name string) *Identifier {
	return NewIdentifier(name)
}

func Str(value string) *StringLiteral {
	return NewStringLiteral(value)
}

func Int(value int64) *IntegerLiteral {
	return NewIntegerLiteral(big.NewInt(value))
}

func IntBig(value *big.Int) *IntegerLiteral {
	return NewIntegerLiteral(new(big.Int).Set(value))
}

func Flt(value float64) *FloatLiteral {
	return NewFloatLiteral(value)
}

func Bool(value bool) *BooleanLiteral {
	return NewBooleanLiteral(value)
}

func Nil() *NilLiteral {
	return NewNilLiteral()
}

func Arr(elements ...Expression) *ArrayLiteral {
	return NewArrayLiteral(elements)
}

func Entry(key, value Expression) *MapEntry {
	return NewMapEntry(key, value)
}

func MapLit(entries ...*MapEntry) *MapLiteral {
	return NewMapLiteral(entries)
}

func Interp(parts ...Expression) *StringInterpolation {
	return NewStringInterpolation(parts)
}

// Type expression helpers.

func Ty(name string) *SimpleTypeExpression {
	return NewSimpleTypeExpression(ID(name))
}

// Pattern helpers.

func Wc() *WildcardPattern {
	return NewWildcardPattern()
}

func LitP(l Literal) *LiteralPattern {
	return NewLiteralPattern(l)
}

func VarP(variant string, elements ...Pattern) *VariantPattern {
	return NewVariantPattern(ID(variant), elements)
}

func PatternFrom(value interface{}) Pattern {
	switch v := value.(type) {
	case string:
		return ID(v)
	case *Identifier:
		return v
	case Pattern:
		return v
	default:
		panic("ast: unsupported pattern value")
	}
}

// Expression helpers.

func Un(operator string, operand Expression) *UnaryExpression {
	return NewUnaryExpression(operator, operand)
}

func Bin(operator string, left, right Expression) *BinaryExpression {
	return NewBinaryExpression(operator, left, right)
}

func CallExpr(callee Expression, args ...Expression) *FunctionCall {
	return NewFunctionCall(callee, args)
}

func Call(name string, args ...Expression) *FunctionCall {
	return CallExpr(ID(name), args...)
}

func Block(statements ...Statement) *BlockExpression {
	return NewBlockExpression(statements)
}

func Declare(name string, value Expression) *AssignmentExpression {
	return NewAssignmentExpression(AssignmentDeclare, ID(name), value)
}

func Assign(target Expression, value Expression) *AssignmentExpression {
	return NewAssignmentExpression(AssignmentAssign, target, value)
}

func AssignOp(op AssignmentOperator, target Expression, value Expression) *AssignmentExpression {
	return NewAssignmentExpression(op, target, value)
}

func AssignMember(object Expression, member string, value Expression) *AssignmentExpression {
	return Assign(Member(object, member), value)
}

func AssignIndex(object, index, value Expression) *AssignmentExpression {
	return Assign(NewIndexExpression(object, index), value)
}

func Range(start, end Expression, inclusive bool) *RangeExpression {
	return NewRangeExpression(start, end, inclusive)
}

func Member(object Expression, member string) *MemberAccessExpression {
	return NewMemberAccessExpression(object, ID(member))
}

func Index(object, index Expression) *IndexExpression {
	return NewIndexExpression(object, index)
}

func Prop(expr Expression) *PropagationExpression {
	return NewPropagationExpression(expr)
}

func Old(expr Expression, source string) *OldExpression {
	return NewOldExpression(expr, source)
}

func FieldInit(name string, value Expression) *StructFieldInitializer {
	return NewStructFieldInitializer(ID(name), value)
}

func StructLit(structType string, fields ...*StructFieldInitializer) *StructLiteral {
	return NewStructLiteral(ID(structType), fields)
}

// Control flow helpers.

func IfExpr(condition Expression, then *BlockExpression, elseExpr Expression) *IfExpression {
	return NewIfExpression(condition, then, elseExpr)
}

func Iff(condition Expression, statements ...Statement) *IfExpression {
	return IfExpr(condition, Block(statements...), nil)
}

func IfElse(condition Expression, then *BlockExpression, elseBlock *BlockExpression) *IfExpression {
	return IfExpr(condition, then, elseBlock)
}

func Mc(pattern Pattern, body Expression, guard ...Expression) *MatchClause {
	var g Expression
	if len(guard) > 0 {
		g = guard[0]
	}
	return NewMatchClause(pattern, g, body)
}

func Match(subject Expression, clauses ...*MatchClause) *MatchExpression {
	return NewMatchExpression(subject, clauses)
}

func While(condition Expression, statements ...Statement) *WhileLoop {
	return NewWhileLoop(condition, Block(statements...))
}

func ForIn(pattern interface{}, iterable Expression, statements ...Statement) *ForLoop {
	return NewForLoop(PatternFrom(pattern), iterable, Block(statements...))
}

func Ret(argument Expression) *ReturnStatement {
	return NewReturnStatement(argument)
}

func Brk() *BreakStatement {
	return NewBreakStatement()
}

func Cont() *ContinueStatement {
	return NewContinueStatement()
}

func Defer(expr Expression) *DeferStatement {
	return NewDeferStatement(expr)
}

// Definition helpers.

func Requires(expr Expression, source string) *ContractClause {
	return NewContractClause(ClauseRequires, expr, source)
}

func Ensures(expr Expression, source string) *ContractClause {
	return NewContractClause(ClauseEnsures, expr, source)
}

func Invariant(expr Expression, source string) *ContractClause {
	return NewContractClause(ClauseInvariant, expr, source)
}

func Param(name string, paramType ...TypeExpression) *FunctionParameter {
	var ty TypeExpression
	if len(paramType) > 0 {
		ty = paramType[0]
	}
	return NewFunctionParameter(ID(name), ty)
}

func Fn(name string, params []*FunctionParameter, body ...Statement) *FunctionDefinition {
	return NewFunctionDefinition(ID(name), params, Block(body...), nil, nil, nil, false)
}

// FnC builds a function with contract clauses attached.
func FnC(name string, params []*FunctionParameter, requires, ensures []*ContractClause, body ...Statement) *FunctionDefinition {
	return NewFunctionDefinition(ID(name), params, Block(body...), nil, requires, ensures, false)
}

func FnSig(name string, params []*FunctionParameter, defaultBody *BlockExpression) *FunctionSignature {
	return NewFunctionSignature(ID(name), params, nil, nil, nil, defaultBody)
}

func FieldDef(name string, fieldType ...TypeExpression) *StructFieldDefinition {
	var ty TypeExpression
	if len(fieldType) > 0 {
		ty = fieldType[0]
	}
	return NewStructFieldDefinition(ID(name), ty)
}

func StructDef(name string, fields []*StructFieldDefinition, invariants ...*ContractClause) *StructDefinition {
	return NewStructDefinition(ID(name), fields, invariants, false)
}

func TraitDef(name string, signatures ...*FunctionSignature) *TraitDefinition {
	return NewTraitDefinition(ID(name), signatures, false)
}

func VariantDef(name string, payloadTypes ...TypeExpression) *EnumVariantDefinition {
	return NewEnumVariantDefinition(ID(name), payloadTypes)
}

func EnumDef(name string, variants ...*EnumVariantDefinition) *EnumDefinition {
	return NewEnumDefinition(ID(name), variants, false)
}

// Impl builds an inherent impl block for a type.
func Impl(targetType string, definitions ...*FunctionDefinition) *ImplementationDefinition {
	return NewImplementationDefinition(nil, ID(targetType), definitions)
}

// ImplTrait builds a trait impl block.
func ImplTrait(traitName, targetType string, definitions ...*FunctionDefinition) *ImplementationDefinition {
	return NewImplementationDefinition(ID(traitName), ID(targetType), definitions)
}

// Imports & module root.

func Imp(path []string, alias string) *ImportStatement {
	ids := make([]*Identifier, len(path))
	for i, seg := range path {
		ids[i] = ID(seg)
	}
	var aliasID *Identifier
	if alias != "" {
		aliasID = ID(alias)
	}
	return NewImportStatement(ids, aliasID)
}

func Mod(body ...Statement) *Module {
	return NewModule(body, nil, "")
}

func ModI(imports []*ImportStatement, body ...Statement) *Module {
	return NewModule(body, imports, "")
}
