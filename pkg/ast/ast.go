// Package ast defines the Oath syntax tree: an owned, acyclic node tree
// built once by the parser and immutable afterwards.
package ast

import "math/big"

type NodeType string

const (
	NodeIdentifier          NodeType = "Identifier"
	NodeIntegerLiteral      NodeType = "IntegerLiteral"
	NodeFloatLiteral        NodeType = "FloatLiteral"
	NodeBooleanLiteral      NodeType = "BooleanLiteral"
	NodeStringLiteral       NodeType = "StringLiteral"
	NodeNilLiteral          NodeType = "NilLiteral"
	NodeArrayLiteral        NodeType = "ArrayLiteral"
	NodeMapLiteral          NodeType = "MapLiteral"
	NodeMapEntry            NodeType = "MapEntry"
	NodeStringInterpolation NodeType = "StringInterpolation"
	NodeRangeExpression     NodeType = "RangeExpression"
	NodeUnaryExpression     NodeType = "UnaryExpression"
	NodeBinaryExpression    NodeType = "BinaryExpression"
	NodeAssignmentExpr      NodeType = "AssignmentExpression"
	NodeFunctionCall        NodeType = "FunctionCall"
	NodeMemberAccess        NodeType = "MemberAccessExpression"
	NodeIndexExpression     NodeType = "IndexExpression"
	NodeStructLiteral       NodeType = "StructLiteral"
	NodeFieldInitializer    NodeType = "StructFieldInitializer"
	NodeBlockExpression     NodeType = "BlockExpression"
	NodeIfExpression        NodeType = "IfExpression"
	NodeMatchExpression     NodeType = "MatchExpression"
	NodeMatchClause         NodeType = "MatchClause"
	NodePropagation         NodeType = "PropagationExpression"
	NodeOldExpression       NodeType = "OldExpression"
	NodeWhileLoop           NodeType = "WhileLoop"
	NodeForLoop             NodeType = "ForLoop"
	NodeReturnStatement     NodeType = "ReturnStatement"
	NodeBreakStatement      NodeType = "BreakStatement"
	NodeContinueStatement   NodeType = "ContinueStatement"
	NodeDeferStatement      NodeType = "DeferStatement"
	NodeWildcardPattern     NodeType = "WildcardPattern"
	NodeLiteralPattern      NodeType = "LiteralPattern"
	NodeVariantPattern      NodeType = "VariantPattern"
	NodeSimpleType          NodeType = "SimpleTypeExpression"
	NodeContractClause      NodeType = "ContractClause"
	NodeFunctionParameter   NodeType = "FunctionParameter"
	NodeFunctionDefinition  NodeType = "FunctionDefinition"
	NodeFunctionSignature   NodeType = "FunctionSignature"
	NodeStructField         NodeType = "StructFieldDefinition"
	NodeStructDefinition    NodeType = "StructDefinition"
	NodeTraitDefinition     NodeType = "TraitDefinition"
	NodeEnumVariantDef      NodeType = "EnumVariantDefinition"
	NodeEnumDefinition      NodeType = "EnumDefinition"
	NodeImplementation      NodeType = "ImplementationDefinition"
	NodeImportStatement     NodeType = "ImportStatement"
	NodeModule              NodeType = "Module"
)

type Node interface {
	NodeType() NodeType
	isNode()
}

type nodeImpl struct {
	Type NodeType `json:"type"`
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (nodeImpl) isNode()              {}

// Marker interfaces.

type Expression interface {
	Node
	expressionNode()
	statementNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Statement interface {
	Node
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

type Pattern interface {
	Node
	patternNode()
}

type patternMarker struct{}

func (patternMarker) patternNode() {}

type TypeExpression interface {
	Node
	typeExpressionNode()
}

type typeExpressionMarker struct{}

func (typeExpressionMarker) typeExpressionNode() {}

type Literal interface {
	Expression
	literalNode()
}

type literalMarker struct{}

func (literalMarker) literalNode() {}

// Identifier

type Identifier struct {
	nodeImpl
	expressionMarker
	statementMarker
	patternMarker

	Name string `json:"name"`
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

// Literals

type IntegerLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
	literalMarker

	Value *big.Int `json:"value"`
}

func NewIntegerLiteral(value *big.Int) *IntegerLiteral {
	return &IntegerLiteral{nodeImpl: newNodeImpl(NodeIntegerLiteral), Value: value}
}

type FloatLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
	literalMarker

	Value float64 `json:"value"`
}

func NewFloatLiteral(value float64) *FloatLiteral {
	return &FloatLiteral{nodeImpl: newNodeImpl(NodeFloatLiteral), Value: value}
}

type BooleanLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
	literalMarker

	Value bool `json:"value"`
}

func NewBooleanLiteral(value bool) *BooleanLiteral {
	return &BooleanLiteral{nodeImpl: newNodeImpl(NodeBooleanLiteral), Value: value}
}

type StringLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
	literalMarker

	Value string `json:"value"`
}

func NewStringLiteral(value string) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(NodeStringLiteral), Value: value}
}

type NilLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
	literalMarker
}

func NewNilLiteral() *NilLiteral {
	return &NilLiteral{nodeImpl: newNodeImpl(NodeNilLiteral)}
}

type ArrayLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker

	Elements []Expression `json:"elements"`
}

func NewArrayLiteral(elements []Expression) *ArrayLiteral {
	return &ArrayLiteral{nodeImpl: newNodeImpl(NodeArrayLiteral), Elements: elements}
}

type MapEntry struct {
	nodeImpl

	Key   Expression `json:"key"`
	Value Expression `json:"value"`
}

func NewMapEntry(key, value Expression) *MapEntry {
	return &MapEntry{nodeImpl: newNodeImpl(NodeMapEntry), Key: key, Value: value}
}

type MapLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker

	Entries []*MapEntry `json:"entries"`
}

func NewMapLiteral(entries []*MapEntry) *MapLiteral {
	return &MapLiteral{nodeImpl: newNodeImpl(NodeMapLiteral), Entries: entries}
}

// StringInterpolation alternates literal StringLiteral parts with embedded
// expressions, in source order.
type StringInterpolation struct {
	nodeImpl
	expressionMarker
	statementMarker

	Parts []Expression `json:"parts"`
}

func NewStringInterpolation(parts []Expression) *StringInterpolation {
	return &StringInterpolation{nodeImpl: newNodeImpl(NodeStringInterpolation), Parts: parts}
}

// Expressions

type RangeExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Start     Expression `json:"start"`
	End       Expression `json:"end"`
	Inclusive bool       `json:"inclusive"`
}

func NewRangeExpression(start, end Expression, inclusive bool) *RangeExpression {
	return &RangeExpression{nodeImpl: newNodeImpl(NodeRangeExpression), Start: start, End: end, Inclusive: inclusive}
}

type UnaryExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string     `json:"operator"`
	Operand  Expression `json:"operand"`
}

func NewUnaryExpression(operator string, operand Expression) *UnaryExpression {
	return &UnaryExpression{nodeImpl: newNodeImpl(NodeUnaryExpression), Operator: operator, Operand: operand}
}

type BinaryExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewBinaryExpression(operator string, left, right Expression) *BinaryExpression {
	return &BinaryExpression{nodeImpl: newNodeImpl(NodeBinaryExpression), Operator: operator, Left: left, Right: right}
}

type AssignmentOperator string

const (
	AssignmentDeclare AssignmentOperator = ":="
	AssignmentAssign  AssignmentOperator = "="
	AssignmentAdd     AssignmentOperator = "+="
	AssignmentSub     AssignmentOperator = "-="
	AssignmentMul     AssignmentOperator = "*="
	AssignmentDiv     AssignmentOperator = "/="
	AssignmentMod     AssignmentOperator = "%="
)

type AssignmentExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator AssignmentOperator `json:"operator"`
	Target   Expression         `json:"target"`
	Value    Expression         `json:"value"`
}

func NewAssignmentExpression(operator AssignmentOperator, target, value Expression) *AssignmentExpression {
	return &AssignmentExpression{nodeImpl: newNodeImpl(NodeAssignmentExpr), Operator: operator, Target: target, Value: value}
}

type FunctionCall struct {
	nodeImpl
	expressionMarker
	statementMarker

	Callee    Expression   `json:"callee"`
	Arguments []Expression `json:"arguments"`
}

func NewFunctionCall(callee Expression, arguments []Expression) *FunctionCall {
	return &FunctionCall{nodeImpl: newNodeImpl(NodeFunctionCall), Callee: callee, Arguments: arguments}
}

type MemberAccessExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Object Expression  `json:"object"`
	Member *Identifier `json:"member"`
}

func NewMemberAccessExpression(object Expression, member *Identifier) *MemberAccessExpression {
	return &MemberAccessExpression{nodeImpl: newNodeImpl(NodeMemberAccess), Object: object, Member: member}
}

type IndexExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Object Expression `json:"object"`
	Index  Expression `json:"index"`
}

func NewIndexExpression(object, index Expression) *IndexExpression {
	return &IndexExpression{nodeImpl: newNodeImpl(NodeIndexExpression), Object: object, Index: index}
}

type StructFieldInitializer struct {
	nodeImpl

	Name  *Identifier `json:"name"`
	Value Expression  `json:"value"`
}

func NewStructFieldInitializer(name *Identifier, value Expression) *StructFieldInitializer {
	return &StructFieldInitializer{nodeImpl: newNodeImpl(NodeFieldInitializer), Name: name, Value: value}
}

type StructLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker

	StructType *Identifier               `json:"structType"`
	Fields     []*StructFieldInitializer `json:"fields"`
}

func NewStructLiteral(structType *Identifier, fields []*StructFieldInitializer) *StructLiteral {
	return &StructLiteral{nodeImpl: newNodeImpl(NodeStructLiteral), StructType: structType, Fields: fields}
}

type BlockExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Body []Statement `json:"body"`
}

func NewBlockExpression(body []Statement) *BlockExpression {
	return &BlockExpression{nodeImpl: newNodeImpl(NodeBlockExpression), Body: body}
}

// IfExpression chains else-if by nesting another IfExpression in Else.
type IfExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Condition Expression       `json:"condition"`
	Then      *BlockExpression `json:"then"`
	Else      Expression       `json:"else,omitempty"` // *BlockExpression or *IfExpression
}

func NewIfExpression(condition Expression, then *BlockExpression, elseExpr Expression) *IfExpression {
	return &IfExpression{nodeImpl: newNodeImpl(NodeIfExpression), Condition: condition, Then: then, Else: elseExpr}
}

type MatchClause struct {
	nodeImpl

	Pattern Pattern    `json:"pattern"`
	Guard   Expression `json:"guard,omitempty"`
	Body    Expression `json:"body"`
}

func NewMatchClause(pattern Pattern, guard Expression, body Expression) *MatchClause {
	return &MatchClause{nodeImpl: newNodeImpl(NodeMatchClause), Pattern: pattern, Guard: guard, Body: body}
}

type MatchExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Subject Expression     `json:"subject"`
	Clauses []*MatchClause `json:"clauses"`
}

func NewMatchExpression(subject Expression, clauses []*MatchClause) *MatchExpression {
	return &MatchExpression{nodeImpl: newNodeImpl(NodeMatchExpression), Subject: subject, Clauses: clauses}
}

// PropagationExpression is the postfix `?`: an empty optional/result value
// short-circuits out of the enclosing function.
type PropagationExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Expression Expression `json:"expression"`
}

func NewPropagationExpression(expression Expression) *PropagationExpression {
	return &PropagationExpression{nodeImpl: newNodeImpl(NodePropagation), Expression: expression}
}

// OldExpression is a pre-state capture inside an ensures clause. Source is
// the literal text of the captured expression and keys the snapshot table.
type OldExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Expression Expression `json:"expression"`
	Source     string     `json:"source"`
}

func NewOldExpression(expression Expression, source string) *OldExpression {
	return &OldExpression{nodeImpl: newNodeImpl(NodeOldExpression), Expression: expression, Source: source}
}

// Statements

type WhileLoop struct {
	nodeImpl
	statementMarker

	Condition Expression       `json:"condition"`
	Body      *BlockExpression `json:"body"`
}

func NewWhileLoop(condition Expression, body *BlockExpression) *WhileLoop {
	return &WhileLoop{nodeImpl: newNodeImpl(NodeWhileLoop), Condition: condition, Body: body}
}

type ForLoop struct {
	nodeImpl
	statementMarker

	Pattern  Pattern          `json:"pattern"`
	Iterable Expression       `json:"iterable"`
	Body     *BlockExpression `json:"body"`
}

func NewForLoop(pattern Pattern, iterable Expression, body *BlockExpression) *ForLoop {
	return &ForLoop{nodeImpl: newNodeImpl(NodeForLoop), Pattern: pattern, Iterable: iterable, Body: body}
}

type ReturnStatement struct {
	nodeImpl
	statementMarker

	Argument Expression `json:"argument,omitempty"`
}

func NewReturnStatement(argument Expression) *ReturnStatement {
	return &ReturnStatement{nodeImpl: newNodeImpl(NodeReturnStatement), Argument: argument}
}

type BreakStatement struct {
	nodeImpl
	statementMarker
}

func NewBreakStatement() *BreakStatement {
	return &BreakStatement{nodeImpl: newNodeImpl(NodeBreakStatement)}
}

type ContinueStatement struct {
	nodeImpl
	statementMarker
}

func NewContinueStatement() *ContinueStatement {
	return &ContinueStatement{nodeImpl: newNodeImpl(NodeContinueStatement)}
}

// DeferStatement schedules an expression to run when the current call
// exits. Multiple defers run in reverse registration order.
type DeferStatement struct {
	nodeImpl
	statementMarker

	Expression Expression `json:"expression"`
}

func NewDeferStatement(expression Expression) *DeferStatement {
	return &DeferStatement{nodeImpl: newNodeImpl(NodeDeferStatement), Expression: expression}
}

// Patterns

type WildcardPattern struct {
	nodeImpl
	patternMarker
}

func NewWildcardPattern() *WildcardPattern {
	return &WildcardPattern{nodeImpl: newNodeImpl(NodeWildcardPattern)}
}

type LiteralPattern struct {
	nodeImpl
	patternMarker

	Literal Literal `json:"literal"`
}

func NewLiteralPattern(literal Literal) *LiteralPattern {
	return &LiteralPattern{nodeImpl: newNodeImpl(NodeLiteralPattern), Literal: literal}
}

// VariantPattern destructures an enum instance: variant name plus one
// subpattern per payload position.
type VariantPattern struct {
	nodeImpl
	patternMarker

	Variant  *Identifier `json:"variant"`
	Elements []Pattern   `json:"elements"`
}

func NewVariantPattern(variant *Identifier, elements []Pattern) *VariantPattern {
	return &VariantPattern{nodeImpl: newNodeImpl(NodeVariantPattern), Variant: variant, Elements: elements}
}

// Type expressions (advisory annotations; the runtime checks dynamically)

type SimpleTypeExpression struct {
	nodeImpl
	typeExpressionMarker

	Name *Identifier `json:"name"`
}

func NewSimpleTypeExpression(name *Identifier) *SimpleTypeExpression {
	return &SimpleTypeExpression{nodeImpl: newNodeImpl(NodeSimpleType), Name: name}
}
