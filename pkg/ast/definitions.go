package ast

// Definitions

// ContractClauseKind distinguishes the three contract positions.
type ContractClauseKind string

const (
	ClauseRequires  ContractClauseKind = "requires"
	ClauseEnsures   ContractClauseKind = "ensures"
	ClauseInvariant ContractClauseKind = "invariant"
)

// ContractClause is one requires/ensures/invariant clause. Source is the
// literal clause text from the input, carried so a violation can quote the
// clause verbatim.
type ContractClause struct {
	nodeImpl

	Kind       ContractClauseKind `json:"kind"`
	Expression Expression         `json:"expression"`
	Source     string             `json:"source"`
}

func NewContractClause(kind ContractClauseKind, expression Expression, source string) *ContractClause {
	return &ContractClause{nodeImpl: newNodeImpl(NodeContractClause), Kind: kind, Expression: expression, Source: source}
}

type FunctionParameter struct {
	nodeImpl

	Name      *Identifier    `json:"name"`
	ParamType TypeExpression `json:"paramType,omitempty"`
}

func NewFunctionParameter(name *Identifier, paramType TypeExpression) *FunctionParameter {
	return &FunctionParameter{nodeImpl: newNodeImpl(NodeFunctionParameter), Name: name, ParamType: paramType}
}

type FunctionDefinition struct {
	nodeImpl
	statementMarker

	ID         *Identifier          `json:"id"`
	Params     []*FunctionParameter `json:"params"`
	ReturnType TypeExpression       `json:"returnType,omitempty"`
	Requires   []*ContractClause    `json:"requires,omitempty"`
	Ensures    []*ContractClause    `json:"ensures,omitempty"`
	Body       *BlockExpression     `json:"body"`
	IsPrivate  bool                 `json:"isPrivate,omitempty"`
}

func NewFunctionDefinition(id *Identifier, params []*FunctionParameter, body *BlockExpression, returnType TypeExpression, requires, ensures []*ContractClause, isPrivate bool) *FunctionDefinition {
	return &FunctionDefinition{nodeImpl: newNodeImpl(NodeFunctionDefinition), ID: id, Params: params, Body: body, ReturnType: returnType, Requires: requires, Ensures: ensures, IsPrivate: isPrivate}
}

// FunctionSignature is a trait member: a bare signature, or a signature with
// a default body that applies when an implementation omits the method.
type FunctionSignature struct {
	nodeImpl

	Name        *Identifier          `json:"name"`
	Params      []*FunctionParameter `json:"params"`
	ReturnType  TypeExpression       `json:"returnType,omitempty"`
	Requires    []*ContractClause    `json:"requires,omitempty"`
	Ensures     []*ContractClause    `json:"ensures,omitempty"`
	DefaultBody *BlockExpression     `json:"defaultBody,omitempty"`
}

func NewFunctionSignature(name *Identifier, params []*FunctionParameter, returnType TypeExpression, requires, ensures []*ContractClause, defaultBody *BlockExpression) *FunctionSignature {
	return &FunctionSignature{nodeImpl: newNodeImpl(NodeFunctionSignature), Name: name, Params: params, ReturnType: returnType, Requires: requires, Ensures: ensures, DefaultBody: defaultBody}
}

type StructFieldDefinition struct {
	nodeImpl

	Name      *Identifier    `json:"name"`
	FieldType TypeExpression `json:"fieldType,omitempty"`
}

func NewStructFieldDefinition(name *Identifier, fieldType TypeExpression) *StructFieldDefinition {
	return &StructFieldDefinition{nodeImpl: newNodeImpl(NodeStructField), Name: name, FieldType: fieldType}
}

type StructDefinition struct {
	nodeImpl
	statementMarker

	ID         *Identifier              `json:"id"`
	Fields     []*StructFieldDefinition `json:"fields"`
	Invariants []*ContractClause        `json:"invariants,omitempty"`
	IsPrivate  bool                     `json:"isPrivate,omitempty"`
}

func NewStructDefinition(id *Identifier, fields []*StructFieldDefinition, invariants []*ContractClause, isPrivate bool) *StructDefinition {
	return &StructDefinition{nodeImpl: newNodeImpl(NodeStructDefinition), ID: id, Fields: fields, Invariants: invariants, IsPrivate: isPrivate}
}

type TraitDefinition struct {
	nodeImpl
	statementMarker

	ID         *Identifier          `json:"id"`
	Signatures []*FunctionSignature `json:"signatures"`
	IsPrivate  bool                 `json:"isPrivate,omitempty"`
}

func NewTraitDefinition(id *Identifier, signatures []*FunctionSignature, isPrivate bool) *TraitDefinition {
	return &TraitDefinition{nodeImpl: newNodeImpl(NodeTraitDefinition), ID: id, Signatures: signatures, IsPrivate: isPrivate}
}

// EnumVariantDefinition is one variant: bare (`None`) or with a payload
// arity (`Some(T)`).
type EnumVariantDefinition struct {
	nodeImpl

	Name         *Identifier      `json:"name"`
	PayloadTypes []TypeExpression `json:"payloadTypes,omitempty"`
}

func NewEnumVariantDefinition(name *Identifier, payloadTypes []TypeExpression) *EnumVariantDefinition {
	return &EnumVariantDefinition{nodeImpl: newNodeImpl(NodeEnumVariantDef), Name: name, PayloadTypes: payloadTypes}
}

type EnumDefinition struct {
	nodeImpl
	statementMarker

	ID        *Identifier              `json:"id"`
	Variants  []*EnumVariantDefinition `json:"variants"`
	IsPrivate bool                     `json:"isPrivate,omitempty"`
}

func NewEnumDefinition(id *Identifier, variants []*EnumVariantDefinition, isPrivate bool) *EnumDefinition {
	return &EnumDefinition{nodeImpl: newNodeImpl(NodeEnumDefinition), ID: id, Variants: variants, IsPrivate: isPrivate}
}

// ImplementationDefinition covers both forms: `impl Type { ... }` has a nil
// TraitName; `impl Trait for Type { ... }` names the trait.
type ImplementationDefinition struct {
	nodeImpl
	statementMarker

	TraitName   *Identifier           `json:"traitName,omitempty"`
	TargetType  *Identifier           `json:"targetType"`
	Definitions []*FunctionDefinition `json:"definitions"`
}

func NewImplementationDefinition(traitName, targetType *Identifier, definitions []*FunctionDefinition) *ImplementationDefinition {
	return &ImplementationDefinition{nodeImpl: newNodeImpl(NodeImplementation), TraitName: traitName, TargetType: targetType, Definitions: definitions}
}

// Imports & module root

type ImportStatement struct {
	nodeImpl
	statementMarker

	Path  []*Identifier `json:"path"`
	Alias *Identifier   `json:"alias,omitempty"`
}

func NewImportStatement(path []*Identifier, alias *Identifier) *ImportStatement {
	return &ImportStatement{nodeImpl: newNodeImpl(NodeImportStatement), Path: path, Alias: alias}
}

// Module is the root of one parsed source file. Path is the slash-joined
// module path the file is addressed by (empty for the entry script).
type Module struct {
	nodeImpl

	Path    string             `json:"path,omitempty"`
	Imports []*ImportStatement `json:"imports"`
	Body    []Statement        `json:"body"`
}

func NewModule(body []Statement, imports []*ImportStatement, path string) *Module {
	return &Module{nodeImpl: newNodeImpl(NodeModule), Path: path, Imports: imports, Body: body}
}
