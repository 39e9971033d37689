package runtime

import (
	"fmt"
	"math/big"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/oath-lang/oath/pkg/ast"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindNil
	KindInteger
	KindFloat
	KindArray
	KindMap
	KindRange
	KindFunction
	KindNativeFunction
	KindBoundMethod
	KindStructDefinition
	KindStructInstance
	KindEnumDefinition
	KindEnumVariant
	KindEnumInstance
	KindTraitDefinition
	KindPackage
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindNil:
		return "nil"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindRange:
		return "range"
	case KindFunction:
		return "function"
	case KindNativeFunction:
		return "native_function"
	case KindBoundMethod:
		return "bound_method"
	case KindStructDefinition:
		return "struct_def"
	case KindStructInstance:
		return "struct_instance"
	case KindEnumDefinition:
		return "enum_def"
	case KindEnumVariant:
		return "enum_variant"
	case KindEnumInstance:
		return "enum_instance"
	case KindTraitDefinition:
		return "trait_def"
	case KindPackage:
		return "package"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values.
type Value interface {
	Kind() Kind
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type StringValue struct {
	Val string
}

func (v StringValue) Kind() Kind { return KindString }

type BoolValue struct {
	Val bool
}

func (v BoolValue) Kind() Kind { return KindBool }

type NilValue struct{}

func (NilValue) Kind() Kind { return KindNil }

// IntegerValue is an arbitrary-precision integer.
type IntegerValue struct {
	Val *big.Int
}

func (v IntegerValue) Kind() Kind { return KindInteger }

type FloatValue struct {
	Val float64
}

func (v FloatValue) Kind() Kind { return KindFloat }

//-----------------------------------------------------------------------------
// Collections and ranges
//-----------------------------------------------------------------------------

// ArrayValue has reference semantics: two bindings to the same array observe
// each other's mutations.
type ArrayValue struct {
	Elements []Value
}

func (v *ArrayValue) Kind() Kind { return KindArray }

// MapValue preserves insertion order for iteration. Keys are the stringified
// form of the key value; Origin keeps the original key values for iteration.
type MapValue struct {
	Entries *linkedhashmap.Map // string key -> Value
	Origin  *linkedhashmap.Map // string key -> original key Value
}

func NewMapValue() *MapValue {
	return &MapValue{Entries: linkedhashmap.New(), Origin: linkedhashmap.New()}
}

func (v *MapValue) Kind() Kind { return KindMap }

// Set inserts or updates an entry, keeping first-insertion order.
func (v *MapValue) Set(key Value, keyRepr string, value Value) {
	if _, ok := v.Entries.Get(keyRepr); !ok {
		v.Origin.Put(keyRepr, key)
	}
	v.Entries.Put(keyRepr, value)
}

func (v *MapValue) Get(keyRepr string) (Value, bool) {
	raw, ok := v.Entries.Get(keyRepr)
	if !ok {
		return nil, false
	}
	return raw.(Value), true
}

func (v *MapValue) Len() int { return v.Entries.Size() }

// Keys returns the original key values in insertion order.
func (v *MapValue) Keys() []Value {
	out := make([]Value, 0, v.Origin.Size())
	it := v.Origin.Iterator()
	for it.Next() {
		out = append(out, it.Value().(Value))
	}
	return out
}

type RangeValue struct {
	Start     *big.Int
	End       *big.Int
	Inclusive bool
}

func (v RangeValue) Kind() Kind { return KindRange }

//-----------------------------------------------------------------------------
// Functions & methods
//-----------------------------------------------------------------------------

type FunctionValue struct {
	Declaration *ast.FunctionDefinition
	Closure     *Environment
}

func (v *FunctionValue) Kind() Kind { return KindFunction }

// NativeCallContext carries host-side hooks into a native call. Stdout is
// where print-style natives write.
type NativeCallContext struct {
	Env    *Environment
	Stdout func(string)
}

type NativeFunc func(*NativeCallContext, []Value) (Value, error)

// NativeFunctionValue wraps a host function. Arity < 0 means variadic.
type NativeFunctionValue struct {
	Module string
	Name   string
	Arity  int
	Impl   NativeFunc
}

func (v NativeFunctionValue) Kind() Kind { return KindNativeFunction }

// BoundMethodValue captures a receiver together with the resolved method.
type BoundMethodValue struct {
	Receiver Value
	Method   *FunctionValue
}

func (v BoundMethodValue) Kind() Kind { return KindBoundMethod }

//-----------------------------------------------------------------------------
// Structs, enums, traits
//-----------------------------------------------------------------------------

type StructDefinitionValue struct {
	Node *ast.StructDefinition
}

func (v StructDefinitionValue) Kind() Kind { return KindStructDefinition }

// StructInstanceValue has reference semantics, matching ArrayValue.
type StructInstanceValue struct {
	Definition *StructDefinitionValue
	Fields     map[string]Value
}

func (v *StructInstanceValue) Kind() Kind { return KindStructInstance }

type EnumDefinitionValue struct {
	Node *ast.EnumDefinition
}

func (v EnumDefinitionValue) Kind() Kind { return KindEnumDefinition }

// EnumVariantValue is the constructor value a variant name evaluates to.
// Bare variants construct on reference; payload variants construct on call.
type EnumVariantValue struct {
	Enum    *EnumDefinitionValue
	Variant *ast.EnumVariantDefinition
}

func (v EnumVariantValue) Kind() Kind { return KindEnumVariant }

type EnumInstanceValue struct {
	Enum    *EnumDefinitionValue
	Variant *ast.EnumVariantDefinition
	Payload []Value
}

func (v *EnumInstanceValue) Kind() Kind { return KindEnumInstance }

// VariantName is the instance's variant tag.
func (v *EnumInstanceValue) VariantName() string { return v.Variant.Name.Name }

type TraitDefinitionValue struct {
	Node *ast.TraitDefinition
}

func (v TraitDefinitionValue) Kind() Kind { return KindTraitDefinition }

//-----------------------------------------------------------------------------
// Packages
//-----------------------------------------------------------------------------

// PackageValue is the namespace an import binds: the exported members of a
// loaded module.
type PackageValue struct {
	Path   string
	Public map[string]Value
}

func (v PackageValue) Kind() Kind { return KindPackage }

// Truthy reports the boolean interpretation used by conditions: false and
// nil are falsy, everything else is truthy.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case BoolValue:
		return val.Val
	case NilValue:
		return false
	case nil:
		return false
	default:
		return true
	}
}
