package interpreter

import (
	"strings"

	"github.com/oath-lang/oath/pkg/ast"
	"github.com/oath-lang/oath/pkg/runtime"
)

// TypeName exposes the dispatch name of a value to hosts and builtins.
func TypeName(v runtime.Value) string {
	return typeNameOf(v)
}

// typeNameOf maps a value to the name method dispatch keys on. Structs and
// enums use their declared names; everything else uses a builtin name, so
// impls can target builtin types too.
func typeNameOf(v runtime.Value) string {
	switch val := v.(type) {
	case *runtime.StructInstanceValue:
		return val.Definition.Node.ID.Name
	case *runtime.EnumInstanceValue:
		return val.Enum.Node.ID.Name
	case runtime.IntegerValue:
		return "Int"
	case runtime.FloatValue:
		return "Float"
	case runtime.StringValue:
		return "String"
	case runtime.BoolValue:
		return "Bool"
	case runtime.NilValue:
		return "Nil"
	case *runtime.ArrayValue:
		return "Array"
	case *runtime.MapValue:
		return "Map"
	case runtime.RangeValue:
		return "Range"
	default:
		return v.Kind().String()
	}
}

func (i *Interpreter) evaluateMemberAccess(expr *ast.MemberAccessExpression, env *runtime.Environment) (runtime.Value, error) {
	object, err := i.evaluateExpression(expr.Object, env)
	if err != nil {
		return nil, err
	}
	member := expr.Member.Name

	switch obj := object.(type) {
	case runtime.PackageValue:
		if val, ok := obj.Public[member]; ok {
			return val, nil
		}
		return nil, runtime.Errorf(runtime.UndefinedName, "module '%s' has no member '%s'", obj.Path, member)
	case runtime.EnumDefinitionValue:
		for _, variant := range obj.Node.Variants {
			if variant.Name.Name == member {
				return variantValue(&obj, variant), nil
			}
		}
		return nil, runtime.Errorf(runtime.UndefinedName, "enum %s has no variant '%s'", obj.Node.ID.Name, member)
	case *runtime.StructInstanceValue:
		if val, ok := obj.Fields[member]; ok {
			return val, nil
		}
	}

	return i.resolveMethod(object, member)
}

// variantValue turns a variant definition into its runtime form: bare
// variants are instances immediately, payload variants are constructors.
func variantValue(enum *runtime.EnumDefinitionValue, variant *ast.EnumVariantDefinition) runtime.Value {
	if len(variant.PayloadTypes) == 0 {
		return &runtime.EnumInstanceValue{Enum: enum, Variant: variant}
	}
	return runtime.EnumVariantValue{Enum: enum, Variant: variant}
}

// resolveMethod applies the dispatch order: inherent method, then trait
// impl methods, then trait defaults. Two same-named candidates at the same
// tier with no tier above them is an AmbiguousDispatch error.
func (i *Interpreter) resolveMethod(receiver runtime.Value, name string) (runtime.Value, error) {
	typeName := typeNameOf(receiver)

	if table, ok := i.inherentMethods[typeName]; ok {
		if fn, ok := table[name]; ok {
			return runtime.BoundMethodValue{Receiver: receiver, Method: fn}, nil
		}
	}

	var implTraits []string
	var implFn *runtime.FunctionValue
	for _, traitName := range i.implOrder[typeName] {
		if fn, ok := i.traitImpls[typeName][traitName][name]; ok {
			implTraits = append(implTraits, traitName)
			implFn = fn
		}
	}
	if len(implTraits) > 1 {
		return nil, runtime.Errorf(runtime.AmbiguousDispatch,
			"method '%s' on %s is provided by traits %s", name, typeName, strings.Join(implTraits, " and "))
	}
	if len(implTraits) == 1 {
		return runtime.BoundMethodValue{Receiver: receiver, Method: implFn}, nil
	}

	var defaultTraits []string
	var defaultSig *ast.FunctionSignature
	for _, traitName := range i.implOrder[typeName] {
		trait := i.traits[traitName]
		for _, sig := range trait.Node.Signatures {
			if sig.Name.Name == name && sig.DefaultBody != nil {
				defaultTraits = append(defaultTraits, traitName)
				defaultSig = sig
			}
		}
	}
	if len(defaultTraits) > 1 {
		return nil, runtime.Errorf(runtime.AmbiguousDispatch,
			"default for '%s' on %s comes from traits %s; override it on the type",
			name, typeName, strings.Join(defaultTraits, " and "))
	}
	if len(defaultTraits) == 1 {
		fn := &runtime.FunctionValue{
			Declaration: ast.NewFunctionDefinition(defaultSig.Name, defaultSig.Params, defaultSig.DefaultBody,
				defaultSig.ReturnType, defaultSig.Requires, defaultSig.Ensures, false),
			Closure: i.global,
		}
		return runtime.BoundMethodValue{Receiver: receiver, Method: fn}, nil
	}

	return nil, runtime.Errorf(runtime.UndefinedName, "%s has no member '%s'", typeName, name)
}
