package interpreter

import (
	"github.com/oath-lang/oath/pkg/ast"
	"github.com/oath-lang/oath/pkg/runtime"
)

// evaluateMatchExpression evaluates the subject once, then tries clauses
// in order. Each clause gets a fresh scope for its bindings; a guard that
// fails releases them. Falling off the end is a runtime error.
func (i *Interpreter) evaluateMatchExpression(expr *ast.MatchExpression, env *runtime.Environment) (runtime.Value, error) {
	subject, err := i.evaluateExpression(expr.Subject, env)
	if err != nil {
		return nil, err
	}
	for _, clause := range expr.Clauses {
		scope := runtime.NewEnvironment(env)
		matched, err := i.matchPattern(clause.Pattern, subject, scope)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}
		if clause.Guard != nil {
			guard, err := i.evaluateExpression(clause.Guard, scope)
			if err != nil {
				return nil, err
			}
			if !runtime.Truthy(guard) {
				continue
			}
		}
		return i.evaluateExpression(clause.Body, scope)
	}
	return nil, runtime.Errorf(runtime.MatchNotExhaustive,
		"no pattern matched %s value %s", subject.Kind(), Stringify(subject))
}

// matchPattern reports whether value matches pattern, defining any
// bindings into env. An identifier that names an enum variant in scope
// matches that variant; any other identifier binds unconditionally.
func (i *Interpreter) matchPattern(pattern ast.Pattern, value runtime.Value, env *runtime.Environment) (bool, error) {
	switch p := pattern.(type) {
	case *ast.WildcardPattern:
		return true, nil
	case *ast.LiteralPattern:
		lit, err := i.evaluateExpression(p.Literal, env)
		if err != nil {
			return false, err
		}
		return valuesEqual(lit, value), nil
	case *ast.Identifier:
		if variant, ok := i.lookupVariantName(p.Name, env); ok {
			inst, isInst := value.(*runtime.EnumInstanceValue)
			return isInst && inst.VariantName() == variant, nil
		}
		env.Define(p.Name, value)
		return true, nil
	case *ast.VariantPattern:
		inst, ok := value.(*runtime.EnumInstanceValue)
		if !ok || inst.VariantName() != p.Variant.Name {
			return false, nil
		}
		if len(p.Elements) != len(inst.Payload) {
			return false, runtime.Errorf(runtime.ArityMismatch,
				"pattern %s destructures %d values, variant carries %d",
				p.Variant.Name, len(p.Elements), len(inst.Payload))
		}
		for idx, sub := range p.Elements {
			matched, err := i.matchPattern(sub, inst.Payload[idx], env)
			if err != nil || !matched {
				return false, err
			}
		}
		return true, nil
	}
	return false, runtime.Errorf(runtime.RawError, "unsupported pattern type %s", pattern.NodeType())
}

// lookupVariantName reports whether name resolves to an enum variant (a
// constructor or a bare-variant instance) in the current scope.
func (i *Interpreter) lookupVariantName(name string, env *runtime.Environment) (string, bool) {
	val, err := env.Get(name)
	if err != nil {
		return "", false
	}
	switch v := val.(type) {
	case runtime.EnumVariantValue:
		return v.Variant.Name.Name, v.Variant.Name.Name == name
	case *runtime.EnumInstanceValue:
		return v.VariantName(), v.VariantName() == name
	}
	return "", false
}
