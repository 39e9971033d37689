// Package interpreter drives tree-walking evaluation of Oath modules:
// scope-chain environments, the call-frame protocol, contract checking,
// pattern matching and trait dispatch.
package interpreter

import (
	"fmt"

	"github.com/oath-lang/oath/pkg/ast"
	"github.com/oath-lang/oath/pkg/runtime"
)

// Interpreter evaluates Oath AST nodes. All state lives on the instance,
// so independent interpreters coexist. A single goroutine drives one
// interpreter at a time.
type Interpreter struct {
	global   *runtime.Environment
	registry *runtime.Registry

	// inherentMethods: type name -> method name -> function.
	inherentMethods map[string]map[string]*runtime.FunctionValue
	// traits by name, in declaration order for ambiguity reporting.
	traits     map[string]*runtime.TraitDefinitionValue
	traitOrder []string
	// traitImpls: type name -> trait name -> method table.
	traitImpls map[string]map[string]map[string]*runtime.FunctionValue
	// implOrder: type name -> trait names in declaration order.
	implOrder map[string][]string

	// modules maps slash-joined import paths to their evaluated namespaces.
	modules map[string]runtime.PackageValue

	// frames is the call stack; the innermost frame owns defer scheduling
	// and old() snapshots.
	frames []*callFrame

	// stdout receives print output from natives.
	stdout func(string)
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithRegistry attaches a builtin registry.
func WithRegistry(reg *runtime.Registry) Option {
	return func(i *Interpreter) { i.registry = reg }
}

// WithStdout redirects native print output.
func WithStdout(out func(string)) Option {
	return func(i *Interpreter) { i.stdout = out }
}

// New returns an interpreter with an empty global environment.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{
		global:          runtime.NewEnvironment(nil),
		registry:        runtime.NewRegistry(),
		inherentMethods: make(map[string]map[string]*runtime.FunctionValue),
		traits:          make(map[string]*runtime.TraitDefinitionValue),
		traitImpls:      make(map[string]map[string]map[string]*runtime.FunctionValue),
		implOrder:       make(map[string][]string),
		modules:         make(map[string]runtime.PackageValue),
		stdout:          func(string) {},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// GlobalEnvironment returns the interpreter's global environment.
func (i *Interpreter) GlobalEnvironment() *runtime.Environment {
	return i.global
}

// Registry returns the builtin registry the interpreter resolves natives
// from.
func (i *Interpreter) Registry() *runtime.Registry {
	return i.registry
}

// DefineModule registers an evaluated module namespace under its import
// path. The driver calls this after evaluating each dependency.
func (i *Interpreter) DefineModule(path string, pkg runtime.PackageValue) {
	i.modules[path] = pkg
}

// EvaluateModule executes a module's statements in the global scope and
// returns the last evaluated value. The module body runs inside its own
// frame so top-level defers execute when the module finishes.
func (i *Interpreter) EvaluateModule(module *ast.Module) (runtime.Value, *runtime.Environment, error) {
	env := i.global
	for _, imp := range module.Imports {
		if err := i.evaluateImport(imp, env); err != nil {
			return nil, env, err
		}
	}

	frame := &callFrame{name: "<module>"}
	i.frames = append(i.frames, frame)
	var last runtime.Value = runtime.NilValue{}
	var bodyErr error
	for _, stmt := range module.Body {
		val, err := i.evaluateStatement(stmt, env)
		if err != nil {
			bodyErr = err
			break
		}
		last = val
	}
	deferErr := i.runDefers(frame)
	i.frames = i.frames[:len(i.frames)-1]

	if bodyErr != nil {
		if sig, ok := bodyErr.(returnSignal); ok {
			if sig.propagated {
				bodyErr = runtime.Errorf(runtime.RawError, "'?' propagated %s with no enclosing function", Stringify(sig.value))
			} else {
				bodyErr = runtime.NewError(runtime.RawError, "return outside function")
			}
		}
		return nil, env, bodyErr
	}
	if deferErr != nil {
		return nil, env, deferErr
	}
	return last, env, nil
}

func (i *Interpreter) evaluateImport(imp *ast.ImportStatement, env *runtime.Environment) error {
	segments := make([]string, len(imp.Path))
	for idx, seg := range imp.Path {
		segments[idx] = seg.Name
	}
	path := joinPath(segments)
	name := segments[len(segments)-1]
	if imp.Alias != nil {
		name = imp.Alias.Name
	}

	if pkg, ok := i.modules[path]; ok {
		env.Define(name, pkg)
		return nil
	}
	// A module made only of natives still imports as a package.
	if natives, ok := i.registry.Module(path); ok {
		public := make(map[string]runtime.Value, len(natives))
		for fnName, fn := range natives {
			public[fnName] = fn
		}
		pkg := runtime.PackageValue{Path: path, Public: public}
		i.modules[path] = pkg
		env.Define(name, pkg)
		return nil
	}
	return runtime.Errorf(runtime.UndefinedName, "module '%s' is not loaded", path)
}

func joinPath(segments []string) string {
	out := ""
	for idx, seg := range segments {
		if idx > 0 {
			out += "/"
		}
		out += seg
	}
	return out
}

func (i *Interpreter) evaluateStatement(node ast.Statement, env *runtime.Environment) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.FunctionDefinition:
		return i.evaluateFunctionDefinition(n, env)
	case *ast.StructDefinition:
		return i.evaluateStructDefinition(n, env)
	case *ast.TraitDefinition:
		return i.evaluateTraitDefinition(n, env)
	case *ast.EnumDefinition:
		return i.evaluateEnumDefinition(n, env)
	case *ast.ImplementationDefinition:
		return i.evaluateImplementationDefinition(n, env)
	case *ast.ImportStatement:
		if err := i.evaluateImport(n, env); err != nil {
			return nil, err
		}
		return runtime.NilValue{}, nil
	case *ast.WhileLoop:
		return i.evaluateWhileLoop(n, env)
	case *ast.ForLoop:
		return i.evaluateForLoop(n, env)
	case *ast.ReturnStatement:
		return i.evaluateReturnStatement(n, env)
	case *ast.BreakStatement:
		return nil, breakSignal{}
	case *ast.ContinueStatement:
		return nil, continueSignal{}
	case *ast.DeferStatement:
		return i.evaluateDeferStatement(n, env)
	case ast.Expression:
		return i.evaluateExpression(n, env)
	default:
		return nil, runtime.Errorf(runtime.RawError, "unsupported statement type: %s", n.NodeType())
	}
}

func (i *Interpreter) evaluateReturnStatement(stmt *ast.ReturnStatement, env *runtime.Environment) (runtime.Value, error) {
	var result runtime.Value = runtime.NilValue{}
	if stmt.Argument != nil {
		val, err := i.evaluateExpression(stmt.Argument, env)
		if err != nil {
			return nil, err
		}
		result = val
	}
	return nil, returnSignal{value: result}
}

// evaluateDeferStatement registers the expression on the innermost frame.
// The expression is captured with its defining environment and evaluated
// when the frame exits, in reverse registration order.
func (i *Interpreter) evaluateDeferStatement(stmt *ast.DeferStatement, env *runtime.Environment) (runtime.Value, error) {
	if len(i.frames) == 0 {
		return nil, runtime.NewError(runtime.RawError, "defer outside of a call")
	}
	frame := i.frames[len(i.frames)-1]
	frame.defers = append(frame.defers, deferredAction{expr: stmt.Expression, env: env})
	return runtime.NilValue{}, nil
}

func (i *Interpreter) evaluateBlock(block *ast.BlockExpression, env *runtime.Environment) (runtime.Value, error) {
	scope := runtime.NewEnvironment(env)
	var result runtime.Value = runtime.NilValue{}
	for _, stmt := range block.Body {
		val, err := i.evaluateStatement(stmt, scope)
		if err != nil {
			return nil, err
		}
		result = val
	}
	return result, nil
}

func (i *Interpreter) evaluateWhileLoop(loop *ast.WhileLoop, env *runtime.Environment) (runtime.Value, error) {
	for {
		cond, err := i.evaluateExpression(loop.Condition, env)
		if err != nil {
			return nil, err
		}
		if !runtime.Truthy(cond) {
			return runtime.NilValue{}, nil
		}
		if _, err := i.evaluateBlock(loop.Body, env); err != nil {
			switch err.(type) {
			case breakSignal:
				return runtime.NilValue{}, nil
			case continueSignal:
				continue
			default:
				return nil, err
			}
		}
	}
}

func (i *Interpreter) evaluateFunctionDefinition(def *ast.FunctionDefinition, env *runtime.Environment) (runtime.Value, error) {
	fn := &runtime.FunctionValue{Declaration: def, Closure: env}
	env.Define(def.ID.Name, fn)
	return fn, nil
}

func (i *Interpreter) evaluateStructDefinition(def *ast.StructDefinition, env *runtime.Environment) (runtime.Value, error) {
	val := runtime.StructDefinitionValue{Node: def}
	env.Define(def.ID.Name, val)
	return val, nil
}

func (i *Interpreter) evaluateTraitDefinition(def *ast.TraitDefinition, env *runtime.Environment) (runtime.Value, error) {
	val := &runtime.TraitDefinitionValue{Node: def}
	if _, exists := i.traits[def.ID.Name]; !exists {
		i.traitOrder = append(i.traitOrder, def.ID.Name)
	}
	i.traits[def.ID.Name] = val
	env.Define(def.ID.Name, *val)
	return *val, nil
}

// evaluateEnumDefinition binds the enum name and each variant name. Bare
// variants bind as ready instances; payload variants bind as constructors
// that build an instance when called with their payload.
func (i *Interpreter) evaluateEnumDefinition(def *ast.EnumDefinition, env *runtime.Environment) (runtime.Value, error) {
	enumVal := &runtime.EnumDefinitionValue{Node: def}
	env.Define(def.ID.Name, *enumVal)
	for _, variant := range def.Variants {
		env.Define(variant.Name.Name, variantValue(enumVal, variant))
	}
	return *enumVal, nil
}

func (i *Interpreter) evaluateImplementationDefinition(def *ast.ImplementationDefinition, env *runtime.Environment) (runtime.Value, error) {
	target := def.TargetType.Name
	methods := make(map[string]*runtime.FunctionValue, len(def.Definitions))
	for _, fnDef := range def.Definitions {
		methods[fnDef.ID.Name] = &runtime.FunctionValue{Declaration: fnDef, Closure: env}
	}

	if def.TraitName == nil {
		table, ok := i.inherentMethods[target]
		if !ok {
			table = make(map[string]*runtime.FunctionValue)
			i.inherentMethods[target] = table
		}
		for name, fn := range methods {
			table[name] = fn
		}
		return runtime.NilValue{}, nil
	}

	traitName := def.TraitName.Name
	trait, ok := i.traits[traitName]
	if !ok {
		return nil, runtime.Errorf(runtime.UndefinedName, "trait '%s' is not defined", traitName)
	}
	for _, sig := range trait.Node.Signatures {
		if sig.DefaultBody != nil {
			continue
		}
		if _, provided := methods[sig.Name.Name]; !provided {
			return nil, runtime.Errorf(runtime.TypeMismatch,
				"impl %s for %s is missing method '%s'", traitName, target, sig.Name.Name)
		}
	}
	byTrait, ok := i.traitImpls[target]
	if !ok {
		byTrait = make(map[string]map[string]*runtime.FunctionValue)
		i.traitImpls[target] = byTrait
	}
	if _, exists := byTrait[traitName]; !exists {
		i.implOrder[target] = append(i.implOrder[target], traitName)
	}
	byTrait[traitName] = methods
	return runtime.NilValue{}, nil
}

// ModuleExports collects the public bindings a finished module exposes:
// every non-private top-level definition and declaration.
func (i *Interpreter) ModuleExports(module *ast.Module, env *runtime.Environment) map[string]runtime.Value {
	public := make(map[string]runtime.Value)
	record := func(name string) {
		if val, err := env.Get(name); err == nil {
			public[name] = val
		}
	}
	for _, stmt := range module.Body {
		switch n := stmt.(type) {
		case *ast.FunctionDefinition:
			if !n.IsPrivate {
				record(n.ID.Name)
			}
		case *ast.StructDefinition:
			if !n.IsPrivate {
				record(n.ID.Name)
			}
		case *ast.TraitDefinition:
			if !n.IsPrivate {
				record(n.ID.Name)
			}
		case *ast.EnumDefinition:
			if !n.IsPrivate {
				record(n.ID.Name)
				for _, variant := range n.Variants {
					record(variant.Name.Name)
				}
			}
		case *ast.AssignmentExpression:
			if n.Operator == ast.AssignmentDeclare {
				if id, ok := n.Target.(*ast.Identifier); ok {
					record(id.Name)
				}
			}
		}
	}
	return public
}

//-----------------------------------------------------------------------------
// Control-flow signals
//-----------------------------------------------------------------------------

// Signals travel as error values so evaluation unwinds through ordinary
// error returns.

type breakSignal struct{}

func (breakSignal) Error() string { return "break outside loop" }

type continueSignal struct{}

func (continueSignal) Error() string { return "continue outside loop" }

type returnSignal struct {
	value runtime.Value
	// propagated distinguishes a postfix `?` early exit from an explicit
	// return, so escaping to module level can name the construct.
	propagated bool
}

func (r returnSignal) Error() string { return fmt.Sprintf("return %v", r.value) }
