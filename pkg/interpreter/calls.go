package interpreter

import (
	"github.com/oath-lang/oath/pkg/ast"
	"github.com/oath-lang/oath/pkg/runtime"
)

// callFrame is the per-call bookkeeping the protocol needs: pre-state
// snapshots for old(), the ensures flag, and the defer list. Frames form a
// stack on the interpreter; defer statements register on the innermost one.
type callFrame struct {
	name      string
	snapshots map[string]runtime.Value
	inEnsures bool
	defers    []deferredAction
}

type deferredAction struct {
	expr ast.Expression
	env  *runtime.Environment
}

func (i *Interpreter) currentFrame() *callFrame {
	if len(i.frames) == 0 {
		return nil
	}
	return i.frames[len(i.frames)-1]
}

// runDefers empties a frame's defer list in reverse registration order.
// Every deferred action runs even when an earlier one fails; the first
// failure is reported.
func (i *Interpreter) runDefers(frame *callFrame) error {
	var firstErr error
	for idx := len(frame.defers) - 1; idx >= 0; idx-- {
		action := frame.defers[idx]
		if _, err := i.evaluateExpression(action.expr, action.env); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	frame.defers = nil
	return firstErr
}

func (i *Interpreter) evaluateFunctionCall(call *ast.FunctionCall, env *runtime.Environment) (runtime.Value, error) {
	callee, err := i.evaluateExpression(call.Callee, env)
	if err != nil {
		return nil, err
	}
	args := make([]runtime.Value, 0, len(call.Arguments))
	for _, argExpr := range call.Arguments {
		val, err := i.evaluateExpression(argExpr, env)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}
	return i.Invoke(callee, args)
}

// Invoke calls any callable value with already-evaluated arguments. Hosts
// use it to enter Oath code (e.g. the CLI calling main).
func (i *Interpreter) Invoke(callee runtime.Value, args []runtime.Value) (runtime.Value, error) {
	switch fn := callee.(type) {
	case *runtime.FunctionValue:
		return i.invokeFunction(fn, args, nil)
	case runtime.BoundMethodValue:
		withSelf := make([]runtime.Value, 0, len(args)+1)
		withSelf = append(withSelf, fn.Receiver)
		withSelf = append(withSelf, args...)
		return i.invokeFunction(fn.Method, withSelf, fn.Receiver)
	case runtime.NativeFunctionValue:
		return fn.Call(&runtime.NativeCallContext{Env: i.global, Stdout: i.stdout}, args)
	case runtime.EnumVariantValue:
		return i.constructEnum(fn, args)
	default:
		return nil, runtime.Errorf(runtime.TypeMismatch, "%s is not callable", callee.Kind())
	}
}

func (i *Interpreter) constructEnum(ctor runtime.EnumVariantValue, args []runtime.Value) (runtime.Value, error) {
	arity := len(ctor.Variant.PayloadTypes)
	if len(args) != arity {
		return nil, runtime.Errorf(runtime.ArityMismatch,
			"variant %s expects %d values, got %d", ctor.Variant.Name.Name, arity, len(args))
	}
	return &runtime.EnumInstanceValue{Enum: ctor.Enum, Variant: ctor.Variant, Payload: args}, nil
}

// invokeFunction runs the call protocol: arity check, parameter binding,
// preconditions, old() snapshots, body, result binding, postconditions,
// then defers (reverse order) on every exit path. When the call is a
// method on a struct instance, the struct's invariants are re-checked
// after the call completes.
func (i *Interpreter) invokeFunction(fn *runtime.FunctionValue, args []runtime.Value, receiver runtime.Value) (runtime.Value, error) {
	decl := fn.Declaration
	name := "<anonymous>"
	if decl.ID != nil {
		name = decl.ID.Name
	}
	if len(args) != len(decl.Params) {
		return nil, runtime.Errorf(runtime.ArityMismatch,
			"function '%s' expects %d arguments, got %d", name, len(decl.Params), len(args))
	}

	local := runtime.NewEnvironment(fn.Closure)
	for idx, param := range decl.Params {
		local.Define(param.Name.Name, args[idx])
	}

	frame := &callFrame{name: name}
	i.frames = append(i.frames, frame)

	result, bodyErr := i.runCall(decl, name, local, frame)

	deferErr := i.runDefers(frame)
	i.frames = i.frames[:len(i.frames)-1]

	// The body's error wins over a failing defer.
	if bodyErr != nil {
		return nil, bodyErr
	}
	if deferErr != nil {
		return nil, deferErr
	}

	if inst, ok := receiver.(*runtime.StructInstanceValue); ok {
		if err := i.checkInvariants(inst); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// runCall is the protocol between parameter binding and the defer funnel.
func (i *Interpreter) runCall(decl *ast.FunctionDefinition, name string, local *runtime.Environment, frame *callFrame) (runtime.Value, error) {
	for _, clause := range decl.Requires {
		ok, err := i.clauseHolds(clause, local)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, runtime.ContractError(runtime.PreconditionViolation, name, clause.Source)
		}
	}

	if len(decl.Ensures) > 0 {
		if err := i.captureSnapshots(decl.Ensures, local, frame); err != nil {
			return nil, err
		}
	}

	result, err := i.evaluateBlock(decl.Body, local)
	if ret, isReturn := err.(returnSignal); isReturn {
		result = ret.value
		err = nil
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = runtime.NilValue{}
	}

	if len(decl.Ensures) > 0 {
		ensuresEnv := runtime.NewEnvironment(local)
		ensuresEnv.Define("result", result)
		frame.inEnsures = true
		for _, clause := range decl.Ensures {
			ok, err := i.clauseHolds(clause, ensuresEnv)
			if err != nil {
				frame.inEnsures = false
				return nil, err
			}
			if !ok {
				frame.inEnsures = false
				return nil, runtime.ContractError(runtime.PostconditionViolation, name, clause.Source)
			}
		}
		frame.inEnsures = false
	}
	return result, nil
}
