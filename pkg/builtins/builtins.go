// Package builtins provides the core and core/io native modules. The real
// standard library attaches through the same registry seam; these are the
// natives the CLI and the test suite rely on.
package builtins

import (
	"math/big"

	"github.com/oath-lang/oath/pkg/interpreter"
	"github.com/oath-lang/oath/pkg/runtime"
)

// Install registers the core and core/io modules on a registry.
func Install(reg *runtime.Registry) {
	reg.Register("core", "len", 1, nativeLen)
	reg.Register("core", "push", 2, nativePush)
	reg.Register("core", "keys", 1, nativeKeys)
	reg.Register("core", "to_string", 1, nativeToString)
	reg.Register("core", "unwrap", 1, nativeUnwrap)
	reg.Register("core", "type_of", 1, nativeTypeOf)
	reg.Register("core/io", "print", -1, nativePrint)
	reg.Register("core/io", "println", -1, nativePrintln)
}

// Bind predefines every core and core/io native in the interpreter's
// global scope, so scripts use them without an import.
func Bind(interp *interpreter.Interpreter) {
	for _, module := range []string{"core", "core/io"} {
		natives, ok := interp.Registry().Module(module)
		if !ok {
			continue
		}
		for name, fn := range natives {
			interp.GlobalEnvironment().Define(name, fn)
		}
	}
}

func nativeLen(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	switch v := args[0].(type) {
	case runtime.StringValue:
		return runtime.IntegerValue{Val: big.NewInt(int64(len([]rune(v.Val))))}, nil
	case *runtime.ArrayValue:
		return runtime.IntegerValue{Val: big.NewInt(int64(len(v.Elements)))}, nil
	case *runtime.MapValue:
		return runtime.IntegerValue{Val: big.NewInt(int64(v.Len()))}, nil
	}
	return nil, runtime.Errorf(runtime.TypeMismatch, "len is not defined for %s", args[0].Kind())
}

func nativePush(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	arr, ok := args[0].(*runtime.ArrayValue)
	if !ok {
		return nil, runtime.Errorf(runtime.TypeMismatch, "push expects an array, got %s", args[0].Kind())
	}
	arr.Elements = append(arr.Elements, args[1])
	return arr, nil
}

func nativeKeys(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	m, ok := args[0].(*runtime.MapValue)
	if !ok {
		return nil, runtime.Errorf(runtime.TypeMismatch, "keys expects a map, got %s", args[0].Kind())
	}
	return &runtime.ArrayValue{Elements: m.Keys()}, nil
}

func nativeToString(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	return runtime.StringValue{Val: interpreter.Display(args[0])}, nil
}

// nativeUnwrap extracts the payload of Some/Ok and fails with UnwrapEmpty
// on None/Err.
func nativeUnwrap(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	inst, ok := args[0].(*runtime.EnumInstanceValue)
	if !ok {
		return nil, runtime.Errorf(runtime.TypeMismatch, "unwrap expects an Option or Result value, got %s", args[0].Kind())
	}
	switch inst.VariantName() {
	case "Some", "Ok":
		if len(inst.Payload) == 0 {
			return runtime.NilValue{}, nil
		}
		return inst.Payload[0], nil
	case "None", "Err":
		return nil, runtime.Errorf(runtime.UnwrapEmpty, "unwrap of %s", interpreter.Stringify(inst))
	}
	return nil, runtime.Errorf(runtime.TypeMismatch, "unwrap cannot handle variant %s", inst.VariantName())
}

func nativeTypeOf(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	return runtime.StringValue{Val: interpreter.TypeName(args[0])}, nil
}

func nativePrint(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	return writeAll(ctx, args, "")
}

func nativePrintln(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	return writeAll(ctx, args, "\n")
}

func writeAll(ctx *runtime.NativeCallContext, args []runtime.Value, suffix string) (runtime.Value, error) {
	out := ""
	for idx, arg := range args {
		if idx > 0 {
			out += " "
		}
		out += interpreter.Display(arg)
	}
	if ctx.Stdout != nil {
		ctx.Stdout(out + suffix)
	}
	return runtime.NilValue{}, nil
}
