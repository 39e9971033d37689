package builtins

import (
	"strings"
	"testing"

	"github.com/oath-lang/oath/pkg/ast"
	"github.com/oath-lang/oath/pkg/interpreter"
	"github.com/oath-lang/oath/pkg/runtime"
)

func newInterp(t *testing.T) (*interpreter.Interpreter, *strings.Builder) {
	t.Helper()
	reg := runtime.NewRegistry()
	Install(reg)
	var out strings.Builder
	interp := interpreter.New(
		interpreter.WithRegistry(reg),
		interpreter.WithStdout(func(s string) { out.WriteString(s) }),
	)
	Bind(interp)
	return interp, &out
}

func eval(t *testing.T, interp *interpreter.Interpreter, stmts ...ast.Statement) runtime.Value {
	t.Helper()
	val, _, err := interp.EvaluateModule(ast.Mod(stmts...))
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	return val
}

func evalFails(t *testing.T, interp *interpreter.Interpreter, code runtime.Code, stmts ...ast.Statement) {
	t.Helper()
	_, _, err := interp.EvaluateModule(ast.Mod(stmts...))
	if err == nil {
		t.Fatal("expected evaluation error")
	}
	if got := runtime.CodeOf(err); got != code {
		t.Fatalf("expected %s, got %s (%v)", code, got, err)
	}
}

func asInt(t *testing.T, val runtime.Value) int64 {
	t.Helper()
	iv, ok := val.(runtime.IntegerValue)
	if !ok {
		t.Fatalf("expected integer, got %T", val)
	}
	return iv.Val.Int64()
}

func TestLen(t *testing.T) {
	interp, _ := newInterp(t)
	if n := asInt(t, eval(t, interp, ast.Call("len", ast.Str("héllo")))); n != 5 {
		t.Fatalf("expected rune length 5, got %d", n)
	}
	if n := asInt(t, eval(t, interp, ast.Call("len", ast.Arr(ast.Int(1), ast.Int(2))))); n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}
	if n := asInt(t, eval(t, interp, ast.Call("len", ast.MapLit(ast.Entry(ast.Str("a"), ast.Int(1)))))); n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}
	evalFails(t, interp, runtime.TypeMismatch, ast.Call("len", ast.Int(3)))
	evalFails(t, interp, runtime.ArityMismatch, ast.Call("len"))
}

func TestPushMutatesInPlace(t *testing.T) {
	interp, _ := newInterp(t)
	eval(t, interp,
		ast.Declare("arr", ast.Arr(ast.Int(1))),
		ast.Call("push", ast.ID("arr"), ast.Int(2)),
	)
	if n := asInt(t, eval(t, interp, ast.Call("len", ast.ID("arr")))); n != 2 {
		t.Fatalf("expected 2 after push, got %d", n)
	}
	if n := asInt(t, eval(t, interp, ast.Index(ast.ID("arr"), ast.Int(1)))); n != 2 {
		t.Fatalf("expected pushed element 2, got %d", n)
	}
}

func TestKeysPreserveInsertionOrder(t *testing.T) {
	interp, _ := newInterp(t)
	val := eval(t, interp, ast.Call("keys", ast.MapLit(
		ast.Entry(ast.Str("z"), ast.Int(1)),
		ast.Entry(ast.Str("a"), ast.Int(2)),
	)))
	arr, ok := val.(*runtime.ArrayValue)
	if !ok || len(arr.Elements) != 2 {
		t.Fatalf("expected two keys, got %v", val)
	}
	if arr.Elements[0].(runtime.StringValue).Val != "z" || arr.Elements[1].(runtime.StringValue).Val != "a" {
		t.Fatalf("keys out of order: %v", arr.Elements)
	}
}

func TestUnwrap(t *testing.T) {
	interp, _ := newInterp(t)
	eval(t, interp,
		ast.EnumDef("Option", ast.VariantDef("None"), ast.VariantDef("Some", ast.Ty("Value"))),
		ast.EnumDef("Result", ast.VariantDef("Ok", ast.Ty("Value")), ast.VariantDef("Err", ast.Ty("Error"))),
	)
	if n := asInt(t, eval(t, interp, ast.Call("unwrap", ast.Call("Some", ast.Int(9))))); n != 9 {
		t.Fatalf("expected 9, got %d", n)
	}
	if n := asInt(t, eval(t, interp, ast.Call("unwrap", ast.Call("Ok", ast.Int(4))))); n != 4 {
		t.Fatalf("expected 4, got %d", n)
	}
	evalFails(t, interp, runtime.UnwrapEmpty, ast.Call("unwrap", ast.ID("None")))
	evalFails(t, interp, runtime.UnwrapEmpty, ast.Call("unwrap", ast.Call("Err", ast.Str("boom"))))
	evalFails(t, interp, runtime.TypeMismatch, ast.Call("unwrap", ast.Int(3)))
}

func TestToStringAndTypeOf(t *testing.T) {
	interp, _ := newInterp(t)
	val := eval(t, interp, ast.Call("to_string", ast.Arr(ast.Int(1), ast.Str("a"))))
	if val.(runtime.StringValue).Val != `[1, "a"]` {
		t.Fatalf("unexpected rendering: %v", val)
	}
	val = eval(t, interp, ast.Call("type_of", ast.Int(1)))
	if val.(runtime.StringValue).Val != "Int" {
		t.Fatalf("expected Int, got %v", val)
	}
	val = eval(t, interp, ast.Call("type_of", ast.Str("x")))
	if val.(runtime.StringValue).Val != "String" {
		t.Fatalf("expected String, got %v", val)
	}
}

func TestPrintAndPrintln(t *testing.T) {
	interp, out := newInterp(t)
	eval(t, interp,
		ast.Call("print", ast.Str("a"), ast.Int(1)),
		ast.Call("println", ast.Str("b"), ast.Bool(true)),
		ast.Call("println"),
	)
	if got := out.String(); got != "a 1b true\n\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestNativesImportAsModules(t *testing.T) {
	interp, out := newInterp(t)
	// Natives reach scripts through the module namespace as well as the
	// predefined globals.
	val, _, err := interp.EvaluateModule(ast.ModI(
		[]*ast.ImportStatement{ast.Imp([]string{"core", "io"}, "")},
		ast.CallExpr(ast.Member(ast.ID("io"), "println"), ast.Str("hi")),
	))
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if _, ok := val.(runtime.NilValue); !ok {
		t.Fatalf("println returns nil, got %T", val)
	}
	if !strings.Contains(out.String(), "hi\n") {
		t.Fatalf("expected output, got %q", out.String())
	}
}
