package interpreter

import (
	"math/big"
	"strings"
	"testing"

	"github.com/oath-lang/oath/pkg/ast"
	"github.com/oath-lang/oath/pkg/runtime"
)

func bigInt(n int64) *big.Int {
	return big.NewInt(n)
}

func mustEval(t *testing.T, interp *Interpreter, stmts ...ast.Statement) runtime.Value {
	t.Helper()
	val, _, err := interp.EvaluateModule(ast.Mod(stmts...))
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	return val
}

func evalErr(t *testing.T, interp *Interpreter, stmts ...ast.Statement) error {
	t.Helper()
	_, _, err := interp.EvaluateModule(ast.Mod(stmts...))
	if err == nil {
		t.Fatal("expected evaluation error")
	}
	return err
}

func wantInt(t *testing.T, val runtime.Value, expected int64) {
	t.Helper()
	iv, ok := val.(runtime.IntegerValue)
	if !ok {
		t.Fatalf("expected integer, got %T (%v)", val, val)
	}
	if iv.Val.Int64() != expected {
		t.Fatalf("expected %d, got %s", expected, iv.Val)
	}
}

func wantString(t *testing.T, val runtime.Value, expected string) {
	t.Helper()
	sv, ok := val.(runtime.StringValue)
	if !ok {
		t.Fatalf("expected string, got %T (%v)", val, val)
	}
	if sv.Val != expected {
		t.Fatalf("expected %q, got %q", expected, sv.Val)
	}
}

func wantCode(t *testing.T, err error, code runtime.Code) {
	t.Helper()
	if got := runtime.CodeOf(err); got != code {
		t.Fatalf("expected %s, got %s (%v)", code, got, err)
	}
}

func TestArithmeticPrecedenceAndDivision(t *testing.T) {
	interp := New()
	wantInt(t, mustEval(t, interp, ast.Bin("+", ast.Int(1), ast.Bin("*", ast.Int(2), ast.Int(3)))), 7)
	wantInt(t, mustEval(t, interp, ast.Bin("/", ast.Int(7), ast.Int(2))), 3)
	wantInt(t, mustEval(t, interp, ast.Bin("%", ast.Int(7), ast.Int(2))), 1)

	wantCode(t, evalErr(t, New(), ast.Bin("/", ast.Int(1), ast.Int(0))), runtime.DivisionByZero)
	wantCode(t, evalErr(t, New(), ast.Bin("%", ast.Int(1), ast.Int(0))), runtime.DivisionByZero)
	wantCode(t, evalErr(t, New(), ast.Bin("+", ast.Int(1), ast.Flt(2.0))), runtime.TypeMismatch)
}

func TestStringConcatAndComparison(t *testing.T) {
	interp := New()
	wantString(t, mustEval(t, interp, ast.Bin("+", ast.Str("ab"), ast.Str("cd"))), "abcd")
	val := mustEval(t, interp, ast.Bin("<", ast.Str("a"), ast.Str("b")))
	if !val.(runtime.BoolValue).Val {
		t.Fatal("expected \"a\" < \"b\"")
	}
}

func TestDeclareAssignAndScopes(t *testing.T) {
	interp := New()
	mustEval(t, interp, ast.Declare("x", ast.Int(1)))
	wantInt(t, mustEval(t, interp,
		ast.Block(ast.Declare("x", ast.Int(2)), ast.ID("x")),
	), 2)
	// The shadow did not leak.
	wantInt(t, mustEval(t, interp, ast.ID("x")), 1)

	// Assignment rebinds in the declaring scope.
	mustEval(t, interp, ast.Block(ast.Assign(ast.ID("x"), ast.Int(9))))
	wantInt(t, mustEval(t, interp, ast.ID("x")), 9)

	wantCode(t, evalErr(t, New(), ast.Assign(ast.ID("nope"), ast.Int(1))), runtime.UndefinedName)
	wantCode(t, evalErr(t, New(), ast.ID("missing")), runtime.UndefinedName)
}

func TestShortCircuitEvaluation(t *testing.T) {
	interp := New()
	// The right side would fail if evaluated.
	val := mustEval(t, interp, ast.Bin("&&", ast.Bool(false), ast.ID("boom")))
	if val.(runtime.BoolValue).Val {
		t.Fatal("expected false")
	}
	val = mustEval(t, interp, ast.Bin("||", ast.Bool(true), ast.ID("boom")))
	if !val.(runtime.BoolValue).Val {
		t.Fatal("expected true")
	}
}

func TestWhileLoopWithBreakAndContinue(t *testing.T) {
	interp := New()
	mustEval(t, interp,
		ast.Declare("i", ast.Int(0)),
		ast.Declare("total", ast.Int(0)),
		ast.While(ast.Bool(true),
			ast.AssignOp(ast.AssignmentAdd, ast.ID("i"), ast.Int(1)),
			ast.Iff(ast.Bin(">", ast.ID("i"), ast.Int(10)), ast.Brk()),
			ast.Iff(ast.Bin("==", ast.Bin("%", ast.ID("i"), ast.Int(2)), ast.Int(1)), ast.Cont()),
			ast.AssignOp(ast.AssignmentAdd, ast.ID("total"), ast.ID("i")),
		),
	)
	// 2 + 4 + 6 + 8 + 10
	wantInt(t, mustEval(t, interp, ast.ID("total")), 30)
}

func TestForLoopOverRanges(t *testing.T) {
	interp := New()
	mustEval(t, interp,
		ast.Declare("sum", ast.Int(0)),
		ast.ForIn("n", ast.Range(ast.Int(0), ast.Int(5), false),
			ast.AssignOp(ast.AssignmentAdd, ast.ID("sum"), ast.ID("n"))),
	)
	wantInt(t, mustEval(t, interp, ast.ID("sum")), 10)

	mustEval(t, interp,
		ast.Declare("sum2", ast.Int(0)),
		ast.ForIn("n", ast.Range(ast.Int(1), ast.Int(3), true),
			ast.AssignOp(ast.AssignmentAdd, ast.ID("sum2"), ast.ID("n"))),
	)
	wantInt(t, mustEval(t, interp, ast.ID("sum2")), 6)

	// A range whose start is not below the bound is empty.
	mustEval(t, interp,
		ast.Declare("count", ast.Int(0)),
		ast.ForIn("n", ast.Range(ast.Int(5), ast.Int(5), false),
			ast.AssignOp(ast.AssignmentAdd, ast.ID("count"), ast.Int(1))),
		ast.ForIn("n", ast.Range(ast.Int(9), ast.Int(2), true),
			ast.AssignOp(ast.AssignmentAdd, ast.ID("count"), ast.Int(1))),
	)
	wantInt(t, mustEval(t, interp, ast.ID("count")), 0)
}

func TestForLoopOverArrayStringAndMap(t *testing.T) {
	interp := New()
	mustEval(t, interp,
		ast.Declare("joined", ast.Str("")),
		ast.ForIn("s", ast.Arr(ast.Str("a"), ast.Str("b"), ast.Str("c")),
			ast.AssignOp(ast.AssignmentAdd, ast.ID("joined"), ast.ID("s"))),
		ast.ForIn("ch", ast.Str("xy"),
			ast.AssignOp(ast.AssignmentAdd, ast.ID("joined"), ast.ID("ch"))),
	)
	wantString(t, mustEval(t, interp, ast.ID("joined")), "abcxy")

	// Map iteration follows insertion order of the literal.
	mustEval(t, interp,
		ast.Declare("order", ast.Str("")),
		ast.Declare("m", ast.MapLit(
			ast.Entry(ast.Str("z"), ast.Int(1)),
			ast.Entry(ast.Str("a"), ast.Int(2)),
			ast.Entry(ast.Str("m"), ast.Int(3)),
		)),
		ast.ForIn("k", ast.ID("m"),
			ast.AssignOp(ast.AssignmentAdd, ast.ID("order"), ast.ID("k"))),
	)
	wantString(t, mustEval(t, interp, ast.ID("order")), "zam")
}

func TestForLoopLeavesHugeRangeEarly(t *testing.T) {
	interp := New()
	// Elements are produced on demand, so breaking out of a range this
	// large must finish without walking (or allocating) the rest.
	end := new(big.Int).SetInt64(3_000_000_000)
	mustEval(t, interp,
		ast.Declare("first", ast.Int(-1)),
		ast.ForIn("n", ast.Range(ast.Int(0), ast.IntBig(end), true),
			ast.Assign(ast.ID("first"), ast.ID("n")),
			ast.Brk(),
		),
	)
	wantInt(t, mustEval(t, interp, ast.ID("first")), 0)
}

func TestIndexingReadsAndWrites(t *testing.T) {
	interp := New()
	mustEval(t, interp,
		ast.Declare("arr", ast.Arr(ast.Int(10), ast.Int(20))),
		ast.AssignIndex(ast.ID("arr"), ast.Int(1), ast.Int(99)),
	)
	wantInt(t, mustEval(t, interp, ast.Index(ast.ID("arr"), ast.Int(1))), 99)
	wantCode(t, evalErr(t, interp, ast.Index(ast.ID("arr"), ast.Int(5))), runtime.TypeMismatch)

	mustEval(t, interp,
		ast.Declare("m", ast.MapLit(ast.Entry(ast.Str("k"), ast.Int(1)))),
		ast.AssignIndex(ast.ID("m"), ast.Str("k"), ast.Int(2)),
	)
	wantInt(t, mustEval(t, interp, ast.Index(ast.ID("m"), ast.Str("k"))), 2)
	// Missing keys read as nil.
	if _, ok := mustEval(t, interp, ast.Index(ast.ID("m"), ast.Str("absent"))).(runtime.NilValue); !ok {
		t.Fatal("expected nil for missing key")
	}
}

func TestCompoundAssignmentEvaluatesTargetOnce(t *testing.T) {
	interp := New()
	mustEval(t, interp,
		ast.StructDef("Box", []*ast.StructFieldDefinition{ast.FieldDef("n")}),
		ast.Declare("calls", ast.Int(0)),
		ast.Declare("b", ast.StructLit("Box", ast.FieldInit("n", ast.Int(0)))),
		ast.Fn("pick", nil,
			ast.AssignOp(ast.AssignmentAdd, ast.ID("calls"), ast.Int(1)),
			ast.ID("b")),
		ast.AssignOp(ast.AssignmentAdd, ast.Member(ast.Call("pick"), "n"), ast.Int(1)),
	)
	wantInt(t, mustEval(t, interp, ast.ID("calls")), 1)
	wantInt(t, mustEval(t, interp, ast.Member(ast.ID("b"), "n")), 1)

	mustEval(t, interp,
		ast.Declare("arr", ast.Arr(ast.Int(10))),
		ast.Fn("grab", nil,
			ast.AssignOp(ast.AssignmentAdd, ast.ID("calls"), ast.Int(1)),
			ast.ID("arr")),
		ast.AssignOp(ast.AssignmentAdd, ast.Index(ast.Call("grab"), ast.Int(0)), ast.Int(5)),
	)
	wantInt(t, mustEval(t, interp, ast.ID("calls")), 2)
	wantInt(t, mustEval(t, interp, ast.Index(ast.ID("arr"), ast.Int(0))), 15)
}

func TestFunctionsAndClosures(t *testing.T) {
	interp := New()
	mustEval(t, interp,
		ast.Fn("add", []*ast.FunctionParameter{ast.Param("a"), ast.Param("b")},
			ast.Ret(ast.Bin("+", ast.ID("a"), ast.ID("b")))),
	)
	wantInt(t, mustEval(t, interp, ast.Call("add", ast.Int(2), ast.Int(3))), 5)
	wantCode(t, evalErr(t, interp, ast.Call("add", ast.Int(1))), runtime.ArityMismatch)

	// A closure keeps its defining scope alive.
	mustEval(t, interp,
		ast.Fn("make_counter", nil,
			ast.Declare("count", ast.Int(0)),
			ast.Fn("inc", nil,
				ast.Assign(ast.ID("count"), ast.Bin("+", ast.ID("count"), ast.Int(1))),
				ast.Ret(ast.ID("count"))),
			ast.Ret(ast.ID("inc"))),
		ast.Declare("c", ast.Call("make_counter")),
	)
	wantInt(t, mustEval(t, interp, ast.Call("c")), 1)
	wantInt(t, mustEval(t, interp, ast.Call("c")), 2)
}

func TestImplicitLastValueReturn(t *testing.T) {
	interp := New()
	mustEval(t, interp,
		ast.Fn("pick", []*ast.FunctionParameter{ast.Param("flag")},
			ast.IfElse(ast.ID("flag"),
				ast.Block(ast.Str("yes")),
				ast.Block(ast.Str("no")))),
	)
	wantString(t, mustEval(t, interp, ast.Call("pick", ast.Bool(true))), "yes")
	wantString(t, mustEval(t, interp, ast.Call("pick", ast.Bool(false))), "no")
}

func TestStringInterpolation(t *testing.T) {
	interp := New()
	mustEval(t, interp, ast.Declare("name", ast.Str("world")))
	wantString(t, mustEval(t, interp,
		ast.Interp(ast.Str("hello, "), ast.ID("name"), ast.Str("! n="), ast.Bin("+", ast.Int(1), ast.Int(1))),
	), "hello, world! n=2")
}

func TestMatchExpression(t *testing.T) {
	interp := New()
	mustEval(t, interp,
		ast.Fn("describe", []*ast.FunctionParameter{ast.Param("n")},
			ast.Match(ast.ID("n"),
				ast.Mc(ast.LitP(ast.Int(0)), ast.Str("zero")),
				ast.Mc(ast.ID("x"), ast.Str("big"), ast.Bin(">", ast.ID("x"), ast.Int(100))),
				ast.Mc(ast.Wc(), ast.Str("small")),
			)),
	)
	wantString(t, mustEval(t, interp, ast.Call("describe", ast.Int(0))), "zero")
	wantString(t, mustEval(t, interp, ast.Call("describe", ast.Int(500))), "big")
	wantString(t, mustEval(t, interp, ast.Call("describe", ast.Int(7))), "small")
}

func TestMatchNotExhaustive(t *testing.T) {
	interp := New()
	err := evalErr(t, interp,
		ast.Match(ast.Int(5), ast.Mc(ast.LitP(ast.Int(1)), ast.Str("one"))),
	)
	wantCode(t, err, runtime.MatchNotExhaustive)
}

func TestEnumsAndPatternDestructuring(t *testing.T) {
	interp := New()
	mustEval(t, interp,
		ast.EnumDef("Option", ast.VariantDef("None"), ast.VariantDef("Some", ast.Ty("Value"))),
		ast.Fn("extract", []*ast.FunctionParameter{ast.Param("opt")},
			ast.Match(ast.ID("opt"),
				ast.Mc(ast.VarP("Some", ast.ID("v")), ast.ID("v")),
				ast.Mc(ast.ID("None"), ast.Int(-1)),
			)),
	)
	wantInt(t, mustEval(t, interp, ast.Call("extract", ast.Call("Some", ast.Int(42)))), 42)
	wantInt(t, mustEval(t, interp, ast.Call("extract", ast.ID("None"))), -1)

	wantCode(t, evalErr(t, interp, ast.Call("Some")), runtime.ArityMismatch)
}

func TestPropagationOperator(t *testing.T) {
	interp := New()
	mustEval(t, interp,
		ast.EnumDef("Option", ast.VariantDef("None"), ast.VariantDef("Some", ast.Ty("Value"))),
		ast.Fn("find", []*ast.FunctionParameter{ast.Param("flag")},
			ast.IfElse(ast.ID("flag"),
				ast.Block(ast.Call("Some", ast.Int(5))),
				ast.Block(ast.ID("None")))),
		ast.Fn("caller", []*ast.FunctionParameter{ast.Param("flag")},
			ast.Declare("v", ast.Prop(ast.Call("find", ast.ID("flag")))),
			ast.Bin("+", ast.ID("v"), ast.Int(1))),
	)
	wantInt(t, mustEval(t, interp, ast.Call("caller", ast.Bool(true))), 6)

	// A None short-circuits out of the caller unchanged.
	result := mustEval(t, interp, ast.Call("caller", ast.Bool(false)))
	inst, ok := result.(*runtime.EnumInstanceValue)
	if !ok || inst.VariantName() != "None" {
		t.Fatalf("expected None, got %v", result)
	}

	wantCode(t, evalErr(t, interp, ast.Prop(ast.Int(3))), runtime.TypeMismatch)
}

func TestPropagationAtModuleLevel(t *testing.T) {
	interp := New()
	err := evalErr(t, interp,
		ast.EnumDef("Option", ast.VariantDef("None"), ast.VariantDef("Some", ast.Ty("Value"))),
		ast.Prop(ast.ID("None")),
	)
	wantCode(t, err, runtime.RawError)
	if !strings.Contains(err.Error(), "'?' propagated") {
		t.Fatalf("expected a propagation error, got %v", err)
	}

	// An explicit return at module level still reads as one.
	err = evalErr(t, New(), ast.Ret(ast.Int(1)))
	wantCode(t, err, runtime.RawError)
	if !strings.Contains(err.Error(), "return outside function") {
		t.Fatalf("expected a return error, got %v", err)
	}
}

func TestImportsBindModuleNamespaces(t *testing.T) {
	interp := New()
	interp.DefineModule("geo/shapes", runtime.PackageValue{
		Path:   "geo/shapes",
		Public: map[string]runtime.Value{"sides": runtime.IntegerValue{Val: bigInt(4)}},
	})
	val, _, err := interp.EvaluateModule(ast.ModI(
		[]*ast.ImportStatement{ast.Imp([]string{"geo", "shapes"}, "")},
		ast.Member(ast.ID("shapes"), "sides"),
	))
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	wantInt(t, val, 4)

	// Alias binding.
	val, _, err = interp.EvaluateModule(ast.ModI(
		[]*ast.ImportStatement{ast.Imp([]string{"geo", "shapes"}, "g")},
		ast.Member(ast.ID("g"), "sides"),
	))
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	wantInt(t, val, 4)

	_, _, err = interp.EvaluateModule(ast.ModI(
		[]*ast.ImportStatement{ast.Imp([]string{"no", "such"}, "")},
	))
	if err == nil {
		t.Fatal("expected unknown module error")
	}
	wantCode(t, err, runtime.UndefinedName)
}

func TestNativeModuleImport(t *testing.T) {
	interp := New()
	interp.Registry().Register("host/env", "answer", 0,
		func(_ *runtime.NativeCallContext, _ []runtime.Value) (runtime.Value, error) {
			return runtime.IntegerValue{Val: bigInt(42)}, nil
		})
	val, _, err := interp.EvaluateModule(ast.ModI(
		[]*ast.ImportStatement{ast.Imp([]string{"host", "env"}, "")},
		ast.CallExpr(ast.Member(ast.ID("env"), "answer")),
	))
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	wantInt(t, val, 42)
}

func TestModuleExportsRespectPrivacy(t *testing.T) {
	interp := New()
	module := ast.Mod(
		ast.Fn("visible", nil, ast.Int(1)),
		ast.NewFunctionDefinition(ast.ID("hidden"), nil, ast.Block(ast.Int(2)), nil, nil, nil, true),
		ast.Declare("setting", ast.Int(3)),
		ast.EnumDef("Color", ast.VariantDef("Red"), ast.VariantDef("Blue")),
	)
	_, env, err := interp.EvaluateModule(module)
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	exports := interp.ModuleExports(module, env)
	for _, name := range []string{"visible", "setting", "Color", "Red", "Blue"} {
		if _, ok := exports[name]; !ok {
			t.Fatalf("expected export %q", name)
		}
	}
	if _, ok := exports["hidden"]; ok {
		t.Fatal("private function must not be exported")
	}
}

func TestStringifyForms(t *testing.T) {
	interp := New()
	mustEval(t, interp,
		ast.StructDef("Point", []*ast.StructFieldDefinition{ast.FieldDef("x"), ast.FieldDef("y")}),
		ast.Declare("p", ast.StructLit("Point", ast.FieldInit("x", ast.Int(1)), ast.FieldInit("y", ast.Int(2)))),
	)
	p, _ := interp.GlobalEnvironment().Get("p")
	if got := Stringify(p); got != "Point { x: 1, y: 2 }" {
		t.Fatalf("unexpected struct form: %s", got)
	}
	arr := &runtime.ArrayValue{Elements: []runtime.Value{
		runtime.IntegerValue{Val: bigInt(1)},
		runtime.StringValue{Val: "a"},
	}}
	if got := Stringify(arr); got != `[1, "a"]` {
		t.Fatalf("unexpected array form: %s", got)
	}
	if Display(runtime.StringValue{Val: "raw"}) != "raw" {
		t.Fatal("top-level strings display unquoted")
	}
}
