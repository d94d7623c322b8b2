package interpreter

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/kr/pretty"

	"minilisp/interpreter-go/pkg/ast"
	"minilisp/interpreter-go/pkg/runtime"
)

func newTestInterpreter(opts Options) (*Interpreter, *bytes.Buffer) {
	var out bytes.Buffer
	opts.Stdout = &out
	return NewWithOptions(opts), &out
}

func runModule(t *testing.T, mod *ast.Module) (*Interpreter, string, error) {
	t.Helper()
	interp, out := newTestInterpreter(Options{})
	_, _, err := interp.EvaluateModule(mod)
	return interp, out.String(), err
}

func expectOutput(t *testing.T, mod *ast.Module, want ...string) *Interpreter {
	t.Helper()
	interp, got, err := runModule(t, mod)
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	expected := ""
	if len(want) > 0 {
		expected = strings.Join(want, "\n") + "\n"
	}
	if got != expected {
		t.Fatalf("stdout mismatch:\n%s", strings.Join(pretty.Diff(expected, got), "\n"))
	}
	return interp
}

func expectKind(t *testing.T, err error, sentinel error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", sentinel)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected %v, got %v", sentinel, err)
	}
}

func TestFloorDivisionAndModulo(t *testing.T) {
	expectOutput(t, ast.Mod(
		ast.PrintN(ast.Bin("/", ast.Int(-7), ast.Int(2))),
		ast.PrintN(ast.Bin("mod", ast.Int(-7), ast.Int(2))),
		ast.PrintN(ast.Bin("/", ast.Int(7), ast.Int(-2))),
		ast.PrintN(ast.Bin("%", ast.Int(7), ast.Int(-2))),
		ast.PrintN(ast.Bin("/", ast.Int(7), ast.Int(2))),
		ast.PrintN(ast.Bin("mod", ast.Int(6), ast.Int(3))),
	), "-4", "1", "-4", "-1", "3", "0")
}

func TestArithmeticAndComparison(t *testing.T) {
	expectOutput(t, ast.Mod(
		ast.PrintN(ast.Bin("-", ast.Int(3), ast.Int(10))),
		ast.PrintN(ast.Bin("*", ast.Int(-4), ast.Int(6))),
		ast.PrintB(ast.Bin(">", ast.Int(3), ast.Int(2))),
		ast.PrintB(ast.Bin("<", ast.Int(3), ast.Int(2))),
		ast.PrintB(ast.Bin("=", ast.Int(5), ast.Int(5))),
	), "-7", "-24", "#t", "#f", "#t")
}

func TestLogicalOperatorsPrintBooleans(t *testing.T) {
	expectOutput(t, ast.Mod(
		ast.PrintB(ast.Bin("and", ast.Bool(true), ast.Bool(false))),
		ast.PrintB(ast.Bin("or", ast.Bool(true), ast.Bool(false))),
		ast.PrintB(ast.Not(ast.Bool(false))),
	), "#f", "#t", "#t")
}

func TestVariadicOperators(t *testing.T) {
	expectOutput(t, ast.Mod(
		ast.PrintN(ast.Many("+", ast.Int(1), ast.Int(2), ast.Int(3), ast.Int(4))),
		ast.PrintN(ast.Many("*", ast.Int(2), ast.Int(3), ast.Int(-1))),
		ast.PrintB(ast.Many("=", ast.Int(2), ast.Int(2), ast.Int(2))),
		ast.PrintB(ast.Many("=", ast.Int(2), ast.Int(2), ast.Int(3))),
		ast.PrintB(ast.Many("and", ast.Bool(true), ast.Bool(true), ast.Bool(false))),
		ast.PrintB(ast.Many("or", ast.Bool(false), ast.Bool(false), ast.Bool(true))),
	), "10", "-6", "#t", "#f", "#f", "#t")
}

func TestVariadicEqualityRejectsBooleans(t *testing.T) {
	_, _, err := runModule(t, ast.Mod(
		ast.PrintB(ast.Many("=", ast.Int(1), ast.Int(1), ast.Bool(true))),
	))
	expectKind(t, err, runtime.ErrTypeMismatch)
}

func TestIfEvaluatesOnlyTakenBranch(t *testing.T) {
	expectOutput(t, ast.Mod(
		ast.PrintN(ast.If(ast.Bool(true), ast.Int(1), ast.Bin("/", ast.Int(1), ast.Int(0)))),
		ast.PrintN(ast.If(ast.Bool(false), ast.ID("missing"), ast.Int(2))),
	), "1", "2")
}

func TestIfRequiresBooleanTest(t *testing.T) {
	_, _, err := runModule(t, ast.Mod(
		ast.PrintN(ast.If(ast.Int(1), ast.Int(1), ast.Int(2))),
	))
	expectKind(t, err, runtime.ErrTypeMismatch)
}

func TestNamedFunctionCall(t *testing.T) {
	expectOutput(t, ast.Mod(
		ast.DefFn("f", ast.Params("x"), ast.Bin("+", ast.ID("x"), ast.Int(1))),
		ast.PrintN(ast.Call("f", ast.Int(5))),
	), "6")
}

func TestArgumentsReadCallerBindings(t *testing.T) {
	// (define x 10)
	// (define (g x) (* x 2))
	// (define (f x) (g (+ x 1)))
	// (print-num (f x))
	expectOutput(t, ast.Mod(
		ast.Def("x", ast.Int(10)),
		ast.DefFn("g", ast.Params("x"), ast.Bin("*", ast.ID("x"), ast.Int(2))),
		ast.DefFn("f", ast.Params("x"), ast.Call("g", ast.Bin("+", ast.ID("x"), ast.Int(1)))),
		ast.PrintN(ast.Call("f", ast.ID("x"))),
		ast.PrintN(ast.ID("x")),
	), "22", "10")
}

func TestNamedFunctionsDoNotSeeCallerParameters(t *testing.T) {
	_, out, err := runModule(t, ast.Mod(
		ast.DefFn("inner", ast.Params(), ast.ID("y")),
		ast.DefFn("outer", ast.Params("y"), ast.Call("inner")),
		ast.PrintN(ast.Call("outer", ast.Int(3))),
	))
	expectKind(t, err, runtime.ErrUnboundVariable)
	if out != "" {
		t.Fatalf("expected no output, got %q", out)
	}
}

func TestNamedFunctionsReadGlobals(t *testing.T) {
	expectOutput(t, ast.Mod(
		ast.Def("base", ast.Int(100)),
		ast.DefFn("offset", ast.Params("n"), ast.Bin("+", ast.ID("base"), ast.ID("n"))),
		ast.PrintN(ast.Call("offset", ast.Int(5))),
	), "105")
}

func fibModule(n int64) *ast.Module {
	return ast.Mod(
		ast.DefFn("fib", ast.Params("n"),
			ast.If(
				ast.Bin("<", ast.ID("n"), ast.Int(2)),
				ast.ID("n"),
				ast.Bin("+",
					ast.Call("fib", ast.Bin("-", ast.ID("n"), ast.Int(1))),
					ast.Call("fib", ast.Bin("-", ast.ID("n"), ast.Int(2))),
				),
			),
		),
		ast.PrintN(ast.Call("fib", ast.Int(n))),
	)
}

func TestRecursionHitsMemo(t *testing.T) {
	interp := expectOutput(t, fibModule(20), "6765")
	stats := interp.Stats()
	// fib(0..20) each evaluated once.
	if stats.BodyEvaluations != 21 {
		t.Fatalf("expected 21 body evaluations, got %d (%# v)", stats.BodyEvaluations, pretty.Formatter(stats))
	}
	if stats.MemoHits == 0 {
		t.Fatalf("expected repeated sub-calls to hit the memo")
	}
	if stats.Calls != stats.BodyEvaluations+stats.MemoHits {
		t.Fatalf("calls %d != evaluations %d + hits %d", stats.Calls, stats.BodyEvaluations, stats.MemoHits)
	}
	if interp.Memo().Len() != 21 {
		t.Fatalf("expected 21 memo entries, got %d", interp.Memo().Len())
	}
}

func TestDisableMemoGivesSameResult(t *testing.T) {
	interp, out := newTestInterpreter(Options{DisableMemo: true})
	if _, _, err := interp.EvaluateModule(fibModule(15)); err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if out.String() != "610\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
	stats := interp.Stats()
	if stats.MemoHits != 0 || interp.Memo().Len() != 0 {
		t.Fatalf("memo used while disabled: %+v", stats)
	}
	if stats.BodyEvaluations != stats.Calls || stats.Calls < 100 {
		t.Fatalf("expected naive recursion, got %+v", stats)
	}
}

func TestRepeatedCallIsIdempotent(t *testing.T) {
	interp := expectOutput(t, ast.Mod(
		ast.DefFn("sq", ast.Params("n"), ast.Bin("*", ast.ID("n"), ast.ID("n"))),
		ast.PrintN(ast.Call("sq", ast.Int(9))),
		ast.PrintN(ast.Call("sq", ast.Int(9))),
	), "81", "81")
	if stats := interp.Stats(); stats.BodyEvaluations != 1 || stats.MemoHits != 1 {
		t.Fatalf("expected one evaluation and one hit, got %+v", stats)
	}
}

func TestAnonymousFunctionCall(t *testing.T) {
	expectOutput(t, ast.Mod(
		ast.PrintN(ast.CallExpr(ast.Fun(ast.Params("x"), ast.Bin("+", ast.ID("x"), ast.Int(1))), ast.Int(4))),
	), "5")
}

func TestClosureCapturesCallingEnvironment(t *testing.T) {
	// (define (add-n n) ((fun (x) (+ x n)) 10))
	expectOutput(t, ast.Mod(
		ast.DefFn("add-n", ast.Params("n"),
			ast.CallExpr(ast.Fun(ast.Params("x"), ast.Bin("+", ast.ID("x"), ast.ID("n"))), ast.Int(10)),
		),
		ast.PrintN(ast.Call("add-n", ast.Int(1))),
		ast.PrintN(ast.Call("add-n", ast.Int(2))),
	), "11", "12")
}

func TestClosuresDoNotLeakAcrossCalls(t *testing.T) {
	// The second call's literal must not see the first call's parameter.
	_, out, err := runModule(t, ast.Mod(
		ast.DefFn("first", ast.Params("secret"),
			ast.CallExpr(ast.Fun(ast.Params(), ast.ID("secret"))),
		),
		ast.DefFn("second", ast.Params(),
			ast.CallExpr(ast.Fun(ast.Params(), ast.ID("secret"))),
		),
		ast.PrintN(ast.Call("first", ast.Int(7))),
		ast.PrintN(ast.Call("second")),
	))
	expectKind(t, err, runtime.ErrUnboundVariable)
	if out != "7\n" {
		t.Fatalf("expected only the first print, got %q", out)
	}
}

func TestAnonymousParametersShadow(t *testing.T) {
	expectOutput(t, ast.Mod(
		ast.Def("x", ast.Int(1)),
		ast.PrintN(ast.CallExpr(ast.Fun(ast.Params("x"), ast.ID("x")), ast.Int(2))),
		ast.PrintN(ast.ID("x")),
	), "2", "1")
}

func TestTypeErrorStopsAfterEarlierOutput(t *testing.T) {
	_, out, err := runModule(t, ast.Mod(
		ast.PrintN(ast.Int(1)),
		ast.PrintN(ast.Bin("+", ast.Int(1), ast.Bool(true))),
		ast.PrintN(ast.Int(2)),
	))
	expectKind(t, err, runtime.ErrTypeMismatch)
	if out != "1\n" {
		t.Fatalf("expected prior output preserved and nothing after, got %q", out)
	}
	var rtErr *runtime.Error
	if !errors.As(err, &rtErr) || rtErr.Node != ast.NodeBinaryExpression {
		t.Fatalf("expected error located at BinaryExpression, got %#v", err)
	}
}

func TestPrintKindMustMatch(t *testing.T) {
	_, _, err := runModule(t, ast.Mod(ast.PrintN(ast.Bool(true))))
	expectKind(t, err, runtime.ErrTypeMismatch)
	_, _, err = runModule(t, ast.Mod(ast.PrintB(ast.Int(0))))
	expectKind(t, err, runtime.ErrTypeMismatch)
}

func TestOperatorTypeErrors(t *testing.T) {
	cases := map[string]ast.Expression{
		"not on integer":   ast.Not(ast.Int(1)),
		"and on integers":  ast.Bin("and", ast.Int(1), ast.Int(0)),
		"less on booleans": ast.Bin("<", ast.Bool(true), ast.Bool(false)),
		"equal mixed":      ast.Bin("=", ast.Int(1), ast.Bool(true)),
		"literal operand":  ast.Bin("+", ast.Fun(ast.Params(), ast.Int(1)), ast.Int(1)),
	}
	for name, expr := range cases {
		_, _, err := runModule(t, ast.Mod(ast.PrintB(expr)))
		if !errors.Is(err, runtime.ErrTypeMismatch) {
			t.Fatalf("%s: expected type mismatch, got %v", name, err)
		}
	}
}

func TestDivisionByZero(t *testing.T) {
	_, _, err := runModule(t, ast.Mod(ast.PrintN(ast.Bin("/", ast.Int(1), ast.Int(0)))))
	expectKind(t, err, runtime.ErrDivisionByZero)
	_, _, err = runModule(t, ast.Mod(ast.PrintN(ast.Bin("mod", ast.Int(1), ast.Int(0)))))
	expectKind(t, err, runtime.ErrDivisionByZero)
}

func TestUndefinedFunctionAndForwardReference(t *testing.T) {
	_, _, err := runModule(t, ast.Mod(
		ast.PrintN(ast.Call("later", ast.Int(1))),
		ast.DefFn("later", ast.Params("x"), ast.ID("x")),
	))
	expectKind(t, err, runtime.ErrUndefinedFunction)
	if !strings.Contains(err.Error(), "Undefined function 'later'") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestArityMismatch(t *testing.T) {
	_, _, err := runModule(t, ast.Mod(
		ast.DefFn("pair", ast.Params("a", "b"), ast.ID("a")),
		ast.PrintN(ast.Call("pair", ast.Int(1))),
	))
	expectKind(t, err, runtime.ErrArityMismatch)
	if !strings.Contains(err.Error(), "Function 'pair' expects 2 arguments, got 1") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestRedefiningGlobalResetsMemo(t *testing.T) {
	interp := expectOutput(t, ast.Mod(
		ast.Def("k", ast.Int(1)),
		ast.DefFn("scaled", ast.Params("n"), ast.Bin("*", ast.ID("n"), ast.ID("k"))),
		ast.PrintN(ast.Call("scaled", ast.Int(5))),
		ast.Def("k", ast.Int(3)),
		ast.PrintN(ast.Call("scaled", ast.Int(5))),
	), "5", "15")
	if stats := interp.Stats(); stats.MemoHits != 0 {
		t.Fatalf("stale memo entry used: %+v", stats)
	}
}

func TestRedefiningFunctionReplacesIt(t *testing.T) {
	expectOutput(t, ast.Mod(
		ast.DefFn("f", ast.Params("n"), ast.Bin("+", ast.ID("n"), ast.Int(1))),
		ast.PrintN(ast.Call("f", ast.Int(1))),
		ast.DefFn("f", ast.Params("n"), ast.Bin("+", ast.ID("n"), ast.Int(100))),
		ast.PrintN(ast.Call("f", ast.Int(1))),
	), "2", "101")
}

func TestRedefiningCalleeResetsMemo(t *testing.T) {
	interp := expectOutput(t, ast.Mod(
		ast.DefFn("g", ast.Params("x"), ast.Bin("+", ast.ID("x"), ast.Int(1))),
		ast.DefFn("f", ast.Params("x"), ast.Call("g", ast.ID("x"))),
		ast.PrintN(ast.Call("f", ast.Int(5))),
		ast.DefFn("g", ast.Params("x"), ast.Bin("*", ast.ID("x"), ast.Int(100))),
		ast.PrintN(ast.Call("f", ast.Int(5))),
	), "6", "500")
	if stats := interp.Stats(); stats.MemoHits != 0 {
		t.Fatalf("stale memo entry used: %+v", stats)
	}
}

// Memoisation must never change what a program prints.
func TestMemoMatchesUnmemoizedUnderRedefinition(t *testing.T) {
	cases := map[string]*ast.Module{
		"callee redefined": ast.Mod(
			ast.DefFn("g", ast.Params("x"), ast.Bin("+", ast.ID("x"), ast.Int(1))),
			ast.DefFn("f", ast.Params("x"), ast.Call("g", ast.ID("x"))),
			ast.PrintN(ast.Call("f", ast.Int(5))),
			ast.DefFn("g", ast.Params("x"), ast.Bin("*", ast.ID("x"), ast.Int(100))),
			ast.PrintN(ast.Call("f", ast.Int(5))),
		),
		"callee redefined via literal": ast.Mod(
			ast.Def("g", ast.Fun(ast.Params("x"), ast.Int(1))),
			ast.DefFn("f", ast.Params("x"), ast.Many("+", ast.Call("g", ast.ID("x")), ast.ID("x"))),
			ast.PrintN(ast.Call("f", ast.Int(2))),
			ast.Def("g", ast.Fun(ast.Params("x"), ast.Int(2))),
			ast.PrintN(ast.Call("f", ast.Int(2))),
		),
		"caller redefined": ast.Mod(
			ast.DefFn("f", ast.Params("x"), ast.Bin("-", ast.ID("x"), ast.Int(1))),
			ast.PrintN(ast.Call("f", ast.Int(9))),
			ast.DefFn("f", ast.Params("x"), ast.Bin("+", ast.ID("x"), ast.Int(1))),
			ast.PrintN(ast.Call("f", ast.Int(9))),
		),
		"global redefined": ast.Mod(
			ast.Def("k", ast.Int(2)),
			ast.DefFn("scaled", ast.Params("n"), ast.Bin("*", ast.ID("n"), ast.ID("k"))),
			ast.DefFn("outer", ast.Params("n"), ast.Call("scaled", ast.ID("n"))),
			ast.PrintN(ast.Call("outer", ast.Int(4))),
			ast.Def("k", ast.Int(10)),
			ast.PrintN(ast.Call("outer", ast.Int(4))),
		),
		"recursive helper redefined": ast.Mod(
			ast.DefFn("step", ast.Params("n"), ast.Int(1)),
			ast.DefFn("sum", ast.Params("n"), ast.If(
				ast.Bin("<", ast.ID("n"), ast.Int(1)),
				ast.Int(0),
				ast.Many("+", ast.Call("step", ast.ID("n")), ast.Call("sum", ast.Bin("-", ast.ID("n"), ast.Int(1)))),
			)),
			ast.PrintN(ast.Call("sum", ast.Int(4))),
			ast.DefFn("step", ast.Params("n"), ast.ID("n")),
			ast.PrintN(ast.Call("sum", ast.Int(4))),
		),
	}
	for name, mod := range cases {
		memo, memoOut := newTestInterpreter(Options{})
		if _, _, err := memo.EvaluateModule(mod); err != nil {
			t.Fatalf("%s: memoized evaluation failed: %v", name, err)
		}
		plain, plainOut := newTestInterpreter(Options{DisableMemo: true})
		if _, _, err := plain.EvaluateModule(mod); err != nil {
			t.Fatalf("%s: unmemoized evaluation failed: %v", name, err)
		}
		if memoOut.String() != plainOut.String() {
			t.Fatalf("%s: output differs with memo on:\n%s", name, strings.Join(pretty.Diff(plainOut.String(), memoOut.String()), "\n"))
		}
	}
}

func TestDefineWithFunctionLiteralRegistersFunction(t *testing.T) {
	interp := expectOutput(t, ast.Mod(
		ast.Def("double", ast.Fun(ast.Params("n"), ast.Bin("*", ast.ID("n"), ast.Int(2)))),
		ast.PrintN(ast.Call("double", ast.Int(21))),
	), "42")
	if interp.GlobalEnvironment().Has("double") {
		t.Fatalf("function definitions must not bind a variable")
	}
}

func TestFailedDefineHasNoEffect(t *testing.T) {
	interp, _, err := runModule(t, ast.Mod(
		ast.Def("x", ast.Bin("+", ast.Int(1), ast.Bool(false))),
	))
	expectKind(t, err, runtime.ErrTypeMismatch)
	if interp.GlobalEnvironment().Has("x") {
		t.Fatalf("failed definition must not bind x")
	}
}

func TestBareStatementsProduceNoOutput(t *testing.T) {
	interp, out, err := runModule(t, ast.Mod(
		ast.Bin("+", ast.Int(1), ast.Int(2)),
		ast.Fun(ast.Params("x"), ast.ID("x")),
	))
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if out != "" {
		t.Fatalf("unexpected output %q", out)
	}
	if interp.Functions().Len() != 0 {
		t.Fatalf("bare literal must not register a function")
	}
}

func TestEvaluateModuleReturnsLastValue(t *testing.T) {
	interp, _ := newTestInterpreter(Options{})
	val, env, err := interp.EvaluateModule(ast.Mod(ast.Bin("*", ast.Int(6), ast.Int(7))))
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if iv, ok := val.(runtime.IntegerValue); !ok || iv.Val != 42 {
		t.Fatalf("expected 42, got %#v", val)
	}
	if env != interp.GlobalEnvironment() {
		t.Fatalf("expected global environment")
	}
}

func TestCallFunctionFromHost(t *testing.T) {
	interp, _ := newTestInterpreter(Options{})
	if _, _, err := interp.EvaluateModule(fibModule(1)); err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	val, err := interp.CallFunction("fib", []runtime.Value{runtime.IntegerValue{Val: 10}})
	if err != nil {
		t.Fatalf("CallFunction failed: %v", err)
	}
	if iv, ok := val.(runtime.IntegerValue); !ok || iv.Val != 55 {
		t.Fatalf("expected 55, got %#v", val)
	}
	if _, err := interp.CallFunction("nope", nil); !errors.Is(err, runtime.ErrUndefinedFunction) {
		t.Fatalf("expected undefined function, got %v", err)
	}
}

func TestSnapshotDescribesState(t *testing.T) {
	interp := expectOutput(t, ast.Mod(
		ast.Def("a", ast.Bool(true)),
		ast.DefFn("id", ast.Params("v"), ast.ID("v")),
		ast.PrintB(ast.Call("id", ast.ID("a"))),
	), "#t")
	state := interp.Snapshot()
	if state.Globals["a"] != "#t" {
		t.Fatalf("unexpected globals %# v", pretty.Formatter(state.Globals))
	}
	if len(state.Functions) != 1 || state.Functions[0] != "id" {
		t.Fatalf("unexpected functions %v", state.Functions)
	}
	if state.Memo.Entries != 1 || state.Calls.Calls != 1 {
		t.Fatalf("unexpected counters %# v", pretty.Formatter(state))
	}
}
