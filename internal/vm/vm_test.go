package vm

import (
	"bytes"
	"testing"

	"github.com/wisplang/wisp/internal/bytecode"
	"github.com/wisplang/wisp/internal/compiler"
	"github.com/wisplang/wisp/internal/config"
	"github.com/wisplang/wisp/internal/typedast"
	"github.com/wisplang/wisp/internal/typeenv"
	"github.com/wisplang/wisp/internal/value"
)

func num(n int64) *typedast.NumberLiteral { return &typedast.NumberLiteral{IntValue: n} }
func ident(name string) *typedast.Identifier {
	return &typedast.Identifier{Name: name}
}
func block(items ...typedast.BlockItem) *typedast.BlockExpression {
	return &typedast.BlockExpression{Body: items}
}
func exprItem(e typedast.Expression) typedast.BlockItem {
	return typedast.BlockItem{IsExpr: true, Expr: e}
}
func stmtItem(s typedast.Statement) typedast.BlockItem {
	return typedast.BlockItem{IsExpr: false, Stmt: s}
}
func binOp(op typedast.BinaryOp, l, r typedast.Expression) *typedast.BinaryExpression {
	return &typedast.BinaryExpression{Op: op, Left: l, Right: r}
}

func run(t *testing.T, env *typeenv.Env, body *typedast.BlockExpression) value.Value {
	t.Helper()
	if env == nil {
		env = typeenv.New()
	}
	prog, err := compiler.Compile(env, body)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	machine := New(prog, config.Flags{})
	var out bytes.Buffer
	machine.SetOutput(&out)
	result, err := machine.Run()
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	return result
}

func TestRunSimpleArithmetic(t *testing.T) {
	// 1 + 2 * 3 == 7
	body := block(exprItem(binOp(typedast.OpAdd, num(1), binOp(typedast.OpMul, num(2), num(3)))))
	got := run(t, nil, body)
	if got.Tag != value.TagInt || got.AsInt() != 7 {
		t.Fatalf("expected Int(7), got %v", got)
	}
}

func TestRunBindingThenReference(t *testing.T) {
	body := block(
		stmtItem(&typedast.VariableBinding{Name: "x", Value: num(41)}),
		exprItem(binOp(typedast.OpAdd, ident("x"), num(1))),
	)
	got := run(t, nil, body)
	if got.AsInt() != 42 {
		t.Fatalf("expected Int(42), got %v", got)
	}
}

func TestRunEmptyBlockIsNone(t *testing.T) {
	got := run(t, nil, block())
	if !got.IsNone() {
		t.Fatalf("expected None, got %v", got)
	}
}

func TestRunBlockLastValueRule(t *testing.T) {
	body := block(exprItem(num(1)), exprItem(num(2)), exprItem(num(3)))
	got := run(t, nil, body)
	if got.AsInt() != 3 {
		t.Fatalf("expected Int(3), got %v", got)
	}
}

func TestRunIfExpression(t *testing.T) {
	ifExpr := &typedast.IfExpression{Cond: ident("x"), Then: num(1), Else: num(2)}
	body := block(
		stmtItem(&typedast.VariableBinding{Name: "x", Value: &typedast.BooleanLiteral{Value: false}}),
		exprItem(ifExpr),
	)
	got := run(t, nil, body)
	if got.AsInt() != 2 {
		t.Fatalf("expected the else branch (2), got %v", got)
	}
}

func TestRunClosureCapturesOuterLocal(t *testing.T) {
	// n = 10
	// f = fn() { n + 1 }
	// f()
	fnExpr := &typedast.FunctionExpression{
		Params: nil,
		Body:   block(exprItem(binOp(typedast.OpAdd, ident("n"), num(1)))),
	}
	call := &typedast.FunctionCallExpression{Callee: ident("f"), Args: nil}
	body := block(
		stmtItem(&typedast.VariableBinding{Name: "n", Value: num(10)}),
		stmtItem(&typedast.VariableBinding{Name: "f", Value: fnExpr}),
		exprItem(call),
	)
	got := run(t, nil, body)
	if got.AsInt() != 11 {
		t.Fatalf("expected Int(11), got %v", got)
	}
}

func TestRunDirectRecursionComputesFactorial(t *testing.T) {
	// fn fact(n) { if n == 0 { 1 } else { n * fact(n - 1) } }
	// fact(5)
	fd := &typedast.FunctionDeclaration{
		Name:   "fact",
		Params: []string{"n"},
		Body: block(exprItem(&typedast.IfExpression{
			Cond: binOp(typedast.OpEq, ident("n"), num(0)),
			Then: num(1),
			Else: binOp(typedast.OpMul, ident("n"), &typedast.FunctionCallExpression{
				Callee: ident("fact"),
				Args:   []typedast.Expression{binOp(typedast.OpSub, ident("n"), num(1))},
			}),
		})),
	}
	call := &typedast.FunctionCallExpression{Callee: ident("fact"), Args: []typedast.Expression{num(5)}}
	body := block(stmtItem(fd), exprItem(call))
	got := run(t, nil, body)
	if got.AsInt() != 120 {
		t.Fatalf("expected Int(120), got %v", got)
	}
}

// TestRunTailRecursionIsBounded proves a tail-recursive counting loop to a
// large bound completes without growing the Go-level frame stack per
// iteration: loop(n, acc) = if n == 0 { acc } else { loop(n - 1, acc + 1) },
// called as loop(50000, 0). The call to loop in the else branch is the
// function's last evaluated expression, so the compiler emits OpTailCall and
// the VM reuses the current frame rather than pushing a new one.
func TestRunTailRecursionIsBounded(t *testing.T) {
	fd := &typedast.FunctionDeclaration{
		Name:   "loop",
		Params: []string{"n", "acc"},
		Body: block(exprItem(&typedast.IfExpression{
			Cond: binOp(typedast.OpEq, ident("n"), num(0)),
			Then: ident("acc"),
			Else: &typedast.FunctionCallExpression{
				Callee: ident("loop"),
				Args: []typedast.Expression{
					binOp(typedast.OpSub, ident("n"), num(1)),
					binOp(typedast.OpAdd, ident("acc"), num(1)),
				},
			},
		})),
	}
	call := &typedast.FunctionCallExpression{Callee: ident("loop"), Args: []typedast.Expression{num(50000), num(0)}}
	body := block(stmtItem(fd), exprItem(call))

	env := typeenv.New()
	prog, err := compiler.Compile(env, body)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	var sawTailCall bool
	for _, instr := range prog.FunctionAt(1) {
		if instr.Op == bytecode.OpTailCall {
			sawTailCall = true
		}
	}
	if !sawTailCall {
		t.Fatalf("expected the recursive call to compile to TAIL_CALL, disassembly:\n%s", prog.Disassemble())
	}

	machine := New(prog, config.Flags{})
	got, err := machine.Run()
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if got.AsInt() != 50000 {
		t.Fatalf("expected Int(50000), got %v", got)
	}
	if len(machine.frames) > 256 {
		t.Fatalf("tail recursion should not grow the frame stack, got capacity %d", len(machine.frames))
	}
}

func TestRunMatchExpressionEnumPayload(t *testing.T) {
	env := typeenv.New()
	env.RegisterEnum(&typeenv.TypeEnum{
		Name:   "R",
		TypeID: 1,
		Variants: []typeenv.EnumVariant{
			{Name: "Ok", Arity: 1},
			{Name: "Err", Arity: 1},
		},
	})

	okVal := &typedast.FunctionCallExpression{
		Callee: &typedast.PropertyAccessExpression{Object: &typedast.TypeIdentifier{Name: "R"}, Property: "Ok"},
		Args:   []typedast.Expression{num(99)},
	}
	okPattern := &typedast.FunctionCallExpression{
		Callee: &typedast.PropertyAccessExpression{Object: &typedast.TypeIdentifier{Name: "R"}, Property: "Ok"},
		Args:   []typedast.Expression{ident("v")},
	}
	match := &typedast.MatchExpression{
		Subject: ident("res"),
		Arms: []typedast.MatchArm{
			{Pattern: okPattern, Body: ident("v")},
			{Pattern: &typedast.WildcardPattern{}, Body: num(-1)},
		},
	}
	body := block(
		stmtItem(&typedast.VariableBinding{Name: "res", Value: okVal}),
		exprItem(match),
	)
	got := run(t, env, body)
	if got.AsInt() != 99 {
		t.Fatalf("expected Int(99) unwrapped from R.Ok, got %v", got)
	}
}

func TestRunArrayPatternRestCapture(t *testing.T) {
	pattern := &typedast.ArrayExpression{
		Elements: []typedast.Expression{
			ident("head"),
			&typedast.SpreadExpression{Inner: ident("tail")},
		},
	}
	s := &typedast.TypePatternBinding{Pattern: pattern, Value: ident("xs")}
	body := block(
		stmtItem(&typedast.VariableBinding{Name: "xs", Value: &typedast.ArrayExpression{
			Elements: []typedast.Expression{num(1), num(2), num(3)},
		}}),
		stmtItem(s),
		exprItem(&typedast.ArrayIndexExpression{Array: ident("tail"), Index: num(1)}),
	)
	got := run(t, nil, body)
	// xs = [1,2,3]; head = 1; tail = [2,3]; tail[1] == 3
	if got.AsInt() != 3 {
		t.Fatalf("expected Int(3) from tail[1], got %v", got)
	}
}

func TestRunStructFieldAccess(t *testing.T) {
	env := typeenv.New()
	env.RegisterStruct(&typeenv.TypeStruct{Name: "Point", TypeID: 2, Fields: []string{"x", "y"}})

	init := &typedast.StructInitExpression{
		TypeName: "Point",
		Fields: []typedast.StructFieldInit{
			{Name: "x", Value: num(3)},
			{Name: "y", Value: num(4)},
		},
	}
	body := block(
		stmtItem(&typedast.VariableBinding{Name: "p", Value: init}),
		exprItem(&typedast.PropertyAccessExpression{Object: ident("p"), Property: "y"}),
	)
	got := run(t, env, body)
	if got.AsInt() != 4 {
		t.Fatalf("expected Int(4), got %v", got)
	}
}

func TestRunOrExpressionOptionFallback(t *testing.T) {
	inner := ident("maybe")
	inner.T = typedast.TOption(typedast.TInt())
	orExpr := &typedast.OrExpression{Inner: inner, Fallback: block(exprItem(num(7)))}
	body := block(
		stmtItem(&typedast.VariableBinding{Name: "maybe", Value: &typedast.NoneLiteral{}}),
		exprItem(orExpr),
	)
	got := run(t, nil, body)
	if got.AsInt() != 7 {
		t.Fatalf("expected the fallback value 7, got %v", got)
	}
}

func TestRunFromYAMLDecodesMappingToStruct(t *testing.T) {
	yamlDoc := &typedast.StringLiteral{Value: "name: wisp\ncount: 3\n"}
	decode := &typedast.FunctionCallExpression{Callee: ident("from_yaml"), Args: []typedast.Expression{yamlDoc}}
	body := block(
		stmtItem(&typedast.VariableBinding{Name: "rec", Value: decode}),
		exprItem(&typedast.PropertyAccessExpression{Object: ident("rec"), Property: "name"}),
	)

	env := typeenv.New()
	prog, err := compiler.Compile(env, body)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	machine := New(prog, config.Flags{StdLibEnabled: true})
	var out bytes.Buffer
	machine.SetOutput(&out)
	got, err := machine.Run()
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if got.Tag != value.TagString || got.AsString() != "wisp" {
		t.Fatalf("expected String(\"wisp\") decoded from the YAML mapping's name field, got %v", got)
	}
}

// TestRunCallReachesRegisteredFunctionPastShadowingLocal exercises §4.3's
// lookup_function contract: a call-site identifier must still reach a
// registered named function even after a later local binding of the same
// name shadows it in the lexical value scope.
func TestRunCallReachesRegisteredFunctionPastShadowingLocal(t *testing.T) {
	double := &typedast.FunctionDeclaration{
		Name:   "double",
		Params: []string{"x"},
		Body:   block(exprItem(binOp(typedast.OpMul, ident("x"), num(2)))),
	}
	body := block(
		stmtItem(double),
		stmtItem(&typedast.VariableBinding{Name: "double", Value: num(99)}),
		exprItem(&typedast.FunctionCallExpression{Callee: ident("double"), Args: []typedast.Expression{num(5)}}),
	)

	got := run(t, nil, body)
	if got.Tag != value.TagInt || got.AsInt() != 10 {
		t.Fatalf("expected the call to reach the registered function (double(5) == 10) despite the shadowing local, got %v", got)
	}
}

// TestRunArraySliceOutOfBoundsStartIsVMError exercises array_slice's bound
// check directly at the bytecode level (a typed-AST pattern can never
// request an out-of-range start, since its length check already guards it),
// confirming an out-of-range start is a VM error rather than a silent clamp.
func TestRunArraySliceOutOfBoundsStartIsVMError(t *testing.T) {
	prog := bytecode.NewProgram()
	arrConst := prog.AddConstant(value.Array([]value.Value{value.Int(1), value.Int(2)}))
	startConst := prog.AddConstant(value.Int(5))
	prog.Emit(bytecode.OpPushConst, arrConst)
	prog.Emit(bytecode.OpPushConst, startConst)
	prog.Emit(bytecode.OpArraySlice, 0)
	prog.Emit(bytecode.OpRet, 0)
	prog.Entry = prog.AddFunction(bytecode.Function{Name: "<entry>", CodeLen: 4})

	machine := New(prog, config.Flags{})
	if _, err := machine.Run(); err == nil {
		t.Fatal("expected array_slice with an out-of-range start to return a VM error")
	}
}

func TestRunGatedBuiltinErrorsWhenDisabled(t *testing.T) {
	body := block(exprItem(&typedast.FunctionCallExpression{Callee: ident("__stack_depth__"), Args: nil}))
	env := typeenv.New()
	prog, err := compiler.Compile(env, body)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	machine := New(prog, config.Flags{})
	if _, err := machine.Run(); err == nil {
		t.Fatalf("expected an error calling a debug builtin with ExposeDebugBuiltins disabled")
	}
}

func TestRunGatedBuiltinSucceedsWhenEnabled(t *testing.T) {
	body := block(exprItem(&typedast.FunctionCallExpression{Callee: ident("__stack_depth__"), Args: nil}))
	env := typeenv.New()
	prog, err := compiler.Compile(env, body)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	machine := New(prog, config.Flags{ExposeDebugBuiltins: true})
	got, err := machine.Run()
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if got.Tag != value.TagInt {
		t.Fatalf("expected an Int frame depth, got %v", got)
	}
}
