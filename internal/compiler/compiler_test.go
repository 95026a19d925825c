package compiler

import (
	"strings"
	"testing"

	"github.com/wisplang/wisp/internal/bytecode"
	"github.com/wisplang/wisp/internal/typedast"
	"github.com/wisplang/wisp/internal/typeenv"
)

func num(n int64) *typedast.NumberLiteral {
	return &typedast.NumberLiteral{IntValue: n}
}

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

func compileProgram(t *testing.T, env *typeenv.Env, body *typedast.BlockExpression) *bytecode.Program {
	t.Helper()
	if env == nil {
		env = typeenv.New()
	}
	prog, err := Compile(env, body)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return prog
}

func TestCompileSimpleArithmeticBlockValue(t *testing.T) {
	// 1 + 2 * 3
	body := block(exprItem(binOp(typedast.OpAdd, num(1), binOp(typedast.OpMul, num(2), num(3)))))
	prog := compileProgram(t, nil, body)

	entry := prog.Functions[prog.Entry]
	if entry.Name != "<entry>" {
		t.Fatalf("expected entry function, got %q", entry.Name)
	}
	mulAt, addAt := -1, -1
	for i, instr := range prog.FunctionAt(prog.Entry) {
		switch instr.Op {
		case bytecode.OpMul:
			mulAt = i
		case bytecode.OpAdd:
			addAt = i
		}
	}
	if mulAt < 0 || addAt < 0 || mulAt > addAt {
		t.Fatalf("expected a MUL instruction before ADD, disassembly:\n%s", prog.Disassemble())
	}
}

func TestCompileBindingThenReference(t *testing.T) {
	// x = 41
	// x + 1
	body := block(
		stmtItem(&typedast.VariableBinding{Name: "x", Value: num(41)}),
		exprItem(binOp(typedast.OpAdd, ident("x"), num(1))),
	)
	prog := compileProgram(t, nil, body)

	var sawStore, sawLoad bool
	for _, instr := range prog.FunctionAt(prog.Entry) {
		switch instr.Op {
		case bytecode.OpStoreLocal:
			sawStore = true
		case bytecode.OpPushLocal:
			sawLoad = true
		}
	}
	if !sawStore || !sawLoad {
		t.Fatalf("expected both a local store and a local load, disassembly:\n%s", prog.Disassemble())
	}
}

func TestCompileEmptyBlockPushesNone(t *testing.T) {
	body := block()
	prog := compileProgram(t, nil, body)
	instrs := prog.FunctionAt(prog.Entry)
	if len(instrs) < 2 || instrs[0].Op != bytecode.OpPushNone {
		t.Fatalf("expected PUSH_NONE as the first instruction, got:\n%s", prog.Disassemble())
	}
}

func TestCompileBlockPopsIntermediateExpressions(t *testing.T) {
	// 1; 2; 3  -- only the last value survives
	body := block(exprItem(num(1)), exprItem(num(2)), exprItem(num(3)))
	prog := compileProgram(t, nil, body)

	pops := 0
	for _, instr := range prog.FunctionAt(prog.Entry) {
		if instr.Op == bytecode.OpPop {
			pops++
		}
	}
	if pops != 2 {
		t.Fatalf("expected exactly 2 POPs for the two discarded statements, got %d:\n%s", pops, prog.Disassemble())
	}
}

func TestCompileIfExpressionBothBranches(t *testing.T) {
	ifExpr := &typedast.IfExpression{
		Cond: ident("x"),
		Then: num(1),
		Else: num(2),
	}
	body := block(
		stmtItem(&typedast.VariableBinding{Name: "x", Value: &typedast.BooleanLiteral{Value: true}}),
		exprItem(ifExpr),
	)
	prog := compileProgram(t, nil, body)

	var sawElseJump, sawEndJump bool
	for _, instr := range prog.FunctionAt(prog.Entry) {
		if instr.Op == bytecode.OpJumpIfFalse {
			sawElseJump = true
		}
		if instr.Op == bytecode.OpJump {
			sawEndJump = true
		}
	}
	if !sawElseJump || !sawEndJump {
		t.Fatalf("expected both the else-branch and end jumps, disassembly:\n%s", prog.Disassemble())
	}
}

func TestCompileIfExpressionMissingElsePushesNone(t *testing.T) {
	ifExpr := &typedast.IfExpression{Cond: &typedast.BooleanLiteral{Value: false}, Then: num(1)}
	body := block(exprItem(ifExpr))
	prog := compileProgram(t, nil, body)

	if !strings.Contains(prog.Disassemble(), "PUSH_NONE") {
		t.Fatalf("expected a PUSH_NONE for the omitted else branch, disassembly:\n%s", prog.Disassemble())
	}
}

func TestCompileAnonymousFunctionCapturesOuterLocal(t *testing.T) {
	// n = 10
	// f = fn() { n }
	fnExpr := &typedast.FunctionExpression{Params: nil, Body: block(exprItem(ident("n")))}
	body := block(
		stmtItem(&typedast.VariableBinding{Name: "n", Value: num(10)}),
		stmtItem(&typedast.VariableBinding{Name: "f", Value: fnExpr}),
		exprItem(ident("f")),
	)
	prog := compileProgram(t, nil, body)

	if len(prog.Functions) != 2 {
		t.Fatalf("expected entry + one nested function, got %d functions", len(prog.Functions))
	}
	nested := prog.Functions[1]
	if nested.CaptureCount != 1 {
		t.Fatalf("expected the nested function to capture exactly 1 value, got %d", nested.CaptureCount)
	}

	var sawMakeClosure, sawPushCapture bool
	for _, instr := range prog.FunctionAt(prog.Entry) {
		if instr.Op == bytecode.OpMakeClosure {
			sawMakeClosure = true
		}
	}
	for _, instr := range prog.FunctionAt(1) {
		if instr.Op == bytecode.OpPushCapture {
			sawPushCapture = true
		}
	}
	if !sawMakeClosure {
		t.Fatalf("expected MAKE_CLOSURE in the entry function, disassembly:\n%s", prog.Disassemble())
	}
	if !sawPushCapture {
		t.Fatalf("expected PUSH_CAPTURE in the nested function body, disassembly:\n%s", prog.Disassemble())
	}
}

func TestCompileDirectRecursionUsesPushSelf(t *testing.T) {
	// fn countdown(n) { countdown(n) }
	call := &typedast.FunctionCallExpression{Callee: ident("countdown"), Args: []typedast.Expression{ident("n")}}
	fd := &typedast.FunctionDeclaration{Name: "countdown", Params: []string{"n"}, Body: block(exprItem(call))}
	body := block(stmtItem(fd), exprItem(num(0)))
	prog := compileProgram(t, nil, body)

	nested := prog.Functions[1]
	var sawPushSelf, sawTailCall bool
	for _, instr := range prog.FunctionAt(1) {
		if instr.Op == bytecode.OpPushSelf {
			sawPushSelf = true
		}
		if instr.Op == bytecode.OpTailCall {
			sawTailCall = true
		}
	}
	if !sawPushSelf {
		t.Fatalf("expected PUSH_SELF for the direct-recursive call, disassembly:\n%s", prog.Disassemble())
	}
	if nested.CaptureCount != 0 {
		t.Fatalf("self-reference should not require a capture slot, got %d", nested.CaptureCount)
	}
	_ = sawTailCall
}

func TestCompileMutualRecursionHoistsSiblingSlots(t *testing.T) {
	// fn isEven(n) { isOdd(n) }
	// fn isOdd(n) { isEven(n) }
	isEven := &typedast.FunctionDeclaration{
		Name: "isEven", Params: []string{"n"},
		Body: block(exprItem(&typedast.FunctionCallExpression{Callee: ident("isOdd"), Args: []typedast.Expression{ident("n")}})),
	}
	isOdd := &typedast.FunctionDeclaration{
		Name: "isOdd", Params: []string{"n"},
		Body: block(exprItem(&typedast.FunctionCallExpression{Callee: ident("isEven"), Args: []typedast.Expression{ident("n")}})),
	}
	body := block(stmtItem(isEven), stmtItem(isOdd), exprItem(num(0)))

	prog := compileProgram(t, nil, body)
	if len(prog.Functions) != 3 {
		t.Fatalf("expected entry + 2 nested functions, got %d", len(prog.Functions))
	}
	// isEven's body must reference isOdd as a capture (the slot was
	// pre-reserved in the entry function before either body compiled).
	isEvenFn := prog.Functions[1]
	if isEvenFn.CaptureCount != 1 {
		t.Fatalf("expected isEven to capture isOdd's pre-hoisted slot, got %d captures", isEvenFn.CaptureCount)
	}
}

func TestCompileMatchExpressionWithLiteralAndWildcardArms(t *testing.T) {
	match := &typedast.MatchExpression{
		Subject: ident("x"),
		Arms: []typedast.MatchArm{
			{Pattern: num(0), Body: &typedast.StringLiteral{Value: "zero"}},
			{Pattern: &typedast.WildcardPattern{}, Body: &typedast.StringLiteral{Value: "other"}},
		},
	}
	body := block(
		stmtItem(&typedast.VariableBinding{Name: "x", Value: num(0)}),
		exprItem(match),
	)
	prog := compileProgram(t, nil, body)

	jumpIfFalse, jump := 0, 0
	for _, instr := range prog.FunctionAt(prog.Entry) {
		switch instr.Op {
		case bytecode.OpJumpIfFalse:
			jumpIfFalse++
		case bytecode.OpJump:
			jump++
		}
	}
	if jumpIfFalse != 1 {
		t.Fatalf("expected exactly 1 JUMP_IF_FALSE (the literal arm's test), got %d:\n%s", jumpIfFalse, prog.Disassemble())
	}
	// One jump per arm to skip to END, plus none for the wildcard arm's test.
	if jump != 2 {
		t.Fatalf("expected 2 end-of-arm jumps, got %d:\n%s", jump, prog.Disassemble())
	}
}

func TestCompileEnumPatternWithPayloadBinding(t *testing.T) {
	env := typeenv.New()
	env.RegisterEnum(&typeenv.TypeEnum{
		Name:   "R",
		TypeID: 1,
		Variants: []typeenv.EnumVariant{
			{Name: "Ok", Arity: 1},
			{Name: "Err", Arity: 1},
		},
	})

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
		stmtItem(&typedast.VariableBinding{Name: "res", Value: num(0)}),
		exprItem(match),
	)
	prog := compileProgram(t, env, body)

	var sawMatchEnum, sawUnwrapEnum bool
	for _, instr := range prog.FunctionAt(prog.Entry) {
		if instr.Op == bytecode.OpMatchEnum {
			sawMatchEnum = true
		}
		if instr.Op == bytecode.OpUnwrapEnum {
			sawUnwrapEnum = true
		}
	}
	if !sawMatchEnum || !sawUnwrapEnum {
		t.Fatalf("expected MATCH_ENUM and UNWRAP_ENUM in the compiled pattern, disassembly:\n%s", prog.Disassemble())
	}
}

func TestCompileArrayPatternWithRestCapture(t *testing.T) {
	pattern := &typedast.ArrayExpression{
		Elements: []typedast.Expression{
			ident("head"),
			&typedast.SpreadExpression{Inner: ident("tail")},
		},
	}
	s := &typedast.TypePatternBinding{Pattern: pattern, Value: ident("xs")}
	body := block(
		stmtItem(&typedast.VariableBinding{Name: "xs", Value: &typedast.ArrayExpression{Elements: []typedast.Expression{num(1), num(2), num(3)}}}),
		stmtItem(s),
		exprItem(ident("head")),
	)
	prog := compileProgram(t, nil, body)

	var sawSlice bool
	for _, instr := range prog.FunctionAt(prog.Entry) {
		if instr.Op == bytecode.OpArraySlice {
			sawSlice = true
		}
	}
	if !sawSlice {
		t.Fatalf("expected ARRAY_SLICE to capture the rest pattern, disassembly:\n%s", prog.Disassemble())
	}
}

func TestCompileOrExpressionOptionFallback(t *testing.T) {
	inner := &typedast.Identifier{Name: "maybe"}
	inner.T = typedast.TOption(typedast.TInt())
	orExpr := &typedast.OrExpression{
		Inner:    inner,
		Fallback: block(exprItem(num(0))),
	}
	body := block(exprItem(orExpr))
	prog := compileProgram(t, nil, body)

	var sawIsNone bool
	for _, instr := range prog.FunctionAt(prog.Entry) {
		if instr.Op == bytecode.OpIsNone {
			sawIsNone = true
		}
	}
	if !sawIsNone {
		t.Fatalf("expected IS_NONE for an Option-typed `or`, disassembly:\n%s", prog.Disassemble())
	}
}

func TestCompileOrExpressionResultFallbackBindsError(t *testing.T) {
	inner := &typedast.Identifier{Name: "res"}
	inner.T = typedast.TResult(typedast.TInt(), typedast.TString())
	orExpr := &typedast.OrExpression{
		Inner:        inner,
		ReceiverName: "err",
		Fallback:     block(exprItem(num(0))),
	}
	body := block(exprItem(orExpr))
	prog := compileProgram(t, nil, body)

	var sawIsError, sawUnwrapError bool
	for _, instr := range prog.FunctionAt(prog.Entry) {
		if instr.Op == bytecode.OpIsError {
			sawIsError = true
		}
		if instr.Op == bytecode.OpUnwrapError {
			sawUnwrapError = true
		}
	}
	if !sawIsError || !sawUnwrapError {
		t.Fatalf("expected IS_ERROR and UNWRAP_ERROR for a Result-typed `or`, disassembly:\n%s", prog.Disassemble())
	}
}
