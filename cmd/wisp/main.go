// Command wisp is a demonstration harness for the compiler and VM: it has
// no lexer or parser to drive, so it builds a typed AST directly with Go
// constructors (exactly as an out-of-process type checker would), compiles
// it, and runs it. Pass -disassemble to print the compiled bytecode
// instead of running it, or -debug to raise the logger to debug level.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/wisplang/wisp/internal/compiler"
	"github.com/wisplang/wisp/internal/config"
	"github.com/wisplang/wisp/internal/typedast"
	"github.com/wisplang/wisp/internal/typeenv"
	"github.com/wisplang/wisp/internal/value"
	"github.com/wisplang/wisp/internal/vm"
	"github.com/wisplang/wisp/internal/wlog"
)

func main() {
	disassemble := flag.Bool("disassemble", false, "print compiled bytecode instead of running it")
	debug := flag.Bool("debug", false, "enable debug-level logging")
	demo := flag.String("demo", "factorial", "which built-in demo program to run: factorial, result")
	flag.Parse()

	if *debug {
		wlog.SetLevel(slog.LevelDebug)
	}

	env := typeenv.New()
	body, err := buildDemo(*demo, env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unknown demo %q: %s\n", *demo, err)
		os.Exit(1)
	}

	prog, err := compiler.Compile(env, body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "compile error: %s\n", err)
		os.Exit(1)
	}

	if *disassemble {
		fmt.Print(prog.Disassemble())
		return
	}

	fmt.Printf("build %s, %s instructions, %s constants\n",
		prog.BuildID,
		humanize.Comma(int64(len(prog.Code))),
		humanize.Comma(int64(len(prog.Constants))))

	machine := vm.New(prog, config.LoadFlags())
	var out bytes.Buffer
	machine.SetOutput(&out)

	result, err := machine.Run()
	os.Stdout.Write(out.Bytes())
	if err != nil {
		fmt.Fprintf(os.Stderr, "runtime error: %s\n", err)
		os.Exit(1)
	}

	fmt.Println(value.InspectPretty(result, false))
}

// buildDemo hand-constructs a typed AST for one of a small set of example
// programs, registering whatever struct/enum types it needs in env first.
func buildDemo(name string, env *typeenv.Env) (*typedast.BlockExpression, error) {
	switch name {
	case "factorial":
		return factorialProgram(), nil
	case "result":
		return resultProgram(env), nil
	default:
		return nil, fmt.Errorf("expected \"factorial\" or \"result\"")
	}
}

func num(n int64) *typedast.NumberLiteral { return &typedast.NumberLiteral{IntValue: n} }
func ident(name string) *typedast.Identifier {
	return &typedast.Identifier{Name: name}
}
func binOp(op typedast.BinaryOp, l, r typedast.Expression) *typedast.BinaryExpression {
	return &typedast.BinaryExpression{Op: op, Left: l, Right: r}
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

// factorialProgram builds:
//
//	fn fact(n) { if n == 0 { 1 } else { n * fact(n - 1) } }
//	println(fact(10))
//	fact(10)
func factorialProgram() *typedast.BlockExpression {
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
	call := &typedast.FunctionCallExpression{Callee: ident("fact"), Args: []typedast.Expression{num(10)}}
	printCall := &typedast.FunctionCallExpression{Callee: ident("println"), Args: []typedast.Expression{call}}
	return block(
		stmtItem(fd),
		exprItem(printCall),
		exprItem(&typedast.FunctionCallExpression{Callee: ident("fact"), Args: []typedast.Expression{num(10)}}),
	)
}

// resultProgram registers an enum Result { Ok(1), Err(1) }, builds
// Result.Ok(21), doubles its payload via match, and returns the unwrapped
// value — exercising enum construction, matching, and payload unwrap end
// to end.
func resultProgram(env *typeenv.Env) *typedast.BlockExpression {
	env.RegisterEnum(&typeenv.TypeEnum{
		Name:   "Result",
		TypeID: 1,
		Variants: []typeenv.EnumVariant{
			{Name: "Ok", Arity: 1},
			{Name: "Err", Arity: 1},
		},
	})

	okVal := &typedast.FunctionCallExpression{
		Callee: &typedast.PropertyAccessExpression{Object: &typedast.TypeIdentifier{Name: "Result"}, Property: "Ok"},
		Args:   []typedast.Expression{num(21)},
	}
	okPattern := &typedast.FunctionCallExpression{
		Callee: &typedast.PropertyAccessExpression{Object: &typedast.TypeIdentifier{Name: "Result"}, Property: "Ok"},
		Args:   []typedast.Expression{ident("v")},
	}
	match := &typedast.MatchExpression{
		Subject: ident("res"),
		Arms: []typedast.MatchArm{
			{Pattern: okPattern, Body: binOp(typedast.OpMul, ident("v"), num(2))},
			{Pattern: &typedast.WildcardPattern{}, Body: num(-1)},
		},
	}
	return block(
		stmtItem(&typedast.VariableBinding{Name: "res", Value: okVal}),
		exprItem(match),
	)
}
