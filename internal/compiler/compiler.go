// Package compiler lowers a typed AST into a bytecode.Program against a
// frozen typeenv.Env. It never calls back into the type checker, the
// parser, or the VM; its only output is a Program or an *Error describing
// the offending node.
package compiler

import (
	"strconv"

	"github.com/wisplang/wisp/internal/bytecode"
	"github.com/wisplang/wisp/internal/typedast"
	"github.com/wisplang/wisp/internal/typeenv"
	"github.com/wisplang/wisp/internal/value"
	"github.com/wisplang/wisp/internal/wlog"
)

var log = wlog.Named("compiler")

// captureKind distinguishes where a capture's value comes from in the
// enclosing function at closure-construction time.
type captureKind int

const (
	captureFromLocal captureKind = iota
	captureFromCapture
	captureFromSelf
)

type captureSource struct {
	kind  captureKind
	index int // local slot or capture index; unused for captureFromSelf
}

// funcState is the compiler's state for one function body being compiled.
// outer is a live pointer to the enclosing funcState, not a snapshot —
// the enclosing compilation is simply paused while a nested function
// compiles, so its locals/captures are stable to read during that time.
type funcState struct {
	name     string // Function.Name in the program (display only)
	selfName string // the let/fn name this function is bound to, "" if anonymous

	locals     map[string]int
	localCount int

	captures     []captureSource
	captureNames []string
	captureIdx   map[string]int

	inTailPosition bool

	tempCounter int

	outer *funcState
}

// newTempLocal allocates a local slot under a name no source identifier
// can spell, used to hold an enum payload element between unwrap_enum and
// the point its sub-pattern (binding, literal test, or wildcard) is
// resolved.
func (f *funcState) newTempLocal() int {
	f.tempCounter++
	name := "$payload" + strconv.Itoa(f.tempCounter)
	return f.getOrCreateLocal(name)
}

func newFuncState(name, selfName string, outer *funcState) *funcState {
	return &funcState{
		name:       name,
		selfName:   selfName,
		locals:     make(map[string]int),
		captureIdx: make(map[string]int),
		outer:      outer,
	}
}

// getOrCreateLocal returns name's existing slot, or allocates the next
// one. Shadowing a name simply reassigns the map entry to a new slot;
// prior references already compiled keep referring to the old slot.
func (f *funcState) getOrCreateLocal(name string) int {
	if slot, ok := f.locals[name]; ok {
		return slot
	}
	slot := f.localCount
	f.locals[name] = slot
	f.localCount++
	return slot
}

// Compiler holds the Program under construction and the TypeEnv it
// compiles against.
type Compiler struct {
	prog *bytecode.Program
	env  *typeenv.Env
	cur  *funcState

	// funcIdxByName maps a registered top-level/nested function's name
	// (§4.3's flat function namespace) to the bytecode.Function slot
	// compileFunctionCommon built it into, so a later call site can reach
	// the function directly even when a value binding of the same name
	// has since shadowed it as an ordinary local.
	funcIdxByName map[string]int
}

// New creates a Compiler targeting env. env may already be frozen; if it
// is not, each named function declaration compiled is also registered in
// env's function registry, and Compile freezes env when it finishes.
func New(env *typeenv.Env) *Compiler {
	return &Compiler{
		prog:          bytecode.NewProgram(),
		env:           env,
		funcIdxByName: make(map[string]int),
	}
}

// Compile lowers the top-level program (a BlockExpression, per the typed
// AST root shape) into a complete Program. The top level is compiled as
// an implicit nameless, capture-less, zero-arity entry function.
func Compile(env *typeenv.Env, program *typedast.BlockExpression) (*bytecode.Program, error) {
	c := New(env)
	entryIdx, err := c.compileEntry(program)
	if err != nil {
		return nil, err
	}
	// Struct/enum registration is the type checker's concern and happens
	// before Compile is ever called; function registration (§4.3's flat
	// function namespace) is this compiler's own concern, populated as
	// compileFunctionDeclaration encounters each named function during the
	// single pass above — so an env that arrives unfrozen is frozen only
	// once that pass has finished. An env that arrives frozen is left as
	// the type checker registered it.
	if !env.Frozen() {
		env.Freeze()
	}
	c.prog.Entry = entryIdx
	c.prog.BuildID = newBuildID()
	log.Debug("compiled program", "functions", len(c.prog.Functions), "instructions", len(c.prog.Code), "build_id", c.prog.BuildID)
	return c.prog, nil
}

// compileNonTail compiles expr with tail position suppressed, then restores
// whatever the surrounding tail status was. Use this for any subexpression
// whose result is consumed by an enclosing operation (an operand, an
// argument, a receiver) rather than returned directly — a call compiled
// there must never be mistaken for a tail call.
func (c *Compiler) compileNonTail(expr typedast.Expression) error {
	outerTail := c.cur.inTailPosition
	c.cur.inTailPosition = false
	err := c.compileExpr(expr)
	c.cur.inTailPosition = outerTail
	return err
}

func (c *Compiler) compileEntry(body *typedast.BlockExpression) (int, error) {
	start := c.prog.Here()
	c.cur = newFuncState("<entry>", "", nil)
	c.cur.inTailPosition = false

	if err := c.compileBlockBody(body); err != nil {
		return 0, err
	}
	c.prog.Emit(bytecode.OpRet, 0)

	fn := bytecode.Function{
		Name:         "<entry>",
		Arity:        0,
		Locals:       c.cur.localCount,
		CaptureCount: 0,
		CodeStart:    start,
		CodeLen:      c.prog.Here() - start,
	}
	return c.prog.AddFunction(fn), nil
}

// addConstant adds v to the constant pool and returns its index as int32.
func (c *Compiler) addConstant(v value.Value) int32 {
	return c.prog.AddConstant(v)
}

func (c *Compiler) emit(op bytecode.Opcode, operand int32) int {
	return c.prog.Emit(op, operand)
}
