package compiler

import (
	"github.com/wisplang/wisp/internal/bytecode"
	"github.com/wisplang/wisp/internal/typedast"
)

// compileFunctionCommon implements §4.4's compile_function_common. It
// leaves exactly one value — the constructed Closure — on the operand
// stack of the function that was current when it was called (the
// "outer" function, from the nested function's point of view).
//
// selfName is the name the function is bound to, if known at this call
// site (the left-hand side of a `fn name(...)` declaration or a
// `name = fn(...) { ... }` binding); it is "" for an anonymous function
// expression used inline. It drives push_self resolution inside the
// nested body — see resolveVariable.
func (c *Compiler) compileFunctionCommon(selfName string, params []string, body *typedast.BlockExpression, displayName string) (int, error) {
	outer := c.cur

	// The function body sits inline in the shared code vector; this jump
	// skips over it when control falls through normally (i.e. whenever the
	// function is merely declared, not called).
	skipAddr := c.emit(bytecode.OpJump, -1)

	nested := newFuncState(displayName, selfName, outer)
	for _, p := range params {
		nested.getOrCreateLocal(p)
	}

	bodyStart := c.prog.Here()
	c.cur = nested
	nested.inTailPosition = true

	if err := c.compileBlockBody(body); err != nil {
		c.cur = outer
		return 0, err
	}
	c.emit(bytecode.OpRet, 0)
	bodyLen := c.prog.Here() - bodyStart

	c.prog.Patch(skipAddr, int32(c.prog.Here()))

	fn := bytecode.Function{
		Name:         displayName,
		Arity:        len(params),
		Locals:       nested.localCount,
		CaptureCount: len(nested.captures),
		CodeStart:    bodyStart,
		CodeLen:      bodyLen,
	}
	funcIdx := c.prog.AddFunction(fn)

	c.cur = outer
	for _, src := range nested.captures {
		switch src.kind {
		case captureFromLocal:
			c.emit(bytecode.OpPushLocal, int32(src.index))
		case captureFromCapture:
			c.emit(bytecode.OpPushCapture, int32(src.index))
		case captureFromSelf:
			c.emit(bytecode.OpPushSelf, 0)
		}
	}
	c.emit(bytecode.OpMakeClosure, int32(funcIdx))
	return funcIdx, nil
}
