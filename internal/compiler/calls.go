package compiler

import (
	"github.com/wisplang/wisp/internal/bytecode"
	"github.com/wisplang/wisp/internal/typedast"
	"github.com/wisplang/wisp/internal/value"
)

// compileCall lowers a call expression. Three shapes share the node:
// a reference to a function value (local/capture/self or a first-class
// expression), a bare builtin name (resolved against the gated builtin
// table, or one of the two ungated println/inspect opcodes), and an
// enum-variant payload constructor (`Enum.Variant(args...)`).
//
// The calling convention pushes arguments left to right, then the callee
// reference, then emits call/tail_call with the argument count as its
// operand — the VM pops the callee and leaves the arguments where they
// are, as the callee's first local slots.
func (c *Compiler) compileCall(e *typedast.FunctionCallExpression) error {
	if access, ok := e.Callee.(*typedast.PropertyAccessExpression); ok {
		if ti, ok := access.Object.(*typedast.TypeIdentifier); ok {
			if enumDef, ok := c.env.LookupEnum(ti.Name); ok {
				variant, ok := enumDef.Variant(access.Property)
				if !ok {
					return errorf(e.Span(), "enum %q has no variant %q", ti.Name, access.Property)
				}
				if variant.Arity != len(e.Args) {
					return errorf(e.Span(), "variant %s.%s expects %d payload values, got %d", ti.Name, access.Property, variant.Arity, len(e.Args))
				}
				for _, arg := range e.Args {
					if err := c.compileNonTail(arg); err != nil {
						return err
					}
				}
				c.emit(bytecode.OpPushConst, c.addConstant(value.Int(int64(enumDef.TypeID))))
				c.emit(bytecode.OpPushConst, c.addConstant(value.String(enumDef.Name)))
				c.emit(bytecode.OpPushConst, c.addConstant(value.String(variant.Name)))
				c.emit(bytecode.OpMakeEnumPayload, int32(len(e.Args)))
				return nil
			}
		}
	}

	if id, ok := e.Callee.(*typedast.Identifier); ok {
		// §4.3: a call-site identifier consults the flat function namespace
		// ahead of the lexical value scope, so a registered named function
		// is still reachable by name even after a nested local binding of
		// the same name has shadowed it for ordinary value reads. A
		// forward reference to a not-yet-compiled sibling misses here (it
		// hasn't been registered yet) and falls through to resolveVariable,
		// which finds it through the pre-reserved hoisted local instead.
		if _, ok := c.env.LookupFunction(id.Name); ok {
			// Only a function with no free variables can be reconstructed
			// into a Closure from an arbitrary call site — one with
			// captures needs the stack values its original definition
			// point supplied, which this call site doesn't have. A
			// captured function falls through to ordinary resolution,
			// same as before this registry existed.
			if funcIdx, ok := c.funcIdxByName[id.Name]; ok && c.prog.Functions[funcIdx].CaptureCount == 0 {
				for _, arg := range e.Args {
					if err := c.compileNonTail(arg); err != nil {
						return err
					}
				}
				c.emit(bytecode.OpMakeClosure, int32(funcIdx))
				c.emitCall(len(e.Args))
				return nil
			}
		}

		r := c.resolveVariable(c.cur, id.Name)
		if r.kind == refNotFound {
			return c.compileBuiltinCall(e, id.Name)
		}
		for _, arg := range e.Args {
			if err := c.compileNonTail(arg); err != nil {
				return err
			}
		}
		switch r.kind {
		case refLocal:
			c.emit(bytecode.OpPushLocal, int32(r.idx))
		case refCapture:
			c.emit(bytecode.OpPushCapture, int32(r.idx))
		case refSelf:
			c.emit(bytecode.OpPushSelf, 0)
		}
		c.emitCall(len(e.Args))
		return nil
	}

	for _, arg := range e.Args {
		if err := c.compileNonTail(arg); err != nil {
			return err
		}
	}
	if err := c.compileNonTail(e.Callee); err != nil {
		return err
	}
	c.emitCall(len(e.Args))
	return nil
}

func (c *Compiler) emitCall(arity int) {
	if c.cur.inTailPosition {
		c.emit(bytecode.OpTailCall, int32(arity))
	} else {
		c.emit(bytecode.OpCall, int32(arity))
	}
}

func (c *Compiler) compileBuiltinCall(e *typedast.FunctionCallExpression, name string) error {
	switch name {
	case "println":
		if len(e.Args) != 1 {
			return errorf(e.Span(), "println expects 1 argument, got %d", len(e.Args))
		}
		if err := c.compileNonTail(e.Args[0]); err != nil {
			return err
		}
		c.emit(bytecode.OpPrintln, 0)
		return nil

	case "inspect":
		if len(e.Args) != 1 {
			return errorf(e.Span(), "inspect expects 1 argument, got %d", len(e.Args))
		}
		if err := c.compileNonTail(e.Args[0]); err != nil {
			return err
		}
		c.emit(bytecode.OpInspect, 0)
		return nil
	}

	info, ok := bytecode.Builtins[name]
	if !ok {
		return errorf(e.Span(), "unknown identifier %q", name)
	}
	if len(e.Args) != info.Arity {
		return errorf(e.Span(), "%s expects %d argument(s), got %d", name, info.Arity, len(e.Args))
	}
	for _, arg := range e.Args {
		if err := c.compileNonTail(arg); err != nil {
			return err
		}
	}
	c.emit(bytecode.OpCallBuiltin, int32(bytecode.BuiltinIDByName[name]))
	return nil
}
