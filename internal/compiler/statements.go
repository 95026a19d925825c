package compiler

import (
	"github.com/wisplang/wisp/internal/bytecode"
	"github.com/wisplang/wisp/internal/typedast"
	"github.com/wisplang/wisp/internal/typeenv"
)

// compileBlockBody lowers a BlockExpression's items in order, implementing
// the block last-value rule from §4.4 and §8: the value of the block is
// its last item's value if the last item is an expression, else None.
// c.cur.inTailPosition on entry says whether the enclosing context is a
// tail position — only the last item inherits it.
func (c *Compiler) compileBlockBody(block *typedast.BlockExpression) error {
	// Hoist named function declarations so mutually-recursive siblings
	// resolve as ordinary locals regardless of declaration order. (Direct
	// self-recursion resolves to push_self instead; see resolveVariable.)
	for _, item := range block.Body {
		if item.IsExpr {
			continue
		}
		if fd, ok := item.Stmt.(*typedast.FunctionDeclaration); ok {
			c.cur.getOrCreateLocal(fd.Name)
		}
	}

	outerTail := c.cur.inTailPosition
	c.cur.inTailPosition = false

	lastWasExpr := false
	for i, item := range block.Body {
		isLast := i == len(block.Body)-1
		if isLast {
			c.cur.inTailPosition = outerTail
		}
		if item.IsExpr {
			if err := c.compileExpr(item.Expr); err != nil {
				return err
			}
			lastWasExpr = true
			if !isLast {
				c.emit(bytecode.OpPop, 0)
				lastWasExpr = false
			}
		} else {
			if err := c.compileStatement(item.Stmt); err != nil {
				return err
			}
			lastWasExpr = false
		}
	}
	c.cur.inTailPosition = outerTail

	if len(block.Body) == 0 || !lastWasExpr {
		c.emit(bytecode.OpPushNone, 0)
	}
	return nil
}

func (c *Compiler) compileStatement(stmt typedast.Statement) error {
	switch s := stmt.(type) {
	case *typedast.VariableBinding:
		return c.compileBinding(s.Name, s.Value, s.Span())
	case *typedast.ConstBinding:
		return c.compileBinding(s.Name, s.Value, s.Span())
	case *typedast.TypePatternBinding:
		return c.compilePatternBinding(s)
	case *typedast.FunctionDeclaration:
		return c.compileFunctionDeclaration(s)
	case *typedast.StructDeclaration:
		// Struct registration is a TypeEnv-time concern (§4.3); by
		// compile time the registry already holds the type_id the
		// compiler needs, so there is nothing left to emit.
		return nil
	case *typedast.EnumDeclaration:
		return nil
	case *typedast.ImportDeclaration:
		// Module resolution is an external collaborator's concern; the
		// compiler only sees the declaration for bookkeeping.
		return nil
	case *typedast.ExportDeclaration:
		return c.compileStatement(s.Inner)
	default:
		return errorf(stmt.Span(), "unhandled statement type %T", stmt)
	}
}

// compileBinding lowers `name = value` and const bindings identically:
// both reserve a local slot and compile Value into it. If Value is a
// function expression, name becomes its self-reference name so direct
// recursion through the binding works.
func (c *Compiler) compileBinding(name string, val typedast.Expression, span typedast.Span) error {
	slot := c.cur.getOrCreateLocal(name)
	if fe, ok := val.(*typedast.FunctionExpression); ok {
		if _, err := c.compileFunctionCommon(name, fe.Params, fe.Body, name); err != nil {
			return err
		}
	} else {
		if err := c.compileNonTail(val); err != nil {
			return err
		}
	}
	c.emit(bytecode.OpStoreLocal, int32(slot))
	return nil
}

func (c *Compiler) compileFunctionDeclaration(fd *typedast.FunctionDeclaration) error {
	slot := c.cur.getOrCreateLocal(fd.Name)
	funcIdx, err := c.compileFunctionCommon(fd.Name, fd.Params, fd.Body, fd.Name)
	if err != nil {
		return err
	}
	c.emit(bytecode.OpStoreLocal, int32(slot))

	// Register fd.Name in the flat function namespace (§4.3) so a call site
	// still reaches this function even after a nested scope rebinds the same
	// name as an ordinary local — resolve_variable's lexical search would
	// otherwise find the shadowing local instead. A frozen env keeps the
	// registrations the type checker already made.
	if !c.env.Frozen() {
		c.env.RegisterFunction(&typeenv.TypeFunction{Name: fd.Name, Arity: len(fd.Params)})
	}
	c.funcIdxByName[fd.Name] = funcIdx
	return nil
}

// compilePatternBinding destructures Value against Pattern, binding every
// name the pattern introduces as a local of the current function.
func (c *Compiler) compilePatternBinding(s *typedast.TypePatternBinding) error {
	if err := c.compileNonTail(s.Value); err != nil {
		return err
	}
	failJumps, err := c.compilePattern(s.Pattern)
	if err != nil {
		return err
	}
	// A destructuring let is only valid for patterns the type checker has
	// already proven exhaustive against Value's type; there is no arm to
	// fall through to. A failed test jumps straight to the final pop: no
	// error is reported, and names the pattern had not yet stored keep
	// their previous slot values.
	here := int32(c.prog.Here())
	for _, addr := range failJumps {
		c.prog.Patch(addr, here)
	}
	c.emit(bytecode.OpPop, 0)
	return nil
}
