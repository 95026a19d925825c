package compiler

import (
	"strings"

	"github.com/wisplang/wisp/internal/bytecode"
	"github.com/wisplang/wisp/internal/typedast"
	"github.com/wisplang/wisp/internal/value"
)

func (c *Compiler) compileExpr(expr typedast.Expression) error {
	switch e := expr.(type) {
	case *typedast.NumberLiteral:
		if e.IsFloat {
			c.emit(bytecode.OpPushConst, c.addConstant(value.Float(e.FloatValue)))
		} else {
			c.emit(bytecode.OpPushConst, c.addConstant(value.Int(e.IntValue)))
		}
		return nil

	case *typedast.StringLiteral:
		c.emit(bytecode.OpPushConst, c.addConstant(value.String(e.Value)))
		return nil

	case *typedast.InterpolatedString:
		return c.compileInterpolatedString(e)

	case *typedast.BooleanLiteral:
		if e.Value {
			c.emit(bytecode.OpPushTrue, 0)
		} else {
			c.emit(bytecode.OpPushFalse, 0)
		}
		return nil

	case *typedast.NoneLiteral:
		c.emit(bytecode.OpPushNone, 0)
		return nil

	case *typedast.Identifier:
		return c.compileIdentifier(e)

	case *typedast.BinaryExpression:
		return c.compileBinary(e)

	case *typedast.UnaryExpression:
		return c.compileUnary(e)

	case *typedast.IfExpression:
		return c.compileIf(e)

	case *typedast.MatchExpression:
		return c.compileMatch(e)

	case *typedast.BlockExpression:
		return c.compileBlockBody(e)

	case *typedast.FunctionExpression:
		_, err := c.compileFunctionCommon("", e.Params, e.Body, "<anonymous>")
		return err

	case *typedast.FunctionCallExpression:
		return c.compileCall(e)

	case *typedast.ArrayExpression:
		return c.compileArrayExpr(e)

	case *typedast.ArrayIndexExpression:
		if err := c.compileNonTail(e.Array); err != nil {
			return err
		}
		if err := c.compileNonTail(e.Index); err != nil {
			return err
		}
		c.emit(bytecode.OpIndex, 0)
		return nil

	case *typedast.RangeExpression:
		if err := c.compileNonTail(e.Start); err != nil {
			return err
		}
		if err := c.compileNonTail(e.End); err != nil {
			return err
		}
		c.emit(bytecode.OpMakeRange, 0)
		return nil

	case *typedast.PropertyAccessExpression:
		return c.compilePropertyAccess(e)

	case *typedast.StructInitExpression:
		return c.compileStructInit(e)

	case *typedast.AssertExpression:
		return c.compileAssert(e)

	case *typedast.ErrorExpression:
		if err := c.compileNonTail(e.Inner); err != nil {
			return err
		}
		c.emit(bytecode.OpMakeError, 0)
		return nil

	case *typedast.OrExpression:
		return c.compileOr(e)

	case *typedast.PropagateNoneExpression:
		return c.compilePropagateNone(e)

	case *typedast.ErrorNode:
		return errorf(e.Span(), "cannot compile an unresolved node: %s", e.Message)

	default:
		return errorf(expr.Span(), "unhandled expression type %T", expr)
	}
}

func (c *Compiler) compileInterpolatedString(e *typedast.InterpolatedString) error {
	if len(e.Parts) == 0 {
		c.emit(bytecode.OpPushConst, c.addConstant(value.String("")))
		return nil
	}
	for i, part := range e.Parts {
		if err := c.compileNonTail(part); err != nil {
			return err
		}
		c.emit(bytecode.OpToString, 0)
		if i > 0 {
			c.emit(bytecode.OpStrConcat, 0)
		}
	}
	return nil
}

func (c *Compiler) compileIdentifier(e *typedast.Identifier) error {
	r := c.resolveVariable(c.cur, e.Name)
	switch r.kind {
	case refLocal:
		c.emit(bytecode.OpPushLocal, int32(r.idx))
	case refCapture:
		c.emit(bytecode.OpPushCapture, int32(r.idx))
	case refSelf:
		c.emit(bytecode.OpPushSelf, 0)
	default:
		return errorf(e.Span(), "unknown identifier %q", e.Name)
	}
	return nil
}

func (c *Compiler) compileBinary(e *typedast.BinaryExpression) error {
	switch e.Op {
	case typedast.OpLogicalAnd:
		if err := c.compileNonTail(e.Left); err != nil {
			return err
		}
		c.emit(bytecode.OpDup, 0)
		endAddr := c.emit(bytecode.OpJumpIfFalse, -1)
		c.emit(bytecode.OpPop, 0)
		if err := c.compileNonTail(e.Right); err != nil {
			return err
		}
		c.prog.Patch(endAddr, int32(c.prog.Here()))
		return nil

	case typedast.OpLogicalOr:
		if err := c.compileNonTail(e.Left); err != nil {
			return err
		}
		c.emit(bytecode.OpDup, 0)
		endAddr := c.emit(bytecode.OpJumpIfTrue, -1)
		c.emit(bytecode.OpPop, 0)
		if err := c.compileNonTail(e.Right); err != nil {
			return err
		}
		c.prog.Patch(endAddr, int32(c.prog.Here()))
		return nil
	}

	if err := c.compileNonTail(e.Left); err != nil {
		return err
	}
	if err := c.compileNonTail(e.Right); err != nil {
		return err
	}
	op, ok := binOpcodes[e.Op]
	if !ok {
		return errorf(e.Span(), "unhandled binary operator")
	}
	c.emit(op, 0)
	return nil
}

var binOpcodes = map[typedast.BinaryOp]bytecode.Opcode{
	typedast.OpAdd: bytecode.OpAdd,
	typedast.OpSub: bytecode.OpSub,
	typedast.OpMul: bytecode.OpMul,
	typedast.OpDiv: bytecode.OpDiv,
	typedast.OpMod: bytecode.OpMod,
	typedast.OpEq:  bytecode.OpEq,
	typedast.OpNe:  bytecode.OpNe,
	typedast.OpLt:  bytecode.OpLt,
	typedast.OpLe:  bytecode.OpLe,
	typedast.OpGt:  bytecode.OpGt,
	typedast.OpGe:  bytecode.OpGe,
}

func (c *Compiler) compileUnary(e *typedast.UnaryExpression) error {
	if err := c.compileNonTail(e.Operand); err != nil {
		return err
	}
	switch e.Op {
	case typedast.OpNeg:
		c.emit(bytecode.OpNeg, 0)
	case typedast.OpNot:
		c.emit(bytecode.OpNot, 0)
	default:
		return errorf(e.Span(), "unhandled unary operator")
	}
	return nil
}

func (c *Compiler) compileIf(e *typedast.IfExpression) error {
	// The condition is never itself in tail position even when the whole
	// if-expression is; only whichever branch runs inherits that status.
	outerTail := c.cur.inTailPosition
	c.cur.inTailPosition = false
	err := c.compileExpr(e.Cond)
	c.cur.inTailPosition = outerTail
	if err != nil {
		return err
	}
	elseAddr := c.emit(bytecode.OpJumpIfFalse, -1)
	if err := c.compileExpr(e.Then); err != nil {
		return err
	}
	endAddr := c.emit(bytecode.OpJump, -1)
	c.prog.Patch(elseAddr, int32(c.prog.Here()))
	if e.Else != nil {
		if err := c.compileExpr(e.Else); err != nil {
			return err
		}
	} else {
		c.emit(bytecode.OpPushNone, 0)
	}
	c.prog.Patch(endAddr, int32(c.prog.Here()))
	return nil
}

func (c *Compiler) compileMatch(e *typedast.MatchExpression) error {
	if err := c.compileNonTail(e.Subject); err != nil {
		return err
	}
	var endJumps []int
	for _, arm := range e.Arms {
		failJumps, err := c.compilePattern(arm.Pattern)
		if err != nil {
			return err
		}
		c.emit(bytecode.OpPop, 0) // discard the subject, arm matched
		if err := c.compileExpr(arm.Body); err != nil {
			return err
		}
		endJumps = append(endJumps, c.emit(bytecode.OpJump, -1))
		here := int32(c.prog.Here())
		for _, addr := range failJumps {
			c.prog.Patch(addr, here)
		}
	}
	// No arm matched; the type checker is responsible for proving
	// exhaustiveness where claimed, but the compiler always emits this
	// fallthrough rather than assuming it unreachable.
	c.emit(bytecode.OpPop, 0)
	c.emit(bytecode.OpPushNone, 0)
	end := int32(c.prog.Here())
	for _, addr := range endJumps {
		c.prog.Patch(addr, end)
	}
	return nil
}

func (c *Compiler) compileArrayExpr(e *typedast.ArrayExpression) error {
	hasSpread := false
	for _, el := range e.Elements {
		if _, ok := el.(*typedast.SpreadExpression); ok {
			hasSpread = true
			break
		}
	}
	if !hasSpread {
		for _, el := range e.Elements {
			if err := c.compileNonTail(el); err != nil {
				return err
			}
		}
		c.emit(bytecode.OpMakeArray, int32(len(e.Elements)))
		return nil
	}

	haveResult := false
	var run []typedast.Expression
	flushRun := func() error {
		if len(run) == 0 {
			return nil
		}
		for _, el := range run {
			if err := c.compileNonTail(el); err != nil {
				return err
			}
		}
		c.emit(bytecode.OpMakeArray, int32(len(run)))
		if haveResult {
			c.emit(bytecode.OpArrayConcat, 0)
		}
		haveResult = true
		run = nil
		return nil
	}
	for _, el := range e.Elements {
		if sp, ok := el.(*typedast.SpreadExpression); ok {
			if err := flushRun(); err != nil {
				return err
			}
			if err := c.compileNonTail(sp.Inner); err != nil {
				return err
			}
			if haveResult {
				c.emit(bytecode.OpArrayConcat, 0)
			}
			haveResult = true
			continue
		}
		run = append(run, el)
	}
	if err := flushRun(); err != nil {
		return err
	}
	if !haveResult {
		c.emit(bytecode.OpMakeArray, 0)
	}
	return nil
}

func (c *Compiler) compilePropertyAccess(e *typedast.PropertyAccessExpression) error {
	if ti, ok := e.Object.(*typedast.TypeIdentifier); ok {
		if enumDef, ok := c.env.LookupEnum(ti.Name); ok {
			variant, ok := enumDef.Variant(e.Property)
			if !ok {
				return errorf(e.Span(), "enum %q has no variant %q", ti.Name, e.Property)
			}
			if variant.Arity != 0 {
				return errorf(e.Span(), "variant %s.%s requires %d payload values", ti.Name, e.Property, variant.Arity)
			}
			c.emit(bytecode.OpPushConst, c.addConstant(value.Int(int64(enumDef.TypeID))))
			c.emit(bytecode.OpPushConst, c.addConstant(value.String(enumDef.Name)))
			c.emit(bytecode.OpPushConst, c.addConstant(value.String(variant.Name)))
			c.emit(bytecode.OpMakeEnum, 0)
			return nil
		}
	}
	if err := c.compileNonTail(e.Object); err != nil {
		return err
	}
	c.emit(bytecode.OpGetField, c.addConstant(value.String(e.Property)))
	return nil
}

func (c *Compiler) compileStructInit(e *typedast.StructInitExpression) error {
	structDef, ok := c.env.LookupStruct(e.TypeName)
	if !ok {
		return errorf(e.Span(), "unknown struct %q", e.TypeName)
	}
	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if !structDef.HasField(f.Name) {
			return errorf(e.Span(), "struct %q has no field %q", e.TypeName, f.Name)
		}
		if seen[f.Name] {
			return errorf(e.Span(), "duplicate field %q in %s literal", f.Name, e.TypeName)
		}
		seen[f.Name] = true
	}
	if len(seen) != len(structDef.Fields) {
		missing := make([]string, 0, len(structDef.Fields))
		for _, fn := range structDef.Fields {
			if !seen[fn] {
				missing = append(missing, fn)
			}
		}
		return errorf(e.Span(), "missing field(s) %s in %s literal", strings.Join(missing, ", "), e.TypeName)
	}
	for _, f := range e.Fields {
		c.emit(bytecode.OpPushConst, c.addConstant(value.String(f.Name)))
		if err := c.compileNonTail(f.Value); err != nil {
			return err
		}
	}
	c.emit(bytecode.OpPushConst, c.addConstant(value.Int(int64(structDef.TypeID))))
	c.emit(bytecode.OpPushConst, c.addConstant(value.String(structDef.Name)))
	c.emit(bytecode.OpMakeStruct, int32(len(e.Fields)))
	return nil
}

func (c *Compiler) compileAssert(e *typedast.AssertExpression) error {
	if err := c.compileNonTail(e.Condition); err != nil {
		return err
	}
	okAddr := c.emit(bytecode.OpJumpIfTrue, -1)
	if err := c.compileNonTail(e.Message); err != nil {
		return err
	}
	c.emit(bytecode.OpMakeError, 0)
	c.emit(bytecode.OpRet, 0)
	c.prog.Patch(okAddr, int32(c.prog.Here()))
	c.emit(bytecode.OpPushNone, 0)
	return nil
}

func (c *Compiler) compileOr(e *typedast.OrExpression) error {
	if err := c.compileNonTail(e.Inner); err != nil {
		return err
	}
	switch e.ResolvedType().Kind {
	case typedast.KindResult:
		c.emit(bytecode.OpDup, 0)
		c.emit(bytecode.OpIsError, 0)
		contAddr := c.emit(bytecode.OpJumpIfFalse, -1)
		c.emit(bytecode.OpUnwrapError, 0)
		if e.ReceiverName != "" {
			slot := c.cur.getOrCreateLocal(e.ReceiverName)
			c.emit(bytecode.OpStoreLocal, int32(slot))
		} else {
			c.emit(bytecode.OpPop, 0)
		}
		if err := c.compileBlockBody(e.Fallback); err != nil {
			return err
		}
		c.prog.Patch(contAddr, int32(c.prog.Here()))
		return nil

	default: // Option, or unresolved — fall back to the None-check form.
		c.emit(bytecode.OpDup, 0)
		c.emit(bytecode.OpIsNone, 0)
		contAddr := c.emit(bytecode.OpJumpIfFalse, -1)
		c.emit(bytecode.OpPop, 0)
		if err := c.compileBlockBody(e.Fallback); err != nil {
			return err
		}
		c.prog.Patch(contAddr, int32(c.prog.Here()))
		return nil
	}
}

func (c *Compiler) compilePropagateNone(e *typedast.PropagateNoneExpression) error {
	if err := c.compileNonTail(e.Inner); err != nil {
		return err
	}
	c.emit(bytecode.OpDup, 0)
	c.emit(bytecode.OpIsNone, 0)
	contAddr := c.emit(bytecode.OpJumpIfFalse, -1)
	c.emit(bytecode.OpRet, 0)
	c.prog.Patch(contAddr, int32(c.prog.Here()))
	return nil
}
