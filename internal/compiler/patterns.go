package compiler

import (
	"github.com/wisplang/wisp/internal/bytecode"
	"github.com/wisplang/wisp/internal/typedast"
	"github.com/wisplang/wisp/internal/typeenv"
	"github.com/wisplang/wisp/internal/value"
)

// compilePattern lowers one pattern in pattern position. Precondition: the
// subject value sits exactly once on top of the operand stack.
// Postcondition on the fall-through (match) path: the subject still sits
// exactly once on top of the stack, and every name the pattern binds has
// been stored into a local. The returned addresses are jump_if_false (or
// unconditional jump, for or-patterns' final miss) instructions whose
// operand the caller must patch to the arm's NEXT_ARM address.
func (c *Compiler) compilePattern(pattern typedast.Expression) ([]int, error) {
	switch p := pattern.(type) {
	case *typedast.WildcardPattern:
		return nil, nil

	case *typedast.Identifier:
		if enumDef, variant, ok := c.lookupNullaryVariant(p.Name); ok {
			return c.compileEnumPattern(enumDef, variant, nil)
		}
		c.emit(bytecode.OpDup, 0)
		slot := c.cur.getOrCreateLocal(p.Name)
		c.emit(bytecode.OpStoreLocal, int32(slot))
		return nil, nil

	case *typedast.NumberLiteral, *typedast.StringLiteral, *typedast.BooleanLiteral, *typedast.NoneLiteral:
		c.emit(bytecode.OpDup, 0)
		if err := c.compileNonTail(pattern); err != nil {
			return nil, err
		}
		c.emit(bytecode.OpEq, 0)
		addr := c.emit(bytecode.OpJumpIfFalse, -1)
		return []int{addr}, nil

	case *typedast.PropertyAccessExpression:
		ti, ok := p.Object.(*typedast.TypeIdentifier)
		if !ok {
			return nil, errorf(pattern.Span(), "unsupported pattern form: property access on non-type object")
		}
		enumDef, ok := c.env.LookupEnum(ti.Name)
		if !ok {
			return nil, errorf(pattern.Span(), "unknown enum %q in pattern", ti.Name)
		}
		variant, ok := enumDef.Variant(p.Property)
		if !ok {
			return nil, errorf(pattern.Span(), "enum %q has no variant %q", ti.Name, p.Property)
		}
		return c.compileEnumPattern(enumDef, variant, nil)

	case *typedast.FunctionCallExpression:
		access, ok := p.Callee.(*typedast.PropertyAccessExpression)
		if !ok {
			return nil, errorf(pattern.Span(), "unsupported call form in pattern position")
		}
		ti, ok := access.Object.(*typedast.TypeIdentifier)
		if !ok {
			return nil, errorf(pattern.Span(), "unsupported pattern form: call on non-enum-variant")
		}
		enumDef, ok := c.env.LookupEnum(ti.Name)
		if !ok {
			return nil, errorf(pattern.Span(), "unknown enum %q in pattern", ti.Name)
		}
		variant, ok := enumDef.Variant(access.Property)
		if !ok {
			return nil, errorf(pattern.Span(), "enum %q has no variant %q", ti.Name, access.Property)
		}
		if variant.Arity != len(p.Args) {
			return nil, errorf(pattern.Span(), "variant %s.%s expects %d payload values, pattern supplies %d", ti.Name, access.Property, variant.Arity, len(p.Args))
		}
		return c.compileEnumPattern(enumDef, variant, p.Args)

	case *typedast.ArrayExpression:
		return c.compileArrayPattern(p)

	case *typedast.OrPattern:
		return c.compileOrPattern(p)

	default:
		return nil, errorf(pattern.Span(), "unhandled pattern type %T", pattern)
	}
}

func (c *Compiler) lookupNullaryVariant(name string) (*typeenv.TypeEnum, typeenv.EnumVariant, bool) {
	enumDef, ok := c.env.LookupEnumByVariant(name)
	if !ok {
		return nil, typeenv.EnumVariant{}, false
	}
	variant, ok := enumDef.Variant(name)
	if !ok || variant.Arity != 0 {
		return nil, typeenv.EnumVariant{}, false
	}
	return enumDef, variant, true
}

// compileEnumPattern lowers an enum pattern (bare `Variant`, `Enum.Variant`,
// or `Enum.Variant(args)`). argPatterns is nil for a pattern with no
// payload capture at all (the variant may still have payload at runtime;
// it is simply discarded).
func (c *Compiler) compileEnumPattern(enumDef *typeenv.TypeEnum, variant typeenv.EnumVariant, argPatterns []typedast.Expression) ([]int, error) {
	var failJumps []int

	c.emit(bytecode.OpDup, 0)
	c.emit(bytecode.OpPushConst, c.addConstant(value.Int(int64(enumDef.TypeID))))
	c.emit(bytecode.OpPushConst, c.addConstant(value.String(enumDef.Name)))
	c.emit(bytecode.OpPushConst, c.addConstant(value.String(variant.Name)))
	c.emit(bytecode.OpMatchEnum, 0)
	addr := c.emit(bytecode.OpJumpIfFalse, -1)
	failJumps = append(failJumps, addr)

	if variant.Arity > 0 && argPatterns != nil {
		n := variant.Arity
		c.emit(bytecode.OpDup, 0)
		c.emit(bytecode.OpUnwrapEnum, 0)

		tempSlots := make([]int, n)
		for i := n - 1; i >= 0; i-- {
			tempSlots[i] = c.cur.newTempLocal()
			c.emit(bytecode.OpStoreLocal, int32(tempSlots[i]))
		}

		for i := 0; i < n; i++ {
			switch sub := argPatterns[i].(type) {
			case *typedast.WildcardPattern:
				// value already safely parked in a temp local; nothing to do.
			case *typedast.Identifier:
				slot := c.cur.getOrCreateLocal(sub.Name)
				c.emit(bytecode.OpPushLocal, int32(tempSlots[i]))
				c.emit(bytecode.OpStoreLocal, int32(slot))
			default:
				c.emit(bytecode.OpPushLocal, int32(tempSlots[i]))
				if err := c.compileNonTail(sub); err != nil {
					return nil, err
				}
				c.emit(bytecode.OpEq, 0)
				litAddr := c.emit(bytecode.OpJumpIfFalse, -1)
				failJumps = append(failJumps, litAddr)
			}
		}
	}

	return failJumps, nil
}

func (c *Compiler) compileArrayPattern(node *typedast.ArrayExpression) ([]int, error) {
	var failJumps []int

	positional := node.Elements
	hasRest := false
	restName := ""
	if len(node.Elements) > 0 {
		if sp, ok := node.Elements[len(node.Elements)-1].(*typedast.SpreadExpression); ok {
			hasRest = true
			positional = node.Elements[:len(node.Elements)-1]
			switch inner := sp.Inner.(type) {
			case *typedast.Identifier:
				restName = inner.Name
			case *typedast.WildcardPattern:
				restName = ""
			default:
				return nil, errorf(sp.Span(), "unsupported rest-pattern form")
			}
		}
	}

	n := int32(len(positional))
	c.emit(bytecode.OpDup, 0)
	c.emit(bytecode.OpArrayLen, 0)
	c.emit(bytecode.OpPushConst, c.addConstant(value.Int(int64(n))))
	if hasRest {
		c.emit(bytecode.OpGe, 0)
	} else {
		c.emit(bytecode.OpEq, 0)
	}
	addr := c.emit(bytecode.OpJumpIfFalse, -1)
	failJumps = append(failJumps, addr)

	for i, el := range positional {
		switch p := el.(type) {
		case *typedast.WildcardPattern:
			continue
		case *typedast.Identifier:
			c.emit(bytecode.OpDup, 0)
			c.emit(bytecode.OpPushConst, c.addConstant(value.Int(int64(i))))
			c.emit(bytecode.OpIndex, 0)
			slot := c.cur.getOrCreateLocal(p.Name)
			c.emit(bytecode.OpStoreLocal, int32(slot))
		default:
			c.emit(bytecode.OpDup, 0)
			c.emit(bytecode.OpPushConst, c.addConstant(value.Int(int64(i))))
			c.emit(bytecode.OpIndex, 0)
			if err := c.compileNonTail(p); err != nil {
				return nil, err
			}
			c.emit(bytecode.OpEq, 0)
			litAddr := c.emit(bytecode.OpJumpIfFalse, -1)
			failJumps = append(failJumps, litAddr)
		}
	}

	if hasRest && restName != "" {
		c.emit(bytecode.OpDup, 0)
		c.emit(bytecode.OpPushConst, c.addConstant(value.Int(int64(n))))
		c.emit(bytecode.OpArraySlice, 0)
		slot := c.cur.getOrCreateLocal(restName)
		c.emit(bytecode.OpStoreLocal, int32(slot))
	}

	return failJumps, nil
}

// compileOrPattern lowers `p1 | p2 | ...` as a disjunction of equality
// tests against the subject. No sub-pattern may bind a name — see the
// Open Question this resolves in DESIGN.md.
func (c *Compiler) compileOrPattern(node *typedast.OrPattern) ([]int, error) {
	var matchJumps []int
	for _, alt := range node.Alternatives {
		c.emit(bytecode.OpDup, 0)
		if err := c.compileNonTail(alt); err != nil {
			return nil, err
		}
		c.emit(bytecode.OpEq, 0)
		addr := c.emit(bytecode.OpJumpIfTrue, -1)
		matchJumps = append(matchJumps, addr)
	}
	miss := c.emit(bytecode.OpJump, -1)
	for _, addr := range matchJumps {
		c.prog.Patch(addr, int32(c.prog.Here()))
	}
	return []int{miss}, nil
}
