package vm

import (
	"github.com/wisplang/wisp/internal/bytecode"
	"github.com/wisplang/wisp/internal/value"
)

// call implements both OpCall and OpTailCall. The stack on entry holds
// [..., arg0, arg1, ..., argN-1, callee] — the callee is popped first, then
// the arguments are already sitting where the callee's locals need to
// start.
//
// A tail call reuses the current frame in place instead of pushing a new
// one: the arguments are copied down to the current frame's base and
// *vm.frame is overwritten with the callee's funcIdx/ip/base/captures. This
// keeps a tail-recursive function's Go-level call-stack depth (the depth of
// the frames slice) bounded regardless of how many times it recurses.
func (vm *VM) call(arity int, tail bool) error {
	calleeV := vm.pop()
	if calleeV.Tag != value.TagClosure {
		return vm.errorf("call expects a Closure, got %s", calleeV.Tag)
	}
	closure := calleeV.AsClosure()
	if closure.FuncIdx < 0 || closure.FuncIdx >= len(vm.prog.Functions) {
		return vm.errorf("invalid function index %d", closure.FuncIdx)
	}
	fn := vm.prog.Functions[closure.FuncIdx]
	if arity != fn.Arity {
		return vm.errorf("%s expects %d argument(s), got %d", fn.Name, fn.Arity, arity)
	}

	argsBase := vm.sp - arity

	if tail {
		copy(vm.stack[vm.frame.base:vm.frame.base+arity], vm.stack[argsBase:vm.sp])
		newBase := vm.frame.base
		vm.sp = newBase + arity
		vm.growLocals(newBase, fn.Locals)
		vm.frame.funcIdx = closure.FuncIdx
		vm.frame.ip = fn.CodeStart
		vm.frame.base = newBase
		vm.frame.captures = closure.Captures
		return nil
	}

	vm.growLocals(argsBase, fn.Locals)
	return vm.pushFrame(CallFrame{
		funcIdx:  closure.FuncIdx,
		ip:       fn.CodeStart,
		base:     argsBase,
		captures: closure.Captures,
	})
}

// growLocals extends the operand stack so the callee has fn.Locals slots
// starting at base (its parameter slots were already pushed by the caller;
// the remaining Locals-Arity slots are zero-filled with None).
func (vm *VM) growLocals(base, locals int) {
	want := base + locals
	for want > len(vm.stack) {
		grown := make([]value.Value, len(vm.stack)+stackGrowthIncr)
		copy(grown, vm.stack[:vm.sp])
		vm.stack = grown
	}
	for i := vm.sp; i < want; i++ {
		vm.stack[i] = value.None()
	}
	vm.sp = want
}

func (vm *VM) arith(op bytecode.Opcode) error {
	b, a := vm.pop(), vm.pop()

	if a.Tag == value.TagString && b.Tag == value.TagString && op == bytecode.OpAdd {
		vm.push(value.String(a.AsString() + b.AsString()))
		return nil
	}

	if a.Tag == value.TagFloat || b.Tag == value.TagFloat {
		af, bf, err := asFloats(a, b)
		if err != nil {
			return err
		}
		switch op {
		case bytecode.OpAdd:
			vm.push(value.Float(af + bf))
		case bytecode.OpSub:
			vm.push(value.Float(af - bf))
		case bytecode.OpMul:
			vm.push(value.Float(af * bf))
		case bytecode.OpDiv:
			if bf == 0 {
				return vm.errorf("division by zero")
			}
			vm.push(value.Float(af / bf))
		case bytecode.OpMod:
			return vm.errorf("%% is not defined for Float operands")
		}
		return nil
	}

	if a.Tag != value.TagInt || b.Tag != value.TagInt {
		return vm.errorf("arithmetic expects Int or Float operands, got %s and %s", a.Tag, b.Tag)
	}
	ai, bi := a.AsInt(), b.AsInt()
	switch op {
	case bytecode.OpAdd:
		vm.push(value.Int(ai + bi))
	case bytecode.OpSub:
		vm.push(value.Int(ai - bi))
	case bytecode.OpMul:
		vm.push(value.Int(ai * bi))
	case bytecode.OpDiv:
		if bi == 0 {
			return vm.errorf("division by zero")
		}
		vm.push(value.Int(ai / bi))
	case bytecode.OpMod:
		if bi == 0 {
			return vm.errorf("division by zero")
		}
		vm.push(value.Int(ai % bi))
	}
	return nil
}

// compareOp implements <, <=, >, >= — numeric only (Int or Float, mixed
// permitted, coerced through asFloats); there is no lexicographic ordering
// for Strings or any other tag.
func (vm *VM) compareOp(op bytecode.Opcode) error {
	b, a := vm.pop(), vm.pop()

	af, bf, err := asFloats(a, b)
	if err != nil {
		return err
	}
	var result bool
	switch op {
	case bytecode.OpLt:
		result = af < bf
	case bytecode.OpLe:
		result = af <= bf
	case bytecode.OpGt:
		result = af > bf
	case bytecode.OpGe:
		result = af >= bf
	}
	vm.push(value.Bool(result))
	return nil
}

func asFloats(a, b value.Value) (float64, float64, error) {
	af, err := asFloat(a)
	if err != nil {
		return 0, 0, err
	}
	bf, err := asFloat(b)
	if err != nil {
		return 0, 0, err
	}
	return af, bf, nil
}

func asFloat(v value.Value) (float64, error) {
	switch v.Tag {
	case value.TagInt:
		return float64(v.AsInt()), nil
	case value.TagFloat:
		return v.AsFloat(), nil
	default:
		return 0, &Error{Message: "comparison/arithmetic expects Int or Float, got " + v.Tag.String()}
	}
}
