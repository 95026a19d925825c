package vm

import (
	"fmt"

	"github.com/wisplang/wisp/internal/bytecode"
	"github.com/wisplang/wisp/internal/value"
)

// execute is the main dispatch loop. Stack-discipline faults (underflow,
// an out-of-range constant or capture index) are raised as *Error panics
// by push/pop/peek and the helpers below; the one recover point here
// turns those back into a returned *Error. Any other panic (for example a
// Go runtime index error from an out-of-range local slot) is re-raised.
func (vm *VM) execute() (result value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*Error); ok {
				result, err = value.None(), e
				return
			}
			panic(r)
		}
	}()

	for {
		if vm.frame.ip >= len(vm.prog.Code) {
			return value.None(), vm.errorf("instruction pointer ran off the end of the program")
		}
		instr := vm.prog.Code[vm.frame.ip]
		vm.frame.ip++

		switch instr.Op {
		case bytecode.OpPushConst:
			vm.push(vm.constant(instr.Operand))
		case bytecode.OpPop:
			vm.pop()
		case bytecode.OpDup:
			vm.push(vm.peek(0))
		case bytecode.OpSwap:
			a, b := vm.pop(), vm.pop()
			vm.push(a)
			vm.push(b)
		case bytecode.OpPushNone:
			vm.push(value.None())
		case bytecode.OpPushTrue:
			vm.push(value.Bool(true))
		case bytecode.OpPushFalse:
			vm.push(value.Bool(false))

		case bytecode.OpPushLocal:
			vm.push(vm.stack[vm.frame.base+int(instr.Operand)])
		case bytecode.OpStoreLocal:
			vm.stack[vm.frame.base+int(instr.Operand)] = vm.pop()
		case bytecode.OpPushCapture:
			idx := int(instr.Operand)
			if idx < 0 || idx >= len(vm.frame.captures) {
				panic(vm.errorf("capture index %d out of range", idx))
			}
			vm.push(vm.frame.captures[idx])
		case bytecode.OpPushSelf:
			fn := vm.prog.Functions[vm.frame.funcIdx]
			vm.push(value.ClosureVal(&value.Closure{FuncIdx: vm.frame.funcIdx, Captures: vm.frame.captures, Name: fn.Name}))

		case bytecode.OpJump:
			vm.frame.ip = int(instr.Operand)
		case bytecode.OpJumpIfFalse:
			if !vm.truthy(vm.pop()) {
				vm.frame.ip = int(instr.Operand)
			}
		case bytecode.OpJumpIfTrue:
			if vm.truthy(vm.pop()) {
				vm.frame.ip = int(instr.Operand)
			}

		case bytecode.OpCall:
			if err := vm.call(int(instr.Operand), false); err != nil {
				return value.None(), err
			}
		case bytecode.OpTailCall:
			if err := vm.call(int(instr.Operand), true); err != nil {
				return value.None(), err
			}
		case bytecode.OpRet:
			result := vm.pop()
			retBase := vm.frame.base
			vm.frameCount--
			if vm.frameCount == 0 {
				return result, nil
			}
			vm.sp = retBase
			vm.frame = &vm.frames[vm.frameCount-1]
			vm.push(result)

		case bytecode.OpMakeClosure:
			vm.makeClosure(int(instr.Operand))

		case bytecode.OpMakeArray:
			n := int(instr.Operand)
			elems := make([]value.Value, n)
			for i := n - 1; i >= 0; i-- {
				elems[i] = vm.pop()
			}
			vm.push(value.Array(elems))
		case bytecode.OpArrayConcat:
			b, a := vm.pop(), vm.pop()
			if a.Tag != value.TagArray || b.Tag != value.TagArray {
				panic(vm.errorf("array_concat expects two arrays, got %s and %s", a.Tag, b.Tag))
			}
			out := make([]value.Value, 0, len(a.AsArray())+len(b.AsArray()))
			out = append(out, a.AsArray()...)
			out = append(out, b.AsArray()...)
			vm.push(value.Array(out))
		case bytecode.OpArraySlice:
			startV, arrV := vm.pop(), vm.pop()
			if arrV.Tag != value.TagArray {
				panic(vm.errorf("array_slice expects an array, got %s", arrV.Tag))
			}
			arr := arrV.AsArray()
			start := int(startV.AsInt())
			if start < 0 || start > len(arr) {
				panic(vm.errorf("array_slice start %d out of bounds for array of length %d", start, len(arr)))
			}
			out := make([]value.Value, len(arr)-start)
			copy(out, arr[start:])
			vm.push(value.Array(out))
		case bytecode.OpArrayLen:
			arrV := vm.pop()
			if arrV.Tag != value.TagArray {
				panic(vm.errorf("array_len expects an array, got %s", arrV.Tag))
			}
			vm.push(value.Int(int64(len(arrV.AsArray()))))
		case bytecode.OpIndex:
			idxV, arrV := vm.pop(), vm.pop()
			if arrV.Tag != value.TagArray {
				panic(vm.errorf("index expects an array, got %s", arrV.Tag))
			}
			arr := arrV.AsArray()
			i := int(idxV.AsInt())
			if i < 0 || i >= len(arr) {
				vm.push(value.None())
			} else {
				vm.push(arr[i])
			}
		case bytecode.OpMakeRange:
			// Half-open: `start..end` yields [start, end). An empty or
			// reversed range (end <= start) yields an empty array rather
			// than erroring.
			endV, startV := vm.pop(), vm.pop()
			start, end := startV.AsInt(), endV.AsInt()
			var elems []value.Value
			for i := start; i < end; i++ {
				elems = append(elems, value.Int(i))
			}
			vm.push(value.Array(elems))

		case bytecode.OpGetField:
			name := vm.constant(instr.Operand).AsString()
			sv := vm.pop()
			if sv.Tag != value.TagStruct {
				panic(vm.errorf("get_field expects a struct, got %s", sv.Tag))
			}
			fv, ok := sv.AsStruct().Fields[name]
			if !ok {
				panic(vm.errorf("struct %s has no field %q", sv.AsStruct().TypeName, name))
			}
			vm.push(fv)
		case bytecode.OpMakeStruct:
			vm.makeStruct(int(instr.Operand))

		case bytecode.OpMatchEnum:
			vm.matchEnum()
		case bytecode.OpUnwrapEnum:
			ev := vm.pop()
			if ev.Tag != value.TagEnum {
				panic(vm.errorf("unwrap_enum expects an enum, got %s", ev.Tag))
			}
			for _, p := range ev.AsEnum().Payload {
				vm.push(p)
			}
		case bytecode.OpMakeEnum:
			variantName, enumName, typeID := vm.pop().AsString(), vm.pop().AsString(), vm.pop().AsInt()
			vm.push(value.EnumVal(&value.Enum{
				TypeID: int(typeID), EnumName: enumName, VariantName: variantName,
				Hash: value.HashEnum(enumName, variantName, nil),
			}))
		case bytecode.OpMakeEnumPayload:
			vm.makeEnumPayload(int(instr.Operand))

		case bytecode.OpMakeError:
			vm.push(value.ErrorVal(vm.pop()))
		case bytecode.OpIsError:
			vm.push(value.Bool(vm.pop().IsError()))
		case bytecode.OpIsNone:
			vm.push(value.Bool(vm.pop().IsNone()))
		case bytecode.OpUnwrapError:
			v := vm.pop()
			if v.Tag != value.TagError {
				panic(vm.errorf("unwrap_error expects an error, got %s", v.Tag))
			}
			vm.push(v.AsError().Payload)

		case bytecode.OpToString:
			vm.push(value.String(vm.toStringValue(vm.pop())))
		case bytecode.OpStrConcat:
			b, a := vm.pop(), vm.pop()
			if a.Tag != value.TagString || b.Tag != value.TagString {
				panic(vm.errorf("str_concat expects two strings, got %s and %s", a.Tag, b.Tag))
			}
			vm.push(value.String(a.AsString() + b.AsString()))

		case bytecode.OpPrintln:
			v := vm.pop()
			fmt.Fprintln(vm.out, value.InspectPretty(v, vm.colorInspect))
			vm.push(value.None())
		case bytecode.OpInspect:
			v := vm.pop()
			vm.push(value.String(value.InspectPretty(v, vm.colorInspect)))

		case bytecode.OpCallBuiltin:
			if err := vm.callBuiltin(bytecode.BuiltinID(instr.Operand)); err != nil {
				return value.None(), err
			}

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
			if err := vm.arith(instr.Op); err != nil {
				return value.None(), err
			}
		case bytecode.OpNeg:
			v := vm.pop()
			switch v.Tag {
			case value.TagInt:
				vm.push(value.Int(-v.AsInt()))
			case value.TagFloat:
				vm.push(value.Float(-v.AsFloat()))
			default:
				panic(vm.errorf("unary - expects a number, got %s", v.Tag))
			}

		case bytecode.OpNot:
			vm.push(value.Bool(!vm.truthy(vm.pop())))

		case bytecode.OpEq:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Equals(a, b)))
		case bytecode.OpNe:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(!value.Equals(a, b)))
		case bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
			if err := vm.compareOp(instr.Op); err != nil {
				return value.None(), err
			}

		case bytecode.OpHalt:
			if vm.sp > 0 {
				return vm.pop(), nil
			}
			return value.None(), nil

		default:
			return value.None(), vm.errorf("unhandled opcode %s", instr.Op)
		}
	}
}

func (vm *VM) constant(idx int32) value.Value {
	if idx < 0 || int(idx) >= len(vm.prog.Constants) {
		panic(vm.errorf("constant index %d out of range", idx))
	}
	return vm.prog.Constants[idx]
}

func (vm *VM) truthy(v value.Value) bool {
	if v.Tag != value.TagBool {
		panic(vm.errorf("expected a Bool, got %s", v.Tag))
	}
	return v.AsBool()
}

func (vm *VM) toStringValue(v value.Value) string {
	if v.Tag == value.TagString {
		return v.AsString()
	}
	return value.InspectInline(v)
}

func (vm *VM) makeClosure(funcIdx int) {
	if funcIdx < 0 || funcIdx >= len(vm.prog.Functions) {
		panic(vm.errorf("invalid function index %d", funcIdx))
	}
	fn := vm.prog.Functions[funcIdx]
	captures := make([]value.Value, fn.CaptureCount)
	for i := fn.CaptureCount - 1; i >= 0; i-- {
		captures[i] = vm.pop()
	}
	vm.push(value.ClosureVal(&value.Closure{FuncIdx: funcIdx, Captures: captures, Name: fn.Name}))
}

func (vm *VM) makeStruct(n int) {
	typeName := vm.pop().AsString()
	typeID := vm.pop().AsInt()
	fields := make(map[string]value.Value, n)
	for i := 0; i < n; i++ {
		val := vm.pop()
		name := vm.pop().AsString()
		fields[name] = val
	}
	vm.push(value.StructVal(&value.Struct{
		TypeID: int(typeID), TypeName: typeName, Fields: fields,
		Hash: value.HashStruct(typeName, fields),
	}))
}

func (vm *VM) matchEnum() {
	variantName := vm.pop().AsString()
	enumName := vm.pop().AsString()
	typeID := vm.pop().AsInt()
	subject := vm.pop()
	matches := subject.Tag == value.TagEnum
	if matches {
		e := subject.AsEnum()
		matches = e.TypeID == int(typeID) && e.EnumName == enumName && e.VariantName == variantName
	}
	vm.push(value.Bool(matches))
}

func (vm *VM) makeEnumPayload(n int) {
	variantName := vm.pop().AsString()
	enumName := vm.pop().AsString()
	typeID := vm.pop().AsInt()
	payload := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		payload[i] = vm.pop()
	}
	vm.push(value.EnumVal(&value.Enum{
		TypeID: int(typeID), EnumName: enumName, VariantName: variantName, Payload: payload,
		Hash: value.HashEnum(enumName, variantName, payload),
	}))
}
