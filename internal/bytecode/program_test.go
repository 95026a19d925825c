package bytecode

import (
	"strings"
	"testing"

	"github.com/wisplang/wisp/internal/value"
)

func TestEmitAndPatch(t *testing.T) {
	p := NewProgram()
	jumpAddr := p.Emit(OpJumpIfFalse, -1)
	p.Emit(OpPushTrue, 0)
	target := p.Here()
	p.Patch(jumpAddr, int32(target))

	if p.Code[jumpAddr].Operand != int32(target) {
		t.Fatalf("patch did not take effect: got %d, want %d", p.Code[jumpAddr].Operand, target)
	}
}

func TestAddConstantReturnsStableIndex(t *testing.T) {
	p := NewProgram()
	i1 := p.AddConstant(value.Int(1))
	i2 := p.AddConstant(value.Int(2))
	if i1 == i2 {
		t.Fatalf("expected distinct constant indices, got %d and %d", i1, i2)
	}
	if p.Constants[i1].AsInt() != 1 || p.Constants[i2].AsInt() != 2 {
		t.Fatalf("constant pool did not preserve insertion order")
	}
}

func TestFunctionAtSlicesSharedCode(t *testing.T) {
	p := NewProgram()
	start := p.Here()
	p.Emit(OpPushConst, 0)
	p.Emit(OpRet, 0)
	fn := Function{Name: "f", Arity: 0, Locals: 0, CodeStart: start, CodeLen: p.Here() - start}
	idx := p.AddFunction(fn)

	code := p.FunctionAt(idx)
	if len(code) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(code))
	}
	if code[0].Op != OpPushConst || code[1].Op != OpRet {
		t.Fatalf("unexpected function body: %v", code)
	}
}

func TestDisassembleListsEveryFunction(t *testing.T) {
	p := NewProgram()
	start := p.Here()
	p.Emit(OpPushConst, 0)
	p.Emit(OpRet, 0)
	p.AddFunction(Function{Name: "main", CodeStart: start, CodeLen: p.Here() - start})

	out := p.Disassemble()
	if !strings.Contains(out, "main:") {
		t.Fatalf("disassembly missing function header: %q", out)
	}
	if !strings.Contains(out, "PUSH_CONST") {
		t.Fatalf("disassembly missing opcode mnemonic: %q", out)
	}
}

func TestOpcodeStringUnknown(t *testing.T) {
	var unknown Opcode = 255
	if unknown.String() != "UNKNOWN" {
		t.Fatalf("expected UNKNOWN for unmapped opcode, got %q", unknown.String())
	}
}
