package bytecode

import (
	"fmt"
	"strings"

	"github.com/wisplang/wisp/internal/value"
)

// Instruction is one decoded VM step. Unlike a packed byte stream, the
// operand is always present and always an int32 — callers never need to
// know an opcode's operand width before decoding it.
type Instruction struct {
	Op      Opcode
	Operand int32
}

// Function describes one compiled function's entry in the Program's flat
// Code vector. Locals includes Arity (parameter slots occupy the first
// Arity local slots).
type Function struct {
	Name         string
	Arity        int
	Locals       int
	CaptureCount int
	CodeStart    int
	CodeLen      int
}

// Program is the complete compiler output: a constant pool, a function
// table, and one flat, append-only instruction stream shared by every
// function (each Function's code is Code[CodeStart : CodeStart+CodeLen]).
// Entry is the index into Functions of the top-level/main function.
//
// BuildID is a diagnostic correlator only — it identifies one compiler
// invocation's output for log correlation and has no bearing on program
// semantics or equality; there is no stable on-disk bytecode format to
// preserve across builds.
type Program struct {
	Constants []value.Value
	Functions []Function
	Code      []Instruction
	Entry     int
	BuildID   string
}

// NewProgram returns an empty Program ready for the compiler to append to.
func NewProgram() *Program {
	return &Program{
		Constants: make([]value.Value, 0, 64),
		Functions: make([]Function, 0, 8),
		Code:      make([]Instruction, 0, 256),
	}
}

// AddConstant appends v to the constant pool and returns its index.
func (p *Program) AddConstant(v value.Value) int32 {
	p.Constants = append(p.Constants, v)
	return int32(len(p.Constants) - 1)
}

// Emit appends one instruction to the shared code vector and returns its
// address (index into Code).
func (p *Program) Emit(op Opcode, operand int32) int {
	p.Code = append(p.Code, Instruction{Op: op, Operand: operand})
	return len(p.Code) - 1
}

// Patch overwrites the operand of the instruction at addr — used to
// back-patch forward jumps once their target address is known.
func (p *Program) Patch(addr int, operand int32) {
	p.Code[addr].Operand = operand
}

// Here returns the address the next Emit call will use.
func (p *Program) Here() int {
	return len(p.Code)
}

// AddFunction registers fn in the function table and returns its index.
func (p *Program) AddFunction(fn Function) int {
	p.Functions = append(p.Functions, fn)
	return len(p.Functions) - 1
}

// FunctionAt returns the Instruction slice belonging to the function at
// funcIdx.
func (p *Program) FunctionAt(funcIdx int) []Instruction {
	fn := p.Functions[funcIdx]
	return p.Code[fn.CodeStart : fn.CodeStart+fn.CodeLen]
}

// Disassemble renders the whole program as human-readable mnemonics, one
// instruction per line, grouped by function. Intended for debug tooling
// and tests, never for a stable serialization format.
func (p *Program) Disassemble() string {
	var b strings.Builder
	for fi, fn := range p.Functions {
		fmt.Fprintf(&b, "%s:\n", fn.Name)
		code := p.FunctionAt(fi)
		for i, instr := range code {
			fmt.Fprintf(&b, "%d\t%s\t%d\n", fn.CodeStart+i, instr.Op, instr.Operand)
		}
	}
	return b.String()
}
