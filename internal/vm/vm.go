// Package vm executes a bytecode.Program produced by the compiler: an
// operand stack, a call-frame stack, and a flat dispatch loop over
// bytecode.Opcode. It never calls back into the compiler or the type
// checker; its only collaborators are the value package (the runtime
// representation) and the gated builtin implementations in this package.
package vm

import (
	"io"
	"net"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/wisplang/wisp/internal/bytecode"
	"github.com/wisplang/wisp/internal/config"
	"github.com/wisplang/wisp/internal/value"
	"github.com/wisplang/wisp/internal/wlog"
)

var log = wlog.Named("vm")

// Initial and growth sizes for the operand stack, mirroring the teacher
// VM's dynamic-array approach rather than a fixed-size array.
const (
	initialStackSize = 2048
	stackGrowthIncr  = 1024
	maxStackSize     = 1 << 20

	initialFrameCount = 64
	maxFrameCount      = 4096
)

// CallFrame is one ongoing function activation. base is the operand-stack
// index where this frame's locals begin (its parameter slots occupy the
// first Arity of them). captures holds the closure's captured values, nil
// for the implicit entry frame.
type CallFrame struct {
	funcIdx  int
	ip       int
	base     int
	captures []value.Value
}

// VM holds the mutable execution state for one Program run.
type VM struct {
	prog  *bytecode.Program
	stack []value.Value
	sp    int

	frames     []CallFrame
	frameCount int
	frame      *CallFrame

	flags config.Flags

	listeners  map[int]net.Listener
	conns      map[int]net.Conn
	nextSocket int

	out          io.Writer
	colorInspect bool
}

// New creates a VM that executes prog under flags. println/inspect pick up
// ANSI highlighting automatically when stdout is a terminal; SetOutput lets
// a caller (tests, a piped CLI invocation) redirect output and disables
// color so the byte stream stays stable.
func New(prog *bytecode.Program, flags config.Flags) *VM {
	return &VM{
		prog:         prog,
		stack:        make([]value.Value, initialStackSize),
		frames:       make([]CallFrame, initialFrameCount),
		flags:        flags,
		listeners:    make(map[int]net.Listener),
		conns:        make(map[int]net.Conn),
		out:          os.Stdout,
		colorInspect: isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// SetOutput redirects println's destination and turns off color, since a
// redirected stream is never a terminal a human is meant to read ANSI
// codes on.
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
	vm.colorInspect = false
}

// Run executes prog from its entry function to completion and returns the
// final value left on the operand stack.
func (vm *VM) Run() (value.Value, error) {
	vm.sp = 0
	vm.frameCount = 1
	vm.frames[0] = CallFrame{funcIdx: vm.prog.Entry, ip: vm.prog.Functions[vm.prog.Entry].CodeStart, base: 0}
	vm.frame = &vm.frames[0]
	vm.growLocals(0, vm.prog.Functions[vm.prog.Entry].Locals)

	log.Debug("run started", "entry", vm.prog.Entry, "build_id", vm.prog.BuildID)
	result, err := vm.execute()
	if err != nil {
		log.Debug("run failed", "error", err)
		return value.None(), err
	}
	log.Debug("run finished")
	return result, nil
}

func (vm *VM) pushFrame(f CallFrame) error {
	if vm.frameCount >= maxFrameCount {
		return vm.errorf("call stack depth exceeded %d frames", maxFrameCount)
	}
	if vm.frameCount >= len(vm.frames) {
		grown := make([]CallFrame, len(vm.frames)*2)
		copy(grown, vm.frames[:vm.frameCount])
		vm.frames = grown
	}
	vm.frames[vm.frameCount] = f
	vm.frameCount++
	vm.frame = &vm.frames[vm.frameCount-1]
	return nil
}

func (vm *VM) push(v value.Value) {
	if vm.sp >= len(vm.stack) {
		if vm.sp >= maxStackSize {
			panic(vm.errorf("operand stack exceeded %d elements", maxStackSize))
		}
		grown := make([]value.Value, len(vm.stack)+stackGrowthIncr)
		copy(grown, vm.stack[:vm.sp])
		vm.stack = grown
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() value.Value {
	if vm.sp <= 0 {
		panic(vm.errorf("operand stack underflow"))
	}
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) value.Value {
	idx := vm.sp - 1 - distance
	if idx < 0 {
		panic(vm.errorf("operand stack underflow"))
	}
	return vm.stack[idx]
}
