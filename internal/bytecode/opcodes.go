// Package bytecode defines the Program the compiler produces and the VM
// executes: a flat instruction list, a constant pool, and a function
// table. Every Function's code is a contiguous slice of the shared Code
// vector (CodeStart, CodeLen), so the whole Program can be built
// monotonically (append-only) as the compiler walks the typed AST.
package bytecode

// Opcode identifies a single VM instruction. Every Instruction carries
// exactly one int32 Operand; variable-arity constructors (make_array,
// make_enum_payload, ...) encode their count in the operand.
type Opcode uint8

const (
	// Stack manipulation.
	OpPushConst Opcode = iota
	OpPop
	OpDup
	OpSwap
	OpPushNone
	OpPushTrue
	OpPushFalse

	// Locals, captures, self-reference.
	OpPushLocal
	OpStoreLocal
	OpPushCapture
	OpPushSelf

	// Control flow. Operand is an absolute code address.
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue

	// Calls.
	OpCall     // operand = arity
	OpTailCall // operand = arity
	OpRet

	// Closures.
	OpMakeClosure // operand = function index; pops capture_count captures

	// Arrays.
	OpMakeArray    // operand = element count
	OpArrayConcat  // [a, b] -> [a++b]
	OpArraySlice   // [arr, start] -> [arr[start:]]
	OpArrayLen     // [arr] -> [len]
	OpIndex        // [arr, i] -> [arr[i] or None]
	OpMakeRange    // [start, end] -> [array]

	// Structs.
	OpGetField   // operand = constant index of field name
	OpMakeStruct // operand = field count; pops type_name, type_id, then the (name, value) pairs

	// Enums.
	OpMatchEnum      // [subject, type_id, enum_name, variant_name] -> bool
	OpUnwrapEnum     // [enum] -> payload values pushed in order (or nothing)
	OpMakeEnum       // [type_id, enum, variant] -> Enum (no payload)
	OpMakeEnumPayload // operand = payload count; [..payload, type_id, enum, variant] -> Enum

	// Option/Result and language-level errors.
	OpMakeError   // [v] -> Error(v)
	OpIsError     // [v] -> bool
	OpIsNone      // [v] -> bool
	OpUnwrapError // [Error(v)] -> v

	// Strings.
	OpToString  // [v] -> String
	OpStrConcat // [a, b] -> String

	// println/inspect are never Flags-gated, unlike the builtin table in
	// §6, so they get dedicated opcodes rather than a CallBuiltin slot.
	OpPrintln // [v] -> (nothing; pretty-prints v, VM pushes None)
	OpInspect // [v] -> String (pretty-printed)

	// Builtins. Operand is a BuiltinID; arity is looked up from the
	// builtin table, not encoded redundantly in the operand. Every
	// builtin here is gated by a Flags field.
	OpCallBuiltin

	// Arithmetic / bitwise is out of the Language's documented surface
	// beyond +,-,*,/,%; unary minus is OpNeg.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg

	// Logic.
	OpNot

	// Comparison.
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// Halt.
	OpHalt
)

// OpcodeNames maps each Opcode to its disassembly mnemonic.
var OpcodeNames = map[Opcode]string{
	OpPushConst: "PUSH_CONST",
	OpPop:       "POP",
	OpDup:       "DUP",
	OpSwap:      "SWAP",
	OpPushNone:  "PUSH_NONE",
	OpPushTrue:  "PUSH_TRUE",
	OpPushFalse: "PUSH_FALSE",

	OpPushLocal:   "PUSH_LOCAL",
	OpStoreLocal:  "STORE_LOCAL",
	OpPushCapture: "PUSH_CAPTURE",
	OpPushSelf:    "PUSH_SELF",

	OpJump:        "JUMP",
	OpJumpIfFalse: "JUMP_IF_FALSE",
	OpJumpIfTrue:  "JUMP_IF_TRUE",

	OpCall:     "CALL",
	OpTailCall: "TAIL_CALL",
	OpRet:      "RET",

	OpMakeClosure: "MAKE_CLOSURE",

	OpMakeArray:   "MAKE_ARRAY",
	OpArrayConcat: "ARRAY_CONCAT",
	OpArraySlice:  "ARRAY_SLICE",
	OpArrayLen:    "ARRAY_LEN",
	OpIndex:       "INDEX",
	OpMakeRange:   "MAKE_RANGE",

	OpGetField:   "GET_FIELD",
	OpMakeStruct: "MAKE_STRUCT",

	OpMatchEnum:       "MATCH_ENUM",
	OpUnwrapEnum:      "UNWRAP_ENUM",
	OpMakeEnum:        "MAKE_ENUM",
	OpMakeEnumPayload: "MAKE_ENUM_PAYLOAD",

	OpMakeError:   "MAKE_ERROR",
	OpIsError:     "IS_ERROR",
	OpIsNone:      "IS_NONE",
	OpUnwrapError: "UNWRAP_ERROR",

	OpToString:  "TO_STRING",
	OpStrConcat: "STR_CONCAT",

	OpPrintln: "PRINTLN",
	OpInspect: "INSPECT",

	OpCallBuiltin: "CALL_BUILTIN",

	OpAdd: "ADD",
	OpSub: "SUB",
	OpMul: "MUL",
	OpDiv: "DIV",
	OpMod: "MOD",
	OpNeg: "NEG",

	OpNot: "NOT",

	OpEq: "EQ",
	OpNe: "NE",
	OpLt: "LT",
	OpLe: "LE",
	OpGt: "GT",
	OpGe: "GE",

	OpHalt: "HALT",
}

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}
