package bytecode

// BuiltinID identifies one Flags-gated builtin invoked through
// OpCallBuiltin. println and inspect are never gated and so are not part
// of this table — they compile to OpPrintln/OpInspect directly.
type BuiltinID int32

const (
	BuiltinReadFile BuiltinID = iota
	BuiltinWriteFile
	BuiltinTCPListen
	BuiltinTCPAccept
	BuiltinTCPRead
	BuiltinTCPWrite
	BuiltinTCPClose
	BuiltinStrSplit
	BuiltinStackDepth
	BuiltinToYAML
	BuiltinFromYAML
	BuiltinGRPCCall
)

// Gate identifies which Flags field must be set for a builtin to run.
type Gate int

const (
	GateNone Gate = iota
	GateIO
	GateStdLib
	GateDebug
)

// BuiltinInfo describes one gated builtin's calling convention.
type BuiltinInfo struct {
	Name  string
	Arity int
	Gate  Gate
}

// Builtins is the name-indexed table the compiler consults to validate
// arity and resolve a BuiltinID, and the VM consults to dispatch and gate.
var Builtins = map[string]BuiltinInfo{
	"read_file":        {Name: "read_file", Arity: 1, Gate: GateIO},
	"write_file":       {Name: "write_file", Arity: 2, Gate: GateIO},
	"tcp_listen":       {Name: "tcp_listen", Arity: 1, Gate: GateIO},
	"tcp_accept":       {Name: "tcp_accept", Arity: 1, Gate: GateIO},
	"tcp_read":         {Name: "tcp_read", Arity: 1, Gate: GateIO},
	"tcp_write":        {Name: "tcp_write", Arity: 2, Gate: GateIO},
	"tcp_close":        {Name: "tcp_close", Arity: 1, Gate: GateIO},
	"str_split":        {Name: "str_split", Arity: 2, Gate: GateStdLib},
	"__stack_depth__":  {Name: "__stack_depth__", Arity: 0, Gate: GateDebug},
	"to_yaml":          {Name: "to_yaml", Arity: 1, Gate: GateStdLib},
	"from_yaml":        {Name: "from_yaml", Arity: 1, Gate: GateStdLib},
	"grpc_call":        {Name: "grpc_call", Arity: 4, Gate: GateIO},
}

// BuiltinByID mirrors Builtins for VM-side lookup by the BuiltinID encoded
// as an Instruction's operand.
var BuiltinByID = map[BuiltinID]BuiltinInfo{
	BuiltinReadFile:   Builtins["read_file"],
	BuiltinWriteFile:  Builtins["write_file"],
	BuiltinTCPListen:  Builtins["tcp_listen"],
	BuiltinTCPAccept:  Builtins["tcp_accept"],
	BuiltinTCPRead:    Builtins["tcp_read"],
	BuiltinTCPWrite:   Builtins["tcp_write"],
	BuiltinTCPClose:   Builtins["tcp_close"],
	BuiltinStrSplit:   Builtins["str_split"],
	BuiltinStackDepth: Builtins["__stack_depth__"],
	BuiltinToYAML:     Builtins["to_yaml"],
	BuiltinFromYAML:   Builtins["from_yaml"],
	BuiltinGRPCCall:   Builtins["grpc_call"],
}

// BuiltinIDByName resolves a builtin's name to its BuiltinID for encoding
// as an OpCallBuiltin operand.
var BuiltinIDByName = map[string]BuiltinID{
	"read_file":       BuiltinReadFile,
	"write_file":      BuiltinWriteFile,
	"tcp_listen":      BuiltinTCPListen,
	"tcp_accept":      BuiltinTCPAccept,
	"tcp_read":        BuiltinTCPRead,
	"tcp_write":       BuiltinTCPWrite,
	"tcp_close":       BuiltinTCPClose,
	"str_split":       BuiltinStrSplit,
	"__stack_depth__": BuiltinStackDepth,
	"to_yaml":         BuiltinToYAML,
	"from_yaml":       BuiltinFromYAML,
	"grpc_call":       BuiltinGRPCCall,
}
