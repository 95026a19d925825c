package bytecode

import "testing"

func TestBuiltinTablesAgree(t *testing.T) {
	for name, info := range Builtins {
		id, ok := BuiltinIDByName[name]
		if !ok {
			t.Fatalf("%s missing from BuiltinIDByName", name)
		}
		byID, ok := BuiltinByID[id]
		if !ok {
			t.Fatalf("%s's id missing from BuiltinByID", name)
		}
		if byID.Name != info.Name || byID.Arity != info.Arity || byID.Gate != info.Gate {
			t.Fatalf("BuiltinByID[%v] = %+v, want %+v", id, byID, info)
		}
	}
}

func TestGatedBuiltinsMatchFlagsDocumentation(t *testing.T) {
	ioGated := []string{"read_file", "write_file", "tcp_listen", "tcp_accept", "tcp_read", "tcp_write", "tcp_close", "grpc_call"}
	for _, name := range ioGated {
		if Builtins[name].Gate != GateIO {
			t.Errorf("%s should be IO-gated", name)
		}
	}
	if Builtins["str_split"].Gate != GateStdLib {
		t.Error("str_split should be stdlib-gated")
	}
	if Builtins["__stack_depth__"].Gate != GateDebug {
		t.Error("__stack_depth__ should be debug-gated")
	}
}
