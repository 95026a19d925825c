package vm

import (
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wisplang/wisp/internal/bytecode"
	"github.com/wisplang/wisp/internal/value"
)

// callBuiltin dispatches OpCallBuiltin to the gated builtin named by id. It
// checks the builtin's Gate against vm.flags before touching any host
// resource — a closed gate is a VM error, not a language-level one, since
// the compiler already proved the call well-typed and arity-correct.
func (vm *VM) callBuiltin(id bytecode.BuiltinID) error {
	info, ok := bytecode.BuiltinByID[id]
	if !ok {
		return vm.errorf("unknown builtin id %d", id)
	}
	if err := vm.checkGate(info); err != nil {
		return err
	}

	switch id {
	case bytecode.BuiltinReadFile:
		return vm.builtinReadFile()
	case bytecode.BuiltinWriteFile:
		return vm.builtinWriteFile()
	case bytecode.BuiltinTCPListen:
		return vm.builtinTCPListen()
	case bytecode.BuiltinTCPAccept:
		return vm.builtinTCPAccept()
	case bytecode.BuiltinTCPRead:
		return vm.builtinTCPRead()
	case bytecode.BuiltinTCPWrite:
		return vm.builtinTCPWrite()
	case bytecode.BuiltinTCPClose:
		return vm.builtinTCPClose()
	case bytecode.BuiltinStrSplit:
		return vm.builtinStrSplit()
	case bytecode.BuiltinStackDepth:
		vm.push(value.Int(int64(vm.frameCount)))
		return nil
	case bytecode.BuiltinToYAML:
		return vm.builtinToYAML()
	case bytecode.BuiltinFromYAML:
		return vm.builtinFromYAML()
	case bytecode.BuiltinGRPCCall:
		return vm.builtinGRPCCall()
	default:
		return vm.errorf("builtin %s has no VM implementation", info.Name)
	}
}

func (vm *VM) checkGate(info bytecode.BuiltinInfo) error {
	switch info.Gate {
	case bytecode.GateIO:
		if !vm.flags.IOEnabled {
			return vm.errorf("%s requires I/O to be enabled", info.Name)
		}
	case bytecode.GateStdLib:
		if !vm.flags.StdLibEnabled {
			return vm.errorf("%s requires the supplemental standard library to be enabled", info.Name)
		}
	case bytecode.GateDebug:
		if !vm.flags.ExposeDebugBuiltins {
			return vm.errorf("%s requires debug builtins to be enabled", info.Name)
		}
	}
	return nil
}

func (vm *VM) builtinReadFile() error {
	path := vm.pop()
	if path.Tag != value.TagString {
		return vm.errorf("read_file expects a String path")
	}
	data, err := os.ReadFile(path.AsString())
	if err != nil {
		vm.push(value.ErrorVal(value.String(err.Error())))
		return nil
	}
	vm.push(value.String(string(data)))
	return nil
}

func (vm *VM) builtinWriteFile() error {
	content, path := vm.pop(), vm.pop()
	if path.Tag != value.TagString || content.Tag != value.TagString {
		return vm.errorf("write_file expects (String, String)")
	}
	if err := os.WriteFile(path.AsString(), []byte(content.AsString()), 0o644); err != nil {
		vm.push(value.ErrorVal(value.String(err.Error())))
		return nil
	}
	vm.push(value.None())
	return nil
}

func (vm *VM) builtinTCPListen() error {
	addr := vm.pop()
	if addr.Tag != value.TagString {
		return vm.errorf("tcp_listen expects a String address")
	}
	ln, err := net.Listen("tcp", addr.AsString())
	if err != nil {
		vm.push(value.ErrorVal(value.String(err.Error())))
		return nil
	}
	id := vm.nextSocket
	vm.nextSocket++
	vm.listeners[id] = ln
	vm.push(value.SocketVal(id, true))
	return nil
}

func (vm *VM) builtinTCPAccept() error {
	sock := vm.pop()
	if sock.Tag != value.TagSocket {
		return vm.errorf("tcp_accept expects a Socket")
	}
	ln, ok := vm.listeners[sock.AsSocket().ID]
	if !ok {
		return vm.errorf("socket %d is not a listener", sock.AsSocket().ID)
	}
	conn, err := ln.Accept()
	if err != nil {
		vm.push(value.ErrorVal(value.String(err.Error())))
		return nil
	}
	id := vm.nextSocket
	vm.nextSocket++
	vm.conns[id] = conn
	vm.push(value.SocketVal(id, false))
	return nil
}

func (vm *VM) builtinTCPRead() error {
	sock := vm.pop()
	if sock.Tag != value.TagSocket {
		return vm.errorf("tcp_read expects a Socket")
	}
	conn, ok := vm.conns[sock.AsSocket().ID]
	if !ok {
		return vm.errorf("socket %d is not a connection", sock.AsSocket().ID)
	}
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		vm.push(value.ErrorVal(value.String(err.Error())))
		return nil
	}
	vm.push(value.String(string(buf[:n])))
	return nil
}

func (vm *VM) builtinTCPWrite() error {
	data, sock := vm.pop(), vm.pop()
	if sock.Tag != value.TagSocket || data.Tag != value.TagString {
		return vm.errorf("tcp_write expects (Socket, String)")
	}
	conn, ok := vm.conns[sock.AsSocket().ID]
	if !ok {
		return vm.errorf("socket %d is not a connection", sock.AsSocket().ID)
	}
	if _, err := conn.Write([]byte(data.AsString())); err != nil {
		vm.push(value.ErrorVal(value.String(err.Error())))
		return nil
	}
	vm.push(value.None())
	return nil
}

func (vm *VM) builtinTCPClose() error {
	sock := vm.pop()
	if sock.Tag != value.TagSocket {
		return vm.errorf("tcp_close expects a Socket")
	}
	id := sock.AsSocket().ID
	if conn, ok := vm.conns[id]; ok {
		delete(vm.conns, id)
		_ = conn.Close()
	} else if ln, ok := vm.listeners[id]; ok {
		delete(vm.listeners, id)
		_ = ln.Close()
	}
	vm.push(value.None())
	return nil
}

func (vm *VM) builtinStrSplit() error {
	sep, s := vm.pop(), vm.pop()
	if s.Tag != value.TagString || sep.Tag != value.TagString {
		return vm.errorf("str_split expects (String, String)")
	}
	parts := strings.Split(s.AsString(), sep.AsString())
	elems := make([]value.Value, len(parts))
	for i, p := range parts {
		elems[i] = value.String(p)
	}
	vm.push(value.Array(elems))
	return nil
}

func (vm *VM) builtinToYAML() error {
	v := vm.pop()
	data, err := yaml.Marshal(valueToInterface(v))
	if err != nil {
		vm.push(value.ErrorVal(value.String(err.Error())))
		return nil
	}
	vm.push(value.String(string(data)))
	return nil
}

func (vm *VM) builtinFromYAML() error {
	s := vm.pop()
	if s.Tag != value.TagString {
		return vm.errorf("from_yaml expects a String")
	}
	var parsed any
	if err := yaml.Unmarshal([]byte(s.AsString()), &parsed); err != nil {
		vm.push(value.ErrorVal(value.String(err.Error())))
		return nil
	}
	vm.push(interfaceToValue(parsed))
	return nil
}

// valueToInterface converts a runtime Value into plain Go data (map/slice/
// scalar) suitable for yaml.Marshal. Closures and sockets have no YAML
// representation and are rendered as their inspect string instead.
func valueToInterface(v value.Value) any {
	switch v.Tag {
	case value.TagNone:
		return nil
	case value.TagInt:
		return v.AsInt()
	case value.TagFloat:
		return v.AsFloat()
	case value.TagBool:
		return v.AsBool()
	case value.TagString:
		return v.AsString()
	case value.TagArray:
		arr := v.AsArray()
		out := make([]any, len(arr))
		for i, e := range arr {
			out[i] = valueToInterface(e)
		}
		return out
	case value.TagStruct:
		s := v.AsStruct()
		out := make(map[string]any, len(s.Fields))
		for k, fv := range s.Fields {
			out[k] = valueToInterface(fv)
		}
		return out
	case value.TagEnum:
		e := v.AsEnum()
		return e.VariantName
	default:
		return value.InspectInline(v)
	}
}

// yamlRecordTypeID is the reserved type_id stamped onto every Struct
// from_yaml synthesizes out of a decoded YAML mapping. Nominal type ids the
// compiler hands out via TypeEnv.NextTypeID start at 1, so 0 can never
// collide with a real registered struct — a from_yaml Record is
// structurally, not nominally, typed, and this id exists only so
// value.Equals' nominal check has something consistent to compare.
const yamlRecordTypeID = 0

// interfaceToValue converts plain Go data produced by yaml.Unmarshal into a
// runtime Value: scalars become Int/Float/Bool/String/None, sequences
// become Array, and mappings become a Struct named "Record" under
// yamlRecordTypeID, mirroring the teacher's yamlDecode/inferFromYaml
// (Integer/Float/Boolean/Nil/String/List/Record) one Go type-switch case at
// a time instead of through funxy's own dynamic Object constructors.
func interfaceToValue(v any) value.Value {
	switch x := v.(type) {
	case nil:
		return value.None()
	case int:
		return value.Int(int64(x))
	case int64:
		return value.Int(x)
	case float64:
		return value.Float(x)
	case bool:
		return value.Bool(x)
	case string:
		return value.String(x)
	case []any:
		elems := make([]value.Value, len(x))
		for i, e := range x {
			elems[i] = interfaceToValue(e)
		}
		return value.Array(elems)
	case map[string]any:
		fields := make(map[string]value.Value, len(x))
		for k, fv := range x {
			fields[k] = interfaceToValue(fv)
		}
		return value.StructVal(&value.Struct{
			TypeID:   yamlRecordTypeID,
			TypeName: "Record",
			Fields:   fields,
			Hash:     value.HashStruct("Record", fields),
		})
	case map[any]any:
		fields := make(map[string]value.Value, len(x))
		for k, fv := range x {
			fields[interfaceKeyToString(k)] = interfaceToValue(fv)
		}
		return value.StructVal(&value.Struct{
			TypeID:   yamlRecordTypeID,
			TypeName: "Record",
			Fields:   fields,
			Hash:     value.HashStruct("Record", fields),
		})
	default:
		return value.String(interfaceToString(x))
	}
}

// interfaceKeyToString stringifies a YAML mapping key of scalar type; YAML
// permits non-string keys (ints, bools) but wisp Struct fields are always
// string-named.
func interfaceKeyToString(k any) string {
	switch x := k.(type) {
	case string:
		return x
	default:
		return interfaceToString(x)
	}
}

// interfaceToString renders a value yaml.Unmarshal produced that has no
// direct Value counterpart (used only as the scalar fallback above and for
// non-string mapping keys); from_yaml never returns a bare string for an
// entire document now that interfaceToValue decodes structurally.
func interfaceToString(v any) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(b), "\n")
}
