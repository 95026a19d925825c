package vm

import (
	"context"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/wisplang/wisp/internal/value"
)

// builtinGRPCCall implements grpc_call(target, methodPath, protoPath, request).
// It is a one-shot call: parse the .proto, dial, invoke, and hang up, rather
// than the teacher's long-lived connection/registry builtins — wisp's typed
// Struct values give the request/response shape the teacher's dynamic
// Record/Map split, so the whole round trip collapses to a single builtin.
// methodPath is "package.Service/Method".
func (vm *VM) builtinGRPCCall() error {
	reqV := vm.pop()
	protoPath := vm.pop()
	methodPath := vm.pop()
	target := vm.pop()

	if target.Tag != value.TagString || methodPath.Tag != value.TagString || protoPath.Tag != value.TagString {
		return vm.errorf("grpc_call expects (String, String, String, Struct)")
	}
	if reqV.Tag != value.TagStruct {
		return vm.errorf("grpc_call request argument must be a Struct")
	}

	serviceName, methName, err := splitMethodPath(methodPath.AsString())
	if err != nil {
		vm.push(value.ErrorVal(value.String(err.Error())))
		return nil
	}

	parser := protoparse.Parser{ImportPaths: []string{"."}}
	fds, err := parser.ParseFiles(protoPath.AsString())
	if err != nil {
		vm.push(value.ErrorVal(value.String("failed to parse proto: " + err.Error())))
		return nil
	}

	var md *desc.MethodDescriptor
	for _, fd := range fds {
		if sd := fd.FindService(serviceName); sd != nil {
			md = sd.FindMethodByName(methName)
			break
		}
	}
	if md == nil {
		vm.push(value.ErrorVal(value.String("method " + methodPath.AsString() + " not found in " + protoPath.AsString())))
		return nil
	}

	conn, err := grpc.NewClient(target.AsString(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		vm.push(value.ErrorVal(value.String(err.Error())))
		return nil
	}
	defer conn.Close()

	reqMsg := dynamic.NewMessage(md.GetInputType())
	if err := structToDynamicMessage(reqV.AsStruct(), reqMsg); err != nil {
		vm.push(value.ErrorVal(value.String("failed to build request: " + err.Error())))
		return nil
	}
	respMsg := dynamic.NewMessage(md.GetOutputType())

	fullMethod := "/" + serviceName + "/" + methName
	if err := conn.Invoke(context.Background(), fullMethod, reqMsg, respMsg); err != nil {
		vm.push(value.ErrorVal(value.String("RPC failed: " + err.Error())))
		return nil
	}

	vm.push(value.StructVal(dynamicMessageToStruct(respMsg)))
	return nil
}

func splitMethodPath(path string) (service, method string, err error) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i], path[i+1:], nil
		}
	}
	return "", "", &Error{Message: "invalid method path " + path + ", expected package.Service/Method"}
}

func structToDynamicMessage(s *value.Struct, msg *dynamic.Message) error {
	for name, v := range s.Fields {
		fd := msg.GetMessageDescriptor().FindFieldByName(name)
		if fd == nil {
			continue
		}
		pv, err := valueToProtoField(v, fd)
		if err != nil {
			return err
		}
		if pv != nil {
			if err := msg.SetField(fd, pv); err != nil {
				return err
			}
		}
	}
	return nil
}

func valueToProtoField(v value.Value, fd *desc.FieldDescriptor) (any, error) {
	if fd.IsRepeated() && v.Tag == value.TagArray {
		arr := v.AsArray()
		out := make([]any, 0, len(arr))
		for _, elem := range arr {
			pv, err := scalarToProtoField(elem, fd)
			if err != nil {
				return nil, err
			}
			out = append(out, pv)
		}
		return out, nil
	}
	return scalarToProtoField(v, fd)
}

func scalarToProtoField(v value.Value, fd *desc.FieldDescriptor) (any, error) {
	switch fd.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_INT32, descriptorpb.FieldDescriptorProto_TYPE_SINT32, descriptorpb.FieldDescriptorProto_TYPE_SFIXED32:
		return int32(v.AsInt()), nil
	case descriptorpb.FieldDescriptorProto_TYPE_INT64, descriptorpb.FieldDescriptorProto_TYPE_SINT64, descriptorpb.FieldDescriptorProto_TYPE_SFIXED64:
		return v.AsInt(), nil
	case descriptorpb.FieldDescriptorProto_TYPE_UINT32, descriptorpb.FieldDescriptorProto_TYPE_FIXED32:
		return uint32(v.AsInt()), nil
	case descriptorpb.FieldDescriptorProto_TYPE_UINT64, descriptorpb.FieldDescriptorProto_TYPE_FIXED64:
		return uint64(v.AsInt()), nil
	case descriptorpb.FieldDescriptorProto_TYPE_FLOAT:
		return float32(v.AsFloat()), nil
	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:
		return v.AsFloat(), nil
	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		return v.AsBool(), nil
	case descriptorpb.FieldDescriptorProto_TYPE_STRING:
		return v.AsString(), nil
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE:
		if v.Tag != value.TagStruct {
			return nil, &Error{Message: "expected a Struct for message field " + fd.GetName()}
		}
		nested := dynamic.NewMessage(fd.GetMessageType())
		if err := structToDynamicMessage(v.AsStruct(), nested); err != nil {
			return nil, err
		}
		return nested, nil
	default:
		return nil, &Error{Message: "unsupported field type for " + fd.GetName()}
	}
}

func dynamicMessageToStruct(msg *dynamic.Message) *value.Struct {
	fields := make(map[string]value.Value)
	for _, fd := range msg.GetMessageDescriptor().GetFields() {
		fields[fd.GetName()] = protoFieldToValue(msg.GetField(fd), fd)
	}
	typeName := msg.GetMessageDescriptor().GetName()
	return &value.Struct{
		TypeID:   0,
		TypeName: typeName,
		Fields:   fields,
		Hash:     value.HashStruct(typeName, fields),
	}
}

func protoFieldToValue(v any, fd *desc.FieldDescriptor) value.Value {
	if fd.IsRepeated() {
		slice, ok := v.([]any)
		if !ok {
			return value.Array(nil)
		}
		elems := make([]value.Value, len(slice))
		for i, item := range slice {
			elems[i] = scalarProtoToValue(item)
		}
		return value.Array(elems)
	}
	return scalarProtoToValue(v)
}

func scalarProtoToValue(v any) value.Value {
	switch x := v.(type) {
	case int32:
		return value.Int(int64(x))
	case int64:
		return value.Int(x)
	case uint32:
		return value.Int(int64(x))
	case uint64:
		return value.Int(int64(x))
	case float32:
		return value.Float(float64(x))
	case float64:
		return value.Float(x)
	case bool:
		return value.Bool(x)
	case string:
		return value.String(x)
	case []byte:
		return value.String(string(x))
	case *dynamic.Message:
		return value.StructVal(dynamicMessageToStruct(x))
	default:
		return value.None()
	}
}
