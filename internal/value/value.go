// Package value implements the runtime value model: a tagged union of the
// values a Wisp program can produce, plus the structural/nominal equality
// and FNV-1a hashing the VM and compiler rely on.
package value

// Tag discriminates the variant held by a Value.
type Tag uint8

const (
	TagNone Tag = iota
	TagInt
	TagFloat
	TagBool
	TagString
	TagArray
	TagStruct
	TagClosure
	TagEnum
	TagError
	TagSocket
)

var tagNames = [...]string{
	TagNone:    "None",
	TagInt:     "Int",
	TagFloat:   "Float",
	TagBool:    "Bool",
	TagString:  "String",
	TagArray:   "Array",
	TagStruct:  "Struct",
	TagClosure: "Closure",
	TagEnum:    "Enum",
	TagError:   "Error",
	TagSocket:  "Socket",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "Unknown"
}

// Value is a stack cell. Primitives (Int, Float, Bool) are unboxed into the
// scalar fields; String and the heap variants (Array, Struct, Closure, Enum,
// Error, Socket) are held behind obj. Keeping primitives unboxed avoids an
// allocation on every arithmetic result, the same tradeoff the teacher VM
// makes with its Data/Obj split.
type Value struct {
	Tag Tag
	i   int64
	f   float64
	b   bool
	s   string
	obj any
}

// Struct is a nominal record: two Structs are equal only when their
// TypeID matches, never by field-shape alone.
type Struct struct {
	TypeID   int
	TypeName string
	Fields   map[string]Value
	Hash     uint64
}

// Enum is an instance of one variant of a registered enum type.
type Enum struct {
	TypeID      int
	EnumName    string
	VariantName string
	Payload     []Value
	Hash        uint64
}

// Closure pairs a compiled function index with its captured values.
type Closure struct {
	FuncIdx  int
	Captures []Value
	Name     string
}

// Error wraps a language-level error value produced by `error expr` or a
// failing assert.
type Error struct {
	Payload Value
}

// Socket identifies a host TCP listener or connection by VM-assigned id.
type Socket struct {
	ID         int
	IsListener bool
}

// Constructors.

func None() Value                  { return Value{Tag: TagNone} }
func Int(v int64) Value            { return Value{Tag: TagInt, i: v} }
func Float(v float64) Value        { return Value{Tag: TagFloat, f: v} }
func Bool(v bool) Value            { return Value{Tag: TagBool, b: v} }
func String(v string) Value        { return Value{Tag: TagString, s: v} }
func Array(elems []Value) Value    { return Value{Tag: TagArray, obj: elems} }
func StructVal(s *Struct) Value    { return Value{Tag: TagStruct, obj: s} }
func ClosureVal(c *Closure) Value  { return Value{Tag: TagClosure, obj: c} }
func EnumVal(e *Enum) Value        { return Value{Tag: TagEnum, obj: e} }
func ErrorVal(payload Value) Value { return Value{Tag: TagError, obj: &Error{Payload: payload}} }
func SocketVal(id int, isListener bool) Value {
	return Value{Tag: TagSocket, obj: &Socket{ID: id, IsListener: isListener}}
}

// Accessors. Callers are expected to have checked Tag first (the compiler
// guarantees well-typed bytecode). On a tag mismatch the scalar accessors
// return their zero value and the heap accessors panic.

func (v Value) AsInt() int64        { return v.i }
func (v Value) AsFloat() float64    { return v.f }
func (v Value) AsBool() bool        { return v.b }
func (v Value) AsString() string    { return v.s }
func (v Value) AsArray() []Value    { return v.obj.([]Value) }
func (v Value) AsStruct() *Struct   { return v.obj.(*Struct) }
func (v Value) AsClosure() *Closure { return v.obj.(*Closure) }
func (v Value) AsEnum() *Enum       { return v.obj.(*Enum) }
func (v Value) AsError() *Error     { return v.obj.(*Error) }
func (v Value) AsSocket() *Socket   { return v.obj.(*Socket) }

func (v Value) IsNone() bool  { return v.Tag == TagNone }
func (v Value) IsError() bool { return v.Tag == TagError }
