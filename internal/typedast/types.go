package typedast

// Kind discriminates the small type-system the compiler needs to see in
// order to lower `or` and `?` correctly. This is deliberately not a full
// unifier: type inference is an external collaborator (the type checker);
// the compiler only needs to know, for a handful of expressions, whether
// their static type is Option<T>, Result<T, E>, or something else.
type Kind uint8

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindString
	KindNone
	KindArray
	KindOption
	KindResult
	KindStruct
	KindEnum
	KindFunction
	KindUnknown
)

// Type is the resolved_type annotation the type checker attaches to every
// Expression node.
type Type struct {
	Kind Kind

	// Elem is the element type for KindArray and the payload type for
	// KindOption.
	Elem *Type

	// Ok and Err are the success/failure payload types for KindResult.
	Ok  *Type
	Err *Type

	// Name is the nominal type name for KindStruct/KindEnum/KindFunction.
	Name string
}

func TInt() Type    { return Type{Kind: KindInt} }
func TFloat() Type  { return Type{Kind: KindFloat} }
func TBool() Type   { return Type{Kind: KindBool} }
func TString() Type { return Type{Kind: KindString} }
func TNone() Type   { return Type{Kind: KindNone} }

func TArray(elem Type) Type { return Type{Kind: KindArray, Elem: &elem} }
func TOption(elem Type) Type { return Type{Kind: KindOption, Elem: &elem} }
func TResult(ok, err Type) Type {
	return Type{Kind: KindResult, Ok: &ok, Err: &err}
}
func TStruct(name string) Type { return Type{Kind: KindStruct, Name: name} }
func TEnum(name string) Type   { return Type{Kind: KindEnum, Name: name} }
func TUnknown() Type           { return Type{Kind: KindUnknown} }
