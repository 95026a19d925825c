// Package typeenv holds the nominal type registries (functions, structs,
// enums) and the lexical value-binding scopes the type checker builds and
// the compiler reads. An Env is mutable while the type checker is
// populating it and is expected to be Freeze()-d before compilation
// begins. The compiler mutates only an Env that is not yet frozen, by
// registering each named function it compiles, and freezes it afterwards.
package typeenv

import (
	"fmt"

	"github.com/wisplang/wisp/internal/typedast"
)

// Location is where a name was defined, kept for diagnostics only.
type Location struct {
	Line      int
	Column    int
	EndColumn int
}

// TypeFunction is a registered top-level/nested function signature.
type TypeFunction struct {
	Name     string
	Arity    int
	Location Location
}

// TypeStruct is a registered nominal record type.
type TypeStruct struct {
	Name     string
	TypeID   int
	Fields   []string
	Location Location
}

// HasField reports whether name is a declared field of s.
func (s *TypeStruct) HasField(name string) bool {
	for _, f := range s.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// EnumVariant is one case of a registered enum.
type EnumVariant struct {
	Name  string
	Arity int
}

// TypeEnum is a registered nominal sum type.
type TypeEnum struct {
	Name     string
	TypeID   int
	Variants []EnumVariant
	Location Location
}

// Variant looks up one of e's variants by name.
func (e *TypeEnum) Variant(name string) (EnumVariant, bool) {
	for _, v := range e.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return EnumVariant{}, false
}

type binding struct {
	typ typedast.Type
	loc Location
}

// Env is the frozen-at-compile-time type environment: a stack of lexical
// value scopes plus flat nominal registries.
type Env struct {
	scopes []map[string]binding

	functions map[string]*TypeFunction
	structs   map[string]*TypeStruct
	enums     map[string]*TypeEnum

	// enumsByVariant is the reverse index from a bare variant name (as used
	// when the enum the variant belongs to must be inferred from context,
	// e.g. a bare pattern naming a payload-free variant) to the enum that
	// declares it.
	enumsByVariant map[string]*TypeEnum

	nextTypeID int
	frozen     bool
}

// New creates an empty Env with one (global) scope pushed.
func New() *Env {
	return &Env{
		scopes:         []map[string]binding{{}},
		functions:      make(map[string]*TypeFunction),
		structs:        make(map[string]*TypeStruct),
		enums:          make(map[string]*TypeEnum),
		enumsByVariant: make(map[string]*TypeEnum),
		nextTypeID:     1,
	}
}

// Freeze marks the environment read-only; compilation may begin after this.
func (e *Env) Freeze() { e.frozen = true }

// Frozen reports whether Freeze has been called.
func (e *Env) Frozen() bool { return e.frozen }

func (e *Env) mustBeMutable() {
	if e.frozen {
		panic("typeenv: mutation attempted on a frozen Env")
	}
}

// PushScope opens a new innermost lexical scope.
func (e *Env) PushScope() {
	e.mustBeMutable()
	e.scopes = append(e.scopes, map[string]binding{})
}

// PopScope closes the innermost lexical scope.
func (e *Env) PopScope() {
	e.mustBeMutable()
	if len(e.scopes) == 1 {
		panic("typeenv: cannot pop the global scope")
	}
	e.scopes = e.scopes[:len(e.scopes)-1]
}

// Define binds name to typ in the innermost scope, with no location info.
func (e *Env) Define(name string, typ typedast.Type) {
	e.DefineAt(name, typ, Location{})
}

// DefineAt binds name to typ in the innermost scope, recording loc.
func (e *Env) DefineAt(name string, typ typedast.Type, loc Location) {
	e.mustBeMutable()
	e.scopes[len(e.scopes)-1][name] = binding{typ: typ, loc: loc}
}

// Lookup searches scopes innermost-first and returns the bound type.
func (e *Env) Lookup(name string) (typedast.Type, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if b, ok := e.scopes[i][name]; ok {
			return b.typ, true
		}
	}
	return typedast.Type{}, false
}

// NextTypeID allocates the next nominal type id for a struct/enum
// registration. Ids are unique within a run and never reused, even across
// display-name collisions.
func (e *Env) NextTypeID() int {
	e.mustBeMutable()
	id := e.nextTypeID
	e.nextTypeID++
	return id
}

// RegisterFunction adds f to the flat function registry.
func (e *Env) RegisterFunction(f *TypeFunction) {
	e.mustBeMutable()
	e.functions[f.Name] = f
}

// LookupFunction returns the registered function signature for name, even
// if a lexical value binding of the same name shadows it — the compiler
// consults this registry separately from resolve_variable's local/capture
// search so that first-class function identifiers are still recognised
// ahead of locals.
func (e *Env) LookupFunction(name string) (*TypeFunction, bool) {
	f, ok := e.functions[name]
	return f, ok
}

// RegisterStruct adds s to the struct registry.
func (e *Env) RegisterStruct(s *TypeStruct) {
	e.mustBeMutable()
	e.structs[s.Name] = s
}

// LookupStruct returns the registered struct type by name.
func (e *Env) LookupStruct(name string) (*TypeStruct, bool) {
	s, ok := e.structs[name]
	return s, ok
}

// RegisterEnum adds en to the enum registry and indexes each of its
// variants in the variant->enum reverse index.
func (e *Env) RegisterEnum(en *TypeEnum) {
	e.mustBeMutable()
	e.enums[en.Name] = en
	for _, v := range en.Variants {
		e.enumsByVariant[v.Name] = en
	}
}

// LookupEnum returns the registered enum type by name.
func (e *Env) LookupEnum(name string) (*TypeEnum, bool) {
	en, ok := e.enums[name]
	return en, ok
}

// LookupEnumByVariant resolves a bare variant name (no enum prefix) to the
// enum declaring it.
func (e *Env) LookupEnumByVariant(variant string) (*TypeEnum, bool) {
	en, ok := e.enumsByVariant[variant]
	return en, ok
}

// LookupType resolves a type name to a typedast.Type, matching the
// builtins Int/Float/String/Bool/None first, then user-registered
// structs/enums.
func (e *Env) LookupType(name string) (typedast.Type, bool) {
	switch name {
	case "Int":
		return typedast.TInt(), true
	case "Float":
		return typedast.TFloat(), true
	case "String":
		return typedast.TString(), true
	case "Bool":
		return typedast.TBool(), true
	case "None":
		return typedast.TNone(), true
	}
	if _, ok := e.LookupStruct(name); ok {
		return typedast.TStruct(name), true
	}
	if _, ok := e.LookupEnum(name); ok {
		return typedast.TEnum(name), true
	}
	return typedast.Type{}, false
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d-%d", l.Line, l.Column, l.EndColumn)
}
