package value

import "testing"

func TestEqualsRequiresSameTag(t *testing.T) {
	if Equals(Int(5), Float(5)) {
		t.Fatalf("Int and Float with the same numeric value must not compare equal")
	}
	if !Equals(Int(5), Int(5)) {
		t.Fatalf("equal ints must compare equal")
	}
}

func TestHashEqualityInvariant(t *testing.T) {
	pairs := []struct{ a, b Value }{
		{Int(42), Int(42)},
		{Float(3.5), Float(3.5)},
		{String("hello"), String("hello")},
		{Array([]Value{Int(1), Int(2)}), Array([]Value{Int(1), Int(2)})},
	}
	for _, p := range pairs {
		if !Equals(p.a, p.b) {
			t.Fatalf("expected %v == %v", p.a, p.b)
		}
		if Hash(p.a) != Hash(p.b) {
			t.Fatalf("equal values must hash equal: %v vs %v", Hash(p.a), Hash(p.b))
		}
	}
}

func TestNominalEquality(t *testing.T) {
	fields := map[string]Value{"x": Int(1)}
	s1 := &Struct{TypeID: 1, TypeName: "Point", Fields: fields, Hash: HashStruct("Point", fields)}
	s2 := &Struct{TypeID: 2, TypeName: "Point", Fields: fields, Hash: HashStruct("Point", fields)}
	if Equals(StructVal(s1), StructVal(s2)) {
		t.Fatalf("structs with identical fields but distinct type_id must not be equal")
	}
}

func TestClosuresNeverEqual(t *testing.T) {
	c := &Closure{FuncIdx: 0, Name: "f"}
	if Equals(ClosureVal(c), ClosureVal(c)) {
		t.Fatalf("closures must never compare equal, even to themselves")
	}
}

func TestEnumHashAndEquality(t *testing.T) {
	payload := []Value{Int(7)}
	mk := func(typeID int) Value {
		return EnumVal(&Enum{
			TypeID:      typeID,
			EnumName:    "R",
			VariantName: "Ok",
			Payload:     payload,
			Hash:        HashEnum("R", "Ok", payload),
		})
	}
	a, b := mk(1), mk(1)
	if !Equals(a, b) {
		t.Fatalf("enums with the same type_id, variant and payload must be equal")
	}
	if Hash(a) != Hash(b) {
		t.Fatalf("equal enums must hash equal")
	}
	c := mk(2)
	if Equals(a, c) {
		t.Fatalf("enums with distinct type_id must not be equal")
	}
}

func TestIsSimple(t *testing.T) {
	if !IsSimple(Int(1)) || !IsSimple(None()) || !IsSimple(String("short")) {
		t.Fatalf("primitives, None, and short strings must be simple")
	}
	if IsSimple(String("this string is definitely over twenty characters")) {
		t.Fatalf("long strings must not be simple")
	}
	if !IsSimple(EnumVal(&Enum{EnumName: "Option", VariantName: "None"})) {
		t.Fatalf("empty-payload enum must be simple")
	}
	if IsSimple(EnumVal(&Enum{EnumName: "Option", VariantName: "Some", Payload: []Value{Int(1)}})) {
		t.Fatalf("enum with payload must not be simple")
	}
}

func TestInspectInline(t *testing.T) {
	if got := InspectInline(Array([]Value{Int(1), Int(2), Int(3)})); got != "[1, 2, 3]" {
		t.Fatalf("unexpected array inspect: %s", got)
	}
	if got := InspectInline(String("hi")); got != `"hi"` {
		t.Fatalf("unexpected string inspect: %s", got)
	}
}
