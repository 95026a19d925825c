package value

import (
	"sort"

	"github.com/funvibe/funbit/pkg/funbit"
)

const (
	fnvOffset64 uint64 = 14695981039346656037
	fnvPrime64  uint64 = 1099511628211
)

func fnv1a(seed uint64, data []byte) uint64 {
	h := seed
	for _, b := range data {
		h ^= uint64(b)
		h *= fnvPrime64
	}
	return h
}

// intBytes/floatBytes lay the scalar out as a fixed 8-byte big-endian
// segment via funbit rather than encoding/binary, matching the binary
// layout style the rest of the corpus uses for bitstring segments.
func intBytes(i int64) []byte {
	b := funbit.NewBuilder()
	funbit.AddInteger(b, i, funbit.WithSize(64), funbit.WithEndianness(funbit.EndiannessBig))
	bs, err := funbit.Build(b)
	if err != nil {
		// Build only fails on malformed segment options, never on a fixed
		// 64-bit integer segment; fall back defensively rather than panic.
		return []byte{byte(i >> 56), byte(i >> 48), byte(i >> 40), byte(i >> 32), byte(i >> 24), byte(i >> 16), byte(i >> 8), byte(i)}
	}
	return bs.ToBytes()
}

func floatBytes(f float64) []byte {
	b := funbit.NewBuilder()
	funbit.AddFloat(b, f, funbit.WithSize(64), funbit.WithEndianness(funbit.EndiannessBig))
	bs, err := funbit.Build(b)
	if err != nil {
		return intBytes(int64(f))
	}
	return bs.ToBytes()
}

// Hash returns the FNV-1a hash of v. Struct and Enum return their cached
// Hash field; every other tag folds its own bytes (or its elements'
// hashes, for Array) over the FNV offset basis. None, Closure, and Socket
// hash to zero: they are never used as map/set keys by Wisp programs.
func Hash(v Value) uint64 {
	switch v.Tag {
	case TagInt:
		return fnv1a(fnvOffset64, intBytes(v.i))
	case TagFloat:
		return fnv1a(fnvOffset64, floatBytes(v.f))
	case TagBool:
		if v.b {
			return fnv1a(fnvOffset64, []byte{1})
		}
		return fnv1a(fnvOffset64, []byte{0})
	case TagString:
		return fnv1a(fnvOffset64, []byte(v.s))
	case TagArray:
		h := fnvOffset64
		for _, el := range v.AsArray() {
			eh := Hash(el)
			for shift := 56; shift >= 0; shift -= 8 {
				h ^= (eh >> uint(shift)) & 0xff
				h *= fnvPrime64
			}
		}
		return h
	case TagStruct:
		return v.AsStruct().Hash
	case TagEnum:
		return v.AsEnum().Hash
	case TagError:
		return Hash(v.AsError().Payload)
	default:
		return 0
	}
}

// HashStruct computes the cached hash for a struct: FNV-1a over the type
// name followed by each field's name and recursively-hashed value, with
// fields visited in sorted-key order so two structurally equal field maps
// always hash equal regardless of map iteration order.
func HashStruct(typeName string, fields map[string]Value) uint64 {
	h := fnv1a(fnvOffset64, []byte(typeName))
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h = fnv1a(h, []byte(k))
		fh := Hash(fields[k])
		h = hashFold(h, fh)
	}
	return h
}

// HashEnum computes the cached hash for an enum instance: FNV-1a over the
// enum name, the variant name, and each payload value's hash in order.
func HashEnum(enumName, variantName string, payload []Value) uint64 {
	h := fnv1a(fnvOffset64, []byte(enumName))
	h = fnv1a(h, []byte(variantName))
	for _, p := range payload {
		h = hashFold(h, Hash(p))
	}
	return h
}

func hashFold(h, v uint64) uint64 {
	for shift := 56; shift >= 0; shift -= 8 {
		h ^= (v >> uint(shift)) & 0xff
		h *= fnvPrime64
	}
	return h
}
