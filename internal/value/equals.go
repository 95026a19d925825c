package value

// Equals implements values_equal from the value model: same-tag values
// only (no Int/Float coercion — that coercion exists for arithmetic and
// ordering, not for equality). Struct and Enum reject on a hash mismatch
// before doing the structural comparison; Closures are never equal even
// to themselves; Sockets compare by id and listener/connection role.
func Equals(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case TagNone:
		return true
	case TagInt:
		return a.i == b.i
	case TagFloat:
		return a.f == b.f
	case TagBool:
		return a.b == b.b
	case TagString:
		return a.s == b.s
	case TagArray:
		ea, eb := a.AsArray(), b.AsArray()
		if len(ea) != len(eb) {
			return false
		}
		for i := range ea {
			if !Equals(ea[i], eb[i]) {
				return false
			}
		}
		return true
	case TagStruct:
		sa, sb := a.AsStruct(), b.AsStruct()
		if sa.Hash != sb.Hash || sa.TypeID != sb.TypeID {
			return false
		}
		if len(sa.Fields) != len(sb.Fields) {
			return false
		}
		for k, av := range sa.Fields {
			bv, ok := sb.Fields[k]
			if !ok || !Equals(av, bv) {
				return false
			}
		}
		return true
	case TagEnum:
		ea, eb := a.AsEnum(), b.AsEnum()
		if ea.Hash != eb.Hash || ea.TypeID != eb.TypeID || ea.VariantName != eb.VariantName {
			return false
		}
		if len(ea.Payload) != len(eb.Payload) {
			return false
		}
		for i := range ea.Payload {
			if !Equals(ea.Payload[i], eb.Payload[i]) {
				return false
			}
		}
		return true
	case TagClosure:
		return false
	case TagError:
		return Equals(a.AsError().Payload, b.AsError().Payload)
	case TagSocket:
		sa, sb := a.AsSocket(), b.AsSocket()
		return sa.ID == sb.ID && sa.IsListener == sb.IsListener
	default:
		return false
	}
}
