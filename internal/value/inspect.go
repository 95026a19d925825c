package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const prettyLineWidth = 80
const simpleStringMax = 20
const arrayPackPerLine = 6

// SGR sequences used when a caller passes color=true: struct/enum type
// names and error wrappers are wrapped in them. Callers that want plain,
// byte-for-byte stable output (golden tests, piped stdout) pass false.
const (
	colorTypeName = "\x1b[36m" // cyan
	colorReset    = "\x1b[0m"
	colorErrorTag = "\x1b[31m" // red
)

// IsSimple reports whether v prints compactly on a single line by itself:
// a primitive, None, a short string, a closure, or an empty-payload enum.
func IsSimple(v Value) bool {
	switch v.Tag {
	case TagNone, TagInt, TagFloat, TagBool, TagClosure, TagSocket:
		return true
	case TagString:
		return len(v.s) < simpleStringMax
	case TagEnum:
		return len(v.AsEnum().Payload) == 0
	default:
		return false
	}
}

// InspectInline renders v on a single line.
func InspectInline(v Value) string { return inspect(v, false) }

// InspectPretty renders v possibly across multiple lines, wrapping once the
// inline form would exceed 80 columns. color enables ANSI highlighting of
// struct/enum type names and error wrappers; pass false for output whose
// bytes must stay stable across environments.
func InspectPretty(v Value, color bool) string {
	inline := inspect(v, false)
	if len(inline) <= prettyLineWidth && allChildrenSimple(v) {
		if color {
			return inspect(v, true)
		}
		return inline
	}
	return inspectPretty(v, 0, color)
}

func allChildrenSimple(v Value) bool {
	switch v.Tag {
	case TagArray:
		for _, el := range v.AsArray() {
			if !IsSimple(el) {
				return false
			}
		}
		return true
	case TagStruct:
		for _, fv := range v.AsStruct().Fields {
			if !IsSimple(fv) {
				return false
			}
		}
		return true
	case TagEnum:
		for _, p := range v.AsEnum().Payload {
			if !IsSimple(p) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func inspect(v Value, color bool) string {
	switch v.Tag {
	case TagNone:
		return "None"
	case TagInt:
		return strconv.FormatInt(v.i, 10)
	case TagFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TagBool:
		return strconv.FormatBool(v.b)
	case TagString:
		return strconv.Quote(v.s)
	case TagArray:
		elems := v.AsArray()
		parts := make([]string, len(elems))
		for i, el := range elems {
			parts[i] = inspect(el, color)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case TagStruct:
		return inspectStruct(v.AsStruct(), color)
	case TagEnum:
		return inspectEnum(v.AsEnum(), color)
	case TagClosure:
		c := v.AsClosure()
		if c.Name != "" {
			return fmt.Sprintf("<closure %s>", c.Name)
		}
		return fmt.Sprintf("<closure #%d>", c.FuncIdx)
	case TagError:
		tag := "error"
		if color {
			tag = colorErrorTag + "error" + colorReset
		}
		return tag + "(" + inspect(v.AsError().Payload, color) + ")"
	case TagSocket:
		s := v.AsSocket()
		role := "connection"
		if s.IsListener {
			role = "listener"
		}
		return fmt.Sprintf("<socket#%d %s>", s.ID, role)
	default:
		return "<?>"
	}
}

func sortedFieldNames(fields map[string]Value) []string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func inspectStruct(s *Struct, color bool) string {
	name := s.TypeName
	if color {
		name = colorTypeName + name + colorReset
	}
	names := sortedFieldNames(s.Fields)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + ": " + inspect(s.Fields[n], color)
	}
	if len(parts) == 0 {
		return name + " {}"
	}
	return name + " { " + strings.Join(parts, ", ") + " }"
}

func inspectEnum(e *Enum, color bool) string {
	name := e.EnumName + "." + e.VariantName
	if color {
		name = colorTypeName + name + colorReset
	}
	if len(e.Payload) == 0 {
		return name
	}
	parts := make([]string, len(e.Payload))
	for i, p := range e.Payload {
		parts[i] = inspect(p, color)
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

func indentStr(depth int) string { return strings.Repeat("  ", depth) }

func inspectPretty(v Value, depth int, color bool) string {
	switch v.Tag {
	case TagArray:
		elems := v.AsArray()
		if len(elems) == 0 {
			return "[]"
		}
		if allChildrenSimple(v) {
			return inspectArrayPacked(elems, depth, color)
		}
		var b strings.Builder
		b.WriteString("[\n")
		for _, el := range elems {
			b.WriteString(indentStr(depth + 1))
			b.WriteString(inspectPretty(el, depth+1, color))
			b.WriteString(",\n")
		}
		b.WriteString(indentStr(depth))
		b.WriteString("]")
		return b.String()
	case TagStruct:
		s := v.AsStruct()
		name := s.TypeName
		if color {
			name = colorTypeName + name + colorReset
		}
		names := sortedFieldNames(s.Fields)
		if len(names) == 0 {
			return name + " {}"
		}
		var b strings.Builder
		b.WriteString(name)
		b.WriteString(" {\n")
		for _, n := range names {
			b.WriteString(indentStr(depth + 1))
			b.WriteString(n)
			b.WriteString(": ")
			b.WriteString(inspectPretty(s.Fields[n], depth+1, color))
			b.WriteString(",\n")
		}
		b.WriteString(indentStr(depth))
		b.WriteString("}")
		return b.String()
	case TagEnum:
		e := v.AsEnum()
		name := e.EnumName + "." + e.VariantName
		if color {
			name = colorTypeName + name + colorReset
		}
		if len(e.Payload) == 0 {
			return name
		}
		var b strings.Builder
		b.WriteString(name)
		b.WriteString("(\n")
		for _, p := range e.Payload {
			b.WriteString(indentStr(depth + 1))
			b.WriteString(inspectPretty(p, depth+1, color))
			b.WriteString(",\n")
		}
		b.WriteString(indentStr(depth))
		b.WriteString(")")
		return b.String()
	default:
		return inspect(v, color)
	}
}

func inspectArrayPacked(elems []Value, depth int, color bool) string {
	var b strings.Builder
	b.WriteString("[\n")
	for i := 0; i < len(elems); i += arrayPackPerLine {
		end := i + arrayPackPerLine
		if end > len(elems) {
			end = len(elems)
		}
		parts := make([]string, end-i)
		for j := i; j < end; j++ {
			parts[j-i] = inspect(elems[j], color)
		}
		b.WriteString(indentStr(depth + 1))
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(",\n")
	}
	b.WriteString(indentStr(depth))
	b.WriteString("]")
	return b.String()
}
