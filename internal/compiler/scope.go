package compiler

// ref is how resolve_variable reports where an identifier's value comes
// from in the function currently being compiled.
type ref struct {
	kind refKind
	idx  int // local slot or capture index; unused for refSelf
}

type refKind int

const (
	refLocal refKind = iota
	refCapture
	refSelf
	refNotFound
)

// resolveVariable implements §4.4's resolve_variable: current locals,
// then current captures, then self-reference, then — failing all of
// those — a capture chain is built through each enclosing function.
func (c *Compiler) resolveVariable(f *funcState, name string) ref {
	if slot, ok := f.locals[name]; ok {
		return ref{kind: refLocal, idx: slot}
	}
	if idx, ok := f.captureIdx[name]; ok {
		return ref{kind: refCapture, idx: idx}
	}
	if f.selfName != "" && f.selfName == name {
		return ref{kind: refSelf}
	}
	if idx, ok := c.resolveCapture(f, name); ok {
		return ref{kind: refCapture, idx: idx}
	}
	return ref{kind: refNotFound}
}

// resolveCapture tries to satisfy f's need for name by asking f.outer for
// it, recursively. A hit anywhere up the chain registers a new capture
// entry on every function between f and the function that actually owns
// the value — the classic upvalue-chaining technique, generalised here to
// also bridge an enclosing function's own self-reference (captureFromSelf)
// across more than one level of nesting.
func (c *Compiler) resolveCapture(f *funcState, name string) (int, bool) {
	if f.outer == nil {
		return 0, false
	}
	if slot, ok := f.outer.locals[name]; ok {
		return c.addCapture(f, name, captureSource{kind: captureFromLocal, index: slot}), true
	}
	if f.outer.selfName != "" && f.outer.selfName == name {
		return c.addCapture(f, name, captureSource{kind: captureFromSelf}), true
	}
	if idx, ok := f.outer.captureIdx[name]; ok {
		return c.addCapture(f, name, captureSource{kind: captureFromCapture, index: idx}), true
	}
	if idx, ok := c.resolveCapture(f.outer, name); ok {
		return c.addCapture(f, name, captureSource{kind: captureFromCapture, index: idx}), true
	}
	return 0, false
}

func (c *Compiler) addCapture(f *funcState, name string, src captureSource) int {
	if idx, ok := f.captureIdx[name]; ok {
		return idx
	}
	idx := len(f.captures)
	f.captures = append(f.captures, src)
	f.captureNames = append(f.captureNames, name)
	f.captureIdx[name] = idx
	return idx
}
