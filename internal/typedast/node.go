// Package typedast defines the typed AST shape the compiler consumes: the
// output of an external type checker. Node identity is by pointer, never
// by Span — Span exists solely so the compiler can attach a source
// location to a compile error.
package typedast

// Span is a source location range, carried purely for diagnostics.
type Span struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// Node is the root of both the Statement and Expression sums.
type Node interface {
	Span() Span
}

// Statement is a top-level or block-level binding/declaration form.
type Statement interface {
	Node
	stmtNode()
}

// Expression is anything that produces a Value when compiled. Several
// Expression variants (WildcardPattern, OrPattern, and ordinary literal /
// Identifier / enum-construction / array-construction nodes reused in
// pattern position) double as match-arm patterns; see compiler/patterns.go
// for how the dual role is resolved at compile time.
type Expression interface {
	Node
	exprNode()
	ResolvedType() Type
}

type spanned struct{ S Span }

func (s spanned) Span() Span { return s.S }

type typed struct {
	spanned
	T Type
}

func (t typed) ResolvedType() Type { return t.T }
