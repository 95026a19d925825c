package typedast

// BlockItem is one element of a BlockExpression's body: either a Statement
// or an Expression, discriminated by IsExpr. Order is insertion order and
// defines evaluation order — the compiler must preserve it.
type BlockItem struct {
	IsExpr bool
	Stmt   Statement
	Expr   Expression
}

// BlockExpression is `{ item; item; ...; lastExpr }`. Its value is the
// last item's value if the last item is an expression, else None.
type BlockExpression struct {
	typed
	Body []BlockItem
}

func (*BlockExpression) exprNode() {}

// NumberLiteral is either an Int or a Float constant, per the typed AST's
// ResolvedType (the lexical distinction — decimal point present or not —
// was already resolved upstream).
type NumberLiteral struct {
	typed
	IsFloat    bool
	IntValue   int64
	FloatValue float64
}

func (*NumberLiteral) exprNode() {}

// StringLiteral is a plain (non-interpolated) string constant.
type StringLiteral struct {
	typed
	Value string
}

func (*StringLiteral) exprNode() {}

// InterpolatedString holds each `${...}` and literal-text segment as its
// own Expression (literal text segments are StringLiteral); compiling
// folds to_string + str_concat across Parts, left to right.
type InterpolatedString struct {
	typed
	Parts []Expression
}

func (*InterpolatedString) exprNode() {}

// BooleanLiteral is `true`/`false`.
type BooleanLiteral struct {
	typed
	Value bool
}

func (*BooleanLiteral) exprNode() {}

// NoneLiteral is the `none` literal.
type NoneLiteral struct{ typed }

func (*NoneLiteral) exprNode() {}

// Identifier names a local, capture, self-reference, or first-class
// function value.
type Identifier struct {
	typed
	Name string
}

func (*Identifier) exprNode() {}

// TypeIdentifier names a nominal type (the `R` in `R.Ok(7)`).
type TypeIdentifier struct {
	typed
	Name string
}

func (*TypeIdentifier) exprNode() {}

// BinaryOp enumerates the binary operators the compiler lowers.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLogicalAnd
	OpLogicalOr
)

type BinaryExpression struct {
	typed
	Op    BinaryOp
	Left  Expression
	Right Expression
}

func (*BinaryExpression) exprNode() {}

// UnaryOp enumerates the unary operators the compiler lowers.
type UnaryOp uint8

const (
	OpNeg UnaryOp = iota
	OpNot
)

type UnaryExpression struct {
	typed
	Op      UnaryOp
	Operand Expression
}

func (*UnaryExpression) exprNode() {}

// IfExpression is `if cond { then } else { els }`; Else is nil when the
// source omitted it (the compiler pushes `None` in that case).
type IfExpression struct {
	typed
	Cond Expression
	Then Expression
	Else Expression
}

func (*IfExpression) exprNode() {}

// MatchArm is one `pattern -> body` arm of a MatchExpression. Pattern is
// an Expression used in pattern position — see compiler/patterns.go.
type MatchArm struct {
	Pattern Expression
	Body    Expression
}

type MatchExpression struct {
	typed
	Subject Expression
	Arms    []MatchArm
}

func (*MatchExpression) exprNode() {}

// FunctionExpression is an anonymous function literal used as a value,
// e.g. the right-hand side of `f = fn(n) { ... }`.
type FunctionExpression struct {
	typed
	Params []string
	Body   *BlockExpression
}

func (*FunctionExpression) exprNode() {}

type FunctionCallExpression struct {
	typed
	Callee Expression
	Args   []Expression
}

func (*FunctionCallExpression) exprNode() {}

// ArrayExpression is `[e1, e2, ...]`. An element that is a
// *SpreadExpression splices its inner array into the result at that
// position; in pattern position, a trailing SpreadExpression around an
// Identifier (or WildcardPattern) captures the remaining elements.
type ArrayExpression struct {
	typed
	Elements []Expression
}

func (*ArrayExpression) exprNode() {}

// SpreadExpression wraps an inner expression being spliced (`..inner`).
type SpreadExpression struct {
	typed
	Inner Expression
}

func (*SpreadExpression) exprNode() {}

type ArrayIndexExpression struct {
	typed
	Array Expression
	Index Expression
}

func (*ArrayIndexExpression) exprNode() {}

type RangeExpression struct {
	typed
	Start Expression
	End   Expression
}

func (*RangeExpression) exprNode() {}

type PropertyAccessExpression struct {
	typed
	Object   Expression
	Property string
}

func (*PropertyAccessExpression) exprNode() {}

// StructFieldInit is one `name: value` pair of a StructInitExpression.
type StructFieldInit struct {
	Name  string
	Value Expression
}

// StructInitExpression is `TypeName { f1: v1, f2: v2 }`. TypeID is filled
// in by the type checker from the TypeEnv's struct registry.
type StructInitExpression struct {
	typed
	TypeName string
	TypeID   int
	Fields   []StructFieldInit
}

func (*StructInitExpression) exprNode() {}

// AssertExpression is `assert(cond, message)`: returns None if cond holds,
// otherwise returns (from the enclosing function) an Error wrapping
// message.
type AssertExpression struct {
	typed
	Condition Expression
	Message   Expression
}

func (*AssertExpression) exprNode() {}

// ErrorExpression is `error expr`: wraps expr's value as an Error.
type ErrorExpression struct {
	typed
	Inner Expression
}

func (*ErrorExpression) exprNode() {}

// OrExpression is `inner or { fallback }`. ReceiverName is "" when the
// source did not bind the unwrapped error/the discarded None — i.e.
// `expr or { fb }` rather than `expr or err { fb }`.
type OrExpression struct {
	typed
	Inner        Expression
	ReceiverName string
	Fallback     *BlockExpression
}

func (*OrExpression) exprNode() {}

// PropagateNoneExpression is `inner?`.
type PropagateNoneExpression struct {
	typed
	Inner Expression
}

func (*PropagateNoneExpression) exprNode() {}

// WildcardPattern is `_` in pattern position.
type WildcardPattern struct{ typed }

func (*WildcardPattern) exprNode() {}

// OrPattern is `p1 | p2 | ...` in pattern position: matches if any
// Alternatives member matches, via an equality test per alternative (no
// bindings — see spec's Open Question on or-pattern binding visibility).
type OrPattern struct {
	typed
	Alternatives []Expression
}

func (*OrPattern) exprNode() {}

// ErrorNode marks a position the type checker could not resolve to a
// valid node. The compiler must reject any program containing one.
type ErrorNode struct {
	typed
	Message string
}

func (*ErrorNode) exprNode() {}
