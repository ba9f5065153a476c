// Package condition defines the value model for where-trees: comparison
// sentinels, explicit bound/inline value wrappers, AND/OR connective
// groups, and the interface for sub-query embedding.
package condition

// Sentinel is a reserved non-literal marker, distinguished from nil and
// from ordinary data.
type Sentinel int

const (
	// NotNull compiles to IS NOT NULL with no bound value.
	NotNull Sentinel = iota + 1
	// Now compiles to the engine's now() expression with no bound value.
	Now
	// Skip drops the field from the compiled output entirely. It marks
	// "caller chose not to filter on this" for conditionally built trees.
	Skip
	// NoDefaultPool tells constructors not to fall back to the process
	// default pool.
	NoDefaultPool
)

func (s Sentinel) String() string {
	switch s {
	case NotNull:
		return "NOT_NULL"
	case Now:
		return "NOW"
	case Skip:
		return "SKIP"
	case NoDefaultPool:
		return "NO_DEFAULT_POOL"
	default:
		return "UNKNOWN"
	}
}

// Comparison operators accepted by the where compiler.
const (
	CompareEqual     = "="
	CompareNotEqual  = "!="
	CompareLess      = "<"
	CompareLessEq    = "<="
	CompareGreater   = ">"
	CompareGreaterEq = ">="
	CompareIn        = "IN"
	CompareNotIn     = "NOT IN"
	CompareLike      = "LIKE"
	CompareILike     = "ILIKE"
	CompareNotLike   = "NOT LIKE"
	CompareExists    = "EXISTS"
	CompareNotExists = "NOT EXISTS"
)

// IsPatternCompare reports whether op is in the pattern-match family,
// which requires a textual left-hand side.
func IsPatternCompare(op string) bool {
	switch op {
	case CompareLike, CompareILike, CompareNotLike:
		return true
	}
	return false
}

// IsRHSOnlyCompare reports whether op takes no left-hand side.
func IsRHSOnlyCompare(op string) bool {
	return op == CompareExists || op == CompareNotExists
}

// Op is a logical connective.
type Op string

const (
	OpAnd Op = "AND"
	OpOr  Op = "OR"
)

// Cond is a field map: field name to leaf comparison value. Entries are
// semantically ANDed. Compilation iterates keys in sorted order so output
// is deterministic.
type Cond map[string]interface{}

// Seq is an ordered sequence of condition nodes, equivalent to an
// explicit AND connective.
type Seq []interface{}

// Group is an explicit AND/OR connective over child condition nodes. A
// group may carry a default comparison applied to bare child values.
type Group struct {
	Op       Op
	Compare  string // default comparison for bare children, "" means inherit
	Children []interface{}
}

// And groups conditions with AND.
func And(children ...interface{}) *Group {
	return &Group{Op: OpAnd, Children: children}
}

// Or groups conditions with OR.
func Or(children ...interface{}) *Group {
	return &Group{Op: OpOr, Children: children}
}

// WithCompare sets the default comparison applied to bare children.
func (g *Group) WithCompare(op string) *Group {
	g.Compare = op
	return g
}

// Value is an explicit leaf value wrapper carrying bind and quote flags
// and an optional comparison override.
type Value struct {
	Raw     interface{}
	Bind    bool
	Quote   bool
	Compare string
}

// Bound wraps a value to be pushed as a bound parameter.
func Bound(v interface{}) *Value {
	return &Value{Raw: v, Bind: true}
}

// Inline wraps a value to be spliced into the SQL text unbound.
func Inline(v interface{}) *Value {
	return &Value{Raw: v}
}

// Compare wraps a bound value with an explicit comparison operator.
func Compare(op string, v interface{}) *Value {
	return &Value{Raw: v, Bind: true, Compare: op}
}

// Like is shorthand for a bound LIKE comparison.
func Like(pattern string) *Value {
	return Compare(CompareLike, pattern)
}

// WithQuote marks the wrapped value for quote escaping.
func (v *Value) WithQuote() *Value {
	v.Quote = true
	return v
}
