package filter

import (
	"slices"
	"strings"
)

// Kind tags the variant held by an Expression.
type Kind int

const (
	// KindMatchAll places no constraint.
	KindMatchAll Kind = iota
	// KindTagEquals matches when the tag field intersects the value set.
	KindTagEquals
	// KindAnd requires both operands.
	KindAnd
	// KindOr requires either operand.
	KindOr
)

func (k Kind) String() string {
	switch k {
	case KindMatchAll:
		return "match_all"
	case KindTagEquals:
		return "tag_equals"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	default:
		return "unknown"
	}
}

// Expression is an immutable boolean tree of tag constraints.
// The zero value is MatchAll.
type Expression struct {
	kind   Kind
	field  string
	values []string
	left   *Expression
	right  *Expression
}

// MatchAll returns the expression without constraints.
func MatchAll() Expression { return Expression{} }

// TagEquals matches documents whose tag field holds any of values.
// Values are trimmed, blanks dropped, duplicates removed and the set sorted.
// An empty field or an empty value set yields MatchAll.
func TagEquals(field string, values ...string) Expression {
	field = strings.TrimSpace(field)
	set := normalizeValues(values)
	if field == "" || len(set) == 0 {
		return MatchAll()
	}
	return Expression{kind: KindTagEquals, field: field, values: set}
}

// And combines two expressions. MatchAll is the identity.
func And(lhs, rhs Expression) Expression {
	switch {
	case lhs.IsMatchAll():
		return rhs
	case rhs.IsMatchAll():
		return lhs
	}
	return Expression{kind: KindAnd, left: &lhs, right: &rhs}
}

// Or combines two expressions. MatchAll on either side absorbs the other.
func Or(lhs, rhs Expression) Expression {
	if lhs.IsMatchAll() || rhs.IsMatchAll() {
		return MatchAll()
	}
	return Expression{kind: KindOr, left: &lhs, right: &rhs}
}

// Kind returns the variant tag.
func (e Expression) Kind() Kind { return e.kind }

// IsMatchAll reports whether the expression places no constraint.
func (e Expression) IsMatchAll() bool { return e.kind == KindMatchAll }

// Field returns the tag field of a TagEquals node.
func (e Expression) Field() string { return e.field }

// Values returns a copy of the value set of a TagEquals node.
func (e Expression) Values() []string { return slices.Clone(e.values) }

// Left returns the left operand of an And/Or node.
func (e Expression) Left() Expression {
	if e.left == nil {
		return MatchAll()
	}
	return *e.left
}

// Right returns the right operand of an And/Or node.
func (e Expression) Right() Expression {
	if e.right == nil {
		return MatchAll()
	}
	return *e.right
}

// Equal reports structural equality.
func (e Expression) Equal(other Expression) bool {
	if e.kind != other.kind {
		return false
	}
	switch e.kind {
	case KindMatchAll:
		return true
	case KindTagEquals:
		return e.field == other.field && slices.Equal(e.values, other.values)
	default:
		return e.Left().Equal(other.Left()) && e.Right().Equal(other.Right())
	}
}

// String renders the expression for logs and test failures.
func (e Expression) String() string {
	switch e.kind {
	case KindTagEquals:
		return e.field + " in {" + strings.Join(e.values, ", ") + "}"
	case KindAnd:
		return "(" + e.Left().String() + " AND " + e.Right().String() + ")"
	case KindOr:
		return "(" + e.Left().String() + " OR " + e.Right().String() + ")"
	default:
		return "*"
	}
}

func normalizeValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
