package queryir

import (
	"strings"

	"github.com/roach88/dqb/internal/ir"
)

// FilterNode is a node of a filter tree.
//
// This is a sealed interface - only Group and Predicate implement it.
type FilterNode interface {
	filterNode() // Marker method - seals interface to this package
}

// Connector joins a node to its preceding sibling in the same scope.
// It is ignored for the first node emitted in a scope.
type Connector string

const (
	And Connector = "AND"
	Or  Connector = "OR"
)

// RelOp is a relational operator.
type RelOp string

const (
	OpEq   RelOp = "="
	OpNe   RelOp = "!="
	OpGt   RelOp = ">"
	OpGte  RelOp = ">="
	OpLt   RelOp = "<"
	OpLte  RelOp = "<="
	OpLike RelOp = "LIKE"
)

// RelOps lists the accepted relational operators.
var RelOps = []RelOp{OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpLike}

// LikeMode controls where LIKE wildcards are placed around the value.
type LikeMode string

const (
	LikeBoth   LikeMode = "BOTH"
	LikeBefore LikeMode = "BEFORE"
	LikeAfter  LikeMode = "AFTER"
)

// LikeModes lists the accepted LIKE modes.
var LikeModes = []LikeMode{LikeBoth, LikeBefore, LikeAfter}

// Pattern formats value for a LIKE comparison.
func (m LikeMode) Pattern(value string) string {
	switch m {
	case LikeBefore:
		return "%" + value
	case LikeAfter:
		return value + "%"
	default:
		return "%" + value + "%"
	}
}

// Group is a list of filter nodes.
//
// A regular group is emitted in parentheses and joined to its predecessor
// with Connector. A Bare group emits no parentheses and its children join
// the enclosing scope directly; the root of every parsed tree is bare.
type Group struct {
	Connector Connector
	Children  []FilterNode
	Bare      bool

	// Wrapper marks a group key that held a single leaf. It emits
	// parentheses but shares its leaf's recursion step.
	Wrapper bool

	// Path is the breadcrumb of the group in the source data ("root/group1").
	Path string
}

func (Group) filterNode() {}

// Predicate compares one field to a scalar value.
type Predicate struct {
	Field     string
	Value     ir.Value // scalar or ir.Null
	Op        RelOp
	Connector Connector

	// Like is set only when Op is OpLike.
	Like LikeMode

	Path string
}

func (Predicate) filterNode() {}

// IsNullCheck reports whether the predicate compiles to IS [NOT] NULL.
func (p Predicate) IsNullCheck() bool {
	return (p.Op == OpEq || p.Op == OpNe) && ir.IsNull(p.Value)
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// OrderEntry is one field of a sort order.
type OrderEntry struct {
	Field     string
	Direction Direction
}

// FieldMode is how a field selection string is interpreted.
type FieldMode string

const (
	// ModeAll selects every readable field; "" or "*".
	ModeAll FieldMode = "all"

	// ModeShortener is a token list where at least one token has a wildcard.
	ModeShortener FieldMode = "shortener"

	// ModeSpecification is a list of exact field keys.
	ModeSpecification FieldMode = "specification"
)

// TokenKind classifies a field selection token.
type TokenKind int

const (
	TokenExact TokenKind = iota
	TokenSuffix
	TokenPrefix
	TokenInfix
)

// FieldToken is one comma-separated entry of a field selection.
type FieldToken struct {
	Raw  string
	Kind TokenKind

	// Prefix and Suffix are the literal parts around the wildcard.
	Prefix string
	Suffix string
}

// IsWildcard reports whether the token contains a wildcard.
func (t FieldToken) IsWildcard() bool {
	return t.Kind != TokenExact
}

// Match reports whether the field key satisfies the token.
func (t FieldToken) Match(key string) bool {
	switch t.Kind {
	case TokenExact:
		return key == t.Raw
	case TokenSuffix:
		return strings.HasSuffix(key, t.Suffix)
	case TokenPrefix:
		return strings.HasPrefix(key, t.Prefix)
	default:
		return len(key) >= len(t.Prefix)+len(t.Suffix) &&
			strings.HasPrefix(key, t.Prefix) &&
			strings.HasSuffix(key, t.Suffix)
	}
}

// FieldSpec is a parsed field selection.
type FieldSpec struct {
	Mode   FieldMode
	Tokens []FieldToken
}
