package schema

import "strings"

// Join types accepted in table declarations, matched case-insensitively.
const (
	JoinInner      = "INNER"
	JoinLeft       = "LEFT"
	JoinRight      = "RIGHT"
	JoinOuter      = "OUTER"
	JoinLeftOuter  = "LEFT OUTER"
	JoinRightOuter = "RIGHT OUTER"
)

// AllowedJoinTypes lists the join types in declaration order.
var AllowedJoinTypes = []string{JoinInner, JoinLeft, JoinRight, JoinOuter, JoinLeftOuter, JoinRightOuter}

// Join is a validated join specification.
type Join struct {
	On   string `json:"on"`
	Type string `json:"type"`
}

// TableConfig is the built structural configuration of a table.
// Values are immutable once built; lookups return copies.
type TableConfig struct {
	Key string `json:"key"`

	// Name is the physical table name (the key unless a custom name was given).
	Name string `json:"name"`

	// Alias is the key when a custom name was given, empty otherwise.
	Alias string `json:"alias,omitempty"`

	// SQL is the FROM/JOIN reference: "name AS key" or "key".
	SQL string `json:"sql"`

	// Ref qualifies this table's columns. Extra tables always use Name.
	Ref string `json:"ref"`

	IsPrimary bool `json:"is_primary"`
	IsExtra   bool `json:"is_extra"`

	// Join is nil for the primary table and for extra tables.
	Join *Join `json:"join,omitempty"`

	// Dependency is empty only for the primary table.
	Dependency []string `json:"dependency,omitempty"`

	AccessLevel    int  `json:"access_level"`
	ReadDisabled   bool `json:"read_disabled"`
	FilterDisabled bool `json:"filter_disabled"`
	OrderDisabled  bool `json:"order_disabled"`
}

// JoinSQL renders the physical join fragment, keyword included:
//
//	LEFT JOIN profiles AS p ON p.user_id = users.id
func (t TableConfig) JoinSQL() string {
	if t.Join == nil {
		return ""
	}
	return t.Join.Type + " JOIN " + t.SQL + " ON " + t.Join.On
}

// ParentField returns the first dependency field, which links this table to
// its parent in the join chain. Empty for the primary table.
func (t TableConfig) ParentField() string {
	if len(t.Dependency) == 0 {
		return ""
	}
	return t.Dependency[0]
}

// FieldConfig is the built structural configuration of a field, plus the
// access-denied flag computed against the schema's current access level.
type FieldConfig struct {
	Key   string `json:"key"`
	Table string `json:"table"`

	// Name is the physical column name (the key unless a custom name was given).
	Name string `json:"name"`

	// Alias is the key when a custom name was given, empty otherwise.
	Alias string `json:"alias,omitempty"`

	// SQL is the qualified column reference used in WHERE and ORDER BY.
	SQL string `json:"sql"`

	// SelectSQL is the SELECT-list expression, aliased to the key when renamed.
	SelectSQL string `json:"select_sql"`

	IsExtra bool `json:"is_extra"`

	AccessLevel int `json:"access_level"`

	// AccessDenied is never stored in a snapshot; it is recomputed on every lookup.
	AccessDenied bool `json:"-"`

	ReadDisabled   bool `json:"read_disabled"`
	FilterDisabled bool `json:"filter_disabled"`
	OrderDisabled  bool `json:"order_disabled"`
}

// normalizeJoinType upper-cases t and collapses runs of whitespace, so
// "left  outer" matches LEFT OUTER.
func normalizeJoinType(t string) string {
	return strings.Join(strings.Fields(strings.ToUpper(t)), " ")
}

func isAllowedJoinType(t string) bool {
	for _, allowed := range AllowedJoinTypes {
		if t == allowed {
			return true
		}
	}
	return false
}
