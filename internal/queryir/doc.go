// Package queryir is the typed representation of a query request: the field
// selection, the filter tree and the sort order.
//
// Requests arrive as loosely typed data (decoded JSON, YAML, query strings).
// The Parse functions turn that data into the types of this package and
// report structural problems as *ParseError. Nothing here consults a schema:
// whether a field exists, is readable or may be filtered is decided by the
// SQL compilers in querysql.
//
// FILTER TREES:
//
// FilterNode is a sealed interface implemented by Group and Predicate only.
//
//	switch n := node.(type) {
//	case Group:
//	    // Children, Connector, Bare
//	case Predicate:
//	    // Field, Value, Op, Connector, Like
//	}
//
// The loose filter grammar is a list (or ordered map) of items. An item
// whose key starts with "group" or "orGroup" is a parenthesized group joined
// to its predecessor with AND or OR. Any other nested list is a bare group:
// its children continue the enclosing scope without parentheses. A leaf is
// either a positional tuple
//
//	[field, value, relational_operator, logical_operator, like_format]
//
// or a map with those names as keys. Only field is required.
//
// ORDERING:
//
// Loose data is significant in its order. Go maps are not, so JSON and YAML
// should be decoded with DecodeJSON or FromYAML, which produce Map values
// that keep key order. Plain map[string]any input is accepted with keys
// sorted (numeric keys numerically, before all other keys).
package queryir
