package queryir

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/dqb/internal/ir"
)

const rootPath = "root"

// normalizeKey mirrors the schema's key normalization so request tokens and
// declared keys compare equal.
func normalizeKey(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// ParseFilter parses a loose filter tree. The result is a bare Group, or a
// single Predicate when data is one leaf.
func ParseFilter(data any) (FilterNode, error) {
	return parseNode(data, rootPath, And, true)
}

func asItems(data any) (Map, bool) {
	switch v := data.(type) {
	case Map:
		return v, true
	case map[string]any:
		return sortedMap(v), true
	case []any:
		m := make(Map, len(v))
		for i, elem := range v {
			m[i] = Entry{Key: strconv.Itoa(i), Value: elem}
		}
		return m, true
	default:
		return nil, false
	}
}

func isContainer(v any) bool {
	switch v.(type) {
	case Map, map[string]any, []any:
		return true
	default:
		return false
	}
}

func parseNode(data any, path string, conn Connector, bare bool) (FilterNode, error) {
	items, ok := asItems(data)
	if !ok {
		return nil, filterError(path, "must be a list")
	}
	if len(items) == 0 {
		return nil, filterError(path, "is not defined correctly")
	}

	if !isContainer(items[0].Value) {
		pred, err := parsePredicate(items, path)
		if err != nil {
			return nil, err
		}
		if bare {
			return pred, nil
		}
		// A group key holding a single leaf still emits parentheses.
		return Group{Connector: conn, Children: []FilterNode{pred}, Wrapper: true, Path: path}, nil
	}

	group := Group{Connector: conn, Bare: bare, Path: path}
	for _, item := range items {
		childPath := path + "/" + item.Key
		if !isContainer(item.Value) {
			return nil, filterError(childPath, "must be a list")
		}

		childConn, childBare := And, true
		switch {
		case strings.HasPrefix(item.Key, "group"):
			childBare = false
		case strings.HasPrefix(item.Key, "orGroup"):
			childConn, childBare = Or, false
		}

		child, err := parseNode(item.Value, childPath, childConn, childBare)
		if err != nil {
			return nil, err
		}
		group.Children = append(group.Children, child)
	}
	return group, nil
}

// lookup returns the positional entry or, failing that, the named one.
// Null entries count as absent.
func lookup(items Map, index int, name string) (any, bool) {
	if v, ok := items.Get(strconv.Itoa(index)); ok && v != nil {
		return v, true
	}
	if v, ok := items.Get(name); ok && v != nil {
		return v, true
	}
	return nil, false
}

func parsePredicate(items Map, path string) (Predicate, error) {
	pred := Predicate{Path: path, Op: OpEq, Connector: And, Value: ir.Null{}}

	rawField, _ := lookup(items, 0, "field")
	field, ok := rawField.(string)
	if !ok || normalizeKey(field) == "" {
		return Predicate{}, filterError(path, "does not have a valid field defined (index: 0)")
	}
	pred.Field = normalizeKey(field)

	if rawValue, ok := lookup(items, 1, "value"); ok {
		value, err := ir.FromAny(rawValue)
		if err != nil || !ir.IsScalar(value) {
			return Predicate{}, filterError(path, "does not have a valid value defined (index: 1; valid: string, integer, float, bool, null)")
		}
		pred.Value = value
	}

	if rawOp, ok := lookup(items, 2, "relational_operator"); ok {
		op, isString := rawOp.(string)
		pred.Op = RelOp(strings.ToUpper(strings.TrimSpace(op)))
		if !isString || !slices.Contains(RelOps, pred.Op) {
			return Predicate{}, filterError(path, "does not have a valid relational operator defined (index: 2; valid: %s)", joinValues(RelOps))
		}
	}

	if rawConn, ok := lookup(items, 3, "logical_operator"); ok {
		conn, isString := rawConn.(string)
		pred.Connector = Connector(strings.ToUpper(strings.TrimSpace(conn)))
		if !isString || (pred.Connector != And && pred.Connector != Or) {
			return Predicate{}, filterError(path, "does not have a valid logical operator defined (index: 3; valid: AND, OR)")
		}
	}

	if pred.Op == OpLike {
		pred.Like = LikeBoth
		if rawLike, ok := lookup(items, 4, "like_format"); ok {
			like, isString := rawLike.(string)
			pred.Like = LikeMode(strings.ToUpper(strings.TrimSpace(like)))
			if !isString || !slices.Contains(LikeModes, pred.Like) {
				return Predicate{}, filterError(path, "does not have a valid like format defined (index: 4; valid: %s)", joinValues(LikeModes))
			}
		}
		if s, ok := pred.Value.(ir.String); !ok || s == "" {
			return Predicate{}, filterError(path, "does not have a valid value defined (index: 1; valid: non-empty string)")
		}
	}

	return pred, nil
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// ParseOrder parses a sort order given as a "field:DIR,..." string, an
// ordered field-to-direction map, or a list whose elements are "field:DIR"
// strings or [field, direction] pairs. A missing direction means ASC.
//
// Duplicate fields are kept; the compiler decides which occurrence wins.
func ParseOrder(data any) ([]OrderEntry, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case string:
		return ParseOrderString(v)
	case Map:
		return parseOrderMap(v)
	case map[string]any:
		return parseOrderMap(sortedMap(v))
	case []any:
		entries := make([]OrderEntry, 0, len(v))
		for i, elem := range v {
			path := strconv.Itoa(i)
			var (
				entry OrderEntry
				err   error
			)
			switch e := elem.(type) {
			case string:
				entry, err = parseOrderToken(e, path)
			case []any:
				entry, err = parseOrderPair(e, path)
			default:
				err = orderError(path, "entry must be a \"field:DIR\" string or a [field, direction] pair")
			}
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		return entries, nil
	default:
		return nil, orderError("", "unsupported order type %T", data)
	}
}

// ParseOrderString parses "field:DIR,field:DIR". An empty string yields no
// entries.
func ParseOrderString(s string) ([]OrderEntry, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	tokens := strings.Split(s, ",")
	entries := make([]OrderEntry, 0, len(tokens))
	for i, token := range tokens {
		entry, err := parseOrderToken(token, strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseOrderToken(token, path string) (OrderEntry, error) {
	field, dir, _ := strings.Cut(token, ":")
	field = normalizeKey(field)
	if field == "" {
		return OrderEntry{}, orderError(path, "empty field in %q", token)
	}
	d, err := parseDirection(field, dir, path)
	if err != nil {
		return OrderEntry{}, err
	}
	return OrderEntry{Field: field, Direction: d}, nil
}

func parseOrderPair(pair []any, path string) (OrderEntry, error) {
	if len(pair) == 0 || len(pair) > 2 {
		return OrderEntry{}, orderError(path, "pair must have one or two elements")
	}
	field, ok := pair[0].(string)
	if !ok || normalizeKey(field) == "" {
		return OrderEntry{}, orderError(path, "field must be a non-empty string")
	}
	field = normalizeKey(field)

	var dir any
	if len(pair) == 2 {
		dir = pair[1]
	}
	d, err := parseDirectionValue(field, dir, path)
	if err != nil {
		return OrderEntry{}, err
	}
	return OrderEntry{Field: field, Direction: d}, nil
}

func parseOrderMap(m Map) ([]OrderEntry, error) {
	entries := make([]OrderEntry, 0, len(m))
	for _, e := range m {
		field := normalizeKey(e.Key)
		if field == "" {
			return nil, orderError(e.Key, "empty field")
		}
		d, err := parseDirectionValue(field, e.Value, e.Key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, OrderEntry{Field: field, Direction: d})
	}
	return entries, nil
}

func parseDirectionValue(field string, v any, path string) (Direction, error) {
	switch dir := v.(type) {
	case nil:
		return Asc, nil
	case string:
		return parseDirection(field, dir, path)
	default:
		return "", orderError(path, "field %s has an invalid sort type %v, it must be one of: ASC, DESC", field, dir)
	}
}

func parseDirection(field, dir, path string) (Direction, error) {
	d := Direction(strings.ToUpper(strings.TrimSpace(dir)))
	switch d {
	case "":
		return Asc, nil
	case Asc, Desc:
		return d, nil
	default:
		return "", orderError(path, "field %s has an invalid sort type %q, it must be one of: ASC, DESC", field, dir)
	}
}

// ParseFieldSpec parses a comma-separated field selection.
func ParseFieldSpec(spec string) (FieldSpec, error) {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" || trimmed == "*" {
		return FieldSpec{Mode: ModeAll}, nil
	}

	out := FieldSpec{Mode: ModeSpecification}
	for i, raw := range strings.Split(trimmed, ",") {
		token, err := parseFieldToken(raw, i)
		if err != nil {
			return FieldSpec{}, err
		}
		if token.IsWildcard() {
			out.Mode = ModeShortener
		}
		out.Tokens = append(out.Tokens, token)
	}
	return out, nil
}

func parseFieldToken(raw string, index int) (FieldToken, error) {
	s := normalizeKey(raw)
	token := FieldToken{Raw: s}

	if s == "*" {
		return FieldToken{}, &ParseError{
			Spec:    SpecFields,
			Path:    strconv.Itoa(index),
			Message: "'*' selects every field and cannot be combined with other fields",
		}
	}

	switch strings.Count(s, "*") {
	case 0:
		token.Kind = TokenExact
	case 1:
		pos := strings.Index(s, "*")
		token.Prefix, token.Suffix = s[:pos], s[pos+1:]
		switch {
		case pos == 0:
			token.Kind = TokenSuffix
		case pos == len(s)-1:
			token.Kind = TokenPrefix
		default:
			token.Kind = TokenInfix
		}
	default:
		return FieldToken{}, &ParseError{
			Spec:    SpecFields,
			Path:    strconv.Itoa(index),
			Message: fmt.Sprintf("the field shortener %q may contain only one '*'", s),
		}
	}
	return token, nil
}
