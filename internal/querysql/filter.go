package querysql

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/dqb/internal/ir"
	"github.com/roach88/dqb/internal/queryir"
	"github.com/roach88/dqb/internal/schema"
)

// FilterResult is a compiled WHERE fragment.
type FilterResult struct {
	SQL string

	// Params align with the ? placeholders of SQL in emission order.
	Params []any

	// Tables are the tables referenced by predicates, in first-touch order.
	Tables []string

	// Fields counts predicate usages per field key.
	Fields map[string]int

	Predicates int
	Steps      int
}

type filterCompiler struct {
	cat    Catalog
	limits Limits

	// trusted trees skip the filter-disabled and access checks.
	trusted bool

	sql            strings.Builder
	params         []any
	needsConnector bool
	predicates     int
	steps          int
	tables         touched
	fields         map[string]int
}

// CompileFilter compiles a filter tree into a WHERE fragment.
// Both caps in limits apply to the whole tree.
func CompileFilter(cat Catalog, node queryir.FilterNode, limits Limits) (*FilterResult, error) {
	return CompileFilters(cat, nil, node, limits)
}

// CompileFilters compiles server-side default filters and client filters
// into one WHERE fragment. Default filters are trusted: their fields must
// exist but may be filter-disabled or above the caller's access level.
// When both trees are present the result is "(defaults) AND (client)".
// Both trees share the predicate and recursion caps.
//
// A nil result means there is nothing to filter on.
func CompileFilters(cat Catalog, defaults, client queryir.FilterNode, limits Limits) (*FilterResult, error) {
	if defaults == nil && client == nil {
		return nil, nil
	}

	c := &filterCompiler{
		cat:    cat,
		limits: limits.WithDefaults(),
		fields: make(map[string]int),
	}

	both := defaults != nil && client != nil
	if defaults != nil {
		c.trusted = true
		if err := c.scoped(defaults, both, ""); err != nil {
			return nil, err
		}
		c.trusted = false
	}
	if client != nil {
		if err := c.scoped(client, both, " AND "); err != nil {
			return nil, err
		}
	}

	return &FilterResult{
		SQL:        c.sql.String(),
		Params:     c.params,
		Tables:     c.tables.order,
		Fields:     c.fields,
		Predicates: c.predicates,
		Steps:      c.steps,
	}, nil
}

func (c *filterCompiler) scoped(node queryir.FilterNode, wrap bool, prefix string) error {
	if !wrap {
		return c.compile(node)
	}
	c.sql.WriteString(prefix + "(")
	c.needsConnector = false
	if err := c.compile(node); err != nil {
		return err
	}
	c.sql.WriteString(")")
	return nil
}

func (c *filterCompiler) compile(node queryir.FilterNode) error {
	if g, ok := node.(queryir.Group); ok && g.Wrapper {
		return c.compileGroup(g)
	}

	c.steps++
	if c.steps > c.limits.MaxRecursion {
		return &FilterError{
			Code:    ErrCodeFilterLimit,
			Path:    nodePath(node),
			Limit:   LimitRecursion,
			Message: fmt.Sprintf("the iteration limit of %d items per request has been exceeded", c.limits.MaxRecursion),
		}
	}

	switch n := node.(type) {
	case queryir.Group:
		return c.compileGroup(n)
	case queryir.Predicate:
		return c.compilePredicate(n)
	default:
		return &FilterError{Code: ErrCodeMalformedFilter, Message: fmt.Sprintf("unsupported filter node %T", node)}
	}
}

func (c *filterCompiler) compileGroup(g queryir.Group) error {
	if len(g.Children) == 0 {
		return &FilterError{Code: ErrCodeMalformedFilter, Path: g.Path, Message: fmt.Sprintf("the filter '%s' is not defined correctly", g.Path)}
	}

	if !g.Bare {
		switch {
		case !c.needsConnector:
			c.sql.WriteString("(")
		case g.Connector == queryir.Or:
			c.sql.WriteString(" OR (")
		default:
			c.sql.WriteString(" AND (")
		}
		c.needsConnector = false
	}

	for _, child := range g.Children {
		if err := c.compile(child); err != nil {
			return err
		}
	}

	if !g.Bare {
		c.sql.WriteString(")")
		c.needsConnector = true
	}
	return nil
}

func (c *filterCompiler) compilePredicate(p queryir.Predicate) error {
	if c.predicates >= c.limits.MaxPredicates {
		return &FilterError{
			Code:    ErrCodeFilterLimit,
			Path:    p.Path,
			Limit:   LimitPredicates,
			Message: fmt.Sprintf("the limit of %d filters per request was exceeded", c.limits.MaxPredicates),
		}
	}

	cfg, err := c.resolve(p)
	if err != nil {
		return err
	}
	if err := checkPredicate(p); err != nil {
		return err
	}

	if c.needsConnector {
		conn := p.Connector
		if conn != queryir.Or {
			conn = queryir.And
		}
		c.sql.WriteString(" " + string(conn) + " ")
	}
	c.sql.WriteString(cfg.SQL)

	switch {
	case p.Op == queryir.OpLike:
		c.sql.WriteString(" LIKE ?")
		c.params = append(c.params, p.Like.Pattern(string(p.Value.(ir.String))))
	case p.IsNullCheck() && p.Op == queryir.OpNe:
		c.sql.WriteString(" IS NOT NULL")
	case p.IsNullCheck():
		c.sql.WriteString(" IS NULL")
	default:
		c.sql.WriteString(" " + string(p.Op) + " ?")
		c.params = append(c.params, ir.Native(p.Value))
	}

	c.fields[cfg.Key]++
	c.tables.add(cfg.Table)
	c.needsConnector = true
	c.predicates++
	return nil
}

func (c *filterCompiler) resolve(p queryir.Predicate) (schema.FieldConfig, error) {
	cfg, err := c.cat.FieldConfig(p.Field)
	if err != nil {
		if schema.IsNotFound(err) {
			return cfg, &FilterError{Code: ErrCodeUnknownFilter, Path: p.Path, Field: p.Field,
				Message: fmt.Sprintf("the field '%s' does not exist in the schema (breadcrumb: %s)", p.Field, p.Path)}
		}
		return cfg, err
	}

	// Extra fields live outside the SQL result and can never be filtered.
	if cfg.IsExtra || (!c.trusted && cfg.FilterDisabled) {
		return cfg, &FilterError{Code: ErrCodeFilterDisabled, Path: p.Path, Field: p.Field,
			Message: fmt.Sprintf("the filter '%s' has a field '%s' that cannot be used as a filter", p.Path, p.Field)}
	}
	if !c.trusted && cfg.AccessDenied {
		return cfg, &FilterError{Code: ErrCodeFilterForbidden, Path: p.Path, Field: p.Field,
			Message: fmt.Sprintf("no access to the field '%s' (breadcrumb: %s)", p.Field, p.Path)}
	}
	return cfg, nil
}

// checkPredicate re-validates predicates built in code rather than parsed.
func checkPredicate(p queryir.Predicate) error {
	malformed := func(format string, args ...any) error {
		return &FilterError{Code: ErrCodeMalformedFilter, Path: p.Path, Field: p.Field, Message: fmt.Sprintf(format, args...)}
	}

	if !slices.Contains(queryir.RelOps, p.Op) {
		return malformed("the filter '%s' does not have a valid relational operator defined", p.Path)
	}
	if p.Value != nil && !ir.IsScalar(p.Value) {
		return malformed("the filter '%s' does not have a valid value defined (valid: string, integer, float, bool, null)", p.Path)
	}
	if p.Op == queryir.OpLike {
		s, ok := p.Value.(ir.String)
		if !ok || s == "" {
			return malformed("the filter '%s' does not have a valid value defined (valid: non-empty string)", p.Path)
		}
		if p.Like != "" && !slices.Contains(queryir.LikeModes, p.Like) {
			return malformed("the filter '%s' does not have a valid like format defined", p.Path)
		}
	}
	return nil
}

func nodePath(node queryir.FilterNode) string {
	switch n := node.(type) {
	case queryir.Group:
		return n.Path
	case queryir.Predicate:
		return n.Path
	default:
		return ""
	}
}
