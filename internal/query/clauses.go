package query

import (
	"strings"
)

// Segment names a clause of the rendered statement.
type Segment string

const (
	SegmentSelect  Segment = "SELECT"
	SegmentFrom    Segment = "FROM"
	SegmentJoin    Segment = "JOIN"
	SegmentWhere   Segment = "WHERE"
	SegmentOrderBy Segment = "ORDER BY"
	SegmentLimit   Segment = "LIMIT"
)

// Segments lists every segment in render order.
var Segments = []Segment{SegmentSelect, SegmentFrom, SegmentJoin, SegmentWhere, SegmentOrderBy, SegmentLimit}

// CountProjection replaces the SELECT list of a count statement.
const CountProjection = "COUNT(*) AS total"

// Clauses holds the text of each assembled segment, without keywords,
// plus the parameters bound by WHERE.
type Clauses struct {
	Values map[Segment]string
	Params []any
}

// Get returns the text of seg, or "" when it is empty or was not assembled.
func (c Clauses) Get(seg Segment) string {
	return c.Values[seg]
}

// Override replaces the default text of a segment at render time.
type Override interface {
	apply(value string) string
}

// Literal replaces a segment with fixed text. An empty Literal drops it.
type Literal string

func (l Literal) apply(string) string { return string(l) }

// Transform rewrites a segment given its default text, which may be empty.
type Transform func(value string) string

func (f Transform) apply(value string) string { return f(value) }

// Overrides maps segments to their replacements.
type Overrides map[Segment]Override

// Statement is a rendered query and its positional parameters.
type Statement struct {
	SQL    string
	Params []any
}

// Render concatenates the non-empty segments in render order. Every segment
// but JOIN is prefixed with its keyword; join fragments carry their own.
// Overrides apply before the emptiness check.
func (c Clauses) Render(overrides Overrides) Statement {
	var parts []string
	for _, seg := range Segments {
		value := c.Values[seg]
		if o, ok := overrides[seg]; ok && o != nil {
			value = o.apply(value)
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if seg == SegmentJoin {
			parts = append(parts, value)
		} else {
			parts = append(parts, string(seg)+" "+value)
		}
	}
	return Statement{SQL: strings.Join(parts, " "), Params: c.Params}
}

// Clauses assembles the named segments, or all of them when none are named.
// JOIN is computed from the tables touched by the assembled SELECT, WHERE
// and ORDER BY segments.
func (b *Builder) Clauses(segments ...Segment) (Clauses, error) {
	if b.state == nil {
		return Clauses{}, errNotPrepared
	}
	if len(segments) == 0 {
		segments = Segments
	}
	want := make(map[Segment]bool, len(segments))
	for _, seg := range segments {
		want[seg] = true
	}

	c := Clauses{Values: make(map[Segment]string, len(Segments))}
	var touched []string

	if want[SegmentSelect] {
		c.Values[SegmentSelect] = b.state.fields.SQL
		touched = append(touched, b.state.fields.MainTableKeys()...)
	}

	if want[SegmentFrom] {
		primary, err := b.schema.TableConfig(b.schema.PrimaryTable())
		if err != nil {
			return Clauses{}, err
		}
		c.Values[SegmentFrom] = primary.SQL
	}

	if want[SegmentWhere] && b.state.filter != nil {
		c.Values[SegmentWhere] = b.state.filter.SQL
		c.Params = b.state.filter.Params
		touched = append(touched, b.state.filter.Tables...)
	}

	if want[SegmentOrderBy] && b.state.order != nil {
		c.Values[SegmentOrderBy] = b.state.order.SQL
		touched = append(touched, b.state.order.Tables...)
	}

	if want[SegmentJoin] && len(touched) > 0 {
		tables, err := b.schema.JoinTables(touched)
		if err != nil {
			return Clauses{}, err
		}
		joins := make([]string, len(tables))
		for i, t := range tables {
			joins[i] = t.JoinSQL()
		}
		c.Values[SegmentJoin] = strings.Join(joins, " ")
	}

	if want[SegmentLimit] {
		c.Values[SegmentLimit] = b.state.page.SQL
	}

	if c.Params == nil {
		c.Params = []any{}
	}
	return c, nil
}

// SQL renders the full statement with optional overrides.
func (b *Builder) SQL(overrides Overrides) (Statement, error) {
	c, err := b.Clauses()
	if err != nil {
		return Statement{}, err
	}
	return c.Render(overrides), nil
}

// Count renders SELECT COUNT(*) AS total over FROM, JOIN and WHERE with the
// same parameters. Tables touched by the field selection stay joined so
// inner joins filter the count the same way they filter the rows.
func (b *Builder) Count() (Statement, error) {
	c, err := b.Clauses(SegmentSelect, SegmentFrom, SegmentJoin, SegmentWhere)
	if err != nil {
		return Statement{}, err
	}
	return c.Render(Overrides{SegmentSelect: Literal(CountProjection)}), nil
}
