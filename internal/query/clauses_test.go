package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClauses_Render(t *testing.T) {
	c := Clauses{
		Values: map[Segment]string{
			SegmentSelect:  "users.id",
			SegmentFrom:    "users",
			SegmentJoin:    "LEFT JOIN p ON p.id = users.id",
			SegmentWhere:   "users.id = ?",
			SegmentOrderBy: "users.id ASC",
			SegmentLimit:   "10",
		},
		Params: []any{int64(1)},
	}

	tests := []struct {
		name      string
		overrides Overrides
		want      string
	}{
		{
			name: "no overrides",
			want: "SELECT users.id FROM users LEFT JOIN p ON p.id = users.id WHERE users.id = ? ORDER BY users.id ASC LIMIT 10",
		},
		{
			name:      "literal drops a segment",
			overrides: Overrides{SegmentLimit: Literal(""), SegmentOrderBy: Literal("")},
			want:      "SELECT users.id FROM users LEFT JOIN p ON p.id = users.id WHERE users.id = ?",
		},
		{
			name:      "literal replaces a segment",
			overrides: Overrides{SegmentSelect: Literal(CountProjection)},
			want:      "SELECT COUNT(*) AS total FROM users LEFT JOIN p ON p.id = users.id WHERE users.id = ? ORDER BY users.id ASC LIMIT 10",
		},
		{
			name: "transform receives the default",
			overrides: Overrides{
				SegmentWhere: Transform(func(v string) string { return "(" + v + ") AND users.deleted_at IS NULL" }),
				SegmentJoin:  Transform(strings.ToLower),
			},
			want: "SELECT users.id FROM users left join p on p.id = users.id WHERE (users.id = ?) AND users.deleted_at IS NULL ORDER BY users.id ASC LIMIT 10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := c.Render(tt.overrides)
			assert.Equal(t, tt.want, stmt.SQL)
			assert.Equal(t, []any{int64(1)}, stmt.Params)
		})
	}
}

func TestClauses_RenderFillsEmptySegment(t *testing.T) {
	c := Clauses{Values: map[Segment]string{SegmentSelect: "users.id", SegmentFrom: "users"}}

	stmt := c.Render(Overrides{SegmentWhere: Transform(func(v string) string {
		if v == "" {
			return "users.active = 1"
		}
		return v
	})})
	assert.Equal(t, "SELECT users.id FROM users WHERE users.active = 1", stmt.SQL)
}

func TestBuilder_SQLWithOverrides(t *testing.T) {
	b := newBuilder(t)
	require.NoError(t, b.Prepare(Request{Fields: "id", Page: 3, ItemsPerPage: 10}))

	page, ok := b.Page()
	require.True(t, ok)

	// Postgres spelling of the same page.
	stmt, err := b.SQL(Overrides{SegmentLimit: Transform(func(string) string {
		return "10 OFFSET 20"
	})})
	require.NoError(t, err)
	assert.Equal(t, "SELECT users.id FROM users LIMIT 10 OFFSET 20", stmt.SQL)
	assert.Equal(t, 20, page.Offset)
}
