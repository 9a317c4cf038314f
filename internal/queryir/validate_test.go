package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	node, err := ParseFilter(mustDecode(t, `{
		"0": ["status", "active"],
		"orGroup1": [["age", 18, ">"], ["deleted_at", null, "!="]],
		"2": [["status", null]]
	}`))
	require.NoError(t, err)

	s := Summarize(node)
	assert.Equal(t, 7, s.Nodes)
	assert.Equal(t, 4, s.Predicates)
	assert.Equal(t, 2, s.NullChecks)
	assert.Equal(t, 2, s.Params())
	assert.Equal(t, 3, s.Depth)
	assert.Equal(t, map[string]int{"status": 2, "age": 1, "deleted_at": 1}, s.Fields)
}

func TestSummarize_SinglePredicate(t *testing.T) {
	s := Summarize(Predicate{Field: "a", Op: OpEq})
	assert.Equal(t, 1, s.Nodes)
	assert.Equal(t, 1, s.Depth)
	assert.Equal(t, 1, s.NullChecks, "a zero Value is null")
}

func TestSummarize_Nil(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Nodes)
	assert.Zero(t, s.Params())
}

func TestWalk_SkipChildren(t *testing.T) {
	tree := Group{Bare: true, Children: []FilterNode{
		Group{Children: []FilterNode{Predicate{Field: "hidden"}}},
		Predicate{Field: "visible"},
	}}

	var seen []string
	Walk(tree, func(n FilterNode, depth int) bool {
		switch v := n.(type) {
		case Predicate:
			seen = append(seen, v.Field)
		case Group:
			return v.Bare
		}
		return true
	})
	assert.Equal(t, []string{"visible"}, seen)
}
