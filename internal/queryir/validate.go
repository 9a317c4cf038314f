package queryir

// Summary describes the shape of a filter tree.
type Summary struct {
	// Nodes counts every Group and Predicate, root included.
	Nodes int

	Predicates int

	// NullChecks counts predicates that compile to IS [NOT] NULL and bind
	// no parameter.
	NullChecks int

	// Depth is the deepest nesting level; a lone predicate has depth 1.
	Depth int

	// Fields counts predicate usages per field key.
	Fields map[string]int
}

// Params is the number of placeholders the tree binds once compiled.
func (s Summary) Params() int {
	return s.Predicates - s.NullChecks
}

// Walk visits node and its descendants depth-first in source order.
// Returning false from fn skips the children of the visited group.
func Walk(node FilterNode, fn func(n FilterNode, depth int) bool) {
	walk(node, 1, fn)
}

func walk(node FilterNode, depth int, fn func(FilterNode, int) bool) {
	if node == nil || !fn(node, depth) {
		return
	}
	if g, ok := node.(Group); ok {
		for _, child := range g.Children {
			walk(child, depth+1, fn)
		}
	}
}

// Summarize walks the tree once and reports its shape.
// Summarize is a pure function with no side effects.
func Summarize(node FilterNode) Summary {
	s := Summary{Fields: map[string]int{}}
	Walk(node, func(n FilterNode, depth int) bool {
		s.Nodes++
		s.Depth = max(s.Depth, depth)
		if p, ok := n.(Predicate); ok {
			s.Predicates++
			s.Fields[p.Field]++
			if p.IsNullCheck() {
				s.NullChecks++
			}
		}
		return true
	})
	return s
}
