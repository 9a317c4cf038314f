package querysql

import (
	"fmt"

	"github.com/creasty/defaults"
)

// Limits bounds the work a single request can ask for. Zero fields take the
// value of their default tag.
type Limits struct {
	// MaxPredicates caps leaf predicates across the whole filter tree.
	MaxPredicates int `default:"20" json:"max_predicates" yaml:"max_predicates" mapstructure:"max_predicates"`

	// MaxRecursion caps visited filter nodes (groups and leaves) across the whole tree.
	MaxRecursion int `default:"64" json:"max_recursion" yaml:"max_recursion" mapstructure:"max_recursion"`

	MaxOrderEntries     int `default:"10" json:"max_order_entries" yaml:"max_order_entries" mapstructure:"max_order_entries"`
	DefaultItemsPerPage int `default:"25" json:"default_items_per_page" yaml:"default_items_per_page" mapstructure:"default_items_per_page"`
	MaxItemsPerPage     int `default:"100" json:"max_items_per_page" yaml:"max_items_per_page" mapstructure:"max_items_per_page"`
}

// DefaultLimits returns the stock limits.
func DefaultLimits() Limits {
	var l Limits
	defaults.MustSet(&l)
	return l
}

// WithDefaults returns l with zero fields replaced by their defaults.
func (l Limits) WithDefaults() Limits {
	defaults.MustSet(&l)
	return l
}

// Validate rejects negative limits and a default page size above the ceiling.
func (l Limits) Validate() error {
	l = l.WithDefaults()
	for name, v := range map[string]int{
		"max_predicates":         l.MaxPredicates,
		"max_recursion":          l.MaxRecursion,
		"max_order_entries":      l.MaxOrderEntries,
		"default_items_per_page": l.DefaultItemsPerPage,
		"max_items_per_page":     l.MaxItemsPerPage,
	} {
		if v < 0 {
			return fmt.Errorf("limit %s must not be negative, got %d", name, v)
		}
	}
	if l.DefaultItemsPerPage > l.MaxItemsPerPage {
		return fmt.Errorf("default_items_per_page (%d) exceeds max_items_per_page (%d)", l.DefaultItemsPerPage, l.MaxItemsPerPage)
	}
	return nil
}
