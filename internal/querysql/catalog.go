package querysql

import "github.com/roach88/dqb/internal/schema"

// Catalog is the schema view the compilers need. *schema.Schema implements it.
type Catalog interface {
	TableConfig(key string) (schema.TableConfig, error)
	FieldConfig(key string) (schema.FieldConfig, error)

	// Fields lists field keys in registration order.
	Fields() []string
}

var _ Catalog = (*schema.Schema)(nil)

// touched records table keys in first-touch order.
type touched struct {
	order []string
	seen  map[string]bool
}

func (t *touched) add(table string) {
	if t.seen == nil {
		t.seen = make(map[string]bool)
	}
	if !t.seen[table] {
		t.seen[table] = true
		t.order = append(t.order, table)
	}
}
