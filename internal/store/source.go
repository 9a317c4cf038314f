package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/dqb/internal/ir"
	"github.com/roach88/dqb/internal/query"
	"github.com/roach88/dqb/internal/schema"
)

// FieldLookup resolves field keys. *schema.Schema implements it.
type FieldLookup interface {
	FieldConfig(key string) (schema.FieldConfig, error)
}

// SQLSource loads extra tables from the same database as the main query.
//
// Each extra table must hold columns matching its dependency fields. By
// default the column is named after the field key; WithKeyColumns maps
// them otherwise.
type SQLSource struct {
	db      *DB
	fields  FieldLookup
	columns map[string][]string
}

var _ query.ExtraSource = (*SQLSource)(nil)

// SourceOption configures a SQLSource.
type SourceOption func(*SQLSource)

// WithKeyColumns names the columns of table that hold its dependency
// fields, in dependency order.
func WithKeyColumns(table string, columns ...string) SourceOption {
	return func(s *SQLSource) {
		s.columns[table] = columns
	}
}

// ExtraSource returns a SQLSource reading from d.
func (d *DB) ExtraSource(fields FieldLookup, opts ...SourceOption) *SQLSource {
	s := &SQLSource{
		db:      d,
		fields:  fields,
		columns: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch selects the dependency columns and requested fields of table for
// the keys present in records. Records with a null key part are skipped.
func (s *SQLSource) Fetch(ctx context.Context, records []query.Record, fields []string, table schema.TableConfig) ([]query.Record, error) {
	keyCols := s.columns[table.Key]
	if keyCols == nil {
		keyCols = table.Dependency
	}
	if len(keyCols) != len(table.Dependency) {
		return nil, fmt.Errorf("table %s: %d key columns for %d dependency fields", table.Key, len(keyCols), len(table.Dependency))
	}

	columns := make([]string, 0, len(keyCols)+len(fields))
	for i, col := range keyCols {
		columns = append(columns, table.Name+"."+col+" AS "+table.Dependency[i])
	}
	for _, key := range fields {
		cfg, err := s.fields.FieldConfig(key)
		if err != nil {
			return nil, err
		}
		columns = append(columns, cfg.SQL+" AS "+key)
	}

	where := keyPredicate(records, table, keyCols)
	if where == nil {
		return []query.Record{}, nil
	}

	text, args, err := sq.StatementBuilder.
		PlaceholderFormat(s.db.dialect.Placeholder).
		Select(columns...).
		From(table.Name).
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", table.Key, err)
	}

	rows, err := s.db.db.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table.Key, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// keyPredicate matches the distinct non-null keys of records: an IN list
// for single-column keys, an OR of equalities otherwise. Returns nil when
// there is nothing to match.
func keyPredicate(records []query.Record, table schema.TableConfig, keyCols []string) sq.Sqlizer {
	seen := make(map[string]bool, len(records))

	if len(keyCols) == 1 {
		var values []any
		for _, r := range records {
			v := r[table.Dependency[0]]
			if ir.IsNull(v) {
				continue
			}
			if k := ir.KeyString(v); !seen[k] {
				seen[k] = true
				values = append(values, ir.Native(v))
			}
		}
		if len(values) == 0 {
			return nil
		}
		return sq.Eq{table.Name + "." + keyCols[0]: values}
	}

	var or sq.Or
	for _, r := range records {
		eq := make(sq.Eq, len(keyCols))
		complete := true
		for i, col := range keyCols {
			v := r[table.Dependency[i]]
			if ir.IsNull(v) {
				complete = false
				break
			}
			eq[table.Name+"."+col] = ir.Native(v)
		}
		if !complete {
			continue
		}
		if k := query.CompositeKey(r, table.Dependency); !seen[k] {
			seen[k] = true
			or = append(or, eq)
		}
	}
	if len(or) == 0 {
		return nil
	}
	return or
}
