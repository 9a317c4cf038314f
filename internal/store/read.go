package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/dqb/internal/ir"
	"github.com/roach88/dqb/internal/query"
)

// Query runs a rendered statement and returns its rows as records keyed by
// column name. Placeholders are rewritten into the dialect's style.
//
// Returns an empty slice (not nil) if the statement matches nothing.
func (d *DB) Query(ctx context.Context, stmt query.Statement) ([]query.Record, error) {
	text, err := d.dialect.Rebind(stmt.SQL)
	if err != nil {
		return nil, fmt.Errorf("rebind placeholders: %w", err)
	}

	d.logger.Debug("executing query", "sql", text, "params", len(stmt.Params))

	rows, err := d.db.QueryContext(ctx, text, stmt.Params...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Fetch runs the builder's prepared statement and merges its extra tables.
// With strip set, fields selected only as correlation keys are removed.
func (d *DB) Fetch(ctx context.Context, b *query.Builder, strip bool) ([]query.Record, error) {
	page, ok := b.Page()
	if !ok {
		_, err := b.SQL(nil)
		return nil, err
	}

	stmt, err := b.SQL(d.dialect.Overrides(page))
	if err != nil {
		return nil, err
	}

	records, err := d.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", b.RequestID(), err)
	}

	d.logger.Debug("fetched records", "request_id", b.RequestID(), "records", len(records))

	return b.MergeExtraFields(ctx, records, strip)
}

// Count runs the builder's count statement.
func (d *DB) Count(ctx context.Context, b *query.Builder) (int64, error) {
	stmt, err := b.Count()
	if err != nil {
		return 0, err
	}

	text, err := d.dialect.Rebind(stmt.SQL)
	if err != nil {
		return 0, fmt.Errorf("rebind placeholders: %w", err)
	}

	var total int64
	if err := d.db.QueryRowContext(ctx, text, stmt.Params...).Scan(&total); err != nil {
		return 0, fmt.Errorf("request %s: count: %w", b.RequestID(), err)
	}
	return total, nil
}

// scanRecords reads every row into a record keyed by column name.
func scanRecords(rows *sql.Rows) ([]query.Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	records := []query.Record{}
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		record := make(query.Record, len(columns))
		for i, col := range columns {
			v, err := scanValue(values[i])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			record[col] = v
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// scanValue converts a driver value. Timestamps become RFC 3339 strings in
// UTC so records render the same on every dialect.
func scanValue(v any) (ir.Value, error) {
	if t, ok := v.(time.Time); ok {
		return ir.String(t.UTC().Format(time.RFC3339Nano)), nil
	}
	return ir.FromAny(v)
}
