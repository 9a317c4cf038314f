package query

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/roach88/dqb/internal/ir"
	"github.com/roach88/dqb/internal/querysql"
	"github.com/roach88/dqb/internal/schema"
)

// Record is one result row keyed by field key.
type Record map[string]ir.Value

// ExtraSource supplies the rows of an extra table.
//
// Fetch receives the current records, the field keys selected from the
// table and the table's configuration. Each returned row must carry the
// table's dependency fields so it can be correlated back to the records.
type ExtraSource interface {
	Fetch(ctx context.Context, records []Record, fields []string, table schema.TableConfig) ([]Record, error)
}

// ExtraSourceFunc adapts a function to ExtraSource.
type ExtraSourceFunc func(ctx context.Context, records []Record, fields []string, table schema.TableConfig) ([]Record, error)

// Fetch calls f.
func (f ExtraSourceFunc) Fetch(ctx context.Context, records []Record, fields []string, table schema.TableConfig) ([]Record, error) {
	return f(ctx, records, fields, table)
}

// keySeparator joins the parts of a composite correlation key.
const keySeparator = "\x1f"

// CompositeKey renders the correlation key of r over fields. Missing fields
// count as null.
func CompositeKey(r Record, fields []string) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = ir.KeyString(r[f])
	}
	return strings.Join(parts, keySeparator)
}

// MergeExtraFields fetches every extra table touched by the prepared
// selection and copies its selected fields onto the matching records.
// Records without a matching row get null for those fields. When several
// rows share a key the last one wins.
//
// An extra table whose correlation key includes a field of another extra
// table is merged after that table. With strip set, fields selected only as
// correlation keys are removed afterwards.
//
// The input records are not modified.
func (b *Builder) MergeExtraFields(ctx context.Context, records []Record, strip bool) ([]Record, error) {
	if b.state == nil {
		return nil, errNotPrepared
	}
	if len(records) == 0 {
		return records, nil
	}

	extras := b.state.fields.ExtraTables
	for _, t := range extras {
		if b.sources[t.Key] == nil {
			return nil, &UsageError{Code: ErrCodeMissingSource, Table: t.Key, Message: "no extra source registered"}
		}
	}

	out := cloneRecords(records)

	merged := make(map[string]bool, len(extras))
	pending := extras
	for len(pending) > 0 {
		var deferred []querysql.TableUsage
		for _, usage := range pending {
			table, err := b.schema.TableConfig(usage.Key)
			if err != nil {
				return nil, err
			}
			ready, err := b.dependenciesReady(table, merged)
			if err != nil {
				return nil, err
			}
			if !ready {
				deferred = append(deferred, usage)
				continue
			}
			if err := b.mergeTable(ctx, out, usage, table); err != nil {
				return nil, err
			}
			merged[usage.Key] = true
		}

		if len(deferred) == len(pending) {
			keys := make([]string, len(deferred))
			for i, t := range deferred {
				keys[i] = t.Key
			}
			return nil, &UsageError{Code: ErrCodeExtraCycle, Table: keys[0],
				Message: fmt.Sprintf("extra tables %s correlate on each other's fields", strings.Join(keys, ", "))}
		}
		pending = deferred
	}

	if strip {
		return b.strip(out), nil
	}
	return out, nil
}

// dependenciesReady reports whether every dependency field of table is
// already present on the records: main fields always are, extra fields once
// their table has been merged.
func (b *Builder) dependenciesReady(table schema.TableConfig, merged map[string]bool) (bool, error) {
	for _, key := range table.Dependency {
		cfg, err := b.schema.FieldConfig(key)
		if err != nil {
			return false, err
		}
		if cfg.IsExtra && !merged[cfg.Table] {
			return false, nil
		}
	}
	return true, nil
}

func (b *Builder) mergeTable(ctx context.Context, records []Record, usage querysql.TableUsage, table schema.TableConfig) error {
	rows, err := b.sources[usage.Key].Fetch(ctx, records, usage.Fields, table)
	if err != nil {
		return fmt.Errorf("fetch extra table %s: %w", usage.Key, err)
	}

	index := make(map[string]Record, len(rows))
	for _, row := range rows {
		index[CompositeKey(row, table.Dependency)] = row
	}

	matched := 0
	for _, r := range records {
		row, ok := index[CompositeKey(r, table.Dependency)]
		if ok {
			matched++
		}
		for _, field := range usage.Fields {
			v, found := row[field]
			if !found || v == nil {
				v = ir.Null{}
			}
			r[field] = v
		}
	}

	b.logger.Debug("merged extra table",
		"request_id", b.state.id,
		"table", usage.Key,
		"rows", len(rows),
		"matched", matched,
		"records", len(records))
	return nil
}

// StripFields removes the fields selected only as correlation keys, so the
// records carry exactly the requested fields. The input is not modified.
func (b *Builder) StripFields(records []Record) ([]Record, error) {
	if b.state == nil {
		return nil, errNotPrepared
	}
	return b.strip(cloneRecords(records)), nil
}

func cloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = maps.Clone(r)
		if out[i] == nil {
			out[i] = Record{}
		}
	}
	return out
}

func (b *Builder) strip(records []Record) []Record {
	drop := b.state.fields.DependencyOnly()
	if len(drop) == 0 {
		return records
	}
	for _, r := range records {
		for _, key := range drop {
			delete(r, key)
		}
	}
	return records
}
