package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/dqb/internal/queryir"
	"github.com/roach88/dqb/internal/schema"
)

// OrderResult is a compiled ORDER BY fragment.
type OrderResult struct {
	SQL string

	// Entries are the effective entries after dropping duplicates.
	Entries []queryir.OrderEntry

	Tables []string
}

// CompileOrder compiles sort entries into an ORDER BY fragment. The first
// occurrence of a field wins; later ones are ignored. The entry cap counts
// distinct fields.
func CompileOrder(cat Catalog, entries []queryir.OrderEntry, limits Limits) (*OrderResult, error) {
	limits = limits.WithDefaults()
	if len(entries) == 0 {
		return nil, &OrderError{Code: ErrCodeEmptyOrder, Message: "no order has been specified for the query"}
	}

	var (
		parts  []string
		tables touched
		seen   = make(map[string]bool, len(entries))
		result = &OrderResult{}
	)
	for _, entry := range entries {
		if seen[entry.Field] {
			continue
		}
		seen[entry.Field] = true

		if len(result.Entries) >= limits.MaxOrderEntries {
			return nil, &OrderError{Code: ErrCodeOrderLimit, Field: entry.Field,
				Message: fmt.Sprintf("the order limit of %d fields has been exceeded", limits.MaxOrderEntries)}
		}

		cfg, err := resolveOrderField(cat, entry.Field)
		if err != nil {
			return nil, err
		}

		dir := entry.Direction
		switch dir {
		case "":
			dir = queryir.Asc
		case queryir.Asc, queryir.Desc:
		default:
			return nil, &OrderError{Code: ErrCodeMalformedOrder, Field: entry.Field,
				Message: fmt.Sprintf("field %s has an invalid sort type, it must be one of: ASC, DESC", entry.Field)}
		}

		parts = append(parts, cfg.SQL+" "+string(dir))
		tables.add(cfg.Table)
		result.Entries = append(result.Entries, queryir.OrderEntry{Field: cfg.Key, Direction: dir})
	}

	result.SQL = strings.Join(parts, ", ")
	result.Tables = tables.order
	return result, nil
}

func resolveOrderField(cat Catalog, key string) (schema.FieldConfig, error) {
	cfg, err := cat.FieldConfig(key)
	switch {
	case schema.IsNotFound(err):
		return cfg, &OrderError{Code: ErrCodeUnknownOrder, Field: key, Message: fmt.Sprintf("the field %s does not exist in the schema", key)}
	case err != nil:
		return cfg, err
	case cfg.IsExtra || cfg.OrderDisabled:
		return cfg, &OrderError{Code: ErrCodeOrderDisabled, Field: key, Message: fmt.Sprintf("field %s is disabled as a sort field", key)}
	case cfg.AccessDenied:
		return cfg, &OrderError{Code: ErrCodeOrderForbidden, Field: key, Message: fmt.Sprintf("no access to the field %s", key)}
	}
	return cfg, nil
}
