package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/dqb/internal/queryir"
	"github.com/roach88/dqb/internal/schema"
)

// FieldUsage is one selected field.
type FieldUsage struct {
	Key   string
	Table string

	// InRequest is false for fields added only to correlate an extra table.
	InRequest bool

	IsExtra bool
}

// TableUsage is one table touched by the selection.
type TableUsage struct {
	Key string

	// InRequest is true if the first field seen for the table was requested.
	InRequest bool

	// Fields lists the selected field keys of the table in selection order.
	Fields []string
}

// FieldSelection is the compiled field selection.
type FieldSelection struct {
	Mode queryir.FieldMode

	// SQL is the SELECT list. Extra fields never appear in it.
	SQL string

	// Fields holds every selected field in selection order.
	Fields []FieldUsage

	// MainTables and ExtraTables are in first-touch order.
	MainTables  []TableUsage
	ExtraTables []TableUsage

	index   map[string]int
	tables  map[string]int
	selects []string
}

// Has reports whether key is selected, requested or not.
func (s *FieldSelection) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Field returns the usage of a selected field.
func (s *FieldSelection) Field(key string) (FieldUsage, bool) {
	i, ok := s.index[key]
	if !ok {
		return FieldUsage{}, false
	}
	return s.Fields[i], true
}

// DependencyOnly returns the fields selected only as correlation keys.
func (s *FieldSelection) DependencyOnly() []string {
	var keys []string
	for _, f := range s.Fields {
		if !f.InRequest {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// MainTableKeys returns the keys of the physical tables the SELECT touches.
func (s *FieldSelection) MainTableKeys() []string {
	keys := make([]string, len(s.MainTables))
	for i, t := range s.MainTables {
		keys[i] = t.Key
	}
	return keys
}

func (s *FieldSelection) add(cfg schema.FieldConfig, inRequest bool) {
	if s.Has(cfg.Key) {
		return
	}
	s.index[cfg.Key] = len(s.Fields)
	s.Fields = append(s.Fields, FieldUsage{Key: cfg.Key, Table: cfg.Table, InRequest: inRequest, IsExtra: cfg.IsExtra})

	tables := &s.MainTables
	if cfg.IsExtra {
		tables = &s.ExtraTables
	}
	i, ok := s.tables[cfg.Table]
	if !ok {
		i = len(*tables)
		s.tables[cfg.Table] = i
		*tables = append(*tables, TableUsage{Key: cfg.Table, InRequest: inRequest})
	}
	(*tables)[i].Fields = append((*tables)[i].Fields, cfg.Key)

	if !cfg.IsExtra {
		s.selects = append(s.selects, cfg.SelectSQL)
	}
}

// CompileFields resolves a field selection against the catalog.
//
// In ModeAll every field the caller may read is selected and the others are
// skipped silently. In the other modes every named or matched field must be
// readable. Correlation fields of touched extra tables are then added with
// InRequest=false, following chains of extra tables transitively.
func CompileFields(cat Catalog, spec queryir.FieldSpec) (*FieldSelection, error) {
	sel := &FieldSelection{
		Mode:   spec.Mode,
		index:  make(map[string]int),
		tables: make(map[string]int),
	}

	var err error
	switch spec.Mode {
	case queryir.ModeAll:
		err = selectAll(cat, sel)
	case queryir.ModeShortener:
		err = selectByShortener(cat, spec.Tokens, sel)
	case queryir.ModeSpecification:
		err = selectBySpecification(cat, spec.Tokens, sel)
	default:
		return nil, &FieldError{Code: ErrCodeMalformedFields, Message: fmt.Sprintf("unknown field selection mode %q", spec.Mode)}
	}
	if err != nil {
		return nil, err
	}

	if err := addDependencies(cat, sel); err != nil {
		return nil, err
	}

	if len(sel.selects) == 0 {
		return nil, &FieldError{Code: ErrCodeEmptySelection, Message: "no fields to process"}
	}
	sel.SQL = strings.Join(sel.selects, ", ")
	return sel, nil
}

func selectAll(cat Catalog, sel *FieldSelection) error {
	for _, key := range cat.Fields() {
		cfg, err := cat.FieldConfig(key)
		if err != nil {
			return err
		}
		if checkReadable(cfg) != nil {
			continue
		}
		sel.add(cfg, true)
	}
	return nil
}

func selectByShortener(cat Catalog, tokens []queryir.FieldToken, sel *FieldSelection) error {
	declared := cat.Fields()
	for _, token := range tokens {
		var matches []string
		for _, key := range declared {
			if token.Match(key) {
				matches = append(matches, key)
			}
		}

		if len(matches) == 0 {
			if token.IsWildcard() {
				return &FieldError{Code: ErrCodeNoMatches, Field: token.Raw, Message: fmt.Sprintf("the field shortener '%s' has no matches", token.Raw)}
			}
			return unknownField(token.Raw)
		}

		for _, key := range matches {
			if sel.Has(key) {
				continue
			}
			cfg, err := cat.FieldConfig(key)
			if err != nil {
				return err
			}
			if err := checkReadable(cfg); err != nil {
				return err
			}
			sel.add(cfg, true)
		}
	}
	return nil
}

func selectBySpecification(cat Catalog, tokens []queryir.FieldToken, sel *FieldSelection) error {
	for _, token := range tokens {
		cfg, err := cat.FieldConfig(token.Raw)
		if err != nil {
			if schema.IsNotFound(err) {
				return unknownField(token.Raw)
			}
			return err
		}
		if sel.Has(cfg.Key) {
			continue
		}
		if err := checkReadable(cfg); err != nil {
			return err
		}
		sel.add(cfg, true)
	}
	return nil
}

// addDependencies walks extra tables breadth-first. ExtraTables grows while
// it is walked, so extra tables reached through another extra table's
// dependency are visited too.
func addDependencies(cat Catalog, sel *FieldSelection) error {
	for i := 0; i < len(sel.ExtraTables); i++ {
		table, err := cat.TableConfig(sel.ExtraTables[i].Key)
		if err != nil {
			return err
		}
		for _, key := range table.Dependency {
			if sel.Has(key) {
				continue
			}
			cfg, err := cat.FieldConfig(key)
			if err != nil {
				return err
			}
			sel.add(cfg, false)
		}
	}
	return nil
}

func checkReadable(cfg schema.FieldConfig) error {
	switch {
	case cfg.ReadDisabled:
		return &FieldError{Code: ErrCodeReadDisabled, Field: cfg.Key, Message: fmt.Sprintf("the field '%s' is disabled for reading", cfg.Key)}
	case cfg.AccessDenied:
		return &FieldError{Code: ErrCodeFieldForbidden, Field: cfg.Key, Message: fmt.Sprintf("no access to the field '%s'", cfg.Key)}
	}
	return nil
}

func unknownField(key string) *FieldError {
	return &FieldError{Code: ErrCodeUnknownField, Field: key, Message: fmt.Sprintf("the field '%s' does not exist", key)}
}
