package schema

import "fmt"

// FillerTables returns the set of tables that must be physically present in
// FROM/JOIN to support the touched tables. The primary table is always in
// the result.
//
// Each non-primary table is linked to its parent through the owning table of
// its first dependency field; parents are resolved until the primary table is
// reached. Extra tables are never joinable and fail resolution.
func (s *Schema) FillerTables(touched []string) (map[string]bool, error) {
	primary := s.PrimaryTable()
	if primary == "" {
		return nil, unknownTable("")
	}

	resolved := map[string]bool{primary: true}
	pending := make(map[string]bool, len(touched))
	queue := make([]string, 0, len(touched))
	for _, key := range touched {
		key = normalizeKey(key)
		if pending[key] {
			continue
		}
		pending[key] = true
		queue = append(queue, key)
	}

	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]

		if resolved[key] {
			continue
		}

		table, err := s.tableConfig(key)
		if err != nil {
			return nil, err
		}
		if table.IsExtra {
			return nil, &ResolutionError{
				Code:    ErrCodeExtraJoin,
				Key:     key,
				Message: fmt.Sprintf("table %q is an extra table and cannot be joined", key),
			}
		}

		parentField, err := s.fieldConfig(table.ParentField())
		if err != nil {
			return nil, err
		}
		if !pending[parentField.Table] && !resolved[parentField.Table] {
			pending[parentField.Table] = true
			queue = append(queue, parentField.Table)
		}

		resolved[key] = true
	}

	return resolved, nil
}

// JoinTables returns the configurations of the filler tables for touched, in
// registration order, excluding the primary table.
func (s *Schema) JoinTables(touched []string) ([]TableConfig, error) {
	filler, err := s.FillerTables(touched)
	if err != nil {
		return nil, err
	}

	var joins []TableConfig
	for _, key := range s.tableOrder {
		if !filler[key] || key == s.PrimaryTable() {
			continue
		}
		cfg, err := s.tableConfig(key)
		if err != nil {
			return nil, err
		}
		joins = append(joins, *cfg)
	}
	return joins, nil
}
