package schema

import (
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Schema is a registry of table and field declarations.
//
// Structural configuration is built lazily per key on first lookup and
// memoized; re-registering a key drops its memoized configuration. The
// access-denied flag of a field is never memoized: every FieldConfig lookup
// computes it against the current access level.
//
// Schema is not internally locked. Call Warm (or Build) before sharing a
// Schema between goroutines; after that, lookups only read.
type Schema struct {
	tableOrder []string
	tables     map[string]TableDecl
	fieldOrder []string
	fields     map[string]FieldDecl

	builtTables map[string]*TableConfig
	builtFields map[string]*FieldConfig

	accessLevel int

	cache     Cache
	cacheName string
	cacheTTL  time.Duration

	logger *slog.Logger
}

// Option configures a Schema.
type Option func(*Schema)

// WithLogger sets the logger used for warm-up and cache diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Schema) {
		s.logger = logger
	}
}

// WithAccessLevel sets the initial caller access level.
func WithAccessLevel(level int) Option {
	return func(s *Schema) {
		s.accessLevel = level
	}
}

// WithCache sets the cache adapter used by Warm.
func WithCache(cache Cache, name string, ttl time.Duration) Option {
	return func(s *Schema) {
		s.SetCache(cache, name, ttl)
	}
}

// New creates an empty Schema.
func New(opts ...Option) *Schema {
	s := &Schema{
		tables:      make(map[string]TableDecl),
		fields:      make(map[string]FieldDecl),
		builtTables: make(map[string]*TableConfig),
		builtFields: make(map[string]*FieldConfig),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetCache sets the cache adapter, cache entry name and TTL used by Warm.
// A nil cache disables caching.
func (s *Schema) SetCache(cache Cache, name string, ttl time.Duration) {
	s.cache = cache
	s.cacheName = name
	s.cacheTTL = ttl
}

// normalizeKey NFC-normalizes and trims a declaration or lookup key so that
// visually identical keys from different config sources compare equal.
func normalizeKey(key string) string {
	return norm.NFC.String(strings.TrimSpace(key))
}

// RegisterTable adds a table declaration or merges decl into an existing one.
// The first table ever registered is the primary table.
func (s *Schema) RegisterTable(key string, decl TableDecl) {
	key = normalizeKey(key)
	existing, ok := s.tables[key]
	if !ok {
		s.tableOrder = append(s.tableOrder, key)
	}
	s.tables[key] = existing.merge(decl)

	delete(s.builtTables, key)
	for fieldKey, cfg := range s.builtFields {
		if cfg.Table == key {
			delete(s.builtFields, fieldKey)
		}
	}
}

// RegisterField adds a field declaration or merges decl into an existing one.
func (s *Schema) RegisterField(key string, decl FieldDecl) {
	key = normalizeKey(key)
	existing, ok := s.fields[key]
	if !ok {
		s.fieldOrder = append(s.fieldOrder, key)
	}
	s.fields[key] = existing.merge(decl)

	delete(s.builtFields, key)
}

// Reset drops every declaration and memoized configuration.
// The access level, cache and logger are kept.
func (s *Schema) Reset() {
	s.tableOrder = nil
	s.tables = make(map[string]TableDecl)
	s.fieldOrder = nil
	s.fields = make(map[string]FieldDecl)
	s.builtTables = make(map[string]*TableConfig)
	s.builtFields = make(map[string]*FieldConfig)
}

// SetAccessLevel sets the caller's access level. Fields whose access level
// exceeds it are reported as AccessDenied from the next lookup on.
func (s *Schema) SetAccessLevel(level int) {
	s.accessLevel = level
}

// AccessLevel returns the caller's current access level.
func (s *Schema) AccessLevel() int {
	return s.accessLevel
}

// PrimaryTable returns the first registered table key, or "" if none.
func (s *Schema) PrimaryTable() string {
	if len(s.tableOrder) == 0 {
		return ""
	}
	return s.tableOrder[0]
}

// Tables returns table keys in registration order.
func (s *Schema) Tables() []string {
	return slices.Clone(s.tableOrder)
}

// Fields returns field keys in registration order.
func (s *Schema) Fields() []string {
	return slices.Clone(s.fieldOrder)
}

// HasTable reports whether key is a declared table.
func (s *Schema) HasTable(key string) bool {
	_, ok := s.tables[normalizeKey(key)]
	return ok
}

// HasField reports whether key is a declared field.
func (s *Schema) HasField(key string) bool {
	_, ok := s.fields[normalizeKey(key)]
	return ok
}

// TableConfig returns the built configuration of a table, building it on
// first access. Unknown keys return a *ResolutionError; malformed
// declarations return a *BuildError.
func (s *Schema) TableConfig(key string) (TableConfig, error) {
	cfg, err := s.tableConfig(normalizeKey(key))
	if err != nil {
		return TableConfig{}, err
	}
	return *cfg, nil
}

// FieldConfig returns the built configuration of a field, building it on
// first access. AccessDenied is computed against the current access level.
func (s *Schema) FieldConfig(key string) (FieldConfig, error) {
	cfg, err := s.fieldConfig(normalizeKey(key))
	if err != nil {
		return FieldConfig{}, err
	}
	out := *cfg
	out.AccessDenied = out.AccessLevel > s.accessLevel
	return out, nil
}

func (s *Schema) tableConfig(key string) (*TableConfig, error) {
	if cfg, ok := s.builtTables[key]; ok {
		return cfg, nil
	}
	decl, ok := s.tables[key]
	if !ok {
		return nil, unknownTable(key)
	}
	cfg, err := s.buildTable(key, decl)
	if err != nil {
		return nil, err
	}
	s.builtTables[key] = cfg
	return cfg, nil
}

func (s *Schema) fieldConfig(key string) (*FieldConfig, error) {
	if cfg, ok := s.builtFields[key]; ok {
		return cfg, nil
	}
	decl, ok := s.fields[key]
	if !ok {
		return nil, unknownField(key)
	}
	cfg, err := s.buildField(key, decl)
	if err != nil {
		return nil, err
	}
	s.builtFields[key] = cfg
	return cfg, nil
}

func (s *Schema) buildTable(key string, decl TableDecl) (*TableConfig, error) {
	if key == "" {
		return nil, tableError(ErrCodeInvalidName, key, "table key must not be empty")
	}

	cfg := &TableConfig{
		Key:       key,
		IsPrimary: key == s.PrimaryTable(),
	}
	cfg.IsExtra = !cfg.IsPrimary && decl.IsExtra != nil && *decl.IsExtra

	if decl.Name != nil {
		name := strings.TrimSpace(*decl.Name)
		if name == "" {
			return nil, tableError(ErrCodeInvalidName, key, "the 'name' configuration must be a non-empty string")
		}
		cfg.Name = name
		cfg.Alias = key
		cfg.SQL = name + " AS " + key
	} else {
		cfg.Name = key
		cfg.SQL = key
	}

	cfg.Ref = cfg.Name
	if !cfg.IsExtra && cfg.Alias != "" {
		cfg.Ref = cfg.Alias
	}

	cfg.AccessLevel = deref(decl.AccessLevel, 0)
	cfg.ReadDisabled = deref(decl.ReadDisabled, false)
	cfg.FilterDisabled = deref(decl.FilterDisabled, false)
	cfg.OrderDisabled = deref(decl.OrderDisabled, false)

	if cfg.IsPrimary {
		return cfg, nil
	}

	if cfg.IsExtra {
		cfg.FilterDisabled = true
		cfg.OrderDisabled = true
	} else {
		if decl.Join == nil {
			return nil, tableError(ErrCodeMissingJoin, key, "missing 'join' configuration")
		}
		on := strings.TrimSpace(decl.Join.On)
		if on == "" {
			return nil, tableError(ErrCodeInvalidJoin, key, "missing join condition (key = 'on')")
		}
		joinType := JoinInner
		if decl.Join.Type != "" {
			joinType = normalizeJoinType(decl.Join.Type)
			if !isAllowedJoinType(joinType) {
				return nil, tableError(ErrCodeInvalidJoin, key, "invalid join type %q, allowed types: %s",
					decl.Join.Type, strings.Join(AllowedJoinTypes, ", "))
			}
		}
		cfg.Join = &Join{On: on, Type: joinType}
	}

	if len(decl.Dependency) == 0 {
		return nil, tableError(ErrCodeMissingDependency, key, "missing 'dependency' configuration")
	}
	cfg.Dependency = make([]string, len(decl.Dependency))
	for i, field := range decl.Dependency {
		field = normalizeKey(field)
		if field == "" {
			return nil, tableError(ErrCodeUnknownDependency, key, "dependency field at index %d must be a non-empty string", i)
		}
		if _, ok := s.fields[field]; !ok {
			return nil, tableError(ErrCodeUnknownDependency, key, "dependency field %q not found in declared fields", field)
		}
		cfg.Dependency[i] = field
	}

	return cfg, nil
}

func (s *Schema) buildField(key string, decl FieldDecl) (*FieldConfig, error) {
	if key == "" {
		return nil, fieldError(ErrCodeInvalidName, key, "field key must not be empty")
	}

	tableKey := s.PrimaryTable()
	if decl.Table != nil {
		tableKey = normalizeKey(*decl.Table)
	}
	if tableKey == "" {
		return nil, fieldError(ErrCodeNoPrimaryTable, key, "no table registered to own the field")
	}

	table, err := s.tableConfig(tableKey)
	if err != nil {
		if IsNotFound(err) {
			return nil, fieldError(ErrCodeUnknownOwner, key, "table %q is not registered as a table", tableKey)
		}
		return nil, err
	}

	cfg := &FieldConfig{
		Key:     key,
		Table:   tableKey,
		IsExtra: table.IsExtra,
	}

	if decl.Name != nil {
		name := strings.TrimSpace(*decl.Name)
		if name == "" {
			return nil, fieldError(ErrCodeInvalidName, key, "the 'name' configuration must be a non-empty string")
		}
		cfg.Name = name
		cfg.Alias = key
		cfg.SQL = table.Ref + "." + name
		cfg.SelectSQL = cfg.SQL + " AS " + key
	} else {
		cfg.Name = key
		cfg.SQL = table.Ref + "." + key
		cfg.SelectSQL = cfg.SQL
	}

	cfg.AccessLevel = deref(decl.AccessLevel, table.AccessLevel)
	cfg.ReadDisabled = deref(decl.ReadDisabled, table.ReadDisabled)
	if cfg.IsExtra {
		cfg.FilterDisabled = true
		cfg.OrderDisabled = true
	} else {
		cfg.FilterDisabled = deref(decl.FilterDisabled, table.FilterDisabled)
		cfg.OrderDisabled = deref(decl.OrderDisabled, table.OrderDisabled)
	}

	return cfg, nil
}

func deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
