package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/dqb/internal/ir"
)

// Cache persists built snapshots between process starts.
// Get reports found=false on a miss; a non-nil error means the cache could
// not be read at all.
type Cache interface {
	Get(ctx context.Context, name string) (data []byte, found bool, err error)
	Save(ctx context.Context, name string, data []byte, ttl time.Duration) error
}

// Snapshot is the fully built structural configuration of a schema.
// It never carries access-denied state.
type Snapshot struct {
	Fingerprint string                 `json:"fingerprint"`
	Primary     string                 `json:"primary"`
	TableOrder  []string               `json:"table_order"`
	FieldOrder  []string               `json:"field_order"`
	Tables      map[string]TableConfig `json:"tables"`
	Fields      map[string]FieldConfig `json:"fields"`
}

// Fingerprint returns a stable hash of every declaration in registration
// order. Equal declarations registered in the same order hash equally.
func (s *Schema) Fingerprint() (string, error) {
	tables := make(ir.List, len(s.tableOrder))
	for i, key := range s.tableOrder {
		tables[i] = ir.Object{"key": ir.String(key), "decl": s.tables[key].canonical()}
	}
	fields := make(ir.List, len(s.fieldOrder))
	for i, key := range s.fieldOrder {
		fields[i] = ir.Object{"key": ir.String(key), "decl": s.fields[key].canonical()}
	}
	return ir.Fingerprint(ir.DomainSchema, ir.Object{"tables": tables, "fields": fields})
}

// Build builds every declared table and field and returns the result as a
// Snapshot. Every build failure is reported, joined with errors.Join.
func (s *Schema) Build() (*Snapshot, error) {
	fp, err := s.Fingerprint()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Fingerprint: fp,
		Primary:     s.PrimaryTable(),
		TableOrder:  s.Tables(),
		FieldOrder:  s.Fields(),
		Tables:      make(map[string]TableConfig, len(s.tableOrder)),
		Fields:      make(map[string]FieldConfig, len(s.fieldOrder)),
	}

	var errs []error
	for _, key := range s.tableOrder {
		cfg, err := s.tableConfig(key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		snap.Tables[key] = *cfg
	}
	for _, key := range s.fieldOrder {
		cfg, err := s.fieldConfig(key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		snap.Fields[key] = *cfg
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return snap, nil
}

// Install replaces all memoized configuration with the snapshot's.
// The snapshot must have been built from the current declarations.
func (s *Schema) Install(snap *Snapshot) error {
	fp, err := s.Fingerprint()
	if err != nil {
		return err
	}
	if snap.Fingerprint != fp {
		return fmt.Errorf("snapshot fingerprint %s does not match declarations %s", short(snap.Fingerprint), short(fp))
	}

	tables := make(map[string]*TableConfig, len(snap.Tables))
	for key, cfg := range snap.Tables {
		tables[key] = &cfg
	}
	fields := make(map[string]*FieldConfig, len(snap.Fields))
	for key, cfg := range snap.Fields {
		cfg.AccessDenied = false
		fields[key] = &cfg
	}
	s.builtTables = tables
	s.builtFields = fields
	return nil
}

// Warm builds every key so the schema can be shared read-only.
//
// With a cache configured, a snapshot stored under the current declaration
// fingerprint is installed instead of building. A cache read or decode
// failure is logged and the schema is built live; it is never retried.
// Build errors are returned; cache save errors are only logged.
func (s *Schema) Warm(ctx context.Context) error {
	fp, err := s.Fingerprint()
	if err != nil {
		return err
	}

	var cacheKey string
	if s.cache != nil {
		cacheKey = s.cacheName + ":" + short(fp)
		if snap, ok := s.readCache(ctx, cacheKey); ok {
			err := s.Install(snap)
			if err == nil {
				s.logger.Debug("schema loaded from cache", "cache_key", cacheKey, "tables", len(snap.Tables), "fields", len(snap.Fields))
				return nil
			}
			s.logger.Warn("cached schema rejected, building live", "cache_key", cacheKey, "error", err)
		}
	}

	snap, err := s.Build()
	if err != nil {
		return err
	}
	s.logger.Debug("schema built", "tables", len(snap.Tables), "fields", len(snap.Fields))

	if s.cache == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		s.logger.Warn("encode schema snapshot", "error", err)
		return nil
	}
	if err := s.cache.Save(ctx, cacheKey, data, s.cacheTTL); err != nil {
		s.logger.Warn("save schema snapshot", "cache_key", cacheKey, "error", err)
	}
	return nil
}

func (s *Schema) readCache(ctx context.Context, key string) (*Snapshot, bool) {
	data, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("schema cache read failed, building live", "cache_key", key, "error", err)
		return nil, false
	}
	if !found {
		s.logger.Debug("schema cache miss", "cache_key", key)
		return nil, false
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("schema cache entry undecodable, building live", "cache_key", key, "error", err)
		return nil, false
	}
	return &snap, true
}

func short(fp string) string {
	if len(fp) > 16 {
		return fp[:16]
	}
	return fp
}
