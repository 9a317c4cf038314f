package cli

import (
	"context"
	"log/slog"

	"github.com/roach88/dqb/internal/cache"
	"github.com/roach88/dqb/internal/query"
	"github.com/roach88/dqb/internal/schema"
	"github.com/roach88/dqb/internal/schemaload"
	"github.com/roach88/dqb/internal/store"
)

// session holds a warmed schema and, when opened, the query database.
type session struct {
	cfg    *Config
	schema *schema.Schema
	db     *store.DB
	memory *cache.Memory
	logger *slog.Logger
}

// openSession loads and warms the configured schema. The database is
// opened when withDB is set or the snapshot cache lives in it.
func openSession(ctx context.Context, cfg *Config, schemaPath string, withDB bool, logger *slog.Logger) (*session, error) {
	if schemaPath == "" {
		schemaPath = cfg.Schema
	}
	if schemaPath == "" {
		return nil, &schemaload.LoadError{Code: schemaload.ErrCodeReadFailed,
			Message: "no schema configured (set schema in dqb.yaml, --schema or DQB_SCHEMA)"}
	}

	loaded, err := schemaload.LoadFile(schemaPath)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:    cfg,
		logger: logger,
		schema: loaded.Schema(
			schema.WithLogger(logger),
			schema.WithAccessLevel(cfg.AccessLevel),
		),
	}

	if withDB || cfg.Cache.Driver == CacheSQL {
		s.db, err = store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, store.WithLogger(logger))
		if err != nil {
			return nil, &codedError{code: ErrCodeDatabase, err: err}
		}
	}

	switch cfg.Cache.Driver {
	case CacheMemory:
		if s.memory, err = cache.NewMemory(cache.DefaultMaxCost); err != nil {
			s.Close()
			return nil, err
		}
		s.schema.SetCache(s.memory, cfg.Cache.Name, cfg.Cache.TTL)
	case CacheSQL:
		var opts []cache.SQLOption
		if cfg.Cache.Table != "" {
			opts = append(opts, cache.WithTable(cfg.Cache.Table))
		}
		s.schema.SetCache(s.db.SnapshotCache(opts...), cfg.Cache.Name, cfg.Cache.TTL)
	}

	if err := s.schema.Warm(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Builder returns a request builder bound to the session's schema, limits
// and, when the database is open, its extra tables.
func (s *session) Builder(opts ...query.Option) *query.Builder {
	base := []query.Option{
		query.WithLogger(s.logger),
		query.WithLimits(s.cfg.Limits),
	}
	if s.db != nil {
		var sourceOpts []store.SourceOption
		for table, columns := range s.cfg.Database.ExtraKeys {
			sourceOpts = append(sourceOpts, store.WithKeyColumns(table, columns...))
		}
		source := s.db.ExtraSource(s.schema, sourceOpts...)
		for _, key := range s.schema.Tables() {
			if table, err := s.schema.TableConfig(key); err == nil && table.IsExtra {
				base = append(base, query.WithExtraSource(key, source))
			}
		}
	}
	return query.New(s.schema, append(base, opts...)...)
}

// Close releases the database and cache.
func (s *session) Close() {
	if s.db != nil {
		s.db.Close()
	}
	if s.memory != nil {
		s.memory.Close()
	}
}

// sessionError reports a failed openSession and maps it to an exit error.
func sessionError(f *OutputFormatter, err error) error {
	return f.Fail(ExitCommandError, err)
}
