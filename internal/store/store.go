package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/dqb/internal/cache"
)

//go:embed sql/*.sql
var ddlFS embed.FS

// Schema version tracking for SQLite (PRAGMA user_version):
// 1 - dqb_cache table
const currentSchemaVersion = 1

// DB runs rendered queries against one database.
type DB struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for executed statements.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DB) {
		d.logger = logger
	}
}

// Open connects to a database and creates the cache table.
//
// driver is sqlite3, mysql or pgx (aliases: sqlite, mariadb, postgres).
// For SQLite dsn is a file path or ":memory:". MySQL DSNs are opened with
// parseTime enabled. PostgreSQL DSNs are parsed by pgx before connecting.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*DB, error) {
	dialect, err := LookupDialect(driver)
	if err != nil {
		return nil, err
	}

	db, err := openDriver(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialect.Driver == DriverSQLite {
		// SQLite only supports one writer at a time, and every connection to
		// :memory: would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	if err := applySchema(ctx, db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	d := &DB{
		db:      db,
		dialect: dialect,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func openDriver(dialect Dialect, dsn string) (*sql.DB, error) {
	switch dialect.Driver {
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, err
		}
		cfg.ParseTime = true
		return sql.Open(DriverMySQL, cfg.FormatDSN())
	case DriverPostgres:
		cfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, err
		}
		return stdlib.OpenDB(*cfg), nil
	default:
		return sql.Open(DriverSQLite, dsn)
	}
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// SQL returns the underlying sql.DB for direct queries.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Dialect returns the database's dialect.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// SnapshotCache returns a schema snapshot cache stored in this database.
func (d *DB) SnapshotCache(opts ...cache.SQLOption) *cache.SQL {
	opts = append([]cache.SQLOption{cache.WithPlaceholder(d.dialect.Placeholder)}, opts...)
	return cache.NewSQL(d.db, opts...)
}

// ExecScript runs a semicolon-separated SQL script one statement at a time.
// Lines starting with -- are ignored.
func (d *DB) ExecScript(ctx context.Context, script string) error {
	for i, stmt := range splitStatements(script) {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates the tables the package needs. It is idempotent.
// Statements run one at a time since the MySQL driver rejects
// multi-statement strings by default.
func applySchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	ddl, err := ddlFS.ReadFile(dialect.ddl)
	if err != nil {
		return fmt.Errorf("read %s: %w", dialect.ddl, err)
	}

	for _, stmt := range splitStatements(string(ddl)) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}

	if dialect.Driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// splitStatements splits a DDL file on semicolons and drops comment-only
// chunks.
func splitStatements(ddl string) []string {
	var stmts []string
	for _, chunk := range strings.Split(ddl, ";") {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" && !strings.HasPrefix(trimmed, "--") {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			stmts = append(stmts, strings.Join(lines, "\n"))
		}
	}
	return stmts
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (d *DB) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := d.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
