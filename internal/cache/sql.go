package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/dqb/internal/schema"
)

var _ schema.Cache = (*SQL)(nil)

// DefaultTable is the table SQL reads and writes unless told otherwise.
const DefaultTable = "dqb_cache"

// Column names of the cache table.
const (
	colName      = "name"
	colData      = "data"
	colExpiresAt = "expires_at"
)

// SQL stores snapshots in a database table:
//
//	name VARCHAR PRIMARY KEY, data BLOB, expires_at BIGINT (unix seconds, 0 = never)
//
// The table must already exist; package store creates it.
type SQL struct {
	db    *sql.DB
	table string
	sb    sq.StatementBuilderType
	now   func() time.Time
}

// SQLOption configures a SQL cache.
type SQLOption func(*SQL)

// WithTable overrides DefaultTable.
func WithTable(table string) SQLOption {
	return func(c *SQL) {
		c.table = table
	}
}

// WithPlaceholder sets the bind-parameter style, sq.Dollar for PostgreSQL.
func WithPlaceholder(format sq.PlaceholderFormat) SQLOption {
	return func(c *SQL) {
		c.sb = sq.StatementBuilder.PlaceholderFormat(format)
	}
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) SQLOption {
	return func(c *SQL) {
		c.now = now
	}
}

// NewSQL creates a SQL cache over db.
func NewSQL(db *sql.DB, opts ...SQLOption) *SQL {
	c := &SQL{
		db:    db,
		table: DefaultTable,
		sb:    sq.StatementBuilder.PlaceholderFormat(sq.Question),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live snapshot stored under name.
func (c *SQL) Get(ctx context.Context, name string) ([]byte, bool, error) {
	query, args, err := c.sb.
		Select(colData, colExpiresAt).
		From(c.table).
		Where(sq.Eq{colName: name}).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build cache read: %w", err)
	}

	var (
		data      []byte
		expiresAt int64
	)
	err = c.db.QueryRowContext(ctx, query, args...).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry %q: %w", name, err)
	}

	if expiresAt > 0 && c.now().Unix() >= expiresAt {
		return nil, false, nil
	}
	return data, true, nil
}

// Save replaces the entry stored under name. A non-positive ttl never expires.
func (c *SQL) Save(ctx context.Context, name string, data []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = c.now().Add(ttl).Unix()
	}

	del, delArgs, err := c.sb.Delete(c.table).Where(sq.Eq{colName: name}).ToSql()
	if err != nil {
		return fmt.Errorf("build cache delete: %w", err)
	}
	ins, insArgs, err := c.sb.
		Insert(c.table).
		Columns(colName, colData, colExpiresAt).
		Values(name, data, expiresAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build cache insert: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, del, delArgs...); err != nil {
		return fmt.Errorf("delete cache entry %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, ins, insArgs...); err != nil {
		return fmt.Errorf("insert cache entry %q: %w", name, err)
	}
	return tx.Commit()
}

// Delete removes name.
func (c *SQL) Delete(ctx context.Context, name string) error {
	query, args, err := c.sb.Delete(c.table).Where(sq.Eq{colName: name}).ToSql()
	if err != nil {
		return fmt.Errorf("build cache delete: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete cache entry %q: %w", name, err)
	}
	return nil
}

// Purge deletes expired entries and returns how many were removed.
func (c *SQL) Purge(ctx context.Context) (int64, error) {
	query, args, err := c.sb.
		Delete(c.table).
		Where(sq.And{
			sq.Gt{colExpiresAt: 0},
			sq.LtOrEq{colExpiresAt: c.now().Unix()},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build cache purge: %w", err)
	}
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}
