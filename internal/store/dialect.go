package store

import (
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/dqb/internal/query"
	"github.com/roach88/dqb/internal/querysql"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
)

// Dialect describes how a database spells the parts of a statement that
// differ between engines.
type Dialect struct {
	// Driver is the database/sql driver name.
	Driver string

	// Placeholder is the bind-parameter style.
	Placeholder sq.PlaceholderFormat

	// offsetKeyword renders LIMIT as "limit OFFSET offset".
	offsetKeyword bool

	ddl string
}

var dialects = map[string]Dialect{
	DriverSQLite:   {Driver: DriverSQLite, Placeholder: sq.Question, ddl: "sql/sqlite.sql"},
	DriverMySQL:    {Driver: DriverMySQL, Placeholder: sq.Question, ddl: "sql/mysql.sql"},
	DriverPostgres: {Driver: DriverPostgres, Placeholder: sq.Dollar, offsetKeyword: true, ddl: "sql/postgres.sql"},
}

// LookupDialect maps a driver or provider name to its dialect.
func LookupDialect(name string) (Dialect, error) {
	switch name {
	case "sqlite", "sqlite3", "":
		return dialects[DriverSQLite], nil
	case "mysql", "mariadb":
		return dialects[DriverMySQL], nil
	case "pgx", "postgres", "postgresql":
		return dialects[DriverPostgres], nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q (valid: sqlite3, mysql, pgx)", name)
	}
}

// Rebind rewrites ? placeholders into the dialect's style.
func (d Dialect) Rebind(sql string) (string, error) {
	return d.Placeholder.ReplacePlaceholders(sql)
}

// Overrides returns the render overrides the dialect needs for page.
func (d Dialect) Overrides(page querysql.Page) query.Overrides {
	if !d.offsetKeyword || page.Offset == 0 {
		return nil
	}
	return query.Overrides{
		query.SegmentLimit: query.Literal(strconv.Itoa(page.Limit) + " OFFSET " + strconv.Itoa(page.Offset)),
	}
}
