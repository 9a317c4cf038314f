// Package store executes rendered queries against SQLite, MySQL or
// PostgreSQL and scans the rows into records.
//
// # Dialects
//
// Compiled statements use ? placeholders and the "offset, limit" LIMIT
// form, which SQLite and MySQL accept as is. For PostgreSQL (driver pgx)
// placeholders are rebound to $n and LIMIT is rendered as
// "limit OFFSET offset".
//
// # Database Configuration
//
// SQLite connections are limited to one so :memory: databases stay
// shared, and run with:
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Open creates the dqb_cache table used by cache.SQL on every dialect.
package store
