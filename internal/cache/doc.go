// Package cache implements the snapshot caches used to warm a schema.
//
// Both implementations satisfy schema.Cache: Memory keeps snapshots in a
// bounded in-process TTL cache; SQL keeps them in a database table so
// several processes can share one warm-up.
package cache
