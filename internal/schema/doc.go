// Package schema holds the table and field registry behind every compiled
// query.
//
// Declarations are registered with RegisterTable and RegisterField and can
// be given in several partial pieces; later pieces override earlier ones
// field by field. The first table ever registered is the primary table: it
// is always in FROM and is never an extra table.
//
// Structural configuration (SQL references, join specs, inherited flags) is
// built per key on first lookup. Build walks every key at once and returns
// an immutable Snapshot; Warm does the same and may read or write the
// snapshot through a Cache.
//
// Access control is evaluated on every FieldConfig lookup against the
// current access level, so changing the level never requires a rebuild.
package schema
