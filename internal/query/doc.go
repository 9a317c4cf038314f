// Package query assembles compiled request fragments into SQL statements.
//
// A Builder holds the state of one request. Prepare runs the field, filter,
// order and pagination compilers against a schema and replaces the held
// state only when all four succeed. Every SQL-producing method requires a
// prepared Builder.
//
// Rendering:
//
//	SELECT <fields> FROM <primary> <joins> WHERE <filter> ORDER BY <order> LIMIT <page>
//
// Empty clauses are skipped. JOIN fragments carry their own keyword. The JOIN
// clause is computed from the tables touched by the selected segments only, so
// a COUNT over FROM, JOIN and WHERE does not join tables needed only by ORDER BY.
//
// Extra tables are not joined. After the main query runs, MergeExtraFields
// asks each touched extra table's ExtraSource for supplementary rows and
// attaches them to the records by composite correlation key.
//
// A Builder is not safe for concurrent use. Construct one per request; the
// schema behind it may be shared once it has been warmed.
package query
