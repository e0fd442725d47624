// Package history persists one row per subtitle job in SQLite.
//
// The job runner records a row when the workspace is created, refreshes it at
// every stage boundary, and finalizes it with an error classification when the
// job ends. The CLI reads the table for `jobs list` and `jobs show`.
//
// The schema is versioned. A mismatched database fails Open with
// ErrSchemaMismatch; delete the file to start over.
package history
