// Package preflight provides readiness checks for the tools, directories and
// services a subtitle job depends on.
//
// `whispersub doctor` renders every check. `whispersub run` runs the
// filesystem checks before creating a workspace so a doomed job fails before
// the download starts. The translation check sends one real request and is
// skipped when --offline is given.
package preflight
