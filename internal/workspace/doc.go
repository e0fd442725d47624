// Package workspace allocates per-job directories under the runs directory and
// owns the fixed file layout inside them.
//
// Every job gets a fresh job-<id> directory that is never reused. Media is
// staged into it by copy (local input) or move (downloaded input). A job holds
// an advisory lock on .job.lock while it runs so Prune never removes an active
// workspace. Workspaces are otherwise left in place for inspection.
package workspace
