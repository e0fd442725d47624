// Package deps locates the external tools whispersub shells out to and
// reports their paths and versions for `whispersub doctor`.
package deps
