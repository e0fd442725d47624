// Package pipeline runs one subtitle job from source media to six subtitle
// files.
//
// Stages run strictly in order on the caller's goroutine:
//
//	start -> downloading (URL jobs only) -> extracting_audio -> transcribing
//	      -> translating -> done
//
// After each stage boundary the Runner hands the caller's Observer an Update
// snapshot. Snapshots only ever gain information, so the latest one is always
// a complete view of the job. Any failure ends the job; the workspace stays on
// disk for inspection and nothing is retried at this level.
package pipeline
