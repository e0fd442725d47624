// Package subtitles encodes timed text segments as SRT and WebVTT.
//
// Everything here is pure except WriteSRT and WriteVTT, which persist the
// encoded bytes to a caller-supplied path. Timestamps are floored to the
// millisecond and negative values clamp to zero. Cue text is wrapped greedily
// at MaxLineWidth characters, each embedded line on its own, so bilingual cues
// keep the original and translated text on separate lines.
package subtitles
