// Package whisperx runs WhisperX through uvx and converts its JSON output into
// subtitle segments.
//
// Voice activity filtering is always on and the beam width is fixed at 5. A
// language of "auto" lets the model detect the spoken language; anything else
// pins it. The cuda device pulls torch from the CUDA wheel index.
package whisperx
