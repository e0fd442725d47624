// Package language normalizes language codes typed by users and stored in
// configuration.
//
// It accepts ISO 639-1/2 codes, BCP 47 tags, and common English names,
// producing the ISO 639-1 codes WhisperX expects and the English display names
// used in translation prompts and CLI output.
package language
