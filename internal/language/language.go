package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto asks the speech model to detect the spoken language.
const Auto = "auto"

// Whisper-era word forms people type on the command line. Everything else is
// parsed as a BCP 47 / ISO 639 code.
var wordForms = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"mandarin":   "zh",
	"cantonese":  "yue",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
	"turkish":    "tr",
	"vietnamese": "vi",
	"thai":       "th",
	"indonesian": "id",
	"ukrainian":  "uk",
}

// ISO 639-2/B codes that x/text does not accept as base subtags.
var bibliographic = map[string]string{
	"fre": "fr",
	"ger": "de",
	"chi": "zh",
	"dut": "nl",
	"cze": "cs",
	"gre": "el",
	"per": "fa",
	"rum": "ro",
	"slo": "sk",
	"wel": "cy",
}

// Parse resolves a language code, tag, or English word to a language tag.
func Parse(code string) (language.Tag, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return language.Und, fmt.Errorf("language: empty code")
	}
	if mapped, ok := wordForms[code]; ok {
		code = mapped
	} else if mapped, ok := bibliographic[code]; ok {
		code = mapped
	}
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return language.Und, fmt.Errorf("language: unrecognized %q", code)
	}
	return tag, nil
}

// ToISO2 converts a recognized code, tag, or word to its base language code,
// the ISO 639-1 form where one exists ("eng" and "en-US" both give "en").
// Returns empty string for unrecognized input.
func ToISO2(code string) string {
	tag, err := Parse(code)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}

// ToISO3 converts a recognized code to ISO 639-2/3. Returns "und" otherwise.
func ToISO3(code string) string {
	tag, err := Parse(code)
	if err != nil {
		return "und"
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "und"
	}
	return base.ISO3()
}

// TranscriptionCode maps the configured transcription language to the value
// passed to the speech model. Auto and empty input yield "" (detect).
func TranscriptionCode(code string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if trimmed == "" || trimmed == Auto {
		return "", nil
	}
	iso := ToISO2(trimmed)
	if iso == "" {
		return "", fmt.Errorf("language: unrecognized %q", code)
	}
	return iso, nil
}

// DisplayName returns an English name for code ("zh-Hans" gives
// "Simplified Chinese"). Returns "Unknown" for empty input and the uppercased
// input when it cannot be resolved.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	if strings.EqualFold(trimmed, Auto) {
		return "Auto-detect"
	}
	tag, err := Parse(trimmed)
	if err != nil {
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(trimmed)
}

// Describe renders a target language for prompts, e.g. "Chinese (zh)". Codes
// that cannot be resolved are returned unchanged.
func Describe(code string) string {
	trimmed := strings.TrimSpace(code)
	tag, err := Parse(trimmed)
	if err != nil {
		return trimmed
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return trimmed
	}
	return fmt.Sprintf("%s (%s)", name, trimmed)
}
