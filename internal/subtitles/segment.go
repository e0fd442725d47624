package subtitles

import (
	"fmt"
	"strings"

	"whispersub/internal/services"
)

// Segment is a span of speech with its text. Start and End are seconds from
// the beginning of the media.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Texts returns the text of each segment in order.
func Texts(segments []Segment) []string {
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	return texts
}

// WithTexts pairs the timing of segments with replacement texts.
func WithTexts(segments []Segment, texts []string) ([]Segment, error) {
	if len(segments) != len(texts) {
		return nil, lengthMismatch(len(segments), len(texts))
	}
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		out[i] = Segment{Start: seg.Start, End: seg.End, Text: texts[i]}
	}
	return out, nil
}

// Bilingual merges original and translated segments into cues that show the
// original line above the translation. Timing comes from original.
func Bilingual(original, translated []Segment) ([]Segment, error) {
	if len(original) != len(translated) {
		return nil, lengthMismatch(len(original), len(translated))
	}
	out := make([]Segment, len(original))
	for i, seg := range original {
		out[i] = Segment{Start: seg.Start, End: seg.End, Text: seg.Text + "\n" + translated[i].Text}
	}
	return out, nil
}

func lengthMismatch(want, got int) error {
	return services.Wrap(services.ErrMalformedResponse, "subtitles", "merge",
		fmt.Sprintf("length mismatch: %d segments, %d texts", want, got), nil)
}

// Track identifies one of the three subtitle renditions a job produces.
type Track string

const (
	TrackOriginal   Track = "original"
	TrackTranslated Track = "translated"
	TrackBilingual  Track = "bilingual"
)

// Tracks lists every track in emission order.
var Tracks = []Track{TrackOriginal, TrackTranslated, TrackBilingual}

// ParseTrack accepts track names case-insensitively ("Bilingual", "original").
func ParseTrack(value string) (Track, bool) {
	switch Track(strings.ToLower(strings.TrimSpace(value))) {
	case TrackOriginal:
		return TrackOriginal, true
	case TrackTranslated:
		return TrackTranslated, true
	case TrackBilingual:
		return TrackBilingual, true
	}
	return "", false
}

// Format is a subtitle container format.
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)
