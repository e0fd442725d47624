package subtitles

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EncodeSRT renders segments as a numbered SRT document.
func EncodeSRT(segments []Segment) string {
	lines := make([]string, 0, len(segments)*4)
	for i, seg := range segments {
		lines = append(lines,
			strconv.Itoa(i+1),
			FormatSRTTimestamp(seg.Start)+" --> "+FormatSRTTimestamp(seg.End),
			WrapText(seg.Text, MaxLineWidth),
			"",
		)
	}
	return finish(lines)
}

// EncodeVTT renders segments as a WebVTT document without cue identifiers.
func EncodeVTT(segments []Segment) string {
	lines := make([]string, 0, 2+len(segments)*3)
	lines = append(lines, "WEBVTT", "")
	for _, seg := range segments {
		lines = append(lines,
			FormatVTTTimestamp(seg.Start)+" --> "+FormatVTTTimestamp(seg.End),
			WrapText(seg.Text, MaxLineWidth),
			"",
		)
	}
	return finish(lines)
}

func finish(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}

// WriteSRT encodes segments as SRT and writes them to path.
func WriteSRT(path string, segments []Segment) error {
	return writeFile(path, EncodeSRT(segments))
}

// WriteVTT encodes segments as WebVTT and writes them to path.
func WriteVTT(path string, segments []Segment) error {
	return writeFile(path, EncodeVTT(segments))
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write subtitles %s: %w", path, err)
	}
	return nil
}
