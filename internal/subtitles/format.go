package subtitles

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// MaxLineWidth is the greedy wrap width in characters.
const MaxLineWidth = 80

// FormatSRTTimestamp renders seconds as HH:MM:SS,mmm.
func FormatSRTTimestamp(seconds float64) string {
	return formatTimestamp(seconds, ',')
}

// FormatVTTTimestamp renders seconds as HH:MM:SS.mmm.
func FormatVTTTimestamp(seconds float64) string {
	return formatTimestamp(seconds, '.')
}

func formatTimestamp(seconds float64, sep byte) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	totalMS := int64(seconds * 1000)
	hours := totalMS / 3_600_000
	minutes := (totalMS % 3_600_000) / 60_000
	secs := (totalMS % 60_000) / 1000
	ms := totalMS % 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, secs, sep, ms)
}

// WrapText collapses whitespace and wraps text greedily at maxLen characters.
// Text containing newlines is wrapped one line at a time. Words are never
// split; a word longer than maxLen sits on its own line.
func WrapText(text string, maxLen int) string {
	if strings.Contains(text, "\n") {
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			lines[i] = WrapText(line, maxLen)
		}
		return strings.Join(lines, "\n")
	}

	words := strings.Fields(text)
	joined := strings.Join(words, " ")
	if utf8.RuneCountInString(joined) <= maxLen {
		return joined
	}

	var (
		lines   []string
		current []string
		curLen  int
	)
	for _, w := range words {
		wLen := utf8.RuneCountInString(w)
		if len(current) > 0 && curLen+1+wLen > maxLen {
			lines = append(lines, strings.Join(current, " "))
			current = []string{w}
			curLen = wLen
			continue
		}
		if len(current) > 0 {
			curLen++
		}
		current = append(current, w)
		curLen += wLen
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}
	return strings.Join(lines, "\n")
}
