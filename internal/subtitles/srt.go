package subtitles

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// CountCues returns the number of cue blocks in SRT or WebVTT content. The
// WEBVTT header block is not counted.
func CountCues(content string) int {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if content == "" {
		return 0
	}
	count := 0
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" || strings.HasPrefix(block, "WEBVTT") {
			continue
		}
		if strings.Contains(block, "-->") {
			count++
		}
	}
	return count
}

// CountCuesInFile reads path and counts its cues.
func CountCuesInFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read subtitles: %w", err)
	}
	return CountCues(string(data)), nil
}

// Bounds returns the earliest start and latest end timestamp found in content.
func Bounds(content string) (first, last float64, ok bool) {
	for _, line := range strings.Split(content, "\n") {
		startText, endText, found := strings.Cut(line, "-->")
		if !found {
			continue
		}
		start, errS := ParseTimestamp(startText)
		end, errE := ParseTimestamp(endText)
		if errS != nil || errE != nil {
			continue
		}
		if !ok || start < first {
			first = start
		}
		if end > last {
			last = end
		}
		ok = true
	}
	return first, last, ok
}

// ParseTimestamp parses HH:MM:SS,mmm or HH:MM:SS.mmm into seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	clock, msText, found := strings.Cut(value, ",")
	if !found {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(msText)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}
