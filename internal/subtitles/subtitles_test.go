package subtitles

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"whispersub/internal/services"
)

func TestFormatTimestamps(t *testing.T) {
	tests := []struct {
		seconds float64
		srt     string
		vtt     string
	}{
		{0, "00:00:00,000", "00:00:00.000"},
		{1.5, "00:00:01,500", "00:00:01.500"},
		{-3, "00:00:00,000", "00:00:00.000"},
		{59.9999, "00:00:59,999", "00:00:59.999"},
		{3661.042, "01:01:01,042", "01:01:01.042"},
		{36000, "10:00:00,000", "10:00:00.000"},
	}
	for _, tt := range tests {
		if got := FormatSRTTimestamp(tt.seconds); got != tt.srt {
			t.Errorf("FormatSRTTimestamp(%v) = %q, want %q", tt.seconds, got, tt.srt)
		}
		if got := FormatVTTTimestamp(tt.seconds); got != tt.vtt {
			t.Errorf("FormatVTTTimestamp(%v) = %q, want %q", tt.seconds, got, tt.vtt)
		}
	}
}

func TestFormatTimestampIsMonotonic(t *testing.T) {
	prev := FormatSRTTimestamp(0)
	for ms := 1; ms < 5000; ms += 7 {
		cur := FormatSRTTimestamp(float64(ms) / 1000 * 997)
		if cur < prev {
			t.Fatalf("timestamps not monotonic: %q after %q", cur, prev)
		}
		prev = cur
	}
}

func TestWrapTextCollapsesWhitespace(t *testing.T) {
	if got := WrapText("  Hello \t  world  ", MaxLineWidth); got != "Hello world" {
		t.Fatalf("unexpected wrap: %q", got)
	}
}

func TestWrapTextGreedyWidth(t *testing.T) {
	word := strings.Repeat("a", 9)
	text := strings.TrimSpace(strings.Repeat(word+" ", 20))
	got := WrapText(text, MaxLineWidth)
	lines := strings.Split(got, "\n")
	// eight 9-char words plus seven spaces is 79; a ninth would be 89.
	if len(lines[0]) != 79 {
		t.Fatalf("expected first line of 79 chars, got %d: %q", len(lines[0]), lines[0])
	}
	for _, line := range lines {
		if utf8.RuneCountInString(line) > MaxLineWidth {
			t.Fatalf("line exceeds width: %q", line)
		}
	}
	if strings.Join(strings.Fields(got), " ") != text {
		t.Fatalf("wrap changed word order")
	}
}

func TestWrapTextExactBoundary(t *testing.T) {
	// 40 + 1 + 39 = 80 fits on one line.
	text := strings.Repeat("x", 40) + " " + strings.Repeat("y", 39) + " z"
	lines := strings.Split(WrapText(text, MaxLineWidth), "\n")
	if len(lines) != 2 || len(lines[0]) != 80 || lines[1] != "z" {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestWrapTextLongWordStandsAlone(t *testing.T) {
	long := strings.Repeat("w", 100)
	got := WrapText("short "+long+" tail", MaxLineWidth)
	want := "short\n" + long + "\ntail"
	if got != want {
		t.Fatalf("unexpected wrap:\n%q\nwant\n%q", got, want)
	}
}

func TestWrapTextKeepsEmbeddedLinesSeparate(t *testing.T) {
	got := WrapText("Hi   there\n你好  世界", MaxLineWidth)
	if got != "Hi there\n你好 世界" {
		t.Fatalf("unexpected wrap: %q", got)
	}
	if WrapText("a\n\nb", MaxLineWidth) != "a\n\nb" {
		t.Fatalf("empty embedded line should be kept")
	}
}

func TestWrapTextCountsRunes(t *testing.T) {
	text := strings.Repeat("字", 50) + " " + strings.Repeat("字", 29)
	if got := WrapText(text, MaxLineWidth); strings.Contains(got, "\n") {
		t.Fatalf("80 characters of CJK should fit on one line, got %q", got)
	}
}

func TestEncodeSRTSingleSegment(t *testing.T) {
	got := EncodeSRT([]Segment{{Start: 0, End: 1.5, Text: "Hello world"}})
	want := "1\n00:00:00,000 --> 00:00:01,500\nHello world\n"
	if got != want {
		t.Fatalf("unexpected SRT:\n%q\nwant\n%q", got, want)
	}
}

func TestEncodeVTTSingleSegment(t *testing.T) {
	got := EncodeVTT([]Segment{{Start: 0, End: 1.5, Text: "Hello world"}})
	want := "WEBVTT\n\n00:00:00.000 --> 00:00:01.500\nHello world\n"
	if got != want {
		t.Fatalf("unexpected VTT:\n%q\nwant\n%q", got, want)
	}
}

func TestEncodeMultipleSegments(t *testing.T) {
	segs := []Segment{
		{Start: 0, End: 1, Text: "one"},
		{Start: 1.25, End: 2.5, Text: "two"},
	}
	wantSRT := "1\n00:00:00,000 --> 00:00:01,000\none\n\n2\n00:00:01,250 --> 00:00:02,500\ntwo\n"
	if got := EncodeSRT(segs); got != wantSRT {
		t.Fatalf("unexpected SRT:\n%q", got)
	}
	wantVTT := "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\none\n\n00:00:01.250 --> 00:00:02.500\ntwo\n"
	if got := EncodeVTT(segs); got != wantVTT {
		t.Fatalf("unexpected VTT:\n%q", got)
	}
}

func TestEncodeEmpty(t *testing.T) {
	if got := EncodeSRT(nil); got != "\n" {
		t.Fatalf("unexpected empty SRT: %q", got)
	}
	if got := EncodeVTT(nil); got != "WEBVTT\n" {
		t.Fatalf("unexpected empty VTT: %q", got)
	}
}

func TestWriteAndCountCues(t *testing.T) {
	dir := t.TempDir()
	segs := []Segment{
		{Start: 0, End: 1, Text: "first"},
		{Start: 1, End: 2, Text: "Hi\n嗨"},
		{Start: 2, End: 3, Text: ""},
		{Start: 3, End: 4, Text: strings.Repeat("long words here ", 12)},
	}
	srtPath := filepath.Join(dir, "out.srt")
	vttPath := filepath.Join(dir, "out.vtt")
	if err := WriteSRT(srtPath, segs); err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}
	if err := WriteVTT(vttPath, segs); err != nil {
		t.Fatalf("WriteVTT: %v", err)
	}
	for _, path := range []string{srtPath, vttPath} {
		count, err := CountCuesInFile(path)
		if err != nil {
			t.Fatalf("CountCuesInFile: %v", err)
		}
		if count != len(segs) {
			t.Fatalf("%s: expected %d cues, got %d", filepath.Base(path), len(segs), count)
		}
		data, _ := os.ReadFile(path)
		if !strings.HasSuffix(string(data), "\n") || strings.HasSuffix(string(data), "\n\n") {
			t.Fatalf("%s must end with exactly one newline", path)
		}
	}
	data, _ := os.ReadFile(srtPath)
	first, last, ok := Bounds(string(data))
	if !ok || first != 0 || last != 4 {
		t.Fatalf("unexpected bounds: %v %v %v", first, last, ok)
	}
}

func TestWriteSRTFailsForMissingDirectory(t *testing.T) {
	err := WriteSRT(filepath.Join(t.TempDir(), "missing", "x.srt"), nil)
	if err == nil {
		t.Fatal("expected error writing into missing directory")
	}
}

func TestParseTimestamp(t *testing.T) {
	for _, value := range []string{"01:02:03,456", "01:02:03.456"} {
		got, err := ParseTimestamp(value)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", value, err)
		}
		if got != 3723.456 {
			t.Fatalf("ParseTimestamp(%q) = %v", value, got)
		}
	}
	for _, value := range []string{"", "12:00", "aa:bb:cc,ddd"} {
		if _, err := ParseTimestamp(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}

func TestBilingualMerge(t *testing.T) {
	merged, err := Bilingual(
		[]Segment{{Start: 0, End: 1, Text: "Hi"}},
		[]Segment{{Start: 0, End: 1, Text: "嗨"}},
	)
	if err != nil {
		t.Fatalf("Bilingual: %v", err)
	}
	if len(merged) != 1 || merged[0].Text != "Hi\n嗨" || merged[0].Start != 0 || merged[0].End != 1 {
		t.Fatalf("unexpected merge: %+v", merged)
	}
}

func TestWithTextsKeepsTiming(t *testing.T) {
	src := []Segment{{Start: 1, End: 2, Text: "a"}, {Start: 3, End: 4, Text: "b"}}
	out, err := WithTexts(src, []string{"A", "B"})
	if err != nil {
		t.Fatalf("WithTexts: %v", err)
	}
	if out[1].Start != 3 || out[1].End != 4 || out[1].Text != "B" {
		t.Fatalf("unexpected segment: %+v", out[1])
	}
	if src[0].Text != "a" {
		t.Fatal("source segments must not be mutated")
	}
	if got := Texts(src); len(got) != 2 || got[0] != "a" {
		t.Fatalf("unexpected texts: %v", got)
	}
}

func TestLengthMismatchIsMalformed(t *testing.T) {
	_, err := WithTexts([]Segment{{Text: "a"}}, nil)
	if !errors.Is(err, services.ErrMalformedResponse) {
		t.Fatalf("expected malformed response error, got %v", err)
	}
	_, err = Bilingual([]Segment{{Text: "a"}}, []Segment{})
	if !errors.Is(err, services.ErrMalformedResponse) {
		t.Fatalf("expected malformed response error, got %v", err)
	}
}
