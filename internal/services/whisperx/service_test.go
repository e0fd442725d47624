package whisperx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"

	"whispersub/internal/media"
	"whispersub/internal/services"
	"whispersub/internal/testsupport"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildArgsAutoLanguageOnCPU(t *testing.T) {
	s := &Service{}
	args, err := s.buildArgs("/w/audio.wav", Options{Language: "auto", Model: "small", Device: "cpu", OutputDir: "/w/transcript"})
	if err != nil {
		t.Fatalf("buildArgs: %v", err)
	}
	want := []string{
		"--index-url", PypiIndexURL,
		"whisperx", "/w/audio.wav",
		"--model", "small",
		"--output_dir", "/w/transcript",
		"--output_format", "json",
		"--vad_method", "silero",
		"--beam_size", "5",
		"--device", "cpu",
		"--compute_type", "int8",
	}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("unexpected args:\n%v\nwant\n%v", args, want)
	}
}

func TestBuildArgsPinnedLanguageOnCUDA(t *testing.T) {
	s := &Service{VADMethod: VADMethodPyannote, HFToken: "hf"}
	args, err := s.buildArgs("/a.wav", Options{Language: "English", Device: "cuda", OutputDir: "/o"})
	if err != nil {
		t.Fatalf("buildArgs: %v", err)
	}
	if args[0] != "--index-url" || args[1] != CUDAIndexURL || args[3] != PypiIndexURL {
		t.Fatalf("expected CUDA index urls, got %v", args[:4])
	}
	for _, pair := range [][2]string{{"--language", "en"}, {"--compute_type", "float16"}, {"--hf_token", "hf"}, {"--model", DefaultModel}} {
		idx := slices.Index(args, pair[0])
		if idx < 0 || args[idx+1] != pair[1] {
			t.Fatalf("expected %s %s in %v", pair[0], pair[1], args)
		}
	}
}

func TestBuildArgsRejectsUnknownLanguage(t *testing.T) {
	_, err := (&Service{}).buildArgs("/a.wav", Options{Language: "not a language"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTranscribeLoadsSegments(t *testing.T) {
	audio := writeAudio(t)
	outDir := filepath.Join(filepath.Dir(audio), "transcript")
	var seen media.Command
	s := &Service{
		Binary: "uvx-test",
		Run: func(_ context.Context, cmd media.Command) ([]byte, error) {
			seen = cmd
			payload := `{"segments":[{"start":0.5,"end":1.25,"text":"  Hello there "},{"start":1.3,"end":2,"text":""},{"start":-0.2,"end":-1,"text":"x"}]}`
			return nil, os.WriteFile(filepath.Join(outDir, "audio.json"), []byte(payload), 0o644)
		},
	}
	segments, err := s.Transcribe(context.Background(), audio, Options{Language: "auto", OutputDir: outDir})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	if segments[0].Text != "Hello there" || segments[0].Start != 0.5 || segments[0].End != 1.25 {
		t.Fatalf("unexpected first segment: %+v", segments[0])
	}
	if segments[1].Text != "" {
		t.Fatalf("empty segment should pass through: %+v", segments[1])
	}
	if segments[2].Start != 0 || segments[2].End != 0 {
		t.Fatalf("negative timing should clamp: %+v", segments[2])
	}
	if seen.Name != "uvx-test" {
		t.Fatalf("unexpected binary %q", seen.Name)
	}
	if slices.Contains(seen.Args, "--language") {
		t.Fatalf("auto language must not pin --language: %v", seen.Args)
	}
}

func TestTranscribeMissingOutput(t *testing.T) {
	audio := writeAudio(t)
	s := &Service{Run: func(context.Context, media.Command) ([]byte, error) { return nil, nil }}
	_, err := s.Transcribe(context.Background(), audio, Options{})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTranscribeMissingAudio(t *testing.T) {
	_, err := (&Service{}).Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.wav"), Options{})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTranscribeWithStubBinary(t *testing.T) {
	binDir := t.TempDir()
	// Write the JSON next to --output_dir, which follows the flag.
	testsupport.WriteScript(t, binDir, "uvx", `while [ $# -gt 0 ]; do
  if [ "$1" = "--output_dir" ]; then out="$2"; fi
  shift
done
printf '{"segments":[{"start":0,"end":1,"text":"hi"}]}' > "$out/audio.json"
`)
	testsupport.PrependPath(t, binDir)

	segments, err := (&Service{}).Transcribe(context.Background(), writeAudio(t), Options{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "hi" {
		t.Fatalf("unexpected segments: %+v", segments)
	}
}

func TestTranscribeCommandFailure(t *testing.T) {
	s := &Service{Run: func(context.Context, media.Command) ([]byte, error) {
		return nil, &media.CommandError{Command: "uvx", ExitCode: 1, Output: "CUDA not available"}
	}}
	_, err := s.Transcribe(context.Background(), writeAudio(t), Options{})
	if !errors.Is(err, services.ErrCommandFailed) {
		t.Fatalf("expected command failure, got %v", err)
	}
}
