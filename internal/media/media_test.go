package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"whispersub/internal/services"
	"whispersub/internal/testsupport"
)

func TestYTDLPArgs(t *testing.T) {
	y := YTDLP{Proxy: "http://127.0.0.1:7890"}
	got := y.Args("https://example.com/v", "/runs/job-1")
	want := []string{
		"--no-playlist",
		"--force-ipv4",
		"--socket-timeout", "60",
		"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		"--merge-output-format", "mp4",
		"-o", "/runs/job-1/source.%(ext)s",
		"https://example.com/v",
		"--proxy", "http://127.0.0.1:7890",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected args:\n%v\nwant\n%v", got, want)
	}
	if args := (YTDLP{}).Args("u", "/d"); args[len(args)-1] != "u" {
		t.Fatalf("proxy flag must be omitted without proxy: %v", args)
	}
}

func TestYTDLPDownloadPicksNewestSource(t *testing.T) {
	dir := t.TempDir()
	var seen Command
	y := YTDLP{
		Binary: "yt-dlp-custom",
		Run: func(_ context.Context, cmd Command) ([]byte, error) {
			seen = cmd
			older := filepath.Join(dir, "source.webm")
			newer := filepath.Join(dir, "source.mp4")
			for _, p := range []string{older, newer, filepath.Join(dir, "source.mp4.part")} {
				if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
					return nil, err
				}
			}
			past := time.Now().Add(-time.Hour)
			return nil, os.Chtimes(older, past, past)
		},
	}
	path, err := y.Download(context.Background(), "https://example.com/v", dir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if path != filepath.Join(dir, "source.mp4") {
		t.Fatalf("unexpected path %q", path)
	}
	if seen.Name != "yt-dlp-custom" {
		t.Fatalf("unexpected binary %q", seen.Name)
	}
}

func TestYTDLPDownloadNoOutput(t *testing.T) {
	y := YTDLP{Run: func(context.Context, Command) ([]byte, error) { return nil, nil }}
	_, err := y.Download(context.Background(), "https://example.com/v", t.TempDir())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestYTDLPDownloadRejectsEmptyURL(t *testing.T) {
	_, err := YTDLP{}.Download(context.Background(), " ", t.TempDir())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestFFmpegArgs(t *testing.T) {
	got := FFmpeg{}.Args("/w/media.mp4", "/w/audio.wav")
	want := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", "/w/media.mp4", "-vn", "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le", "/w/audio.wav"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected args: %v", got)
	}
}

func TestExecStripsNoProxyAndReportsFailure(t *testing.T) {
	binDir := t.TempDir()
	testsupport.WriteScript(t, binDir, "fake-tool", `echo "args:$*"
echo "no_proxy=[$NO_PROXY$no_proxy]"
echo "extra=[$EXTRA]"
echo "boom" >&2
exit 3
`)
	testsupport.PrependPath(t, binDir)
	t.Setenv("NO_PROXY", "localhost")
	t.Setenv("no_proxy", "localhost")

	out, err := Exec(context.Background(), Command{Name: "fake-tool", Args: []string{"a", "b"}, Env: []string{"EXTRA=1"}})
	if err == nil {
		t.Fatal("expected failure")
	}
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %T", err)
	}
	if cmdErr.ExitCode != 3 {
		t.Fatalf("unexpected exit code %d", cmdErr.ExitCode)
	}
	if !errors.Is(err, services.ErrCommandFailed) {
		t.Fatal("CommandError should match ErrCommandFailed")
	}
	text := string(out)
	for _, want := range []string{"args:a b", "no_proxy=[]", "extra=[1]", "boom"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output %q missing %q", text, want)
		}
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("error should carry output: %v", err)
	}
}

func TestExecMissingBinary(t *testing.T) {
	_, err := Exec(context.Background(), Command{Name: "definitely-not-a-real-binary-xyz"})
	if !errors.Is(err, services.ErrCommandFailed) {
		t.Fatalf("expected command failure, got %v", err)
	}
}

func TestExecContextCancelled(t *testing.T) {
	binDir := t.TempDir()
	testsupport.WriteScript(t, binDir, "slow-tool", "exec sleep 5\n")
	testsupport.PrependPath(t, binDir)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := Exec(ctx, Command{Name: "slow-tool"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestFFmpegExtractAudioWithStub(t *testing.T) {
	binDir := t.TempDir()
	// The last argument is the output path.
	testsupport.WriteScript(t, binDir, "ffmpeg", `for last; do :; done
printf 'RIFF' > "$last"
`)
	testsupport.PrependPath(t, binDir)

	out := filepath.Join(t.TempDir(), "audio.wav")
	if err := (FFmpeg{}).ExtractAudio(context.Background(), "/in.mp4", out); err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	if data, _ := os.ReadFile(out); string(data) != "RIFF" {
		t.Fatalf("stub did not write output: %q", data)
	}
}

func TestSanitizedEnv(t *testing.T) {
	got := SanitizedEnv([]string{"A=1", "NO_PROXY=x", "no_proxy=y", "HTTPS_PROXY=p"})
	if !reflect.DeepEqual(got, []string{"A=1", "HTTPS_PROXY=p"}) {
		t.Fatalf("unexpected env: %v", got)
	}
}
