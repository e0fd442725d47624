package media

import (
	"context"
	"log/slog"
	"strings"

	"whispersub/internal/logging"
)

// FFmpegCommand is the default transcoder executable.
const FFmpegCommand = "ffmpeg"

// Transcoder converts media into speech-model input audio.
type Transcoder interface {
	ExtractAudio(ctx context.Context, input, output string) error
}

// FFmpeg extracts mono 16 kHz PCM WAV with ffmpeg.
type FFmpeg struct {
	Binary string
	Run    Runner
	Logger *slog.Logger
}

// Args returns the ffmpeg argument list for extracting input's audio to output.
func (f FFmpeg) Args(input, output string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		output,
	}
}

// ExtractAudio writes input's audio track to output, overwriting it.
func (f FFmpeg) ExtractAudio(ctx context.Context, input, output string) error {
	binary := strings.TrimSpace(f.Binary)
	if binary == "" {
		binary = FFmpegCommand
	}
	run := f.Run
	if run == nil {
		run = Exec
	}
	if _, err := run(ctx, Command{Name: binary, Args: f.Args(input, output)}); err != nil {
		return err
	}
	logging.NewComponentLogger(f.Logger, "ffmpeg").Debug("audio extracted",
		logging.String("input", input),
		logging.String("output", output),
	)
	return nil
}
