package whisperx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	langpkg "whispersub/internal/language"
	"whispersub/internal/logging"
	"whispersub/internal/media"
	"whispersub/internal/services"
	"whispersub/internal/subtitles"
)

// Options selects the model and device for one transcription.
type Options struct {
	// Language is "auto" or a language code.
	Language    string
	Model       string
	Device      string
	ComputeType string
	// OutputDir receives WhisperX's raw output. Defaults to the audio's directory.
	OutputDir string
}

// Service provides WhisperX transcription.
type Service struct {
	Binary    string
	VADMethod string
	HFToken   string
	Run       media.Runner
	Logger    *slog.Logger
}

// Transcribe runs WhisperX on audioPath and returns its segments in order.
// Segment text is trimmed; segments with empty text are kept.
func (s *Service) Transcribe(ctx context.Context, audioPath string, opts Options) ([]subtitles.Segment, error) {
	if strings.TrimSpace(audioPath) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transcribing", "whisperx", "audio path required", nil)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "transcribing", "whisperx", "audio not found: "+audioPath, err)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Dir(audioPath)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}
	args, err := s.buildArgs(audioPath, opts)
	if err != nil {
		return nil, err
	}

	binary := strings.TrimSpace(s.Binary)
	if binary == "" {
		binary = UVXCommand
	}
	run := s.Run
	if run == nil {
		run = media.Exec
	}
	cmd := media.Command{Name: binary, Args: args}
	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(cmd.Env, "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	logger := logging.WithContext(ctx, logging.NewComponentLogger(s.Logger, "whisperx"))
	started := time.Now()
	if _, err := run(ctx, cmd); err != nil {
		return nil, err
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	segments, err := LoadSegments(filepath.Join(opts.OutputDir, baseName+".json"))
	if err != nil {
		return nil, err
	}
	logger.Info("transcription complete",
		logging.Int("segments", len(segments)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return segments, nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(audioPath string, opts Options) ([]string, error) {
	language, err := langpkg.TranscriptionCode(opts.Language)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcribing", "whisperx", "", err)
	}
	device := strings.ToLower(strings.TrimSpace(opts.Device))
	if device == "" {
		device = CPUDevice
	}
	computeType := strings.TrimSpace(opts.ComputeType)
	if computeType == "" {
		computeType = DefaultComputeType(device)
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	args := make([]string, 0, 24)
	if device == CUDADevice {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		audioPath,
		"--model", model,
		"--output_dir", opts.OutputDir,
		"--output_format", OutputFormat,
	)

	vadMethod := s.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && s.HFToken != "" {
		args = append(args, "--hf_token", s.HFToken)
	}

	args = append(args,
		"--beam_size", BeamSize,
		"--device", device,
		"--compute_type", computeType,
	)
	if language != "" {
		args = append(args, "--language", language)
	}
	return args, nil
}

type whisperXSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// whisperXPayload is the JSON structure from WhisperX output.
type whisperXPayload struct {
	Segments []whisperXSegment `json:"segments"`
	Language string            `json:"language"`
}

// LoadSegments loads segments from a WhisperX JSON file.
func LoadSegments(jsonPath string) ([]subtitles.Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "transcribing", "whisperx", "transcript not produced: "+jsonPath, nil)
		}
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	segments := make([]subtitles.Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		start := max(seg.Start, 0)
		end := max(seg.End, start)
		segments = append(segments, subtitles.Segment{
			Start: start,
			End:   end,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	return segments, nil
}
