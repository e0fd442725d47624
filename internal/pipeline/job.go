package pipeline

import (
	"strings"
	"time"

	"whispersub/internal/config"
	"whispersub/internal/services"
	"whispersub/internal/services/deepseek"
	"whispersub/internal/services/whisperx"
)

// Translation holds the translation service settings for one job.
type Translation struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// JobConfig describes one job. Exactly one of URL and LocalPath is set.
type JobConfig struct {
	URL                   string
	LocalPath             string
	TranscriptionLanguage string
	ModelSize             string
	Device                string
	ComputeType           string
	Translation           Translation
	TargetLanguage        string
	Proxy                 string
	RunsDir               string
}

// JobConfigFromConfig seeds a job with the configured defaults. Callers set
// URL or LocalPath.
func JobConfigFromConfig(cfg *config.Config) JobConfig {
	if cfg == nil {
		return JobConfig{}
	}
	return JobConfig{
		TranscriptionLanguage: cfg.Transcription.Language,
		ModelSize:             cfg.Transcription.Model,
		Device:                cfg.Transcription.Device,
		ComputeType:           cfg.Transcription.ComputeType,
		Translation: Translation{
			BaseURL: cfg.Translation.BaseURL,
			APIKey:  cfg.Translation.APIKey,
			Model:   cfg.Translation.Model,
			Timeout: cfg.TranslationTimeout(),
		},
		TargetLanguage: cfg.Translation.TargetLanguage,
		Proxy:          cfg.Network.Proxy,
		RunsDir:        cfg.Paths.RunsDir,
	}
}

// Validate reports a configuration error unless exactly one source is set
// and the proxy, if any, is a usable URL.
func (c JobConfig) Validate() error {
	hasURL := strings.TrimSpace(c.URL) != ""
	hasPath := strings.TrimSpace(c.LocalPath) != ""
	switch {
	case hasURL && hasPath:
		return services.Wrap(services.ErrConfiguration, string(StageStart), "validate", "set either url or local path, not both", nil)
	case !hasURL && !hasPath:
		return services.Wrap(services.ErrConfiguration, string(StageStart), "validate", "url or local path is required", nil)
	}
	if strings.TrimSpace(c.RunsDir) == "" {
		return services.Wrap(services.ErrConfiguration, string(StageStart), "validate", "runs directory is required", nil)
	}
	if _, err := deepseek.ParseProxy(c.Proxy); err != nil {
		return err
	}
	return nil
}

// Source returns the URL or local path, whichever is set.
func (c JobConfig) Source() string {
	if url := strings.TrimSpace(c.URL); url != "" {
		return url
	}
	return strings.TrimSpace(c.LocalPath)
}

// EffectiveComputeType returns ComputeType, defaulting by device.
func (c JobConfig) EffectiveComputeType() string {
	if ct := strings.TrimSpace(c.ComputeType); ct != "" {
		return ct
	}
	return whisperx.DefaultComputeType(strings.ToLower(strings.TrimSpace(c.Device)))
}

func (c JobConfig) transcriptionOptions(outputDir string) whisperx.Options {
	return whisperx.Options{
		Language:    c.TranscriptionLanguage,
		Model:       c.ModelSize,
		Device:      c.Device,
		ComputeType: c.EffectiveComputeType(),
		OutputDir:   outputDir,
	}
}
