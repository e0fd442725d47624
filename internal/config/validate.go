package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. Translation credentials are not
// required here so commands that never translate still run; the translation
// client rejects a missing key when a job starts.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateNetwork(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// RequireTranslation reports an error when the translation endpoint cannot be used.
func (c *Config) RequireTranslation() error {
	if strings.TrimSpace(c.Translation.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("translation.api_key is required. Set DEEPSEEK_API_KEY env var or edit %s (create with 'whispersub config init')", defaultPath)
	}
	if strings.TrimSpace(c.Translation.BaseURL) == "" {
		return errors.New("translation.base_url is required (or set DEEPSEEK_BASE_URL)")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.RunsDir) == "" {
		return errors.New("paths.runs_dir must be set")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Device {
	case "cpu", "cuda":
	default:
		return fmt.Errorf("transcription.device must be cpu or cuda, got %q", c.Transcription.Device)
	}
	switch c.Transcription.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcription.vad_method must be silero or pyannote, got %q", c.Transcription.VADMethod)
	}
	if c.Transcription.VADMethod == "pyannote" && c.Transcription.HFToken == "" {
		return errors.New("transcription.hf_token must be set when transcription.vad_method is pyannote (or set HF_TOKEN)")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if c.Translation.BaseURL != "" {
		parsed, err := url.Parse(c.Translation.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("translation.base_url must be an absolute URL, got %q", c.Translation.BaseURL)
		}
	}
	if c.Translation.TimeoutSeconds <= 0 {
		return errors.New("translation.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNetwork() error {
	if c.Network.Proxy == "" {
		return nil
	}
	parsed, err := url.Parse(c.Network.Proxy)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("network.proxy must be a URL such as http://127.0.0.1:7890, got %q", c.Network.Proxy)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
