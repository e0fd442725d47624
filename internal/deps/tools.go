package deps

import "whispersub/internal/config"

// Requirements lists the external tools a job invokes, using the binaries
// named in cfg.
func Requirements(cfg *config.Config) []Requirement {
	tools := config.Default().Tools
	if cfg != nil {
		tools = cfg.Tools
	}
	return []Requirement{
		{
			Name:        "yt-dlp",
			Command:     tools.YTDLP,
			Description: "Required for URL downloads",
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "FFmpeg",
			Command:     tools.FFmpeg,
			Description: "Required for audio extraction",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "uvx",
			Command:     tools.UVX,
			Description: "Required for WhisperX transcription",
			VersionArgs: []string{"--version"},
		},
	}
}
