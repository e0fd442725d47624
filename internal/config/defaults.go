package config

const (
	defaultConfigPath                = "~/.config/whispersub/config.toml"
	projectConfigName                = "whispersub.toml"
	defaultRunsDir                   = "~/.local/share/whispersub/runs"
	defaultLogDir                    = "~/.local/share/whispersub/logs"
	defaultHistoryDB                 = "~/.local/share/whispersub/history.db"
	defaultLogRetentionDays          = 30
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultTranscriptionLanguage     = "auto"
	defaultTranscriptionModel        = "medium"
	defaultTranscriptionDevice       = "cpu"
	defaultVADMethod                 = "silero"
	defaultTranslationBaseURL        = "https://api.deepseek.com"
	defaultTranslationModel          = "deepseek-chat"
	defaultTargetLanguage            = "zh"
	defaultTranslationTimeoutSeconds = 120
	defaultNotifyRequestTimeout      = 10
	defaultWorkspaceMaxAgeDays       = 14
	defaultYTDLPBinary               = "yt-dlp"
	defaultFFmpegBinary              = "ffmpeg"
	defaultUVXBinary                 = "uvx"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RunsDir:   defaultRunsDir,
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		Transcription: Transcription{
			Language:  defaultTranscriptionLanguage,
			Model:     defaultTranscriptionModel,
			Device:    defaultTranscriptionDevice,
			VADMethod: defaultVADMethod,
		},
		Translation: Translation{
			BaseURL:        defaultTranslationBaseURL,
			Model:          defaultTranslationModel,
			TargetLanguage: defaultTargetLanguage,
			TimeoutSeconds: defaultTranslationTimeoutSeconds,
		},
		Tools: Tools{
			YTDLP:  defaultYTDLPBinary,
			FFmpeg: defaultFFmpegBinary,
			UVX:    defaultUVXBinary,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobCompleted:   true,
			JobFailed:      true,
		},
		History: History{
			Enabled:             true,
			WorkspaceMaxAgeDays: defaultWorkspaceMaxAgeDays,
		},
	}
}
