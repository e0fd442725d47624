package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"whispersub/internal/config"
	"whispersub/internal/history"
	"whispersub/internal/language"
	"whispersub/internal/pipeline"
	"whispersub/internal/preflight"
	"whispersub/internal/subtitles"
)

type runOptions struct {
	url         string
	file        string
	language    string
	model       string
	device      string
	computeType string
	target      string
	proxy       string
	track       string
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate subtitles for a URL or local video",
		Long: `Download (or copy) a video, transcribe it with WhisperX, translate the
transcript and write original, translated and bilingual subtitles as SRT and
WebVTT into a fresh workspace under paths.runs_dir.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			job, track, err := opts.jobConfig(cfg)
			if err != nil {
				return err
			}
			if err := checkRunReadiness(cmd, cfg, job); err != nil {
				return err
			}

			logger := ctx.ensureLogger()
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			jsonMode := ctx.JSONMode()

			return ctx.withHistory(func(store *history.Store) error {
				runner := pipeline.NewRunner(cfg, logger)
				runner.Store = store

				observer := func(u pipeline.Update) {
					if !jsonMode {
						fmt.Fprintln(out, renderProgress(u.Status, colorize))
					}
				}
				final, runErr := runner.Run(cmd.Context(), job, observer)
				if jsonMode {
					payload := map[string]any{"update": final, "preview_vtt": final.PreferredVTT(track)}
					if runErr != nil {
						payload["error"] = runErr.Error()
					}
					if err := writeJSON(cmd, payload); err != nil {
						return err
					}
					return runErr
				}
				if runErr != nil {
					if final.WorkspaceDir != "" {
						fmt.Fprintf(out, "Workspace kept for inspection: %s\n", final.WorkspaceDir)
					}
					return runErr
				}
				printRunSummary(out, final, track)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.url, "url", "", "Video URL to download with yt-dlp")
	flags.StringVar(&opts.file, "file", "", "Local video file to process")
	flags.StringVar(&opts.language, "language", "", "Spoken language code or \"auto\" (default from config)")
	flags.StringVar(&opts.model, "model", "", "WhisperX model size (tiny, base, small, medium, large-v3)")
	flags.StringVar(&opts.device, "device", "", "Transcription device: cpu or cuda")
	flags.StringVar(&opts.computeType, "compute-type", "", "WhisperX compute type (default int8 on cpu, float16 on cuda)")
	flags.StringVar(&opts.target, "target", "", "Translation target language")
	flags.StringVar(&opts.proxy, "proxy", "", "Proxy URL for downloads and translation requests")
	flags.StringVar(&opts.track, "track", string(subtitles.TrackBilingual), "Track to preview: original, translated or bilingual")
	cmd.MarkFlagsMutuallyExclusive("url", "file")
	cmd.MarkFlagsOneRequired("url", "file")

	return cmd
}

// jobConfig layers the flags over the configured defaults.
func (o runOptions) jobConfig(cfg *config.Config) (pipeline.JobConfig, subtitles.Track, error) {
	job := pipeline.JobConfigFromConfig(cfg)
	job.URL = strings.TrimSpace(o.url)
	if file := strings.TrimSpace(o.file); file != "" {
		expanded, err := config.ExpandPath(file)
		if err != nil {
			return job, "", fmt.Errorf("resolve --file: %w", err)
		}
		job.LocalPath = expanded
	}
	if v := strings.TrimSpace(o.language); v != "" {
		job.TranscriptionLanguage = strings.ToLower(v)
	}
	if _, err := language.TranscriptionCode(job.TranscriptionLanguage); err != nil {
		return job, "", fmt.Errorf("--language: %w", err)
	}
	if v := strings.TrimSpace(o.model); v != "" {
		job.ModelSize = v
	}
	if v := strings.ToLower(strings.TrimSpace(o.device)); v != "" {
		if v != "cpu" && v != "cuda" {
			return job, "", fmt.Errorf("--device must be cpu or cuda, got %q", o.device)
		}
		job.Device = v
		if strings.TrimSpace(o.computeType) == "" && v != cfg.Transcription.Device {
			// The configured compute type belongs to the configured device.
			job.ComputeType = ""
		}
	}
	if v := strings.TrimSpace(o.computeType); v != "" {
		job.ComputeType = strings.ToLower(v)
	}
	if v := strings.TrimSpace(o.target); v != "" {
		job.TargetLanguage = v
	}
	if v := strings.TrimSpace(o.proxy); v != "" {
		job.Proxy = v
	}
	track, ok := subtitles.ParseTrack(o.track)
	if !ok {
		return job, "", fmt.Errorf("--track must be original, translated or bilingual, got %q", o.track)
	}
	return job, track, job.Validate()
}

// checkRunReadiness fails before any work starts when the job cannot finish.
func checkRunReadiness(cmd *cobra.Command, cfg *config.Config, job pipeline.JobConfig) error {
	if err := cfg.RequireTranslation(); err != nil {
		return err
	}
	if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg, true)); len(failed) > 0 {
		return fmt.Errorf("%s: %s", failed[0].Name, failed[0].Detail)
	}
	statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
	var missing []string
	for _, status := range statuses {
		if status.Available || status.Optional {
			continue
		}
		if status.Name == "yt-dlp" && job.URL == "" {
			continue
		}
		missing = append(missing, fmt.Sprintf("%s (%s)", status.Name, status.Command))
	}
	if len(missing) > 0 {
		return errors.New("missing required tools: " + strings.Join(missing, ", ") + "; run `whispersub doctor`")
	}
	return nil
}

func printRunSummary(out io.Writer, final pipeline.Update, track subtitles.Track) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Workspace: %s\n", final.WorkspaceDir)
	fmt.Fprintf(out, "Media:     %s\n", final.MediaPath)
	fmt.Fprintf(out, "Segments:  %d\n\n", final.Segments)

	rows := make([][]string, 0, len(subtitles.Tracks))
	for _, t := range subtitles.Tracks {
		files := final.Files(t)
		rows = append(rows, []string{string(t), valueOrDash(files.SRT), valueOrDash(files.VTT)})
	}
	fmt.Fprintln(out, renderTable([]string{"Track", "SRT", "VTT"}, rows, nil))
	if preview := final.PreferredVTT(track); preview != "" {
		fmt.Fprintf(out, "\nPreview (%s): %s\n", track, preview)
	}
}
