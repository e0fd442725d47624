package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"whispersub/internal/config"
	"whispersub/internal/history"
	"whispersub/internal/logging"
	"whispersub/internal/media"
	"whispersub/internal/notifications"
	"whispersub/internal/services"
	"whispersub/internal/services/deepseek"
	"whispersub/internal/services/whisperx"
	"whispersub/internal/subtitles"
	"whispersub/internal/workspace"
)

// Transcriber turns an audio file into timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, opts whisperx.Options) ([]subtitles.Segment, error)
}

// Translator translates texts in order, returning one result per input.
type Translator interface {
	TranslateBatch(ctx context.Context, texts []string, targetLanguage string) ([]string, error)
}

// Runner executes jobs. Nil collaborators fall back to the default tools; a
// nil Translator is built per job from JobConfig.Translation. Store and
// Notifier are optional.
type Runner struct {
	Downloader  media.Downloader
	Transcoder  media.Transcoder
	Transcriber Transcriber
	Translator  Translator
	Store       *history.Store
	Notifier    notifications.Service
	Logger      *slog.Logger
}

// NewRunner wires the external tools named in cfg. The proxy is taken from
// each JobConfig, not from cfg.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	r := &Runner{Logger: logger}
	if cfg == nil {
		return r
	}
	r.Downloader = media.YTDLP{Binary: cfg.Tools.YTDLP, Logger: logger}
	r.Transcoder = media.FFmpeg{Binary: cfg.Tools.FFmpeg, Logger: logger}
	r.Transcriber = &whisperx.Service{
		Binary:    cfg.Tools.UVX,
		VADMethod: cfg.Transcription.VADMethod,
		HFToken:   cfg.Transcription.HFToken,
		Logger:    logger,
	}
	r.Notifier = notifications.NewService(cfg)
	return r
}

// Run executes cfg to completion, calling observer after each stage boundary.
// It returns the last snapshot along with the first error encountered.
func (r *Runner) Run(ctx context.Context, cfg JobConfig, observer Observer) (Update, error) {
	if err := cfg.Validate(); err != nil {
		return Update{}, err
	}
	ws, err := workspace.Create(cfg.RunsDir)
	if err != nil {
		return Update{}, err
	}
	unlock, err := ws.Lock()
	if err != nil {
		return Update{}, err
	}
	defer func() { _ = unlock() }()

	ctx = services.WithJobID(ctx, ws.ID)
	job := &jobRun{
		runner:   r,
		cfg:      cfg,
		ws:       ws,
		observer: observer,
		logger:   logging.NewComponentLogger(r.Logger, "pipeline"),
		update:   Update{JobID: ws.ID, WorkspaceDir: ws.Root},
		started:  time.Now(),
	}
	job.record(ctx)

	runErr := job.execute(ctx)
	job.finish(ctx, runErr)
	return job.update, runErr
}

type jobRun struct {
	runner   *Runner
	cfg      JobConfig
	ws       *workspace.Workspace
	observer Observer
	logger   *slog.Logger
	update   Update
	entry    *history.Job
	started  time.Time
}

func (j *jobRun) execute(ctx context.Context) error {
	j.emit(ctx, StageStart, StatusStarting)

	if err := j.acquire(ctx); err != nil {
		return err
	}

	j.emit(ctx, StageExtractingAudio, StatusExtracting)
	audio := j.ws.AudioPath()
	if err := j.runStage(ctx, func(ctx context.Context) error {
		return j.transcoder().ExtractAudio(ctx, j.update.MediaPath, audio)
	}); err != nil {
		return err
	}

	j.emit(ctx, StageTranscribing, StatusTranscribing)
	var segments []subtitles.Segment
	if err := j.runStage(ctx, func(ctx context.Context) error {
		var err error
		segments, err = j.transcriber().Transcribe(ctx, audio, j.cfg.transcriptionOptions(j.ws.TranscriptDir()))
		if err != nil {
			return err
		}
		j.update.Segments = len(segments)
		j.update.Original, err = j.writeTrack(subtitles.TrackOriginal, segments)
		return err
	}); err != nil {
		return err
	}

	j.emit(ctx, StageTranslating, StatusTranslating)
	if err := j.runStage(ctx, func(ctx context.Context) error {
		return j.translate(ctx, segments)
	}); err != nil {
		return err
	}

	j.emit(ctx, StageDone, StatusDone)
	return nil
}

// acquire places the source media in the workspace: downloaded and moved for
// URL jobs, copied for local files.
func (j *jobRun) acquire(ctx context.Context) error {
	if url := strings.TrimSpace(j.cfg.URL); url != "" {
		j.emit(ctx, StageDownloading, StatusDownloading)
		return j.runStage(ctx, func(ctx context.Context) error {
			downloaded, err := j.downloader().Download(ctx, url, j.ws.Root)
			if err != nil {
				return err
			}
			j.update.MediaPath, err = workspace.SetMediaPath(j.ws, downloaded)
			return err
		})
	}
	mediaPath, err := workspace.EnsureLocalMedia(j.ws, strings.TrimSpace(j.cfg.LocalPath))
	if err != nil {
		return err
	}
	j.update.MediaPath = mediaPath
	return nil
}

func (j *jobRun) translate(ctx context.Context, segments []subtitles.Segment) error {
	texts, err := j.translator().TranslateBatch(ctx, subtitles.Texts(segments), j.cfg.TargetLanguage)
	if err != nil {
		return err
	}
	translated, err := subtitles.WithTexts(segments, texts)
	if err != nil {
		return err
	}
	bilingual, err := subtitles.Bilingual(segments, translated)
	if err != nil {
		return err
	}
	if j.update.Translated, err = j.writeTrack(subtitles.TrackTranslated, translated); err != nil {
		return err
	}
	j.update.Bilingual, err = j.writeTrack(subtitles.TrackBilingual, bilingual)
	return err
}

func (j *jobRun) writeTrack(track subtitles.Track, segments []subtitles.Segment) (TrackFiles, error) {
	files := TrackFiles{
		SRT: j.ws.SubtitlePath(track, subtitles.FormatSRT),
		VTT: j.ws.SubtitlePath(track, subtitles.FormatVTT),
	}
	if err := subtitles.WriteSRT(files.SRT, segments); err != nil {
		return TrackFiles{}, fmt.Errorf("write %s srt: %w", track, err)
	}
	if err := subtitles.WriteVTT(files.VTT, segments); err != nil {
		return TrackFiles{}, fmt.Errorf("write %s vtt: %w", track, err)
	}
	return files, nil
}

// runStage wraps the work of the current stage with start/complete logging.
func (j *jobRun) runStage(ctx context.Context, fn func(context.Context) error) error {
	stageCtx := services.WithStage(ctx, string(j.update.Stage))
	logger := logging.WithContext(stageCtx, j.logger)
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))
	started := time.Now()
	if err := fn(stageCtx); err != nil {
		return err
	}
	logger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// emit advances to stage and publishes a snapshot.
func (j *jobRun) emit(ctx context.Context, stage Stage, status string) {
	j.update.Stage = stage
	j.update.Status = status

	logger := logging.WithContext(services.WithStage(ctx, string(stage)), j.logger)
	logger.Info(
		"stage update",
		logging.String(logging.FieldEventType, "stage_update"),
		logging.String("status", status),
		logging.String("media_path", j.update.MediaPath),
	)
	j.persist(ctx)
	if j.observer != nil {
		j.observer(j.update)
	}
}

func (j *jobRun) record(ctx context.Context) {
	store := j.runner.Store
	if store == nil {
		return
	}
	kind := history.SourceFile
	if strings.TrimSpace(j.cfg.URL) != "" {
		kind = history.SourceURL
	}
	entry := &history.Job{
		ID:                    j.ws.ID,
		Source:                j.cfg.Source(),
		SourceKind:            kind,
		Stage:                 string(StageStart),
		WorkspaceDir:          j.ws.Root,
		TranscriptionLanguage: j.cfg.TranscriptionLanguage,
		TargetLanguage:        j.cfg.TargetLanguage,
		Model:                 j.cfg.ModelSize,
		Device:                j.cfg.Device,
	}
	if err := store.Create(ctx, entry); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, j.logger), "job history unavailable", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.history_db"),
			logging.String(logging.FieldImpact, "job will not appear in `whispersub jobs`"),
		)
		return
	}
	j.entry = entry
}

func (j *jobRun) persist(ctx context.Context) {
	if j.entry == nil {
		return
	}
	j.syncEntry()
	if err := j.runner.Store.Update(context.WithoutCancel(ctx), j.entry); err != nil {
		j.logger.Debug("job history update failed", logging.Error(err))
	}
}

func (j *jobRun) syncEntry() {
	j.entry.Stage = string(j.update.Stage)
	j.entry.StatusText = j.update.Status
	j.entry.MediaPath = j.update.MediaPath
	j.entry.SegmentCount = j.update.Segments
	j.entry.Outputs = j.update.Outputs()
}

func (j *jobRun) finish(ctx context.Context, runErr error) {
	logger := logging.WithContext(services.WithStage(ctx, string(j.update.Stage)), j.logger)
	bg := context.WithoutCancel(ctx)
	kind := services.Kind(runErr)

	if runErr != nil {
		logging.ErrorWithContext(logger, "job failed", "job_failure",
			logging.String("error_kind", kind),
			logging.String(logging.FieldErrorHint, errorHint(runErr)),
			logging.String("workspace", j.ws.Root),
			logging.Error(runErr),
		)
	} else {
		logger.Info("job completed",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.Int("segments", j.update.Segments),
			logging.Duration("elapsed", time.Since(j.started)),
		)
	}

	if j.entry != nil {
		j.syncEntry()
		if err := j.runner.Store.Finish(bg, j.entry, kind, runErr); err != nil {
			logger.Debug("job history finish failed", logging.Error(err))
		}
	}

	if j.runner.Notifier == nil {
		return
	}
	payload := notifications.Payload{"workspace": j.ws.Root}
	if strings.TrimSpace(j.cfg.URL) != "" {
		payload["url"] = j.cfg.Source()
	} else {
		payload["file"] = j.cfg.Source()
	}
	event := notifications.EventJobCompleted
	if runErr != nil {
		event = notifications.EventJobFailed
		payload["stage"] = string(j.update.Stage)
		payload["error"] = runErr
	}
	if err := j.runner.Notifier.Publish(bg, event, payload); err != nil {
		logger.Debug("job notification failed", logging.Error(err))
	}
}

// downloader applies the job's proxy to yt-dlp; other downloaders are used
// as given.
func (j *jobRun) downloader() media.Downloader {
	switch d := j.runner.Downloader.(type) {
	case nil:
		return media.YTDLP{Proxy: j.cfg.Proxy, Logger: j.runner.Logger}
	case media.YTDLP:
		d.Proxy = j.cfg.Proxy
		return d
	case *media.YTDLP:
		perJob := *d
		perJob.Proxy = j.cfg.Proxy
		return perJob
	default:
		return d
	}
}

func (j *jobRun) transcoder() media.Transcoder {
	if j.runner.Transcoder != nil {
		return j.runner.Transcoder
	}
	return media.FFmpeg{Logger: j.runner.Logger}
}

func (j *jobRun) transcriber() Transcriber {
	if j.runner.Transcriber != nil {
		return j.runner.Transcriber
	}
	return &whisperx.Service{Logger: j.runner.Logger}
}

func (j *jobRun) translator() Translator {
	if j.runner.Translator != nil {
		return j.runner.Translator
	}
	tr := j.cfg.Translation
	return deepseek.NewClient(deepseek.Config{
		BaseURL: tr.BaseURL,
		APIKey:  tr.APIKey,
		Model:   tr.Model,
		Proxy:   j.cfg.Proxy,
		Timeout: tr.Timeout,
	}, deepseek.WithLogger(j.runner.Logger))
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "job was cancelled or timed out; partial outputs remain in the workspace"
	case errors.Is(err, services.ErrConfiguration):
		return "check config.toml and DEEPSEEK_API_KEY"
	case errors.Is(err, services.ErrNotFound):
		return "verify the source path or the downloader output"
	case errors.Is(err, services.ErrCommandFailed):
		return "inspect the tool output above; run `whispersub doctor`"
	case services.Retryable(err):
		return "translation service unreachable or returned invalid JSON; retry later"
	default:
		return "check logs for details"
	}
}
