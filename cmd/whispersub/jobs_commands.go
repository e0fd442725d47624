package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"whispersub/internal/history"
	"whispersub/internal/language"
	"whispersub/internal/subtitles"
)

var errHistoryDisabled = errors.New("job history is disabled (set history.enabled = true)")

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect recorded jobs",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				if store == nil {
					return errHistoryDisabled
				}
				jobs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}

				if ctx.JSONMode() {
					views := make([]jobView, 0, len(jobs))
					for _, job := range jobs {
						views = append(views, newJobView(job))
					}
					return writeJSON(cmd, map[string]any{"jobs": views, "stats": stats})
				}

				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs recorded")
					return nil
				}
				now := time.Now()
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						shortID(job.ID),
						string(job.Status),
						valueOrDash(job.Stage),
						truncate(job.Source, 48),
						valueOrDash(job.TargetLanguage),
						formatWhen(job.CreatedAt),
						formatDuration(job.Duration(now).Truncate(time.Second)),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Status", "Stage", "Source", "Target", "Started", "Took"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
				fmt.Fprintf(out, "\n%s\n", formatStats(stats))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to show")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job and its outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				if store == nil {
					return errHistoryDisabled
				}
				id := strings.TrimSpace(args[0])
				if !strings.HasPrefix(id, "job-") {
					id = "job-" + id
				}
				job, err := store.FindByPrefix(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %s not found", args[0])
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, newJobView(job))
				}
				printJob(cmd, job)
				return nil
			})
		},
	}
}

type jobView struct {
	ID           string            `json:"id"`
	Source       string            `json:"source"`
	SourceKind   string            `json:"source_kind"`
	Status       string            `json:"status"`
	Stage        string            `json:"stage,omitempty"`
	WorkspaceDir string            `json:"workspace_dir,omitempty"`
	MediaPath    string            `json:"media_path,omitempty"`
	Outputs      map[string]string `json:"outputs,omitempty"`
	Language     string            `json:"transcription_language,omitempty"`
	Target       string            `json:"target_language,omitempty"`
	Model        string            `json:"model,omitempty"`
	Device       string            `json:"device,omitempty"`
	Segments     int               `json:"segments"`
	ErrorKind    string            `json:"error_kind,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	FinishedAt   *time.Time        `json:"finished_at,omitempty"`
}

func newJobView(job *history.Job) jobView {
	return jobView{
		ID:           job.ID,
		Source:       job.Source,
		SourceKind:   string(job.SourceKind),
		Status:       string(job.Status),
		Stage:        job.Stage,
		WorkspaceDir: job.WorkspaceDir,
		MediaPath:    job.MediaPath,
		Outputs:      job.Outputs,
		Language:     job.TranscriptionLanguage,
		Target:       job.TargetLanguage,
		Model:        job.Model,
		Device:       job.Device,
		Segments:     job.SegmentCount,
		ErrorKind:    job.ErrorKind,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		FinishedAt:   job.FinishedAt,
	}
}

func printJob(cmd *cobra.Command, job *history.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job:        %s\n", job.ID)
	fmt.Fprintf(out, "Status:     %s (%s)\n", job.Status, valueOrDash(job.Stage))
	fmt.Fprintf(out, "Source:     %s [%s]\n", job.Source, job.SourceKind)
	fmt.Fprintf(out, "Workspace:  %s\n", valueOrDash(job.WorkspaceDir))
	fmt.Fprintf(out, "Media:      %s\n", valueOrDash(job.MediaPath))
	fmt.Fprintf(out, "Speech:     %s, model %s on %s\n",
		language.DisplayName(job.TranscriptionLanguage), valueOrDash(job.Model), valueOrDash(job.Device))
	fmt.Fprintf(out, "Target:     %s\n", language.Describe(job.TargetLanguage))
	fmt.Fprintf(out, "Started:    %s\n", job.CreatedAt.Local().Format(time.DateTime))
	if job.FinishedAt != nil {
		fmt.Fprintf(out, "Took:       %s\n", job.Duration(time.Now()).Truncate(time.Second))
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:      [%s] %s\n", valueOrDash(job.ErrorKind), job.ErrorMessage)
	}

	rows := make([][]string, 0, 6)
	for _, track := range subtitles.Tracks {
		for _, format := range []subtitles.Format{subtitles.FormatSRT, subtitles.FormatVTT} {
			path, ok := job.Outputs[history.OutputKey(string(track), string(format))]
			if !ok {
				continue
			}
			cues := "-"
			if format == subtitles.FormatSRT {
				if n, err := subtitles.CountCuesInFile(path); err == nil {
					cues = fmt.Sprintf("%d", n)
				} else {
					cues = "missing"
				}
			}
			rows = append(rows, []string{string(track), string(format), cues, path})
		}
	}
	if len(rows) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable(
			[]string{"Track", "Format", "Cues", "Path"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
		))
	}
}

func formatStats(stats map[history.Status]int) string {
	keys := make([]string, 0, len(stats))
	total := 0
	for status, count := range stats {
		keys = append(keys, fmt.Sprintf("%s %d", status, count))
		total += count
	}
	sort.Strings(keys)
	return fmt.Sprintf("Total: %d jobs (%s)", total, strings.Join(keys, ", "))
}
