package history

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a recorded job.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// SourceKind distinguishes downloaded from local input.
type SourceKind string

const (
	SourceURL  SourceKind = "url"
	SourceFile SourceKind = "file"
)

// Job is one row of job history.
type Job struct {
	ID                    string
	Source                string
	SourceKind            SourceKind
	Status                Status
	Stage                 string
	StatusText            string
	WorkspaceDir          string
	MediaPath             string
	Outputs               map[string]string
	TranscriptionLanguage string
	TargetLanguage        string
	Model                 string
	Device                string
	SegmentCount          int
	ErrorKind             string
	ErrorMessage          string
	CreatedAt             time.Time
	UpdatedAt             time.Time
	FinishedAt            *time.Time
}

// OutputKey names an entry of Job.Outputs, e.g. "bilingual.vtt".
func OutputKey(track, format string) string {
	return strings.ToLower(track) + "." + strings.ToLower(format)
}

// IsTerminal reports whether the job has finished.
func (j *Job) IsTerminal() bool {
	return j.Status == StatusDone || j.Status == StatusFailed
}

// Duration returns the wall time between creation and completion, or until
// now for running jobs.
func (j *Job) Duration(now time.Time) time.Duration {
	end := now
	if j.FinishedAt != nil {
		end = *j.FinishedAt
	}
	if j.CreatedAt.IsZero() || end.Before(j.CreatedAt) {
		return 0
	}
	return end.Sub(j.CreatedAt)
}
