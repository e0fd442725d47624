package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const jobColumns = "id, source, source_kind, status, stage, status_text, workspace_dir, media_path, outputs_json, transcription_language, target_language, model, device, segment_count, error_kind, error_message, created_at, updated_at, finished_at"

// DefaultListLimit bounds List when callers pass a non-positive limit.
const DefaultListLimit = 50

// Create inserts a new running job. CreatedAt and UpdatedAt are stamped here.
func (s *Store) Create(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if strings.TrimSpace(job.ID) == "" {
		return errors.New("job id is required")
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = StatusRunning
	}
	outputs, err := encodeOutputs(job.Outputs)
	if err != nil {
		return err
	}
	if _, err := s.exec(
		ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Source,
		string(job.SourceKind),
		string(job.Status),
		nullableString(job.Stage),
		nullableString(job.StatusText),
		nullableString(job.WorkspaceDir),
		nullableString(job.MediaPath),
		outputs,
		nullableString(job.TranscriptionLanguage),
		nullableString(job.TargetLanguage),
		nullableString(job.Model),
		nullableString(job.Device),
		job.SegmentCount,
		nullableString(job.ErrorKind),
		nullableString(job.ErrorMessage),
		formatTime(job.CreatedAt),
		formatTime(job.UpdatedAt),
		nullableTime(job.FinishedAt),
	); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Update persists the mutable fields of an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	outputs, err := encodeOutputs(job.Outputs)
	if err != nil {
		return err
	}
	res, err := s.exec(
		ctx,
		`UPDATE jobs
         SET status = ?, stage = ?, status_text = ?, workspace_dir = ?, media_path = ?,
             outputs_json = ?, segment_count = ?, error_kind = ?, error_message = ?,
             updated_at = ?, finished_at = ?
         WHERE id = ?`,
		string(job.Status),
		nullableString(job.Stage),
		nullableString(job.StatusText),
		nullableString(job.WorkspaceDir),
		nullableString(job.MediaPath),
		outputs,
		job.SegmentCount,
		nullableString(job.ErrorKind),
		nullableString(job.ErrorMessage),
		formatTime(job.UpdatedAt),
		nullableTime(job.FinishedAt),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update job %s: no such job", job.ID)
	}
	return nil
}

// Finish marks the job done, or failed with the given kind and error.
func (s *Store) Finish(ctx context.Context, job *Job, kind string, jobErr error) error {
	if job == nil {
		return errors.New("job is nil")
	}
	now := time.Now().UTC()
	job.FinishedAt = &now
	if jobErr != nil {
		job.Status = StatusFailed
		job.ErrorKind = kind
		job.ErrorMessage = strings.TrimSpace(jobErr.Error())
	} else {
		job.Status = StatusDone
		job.ErrorKind = ""
		job.ErrorMessage = ""
	}
	return s.Update(ctx, job)
}

// Get fetches a job by identifier. A missing job returns nil, nil.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindByPrefix resolves a unique job whose id starts with prefix.
func (s *Store) FindByPrefix(ctx context.Context, prefix string) (*Job, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil
	}
	if job, err := s.Get(ctx, prefix); err != nil || job != nil {
		return job, err
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id LIKE ? ESCAPE '\' ORDER BY created_at DESC, rowid DESC LIMIT 2`,
		escaped+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	jobs, err := collectJobs(rows)
	if err != nil {
		return nil, err
	}
	switch len(jobs) {
	case 0:
		return nil, nil
	case 1:
		return jobs[0], nil
	default:
		return nil, fmt.Errorf("job prefix %q is ambiguous", prefix)
	}
}

// List returns the most recent jobs first.
func (s *Store) List(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return collectJobs(rows)
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Remove deletes a job row. Removing a missing job is not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove job: %w", err)
	}
	return nil
}

func collectJobs(rows *sql.Rows) ([]*Job, error) {
	defer rows.Close()
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
