package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id          string
		source      string
		sourceKind  string
		status      string
		stage       sql.NullString
		statusText  sql.NullString
		workspace   sql.NullString
		mediaPath   sql.NullString
		outputsRaw  sql.NullString
		transLang   sql.NullString
		targetLang  sql.NullString
		model       sql.NullString
		device      sql.NullString
		segments    int
		errorKind   sql.NullString
		errorMsg    sql.NullString
		createdRaw  string
		updatedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&source,
		&sourceKind,
		&status,
		&stage,
		&statusText,
		&workspace,
		&mediaPath,
		&outputsRaw,
		&transLang,
		&targetLang,
		&model,
		&device,
		&segments,
		&errorKind,
		&errorMsg,
		&createdRaw,
		&updatedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:                    id,
		Source:                source,
		SourceKind:            SourceKind(sourceKind),
		Status:                Status(status),
		Stage:                 stage.String,
		StatusText:            statusText.String,
		WorkspaceDir:          workspace.String,
		MediaPath:             mediaPath.String,
		TranscriptionLanguage: transLang.String,
		TargetLanguage:        targetLang.String,
		Model:                 model.String,
		Device:                device.String,
		SegmentCount:          segments,
		ErrorKind:             errorKind.String,
		ErrorMessage:          errorMsg.String,
	}
	if outputsRaw.Valid && outputsRaw.String != "" {
		if err := json.Unmarshal([]byte(outputsRaw.String), &job.Outputs); err != nil {
			return nil, fmt.Errorf("decode outputs: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &finished
		}
	}
	return job, nil
}

func encodeOutputs(outputs map[string]string) (any, error) {
	if len(outputs) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(outputs)
	if err != nil {
		return nil, fmt.Errorf("encode outputs: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
