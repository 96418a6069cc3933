package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, video_id, source_url, title, status, current_stage, error_message, artifact_path, created_at, updated_at, started_at, finished_at, last_heartbeat"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id               int64
		videoID          string
		sourceURL        sql.NullString
		title            sql.NullString
		statusStr        string
		currentStage     sql.NullString
		errorMessage     sql.NullString
		artifactPath     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		startedRaw       sql.NullString
		finishedRaw      sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&videoID,
		&sourceURL,
		&title,
		&statusStr,
		&currentStage,
		&errorMessage,
		&artifactPath,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		VideoID:      videoID,
		SourceURL:    sourceURL.String,
		Title:        title.String,
		Status:       Status(statusStr),
		CurrentStage: currentStage.String,
		ErrorMessage: errorMessage.String,
		ArtifactPath: artifactPath.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &finished
		}
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			job.LastHeartbeat = &heartbeat
		}
	}
	return job, nil
}

const stageResultColumns = "id, job_id, stage, dependency, status, required, attempts, failure_kind, error_message, output_json, started_at, finished_at"

func scanStageResult(scanner interface{ Scan(dest ...any) error }) (*StageResult, error) {
	var (
		id           int64
		jobID        int64
		stage        string
		dependency   string
		statusStr    string
		required     sql.NullInt64
		attempts     sql.NullInt64
		failureKind  sql.NullString
		errorMessage sql.NullString
		outputJSON   sql.NullString
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&jobID,
		&stage,
		&dependency,
		&statusStr,
		&required,
		&attempts,
		&failureKind,
		&errorMessage,
		&outputJSON,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	result := &StageResult{
		ID:           id,
		JobID:        jobID,
		Stage:        stage,
		Dependency:   dependency,
		Status:       StageStatus(statusStr),
		Required:     required.Int64 != 0,
		Attempts:     int(attempts.Int64),
		FailureKind:  failureKind.String,
		ErrorMessage: errorMessage.String,
		OutputJSON:   outputJSON.String,
	}
	if started, err := parseTimeString(startedRaw.String); err == nil {
		result.StartedAt = started
	}
	if finished, err := parseTimeString(finishedRaw.String); err == nil {
		result.FinishedAt = finished
	}
	return result, nil
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
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
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

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
