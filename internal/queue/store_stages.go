package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RecordStageResult inserts or replaces the result row for a (job, stage)
// pair. Re-running a job overwrites the results of its previous run.
func (s *Store) RecordStageResult(ctx context.Context, result *StageResult) error {
	if result == nil {
		return errors.New("stage result is nil")
	}
	if result.JobID == 0 || result.Stage == "" {
		return errors.New("stage result requires job id and stage name")
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO stage_results (
            job_id, stage, dependency, status, required, attempts,
            failure_kind, error_message, output_json, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (job_id, stage) DO UPDATE SET
            dependency = excluded.dependency,
            status = excluded.status,
            required = excluded.required,
            attempts = excluded.attempts,
            failure_kind = excluded.failure_kind,
            error_message = excluded.error_message,
            output_json = excluded.output_json,
            started_at = excluded.started_at,
            finished_at = excluded.finished_at`,
		result.JobID,
		result.Stage,
		result.Dependency,
		result.Status,
		boolToInt(result.Required),
		result.Attempts,
		nullableString(result.FailureKind),
		nullableString(result.ErrorMessage),
		nullableString(result.OutputJSON),
		formatTime(result.StartedAt),
		formatTime(result.FinishedAt),
	); err != nil {
		return fmt.Errorf("record stage result: %w", err)
	}
	return nil
}

// StageResultsForJob returns a job's stage results ordered by start time.
func (s *Store) StageResultsForJob(ctx context.Context, jobID int64) ([]*StageResult, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+stageResultColumns+` FROM stage_results WHERE job_id = ? ORDER BY started_at, id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("query stage results: %w", err)
	}
	defer rows.Close()

	var results []*StageResult
	for rows.Next() {
		result, err := scanStageResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// ClearStageResults removes all stage results for a job. Used before a retry
// so stale rows from the previous run don't mix with the new ones.
func (s *Store) ClearStageResults(ctx context.Context, jobID int64) error {
	if err := s.execWithoutResultRetry(ctx, `DELETE FROM stage_results WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("clear stage results: %w", err)
	}
	return nil
}

func formatTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}
