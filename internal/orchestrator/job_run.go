package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"loom/internal/events"
	"loom/internal/logging"
	"loom/internal/operations"
	"loom/internal/queue"
	"loom/internal/retry"
	"loom/internal/services"
)

type stageOutcome struct {
	stage  pipelineStage
	result *queue.StageResult
	err    error
}

type pipelineOutcome struct {
	requiredFailed bool
	optionalFailed bool
	failureMessage string
	failedOptional []string
	cancelled      bool
}

func (c *Coordinator) runJob(ctx context.Context, job *queue.Job) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.registerCancel(job.ID, cancel)
	defer c.unregisterCancel(job.ID)

	jobCtx = services.WithJobID(jobCtx, job.ID)
	jobCtx = services.WithRequestID(jobCtx, uuid.NewString())
	logger := logging.WithContext(jobCtx, c.logger)

	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("video_id", job.VideoID),
	)
	c.publish(events.JobStarted(job))

	hbCtx, hbCancel := context.WithCancel(jobCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go c.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)

	jc := operations.NewJobContext(job)
	outcome := c.runPipeline(jobCtx, logger, jc)

	hbCancel()
	hbWG.Wait()

	c.finalizeJob(logger, job, outcome)
}

func (c *Coordinator) runPipeline(ctx context.Context, logger *slog.Logger, jc *operations.JobContext) pipelineOutcome {
	job := jc.Job
	outcome := pipelineOutcome{}

	for index, group := range c.pipeline {
		if ctx.Err() != nil {
			outcome.cancelled = true
			c.recordSkipped(job, c.pipeline[index:], "job cancelled")
			return outcome
		}

		job.CurrentStage = groupLabel(group)
		if err := c.store.Update(ctx, job); err != nil {
			logger.Warn("failed to persist current stage", logging.Error(err))
		}

		results := c.runGroup(ctx, logger, jc, group)
		for _, res := range results {
			if res.err == nil {
				continue
			}
			if res.stage.required {
				outcome.requiredFailed = true
				if outcome.failureMessage == "" {
					outcome.failureMessage = fmt.Sprintf("stage %s: %s", res.stage.name, res.err)
				}
			} else {
				outcome.optionalFailed = true
				outcome.failedOptional = append(outcome.failedOptional, res.stage.name)
			}
		}

		if ctx.Err() != nil {
			outcome.cancelled = true
			if index+1 < len(c.pipeline) {
				c.recordSkipped(job, c.pipeline[index+1:], "job cancelled")
			}
			return outcome
		}
		if outcome.requiredFailed {
			if index+1 < len(c.pipeline) {
				c.recordSkipped(job, c.pipeline[index+1:], "required stage failed")
			}
			return outcome
		}
	}
	return outcome
}

func (c *Coordinator) runGroup(ctx context.Context, logger *slog.Logger, jc *operations.JobContext, group stageGroup) []stageOutcome {
	if len(group.stages) == 1 {
		return []stageOutcome{c.runStage(ctx, logger, jc, group.stages[0])}
	}

	results := make([]stageOutcome, len(group.stages))
	var wg sync.WaitGroup
	for i, stage := range group.stages {
		wg.Add(1)
		go func(i int, stage pipelineStage) {
			defer wg.Done()
			results[i] = c.runStage(ctx, logger, jc, stage)
		}(i, stage)
	}
	wg.Wait()
	return results
}

func (c *Coordinator) runStage(ctx context.Context, logger *slog.Logger, jc *operations.JobContext, stage pipelineStage) stageOutcome {
	job := jc.Job
	stageCtx := services.WithStage(services.WithDependency(ctx, stage.dependency), stage.name)
	stageLogger := logging.WithContext(stageCtx, logger)

	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Bool("required", stage.required),
	)
	c.publish(events.StageStarted(job, stage.name, stage.dependency))

	started := time.Now().UTC()
	attempts := 0
	var output string
	execErr := c.executor.Execute(stageCtx, stage.dependency, func(opCtx context.Context) error {
		attempts++
		out, err := stage.run(opCtx, jc)
		if err == nil {
			output = out
		}
		return err
	})
	finished := time.Now().UTC()

	result := &queue.StageResult{
		JobID:      job.ID,
		Stage:      stage.name,
		Dependency: stage.dependency,
		Required:   stage.required,
		Attempts:   attempts,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if execErr != nil {
		result.Status = queue.StageFailed
		result.FailureKind = retry.FailureKind(execErr)
		result.ErrorMessage = execErr.Error()
		stageLogger.Warn("stage failed",
			logging.String(logging.FieldEventType, "stage_failed"),
			logging.String("failure_kind", result.FailureKind),
			logging.Int(logging.FieldAttempt, attempts),
			logging.Error(execErr),
		)
	} else {
		result.Status = queue.StageCompleted
		result.OutputJSON = output
		stageLogger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Int(logging.FieldAttempt, attempts),
			logging.Duration("stage_duration", finished.Sub(started)),
		)
	}

	// Persist with a fresh context so a cancelled job still records results.
	if err := c.store.RecordStageResult(context.Background(), result); err != nil {
		stageLogger.Error("failed to persist stage result", logging.Error(err))
		c.setLastError(err)
	}
	c.publish(events.StageFinished(job, result))
	return stageOutcome{stage: stage, result: result, err: execErr}
}

func (c *Coordinator) recordSkipped(job *queue.Job, groups []stageGroup, reason string) {
	now := time.Now().UTC()
	for _, group := range groups {
		for _, stage := range group.stages {
			result := &queue.StageResult{
				JobID:        job.ID,
				Stage:        stage.name,
				Dependency:   stage.dependency,
				Required:     stage.required,
				Status:       queue.StageSkipped,
				ErrorMessage: reason,
				StartedAt:    now,
				FinishedAt:   now,
			}
			if err := c.store.RecordStageResult(context.Background(), result); err != nil {
				c.logger.Error("failed to persist skipped stage", logging.Error(err))
			}
			c.publish(events.StageFinished(job, result))
		}
	}
}

func (c *Coordinator) finalizeJob(logger *slog.Logger, job *queue.Job, outcome pipelineOutcome) {
	persistCtx := context.Background()
	now := time.Now().UTC()
	job.FinishedAt = &now
	job.LastHeartbeat = nil
	job.CurrentStage = ""

	if outcome.cancelled {
		reason, requested := c.cancelRequested(job.ID)
		if !requested {
			// Daemon shutdown: leave the job running so the reset on restart
			// returns it to pending.
			return
		}
		job.Status = queue.StatusCancelled
		job.ErrorMessage = reason
		if err := c.store.Update(persistCtx, job); err != nil {
			logger.Error("failed to persist cancellation", logging.Error(err))
			c.setLastError(err)
		}
		logger.Info("job cancelled", logging.String(logging.FieldEventType, "job_cancelled"))
		c.publish(events.JobCancelled(job, reason))
		c.setLastJob(job)
		return
	}

	switch {
	case outcome.requiredFailed:
		job.Status = queue.StatusFailed
		job.ErrorMessage = outcome.failureMessage
	case outcome.optionalFailed:
		job.Status = queue.StatusPartialFailure
		job.ErrorMessage = fmt.Sprintf("optional stages failed: %s", strings.Join(outcome.failedOptional, ", "))
	default:
		job.Status = queue.StatusCompleted
		job.ErrorMessage = ""
	}

	if err := c.store.Update(persistCtx, job); err != nil {
		logger.Error("failed to persist final job status", logging.Error(err))
		c.setLastError(err)
	}
	logger.Info("job finished",
		logging.String(logging.FieldEventType, "job_finished"),
		logging.String("final_status", string(job.Status)),
	)
	c.publish(events.JobFinished(job))
	c.setLastJob(job)
}

func (c *Coordinator) publish(evt events.Event) {
	if c.bus != nil {
		c.bus.Publish(evt)
	}
}

func groupLabel(group stageGroup) string {
	if group.name != "" {
		return group.name
	}
	return group.stages[0].name
}
