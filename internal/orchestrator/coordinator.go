package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"loom/internal/config"
	"loom/internal/events"
	"loom/internal/logging"
	"loom/internal/operations"
	"loom/internal/queue"
	"loom/internal/registry"
	"loom/internal/retry"
)

// Coordinator polls the queue and runs pending jobs through the pipeline.
type Coordinator struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	deps     *registry.Registry
	executor *retry.Executor
	ops      *operations.Registry
	bus      *events.Bus
	pipeline []stageGroup

	heartbeat    *HeartbeatMonitor
	pollInterval time.Duration
	retryWait    time.Duration
	slots        chan struct{}

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	jobs    sync.WaitGroup
	lastErr error
	lastJob *queue.Job
	cancels map[int64]*jobHandle
}

// jobHandle tracks an in-flight job so cancellation can reach it.
type jobHandle struct {
	cancel    context.CancelFunc
	requested bool
	reason    string
}

// New constructs a coordinator. The operation and dependency registries must
// cover every stage in the configured pipeline.
func New(cfg *config.Config, store *queue.Store, deps *registry.Registry, ops *operations.Registry, bus *events.Bus, logger *slog.Logger) (*Coordinator, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "orchestrator")

	pipeline, err := buildPipeline(cfg, ops, deps)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	maxConcurrent := cfg.Workflow.MaxConcurrentJobs
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Coordinator{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		deps:     deps,
		executor: retry.NewExecutor(deps, logger),
		ops:      ops,
		bus:      bus,
		pipeline: pipeline,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		pollInterval: time.Duration(cfg.Workflow.JobPollInterval) * time.Second,
		retryWait:    time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		slots:        make(chan struct{}, maxConcurrent),
		cancels:      make(map[int64]*jobHandle),
	}, nil
}

// Start begins background processing.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("orchestrator already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.wg.Add(1)
	c.mu.Unlock()

	go c.runLoop(runCtx)
	return nil
}

// Stop terminates background processing and waits for in-flight jobs.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.running = false
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
	c.jobs.Wait()
}

func (c *Coordinator) runLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.heartbeat.ReclaimStaleJobs(ctx, c.logger); err != nil {
			c.logger.Warn("reclaim stale jobs failed; stuck jobs may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check job database access"),
			)
		}

		job, err := c.store.NextPending(ctx)
		if err != nil {
			c.handleFetchError(ctx, err)
			continue
		}
		if job == nil {
			c.waitForJobOrShutdown(ctx)
			continue
		}

		// Respect the concurrency cap before claiming the job.
		select {
		case <-ctx.Done():
			return
		case c.slots <- struct{}{}:
		}

		if err := c.claimJob(ctx, job); err != nil {
			<-c.slots
			if errors.Is(err, context.Canceled) {
				return
			}
			c.setLastError(err)
			c.logger.Error("failed to claim job", logging.Error(err))
			continue
		}

		c.jobs.Add(1)
		go func(job *queue.Job) {
			defer c.jobs.Done()
			defer func() { <-c.slots }()
			c.runJob(ctx, job)
		}(job)
	}
}

func (c *Coordinator) claimJob(ctx context.Context, job *queue.Job) error {
	now := time.Now().UTC()
	job.Status = queue.StatusRunning
	job.StartedAt = &now
	job.LastHeartbeat = &now
	job.ErrorMessage = ""
	job.CurrentStage = ""
	if err := c.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist job claim: %w", err)
	}
	c.setLastJob(job)
	return nil
}

func (c *Coordinator) handleFetchError(ctx context.Context, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	c.setLastError(err)
	c.logger.Error("failed to fetch next job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check job database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(c.retryWait):
	}
}

func (c *Coordinator) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.pollInterval):
	}
}

func (c *Coordinator) setLastError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Coordinator) setLastJob(job *queue.Job) {
	c.mu.Lock()
	if job != nil {
		cp := *job
		c.lastJob = &cp
	} else {
		c.lastJob = nil
	}
	c.mu.Unlock()
}

func (c *Coordinator) registerCancel(jobID int64, cancel context.CancelFunc) {
	c.mu.Lock()
	c.cancels[jobID] = &jobHandle{cancel: cancel}
	c.mu.Unlock()
}

func (c *Coordinator) unregisterCancel(jobID int64) {
	c.mu.Lock()
	delete(c.cancels, jobID)
	c.mu.Unlock()
}

// cancelRequested reports whether CancelJob fired for this job, and why.
func (c *Coordinator) cancelRequested(jobID int64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	handle, ok := c.cancels[jobID]
	if !ok || !handle.requested {
		return "", false
	}
	return handle.reason, true
}
