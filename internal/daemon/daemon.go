package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"log/slog"

	"loom/internal/api"
	"loom/internal/config"
	"loom/internal/events"
	"loom/internal/logging"
	"loom/internal/notifications"
	"loom/internal/orchestrator"
	"loom/internal/queue"
	"loom/internal/registry"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *queue.Store
	coordinator *orchestrator.Coordinator
	deps        *registry.Registry
	bus         *events.Bus
	relay       *notifications.Relay
	jobSvc      *api.JobService
	server      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	QueueDBPath  string
	LockFilePath string
	Orchestrator orchestrator.StatusSummary
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, coord *orchestrator.Coordinator, deps *registry.Registry, bus *events.Bus) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || coord == nil || deps == nil {
		return nil, errors.New("daemon requires config, store, logger, coordinator, and registry")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		coordinator: coord,
		deps:        deps,
		bus:         bus,
		relay:       notifications.NewRelay(cfg, bus, logger),
		jobSvc:      api.NewJobService(store),
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}

	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.server = server
	return d, nil
}

// Start acquires the daemon lock and launches background services. Jobs left
// running by a previous process are returned to pending before the
// coordinator begins polling.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another loom daemon instance is already running")
	}

	daemonCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if reset, err := d.store.ResetRunning(daemonCtx); err != nil {
		d.logger.Warn("failed to reset interrupted jobs", logging.Error(err))
	} else if reset > 0 {
		d.logger.Info("requeued interrupted jobs", logging.Int64("count", reset))
	}

	if err := d.relay.Start(daemonCtx); err != nil {
		d.logger.Warn("notification relay unavailable", logging.Error(err))
	}

	if err := d.coordinator.Start(daemonCtx); err != nil {
		d.relay.Stop()
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start coordinator: %w", err)
	}

	if err := d.server.start(daemonCtx); err != nil {
		d.coordinator.Stop()
		d.relay.Stop()
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("loom daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	d.coordinator.Stop()
	d.relay.Stop()

	if reset, err := d.store.ResetRunning(context.Background()); err != nil {
		d.logger.Warn("failed to requeue running jobs on shutdown", logging.Error(err))
	} else if reset > 0 {
		d.logger.Info("requeued running jobs for next start", logging.Int64("count", reset))
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("loom daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	if d.bus != nil {
		d.bus.Close()
	}
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr reports the bound HTTP API address, or empty when the API server
// is disabled or not yet started.
func (d *Daemon) APIAddr() string {
	return d.server.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.cfg.QueueDBPath(),
		LockFilePath: d.lockPath,
		Orchestrator: d.coordinator.Status(ctx),
	}
}

// Submit enqueues a video for analysis, deduplicating active jobs.
func (d *Daemon) Submit(ctx context.Context, videoID, sourceURL string) (api.Job, bool, error) {
	return d.jobSvc.Submit(ctx, api.SubmitRequest{VideoID: videoID, SourceURL: sourceURL})
}

// DescribeJob returns one job with its stage results, or nil when absent.
func (d *Daemon) DescribeJob(ctx context.Context, id int64) (*api.Job, error) {
	return d.jobSvc.Describe(ctx, id)
}

// ListJobs returns jobs filtered by optional statuses.
func (d *Daemon) ListJobs(ctx context.Context, statuses []queue.Status) ([]*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("job store unavailable")
	}
	return d.store.List(ctx, statuses...)
}

// CancelJob requests cancellation of a pending or running job.
func (d *Daemon) CancelJob(ctx context.Context, id int64, reason string) (bool, error) {
	if d.coordinator == nil {
		return false, errors.New("coordinator unavailable")
	}
	return d.coordinator.CancelJob(ctx, id, reason)
}

// ClearJobs removes all jobs.
func (d *Daemon) ClearJobs(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("job store unavailable")
	}
	return d.store.Clear(ctx)
}

// ClearCompleted removes completed and cancelled jobs.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("job store unavailable")
	}
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes failed and partially failed jobs.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("job store unavailable")
	}
	return d.store.ClearFailed(ctx)
}

// RetryFailed resets failed jobs (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	if d.store == nil {
		return 0, errors.New("job store unavailable")
	}
	return d.store.RetryFailed(ctx, ids...)
}

// JobHealth returns aggregate queue diagnostics.
func (d *Daemon) JobHealth(ctx context.Context) (queue.HealthSummary, error) {
	if d.store == nil {
		return queue.HealthSummary{}, errors.New("job store unavailable")
	}
	return d.store.Health(ctx)
}

// DependencySnapshot reports per-dependency resilience state.
func (d *Daemon) DependencySnapshot() []registry.State {
	if d.deps == nil {
		return nil
	}
	return d.deps.Snapshot()
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.cfg.LogPath()
}
