// Package daemonrun assembles and runs the loom daemon process: logger, job
// store, dependency registry, coordinator, notification relay, and the IPC
// and HTTP control surfaces.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"loom/internal/breaker"
	"loom/internal/config"
	"loom/internal/daemon"
	"loom/internal/events"
	"loom/internal/ipc"
	"loom/internal/logging"
	"loom/internal/metrics"
	"loom/internal/operations"
	"loom/internal/orchestrator"
	"loom/internal/queue"
	"loom/internal/registry"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the loom daemon runtime loop and blocks until the context is
// cancelled or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", cfg.LogPath()},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.DataDir, "loomd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}
	defer store.Close()

	bus := events.NewBus()
	deps, err := registry.New(cfg, metrics.NewCollector(), func(dependency string, from, to breaker.State) {
		logger.Info("circuit state changed",
			logging.String(logging.FieldEventType, "breaker_transition"),
			logging.String(logging.FieldDependency, dependency),
			logging.String("from", from.String()),
			logging.String("to", to.String()))
		bus.Publish(events.BreakerChanged(dependency, from.String(), to.String()))
	})
	if err != nil {
		return fmt.Errorf("build dependency registry: %w", err)
	}

	ops := operations.NewRegistry(cfg)
	coord, err := orchestrator.New(cfg, store, deps, ops, bus, logger)
	if err != nil {
		return fmt.Errorf("build coordinator: %w", err)
	}

	d, err := daemon.New(cfg, store, logger, coord, deps, bus)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and job database access"))
	}

	<-signalCtx.Done()
	logger.Info("loom daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
