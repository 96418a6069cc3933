package testsupport

import (
	"path/filepath"
	"testing"

	"loom/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Workflow.JobPollInterval = 1
	cfgVal.Workflow.HeartbeatInterval = 1
	cfgVal.Workflow.HeartbeatTimeout = 3

	// Keep dependency calls unthrottled so tests never sleep on admission.
	for name, dep := range cfgVal.Dependencies {
		dep.Rate = 1000
		dep.Burst = 1000
		dep.MaxWaitMS = 100
		dep.APIKey = "test"
		cfgVal.Dependencies[name] = dep
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDependency replaces the settings of one dependency on the test config.
func WithDependency(name string, dep config.Dependency) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dependencies[name] = dep
	}
}

// WithPipeline replaces the stage pipeline on the test config.
func WithPipeline(stages ...config.StageSpec) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Stages = stages
	}
}

// WithConfig applies an arbitrary mutation to the test config.
func WithConfig(mutate func(*config.Config)) ConfigOption {
	return func(b *configBuilder) {
		mutate(b.cfg)
	}
}

// WithRetry replaces the global retry settings on the test config.
func WithRetry(retry config.Retry) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Retry = retry
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
