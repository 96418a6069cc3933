package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loom/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if len(cfg.Pipeline.Stages) == 0 {
		t.Fatal("default pipeline must declare stages")
	}
	for _, stage := range cfg.Pipeline.Stages {
		if _, ok := cfg.Dependencies[stage.Dependency]; !ok {
			t.Fatalf("stage %q references unknown dependency %q", stage.Name, stage.Dependency)
		}
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatalf("expected missing config, got exists for %s", resolved)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7319" {
		t.Fatalf("unexpected api bind: %s", cfg.Paths.APIBind)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Fatalf("unexpected default max attempts: %d", cfg.Retry.MaxAttempts)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[retry]
max_attempts = 5
base_backoff_ms = 100
max_backoff_ms = 1000

[dependencies.youtube-api]
rate = 1.0
burst = 3.0
failure_threshold = 2
open_duration_ms = 500

[dependencies.youtube-api.retry]
max_attempts = 7
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	dep := cfg.Dependencies["youtube-api"]
	if dep.Burst != 3.0 {
		t.Fatalf("expected burst override 3.0, got %v", dep.Burst)
	}
	policy := cfg.RetryFor("youtube-api")
	if policy.MaxAttempts != 7 {
		t.Fatalf("expected per-dependency max attempts 7, got %d", policy.MaxAttempts)
	}
	if policy.BaseBackoffMS != 100 {
		t.Fatalf("expected fallback base backoff 100, got %d", policy.BaseBackoffMS)
	}
}

func TestValidateRejectsZeroBurst(t *testing.T) {
	cfg := config.Default()
	dep := cfg.Dependencies[config.DepYouTube]
	dep.Burst = 0
	cfg.Dependencies[config.DepYouTube] = dep
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for zero burst")
	}
	if !strings.Contains(err.Error(), "burst") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsNonPositiveWorkflowIntervals(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"heartbeat", func(c *config.Config) { c.Workflow.HeartbeatInterval = 0 }, "heartbeat_interval"},
		{"poll", func(c *config.Config) { c.Workflow.JobPollInterval = 0 }, "job_poll_interval"},
		{"error retry", func(c *config.Config) { c.Workflow.ErrorRetryInterval = -1 }, "error_retry_interval"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateRejectsUnknownStageDependency(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.Stages = append(cfg.Pipeline.Stages, config.StageSpec{
		Name:       "publish",
		Dependency: "unknown-api",
		Operation:  "noop",
	})
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown dependency")
	}
}

func TestAPIKeyEnvFallback(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "from-env")
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.Dependencies[config.DepYouTube].APIKey; got != "from-env" {
		t.Fatalf("expected env api key, got %q", got)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error when config already exists")
	}
}
