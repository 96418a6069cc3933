package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Workflow contains daemon timing and concurrency settings.
type Workflow struct {
	JobPollInterval    int `toml:"job_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
	MaxConcurrentJobs  int `toml:"max_concurrent_jobs"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Jobs           bool   `toml:"jobs"`
	Errors         bool   `toml:"errors"`
	Breaker        bool   `toml:"breaker"`
}

// Retry describes a retry policy for calls against a dependency.
type Retry struct {
	MaxAttempts   int `toml:"max_attempts"`
	BaseBackoffMS int `toml:"base_backoff_ms"`
	MaxBackoffMS  int `toml:"max_backoff_ms"`
}

// BaseBackoff returns the configured base backoff as a duration.
func (r Retry) BaseBackoff() time.Duration {
	return time.Duration(r.BaseBackoffMS) * time.Millisecond
}

// MaxBackoff returns the configured backoff cap as a duration.
func (r Retry) MaxBackoff() time.Duration {
	return time.Duration(r.MaxBackoffMS) * time.Millisecond
}

// Dependency describes one external service and its resilience settings.
// Rate/Burst feed the token bucket, FailureThreshold/OpenDurationMS feed the
// circuit breaker, and Retry overrides the top-level retry policy when set.
type Dependency struct {
	Rate             float64 `toml:"rate"`
	Burst            float64 `toml:"burst"`
	MaxWaitMS        int     `toml:"max_wait_ms"`
	FailureThreshold int     `toml:"failure_threshold"`
	OpenDurationMS   int     `toml:"open_duration_ms"`
	Retry            Retry   `toml:"retry"`

	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// MaxWait returns the token admission wait budget as a duration.
func (d Dependency) MaxWait() time.Duration {
	return time.Duration(d.MaxWaitMS) * time.Millisecond
}

// OpenDuration returns the breaker open window as a duration.
func (d Dependency) OpenDuration() time.Duration {
	return time.Duration(d.OpenDurationMS) * time.Millisecond
}

// Timeout returns the per-request HTTP timeout as a duration.
func (d Dependency) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// StageSpec declares one pipeline stage bound to a dependency and operation.
// Stages sharing a non-empty Group run concurrently with each other.
type StageSpec struct {
	Name       string `toml:"name"`
	Dependency string `toml:"dependency"`
	Operation  string `toml:"operation"`
	Required   bool   `toml:"required"`
	Group      string `toml:"group"`
}

// Pipeline declares the ordered stage list applied to every submitted job.
type Pipeline struct {
	Stages []StageSpec `toml:"stages"`
}

// Config encapsulates all configuration values for loom.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Workflow: daemon polling intervals, heartbeats, job concurrency
//   - Logging: log format and level
//   - Notifications: ntfy push notification settings
//   - Retry: default retry policy applied when a dependency sets none
//   - Dependencies: per-service rate limit, breaker, and client settings
//   - Pipeline: ordered stage declarations applied to submitted jobs
type Config struct {
	Paths         Paths                 `toml:"paths"`
	Workflow      Workflow              `toml:"workflow"`
	Logging       Logging               `toml:"logging"`
	Notifications Notifications         `toml:"notifications"`
	Retry         Retry                 `toml:"retry"`
	Dependencies  map[string]Dependency `toml:"dependencies"`
	Pipeline      Pipeline              `toml:"pipeline"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/loom/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("loom.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.ArtifactDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the path of the sqlite job database.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// SocketPath returns the unix socket path used for CLI/daemon IPC.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "loomd.sock")
}

// LockPath returns the daemon single-instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "loomd.lock")
}

// ArtifactDir returns the directory where stage artifacts are stored.
func (c *Config) ArtifactDir() string {
	return filepath.Join(c.Paths.DataDir, "artifacts")
}

// LogPath returns the daemon log file path.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "loom.log")
}

// DependencyNames returns configured dependency names in stable order.
func (c *Config) DependencyNames() []string {
	names := make([]string, 0, len(c.Dependencies))
	for name := range c.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RetryFor returns the effective retry policy for a dependency, falling back
// to the top-level policy for unset fields.
func (c *Config) RetryFor(name string) Retry {
	policy := c.Retry
	dep, ok := c.Dependencies[name]
	if !ok {
		return policy
	}
	if dep.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = dep.Retry.MaxAttempts
	}
	if dep.Retry.BaseBackoffMS > 0 {
		policy.BaseBackoffMS = dep.Retry.BaseBackoffMS
	}
	if dep.Retry.MaxBackoffMS > 0 {
		policy.MaxBackoffMS = dep.Retry.MaxBackoffMS
	}
	return policy
}

// ExpandPath resolves ~ prefixes and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// WriteSample writes the sample configuration to the provided path, refusing
// to overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
