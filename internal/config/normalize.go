package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDependencies()
	c.normalizeLogging()
	c.normalizeWorkflow()
	c.normalizeRetry()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("LOOM_API_TOKEN"); ok {
			c.Paths.APIToken = value
		}
	}
	return nil
}

func (c *Config) normalizeDependencies() {
	for name, dep := range c.Dependencies {
		if dep.APIKey == "" {
			if value, ok := os.LookupEnv(apiKeyEnvVar(name)); ok {
				dep.APIKey = value
			}
		}
		dep.BaseURL = strings.TrimRight(strings.TrimSpace(dep.BaseURL), "/")
		if dep.MaxWaitMS < 0 {
			dep.MaxWaitMS = 0
		}
		c.Dependencies[name] = dep
	}
}

// apiKeyEnvVar maps a dependency name to its API key environment variable,
// e.g. "youtube-api" resolves to YOUTUBE_API_KEY.
func apiKeyEnvVar(name string) string {
	trimmed := strings.TrimSuffix(strings.TrimSpace(name), "-api")
	upper := strings.ToUpper(strings.ReplaceAll(trimmed, "-", "_"))
	return upper + "_API_KEY"
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.JobPollInterval <= 0 {
		c.Workflow.JobPollInterval = defaultJobPollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.MaxConcurrentJobs <= 0 {
		c.Workflow.MaxConcurrentJobs = defaultMaxConcurrentJobs
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = defaultRetryAttempts
	}
	if c.Retry.BaseBackoffMS <= 0 {
		c.Retry.BaseBackoffMS = defaultBaseBackoffMS
	}
	if c.Retry.MaxBackoffMS <= 0 {
		c.Retry.MaxBackoffMS = defaultMaxBackoffMS
	}
}
