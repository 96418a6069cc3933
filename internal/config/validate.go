package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDependencies(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateRetry("retry", c.Retry); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDependencies() error {
	if len(c.Dependencies) == 0 {
		return errors.New("at least one dependency must be configured")
	}
	for name, dep := range c.Dependencies {
		if strings.TrimSpace(name) == "" {
			return errors.New("dependency name must not be empty")
		}
		if dep.Rate <= 0 {
			return fmt.Errorf("dependencies.%s.rate must be positive", name)
		}
		if dep.Burst <= 0 {
			return fmt.Errorf("dependencies.%s.burst must be positive", name)
		}
		if dep.MaxWaitMS < 0 {
			return fmt.Errorf("dependencies.%s.max_wait_ms must not be negative", name)
		}
		if dep.FailureThreshold <= 0 {
			return fmt.Errorf("dependencies.%s.failure_threshold must be positive", name)
		}
		if dep.OpenDurationMS <= 0 {
			return fmt.Errorf("dependencies.%s.open_duration_ms must be positive", name)
		}
		if dep.Retry != (Retry{}) {
			if err := c.validateRetry(fmt.Sprintf("dependencies.%s.retry", name), c.RetryFor(name)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if len(c.Pipeline.Stages) == 0 {
		return errors.New("pipeline.stages must declare at least one stage")
	}
	seen := make(map[string]struct{}, len(c.Pipeline.Stages))
	for i, stage := range c.Pipeline.Stages {
		if strings.TrimSpace(stage.Name) == "" {
			return fmt.Errorf("pipeline.stages[%d].name must be set", i)
		}
		if _, dup := seen[stage.Name]; dup {
			return fmt.Errorf("pipeline stage %q declared more than once", stage.Name)
		}
		seen[stage.Name] = struct{}{}
		if strings.TrimSpace(stage.Operation) == "" {
			return fmt.Errorf("pipeline stage %q requires an operation", stage.Name)
		}
		if _, ok := c.Dependencies[stage.Dependency]; !ok {
			return fmt.Errorf("pipeline stage %q references unknown dependency %q", stage.Name, stage.Dependency)
		}
	}
	return nil
}

func (c *Config) validateRetry(section string, policy Retry) error {
	if policy.MaxAttempts <= 0 {
		return fmt.Errorf("%s.max_attempts must be positive", section)
	}
	if policy.BaseBackoffMS <= 0 {
		return fmt.Errorf("%s.base_backoff_ms must be positive", section)
	}
	if policy.MaxBackoffMS < policy.BaseBackoffMS {
		return fmt.Errorf("%s.max_backoff_ms must not be below base_backoff_ms", section)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.JobPollInterval <= 0 {
		return errors.New("workflow.job_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout > 0 && c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must exceed heartbeat_interval")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
