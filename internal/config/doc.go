// Package config loads, normalizes, and validates loom configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// YOUTUBE_API_KEY and LOOM_API_TOKEN. The Config type centralizes every knob
// the daemon and CLI need: per-dependency rate limits and breaker thresholds,
// retry policies, pipeline stage declarations, and daemon timing.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
