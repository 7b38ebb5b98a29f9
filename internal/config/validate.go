package config

import (
	"errors"
	"fmt"
	"time"
)

// Valid log levels and formats.
var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"auto": true, "text": true, "json": true}
)

// Validate checks a Config for values that cannot possibly work. It does
// not touch the filesystem; whether BaseDir exists is checked at startup
// when the resolver is built.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.BaseDir == "" {
		errs = append(errs, errors.New("base_dir must not be empty"))
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range 1-65535", cfg.Port))
	}

	if cfg.Engine.Workers < 0 {
		errs = append(errs, fmt.Errorf("engine.workers must not be negative, got %d", cfg.Engine.Workers))
	}

	if cfg.Engine.QueueCapacity < 0 {
		errs = append(errs, fmt.Errorf("engine.queue_capacity must not be negative, got %d", cfg.Engine.QueueCapacity))
	}

	if cfg.Engine.TaskTTL != "" {
		if _, err := time.ParseDuration(cfg.Engine.TaskTTL); err != nil {
			errs = append(errs, fmt.Errorf("engine.task_ttl: %w", err))
		}
	}

	if !validLogLevels[cfg.Logging.LogLevel] {
		errs = append(errs, fmt.Errorf("logging.log_level %q not one of debug, info, warn, error", cfg.Logging.LogLevel))
	}

	if !validLogFormats[cfg.Logging.LogFormat] {
		errs = append(errs, fmt.Errorf("logging.log_format %q not one of auto, text, json", cfg.Logging.LogFormat))
	}

	return errors.Join(errs...)
}

// TaskTTLDuration parses the configured task TTL, falling back to the
// default when empty.
func (c *Config) TaskTTLDuration() time.Duration {
	raw := c.Engine.TaskTTL
	if raw == "" {
		raw = defaultTaskTTL
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		d, _ = time.ParseDuration(defaultTaskTTL)
	}

	return d
}
