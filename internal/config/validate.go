package config

import (
	"errors"
	"fmt"

	"mirrorvault/internal/pairs"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMirror(); err != nil {
		return err
	}
	if err := c.validateDefaults(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateMirror() error {
	if c.Mirror.Binary == "" {
		return errors.New("mirror.binary must be set")
	}
	if c.Mirror.MaxSleepSliceSeconds < 1 || c.Mirror.MaxSleepSliceSeconds > maxSleepSliceSeconds {
		return fmt.Errorf("mirror.max_sleep_slice_seconds must be between 1 and %d", maxSleepSliceSeconds)
	}
	return nil
}

func (c *Config) validateDefaults() error {
	d := c.Defaults
	if d.CheckIntervalSeconds <= 0 {
		return errors.New("defaults.check_interval_seconds must be positive")
	}
	if d.Threads < pairs.MinThreads || d.Threads > pairs.MaxThreads {
		return fmt.Errorf("defaults.threads must be between %d and %d", pairs.MinThreads, pairs.MaxThreads)
	}
	if d.RetryCount < 0 || d.RetryCount > pairs.MaxRetryCount {
		return fmt.Errorf("defaults.retry_count must be between 0 and %d", pairs.MaxRetryCount)
	}
	if d.RetryWaitSeconds < 0 || d.RetryWaitSeconds > pairs.MaxRetryWaitSeconds {
		return fmt.Errorf("defaults.retry_wait_seconds must be between 0 and %d", pairs.MaxRetryWaitSeconds)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
