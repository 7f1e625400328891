package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDetection() error {
	if c.Detection.MinConfidence < 0 || c.Detection.MinConfidence > 100 {
		return errors.New("detection.min_confidence must be between 0 and 100")
	}
	if c.Detection.TimeoutSeconds <= 0 {
		return errors.New("detection.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.MaxEntries <= 0 {
		return errors.New("cache.max_entries must be positive")
	}
	if c.Cache.TTLHours <= 0 {
		return errors.New("cache.ttl_hours must be positive")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.FontSize < 0 {
		return errors.New("render.font_size must be zero or positive")
	}
	if c.Render.EraseMargin < 0 {
		return errors.New("render.erase_margin must be zero or positive")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 64 {
		return errors.New("batch.max_concurrent must be between 1 and 64")
	}
	if c.Batch.SubBatchSize < 1 {
		return errors.New("batch.sub_batch_size must be at least 1")
	}
	if c.Batch.CleanupThreshold < 1 {
		return errors.New("batch.cleanup_threshold must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
