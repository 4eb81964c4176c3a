package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateWalrus(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateCopyright(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.APIBind == "" {
		return errors.New("paths.api_bind must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind must be host:port: %w", err)
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.SessionTTLHours <= 0 {
		return errors.New("store.session_ttl_hours must be positive")
	}
	if c.Store.SweepIntervalSeconds <= 0 {
		return errors.New("store.sweep_interval_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWalrus() error {
	if c.Walrus.BaseURL == "" {
		return errors.New("walrus.base_url must be set")
	}
	if !strings.HasPrefix(c.Walrus.BaseURL, "http://") && !strings.HasPrefix(c.Walrus.BaseURL, "https://") {
		return fmt.Errorf("walrus.base_url must be an http(s) URL, got %q", c.Walrus.BaseURL)
	}
	if c.Walrus.TimeoutSeconds <= 0 {
		return errors.New("walrus.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.BaseURL == "" {
		return errors.New("analysis.base_url must be set")
	}
	if c.Analysis.Model == "" {
		return errors.New("analysis.model must be set")
	}
	if c.Analysis.TimeoutSeconds <= 0 {
		return errors.New("analysis.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateCopyright() error {
	if c.Copyright.BaseURL == "" {
		return errors.New("copyright.base_url must be set")
	}
	if !strings.HasPrefix(c.Copyright.BaseURL, "http://") && !strings.HasPrefix(c.Copyright.BaseURL, "https://") {
		return fmt.Errorf("copyright.base_url must be an http(s) URL, got %q", c.Copyright.BaseURL)
	}
	if c.Copyright.TimeoutSeconds <= 0 {
		return errors.New("copyright.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.QueueSize <= 0 {
		return errors.New("worker.queue_size must be positive")
	}
	if c.Worker.EnqueueTimeoutMillis <= 0 {
		return errors.New("worker.enqueue_timeout_millis must be positive")
	}
	if c.Worker.MaxPipelineSeconds <= 0 {
		return errors.New("worker.max_pipeline_seconds must be positive")
	}
	if c.Worker.DefaultEstimateSecond <= 0 {
		return errors.New("worker.default_estimate_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
