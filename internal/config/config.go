package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir" env:"VERIFYD_DATA_DIR"`
	LogDir  string `toml:"log_dir" env:"VERIFYD_LOG_DIR"`
	APIBind string `toml:"api_bind" env:"VERIFYD_API_BIND"`
}

// Store contains session store configuration.
type Store struct {
	// SessionTTLHours controls how long a session remains readable before
	// the sweeper removes it. Expired sessions read as not-found even
	// before the sweep runs.
	SessionTTLHours      int `toml:"session_ttl_hours"`
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`
}

// Walrus contains configuration for the content store aggregator.
type Walrus struct {
	BaseURL        string `toml:"base_url" env:"WALRUS_BASE_URL"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Analysis contains configuration for the analysis engine.
type Analysis struct {
	APIKey         string `toml:"api_key" env:"ANALYSIS_API_KEY"`
	BaseURL        string `toml:"base_url" env:"ANALYSIS_BASE_URL"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcription contains configuration for the external transcription step.
type Transcription struct {
	Binary string `toml:"binary"`
	Model  string `toml:"model"`
}

// Copyright contains configuration for fingerprint-based copyright checks.
type Copyright struct {
	APIKey         string `toml:"api_key" env:"ACOUSTID_API_KEY"`
	BaseURL        string `toml:"base_url"`
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Worker contains configuration for the dispatch queue and pipeline budget.
type Worker struct {
	QueueSize             int `toml:"queue_size"`
	EnqueueTimeoutMillis  int `toml:"enqueue_timeout_millis"`
	MaxPipelineSeconds    int `toml:"max_pipeline_seconds"`
	DefaultEstimateSecond int `toml:"default_estimate_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"VERIFYD_LOG_FORMAT"`
	Level  string `toml:"level" env:"VERIFYD_LOG_LEVEL"`
}

// Config encapsulates all configuration values for verifyd.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Store: session TTL and sweep cadence
//   - Walrus: content store aggregator endpoint
//   - Analysis: analysis engine connection settings
//   - Transcription: external transcription binary
//   - Copyright: fingerprint binary and lookup service
//   - Worker: dispatch queue sizing and pipeline ceiling
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Store         Store         `toml:"store"`
	Walrus        Walrus        `toml:"walrus"`
	Analysis      Analysis      `toml:"analysis"`
	Transcription Transcription `toml:"transcription"`
	Copyright     Copyright     `toml:"copyright"`
	Worker        Worker        `toml:"worker"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/verifyd/config.toml")
}

// Load locates, parses, and validates a configuration file. Environment
// variables override file values. The returned config has all path fields
// expanded and normalized.
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

	if err := env.Parse(&cfg); err != nil {
		return nil, "", false, fmt.Errorf("apply env overrides: %w", err)
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
	if _, err := os.Stat(defaultPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaultPath, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return defaultPath, true, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Walrus.BaseURL = strings.TrimRight(strings.TrimSpace(c.Walrus.BaseURL), "/")
	c.Analysis.BaseURL = strings.TrimRight(strings.TrimSpace(c.Analysis.BaseURL), "/")
	c.Analysis.APIKey = strings.TrimSpace(c.Analysis.APIKey)
	c.Copyright.BaseURL = strings.TrimRight(strings.TrimSpace(c.Copyright.BaseURL), "/")
	c.Copyright.APIKey = strings.TrimSpace(c.Copyright.APIKey)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// EnsureDirectories creates the directories verifyd writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// WriteSample writes the sample configuration to the given path, refusing to
// overwrite an existing file.
func WriteSample(path string) (string, error) {
	expanded, err := expandPath(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(expanded); err == nil {
		return "", fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return "", fmt.Errorf("write sample config: %w", err)
	}
	return expanded, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", trimmed, err)
	}
	return abs, nil
}
