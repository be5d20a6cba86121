package config

import (
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/vdye/commitview/internal/storage"
)

// Config is the top-level configuration
type Config struct {
	Repository RepositoryConfig `yaml:"repository"`
	Log        LogConfig        `yaml:"log"`
	Gremlin    GremlinConfig    `yaml:"gremlin"`
}

// RepositoryConfig selects the repository and how its objects are stored
type RepositoryConfig struct {
	Path         string `yaml:"path"`
	Backend      string `yaml:"backend"`
	CacheSizeMiB int    `yaml:"cacheSizeMiB"`
}

// LogConfig controls logging. An empty File logs to stderr.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// GremlinConfig points at the server used by export-graph
type GremlinConfig struct {
	URL string `yaml:"url"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Repository: RepositoryConfig{
			Path:    ".",
			Backend: string(storage.BackendFilesystem),
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  1,
			MaxBackups: 2,
			MaxAgeDays: 30,
		},
		Gremlin: GremlinConfig{
			URL: "ws://localhost:8182/gremlin",
		},
	}
}

// Load reads the configuration at path on top of the defaults. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.WithField("path", path).Debug("no config file, using defaults")
		return cfg, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from COMMITVIEW_* environment variables
func (c *Config) ApplyEnv() {
	if v := os.Getenv("COMMITVIEW_REPO"); v != "" {
		c.Repository.Path = v
	}
	if v := os.Getenv("COMMITVIEW_BACKEND"); v != "" {
		c.Repository.Backend = v
	}
	if v := os.Getenv("COMMITVIEW_CACHE_SIZE_MIB"); v != "" {
		if size, err := strconv.Atoi(v); err == nil && size >= 0 {
			c.Repository.CacheSizeMiB = size
		}
	}
	if v := os.Getenv("COMMITVIEW_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("COMMITVIEW_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("COMMITVIEW_GREMLIN_URL"); v != "" {
		c.Gremlin.URL = v
	}
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	if _, err := storage.ParseBackend(c.Repository.Backend); err != nil {
		return err
	}
	if c.Repository.CacheSizeMiB < 0 {
		return fmt.Errorf("cacheSizeMiB must not be negative")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// StorageOptions converts the repository section for storage.Open
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:      storage.Backend(c.Repository.Backend),
		Path:         c.Repository.Path,
		CacheSizeMiB: c.Repository.CacheSizeMiB,
	}
}
