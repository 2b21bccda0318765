// Package config provides configuration loading and structs for the
// agrafes sidecar and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Query     QueryConfig     `yaml:"query"`
	Alignment AlignmentConfig `yaml:"alignment"`
	Job       JobConfig       `yaml:"job"`
}

// ServerConfig holds the sidecar's HTTP listener and auth settings (§4.J).
type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	TokenMode string `yaml:"token_mode"`
}

// StorageConfig holds paths for the database, FTS index, and run-log directory.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	IndexPath    string `yaml:"index_path"`
	RunsDir      string `yaml:"runs_dir"`
}

// IngestConfig holds defaults applied to import/segment requests that
// don't specify a value explicitly.
type IngestConfig struct {
	DefaultFormat string `yaml:"default_format"`
	DefaultRole   string `yaml:"default_role"`
}

// QueryConfig holds defaults for §4.E query requests.
type QueryConfig struct {
	DefaultLimit  int `yaml:"default_limit"`
	MaxLimit      int `yaml:"max_limit"`
	DefaultWindow int `yaml:"default_window"`
}

// AlignmentConfig holds defaults for §4.F alignment runs.
type AlignmentConfig struct {
	DefaultStrategy     string  `yaml:"default_strategy"`
	DefaultSimThreshold float64 `yaml:"default_sim_threshold"`
}

// JobConfig holds the job runtime's retention policy (§4.I).
type JobConfig struct {
	RetentionCount int `yaml:"retention_count"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	cfg.Storage.RunsDir = expandPath(cfg.Storage.RunsDir, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
