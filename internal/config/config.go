// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/tgienger/taskflow/internal/db"
)

// Config is the process configuration. Empty paths fall back to the XDG data
// directory.
type Config struct {
	DBPath       string `env:"TASKFLOW_DB"`
	BlobDir      string `env:"TASKFLOW_BLOB_DIR"`
	LogLevel     string `env:"TASKFLOW_LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"TASKFLOW_LOG_FORMAT" envDefault:"text"`
	AuditPolicy  string `env:"TASKFLOW_AUDIT_POLICY" envDefault:"uniform"`
	OTelEndpoint string `env:"TASKFLOW_OTEL_ENDPOINT"`
	Actor        int64  `env:"TASKFLOW_ACTOR"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment and fills in default storage paths.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.DBPath == "" || cfg.BlobDir == "" {
		dir, err := db.DataDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve data dir: %w", err)
		}
		if cfg.DBPath == "" {
			cfg.DBPath = filepath.Join(dir, "taskflow.db")
		}
		if cfg.BlobDir == "" {
			cfg.BlobDir = filepath.Join(dir, "blobs")
		}
	}
	return cfg, nil
}

// Exitf writes a formatted error message to stderr and exits with code.
func Exitf(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}
