package store

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/jacentio/docstore/driver/dynamo"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendDynamo = "dynamodb"
)

// Config holds configuration for opening a Handle.
type Config struct {
	// Backend selects the driver: "memory", "sqlite" or "dynamodb".
	// Default: "memory"
	Backend string `env:"BACKEND"`

	// SQLitePath is the database file used by the sqlite backend.
	// Default: "docstore.db"
	SQLitePath string `env:"SQLITE_PATH"`

	// Dynamo configures the dynamodb backend.
	Dynamo dynamo.Config `envPrefix:"DYNAMO_"`

	// LogLevel is the zap level used by the command-line tool.
	// Default: "info"
	LogLevel string `env:"LOG_LEVEL"`
}

// DefaultConfig returns a configuration using the in-memory backend.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendMemory,
		SQLitePath: "docstore.db",
		Dynamo:     dynamo.DefaultConfig(),
		LogLevel:   "info",
	}
}

// ConfigFromEnv loads configuration from DOCSTORE_* environment variables.
// Unset variables keep their DefaultConfig values.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "DOCSTORE_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.validate()
	return cfg, nil
}

// validate fills defaults for unset values.
func (c *Config) validate() {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "docstore.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
