package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tasklist/internal/util"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config contains all runtime settings for the task list service.
type Config struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Database        Database      `yaml:"database"`
	Logging         Logging       `yaml:"logging"`
}

type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

func defaults() Config {
	return Config{
		Addr:            ":8080",
		ShutdownTimeout: 5 * time.Second,
		Database:        Database{Driver: DriverSQLite},
		Logging:         Logging{Level: "info", Format: "console", Output: "stdout"},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path and TASKLIST_* environment variables, in that order.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	cfg.Addr = util.EnvOrDefault("TASKLIST_ADDR", cfg.Addr)
	cfg.Database.Driver = util.EnvOrDefault("TASKLIST_DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = util.EnvOrDefault("TASKLIST_DB_DSN", cfg.Database.DSN)
	cfg.Logging.Level = util.EnvOrDefault("TASKLIST_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = util.EnvOrDefault("TASKLIST_LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Output = util.EnvOrDefault("TASKLIST_LOG_OUTPUT", cfg.Logging.Output)

	var err error
	cfg.ShutdownTimeout, err = util.EnvDuration("TASKLIST_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database connection string not configured (set database.dsn or TASKLIST_DB_DSN)")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}
