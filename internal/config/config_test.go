package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFailsWithoutConnectionString(t *testing.T) {
	setEnvEmpty(t)

	_, err := Load("")
	if err == nil {
		t.Fatalf("Load() succeeded without a connection string")
	}
	if !strings.Contains(err.Error(), "connection string") {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestLoadDefaultsWithEnvDSN(t *testing.T) {
	setEnvEmpty(t)
	t.Setenv("TASKLIST_DB_DSN", "data/tasks.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Fatalf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Fatalf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	setEnvEmpty(t)
	path := filepath.Join(t.TempDir(), "tasklist.yaml")
	content := `
addr: ":9000"
shutdown_timeout: 10s
database:
  driver: Postgres
  dsn: postgres://localhost/tasks
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TASKLIST_ADDR", ":9191")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":9191" {
		t.Fatalf("Addr = %q, want env override", cfg.Addr)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Fatalf("Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "postgres://localhost/tasks" {
		t.Fatalf("DSN = %q", cfg.Database.DSN)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" || cfg.Logging.Output != "stdout" {
		t.Fatalf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "driver", env: map[string]string{"TASKLIST_DB_DSN": "x", "TASKLIST_DB_DRIVER": "oracle"}},
		{name: "timeout", env: map[string]string{"TASKLIST_DB_DSN": "x", "TASKLIST_SHUTDOWN_TIMEOUT": "soon"}},
		{name: "non-positive timeout", env: map[string]string{"TASKLIST_DB_DSN": "x", "TASKLIST_SHUTDOWN_TIMEOUT": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvEmpty(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Fatalf("Load() succeeded, want error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	setEnvEmpty(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("Load() succeeded for missing file")
	}
}

func setEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"TASKLIST_ADDR",
		"TASKLIST_DB_DRIVER",
		"TASKLIST_DB_DSN",
		"TASKLIST_LOG_LEVEL",
		"TASKLIST_LOG_FORMAT",
		"TASKLIST_LOG_OUTPUT",
		"TASKLIST_SHUTDOWN_TIMEOUT",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
