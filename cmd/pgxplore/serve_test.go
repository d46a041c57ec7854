package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pgxplore "github.com/pgxplore/pgxplore"
	"github.com/rs/zerolog"
)

// validServerConfig returns a minimal valid ServerConfig for testing.
func validServerConfig() pgxplore.ServerConfig {
	return pgxplore.ServerConfig{
		Config: pgxplore.Config{
			Pool: pgxplore.PoolConfig{MaxConns: 5},
			Query: pgxplore.QueryConfig{
				DefaultTimeoutSeconds: 30,
				InspectTimeoutSeconds: 10,
			},
		},
		Server: pgxplore.ServerSettings{
			Transport: "http",
			Port:      8080,
		},
		Connection: pgxplore.ConnectionConfig{
			Host:   "localhost",
			Port:   5432,
			DBName: "testdb",
		},
	}
}

func writeConfigFile(t *testing.T, dir string, config pgxplore.ServerConfig) string {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal config: %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// Note: Tests using t.Setenv() cannot use t.Parallel() in Go.

func TestLoadConfigValid(t *testing.T) {
	dir := t.TempDir()
	cfg := validServerConfig()
	path := writeConfigFile(t, dir, cfg)

	t.Setenv("PGXPLORE_CONFIG_PATH", path)

	loaded, err := loadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Server.Transport != "http" {
		t.Fatalf("expected transport 'http', got %q", loaded.Server.Transport)
	}
	if loaded.Server.Port != 8080 {
		t.Fatalf("expected port 8080, got %d", loaded.Server.Port)
	}
	if loaded.Pool.MaxConns != 5 {
		t.Fatalf("expected max_conns 5, got %d", loaded.Pool.MaxConns)
	}
	if loaded.Query.DefaultTimeoutSeconds != 30 {
		t.Fatalf("expected default_timeout_seconds 30, got %d", loaded.Query.DefaultTimeoutSeconds)
	}
	if loaded.Connection.Host != "localhost" {
		t.Fatalf("expected host 'localhost', got %q", loaded.Connection.Host)
	}
	if loaded.Connection.DBName != "testdb" {
		t.Fatalf("expected dbname 'testdb', got %q", loaded.Connection.DBName)
	}
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	dir := t.TempDir()
	cfg := validServerConfig()
	cfg.Server.Port = 9999
	path := writeConfigFile(t, dir, cfg)

	t.Setenv("PGXPLORE_CONFIG_PATH", path)

	loaded, err := loadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Server.Port != 9999 {
		t.Fatalf("expected port 9999 from env path, got %d", loaded.Server.Port)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	t.Setenv("PGXPLORE_CONFIG_PATH", "/nonexistent/path/config.json")

	_, err := loadServerConfig()
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "/nonexistent/path/config.json") {
		t.Fatalf("expected error to contain config path, got %q", err.Error())
	}
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{invalid json}"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	t.Setenv("PGXPLORE_CONFIG_PATH", path)

	_, err := loadServerConfig()
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	errMsg := err.Error()
	if !strings.Contains(errMsg, "parse") && !strings.Contains(errMsg, "unmarshal") && !strings.Contains(errMsg, "invalid") {
		t.Fatalf("expected parse/unmarshal/invalid error, got %q", errMsg)
	}
}

func TestBuildConnString(t *testing.T) {
	t.Parallel()
	conn := pgxplore.ConnectionConfig{
		Host:    "db.example.com",
		Port:    5433,
		DBName:  "appdb",
		SSLMode: "require",
	}

	got := buildConnString(conn, "alice", "s3cret")

	want := "host=db.example.com port=5433 dbname=appdb user=alice password=s3cret sslmode=require"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestBuildConnStringSkipsEmptyFields(t *testing.T) {
	t.Parallel()
	conn := pgxplore.ConnectionConfig{
		DBName: "appdb",
	}

	got := buildConnString(conn, "", "")

	if got != "dbname=appdb" {
		t.Fatalf("expected only dbname, got %q", got)
	}
}

func TestSetupLoggerLevels(t *testing.T) {
	t.Parallel()
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		logger := setupLogger(pgxplore.LoggingConfig{Level: tt.level}, false)
		if logger.GetLevel() != tt.want {
			t.Fatalf("level %q: expected %v, got %v", tt.level, tt.want, logger.GetLevel())
		}
	}
}

func TestSetupLoggerStdioNeverUsesStdout(t *testing.T) {
	t.Parallel()
	// Building the logger must not panic even when stdout is requested in
	// stdio mode; the output silently falls back to stderr.
	logger := setupLogger(pgxplore.LoggingConfig{Output: "stdout"}, true)
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %v", logger.GetLevel())
	}
}
