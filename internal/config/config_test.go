package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != "stdio" {
		t.Errorf("Expected default mode to be 'stdio', got '%s'", cfg.Mode)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected default host to be '127.0.0.1', got '%s'", cfg.Host)
	}

	if cfg.Port != 8080 {
		t.Errorf("Expected default port to be 8080, got %d", cfg.Port)
	}

	if cfg.ServerName != "prquotes" {
		t.Errorf("Expected default server name to be 'prquotes', got '%s'", cfg.ServerName)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level to be 'info', got '%s'", cfg.LogLevel)
	}

	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("Expected default max file size to be 100MB, got %d", cfg.MaxFileSize)
	}

	if cfg.ParseTimeout != 30*time.Second {
		t.Errorf("Expected default parse timeout to be 30s, got %s", cfg.ParseTimeout)
	}

	if cfg.DatabaseDSN != "" {
		t.Errorf("Expected database to be disabled by default, got '%s'", cfg.DatabaseDSN)
	}

	currentDir, _ := os.Getwd()
	if cfg.UploadDirectory != currentDir {
		t.Errorf("Expected default upload directory to be '%s', got '%s'", currentDir, cfg.UploadDirectory)
	}
}

func validTestConfig(t *testing.T) *Config {
	t.Helper()

	cfg := DefaultConfig()
	cfg.UploadDirectory = t.TempDir()
	cfg.ImagesDirectory = filepath.Join(cfg.UploadDirectory, "pdf-images")
	cfg.TombstoneDirectory = filepath.Join(cfg.ImagesDirectory, "hash-images")
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config - stdio mode",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "valid config - server mode",
			mutate: func(c *Config) {
				c.Mode = ModeServer
			},
			wantErr: false,
		},
		{
			name: "invalid mode",
			mutate: func(c *Config) {
				c.Mode = "invalid"
			},
			wantErr: true,
		},
		{
			name: "invalid port - too low (server mode)",
			mutate: func(c *Config) {
				c.Mode = ModeServer
				c.Port = 0
			},
			wantErr: true,
		},
		{
			name: "invalid port - too high (server mode)",
			mutate: func(c *Config) {
				c.Mode = ModeServer
				c.Port = 70000
			},
			wantErr: true,
		},
		{
			name: "port ignored in stdio mode",
			mutate: func(c *Config) {
				c.Port = 0
			},
			wantErr: false,
		},
		{
			name: "empty upload directory",
			mutate: func(c *Config) {
				c.UploadDirectory = ""
			},
			wantErr: true,
		},
		{
			name: "non-positive max file size",
			mutate: func(c *Config) {
				c.MaxFileSize = 0
			},
			wantErr: true,
		},
		{
			name: "non-positive parse timeout",
			mutate: func(c *Config) {
				c.ParseTimeout = 0
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.LogLevel = "loud"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Errorf("expected validation error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestConfigValidateCreatesMissingDirectories(t *testing.T) {
	cfg := validTestConfig(t)

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	for _, dir := range []string{cfg.ImagesDirectory, cfg.TombstoneDirectory} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("expected directory %s to be created: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("expected %s to be a directory", dir)
		}
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := &Config{Host: "0.0.0.0", Port: 9000}
	if got := cfg.Address(); got != "0.0.0.0:9000" {
		t.Errorf("Address() = %s, want 0.0.0.0:9000", got)
	}
}

func TestConfigModeHelpers(t *testing.T) {
	cfg := &Config{Mode: ModeStdio}
	if !cfg.IsStdioMode() || cfg.IsServerMode() {
		t.Errorf("expected stdio mode helpers to report stdio")
	}

	cfg.Mode = ModeServer
	if cfg.IsStdioMode() || !cfg.IsServerMode() {
		t.Errorf("expected server mode helpers to report server")
	}
}

func TestConfigSlogLevel(t *testing.T) {
	tests := []struct {
		logLevel string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.logLevel}
		if got := cfg.SlogLevel(); got != tt.expected {
			t.Errorf("SlogLevel() for %q = %v, want %v", tt.logLevel, got, tt.expected)
		}
	}

	cfg := &Config{LogLevel: "debug"}
	if !cfg.IsDebug() {
		t.Errorf("expected IsDebug to be true for debug level")
	}
}
