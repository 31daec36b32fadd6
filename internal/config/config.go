package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort         = 8080
	DefaultHost         = "127.0.0.1"
	DefaultLogLevel     = "info"
	DefaultMaxFileSize  = 100 * 1024 * 1024 // 100MB
	DefaultParseTimeout = 30 * time.Second

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the quote extraction server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Pipeline configuration
	UploadDirectory    string
	ImagesDirectory    string
	TombstoneDirectory string
	ImagesBaseURL      string
	JunkHashes         []string
	ParseTimeout       time.Duration

	// Persistence configuration. Empty disables the repository-backed
	// tools (search, CSV ingestion).
	DatabaseDSN string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:            ModeStdio,
		Host:            DefaultHost,
		Port:            DefaultPort,
		UploadDirectory: currentDir,
		ImagesBaseURL:   "",
		JunkHashes:      nil,
		ParseTimeout:    DefaultParseTimeout,
		DatabaseDSN:     "",
		Version:         "1.0.0",
		ServerName:      "prquotes",
		LogLevel:        DefaultLogLevel,
		MaxFileSize:     DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.UploadDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.UploadDirectory); err == nil {
			cfg.UploadDirectory = expandedPath
		}
	}

	// The image directories default to the layout the quoting workflow has
	// always used: an images directory next to the uploads, with the
	// tombstone directory nested inside it.
	if cfg.ImagesDirectory == "" {
		cfg.ImagesDirectory = filepath.Join(cfg.UploadDirectory, "pdf-images")
	}
	if cfg.TombstoneDirectory == "" {
		cfg.TombstoneDirectory = filepath.Join(cfg.ImagesDirectory, "hash-images")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("PRQUOTES")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.UploadDirectory)
	viper.SetDefault("imagesdir", cfg.ImagesDirectory)
	viper.SetDefault("tombstonedir", cfg.TombstoneDirectory)
	viper.SetDefault("imagesbaseurl", cfg.ImagesBaseURL)
	viper.SetDefault("junkhashes", cfg.JunkHashes)
	viper.SetDefault("parsetimeout", cfg.ParseTimeout)
	viper.SetDefault("dsn", cfg.DatabaseDSN)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for SSE server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.UploadDirectory, "Directory containing uploaded quote PDFs")
	pflag.String("imagesdir", cfg.ImagesDirectory, "Directory for extracted images (default: <dir>/pdf-images)")
	pflag.String("tombstonedir", cfg.TombstoneDirectory, "Directory for deleted images (default: <imagesdir>/hash-images)")
	pflag.String("imagesbaseurl", cfg.ImagesBaseURL, "Base URL prepended to extracted image names")
	pflag.StringSlice("junkhashes", cfg.JunkHashes, "Additional image content hashes to exclude from extraction")
	pflag.Duration("parsetimeout", cfg.ParseTimeout, "Maximum time to spend parsing one document")
	pflag.String("dsn", cfg.DatabaseDSN, "Database DSN (postgres://... or a SQLite file path); empty disables persistence")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("dir", pflag.Lookup("dir"))
	_ = viper.BindPFlag("imagesdir", pflag.Lookup("imagesdir"))
	_ = viper.BindPFlag("tombstonedir", pflag.Lookup("tombstonedir"))
	_ = viper.BindPFlag("imagesbaseurl", pflag.Lookup("imagesbaseurl"))
	_ = viper.BindPFlag("junkhashes", pflag.Lookup("junkhashes"))
	_ = viper.BindPFlag("parsetimeout", pflag.Lookup("parsetimeout"))
	_ = viper.BindPFlag("dsn", pflag.Lookup("dsn"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nPR Quotes - quote PDF extraction and job card service\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                      # stdio mode, current directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/srv/quotes                    # stdio mode with custom upload directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/srv/quotes      # SSE server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dsn=postgres://app@db/quotes       # with Postgres-backed persistence\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  PRQUOTES_MODE          Server mode\n")
		fmt.Fprintf(os.Stderr, "  PRQUOTES_HOST          Server host\n")
		fmt.Fprintf(os.Stderr, "  PRQUOTES_PORT          Server port\n")
		fmt.Fprintf(os.Stderr, "  PRQUOTES_DIR           Upload directory\n")
		fmt.Fprintf(os.Stderr, "  PRQUOTES_IMAGESDIR     Extracted images directory\n")
		fmt.Fprintf(os.Stderr, "  PRQUOTES_TOMBSTONEDIR  Deleted images directory\n")
		fmt.Fprintf(os.Stderr, "  PRQUOTES_DSN           Database DSN\n")
		fmt.Fprintf(os.Stderr, "  PRQUOTES_LOGLEVEL      Log level\n")
		fmt.Fprintf(os.Stderr, "  PRQUOTES_MAXFILESIZE   Maximum file size\n")
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.UploadDirectory = viper.GetString("dir")
	cfg.ImagesDirectory = viper.GetString("imagesdir")
	cfg.TombstoneDirectory = viper.GetString("tombstonedir")
	cfg.ImagesBaseURL = viper.GetString("imagesbaseurl")
	cfg.JunkHashes = viper.GetStringSlice("junkhashes")
	cfg.ParseTimeout = viper.GetDuration("parsetimeout")
	cfg.DatabaseDSN = viper.GetString("dsn")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.UploadDirectory == "" {
		return errors.New("upload directory cannot be empty")
	}

	// Create missing directories so a fresh install works out of the box.
	for _, dir := range []string{c.UploadDirectory, c.ImagesDirectory, c.TombstoneDirectory} {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", dir, err)
			}
		} else if err != nil {
			return fmt.Errorf("cannot access directory %s: %w", dir, err)
		}
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.ParseTimeout <= 0 {
		return errors.New("parse timeout must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// IsServerMode returns true if the server is running in SSE server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// SlogLevel maps the configured level onto slog's levels.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, UploadDirectory: %s, ImagesDirectory: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.UploadDirectory, c.ImagesDirectory, c.LogLevel, c.MaxFileSize)
}
