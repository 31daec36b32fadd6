package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/esserdigital/prquotes/internal/config"
	"github.com/esserdigital/prquotes/internal/imagestore"
	"github.com/esserdigital/prquotes/internal/ingest"
	"github.com/esserdigital/prquotes/internal/mcp"
	"github.com/esserdigital/prquotes/internal/quote"
	"github.com/esserdigital/prquotes/internal/render"
	"github.com/esserdigital/prquotes/internal/repository"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the server mode
func setupLogging(cfg *config.Config) *slog.Logger {
	if cfg.IsStdioMode() {
		// In stdio mode, redirect log output to stderr to avoid interfering with MCP protocol
		log.SetOutput(os.Stderr)
		if !cfg.IsDebug() {
			log.SetOutput(os.NewFile(0, os.DevNull))
		}
	} else {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()

		if err := <-serverErrCh; err != nil {
			log.Printf("Server shutdown with error: %v", err)
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}

	log.Println("Server stopped successfully")
}

// runStdioMode handles stdio mode execution
func runStdioMode(ctx context.Context, _ context.CancelFunc, server *mcp.Server) {
	// In stdio mode, the parent process controls our lifecycle
	if err := server.Run(ctx); err != nil {
		if os.Getenv("DEBUG") != "" {
			log.Printf("Server error: %v", err)
		}
		os.Exit(1)
	}
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := setupLogging(cfg)

	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && cfg.IsServerMode() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	store, err := imagestore.NewFSStore(cfg.ImagesDirectory, cfg.TombstoneDirectory, cfg.ImagesBaseURL, logger)
	if err != nil {
		log.Fatalf("Failed to create image store: %v", err)
	}

	quoteService, err := quote.NewService(store, cfg.UploadDirectory, cfg.JunkHashes,
		cfg.MaxFileSize, cfg.ParseTimeout, logger)
	if err != nil {
		log.Fatalf("Failed to create quote service: %v", err)
	}

	renderer := render.NewRenderer(filepath.Join(cfg.UploadDirectory, "job-cards"), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		repo     *repository.Repository
		importer *ingest.Importer
	)
	if cfg.DatabaseDSN != "" {
		db, err := repository.Open(cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()

		if err := repository.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("Failed to ensure database schema: %v", err)
		}
		repo = repository.New(db, logger)
		importer = ingest.NewImporter(repo, logger)
	}

	server, err := mcp.NewServer(cfg, quoteService, renderer, importer, repo)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	if cfg.IsServerMode() {
		runServerMode(ctx, cancel, server)
	} else {
		runStdioMode(ctx, cancel, server)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("PR Quotes MCP Server\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
