// quote-extract runs the extraction pipeline over one quote PDF and prints
// the structured record as JSON. Useful for checking a document before
// wiring it through the MCP server.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/esserdigital/prquotes/internal/imagestore"
	"github.com/esserdigital/prquotes/internal/quote"
)

func main() {
	var (
		imagesDir    string
		tombstoneDir string
		baseURL      string
		junkHashes   []string
		timeout      time.Duration
		verbose      bool
	)
	pflag.StringVar(&imagesDir, "imagesdir", "", "Directory for extracted images (default: <pdf dir>/pdf-images)")
	pflag.StringVar(&tombstoneDir, "tombstonedir", "", "Directory for removed images (default: <imagesdir>/hash-images)")
	pflag.StringVar(&baseURL, "imagesbaseurl", "", "Base URL prefixed to stored image names")
	pflag.StringSliceVar(&junkHashes, "junkhashes", nil, "Extra image content hashes to exclude")
	pflag.DurationVar(&timeout, "timeout", 30*time.Second, "Extraction timeout")
	pflag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	pflag.Parse()

	if pflag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <quote.pdf>\n", os.Args[0])
		pflag.PrintDefaults()
		os.Exit(2)
	}
	path, err := filepath.Abs(pflag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to resolve path: %v", err)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	pdfDir := filepath.Dir(path)
	if imagesDir == "" {
		imagesDir = filepath.Join(pdfDir, "pdf-images")
	}
	if tombstoneDir == "" {
		tombstoneDir = filepath.Join(imagesDir, "hash-images")
	}

	store, err := imagestore.NewFSStore(imagesDir, tombstoneDir, baseURL, logger)
	if err != nil {
		log.Fatalf("Failed to create image store: %v", err)
	}

	service, err := quote.NewService(store, pdfDir, junkHashes, 100*1024*1024, timeout, logger)
	if err != nil {
		log.Fatalf("Failed to create quote service: %v", err)
	}

	result, err := service.QuoteExtractFile(quote.QuoteExtractFileRequest{Path: path})
	if err != nil {
		log.Fatalf("Extraction failed: %v", err)
	}

	out, err := json.MarshalIndent(result.Record, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode record: %v", err)
	}
	fmt.Println(string(out))
}
