package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/esserdigital/prquotes/internal/imagestore"
	"github.com/esserdigital/prquotes/internal/quote/security"
)

// Service orchestrates the extraction pipeline: text extraction, image
// extraction and the four field parsers, composed into one ExtractedRecord.
type Service struct {
	text         *TextExtractor
	images       *ImageExtractor
	validator    *UploadValidator
	paths        *security.PathValidator
	store        imagestore.Store
	parseTimeout time.Duration
	logger       *slog.Logger
}

// NewService wires the pipeline components. uploadDir bounds the paths the
// service will touch; junkHashes extends the built-in image exclusion list;
// parseTimeout caps the time spent parsing one document.
func NewService(store imagestore.Store, uploadDir string, junkHashes []string,
	maxFileSize int64, parseTimeout time.Duration, logger *slog.Logger,
) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("image store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	paths, err := security.NewPathValidator(uploadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	return &Service{
		text:         NewTextExtractor(logger),
		images:       NewImageExtractor(store, junkHashes, logger),
		validator:    NewUploadValidator(maxFileSize),
		paths:        paths,
		store:        store,
		parseTimeout: parseTimeout,
		logger:       logger,
	}, nil
}

// QuoteExtractFile runs the full pipeline over one quote PDF. Text and
// image extraction run concurrently and fail independently: a text failure
// does not block image extraction or vice versa. Only a document yielding
// neither text nor images produces the sentinel empty record. The error
// return is reserved for requests the pipeline never got to run (path
// outside the upload directory, timeout). A run abandoned at the deadline
// may still finish in the background and persist images; the store's
// content dedup makes those late writes indistinguishable from a later
// successful extraction of the same document.
func (s *Service) QuoteExtractFile(req QuoteExtractFileRequest) (*QuoteExtractFileResult, error) {
	if err := s.paths.ValidatePath(req.Path); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.parseTimeout)
	defer cancel()

	var (
		rawText string
		refs    []imagestore.Ref
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		rawText = s.text.ExtractText(req.Path)
		return nil
	})
	g.Go(func() error {
		refs = s.images.ExtractImages(req.Path)
		return nil
	})

	// The PDF libraries do not take a context; corpora can contain
	// pathological inputs, so a run that blows the deadline is abandoned.
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return nil, fmt.Errorf("extraction of %s exceeded %s: %w", req.Path, s.parseTimeout, ctx.Err())
	}

	if rawText == "" && len(refs) == 0 {
		s.logger.Warn("no text or images extracted", "path", req.Path)
		record := EmptyRecord(req.Path)
		return &QuoteExtractFileResult{Path: req.Path, Record: record}, nil
	}

	record := s.parseSections(rawText)
	record.SourcePath = req.Path
	if refs == nil {
		refs = []imagestore.Ref{}
	}
	record.Images = refs

	return &QuoteExtractFileResult{
		Path:      req.Path,
		Record:    record,
		TextBytes: len(rawText),
		NewImages: len(refs),
	}, nil
}

// parseSections runs the four field parsers. They are pure and touch
// disjoint sections, so they fan out.
func (s *Service) parseSections(rawText string) ExtractedRecord {
	var record ExtractedRecord

	g := new(errgroup.Group)
	g.Go(func() error { record.ClientInfo = ParseClientInfo(rawText); return nil })
	g.Go(func() error { record.QuoteInfo = ParseQuoteInfo(rawText); return nil })
	g.Go(func() error { record.Items = ParseLineItems(rawText); return nil })
	g.Go(func() error { record.AdditionalInfo = ParseAdditionalInfo(rawText); return nil })
	_ = g.Wait()

	return record
}

// QuoteValidateFile checks that a file is a readable quote PDF.
func (s *Service) QuoteValidateFile(req QuoteValidateFileRequest) (*QuoteValidateFileResult, error) {
	if err := s.paths.ValidatePath(req.Path); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.validator.ValidateFile(req)
}

// DeleteImage tombstones a previously extracted image so its content never
// reappears in future extractions. An image that is no longer active (never
// stored, or already tombstoned) yields a failure result, not an error.
func (s *Service) DeleteImage(req QuoteDeleteImageRequest) (*QuoteDeleteImageResult, error) {
	result := &QuoteDeleteImageResult{URL: req.URL}

	err := s.store.MoveToTombstone(req.URL)
	switch {
	case err == nil:
		result.Deleted = true
	case errors.Is(err, imagestore.ErrNotFound):
		result.Message = "image is not in the active store"
	default:
		return nil, fmt.Errorf("failed to tombstone image: %w", err)
	}
	return result, nil
}

// ListQuotePDFs returns up to limit PDFs from the upload directory, sorted
// by name. Used by the server-info tool to show what is available.
func (s *Service) ListQuotePDFs(limit int) ([]FileInfo, error) {
	entries, err := os.ReadDir(s.paths.Root())
	if err != nil {
		return nil, fmt.Errorf("read upload directory: %w", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name: entry.Name(),
			Path: filepath.Join(s.paths.Root(), entry.Name()),
			Size: info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

// UploadDirectory returns the directory the service reads quote PDFs from.
func (s *Service) UploadDirectory() string {
	return s.paths.Root()
}
