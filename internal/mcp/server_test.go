package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/xuri/excelize/v2"

	"github.com/esserdigital/prquotes/internal/config"
	"github.com/esserdigital/prquotes/internal/imagestore"
	"github.com/esserdigital/prquotes/internal/quote"
	"github.com/esserdigital/prquotes/internal/render"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	uploadDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.UploadDirectory = uploadDir

	store := imagestore.NewMemStore("")
	quoteService, err := quote.NewService(store, uploadDir, nil, 10*1024*1024, 5*time.Second, nil)
	if err != nil {
		t.Fatalf("failed to create quote service: %v", err)
	}
	renderer := render.NewRenderer(filepath.Join(uploadDir, "job-cards"), nil)

	server, err := NewServer(cfg, quoteService, renderer, nil, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return server, uploadDir
}

// extractTextContent pulls the text payload out of a tool result.
func extractTextContent(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}
	return ""
}

func TestNewServer(t *testing.T) {
	uploadDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.UploadDirectory = uploadDir

	store := imagestore.NewMemStore("")
	quoteService, err := quote.NewService(store, uploadDir, nil, 10*1024*1024, 5*time.Second, nil)
	if err != nil {
		t.Fatalf("failed to create quote service: %v", err)
	}
	renderer := render.NewRenderer(uploadDir, nil)

	tests := []struct {
		name         string
		quoteService *quote.Service
		renderer     *render.Renderer
		expectError  bool
	}{
		{
			name:         "valid dependencies",
			quoteService: quoteService,
			renderer:     renderer,
			expectError:  false,
		},
		{
			name:         "nil quote service",
			quoteService: nil,
			renderer:     renderer,
			expectError:  true,
		},
		{
			name:         "nil renderer",
			quoteService: quoteService,
			renderer:     nil,
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(cfg, tt.quoteService, tt.renderer, nil, nil)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if server == nil {
				t.Errorf("expected a server instance")
			}
		})
	}
}

func TestHandleQuoteExtractFile_MissingArgument(t *testing.T) {
	server, _ := newTestServer(t)

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{},
		},
	}

	result, err := server.handleQuoteExtractFile(context.Background(), request)
	if err != nil {
		t.Fatalf("handler should not return a transport error: %v", err)
	}
	if !result.IsError {
		t.Errorf("expected a tool error for the missing path argument")
	}
}

func TestHandleQuoteExtractFile_MissingFileYieldsSentinel(t *testing.T) {
	server, uploadDir := newTestServer(t)

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"path": filepath.Join(uploadDir, "missing.pdf"),
			},
		},
	}

	result, err := server.handleQuoteExtractFile(context.Background(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected a successful sentinel result, got tool error: %s", extractTextContent(result))
	}

	text := extractTextContent(result)
	if !strings.Contains(text, "No text or images could be recovered") {
		t.Errorf("expected sentinel explanation in response, got: %s", text)
	}
	if !strings.Contains(text, quote.PlaceholderItemName) {
		t.Errorf("expected placeholder item in record JSON, got: %s", text)
	}
}

func TestHandleQuoteValidateFile(t *testing.T) {
	server, uploadDir := newTestServer(t)

	notPDF := filepath.Join(uploadDir, "file.txt")
	if err := os.WriteFile(notPDF, []byte("x"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"path": notPDF,
			},
		},
	}

	result, err := server.handleQuoteValidateFile(context.Background(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := extractTextContent(result)
	if !strings.Contains(text, "Validation failed") {
		t.Errorf("expected validation failure message, got: %s", text)
	}
}

func TestHandleQuoteDeleteImage_UnknownImage(t *testing.T) {
	server, _ := newTestServer(t)

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"url": "http://localhost/pdf-images/never_stored.jpg",
			},
		},
	}

	result, err := server.handleQuoteDeleteImage(context.Background(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := extractTextContent(result)
	if !strings.Contains(text, "Image not removed") {
		t.Errorf("expected soft failure message, got: %s", text)
	}
}

func TestHandleQuoteRenderJobcard_UsesProvidedImageRefs(t *testing.T) {
	server, uploadDir := newTestServer(t)

	// A document whose images are all already in the store yields no refs
	// from a fresh extraction; the operator passes the refs from the run
	// they reviewed.
	refs := []imagestore.Ref{{
		Hash: "abc",
		Name: "image_1_2.jpg",
		URL:  "http://localhost/pdf-images/image_1_2.jpg",
	}}
	refsJSON, err := json.Marshal(refs)
	if err != nil {
		t.Fatalf("marshal refs: %v", err)
	}

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"path":   filepath.Join(uploadDir, "missing.pdf"),
				"images": string(refsJSON),
			},
		},
	}

	result, err := server.handleQuoteRenderJobcard(context.Background(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected a rendered job card, got tool error: %s", extractTextContent(result))
	}

	text := extractTextContent(result)
	if !strings.Contains(text, "Images: 1") {
		t.Errorf("expected the provided image to be counted, got: %s", text)
	}

	var outPath string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "Job card written: ") {
			outPath = strings.TrimPrefix(line, "Job card written: ")
		}
	}
	if outPath == "" {
		t.Fatalf("expected the output path in the response, got: %s", text)
	}

	f, err := excelize.OpenFile(outPath)
	if err != nil {
		t.Fatalf("open job card: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Job Card")
	if err != nil {
		t.Fatalf("read job card: %v", err)
	}
	imageFound := false
	noImagesMarker := false
	for _, row := range rows {
		for _, cell := range row {
			if cell == refs[0].URL {
				imageFound = true
			}
			if cell == "No images available." {
				noImagesMarker = true
			}
		}
	}
	if !imageFound {
		t.Errorf("expected the provided image URL on the job card")
	}
	if noImagesMarker {
		t.Errorf("job card should not carry the no-images marker")
	}
}

func TestHandleQuoteRenderJobcard_InvalidImagesJSON(t *testing.T) {
	server, uploadDir := newTestServer(t)

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"path":   filepath.Join(uploadDir, "missing.pdf"),
				"images": "{not json",
			},
		},
	}

	result, err := server.handleQuoteRenderJobcard(context.Background(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Errorf("expected a tool error for malformed images JSON")
	}
}

func TestHandleQuoteRenderDocument_WithoutDatabase(t *testing.T) {
	server, _ := newTestServer(t)

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"query": "1024",
			},
		},
	}

	result, err := server.handleQuoteRenderDocument(context.Background(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Errorf("expected a tool error when no database is configured")
	}
}

func TestHandleQuoteIngestCSV_WithoutDatabase(t *testing.T) {
	server, _ := newTestServer(t)

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"path": "/tmp/clients.csv",
			},
		},
	}

	result, err := server.handleQuoteIngestCSV(context.Background(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Errorf("expected a tool error when no database is configured")
	}
}

func TestHandleQuoteSearch_WithoutDatabase(t *testing.T) {
	server, _ := newTestServer(t)

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"query": "1024",
			},
		},
	}

	result, err := server.handleQuoteSearch(context.Background(), request)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Errorf("expected a tool error when no database is configured")
	}
}

func TestHandleQuoteServerInfo(t *testing.T) {
	server, uploadDir := newTestServer(t)

	if err := os.WriteFile(filepath.Join(uploadDir, "quote-1024.pdf"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	result, err := server.handleQuoteServerInfo(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := extractTextContent(result)
	for _, expected := range []string{
		"prquotes",
		"quote-1024.pdf",
		"quote_extract_file",
		"quote_render_jobcard",
		"quote_render_document",
		"Database: not configured",
	} {
		if !strings.Contains(text, expected) {
			t.Errorf("expected server info to mention %q, got: %s", expected, text)
		}
	}
}
