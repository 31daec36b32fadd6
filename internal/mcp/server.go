// Package mcp exposes the quote extraction pipeline over the Model Context
// Protocol. Each tool wraps one service operation; handlers translate tool
// arguments into typed requests and format results as text for the client.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/esserdigital/prquotes/internal/config"
	"github.com/esserdigital/prquotes/internal/imagestore"
	"github.com/esserdigital/prquotes/internal/ingest"
	"github.com/esserdigital/prquotes/internal/quote"
	"github.com/esserdigital/prquotes/internal/render"
	"github.com/esserdigital/prquotes/internal/repository"
)

// Server is the MCP server instance wiring tools to the quote services.
// Repo and importer may be nil when no database is configured; the tools
// depending on them report that instead of failing at startup.
type Server struct {
	config       *config.Config
	quoteService *quote.Service
	renderer     *render.Renderer
	importer     *ingest.Importer
	repo         *repository.Repository
	mcpServer    *server.MCPServer
}

// NewServer creates the MCP server and registers the quote tools.
func NewServer(cfg *config.Config, quoteService *quote.Service, renderer *render.Renderer,
	importer *ingest.Importer, repo *repository.Repository,
) (*Server, error) {
	if quoteService == nil {
		return nil, fmt.Errorf("quoteService cannot be nil")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:       cfg,
		quoteService: quoteService,
		renderer:     renderer,
		importer:     importer,
		repo:         repo,
		mcpServer:    mcpServer,
	}

	s.registerTools()

	return s, nil
}

func (s *Server) registerTools() {
	extractTool := mcp.NewTool(
		"quote_extract_file",
		mcp.WithDescription("Run the full extraction pipeline over a quote PDF: text, images and all structured fields"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the quote PDF inside the upload directory"),
		),
	)
	s.mcpServer.AddTool(extractTool, s.handleQuoteExtractFile)

	validateTool := mcp.NewTool(
		"quote_validate_file",
		mcp.WithDescription("Validate that a file is a readable quote PDF"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the quote PDF"),
		),
	)
	s.mcpServer.AddTool(validateTool, s.handleQuoteValidateFile)

	deleteImageTool := mcp.NewTool(
		"quote_delete_image",
		mcp.WithDescription("Remove an extracted image so its content never reappears in future extractions"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("URL of the extracted image to remove"),
		),
	)
	s.mcpServer.AddTool(deleteImageTool, s.handleQuoteDeleteImage)

	renderTool := mcp.NewTool(
		"quote_render_jobcard",
		mcp.WithDescription("Extract a quote PDF and render the job card workbook for it"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the quote PDF"),
		),
		mcp.WithString("instructions",
			mcp.Description("Optional JSON object of extra instructions keyed by line item position, e.g. {\"0\": \"paint first\"}"),
		),
		mcp.WithString("images",
			mcp.Description("Optional JSON array of image refs from a previous quote_extract_file result; extraction only reports newly stored images, so pass these to put the document's existing images on the card"),
		),
	)
	s.mcpServer.AddTool(renderTool, s.handleQuoteRenderJobcard)

	ingestTool := mcp.NewTool(
		"quote_ingest_csv",
		mcp.WithDescription("Import a CSV export (clients, quotes or line items) into the quote database"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the CSV file"),
		),
	)
	s.mcpServer.AddTool(ingestTool, s.handleQuoteIngestCSV)

	renderDocumentTool := mcp.NewTool(
		"quote_render_document",
		mcp.WithDescription("Regenerate a formatted quote document from a stored quote and its line items"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Quote number or client name fragment"),
		),
	)
	s.mcpServer.AddTool(renderDocumentTool, s.handleQuoteRenderDocument)

	searchTool := mcp.NewTool(
		"quote_search",
		mcp.WithDescription("Look a stored quote up by quote number or client name and return it with its line items"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Quote number or client name fragment"),
		),
	)
	s.mcpServer.AddTool(searchTool, s.handleQuoteSearch)

	serverInfoTool := mcp.NewTool(
		"quote_server_info",
		mcp.WithDescription("Get server information, available tools and upload directory contents"),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleQuoteServerInfo)
}

func (s *Server) handleQuoteExtractFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.quoteService.QuoteExtractFile(quote.QuoteExtractFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	recordJSON, err := json.MarshalIndent(result.Record, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode record: %v", err)), nil
	}

	responseText := fmt.Sprintf("Extracted quote document: %s\n", result.Path)
	if result.Record.Empty {
		responseText += "No text or images could be recovered; all fields are defaulted.\n"
	} else {
		responseText += fmt.Sprintf("Text: %d bytes\n", result.TextBytes)
		responseText += fmt.Sprintf("New images stored: %d\n", result.NewImages)
	}
	responseText += "\nRecord:\n" + string(recordJSON)

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleQuoteValidateFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.quoteService.QuoteValidateFile(quote.QuoteValidateFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("Quote PDF %s is valid and readable", result.Path)
	} else {
		responseText = fmt.Sprintf("Validation failed for %s: %s", result.Path, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleQuoteDeleteImage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.quoteService.DeleteImage(quote.QuoteDeleteImageRequest{URL: url})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Deleted {
		responseText = fmt.Sprintf("Image removed: %s", result.URL)
	} else {
		responseText = fmt.Sprintf("Image not removed: %s (%s)", result.URL, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleQuoteRenderJobcard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	instructions := map[int]string{}
	if raw, ok := request.GetArguments()["instructions"].(string); ok && raw != "" {
		byIndex := map[string]string{}
		if err := json.Unmarshal([]byte(raw), &byIndex); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid instructions JSON: %v", err)), nil
		}
		for k, v := range byIndex {
			idx, err := strconv.Atoi(k)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("instruction key is not an item position: %q", k)), nil
			}
			instructions[idx] = v
		}
	}

	extracted, err := s.quoteService.QuoteExtractFile(quote.QuoteExtractFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Re-extraction of a known document stores nothing new, so its record
	// carries no image refs. The refs from the extraction the operator just
	// reviewed come back through the images argument.
	record := extracted.Record
	if raw, ok := request.GetArguments()["images"].(string); ok && raw != "" {
		var refs []imagestore.Ref
		if err := json.Unmarshal([]byte(raw), &refs); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid images JSON: %v", err)), nil
		}
		record.Images = refs
	}

	outPath, err := s.renderer.RenderFile(render.JobCard{
		Record:       record,
		Instructions: instructions,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Job card written: %s\n", outPath)
	responseText += fmt.Sprintf("Quote number: %s\n", record.QuoteInfo.QuoteNumber)
	responseText += fmt.Sprintf("Line items: %d\n", len(record.Items))
	responseText += fmt.Sprintf("Images: %d\n", len(record.Images))

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleQuoteRenderDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.repo == nil {
		return mcp.NewToolResultError("no database configured: set the dsn option to enable quote document rendering"), nil
	}

	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	details, err := s.repo.SearchQuote(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if details == nil {
		return mcp.NewToolResultText(fmt.Sprintf("No quote found for query: %s", query)), nil
	}

	outPath, err := s.renderer.RenderQuoteFile(*details)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Quote document written: %s\n", outPath)
	responseText += fmt.Sprintf("Quote number: %d\n", details.Quote.QuoteNumber)
	responseText += fmt.Sprintf("Line items: %d\n", len(details.Items))

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleQuoteIngestCSV(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.importer == nil {
		return mcp.NewToolResultError("no database configured: set the dsn option to enable CSV ingestion"), nil
	}

	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	summary, err := s.importer.ImportFile(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("CSV import finished: %s\n", path)
	responseText += fmt.Sprintf("Clients inserted: %d\n", summary.Clients)
	responseText += fmt.Sprintf("Quotes inserted: %d\n", summary.Quotes)
	responseText += fmt.Sprintf("Line items inserted: %d\n", summary.LineItems)
	responseText += fmt.Sprintf("Rows skipped: %d\n", summary.Skipped)

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleQuoteSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.repo == nil {
		return mcp.NewToolResultError("no database configured: set the dsn option to enable quote search"), nil
	}

	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	details, err := s.repo.SearchQuote(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if details == nil {
		return mcp.NewToolResultText(fmt.Sprintf("No quote found for query: %s", query)), nil
	}

	return mcp.NewToolResultText(s.formatQuoteDetails(details)), nil
}

func (s *Server) handleQuoteServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := fmt.Sprintf("%s v%s\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("Upload directory: %s\n", s.quoteService.UploadDirectory())
	text += fmt.Sprintf("Max file size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	if s.repo != nil {
		text += "Database: configured\n"
	} else {
		text += "Database: not configured (quote_ingest_csv, quote_search and quote_render_document disabled)\n"
	}

	files, err := s.quoteService.ListQuotePDFs(10)
	if err == nil && len(files) > 0 {
		text += fmt.Sprintf("\nQuote PDFs available (%d shown):\n", len(files))
		for i, file := range files {
			text += fmt.Sprintf("  %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
	} else {
		text += "\nNo quote PDFs found in the upload directory\n"
	}

	text += "\nAvailable tools:\n"
	for _, tool := range []struct{ name, desc string }{
		{"quote_extract_file", "run the full extraction pipeline over a quote PDF"},
		{"quote_validate_file", "validate that a file is a readable quote PDF"},
		{"quote_delete_image", "remove an extracted image permanently"},
		{"quote_render_jobcard", "extract a quote PDF and render its job card workbook"},
		{"quote_render_document", "regenerate a quote document from stored data"},
		{"quote_ingest_csv", "import a CSV export into the quote database"},
		{"quote_search", "look a stored quote up by number or client name"},
		{"quote_server_info", "show this information"},
	} {
		text += fmt.Sprintf("  %s: %s\n", tool.name, tool.desc)
	}

	return mcp.NewToolResultText(text), nil
}

func (s *Server) formatQuoteDetails(details *repository.QuoteDetails) string {
	q := details.Quote
	text := "Quote Details\n"
	text += fmt.Sprintf("Quote Number: %d\n", q.QuoteNumber)
	text += fmt.Sprintf("Client: %s\n", q.ForName)
	text += fmt.Sprintf("Email: %s\n", q.Email)
	text += fmt.Sprintf("Total Value: %s %s\n", q.Currency, q.TotalValue)
	text += fmt.Sprintf("Status: %s\n", q.QuoteStatus)
	text += fmt.Sprintf("Expiry Date: %s\n", q.ExpiryDate)

	if len(details.Items) > 0 {
		text += "\nLine Items:\n"
		for i, item := range details.Items {
			text += fmt.Sprintf("%d. %s\n", i+1, item.ItemTitle)
			text += fmt.Sprintf("   Unit Price: %s, Quantity: %d, Discount: %s, Total: %s\n",
				item.UnitPrice, item.Quantity, item.Discount, item.ItemTotal)
		}
	} else {
		text += "\nNo line items stored for this quote.\n"
	}

	return text
}

// Run starts the MCP server in the configured mode.
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode serves MCP over stdin/stdout.
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting quote MCP server in stdio mode")
		log.Printf("Upload directory: %s", s.quoteService.UploadDirectory())
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over SSE on the configured address.
func (s *Server) runServerMode(ctx context.Context) error {
	sseServer := server.NewSSEServer(s.mcpServer)

	log.Printf("Starting quote MCP server on %s", s.config.Address())
	errCh := make(chan error, 1)
	go func() {
		errCh <- sseServer.Start(s.config.Address())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve sse: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("sse shutdown: %w", err)
		}
		return nil
	}
}
