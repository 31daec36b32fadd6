// Package render produces the printable workbooks around a quote: the job
// card handed to field teams (extracted client and quote details, line
// items with their per-item work instructions, site image links) and the
// quote document regenerated from stored data.
package render

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/esserdigital/prquotes/internal/quote"
)

const sheetName = "Job Card"

var filenameCleanPattern = regexp.MustCompile(`[^a-zA-Z0-9]`)

// JobCard pairs an extracted record with the per-item instructions the
// operator added during review. Instructions are keyed by item position.
type JobCard struct {
	Record       quote.ExtractedRecord
	Instructions map[int]string
}

// Renderer writes job cards as XLSX workbooks.
type Renderer struct {
	outputDir string
	logger    *slog.Logger
}

// NewRenderer creates a Renderer writing into outputDir.
func NewRenderer(outputDir string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{outputDir: outputDir, logger: logger}
}

// Filename derives the job card file name from the quote number and the
// client name, with anything unsafe replaced by underscores. The quote
// number is cleaned too: a defaulted record carries "N/A" there, which
// must not become a path separator.
func Filename(record quote.ExtractedRecord) string {
	quoteNumber := filenameCleanPattern.ReplaceAllString(record.QuoteInfo.QuoteNumber, "_")
	clientName := filenameCleanPattern.ReplaceAllString(record.ClientInfo.Name, "_")
	return fmt.Sprintf("jc-%s-%s.xlsx", quoteNumber, clientName)
}

// RenderBytes builds the job card workbook and returns it as bytes.
func (r *Renderer) RenderBytes(card JobCard) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	row := 1
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheetName, cell, v)
	}
	title, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}})
	heading, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}})
	styled := func(styleID int) {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellStyle(sheetName, cell, cell, styleID)
	}

	write(1, "Job Card")
	styled(title)
	row += 2

	record := card.Record

	write(1, "Client Information")
	styled(heading)
	row++
	for _, field := range []struct{ label, value string }{
		{"Name", record.ClientInfo.Name},
		{"Address", record.ClientInfo.Address},
		{"Email", record.ClientInfo.Email},
		{"Phone", record.ClientInfo.Phone},
	} {
		write(1, field.label)
		write(2, field.value)
		row++
	}
	row++

	write(1, "Quote Information")
	styled(heading)
	row++
	for _, field := range []struct{ label, value string }{
		{"Quote Number", record.QuoteInfo.QuoteNumber},
		{"Quote Date", record.QuoteInfo.QuoteDate},
		{"Expiry Date", record.QuoteInfo.ExpiryDate},
	} {
		write(1, field.label)
		write(2, field.value)
		row++
	}
	row++

	write(1, "Line Items")
	styled(heading)
	row++
	write(1, "Item")
	write(2, "Price")
	write(3, "Extra Instructions")
	row++
	for i, item := range record.Items {
		write(1, item.ItemName)
		write(2, item.TotalPrice)
		instruction := card.Instructions[i]
		if instruction == "" {
			instruction = quote.NotAvailable
		}
		write(3, instruction)
		row++
	}
	row++

	write(1, "Site Images")
	styled(heading)
	row++
	if len(record.Images) == 0 {
		write(1, "No images available.")
		row++
	}
	for _, img := range record.Images {
		write(1, img.Name)
		write(2, img.URL)
		row++
	}

	_ = f.SetColWidth(sheetName, "A", "A", 28)
	_ = f.SetColWidth(sheetName, "B", "B", 48)
	_ = f.SetColWidth(sheetName, "C", "C", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	r.logger.Info("job card rendered",
		"quote_number", record.QuoteInfo.QuoteNumber,
		"items", len(record.Items),
		"images", len(record.Images),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// RenderFile builds the workbook and writes it into the output directory,
// returning the path written.
func (r *Renderer) RenderFile(card JobCard) (string, error) {
	data, err := r.RenderBytes(card)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.outputDir, 0o750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(r.outputDir, Filename(card.Record))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write job card: %w", err)
	}
	return path, nil
}
