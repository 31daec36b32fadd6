package render

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/esserdigital/prquotes/internal/repository"
)

const quoteSheetName = "Quote"

// QuoteFilename derives the quote document file name from the quote number.
func QuoteFilename(quoteNumber int64) string {
	return fmt.Sprintf("Quote_%d.xlsx", quoteNumber)
}

// RenderQuoteBytes regenerates a formatted quote document from the stored
// quote and its line items, returning the workbook as bytes.
func (r *Renderer) RenderQuoteBytes(details repository.QuoteDetails) ([]byte, error) {
	start := time.Now()
	q := details.Quote

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(quoteSheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	row := 1
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(quoteSheetName, cell, v)
	}
	title, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}})
	heading, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}})
	styled := func(styleID int) {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellStyle(quoteSheetName, cell, cell, styleID)
	}

	write(1, "Quote Details")
	styled(title)
	row += 2

	for _, field := range []struct {
		label, value string
	}{
		{"Quote Number", fmt.Sprintf("%d", q.QuoteNumber)},
		{"Client", q.ForName},
		{"Email", q.Email},
		{"Total Value", q.TotalValue + " " + q.Currency},
		{"Status", q.QuoteStatus},
		{"Expiry Date", q.ExpiryDate},
	} {
		write(1, field.label)
		write(2, field.value)
		row++
	}
	row++

	write(1, "Line Items")
	styled(heading)
	row++
	write(1, "Item Title")
	write(2, "Unit Price")
	write(3, "Quantity")
	write(4, "Discount")
	write(5, "Total")
	row++
	for _, item := range details.Items {
		write(1, item.ItemTitle)
		write(2, item.UnitPrice)
		write(3, item.Quantity)
		write(4, item.Discount)
		write(5, item.ItemTotal)
		row++
	}
	row++

	write(1, "Grand Total")
	styled(heading)
	write(2, q.TotalValue+" "+q.Currency)

	_ = f.SetColWidth(quoteSheetName, "A", "A", 36)
	_ = f.SetColWidth(quoteSheetName, "B", "E", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	r.logger.Info("quote document rendered",
		"quote_number", q.QuoteNumber,
		"items", len(details.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// RenderQuoteFile builds the quote document and writes it into the output
// directory, returning the path written.
func (r *Renderer) RenderQuoteFile(details repository.QuoteDetails) (string, error) {
	data, err := r.RenderQuoteBytes(details)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.outputDir, 0o750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(r.outputDir, QuoteFilename(details.Quote.QuoteNumber))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write quote document: %w", err)
	}
	return path, nil
}
