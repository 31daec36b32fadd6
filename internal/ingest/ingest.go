// Package ingest loads the quoting tool's CSV exports into the repository.
// One importer handles all three export shapes (clients, quotes, line
// items); each row is routed to a table by which identifying columns it
// carries, matching how the exports are produced.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/esserdigital/prquotes/internal/repository"
)

// emptyField replaces blank values so NOT NULL columns always get content.
const emptyField = "Empty"

var headerCleanPattern = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Summary reports what one import run did.
type Summary struct {
	Clients   int `json:"clients"`
	Quotes    int `json:"quotes"`
	LineItems int `json:"line_items"`
	Skipped   int `json:"skipped"`
}

// Importer reads CSV exports and writes them through the repository.
type Importer struct {
	repo   *repository.Repository
	logger *slog.Logger
}

// NewImporter creates an Importer over repo.
func NewImporter(repo *repository.Repository, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{repo: repo, logger: logger}
}

// ImportFile ingests one CSV file. Rows that cannot be routed or parsed
// are skipped and counted, not fatal; only unreadable input is an error.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	summary, err := im.Import(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	return summary, nil
}

// Import ingests CSV content from r.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Summary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, h := range headers {
		headers[i] = sanitizeHeader(h)
	}

	summary := &Summary{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if len(row) != len(headers) {
			im.logger.Warn("skipping row with column count mismatch",
				"want", len(headers), "got", len(row))
			summary.Skipped++
			continue
		}

		record := make(map[string]string, len(headers))
		for i, h := range headers {
			record[h] = sanitizeField(row[i])
		}

		if err := im.insertRecord(ctx, record, summary); err != nil {
			return nil, err
		}
	}
	return summary, nil
}

// insertRecord routes one record by its identifying columns: quote number
// plus email is a quote, item code plus quote number is a line item, email
// alone is a client.
func (im *Importer) insertRecord(ctx context.Context, record map[string]string, summary *Summary) error {
	_, hasQuoteNumber := record["quote_number"]
	_, hasEmail := record["email"]
	_, hasItemCode := record["item_code"]

	switch {
	case hasQuoteNumber && hasEmail:
		quoteNumber, err := strconv.ParseInt(record["quote_number"], 10, 64)
		if err != nil {
			im.logger.Warn("skipping quote row with bad quote number",
				"quote_number", record["quote_number"])
			summary.Skipped++
			return nil
		}
		inserted, err := im.repo.InsertQuote(ctx, repository.Quote{
			QuoteNumber: quoteNumber,
			QuoteTitle:  record["quote_title"],
			FromName:    record["from_name"],
			ForName:     record["for_name"],
			Email:       record["email"],
			TotalValue:  record["total_value"],
			Currency:    record["currency"],
			QuoteStatus: record["quote_status"],
			ExpiryDate:  record["expiry_date"],
		})
		if err != nil {
			return err
		}
		if inserted {
			summary.Quotes++
		} else {
			summary.Skipped++
		}

	case hasItemCode && hasQuoteNumber:
		quoteNumber, err1 := strconv.ParseInt(record["quote_number"], 10, 64)
		itemCode, err2 := strconv.ParseInt(record["item_code"], 10, 64)
		if err1 != nil || err2 != nil {
			im.logger.Warn("skipping line item row with bad identifiers",
				"quote_number", record["quote_number"], "item_code", record["item_code"])
			summary.Skipped++
			return nil
		}
		quantity, err := strconv.ParseInt(record["quantity"], 10, 64)
		if err != nil {
			quantity = 0
		}
		inserted, err := im.repo.InsertLineItem(ctx, repository.LineItem{
			QuoteNumber:   quoteNumber,
			ItemCode:      itemCode,
			ItemTitle:     record["item_title"],
			UnitPrice:     record["unit_price"],
			Quantity:      quantity,
			Discount:      record["discount"],
			ItemTotal:     record["item_total"],
			SalesCategory: record["sales_category"],
		})
		if err != nil {
			return err
		}
		if inserted {
			summary.LineItems++
		} else {
			summary.Skipped++
		}

	case hasEmail:
		inserted, err := im.repo.InsertClient(ctx, repository.Client{
			FirstName:   record["first_name"],
			LastName:    record["last_name"],
			CompanyName: record["company_name"],
			Email:       record["email"],
			Phone:       record["phone"],
			Address:     record["address"],
			City:        record["city"],
			State:       record["state"],
			Zip:         record["zip"],
			Country:     record["country"],
			LastChanged: record["last_changed"],
		})
		if err != nil {
			return err
		}
		if inserted {
			summary.Clients++
		} else {
			summary.Skipped++
		}

	default:
		im.logger.Warn("skipping row without identifying columns")
		summary.Skipped++
	}
	return nil
}

// sanitizeHeader normalizes a column name: byte order mark stripped,
// surrounding quotes and whitespace trimmed, special characters replaced
// with underscores, lowercased.
func sanitizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF")
	h = strings.Trim(h, "\" \t\n\r\x00\x0B")
	h = headerCleanPattern.ReplaceAllString(h, "_")
	return strings.ToLower(h)
}

// sanitizeField cleans one value: printable ASCII only, surrounding quotes
// and whitespace trimmed, blanks replaced so NOT NULL columns stay valid.
func sanitizeField(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		if r >= 0x20 && r <= 0x7E {
			b.WriteRune(r)
		}
	}
	v = strings.Trim(b.String(), "\" \t\n\r\x00\x0B")
	if v == "" {
		return emptyField
	}
	return v
}
