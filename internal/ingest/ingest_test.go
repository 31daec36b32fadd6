package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esserdigital/prquotes/internal/repository"
)

func newTestImporter(t *testing.T) (*Importer, *repository.Repository) {
	t.Helper()

	db, err := repository.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.EnsureSchema(context.Background(), db))

	repo := repository.New(db, nil)
	return NewImporter(repo, nil), repo
}

func TestImporter_ImportClients(t *testing.T) {
	importer, repo := newTestImporter(t)
	ctx := context.Background()

	csvData := "First Name,Last Name,Company Name,Email,Phone,Address,City,State,Zip,Country,Last Changed\n" +
		"Jane,Doe,Acme Traders,jane@x.com,021 555 0100,12 Long Road,Cape Town,WC,8001,South Africa,2024-03-03\n" +
		"John,Smith,,john@smith.org,011 222 3333,5 Oak Ave,Johannesburg,GP,2000,South Africa,2024-03-04\n"

	summary, err := importer.Import(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Clients)
	assert.Equal(t, 0, summary.Skipped)

	stored, err := repo.GetClientByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane", stored.FirstName)
	assert.Equal(t, "Acme Traders", stored.CompanyName)

	// Blank company becomes the NOT NULL filler.
	stored, err = repo.GetClientByEmail(ctx, "john@smith.org")
	require.NoError(t, err)
	assert.Equal(t, "Empty", stored.CompanyName)
}

func TestImporter_ImportQuotesAndLineItems(t *testing.T) {
	importer, repo := newTestImporter(t)
	ctx := context.Background()

	quotesCSV := "Quote Number,Quote Title,From Name,For Name,Email,Total Value,Currency,Quote Status,Expiry Date\n" +
		"1024,Gate motor installation,PR Quotes,Jane Doe,jane@x.com,5250.00,ZAR,sent,2024-04-03\n"
	summary, err := importer.Import(ctx, strings.NewReader(quotesCSV))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Quotes)

	itemsCSV := "Quote Number,Item Code,Item Title,Unit Price,Quantity,Discount,Item Total,Sales Category\n" +
		"1024,501,Supply and install gate motor,4500.00,1,0.00,4500.00,Installations\n" +
		"1024,502,Replace hinges,750.00,1,0.00,750.00,Repairs\n"
	summary, err = importer.Import(ctx, strings.NewReader(itemsCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.LineItems)

	details, err := repo.SearchQuote(ctx, "1024")
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Equal(t, "Jane Doe", details.Quote.ForName)
	assert.Len(t, details.Items, 2)
}

func TestImporter_ImportSkipsDuplicates(t *testing.T) {
	importer, _ := newTestImporter(t)
	ctx := context.Background()

	csvData := "Email,First Name,Last Name\n" +
		"jane@x.com,Jane,Doe\n" +
		"jane@x.com,Jane,Doe\n"

	summary, err := importer.Import(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Clients)
	assert.Equal(t, 1, summary.Skipped)
}

func TestImporter_ImportSanitizesHeadersAndFields(t *testing.T) {
	importer, repo := newTestImporter(t)
	ctx := context.Background()

	// Byte order mark on the first header, quotes and stray whitespace on
	// values, non-ASCII characters inside a field.
	csvData := "\uFEFFEmail,First Name,Last Name\n" +
		"\" jane@x.com \",Jané,Doe\n"

	summary, err := importer.Import(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Clients)

	stored, err := repo.GetClientByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Jan", stored.FirstName, "non-ASCII characters are stripped")
}

func TestImporter_ImportSkipsUnroutableRows(t *testing.T) {
	importer, _ := newTestImporter(t)
	ctx := context.Background()

	csvData := "Name,Notes\n" +
		"orphan row,no identifying columns\n"

	summary, err := importer.Import(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Clients)
	assert.Equal(t, 1, summary.Skipped)
}

func TestImporter_ImportSkipsBadNumericIdentifiers(t *testing.T) {
	importer, _ := newTestImporter(t)
	ctx := context.Background()

	csvData := "Quote Number,Email,Quote Title\n" +
		"not-a-number,jane@x.com,Broken export row\n"

	summary, err := importer.Import(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Quotes)
	assert.Equal(t, 1, summary.Skipped)
}

func TestSanitizeHeader(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Quote Number", "quote_number"},
		{"\uFEFFFirst Name", "first_name"},
		{"\"Email\"", "email"},
		{"Item-Code", "item_code"},
	}
	for _, tt := range tests {
		if got := sanitizeHeader(tt.in); got != tt.expected {
			t.Errorf("sanitizeHeader(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestSanitizeField(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"  plain value  ", "plain value"},
		{"\"quoted\"", "quoted"},
		{"", "Empty"},
		{"   ", "Empty"},
		{"café", "caf"},
	}
	for _, tt := range tests {
		if got := sanitizeField(tt.in); got != tt.expected {
			t.Errorf("sanitizeField(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}
