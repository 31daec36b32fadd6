package render

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/esserdigital/prquotes/internal/imagestore"
	"github.com/esserdigital/prquotes/internal/quote"
)

func testRecord() quote.ExtractedRecord {
	return quote.ExtractedRecord{
		ClientInfo: quote.ClientInfo{
			Name:    "Jane Doe",
			Address: "1 Main St",
			Email:   "jane@x.com",
			Phone:   "(012) 345-6789",
		},
		QuoteInfo: quote.QuoteInfo{
			QuoteNumber: "1024",
			QuoteDate:   "3 March 2024",
			ExpiryDate:  "3 April 2024",
		},
		Items: []quote.LineItem{
			{ItemName: "Supply and install gate motor", TotalPrice: "4,500.00"},
			{ItemName: "Replace hinges", TotalPrice: "750.00"},
		},
		Images: []imagestore.Ref{
			{Hash: "abc", Name: "image_1_4.jpg", URL: "http://localhost/pdf-images/image_1_4.jpg"},
		},
		SourcePath: "/uploads/quote-1024.pdf",
	}
}

func TestFilename(t *testing.T) {
	name := Filename(testRecord())
	assert.Equal(t, "jc-1024-Jane_Doe.xlsx", name)
}

func TestFilename_SanitizesClientName(t *testing.T) {
	record := testRecord()
	record.ClientInfo.Name = "Acme (Pty) Ltd."
	assert.Equal(t, "jc-1024-Acme__Pty__Ltd_.xlsx", Filename(record))
}

func TestFilename_SanitizesDefaultedQuoteNumber(t *testing.T) {
	record := testRecord()
	record.QuoteInfo.QuoteNumber = quote.NotAvailable
	record.ClientInfo.Name = quote.NotAvailable
	assert.Equal(t, "jc-N_A-N_A.xlsx", Filename(record))
}

func TestRenderer_RenderBytes(t *testing.T) {
	renderer := NewRenderer(t.TempDir(), nil)

	data, err := renderer.RenderBytes(JobCard{
		Record:       testRecord(),
		Instructions: map[int]string{0: "install before Friday"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	flat := map[string]bool{}
	for _, row := range rows {
		for _, cell := range row {
			flat[cell] = true
		}
	}

	assert.True(t, flat["Job Card"], "workbook carries the title")
	assert.True(t, flat["Jane Doe"], "client name present")
	assert.True(t, flat["1024"], "quote number present")
	assert.True(t, flat["Supply and install gate motor"], "first item present")
	assert.True(t, flat["install before Friday"], "instruction for the first item present")
	assert.True(t, flat["N/A"], "second item without instruction gets the marker")
	assert.True(t, flat["http://localhost/pdf-images/image_1_4.jpg"], "image URL present")
}

func TestRenderer_RenderBytesWithoutImages(t *testing.T) {
	renderer := NewRenderer(t.TempDir(), nil)

	record := testRecord()
	record.Images = nil

	data, err := renderer.RenderBytes(JobCard{Record: record})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)

	found := false
	for _, row := range rows {
		for _, cell := range row {
			if cell == "No images available." {
				found = true
			}
		}
	}
	assert.True(t, found, "expected the no-images marker")
}

func TestRenderer_RenderFile(t *testing.T) {
	dir := t.TempDir()
	renderer := NewRenderer(filepath.Join(dir, "job-cards"), nil)

	path, err := renderer.RenderFile(JobCard{Record: testRecord()})
	require.NoError(t, err)
	assert.Equal(t, "jc-1024-Jane_Doe.xlsx", filepath.Base(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
