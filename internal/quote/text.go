package quote

import (
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextExtractor pulls the plain-text content out of a quote PDF. It never
// returns an error: any failure degrades to an empty string so the
// orchestrator can still attempt image extraction.
type TextExtractor struct {
	maxTextSize int
	logger      *slog.Logger
}

// NewTextExtractor creates a text extractor with the default text cap.
func NewTextExtractor(logger *slog.Logger) *TextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextExtractor{
		maxTextSize: 10 * 1024 * 1024, // 10MB text limit
		logger:      logger,
	}
}

// ExtractText returns the document's extractable text, preserving the line
// breaks the content streams produce. Missing files, unparseable PDFs and
// per-page extraction failures all degrade to less (or no) text.
func (t *TextExtractor) ExtractText(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.logger.Warn("pdf does not exist", "path", path)
		return ""
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		t.logger.Warn("failed to open pdf for text extraction", "path", path, "error", err)
		return ""
	}
	defer f.Close()

	return t.readPages(r)
}

func (t *TextExtractor) readPages(r *pdf.Reader) string {
	var builder strings.Builder
	total := 0

	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		content := t.readPage(r, pageNum)
		if content == "" {
			continue
		}

		if total+len(content) > t.maxTextSize {
			remaining := t.maxTextSize - total
			if remaining > 0 {
				builder.WriteString(content[:remaining])
			}
			break
		}
		builder.WriteString(content)
		total += len(content)
	}

	return builder.String()
}

// readPage extracts one page's text, recovering from parser panics so a
// single bad page cannot abort the document.
func (t *TextExtractor) readPage(r *pdf.Reader, pageNum int) (content string) {
	defer func() {
		if recover() != nil {
			content = ""
		}
	}()

	page := r.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}

	content, err := page.GetPlainText(nil)
	if err != nil {
		t.logger.Debug("page text extraction failed", "page", pageNum, "error", err)
		return ""
	}
	return content
}
