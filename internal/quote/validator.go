package quote

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// UploadValidator checks that an uploaded file is a quote PDF worth handing
// to the extraction pipeline: a regular, non-empty .pdf under the size cap
// that actually opens as a PDF.
type UploadValidator struct {
	maxFileSize int64
}

// NewUploadValidator creates a validator enforcing maxFileSize bytes.
func NewUploadValidator(maxFileSize int64) *UploadValidator {
	return &UploadValidator{maxFileSize: maxFileSize}
}

// ValidateFile reports whether the file at req.Path is a readable quote
// PDF. An invalid file comes back as a result with Valid false, not as an
// error.
func (v *UploadValidator) ValidateFile(req QuoteValidateFileRequest) (*QuoteValidateFileResult, error) {
	result := &QuoteValidateFileResult{Path: req.Path}

	if err := v.check(req.Path); err != nil {
		result.Message = err.Error()
		return result, nil
	}

	result.Valid = true
	return result, nil
}

// IsValidPDF is the boolean form of ValidateFile.
func (v *UploadValidator) IsValidPDF(path string) bool {
	return v.check(path) == nil
}

func (v *UploadValidator) check(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty: %s", path)
	}
	if info.Size() > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), v.maxFileSize)
	}

	f, _, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("invalid PDF file: %w", err)
	}
	return f.Close()
}
