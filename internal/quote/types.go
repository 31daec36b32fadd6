package quote

import "github.com/esserdigital/prquotes/internal/imagestore"

// NotAvailable is the sentinel substituted for any field whose expected
// label or shape is absent from the source text.
const NotAvailable = "N/A"

// Placeholder line item returned when no items can be recovered, whether the
// items section is missing entirely or present but empty. Downstream
// rendering treats both the same way.
const (
	PlaceholderItemName  = "No line items found"
	PlaceholderItemPrice = "0.00"
)

// ClientInfo is the recipient block of a quote document.
type ClientInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// QuoteInfo carries the quote identity fields. QuoteNumber is numeric but
// kept as text: it is display data here, not an arithmetic value.
type QuoteInfo struct {
	QuoteNumber string `json:"quote_number"`
	QuoteDate   string `json:"quote_date"`
	ExpiryDate  string `json:"expiry_date"`
}

// LineItem is one priced row of the quote, in document reading order.
// TotalPrice keeps the document's formatting (thousands separators, two
// decimal cents).
type LineItem struct {
	ItemName   string `json:"item_name"`
	TotalPrice string `json:"total_price"`
}

// AcceptanceInfo records who accepted the quote and when.
type AcceptanceInfo struct {
	AcceptedBy     string `json:"accepted_by"`
	AcceptanceDate string `json:"acceptance_date"`
}

// AdditionalInfo holds the grand total and acceptance metadata.
type AdditionalInfo struct {
	TotalQuote     string         `json:"total_quote"`
	AcceptanceInfo AcceptanceInfo `json:"acceptance_info"`
}

// ExtractedRecord is the structured output of one extraction run. All five
// sections are always present; a section whose extraction failed holds its
// not-available defaults. Empty is true only when neither text nor images
// could be recovered from the document.
type ExtractedRecord struct {
	ClientInfo     ClientInfo       `json:"client_info"`
	QuoteInfo      QuoteInfo        `json:"quote_info"`
	Items          []LineItem       `json:"items"`
	AdditionalInfo AdditionalInfo   `json:"additional_info"`
	Images         []imagestore.Ref `json:"images"`
	SourcePath     string           `json:"source_path"`
	Empty          bool             `json:"empty,omitempty"`
}

// EmptyRecord returns the sentinel failure record for sourcePath, with every
// section defaulted.
func EmptyRecord(sourcePath string) ExtractedRecord {
	return ExtractedRecord{
		ClientInfo:     defaultClientInfo(),
		QuoteInfo:      defaultQuoteInfo(),
		Items:          []LineItem{{ItemName: PlaceholderItemName, TotalPrice: PlaceholderItemPrice}},
		AdditionalInfo: defaultAdditionalInfo(),
		Images:         []imagestore.Ref{},
		SourcePath:     sourcePath,
		Empty:          true,
	}
}

func defaultClientInfo() ClientInfo {
	return ClientInfo{Name: NotAvailable, Address: NotAvailable, Email: NotAvailable, Phone: NotAvailable}
}

func defaultQuoteInfo() QuoteInfo {
	return QuoteInfo{QuoteNumber: NotAvailable, QuoteDate: NotAvailable, ExpiryDate: NotAvailable}
}

func defaultAdditionalInfo() AdditionalInfo {
	return AdditionalInfo{
		TotalQuote: NotAvailable,
		AcceptanceInfo: AcceptanceInfo{
			AcceptedBy:     NotAvailable,
			AcceptanceDate: NotAvailable,
		},
	}
}

// QuoteExtractFileRequest asks for a full extraction of one quote PDF.
type QuoteExtractFileRequest struct {
	Path string `json:"path"`
}

// QuoteExtractFileResult is the outcome of one extraction run.
type QuoteExtractFileResult struct {
	Path      string          `json:"path"`
	Record    ExtractedRecord `json:"record"`
	TextBytes int             `json:"text_bytes"`
	NewImages int             `json:"new_images"`
}

// QuoteValidateFileRequest asks whether a file is a readable quote PDF.
type QuoteValidateFileRequest struct {
	Path string `json:"path"`
}

// QuoteValidateFileResult reports validation outcome. An invalid file is a
// result, not an error.
type QuoteValidateFileResult struct {
	Path    string `json:"path"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// QuoteDeleteImageRequest asks for an extracted image to be tombstoned.
type QuoteDeleteImageRequest struct {
	URL string `json:"url"`
}

// QuoteDeleteImageResult reports the outcome of a deletion. Deleting an
// image that is no longer active fails softly: Deleted is false and Message
// explains why, with no error raised.
type QuoteDeleteImageResult struct {
	URL     string `json:"url"`
	Deleted bool   `json:"deleted"`
	Message string `json:"message,omitempty"`
}

// FileInfo describes one PDF in the upload directory.
type FileInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}
