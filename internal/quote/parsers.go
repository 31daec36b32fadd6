package quote

import (
	"regexp"
	"strings"
)

// The quoting tool emits a semi-stable layout: labels are fixed but their
// order varies and optional sections can be absent. Each parser therefore
// works through an ordered list of alternatives, most specific first, and
// the first pattern that matches wins. A parser never fails; a miss becomes
// the not-available marker or the placeholder item.
type patternCascade []*regexp.Regexp

// first returns the submatches of the first pattern in the cascade that
// matches text, or nil when none do.
func (c patternCascade) first(text string) []string {
	for _, re := range c {
		if m := re.FindStringSubmatch(text); m != nil {
			return m
		}
	}
	return nil
}

var (
	// Recipient label alternatives in priority order: the addressed-to form
	// beats the for-attention form when a document carries both.
	clientNamePatterns = patternCascade{
		regexp.MustCompile(`(?s)TO\s*(.*?)\s*EMAIL`),
		regexp.MustCompile(`(?s)FOR\s*(.*?)\s*EMAIL`),
	}
	clientEmailPattern   = regexp.MustCompile(`EMAIL\s*(\S+)`)
	clientAddressPattern = regexp.MustCompile(`(?s)ADDRESS\s*(.*?)\s*PHONE`)
	clientPhonePattern   = regexp.MustCompile(`PHONE\s*([\d\s()\-]+)`)

	quoteNumberPattern = regexp.MustCompile(`QUOTE NUMBER\s*(\d+)`)
	quoteDatePattern   = regexp.MustCompile(`DATE\s*(\d{1,2} \w+ \d{4})`)
	expiryDatePattern  = regexp.MustCompile(`EXPIRY DATE\s*(\d{1,2} \w+ \d{4})`)

	// Bounding strategies for the line-item region. The closing marker
	// depends on the document variant: quotes with an exclusions section end
	// there, older ones run straight into the total.
	lineItemSectionPatterns = patternCascade{
		regexp.MustCompile(`(?s)Hope to hear from you soon\.(.*?)EXCLUSIONS`),
		regexp.MustCompile(`(?s)Hope to hear from you soon\.(.*?)Total`),
	}
	lineItemPattern = regexp.MustCompile(`(?s)(.*?)(\d{1,3}[,.]?\d{1,3}[,.]?\d{1,3}\.\d{2})`)

	totalQuotePattern        = regexp.MustCompile(`Total\s*R([\d,]+\.\d{2})`)
	acceptanceSectionPattern = regexp.MustCompile(`(?s)Accepted on(.*?)ACCEPTED`)
	acceptancePattern        = regexp.MustCompile(`by\s*(.*?)(\d{1,2} \w+ \d{4} at \d{1,2}:\d{2} \w{2})`)
)

// ParseClientInfo recovers the recipient block: name between the recipient
// and email labels, address between the address and phone labels, phone as
// a digits/spaces/parens/hyphens token.
func ParseClientInfo(rawText string) ClientInfo {
	info := defaultClientInfo()

	if m := clientNamePatterns.first(rawText); m != nil {
		info.Name = strings.TrimSpace(m[1])
	}
	if m := clientEmailPattern.FindStringSubmatch(rawText); m != nil {
		info.Email = strings.TrimSpace(m[1])
	}
	if m := clientAddressPattern.FindStringSubmatch(rawText); m != nil {
		info.Address = strings.TrimSpace(m[1])
	}
	if m := clientPhonePattern.FindStringSubmatch(rawText); m != nil {
		info.Phone = strings.TrimSpace(m[1])
	}

	return info
}

// ParseQuoteInfo recovers the quote number and the two document dates.
func ParseQuoteInfo(rawText string) QuoteInfo {
	info := defaultQuoteInfo()

	if m := quoteNumberPattern.FindStringSubmatch(rawText); m != nil {
		info.QuoteNumber = strings.TrimSpace(m[1])
	}
	if m := quoteDatePattern.FindStringSubmatch(rawText); m != nil {
		info.QuoteDate = strings.TrimSpace(m[1])
	}
	if m := expiryDatePattern.FindStringSubmatch(rawText); m != nil {
		info.ExpiryDate = strings.TrimSpace(m[1])
	}

	return info
}

// ParseLineItems recovers the priced rows from the bounded item region.
// Both a missing region and a region with no currency-terminated segments
// yield the single placeholder item, so callers always see at least one row.
func ParseLineItems(rawText string) []LineItem {
	placeholder := []LineItem{{ItemName: PlaceholderItemName, TotalPrice: PlaceholderItemPrice}}

	section := lineItemSectionPatterns.first(rawText)
	if section == nil || strings.TrimSpace(section[1]) == "" {
		return placeholder
	}

	matches := lineItemPattern.FindAllStringSubmatch(section[1], -1)
	var items []LineItem
	for _, m := range matches {
		price := strings.TrimSpace(m[2])
		if price == "" {
			continue
		}
		items = append(items, LineItem{
			ItemName:   strings.TrimSpace(m[1]),
			TotalPrice: price,
		})
	}

	if len(items) == 0 {
		return placeholder
	}
	return items
}

// ParseAdditionalInfo recovers the grand total and, when the quote was
// accepted online, the accepting party and timestamp.
func ParseAdditionalInfo(rawText string) AdditionalInfo {
	info := defaultAdditionalInfo()

	if m := totalQuotePattern.FindStringSubmatch(rawText); m != nil {
		info.TotalQuote = m[1]
	}

	section := acceptanceSectionPattern.FindStringSubmatch(rawText)
	if section == nil {
		return info
	}

	if m := acceptancePattern.FindStringSubmatch(section[1]); m != nil {
		info.AcceptanceInfo.AcceptedBy = strings.TrimSpace(m[1])
		info.AcceptanceInfo.AcceptanceDate = strings.TrimSpace(m[2])
	}

	return info
}
