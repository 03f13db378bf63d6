package ai

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reWhitespaceRun = regexp.MustCompile(`\s+`)
	reISOEmbedded   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// CleanOCRText flattens newlines and control characters out of a model-read
// string and collapses whitespace. It deliberately does NOT repair
// punctuation spacing ("( Pty )" stays as read) — rescuing that kind of noise
// is the fuzzy matcher's job, and fixing it here would hide real variants
// from the learning loop.
func CleanOCRText(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r < 0x20 || r == 0x7f {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(reWhitespaceRun.ReplaceAllString(b.String(), " "))
}

// ParseAmount parses a monetary string, tolerating currency symbols,
// thousands separators and EU decimal commas: "R 1,234.56" and "1.234,56"
// both come back as 1234.56.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "-" {
		return 0, fmt.Errorf("no digits in %q", s)
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	if lastComma > lastDot {
		// Comma is the decimal separator; dots (and earlier commas) group
		// thousands.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", strings.Count(cleaned, ","))
		if n := strings.Count(cleaned, "."); n > 1 {
			cleaned = strings.Replace(cleaned, ".", "", n-1)
		}
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	return strconv.ParseFloat(cleaned, 64)
}

// South African suppliers print dates a dozen ways; these cover every layout
// seen in real invoices, day-first where ambiguous.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02/01/06",
	"02-01-2006",
	"02.01.2006",
	"2 January 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// ParseDate parses an extracted date string, or returns nil when nothing
// fits. An ISO date embedded in a longer string (timestamps, "Date:
// 2026-02-14 10:30") is recognized as a last resort.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	if iso := reISOEmbedded.FindString(s); iso != "" {
		if t, err := time.Parse("2006-01-02", iso); err == nil {
			return &t
		}
	}
	return nil
}

// DetectMIMEType picks the payload MIME type from the file name, sniffing
// the PDF magic bytes as a tie-breaker.
func DetectMIMEType(fileName string, data []byte) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	if len(data) >= 4 && string(data[:4]) == "%PDF" {
		return "application/pdf"
	}
	return "application/pdf"
}

// normalizeExtraction makes the numbers on an extraction internally
// consistent:
//   - line amount = qty × rate when the model omitted it
//   - missing subtotal/total derived from the other plus tax
//   - tax-inclusive detection: when the line sum clearly tracks the gross
//     total rather than the net subtotal (outside a 5%-of-tax ambiguity band,
//     which defaults to exclusive), rates are scaled down by the net factor
//     so line amounts sum to the subtotal.
func normalizeExtraction(e *InvoiceExtraction) {
	for i := range e.LineItems {
		line := &e.LineItems[i]
		if line.Amount == 0 && line.Quantity != 0 && line.UnitPrice != 0 {
			line.Amount = FlexibleNumber(float64(line.Quantity) * float64(line.UnitPrice))
		}
	}

	sub := float64(e.Subtotal)
	tax := float64(e.TaxAmount)
	total := float64(e.TotalAmount)

	if total == 0 && sub != 0 {
		total = sub + tax
		e.TotalAmount = FlexibleNumber(total)
	}
	if sub == 0 && total != 0 {
		sub = total - tax
		e.Subtotal = FlexibleNumber(sub)
	}

	if tax <= 0 || total <= 0 || sub <= 0 || len(e.LineItems) == 0 {
		return
	}

	var lineSum float64
	for _, line := range e.LineItems {
		lineSum += float64(line.Amount)
	}
	if lineSum == 0 {
		return
	}

	band := 0.05 * tax
	inclusive := e.TaxInclusive || math.Abs(lineSum-total)+band < math.Abs(lineSum-sub)
	if !inclusive {
		return
	}

	factor := sub / total
	for i := range e.LineItems {
		line := &e.LineItems[i]
		line.UnitPrice = FlexibleNumber(float64(line.UnitPrice) * factor)
		line.Amount = FlexibleNumber(float64(line.Amount) * factor)
	}
	e.TaxInclusive = false
}

// validateExtraction rejects results with nothing to work with: no supplier
// name, no total and no lines means the model read a blank page.
func validateExtraction(e *InvoiceExtraction) error {
	if e.SupplierName == "" && e.TotalAmount == 0 && len(e.LineItems) == 0 {
		return fmt.Errorf("extraction produced no usable data")
	}
	return nil
}
