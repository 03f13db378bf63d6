package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FlexibleNumber is a float64 that also unmarshals from numeric strings the
// model occasionally emits ("1 234,56", "R 1,234.56", ""). Null and empty
// decode to zero.
type FlexibleNumber float64

// UnmarshalJSON accepts numbers, numeric strings and null.
func (f *FlexibleNumber) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexibleNumber(num)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("cannot unmarshal %s as number or string", string(data))
	}
	if strings.TrimSpace(str) == "" {
		*f = 0
		return nil
	}

	num, err := ParseAmount(str)
	if err != nil {
		return fmt.Errorf("cannot parse %q as amount: %w", str, err)
	}
	*f = FlexibleNumber(num)
	return nil
}

// ExtractedLine is one invoice line as returned by the vision model.
type ExtractedLine struct {
	ItemCode    string         `json:"item_code"`
	Description string         `json:"description"`
	Quantity    FlexibleNumber `json:"quantity"`
	UnitPrice   FlexibleNumber `json:"unit_price"`
	Amount      FlexibleNumber `json:"amount"`
}

// InvoiceExtraction is the structured result of one vision-model call, after
// cleanup and total normalization.
type InvoiceExtraction struct {
	SupplierName  string          `json:"supplier_name"`
	SupplierTaxID string          `json:"supplier_tax_id"`
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceDate   string          `json:"invoice_date"`
	DueDate       string          `json:"due_date"`
	Currency      string          `json:"currency"`
	Subtotal      FlexibleNumber  `json:"subtotal"`
	TaxAmount     FlexibleNumber  `json:"tax_amount"`
	TotalAmount   FlexibleNumber  `json:"total_amount"`
	TaxInclusive  bool            `json:"is_tax_inclusive"`
	LineItems     []ExtractedLine `json:"line_items"`
}

// CallInfo describes one model call for the extraction log. It is returned
// even when the call fails.
type CallInfo struct {
	Model    string
	Attempts int
	Duration time.Duration
}
