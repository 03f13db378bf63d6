package ai

import (
	"encoding/json"
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"123.45", 123.45},
		{"1,234.56", 1234.56},
		{"1.234,56", 1234.56},
		{"1 234,56", 1234.56},
		{"R 12,345.00", 12345.00},
		{"R12.50", 12.50},
		{"-15.00", -15.00},
		{"1.234.567,89", 1234567.89},
		{"1,234,567.89", 1234567.89},
		{"42", 42},
	}
	for _, c := range cases {
		got, err := ParseAmount(c.in)
		if err != nil {
			t.Errorf("ParseAmount(%q) error: %v", c.in, err)
			continue
		}
		if !almostEqual(got, c.want) {
			t.Errorf("ParseAmount(%q) = %v, want %v", c.in, got, c.want)
		}
	}

	if got, err := ParseAmount(""); err != nil || got != 0 {
		t.Errorf("ParseAmount(\"\") = %v, %v, want 0, nil", got, err)
	}
	if _, err := ParseAmount("N/A"); err == nil {
		t.Error("ParseAmount(\"N/A\") should fail, got nil error")
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string // ISO date, empty means expect nil
	}{
		{"2026-02-14", "2026-02-14"},
		{"14/02/2026", "2026-02-14"},
		{"14/02/26", "2026-02-14"},
		{"14-02-2026", "2026-02-14"},
		{"14.02.2026", "2026-02-14"},
		{"5 February 2026", "2026-02-05"},
		{"February 5, 2026", "2026-02-05"},
		{"5 Feb 2026", "2026-02-05"},
		{"Date: 2026-02-14 10:30:00", "2026-02-14"},
		{"", ""},
		{"next Tuesday", ""},
	}
	for _, c := range cases {
		got := ParseDate(c.in)
		if c.want == "" {
			if got != nil {
				t.Errorf("ParseDate(%q) = %v, want nil", c.in, got)
			}
			continue
		}
		if got == nil {
			t.Errorf("ParseDate(%q) = nil, want %s", c.in, c.want)
			continue
		}
		if iso := got.Format("2006-01-02"); iso != c.want {
			t.Errorf("ParseDate(%q) = %s, want %s", c.in, iso, c.want)
		}
	}
}

func TestCleanOCRText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Chemco   Trading  ", "Chemco Trading"},
		{"Chemco\x0cTrading\x00Ltd", "Chemco Trading Ltd"},
		{"Line1\nLine2\tEnd", "Line1 Line2 End"},
		// Punctuation spacing is left alone: rescuing "( Pty )" is the
		// fuzzy matcher's job, not the text cleaner's.
		{"Cape Timber ( Pty ) Ltd", "Cape Timber ( Pty ) Ltd"},
		{"", ""},
	}
	for _, c := range cases {
		if got := CleanOCRText(c.in); got != c.want {
			t.Errorf("CleanOCRText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDetectMIMEType(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"invoice.pdf", nil, "application/pdf"},
		{"scan.PNG", nil, "image/png"},
		{"photo.jpeg", nil, "image/jpeg"},
		{"photo.jpg", nil, "image/jpeg"},
		{"anim.gif", nil, "image/gif"},
		{"pic.webp", nil, "image/webp"},
		{"attachment.bin", []byte("%PDF-1.7 rest"), "application/pdf"},
		{"attachment.bin", []byte("GIF8 nope"), "application/pdf"},
	}
	for _, c := range cases {
		if got := DetectMIMEType(c.name, c.data); got != c.want {
			t.Errorf("DetectMIMEType(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestFlexibleNumberUnmarshal(t *testing.T) {
	var payload struct {
		V FlexibleNumber `json:"v"`
	}
	cases := []struct {
		in   string
		want float64
	}{
		{`{"v": 12.5}`, 12.5},
		{`{"v": "12.5"}`, 12.5},
		{`{"v": "1.234,56"}`, 1234.56},
		{`{"v": "R 1,234.56"}`, 1234.56},
		{`{"v": ""}`, 0},
		{`{"v": null}`, 0},
	}
	for _, c := range cases {
		payload.V = 0
		if err := json.Unmarshal([]byte(c.in), &payload); err != nil {
			t.Errorf("unmarshal %s: %v", c.in, err)
			continue
		}
		if !almostEqual(float64(payload.V), c.want) {
			t.Errorf("unmarshal %s = %v, want %v", c.in, float64(payload.V), c.want)
		}
	}

	if err := json.Unmarshal([]byte(`{"v": "garbage"}`), &payload); err == nil {
		t.Error("unmarshal of non-numeric string should fail")
	}
}

func TestStripFences(t *testing.T) {
	plain := `{"supplier_name": "Acme"}`
	fenced := "```json\n" + plain + "\n```"
	bare := "```\n" + plain + "\n```"

	if got := stripFences(plain); got != plain {
		t.Errorf("stripFences(plain) = %q", got)
	}
	if got := stripFences(fenced); got != plain {
		t.Errorf("stripFences(fenced) = %q", got)
	}
	if got := stripFences(bare); got != plain {
		t.Errorf("stripFences(bare fence) = %q", got)
	}
}

func TestDecodeExtraction(t *testing.T) {
	raw := "```json\n" + `{
		"supplier_name": "Chemco\fTrading (Pty) Ltd",
		"supplier_tax_id": " 4220175614 ",
		"invoice_number": "INV-2026-001",
		"invoice_date": "14/02/2026",
		"currency": "zar",
		"subtotal": "1.000,00",
		"tax_amount": 150,
		"total_amount": 1150,
		"is_tax_inclusive": false,
		"line_items": [
			{"item_code": "CHM-001", "description": "Industrial solvent 5L", "quantity": 4, "unit_price": 250, "amount": 0},
			{"item_code": "", "description": "", "quantity": 0, "unit_price": 0, "amount": 0}
		]
	}` + "\n```"

	e, err := DecodeExtraction(raw)
	if err != nil {
		t.Fatalf("DecodeExtraction failed: %v", err)
	}

	if e.SupplierName != "Chemco Trading (Pty) Ltd" {
		t.Errorf("SupplierName = %q", e.SupplierName)
	}
	if e.SupplierTaxID != "4220175614" {
		t.Errorf("SupplierTaxID = %q", e.SupplierTaxID)
	}
	if e.Currency != "ZAR" {
		t.Errorf("Currency = %q, want ZAR", e.Currency)
	}
	if !almostEqual(float64(e.Subtotal), 1000) {
		t.Errorf("Subtotal = %v, want 1000", float64(e.Subtotal))
	}
	if len(e.LineItems) != 1 {
		t.Fatalf("LineItems = %d, want 1 (blank line dropped)", len(e.LineItems))
	}
	// Amount backfilled from qty × rate.
	if !almostEqual(float64(e.LineItems[0].Amount), 1000) {
		t.Errorf("line amount = %v, want 1000", float64(e.LineItems[0].Amount))
	}
}

func TestDecodeExtractionRejectsEmpty(t *testing.T) {
	if _, err := DecodeExtraction(`{"supplier_name": "", "total_amount": 0, "line_items": []}`); err == nil {
		t.Error("expected error for extraction with no usable data")
	}
	if _, err := DecodeExtraction("not json at all"); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestNormalizeTaxInclusive(t *testing.T) {
	// Line amounts sum to the gross total: clearly tax-inclusive, so rates
	// get scaled down by the net factor.
	e := &InvoiceExtraction{
		SupplierName: "Acme",
		Subtotal:     1000,
		TaxAmount:    150,
		TotalAmount:  1150,
		LineItems: []ExtractedLine{
			{Description: "Widget A", Quantity: 1, UnitPrice: 575, Amount: 575},
			{Description: "Widget B", Quantity: 1, UnitPrice: 575, Amount: 575},
		},
	}
	normalizeExtraction(e)

	var sum float64
	for _, line := range e.LineItems {
		sum += float64(line.Amount)
	}
	if !almostEqual(sum, 1000) {
		t.Errorf("inclusive lines should sum to subtotal, got %v", sum)
	}
	if !almostEqual(float64(e.LineItems[0].UnitPrice), 500) {
		t.Errorf("unit price = %v, want 500", float64(e.LineItems[0].UnitPrice))
	}
	if e.TaxInclusive {
		t.Error("TaxInclusive should be cleared after normalization")
	}
}

func TestNormalizeTaxExclusiveUntouched(t *testing.T) {
	e := &InvoiceExtraction{
		SupplierName: "Acme",
		Subtotal:     1000,
		TaxAmount:    150,
		TotalAmount:  1150,
		LineItems: []ExtractedLine{
			{Description: "Widget A", Quantity: 2, UnitPrice: 500, Amount: 1000},
		},
	}
	normalizeExtraction(e)

	if !almostEqual(float64(e.LineItems[0].Amount), 1000) {
		t.Errorf("exclusive line amount changed: %v", float64(e.LineItems[0].Amount))
	}
	if !almostEqual(float64(e.LineItems[0].UnitPrice), 500) {
		t.Errorf("exclusive unit price changed: %v", float64(e.LineItems[0].UnitPrice))
	}
}

func TestNormalizeExplicitInclusiveFlag(t *testing.T) {
	// Line sum 215 sits between subtotal 200 and total 230, slightly nearer
	// the subtotal, so the proximity heuristic alone says exclusive. The
	// model's flag overrides that.
	build := func(inclusive bool) *InvoiceExtraction {
		return &InvoiceExtraction{
			SupplierName: "Acme",
			Subtotal:     200,
			TaxAmount:    30,
			TotalAmount:  230,
			TaxInclusive: inclusive,
			LineItems: []ExtractedLine{
				{Description: "Service", Quantity: 1, UnitPrice: 215, Amount: 215},
			},
		}
	}

	unflagged := build(false)
	normalizeExtraction(unflagged)
	if !almostEqual(float64(unflagged.LineItems[0].Amount), 215) {
		t.Errorf("without flag, amount = %v, want 215", float64(unflagged.LineItems[0].Amount))
	}

	flagged := build(true)
	normalizeExtraction(flagged)
	want := 215.0 * 200.0 / 230.0
	if !almostEqual(float64(flagged.LineItems[0].Amount), want) {
		t.Errorf("with flag, amount = %v, want %v", float64(flagged.LineItems[0].Amount), want)
	}
}

func TestNormalizeFillsMissingTotals(t *testing.T) {
	e := &InvoiceExtraction{
		SupplierName: "Acme",
		Subtotal:     100,
		TaxAmount:    15,
		LineItems: []ExtractedLine{
			{Description: "Thing", Quantity: 1, UnitPrice: 100, Amount: 100},
		},
	}
	normalizeExtraction(e)
	if !almostEqual(float64(e.TotalAmount), 115) {
		t.Errorf("TotalAmount = %v, want 115", float64(e.TotalAmount))
	}

	e2 := &InvoiceExtraction{
		SupplierName: "Acme",
		TaxAmount:    15,
		TotalAmount:  115,
	}
	normalizeExtraction(e2)
	if !almostEqual(float64(e2.Subtotal), 100) {
		t.Errorf("Subtotal = %v, want 100", float64(e2.Subtotal))
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []string{
		"googleapi: Error 429: Resource has been exhausted",
		"rpc error: code = Unavailable desc = service overloaded",
		"googleapi: Error 503: backend error",
	}
	for _, msg := range retryable {
		if !isRetryable(errString(msg)) {
			t.Errorf("isRetryable(%q) = false, want true", msg)
		}
	}
	if isRetryable(errString("googleapi: Error 400: invalid argument")) {
		t.Error("400 should not be retryable")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
