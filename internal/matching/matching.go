// Package matching reconciles noisy OCR text against the cached master data.
// It is pure computation over a Catalog: misses are values, never errors, and
// nothing in here writes. The learning side (persisting confirmations as
// aliases and service mappings) lives in the pipeline package.
package matching

import (
	"context"
)

// Match statuses. Auto Matched means an exact/alias/service-mapping hit,
// Suggested a fuzzy hit above threshold, Confirmed a match the user accepted
// explicitly. Confirmed is never produced by the matchers themselves.
type MatchStatus string

const (
	StatusUnmatched   MatchStatus = "Unmatched"
	StatusAutoMatched MatchStatus = "Auto Matched"
	StatusSuggested   MatchStatus = "Suggested"
	StatusConfirmed   MatchStatus = "Confirmed"
)

// Config carries the knobs the matchers need. It is passed in explicitly;
// there is no ambient/global matcher state.
type Config struct {
	// FuzzyThreshold is the default minimum similarity (0-100 scale) for a
	// fuzzy candidate to be suggested.
	FuzzyThreshold float64
	// DefaultCompany scopes service-mapping lookups when the caller has no
	// company on the record.
	DefaultCompany string
}

// Result is the outcome of a supplier or item match attempt.
type Result struct {
	Code   string      `json:"code"`
	Status MatchStatus `json:"status"`
	Score  float64     `json:"score"`
}

// ServiceMatch is the bundle a service-mapping hit applies to a line.
type ServiceMatch struct {
	ItemCode       string      `json:"itemCode"`
	ItemName       string      `json:"itemName"`
	ExpenseAccount string      `json:"expenseAccount"`
	CostCenter     string      `json:"costCenter"`
	Status         MatchStatus `json:"status"`
}

// Label is one fuzzy candidate: a text to compare against and the code it
// resolves to. Entities contribute their code and display name, aliases their
// stored OCR text.
type Label struct {
	Text string
	Code string
}

// Rule is one service-mapping row as the matcher sees it.
type Rule struct {
	Pattern        string
	ItemCode       string
	ItemName       string
	ExpenseAccount string
	CostCenter     string
}

// Catalog is the read-side the matchers run against. Implementations must
// return candidates and rules in a deterministic order (the store orders by
// code and alias text) so fuzzy tie-breaking is reproducible. Lookup misses
// are ("", nil) / (false, nil) — an error means the store itself failed.
type Catalog interface {
	SupplierAlias(ctx context.Context, ocrText string) (string, error)
	SupplierCodeByName(ctx context.Context, name string) (string, error)
	SupplierCodeExists(ctx context.Context, code string) (bool, error)
	SupplierCandidates(ctx context.Context) ([]Label, error)

	ItemAlias(ctx context.Context, ocrText string) (string, error)
	ItemCodeByName(ctx context.Context, name string) (string, error)
	ItemCodeExists(ctx context.Context, code string) (bool, error)
	ItemCandidates(ctx context.Context) ([]Label, error)

	// ServiceRules returns the mapping rows scoped to exactly
	// (company, supplierCode); supplierCode "" selects the generic tier.
	ServiceRules(ctx context.Context, company, supplierCode string) ([]Rule, error)
}

// Matcher runs the tiered matching strategy against a Catalog.
type Matcher struct {
	catalog Catalog
	cfg     Config
}

// NewMatcher creates a Matcher. A zero FuzzyThreshold falls back to 80.
func NewMatcher(catalog Catalog, cfg Config) *Matcher {
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = 80
	}
	return &Matcher{catalog: catalog, cfg: cfg}
}

// Config returns the matcher's configuration.
func (m *Matcher) Config() Config {
	return m.cfg
}
