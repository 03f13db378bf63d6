package matching

import (
	"context"
)

// fakeCatalog is an in-memory Catalog for matcher tests. Candidate slices are
// returned as given, so tests control iteration order explicitly.
type fakeCatalog struct {
	supplierAliases map[string]string
	supplierNames   map[string]string
	supplierCodes   map[string]bool
	supplierLabels  []Label

	itemAliases map[string]string
	itemNames   map[string]string
	itemCodes   map[string]bool
	itemLabels  []Label

	rules map[string][]Rule // company + "|" + supplierCode
}

var _ Catalog = (*fakeCatalog)(nil)

func (f *fakeCatalog) SupplierAlias(ctx context.Context, text string) (string, error) {
	return f.supplierAliases[text], nil
}

func (f *fakeCatalog) SupplierCodeByName(ctx context.Context, name string) (string, error) {
	return f.supplierNames[name], nil
}

func (f *fakeCatalog) SupplierCodeExists(ctx context.Context, code string) (bool, error) {
	return f.supplierCodes[code], nil
}

func (f *fakeCatalog) SupplierCandidates(ctx context.Context) ([]Label, error) {
	return f.supplierLabels, nil
}

func (f *fakeCatalog) ItemAlias(ctx context.Context, text string) (string, error) {
	return f.itemAliases[text], nil
}

func (f *fakeCatalog) ItemCodeByName(ctx context.Context, name string) (string, error) {
	return f.itemNames[name], nil
}

func (f *fakeCatalog) ItemCodeExists(ctx context.Context, code string) (bool, error) {
	return f.itemCodes[code], nil
}

func (f *fakeCatalog) ItemCandidates(ctx context.Context) ([]Label, error) {
	return f.itemLabels, nil
}

func (f *fakeCatalog) ServiceRules(ctx context.Context, company, supplierCode string) ([]Rule, error) {
	return f.rules[company+"|"+supplierCode], nil
}

func newTestMatcher(catalog *fakeCatalog) *Matcher {
	return NewMatcher(catalog, Config{FuzzyThreshold: 80, DefaultCompany: "Fynbos Chemicals (Pty) Ltd"})
}
