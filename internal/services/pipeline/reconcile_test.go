package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/fynbos-digital/invoiceflow/internal/matching"
	"github.com/fynbos-digital/invoiceflow/internal/models"
)

const testCompany = "Fynbos Chemicals (Pty) Ltd"

// fakeCatalog is an in-memory matching.Catalog. Nil maps read as misses, so
// tests only populate what they exercise.
type fakeCatalog struct {
	supplierAliases map[string]string
	supplierNames   map[string]string
	supplierCodes   map[string]bool
	supplierLabels  []matching.Label

	itemAliases map[string]string
	itemNames   map[string]string
	itemCodes   map[string]bool
	itemLabels  []matching.Label

	rules map[string][]matching.Rule // company + "|" + supplierCode
}

func (f *fakeCatalog) SupplierAlias(ctx context.Context, text string) (string, error) {
	return f.supplierAliases[text], nil
}

func (f *fakeCatalog) SupplierCodeByName(ctx context.Context, name string) (string, error) {
	return f.supplierNames[name], nil
}

func (f *fakeCatalog) SupplierCodeExists(ctx context.Context, code string) (bool, error) {
	return f.supplierCodes[code], nil
}

func (f *fakeCatalog) SupplierCandidates(ctx context.Context) ([]matching.Label, error) {
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

func (f *fakeCatalog) ItemCandidates(ctx context.Context) ([]matching.Label, error) {
	return f.itemLabels, nil
}

func (f *fakeCatalog) ServiceRules(ctx context.Context, company, supplierCode string) ([]matching.Rule, error) {
	return f.rules[company+"|"+supplierCode], nil
}

type fakeItems struct {
	byCode map[string]*models.Item
}

func (f *fakeItems) ItemByCode(ctx context.Context, code string) (*models.Item, error) {
	return f.byCode[code], nil
}

type taxRecorder struct {
	calls []string // code:taxID
	err   error
}

func (r *taxRecorder) BackfillSupplierTaxID(ctx context.Context, code, taxID string) error {
	r.calls = append(r.calls, code+":"+taxID)
	return r.err
}

func newTestReconciler(catalog *fakeCatalog, items map[string]*models.Item, taxes TaxBackfiller) *Reconciler {
	m := matching.NewMatcher(catalog, matching.Config{FuzzyThreshold: 80, DefaultCompany: testCompany})
	return NewReconciler(m, &fakeItems{byCode: items}, taxes)
}

func TestReconcileSupplierExactBackfillsTaxID(t *testing.T) {
	catalog := &fakeCatalog{
		supplierNames: map[string]string{"Chemco Trading (Pty) Ltd": "SUP-001"},
	}
	sink := &taxRecorder{}
	r := newTestReconciler(catalog, nil, sink)

	imp := &models.OCRImport{
		Status:        models.ImportStatusPending,
		Company:       testCompany,
		SupplierText:  "Chemco Trading (Pty) Ltd",
		SupplierTaxID: "4220175614",
	}
	if err := r.Reconcile(context.Background(), imp); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if imp.SupplierCode != "SUP-001" {
		t.Errorf("SupplierCode = %q, want SUP-001", imp.SupplierCode)
	}
	if imp.SupplierMatchStatus != string(matching.StatusAutoMatched) {
		t.Errorf("SupplierMatchStatus = %q, want Auto Matched", imp.SupplierMatchStatus)
	}
	if imp.SupplierMatchScore != 0 {
		t.Errorf("SupplierMatchScore = %v, want 0 for exact", imp.SupplierMatchScore)
	}
	if len(sink.calls) != 1 || sink.calls[0] != "SUP-001:4220175614" {
		t.Errorf("tax backfill calls = %v, want exactly [SUP-001:4220175614]", sink.calls)
	}
}

func TestReconcileSupplierFuzzyDoesNotBackfill(t *testing.T) {
	catalog := &fakeCatalog{
		supplierLabels: []matching.Label{
			{Text: "SUP-001", Code: "SUP-001"},
			{Text: "Chemco Trading (Pty) Ltd", Code: "SUP-001"},
		},
	}
	sink := &taxRecorder{}
	r := newTestReconciler(catalog, nil, sink)

	imp := &models.OCRImport{
		Status:        models.ImportStatusPending,
		Company:       testCompany,
		SupplierText:  "Chemco Tradng ( Pty ) Ltd",
		SupplierTaxID: "4220175614",
	}
	if err := r.Reconcile(context.Background(), imp); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if imp.SupplierCode != "SUP-001" {
		t.Errorf("SupplierCode = %q, want SUP-001", imp.SupplierCode)
	}
	if imp.SupplierMatchStatus != string(matching.StatusSuggested) {
		t.Errorf("SupplierMatchStatus = %q, want Suggested", imp.SupplierMatchStatus)
	}
	if imp.SupplierMatchScore < 80 || imp.SupplierMatchScore > 100 {
		t.Errorf("SupplierMatchScore = %v, want within [80,100]", imp.SupplierMatchScore)
	}
	if len(sink.calls) != 0 {
		t.Errorf("fuzzy match must not backfill tax ids, got %v", sink.calls)
	}
}

func TestReconcileSupplierMissClearsStaleMatch(t *testing.T) {
	catalog := &fakeCatalog{
		supplierLabels: []matching.Label{{Text: "Chemco Trading (Pty) Ltd", Code: "SUP-001"}},
	}
	r := newTestReconciler(catalog, nil, nil)

	imp := &models.OCRImport{
		Status:              models.ImportStatusNeedsReview,
		Company:             testCompany,
		SupplierText:        "Quantum Fittings CC",
		SupplierCode:        "SUP-093",
		SupplierMatchStatus: string(matching.StatusAutoMatched),
		SupplierMatchScore:  77,
	}
	if err := r.Reconcile(context.Background(), imp); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if imp.SupplierCode != "" {
		t.Errorf("stale SupplierCode survived: %q", imp.SupplierCode)
	}
	if imp.SupplierMatchStatus != string(matching.StatusUnmatched) {
		t.Errorf("SupplierMatchStatus = %q, want Unmatched", imp.SupplierMatchStatus)
	}
	if imp.SupplierMatchScore != 0 {
		t.Errorf("SupplierMatchScore = %v, want 0", imp.SupplierMatchScore)
	}
}

func TestReconcileConfirmedSupplierUntouched(t *testing.T) {
	catalog := &fakeCatalog{
		supplierNames: map[string]string{"Chemco Trading (Pty) Ltd": "SUP-001"},
	}
	sink := &taxRecorder{}
	r := newTestReconciler(catalog, nil, sink)

	imp := &models.OCRImport{
		Status:              models.ImportStatusNeedsReview,
		Company:             testCompany,
		SupplierText:        "Chemco Trading (Pty) Ltd",
		SupplierTaxID:       "4220175614",
		SupplierCode:        "SUP-007",
		SupplierMatchStatus: string(matching.StatusConfirmed),
	}
	if err := r.Reconcile(context.Background(), imp); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if imp.SupplierCode != "SUP-007" {
		t.Errorf("confirmed supplier was re-matched to %q", imp.SupplierCode)
	}
	if imp.SupplierMatchStatus != string(matching.StatusConfirmed) {
		t.Errorf("SupplierMatchStatus = %q, want Confirmed", imp.SupplierMatchStatus)
	}
	if len(sink.calls) != 0 {
		t.Errorf("confirmed supplier must not trigger backfill, got %v", sink.calls)
	}
}

func TestReconcileTaxBackfillFailureIsNotFatal(t *testing.T) {
	catalog := &fakeCatalog{
		supplierNames: map[string]string{"Chemco Trading (Pty) Ltd": "SUP-001"},
	}
	sink := &taxRecorder{err: errors.New("backend down")}
	r := newTestReconciler(catalog, nil, sink)

	imp := &models.OCRImport{
		Status:        models.ImportStatusPending,
		Company:       testCompany,
		SupplierText:  "Chemco Trading (Pty) Ltd",
		SupplierTaxID: "4220175614",
	}
	if err := r.Reconcile(context.Background(), imp); err != nil {
		t.Fatalf("backfill failure should not fail reconcile: %v", err)
	}
	if imp.SupplierMatchStatus != string(matching.StatusAutoMatched) {
		t.Errorf("SupplierMatchStatus = %q, want Auto Matched", imp.SupplierMatchStatus)
	}
}

func TestReconcileLineCodeTextBeforeDescription(t *testing.T) {
	catalog := &fakeCatalog{
		itemCodes: map[string]bool{"CHM-001": true},
		itemNames: map[string]string{"Industrial Solvent 5L": "CHM-999"},
	}
	items := map[string]*models.Item{
		"CHM-001": {Code: "CHM-001", Name: "Industrial Solvent 5L (Drum)", IsStock: true},
	}
	r := newTestReconciler(catalog, items, nil)

	imp := &models.OCRImport{
		Status:  models.ImportStatusPending,
		Company: testCompany,
		Lines: []models.OCRImportLine{
			{Idx: 1, CodeText: "CHM-001", Description: "Industrial Solvent 5L"},
		},
	}
	if err := r.Reconcile(context.Background(), imp); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	line := imp.Lines[0]
	if line.ItemCode != "CHM-001" {
		t.Errorf("ItemCode = %q, want CHM-001 (printed code beats description)", line.ItemCode)
	}
	if line.MatchStatus != string(matching.StatusAutoMatched) {
		t.Errorf("MatchStatus = %q, want Auto Matched", line.MatchStatus)
	}
	if !line.IsStock {
		t.Error("IsStock not enriched from item master")
	}
	if line.ItemName != "Industrial Solvent 5L (Drum)" {
		t.Errorf("ItemName = %q", line.ItemName)
	}
}

func TestReconcileLineMappingBeatsFuzzy(t *testing.T) {
	catalog := &fakeCatalog{
		// Fuzzy would find DEL-99; the learned mapping must win first.
		itemLabels: []matching.Label{{Text: "Delivery Fee", Code: "DEL-99"}},
		rules: map[string][]matching.Rule{
			testCompany + "|": {
				{Pattern: "delivery fee", ItemCode: "DELIVERY", ItemName: "Delivery Charge", ExpenseAccount: "Freight and Forwarding", CostCenter: "Main"},
			},
		},
	}
	items := map[string]*models.Item{
		"DELIVERY": {Code: "DELIVERY", Name: "Delivery Charge", IsStock: false, ExpenseAccount: "Freight"},
	}
	r := newTestReconciler(catalog, items, nil)

	imp := &models.OCRImport{
		Status:  models.ImportStatusPending,
		Company: testCompany,
		Lines: []models.OCRImportLine{
			{Idx: 1, Description: "Delivery Fee - Standard"},
		},
	}
	if err := r.Reconcile(context.Background(), imp); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	line := imp.Lines[0]
	if line.ItemCode != "DELIVERY" {
		t.Errorf("ItemCode = %q, want DELIVERY from the mapping", line.ItemCode)
	}
	if line.MatchStatus != string(matching.StatusAutoMatched) {
		t.Errorf("MatchStatus = %q, want Auto Matched", line.MatchStatus)
	}
	if line.MatchScore != 0 {
		t.Errorf("MatchScore = %v, want 0 for a mapping hit", line.MatchScore)
	}
	if line.ExpenseAccount != "Freight and Forwarding" {
		t.Errorf("ExpenseAccount = %q, want the mapping's, not the item default", line.ExpenseAccount)
	}
	if line.CostCenter != "Main" {
		t.Errorf("CostCenter = %q, want Main", line.CostCenter)
	}
}

func TestReconcileLineFuzzySuggestion(t *testing.T) {
	catalog := &fakeCatalog{
		itemLabels: []matching.Label{
			{Text: "CHM-001", Code: "CHM-001"},
			{Text: "Industrial Solvent 5L", Code: "CHM-001"},
		},
	}
	items := map[string]*models.Item{
		"CHM-001": {Code: "CHM-001", Name: "Industrial Solvent 5L", IsStock: true},
	}
	r := newTestReconciler(catalog, items, nil)

	imp := &models.OCRImport{
		Status:  models.ImportStatusPending,
		Company: testCompany,
		Lines: []models.OCRImportLine{
			{Idx: 1, Description: "Industrial Solvant 5L"}, // OCR typo
		},
	}
	if err := r.Reconcile(context.Background(), imp); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	line := imp.Lines[0]
	if line.ItemCode != "CHM-001" {
		t.Errorf("ItemCode = %q, want CHM-001", line.ItemCode)
	}
	if line.MatchStatus != string(matching.StatusSuggested) {
		t.Errorf("MatchStatus = %q, want Suggested", line.MatchStatus)
	}
	if line.MatchScore < 80 || line.MatchScore > 100 {
		t.Errorf("MatchScore = %v, want within [80,100]", line.MatchScore)
	}
	if !line.IsStock {
		t.Error("IsStock not enriched from item master")
	}
}

func TestReconcileLineSecondaryMappingEnrichment(t *testing.T) {
	// The alias resolves the item but knows nothing about accounts; a mapping
	// learned for the same description fills in the expense side.
	catalog := &fakeCatalog{
		itemAliases: map[string]string{"Server Hosting": "HOST-001"},
		rules: map[string][]matching.Rule{
			testCompany + "|": {
				{Pattern: "server hosting", ItemCode: "HOST-001", ExpenseAccount: "IT Expenses", CostCenter: "Main"},
			},
		},
	}
	items := map[string]*models.Item{
		"HOST-001": {Code: "HOST-001", Name: "Hosting", IsStock: false},
	}
	r := newTestReconciler(catalog, items, nil)

	imp := &models.OCRImport{
		Status:  models.ImportStatusPending,
		Company: testCompany,
		Lines: []models.OCRImportLine{
			{Idx: 1, Description: "Server Hosting"},
		},
	}
	if err := r.Reconcile(context.Background(), imp); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	line := imp.Lines[0]
	if line.ItemCode != "HOST-001" || line.MatchStatus != string(matching.StatusAutoMatched) {
		t.Fatalf("alias match not applied: %q/%q", line.ItemCode, line.MatchStatus)
	}
	if line.ExpenseAccount != "IT Expenses" {
		t.Errorf("ExpenseAccount = %q, want IT Expenses from the mapping", line.ExpenseAccount)
	}
	if line.CostCenter != "Main" {
		t.Errorf("CostCenter = %q, want Main", line.CostCenter)
	}
}

func TestReconcileConfirmedLineUntouched(t *testing.T) {
	catalog := &fakeCatalog{
		itemNames: map[string]string{"Server Hosting": "HOST-999"},
	}
	r := newTestReconciler(catalog, nil, nil)

	imp := &models.OCRImport{
		Status:  models.ImportStatusNeedsReview,
		Company: testCompany,
		Lines: []models.OCRImportLine{
			{
				Idx:            1,
				Description:    "Server Hosting",
				ItemCode:       "HOST-001",
				ItemName:       "Hosting",
				MatchStatus:    string(matching.StatusConfirmed),
				ExpenseAccount: "IT Expenses",
			},
		},
	}
	if err := r.Reconcile(context.Background(), imp); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	line := imp.Lines[0]
	if line.ItemCode != "HOST-001" {
		t.Errorf("confirmed line re-matched to %q", line.ItemCode)
	}
	if line.ExpenseAccount != "IT Expenses" {
		t.Errorf("confirmed line lost its expense account: %q", line.ExpenseAccount)
	}
}

func TestReconcileResetsStaleLineState(t *testing.T) {
	r := newTestReconciler(&fakeCatalog{}, nil, nil)

	imp := &models.OCRImport{
		Status:  models.ImportStatusNeedsReview,
		Company: testCompany,
		Lines: []models.OCRImportLine{
			{
				Idx:            1,
				Description:    "Mystery line 123",
				ItemCode:       "OLD-001",
				ItemName:       "Old Item",
				MatchStatus:    string(matching.StatusAutoMatched),
				MatchScore:     42,
				ExpenseAccount: "Old Expense",
				CostCenter:     "Old CC",
				IsStock:        true,
			},
		},
	}
	if err := r.Reconcile(context.Background(), imp); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	line := imp.Lines[0]
	if line.ItemCode != "" || line.ItemName != "" || line.ExpenseAccount != "" || line.CostCenter != "" || line.IsStock {
		t.Errorf("stale derived fields survived: %+v", line)
	}
	if line.MatchStatus != string(matching.StatusUnmatched) || line.MatchScore != 0 {
		t.Errorf("match state not reset: %q/%v", line.MatchStatus, line.MatchScore)
	}
}

func TestReconcileDerivesStatus(t *testing.T) {
	catalog := &fakeCatalog{
		supplierNames: map[string]string{"Chemco Trading (Pty) Ltd": "SUP-001"},
		itemNames:     map[string]string{"Industrial Solvent 5L": "CHM-001"},
	}
	items := map[string]*models.Item{
		"CHM-001": {Code: "CHM-001", Name: "Industrial Solvent 5L", IsStock: true},
	}
	r := newTestReconciler(catalog, items, nil)

	imp := &models.OCRImport{
		Status:       models.ImportStatusPending,
		Company:      testCompany,
		SupplierText: "Chemco Trading (Pty) Ltd",
		Lines: []models.OCRImportLine{
			{Idx: 1, Description: "Industrial Solvent 5L"},
		},
	}
	if err := r.Reconcile(context.Background(), imp); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if imp.Status != models.ImportStatusMatched {
		t.Errorf("Status = %s, want Matched", imp.Status)
	}
}
