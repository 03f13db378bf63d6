package pipeline

import (
	"testing"

	"github.com/fynbos-digital/invoiceflow/internal/matching"
	"github.com/fynbos-digital/invoiceflow/internal/models"
)

func matchedImport() *models.OCRImport {
	return &models.OCRImport{
		Status:              models.ImportStatusNeedsReview,
		SupplierText:        "Chemco Trading (Pty) Ltd",
		SupplierCode:        "SUP-001",
		SupplierMatchStatus: string(matching.StatusAutoMatched),
		Lines: []models.OCRImportLine{
			{Description: "Industrial solvent 5L", ItemCode: "CHM-001", MatchStatus: string(matching.StatusAutoMatched), IsStock: true},
			{Description: "Drum deposit", ItemCode: "CHM-DEP", MatchStatus: string(matching.StatusConfirmed), IsStock: true},
		},
	}
}

func TestRecomputeStatusMatched(t *testing.T) {
	imp := matchedImport()
	if got := RecomputeStatus(imp); got != models.ImportStatusMatched {
		t.Errorf("status = %s, want Matched", got)
	}
}

func TestRecomputeStatusBlankRecordStaysPending(t *testing.T) {
	imp := &models.OCRImport{Status: models.ImportStatusPending}
	if got := RecomputeStatus(imp); got != models.ImportStatusPending {
		t.Errorf("status = %s, want Pending", got)
	}
}

func TestRecomputeStatusNeedsReviewOnUnmatchedSupplier(t *testing.T) {
	imp := matchedImport()
	imp.SupplierCode = ""
	imp.SupplierMatchStatus = string(matching.StatusUnmatched)
	if got := RecomputeStatus(imp); got != models.ImportStatusNeedsReview {
		t.Errorf("status = %s, want Needs Review", got)
	}
}

func TestRecomputeStatusSuggestedSupplierIsNotEnough(t *testing.T) {
	// A fuzzy supplier suggestion needs a human; suggested line items are
	// acceptable as long as they carry a code.
	imp := matchedImport()
	imp.SupplierMatchStatus = string(matching.StatusSuggested)
	imp.SupplierMatchScore = 91
	if got := RecomputeStatus(imp); got != models.ImportStatusNeedsReview {
		t.Errorf("status = %s, want Needs Review", got)
	}

	imp = matchedImport()
	imp.Lines[0].MatchStatus = string(matching.StatusSuggested)
	imp.Lines[0].MatchScore = 88
	if got := RecomputeStatus(imp); got != models.ImportStatusMatched {
		t.Errorf("status = %s, want Matched with suggested line", got)
	}
}

func TestRecomputeStatusUnmatchedLineBlocks(t *testing.T) {
	imp := matchedImport()
	imp.Lines[1].ItemCode = ""
	imp.Lines[1].MatchStatus = string(matching.StatusUnmatched)
	if got := RecomputeStatus(imp); got != models.ImportStatusNeedsReview {
		t.Errorf("status = %s, want Needs Review", got)
	}
}

func TestRecomputeStatusNoLinesBlocks(t *testing.T) {
	imp := matchedImport()
	imp.Lines = nil
	if got := RecomputeStatus(imp); got != models.ImportStatusNeedsReview {
		t.Errorf("status = %s, want Needs Review", got)
	}
}

func TestRecomputeStatusServiceLineNeedsExpenseAccount(t *testing.T) {
	imp := matchedImport()
	imp.Lines[0].IsStock = false
	imp.Lines[0].ExpenseAccount = ""
	if got := RecomputeStatus(imp); got != models.ImportStatusNeedsReview {
		t.Errorf("status = %s, want Needs Review for expense-less service line", got)
	}

	imp.Lines[0].ExpenseAccount = "Chemicals Expense"
	if got := RecomputeStatus(imp); got != models.ImportStatusMatched {
		t.Errorf("status = %s, want Matched once the expense account is set", got)
	}
}

func TestRecomputeStatusDocumentForcesCompleted(t *testing.T) {
	imp := matchedImport()
	imp.VendorBillRef = "BILL/2026/0042"
	if got := RecomputeStatus(imp); got != models.ImportStatusCompleted {
		t.Errorf("status = %s, want Completed", got)
	}

	// Even a record that would otherwise need review completes once a
	// document reference exists.
	imp = &models.OCRImport{
		Status:          models.ImportStatusNeedsReview,
		SupplierText:    "whoever",
		JournalEntryRef: "JE/2026/0007",
	}
	if got := RecomputeStatus(imp); got != models.ImportStatusCompleted {
		t.Errorf("status = %s, want Completed", got)
	}
}

func TestRecomputeStatusTerminalIsSticky(t *testing.T) {
	imp := matchedImport()
	imp.Status = models.ImportStatusCompleted
	imp.Lines[0].ItemCode = ""
	if got := RecomputeStatus(imp); got != models.ImportStatusCompleted {
		t.Errorf("Completed drifted to %s", got)
	}

	imp = matchedImport()
	imp.Status = models.ImportStatusError
	if got := RecomputeStatus(imp); got != models.ImportStatusError {
		t.Errorf("Error drifted to %s", got)
	}
}
