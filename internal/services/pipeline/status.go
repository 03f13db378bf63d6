package pipeline

import (
	"github.com/fynbos-digital/invoiceflow/internal/matching"
	"github.com/fynbos-digital/invoiceflow/internal/models"
)

// RecomputeStatus derives the workflow status from an import's current match
// state. Pure function of the record; the caller assigns the result. It runs
// after every change that can affect matching — extraction, reconcile,
// confirmation, document creation.
//
// Completed and Error are sticky: once terminal, the answer never changes.
// A terminal document reference forces Completed no matter what else the
// record says.
func RecomputeStatus(imp *models.OCRImport) string {
	switch imp.Status {
	case models.ImportStatusCompleted, models.ImportStatusError:
		return imp.Status
	}

	if imp.HasDocument() {
		return models.ImportStatusCompleted
	}

	supplierOK := imp.SupplierCode != "" &&
		(imp.SupplierMatchStatus == string(matching.StatusAutoMatched) ||
			imp.SupplierMatchStatus == string(matching.StatusConfirmed))

	// Matched needs at least one line; every line needs an identifier; every
	// matched non-stock line needs an expense account (stock items post from
	// the item master).
	itemsOK := len(imp.Lines) > 0
	itemsReady := true
	for i := range imp.Lines {
		line := &imp.Lines[i]
		if line.ItemCode == "" {
			itemsOK = false
			continue
		}
		if !line.IsStock && line.ExpenseAccount == "" {
			itemsReady = false
		}
	}

	if supplierOK && itemsOK && itemsReady {
		return models.ImportStatusMatched
	}

	// Extraction produced something reviewable.
	if imp.SupplierText != "" || len(imp.Lines) > 0 {
		return models.ImportStatusNeedsReview
	}

	return imp.Status
}
