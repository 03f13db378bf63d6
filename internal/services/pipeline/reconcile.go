package pipeline

import (
	"context"
	"log"
	"strings"

	"github.com/fynbos-digital/invoiceflow/internal/matching"
	"github.com/fynbos-digital/invoiceflow/internal/models"
)

// ItemReader is the slice of the store the reconciler enriches lines from.
type ItemReader interface {
	ItemByCode(ctx context.Context, code string) (*models.Item, error)
}

// TaxBackfiller receives the extracted tax registration number when the
// supplier was recognized exactly. Implementations must never overwrite a
// number already on file.
type TaxBackfiller interface {
	BackfillSupplierTaxID(ctx context.Context, supplierCode, taxID string) error
}

// Reconciler runs the matcher chain over one import: supplier first, then
// every line. It mutates the record in memory and recomputes its status; the
// caller persists. User confirmations are final — a re-run never downgrades
// a Confirmed supplier or line.
type Reconciler struct {
	matcher *matching.Matcher
	items   ItemReader
	taxes   TaxBackfiller
}

// NewReconciler wires the matcher chain. taxes may be nil, which disables
// tax-ID backfill.
func NewReconciler(matcher *matching.Matcher, items ItemReader, taxes TaxBackfiller) *Reconciler {
	return &Reconciler{matcher: matcher, items: items, taxes: taxes}
}

// Reconcile matches the supplier and all lines, then derives the status.
func (r *Reconciler) Reconcile(ctx context.Context, imp *models.OCRImport) error {
	if err := r.reconcileSupplier(ctx, imp); err != nil {
		return err
	}
	for i := range imp.Lines {
		if err := r.reconcileLine(ctx, imp, &imp.Lines[i]); err != nil {
			return err
		}
	}
	imp.Status = RecomputeStatus(imp)
	return nil
}

func (r *Reconciler) reconcileSupplier(ctx context.Context, imp *models.OCRImport) error {
	if imp.SupplierMatchStatus == string(matching.StatusConfirmed) {
		return nil
	}

	text := strings.TrimSpace(imp.SupplierText)

	res, err := r.matcher.MatchSupplier(ctx, text)
	if err != nil {
		return err
	}
	if res.Status == matching.StatusAutoMatched {
		imp.SupplierCode = res.Code
		imp.SupplierMatchStatus = string(res.Status)
		imp.SupplierMatchScore = 0

		// Exact recognition is the only trust level at which the extracted
		// tax number may be attached to the supplier record.
		if imp.SupplierTaxID != "" && r.taxes != nil {
			if err := r.taxes.BackfillSupplierTaxID(ctx, res.Code, imp.SupplierTaxID); err != nil {
				log.Printf("⚠️ Tax ID backfill for %s failed: %v", res.Code, err)
			}
		}
		return nil
	}

	fuzzy, err := r.matcher.MatchSupplierFuzzy(ctx, text, r.matcher.Config().FuzzyThreshold)
	if err != nil {
		return err
	}
	imp.SupplierCode = fuzzy.Code
	imp.SupplierMatchStatus = string(fuzzy.Status)
	imp.SupplierMatchScore = fuzzy.Score
	return nil
}

func (r *Reconciler) reconcileLine(ctx context.Context, imp *models.OCRImport, line *models.OCRImportLine) error {
	if line.MatchStatus == string(matching.StatusConfirmed) {
		return nil
	}

	// Re-runs recompute everything derived; only extracted fields survive.
	line.ItemCode = ""
	line.ItemName = ""
	line.MatchStatus = string(matching.StatusUnmatched)
	line.MatchScore = 0
	line.ExpenseAccount = ""
	line.CostCenter = ""
	line.IsStock = false

	viaMapping := false

	// Tier 1: the code printed on the invoice, when it says more than the
	// description does.
	if code := strings.TrimSpace(line.CodeText); code != "" && code != strings.TrimSpace(line.Description) {
		res, err := r.matcher.MatchItem(ctx, code)
		if err != nil {
			return err
		}
		if res.Status == matching.StatusAutoMatched {
			line.ItemCode = res.Code
			line.MatchStatus = string(res.Status)
		}
	}

	// Tier 2: exact on the description.
	if line.ItemCode == "" {
		res, err := r.matcher.MatchItem(ctx, line.Description)
		if err != nil {
			return err
		}
		if res.Status == matching.StatusAutoMatched {
			line.ItemCode = res.Code
			line.MatchStatus = string(res.Status)
		}
	}

	// Tier 3: learned service mapping, scoped to the resolved supplier.
	if line.ItemCode == "" {
		m, err := r.matcher.MatchServiceItem(ctx, line.Description, imp.Company, imp.SupplierCode)
		if err != nil {
			return err
		}
		if m != nil {
			line.ItemCode = m.ItemCode
			line.ItemName = m.ItemName
			line.ExpenseAccount = m.ExpenseAccount
			line.CostCenter = m.CostCenter
			line.MatchStatus = string(m.Status)
			viaMapping = true
		}
	}

	// Tier 4: fuzzy suggestion.
	if line.ItemCode == "" {
		res, err := r.matcher.MatchItemFuzzy(ctx, line.Description, r.matcher.Config().FuzzyThreshold)
		if err != nil {
			return err
		}
		if res.Status == matching.StatusSuggested {
			line.ItemCode = res.Code
			line.MatchStatus = string(res.Status)
			line.MatchScore = res.Score
		}
	}

	if line.ItemCode == "" {
		return nil
	}

	// Enrich from the item master: display name, stock flag, and the item's
	// default expense account when the line has none yet.
	item, err := r.items.ItemByCode(ctx, line.ItemCode)
	if err != nil {
		return err
	}
	if item != nil {
		if line.ItemName == "" {
			line.ItemName = item.Name
		}
		line.IsStock = item.IsStock
		if line.ExpenseAccount == "" {
			line.ExpenseAccount = item.ExpenseAccount
		}
	}

	// Secondary enrichment: an alias/fuzzy match resolves the item but not
	// the accounting fields; a mapping for the same description may still
	// know them.
	if !viaMapping && line.ExpenseAccount == "" {
		m, err := r.matcher.MatchServiceItem(ctx, line.Description, imp.Company, imp.SupplierCode)
		if err != nil {
			return err
		}
		if m != nil {
			line.ExpenseAccount = m.ExpenseAccount
			if line.CostCenter == "" {
				line.CostCenter = m.CostCenter
			}
		}
	}

	return nil
}
