package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fynbos-digital/invoiceflow/internal/matching"
	"github.com/fynbos-digital/invoiceflow/internal/models"
)

// guardMutable rejects writes to imports the workflow considers final.
func guardMutable(imp *models.OCRImport, importID uint) error {
	if imp == nil {
		return fmt.Errorf("import %d not found", importID)
	}
	if imp.Status == models.ImportStatusCompleted || imp.HasDocument() {
		return fmt.Errorf("import %d is completed and can no longer be changed", importID)
	}
	if imp.Status == models.ImportStatusError {
		return fmt.Errorf("import %d is in Error state; retry it first", importID)
	}
	return nil
}

// ConfirmSupplier pins the import to the given supplier, learns the OCR text
// as an alias, and re-reconciles the lines: supplier-specific mappings may
// apply now that the supplier is known.
func (s *Service) ConfirmSupplier(ctx context.Context, importID uint, supplierCode string) (*models.OCRImport, error) {
	imp, err := s.store.ImportByID(ctx, importID)
	if err != nil {
		return nil, err
	}
	if err := guardMutable(imp, importID); err != nil {
		return nil, err
	}

	supplier, err := s.store.SupplierByCode(ctx, supplierCode)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, fmt.Errorf("unknown supplier code %q", supplierCode)
	}

	imp.SupplierCode = supplier.Code
	imp.SupplierMatchStatus = string(matching.StatusConfirmed)
	imp.SupplierMatchScore = 0

	if text := strings.TrimSpace(imp.SupplierText); text != "" {
		learned, err := s.store.LearnSupplierAlias(ctx, text, supplier.Code, models.AliasSourceAuto)
		if err != nil {
			return nil, err
		}
		if learned {
			log.Printf("✅ Learned supplier alias %q for %s", text, supplier.Code)
		}
	}

	// The supplier context changed, so unconfirmed lines get another pass.
	for i := range imp.Lines {
		if err := s.reconciler.reconcileLine(ctx, imp, &imp.Lines[i]); err != nil {
			return nil, err
		}
	}

	imp.Status = RecomputeStatus(imp)
	if err := s.store.SaveImportWithLines(ctx, imp); err != nil {
		return nil, err
	}
	s.notify(imp)
	return imp, nil
}

// ConfirmLine pins one line to the given item, learns the description as an
// item alias, and — when the line ends up with an expense account — upserts a
// service mapping so the next similar description matches automatically.
// expenseAccount and costCenter are optional overrides.
func (s *Service) ConfirmLine(ctx context.Context, importID, lineID uint, itemCode, expenseAccount, costCenter string) (*models.OCRImport, error) {
	imp, err := s.store.ImportByID(ctx, importID)
	if err != nil {
		return nil, err
	}
	if err := guardMutable(imp, importID); err != nil {
		return nil, err
	}

	var line *models.OCRImportLine
	for i := range imp.Lines {
		if imp.Lines[i].ID == lineID {
			line = &imp.Lines[i]
			break
		}
	}
	if line == nil {
		return nil, fmt.Errorf("line %d not found on import %d", lineID, importID)
	}

	item, err := s.store.ItemByCode(ctx, itemCode)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("unknown item code %q", itemCode)
	}

	line.ItemCode = item.Code
	line.ItemName = item.Name
	line.MatchStatus = string(matching.StatusConfirmed)
	line.MatchScore = 0
	line.IsStock = item.IsStock

	switch {
	case expenseAccount != "":
		line.ExpenseAccount = expenseAccount
	case line.ExpenseAccount == "":
		line.ExpenseAccount = item.ExpenseAccount
	}
	if costCenter != "" {
		line.CostCenter = costCenter
	}

	if desc := strings.TrimSpace(line.Description); desc != "" {
		learned, err := s.store.LearnItemAlias(ctx, desc, item.Code, models.AliasSourceAuto)
		if err != nil {
			return nil, err
		}
		if learned {
			log.Printf("✅ Learned item alias %q for %s", desc, item.Code)
		}
	}

	// Only lines that carry accounting detail are worth a mapping: an item
	// code alone is already covered by the alias.
	if line.ExpenseAccount != "" {
		if pattern := matching.ExtractPattern(line.Description); pattern != "" {
			company := imp.Company
			if company == "" {
				company = s.cfg.DefaultCompany
			}
			mapping := &models.ServiceMapping{
				Pattern:        pattern,
				Company:        company,
				SupplierCode:   imp.SupplierCode,
				ItemCode:       item.Code,
				ItemName:       item.Name,
				ExpenseAccount: line.ExpenseAccount,
				CostCenter:     line.CostCenter,
				Source:         models.AliasSourceAuto,
			}
			if err := s.store.UpsertServiceMapping(ctx, mapping); err != nil {
				return nil, err
			}
			log.Printf("✅ Learned service mapping %q -> %s", pattern, item.Code)
		}
	}

	imp.Status = RecomputeStatus(imp)
	if err := s.store.SaveImportWithLines(ctx, imp); err != nil {
		return nil, err
	}
	s.notify(imp)
	return imp, nil
}
