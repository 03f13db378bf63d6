package odoo

import (
	"context"
	"fmt"
	"log"

	"github.com/fynbos-digital/invoiceflow/internal/models"
)

// Document creation: matched imports are posted to Odoo as account.move
// records. Vendor bills and goods receipts use the invoice line model;
// journal entries are built as balanced debit/credit pairs against the
// configured payable and tax accounts.

// CreateVendorBill posts the import as a supplier invoice and returns the
// document name assigned by Odoo.
func (s *Service) CreateVendorBill(ctx context.Context, imp *models.OCRImport) (string, error) {
	return s.createInvoiceMove(ctx, imp, "in_invoice")
}

// CreateGoodsReceipt posts the import as a purchase receipt.
func (s *Service) CreateGoodsReceipt(ctx context.Context, imp *models.OCRImport) (string, error) {
	return s.createInvoiceMove(ctx, imp, "in_receipt")
}

func (s *Service) createInvoiceMove(ctx context.Context, imp *models.OCRImport, moveType string) (string, error) {
	if err := s.ensureAuth(); err != nil {
		return "", err
	}
	partnerID, err := s.partnerID(ctx, imp.SupplierCode)
	if err != nil {
		return "", err
	}

	lines := make([]interface{}, 0, len(imp.Lines))
	for i := range imp.Lines {
		line := &imp.Lines[i]
		vals := map[string]interface{}{
			"name":       line.Description,
			"quantity":   line.Quantity,
			"price_unit": line.Rate,
		}
		if line.ItemCode != "" {
			item, err := s.store.ItemByCode(ctx, line.ItemCode)
			if err != nil {
				return "", err
			}
			if item != nil && item.OdooID > 0 {
				vals["product_id"] = item.OdooID
			}
		}
		if line.ExpenseAccount != "" {
			accountID, err := s.accountID(line.ExpenseAccount)
			if err != nil {
				return "", err
			}
			vals["account_id"] = accountID
		}
		lines = append(lines, []interface{}{0, 0, vals})
	}

	vals := map[string]interface{}{
		"move_type":        moveType,
		"partner_id":       partnerID,
		"ref":              imp.InvoiceNumber,
		"invoice_line_ids": lines,
	}
	if imp.InvoiceDate != nil {
		vals["invoice_date"] = imp.InvoiceDate.Format("2006-01-02")
	}
	if imp.DueDate != nil {
		vals["invoice_date_due"] = imp.DueDate.Format("2006-01-02")
	}

	moveID, err := s.client.Create("account.move", vals)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", moveType, err)
	}
	if err := s.client.CallMethod("account.move", "action_post", []int64{moveID}); err != nil {
		return "", fmt.Errorf("move %d created but posting failed: %w", moveID, err)
	}
	return s.moveName(moveID), nil
}

// CreateJournalEntry posts the import as a balanced journal entry: one debit
// per line against its expense account, a debit for the tax amount, and a
// single credit against the payable account. Every line must carry an
// expense account; stock lines without one cannot be represented this way.
func (s *Service) CreateJournalEntry(ctx context.Context, imp *models.OCRImport) (string, error) {
	if err := s.ensureAuth(); err != nil {
		return "", err
	}
	partnerID, err := s.partnerID(ctx, imp.SupplierCode)
	if err != nil {
		return "", err
	}
	payableID, err := s.accountID(s.cfg.PayableAccount)
	if err != nil {
		return "", err
	}

	var total float64
	lines := make([]interface{}, 0, len(imp.Lines)+2)
	for i := range imp.Lines {
		line := &imp.Lines[i]
		if line.ExpenseAccount == "" {
			return "", fmt.Errorf("line %d has no expense account; journal entries need one on every line", line.Idx)
		}
		accountID, err := s.accountID(line.ExpenseAccount)
		if err != nil {
			return "", err
		}
		lines = append(lines, []interface{}{0, 0, map[string]interface{}{
			"account_id": accountID,
			"partner_id": partnerID,
			"name":       line.Description,
			"debit":      line.Amount,
			"credit":     0.0,
		}})
		total += line.Amount
	}
	if imp.TaxAmount > 0 {
		taxID, err := s.accountID(s.cfg.TaxAccount)
		if err != nil {
			return "", err
		}
		lines = append(lines, []interface{}{0, 0, map[string]interface{}{
			"account_id": taxID,
			"partner_id": partnerID,
			"name":       "Tax on " + imp.InvoiceNumber,
			"debit":      imp.TaxAmount,
			"credit":     0.0,
		}})
		total += imp.TaxAmount
	}
	// Credit the debit sum, not the extracted total: the entry must balance
	// even when the scan's arithmetic does not.
	lines = append(lines, []interface{}{0, 0, map[string]interface{}{
		"account_id": payableID,
		"partner_id": partnerID,
		"name":       imp.InvoiceNumber,
		"debit":      0.0,
		"credit":     total,
	}})

	vals := map[string]interface{}{
		"move_type": "entry",
		"ref":       imp.InvoiceNumber,
		"line_ids":  lines,
	}
	if imp.InvoiceDate != nil {
		vals["date"] = imp.InvoiceDate.Format("2006-01-02")
	}

	moveID, err := s.client.Create("account.move", vals)
	if err != nil {
		return "", fmt.Errorf("failed to create journal entry: %w", err)
	}
	if err := s.client.CallMethod("account.move", "action_post", []int64{moveID}); err != nil {
		return "", fmt.Errorf("move %d created but posting failed: %w", moveID, err)
	}
	return s.moveName(moveID), nil
}

// UpdateSupplierTaxID writes a learned tax ID to the vendor record, but only
// when the field is still empty upstream. Odoo stays authoritative.
func (s *Service) UpdateSupplierTaxID(ctx context.Context, supplierCode, taxID string) error {
	if taxID == "" {
		return nil
	}
	if err := s.ensureAuth(); err != nil {
		return err
	}
	supplier, err := s.store.SupplierByCode(ctx, supplierCode)
	if err != nil {
		return err
	}
	if supplier == nil || supplier.OdooID == 0 {
		return nil
	}

	var partners []models.OdooPartner
	domain := []interface{}{[]interface{}{"id", "=", supplier.OdooID}}
	if err := s.client.SearchRead("res.partner", domain, []string{"name", "vat"}, 1, 0, &partners); err != nil {
		return err
	}
	if len(partners) == 0 {
		return fmt.Errorf("supplier %s (odoo id %d) not found upstream", supplierCode, supplier.OdooID)
	}
	if partners[0].Vat.String() != "" {
		return nil
	}

	if err := s.client.Write("res.partner", []int64{supplier.OdooID}, map[string]interface{}{"vat": taxID}); err != nil {
		return err
	}
	log.Printf("✅ Odoo: tax ID pushed for supplier %s", supplierCode)
	return nil
}

// partnerID resolves a local supplier code to the Odoo partner id.
func (s *Service) partnerID(ctx context.Context, supplierCode string) (int64, error) {
	if supplierCode == "" {
		return 0, fmt.Errorf("import has no supplier")
	}
	supplier, err := s.store.SupplierByCode(ctx, supplierCode)
	if err != nil {
		return 0, err
	}
	if supplier == nil {
		return 0, fmt.Errorf("unknown supplier %q", supplierCode)
	}
	if supplier.OdooID == 0 {
		return 0, fmt.Errorf("supplier %s has no upstream record", supplierCode)
	}
	return supplier.OdooID, nil
}

// accountID resolves an account by code, falling back to the display name.
// Synced items carry the numeric code; configured defaults may use either.
func (s *Service) accountID(account string) (int64, error) {
	if account == "" {
		return 0, fmt.Errorf("no account configured")
	}
	var accounts []struct {
		ID int64 `json:"id" xmlrpc:"id"`
	}
	domain := []interface{}{
		"|",
		[]interface{}{"code", "=", account},
		[]interface{}{"name", "=", account},
	}
	if err := s.client.SearchRead("account.account", domain, []string{"id"}, 1, 0, &accounts); err != nil {
		return 0, fmt.Errorf("account lookup %q failed: %w", account, err)
	}
	if len(accounts) == 0 {
		return 0, fmt.Errorf("no account %q in the books", account)
	}
	return accounts[0].ID, nil
}

// moveName fetches the document name Odoo assigned on posting, e.g.
// BILL/2026/08/0042. The id is a usable fallback if the read fails.
func (s *Service) moveName(moveID int64) string {
	var moves []struct {
		Name string `json:"name" xmlrpc:"name"`
	}
	domain := []interface{}{[]interface{}{"id", "=", moveID}}
	if err := s.client.SearchRead("account.move", domain, []string{"name"}, 1, 0, &moves); err != nil || len(moves) == 0 {
		return fmt.Sprintf("account.move,%d", moveID)
	}
	return moves[0].Name
}
