package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/fynbos-digital/invoiceflow/internal/matching"
	"github.com/fynbos-digital/invoiceflow/internal/models"
)

// The store is the production matching.Catalog.
var _ matching.Catalog = (*Store)(nil)

// SupplierAlias returns the supplier code an exact OCR text resolves to,
// or "" when no alias row exists.
func (s *Store) SupplierAlias(ctx context.Context, ocrText string) (string, error) {
	var alias models.SupplierAlias
	err := s.db.WithContext(ctx).Where("ocr_text = ?", ocrText).First(&alias).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return alias.SupplierCode, nil
}

// SupplierCodeByName resolves a canonical display name to its code. Disabled
// suppliers still resolve here: exact name recognition beats creating a
// duplicate. Only the fuzzy pool filters them out.
func (s *Store) SupplierCodeByName(ctx context.Context, name string) (string, error) {
	var supplier models.Supplier
	err := s.db.WithContext(ctx).Where("name = ?", name).Order("code ASC").First(&supplier).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return supplier.Code, nil
}

// SupplierCodeExists reports whether a supplier with that code exists.
func (s *Store) SupplierCodeExists(ctx context.Context, code string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Supplier{}).Where("code = ?", code).Count(&n).Error
	return n > 0, err
}

// SupplierCandidates builds the fuzzy pool: two labels per enabled supplier
// (code and display name, suppliers ordered by code), then every alias text
// ordered by text. The order is part of the matching contract — ties go to
// the first candidate seen.
func (s *Store) SupplierCandidates(ctx context.Context) ([]matching.Label, error) {
	var suppliers []models.Supplier
	if err := s.db.WithContext(ctx).Where("disabled = ?", false).Order("code ASC").Find(&suppliers).Error; err != nil {
		return nil, err
	}
	var aliases []models.SupplierAlias
	if err := s.db.WithContext(ctx).Order("ocr_text ASC").Find(&aliases).Error; err != nil {
		return nil, err
	}

	labels := make([]matching.Label, 0, len(suppliers)*2+len(aliases))
	for _, sup := range suppliers {
		labels = append(labels, matching.Label{Text: sup.Code, Code: sup.Code})
		labels = append(labels, matching.Label{Text: sup.Name, Code: sup.Code})
	}
	for _, a := range aliases {
		labels = append(labels, matching.Label{Text: a.OCRText, Code: a.SupplierCode})
	}
	return labels, nil
}

// ItemAlias returns the item code an exact OCR text resolves to, or "".
func (s *Store) ItemAlias(ctx context.Context, ocrText string) (string, error) {
	var alias models.ItemAlias
	err := s.db.WithContext(ctx).Where("ocr_text = ?", ocrText).First(&alias).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return alias.ItemCode, nil
}

// ItemCodeByName resolves a canonical item name to its code.
func (s *Store) ItemCodeByName(ctx context.Context, name string) (string, error) {
	var item models.Item
	err := s.db.WithContext(ctx).Where("name = ?", name).Order("code ASC").First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return item.Code, nil
}

// ItemCodeExists reports whether an item with that code exists.
func (s *Store) ItemCodeExists(ctx context.Context, code string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Item{}).Where("code = ?", code).Count(&n).Error
	return n > 0, err
}

// ItemCandidates mirrors SupplierCandidates for items.
func (s *Store) ItemCandidates(ctx context.Context) ([]matching.Label, error) {
	var items []models.Item
	if err := s.db.WithContext(ctx).Where("disabled = ?", false).Order("code ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	var aliases []models.ItemAlias
	if err := s.db.WithContext(ctx).Order("ocr_text ASC").Find(&aliases).Error; err != nil {
		return nil, err
	}

	labels := make([]matching.Label, 0, len(items)*2+len(aliases))
	for _, it := range items {
		labels = append(labels, matching.Label{Text: it.Code, Code: it.Code})
		labels = append(labels, matching.Label{Text: it.Name, Code: it.Code})
	}
	for _, a := range aliases {
		labels = append(labels, matching.Label{Text: a.OCRText, Code: a.ItemCode})
	}
	return labels, nil
}

// ServiceRules returns the mapping rows scoped to exactly
// (company, supplierCode); supplierCode "" selects the generic tier. Ordered
// by pattern so the matcher's longest-first stable sort breaks length ties
// the same way every run.
func (s *Store) ServiceRules(ctx context.Context, company, supplierCode string) ([]matching.Rule, error) {
	var mappings []models.ServiceMapping
	err := s.db.WithContext(ctx).
		Where("company = ? AND supplier_code = ?", company, supplierCode).
		Order("pattern ASC").
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}

	rules := make([]matching.Rule, 0, len(mappings))
	for _, m := range mappings {
		rules = append(rules, matching.Rule{
			Pattern:        m.Pattern,
			ItemCode:       m.ItemCode,
			ItemName:       m.ItemName,
			ExpenseAccount: m.ExpenseAccount,
			CostCenter:     m.CostCenter,
		})
	}
	return rules, nil
}
