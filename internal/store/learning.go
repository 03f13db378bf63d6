package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm/clause"

	"github.com/fynbos-digital/invoiceflow/internal/models"
)

// LearnSupplierAlias records ocrText -> supplierCode unless an alias for that
// exact text already exists. First write wins; a later confirmation of the
// same text is a no-op even if it points somewhere else. Returns whether a
// row was actually inserted.
func (s *Store) LearnSupplierAlias(ctx context.Context, ocrText, supplierCode, source string) (bool, error) {
	ocrText = strings.TrimSpace(ocrText)
	if ocrText == "" || supplierCode == "" {
		return false, nil
	}
	if source == "" {
		source = models.AliasSourceAuto
	}
	alias := models.SupplierAlias{OCRText: ocrText, SupplierCode: supplierCode, Source: source}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ocr_text"}},
		DoNothing: true,
	}).Create(&alias)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// LearnItemAlias is LearnSupplierAlias for the item namespace.
func (s *Store) LearnItemAlias(ctx context.Context, ocrText, itemCode, source string) (bool, error) {
	ocrText = strings.TrimSpace(ocrText)
	if ocrText == "" || itemCode == "" {
		return false, nil
	}
	if source == "" {
		source = models.AliasSourceAuto
	}
	alias := models.ItemAlias{OCRText: ocrText, ItemCode: itemCode, Source: source}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ocr_text"}},
		DoNothing: true,
	}).Create(&alias)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpsertServiceMapping writes a mapping keyed on (pattern, company, supplier
// code), overwriting the item and accounting fields when the key exists.
// Unlike aliases, mappings relearn: the latest confirmation is the best
// knowledge about a recurring charge.
func (s *Store) UpsertServiceMapping(ctx context.Context, m *models.ServiceMapping) error {
	if m.Pattern == "" || m.Company == "" || m.ItemCode == "" {
		return fmt.Errorf("service mapping requires pattern, company and item code")
	}
	if m.Source == "" {
		m.Source = models.AliasSourceAuto
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pattern"}, {Name: "company"}, {Name: "supplier_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"item_code", "item_name", "expense_account", "cost_center", "source", "updated_at"}),
	}).Create(m).Error
}

// SupplierAliases lists all supplier aliases for the admin API.
func (s *Store) SupplierAliases(ctx context.Context) ([]models.SupplierAlias, error) {
	var aliases []models.SupplierAlias
	err := s.db.WithContext(ctx).Order("ocr_text ASC").Find(&aliases).Error
	return aliases, err
}

// ItemAliases lists all item aliases for the admin API.
func (s *Store) ItemAliases(ctx context.Context) ([]models.ItemAlias, error) {
	var aliases []models.ItemAlias
	err := s.db.WithContext(ctx).Order("ocr_text ASC").Find(&aliases).Error
	return aliases, err
}

// DeleteSupplierAlias removes one alias row.
func (s *Store) DeleteSupplierAlias(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.SupplierAlias{}, id).Error
}

// DeleteItemAlias removes one alias row.
func (s *Store) DeleteItemAlias(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.ItemAlias{}, id).Error
}

// ServiceMappings lists mappings, optionally scoped to a company.
func (s *Store) ServiceMappings(ctx context.Context, company string) ([]models.ServiceMapping, error) {
	q := s.db.WithContext(ctx).Model(&models.ServiceMapping{})
	if company != "" {
		q = q.Where("company = ?", company)
	}
	var mappings []models.ServiceMapping
	err := q.Order("company ASC, supplier_code ASC, pattern ASC").Find(&mappings).Error
	return mappings, err
}

// DeleteServiceMapping removes one mapping row.
func (s *Store) DeleteServiceMapping(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.ServiceMapping{}, id).Error
}
