package store

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fynbos-digital/invoiceflow/internal/models"
)

// Columns the sync owns. Everything else (created_at, the local primary key)
// stays untouched on conflict.
var supplierSyncColumns = []string{"name", "tax_id", "odoo_id", "disabled", "last_synced_at", "updated_at"}
var itemSyncColumns = []string{"name", "is_stock", "expense_account", "odoo_id", "disabled", "last_synced_at", "updated_at"}

// UpsertSuppliers writes a batch of synced suppliers keyed on code. Row
// failures are logged and skipped so one bad record does not abort a sync.
// Returns the number of rows written.
func (s *Store) UpsertSuppliers(ctx context.Context, suppliers []models.Supplier) (int, error) {
	count := 0
	for i := range suppliers {
		suppliers[i].LastSyncedAt = time.Now()
		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns(supplierSyncColumns),
		}).Create(&suppliers[i]).Error; err != nil {
			log.Printf("Failed to save supplier %s: %v", suppliers[i].Code, err)
		} else {
			count++
		}
	}
	return count, nil
}

// UpsertItems writes a batch of synced items keyed on code.
func (s *Store) UpsertItems(ctx context.Context, items []models.Item) (int, error) {
	count := 0
	for i := range items {
		items[i].LastSyncedAt = time.Now()
		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns(itemSyncColumns),
		}).Create(&items[i]).Error; err != nil {
			log.Printf("Failed to save item %s: %v", items[i].Code, err)
		} else {
			count++
		}
	}
	return count, nil
}

// MarkSuppliersStale disables synced suppliers that a full sync did not
// touch, i.e. ones deleted or archived upstream. Locally seeded rows
// (odoo_id = 0) are never touched.
func (s *Store) MarkSuppliersStale(ctx context.Context, syncStart time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Supplier{}).
		Where("odoo_id > 0 AND last_synced_at < ? AND disabled = ?", syncStart, false).
		Update("disabled", true)
	return res.RowsAffected, res.Error
}

// MarkItemsStale mirrors MarkSuppliersStale for items.
func (s *Store) MarkItemsStale(ctx context.Context, syncStart time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Item{}).
		Where("odoo_id > 0 AND last_synced_at < ? AND disabled = ?", syncStart, false).
		Update("disabled", true)
	return res.RowsAffected, res.Error
}

// Suppliers lists all suppliers ordered by code.
func (s *Store) Suppliers(ctx context.Context) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	err := s.db.WithContext(ctx).Order("code ASC").Find(&suppliers).Error
	return suppliers, err
}

// SupplierByCode loads one supplier, or (nil, nil) when it does not exist.
func (s *Store) SupplierByCode(ctx context.Context, code string) (*models.Supplier, error) {
	if code == "" {
		return nil, nil
	}
	var supplier models.Supplier
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&supplier).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

// Items lists all items ordered by code.
func (s *Store) Items(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := s.db.WithContext(ctx).Order("code ASC").Find(&items).Error
	return items, err
}

// ItemByCode loads one item, or (nil, nil) when it does not exist.
func (s *Store) ItemByCode(ctx context.Context, code string) (*models.Item, error) {
	if code == "" {
		return nil, nil
	}
	var item models.Item
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateSupplierTaxIDIfEmpty backfills a supplier's tax registration number
// from an extracted invoice, but never overwrites one already on file.
// Returns whether the row changed.
func (s *Store) UpdateSupplierTaxIDIfEmpty(ctx context.Context, code, taxID string) (bool, error) {
	if code == "" || taxID == "" {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Supplier{}).
		Where("code = ? AND (tax_id IS NULL OR tax_id = '')", code).
		Update("tax_id", taxID)
	return res.RowsAffected > 0, res.Error
}
