// Package store is the persistence layer shared by the pipeline, the HTTP
// handlers and the sync service: a query-centric wrapper around GORM. It also
// provides the read side of matching (catalog.go) and the learning writes
// (learning.go).
package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/fynbos-digital/invoiceflow/internal/models"
)

// Store wraps the database handle. Lookup misses are (nil, nil) — an error
// always means the database itself failed.
type Store struct {
	db *gorm.DB
}

// New creates a Store on top of an open GORM handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the raw handle for migrations and one-off admin tooling.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// ImportFilter narrows ListImports. Zero values mean "no filter".
type ImportFilter struct {
	Status       string
	Source       string
	SupplierCode string
	Search       string
	Limit        int
	Offset       int
}

// StatusCount is one row of the imports-by-status aggregate.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// CreateImport persists a new import together with its lines.
func (s *Store) CreateImport(ctx context.Context, imp *models.OCRImport) error {
	return s.db.WithContext(ctx).Create(imp).Error
}

// SaveImport updates the header fields of an existing import. Lines are
// written separately (SaveLine, ReplaceImportLines) so a header update never
// silently rewrites them.
func (s *Store) SaveImport(ctx context.Context, imp *models.OCRImport) error {
	return s.db.WithContext(ctx).Omit("Lines").Save(imp).Error
}

// SaveImportWithLines updates the header and every attached line in one
// transaction. The reconciler uses this after rewriting match state.
func (s *Store) SaveImportWithLines(ctx context.Context, imp *models.OCRImport) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(imp).Error; err != nil {
			return err
		}
		for i := range imp.Lines {
			imp.Lines[i].ImportID = imp.ID
			if err := tx.Save(&imp.Lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceImportLines drops an import's lines and writes a fresh set. Used on
// retry, when a new extraction supersedes the old line items.
func (s *Store) ReplaceImportLines(ctx context.Context, importID uint, lines []models.OCRImportLine) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("import_id = ?", importID).Delete(&models.OCRImportLine{}).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].ID = 0
			lines[i].ImportID = importID
			if err := tx.Create(&lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveLine persists a single line's match state.
func (s *Store) SaveLine(ctx context.Context, line *models.OCRImportLine) error {
	return s.db.WithContext(ctx).Save(line).Error
}

// LineByID loads one line, or (nil, nil) when it does not exist.
func (s *Store) LineByID(ctx context.Context, id uint) (*models.OCRImportLine, error) {
	var line models.OCRImportLine
	err := s.db.WithContext(ctx).First(&line, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// ImportByID loads an import with its lines in extraction order, or
// (nil, nil) when it does not exist.
func (s *Store) ImportByID(ctx context.Context, id uint) (*models.OCRImport, error) {
	var imp models.OCRImport
	err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("idx ASC") }).
		First(&imp, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// ImportByUUID is ImportByID keyed on the public identifier.
func (s *Store) ImportByUUID(ctx context.Context, uuid string) (*models.OCRImport, error) {
	var imp models.OCRImport
	err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("idx ASC") }).
		Where("uuid = ?", uuid).
		First(&imp).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// ListImports returns a page of imports (newest first, lines not loaded) and
// the total row count for the filter.
func (s *Store) ListImports(ctx context.Context, f ImportFilter) ([]models.OCRImport, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.OCRImport{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}
	if f.SupplierCode != "" {
		q = q.Where("supplier_code = ?", f.SupplierCode)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("file_name ILIKE ? OR supplier_text ILIKE ? OR invoice_number ILIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var imports []models.OCRImport
	err := q.Order("created_at DESC").Limit(limit).Offset(f.Offset).Find(&imports).Error
	return imports, total, err
}

// PendingImportIDs returns the ids of imports awaiting extraction, oldest
// first. The pipeline requeues these after a restart.
func (s *Store) PendingImportIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.OCRImport{}).
		Where("status = ?", models.ImportStatusPending).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// CountImportsByStatus aggregates the queue for the dashboard header.
func (s *Store) CountImportsByStatus(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	err := s.db.WithContext(ctx).Model(&models.OCRImport{}).
		Select("status, count(*) as count").
		Group("status").
		Order("status ASC").
		Find(&counts).Error
	return counts, err
}

// FindImportByHash returns an import with the given content hash, or
// (nil, nil). Used to reject duplicate files across all intake channels.
func (s *Store) FindImportByHash(ctx context.Context, hash string) (*models.OCRImport, error) {
	if hash == "" {
		return nil, nil
	}
	var imp models.OCRImport
	err := s.db.WithContext(ctx).Where("file_hash = ?", hash).First(&imp).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// FindImportByDriveFileID returns the import created for a Drive file, or
// (nil, nil).
func (s *Store) FindImportByDriveFileID(ctx context.Context, fileID string) (*models.OCRImport, error) {
	if fileID == "" {
		return nil, nil
	}
	var imp models.OCRImport
	err := s.db.WithContext(ctx).Where("drive_file_id = ?", fileID).First(&imp).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// FindImportByEmailMessageID returns the import created for a mail message,
// or (nil, nil).
func (s *Store) FindImportByEmailMessageID(ctx context.Context, messageID string) (*models.OCRImport, error) {
	if messageID == "" {
		return nil, nil
	}
	var imp models.OCRImport
	err := s.db.WithContext(ctx).Where("email_message_id = ?", messageID).First(&imp).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// DeleteImport removes an import, its lines and its extraction logs. The
// Drive poller uses this to clear an Error record before reprocessing.
func (s *Store) DeleteImport(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("import_id = ?", id).Delete(&models.OCRImportLine{}).Error; err != nil {
			return err
		}
		if err := tx.Where("import_id = ?", id).Delete(&models.ExtractionLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.OCRImport{}, id).Error
	})
}
