// Package intake brings invoice documents into the pipeline, whatever the
// channel: manual upload, mailbox polling or a watched Drive folder. All
// channels funnel through Register, which owns file storage, de-duplication
// and queueing.
package intake

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/fynbos-digital/invoiceflow/internal/models"
	"github.com/fynbos-digital/invoiceflow/internal/services/pipeline"
	"github.com/fynbos-digital/invoiceflow/internal/store"
)

// Service stores inbound documents and creates their import records.
type Service struct {
	store      *store.Store
	pipeline   *pipeline.Service
	storageDir string
}

// NewService creates the intake service and ensures the storage directory
// exists.
func NewService(st *store.Store, pl *pipeline.Service, storageDir string) (*Service, error) {
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Service{store: st, pipeline: pl, storageDir: storageDir}, nil
}

// Registration is one inbound document, whatever the channel.
type Registration struct {
	Source         string
	FileName       string
	Data           []byte
	DriveFileID    string
	EmailMessageID string
}

// Register stores the file, creates a Pending import and queues it for
// processing. A document seen before — same channel id or same content hash —
// returns the existing import with created=false instead of a duplicate.
func (s *Service) Register(ctx context.Context, reg Registration) (*models.OCRImport, bool, error) {
	if len(reg.Data) == 0 {
		return nil, false, fmt.Errorf("empty file")
	}

	hash := hashBytes(reg.Data)

	if reg.DriveFileID != "" {
		existing, err := s.store.FindImportByDriveFileID(ctx, reg.DriveFileID)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	if reg.EmailMessageID != "" {
		existing, err := s.store.FindImportByEmailMessageID(ctx, reg.EmailMessageID)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	existing, err := s.store.FindImportByHash(ctx, hash)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	id := uuid.New().String()
	path := filepath.Join(s.storageDir, id+storageExt(reg.FileName))
	if err := os.WriteFile(path, reg.Data, 0o644); err != nil {
		return nil, false, fmt.Errorf("failed to store file: %w", err)
	}

	imp := &models.OCRImport{
		UUID:           id,
		Source:         reg.Source,
		FileName:       reg.FileName,
		FilePath:       path,
		FileHash:       hash,
		DriveFileID:    reg.DriveFileID,
		EmailMessageID: reg.EmailMessageID,
		Status:         models.ImportStatusPending,
	}
	if err := s.store.CreateImport(ctx, imp); err != nil {
		os.Remove(path)
		return nil, false, err
	}

	log.Printf("📦 Registered %s import %d (%s)", reg.Source, imp.ID, reg.FileName)
	s.pipeline.Enqueue(imp.ID)
	return imp, true, nil
}

// storageExt picks the on-disk extension. The original file name is kept on
// the record; the stored name is always <uuid><ext>.
func storageExt(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".pdf", ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return ext
	}
	return ".pdf"
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// isPDFAttachment decides whether a polled attachment is worth registering:
// either the name says .pdf or the declared content type does.
func isPDFAttachment(fileName, contentType string) bool {
	if strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		return true
	}
	return strings.EqualFold(contentType, "application/pdf")
}
