package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/fynbos-digital/invoiceflow/internal/models"
)

// CreateDocument posts the terminal accounting document for a fully matched
// import and completes it. Exactly one document per import: a second call
// fails regardless of type.
func (s *Service) CreateDocument(ctx context.Context, importID uint, docType string) (*models.OCRImport, error) {
	imp, err := s.store.ImportByID(ctx, importID)
	if err != nil {
		return nil, err
	}
	if imp == nil {
		return nil, fmt.Errorf("import %d not found", importID)
	}
	if imp.HasDocument() {
		return nil, fmt.Errorf("a document was already created for import %d", importID)
	}
	if imp.Status != models.ImportStatusMatched {
		return nil, fmt.Errorf("import %d is %s; only fully matched imports can be posted", importID, imp.Status)
	}
	if s.gateway == nil {
		return nil, fmt.Errorf("no accounting backend is configured")
	}

	var ref string
	switch docType {
	case models.DocTypeVendorBill:
		ref, err = s.gateway.CreateVendorBill(ctx, imp)
		imp.VendorBillRef = ref
	case models.DocTypeGoodsReceipt:
		ref, err = s.gateway.CreateGoodsReceipt(ctx, imp)
		imp.GoodsReceiptRef = ref
	case models.DocTypeJournalEntry:
		ref, err = s.gateway.CreateJournalEntry(ctx, imp)
		imp.JournalEntryRef = ref
	default:
		return nil, fmt.Errorf("unknown document type %q", docType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", docType, err)
	}

	imp.Status = RecomputeStatus(imp)
	if err := s.store.SaveImport(ctx, imp); err != nil {
		return nil, err
	}

	log.Printf("✅ Created %s %s for import %d", docType, ref, imp.ID)

	// The books have the document; the original can leave the inbox.
	if s.archiver != nil {
		if err := s.archiver.ArchiveImport(ctx, imp); err != nil {
			log.Printf("⚠️ Failed to archive source of import %d: %v", imp.ID, err)
		}
	}

	s.notify(imp)
	return imp, nil
}
