package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/fynbos-digital/invoiceflow/internal/ai"
	"github.com/fynbos-digital/invoiceflow/internal/matching"
	"github.com/fynbos-digital/invoiceflow/internal/models"
	"github.com/fynbos-digital/invoiceflow/internal/store"
)

// processTimeout bounds one extraction+reconciliation run, including the
// model retries.
const processTimeout = 5 * time.Minute

// Extractor is the vision-extraction dependency, satisfied by ai.Extractor.
type Extractor interface {
	ExtractInvoice(ctx context.Context, data []byte, mimeType string) (*ai.InvoiceExtraction, *ai.CallInfo, error)
}

// ERPGateway posts terminal accounting documents to the books and returns
// the created document reference. UpdateSupplierTaxID pushes a learned tax
// number upstream; implementations must not overwrite an existing one.
type ERPGateway interface {
	CreateVendorBill(ctx context.Context, imp *models.OCRImport) (string, error)
	CreateGoodsReceipt(ctx context.Context, imp *models.OCRImport) (string, error)
	CreateJournalEntry(ctx context.Context, imp *models.OCRImport) (string, error)
	UpdateSupplierTaxID(ctx context.Context, supplierCode, taxID string) error
}

// Broadcaster pushes import updates to connected dashboard clients.
type Broadcaster interface {
	BroadcastImportUpdate(imp *models.OCRImport)
}

// Archiver files away the source document of a completed import, e.g. moving
// a Drive original into the archive folder tree.
type Archiver interface {
	ArchiveImport(ctx context.Context, imp *models.OCRImport) error
}

// Config sizes the worker pool and carries the defaults stamped onto imports.
type Config struct {
	Workers         int
	QueueSize       int
	DefaultCompany  string
	DefaultCurrency string
}

// Service owns the processing pipeline: a bounded queue of import ids, a
// fixed pool of workers that run extraction and reconciliation, and the
// confirmation/learning operations the API exposes.
type Service struct {
	store      *store.Store
	extractor  Extractor
	reconciler *Reconciler
	cfg        Config

	gateway     ERPGateway
	broadcaster Broadcaster
	archiver    Archiver

	queue chan uint
	stop  chan struct{}
	wg    sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// NewService wires the pipeline. The service itself acts as the reconciler's
// tax-ID sink so learned numbers land on the local supplier record.
func NewService(st *store.Store, matcher *matching.Matcher, extractor Extractor, cfg Config) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	s := &Service{
		store:     st,
		extractor: extractor,
		cfg:       cfg,
		queue:     make(chan uint, cfg.QueueSize),
	}
	s.reconciler = NewReconciler(matcher, st, s)
	return s
}

// SetERPGateway wires the accounting backend. Optional: without it, document
// creation returns an error and tax ids are only learned locally.
func (s *Service) SetERPGateway(gw ERPGateway) {
	s.gateway = gw
}

// SetBroadcaster wires the realtime hub. Optional.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetArchiver wires the source-document archiver. Optional.
func (s *Service) SetArchiver(a Archiver) {
	s.archiver = a
}

// Start launches the worker pool and requeues imports a previous run left
// Pending.
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.mu.Unlock()

	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	log.Printf("🚀 Pipeline started (%d workers, queue size %d)", s.cfg.Workers, s.cfg.QueueSize)

	go s.requeuePending()
}

// Stop waits for in-flight work to finish. Queued imports stay Pending and
// are requeued on the next Start.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
	log.Println("🛑 Pipeline stopped")
}

// Enqueue schedules an import for processing without blocking the caller.
// When the queue is full the import simply stays Pending until the restart
// requeue or a manual retry picks it up.
func (s *Service) Enqueue(importID uint) {
	select {
	case s.queue <- importID:
	default:
		log.Printf("⚠️ Pipeline queue full, import %d stays pending", importID)
	}
}

func (s *Service) requeuePending() {
	ids, err := s.store.PendingImportIDs(context.Background())
	if err != nil {
		log.Printf("⚠️ Failed to requeue pending imports: %v", err)
		return
	}
	if len(ids) == 0 {
		return
	}
	log.Printf("🔄 Requeuing %d pending import(s)", len(ids))
	for _, id := range ids {
		s.Enqueue(id)
	}
}

func (s *Service) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			return
		case importID := <-s.queue:
			s.safeProcess(importID)
		}
	}
}

// safeProcess shields the worker goroutine from panics and runaway calls.
func (s *Service) safeProcess(importID uint) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("🛑 Panic while processing import %d: %v", importID, r)
			s.markError(importID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	if err := s.Process(ctx, importID); err != nil {
		log.Printf("🛑 Import %d failed: %v", importID, err)
		s.markError(importID, err.Error())
	}
}

// Process runs one import through extraction and reconciliation. Terminal
// imports are skipped; a re-run replaces the previous extraction result.
func (s *Service) Process(ctx context.Context, importID uint) error {
	imp, err := s.store.ImportByID(ctx, importID)
	if err != nil {
		return err
	}
	if imp == nil {
		return fmt.Errorf("import %d not found", importID)
	}
	if imp.Status == models.ImportStatusCompleted || imp.Status == models.ImportStatusError {
		log.Printf("📦 Import %d is %s, skipping", imp.ID, imp.Status)
		return nil
	}

	data, err := os.ReadFile(imp.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read stored file: %w", err)
	}

	extraction, callInfo, err := s.extractor.ExtractInvoice(ctx, data, ai.DetectMIMEType(imp.FileName, data))
	s.logExtraction(imp.ID, callInfo, err)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	s.applyExtraction(imp, extraction)

	if err := s.reconciler.Reconcile(ctx, imp); err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	if err := s.store.ReplaceImportLines(ctx, imp.ID, imp.Lines); err != nil {
		return err
	}
	imp.ErrorMessage = ""
	if err := s.store.SaveImport(ctx, imp); err != nil {
		return err
	}

	log.Printf("✅ Import %d processed: %q / %s -> %s", imp.ID, imp.SupplierText, imp.InvoiceNumber, imp.Status)
	s.notify(imp)
	return nil
}

// applyExtraction maps the model output onto the import header and rebuilds
// the line set. Match state starts clean; Reconcile fills it in.
func (s *Service) applyExtraction(imp *models.OCRImport, e *ai.InvoiceExtraction) {
	imp.SupplierText = e.SupplierName
	imp.SupplierTaxID = e.SupplierTaxID
	imp.InvoiceNumber = e.InvoiceNumber
	imp.InvoiceDate = ai.ParseDate(e.InvoiceDate)
	imp.DueDate = ai.ParseDate(e.DueDate)
	imp.Subtotal = float64(e.Subtotal)
	imp.TaxAmount = float64(e.TaxAmount)
	imp.TotalAmount = float64(e.TotalAmount)

	imp.Currency = e.Currency
	if imp.Currency == "" {
		imp.Currency = s.cfg.DefaultCurrency
	}
	if imp.Company == "" {
		imp.Company = s.cfg.DefaultCompany
	}

	if raw, err := json.Marshal(e); err == nil {
		imp.RawResponse = datatypes.JSON(raw)
	}

	lines := make([]models.OCRImportLine, 0, len(e.LineItems))
	for i, item := range e.LineItems {
		lines = append(lines, models.OCRImportLine{
			ImportID:    imp.ID,
			Idx:         i + 1,
			Description: item.Description,
			CodeText:    item.ItemCode,
			Quantity:    float64(item.Quantity),
			Rate:        float64(item.UnitPrice),
			Amount:      float64(item.Amount),
			MatchStatus: string(matching.StatusUnmatched),
		})
	}
	imp.Lines = lines
}

// logExtraction records the model call in the audit table. Uses a fresh
// context so the row still lands when the processing context has expired.
func (s *Service) logExtraction(importID uint, info *ai.CallInfo, callErr error) {
	if info == nil {
		return
	}
	entry := &models.ExtractionLog{
		ImportID:   importID,
		Model:      info.Model,
		Status:     "success",
		Attempts:   info.Attempts,
		DurationMs: info.Duration.Milliseconds(),
	}
	if callErr != nil {
		entry.Status = "failed"
		entry.Error = callErr.Error()
	}
	if err := s.store.CreateExtractionLog(context.Background(), entry); err != nil {
		log.Printf("⚠️ Failed to record extraction log: %v", err)
	}
}

// markError moves an import to Error unless it already completed. Runs on a
// fresh context: the usual caller is a worker whose context just timed out.
func (s *Service) markError(importID uint, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	imp, err := s.store.ImportByID(ctx, importID)
	if err != nil || imp == nil {
		log.Printf("⚠️ Could not load import %d to record error: %v", importID, err)
		return
	}
	if imp.Status == models.ImportStatusCompleted {
		return
	}
	imp.Status = models.ImportStatusError
	imp.ErrorMessage = msg
	if err := s.store.SaveImport(ctx, imp); err != nil {
		log.Printf("⚠️ Failed to mark import %d as Error: %v", importID, err)
		return
	}
	s.notify(imp)
}

// Retry puts a failed or stuck import back through the pipeline. Completed
// imports and imports with posted documents are immutable.
func (s *Service) Retry(ctx context.Context, importID uint) (*models.OCRImport, error) {
	imp, err := s.store.ImportByID(ctx, importID)
	if err != nil {
		return nil, err
	}
	if imp == nil {
		return nil, fmt.Errorf("import %d not found", importID)
	}
	if imp.Status == models.ImportStatusCompleted || imp.HasDocument() {
		return nil, fmt.Errorf("import %d is completed and cannot be reprocessed", importID)
	}

	imp.Status = models.ImportStatusPending
	imp.ErrorMessage = ""
	if err := s.store.SaveImport(ctx, imp); err != nil {
		return nil, err
	}
	s.Enqueue(imp.ID)
	s.notify(imp)
	return imp, nil
}

// Rematch re-runs reconciliation against current master data without another
// model call, e.g. after a sync brought in new suppliers. Confirmed matches
// are preserved.
func (s *Service) Rematch(ctx context.Context, importID uint) (*models.OCRImport, error) {
	imp, err := s.store.ImportByID(ctx, importID)
	if err != nil {
		return nil, err
	}
	if imp == nil {
		return nil, fmt.Errorf("import %d not found", importID)
	}
	if imp.Status == models.ImportStatusCompleted || imp.Status == models.ImportStatusError {
		return nil, fmt.Errorf("import %d is %s and cannot be rematched", importID, imp.Status)
	}

	if err := s.reconciler.Reconcile(ctx, imp); err != nil {
		return nil, err
	}
	if err := s.store.SaveImportWithLines(ctx, imp); err != nil {
		return nil, err
	}
	s.notify(imp)
	return imp, nil
}

// BackfillSupplierTaxID stores an extracted tax number on the supplier record
// when none is on file, and pushes it upstream when a gateway is wired.
func (s *Service) BackfillSupplierTaxID(ctx context.Context, supplierCode, taxID string) error {
	changed, err := s.store.UpdateSupplierTaxIDIfEmpty(ctx, supplierCode, taxID)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	log.Printf("📦 Learned tax ID for supplier %s", supplierCode)
	if s.gateway != nil {
		if err := s.gateway.UpdateSupplierTaxID(ctx, supplierCode, taxID); err != nil {
			log.Printf("⚠️ Could not push tax ID for %s upstream: %v", supplierCode, err)
		}
	}
	return nil
}

func (s *Service) notify(imp *models.OCRImport) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastImportUpdate(imp)
	}
}
