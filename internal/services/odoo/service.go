package odoo

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fynbos-digital/invoiceflow/internal/models"
	"github.com/fynbos-digital/invoiceflow/internal/store"
)

// Service keeps the local supplier and item caches in step with Odoo and
// posts matched imports back as accounting documents. The matcher only ever
// reads the local cache, so a dead ERP connection degrades matching to stale
// data instead of failing it.
type Service struct {
	client *Client
	store  *store.Store
	cfg    Config

	authMu sync.Mutex
	stop   chan struct{}
}

// Config holds the Odoo connection plus the accounting defaults used when
// posting journal entries. An empty URL disables sync and document creation.
type Config struct {
	URL          string
	Database     string
	Username     string
	Password     string
	SyncInterval int // in minutes

	PayableAccount string
	TaxAccount     string
}

const syncPageSize = 500

// NewService creates the Odoo sync and document service.
func NewService(st *store.Store, cfg Config) *Service {
	return &Service{
		client: NewClient(cfg.URL, cfg.Database, cfg.Username, cfg.Password),
		store:  st,
		cfg:    cfg,
		stop:   make(chan struct{}),
	}
}

// Enabled reports whether an Odoo endpoint is configured.
func (s *Service) Enabled() bool {
	return s.cfg.URL != ""
}

// Start begins the background synchronization loop.
func (s *Service) Start() {
	if !s.Enabled() {
		log.Println("Odoo Sync disabled: ODOO_URL not configured")
		return
	}

	go func() {
		log.Println("📡 Odoo Sync Service started")

		// Initial sync delay
		select {
		case <-time.After(5 * time.Second):
		case <-s.stop:
			return
		}
		s.runFullSync()

		interval := time.Duration(s.cfg.SyncInterval) * time.Minute
		if s.cfg.SyncInterval <= 0 {
			interval = 15 * time.Minute
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runFullSync()
			case <-s.stop:
				log.Println("🛑 Odoo Sync Service stopped")
				return
			}
		}
	}()
}

// Stop halts the service
func (s *Service) Stop() {
	close(s.stop)
}

// ensureAuth authenticates on first use and again after the cached session
// is lost. Booting while Odoo is down must not disable the gateway for the
// rest of the process lifetime.
func (s *Service) ensureAuth() error {
	s.authMu.Lock()
	defer s.authMu.Unlock()
	if s.client.Uid != 0 {
		return nil
	}
	uid, err := s.client.Authenticate()
	if err != nil {
		return err
	}
	log.Printf("✅ Odoo: authenticated as uid %d", uid)
	return nil
}

// TriggerSync runs a full sync in the background. Used by the admin endpoint.
func (s *Service) TriggerSync() error {
	if !s.Enabled() {
		return fmt.Errorf("odoo is not configured")
	}
	go s.runFullSync()
	return nil
}

// runFullSync runs all sync operations
func (s *Service) runFullSync() {
	if err := s.ensureAuth(); err != nil {
		log.Printf("❌ Odoo authentication failed: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	log.Println("🔄 Odoo: Starting full sync...")
	s.syncSuppliers(ctx)
	s.syncItems(ctx)
	log.Println("✅ Odoo: Full sync completed")
}

// syncSuppliers pulls every active vendor into the local supplier cache.
// Vendors the pull no longer returns are disabled rather than deleted, so
// existing imports keep their supplier reference.
func (s *Service) syncSuppliers(ctx context.Context) {
	log.Println("📦 Odoo: Syncing Suppliers...")
	syncStart := time.Now()

	domain := []interface{}{
		[]interface{}{"supplier_rank", ">", 0},
		[]interface{}{"active", "=", true},
	}
	fields := []string{"name", "ref", "vat", "active"}

	total := 0
	for offset := 0; ; offset += syncPageSize {
		var partners []models.OdooPartner
		if err := s.client.SearchRead("res.partner", domain, fields, syncPageSize, offset, &partners); err != nil {
			log.Printf("❌ Odoo Sync Error (Suppliers): %v", err)
			return
		}
		if len(partners) == 0 {
			break
		}

		suppliers := make([]models.Supplier, 0, len(partners))
		for _, p := range partners {
			if p.Name == "" {
				continue
			}
			suppliers = append(suppliers, models.Supplier{
				Code:   supplierCode(p),
				Name:   p.Name,
				TaxID:  p.Vat.String(),
				OdooID: p.ID,
			})
		}

		n, err := s.store.UpsertSuppliers(ctx, suppliers)
		if err != nil {
			log.Printf("❌ Odoo Sync Error (Suppliers): %v", err)
			return
		}
		total += n

		if len(partners) < syncPageSize {
			break
		}
	}

	stale, err := s.store.MarkSuppliersStale(ctx, syncStart)
	if err != nil {
		log.Printf("⚠️ Odoo: could not disable stale suppliers: %v", err)
	}
	log.Printf("✅ Odoo: Updated %d suppliers (%d disabled as stale)", total, stale)
}

// syncItems pulls every active product into the local item cache.
func (s *Service) syncItems(ctx context.Context) {
	log.Println("📦 Odoo: Syncing Items...")
	syncStart := time.Now()

	domain := []interface{}{
		[]interface{}{"active", "=", true},
	}
	fields := []string{"name", "default_code", "type", "property_account_expense_id", "active"}

	total := 0
	for offset := 0; ; offset += syncPageSize {
		var products []models.OdooProduct
		if err := s.client.SearchRead("product.product", domain, fields, syncPageSize, offset, &products); err != nil {
			log.Printf("❌ Odoo Sync Error (Items): %v", err)
			return
		}
		if len(products) == 0 {
			break
		}

		items := make([]models.Item, 0, len(products))
		for _, p := range products {
			if p.Name == "" {
				continue
			}
			items = append(items, models.Item{
				Code:           itemCode(p),
				Name:           p.Name,
				IsStock:        p.Type == "product",
				ExpenseAccount: p.ExpenseAccount.Code(),
				OdooID:         p.ID,
			})
		}

		n, err := s.store.UpsertItems(ctx, items)
		if err != nil {
			log.Printf("❌ Odoo Sync Error (Items): %v", err)
			return
		}
		total += n

		if len(products) < syncPageSize {
			break
		}
	}

	stale, err := s.store.MarkItemsStale(ctx, syncStart)
	if err != nil {
		log.Printf("⚠️ Odoo: could not disable stale items: %v", err)
	}
	log.Printf("✅ Odoo: Updated %d items (%d disabled as stale)", total, stale)
}

// supplierCode prefers the vendor's internal reference and falls back to a
// synthetic code derived from the Odoo id, which stays stable across syncs.
func supplierCode(p models.OdooPartner) string {
	if ref := p.Ref.String(); ref != "" {
		return ref
	}
	return fmt.Sprintf("SUP-%05d", p.ID)
}

func itemCode(p models.OdooProduct) string {
	if code := p.DefaultCode.String(); code != "" {
		return code
	}
	return fmt.Sprintf("ITEM-%05d", p.ID)
}
