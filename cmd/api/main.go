package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fynbos-digital/invoiceflow/internal/ai"
	"github.com/fynbos-digital/invoiceflow/internal/config"
	"github.com/fynbos-digital/invoiceflow/internal/database"
	"github.com/fynbos-digital/invoiceflow/internal/handlers"
	"github.com/fynbos-digital/invoiceflow/internal/matching"
	"github.com/fynbos-digital/invoiceflow/internal/models"
	"github.com/fynbos-digital/invoiceflow/internal/services/intake"
	"github.com/fynbos-digital/invoiceflow/internal/services/odoo"
	"github.com/fynbos-digital/invoiceflow/internal/services/pipeline"
	"github.com/fynbos-digital/invoiceflow/internal/store"
	"github.com/fynbos-digital/invoiceflow/internal/utils"
	"github.com/fynbos-digital/invoiceflow/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema (Critical for Zero-Config)
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.User{},

		// Master data cache
		&models.Supplier{},
		&models.Item{},

		// Learned matching rules
		&models.SupplierAlias{},
		&models.ItemAlias{},
		&models.ServiceMapping{},

		// Pipeline
		&models.OCRImport{},
		&models.OCRImportLine{},
		&models.ExtractionLog{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	st := store.New(db.DB)

	if err := seedAdminUser(st, cfg.Admin); err != nil {
		log.Printf("⚠️ Could not seed admin user: %v", err)
	}

	// 4. Vision extraction client
	ctx := context.Background()
	extractor, err := ai.NewExtractor(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.MaxAttempts)
	if err != nil {
		log.Fatalf("Failed to init Gemini extractor: %v", err)
	}
	defer extractor.Close()

	// 5. Matching core + processing pipeline
	matcher := matching.NewMatcher(st, matching.Config{
		FuzzyThreshold: cfg.Matching.FuzzyThreshold,
		DefaultCompany: cfg.Books.DefaultCompany,
	})

	pipelineSvc := pipeline.NewService(st, matcher, extractor, pipeline.Config{
		Workers:         cfg.Pipeline.Workers,
		QueueSize:       cfg.Pipeline.QueueSize,
		DefaultCompany:  cfg.Books.DefaultCompany,
		DefaultCurrency: cfg.Books.Currency,
	})

	// 6. Realtime hub for the review dashboard
	hub := websocket.NewHub()
	go hub.Run()
	pipelineSvc.SetBroadcaster(hub)

	// 7. Odoo gateway (master data down, documents up)
	odooSvc := odoo.NewService(st, odoo.Config{
		URL:            cfg.Odoo.URL,
		Database:       cfg.Odoo.Database,
		Username:       cfg.Odoo.Username,
		Password:       cfg.Odoo.Password,
		SyncInterval:   cfg.Odoo.SyncInterval,
		PayableAccount: cfg.Books.PayableAccount,
		TaxAccount:     cfg.Books.TaxAccount,
	})
	if odooSvc.Enabled() {
		pipelineSvc.SetERPGateway(odooSvc)
	}
	odooSvc.Start()

	pipelineSvc.Start()

	// 8. Intake channels
	intakeSvc, err := intake.NewService(st, pipelineSvc, cfg.Storage.Dir)
	if err != nil {
		log.Fatalf("Failed to init intake service: %v", err)
	}

	emailPoller := intake.NewEmailPoller(intakeSvc, intake.EmailConfig{
		Host:         cfg.Email.Host,
		Port:         cfg.Email.Port,
		Username:     cfg.Email.Username,
		Password:     cfg.Email.Password,
		Folder:       cfg.Email.Folder,
		PollInterval: cfg.Email.PollInterval,
	})
	emailPoller.Start()

	drivePoller, err := intake.NewDrivePoller(ctx, intakeSvc, st, intake.DriveConfig{
		CredentialsFile: cfg.Drive.CredentialsFile,
		InboxFolderID:   cfg.Drive.InboxFolderID,
		ArchiveFolderID: cfg.Drive.ArchiveFolderID,
		PollInterval:    cfg.Drive.PollInterval,
	})
	if err != nil {
		log.Fatalf("Failed to init Drive intake: %v", err)
	}
	drivePoller.Start()
	pipelineSvc.SetArchiver(drivePoller)

	// 9. Extraction-log retention
	retentionStop := make(chan struct{})
	go retentionLoop(st, cfg.Pipeline.LogRetentionDays, retentionStop)

	// 10. HTTP API + dashboard
	router := handlers.NewRouter(st, pipelineSvc, intakeSvc, odooSvc, hub, cfg)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.Printf("🚀 InvoiceFlow starting on port %s\n", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	close(retentionStop)
	emailPoller.Stop()
	drivePoller.Stop()
	odooSvc.Stop()
	pipelineSvc.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ HTTP server shutdown: %v", err)
	}

	if err := db.Close(); err != nil {
		log.Printf("⚠️ Database shutdown: %v", err)
	}
	log.Println("🛑 Shutdown complete")
}

// seedAdminUser creates the bootstrap account when the users table is empty.
// Without ADMIN_PASSWORD nothing is created and the API stays locked.
func seedAdminUser(st *store.Store, admin config.AdminConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := st.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if admin.Password == "" {
		log.Println("⚠️ No users exist and ADMIN_PASSWORD is not set; logins will fail")
		return nil
	}

	hash, err := utils.HashPassword(admin.Password)
	if err != nil {
		return err
	}
	if err := st.CreateUser(ctx, &models.User{
		Username: admin.Username,
		Password: hash,
		Role:     "admin",
		IsActive: true,
	}); err != nil {
		return err
	}
	log.Printf("✅ Seeded admin user %q", admin.Username)
	return nil
}

// retentionLoop prunes old extraction logs once a day.
func retentionLoop(st *store.Store, retentionDays int, stop chan struct{}) {
	if retentionDays <= 0 {
		return
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -retentionDays)
			n, err := st.PruneExtractionLogs(context.Background(), cutoff)
			if err != nil {
				log.Printf("⚠️ Extraction log cleanup failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("🧹 Pruned %d extraction log(s) older than %d days", n, retentionDays)
			}
		}
	}
}
