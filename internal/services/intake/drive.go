package intake

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/fynbos-digital/invoiceflow/internal/models"
	"github.com/fynbos-digital/invoiceflow/internal/store"
)

// DriveConfig holds the watched-folder settings.
type DriveConfig struct {
	CredentialsFile string
	InboxFolderID   string
	ArchiveFolderID string
	PollInterval    int // in minutes
}

// DrivePoller watches a Google Drive folder for PDFs and registers each file
// once, keyed by Drive file id. It also acts as the pipeline's archiver:
// completed originals are moved into <archive>/<year>/<month>/<supplier>.
type DrivePoller struct {
	intake *Service
	store  *store.Store
	cfg    DriveConfig
	svc    *drive.Service
	stop   chan struct{}
}

// NewDrivePoller creates the poller. With no credentials or inbox folder
// configured it comes up disabled; that is not an error.
func NewDrivePoller(ctx context.Context, intake *Service, st *store.Store, cfg DriveConfig) (*DrivePoller, error) {
	p := &DrivePoller{intake: intake, store: st, cfg: cfg, stop: make(chan struct{})}
	if cfg.CredentialsFile == "" || cfg.InboxFolderID == "" {
		return p, nil
	}

	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(drive.DriveScope))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	p.svc = svc
	return p, nil
}

// Start begins the background polling loop.
func (p *DrivePoller) Start() {
	if p.svc == nil {
		log.Println("Drive intake disabled: DRIVE_CREDENTIALS_FILE not configured")
		return
	}

	go func() {
		log.Printf("📡 Drive intake started (folder %s)", p.cfg.InboxFolderID)

		interval := time.Duration(p.cfg.PollInterval) * time.Minute
		if p.cfg.PollInterval <= 0 {
			interval = 10 * time.Minute
		}

		p.poll()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.poll()
			case <-p.stop:
				log.Println("🛑 Drive intake stopped")
				return
			}
		}
	}()
}

// Stop halts the poller.
func (p *DrivePoller) Stop() {
	close(p.stop)
}

func (p *DrivePoller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	query := fmt.Sprintf("'%s' in parents and mimeType = 'application/pdf' and trashed = false", p.cfg.InboxFolderID)
	list, err := p.svc.Files.List().Q(query).
		Fields("files(id, name, createdTime)").
		OrderBy("createdTime").
		PageSize(50).
		Context(ctx).Do()
	if err != nil {
		log.Printf("⚠️ Drive: folder listing failed: %v", err)
		return
	}

	for _, f := range list.Files {
		if err := p.handleFile(ctx, f); err != nil {
			log.Printf("⚠️ Drive: %s skipped: %v", f.Name, err)
		}
	}
}

func (p *DrivePoller) handleFile(ctx context.Context, f *drive.File) error {
	existing, err := p.store.FindImportByDriveFileID(ctx, f.Id)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Status != models.ImportStatusError {
			return nil
		}
		// An errored import would block this file forever; clear it out and
		// take the file through the pipeline again.
		log.Printf("🔄 Drive: retrying errored import %d for %s", existing.ID, f.Name)
		if err := p.store.DeleteImport(ctx, existing.ID); err != nil {
			return err
		}
		if existing.FilePath != "" {
			os.Remove(existing.FilePath)
		}
	}

	resp, err := p.svc.Files.Get(f.Id).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("download read failed: %w", err)
	}

	imp, created, err := p.intake.Register(ctx, Registration{
		Source:      models.SourceDrive,
		FileName:    f.Name,
		Data:        data,
		DriveFileID: f.Id,
	})
	if err != nil {
		return err
	}
	if !created {
		log.Printf("📦 Drive: %s already imported as %d", f.Name, imp.ID)
	}
	return nil
}

// ArchiveImport moves a completed import's Drive original into
// <archive>/<year>/<month>/<supplier folder>, creating folders as needed.
// No-op without an archive folder or when the import has no Drive source.
func (p *DrivePoller) ArchiveImport(ctx context.Context, imp *models.OCRImport) error {
	if p.svc == nil || p.cfg.ArchiveFolderID == "" || imp.DriveFileID == "" {
		return nil
	}

	when := time.Now()
	if imp.InvoiceDate != nil {
		when = *imp.InvoiceDate
	}

	supplierFolder := "Unmatched"
	if imp.SupplierCode != "" {
		supplier, err := p.store.SupplierByCode(ctx, imp.SupplierCode)
		if err != nil {
			return err
		}
		if supplier != nil {
			supplierFolder = supplier.Name
		}
	}

	folderID := p.cfg.ArchiveFolderID
	for _, name := range []string{when.Format("2006"), when.Format("01-January"), supplierFolder} {
		id, err := p.findOrCreateFolder(ctx, folderID, name)
		if err != nil {
			return err
		}
		folderID = id
	}

	file, err := p.svc.Files.Get(imp.DriveFileID).Fields("id, parents").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to load file for archiving: %w", err)
	}
	update := p.svc.Files.Update(imp.DriveFileID, nil).AddParents(folderID)
	if len(file.Parents) > 0 {
		update = update.RemoveParents(strings.Join(file.Parents, ","))
	}
	if _, err := update.Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to move file: %w", err)
	}

	log.Printf("🧹 Drive: archived %s under %s/%s/%s", imp.FileName, when.Format("2006"), when.Format("01-January"), supplierFolder)
	return nil
}

func (p *DrivePoller) findOrCreateFolder(ctx context.Context, parentID, name string) (string, error) {
	query := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = 'application/vnd.google-apps.folder' and trashed = false",
		escapeDriveName(name), parentID)
	list, err := p.svc.Files.List().Q(query).Fields("files(id)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("folder lookup %q failed: %w", name, err)
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	folder, err := p.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: "application/vnd.google-apps.folder",
		Parents:  []string{parentID},
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("folder create %q failed: %w", name, err)
	}
	return folder.Id, nil
}

// escapeDriveName escapes a file name for use inside a single-quoted Drive
// query string. Supplier names with apostrophes are a real case.
func escapeDriveName(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
