package intake

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"github.com/fynbos-digital/invoiceflow/internal/models"
)

// EmailConfig holds IMAP mailbox settings.
type EmailConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Folder       string
	PollInterval int // in minutes
}

// EmailPoller watches an IMAP mailbox for unseen messages and registers their
// PDF attachments. Handled messages are flagged Seen; a message that cannot
// be parsed is skipped and left unseen for the next cycle.
type EmailPoller struct {
	intake *Service
	cfg    EmailConfig
	stop   chan struct{}
}

// NewEmailPoller creates the mailbox poller.
func NewEmailPoller(intake *Service, cfg EmailConfig) *EmailPoller {
	return &EmailPoller{intake: intake, cfg: cfg, stop: make(chan struct{})}
}

// Start begins the background polling loop.
func (p *EmailPoller) Start() {
	if p.cfg.Host == "" || p.cfg.Username == "" {
		log.Println("Email intake disabled: EMAIL_IMAP_HOST not configured")
		return
	}

	go func() {
		log.Printf("📡 Email intake started (%s, folder %s)", p.cfg.Host, p.folder())

		interval := time.Duration(p.cfg.PollInterval) * time.Minute
		if p.cfg.PollInterval <= 0 {
			interval = 5 * time.Minute
		}

		p.poll()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.poll()
			case <-p.stop:
				log.Println("🛑 Email intake stopped")
				return
			}
		}
	}()
}

// Stop halts the poller.
func (p *EmailPoller) Stop() {
	close(p.stop)
}

func (p *EmailPoller) folder() string {
	if p.cfg.Folder == "" {
		return "INBOX"
	}
	return p.cfg.Folder
}

// poll runs one fetch cycle over a fresh connection. Mail servers drop idle
// connections anyway, so reconnecting each cycle is simpler than keeping one
// alive.
func (p *EmailPoller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := imapclient.DialTLS(net.JoinHostPort(p.cfg.Host, p.cfg.Port), nil)
	if err != nil {
		log.Printf("⚠️ Email: connection to %s failed: %v", p.cfg.Host, err)
		return
	}
	defer c.Logout()

	if err := c.Login(p.cfg.Username, p.cfg.Password); err != nil {
		log.Printf("⚠️ Email: login failed: %v", err)
		return
	}

	if _, err := c.Select(p.folder(), false); err != nil {
		log.Printf("⚠️ Email: failed to select %s: %v", p.folder(), err)
		return
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		log.Printf("⚠️ Email: search failed: %v", err)
		return
	}
	if len(ids) == 0 {
		return
	}
	log.Printf("📦 Email: %d unseen message(s) in %s", len(ids), p.folder())

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() { done <- c.Fetch(seqset, items, messages) }()

	processed := new(imap.SeqSet)
	for msg := range messages {
		// One broken message must not poison the whole cycle.
		if err := p.handleMessage(ctx, msg, section); err != nil {
			log.Printf("⚠️ Email: message %d skipped: %v", msg.SeqNum, err)
			continue
		}
		processed.AddNum(msg.SeqNum)
	}
	if err := <-done; err != nil {
		log.Printf("⚠️ Email: fetch failed: %v", err)
		return
	}

	if !processed.Empty() {
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.Store(processed, item, []interface{}{imap.SeenFlag}, nil); err != nil {
			log.Printf("⚠️ Email: failed to mark messages seen: %v", err)
		}
	}
}

func (p *EmailPoller) handleMessage(ctx context.Context, msg *imap.Message, section *imap.BodySectionName) error {
	body := msg.GetBody(section)
	if body == nil {
		return fmt.Errorf("server returned no body")
	}

	mr, err := mail.CreateReader(body)
	if err != nil {
		return fmt.Errorf("unreadable message: %w", err)
	}

	var messageID string
	if msg.Envelope != nil {
		messageID = msg.Envelope.MessageId
	}

	pdfIndex := 0
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("broken MIME part: %w", err)
		}

		header, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		fileName, _ := header.Filename()
		contentType, _, _ := header.ContentType()
		if !isPDFAttachment(fileName, contentType) {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return fmt.Errorf("failed to read attachment %q: %w", fileName, err)
		}
		if fileName == "" {
			fileName = "attachment.pdf"
		}

		// Each attachment gets its own external id so a message with several
		// PDFs de-duplicates per attachment, not per message.
		var externalID string
		if messageID != "" {
			externalID = fmt.Sprintf("%s#%d", messageID, pdfIndex)
		}
		pdfIndex++

		imp, created, err := p.intake.Register(ctx, Registration{
			Source:         models.SourceEmail,
			FileName:       fileName,
			Data:           data,
			EmailMessageID: externalID,
		})
		if err != nil {
			return err
		}
		if !created {
			log.Printf("📦 Email: attachment %q already imported as %d", fileName, imp.ID)
		}
	}
	return nil
}
