package models

import (
	"time"

	"gorm.io/datatypes"
)

// Workflow statuses for an import. Completed and Error are terminal: once
// reached, the state machine never moves the record again.
const (
	ImportStatusPending     = "Pending"
	ImportStatusNeedsReview = "Needs Review"
	ImportStatusMatched     = "Matched"
	ImportStatusCompleted   = "Completed"
	ImportStatusError       = "Error"
)

// Intake channels.
const (
	SourceUpload = "upload"
	SourceEmail  = "email"
	SourceDrive  = "drive"
)

// Terminal document types that can be created from a matched import.
const (
	DocTypeVendorBill   = "vendor_bill"
	DocTypeGoodsReceipt = "goods_receipt"
	DocTypeJournalEntry = "journal_entry"
)

// OCRImport is the envelope that carries one invoice through the pipeline:
// intake metadata, the extracted header, the supplier match state, the line
// items with their match states, and the derived workflow status.
type OCRImport struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	UUID string `gorm:"uniqueIndex;not null" json:"uuid"`

	// Intake
	Source         string `gorm:"index;not null" json:"source"`
	FileName       string `json:"fileName"`
	FilePath       string `json:"-"`
	FileHash       string `gorm:"index" json:"fileHash"`
	DriveFileID    string `gorm:"index" json:"driveFileId,omitempty"`
	EmailMessageID string `gorm:"index" json:"emailMessageId,omitempty"`

	// Extracted header
	SupplierText  string     `json:"supplierText"`
	SupplierTaxID string     `json:"supplierTaxId"`
	InvoiceNumber string     `json:"invoiceNumber"`
	InvoiceDate   *time.Time `json:"invoiceDate,omitempty"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	Currency      string     `json:"currency"`
	Subtotal      float64    `json:"subtotal"`
	TaxAmount     float64    `json:"taxAmount"`
	TotalAmount   float64    `json:"totalAmount"`
	RawResponse   datatypes.JSON `gorm:"type:jsonb" json:"-"`

	// Supplier match state
	SupplierCode        string  `gorm:"index" json:"supplierCode"`
	SupplierMatchStatus string  `gorm:"default:'Unmatched'" json:"supplierMatchStatus"`
	SupplierMatchScore  float64 `json:"supplierMatchScore"`

	// Workflow
	Company      string `json:"company"`
	Status       string `gorm:"index;default:'Pending'" json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`

	// Terminal document references. Any of these being set forces Completed.
	VendorBillRef   string `json:"vendorBillRef,omitempty"`
	GoodsReceiptRef string `json:"goodsReceiptRef,omitempty"`
	JournalEntryRef string `json:"journalEntryRef,omitempty"`

	Lines []OCRImportLine `gorm:"foreignKey:ImportID;constraint:OnDelete:CASCADE" json:"lines"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (OCRImport) TableName() string {
	return "ocr_imports"
}

// HasDocument reports whether any terminal accounting document has been
// created from this import.
func (imp *OCRImport) HasDocument() bool {
	return imp.VendorBillRef != "" || imp.GoodsReceiptRef != "" || imp.JournalEntryRef != ""
}

// OCRImportLine is one extracted invoice line with its match state. The shape
// is fixed: extraction output is validated into this struct at the pipeline
// boundary.
type OCRImportLine struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	ImportID uint `gorm:"index;not null" json:"-"`
	Idx      int  `json:"idx"`

	// Extracted
	Description string  `json:"description"`
	CodeText    string  `json:"codeText"` // item code as printed on the invoice, if any
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`

	// Match state
	ItemCode       string  `gorm:"index" json:"itemCode"`
	ItemName       string  `json:"itemName"`
	MatchStatus    string  `gorm:"default:'Unmatched'" json:"matchStatus"`
	MatchScore     float64 `json:"matchScore"`
	ExpenseAccount string  `json:"expenseAccount"`
	CostCenter     string  `json:"costCenter"`
	IsStock        bool    `json:"isStock"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (OCRImportLine) TableName() string {
	return "ocr_import_lines"
}
