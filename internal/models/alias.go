package models

import (
	"time"
)

// Alias sources. Auto means the row was learned from a user confirmation;
// Manual means it was curated through the admin API.
const (
	AliasSourceAuto   = "Auto"
	AliasSourceManual = "Manual"
)

// SupplierAlias maps one exact OCR text string to a supplier code.
// The unique index on ocr_text makes concurrent confirmations first-write-wins:
// the exact matcher only asks "does any alias exist for this key".
type SupplierAlias struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	OCRText      string `gorm:"column:ocr_text;uniqueIndex;not null" json:"ocrText"`
	SupplierCode string `gorm:"index;not null" json:"supplierCode"`
	Source       string `gorm:"default:'Auto'" json:"source"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (SupplierAlias) TableName() string {
	return "supplier_aliases"
}

// ItemAlias maps one exact OCR text string to an item code. Same uniqueness
// contract as SupplierAlias, separate namespace.
type ItemAlias struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	OCRText  string `gorm:"column:ocr_text;uniqueIndex;not null" json:"ocrText"`
	ItemCode string `gorm:"index;not null" json:"itemCode"`
	Source   string `gorm:"default:'Auto'" json:"source"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (ItemAlias) TableName() string {
	return "item_aliases"
}
