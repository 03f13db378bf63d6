package models

import (
	"time"
)

// Supplier is the local cache of an Odoo vendor (res.partner with supplier_rank > 0).
// Matching runs against this table, never against Odoo directly.
type Supplier struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Code     string `gorm:"uniqueIndex;not null" json:"code"`
	Name     string `gorm:"index;not null" json:"name"`
	TaxID    string `json:"taxId"`
	OdooID   int64  `gorm:"index" json:"odooId"`
	Disabled bool   `gorm:"default:false" json:"disabled"`

	LastSyncedAt time.Time `json:"lastSyncedAt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (Supplier) TableName() string {
	return "suppliers"
}
