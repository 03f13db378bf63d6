package models

import (
	"time"
)

// Item is the local cache of an Odoo product (product.product).
// IsStock mirrors the Odoo product type: only "product" (storable) counts as
// stock; services and consumables need an expense account before posting.
type Item struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Code           string `gorm:"uniqueIndex;not null" json:"code"`
	Name           string `gorm:"index;not null" json:"name"`
	IsStock        bool   `gorm:"default:false" json:"isStock"`
	ExpenseAccount string `json:"expenseAccount"`
	OdooID         int64  `gorm:"index" json:"odooId"`
	Disabled       bool   `gorm:"default:false" json:"disabled"`

	LastSyncedAt time.Time `json:"lastSyncedAt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (Item) TableName() string {
	return "items"
}
