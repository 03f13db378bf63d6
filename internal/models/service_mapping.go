package models

import (
	"time"
)

// ServiceMapping maps a generalized description pattern to an item plus its
// accounting fields. SupplierCode empty means the rule is generic for the
// company. The composite unique index is the upsert key for the learning
// writer; empty-string supplier stands in for "no supplier" so there is only
// one code path.
type ServiceMapping struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Pattern        string `gorm:"uniqueIndex:idx_mapping_key;not null" json:"pattern"`
	Company        string `gorm:"uniqueIndex:idx_mapping_key;not null" json:"company"`
	SupplierCode   string `gorm:"uniqueIndex:idx_mapping_key;default:''" json:"supplierCode"`
	ItemCode       string `gorm:"not null" json:"itemCode"`
	ItemName       string `json:"itemName"`
	ExpenseAccount string `json:"expenseAccount"`
	CostCenter     string `json:"costCenter"`
	Source         string `gorm:"default:'Auto'" json:"source"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (ServiceMapping) TableName() string {
	return "service_mappings"
}
