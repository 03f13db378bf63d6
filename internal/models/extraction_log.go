package models

import (
	"time"
)

// ExtractionLog records one vision-model call for auditing and debugging.
// Rows are pruned by the retention loop after the configured number of days.
type ExtractionLog struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ImportID   uint   `gorm:"index" json:"importId"`
	Model      string `json:"model"`
	Status     string `json:"status"` // success, failed
	Attempts   int    `json:"attempts"`
	DurationMs int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// TableName specifies the table name
func (ExtractionLog) TableName() string {
	return "extraction_logs"
}
