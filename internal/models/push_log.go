package models

import (
	"time"

	"gorm.io/datatypes"
)

// PushLog is an append-only record of one ingestion event.
type PushLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID string `gorm:"type:uuid;not null;index"` // Owning tenant.
	PushID   string `gorm:"type:text;not null;index"` // Correlation token from the source system.

	AffectedTables datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Target table names touched by the push.
	RecordCounts   datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // Table name to row count map.

	PushedAt time.Time `gorm:"not null;index"` // When the push was applied.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// TableName overrides the default table name.
func (PushLog) TableName() string {
	return "push_logs"
}
