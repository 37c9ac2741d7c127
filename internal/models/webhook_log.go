package models

import (
	"time"
)

// Webhook log status values.
const (
	// WebhookStatusLogged marks a fully processed event.
	WebhookStatusLogged = "logged"
	// WebhookStatusSkipped marks an event referencing an unmapped table.
	WebhookStatusSkipped = "skipped"
	// WebhookStatusTest marks a connectivity check event.
	WebhookStatusTest = "test"
	// WebhookStatusPaused marks an event rejected while syncing was paused.
	WebhookStatusPaused = "paused"
	// WebhookStatusError marks an event that failed during processing.
	WebhookStatusError = "error"
)

// WebhookLog is an audit record of one inbound webhook request.
type WebhookLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID  string `gorm:"type:text;index"`             // Tenant referenced by the event, when present.
	Operation string `gorm:"type:text;not null;index"`    // Event operation kind.
	Table     string `gorm:"column:table_name;type:text"` // Source table name, when present.
	SyncID    string `gorm:"type:text;index"`             // Idempotency/correlation token.

	Status string `gorm:"type:text;not null;index"` // Terminal status of the event.
	Error  string `gorm:"type:text"`                // Error detail for failed events.

	DurationMs int64 `gorm:"not null;default:0"` // Processing duration in milliseconds.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}

// TableName overrides the default table name.
func (WebhookLog) TableName() string {
	return "webhook_logs"
}
