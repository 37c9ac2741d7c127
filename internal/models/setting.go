package models

import (
	"encoding/json"
	"time"
)

// Setting is one database-backed runtime toggle. Values are raw JSON so a key
// can hold a bool, number or structured value without schema changes.
type Setting struct {
	Key   string          `gorm:"type:varchar(255);primaryKey"` // Setting key, e.g. SYNC_PAUSED.
	Value json.RawMessage `gorm:"type:jsonb"`                   // JSON-encoded value.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime;default:CURRENT_TIMESTAMP"` // Last update timestamp.
}
