package models

import (
	"time"
)

// Tenant maps a source-system tenant UUID to its stable short name.
type Tenant struct {
	ID string `gorm:"type:uuid;primaryKey"` // Source-system tenant UUID.

	ShortName   string `gorm:"type:text;not null;uniqueIndex"` // Stable slug, assigned once.
	DisplayName string `gorm:"type:text"`                      // Human-readable name at registration time.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (Tenant) TableName() string {
	return "tenants"
}
