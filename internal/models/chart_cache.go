package models

import (
	"time"

	"gorm.io/datatypes"
)

// ChartCache stores a computed chart result keyed by query fingerprint.
type ChartCache struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ChartID  string `gorm:"type:text;not null;uniqueIndex:idx_chart_cache_key"` // Chart identifier.
	TenantID string `gorm:"type:uuid;not null;uniqueIndex:idx_chart_cache_key;index:idx_chart_cache_tenant_valid"` // Owning tenant.
	CacheKey string `gorm:"type:text;not null;uniqueIndex:idx_chart_cache_key"` // SHA-256 fingerprint hash.

	CachedData   datatypes.JSON `gorm:"type:jsonb"`                       // Computed result payload.
	SourceTables datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Tables the chart query reads.

	IsValid    bool      `gorm:"not null;default:true;index:idx_chart_cache_tenant_valid"` // Entry validity flag.
	CachedAt   time.Time `gorm:"not null"`                                                 // When the entry was last written.
	DurationMs *int64    // Compute duration of the cached query, when reported.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (ChartCache) TableName() string {
	return "chart_caches"
}
