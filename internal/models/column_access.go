package models

import (
	"time"

	"gorm.io/datatypes"
)

// ColumnAccess records the column set a tenant's view of a table currently exposes.
type ColumnAccess struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID string `gorm:"type:uuid;not null;uniqueIndex:idx_column_access_tenant_table"`              // Owning tenant.
	Table    string `gorm:"column:table_name;type:text;not null;uniqueIndex:idx_column_access_tenant_table"` // Target table name.

	Columns datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Sorted column names as a JSON array.

	LastPushAt time.Time `gorm:"not null;index"` // Timestamp of the last push touching this table.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (ColumnAccess) TableName() string {
	return "column_accesses"
}
