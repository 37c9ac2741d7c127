// Package pushlog keeps the append-only record of ingestion pushes per tenant.
package pushlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paulsanswrk/dashboard-sync/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Log appends and reads push log entries.
type Log struct {
	db *gorm.DB
}

// NewLog constructs a push Log.
func NewLog(db *gorm.DB) *Log {
	return &Log{db: db}
}

// Append records one push. pushID falls back to a fresh UUID when the source
// system provided no correlation token.
func (l *Log) Append(ctx context.Context, tenantID, pushID string, affectedTables []string, recordCounts map[string]int) error {
	if pushID == "" {
		pushID = uuid.NewString()
	}

	encodedTables, errTables := json.Marshal(affectedTables)
	if errTables != nil {
		return fmt.Errorf("pushlog: encode tables: %w", errTables)
	}
	encodedCounts, errCounts := json.Marshal(recordCounts)
	if errCounts != nil {
		return fmt.Errorf("pushlog: encode counts: %w", errCounts)
	}

	entry := models.PushLog{
		TenantID:       tenantID,
		PushID:         pushID,
		AffectedTables: datatypes.JSON(encodedTables),
		RecordCounts:   datatypes.JSON(encodedCounts),
		PushedAt:       time.Now().UTC(),
	}
	if errCreate := l.db.WithContext(ctx).Create(&entry).Error; errCreate != nil {
		return fmt.Errorf("pushlog: append: %w", errCreate)
	}
	return nil
}

// Recent returns the newest entries for a tenant, most recent first.
func (l *Log) Recent(ctx context.Context, tenantID string, limit int) ([]models.PushLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []models.PushLog
	if errFind := l.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("pushed_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("pushlog: recent: %w", errFind)
	}
	return rows, nil
}
