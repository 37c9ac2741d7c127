package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/paulsanswrk/dashboard-sync/internal/models"
	"gorm.io/gorm"
)

// Refresh reloads all settings rows from the database and replaces the
// in-memory snapshot.
//
// Call it at process startup; otherwise Value() returns nothing until an
// admin updates settings through the API, which also triggers a refresh.
func Refresh(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("settings: nil db")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var rows []models.Setting
	if errFind := db.WithContext(ctx).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	refreshedAt := time.Time{}
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = row.Value
		if rowUpdatedAt := row.UpdatedAt.UTC(); rowUpdatedAt.After(refreshedAt) {
			refreshedAt = rowUpdatedAt
		}
	}

	Store(refreshedAt, values)
	return nil
}
