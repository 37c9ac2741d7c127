// Package columns tracks the last-known column set per (tenant, table) so view
// regeneration can be limited to actual schema drift.
package columns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/paulsanswrk/dashboard-sync/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tracker persists per-tenant column access records.
type Tracker struct {
	db *gorm.DB
}

// NewTracker constructs a column access Tracker.
func NewTracker(db *gorm.DB) *Tracker {
	return &Tracker{db: db}
}

// UpdateAndCheckDrift records the pushed column set and reports whether it
// differs from the previously recorded one. The record is upserted with a
// fresh last-push timestamp even when nothing changed.
func (t *Tracker) UpdateAndCheckDrift(ctx context.Context, tenantID, tableName string, cols []string) (bool, error) {
	normalized := Normalize(cols)
	if len(normalized) == 0 {
		return false, fmt.Errorf("columns: empty column set for %s/%s", tenantID, tableName)
	}

	previous, found, errLoad := t.load(ctx, tenantID, tableName)
	if errLoad != nil {
		return false, errLoad
	}
	changed := !found || !equal(previous, normalized)

	encoded, errMarshal := json.Marshal(normalized)
	if errMarshal != nil {
		return false, fmt.Errorf("columns: encode column set: %w", errMarshal)
	}

	now := time.Now().UTC()
	row := models.ColumnAccess{
		TenantID:   tenantID,
		Table:      tableName,
		Columns:    datatypes.JSON(encoded),
		LastPushAt: now,
	}
	if errUpsert := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "table_name"}},
		DoUpdates: clause.Assignments(map[string]any{
			"columns":      datatypes.JSON(encoded),
			"last_push_at": now,
			"updated_at":   now,
		}),
	}).Create(&row).Error; errUpsert != nil {
		return false, fmt.Errorf("columns: upsert record: %w", errUpsert)
	}

	return changed, nil
}

// Columns returns the recorded sorted column set for a (tenant, table) pair.
// The second return is false when no record exists.
func (t *Tracker) Columns(ctx context.Context, tenantID, tableName string) ([]string, bool, error) {
	return t.load(ctx, tenantID, tableName)
}

// load fetches the persisted column set.
func (t *Tracker) load(ctx context.Context, tenantID, tableName string) ([]string, bool, error) {
	var row models.ColumnAccess
	errFind := t.db.WithContext(ctx).
		Where("tenant_id = ? AND table_name = ?", tenantID, tableName).
		Take(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("columns: load record: %w", errFind)
	}

	var cols []string
	if errDecode := json.Unmarshal(row.Columns, &cols); errDecode != nil {
		return nil, false, fmt.Errorf("columns: decode record: %w", errDecode)
	}
	return cols, true, nil
}

// Normalize trims, deduplicates and sorts a column list.
func Normalize(cols []string) []string {
	seen := make(map[string]struct{}, len(cols))
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		col = strings.TrimSpace(col)
		if col == "" {
			continue
		}
		if _, ok := seen[col]; ok {
			continue
		}
		seen[col] = struct{}{}
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

// equal compares two sorted column lists.
func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
