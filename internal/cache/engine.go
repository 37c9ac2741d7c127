package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	dbutil "github.com/paulsanswrk/dashboard-sync/internal/db"
	"github.com/paulsanswrk/dashboard-sync/internal/models"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is a cache lookup result.
type Entry struct {
	Data     json.RawMessage // Cached chart result payload.
	CachedAt time.Time       // When the entry was written.
}

// Engine stores and invalidates computed chart results. The database table is
// the source of truth; the optional redis client is a read-through fast path
// whose failures degrade to database-only operation.
type Engine struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewEngine constructs a cache Engine. rdb may be nil.
func NewEngine(db *gorm.DB, rdb *redis.Client) *Engine {
	return &Engine{db: db, rdb: rdb}
}

// Get returns the valid cache entry for (chartID, tenantID, cacheKey), or nil
// on a miss. Invalidated entries are misses.
func (e *Engine) Get(ctx context.Context, chartID, tenantID, cacheKey string) (*Entry, error) {
	if entry, ok := e.redisGet(ctx, tenantID, chartID, cacheKey); ok {
		return entry, nil
	}

	var row models.ChartCache
	errFind := e.db.WithContext(ctx).
		Where("chart_id = ? AND tenant_id = ? AND cache_key = ? AND is_valid = ?", chartID, tenantID, cacheKey, true).
		Take(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: get: %w", errFind)
	}

	// Repopulating redis without the row's source tables would leave the key
	// out of every invalidation set, so a decode failure skips the fast path.
	if sourceTables, errDecode := decodeSourceTables(row.SourceTables); errDecode != nil {
		log.WithError(errDecode).Debug("cache: decode source tables")
	} else {
		e.redisSet(ctx, tenantID, chartID, cacheKey, json.RawMessage(row.CachedData), row.CachedAt, sourceTables)
	}
	return &Entry{Data: json.RawMessage(row.CachedData), CachedAt: row.CachedAt}, nil
}

// Set upserts a cache entry, marking it valid and refreshing its timestamp.
// sourceTables must list every table the chart's query reads; invalidation
// depends on it being complete.
func (e *Engine) Set(ctx context.Context, chartID, tenantID, cacheKey string, data json.RawMessage, sourceTables []string, durationMs *int64) error {
	encodedTables, errMarshal := json.Marshal(normalizeTables(sourceTables))
	if errMarshal != nil {
		return fmt.Errorf("cache: encode source tables: %w", errMarshal)
	}

	now := time.Now().UTC()
	row := models.ChartCache{
		ChartID:      chartID,
		TenantID:     tenantID,
		CacheKey:     cacheKey,
		CachedData:   datatypes.JSON(data),
		SourceTables: datatypes.JSON(encodedTables),
		IsValid:      true,
		CachedAt:     now,
		DurationMs:   durationMs,
	}
	if errUpsert := e.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chart_id"}, {Name: "tenant_id"}, {Name: "cache_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"cached_data":   datatypes.JSON(data),
			"source_tables": datatypes.JSON(encodedTables),
			"is_valid":      true,
			"cached_at":     now,
			"duration_ms":   durationMs,
			"updated_at":    now,
		}),
	}).Create(&row).Error; errUpsert != nil {
		return fmt.Errorf("cache: set: %w", errUpsert)
	}

	e.redisSet(ctx, tenantID, chartID, cacheKey, data, now, normalizeTables(sourceTables))
	return nil
}

// InvalidateForTables bulk-marks every cache row of the tenant whose
// source_tables intersects tableNames as invalid, in one set-based UPDATE.
// Returns the number of invalidated rows.
func (e *Engine) InvalidateForTables(ctx context.Context, tenantID string, tableNames []string) (int64, error) {
	if len(tableNames) == 0 {
		return 0, nil
	}

	expr, args := dbutil.JSONArrayIntersects(e.db, "source_tables", tableNames)
	res := e.db.WithContext(ctx).
		Model(&models.ChartCache{}).
		Where("tenant_id = ? AND is_valid = ?", tenantID, true).
		Where(expr, args...).
		Updates(map[string]any{
			"is_valid":   false,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("cache: invalidate: %w", res.Error)
	}

	e.redisInvalidate(ctx, tenantID, tableNames)
	return res.RowsAffected, nil
}

// Stats reports valid/invalid entry counts for one tenant.
func (e *Engine) Stats(ctx context.Context, tenantID string) (valid int64, invalid int64, err error) {
	if errCount := e.db.WithContext(ctx).Model(&models.ChartCache{}).
		Where("tenant_id = ? AND is_valid = ?", tenantID, true).
		Count(&valid).Error; errCount != nil {
		return 0, 0, fmt.Errorf("cache: stats: %w", errCount)
	}
	if errCount := e.db.WithContext(ctx).Model(&models.ChartCache{}).
		Where("tenant_id = ? AND is_valid = ?", tenantID, false).
		Count(&invalid).Error; errCount != nil {
		return 0, 0, fmt.Errorf("cache: stats: %w", errCount)
	}
	return valid, invalid, nil
}

// decodeSourceTables decodes a persisted source_tables JSON array.
func decodeSourceTables(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var tables []string
	if errDecode := json.Unmarshal(raw, &tables); errDecode != nil {
		return nil, errDecode
	}
	return tables, nil
}

// normalizeTables deduplicates a table list preserving nothing but content.
func normalizeTables(tableNames []string) []string {
	seen := make(map[string]struct{}, len(tableNames))
	out := make([]string, 0, len(tableNames))
	for _, name := range tableNames {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Redis key layout: one value key per entry, plus one set per (tenant, table)
// listing the value keys that depend on it, so invalidation can delete
// precisely.

func valueKey(tenantID, chartID, cacheKey string) string {
	return "chartcache:" + tenantID + ":" + chartID + ":" + cacheKey
}

func tableSetKey(tenantID, tableName string) string {
	return "chartcache:tables:" + tenantID + ":" + tableName
}

// redisEntry is the stored redis value: the payload plus its original write
// time, so fast-path hits report the real timestamp.
type redisEntry struct {
	Data     json.RawMessage `json:"data"`
	CachedAt time.Time       `json:"cached_at"`
}

func (e *Engine) redisGet(ctx context.Context, tenantID, chartID, cacheKey string) (*Entry, bool) {
	if e.rdb == nil {
		return nil, false
	}
	raw, errGet := e.rdb.Get(ctx, valueKey(tenantID, chartID, cacheKey)).Bytes()
	if errGet != nil {
		if !errors.Is(errGet, redis.Nil) {
			log.WithError(errGet).Debug("cache: redis get failed")
		}
		return nil, false
	}
	var stored redisEntry
	if errDecode := json.Unmarshal(raw, &stored); errDecode != nil {
		log.WithError(errDecode).Debug("cache: redis decode failed")
		return nil, false
	}
	return &Entry{Data: stored.Data, CachedAt: stored.CachedAt}, true
}

func (e *Engine) redisSet(ctx context.Context, tenantID, chartID, cacheKey string, data json.RawMessage, cachedAt time.Time, sourceTables []string) {
	if e.rdb == nil {
		return
	}
	encoded, errMarshal := json.Marshal(redisEntry{Data: data, CachedAt: cachedAt})
	if errMarshal != nil {
		log.WithError(errMarshal).Debug("cache: redis encode failed")
		return
	}
	key := valueKey(tenantID, chartID, cacheKey)
	pipe := e.rdb.Pipeline()
	pipe.Set(ctx, key, encoded, 0)
	for _, table := range sourceTables {
		pipe.SAdd(ctx, tableSetKey(tenantID, table), key)
	}
	if _, errExec := pipe.Exec(ctx); errExec != nil {
		log.WithError(errExec).Debug("cache: redis set failed")
	}
}

func (e *Engine) redisInvalidate(ctx context.Context, tenantID string, tableNames []string) {
	if e.rdb == nil {
		return
	}
	for _, table := range tableNames {
		setKey := tableSetKey(tenantID, table)
		keys, errMembers := e.rdb.SMembers(ctx, setKey).Result()
		if errMembers != nil {
			log.WithError(errMembers).Debug("cache: redis invalidate failed")
			continue
		}
		if len(keys) > 0 {
			if errDel := e.rdb.Del(ctx, keys...).Err(); errDel != nil {
				log.WithError(errDel).Debug("cache: redis invalidate failed")
			}
		}
		if errDel := e.rdb.Del(ctx, setKey).Err(); errDel != nil {
			log.WithError(errDel).Debug("cache: redis invalidate failed")
		}
	}
}
