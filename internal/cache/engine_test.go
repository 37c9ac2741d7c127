package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/paulsanswrk/dashboard-sync/internal/db"
	"github.com/paulsanswrk/dashboard-sync/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	tenantA = "7b9f3a40-1111-4222-8333-444455556666"
	tenantB = "8c0e4b51-1111-4222-8333-444455556666"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := db.Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func TestSetThenGetRoundTrip(t *testing.T) {
	engine := NewEngine(openTestDB(t), nil)
	ctx := context.Background()
	payload := json.RawMessage(`{"rows":[{"count":42}]}`)

	if errSet := engine.Set(ctx, "chart-1", tenantA, "key-1", payload, []string{"work_orders"}, nil); errSet != nil {
		t.Fatalf("set: %v", errSet)
	}

	entry, errGet := engine.Get(ctx, "chart-1", tenantA, "key-1")
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if entry == nil {
		t.Fatal("expected a hit")
	}
	if string(entry.Data) != string(payload) {
		t.Fatalf("payload mismatch: %s", entry.Data)
	}
}

func TestStoredRowKeepsDecodableSourceTables(t *testing.T) {
	conn := openTestDB(t)
	engine := NewEngine(conn, nil)
	ctx := context.Background()

	if errSet := engine.Set(ctx, "chart-1", tenantA, "key-1", json.RawMessage(`{}`), []string{"work_orders", "sites", "work_orders"}, nil); errSet != nil {
		t.Fatalf("set: %v", errSet)
	}

	var row models.ChartCache
	if errFind := conn.Where("chart_id = ? AND tenant_id = ?", "chart-1", tenantA).Take(&row).Error; errFind != nil {
		t.Fatalf("load row: %v", errFind)
	}
	tables, errDecode := decodeSourceTables(row.SourceTables)
	if errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if len(tables) != 2 {
		t.Fatalf("expected deduplicated source tables, got %v", tables)
	}

	if _, errDecode := decodeSourceTables(datatypes.JSON(`not json`)); errDecode == nil {
		t.Fatal("expected malformed source tables to fail decoding")
	}
	if tables, errDecode := decodeSourceTables(nil); errDecode != nil || tables != nil {
		t.Fatalf("expected empty decode, got %v / %v", tables, errDecode)
	}
}

func TestRedisEntryRoundTripKeepsWriteTime(t *testing.T) {
	wrote := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	encoded, errMarshal := json.Marshal(redisEntry{Data: json.RawMessage(`{"v":1}`), CachedAt: wrote})
	if errMarshal != nil {
		t.Fatalf("marshal: %v", errMarshal)
	}

	var decoded redisEntry
	if errDecode := json.Unmarshal(encoded, &decoded); errDecode != nil {
		t.Fatalf("unmarshal: %v", errDecode)
	}
	if string(decoded.Data) != `{"v":1}` {
		t.Fatalf("payload mismatch: %s", decoded.Data)
	}
	if !decoded.CachedAt.Equal(wrote) {
		t.Fatalf("write time mismatch: %v", decoded.CachedAt)
	}
}

func TestGetMissReturnsNil(t *testing.T) {
	engine := NewEngine(openTestDB(t), nil)

	entry, errGet := engine.Get(context.Background(), "chart-1", tenantA, "absent")
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if entry != nil {
		t.Fatal("expected a miss")
	}
}

func TestSetRevalidatesInvalidatedEntry(t *testing.T) {
	engine := NewEngine(openTestDB(t), nil)
	ctx := context.Background()

	if errSet := engine.Set(ctx, "chart-1", tenantA, "key-1", json.RawMessage(`{"v":1}`), []string{"work_orders"}, nil); errSet != nil {
		t.Fatalf("set: %v", errSet)
	}
	if _, errInvalidate := engine.InvalidateForTables(ctx, tenantA, []string{"work_orders"}); errInvalidate != nil {
		t.Fatalf("invalidate: %v", errInvalidate)
	}
	if entry, _ := engine.Get(ctx, "chart-1", tenantA, "key-1"); entry != nil {
		t.Fatal("invalidated entry must be a miss")
	}

	if errSet := engine.Set(ctx, "chart-1", tenantA, "key-1", json.RawMessage(`{"v":2}`), []string{"work_orders"}, nil); errSet != nil {
		t.Fatalf("re-set: %v", errSet)
	}
	entry, errGet := engine.Get(ctx, "chart-1", tenantA, "key-1")
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if entry == nil || string(entry.Data) != `{"v":2}` {
		t.Fatalf("expected refreshed entry, got %+v", entry)
	}
}

func TestInvalidateForTablesMatchesByDependency(t *testing.T) {
	engine := NewEngine(openTestDB(t), nil)
	ctx := context.Background()

	if errSet := engine.Set(ctx, "chart-orders", tenantA, "key-1", json.RawMessage(`{}`), []string{"work_orders", "sites"}, nil); errSet != nil {
		t.Fatalf("set orders: %v", errSet)
	}
	if errSet := engine.Set(ctx, "chart-countries", tenantA, "key-2", json.RawMessage(`{}`), []string{"countries"}, nil); errSet != nil {
		t.Fatalf("set countries: %v", errSet)
	}

	count, errInvalidate := engine.InvalidateForTables(ctx, tenantA, []string{"sites"})
	if errInvalidate != nil {
		t.Fatalf("invalidate: %v", errInvalidate)
	}
	if count != 1 {
		t.Fatalf("expected 1 invalidated row, got %d", count)
	}

	if entry, _ := engine.Get(ctx, "chart-orders", tenantA, "key-1"); entry != nil {
		t.Fatal("sites-dependent entry must be invalid")
	}
	if entry, _ := engine.Get(ctx, "chart-countries", tenantA, "key-2"); entry == nil {
		t.Fatal("countries entry must survive a sites invalidation")
	}
}

func TestInvalidateForTablesIsTenantScoped(t *testing.T) {
	engine := NewEngine(openTestDB(t), nil)
	ctx := context.Background()

	if errSet := engine.Set(ctx, "chart-1", tenantA, "key-a", json.RawMessage(`{}`), []string{"work_orders"}, nil); errSet != nil {
		t.Fatalf("set tenant A: %v", errSet)
	}
	if errSet := engine.Set(ctx, "chart-1", tenantB, "key-b", json.RawMessage(`{}`), []string{"work_orders"}, nil); errSet != nil {
		t.Fatalf("set tenant B: %v", errSet)
	}

	if _, errInvalidate := engine.InvalidateForTables(ctx, tenantA, []string{"work_orders"}); errInvalidate != nil {
		t.Fatalf("invalidate: %v", errInvalidate)
	}

	if entry, _ := engine.Get(ctx, "chart-1", tenantA, "key-a"); entry != nil {
		t.Fatal("tenant A entry must be invalid")
	}
	if entry, _ := engine.Get(ctx, "chart-1", tenantB, "key-b"); entry == nil {
		t.Fatal("tenant B entry must be untouched")
	}
}

func TestInvalidateForTablesEmptyListIsNoOp(t *testing.T) {
	engine := NewEngine(openTestDB(t), nil)

	count, errInvalidate := engine.InvalidateForTables(context.Background(), tenantA, nil)
	if errInvalidate != nil {
		t.Fatalf("invalidate: %v", errInvalidate)
	}
	if count != 0 {
		t.Fatalf("expected 0 rows, got %d", count)
	}
}

func TestStats(t *testing.T) {
	engine := NewEngine(openTestDB(t), nil)
	ctx := context.Background()

	for i, chart := range []string{"c1", "c2", "c3"} {
		sourceTables := []string{"work_orders"}
		if i == 2 {
			sourceTables = []string{"countries"}
		}
		if errSet := engine.Set(ctx, chart, tenantA, "key", json.RawMessage(`{}`), sourceTables, nil); errSet != nil {
			t.Fatalf("set %s: %v", chart, errSet)
		}
	}
	if _, errInvalidate := engine.InvalidateForTables(ctx, tenantA, []string{"work_orders"}); errInvalidate != nil {
		t.Fatalf("invalidate: %v", errInvalidate)
	}

	valid, invalid, errStats := engine.Stats(ctx, tenantA)
	if errStats != nil {
		t.Fatalf("stats: %v", errStats)
	}
	if valid != 1 || invalid != 2 {
		t.Fatalf("stats: got valid=%d invalid=%d, want 1/2", valid, invalid)
	}
}
