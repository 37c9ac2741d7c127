package columns

import (
	"context"
	"testing"

	"github.com/paulsanswrk/dashboard-sync/internal/db"
	"gorm.io/gorm"
)

const testTenantID = "7b9f3a40-1111-4222-8333-444455556666"

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

func TestUpdateAndCheckDriftFirstPushIsDrift(t *testing.T) {
	tracker := NewTracker(openTestDB(t))

	changed, errUpdate := tracker.UpdateAndCheckDrift(context.Background(), testTenantID, "work_orders", []string{"id", "tenant_id", "status"})
	if errUpdate != nil {
		t.Fatalf("update: %v", errUpdate)
	}
	if !changed {
		t.Fatal("first push must report drift")
	}
}

func TestUpdateAndCheckDriftIgnoresColumnOrder(t *testing.T) {
	tracker := NewTracker(openTestDB(t))
	ctx := context.Background()

	if _, errUpdate := tracker.UpdateAndCheckDrift(ctx, testTenantID, "work_orders", []string{"id", "tenant_id", "status"}); errUpdate != nil {
		t.Fatalf("seed: %v", errUpdate)
	}

	changed, errUpdate := tracker.UpdateAndCheckDrift(ctx, testTenantID, "work_orders", []string{"status", "id", "tenant_id", "status"})
	if errUpdate != nil {
		t.Fatalf("update: %v", errUpdate)
	}
	if changed {
		t.Fatal("reordered and duplicated columns must not report drift")
	}
}

func TestUpdateAndCheckDriftDetectsNewColumn(t *testing.T) {
	tracker := NewTracker(openTestDB(t))
	ctx := context.Background()

	if _, errUpdate := tracker.UpdateAndCheckDrift(ctx, testTenantID, "work_orders", []string{"id", "tenant_id"}); errUpdate != nil {
		t.Fatalf("seed: %v", errUpdate)
	}

	changed, errUpdate := tracker.UpdateAndCheckDrift(ctx, testTenantID, "work_orders", []string{"id", "tenant_id", "priority"})
	if errUpdate != nil {
		t.Fatalf("update: %v", errUpdate)
	}
	if !changed {
		t.Fatal("added column must report drift")
	}

	cols, found, errLoad := tracker.Columns(ctx, testTenantID, "work_orders")
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if !found {
		t.Fatal("expected a persisted record")
	}
	want := []string{"id", "priority", "tenant_id"}
	if len(cols) != len(want) {
		t.Fatalf("columns: got %v, want %v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("columns: got %v, want %v", cols, want)
		}
	}
}

func TestUpdateAndCheckDriftScopesByTenantAndTable(t *testing.T) {
	tracker := NewTracker(openTestDB(t))
	ctx := context.Background()

	if _, errUpdate := tracker.UpdateAndCheckDrift(ctx, testTenantID, "work_orders", []string{"id", "tenant_id"}); errUpdate != nil {
		t.Fatalf("seed: %v", errUpdate)
	}

	changed, errUpdate := tracker.UpdateAndCheckDrift(ctx, testTenantID, "sites", []string{"id", "tenant_id"})
	if errUpdate != nil {
		t.Fatalf("other table: %v", errUpdate)
	}
	if !changed {
		t.Fatal("same columns on a different table must still be a first push")
	}

	changed, errUpdate = tracker.UpdateAndCheckDrift(ctx, "8c0e4b51-1111-4222-8333-444455556666", "work_orders", []string{"id", "tenant_id"})
	if errUpdate != nil {
		t.Fatalf("other tenant: %v", errUpdate)
	}
	if !changed {
		t.Fatal("same columns for a different tenant must still be a first push")
	}
}

func TestUpdateAndCheckDriftRejectsEmptyColumnSet(t *testing.T) {
	tracker := NewTracker(openTestDB(t))
	if _, errUpdate := tracker.UpdateAndCheckDrift(context.Background(), testTenantID, "work_orders", []string{" ", ""}); errUpdate == nil {
		t.Fatal("expected empty column set to be rejected")
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize([]string{" status ", "id", "status", "", "id"})
	want := []string{"id", "status"}
	if len(got) != len(want) {
		t.Fatalf("normalize: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("normalize: got %v, want %v", got, want)
		}
	}
}
