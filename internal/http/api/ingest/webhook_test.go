package ingest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulsanswrk/dashboard-sync/internal/cache"
	"github.com/paulsanswrk/dashboard-sync/internal/columns"
	"github.com/paulsanswrk/dashboard-sync/internal/db"
	"github.com/paulsanswrk/dashboard-sync/internal/models"
	"github.com/paulsanswrk/dashboard-sync/internal/pushlog"
	"github.com/paulsanswrk/dashboard-sync/internal/settings"
	"github.com/paulsanswrk/dashboard-sync/internal/syncer"
	"github.com/paulsanswrk/dashboard-sync/internal/tenant"
	"github.com/paulsanswrk/dashboard-sync/internal/views"
	"gorm.io/gorm"
)

const (
	testSecret   = "hook-secret"
	testTenantID = "7b9f3a40-1111-4222-8333-444455556666"
)

func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB, *syncer.Pipeline) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, errOpen := db.Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	if errExec := conn.Exec(`CREATE TABLE work_orders (id text primary key, tenant_id text, status text)`).Error; errExec != nil {
		t.Fatalf("create base table: %v", errExec)
	}

	tenants := tenant.NewRegistry(conn)
	tracker := columns.NewTracker(conn)
	viewgen := views.NewGenerator(conn, tenants, tracker)
	cacheEngine := cache.NewEngine(conn, nil)
	pushes := pushlog.NewLog(conn)
	dispatcher := syncer.NewDispatcher(2, 5*time.Second)
	pipeline := syncer.NewPipeline(conn, viewgen, cacheEngine, pushes, dispatcher)

	engine := gin.New()
	RegisterIngestRoutes(engine, conn, pipeline, testSecret)
	return engine, conn, pipeline
}

func postWebhook(t *testing.T, engine *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(http.MethodPost, "/v1/sync/webhook", bytes.NewReader(body))
	if signature != "" {
		request.Header.Set(syncer.SignatureHeader, signature)
	}
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, request)
	return recorder
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	engine, conn, _ := newTestServer(t)

	body := []byte(`{"operation":"INSERT","table":"service_orders","tenant_id":"` + testTenantID + `","data":{"id":"wo-1","tenant_id":"` + testTenantID + `"}}`)
	recorder := postWebhook(t, engine, body, "deadbeef")

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var count int64
	if errCount := conn.Raw(`SELECT COUNT(*) FROM "work_orders"`).Scan(&count).Error; errCount != nil {
		t.Fatalf("count rows: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("rejected event must write nothing, got %d rows", count)
	}

	var audit models.WebhookLog
	if errFind := conn.Order("id DESC").Take(&audit).Error; errFind != nil {
		t.Fatalf("read audit log: %v", errFind)
	}
	if audit.Status != models.WebhookStatusError {
		t.Fatalf("expected error audit status, got %s", audit.Status)
	}
}

func TestWebhookAcceptsSignedEvent(t *testing.T) {
	engine, conn, pipeline := newTestServer(t)

	body := []byte(`{"operation":"INSERT","table":"service_orders","tenant_id":"` + testTenantID + `","data":{"id":"wo-1","tenant_id":"` + testTenantID + `","status":"open"},"sync_id":"push-1"}`)
	recorder := postWebhook(t, engine, body, syncer.Sign(testSecret, body))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	pipeline.Dispatcher().Wait()

	var response struct {
		Received bool           `json:"received"`
		Counts   map[string]int `json:"counts"`
	}
	if errDecode := json.Unmarshal(recorder.Body.Bytes(), &response); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if !response.Received || response.Counts["work_orders"] != 1 {
		t.Fatalf("unexpected response: %s", recorder.Body.String())
	}

	var count int64
	if errCount := conn.Raw(`SELECT COUNT(*) FROM "work_orders"`).Scan(&count).Error; errCount != nil {
		t.Fatalf("count rows: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}

func TestWebhookTestEvent(t *testing.T) {
	engine, _, _ := newTestServer(t)

	body := []byte(`{"operation":"TEST"}`)
	recorder := postWebhook(t, engine, body, syncer.Sign(testSecret, body))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var response struct {
		Received bool `json:"received"`
		Test     bool `json:"test"`
	}
	if errDecode := json.Unmarshal(recorder.Body.Bytes(), &response); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if !response.Received || !response.Test {
		t.Fatalf("unexpected response: %s", recorder.Body.String())
	}
}

func TestWebhookSkipsUnmappedTable(t *testing.T) {
	engine, _, _ := newTestServer(t)

	body := []byte(`{"operation":"INSERT","table":"invoices","tenant_id":"` + testTenantID + `","data":{"id":"inv-1"}}`)
	recorder := postWebhook(t, engine, body, syncer.Sign(testSecret, body))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var response struct {
		Skipped bool `json:"skipped"`
	}
	if errDecode := json.Unmarshal(recorder.Body.Bytes(), &response); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if !response.Skipped {
		t.Fatalf("expected skipped ack: %s", recorder.Body.String())
	}
}

func TestWebhookRejectsMalformedEvent(t *testing.T) {
	engine, _, _ := newTestServer(t)

	body := []byte(`{"operation":"INSERT","table":"service_orders","tenant_id":"not-a-uuid","data":{"id":"x"}}`)
	recorder := postWebhook(t, engine, body, syncer.Sign(testSecret, body))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestWebhookPausedSyncWritesAuditRow(t *testing.T) {
	engine, conn, _ := newTestServer(t)

	settings.Store(time.Now().UTC(), map[string]json.RawMessage{
		settings.SyncPausedKey: json.RawMessage(`true`),
	})
	t.Cleanup(func() {
		settings.Store(time.Now().UTC(), nil)
	})

	body := []byte(`{"operation":"INSERT","table":"service_orders","tenant_id":"` + testTenantID + `","data":{"id":"wo-1","tenant_id":"` + testTenantID + `"}}`)
	recorder := postWebhook(t, engine, body, syncer.Sign(testSecret, body))

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var audit models.WebhookLog
	if errFind := conn.Order("id DESC").Take(&audit).Error; errFind != nil {
		t.Fatalf("read audit log: %v", errFind)
	}
	if audit.Status != models.WebhookStatusPaused {
		t.Fatalf("expected paused audit status, got %s", audit.Status)
	}
}

func TestWebhookUnsignedRequestAllowedWhenHeaderAbsent(t *testing.T) {
	// Verification applies only when both a secret and a header are present;
	// senders that cannot sign still get through.
	engine, _, _ := newTestServer(t)

	body := []byte(`{"operation":"TEST"}`)
	recorder := postWebhook(t, engine, body, "")

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}
