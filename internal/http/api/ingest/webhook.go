// Package ingest exposes the webhook endpoint receiving change events from
// the source system.
package ingest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulsanswrk/dashboard-sync/internal/models"
	"github.com/paulsanswrk/dashboard-sync/internal/settings"
	"github.com/paulsanswrk/dashboard-sync/internal/syncer"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WebhookHandler processes inbound sync events.
type WebhookHandler struct {
	db       *gorm.DB
	pipeline *syncer.Pipeline
	secret   string
}

// NewWebhookHandler constructs a WebhookHandler. secret may be empty, which
// disables signature verification.
func NewWebhookHandler(db *gorm.DB, pipeline *syncer.Pipeline, secret string) *WebhookHandler {
	return &WebhookHandler{db: db, pipeline: pipeline, secret: secret}
}

// RegisterIngestRoutes mounts the webhook endpoint.
func RegisterIngestRoutes(engine *gin.Engine, db *gorm.DB, pipeline *syncer.Pipeline, secret string) {
	handler := NewWebhookHandler(db, pipeline, secret)
	engine.POST("/v1/sync/webhook", handler.Receive)
}

// Receive handles one webhook request: signature guard, validation, apply,
// downstream dispatch, audit log.
func (h *WebhookHandler) Receive(c *gin.Context) {
	start := time.Now()

	body, errRead := c.GetRawData()
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	// Signature mismatch is a hard rejection before any other processing.
	if signature := c.GetHeader(syncer.SignatureHeader); h.secret != "" && signature != "" {
		if errVerify := syncer.VerifySignature(h.secret, body, signature); errVerify != nil {
			h.audit(c, nil, models.WebhookStatusError, "invalid signature", start)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}

	if settings.SyncPaused() {
		h.audit(c, nil, models.WebhookStatusPaused, "sync is paused", start)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sync is paused"})
		return
	}

	var event syncer.Event
	if errDecode := json.Unmarshal(body, &event); errDecode != nil {
		h.audit(c, nil, models.WebhookStatusError, "invalid json", start)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	result, errProcess := h.pipeline.Process(c.Request.Context(), &event)
	if errProcess != nil {
		var validationErr *syncer.ValidationError
		if errors.As(errProcess, &validationErr) {
			h.audit(c, &event, models.WebhookStatusError, validationErr.Reason, start)
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Reason})
			return
		}
		log.WithError(errProcess).WithField("tenant", event.TenantID).Error("webhook processing failed")
		h.audit(c, &event, models.WebhookStatusError, errProcess.Error(), start)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
		return
	}

	switch {
	case result.Test:
		h.audit(c, &event, models.WebhookStatusTest, "", start)
		c.JSON(http.StatusOK, gin.H{"received": true, "test": true})
	case result.Skipped:
		h.audit(c, &event, models.WebhookStatusSkipped, "", start)
		c.JSON(http.StatusOK, gin.H{"received": true, "skipped": true})
	default:
		h.audit(c, &event, models.WebhookStatusLogged, "", start)
		response := gin.H{
			"received":    true,
			"duration_ms": result.Duration.Milliseconds(),
			"counts":      result.Counts,
		}
		if len(result.TableErrors) > 0 {
			response["table_errors"] = result.TableErrors
		}
		c.JSON(http.StatusOK, response)
	}
}

// audit records the inbound event outcome. Audit failures are logged, never
// surfaced.
func (h *WebhookHandler) audit(c *gin.Context, event *syncer.Event, status, detail string, start time.Time) {
	row := models.WebhookLog{
		Status:     status,
		Error:      detail,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if event != nil {
		row.TenantID = event.TenantID
		row.Operation = event.Operation
		row.Table = event.Table
		row.SyncID = event.SyncID
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).Warn("webhook audit log write failed")
	}
}
