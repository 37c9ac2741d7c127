package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/paulsanswrk/dashboard-sync/internal/models"
	"gorm.io/gorm"
)

// WebhookLogHandler lists the inbound webhook audit trail.
type WebhookLogHandler struct {
	db *gorm.DB
}

// NewWebhookLogHandler constructs a WebhookLogHandler.
func NewWebhookLogHandler(db *gorm.DB) *WebhookLogHandler {
	return &WebhookLogHandler{db: db}
}

// List returns recent webhook audit entries, newest first. Supports optional
// tenant_id and status filters plus a limit query parameter.
func (h *WebhookLogHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := h.db.WithContext(c.Request.Context()).Model(&models.WebhookLog{})
	if tenantID := strings.TrimSpace(c.Query("tenant_id")); tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		query = query.Where("status = ?", status)
	}

	var entries []models.WebhookLog
	if errFind := query.Order("created_at DESC").Limit(limit).Find(&entries).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook log query failed"})
		return
	}

	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		item := gin.H{
			"id":          e.ID,
			"tenant_id":   e.TenantID,
			"operation":   e.Operation,
			"table_name":  e.Table,
			"sync_id":     e.SyncID,
			"status":      e.Status,
			"duration_ms": e.DurationMs,
			"created_at":  e.CreatedAt,
		}
		if e.Error != "" {
			item["error"] = e.Error
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"logs": out})
}
