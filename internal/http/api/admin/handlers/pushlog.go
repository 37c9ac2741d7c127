package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/paulsanswrk/dashboard-sync/internal/pushlog"
)

// PushLogHandler lists per-tenant push history.
type PushLogHandler struct {
	pushes *pushlog.Log
}

// NewPushLogHandler constructs a PushLogHandler.
func NewPushLogHandler(pushes *pushlog.Log) *PushLogHandler {
	return &PushLogHandler{pushes: pushes}
}

// List returns a tenant's most recent pushes, newest first.
func (h *PushLogHandler) List(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Param("id"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, errRecent := h.pushes.Recent(c.Request.Context(), tenantID, limit)
	if errRecent != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "push log query failed"})
		return
	}

	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"push_id":         e.PushID,
			"affected_tables": e.AffectedTables,
			"record_counts":   e.RecordCounts,
			"pushed_at":       e.PushedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"pushes": out})
}
