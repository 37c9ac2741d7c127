package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/paulsanswrk/dashboard-sync/internal/models"
	"github.com/paulsanswrk/dashboard-sync/internal/tenant"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TenantHandler manages admin endpoints for registered tenants.
type TenantHandler struct {
	db      *gorm.DB
	tenants *tenant.Registry
}

// NewTenantHandler constructs a TenantHandler.
func NewTenantHandler(db *gorm.DB, tenants *tenant.Registry) *TenantHandler {
	return &TenantHandler{db: db, tenants: tenants}
}

// List returns all registered tenants.
func (h *TenantHandler) List(c *gin.Context) {
	var rows []models.Tenant
	if errFind := h.db.WithContext(c.Request.Context()).Order("short_name ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list tenants failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":           row.ID,
			"short_name":   row.ShortName,
			"display_name": row.DisplayName,
			"schema_name":  tenant.SchemaName(row.ShortName),
			"role_name":    tenant.RoleName(row.ShortName),
			"created_at":   row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"tenants": out})
}

// Purge removes one tenant and all of its synced state.
func (h *TenantHandler) Purge(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Param("id"))
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant id is required"})
		return
	}

	if errPurge := h.tenants.Purge(c.Request.Context(), tenantID); errPurge != nil {
		if errors.Is(errPurge, tenant.ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
			return
		}
		log.WithError(errPurge).Errorf("tenant purge failed (tenant=%s)", tenantID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant purge failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"purged": true})
}
