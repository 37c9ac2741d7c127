package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/paulsanswrk/dashboard-sync/internal/cache"
	"github.com/paulsanswrk/dashboard-sync/internal/settings"
	log "github.com/sirupsen/logrus"
)

// CacheHandler exposes chart cache operations to the serving path and the
// operator.
type CacheHandler struct {
	engine *cache.Engine
}

// NewCacheHandler constructs a CacheHandler.
func NewCacheHandler(engine *cache.Engine) *CacheHandler {
	return &CacheHandler{engine: engine}
}

// Stats reports valid/invalid cache entry counts for a tenant.
func (h *CacheHandler) Stats(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Param("id"))
	valid, invalid, errStats := h.engine.Stats(c.Request.Context(), tenantID)
	if errStats != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache stats failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid, "invalid": invalid})
}

// invalidateRequest defines the manual invalidation body.
type invalidateRequest struct {
	Tables []string `json:"tables"` // Target tables whose dependents go stale.
}

// Invalidate bulk-invalidates a tenant's cache entries by table dependency.
func (h *CacheHandler) Invalidate(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Param("id"))
	var body invalidateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body.Tables) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tables is required"})
		return
	}

	count, errInvalidate := h.engine.InvalidateForTables(c.Request.Context(), tenantID, body.Tables)
	if errInvalidate != nil {
		log.WithError(errInvalidate).Errorf("manual cache invalidation failed (tenant=%s)", tenantID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache invalidation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invalidated": count})
}

// lookupRequest identifies one cached chart result by its fingerprint inputs.
type lookupRequest struct {
	TenantID string         `json:"tenant_id"` // Owning tenant.
	Params   map[string]any `json:"params"`    // Query fingerprint: sql, filters, data source.
}

// Lookup returns the cached result for a chart fingerprint, if still valid.
func (h *CacheHandler) Lookup(c *gin.Context) {
	chartID := strings.TrimSpace(c.Param("chartId"))
	var body lookupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.TenantID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required"})
		return
	}

	if !settings.CacheEnabled() {
		c.JSON(http.StatusOK, gin.H{"hit": false, "disabled": true})
		return
	}

	key, errKey := cache.Key(chartID, body.Params)
	if errKey != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unhashable params"})
		return
	}

	entry, errGet := h.engine.Get(c.Request.Context(), chartID, body.TenantID, key)
	if errGet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache lookup failed"})
		return
	}
	if entry == nil {
		c.JSON(http.StatusOK, gin.H{"hit": false, "cache_key": key})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"hit":       true,
		"cache_key": key,
		"data":      json.RawMessage(entry.Data),
		"cached_at": entry.CachedAt,
	})
}

// storeRequest carries a computed chart result for caching.
type storeRequest struct {
	TenantID     string          `json:"tenant_id"`     // Owning tenant.
	Params       map[string]any  `json:"params"`        // Query fingerprint inputs.
	Data         json.RawMessage `json:"data"`          // Computed result payload.
	SQL          string          `json:"sql"`           // Resolved chart SQL, used to derive source tables.
	SourceTables []string        `json:"source_tables"` // Explicit dependency list; wins over SQL extraction.
	DurationMs   *int64          `json:"duration_ms"`   // Compute duration.
}

// Store caches a computed chart result keyed by its fingerprint.
func (h *CacheHandler) Store(c *gin.Context) {
	chartID := strings.TrimSpace(c.Param("chartId"))
	var body storeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.TenantID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required"})
		return
	}

	sourceTables := body.SourceTables
	if len(sourceTables) == 0 {
		sourceTables = cache.SourceTablesFromSQL(body.SQL)
	}
	if len(sourceTables) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_tables or sql is required"})
		return
	}

	key, errKey := cache.Key(chartID, body.Params)
	if errKey != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unhashable params"})
		return
	}

	if errSet := h.engine.Set(c.Request.Context(), chartID, body.TenantID, key, body.Data, sourceTables, body.DurationMs); errSet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache store failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cached": true, "cache_key": key, "source_tables": sourceTables})
}
