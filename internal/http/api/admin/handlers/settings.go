package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/paulsanswrk/dashboard-sync/internal/models"
	"github.com/paulsanswrk/dashboard-sync/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsHandler reads and writes runtime settings stored in the database.
type SettingsHandler struct {
	db *gorm.DB
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

// List returns all runtime settings as a key/value map.
func (h *SettingsHandler) List(c *gin.Context) {
	var rows []models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).Order("key ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "settings query failed"})
		return
	}

	out := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	c.JSON(http.StatusOK, gin.H{"settings": out})
}

// Update upserts the provided settings and refreshes the in-memory snapshot.
func (h *SettingsHandler) Update(c *gin.Context) {
	var body map[string]json.RawMessage
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no settings provided"})
		return
	}

	for key, value := range body {
		key = strings.TrimSpace(key)
		if key == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty setting key"})
			return
		}
		if !json.Valid(value) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "setting value must be valid json: " + key})
			return
		}
		row := models.Setting{Key: key, Value: value}
		if errSave := h.db.WithContext(c.Request.Context()).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).
			Create(&row).Error; errSave != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "setting update failed"})
			return
		}
	}

	if errRefresh := settings.Refresh(c.Request.Context(), h.db); errRefresh != nil {
		log.WithError(errRefresh).Warn("settings snapshot refresh failed after update")
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(body)})
}
