// Package admin wires the operator API: tenant administration, cache
// inspection, push/webhook log access and runtime settings.
package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/paulsanswrk/dashboard-sync/internal/cache"
	"github.com/paulsanswrk/dashboard-sync/internal/config"
	"github.com/paulsanswrk/dashboard-sync/internal/http/api/admin/handlers"
	"github.com/paulsanswrk/dashboard-sync/internal/pushlog"
	"github.com/paulsanswrk/dashboard-sync/internal/tenant"
	"gorm.io/gorm"
)

// Deps carries the components the admin surface operates on.
type Deps struct {
	DB      *gorm.DB
	JWT     config.JWTConfig
	Tenants *tenant.Registry
	Cache   *cache.Engine
	Pushes  *pushlog.Log
}

// RegisterAdminRoutes mounts the admin API under /v1/admin.
func RegisterAdminRoutes(engine *gin.Engine, deps Deps) {
	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT)
	healthHandler := handlers.NewHealthHandler(deps.DB)
	tenantHandler := handlers.NewTenantHandler(deps.DB, deps.Tenants)
	cacheHandler := handlers.NewCacheHandler(deps.Cache)
	pushLogHandler := handlers.NewPushLogHandler(deps.Pushes)
	webhookLogHandler := handlers.NewWebhookLogHandler(deps.DB)
	settingsHandler := handlers.NewSettingsHandler(deps.DB)

	engine.GET("/healthz", healthHandler.Healthz)

	api := engine.Group("/v1/admin")
	api.POST("/login", authHandler.Login)

	authed := api.Group("", adminAuthMiddleware(deps.DB, deps.JWT))
	authed.GET("/tenants", tenantHandler.List)
	authed.DELETE("/tenants/:id", tenantHandler.Purge)
	authed.GET("/tenants/:id/push-logs", pushLogHandler.List)
	authed.GET("/tenants/:id/cache", cacheHandler.Stats)
	authed.POST("/tenants/:id/cache/invalidate", cacheHandler.Invalidate)
	authed.POST("/charts/:chartId/cache/lookup", cacheHandler.Lookup)
	authed.PUT("/charts/:chartId/cache", cacheHandler.Store)
	authed.GET("/webhook-logs", webhookLogHandler.List)
	authed.GET("/settings", settingsHandler.List)
	authed.PUT("/settings", settingsHandler.Update)
}
