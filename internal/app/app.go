// Package app boots the sync service: database, cache engine, background
// dispatcher and the HTTP surfaces.
package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulsanswrk/dashboard-sync/internal/cache"
	"github.com/paulsanswrk/dashboard-sync/internal/columns"
	"github.com/paulsanswrk/dashboard-sync/internal/config"
	"github.com/paulsanswrk/dashboard-sync/internal/db"
	adminapi "github.com/paulsanswrk/dashboard-sync/internal/http/api/admin"
	"github.com/paulsanswrk/dashboard-sync/internal/http/api/ingest"
	"github.com/paulsanswrk/dashboard-sync/internal/logging"
	"github.com/paulsanswrk/dashboard-sync/internal/models"
	"github.com/paulsanswrk/dashboard-sync/internal/pushlog"
	"github.com/paulsanswrk/dashboard-sync/internal/security"
	"github.com/paulsanswrk/dashboard-sync/internal/settings"
	"github.com/paulsanswrk/dashboard-sync/internal/syncer"
	"github.com/paulsanswrk/dashboard-sync/internal/tenant"
	"github.com/paulsanswrk/dashboard-sync/internal/util"
	"github.com/paulsanswrk/dashboard-sync/internal/views"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// shutdownTimeout bounds graceful HTTP server shutdown.
const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg *config.Config) error {
	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn.WithContext(ctx))
}

// RunServer boots the webhook ingestion server with database-backed components.
func RunServer(ctx context.Context, cfg *config.Config) error {
	logging.Setup(cfg.Log)

	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errSnapshot := settings.Refresh(ctx, conn); errSnapshot != nil {
		return errSnapshot
	}
	if errSeed := seedAdmin(ctx, conn, cfg.Admin); errSeed != nil {
		return errSeed
	}

	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		// Ephemeral secret: admin sessions do not survive a restart.
		generated, errGenerate := security.GenerateSecret(32)
		if errGenerate != nil {
			return errGenerate
		}
		cfg.JWT.Secret = generated
		log.Warn("jwt secret not configured, generated an ephemeral one")
	}
	if cfg.WebhookSecret != "" {
		log.Infof("webhook signature verification enabled (secret %s)", util.HideSecret(cfg.WebhookSecret))
	} else {
		log.Warn("webhook secret not configured, signature verification disabled")
	}

	var rdb *redis.Client
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		if errPing := rdb.Ping(ctx).Err(); errPing != nil {
			log.WithError(errPing).Warnf("redis unreachable at %s, cache runs database-only", addr)
		}
	}

	tenants := tenant.NewRegistry(conn)
	tracker := columns.NewTracker(conn)
	viewgen := views.NewGenerator(conn, tenants, tracker)
	cacheEngine := cache.NewEngine(conn, rdb)
	pushes := pushlog.NewLog(conn)
	dispatcher := syncer.NewDispatcher(cfg.Dispatcher.MaxConcurrent, cfg.Dispatcher.TaskTimeout())
	pipeline := syncer.NewPipeline(conn, viewgen, cacheEngine, pushes, dispatcher)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	ingest.RegisterIngestRoutes(engine, conn, pipeline, cfg.WebhookSecret)
	adminapi.RegisterAdminRoutes(engine, adminapi.Deps{
		DB:      conn,
		JWT:     cfg.JWT,
		Tenants: tenants,
		Cache:   cacheEngine,
		Pushes:  pushes,
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: engine,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.ListenAddr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case errServe := <-serveErr:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return errServe
		}
	case <-ctx.Done():
		log.Info("shutdown requested, draining")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		log.WithError(errShutdown).Warn("http shutdown incomplete")
	}

	// Let in-flight view/cache/log tasks finish before exiting.
	dispatcher.Wait()
	return nil
}

// seedAdmin creates the configured administrator account if it does not exist.
func seedAdmin(ctx context.Context, conn *gorm.DB, cfg config.AdminConfig) error {
	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		return nil
	}
	if strings.TrimSpace(cfg.Password) == "" {
		return errors.New("app: admin username set without password")
	}

	hash, errHash := security.HashPassword(cfg.Password)
	if errHash != nil {
		return errHash
	}
	admin := models.Admin{Username: username, Password: hash, Active: true}
	result := conn.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "username"}}, DoNothing: true}).
		Create(&admin)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Infof("seeded admin account %s", username)
	}
	return nil
}
