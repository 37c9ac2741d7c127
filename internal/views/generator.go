// Package views maintains the per-tenant, column-restricted SQL views over the
// synced base tables.
package views

import (
	"context"
	"fmt"

	"github.com/paulsanswrk/dashboard-sync/internal/columns"
	dbutil "github.com/paulsanswrk/dashboard-sync/internal/db"
	"github.com/paulsanswrk/dashboard-sync/internal/tenant"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Generator regenerates tenant views when the column set drifts or the view is
// missing.
type Generator struct {
	db      *gorm.DB
	tenants *tenant.Registry
	tracker *columns.Tracker
}

// NewGenerator constructs a view Generator.
func NewGenerator(db *gorm.DB, tenants *tenant.Registry, tracker *columns.Tracker) *Generator {
	return &Generator{db: db, tenants: tenants, tracker: tracker}
}

// RegenerateIfNeeded recreates the tenant's view of a table when the pushed
// column set differs from the recorded one or the view object is absent.
// Cheap to call on every sync: the common path is two reads and an upsert.
func (g *Generator) RegenerateIfNeeded(ctx context.Context, tenantID, tableName string, cols []string) error {
	shortName, errRegister := g.tenants.Register(ctx, tenantID, "")
	if errRegister != nil {
		return fmt.Errorf("views: register tenant: %w", errRegister)
	}
	if errEnsure := g.tenants.EnsureSchemaAndRole(ctx, shortName); errEnsure != nil {
		return fmt.Errorf("views: ensure schema: %w", errEnsure)
	}

	// The tracker record is upserted before the view DDL is confirmed; a crash
	// between the two is repaired by the view-absence check on the next call.
	changed, errTrack := g.tracker.UpdateAndCheckDrift(ctx, tenantID, tableName, cols)
	if errTrack != nil {
		return errTrack
	}

	exists, errExists := g.viewExists(ctx, shortName, tableName)
	if errExists != nil {
		return errExists
	}
	if !changed && exists {
		return nil
	}

	sorted := columns.Normalize(cols)
	statement, errBuild := BuildViewSQL(dbutil.DialectName(g.db), shortName, tableName, sorted, tenantID)
	if errBuild != nil {
		return errBuild
	}

	if dbutil.IsSQLite(g.db) {
		// SQLite has no CREATE OR REPLACE VIEW; drop and recreate atomically.
		errTx := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			drop := fmt.Sprintf(`DROP VIEW IF EXISTS %s`, dbutil.QuoteIdentifier(ViewName(shortName, tableName)))
			if errDrop := tx.Exec(drop).Error; errDrop != nil {
				return errDrop
			}
			return tx.Exec(statement).Error
		})
		if errTx != nil {
			return fmt.Errorf("views: recreate %s for %s: %w", tableName, shortName, errTx)
		}
	} else {
		if errExec := g.db.WithContext(ctx).Exec(statement).Error; errExec != nil {
			return fmt.Errorf("views: recreate %s for %s: %w", tableName, shortName, errExec)
		}
	}

	log.WithField("tenant", shortName).Infof("regenerated view %s (%d columns)", tableName, len(sorted))
	return nil
}

// viewExists checks whether the tenant's view object currently exists.
func (g *Generator) viewExists(ctx context.Context, shortName, tableName string) (bool, error) {
	var count int64
	if dbutil.IsSQLite(g.db) {
		errCount := g.db.WithContext(ctx).
			Raw(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'view' AND name = ?`, ViewName(shortName, tableName)).
			Scan(&count).Error
		if errCount != nil {
			return false, fmt.Errorf("views: check view: %w", errCount)
		}
		return count > 0, nil
	}

	errCount := g.db.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM information_schema.views WHERE table_schema = ? AND table_name = ?`,
			tenant.SchemaName(shortName), tableName).
		Scan(&count).Error
	if errCount != nil {
		return false, fmt.Errorf("views: check view: %w", errCount)
	}
	return count > 0, nil
}
