// Package tenant resolves source-system tenant IDs to stable short names and
// provisions the per-tenant Postgres schema and role.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dbutil "github.com/paulsanswrk/dashboard-sync/internal/db"
	"github.com/paulsanswrk/dashboard-sync/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BaseSchema is the shared schema holding the synced base tables.
const BaseSchema = "base"

// ErrTenantNotFound indicates no tenant is registered for an ID.
var ErrTenantNotFound = errors.New("tenant: not found")

// maxSlugAttempts bounds collision-suffix retries during registration.
const maxSlugAttempts = 20

// SchemaName returns the Postgres schema name for a tenant short name.
func SchemaName(shortName string) string {
	return "tenant_" + shortName
}

// RoleName returns the Postgres role name for a tenant short name.
func RoleName(shortName string) string {
	return "tenant_" + shortName + "_role"
}

// Registry persists tenant short-name assignments and provisions schemas.
type Registry struct {
	db *gorm.DB
}

// NewRegistry constructs a tenant Registry.
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// ResolveShortName looks up the persisted short name for a tenant ID.
func (r *Registry) ResolveShortName(ctx context.Context, tenantID string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", fmt.Errorf("tenant: empty tenant id")
	}

	var row models.Tenant
	if errFind := r.db.WithContext(ctx).Select("short_name").Where("id = ?", tenantID).Take(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return "", ErrTenantNotFound
		}
		return "", fmt.Errorf("tenant: resolve short name: %w", errFind)
	}
	return row.ShortName, nil
}

// Register returns the tenant's short name, assigning one on first registration.
// Safe under concurrent calls for the same tenant ID: the insert is
// insert-if-absent on the primary key, so a race re-reads the winner's row
// instead of producing a second short name.
func (r *Registry) Register(ctx context.Context, tenantID, displayName string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", fmt.Errorf("tenant: empty tenant id")
	}

	if shortName, errResolve := r.ResolveShortName(ctx, tenantID); errResolve == nil {
		return shortName, nil
	} else if !errors.Is(errResolve, ErrTenantNotFound) {
		return "", errResolve
	}

	base := DeriveSlug(displayName, tenantID)
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		candidate := base
		if attempt > 0 {
			candidate = fmt.Sprintf("%s_%d", base, attempt+1)
		}

		row := models.Tenant{ID: tenantID, ShortName: candidate, DisplayName: strings.TrimSpace(displayName)}
		res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&row)
		if res.Error != nil {
			// A short_name collision from a sibling tenant surfaces here as a
			// unique violation; try the next suffix. Anything else is a real
			// database failure.
			if dbutil.IsUniqueViolation(res.Error) {
				continue
			}
			return "", fmt.Errorf("tenant: register %s: %w", tenantID, res.Error)
		}

		shortName, errResolve := r.ResolveShortName(ctx, tenantID)
		if errResolve != nil {
			return "", errResolve
		}
		if shortName != candidate {
			log.Infof("tenant %s already registered as %s", tenantID, shortName)
		}
		return shortName, nil
	}
	return "", fmt.Errorf("tenant: could not assign short name for %s", tenantID)
}

// EnsureSchemaAndRole idempotently creates the tenant schema and read-only role
// and applies grants. Running twice is safe. No-op on SQLite, which has neither
// schemas nor roles.
func (r *Registry) EnsureSchemaAndRole(ctx context.Context, shortName string) error {
	if !validShortName(shortName) {
		return fmt.Errorf("tenant: invalid short name %q", shortName)
	}
	if dbutil.IsSQLite(r.db) {
		return nil
	}

	schema := SchemaName(shortName)
	role := RoleName(shortName)

	statements := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, dbutil.QuoteIdentifier(schema)),
		fmt.Sprintf(`DO $$ BEGIN CREATE ROLE %s; EXCEPTION WHEN duplicate_object THEN NULL; END $$`, dbutil.QuoteIdentifier(role)),
		fmt.Sprintf(`GRANT USAGE ON SCHEMA %s TO %s`, dbutil.QuoteIdentifier(schema), dbutil.QuoteIdentifier(role)),
		fmt.Sprintf(`GRANT SELECT ON ALL TABLES IN SCHEMA %s TO %s`, dbutil.QuoteIdentifier(schema), dbutil.QuoteIdentifier(role)),
		fmt.Sprintf(`ALTER DEFAULT PRIVILEGES IN SCHEMA %s GRANT SELECT ON TABLES TO %s`, dbutil.QuoteIdentifier(schema), dbutil.QuoteIdentifier(role)),
		fmt.Sprintf(`GRANT USAGE ON SCHEMA %s TO %s`, dbutil.QuoteIdentifier(BaseSchema), dbutil.QuoteIdentifier(role)),
		fmt.Sprintf(`GRANT SELECT ON ALL TABLES IN SCHEMA %s TO %s`, dbutil.QuoteIdentifier(BaseSchema), dbutil.QuoteIdentifier(role)),
		fmt.Sprintf(`ALTER DEFAULT PRIVILEGES IN SCHEMA %s GRANT SELECT ON TABLES TO %s`, dbutil.QuoteIdentifier(BaseSchema), dbutil.QuoteIdentifier(role)),
		fmt.Sprintf(`GRANT %s TO CURRENT_USER`, dbutil.QuoteIdentifier(role)),
	}

	for _, statement := range statements {
		if errExec := r.db.WithContext(ctx).Exec(statement).Error; errExec != nil {
			return fmt.Errorf("tenant: ensure schema/role for %s: %w", shortName, errExec)
		}
	}
	return nil
}

// Purge removes all state for one tenant: schema, column-access records, push
// logs, cache entries and the tenant row itself.
func (r *Registry) Purge(ctx context.Context, tenantID string) error {
	shortName, errResolve := r.ResolveShortName(ctx, tenantID)
	if errResolve != nil {
		return errResolve
	}

	if !dbutil.IsSQLite(r.db) {
		schema := SchemaName(shortName)
		if errDrop := r.db.WithContext(ctx).Exec(
			fmt.Sprintf(`DROP SCHEMA IF EXISTS %s CASCADE`, dbutil.QuoteIdentifier(schema)),
		).Error; errDrop != nil {
			return fmt.Errorf("tenant: drop schema for %s: %w", shortName, errDrop)
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errDelete := tx.Where("tenant_id = ?", tenantID).Delete(&models.ColumnAccess{}).Error; errDelete != nil {
			return errDelete
		}
		if errDelete := tx.Where("tenant_id = ?", tenantID).Delete(&models.PushLog{}).Error; errDelete != nil {
			return errDelete
		}
		if errDelete := tx.Where("tenant_id = ?", tenantID).Delete(&models.ChartCache{}).Error; errDelete != nil {
			return errDelete
		}
		return tx.Where("id = ?", tenantID).Delete(&models.Tenant{}).Error
	})
}

// validShortName restricts short names to identifier-safe text.
func validShortName(shortName string) bool {
	if shortName == "" {
		return false
	}
	for _, r := range shortName {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}
