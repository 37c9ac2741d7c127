package views

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	dbutil "github.com/paulsanswrk/dashboard-sync/internal/db"
	"github.com/paulsanswrk/dashboard-sync/internal/tables"
	"github.com/paulsanswrk/dashboard-sync/internal/tenant"
)

// deviceJunctionTable is the ownership junction joined by the device strategy.
const deviceJunctionTable = "device_tenants"

// ViewName returns the flat view object name for a (tenant, table) pair. On
// Postgres the same name splits into schema and view; on SQLite it is the
// whole quoted identifier.
func ViewName(shortName, tableName string) string {
	return tenant.SchemaName(shortName) + "." + tableName
}

// BuildViewSQL renders the CREATE VIEW statement for one tenant view. Every
// identifier is validated before interpolation and the tenant ID must be a
// UUID, so inbound payload text never reaches the SQL as-is.
func BuildViewSQL(dialect, shortName, tableName string, cols []string, tenantID string) (string, error) {
	if !tables.ValidIdentifier(shortName) {
		return "", fmt.Errorf("views: invalid short name %q", shortName)
	}
	if !tables.ValidIdentifier(tableName) {
		return "", fmt.Errorf("views: invalid table name %q", tableName)
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("views: empty column set for %s", tableName)
	}
	for _, col := range cols {
		if !tables.ValidIdentifier(col) {
			return "", fmt.Errorf("views: invalid column name %q", col)
		}
	}
	parsed, errParse := uuid.Parse(tenantID)
	if errParse != nil {
		return "", fmt.Errorf("views: invalid tenant id %q: %w", tenantID, errParse)
	}
	tenantLiteral := "'" + parsed.String() + "'"

	sqlite := dialect == dbutil.DialectSQLite
	create := "CREATE OR REPLACE VIEW"
	if sqlite {
		create = "CREATE VIEW"
	}
	viewRef := qualifiedView(sqlite, shortName, tableName)
	baseRef := qualifiedBase(sqlite, tableName)

	classification := tables.Classify(tableName)
	switch classification.Strategy {
	case tables.StrategyDirect:
		return fmt.Sprintf(`%s %s AS SELECT %s FROM %s WHERE "tenant_id" = %s`,
			create, viewRef, columnList("", cols), baseRef, tenantLiteral), nil

	case tables.StrategyDevice:
		join := classification.JoinColumn
		if !tables.ValidIdentifier(join) {
			return "", fmt.Errorf("views: invalid join column %q for %s", join, tableName)
		}
		return fmt.Sprintf(`%s %s AS SELECT %s FROM %s t JOIN %s dt ON dt."device_id" = t.%s WHERE dt."tenant_id" = %s AND dt."is_current_owner" = true`,
			create, viewRef, columnList("t", cols), baseRef,
			qualifiedBase(sqlite, deviceJunctionTable), dbutil.QuoteIdentifier(join), tenantLiteral), nil

	case tables.StrategyParent:
		parent := classification.ParentTable
		fk := classification.ForeignKey
		if !tables.ValidIdentifier(parent) || !tables.ValidIdentifier(fk) {
			return "", fmt.Errorf("views: invalid parent relation for %s", tableName)
		}
		return fmt.Sprintf(`%s %s AS SELECT %s FROM %s t JOIN %s p ON p."id" = t.%s WHERE p."tenant_id" = %s`,
			create, viewRef, columnList("t", cols), baseRef,
			qualifiedBase(sqlite, parent), dbutil.QuoteIdentifier(fk), tenantLiteral), nil

	case tables.StrategyGlobal:
		return fmt.Sprintf(`%s %s AS SELECT %s FROM %s`,
			create, viewRef, columnList("", cols), baseRef), nil

	default:
		return "", fmt.Errorf("views: unknown strategy %q for %s", classification.Strategy, tableName)
	}
}

// qualifiedView renders the view reference for the dialect.
func qualifiedView(sqlite bool, shortName, tableName string) string {
	if sqlite {
		return dbutil.QuoteIdentifier(ViewName(shortName, tableName))
	}
	return dbutil.QuoteIdentifier(tenant.SchemaName(shortName)) + "." + dbutil.QuoteIdentifier(tableName)
}

// qualifiedBase renders the base-table reference for the dialect.
func qualifiedBase(sqlite bool, tableName string) string {
	if sqlite {
		return dbutil.QuoteIdentifier(tableName)
	}
	return dbutil.QuoteIdentifier(tenant.BaseSchema) + "." + dbutil.QuoteIdentifier(tableName)
}

// columnList renders a quoted, optionally prefixed column list.
func columnList(prefix string, cols []string) string {
	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		quoted := dbutil.QuoteIdentifier(col)
		if prefix != "" {
			quoted = prefix + "." + quoted
		}
		parts = append(parts, quoted)
	}
	return strings.Join(parts, ", ")
}
