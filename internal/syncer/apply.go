package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	dbutil "github.com/paulsanswrk/dashboard-sync/internal/db"
	"github.com/paulsanswrk/dashboard-sync/internal/tables"
	"github.com/paulsanswrk/dashboard-sync/internal/tenant"
	"gorm.io/gorm"
)

// upsertChunkSize bounds rows per INSERT statement.
const upsertChunkSize = 200

// targetTableRef returns the dialect-qualified SQL reference for a target
// table. Target tables live in the shared base schema on Postgres and at the
// top level on SQLite.
func targetTableRef(conn *gorm.DB, tableName string) string {
	if dbutil.IsSQLite(conn) {
		return dbutil.QuoteIdentifier(tableName)
	}
	return dbutil.QuoteIdentifier(tenant.BaseSchema) + "." + dbutil.QuoteIdentifier(tableName)
}

// upsertRows applies a batch of rows to a target table as an idempotent
// insert-or-update keyed on id. Redelivery of identical rows is a no-op
// beyond refreshing the same values.
func upsertRows(ctx context.Context, conn *gorm.DB, tableName string, rows []map[string]any) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	cols, errCols := unionColumns(rows)
	if errCols != nil {
		return 0, errCols
	}

	ref := targetTableRef(conn, tableName)
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = dbutil.QuoteIdentifier(col)
	}

	conflict := `ON CONFLICT ("id") DO NOTHING`
	if len(cols) > 1 {
		assignments := make([]string, 0, len(cols)-1)
		for _, col := range cols {
			if col == "id" {
				continue
			}
			assignments = append(assignments, fmt.Sprintf(`%s = excluded.%s`, dbutil.QuoteIdentifier(col), dbutil.QuoteIdentifier(col)))
		}
		conflict = fmt.Sprintf(`ON CONFLICT ("id") DO UPDATE SET %s`, strings.Join(assignments, ", "))
	}

	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",") + ")"

	total := 0
	for start := 0; start < len(rows); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		placeholders := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*len(cols))
		for i, row := range chunk {
			placeholders[i] = rowPlaceholder
			for _, col := range cols {
				args = append(args, coerceValue(row[col]))
			}
		}

		statement := fmt.Sprintf(`INSERT INTO %s (%s) VALUES %s %s`,
			ref, strings.Join(quoted, ", "), strings.Join(placeholders, ", "), conflict)
		if errExec := conn.WithContext(ctx).Exec(statement, args...).Error; errExec != nil {
			return total, fmt.Errorf("syncer: upsert into %s: %w", tableName, errExec)
		}
		total += len(chunk)
	}
	return total, nil
}

// deleteRow removes one row by primary id.
func deleteRow(ctx context.Context, conn *gorm.DB, tableName string, id any) error {
	statement := fmt.Sprintf(`DELETE FROM %s WHERE "id" = ?`, targetTableRef(conn, tableName))
	if errExec := conn.WithContext(ctx).Exec(statement, coerceValue(id)).Error; errExec != nil {
		return fmt.Errorf("syncer: delete from %s: %w", tableName, errExec)
	}
	return nil
}

// clearTenantRows deletes a tenant's existing rows from a target table ahead
// of a full resync, following the table's isolation strategy. Global tables
// are never cleared.
func clearTenantRows(ctx context.Context, conn *gorm.DB, tableName, tenantID string) error {
	classification := tables.Classify(tableName)
	ref := targetTableRef(conn, tableName)

	var statement string
	switch classification.Strategy {
	case tables.StrategyGlobal:
		return nil
	case tables.StrategyDirect:
		statement = fmt.Sprintf(`DELETE FROM %s WHERE "tenant_id" = ?`, ref)
	case tables.StrategyDevice:
		if !tables.ValidIdentifier(classification.JoinColumn) {
			return fmt.Errorf("syncer: invalid join column for %s", tableName)
		}
		statement = fmt.Sprintf(
			`DELETE FROM %s WHERE %s IN (SELECT "device_id" FROM %s WHERE "tenant_id" = ? AND "is_current_owner" = true)`,
			ref, dbutil.QuoteIdentifier(classification.JoinColumn), targetTableRef(conn, "device_tenants"))
	case tables.StrategyParent:
		if !tables.ValidIdentifier(classification.ParentTable) || !tables.ValidIdentifier(classification.ForeignKey) {
			return fmt.Errorf("syncer: invalid parent relation for %s", tableName)
		}
		statement = fmt.Sprintf(
			`DELETE FROM %s WHERE %s IN (SELECT "id" FROM %s WHERE "tenant_id" = ?)`,
			ref, dbutil.QuoteIdentifier(classification.ForeignKey), targetTableRef(conn, classification.ParentTable))
	default:
		return fmt.Errorf("syncer: unknown strategy for %s", tableName)
	}

	if errExec := conn.WithContext(ctx).Exec(statement, tenantID).Error; errExec != nil {
		return fmt.Errorf("syncer: clear %s: %w", tableName, errExec)
	}
	return nil
}

// unionColumns collects the sorted union of row keys, requiring id everywhere
// and validating every key as a safe identifier.
func unionColumns(rows []map[string]any) ([]string, error) {
	seen := map[string]struct{}{}
	for i, row := range rows {
		if _, ok := rowID(row); !ok {
			return nil, invalid("row %d is missing id", i)
		}
		for key := range row {
			if !tables.ValidIdentifier(key) {
				return nil, invalid("unsafe column name %q", key)
			}
			seen[key] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for key := range seen {
		cols = append(cols, key)
	}
	sort.Strings(cols)
	return cols, nil
}

// coerceValue converts decoded JSON values to SQL-bindable ones. Nested
// objects and arrays are stored as JSON text.
func coerceValue(value any) any {
	switch typed := value.(type) {
	case map[string]any, []any:
		encoded, errMarshal := json.Marshal(typed)
		if errMarshal != nil {
			return nil
		}
		return string(encoded)
	default:
		return value
	}
}

// columnsOf returns a row's keys; order is irrelevant to callers, which
// normalize before use.
func columnsOf(row map[string]any) []string {
	cols := make([]string, 0, len(row))
	for key := range row {
		cols = append(cols, key)
	}
	return cols
}
