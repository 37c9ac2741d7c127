package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Dialect identifiers supported by the database layer.
const (
	// DialectPostgres is the PostgreSQL dialect name.
	DialectPostgres = "postgres"
	// DialectSQLite is the SQLite dialect name.
	DialectSQLite = "sqlite"
)

// DialectName returns the active database dialect name.
func DialectName(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

// IsSQLite reports whether the connection uses SQLite.
func IsSQLite(conn *gorm.DB) bool {
	return DialectName(conn) == DialectSQLite
}

// JSONArrayIntersects returns a condition matching rows whose JSON array column
// shares at least one element with values, plus its bind arguments.
func JSONArrayIntersects(conn *gorm.DB, column string, values []string) (string, []any) {
	if len(values) == 0 {
		return "1 = 0", nil
	}

	if IsSQLite(conn) {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
		expr := fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value IN (%s))", column, placeholders)
		args := make([]any, 0, len(values))
		for _, value := range values {
			args = append(args, value)
		}
		return expr, args
	}

	parts := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for _, value := range values {
		encoded, errMarshal := json.Marshal([]string{value})
		if errMarshal != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s @> ?::jsonb", column))
		args = append(args, string(encoded))
	}
	if len(parts) == 0 {
		return "1 = 0", nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// IsUniqueViolation reports whether err is a unique-constraint violation from
// either supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// QuoteIdentifier quotes a SQL identifier for the current dialect.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, ``) + `"`
}
