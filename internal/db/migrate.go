package db

import (
	"fmt"

	"github.com/paulsanswrk/dashboard-sync/internal/models"
	"gorm.io/gorm"
)

// Migrate runs schema migrations for all persistent models.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.Tenant{},
		&models.ColumnAccess{},
		&models.PushLog{},
		&models.ChartCache{},
		&models.WebhookLog{},
		&models.Admin{},
		&models.Setting{},
	)
}
