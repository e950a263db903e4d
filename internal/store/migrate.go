package store

import (
	"fmt"
	"log"

	"github.com/xelth-com/geoattend/internal/models"
	"gorm.io/gorm"
)

// openDailyKeyIndex allows at most one open check-in per worker and day
const openDailyKeyIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_check_ins_open_daily_key
	ON check_ins (daily_key) WHERE check_out_date_time IS NULL`

// Migrate creates or updates every table the service uses
func Migrate(db *gorm.DB) error {
	log.Println("🔄 Running database migrations...")
	if err := db.AutoMigrate(
		&models.User{},
		&models.LogIn{},
		&models.Worksite{},
		&models.CheckIn{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	if err := db.Exec(openDailyKeyIndex).Error; err != nil {
		return fmt.Errorf("create open daily key index: %w", err)
	}
	log.Println("✅ Database schema is up to date")
	return nil
}
