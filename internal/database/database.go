package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/theobourgeois/vexilo/internal/config"
	"github.com/theobourgeois/vexilo/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return nil
}

// Migrate runs AutoMigrate for all models. pg_trgm must exist before
// the similarity() search queries run, so the extension is created
// here rather than in a manual migration.
func Migrate() error {
	if err := DB.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
		return fmt.Errorf("failed to create pg_trgm extension: %w", err)
	}

	err := DB.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Flag{},
		&models.FlagRequest{},
		&models.Tag{},
		&models.LeaderboardEntry{},
		&models.Favorite{},
		&models.FlagReport{},
		&models.FlagOfTheDay{},
		&models.SystemLog{},
	)
	if err != nil {
		return err
	}

	// Display indices are unique among live flags only: soft-deleted
	// rows keep their last index, so the constraint has to be partial.
	return DB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_flags_display_index_live
		ON flags (display_index) WHERE deleted_at IS NULL`).Error
}

func Ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
