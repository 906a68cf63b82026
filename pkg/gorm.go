package pkg

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/brightclass/assessment-delivery/internal/config"
	"github.com/brightclass/assessment-delivery/internal/models"
)

// InitDatabase opens the configured database. Postgres is the production
// driver; sqlite exists for local development and small single-node installs.
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Warn
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var db *gorm.DB
	var err error
	switch cfg.DatabaseDriver {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.SQLitePath), gormConfig)
	default:
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), gormConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Migrate applies the schema for all delivery models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Assessment{},
		&models.Question{},
		&models.AssessmentAttempt{},
		&models.StudentAnswer{},
	)
}
