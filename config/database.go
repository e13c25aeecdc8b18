package config

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// ConnectDatabase opens the PostgreSQL connection described by the loaded
// configuration. Load and Validate must have run first.
func ConnectDatabase() error {
	cfg := GetConfig()
	if cfg == nil || cfg.DatabaseURL == "" {
		return fmt.Errorf("database connection requires a loaded configuration with DATABASE_URL set")
	}

	logLevel := gormlogger.Warn
	if cfg.GoEnv == "production" {
		logLevel = gormlogger.Error
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	DB = db
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// SetDB sets the database instance (primarily for testing)
func SetDB(db *gorm.DB) {
	DB = db
}
