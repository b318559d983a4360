package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/config"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteConnection opens (and creates if needed) the single store file.
// The store is single-writer; everything above it relies on sqlite
// transactions as the only concurrency mechanism.
func NewSQLiteConnection(cfg config.DBConfig) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	logMode := logger.Silent
	if cfg.QueryLogging {
		logMode = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger:         logger.Default.LogMode(logMode),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Single writer; extra connections only queue behind the file lock.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if cfg.ConnTimeout > 0 {
		busyMs := cfg.ConnTimeout / time.Millisecond
		if err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyMs)).Error; err != nil {
			return nil, fmt.Errorf("failed to set busy timeout: %w", err)
		}
	}
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	logrus.Infof("Successfully opened sqlite store at %s", cfg.Path)

	return db, nil
}
