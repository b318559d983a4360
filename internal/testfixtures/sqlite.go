package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/config"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/infrastructure/database"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/infrastructure/database/migration"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NewStore opens a fully migrated sqlite store in a per-test temp
// directory and returns it together with its file path.
func NewStore(t *testing.T) (*gorm.DB, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewSQLiteConnection(config.DBConfig{
		Path:        path,
		ConnTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
	})

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get database instance: %v", err)
	}

	engine, err := migration.NewEngine(sqlDB, TestLogger(), migration.Registry())
	if err != nil {
		t.Fatalf("failed to build migration engine: %v", err)
	}
	if err := engine.Apply(context.Background()); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	return db, path
}

// TestLogger returns a quiet logger for test fixtures.
func TestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

// FixedClock returns a clock function frozen at ts.
func FixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
