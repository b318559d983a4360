package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/config"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/entity"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/infrastructure/database"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/repository"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/testfixtures"

	"gorm.io/gorm"
)

func newTestBackupService(t *testing.T) (*BackupService, *BookingStore, string) {
	t.Helper()
	db, path := testfixtures.NewStore(t)
	store := NewBookingStore(
		db,
		testfixtures.TestLogger(),
		repository.NewBookingRepository(),
		repository.NewBookingHistoryRepository(),
	)
	svc := NewBackupService(db, testfixtures.TestLogger(), filepath.Join(t.TempDir(), "backups"))
	return svc, store, path
}

func openRestoredStore(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteConnection(config.DBConfig{Path: path, ConnTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("failed to open restored store: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestBackupCreate_RoundTrip(t *testing.T) {
	svc, store, _ := newTestBackupService(t)
	ctx := context.Background()

	booking := testBooking("100", "2024-06-10", "14:00")
	cancelled := testBooking("200", "2024-06-10", "15:00")
	for _, b := range []*entity.Booking{booking, cancelled} {
		if err := store.CreateBooking(ctx, b, b.UserID); err != nil {
			t.Fatalf("CreateBooking failed: %v", err)
		}
	}
	if err := store.CancelBooking(ctx, cancelled.ID, "200"); err != nil {
		t.Fatalf("CancelBooking failed: %v", err)
	}

	now := time.Now()
	statsBefore, err := store.GetBookingStatistics(ctx, 30, now)
	if err != nil {
		t.Fatalf("GetBookingStatistics failed: %v", err)
	}

	info, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if info.Checksum == "" || info.Size == 0 {
		t.Errorf("Backup info incomplete: %+v", info)
	}

	if _, err := svc.Verify(info.Path); err != nil {
		t.Fatalf("Verify failed on a fresh backup: %v", err)
	}

	target := filepath.Join(t.TempDir(), "restored.db")
	if err := svc.Restore(ctx, info.Path, target); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	restored := openRestoredStore(t, target)
	var count int64
	if err := restored.Model(&entity.Booking{}).Where("status = ?", entity.BookingStatusActive).Count(&count).Error; err != nil {
		t.Fatalf("Failed to count bookings in restored store: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 active booking in restored store, got %d", count)
	}

	var got entity.Booking
	if err := restored.Where("status = ?", entity.BookingStatusActive).First(&got).Error; err != nil {
		t.Fatalf("Failed to read restored booking: %v", err)
	}
	if got.SessionDate != "2024-06-10" || got.SessionTime != "14:00" {
		t.Errorf("Restored booking = %s %s, want 2024-06-10 14:00", got.SessionDate, got.SessionTime)
	}

	// The restored store reproduces the statistics, not just the rows.
	restoredStore := NewBookingStore(
		restored,
		testfixtures.TestLogger(),
		repository.NewBookingRepository(),
		repository.NewBookingHistoryRepository(),
	)
	statsAfter, err := restoredStore.GetBookingStatistics(ctx, 30, now)
	if err != nil {
		t.Fatalf("GetBookingStatistics on restored store failed: %v", err)
	}
	if *statsAfter != *statsBefore {
		t.Errorf("Statistics diverged after restore: before %+v, after %+v", statsBefore, statsAfter)
	}
}

func TestBackupList_OldestFirst(t *testing.T) {
	svc, _, _ := newTestBackupService(t)
	ctx := context.Background()

	first := time.Date(2024, 6, 10, 3, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	svc.nowFn = testfixtures.FixedClock(first)
	if _, err := svc.Create(ctx); err != nil {
		t.Fatalf("First Create failed: %v", err)
	}
	svc.nowFn = testfixtures.FixedClock(second)
	if _, err := svc.Create(ctx); err != nil {
		t.Fatalf("Second Create failed: %v", err)
	}

	backups, err := svc.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("Expected 2 backups, got %d", len(backups))
	}
	if !backups[0].CreatedAt.Equal(first) || !backups[1].CreatedAt.Equal(second) {
		t.Errorf("Backups not sorted oldest first: %+v", backups)
	}
}

func TestBackupPruneOlderThan(t *testing.T) {
	svc, _, _ := newTestBackupService(t)
	ctx := context.Background()

	now := time.Date(2024, 6, 10, 3, 0, 0, 0, time.UTC)

	svc.nowFn = testfixtures.FixedClock(now.Add(-48 * time.Hour))
	expired, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	svc.nowFn = testfixtures.FixedClock(now)
	fresh, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	pruned, err := svc.PruneOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatalf("PruneOlderThan failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("Expected 1 pruned backup, got %d", pruned)
	}

	if _, err := os.Stat(expired.Path); !os.IsNotExist(err) {
		t.Errorf("Expired backup still on disk: %v", err)
	}
	if _, err := os.Stat(expired.Path + manifestSuffix); !os.IsNotExist(err) {
		t.Errorf("Expired backup manifest still on disk: %v", err)
	}

	backups, err := svc.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 1 || backups[0].ID != fresh.ID {
		t.Errorf("Expected only the fresh backup to remain, got %+v", backups)
	}
}

func TestBackupVerify_DetectsCorruption(t *testing.T) {
	svc, store, _ := newTestBackupService(t)
	ctx := context.Background()

	if err := store.CreateBooking(ctx, testBooking("100", "2024-06-10", "14:00"), "100"); err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}
	info, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	f, err := os.OpenFile(info.Path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("Failed to open backup for tampering: %v", err)
	}
	if _, err := f.WriteString("garbage"); err != nil {
		t.Fatalf("Failed to tamper with backup: %v", err)
	}
	f.Close()

	_, err = svc.Verify(info.Path)
	var integrityErr *BackupIntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("Expected BackupIntegrityError, got %v", err)
	}

	// Restore must refuse the corrupt backup and leave the target alone.
	target := filepath.Join(t.TempDir(), "restored.db")
	if err := svc.Restore(ctx, info.Path, target); err == nil {
		t.Fatal("Expected Restore to fail on a corrupt backup")
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("Restore target was written despite failed verification")
	}
}

func TestBackupVerify_MissingManifest(t *testing.T) {
	svc, _, _ := newTestBackupService(t)

	info, err := svc.Create(context.Background())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := os.Remove(info.Path + manifestSuffix); err != nil {
		t.Fatalf("Failed to remove manifest: %v", err)
	}

	_, err = svc.Verify(info.Path)
	var integrityErr *BackupIntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("Expected BackupIntegrityError, got %v", err)
	}
	if integrityErr.Reason != "manifest unreadable" {
		t.Errorf("Unexpected reason: %s", integrityErr.Reason)
	}
}
