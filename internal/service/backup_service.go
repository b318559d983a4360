package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// BackupInfo describes one completed backup: the copy itself plus the
// metadata recorded in its manifest sidecar.
type BackupInfo struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

// BackupIntegrityError means a backup failed verification. Restore aborts
// before the live store is touched.
type BackupIntegrityError struct {
	Path   string
	Reason string
	Err    error
}

func (e *BackupIntegrityError) Error() string {
	return fmt.Sprintf("backup integrity failure for %s: %s", e.Path, e.Reason)
}

func (e *BackupIntegrityError) Unwrap() error {
	return e.Err
}

const manifestSuffix = ".manifest.json"

// BackupService produces timestamped snapshot copies of the store and
// prunes expired ones. Snapshots use VACUUM INTO, which is transactional
// against concurrent writers.
type BackupService struct {
	db    *gorm.DB
	log   *logrus.Logger
	dir   string
	nowFn func() time.Time
}

func NewBackupService(db *gorm.DB, log *logrus.Logger, dir string) *BackupService {
	return &BackupService{db: db, log: log, dir: dir, nowFn: time.Now}
}

// Create writes a snapshot copy of the store plus its manifest.
func (s *BackupService) Create(ctx context.Context) (*BackupInfo, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	now := s.nowFn()
	name := fmt.Sprintf("backup-%s.db", now.Format("20060102-150405"))
	path := filepath.Join(s.dir, name)

	// VACUUM INTO does not accept bound parameters; the path is
	// config-derived, quotes escaped for safety.
	quoted := strings.ReplaceAll(path, "'", "''")
	if err := s.db.WithContext(ctx).Exec(fmt.Sprintf("VACUUM INTO '%s'", quoted)).Error; err != nil {
		return nil, fmt.Errorf("failed to snapshot store: %w", err)
	}

	checksum, size, err := checksumFile(path)
	if err != nil {
		return nil, err
	}

	info := &BackupInfo{
		ID:        uuid.NewString(),
		Path:      path,
		Size:      size,
		Checksum:  checksum,
		CreatedAt: now,
	}
	if err := s.writeManifest(info); err != nil {
		return nil, err
	}

	s.log.Infof("Backup created: path=%s size=%d checksum=%s", info.Path, info.Size, info.Checksum)
	return info, nil
}

// List returns all backups with a readable manifest, oldest first.
func (s *BackupService) List() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), manifestSuffix) {
			continue
		}
		info, err := s.readManifest(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			s.log.Warnf("Skipping unreadable backup manifest %s: %v", entry.Name(), err)
			continue
		}
		backups = append(backups, *info)
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].CreatedAt.Before(backups[j].CreatedAt) })
	return backups, nil
}

// PruneOlderThan deletes backups past the retention window and returns how
// many were removed.
func (s *BackupService) PruneOlderThan(retention time.Duration) (int, error) {
	backups, err := s.List()
	if err != nil {
		return 0, err
	}

	cutoff := s.nowFn().Add(-retention)
	pruned := 0
	for _, backup := range backups {
		if !backup.CreatedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(backup.Path); err != nil && !os.IsNotExist(err) {
			s.log.Warnf("Failed to prune backup %s: %v", backup.Path, err)
			continue
		}
		if err := os.Remove(backup.Path + manifestSuffix); err != nil && !os.IsNotExist(err) {
			s.log.Warnf("Failed to prune backup manifest for %s: %v", backup.Path, err)
		}
		pruned++
	}

	if pruned > 0 {
		s.log.Infof("Pruned %d expired backups", pruned)
	}
	return pruned, nil
}

// Verify checks a backup against its manifest: checksum, size, and that
// the copy opens as a consistent sqlite database.
func (s *BackupService) Verify(path string) (*BackupInfo, error) {
	info, err := s.readManifest(path + manifestSuffix)
	if err != nil {
		return nil, &BackupIntegrityError{Path: path, Reason: "manifest unreadable", Err: err}
	}

	checksum, size, err := checksumFile(path)
	if err != nil {
		return nil, &BackupIntegrityError{Path: path, Reason: "backup file unreadable", Err: err}
	}
	if checksum != info.Checksum {
		return nil, &BackupIntegrityError{Path: path, Reason: fmt.Sprintf("checksum mismatch: recorded %s, actual %s", info.Checksum, checksum)}
	}
	if size != info.Size {
		return nil, &BackupIntegrityError{Path: path, Reason: fmt.Sprintf("size mismatch: recorded %d, actual %d", info.Size, size)}
	}

	if err := s.openCheck(path); err != nil {
		return nil, &BackupIntegrityError{Path: path, Reason: "backup does not open as a consistent store", Err: err}
	}
	return info, nil
}

// Restore verifies the backup and then replaces the store file at
// targetPath with it. The live connection to targetPath must be closed
// first; restore is an offline operation.
func (s *BackupService) Restore(ctx context.Context, backupPath, targetPath string) error {
	if _, err := s.Verify(backupPath); err != nil {
		return err
	}

	src, err := os.Open(backupPath)
	if err != nil {
		return &BackupIntegrityError{Path: backupPath, Reason: "backup file unreadable", Err: err}
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	dst, err := os.Create(targetPath)
	if err != nil {
		return fmt.Errorf("failed to open restore target: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}

	s.log.Infof("Store restored from backup %s", backupPath)
	return nil
}

func (s *BackupService) openCheck(path string) error {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	var result string
	if err := db.Raw("PRAGMA integrity_check").Scan(&result).Error; err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity_check answered %q", result)
	}
	return nil
}

func (s *BackupService) writeManifest(info *BackupInfo) error {
	encoded, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(info.Path+manifestSuffix, encoded, 0o644); err != nil {
		return fmt.Errorf("failed to write backup manifest: %w", err)
	}
	return nil
}

func (s *BackupService) readManifest(manifestPath string) (*BackupInfo, error) {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, err
	}
	var info BackupInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func checksumFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	hash := sha256.New()
	size, err := io.Copy(hash, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hash.Sum(nil)), size, nil
}
