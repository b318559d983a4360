package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const sweepInterval = time.Hour

// Scheduler runs the periodic reconciliation tasks: the completion sweep,
// store backups and health checks. Each task is idempotent, safe to skip a
// run, and isolated — a failing task never aborts the others or the
// hosting process.
type Scheduler struct {
	log            *logrus.Logger
	store          *service.BookingStore
	backups        *service.BackupService
	db             *gorm.DB
	storePath      string
	autoBackup     bool
	backupInterval time.Duration
	retention      time.Duration
	healthInterval time.Duration
	nowFn          func() time.Time
}

func New(
	log *logrus.Logger,
	store *service.BookingStore,
	backups *service.BackupService,
	db *gorm.DB,
	storePath string,
	autoBackup bool,
	backupInterval time.Duration,
	retention time.Duration,
	healthInterval time.Duration,
) *Scheduler {
	return &Scheduler{
		log:            log,
		store:          store,
		backups:        backups,
		db:             db,
		storePath:      storePath,
		autoBackup:     autoBackup,
		backupInterval: backupInterval,
		retention:      retention,
		healthInterval: healthInterval,
		nowFn:          time.Now,
	}
}

// Start launches the background timers. They stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx, "completion_sweep", sweepInterval, s.SweepOnce)
	go s.loop(ctx, "health_check", s.healthInterval, s.HealthCheckOnce)
	if s.autoBackup {
		go s.loop(ctx, "backup", s.backupInterval, s.BackupOnce)
	} else {
		s.log.Info("Automatic backups are disabled")
	}
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, task func(context.Context) error) {
	s.runTask(ctx, name, task)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Infof("Scheduler task %s stopped", name)
			return
		case <-ticker.C:
			s.runTask(ctx, name, task)
		}
	}
}

func (s *Scheduler) runTask(ctx context.Context, name string, task func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("Scheduler task %s panicked: %v", name, r)
		}
	}()
	if err := task(ctx); err != nil {
		s.log.Errorf("Scheduler task %s failed: %+v", name, err)
	}
}

// SweepOnce marks every active booking whose session start is in the past
// as completed.
func (s *Scheduler) SweepOnce(ctx context.Context) error {
	affected, err := s.store.MarkElapsedCompleted(ctx, s.nowFn())
	if err != nil {
		return err
	}
	if affected > 0 {
		s.log.Infof("Completion sweep marked %d bookings completed", affected)
	}
	return nil
}

// BackupOnce snapshots the store and prunes expired backups.
func (s *Scheduler) BackupOnce(ctx context.Context) error {
	if _, err := s.backups.Create(ctx); err != nil {
		return err
	}
	if _, err := s.backups.PruneOlderThan(s.retention); err != nil {
		return err
	}
	return nil
}

// HealthCheckOnce runs a trivial read and stats the store file.
func (s *Scheduler) HealthCheckOnce(ctx context.Context) error {
	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		s.log.Errorf("Health check: store query failed: %+v", err)
		return fmt.Errorf("store unhealthy: %w", err)
	}

	info, err := os.Stat(s.storePath)
	if err != nil {
		s.log.Errorf("Health check: store file stat failed: %+v", err)
		return fmt.Errorf("store unhealthy: %w", err)
	}

	s.log.Infof("Health check: store healthy, size=%d", info.Size())
	return nil
}
