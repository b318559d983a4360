package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/entity"
	domainRepo "github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrSlotTaken               = errors.New("slot is already taken")
	ErrBookingNotFound         = errors.New("booking not found")
	ErrBookingAlreadyCancelled = errors.New("booking is already cancelled")
	ErrBookingNotActive        = errors.New("booking is no longer active")
	ErrEmptyUpdate             = errors.New("update contains no fields")
)

// BookingStore is the durable record of bookings. Every mutation runs in a
// single transaction together with its history entry, so data and audit
// trail can never diverge.
type BookingStore struct {
	db          *gorm.DB
	log         *logrus.Logger
	bookingRepo domainRepo.BookingRepository
	historyRepo domainRepo.BookingHistoryRepository
}

func NewBookingStore(
	db *gorm.DB,
	log *logrus.Logger,
	bookingRepo domainRepo.BookingRepository,
	historyRepo domainRepo.BookingHistoryRepository,
) *BookingStore {
	return &BookingStore{
		db:          db,
		log:         log,
		bookingRepo: bookingRepo,
		historyRepo: historyRepo,
	}
}

// CreateBooking inserts the booking and its `created` history entry. A
// uniqueness violation on the (date, time) slot surfaces as ErrSlotTaken.
func (s *BookingStore) CreateBooking(ctx context.Context, booking *entity.Booking, actorID string) error {
	if booking.Status == "" {
		booking.Status = entity.BookingStatusActive
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.bookingRepo.Create(tx, booking); err != nil {
			return err
		}
		return s.historyRepo.Append(tx, &entity.BookingHistory{
			BookingID: booking.ID,
			Action:    entity.HistoryActionCreated,
			OldValues: nil,
			NewValues: booking.Snapshot(),
			ActorID:   actorID,
		})
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		s.log.Warnf("Failed to create booking for user %s: %+v", booking.UserID, err)
		return err
	}
	return nil
}

func (s *BookingStore) GetBookingByID(ctx context.Context, id uint) (*entity.Booking, error) {
	booking, err := s.bookingRepo.FindByID(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

// GetBookingsByUser returns the user's active bookings, ascending by date
// then time.
func (s *BookingStore) GetBookingsByUser(ctx context.Context, userID string) ([]entity.Booking, error) {
	return s.bookingRepo.FindActiveByUser(s.db.WithContext(ctx), userID)
}

// GetActiveBookings returns active bookings whose session is still ahead.
func (s *BookingStore) GetActiveBookings(ctx context.Context, now time.Time) ([]entity.Booking, error) {
	return s.bookingRepo.FindActiveAfter(s.db.WithContext(ctx), now)
}

func (s *BookingStore) GetBookingsByDateRange(ctx context.Context, from, to string) ([]entity.Booking, error) {
	return s.bookingRepo.FindByDateRange(s.db.WithContext(ctx), from, to)
}

// UpdateBooking applies the partial update, bumps updated_at and appends a
// history entry with before/after snapshots of the changed fields.
func (s *BookingStore) UpdateBooking(ctx context.Context, id uint, upd entity.BookingUpdate, actorID string) (*entity.Booking, error) {
	if upd.IsEmpty() {
		return nil, ErrEmptyUpdate
	}

	var updated *entity.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.bookingRepo.FindByID(tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrBookingNotFound
		}

		fields := upd.Fields()
		oldValues := snapshotFields(existing, fields)

		if _, err := s.bookingRepo.Update(tx, id, fields); err != nil {
			return err
		}

		if err := s.historyRepo.Append(tx, &entity.BookingHistory{
			BookingID: id,
			Action:    actionForUpdate(upd),
			OldValues: oldValues,
			NewValues: entity.JSON(fields),
			ActorID:   actorID,
		}); err != nil {
			return err
		}

		updated, err = s.bookingRepo.FindByID(tx, id)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return updated, nil
}

// CancelBooking is a specialization of UpdateBooking: status goes to
// cancelled, which frees the slot for new bookings while keeping the row.
func (s *BookingStore) CancelBooking(ctx context.Context, id uint, actorID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.bookingRepo.FindByID(tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrBookingNotFound
		}
		if existing.IsCancelled() {
			return ErrBookingAlreadyCancelled
		}
		// cancelled and completed are both terminal.
		if !existing.IsActive() {
			return ErrBookingNotActive
		}

		fields := map[string]interface{}{"status": string(entity.BookingStatusCancelled)}
		if _, err := s.bookingRepo.Update(tx, id, fields); err != nil {
			return err
		}

		return s.historyRepo.Append(tx, &entity.BookingHistory{
			BookingID: id,
			Action:    entity.HistoryActionCancelled,
			OldValues: entity.JSON{"status": string(existing.Status)},
			NewValues: entity.JSON(fields),
			ActorID:   actorID,
		})
	})
}

// MarkElapsedCompleted flips elapsed active bookings to completed in one
// atomic batch. Per-row history is deliberately omitted for the sweep.
func (s *BookingStore) MarkElapsedCompleted(ctx context.Context, now time.Time) (int64, error) {
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		affected, err = s.bookingRepo.MarkElapsedCompleted(tx, now)
		return err
	})
	return affected, err
}

func (s *BookingStore) GetBookingStatistics(ctx context.Context, windowDays int, now time.Time) (*entity.BookingStatistics, error) {
	return s.bookingRepo.Statistics(s.db.WithContext(ctx), windowDays, now)
}

// HistoryForBooking returns the full audit trail of one booking, oldest
// first.
func (s *BookingStore) HistoryForBooking(ctx context.Context, bookingID uint) ([]entity.BookingHistory, error) {
	return s.historyRepo.FindByBooking(s.db.WithContext(ctx), bookingID)
}

func actionForUpdate(upd entity.BookingUpdate) entity.HistoryAction {
	if upd.Status != nil {
		switch *upd.Status {
		case entity.BookingStatusCancelled:
			return entity.HistoryActionCancelled
		case entity.BookingStatusCompleted:
			return entity.HistoryActionCompleted
		}
	}
	return entity.HistoryActionModified
}

// snapshotFields extracts the prior values of exactly the columns an update
// touches.
func snapshotFields(b *entity.Booking, fields map[string]interface{}) entity.JSON {
	full := b.Snapshot()
	old := entity.JSON{}
	for column := range fields {
		old[column] = full[column]
	}
	return old
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
