package repository

import (
	"errors"
	"time"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/entity"
	domainRepo "github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/repository"

	"gorm.io/gorm"
)

type bookingRepository struct{}

func NewBookingRepository() domainRepo.BookingRepository {
	return &bookingRepository{}
}

func (r *bookingRepository) Create(db *gorm.DB, booking *entity.Booking) error {
	return db.Create(booking).Error
}

func (r *bookingRepository) FindByID(db *gorm.DB, id uint) (*entity.Booking, error) {
	var booking entity.Booking
	err := db.Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindActiveByUser(db *gorm.DB, userID string) ([]entity.Booking, error) {
	var bookings []entity.Booking
	err := db.Where("user_id = ? AND status = ?", userID, entity.BookingStatusActive).
		Order("session_date ASC, session_time ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// FindActiveAfter returns active bookings whose session has not started yet.
func (r *bookingRepository) FindActiveAfter(db *gorm.DB, now time.Time) ([]entity.Booking, error) {
	today := now.Format(entity.DateLayout)
	nowTime := now.Format(entity.TimeLayout)

	var bookings []entity.Booking
	err := db.Where("status = ?", entity.BookingStatusActive).
		Where("session_date > ? OR (session_date = ? AND session_time >= ?)", today, today, nowTime).
		Order("session_date ASC, session_time ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) FindByDateRange(db *gorm.DB, from, to string) ([]entity.Booking, error) {
	var bookings []entity.Booking
	err := db.Where("session_date >= ? AND session_date <= ?", from, to).
		Order("session_date ASC, session_time ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) Update(db *gorm.DB, id uint, fields map[string]interface{}) (int64, error) {
	result := db.Model(&entity.Booking{}).Where("id = ?", id).Updates(fields)
	return result.RowsAffected, result.Error
}

// MarkElapsedCompleted flips every active booking whose session start is
// strictly in the past to completed, in one statement.
func (r *bookingRepository) MarkElapsedCompleted(db *gorm.DB, now time.Time) (int64, error) {
	today := now.Format(entity.DateLayout)
	nowTime := now.Format(entity.TimeLayout)

	result := db.Model(&entity.Booking{}).
		Where("status = ?", entity.BookingStatusActive).
		Where("session_date < ? OR (session_date = ? AND session_time < ?)", today, today, nowTime).
		Update("status", entity.BookingStatusCompleted)
	return result.RowsAffected, result.Error
}

func (r *bookingRepository) Statistics(db *gorm.DB, windowDays int, now time.Time) (*entity.BookingStatistics, error) {
	stats := &entity.BookingStatistics{WindowDays: windowDays}
	since := now.AddDate(0, 0, -windowDays)

	window := db.Model(&entity.Booking{}).Where("created_at >= ?", since)
	if err := window.Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	type statusCount struct {
		Status entity.BookingStatus
		Count  int64
	}
	var counts []statusCount
	err := db.Model(&entity.Booking{}).
		Select("status, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("status").
		Find(&counts).Error
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		switch c.Status {
		case entity.BookingStatusActive:
			stats.Active = c.Count
		case entity.BookingStatusCancelled:
			stats.Cancelled = c.Count
		case entity.BookingStatusCompleted:
			stats.Completed = c.Count
		}
	}

	err = db.Model(&entity.Booking{}).
		Where("created_at >= ?", since).
		Distinct("user_id").
		Count(&stats.DistinctUsers).Error
	if err != nil {
		return nil, err
	}

	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Total)
	}
	return stats, nil
}
