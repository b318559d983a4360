package repository

import (
	"time"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/entity"

	"gorm.io/gorm"
)

type BookingRepository interface {
	Create(db *gorm.DB, booking *entity.Booking) error
	FindByID(db *gorm.DB, id uint) (*entity.Booking, error)
	FindActiveByUser(db *gorm.DB, userID string) ([]entity.Booking, error)
	FindActiveAfter(db *gorm.DB, now time.Time) ([]entity.Booking, error)
	FindByDateRange(db *gorm.DB, from, to string) ([]entity.Booking, error)
	Update(db *gorm.DB, id uint, fields map[string]interface{}) (int64, error)
	MarkElapsedCompleted(db *gorm.DB, now time.Time) (int64, error)
	Statistics(db *gorm.DB, windowDays int, now time.Time) (*entity.BookingStatistics, error)
}
