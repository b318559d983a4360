package repository

import (
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/entity"

	"gorm.io/gorm"
)

type BookingHistoryRepository interface {
	Append(db *gorm.DB, entry *entity.BookingHistory) error
	FindByBooking(db *gorm.DB, bookingID uint) ([]entity.BookingHistory, error)
}
