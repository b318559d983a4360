package repository

import (
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/entity"
	domainRepo "github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/repository"

	"gorm.io/gorm"
)

type bookingHistoryRepository struct{}

func NewBookingHistoryRepository() domainRepo.BookingHistoryRepository {
	return &bookingHistoryRepository{}
}

func (r *bookingHistoryRepository) Append(db *gorm.DB, entry *entity.BookingHistory) error {
	return db.Create(entry).Error
}

func (r *bookingHistoryRepository) FindByBooking(db *gorm.DB, bookingID uint) ([]entity.BookingHistory, error) {
	var entries []entity.BookingHistory
	err := db.Where("booking_id = ?", bookingID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
