package converter

import (
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/delivery/dto"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/entity"
)

// BookingToResponse converts a Booking entity to BookingResponse DTO
func BookingToResponse(booking *entity.Booking) *dto.BookingResponse {
	if booking == nil {
		return nil
	}

	return &dto.BookingResponse{
		ID:          booking.ID,
		UserID:      booking.UserID,
		DisplayName: booking.DisplayName,
		SessionDate: booking.SessionDate,
		SessionTime: booking.SessionTime,
		Status:      string(booking.Status),
		Notes:       booking.Notes,
		CreatedAt:   booking.CreatedAt,
		UpdatedAt:   booking.UpdatedAt,
	}
}

// BookingsToResponses converts a slice of Booking entities to response DTOs
func BookingsToResponses(bookings []entity.Booking) []dto.BookingResponse {
	responses := make([]dto.BookingResponse, len(bookings))
	for i, booking := range bookings {
		resp := BookingToResponse(&booking)
		if resp != nil {
			responses[i] = *resp
		}
	}
	return responses
}

// SlotsToResponses converts time slots to response DTOs
func SlotsToResponses(slots []entity.TimeSlot) []dto.SlotResponse {
	responses := make([]dto.SlotResponse, len(slots))
	for i, slot := range slots {
		responses[i] = dto.SlotResponse{
			Date:      slot.Date,
			Time:      slot.Time,
			Available: slot.Available,
		}
	}
	return responses
}

// StatisticsToResponse converts booking statistics to a response DTO
func StatisticsToResponse(stats *entity.BookingStatistics) *dto.StatisticsResponse {
	if stats == nil {
		return nil
	}

	return &dto.StatisticsResponse{
		WindowDays:     stats.WindowDays,
		Total:          stats.Total,
		Active:         stats.Active,
		Cancelled:      stats.Cancelled,
		Completed:      stats.Completed,
		DistinctUsers:  stats.DistinctUsers,
		CompletionRate: stats.CompletionRate,
	}
}
