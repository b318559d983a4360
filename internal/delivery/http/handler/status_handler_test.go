package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/entity"
)

type stubBookingUsecase struct {
	bookings []entity.Booking
	err      error
	users    []string
}

func (s *stubBookingUsecase) Book(ctx context.Context, userID, displayName, date, timeStr string) (*entity.Booking, error) {
	return nil, s.err
}

func (s *stubBookingUsecase) Cancel(ctx context.Context, bookingID uint, actorID string) error {
	return s.err
}

func (s *stubBookingUsecase) AvailableDays(ctx context.Context) ([]entity.DaySlot, error) {
	return nil, s.err
}

func (s *stubBookingUsecase) AvailableSlots(ctx context.Context, date string) ([]entity.TimeSlot, error) {
	return nil, s.err
}

func (s *stubBookingUsecase) MyBookings(ctx context.Context, userID string) ([]entity.Booking, error) {
	s.users = append(s.users, userID)
	return s.bookings, s.err
}

func (s *stubBookingUsecase) Statistics(ctx context.Context, windowDays int) (*entity.BookingStatistics, error) {
	return &entity.BookingStatistics{WindowDays: windowDays}, s.err
}

func TestBookings(t *testing.T) {
	uc := &stubBookingUsecase{bookings: []entity.Booking{
		{ID: 1, UserID: "100", SessionDate: "2024-06-10", SessionTime: "14:00", Status: entity.BookingStatusActive},
		{ID: 2, UserID: "100", SessionDate: "2024-06-11", SessionTime: "10:00", Status: entity.BookingStatusActive},
	}}
	h := NewStatusHandler(uc, nil, "test")

	rec := httptest.NewRecorder()
	h.Bookings(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bookings?user=100", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Bookings status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if len(uc.users) != 1 || uc.users[0] != "100" {
		t.Errorf("Queried users = %v, want [100]", uc.users)
	}

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Bookings []struct {
				ID          uint   `json:"id"`
				SessionDate string `json:"session_date"`
			} `json:"bookings"`
			Total int `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !body.Success || body.Data.Total != 2 {
		t.Errorf("Unexpected body: %s", rec.Body.String())
	}
	if len(body.Data.Bookings) != 2 || body.Data.Bookings[0].SessionDate != "2024-06-10" {
		t.Errorf("Unexpected bookings payload: %s", rec.Body.String())
	}
}

func TestBookings_MissingUser(t *testing.T) {
	h := NewStatusHandler(&stubBookingUsecase{}, nil, "test")

	rec := httptest.NewRecorder()
	h.Bookings(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Bookings status = %d, want 400", rec.Code)
	}
}
