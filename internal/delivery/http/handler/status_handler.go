package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/converter"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/delivery/dto"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/service"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/usecase"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/pkg/response"
)

const statisticsWindowDays = 30

// StatusHandler serves the read-only surface: the status page, court slot
// availability and aggregate statistics.
type StatusHandler struct {
	bookingUsecase usecase.BookingUsecase
	tokenService   *service.TokenService
	env            string
}

func NewStatusHandler(bookingUsecase usecase.BookingUsecase, tokenService *service.TokenService, env string) *StatusHandler {
	return &StatusHandler{
		bookingUsecase: bookingUsecase,
		tokenService:   tokenService,
		env:            env,
	}
}

func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, dto.StatusResponse{
		Service:    "kneu-book-tennis-court",
		Status:     "ok",
		Env:        h.env,
		Authorized: h.tokenService.IsAuthorized(r.Context()),
		Time:       time.Now(),
	})
}

func (h *StatusHandler) Slots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		response.Error(w, http.StatusBadRequest, "Missing date parameter", nil)
		return
	}

	slots, err := h.bookingUsecase.AvailableSlots(r.Context(), date)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidSlot):
			response.Error(w, http.StatusBadRequest, "Invalid date", nil)
		case errors.Is(err, usecase.ErrCalendarUnavailable):
			response.Error(w, http.StatusBadGateway, "Calendar is unavailable", nil)
		case errors.Is(err, service.ErrNotAuthorized), errors.Is(err, service.ErrAuthentication):
			response.Error(w, http.StatusServiceUnavailable, "Calendar is not authorized", nil)
		default:
			response.InternalServerError(w, "Failed to list slots")
		}
		return
	}

	response.Success(w, http.StatusOK, "Slots retrieved successfully", dto.SlotListResponse{
		Date:  date,
		Slots: converter.SlotsToResponses(slots),
		Total: len(slots),
	})
}

// Bookings lists one user's active bookings, for the operator's read-only
// view.
func (h *StatusHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		response.Error(w, http.StatusBadRequest, "Missing user parameter", nil)
		return
	}

	bookings, err := h.bookingUsecase.MyBookings(r.Context(), userID)
	if err != nil {
		response.InternalServerError(w, "Failed to list bookings")
		return
	}

	response.Success(w, http.StatusOK, "Bookings retrieved successfully", dto.BookingListResponse{
		Bookings: converter.BookingsToResponses(bookings),
		Total:    len(bookings),
	})
}

func (h *StatusHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.bookingUsecase.Statistics(r.Context(), statisticsWindowDays)
	if err != nil {
		response.InternalServerError(w, "Failed to compute statistics")
		return
	}

	response.Success(w, http.StatusOK, "Statistics retrieved successfully", converter.StatisticsToResponse(stats))
}
