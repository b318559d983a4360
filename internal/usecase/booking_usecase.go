package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/entity"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/infrastructure/calendar"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/service"

	"github.com/sirupsen/logrus"
)

var (
	ErrBookingNotOwned = errors.New("booking does not belong to you")
	ErrInvalidSlot     = errors.New("requested slot is invalid or already past")
	// ErrCalendarUnavailable is the user-facing translation of a calendar
	// service failure: the slot may no longer be available.
	ErrCalendarUnavailable = errors.New("calendar is unavailable, slot may no longer be available")
)

// CalendarAPI is the event half of the external calendar provider.
type CalendarAPI interface {
	ListBusyIntervals(ctx context.Context, accessToken, calendarID string, timeMin, timeMax time.Time) ([]calendar.BusyInterval, error)
	CreateEvent(ctx context.Context, accessToken, calendarID string, ev calendar.EventInput) (string, error)
	DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error
}

// TokenProvider hands out a fresh access token before every calendar call.
type TokenProvider interface {
	EnsureValidToken(ctx context.Context) (string, error)
}

// Notifier delivers best-effort messages to the operator. Failures are
// logged, never propagated.
type Notifier interface {
	NotifyOperator(ctx context.Context, text string) error
}

type BookingUsecase interface {
	Book(ctx context.Context, userID, displayName, date, timeStr string) (*entity.Booking, error)
	Cancel(ctx context.Context, bookingID uint, actorID string) error
	AvailableDays(ctx context.Context) ([]entity.DaySlot, error)
	AvailableSlots(ctx context.Context, date string) ([]entity.TimeSlot, error)
	MyBookings(ctx context.Context, userID string) ([]entity.Booking, error)
	Statistics(ctx context.Context, windowDays int) (*entity.BookingStatistics, error)
}

type bookingUsecase struct {
	log           *logrus.Logger
	store         *service.BookingStore
	slots         *service.SlotService
	tokens        TokenProvider
	cal           CalendarAPI
	notifier      Notifier
	calendarID    string
	timezone      string
	loc           *time.Location
	sessionLength time.Duration
	lookaheadDays int
	nowFn         func() time.Time
}

func NewBookingUsecase(
	log *logrus.Logger,
	store *service.BookingStore,
	slots *service.SlotService,
	tokens TokenProvider,
	cal CalendarAPI,
	notifier Notifier,
	calendarID string,
	timezone string,
	loc *time.Location,
	sessionLength time.Duration,
	lookaheadDays int,
) BookingUsecase {
	return &bookingUsecase{
		log:           log,
		store:         store,
		slots:         slots,
		tokens:        tokens,
		cal:           cal,
		notifier:      notifier,
		calendarID:    calendarID,
		timezone:      timezone,
		loc:           loc,
		sessionLength: sessionLength,
		lookaheadDays: lookaheadDays,
		nowFn:         time.Now,
	}
}

// Book reserves one slot for the user.
//
// Flow:
// 1. Ensure the calendar credential is fresh
// 2. Create the calendar event spanning the session
// 3. Insert the booking + `created` history entry in one transaction
// 4. On a duplicate slot, delete the just-created event (best effort)
// 5. Notify the operator (best effort)
//
// A crash between steps 2 and 3 leaves an orphaned calendar event with no
// local record; see DESIGN.md.
func (u *bookingUsecase) Book(ctx context.Context, userID, displayName, date, timeStr string) (*entity.Booking, error) {
	start, err := time.ParseInLocation(entity.DateLayout+" "+entity.TimeLayout, date+" "+timeStr, u.loc)
	if err != nil {
		return nil, ErrInvalidSlot
	}
	if !start.After(u.nowFn()) {
		return nil, ErrInvalidSlot
	}

	accessToken, err := u.tokens.EnsureValidToken(ctx)
	if err != nil {
		return nil, err
	}

	requester := displayName
	if requester == "" {
		requester = userID
	}
	eventID, err := u.cal.CreateEvent(ctx, accessToken, u.calendarID, calendar.EventInput{
		Summary:     fmt.Sprintf("Tennis court: %s", requester),
		Description: fmt.Sprintf("Court session booked by %s (user %s) via the booking bot", requester, userID),
		Start:       start,
		End:         start.Add(u.sessionLength),
		Timezone:    u.timezone,
	})
	if err != nil {
		u.log.Warnf("Failed to create calendar event for %s %s: %+v", date, timeStr, err)
		return nil, fmt.Errorf("%w: %v", ErrCalendarUnavailable, err)
	}

	booking := &entity.Booking{
		UserID:      userID,
		DisplayName: displayName,
		SessionDate: date,
		SessionTime: timeStr,
		EventID:     eventID,
		Status:      entity.BookingStatusActive,
	}
	if err := u.store.CreateBooking(ctx, booking, userID); err != nil {
		// Compensate: without the durable record the event is an orphan.
		if deleteErr := u.cal.DeleteEvent(ctx, accessToken, u.calendarID, eventID); deleteErr != nil {
			u.log.Errorf("Failed to delete orphaned calendar event %s: %+v", eventID, deleteErr)
		}
		return nil, err
	}

	u.notify(ctx, fmt.Sprintf("New booking: %s %s by %s", date, timeStr, requester))
	u.log.Infof("Booking created: id=%d user=%s slot=%s %s event=%s", booking.ID, userID, date, timeStr, eventID)
	return booking, nil
}

// Cancel releases the actor's booking. The calendar-event deletion is best
// effort and never blocks the local cancellation.
func (u *bookingUsecase) Cancel(ctx context.Context, bookingID uint, actorID string) error {
	booking, err := u.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.UserID != actorID {
		return ErrBookingNotOwned
	}
	if booking.IsCancelled() {
		return service.ErrBookingAlreadyCancelled
	}
	if !booking.IsActive() {
		return service.ErrBookingNotActive
	}

	if booking.EventID != "" {
		if accessToken, tokenErr := u.tokens.EnsureValidToken(ctx); tokenErr != nil {
			u.log.Warnf("Skipping calendar event delete for booking %d: %+v", bookingID, tokenErr)
		} else if deleteErr := u.cal.DeleteEvent(ctx, accessToken, u.calendarID, booking.EventID); deleteErr != nil {
			u.log.Warnf("Failed to delete calendar event %s for booking %d (non-fatal): %+v", booking.EventID, bookingID, deleteErr)
		}
	}

	if err := u.store.CancelBooking(ctx, bookingID, actorID); err != nil {
		return err
	}

	u.notify(ctx, fmt.Sprintf("Booking cancelled: %s %s by %s", booking.SessionDate, booking.SessionTime, actorID))
	u.log.Infof("Booking cancelled: id=%d actor=%s", bookingID, actorID)
	return nil
}

// AvailableDays lists upcoming days with at least one free slot.
func (u *bookingUsecase) AvailableDays(ctx context.Context) ([]entity.DaySlot, error) {
	now := u.nowFn()
	busy, err := u.busyKeys(ctx, now, now.AddDate(0, 0, u.lookaheadDays))
	if err != nil {
		return nil, err
	}
	return u.slots.DaysWithAvailability(now, u.lookaheadDays, busy), nil
}

// AvailableSlots lists the free slots of one date.
func (u *bookingUsecase) AvailableSlots(ctx context.Context, date string) ([]entity.TimeSlot, error) {
	day, err := time.ParseInLocation(entity.DateLayout, date, u.loc)
	if err != nil {
		return nil, ErrInvalidSlot
	}

	busy, err := u.busyKeys(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	return u.slots.SlotsForDay(u.nowFn(), date, busy)
}

func (u *bookingUsecase) MyBookings(ctx context.Context, userID string) ([]entity.Booking, error) {
	return u.store.GetBookingsByUser(ctx, userID)
}

func (u *bookingUsecase) Statistics(ctx context.Context, windowDays int) (*entity.BookingStatistics, error) {
	return u.store.GetBookingStatistics(ctx, windowDays, u.nowFn())
}

func (u *bookingUsecase) busyKeys(ctx context.Context, from, to time.Time) (map[entity.SlotKey]struct{}, error) {
	accessToken, err := u.tokens.EnsureValidToken(ctx)
	if err != nil {
		return nil, err
	}

	intervals, err := u.cal.ListBusyIntervals(ctx, accessToken, u.calendarID, from, to)
	if err != nil {
		u.log.Warnf("Failed to list busy intervals: %+v", err)
		return nil, fmt.Errorf("%w: %v", ErrCalendarUnavailable, err)
	}
	return u.slots.BusyKeys(intervals), nil
}

func (u *bookingUsecase) notify(ctx context.Context, text string) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.NotifyOperator(ctx, text); err != nil {
		u.log.Warnf("Failed to notify operator (non-fatal): %+v", err)
	}
}
