package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/infrastructure/calendar"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/repository"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/service"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/testfixtures"
)

type stubCalendarAPI struct {
	busy      []calendar.BusyInterval
	busyErr   error
	createErr error
	created   []calendar.EventInput
	deleted   []string
	nextEvent int
	lastEvent string
}

func (s *stubCalendarAPI) ListBusyIntervals(ctx context.Context, accessToken, calendarID string, timeMin, timeMax time.Time) ([]calendar.BusyInterval, error) {
	return s.busy, s.busyErr
}

func (s *stubCalendarAPI) CreateEvent(ctx context.Context, accessToken, calendarID string, ev calendar.EventInput) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	s.created = append(s.created, ev)
	s.nextEvent++
	s.lastEvent = fmt.Sprintf("evt-%d", s.nextEvent)
	return s.lastEvent, nil
}

func (s *stubCalendarAPI) DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error {
	s.deleted = append(s.deleted, eventID)
	return nil
}

type stubTokenProvider struct {
	token string
	err   error
}

func (s *stubTokenProvider) EnsureValidToken(ctx context.Context) (string, error) {
	return s.token, s.err
}

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) NotifyOperator(ctx context.Context, text string) error {
	r.messages = append(r.messages, text)
	return nil
}

type usecaseHarness struct {
	usecase  *bookingUsecase
	store    *service.BookingStore
	cal      *stubCalendarAPI
	notifier *recordingNotifier
}

func newUsecaseHarness(t *testing.T) *usecaseHarness {
	t.Helper()

	db, _ := testfixtures.NewStore(t)
	log := testfixtures.TestLogger()
	store := service.NewBookingStore(
		db, log,
		repository.NewBookingRepository(),
		repository.NewBookingHistoryRepository(),
	)
	slots := service.NewSlotService([]int{8, 9, 10, 11, 14, 15, 16, 17, 18, 19}, time.Sunday, time.UTC)
	cal := &stubCalendarAPI{}
	notifier := &recordingNotifier{}

	uc := NewBookingUsecase(
		log, store, slots,
		&stubTokenProvider{token: "access-token"},
		cal, notifier,
		"court-calendar", "UTC", time.UTC,
		time.Hour, 7,
	).(*bookingUsecase)
	uc.nowFn = testfixtures.FixedClock(time.Date(2024, 6, 10, 7, 0, 0, 0, time.UTC))

	return &usecaseHarness{usecase: uc, store: store, cal: cal, notifier: notifier}
}

func TestBook_Success(t *testing.T) {
	h := newUsecaseHarness(t)
	ctx := context.Background()

	booking, err := h.usecase.Book(ctx, "100", "Ann", "2024-06-10", "14:00")
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if booking.ID == 0 {
		t.Error("Expected booking ID to be assigned")
	}
	if booking.EventID != "evt-1" {
		t.Errorf("Expected event evt-1 on the booking, got %s", booking.EventID)
	}

	if len(h.cal.created) != 1 {
		t.Fatalf("Expected 1 calendar event, got %d", len(h.cal.created))
	}
	ev := h.cal.created[0]
	if !strings.Contains(ev.Summary, "Ann") {
		t.Errorf("Event summary should carry the player name, got %q", ev.Summary)
	}
	wantStart := time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)
	if !ev.Start.Equal(wantStart) || !ev.End.Equal(wantStart.Add(time.Hour)) {
		t.Errorf("Event span %v-%v, want %v-%v", ev.Start, ev.End, wantStart, wantStart.Add(time.Hour))
	}

	if len(h.notifier.messages) != 1 {
		t.Errorf("Expected 1 operator notification, got %d", len(h.notifier.messages))
	}
}

func TestBook_PastSlot(t *testing.T) {
	h := newUsecaseHarness(t)

	// The clock stands at 07:00; a started hour is not bookable.
	if _, err := h.usecase.Book(context.Background(), "100", "Ann", "2024-06-10", "06:00"); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("Expected ErrInvalidSlot, got %v", err)
	}
	if _, err := h.usecase.Book(context.Background(), "100", "Ann", "yesterday", "14:00"); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("Expected ErrInvalidSlot for malformed date, got %v", err)
	}
	if len(h.cal.created) != 0 {
		t.Errorf("No calendar event should be created for a rejected slot")
	}
}

func TestBook_DuplicateCompensatesEvent(t *testing.T) {
	h := newUsecaseHarness(t)
	ctx := context.Background()

	if _, err := h.usecase.Book(ctx, "100", "Ann", "2024-06-10", "14:00"); err != nil {
		t.Fatalf("First Book failed: %v", err)
	}

	_, err := h.usecase.Book(ctx, "200", "Bob", "2024-06-10", "14:00")
	if !errors.Is(err, service.ErrSlotTaken) {
		t.Fatalf("Expected ErrSlotTaken, got %v", err)
	}

	// The second event was created before the insert failed; it must be
	// deleted again.
	if len(h.cal.deleted) != 1 || h.cal.deleted[0] != "evt-2" {
		t.Errorf("Expected compensating delete of evt-2, got %v", h.cal.deleted)
	}

	bookings, err := h.store.GetBookingsByDateRange(ctx, "2024-06-10", "2024-06-10")
	if err != nil {
		t.Fatalf("GetBookingsByDateRange failed: %v", err)
	}
	if len(bookings) != 1 || bookings[0].UserID != "100" {
		t.Errorf("Expected only the first booking to persist, got %+v", bookings)
	}
}

func TestBook_CalendarFailure(t *testing.T) {
	h := newUsecaseHarness(t)
	h.cal.createErr = errors.New("upstream 503")

	_, err := h.usecase.Book(context.Background(), "100", "Ann", "2024-06-10", "14:00")
	if !errors.Is(err, ErrCalendarUnavailable) {
		t.Fatalf("Expected ErrCalendarUnavailable, got %v", err)
	}

	// No durable record without a calendar event.
	bookings, err := h.store.GetBookingsByDateRange(context.Background(), "2024-06-10", "2024-06-10")
	if err != nil {
		t.Fatalf("GetBookingsByDateRange failed: %v", err)
	}
	if len(bookings) != 0 {
		t.Errorf("Expected no bookings after a calendar failure, got %+v", bookings)
	}
}

func TestBook_TokenFailure(t *testing.T) {
	h := newUsecaseHarness(t)
	h.usecase.tokens = &stubTokenProvider{err: service.ErrNotAuthorized}

	_, err := h.usecase.Book(context.Background(), "100", "Ann", "2024-06-10", "14:00")
	if !errors.Is(err, service.ErrNotAuthorized) {
		t.Fatalf("Expected ErrNotAuthorized, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	h := newUsecaseHarness(t)
	ctx := context.Background()

	booking, err := h.usecase.Book(ctx, "100", "Ann", "2024-06-10", "14:00")
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	if err := h.usecase.Cancel(ctx, booking.ID, "100"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	got, err := h.store.GetBookingByID(ctx, booking.ID)
	if err != nil {
		t.Fatalf("GetBookingByID failed: %v", err)
	}
	if !got.IsCancelled() {
		t.Errorf("Expected status cancelled, got %s", got.Status)
	}
	if len(h.cal.deleted) != 1 || h.cal.deleted[0] != booking.EventID {
		t.Errorf("Expected calendar event %s deleted, got %v", booking.EventID, h.cal.deleted)
	}
}

func TestCancel_NotOwned(t *testing.T) {
	h := newUsecaseHarness(t)
	ctx := context.Background()

	booking, err := h.usecase.Book(ctx, "100", "Ann", "2024-06-10", "14:00")
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	if err := h.usecase.Cancel(ctx, booking.ID, "200"); !errors.Is(err, ErrBookingNotOwned) {
		t.Fatalf("Expected ErrBookingNotOwned, got %v", err)
	}

	got, err := h.store.GetBookingByID(ctx, booking.ID)
	if err != nil {
		t.Fatalf("GetBookingByID failed: %v", err)
	}
	if !got.IsActive() {
		t.Errorf("Booking should stay active after a foreign cancel attempt, got %s", got.Status)
	}
}

func TestCancel_CompletedBooking(t *testing.T) {
	h := newUsecaseHarness(t)
	ctx := context.Background()

	booking, err := h.usecase.Book(ctx, "100", "Ann", "2024-06-10", "14:00")
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	// The hourly sweep flips the elapsed session to completed; a stale
	// cancel button must not undo that.
	if _, err := h.store.MarkElapsedCompleted(ctx, time.Date(2024, 6, 11, 10, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("MarkElapsedCompleted failed: %v", err)
	}

	if err := h.usecase.Cancel(ctx, booking.ID, "100"); !errors.Is(err, service.ErrBookingNotActive) {
		t.Fatalf("Expected ErrBookingNotActive, got %v", err)
	}

	got, err := h.store.GetBookingByID(ctx, booking.ID)
	if err != nil {
		t.Fatalf("GetBookingByID failed: %v", err)
	}
	if !got.IsCompleted() {
		t.Errorf("Completed booking transitioned to %s", got.Status)
	}
	if len(h.cal.deleted) != 0 {
		t.Errorf("Calendar event must stay for a completed session, got deletes %v", h.cal.deleted)
	}
}

func TestCancel_TokenFailureStillCancels(t *testing.T) {
	h := newUsecaseHarness(t)
	ctx := context.Background()

	booking, err := h.usecase.Book(ctx, "100", "Ann", "2024-06-10", "14:00")
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	// Calendar credential is gone; the local cancellation must not block.
	h.usecase.tokens = &stubTokenProvider{err: service.ErrAuthentication}
	if err := h.usecase.Cancel(ctx, booking.ID, "100"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	got, err := h.store.GetBookingByID(ctx, booking.ID)
	if err != nil {
		t.Fatalf("GetBookingByID failed: %v", err)
	}
	if !got.IsCancelled() {
		t.Errorf("Expected status cancelled, got %s", got.Status)
	}
	if len(h.cal.deleted) != 0 {
		t.Errorf("No event delete expected without a token, got %v", h.cal.deleted)
	}
}

func TestAvailableSlots_ExcludesBusyAndBooked(t *testing.T) {
	h := newUsecaseHarness(t)
	ctx := context.Background()

	h.cal.busy = []calendar.BusyInterval{{
		Start: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC),
	}}

	slots, err := h.usecase.AvailableSlots(ctx, "2024-06-10")
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	for _, slot := range slots {
		if slot.Time == "09:00" {
			t.Errorf("Busy slot 09:00 offered: %+v", slot)
		}
	}

	if _, err := h.usecase.AvailableSlots(ctx, "not-a-date"); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("Expected ErrInvalidSlot, got %v", err)
	}
}

func TestAvailableDays_CalendarFailure(t *testing.T) {
	h := newUsecaseHarness(t)
	h.cal.busyErr = errors.New("upstream 502")

	if _, err := h.usecase.AvailableDays(context.Background()); !errors.Is(err, ErrCalendarUnavailable) {
		t.Fatalf("Expected ErrCalendarUnavailable, got %v", err)
	}
}

func TestMyBookings(t *testing.T) {
	h := newUsecaseHarness(t)
	ctx := context.Background()

	if _, err := h.usecase.Book(ctx, "100", "Ann", "2024-06-11", "10:00"); err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if _, err := h.usecase.Book(ctx, "100", "Ann", "2024-06-10", "14:00"); err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if _, err := h.usecase.Book(ctx, "200", "Bob", "2024-06-10", "15:00"); err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	bookings, err := h.usecase.MyBookings(ctx, "100")
	if err != nil {
		t.Fatalf("MyBookings failed: %v", err)
	}
	if len(bookings) != 2 {
		t.Fatalf("Expected 2 bookings, got %d", len(bookings))
	}
	if bookings[0].SessionDate != "2024-06-10" || bookings[1].SessionDate != "2024-06-11" {
		t.Errorf("Bookings not ascending by date: %+v", bookings)
	}
}
