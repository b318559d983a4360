package entity

import (
	"time"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// Booking represents a single reserved court session.
// The (session_date, session_time) pair is unique among non-cancelled rows;
// the partial unique index lives in the migration scripts.
type Booking struct {
	ID          uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      string        `gorm:"type:varchar(64);not null;index" json:"user_id"`
	DisplayName string        `gorm:"type:varchar(128)" json:"display_name,omitempty"`
	SessionDate string        `gorm:"type:varchar(10);not null;index" json:"session_date"`
	SessionTime string        `gorm:"type:varchar(5);not null" json:"session_time"`
	EventID     string        `gorm:"type:varchar(128)" json:"event_id,omitempty"`
	Status      BookingStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	Notes       string        `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

// Layouts for the persisted date and time columns.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// IsActive checks if the booking still occupies its slot
func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusActive
}

// IsCancelled checks if the booking was cancelled
func (b *Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelled
}

// IsCompleted checks if the session already took place
func (b *Booking) IsCompleted() bool {
	return b.Status == BookingStatusCompleted
}

// SessionStart returns the wall-clock start of the session in loc.
func (b *Booking) SessionStart(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, b.SessionDate+" "+b.SessionTime, loc)
}

// Snapshot returns the audited field values of the booking, used as the
// before/after payload of a history entry.
func (b *Booking) Snapshot() JSON {
	return JSON{
		"user_id":      b.UserID,
		"display_name": b.DisplayName,
		"session_date": b.SessionDate,
		"session_time": b.SessionTime,
		"event_id":     b.EventID,
		"status":       string(b.Status),
		"notes":        b.Notes,
	}
}

// BookingUpdate is an explicit partial update of a booking. Only non-nil
// fields are applied; updated_at is bumped by the store on every update.
type BookingUpdate struct {
	Status      *BookingStatus
	Notes       *string
	EventID     *string
	DisplayName *string
}

// Fields returns the column map for the set fields.
func (u BookingUpdate) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if u.Status != nil {
		fields["status"] = string(*u.Status)
	}
	if u.Notes != nil {
		fields["notes"] = *u.Notes
	}
	if u.EventID != nil {
		fields["event_id"] = *u.EventID
	}
	if u.DisplayName != nil {
		fields["display_name"] = *u.DisplayName
	}
	return fields
}

// IsEmpty reports whether the update would change nothing.
func (u BookingUpdate) IsEmpty() bool {
	return u.Status == nil && u.Notes == nil && u.EventID == nil && u.DisplayName == nil
}
