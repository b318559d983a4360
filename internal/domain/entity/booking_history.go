package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// HistoryAction is the kind of state transition a history entry records
type HistoryAction string

const (
	HistoryActionCreated   HistoryAction = "created"
	HistoryActionModified  HistoryAction = "modified"
	HistoryActionCancelled HistoryAction = "cancelled"
	HistoryActionCompleted HistoryAction = "completed"
)

// BookingHistory is an immutable audit record of one booking state
// transition. Entries are append-only and written in the same transaction
// as the mutation they record.
type BookingHistory struct {
	ID        uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	BookingID uint          `gorm:"not null;index" json:"booking_id"`
	Action    HistoryAction `gorm:"type:varchar(16);not null;index" json:"action"`
	OldValues JSON          `gorm:"type:text" json:"old_values,omitempty"`
	NewValues JSON          `gorm:"type:text" json:"new_values,omitempty"`
	ActorID   string        `gorm:"type:varchar(64);not null" json:"actor_id"`
	CreatedAt time.Time     `gorm:"autoCreateTime;index" json:"created_at"`
}

func (BookingHistory) TableName() string {
	return "booking_history"
}

// JSON type for snapshot columns, stored as TEXT in sqlite
type JSON map[string]interface{}

// Value returns json value, implement driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan scans a stored value into JSON, implements sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal JSON value:", value))
	}

	result := map[string]interface{}{}
	err := json.Unmarshal(bytes, &result)
	*j = JSON(result)
	return err
}
