package dto

import (
	"time"
)

// Response DTOs

type BookingResponse struct {
	ID          uint      `json:"id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	SessionDate string    `json:"session_date"`
	SessionTime string    `json:"session_time"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Total    int               `json:"total"`
}

type SlotResponse struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type SlotListResponse struct {
	Date  string         `json:"date"`
	Slots []SlotResponse `json:"slots"`
	Total int            `json:"total"`
}

type StatisticsResponse struct {
	WindowDays     int     `json:"window_days"`
	Total          int64   `json:"total"`
	Active         int64   `json:"active"`
	Cancelled      int64   `json:"cancelled"`
	Completed      int64   `json:"completed"`
	DistinctUsers  int64   `json:"distinct_users"`
	CompletionRate float64 `json:"completion_rate"`
}

type StatusResponse struct {
	Service    string    `json:"service"`
	Status     string    `json:"status"`
	Env        string    `json:"env"`
	Authorized bool      `json:"authorized"`
	Time       time.Time `json:"time"`
}
