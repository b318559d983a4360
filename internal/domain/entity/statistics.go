package entity

// BookingStatistics aggregates bookings created in a trailing window.
type BookingStatistics struct {
	WindowDays     int     `json:"window_days"`
	Total          int64   `json:"total"`
	Active         int64   `json:"active"`
	Cancelled      int64   `json:"cancelled"`
	Completed      int64   `json:"completed"`
	DistinctUsers  int64   `json:"distinct_users"`
	CompletionRate float64 `json:"completion_rate"`
}
