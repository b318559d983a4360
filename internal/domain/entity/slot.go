package entity

// SlotKey identifies one bookable (date, time) unit.
type SlotKey struct {
	Date string
	Time string
}

// TimeSlot is an ephemeral bookable hour produced by an availability query.
// Slots are computed fresh per request and never cached.
type TimeSlot struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// Key returns the slot's (date, time) key.
func (s TimeSlot) Key() SlotKey {
	return SlotKey{Date: s.Date, Time: s.Time}
}

// DaySlot marks whether a day still has at least one free slot.
type DaySlot struct {
	Date      string `json:"date"`
	Available bool   `json:"available"`
}
