package service

import (
	"fmt"
	"time"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/entity"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/infrastructure/calendar"
)

// SlotService computes bookable slots by diffing the calendar's busy
// intervals against the fixed working-hours template. It performs no I/O;
// callers fetch the busy set and pass it in.
type SlotService struct {
	hours   []int
	restDay time.Weekday
	loc     *time.Location
}

func NewSlotService(hours []int, restDay time.Weekday, loc *time.Location) *SlotService {
	template := make([]int, len(hours))
	copy(template, hours)
	return &SlotService{hours: template, restDay: restDay, loc: loc}
}

// SlotsForRange returns every free working-hour slot within days of now,
// ascending by date then hour. The rest weekday is skipped entirely.
func (s *SlotService) SlotsForRange(now time.Time, days int, busy map[entity.SlotKey]struct{}) []entity.TimeSlot {
	var slots []entity.TimeSlot
	day := now.In(s.loc)
	for i := 0; i < days; i++ {
		if day.Weekday() != s.restDay {
			slots = append(slots, s.daySlots(now, day, busy)...)
		}
		day = day.AddDate(0, 0, 1)
	}
	return slots
}

// SlotsForDay returns the free slots of a single date. Unlike range
// queries, an explicitly requested date is not subject to the rest-day
// exclusion.
func (s *SlotService) SlotsForDay(now time.Time, date string, busy map[entity.SlotKey]struct{}) ([]entity.TimeSlot, error) {
	day, err := time.ParseInLocation(entity.DateLayout, date, s.loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return s.daySlots(now, day, busy), nil
}

// DaysWithAvailability marks each upcoming day by whether at least one
// slot remains free. Rest days are omitted.
func (s *SlotService) DaysWithAvailability(now time.Time, days int, busy map[entity.SlotKey]struct{}) []entity.DaySlot {
	var result []entity.DaySlot
	day := now.In(s.loc)
	for i := 0; i < days; i++ {
		if day.Weekday() != s.restDay {
			result = append(result, entity.DaySlot{
				Date:      day.Format(entity.DateLayout),
				Available: len(s.daySlots(now, day, busy)) > 0,
			})
		}
		day = day.AddDate(0, 0, 1)
	}
	return result
}

func (s *SlotService) daySlots(now time.Time, day time.Time, busy map[entity.SlotKey]struct{}) []entity.TimeSlot {
	date := day.Format(entity.DateLayout)

	var slots []entity.TimeSlot
	for _, hour := range s.hours {
		start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, s.loc)
		// A slot whose hour has started counts as past, even mid-hour.
		if !start.After(now) {
			continue
		}

		key := entity.SlotKey{Date: date, Time: start.Format(entity.TimeLayout)}
		if _, taken := busy[key]; taken {
			continue
		}

		slots = append(slots, entity.TimeSlot{Date: key.Date, Time: key.Time, Available: true})
	}
	return slots
}

// BusyKeys expands calendar busy intervals into (date, hour) slot keys. An
// hour is busy when any part of it overlaps an interval.
func (s *SlotService) BusyKeys(intervals []calendar.BusyInterval) map[entity.SlotKey]struct{} {
	busy := make(map[entity.SlotKey]struct{})
	for _, interval := range intervals {
		start := interval.Start.In(s.loc)
		end := interval.End.In(s.loc)

		hour := time.Date(start.Year(), start.Month(), start.Day(), start.Hour(), 0, 0, 0, s.loc)
		for hour.Before(end) {
			if hour.Add(time.Hour).After(start) {
				busy[entity.SlotKey{
					Date: hour.Format(entity.DateLayout),
					Time: hour.Format(entity.TimeLayout),
				}] = struct{}{}
			}
			hour = hour.Add(time.Hour)
		}
	}
	return busy
}
