package telegram

import (
	"fmt"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/entity"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const slotsPerRow = 4

// daysKeyboard renders one button per day that still has a free slot.
func daysKeyboard(days []entity.DaySlot) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, day := range days {
		if !day.Available {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(day.Date, "day|"+day.Date),
		))
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func slotsKeyboard(slots []entity.TimeSlot) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, slot := range slots {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			slot.Time, fmt.Sprintf("slot|%s|%s", slot.Date, slot.Time),
		))
		if len(row) == slotsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// bookingsKeyboard renders each booking with its own cancel button.
func bookingsKeyboard(bookings []entity.Booking) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, booking := range bookings {
		label := fmt.Sprintf("❌ %s %s", booking.SessionDate, booking.SessionTime)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("cancel|%d", booking.ID)),
		))
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}
