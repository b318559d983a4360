package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/service"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/usecase"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const statisticsWindowDays = 30

// Bot is the thin chat surface over the booking usecases: it renders menus
// and routes callbacks, nothing more.
type Bot struct {
	api         *tgbotapi.BotAPI
	log         *logrus.Logger
	booking     usecase.BookingUsecase
	adminChatID int64
}

func NewBot(token string, log *logrus.Logger, booking usecase.BookingUsecase, adminChatID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	return &Bot{
		api:         api,
		log:         log,
		booking:     booking,
		adminChatID: adminChatID,
	}, nil
}

// SetBookingUsecase wires the usecase in after construction. The bot is
// built first because it also serves as the usecase's operator notifier.
func (b *Bot) SetBookingUsecase(booking usecase.BookingUsecase) {
	b.booking = booking
}

// Run consumes updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	b.log.Infof("Telegram bot started as @%s", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("Telegram bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// NotifyOperator implements usecase.Notifier.
func (b *Bot) NotifyOperator(ctx context.Context, text string) error {
	if b.adminChatID == 0 {
		return nil
	}
	_, err := b.api.Send(tgbotapi.NewMessage(b.adminChatID, text))
	return err
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorf("Telegram update handler panicked: %v", r)
		}
	}()

	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := strconv.FormatInt(msg.From.ID, 10)

	switch msg.Command() {
	case "start", "help":
		b.reply(chatID, "Court booking bot.\n\n"+
			"/book — pick a day and time\n"+
			"/mybookings — your upcoming sessions\n"+
			"/help — this message")
	case "book":
		b.sendDayMenu(ctx, chatID)
	case "mybookings":
		b.sendMyBookings(ctx, chatID, userID)
	case "stats":
		if chatID != b.adminChatID {
			b.reply(chatID, "Unknown command, try /help")
			return
		}
		b.sendStatistics(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command, try /help")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.log.Warnf("Failed to ack callback: %v", err)
	}
	if cq.Message == nil {
		return
	}

	chatID := cq.Message.Chat.ID
	userID := strconv.FormatInt(cq.From.ID, 10)
	displayName := displayName(cq.From)

	parts := strings.Split(cq.Data, "|")
	switch {
	case parts[0] == "day" && len(parts) == 2:
		b.sendSlotMenu(ctx, chatID, parts[1])
	case parts[0] == "slot" && len(parts) == 3:
		b.book(ctx, chatID, userID, displayName, parts[1], parts[2])
	case parts[0] == "cancel" && len(parts) == 2:
		b.cancel(ctx, chatID, userID, parts[1])
	}
}

func (b *Bot) sendDayMenu(ctx context.Context, chatID int64) {
	days, err := b.booking.AvailableDays(ctx)
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	markup := daysKeyboard(days)
	if len(markup.InlineKeyboard) == 0 {
		b.reply(chatID, "No days with free slots in the booking window.")
		return
	}

	msg := tgbotapi.NewMessage(chatID, "Pick a day:")
	msg.ReplyMarkup = markup
	b.send(msg)
}

func (b *Bot) sendSlotMenu(ctx context.Context, chatID int64, date string) {
	slots, err := b.booking.AvailableSlots(ctx, date)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	if len(slots) == 0 {
		b.reply(chatID, fmt.Sprintf("No free slots on %s anymore.", date))
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Free slots on %s:", date))
	msg.ReplyMarkup = slotsKeyboard(slots)
	b.send(msg)
}

func (b *Bot) book(ctx context.Context, chatID int64, userID, displayName, date, timeStr string) {
	booking, err := b.booking.Book(ctx, userID, displayName, date, timeStr)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Booked! Court is yours on %s at %s (booking #%d).",
		booking.SessionDate, booking.SessionTime, booking.ID))
}

func (b *Bot) sendMyBookings(ctx context.Context, chatID int64, userID string) {
	bookings, err := b.booking.MyBookings(ctx, userID)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	if len(bookings) == 0 {
		b.reply(chatID, "You have no active bookings. Use /book to reserve a slot.")
		return
	}

	msg := tgbotapi.NewMessage(chatID, "Your bookings:")
	msg.ReplyMarkup = bookingsKeyboard(bookings)
	b.send(msg)
}

func (b *Bot) cancel(ctx context.Context, chatID int64, userID, rawID string) {
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		b.reply(chatID, "That booking no longer exists.")
		return
	}

	if err := b.booking.Cancel(ctx, uint(id), userID); err != nil {
		b.replyError(chatID, err)
		return
	}
	b.reply(chatID, "Booking cancelled, the slot is free again.")
}

func (b *Bot) sendStatistics(ctx context.Context, chatID int64) {
	stats, err := b.booking.Statistics(ctx, statisticsWindowDays)
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	b.reply(chatID, fmt.Sprintf(
		"Last %d days:\nTotal: %d\nActive: %d\nCompleted: %d\nCancelled: %d\nPlayers: %d\nCompletion rate: %.0f%%",
		stats.WindowDays, stats.Total, stats.Active, stats.Completed,
		stats.Cancelled, stats.DistinctUsers, stats.CompletionRate*100))
}

func (b *Bot) replyError(chatID int64, err error) {
	switch {
	case errors.Is(err, service.ErrSlotTaken):
		b.reply(chatID, "That slot was just taken, pick another one.")
	case errors.Is(err, usecase.ErrInvalidSlot):
		b.reply(chatID, "That slot is not bookable, pick another one.")
	case errors.Is(err, usecase.ErrCalendarUnavailable):
		b.reply(chatID, "The calendar did not respond, the slot may no longer be available. Try again in a minute.")
	case errors.Is(err, service.ErrNotAuthorized), errors.Is(err, service.ErrAuthentication):
		b.reply(chatID, "The booking calendar is not connected yet, the operator has been informed.")
	case errors.Is(err, usecase.ErrBookingNotOwned), errors.Is(err, service.ErrBookingNotFound):
		b.reply(chatID, "That booking was not found among yours.")
	case errors.Is(err, service.ErrBookingAlreadyCancelled):
		b.reply(chatID, "That booking is already cancelled.")
	case errors.Is(err, service.ErrBookingNotActive):
		b.reply(chatID, "That session already took place and can no longer be cancelled.")
	default:
		b.log.Errorf("Unhandled booking error: %+v", err)
		b.reply(chatID, "Something went wrong, try again later.")
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warnf("Failed to send telegram message: %v", err)
	}
}

func displayName(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.UserName
	}
	return name
}
