// Package notify forwards booking events to a Telegram chat.
package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"holidayrent/internal/domain"
	"holidayrent/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type TelegramNotifier struct {
	bot    domain.TelegramSender
	chatID int64
	logger *zerolog.Logger
}

func NewTelegramNotifier(bot domain.TelegramSender, chatID int64, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}
}

// NewBotAPI connects to Telegram with the given token.
func NewBotAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = debug
	return bot, nil
}

// Subscribe registers the notifier for every booking event on bus.
func (n *TelegramNotifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(n.Handle, events.BookingEvents...)
}

func (n *TelegramNotifier) Handle(event *events.Event) error {
	var p events.BookingEventPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
	}

	msg := tgbotapi.NewMessage(n.chatID, formatBooking(event.Type, p))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}

	n.logger.Debug().
		Str("event", event.Type).
		Str("booking_id", p.BookingID).
		Msg("Booking notification sent")
	return nil
}

var eventTitles = map[string]string{
	events.EventBookingCreated:   "🆕 New booking",
	events.EventBookingUpdated:   "✏️ Booking updated",
	events.EventBookingCancelled: "❌ Booking cancelled",
	events.EventBookingPaid:      "💳 Booking paid",
	events.EventBookingCompleted: "✅ Stay completed",
}

func formatBooking(eventType string, p events.BookingEventPayload) string {
	title, ok := eventTitles[eventType]
	if !ok {
		title = eventType
	}
	property := p.PropertyName
	if property == "" {
		property = p.PropertyID
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n", title)
	fmt.Fprintf(&sb, "Property: %s\n", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, property))
	fmt.Fprintf(&sb, "Dates: %s → %s\n", p.CheckIn, p.CheckOut)
	fmt.Fprintf(&sb, "Guests: %d\n", p.Guests)
	fmt.Fprintf(&sb, "Total: %.2f\n", p.TotalPrice)
	fmt.Fprintf(&sb, "Status: %s / %s", p.Status, p.PaymentStatus)
	return sb.String()
}
