// Package notify pushes booking events to the clinic managers' Telegram
// chats.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"clinica/internal/models"
)

// sender is the part of the Telegram API the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends manager notifications, rate limited so a booking burst
// cannot trip Telegram's flood control.
type Notifier struct {
	bot     sender
	chatIDs []int64
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// New creates a notifier for the given bot token and manager chat IDs.
func New(token string, chatIDs []int64, logger zerolog.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return newWithSender(bot, chatIDs, logger), nil
}

func newWithSender(bot sender, chatIDs []int64, logger zerolog.Logger) *Notifier {
	return &Notifier{
		bot:     bot,
		chatIDs: chatIDs,
		limiter: rate.NewLimiter(rate.Limit(20), 30),
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// AppointmentBooked tells the managers about a fresh booking.
func (n *Notifier) AppointmentBooked(ctx context.Context, a *models.Appointment) {
	text := fmt.Sprintf(
		"Nova consulta agendada\n\nPaciente: %s\nData: %s às %s\nContato: %s\nRef: %s",
		a.PatientName, a.Date, a.StartTime, a.PatientEmail, a.Reference,
	)
	n.broadcast(ctx, text)
}

// AppointmentCancelled tells the managers a booking was cancelled.
func (n *Notifier) AppointmentCancelled(ctx context.Context, a *models.Appointment) {
	text := fmt.Sprintf(
		"Consulta cancelada\n\nPaciente: %s\nData: %s às %s\nRef: %s",
		a.PatientName, a.Date, a.StartTime, a.Reference,
	)
	n.broadcast(ctx, text)
}

func (n *Notifier) broadcast(ctx context.Context, text string) {
	for _, chatID := range n.chatIDs {
		if err := n.limiter.Wait(ctx); err != nil {
			n.logger.Warn().Err(err).Msg("notification cancelled while rate limited")
			return
		}
		if _, err := n.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send notification failed")
		}
	}
}
