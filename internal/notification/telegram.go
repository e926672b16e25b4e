package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// messageSender is the part of *bot.Bot used for delivery.
type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier forwards selected kinds to an operator chat.
type TelegramNotifier struct {
	sender messageSender
	chatID int64
	kinds  map[string]struct{}
}

// NewTelegramNotifier connects a bot with token. Only messages whose kind is
// listed are forwarded; with no kinds, failures and grants are forwarded.
func NewTelegramNotifier(token string, chatID int64, kinds ...string) (*TelegramNotifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return newTelegramNotifier(b, chatID, kinds...), nil
}

func newTelegramNotifier(sender messageSender, chatID int64, kinds ...string) *TelegramNotifier {
	if len(kinds) == 0 {
		kinds = []string{KindPaymentInitFailed, KindPaymentFailed, KindAccessGranted}
	}
	set := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return &TelegramNotifier{sender: sender, chatID: chatID, kinds: set}
}

// Send posts the message to the operator chat.
func (n *TelegramNotifier) Send(ctx context.Context, message Message) error {
	if _, ok := n.kinds[message.Kind]; !ok {
		return nil
	}
	disablePreview := true
	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   fmt.Sprintf("[%s] session %s\n%s", message.Kind, message.Destination, message.Body),
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: &disablePreview,
		},
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// Multi delivers to every notifier and logs individual failures.
type Multi struct {
	notifiers []Notifier
	logger    *slog.Logger
}

// NewMulti fans out to notifiers, skipping nil entries.
func NewMulti(logger *slog.Logger, notifiers ...Notifier) *Multi {
	m := &Multi{logger: logger}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Send never fails; a downstream outage must not break the payment flow.
func (m *Multi) Send(ctx context.Context, message Message) error {
	for _, n := range m.notifiers {
		if err := n.Send(ctx, message); err != nil && m.logger != nil {
			m.logger.Warn("notification delivery failed", slog.String("kind", message.Kind), slog.Any("error", err))
		}
	}
	return nil
}
