package notification

import (
	"context"
	"log/slog"
	"sync"
)

const (
	// KindValidation reports rejected phone or amount input.
	KindValidation = "validation"
	// KindPaymentInitFailed reports a refused or failed payment intent.
	KindPaymentInitFailed = "payment_init_failed"
	// KindPaymentFailed reports a rejected or unverifiable payment.
	KindPaymentFailed = "payment_failed"
	// KindAccessGranted reports an issued access credential.
	KindAccessGranted = "access_granted"
)

// Message is a user-facing notice (the toast shown by the client).
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers user-facing messages to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}

// Recorder keeps every message it receives. Used in tests.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Send appends the message.
func (r *Recorder) Send(_ context.Context, message Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

// Messages returns a copy of the received messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recent message, or the zero Message.
func (r *Recorder) Last() Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}
	}
	return r.messages[len(r.messages)-1]
}
