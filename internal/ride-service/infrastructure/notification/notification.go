// Package notification delivers participant messages over the configured
// transports. Every notifier satisfies service.Notifier.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rideshare/internal/ride-service/domain"
	"rideshare/pkg/logger"
)

// Message is the payload every transport carries.
type Message struct {
	Type        string    `json:"type"`
	RecipientID string    `json:"recipient_id"`
	Email       string    `json:"email,omitempty"`
	Message     string    `json:"message"`
	SentAt      time.Time `json:"sent_at"`
}

// Notifier mirrors service.Notifier so this package does not import the
// service layer.
type Notifier interface {
	Notify(ctx context.Context, to domain.Contact, message string) error
}

func newMessage(to domain.Contact, text string, now time.Time) Message {
	return Message{
		Type:        "notification",
		RecipientID: to.UserID,
		Email:       to.Email,
		Message:     text,
		SentAt:      now.UTC(),
	}
}

func encode(to domain.Contact, text string, now time.Time) ([]byte, error) {
	body, err := json.Marshal(newMessage(to, text, now))
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	return body, nil
}

// recipient is the routing identity of a contact.
func recipient(to domain.Contact) string {
	if to.UserID != "" {
		return to.UserID
	}
	return to.Email
}

// LogNotifier writes every notification to the structured log.
type LogNotifier struct {
	log logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, to domain.Contact, message string) error {
	n.log.WithFields(logger.LogFields{
		"recipient": recipient(to),
		"email":     to.Email,
	}).Info("notification_sent", message)
	return nil
}

// Multi fans a notification out to every notifier. It tries them all and
// joins the failures.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, to domain.Contact, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, to, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
