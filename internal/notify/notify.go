// Package notify sends the lead notification email to the site owner.
//
// Two transports are available: the Resend HTTP API and plain SMTP. A
// provider without credentials resolves to a sender that logs and skips, so
// local runs never fail on a missing mail account.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"intake/internal/models"
)

// Message is a rendered email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// ErrNoRecipients is returned when a message has no addressee.
var ErrNoRecipients = errors.New("no recipients")

// New selects a sender for cfg.Provider.
func New(cfg models.NotifyConfig) (Sender, error) {
	switch cfg.Provider {
	case models.NotifyProviderResend:
		if cfg.Resend.APIKey == "" {
			return NewDisabledSender("missing_api_key"), nil
		}
		return NewResendSender(cfg.Resend), nil
	case models.NotifyProviderSMTP:
		if cfg.SMTP.Host == "" {
			return NewDisabledSender("missing_smtp_host"), nil
		}
		return NewSMTPSender(cfg.SMTP), nil
	case models.NotifyProviderNone, "":
		return NewDisabledSender("provider_none"), nil
	default:
		return nil, fmt.Errorf("unsupported notify provider: %s", cfg.Provider)
	}
}

// DisabledSender drops every message.
type DisabledSender struct {
	reason string
}

func NewDisabledSender(reason string) *DisabledSender {
	return &DisabledSender{reason: reason}
}

func (d *DisabledSender) Send(ctx context.Context, msg Message) error {
	slog.Warn("Email notification skipped",
		"reason", d.reason,
		"subject", msg.Subject,
	)
	return nil
}

func (d *DisabledSender) Name() string { return "disabled" }

// Enabled reports whether s actually delivers mail.
func Enabled(s Sender) bool {
	if s == nil {
		return false
	}
	_, off := s.(*DisabledSender)
	return !off
}

func validate(msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range msg.To {
		if strings.TrimSpace(to) == "" {
			return ErrNoRecipients
		}
	}
	return nil
}
