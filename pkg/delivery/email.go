package delivery

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/havenapp/mood-engine/internal/model"
)

// EmergencyMailer emails a profile's emergency contact when a crisis alert
// is tagged for contact notification.
type EmergencyMailer interface {
	NotifyContact(ctx context.Context, contactEmail string, alert *model.CrisisAlert) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg SMTPConfig) EmergencyMailer {
	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *smtpMailer) NotifyContact(_ context.Context, contactEmail string, alert *model.CrisisAlert) error {
	if contactEmail == "" {
		return fmt.Errorf("no emergency contact configured")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", contactEmail)
	msg.SetHeader("Subject", fmt.Sprintf("Support check-in requested (%s)", alert.Severity))
	msg.SetBody("text/plain", fmt.Sprintf(
		"Someone who listed you as an emergency contact may need support.\n\n"+
			"Suggested next steps:\n%s\n",
		"- "+strings.Join(alert.RecommendedActions, "\n- "),
	))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send emergency contact mail: %w", err)
	}
	return nil
}
