package infra

import (
	"errors"
	"fmt"
	"net/smtp"

	"economat/internal/config"

	"github.com/jordan-wright/email"
)

// ErrNoRecipients is returned when an alert has nobody to go to.
var ErrNoRecipients = errors.New("mailer: no recipients configured")

// Mailer wraps SMTP configuration for sending stock alert emails.
type Mailer struct {
	host       string
	user       string
	password   string
	addr       string
	recipients []string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:       cfg.SMTPHost,
		user:       cfg.SMTPUser,
		password:   cfg.SMTPPassword,
		addr:       fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		recipients: cfg.Recipients(),
	}
}

// SendAlert mails subject/body to the configured alert recipients.
func (m *Mailer) SendAlert(subject, body string) error {
	if len(m.recipients) == 0 {
		return ErrNoRecipients
	}
	if m.host == "" {
		return errors.New("mailer: SMTP_HOST is not set")
	}
	e := email.NewEmail()
	e.From = m.user
	e.To = m.recipients
	e.Subject = subject
	e.Text = []byte(body)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return e.Send(m.addr, auth)
}
