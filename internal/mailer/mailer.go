// Package mailer sends notification email. The Mailer interface keeps the
// worker testable and lets deployments swap the transport.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/dharsanguruparan/unlockmate/internal/config"
	"github.com/dharsanguruparan/unlockmate/internal/model"
)

// Mailer delivers a single message.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail through a plain SMTP relay, the same transport the
// hosted Gmail setup uses.
type SMTPMailer struct {
	addr     string
	username string
	password string
	from     string
}

// NewSMTP builds an SMTPMailer from config.
func NewSMTP(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		addr:     cfg.SMTPAddr,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
	}
}

// Send delivers one message. Errors wrap model.ErrExternal so callers can
// classify them as collaborator failures.
func (m *SMTPMailer) Send(to, subject, body string) error {
	host := m.addr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, host)
	}
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(m.addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("%w: send mail: %v", model.ErrExternal, err)
	}
	return nil
}
