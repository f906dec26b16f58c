package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/eesa/eesa-api/pkg/config"
)

// Mailer delivers transactional email over SMTP.
type Mailer struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

// New constructs a Mailer from SMTP configuration.
func New(cfg config.SMTPConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// Send delivers a plain-text message to a single recipient.
// Without configured credentials the message is logged instead of sent,
// which keeps local development working with no SMTP server.
func (m *Mailer) Send(to, subject, body string) error {
	if m.cfg.Username == "" || m.cfg.Password == "" {
		m.logger.Warn("smtp credentials not configured, skipping delivery",
			zap.String("to", to),
			zap.String("subject", subject))
		return nil
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// WelcomeBody renders the welcome message for a newly registered account.
// The generated password is included only when credentials were issued by
// an administrator on the user's behalf.
func WelcomeBody(fullName, username, password string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", fullName)
	b.WriteString("Welcome to the EESA (Electrical Engineering Students Association) system!\n\n")
	b.WriteString("Your account has been created successfully.\n\n")
	fmt.Fprintf(&b, "Username: %s\n", username)
	if password != "" {
		fmt.Fprintf(&b, "Password: %s\n", password)
	}
	b.WriteString("\nPlease login to the system and change your password if needed.\n\nThank you,\nEESA Team\n")
	return b.String()
}
