// Package contact forwards contact-form submissions to the support inbox
// over SMTP.
package contact

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"

	"github.com/collegecompass/api/internal/config"
	"github.com/collegecompass/api/internal/upload"
)

// Message is one contact-form submission.
type Message struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"message"`
}

func (m *Message) Normalize() {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Subject = strings.TrimSpace(m.Subject)
	m.Body = strings.TrimSpace(m.Body)
}

func (m Message) Validate() error {
	if m.Name == "" {
		return upload.NewValidationError("name", "name is required")
	}
	if m.Email == "" || !strings.Contains(m.Email, "@") {
		return upload.NewValidationError("email", "a valid email is required")
	}
	if m.Body == "" {
		return upload.NewValidationError("message", "message is required")
	}
	return nil
}

// Mailer delivers contact messages.
type Mailer struct {
	cfg config.SMTPConfig
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Enabled reports whether SMTP delivery is configured.
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != "" && m.cfg.Inbox != ""
}

// Send forwards the message to the support inbox. When SMTP is not
// configured the message is logged and accepted, so the form keeps working
// in development.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	msg.Normalize()
	if err := msg.Validate(); err != nil {
		return err
	}

	if !m.Enabled() {
		log.Info().
			Str("from", msg.Email).
			Str("subject", msg.Subject).
			Msg("contact message received, smtp disabled")
		return nil
	}

	mm := mail.NewMsg()
	if err := mm.From(m.cfg.Username); err != nil {
		return err
	}
	if err := mm.To(m.cfg.Inbox); err != nil {
		return err
	}
	if err := mm.ReplyTo(msg.Email); err != nil {
		return err
	}

	subject := msg.Subject
	if subject == "" {
		subject = "New contact message"
	}
	mm.Subject(fmt.Sprintf("[contact] %s", subject))
	mm.SetBodyString(mail.TypeTextPlain,
		fmt.Sprintf("From: %s <%s>\n\n%s\n", msg.Name, msg.Email, msg.Body))

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, mm)
}
