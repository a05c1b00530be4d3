package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"dockmon/internal/config"
)

// Mailer dispatches alert emails over SMTP. It is entirely best-effort:
// callers gate on Enabled and only log Send failures.
type Mailer struct {
	host string
	port int
	user string
	pass string
	from string
}

func NewMailer(cfg config.Config) *Mailer {
	return &Mailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: cfg.SMTPFrom,
	}
}

// Enabled reports whether SMTP is configured.
func (m *Mailer) Enabled() bool {
	return m != nil && m.host != "" && m.from != ""
}

// Send delivers one message with text and HTML alternatives.
func (m *Mailer) Send(ctx context.Context, to, subject, html, text string) error {
	if !m.Enabled() {
		return fmt.Errorf("mailer not configured")
	}
	opts := []mail.Option{mail.WithPort(m.port)}
	if m.user != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.user),
			mail.WithPassword(m.pass))
	}
	client, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, text)
	if html != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, html)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
