// Package mailer sends transactional email over SMTP.
package mailer

import (
	"context"
	"fmt"
	"log"

	"github.com/wneessen/go-mail"
)

const resetSubject = "Reset your password - Peer Peer Study"

// Sender delivers password reset links.
type Sender interface {
	SendPasswordReset(ctx context.Context, to, resetLink string) error
}

// Options configures the SMTP connection. SSL selects implicit TLS;
// otherwise STARTTLS is required.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	SSL      bool
}

// Enabled reports whether enough is set to send mail.
func (o Options) Enabled() bool {
	return o.Host != "" && o.Username != "" && o.Password != ""
}

// New returns an SMTP sender, or a logging no-op when SMTP is not configured.
func New(cfg Options) (Sender, error) {
	if !cfg.Enabled() {
		log.Printf("mailer: SMTP not configured (SMTP_HOST, SMTP_USER, SMTP_PASS); reset mail disabled")
		return Noop{}, nil
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	}
	if cfg.SSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTP{from: cfg.From, send: client.DialAndSendWithContext}, nil
}

// SMTP sends mail through a go-mail client.
type SMTP struct {
	from string
	send func(ctx context.Context, msgs ...*mail.Msg) error
}

// SendPasswordReset mails the reset link valid for one hour.
func (s *SMTP) SendPasswordReset(ctx context.Context, to, resetLink string) error {
	msg, err := resetMessage(s.from, to, resetLink)
	if err != nil {
		return err
	}
	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

func resetMessage(from, to, resetLink string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	m.Subject(resetSubject)
	m.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"You requested a password reset. Open this link to set a new password (valid for 1 hour):\n\n%s\n\nIf you did not request this, ignore this email.",
		resetLink,
	))
	m.AddAlternativeString(mail.TypeTextHTML, fmt.Sprintf(
		`<p>You requested a password reset.</p><p><a href="%s">Reset your password</a> (valid for 1 hour).</p><p>If you did not request this, ignore this email.</p>`,
		resetLink,
	))
	return m, nil
}

// Noop drops mail; used when SMTP is not configured.
type Noop struct{}

// SendPasswordReset logs that nothing was sent.
func (Noop) SendPasswordReset(_ context.Context, to, _ string) error {
	log.Printf("mailer: skipping password reset mail to %s", to)
	return nil
}
