package sender

import (
	"context"
	"crypto/tls"
	"fmt"

	"certalert/internal/entity"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const ProviderSMTP = "smtp"

type SMTPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	InsecureSkipVerify bool
}

// mailDialer is the part of gomail.Dialer the transport needs.
type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPTransport sends messages through an SMTP relay.
type SMTPTransport struct {
	dialer mailDialer
	log    *zap.Logger
}

func NewSMTPTransport(cfg SMTPConfig, log *zap.Logger) *SMTPTransport {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.InsecureSkipVerify {
		dialer.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for local relays
	}

	log.Info("smtp transport initialized",
		zap.String("smtp_host", cfg.Host),
		zap.Int("smtp_port", cfg.Port),
	)

	return &SMTPTransport{dialer: dialer, log: log}
}

func (s *SMTPTransport) Name() string { return ProviderSMTP }

// Send builds a multipart message. gomail has no context support, so the dial
// runs in a goroutine and ctx only bounds how long we wait for it.
func (s *SMTPTransport) Send(ctx context.Context, msg entity.Message) error {
	email := gomail.NewMessage()
	email.SetHeader("From", msg.From)
	email.SetHeader("To", msg.To...)
	email.SetHeader("Subject", msg.Subject)
	if msg.ReplyTo != "" {
		email.SetHeader("Reply-To", msg.ReplyTo)
	}
	email.SetHeader("X-Certalert-Reminder", msg.ReminderID.String())
	email.SetBody("text/plain", msg.TextBody)
	if msg.HTMLBody != "" {
		email.AddAlternative("text/html", msg.HTMLBody)
	}

	s.log.Debug("sending email",
		zap.Strings("to", msg.To),
		zap.String("reminder_id", msg.ReminderID.String()),
	)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(email)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: smtp: %w", entity.ErrTransport, err)
		}
	case <-ctx.Done():
		return fmt.Errorf("%w: smtp: %w", entity.ErrTransport, ctx.Err())
	}

	s.log.Info("email sent",
		zap.Int("recipients", len(msg.To)),
		zap.String("reminder_id", msg.ReminderID.String()),
	)
	return nil
}
