// Package mail provides the outbound transports used to deliver convocation
// notices: direct SMTP and an HTTP relay.
package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	gomail "gopkg.in/gomail.v2"

	"github.com/example/governance-console/internal/notify"
)

// SMTPConfig carries the server settings for direct delivery.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers notices over SMTP. One dial per message keeps the
// implementation simple; dispatch volume is a board roster, not a campaign.
type SMTPMailer struct {
	config SMTPConfig
	dialer *gomail.Dialer
	logger *slog.Logger
}

// NewSMTPMailer builds a mailer for the given server settings.
func NewSMTPMailer(config SMTPConfig, logger *slog.Logger) (*SMTPMailer, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("mail: smtp host is required")
	}
	if config.From == "" {
		return nil, fmt.Errorf("mail: sender address is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPMailer{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		logger: logger,
	}, nil
}

// Send delivers one message, honoring context cancellation before the dial.
func (m *SMTPMailer) Send(ctx context.Context, msg notify.Message) error {
	if m == nil {
		return fmt.Errorf("mail: smtp mailer is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return fmt.Errorf("mail: recipient is required")
	}

	out := gomail.NewMessage()
	out.SetHeader("From", m.config.From)
	out.SetHeader("To", msg.To)
	out.SetHeader("Subject", msg.Subject)
	out.SetBody("text/plain", msg.Body)

	if msg.Attachment.Name != "" && msg.Attachment.Base64 != "" {
		raw, err := base64.StdEncoding.DecodeString(msg.Attachment.Base64)
		if err != nil {
			return fmt.Errorf("mail: attachment decode failed: %w", err)
		}
		out.Attach(msg.Attachment.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, werr := w.Write(raw)
			return werr
		}))
	}

	if err := m.dialer.DialAndSend(out); err != nil {
		return fmt.Errorf("mail: delivery to %s failed: %w", msg.To, err)
	}
	m.logger.DebugContext(ctx, "smtp message delivered", "recipient", msg.To)
	return nil
}
