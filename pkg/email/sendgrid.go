package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/courtside-app/courtside-backend/pkg/config"
	"github.com/courtside-app/courtside-backend/pkg/logger"
)

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SendgridSender sends through the SendGrid v3 API.
type SendgridSender struct {
	client *sendgrid.Client
	from   string
	logg   *logger.Logger
}

// NewSender builds a SendGrid-backed sender, or a no-op sender when no API
// key is configured so local environments run without credentials.
func NewSender(cfg config.SendgridConfig, logg *logger.Logger) Sender {
	if cfg.APIKey == "" {
		return noopSender{logg: logg}
	}
	return &SendgridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   cfg.DefaultFrom,
		logg:   logg,
	}
}

func (s *SendgridSender) Send(ctx context.Context, to, subject, body string) error {
	message := mail.NewSingleEmail(
		mail.NewEmail("", s.from),
		subject,
		mail.NewEmail("", to),
		body,
		body,
	)
	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

type noopSender struct {
	logg *logger.Logger
}

func (n noopSender) Send(ctx context.Context, to, subject, body string) error {
	if n.logg != nil {
		logCtx := n.logg.WithFields(ctx, map[string]any{"to": to, "subject": subject})
		n.logg.Info(logCtx, "email delivery skipped, no sendgrid key configured")
	}
	return nil
}
