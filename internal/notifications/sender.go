package notifications

import (
	"context"
	"errors"
	"strings"

	"github.com/resend/resend-go/v3"

	"github.com/magisurprise/backend/pkg/config"
	"github.com/magisurprise/backend/pkg/logger"
)

// Email is one outbound transactional message.
type Email struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers an email and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, email Email) (string, error)
}

type emailsAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendSender delivers through the Resend HTTP API.
type ResendSender struct {
	emails emailsAPI
	from   string
}

// NewResendSender builds a sender from the email configuration.
func NewResendSender(cfg config.EmailConfig) (*ResendSender, error) {
	if !cfg.Enabled() {
		return nil, errors.New("resend api key is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("email from address is required")
	}
	client := resend.NewClient(cfg.ResendAPIKey)
	return &ResendSender{emails: client.Emails, from: cfg.From}, nil
}

func (s *ResendSender) Send(ctx context.Context, email Email) (string, error) {
	if len(email.To) == 0 {
		return "", ErrNoRecipients
	}
	resp, err := s.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	return resp.Id, nil
}

// LogSender only logs the message. Used when no Resend key is configured.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, email Email) (string, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"to":      strings.Join(email.To, ","),
		"subject": email.Subject,
	})
	s.logg.Info(ctx, "email delivery disabled, message logged only")
	return "", nil
}

// NewSender returns a Resend sender when configured and a LogSender otherwise.
func NewSender(cfg config.EmailConfig, logg *logger.Logger) (Sender, error) {
	if !cfg.Enabled() {
		return NewLogSender(logg), nil
	}
	return NewResendSender(cfg)
}
