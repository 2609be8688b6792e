// Package mailer delivers the dev backend's verification and password-reset mail.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/target/lms-gateway/internal/ports"
)

const (
	defaultSendGridHost = "https://api.sendgrid.com"
	sendGridEndpoint    = "/v3/mail/send"
)

// LogMailer writes messages to the structured log instead of sending them.
type LogMailer struct {
	Logger *slog.Logger
}

var _ ports.Mailer = (*LogMailer)(nil)

func (m *LogMailer) Send(ctx context.Context, msg ports.Mail) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "outbound mail",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return nil
}

// SendGridConfig configures the SendGrid mailer.
type SendGridConfig struct {
	APIKey   string
	FromName string
	From     string
	// Host overrides the API origin; tests point it at httptest servers.
	Host string
}

// SendGridMailer sends plain-text mail through the SendGrid v3 API.
type SendGridMailer struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
}

var _ ports.Mailer = (*SendGridMailer)(nil)

// NewSendGridMailer validates cfg and returns a mailer.
func NewSendGridMailer(cfg SendGridConfig) (*SendGridMailer, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		return nil, errors.New("sendgrid sender address is required")
	}
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		host = defaultSendGridHost
	}

	m := &SendGridMailer{
		key:  key,
		host: host,
		from: sgmail.NewEmail(cfg.FromName, from),
	}
	if cfg.FromName != "" {
		m.subjPrefix = "[" + cfg.FromName + "] "
	}
	return m, nil
}

func (m *SendGridMailer) prepare(msg ports.Mail) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail("", msg.To))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(sgmail.NewContent("text/plain", msg.Text))
	return v3
}

func (m *SendGridMailer) Send(ctx context.Context, msg ports.Mail) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mail recipient is required")
	}

	req := sendgrid.GetRequest(m.key, sendGridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid %d: %s", res.StatusCode, strings.TrimSpace(res.Body))
	}
	return nil
}
