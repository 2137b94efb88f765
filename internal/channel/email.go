package channel

import (
	"context"
	"strings"

	"github.com/serhatipek/choreline/internal/domain"
	"gopkg.in/gomail.v2"
)

// EmailConfig carries SMTP settings for the email transport.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailAdapter delivers notifications over SMTP.
type EmailAdapter struct {
	dialer mailDialer
	cfg    EmailConfig
}

func NewEmailAdapter(cfg EmailConfig) *EmailAdapter {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.From = strings.TrimSpace(cfg.From)
	if cfg.Port <= 0 {
		cfg.Port = 587
	}

	var dialer mailDialer
	if cfg.Host != "" {
		dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}

	return &EmailAdapter{dialer: dialer, cfg: cfg}
}

func (a *EmailAdapter) Channel() domain.Channel { return domain.ChannelEmail }

func (a *EmailAdapter) IsConfigured() bool {
	return a != nil && a.dialer != nil && a.cfg.Host != "" && a.cfg.From != ""
}

func (a *EmailAdapter) Send(ctx context.Context, to string, msg Message) (*SendResponse, error) {
	if !a.IsConfigured() {
		return nil, &ProviderError{Message: "email adapter is not configured"}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ProviderError{Message: "email send aborted", Cause: err}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", a.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	// SMTP rejections and connect failures are treated as transient; the
	// permanent cases (bad address) come back in the same error form and are
	// indistinguishable here, so fallback handles both.
	if err := a.dialer.DialAndSend(m); err != nil {
		return nil, &ProviderError{
			Message:   "smtp send failed",
			Transient: true,
			Cause:     err,
		}
	}

	return &SendResponse{}, nil
}
