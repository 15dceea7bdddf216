package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	gomail "gopkg.in/gomail.v2"

	"github.com/lamnguyen/vestika-backend/pkg/config"
	"github.com/lamnguyen/vestika-backend/pkg/logger"
)

// Sender delivers transactional email. Services depend on this interface so
// tests can capture messages instead of dialing SMTP.
type Sender interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}

// SMTPMailer sends mail through a plain SMTP relay via gomail.
type SMTPMailer struct {
	dialer      *gomail.Dialer
	from        string
	frontendURL string
	logg        *logger.Logger
}

func New(cfg config.SMTPConfig, frontend config.FrontendConfig, logg *logger.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}

	return &SMTPMailer{
		dialer:      gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:        cfg.From,
		frontendURL: frontend.BaseURL,
		logg:        logg,
	}, nil
}

// SendPasswordReset emails a reset link pointing at the storefront frontend.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	link, err := m.resetLink(token)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Reset your password")
	msg.SetBody("text/html", fmt.Sprintf(`
		<p>We received a request to reset the password for your account.</p>
		<p><a href="%s">Reset your password</a></p>
		<p>This link expires in one hour. If you did not request a reset, you can ignore this email.</p>
	`, link))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending reset email: %w", err)
	}

	if m.logg != nil {
		m.logg.Info(m.logg.WithField(ctx, "recipient", to), "password reset email sent")
	}
	return nil
}

func (m *SMTPMailer) resetLink(token string) (string, error) {
	base, err := url.Parse(m.frontendURL)
	if err != nil {
		return "", fmt.Errorf("parsing frontend url: %w", err)
	}
	base.Path = "/reset-password"
	q := base.Query()
	q.Set("token", token)
	base.RawQuery = q.Encode()
	return base.String(), nil
}
