package email

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/deppfellow/portfolio-backend/internal/config"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type smtpProvider struct {
	cfg      config.SMTPConfig
	from     string
	to       string
	sendMail sendMailFunc
}

func newSMTPProvider(cfg config.EmailConfig) *smtpProvider {
	return &smtpProvider{
		cfg:      cfg.SMTP,
		from:     cfg.FromEmail,
		to:       cfg.ToEmail,
		sendMail: smtp.SendMail,
	}
}

func (p *smtpProvider) Name() string { return config.EmailProviderSMTP }

func (p *smtpProvider) MissingKeys() []string {
	port := ""
	if p.cfg.Port > 0 {
		port = strconv.Itoa(p.cfg.Port)
	}
	return missing(
		"host", p.cfg.Host,
		"port", port,
		"username", p.cfg.Username,
		"password", p.cfg.Password,
		"from_email", p.from,
		"to_email", p.to,
	)
}

// Send delivers a plain text message. smtp.SendMail has no context, so ctx
// is only checked before dialing.
func (p *smtpProvider) Send(ctx context.Context, msg ContactEmail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := p.compose(msg)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(p.cfg.Host, strconv.Itoa(p.cfg.Port))
	auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	if err := p.sendMail(addr, auth, p.from, []string{p.to}, body); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

func (p *smtpProvider) compose(msg ContactEmail) ([]byte, error) {
	text, err := RenderText(TemplateContactNotification, msg)
	if err != nil {
		return nil, err
	}

	headers := []string{
		"From: " + p.from,
		"To: " + p.to,
		"Reply-To: " + sanitizeHeader(msg.Email),
		"Subject: Portfolio Contact: " + sanitizeHeader(msg.Subject),
		"X-Mailer: Portfolio-Backend/1.0",
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
	}

	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\n", "\r\n")), nil
}

// sanitizeHeader drops line breaks so user input cannot inject headers.
func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
