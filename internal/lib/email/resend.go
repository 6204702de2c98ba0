package email

import (
	"context"
	"fmt"

	"github.com/deppfellow/portfolio-backend/internal/config"
	"github.com/resend/resend-go/v2"
)

type resendProvider struct {
	client *resend.Client
	apiKey string
	from   string
	to     string
}

func newResendProvider(cfg config.EmailConfig) *resendProvider {
	from := cfg.FromEmail
	if cfg.FromName != "" && cfg.FromEmail != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}
	return &resendProvider{
		client: resend.NewClient(cfg.Resend.APIKey),
		apiKey: cfg.Resend.APIKey,
		from:   from,
		to:     cfg.ToEmail,
	}
}

func (p *resendProvider) Name() string { return config.EmailProviderResend }

func (p *resendProvider) MissingKeys() []string {
	return missing(
		"api_key", p.apiKey,
		"from_email", p.from,
		"to_email", p.to,
	)
}

func (p *resendProvider) Send(ctx context.Context, msg ContactEmail) error {
	html, err := RenderHTML(TemplateContactNotification, msg)
	if err != nil {
		return err
	}
	text, err := RenderText(TemplateContactNotification, msg)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    p.from,
		To:      []string{p.to},
		ReplyTo: msg.Email,
		Subject: "Portfolio Contact: " + msg.Subject,
		Html:    html,
		Text:    text,
	}

	if _, err := p.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
