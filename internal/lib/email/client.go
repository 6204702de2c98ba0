// Package email sends contact form notifications.
//
// Three providers are supported: EmailJS (HTTP API), Resend and plain SMTP.
// A provider with missing settings reports itself as unconfigured; sending
// through it fails with ErrNotConfigured.
package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var ErrNotConfigured = errors.New("email provider is not configured")

// ContactEmail is the notification for one contact form submission.
type ContactEmail struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	IPAddress string    `json:"ip_address"`
	SentAt    time.Time `json:"sent_at"`
}

// Provider delivers notifications through one transport.
type Provider interface {
	Name() string
	// MissingKeys lists the settings that still need a value.
	MissingKeys() []string
	Send(ctx context.Context, msg ContactEmail) error
}

// TestResult is the outcome of TestConfiguration.
type TestResult struct {
	Provider       string `json:"provider"`
	Configured     bool   `json:"configured"`
	TestSuccessful bool   `json:"test_successful"`
	Message        string `json:"message"`
}

type Client struct {
	provider Provider
	timeout  time.Duration
	logger   *zerolog.Logger
}

// NewClient builds the client of the configured provider.
func NewClient(cfg config.EmailConfig, logger *zerolog.Logger) (*Client, error) {
	var provider Provider
	switch cfg.Provider {
	case config.EmailProviderEmailJS:
		provider = newEmailJSProvider(cfg, nil)
	case config.EmailProviderResend:
		provider = newResendProvider(cfg)
	case config.EmailProviderSMTP:
		provider = newSMTPProvider(cfg)
	case config.EmailProviderNone, "":
		provider = noneProvider{}
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", cfg.Provider)
	}

	return NewClientWithProvider(provider, time.Duration(cfg.Timeout)*time.Second, logger), nil
}

// NewClientWithProvider wraps an arbitrary provider.
func NewClientWithProvider(provider Provider, timeout time.Duration, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

func (c *Client) Provider() string {
	return c.provider.Name()
}

func (c *Client) MissingKeys() []string {
	return c.provider.MissingKeys()
}

func (c *Client) IsConfigured() bool {
	return len(c.provider.MissingKeys()) == 0
}

// SendContactEmail delivers msg, bounded by the configured timeout.
func (c *Client) SendContactEmail(ctx context.Context, msg ContactEmail) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.provider.Send(ctx, msg); err != nil {
		c.logger.Error().
			Err(err).
			Str("provider", c.provider.Name()).
			Str("from_email", msg.Email).
			Msg("failed to send contact email")
		return errors.Wrapf(err, "failed to send email via %s", c.provider.Name())
	}

	c.logger.Info().
		Str("provider", c.provider.Name()).
		Str("from_email", msg.Email).
		Msg("contact email sent")
	return nil
}

// TestConfiguration checks the settings and sends a sample notification.
func (c *Client) TestConfiguration(ctx context.Context) TestResult {
	result := TestResult{Provider: c.provider.Name()}

	if missing := c.MissingKeys(); len(missing) > 0 {
		result.Message = "Missing configuration: " + strings.Join(missing, ", ")
		return result
	}
	result.Configured = true

	err := c.SendContactEmail(ctx, ContactEmail{
		Name:      "Test User",
		Email:     "test@example.com",
		Subject:   "Email Configuration Test",
		Message:   "This is a test email to verify the email configuration is working properly.",
		IPAddress: "127.0.0.1",
	})
	if err != nil {
		result.Message = "Email configuration test failed - check logs for details"
		return result
	}

	result.TestSuccessful = true
	result.Message = "Email configuration test successful"
	return result
}

type noneProvider struct{}

func (noneProvider) Name() string { return config.EmailProviderNone }

func (noneProvider) MissingKeys() []string { return []string{"provider"} }

func (noneProvider) Send(context.Context, ContactEmail) error { return ErrNotConfigured }

// missing returns the names whose value is empty, in order.
func missing(pairs ...string) []string {
	var out []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			out = append(out, pairs[i])
		}
	}
	return out
}
