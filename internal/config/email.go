package config

import "fmt"

const (
	EmailProviderNone    = "none"
	EmailProviderEmailJS = "emailjs"
	EmailProviderResend  = "resend"
	EmailProviderSMTP    = "smtp"
)

// EmailConfig selects and configures the provider used for contact
// notifications. Provider-specific settings are checked by the email
// package, so a half-configured provider reports itself as unconfigured
// rather than failing startup.
type EmailConfig struct {
	Provider  string `koanf:"provider" validate:"required"`
	FromName  string `koanf:"from_name"`
	FromEmail string `koanf:"from_email"`
	ToName    string `koanf:"to_name"`
	ToEmail   string `koanf:"to_email"`
	// Async hands notifications to the background worker instead of sending
	// them inside the request.
	Async bool `koanf:"async"`
	// Timeout bounds one send, in seconds.
	Timeout int `koanf:"timeout" validate:"min=1"`

	EmailJS EmailJSConfig `koanf:"emailjs"`
	Resend  ResendConfig  `koanf:"resend"`
	SMTP    SMTPConfig    `koanf:"smtp"`
}

type EmailJSConfig struct {
	ServiceID  string `koanf:"service_id"`
	TemplateID string `koanf:"template_id"`
	PublicKey  string `koanf:"public_key"`
	PrivateKey string `koanf:"private_key"`
	Endpoint   string `koanf:"endpoint"`
}

type ResendConfig struct {
	APIKey string `koanf:"api_key"`
}

type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// DefaultEmailConfig returns the EmailJS provider with no credentials.
func DefaultEmailConfig() EmailConfig {
	return EmailConfig{
		Provider: EmailProviderEmailJS,
		FromName: "Portfolio API",
		ToName:   "Portfolio Owner",
		Timeout:  10,
		EmailJS: EmailJSConfig{
			Endpoint: "https://api.emailjs.com/api/v1.0/email/send",
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
	}
}

// Validate checks the provider name only.
func (c EmailConfig) Validate() error {
	switch c.Provider {
	case EmailProviderNone, EmailProviderEmailJS, EmailProviderResend, EmailProviderSMTP:
		return nil
	default:
		return fmt.Errorf("invalid email provider: %s (must be one of: none, emailjs, resend, smtp)", c.Provider)
	}
}
