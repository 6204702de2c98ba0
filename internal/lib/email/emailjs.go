package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/deppfellow/portfolio-backend/internal/config"
	"github.com/pkg/errors"
)

const userAgent = "Portfolio-Backend/1.0"

type emailJSPayload struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken"`
	TemplateParams map[string]string `json:"template_params"`
}

// emailJSProvider posts to the EmailJS REST API. The template itself lives
// in the EmailJS dashboard.
type emailJSProvider struct {
	cfg    config.EmailJSConfig
	toName string
	http   *http.Client
}

func newEmailJSProvider(cfg config.EmailConfig, httpClient *http.Client) *emailJSProvider {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	toName := cfg.ToName
	if toName == "" {
		toName = "Portfolio Owner"
	}
	return &emailJSProvider{cfg: cfg.EmailJS, toName: toName, http: httpClient}
}

func (p *emailJSProvider) Name() string { return config.EmailProviderEmailJS }

func (p *emailJSProvider) MissingKeys() []string {
	return missing(
		"service_id", p.cfg.ServiceID,
		"template_id", p.cfg.TemplateID,
		"public_key", p.cfg.PublicKey,
		"private_key", p.cfg.PrivateKey,
	)
}

func (p *emailJSProvider) Send(ctx context.Context, msg ContactEmail) error {
	payload, err := json.Marshal(emailJSPayload{
		ServiceID:   p.cfg.ServiceID,
		TemplateID:  p.cfg.TemplateID,
		UserID:      p.cfg.PublicKey,
		AccessToken: p.cfg.PrivateKey,
		TemplateParams: map[string]string{
			"from_name":  msg.Name,
			"from_email": msg.Email,
			"subject":    msg.Subject,
			"message":    msg.Message,
			"to_name":    p.toName,
			"reply_to":   msg.Email,
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode emailjs payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to build emailjs request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "emailjs request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("emailjs returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
