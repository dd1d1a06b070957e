// internal/workers/recruitment/send-decision-email/config.go
package senddecisionemail

import (
	"time"

	"hris-cloud/internal/common/config"
)

type Config struct {
	Provider      string // "ses", "resend" or "log"
	FromEmail     string
	FromName      string
	ResendAPIKey  string
	ResendBaseURL string
	AWSRegion     string
	Timeout       time.Duration
}

func LoadConfig(cfg config.NotificationConfig) *Config {
	c := &Config{
		Provider:      cfg.Email.Provider,
		FromEmail:     cfg.Email.FromEmail,
		FromName:      "Acme HR",
		ResendAPIKey:  cfg.Email.ResendAPIKey,
		ResendBaseURL: cfg.Email.ResendBaseURL,
		AWSRegion:     cfg.AWS.Region,
		Timeout:       config.GetDuration(cfg.Email.Timeout),
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// Sender renders the From header, e.g. "Acme HR <onboarding@resend.dev>".
func (c *Config) Sender() string {
	if c.FromName == "" {
		return c.FromEmail
	}
	return c.FromName + " <" + c.FromEmail + ">"
}
