// Package config loads console settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime setting. Values come from CONSOLE_* environment
// variables.
type Config struct {
	HTTPAddr        string        `split_words:"true" default:":8080"`
	DatabaseDSN     string        `split_words:"true" default:"file:console.db"`
	SessionTTL      time.Duration `split_words:"true" default:"24h"`
	BaseURL         string        `split_words:"true" default:"http://localhost:8080"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	MailFrom     string `split_words:"true" default:"no-reply@example.com"`

	// MailRelayURL, when set, routes notices through the HTTP relay instead
	// of SMTP.
	MailRelayURL string `envconfig:"MAIL_RELAY_URL"`

	// BoardRosterPath points at a JSON roster file seeded into the member
	// directory on startup. Empty leaves the stored roster untouched.
	BoardRosterPath string `envconfig:"BOARD_ROSTER"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("console", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("config: session TTL must be positive")
	}
	return cfg, nil
}

// UseRelay reports whether outbound mail goes through the HTTP relay.
func (c Config) UseRelay() bool {
	return c.MailRelayURL != ""
}

// UseSMTP reports whether direct SMTP delivery is configured.
func (c Config) UseSMTP() bool {
	return !c.UseRelay() && c.SMTPHost != ""
}
