package config

import (
	"errors"
	"strings"
	"time"
)

// minJWTSecretLen matches the HS256 key size.
const minJWTSecretLen = 32

// DevBackendConfig configures the demo identity backend. All variables carry the
// DEV_BACKEND_ prefix.
type DevBackendConfig struct {
	Addr  string    `env:"ADDR"  envDefault:":8081"`
	Store StoreKind `env:"STORE" envDefault:"memory"`

	// JWTSecret signs access tokens. Dev mode generates an ephemeral secret when empty.
	JWTSecret string        `env:"JWT_SECRET"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"lms-dev-backend"`
	JWTTTL    time.Duration `env:"JWT_TTL"    envDefault:"15m"`

	// PublicURL is the browser-facing origin used in verification and reset links.
	PublicURL string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	// Seed creates the admin, instructor and student demo accounts on startup.
	Seed         bool   `env:"SEED"          envDefault:"true"`
	SeedPassword string `env:"SEED_PASSWORD" envDefault:"password123"`
}

// Sanitize trims values and clamps durations.
func (d *DevBackendConfig) Sanitize() {
	d.Addr = strings.TrimSpace(d.Addr)
	d.JWTSecret = strings.TrimSpace(d.JWTSecret)
	d.JWTIssuer = orDefault(d.JWTIssuer, "lms-dev-backend")
	d.PublicURL = strings.TrimRight(strings.TrimSpace(d.PublicURL), "/")
	if d.JWTTTL <= 0 {
		d.JWTTTL = 15 * time.Minute
	}
	if d.Store == "" {
		d.Store = StoreMemory
	}
}

// Validate requires a signing secret outside dev mode.
func (d *DevBackendConfig) Validate(isDev bool) error {
	if d.Addr == "" {
		return errors.New("DEV_BACKEND_ADDR is required")
	}
	if d.JWTSecret == "" && isDev {
		return nil
	}
	if len(d.JWTSecret) < minJWTSecretLen {
		return errors.New("DEV_BACKEND_JWT_SECRET must be at least 32 bytes")
	}
	return nil
}

// MailConfig controls outbound mail from the dev backend. Without an API key
// mail is written to the log.
type MailConfig struct {
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	From           string `env:"MAIL_FROM"      envDefault:"noreply@lms.local"`
	FromName       string `env:"MAIL_FROM_NAME" envDefault:"LMS"`
}

// Sanitize trims values.
func (m *MailConfig) Sanitize() {
	m.SendGridAPIKey = strings.TrimSpace(m.SendGridAPIKey)
	m.From = strings.TrimSpace(m.From)
	m.FromName = strings.TrimSpace(m.FromName)
}

// UseSendGrid reports whether mail should go through SendGrid.
func (m *MailConfig) UseSendGrid() bool {
	return m.SendGridAPIKey != "" && m.From != ""
}
