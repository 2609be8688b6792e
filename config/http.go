package config

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the gateway HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieDomain is the domain for the credential and profile cookies.
	// Leave empty to use the request host.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// SecureCookies forces the Secure attribute even when the request arrived over plain HTTP.
	SecureCookies bool `env:"APP_SECURE_COOKIES" envDefault:"false"`

	// RememberMe is the credential cookie lifetime when the user asks to stay signed in.
	RememberMe time.Duration `env:"AUTH_REMEMBER_ME" envDefault:"720h"`

	// ShutdownTimeout bounds graceful shutdown of HTTP servers.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.Addr = strings.TrimSpace(h.Addr)
	h.CookieDomain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h.CookieDomain), "."))
	if h.RememberMe <= 0 {
		h.RememberMe = 30 * 24 * time.Hour
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}

// Validate rejects cookie domains browsers would refuse, such as "co.uk".
func (h *HTTPConfig) Validate() error {
	if h.CookieDomain == "" {
		return nil
	}
	return ValidateCookieDomain(h.CookieDomain)
}

// ValidateCookieDomain checks that domain is registrable (eTLD+1 or below).
func ValidateCookieDomain(domain string) error {
	d := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "."))
	if d == "" {
		return fmt.Errorf("APP_COOKIE_DOMAIN: empty domain")
	}
	if strings.ContainsAny(d, ":/ ") {
		return fmt.Errorf("APP_COOKIE_DOMAIN: %q must be a bare host name", domain)
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(d); err != nil {
		return fmt.Errorf("APP_COOKIE_DOMAIN: %q is a public suffix: %w", domain, err)
	}
	return nil
}
