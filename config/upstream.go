package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// UpstreamConfig points the gateway at the LMS backend and the UI origin.
type UpstreamConfig struct {
	// BackendURL is the LMS REST API origin that serves /users/me and /auth/*.
	BackendURL string `env:"BACKEND_URL" envDefault:"http://localhost:8081"`

	// UIOriginURL serves page content after the gate allows a navigation.
	// Empty means the gateway answers unknown pages with 404.
	UIOriginURL string `env:"UI_ORIGIN_URL"`

	// BackendTimeout bounds each identity and auth call.
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"5s"`
}

// Sanitize trims URLs and clamps the timeout.
func (u *UpstreamConfig) Sanitize() {
	u.BackendURL = strings.TrimRight(strings.TrimSpace(u.BackendURL), "/")
	u.UIOriginURL = strings.TrimRight(strings.TrimSpace(u.UIOriginURL), "/")
	if u.BackendTimeout <= 0 {
		u.BackendTimeout = 5 * time.Second
	}
}

// Validate requires absolute URLs.
func (u *UpstreamConfig) Validate() error {
	if err := absoluteURL("BACKEND_URL", u.BackendURL, true); err != nil {
		return err
	}
	return absoluteURL("UI_ORIGIN_URL", u.UIOriginURL, false)
}

func absoluteURL(name, raw string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" || parsed.Host == "" {
		return fmt.Errorf("%s: %q must be an absolute http(s) URL", name, raw)
	}
	return nil
}
