package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - gate.go: Access gate route table and cookie names
//   - upstream.go: Backend and UI origin configuration
//   - devbackend.go: Dev identity backend and mail configuration
//   - database.go: Redis configuration
//   - http.go: HTTP server configuration
//   - services.go: Service modes
type AppConfig struct {
	// IsDev controls development mode behavior (verbose logging, insecure cookies).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Service mode configuration
	Services string `env:"SERVICES" envDefault:"gateway"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Access gate configuration
	Gate GateConfig `envPrefix:"GATE_"`

	// Upstream backend and UI origin
	Upstream UpstreamConfig

	// Dev identity backend configuration
	DevBackend DevBackendConfig `envPrefix:"DEV_BACKEND_"`

	// Redis configuration (dev backend store, admin CLI)
	Redis RedisConfig `envPrefix:"REDIS_"`

	// Outbound mail configuration
	Mail MailConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Gate.Sanitize()
	c.Upstream.Sanitize()
	c.DevBackend.Sanitize()
	c.Mail.Sanitize()
	c.Observability.Sanitize()

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// Validate reports configuration that cannot be started. Call after Sanitize.
func (c *AppConfig) Validate() error {
	services, err := c.GetEnabledServices()
	if err != nil {
		return err
	}

	var errs []error
	if err := c.HTTP.Validate(); err != nil {
		errs = append(errs, err)
	}
	if services[ServiceModeGateway] {
		if err := c.Gate.Validate(); err != nil {
			errs = append(errs, err)
		}
		if err := c.Upstream.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if services[ServiceModeDevBackend] {
		if err := c.DevBackend.Validate(c.IsDev); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// This is called by Sanitize() to ensure IsDev is set correctly.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsGatewayEnabled returns true if the gateway HTTP server is enabled.
func (c *AppConfig) IsGatewayEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeGateway]
}

// IsDevBackendEnabled returns true if the dev identity backend is enabled.
func (c *AppConfig) IsDevBackendEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeDevBackend]
}
