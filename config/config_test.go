package config

import (
	"reflect"
	"strings"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service - gateway",
			input:    "gateway",
			expected: map[ServiceMode]bool{ServiceModeGateway: true},
		},
		{
			name:     "single service - dev-backend",
			input:    "dev-backend",
			expected: map[ServiceMode]bool{ServiceModeDevBackend: true},
		},
		{
			name:  "both services with spaces",
			input: " gateway , dev-backend ",
			expected: map[ServiceMode]bool{
				ServiceModeGateway:    true,
				ServiceModeDevBackend: true,
			},
		},
		{
			name:     "duplicate services",
			input:    "gateway,gateway",
			expected: map[ServiceMode]bool{ServiceModeGateway: true},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "only commas",
			input:       " , ,",
			expectError: true,
		},
		{
			name:        "invalid service",
			input:       "gateway,scheduler",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestParseServices_ErrorListsValidOptions(t *testing.T) {
	_, err := ParseServices("http")
	if err == nil || !strings.Contains(err.Error(), "valid options: gateway, dev-backend") {
		t.Fatalf("expected valid options in error, got %v", err)
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	cfg := AppConfig{Services: "gateway,dev-backend"}
	if !cfg.IsGatewayEnabled() || !cfg.IsDevBackendEnabled() {
		t.Fatalf("expected both services enabled")
	}

	cfg.Services = "gateway"
	if !cfg.IsGatewayEnabled() || cfg.IsDevBackendEnabled() {
		t.Fatalf("expected only gateway enabled")
	}

	cfg.Services = "invalid"
	if cfg.IsGatewayEnabled() || cfg.IsDevBackendEnabled() {
		t.Fatalf("invalid configuration must not enable services")
	}
}

func TestValidServiceModes(t *testing.T) {
	modes := ValidServiceModes()
	if len(modes) != 2 {
		t.Fatalf("expected 2 modes, got %d", len(modes))
	}
	for _, m := range modes {
		if _, err := ParseServices(string(m)); err != nil {
			t.Errorf("mode %q should parse: %v", m, err)
		}
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("NODE_ENV", "")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Services != "gateway" {
		t.Errorf("Services = %q", cfg.Services)
	}
	wantMatcher := []string{"/", "/admin/:path*", "/instructor/:path*", "/subject/:path*", "/profile/:path*", "/login", "/register"}
	if !reflect.DeepEqual(cfg.Gate.Matcher, wantMatcher) {
		t.Errorf("Gate.Matcher = %v", cfg.Gate.Matcher)
	}
	if cfg.Gate.TokenCookie != "access_token" || cfg.Gate.ProfileCookie != "user_profile" {
		t.Errorf("unexpected cookie names: %q %q", cfg.Gate.TokenCookie, cfg.Gate.ProfileCookie)
	}
	if cfg.Upstream.BackendTimeout != 5*time.Second {
		t.Errorf("BackendTimeout = %v", cfg.Upstream.BackendTimeout)
	}
	if cfg.HTTP.RememberMe != 30*24*time.Hour {
		t.Errorf("RememberMe = %v", cfg.HTTP.RememberMe)
	}
	if cfg.DevBackend.Store != StoreMemory || cfg.DevBackend.Addr != ":8081" {
		t.Errorf("unexpected dev backend defaults: %+v", cfg.DevBackend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default gateway config should validate: %v", err)
	}
}

func TestAppConfig_ParseEnv(t *testing.T) {
	t.Setenv("SERVICES", "gateway,dev-backend")
	t.Setenv("BACKEND_URL", "https://api.lms.example.com/")
	t.Setenv("UI_ORIGIN_URL", "http://ui:3000")
	t.Setenv("GATE_ADMIN_PATHS", "/admin/:path*,/ops/:path*")
	t.Setenv("GATE_LOGIN_PATH", "/signin")
	t.Setenv("DEV_BACKEND_STORE", "Redis")
	t.Setenv("DEV_BACKEND_JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("REDIS_URI", "redis:6379")
	t.Setenv("APP_COOKIE_DOMAIN", ".LMS.example.com")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Upstream.BackendURL != "https://api.lms.example.com" {
		t.Errorf("BackendURL = %q", cfg.Upstream.BackendURL)
	}
	if !reflect.DeepEqual(cfg.Gate.AdminPaths, []string{"/admin/:path*", "/ops/:path*"}) {
		t.Errorf("AdminPaths = %v", cfg.Gate.AdminPaths)
	}
	if cfg.Gate.LoginPath != "/signin" {
		t.Errorf("LoginPath = %q", cfg.Gate.LoginPath)
	}
	if cfg.DevBackend.Store != StoreRedis {
		t.Errorf("Store = %q", cfg.DevBackend.Store)
	}
	if cfg.Redis.URI != "redis:6379" || cfg.Redis.KeyPrefix != "lms:" {
		t.Errorf("unexpected redis config: %+v", cfg.Redis)
	}
	if cfg.HTTP.CookieDomain != "lms.example.com" {
		t.Errorf("CookieDomain = %q", cfg.HTTP.CookieDomain)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestStoreKind_UnmarshalText(t *testing.T) {
	var s StoreKind
	if err := s.UnmarshalText([]byte("postgres")); err == nil {
		t.Fatalf("expected error for unknown store")
	}
	if err := s.UnmarshalText([]byte(" MEMORY ")); err != nil || s != StoreMemory {
		t.Fatalf("got %q, %v", s, err)
	}
}

func TestValidateCookieDomain(t *testing.T) {
	tests := []struct {
		domain  string
		wantErr bool
	}{
		{"lms.example.com", false},
		{"example.co.uk", false},
		{".example.com", false},
		{"co.uk", true},
		{"com", true},
		{"example.com:8080", true},
		{"https://example.com", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			err := ValidateCookieDomain(tt.domain)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCookieDomain(%q) error = %v, wantErr %v", tt.domain, err, tt.wantErr)
			}
		})
	}
}

func TestAppConfig_ValidateAggregates(t *testing.T) {
	cfg := AppConfig{
		Services:   "gateway,dev-backend",
		HTTP:       HTTPConfig{CookieDomain: "co.uk"},
		Upstream:   UpstreamConfig{BackendURL: "not a url"},
		DevBackend: DevBackendConfig{Addr: ":8081", JWTSecret: "short"},
	}
	cfg.Gate.Sanitize()
	cfg.Gate.Matcher = []string{"/ok", "no-slash"}

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"APP_COOKIE_DOMAIN", "GATE_MATCHER", "BACKEND_URL", "DEV_BACKEND_JWT_SECRET"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %s", err, want)
		}
	}
}

func TestDevBackendConfig_ValidateDevMode(t *testing.T) {
	d := DevBackendConfig{Addr: ":8081"}
	if err := d.Validate(true); err != nil {
		t.Errorf("dev mode allows an empty secret: %v", err)
	}
	if err := d.Validate(false); err == nil {
		t.Errorf("production requires a secret")
	}
}

func TestDetectDevMode(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	cfg := AppConfig{}
	cfg.Sanitize()
	if !cfg.IsDev {
		t.Fatalf("NODE_ENV=development should enable dev mode")
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "  "}
	cfg.Sanitize()
	if cfg.IsEnabled() {
		t.Fatalf("metrics should be disabled without an address")
	}
	if cfg.Prefix != defaultMetricsPrefix {
		t.Fatalf("Prefix = %q", cfg.Prefix)
	}

	cfg = ObservabilityMetricsConfig{Enabled: true, StatsdAddress: " 127.0.0.1:8125 "}
	cfg.Sanitize()
	if !cfg.IsEnabled() || cfg.StatsdAddress != "127.0.0.1:8125" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
