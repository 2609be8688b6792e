package config

import (
	"fmt"
	"strings"

	"github.com/target/lms-gateway/internal/domain/access"
)

// GateConfig controls which paths the access gate runs on and how it classifies them.
// All variables carry the GATE_ prefix.
type GateConfig struct {
	// Matcher lists the paths the gate runs on. "/x/:path*" matches "/x" and
	// everything below it; other entries match exactly.
	Matcher []string `env:"MATCHER" envDefault:"/,/admin/:path*,/instructor/:path*,/subject/:path*,/profile/:path*,/login,/register"`

	AdminPaths         []string `env:"ADMIN_PATHS"         envDefault:"/admin/:path*"`
	InstructorPaths    []string `env:"INSTRUCTOR_PATHS"    envDefault:"/instructor/:path*"`
	AuthenticatedPaths []string `env:"AUTHENTICATED_PATHS" envDefault:"/,/subject/:path*,/profile/:path*"`
	GuestOnlyPaths     []string `env:"GUEST_ONLY_PATHS"    envDefault:"/login,/register"`

	LoginPath string `env:"LOGIN_PATH" envDefault:"/login"`
	HomePath  string `env:"HOME_PATH"  envDefault:"/"`

	TokenCookie   string `env:"TOKEN_COOKIE"   envDefault:"access_token"`
	RefreshCookie string `env:"REFRESH_COOKIE" envDefault:"refresh_token"`
	ProfileCookie string `env:"PROFILE_COOKIE" envDefault:"user_profile"`
}

// Sanitize trims entries and restores defaults for blank values.
func (g *GateConfig) Sanitize() {
	g.Matcher = trimList(g.Matcher)
	g.AdminPaths = trimList(g.AdminPaths)
	g.InstructorPaths = trimList(g.InstructorPaths)
	g.AuthenticatedPaths = trimList(g.AuthenticatedPaths)
	g.GuestOnlyPaths = trimList(g.GuestOnlyPaths)

	g.LoginPath = orDefault(g.LoginPath, "/login")
	g.HomePath = orDefault(g.HomePath, "/")
	g.TokenCookie = orDefault(g.TokenCookie, "access_token")
	g.RefreshCookie = orDefault(g.RefreshCookie, "refresh_token")
	g.ProfileCookie = orDefault(g.ProfileCookie, "user_profile")
}

// RuleSet converts the configured path lists into a classifier rule set.
func (g *GateConfig) RuleSet() access.RuleSet {
	return access.RuleSet{
		Admin:         g.AdminPaths,
		Instructor:    g.InstructorPaths,
		Authenticated: g.AuthenticatedPaths,
		GuestOnly:     g.GuestOnlyPaths,
	}
}

// Validate parses every pattern so startup fails on a malformed route table.
func (g *GateConfig) Validate() error {
	if _, err := access.ParsePatterns(g.Matcher); err != nil {
		return fmt.Errorf("GATE_MATCHER: %w", err)
	}
	if _, err := access.NewClassifier(g.RuleSet()); err != nil {
		return fmt.Errorf("gate rules: %w", err)
	}
	if !strings.HasPrefix(g.LoginPath, "/") || !strings.HasPrefix(g.HomePath, "/") {
		return fmt.Errorf("gate redirect targets must be absolute paths (login=%q home=%q)", g.LoginPath, g.HomePath)
	}
	return nil
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
