// Package access holds the route classification and decision table used by the access gate.
// It is pure: no I/O, no HTTP types.
package access

import (
	"fmt"
	"strings"

	domainauth "github.com/target/lms-gateway/internal/domain/auth"
)

// Class is the authorization level a path requires.
type Class string

const (
	// ClassPublic paths are reachable by anyone.
	ClassPublic Class = "public"
	// ClassGuestOnly paths (login, register) are public for anonymous callers
	// and bounce authenticated callers home.
	ClassGuestOnly Class = "guest-only"
	// ClassAuthenticated paths accept any authenticated role.
	ClassAuthenticated Class = "authenticated-general"
	// ClassInstructor paths accept INSTRUCTOR or ADMIN.
	ClassInstructor Class = "instructor-or-admin"
	// ClassAdmin paths accept ADMIN only.
	ClassAdmin Class = "admin-only"
)

// Protected reports whether the class requires an authenticated caller.
func (c Class) Protected() bool {
	switch c {
	case ClassAuthenticated, ClassInstructor, ClassAdmin:
		return true
	}
	return false
}

// Decision is the terminal navigation outcome for one request.
type Decision string

const (
	DecisionAllow         Decision = "allow"
	DecisionRedirectLogin Decision = "redirect_login"
	DecisionRedirectHome  Decision = "redirect_home"
)

// State returns the terminal state matching d.
func (d Decision) State() State {
	switch d {
	case DecisionRedirectLogin:
		return StateRedirectLogin
	case DecisionRedirectHome:
		return StateRedirectHome
	default:
		return StateAllow
	}
}

// Reason explains a decision. Anonymous reasons double as the error taxonomy
// for identity resolution.
type Reason string

const (
	ReasonNoCredential         Reason = "no_credential"
	ReasonInvalidCredential    Reason = "invalid_credential"
	ReasonUpstreamUnavailable  Reason = "upstream_unavailable"
	ReasonInsufficientRole     Reason = "insufficient_role"
	ReasonAlreadyAuthenticated Reason = "already_authenticated"
	ReasonAuthorized           Reason = "authorized"
)

// State is a step of the per-request gate state machine.
type State string

const (
	StateStart               State = "START"
	StateCredentialCheck     State = "CREDENTIAL_CHECK"
	StateIdentityResolution  State = "IDENTITY_RESOLUTION"
	StateRouteClassification State = "ROUTE_CLASSIFICATION"
	StateAllow               State = "ALLOW"
	StateRedirectLogin       State = "REDIRECT_LOGIN"
	StateRedirectHome        State = "REDIRECT_HOME"
)

// Decide applies the decision table. id is nil for anonymous callers, in which
// case anon is reported as the reason.
func Decide(class Class, id *domainauth.Identity, anon Reason) (Decision, Reason) {
	if id == nil {
		if class.Protected() {
			return DecisionRedirectLogin, anon
		}
		return DecisionAllow, anon
	}

	switch class {
	case ClassGuestOnly:
		return DecisionRedirectHome, ReasonAlreadyAuthenticated
	case ClassAdmin:
		if !id.IsAdmin() {
			return DecisionRedirectHome, ReasonInsufficientRole
		}
	case ClassInstructor:
		if !id.CanInstruct() {
			return DecisionRedirectHome, ReasonInsufficientRole
		}
	}
	return DecisionAllow, ReasonAuthorized
}

// Outcome is the full result of evaluating one request.
type Outcome struct {
	Decision   Decision
	Class      Class
	Reason     Reason
	RedirectTo string
	// Identity is set whenever the credential resolved, including redirects
	// caused by role checks.
	Identity *domainauth.Identity
	Trail    []State
}

// Authenticated reports whether a credential resolved to an identity.
func (o Outcome) Authenticated() bool { return o.Identity != nil }

// Pattern is a path matcher. Exact patterns match one path; prefix patterns
// match the base path and anything below it at a segment boundary.
type Pattern struct {
	Path   string
	Prefix bool
}

const wildcardSuffix = "/:path*"

// ParsePattern parses "/x" (exact) or "/x/:path*" (prefix).
func ParsePattern(s string) (Pattern, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "/") {
		return Pattern{}, fmt.Errorf("pattern %q must start with /", s)
	}
	if base, ok := strings.CutSuffix(s, wildcardSuffix); ok {
		if base == "" {
			base = "/"
		}
		return Pattern{Path: base, Prefix: true}, nil
	}
	if strings.Contains(s, ":") || strings.Contains(s, "*") {
		return Pattern{}, fmt.Errorf("pattern %q: only a trailing %s wildcard is supported", s, wildcardSuffix)
	}
	if len(s) > 1 {
		s = strings.TrimSuffix(s, "/")
	}
	return Pattern{Path: s}, nil
}

// ParsePatterns parses a list of patterns, failing on the first invalid entry.
func ParsePatterns(in []string) ([]Pattern, error) {
	out := make([]Pattern, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) == "" {
			continue
		}
		p, err := ParsePattern(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Match reports whether path is covered by p.
func (p Pattern) Match(path string) bool {
	if !p.Prefix {
		return path == p.Path || (len(path) > 1 && strings.TrimSuffix(path, "/") == p.Path)
	}
	if p.Path == "/" {
		return true
	}
	return path == p.Path || strings.HasPrefix(path, p.Path+"/")
}

// String renders p in the same syntax ParsePattern accepts.
func (p Pattern) String() string {
	if !p.Prefix {
		return p.Path
	}
	if p.Path == "/" {
		return wildcardSuffix
	}
	return p.Path + wildcardSuffix
}
