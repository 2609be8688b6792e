package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/target/lms-gateway/internal/domain/access"
)

// GateEvaluator runs the access decision for one navigation.
type GateEvaluator interface {
	Evaluate(ctx context.Context, path, token string) access.Outcome
}

// GateOptions configures the Gate middleware.
type GateOptions struct {
	Gate GateEvaluator
	// Matcher limits the gate to these paths; others pass straight through.
	// An empty matcher gates every path.
	Matcher []access.Pattern
	Cookies CookieSettings
	Logger  *slog.Logger
}

// Gate returns a middleware that enforces the access decision on matched paths.
// Redirects are 303 with no body from the downstream handler. Allowed requests
// carry the resolved identity in their context.
func Gate(opts GateOptions) func(http.Handler) http.Handler {
	cookies := opts.Cookies.withDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !matchesAny(opts.Matcher, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			out := opts.Gate.Evaluate(r.Context(), r.URL.Path, cookies.token(r))
			if writesProfile(out) {
				if err := cookies.setProfile(w, r, *out.Identity); err != nil {
					logger.WarnContext(r.Context(), "profile cookie not written", "error", err)
				}
			} else if clearsProfile(out, r, cookies.ProfileName) {
				cookies.clear(w, r, cookies.ProfileName, false)
			}

			if out.Decision != access.DecisionAllow {
				w.Header().Set("Cache-Control", "no-store")
				http.Redirect(w, r, out.RedirectTo, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(SetIdentityInContext(r.Context(), out.Identity)))
		})
	}
}

// writesProfile reports whether the outcome refreshes the profile cookie: on
// allow, and on the bounce home from a guest-only page.
func writesProfile(out access.Outcome) bool {
	if out.Identity == nil {
		return false
	}
	switch out.Decision {
	case access.DecisionAllow:
		return true
	case access.DecisionRedirectHome:
		return out.Class == access.ClassGuestOnly
	}
	return false
}

// clearsProfile reports whether an anonymous allow must expire a profile
// cookie left over from an expired or revoked credential.
func clearsProfile(out access.Outcome, r *http.Request, name string) bool {
	if out.Decision != access.DecisionAllow || out.Identity != nil {
		return false
	}
	_, err := r.Cookie(name)
	return err == nil
}

func matchesAny(patterns []access.Pattern, path string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if p.Match(path) {
			return true
		}
	}
	return false
}
