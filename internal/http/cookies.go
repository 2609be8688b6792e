package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/target/lms-gateway/internal/domain/auth"
)

// Default cookie names shared with the UI.
const (
	DefaultTokenCookie   = "access_token"
	DefaultRefreshCookie = "refresh_token"
	DefaultProfileCookie = "user_profile"
)

// CookieSettings carries the cookie names and attributes used by the gate,
// the auth handlers and the proxy.
type CookieSettings struct {
	Domain      string
	ForceSecure bool
	TokenName   string
	RefreshName string
	ProfileName string
}

func (c CookieSettings) withDefaults() CookieSettings {
	if c.TokenName == "" {
		c.TokenName = DefaultTokenCookie
	}
	if c.RefreshName == "" {
		c.RefreshName = DefaultRefreshCookie
	}
	if c.ProfileName == "" {
		c.ProfileName = DefaultProfileCookie
	}
	return c
}

func (c CookieSettings) isSecure(r *http.Request) bool {
	return c.ForceSecure || r.TLS != nil || isForwardedHTTPS(r)
}

// isForwardedHTTPS reports whether any proxy hop saw HTTPS. X-Forwarded-Proto
// may carry a comma-separated chain such as "https,http".
func isForwardedHTTPS(r *http.Request) bool {
	for _, proto := range strings.Split(r.Header.Get("X-Forwarded-Proto"), ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}

// token returns the credential cookie value, or "" when absent.
func (c CookieSettings) token(r *http.Request) string {
	ck, err := r.Cookie(c.TokenName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(ck.Value)
}

// setCredential writes an HttpOnly credential cookie. maxAge 0 makes it a session cookie.
func (c CookieSettings) setCredential(w http.ResponseWriter, r *http.Request, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.isSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

// setProfile writes the display-only identity cookie. It is readable by page
// scripts and lives for the browser session.
func (c CookieSettings) setProfile(w http.ResponseWriter, r *http.Request, id domainauth.Identity) error {
	v, err := EncodeProfile(id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.ProfileName,
		Value:    v,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: false,
		Secure:   c.isSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// clear expires a cookie. It mirrors key attributes (Secure, Path, Domain, SameSite)
// used when setting cookies to maximize compatibility across browsers during deletion.
func (c CookieSettings) clear(w http.ResponseWriter, r *http.Request, name string, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: httpOnly,
		Secure:   c.isSecure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// EncodeProfile renders an identity as a cookie value: JSON, path-escaped so it
// only uses cookie-safe bytes and decodes with decodeURIComponent.
func EncodeProfile(id domainauth.Identity) (string, error) {
	b, err := json.Marshal(id)
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}
	return url.PathEscape(string(b)), nil
}

// DecodeProfile reverses EncodeProfile.
func DecodeProfile(v string) (domainauth.Identity, error) {
	raw, err := url.PathUnescape(v)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("decode profile: %w", err)
	}
	var id domainauth.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return domainauth.Identity{}, fmt.Errorf("decode profile: %w", err)
	}
	return id, nil
}
