package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	domainauth "github.com/target/lms-gateway/internal/domain/auth"
)

// unwrapData returns the object nested under a top-level "data" key, or the
// body itself when there is no such object.
func unwrapData(b []byte) ([]byte, error) {
	var probe struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return nil, err
	}
	if d := bytes.TrimSpace(probe.Data); len(d) > 0 && d[0] == '{' {
		return d, nil
	}
	return b, nil
}

// flexString accepts a JSON string, number, or null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected string or number: %w", err)
		}
		*f = flexString(n.String())
	}
	return nil
}

// flexInt accepts a JSON number, numeric string, or null.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return fmt.Errorf("expected integer: %w", err)
	}
	*f = flexInt(int(n))
	return nil
}

// roleField accepts a role as a string, a list of strings, or a list of
// objects carrying a "name" field.
type roleField []string

func (r *roleField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = roleField{s}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return fmt.Errorf("role must be a string or a list: %w", err)
	}
	out := make(roleField, 0, len(items))
	for _, it := range items {
		it = bytes.TrimSpace(it)
		if len(it) > 0 && it[0] == '{' {
			var named struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(it, &named); err != nil {
				return err
			}
			out = append(out, named.Name)
			continue
		}
		var s string
		if err := json.Unmarshal(it, &s); err != nil {
			return fmt.Errorf("role list entry: %w", err)
		}
		out = append(out, s)
	}
	*r = out
	return nil
}

type identityPayload struct {
	ID          flexString `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	FullName    string     `json:"fullName"`
	Name        string     `json:"name"`
	Role        roleField  `json:"role"`
	Roles       roleField  `json:"roles"`
	Phone       flexString `json:"phone"`
	Age         flexInt    `json:"age"`
}

// identityEnvelope decodes a /users/me body, bare or wrapped in "data".
type identityEnvelope struct {
	payload identityPayload
}

func (e *identityEnvelope) UnmarshalJSON(b []byte) error {
	body, err := unwrapData(b)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, &e.payload)
}

var (
	errMissingID   = errors.New("identity payload has no id")
	errMissingRole = errors.New("identity payload has no recognised role")
)

// Identity normalizes the decoded payload. Multiple roles collapse to the most
// privileged one.
func (e identityEnvelope) Identity() (domainauth.Identity, error) {
	p := e.payload
	if strings.TrimSpace(string(p.ID)) == "" {
		return domainauth.Identity{}, errMissingID
	}

	names := make([]string, 0, len(p.Role)+len(p.Roles))
	for _, n := range append(append([]string(nil), p.Role...), p.Roles...) {
		names = append(names, normalizeRoleName(n))
	}
	role, ok := domainauth.HighestRole(names)
	if !ok {
		return domainauth.Identity{}, errMissingRole
	}

	return domainauth.Identity{
		ID:          string(p.ID),
		Email:       p.Email,
		DisplayName: firstNonEmpty(p.DisplayName, p.FullName, p.Name),
		Role:        role,
		Phone:       string(p.Phone),
		Age:         int(p.Age),
	}, nil
}

// normalizeRoleName strips the Spring-style ROLE_ prefix.
func normalizeRoleName(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 5 && strings.EqualFold(s[:5], "ROLE_") {
		return s[5:]
	}
	return s
}

// tokenEnvelope decodes a login response, bare or wrapped in "data".
type tokenEnvelope struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

func (t *tokenEnvelope) UnmarshalJSON(b []byte) error {
	body, err := unwrapData(b)
	if err != nil {
		return err
	}
	var p struct {
		AccessToken       string  `json:"accessToken"`
		AccessTokenSnake  string  `json:"access_token"`
		Token             string  `json:"token"`
		RefreshToken      string  `json:"refreshToken"`
		RefreshTokenSnake string  `json:"refresh_token"`
		ExpiresIn         flexInt `json:"expiresIn"`
		ExpiresInSnake    flexInt `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return err
	}
	t.AccessToken = firstNonEmpty(p.AccessToken, p.AccessTokenSnake, p.Token)
	t.RefreshToken = firstNonEmpty(p.RefreshToken, p.RefreshTokenSnake)
	t.ExpiresIn = int(p.ExpiresIn)
	if t.ExpiresIn == 0 {
		t.ExpiresIn = int(p.ExpiresInSnake)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
