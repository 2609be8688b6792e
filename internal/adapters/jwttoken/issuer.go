// Package jwttoken signs and verifies the dev backend's HS256 access tokens.
package jwttoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/target/lms-gateway/internal/ports"
)

const minSecretBytes = 32

// Config controls token signing.
type Config struct {
	Secret   []byte
	Issuer   string
	TTL      time.Duration
	Leeway   time.Duration
	Audience string
}

// Claims carries the role alongside the registered claims.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Issuer implements ports.AccessTokenIssuer with HMAC-SHA256.
type Issuer struct {
	cfg Config
	now func() time.Time
}

var _ ports.AccessTokenIssuer = (*Issuer)(nil)

var errInvalidToken = errors.New("invalid access token")

// NewIssuer validates cfg and returns an issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretBytes)
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("jwt ttl must be positive")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt leeway must be between 0 and 2m")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	return &Issuer{cfg: cfg, now: time.Now}, nil
}

// Issue signs a token for u and returns it with its lifetime.
func (i *Issuer) Issue(u ports.User) (string, time.Duration, error) {
	now := i.now()
	claims := Claims{
		Role:  string(u.Role),
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.TTL)),
		},
	}
	if i.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign access token: %w", err)
	}
	return signed, i.cfg.TTL, nil
}

// Verify parses token and returns its subject.
func (i *Issuer) Verify(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(i.cfg.Leeway))
	}
	if i.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.cfg.Issuer))
	}
	if i.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(i.cfg.Audience))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.cfg.Secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}
