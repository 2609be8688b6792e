package ports

// Package ports defines interfaces (hexagonal ports) for identity and user behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/target/lms-gateway/internal/domain/auth"
)

var (
	// ErrInvalidCredential means the identity endpoint rejected the bearer token.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrUpstreamUnavailable means the identity endpoint could not be reached or
	// returned an unusable body.
	ErrUpstreamUnavailable = errors.New("identity upstream unavailable")
)

// IdentityResolver resolves a bearer credential into an identity.
// Errors wrap ErrInvalidCredential or ErrUpstreamUnavailable.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (domainauth.Identity, error)
}

// LoginInput carries credentials for the backend login call.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Age      int    `json:"age"`
}

// TokenPair is the credential material issued by a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is zero when the backend does not report a lifetime.
	ExpiresIn time.Duration
}

// RelayedResponse is a backend response passed through to the caller verbatim.
type RelayedResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// AuthBackend performs the credential flows against the LMS backend.
type AuthBackend interface {
	Login(ctx context.Context, in LoginInput) (TokenPair, error)
	Register(ctx context.Context, in RegisterInput) (RelayedResponse, error)
}

// User is the stored account record behind an identity.
type User struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	FullName     string          `json:"fullName"`
	Phone        string          `json:"phone,omitempty"`
	Age          int             `json:"age,omitempty"`
	Role         domainauth.Role `json:"role"`
	Active       bool            `json:"active"`
	Verified     bool            `json:"verified"`
	PasswordHash []byte          `json:"passwordHash"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Identity projects the stored user onto the identity record.
func (u User) Identity() domainauth.Identity {
	return domainauth.Identity{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.FullName,
		Role:        u.Role,
		Phone:       u.Phone,
		Age:         u.Age,
	}
}

// ErrUserNotFound is returned by UserStore lookups that miss.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailTaken is returned by UserStore.Create when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// ErrEmailRequired is returned by UserStore.Create when the normalized email is empty.
var ErrEmailRequired = errors.New("user email cannot be empty")

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, u User) (User, error)
	Get(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Update(ctx context.Context, u User) (User, error)
	List(ctx context.Context, offset, limit int) ([]User, int, error)
}

// TokenPurpose scopes one-time tokens.
type TokenPurpose string

const (
	TokenPurposeVerifyEmail   TokenPurpose = "verify-email"
	TokenPurposeResetPassword TokenPurpose = "reset-password"
	TokenPurposeRefresh       TokenPurpose = "refresh"
)

// ErrTokenNotFound is returned when a one-time token is unknown, used, or expired.
var ErrTokenNotFound = errors.New("token not found or expired")

// TokenStore.Put rejects an empty token or a non-positive ttl.
var (
	ErrTokenRequired = errors.New("token cannot be empty")
	ErrTokenTTL      = errors.New("token ttl must be positive")
)

// TokenStore keeps one-time tokens (email verification, password reset, refresh).
type TokenStore interface {
	Put(ctx context.Context, purpose TokenPurpose, token, userID string, ttl time.Duration) error
	// Consume returns the user id bound to the token and deletes it.
	Consume(ctx context.Context, purpose TokenPurpose, token string) (string, error)
}

// AccessTokenIssuer signs and verifies access tokens.
type AccessTokenIssuer interface {
	Issue(u User) (token string, ttl time.Duration, err error)
	// Verify returns the subject (user id) of a valid token.
	Verify(token string) (string, error)
}

// Mail is an outbound message.
type Mail struct {
	To      string
	Subject string
	Text    string
}

// Mailer delivers outbound mail.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}
