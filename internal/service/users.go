package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	domainauth "github.com/target/lms-gateway/internal/domain/auth"
	apperrors "github.com/target/lms-gateway/internal/errors"
	"github.com/target/lms-gateway/internal/ports"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultVerifyTTL  = 24 * time.Hour
	defaultResetTTL   = time.Hour
	defaultRefreshTTL = 30 * 24 * time.Hour
)

// UserServiceOptions groups dependencies for UserService.
type UserServiceOptions struct {
	Users  ports.UserStore
	Tokens ports.TokenStore
	Issuer ports.AccessTokenIssuer
	Mailer ports.Mailer
	Logger *slog.Logger

	// PublicURL is the browser-facing origin used in mailed links.
	PublicURL  string
	BcryptCost int
	VerifyTTL  time.Duration
	ResetTTL   time.Duration
	RefreshTTL time.Duration
}

// UserService implements the account flows served by the dev backend.
type UserService struct {
	users    ports.UserStore
	tokens   ports.TokenStore
	issuer   ports.AccessTokenIssuer
	mailer   ports.Mailer
	logger   *slog.Logger
	validate *validator.Validate

	publicURL  string
	cost       int
	verifyTTL  time.Duration
	resetTTL   time.Duration
	refreshTTL time.Duration
}

// NewUserService constructs a UserService.
func NewUserService(opts UserServiceOptions) (*UserService, error) {
	if opts.Users == nil || opts.Tokens == nil || opts.Issuer == nil || opts.Mailer == nil {
		return nil, errors.New("user service requires users, tokens, issuer, and mailer")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}

	return &UserService{
		users:      opts.Users,
		tokens:     opts.Tokens,
		issuer:     opts.Issuer,
		mailer:     opts.Mailer,
		logger:     logger.With("component", "user_service"),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		publicURL:  strings.TrimRight(opts.PublicURL, "/"),
		cost:       cost,
		verifyTTL:  durationOr(opts.VerifyTTL, defaultVerifyTTL),
		resetTTL:   durationOr(opts.ResetTTL, defaultResetTTL),
		refreshTTL: durationOr(opts.RefreshTTL, defaultRefreshTTL),
	}, nil
}

// RegisterRequest is a self-service sign-up.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"fullName" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Age      int    `json:"age" validate:"omitempty,min=1,max=150"`
}

// Register creates an unverified STUDENT account and mails a verification link.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (ports.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return ports.User{}, apperrors.FromValidation(err)
	}
	u, err := s.create(ctx, ports.User{
		Email:    req.Email,
		FullName: strings.TrimSpace(req.FullName),
		Phone:    strings.TrimSpace(req.Phone),
		Age:      req.Age,
		Role:     domainauth.RoleStudent,
		Active:   true,
	}, req.Password)
	if err != nil {
		return ports.User{}, err
	}

	if err := s.sendToken(ctx, u, ports.TokenPurposeVerifyEmail, s.verifyTTL,
		"Verify your email", "/verify-email"); err != nil {
		s.logger.WarnContext(ctx, "verification mail not sent", "user_id", u.ID, "error", err)
	}
	return u, nil
}

func (s *UserService) create(ctx context.Context, u ports.User, password string) (ports.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return ports.User{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "password cannot be hashed")
	}
	u.PasswordHash = hash
	created, err := s.users.Create(ctx, u)
	if err != nil {
		return ports.User{}, apperrors.MapStoreError(err)
	}
	return created, nil
}

// LoginResult is the credential material for a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	User         ports.User
}

var errBadCredentials = apperrors.Unauthorized("invalid email or password")

// Login checks credentials and issues an access/refresh pair. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return LoginResult{}, errBadCredentials
		}
		return LoginResult{}, apperrors.MapStoreError(err)
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return LoginResult{}, errBadCredentials
	}
	if !u.Active {
		return LoginResult{}, apperrors.Forbidden("account is deactivated")
	}
	return s.issue(ctx, u)
}

// Refresh redeems a refresh token for a new pair. Refresh tokens are single use.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (LoginResult, error) {
	id, err := s.tokens.Consume(ctx, ports.TokenPurposeRefresh, refreshToken)
	if err != nil {
		if errors.Is(err, ports.ErrTokenNotFound) {
			return LoginResult{}, apperrors.Unauthorized("refresh token is invalid or expired")
		}
		return LoginResult{}, apperrors.MapStoreError(err)
	}
	u, err := s.activeUser(ctx, id)
	if err != nil {
		return LoginResult{}, err
	}
	return s.issue(ctx, u)
}

func (s *UserService) issue(ctx context.Context, u ports.User) (LoginResult, error) {
	access, ttl, err := s.issuer.Issue(u)
	if err != nil {
		return LoginResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "issue access token")
	}
	refresh, err := newOpaqueToken()
	if err != nil {
		return LoginResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "generate refresh token")
	}
	if err := s.tokens.Put(ctx, ports.TokenPurposeRefresh, refresh, u.ID, s.refreshTTL); err != nil {
		return LoginResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "store refresh token")
	}
	return LoginResult{AccessToken: access, RefreshToken: refresh, ExpiresIn: ttl, User: u}, nil
}

// Me resolves a bearer token to its active user.
func (s *UserService) Me(ctx context.Context, token string) (ports.User, error) {
	id, err := s.issuer.Verify(token)
	if err != nil {
		return ports.User{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid access token")
	}
	return s.activeUser(ctx, id)
}

func (s *UserService) activeUser(ctx context.Context, id string) (ports.User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return ports.User{}, apperrors.Unauthorized("account no longer exists")
		}
		return ports.User{}, apperrors.MapStoreError(err)
	}
	if !u.Active {
		return ports.User{}, apperrors.Unauthorized("account is deactivated")
	}
	return u, nil
}

// VerifyEmail redeems a verification token.
func (s *UserService) VerifyEmail(ctx context.Context, token string) (ports.User, error) {
	id, err := s.tokens.Consume(ctx, ports.TokenPurposeVerifyEmail, token)
	if err != nil {
		return ports.User{}, apperrors.MapStoreError(err)
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return ports.User{}, apperrors.MapStoreError(err)
	}
	if u.Verified {
		return u, nil
	}
	u.Verified = true
	updated, err := s.users.Update(ctx, u)
	if err != nil {
		return ports.User{}, apperrors.MapStoreError(err)
	}
	return updated, nil
}

// ForgotPassword mails a reset link when the email is registered. It reports
// success either way so callers cannot probe for accounts.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			s.logger.DebugContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return apperrors.MapStoreError(err)
	}
	if !u.Active {
		return nil
	}
	if err := s.sendToken(ctx, u, ports.TokenPurposeResetPassword, s.resetTTL,
		"Reset your password", "/reset-password"); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUpstream, "send reset mail")
	}
	return nil
}

// ResetPasswordRequest carries a reset token and the new password.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// ResetPassword redeems a reset token and replaces the password hash.
func (s *UserService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return apperrors.FromValidation(err)
	}
	id, err := s.tokens.Consume(ctx, ports.TokenPurposeResetPassword, req.Token)
	if err != nil {
		return apperrors.MapStoreError(err)
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return apperrors.MapStoreError(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "password cannot be hashed")
	}
	u.PasswordHash = hash
	if _, err := s.users.Update(ctx, u); err != nil {
		return apperrors.MapStoreError(err)
	}
	return nil
}

// CreateUserRequest is an admin-initiated account.
type CreateUserRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6,max=72"`
	FullName string   `json:"fullName" validate:"required,max=120"`
	Phone    string   `json:"phone" validate:"omitempty,max=32"`
	Age      int      `json:"age" validate:"omitempty,min=1,max=150"`
	Role     string   `json:"role"`
	Roles    []string `json:"roles"`
}

// CreateUser creates a verified account. When several roles are supplied the
// most privileged one is kept; no role at all means STUDENT.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (ports.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return ports.User{}, apperrors.FromValidation(err)
	}
	role, err := pickRole(req.Role, req.Roles)
	if err != nil {
		return ports.User{}, err
	}
	return s.create(ctx, ports.User{
		Email:    req.Email,
		FullName: strings.TrimSpace(req.FullName),
		Phone:    strings.TrimSpace(req.Phone),
		Age:      req.Age,
		Role:     role,
		Active:   true,
		Verified: true,
	}, req.Password)
}

func pickRole(single string, many []string) (domainauth.Role, error) {
	names := append([]string(nil), many...)
	if strings.TrimSpace(single) != "" {
		names = append(names, single)
	}
	if len(names) == 0 {
		return domainauth.RoleStudent, nil
	}
	for _, n := range names {
		if _, err := domainauth.ParseRole(n); err != nil {
			return "", apperrors.ValidationField("role", err.Error())
		}
	}
	role, _ := domainauth.HighestRole(names)
	return role, nil
}

// ListUsers returns one page of users and the total count.
func (s *UserService) ListUsers(ctx context.Context, offset, limit int) ([]ports.User, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	users, total, err := s.users.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, apperrors.MapStoreError(err)
	}
	return users, total, nil
}

// SetActive activates or deactivates an account. Deactivated accounts fail
// identity lookups, so the gateway treats their tokens as invalid.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) (ports.User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return ports.User{}, apperrors.MapStoreError(err)
	}
	if u.Active == active {
		return u, nil
	}
	u.Active = active
	updated, err := s.users.Update(ctx, u)
	if err != nil {
		return ports.User{}, apperrors.MapStoreError(err)
	}
	return updated, nil
}

// ToggleActive flips the account's active flag.
func (s *UserService) ToggleActive(ctx context.Context, id string) (ports.User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return ports.User{}, apperrors.MapStoreError(err)
	}
	return s.SetActive(ctx, id, !u.Active)
}

// FindByEmail looks up an account for operator tooling.
func (s *UserService) FindByEmail(ctx context.Context, email string) (ports.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return ports.User{}, apperrors.MapStoreError(err)
	}
	return u, nil
}

// AssignRole replaces the account's single role.
func (s *UserService) AssignRole(ctx context.Context, id, role string) (ports.User, error) {
	r, err := domainauth.ParseRole(role)
	if err != nil {
		return ports.User{}, apperrors.ValidationField("role", err.Error())
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return ports.User{}, apperrors.MapStoreError(err)
	}
	if u.Role == r {
		return u, nil
	}
	u.Role = r
	updated, err := s.users.Update(ctx, u)
	if err != nil {
		return ports.User{}, apperrors.MapStoreError(err)
	}
	return updated, nil
}

func (s *UserService) sendToken(ctx context.Context, u ports.User, purpose ports.TokenPurpose, ttl time.Duration, subject, page string) error {
	token, err := newOpaqueToken()
	if err != nil {
		return err
	}
	if err := s.tokens.Put(ctx, purpose, token, u.ID, ttl); err != nil {
		return fmt.Errorf("store %s token: %w", purpose, err)
	}

	link := s.publicURL + page + "?token=" + url.QueryEscape(token)
	body := fmt.Sprintf("Hello %s,\n\nUse the link below within %s:\n\n%s\n", u.FullName, ttl, link)
	if err := s.mailer.Send(ctx, ports.Mail{To: u.Email, Subject: subject, Text: body}); err != nil {
		return fmt.Errorf("send %s mail: %w", purpose, err)
	}
	return nil
}

func newOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func durationOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
