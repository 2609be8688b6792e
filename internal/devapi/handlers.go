// Package devapi serves the demo identity backend: the subset of the LMS REST
// API the gateway depends on, backed by an in-memory or Redis user store.
package devapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/target/lms-gateway/internal/domain/auth"
	apperrors "github.com/target/lms-gateway/internal/errors"
	httpx "github.com/target/lms-gateway/internal/http"
	"github.com/target/lms-gateway/internal/ports"
	"github.com/target/lms-gateway/internal/service"
)

// Users is the account behavior the handlers need.
type Users interface {
	Register(ctx context.Context, req service.RegisterRequest) (ports.User, error)
	Login(ctx context.Context, email, password string) (service.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (service.LoginResult, error)
	Me(ctx context.Context, token string) (ports.User, error)
	VerifyEmail(ctx context.Context, token string) (ports.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req service.ResetPasswordRequest) error
	CreateUser(ctx context.Context, req service.CreateUserRequest) (ports.User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]ports.User, int, error)
	SetActive(ctx context.Context, id string, active bool) (ports.User, error)
	ToggleActive(ctx context.Context, id string) (ports.User, error)
	AssignRole(ctx context.Context, id, role string) (ports.User, error)
}

var _ Users = (*service.UserService)(nil)

// Handlers exposes Users over HTTP. Successful bodies are wrapped in "data";
// failures are {"error","message"}.
type Handlers struct {
	Svc    Users
	Logger *slog.Logger
}

func (h *Handlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// userView is the public shape of an account. It never carries the password hash.
type userView struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	FullName  string          `json:"fullName"`
	Phone     string          `json:"phone,omitempty"`
	Age       int             `json:"age,omitempty"`
	Role      domainauth.Role `json:"role"`
	Active    bool            `json:"active"`
	Verified  bool            `json:"verified"`
	CreatedAt time.Time       `json:"createdAt"`
}

func viewOf(u ports.User) userView {
	return userView{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		Age:       u.Age,
		Role:      u.Role,
		Active:    u.Active,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}

type tokenView struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	ExpiresIn    int      `json:"expiresIn"`
	User         userView `json:"user"`
}

func tokenViewOf(res service.LoginResult) tokenView {
	return tokenView{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    int(res.ExpiresIn.Seconds()),
		User:         viewOf(res.User),
	}
}

func writeData(w http.ResponseWriter, code int, v any) {
	httpx.WriteJSON(w, code, map[string]any{"data": v})
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if code := apperrors.GetCode(err); code == apperrors.ErrCodeInternal || code == "" {
		h.logger().ErrorContext(r.Context(), "dev backend request failed", "path", r.URL.Path, "error", err)
	}
	httpx.WriteAppError(w, err)
}

// Register handles POST /auth/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	u, err := h.Svc.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, viewOf(u))
}

// Login handles POST /auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	res, err := h.Svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tokenViewOf(res))
}

// Refresh handles POST /auth/refresh.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	res, err := h.Svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tokenViewOf(res))
}

// Me handles GET /users/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		h.fail(w, r, apperrors.Unauthorized("bearer token required"))
		return
	}
	u, err := h.Svc.Me(r.Context(), token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, viewOf(u))
}

// VerifyEmail handles POST /auth/verify-email.
func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	u, err := h.Svc.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, viewOf(u))
}

// ForgotPassword handles POST /auth/forgot-password. The answer is the same
// whether or not the email is registered.
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	if err := h.Svc.ForgotPassword(r.Context(), req.Email); err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// ResetPassword handles POST /auth/reset-password.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req service.ResetPasswordRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	if err := h.Svc.ResetPassword(r.Context(), req); err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "password_reset"})
}

// ListUsers handles GET /admin/users?page=&size=.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	offset, limit := httpx.ParsePageSize(r, 20, 100)
	users, total, err := h.Svc.ListUsers(r.Context(), offset, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, viewOf(u))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"data": views,
		"meta": map[string]int{"page": offset/limit + 1, "size": limit, "total": total},
	})
}

// CreateUser handles POST /admin/users.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	u, err := h.Svc.CreateUser(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, viewOf(u))
}

// SetStatus handles PUT /admin/users/{id}/status. An empty body toggles.
func (h *Handlers) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active *bool `json:"active"`
	}
	if r.ContentLength != 0 && !httpx.DecodeJSON(w, r, &req) {
		return
	}

	id := r.PathValue("id")
	var (
		u   ports.User
		err error
	)
	if req.Active == nil {
		u, err = h.Svc.ToggleActive(r.Context(), id)
	} else {
		u, err = h.Svc.SetActive(r.Context(), id, *req.Active)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, viewOf(u))
}

// SetRole handles PUT /admin/users/{id}/role.
func (h *Handlers) SetRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	u, err := h.Svc.AssignRole(r.Context(), r.PathValue("id"), req.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, viewOf(u))
}

// RequireAdmin rejects callers whose bearer token does not belong to an ADMIN.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			h.fail(w, r, apperrors.Unauthorized("bearer token required"))
			return
		}
		u, err := h.Svc.Me(r.Context(), token)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if !u.Identity().IsAdmin() {
			h.fail(w, r, apperrors.Forbidden("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
