package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/target/lms-gateway/internal/errors"
	"github.com/target/lms-gateway/internal/ports"
)

// AuthHandlersOptions groups dependencies for AuthHandlers.
type AuthHandlersOptions struct {
	Backend  ports.AuthBackend
	Resolver ports.IdentityResolver
	Cookies  CookieSettings
	// RememberMe is the credential cookie lifetime when the caller asks to stay signed in.
	RememberMe time.Duration
	LoginPath  string
	HomePath   string
	Logger     *slog.Logger
}

// AuthHandlers provides the browser-facing credential endpoints. They never
// hold credentials server-side: the backend issues tokens and the browser keeps them.
type AuthHandlers struct {
	backend    ports.AuthBackend
	resolver   ports.IdentityResolver
	cookies    CookieSettings
	rememberMe time.Duration
	loginPath  string
	homePath   string
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewAuthHandlers validates options and builds the handlers.
func NewAuthHandlers(opts AuthHandlersOptions) (*AuthHandlers, error) {
	if opts.Backend == nil {
		return nil, errors.New("auth handlers require a backend")
	}
	if opts.Resolver == nil {
		return nil, errors.New("auth handlers require an identity resolver")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandlers{
		backend:    opts.Backend,
		resolver:   opts.Resolver,
		cookies:    opts.Cookies.withDefaults(),
		rememberMe: opts.RememberMe,
		loginPath:  orPath(opts.LoginPath, "/login"),
		homePath:   orPath(opts.HomePath, "/"),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger.With("component", "auth_handlers"),
	}, nil
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"fullName" validate:"required"`
	Phone    string `json:"phone"`
	Age      int    `json:"age"      validate:"gte=1,lte=150"`
}

// Login exchanges credentials for backend tokens and stores them as cookies.
// POST /auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := bindRequest(w, r, &req, loginFromForm); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if !h.validRequest(w, req) {
		return
	}

	pair, err := h.backend.Login(r.Context(), ports.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		h.writeBackendError(w, r, err, "invalid_credentials")
		return
	}

	var maxAge time.Duration
	if req.Remember {
		maxAge = h.rememberMe
	}
	h.cookies.setCredential(w, r, h.cookies.TokenName, pair.AccessToken, maxAge)
	if pair.RefreshToken != "" {
		h.cookies.setCredential(w, r, h.cookies.RefreshName, pair.RefreshToken, maxAge)
	}

	h.finish(w, r, h.homePath)
}

// Register validates the form and relays the backend's answer verbatim.
// POST /auth/register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := bindRequest(w, r, &req, registerFromForm); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if !h.validRequest(w, req) {
		return
	}

	res, err := h.backend.Register(r.Context(), ports.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    strings.TrimSpace(req.Phone),
		Age:      req.Age,
	})
	if err != nil {
		h.writeBackendError(w, r, err, "registration_failed")
		return
	}

	if res.ContentType != "" {
		w.Header().Set("Content-Type", res.ContentType)
	}
	w.WriteHeader(res.Status)
	if _, err := w.Write(res.Body); err != nil {
		h.logger.DebugContext(r.Context(), "register response not delivered", "error", err)
	}
}

// Logout clears every credential and profile cookie.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.clear(w, r, h.cookies.TokenName, true)
	h.cookies.clear(w, r, h.cookies.RefreshName, true)
	h.cookies.clear(w, r, h.cookies.ProfileName, false)
	h.finish(w, r, h.loginPath)
}

// Status reports whether the credential cookie resolves to an identity.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	token := h.cookies.token(r)
	if token == "" {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	id, err := h.resolver.Resolve(r.Context(), token)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidCredential) {
			h.cookies.clear(w, r, h.cookies.TokenName, true)
		} else {
			h.logger.WarnContext(r.Context(), "status lookup failed", "error", err)
		}
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          id,
	})
}

// finish answers XHR callers with JSON and browsers with a 303.
func (h *AuthHandlers) finish(w http.ResponseWriter, r *http.Request, target string) {
	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":      "success",
			"redirect_to": target,
		})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *AuthHandlers) validRequest(w http.ResponseWriter, v any) bool {
	err := h.validate.Struct(v)
	if err == nil {
		return true
	}
	WriteAppError(w, apperrors.FromValidation(err))
	return false
}

func (h *AuthHandlers) writeBackendError(w http.ResponseWriter, r *http.Request, err error, rejected string) {
	if errors.Is(err, ports.ErrInvalidCredential) {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: rejected, Err: errors.New("invalid email or password")})
		return
	}
	h.logger.WarnContext(r.Context(), "backend call failed", "path", r.URL.Path, "error", err)
	WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "backend_unavailable", Err: errors.New("backend unavailable")})
}

// bindRequest decodes a JSON body, or falls back to form fields via fromForm.
func bindRequest[T any](w http.ResponseWriter, r *http.Request, dst *T, fromForm func(*http.Request, *T) error) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return fmt.Errorf("invalid json: %w", err)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("invalid form: %w", err)
	}
	return fromForm(r, dst)
}

func loginFromForm(r *http.Request, dst *loginRequest) error {
	dst.Email = r.PostForm.Get("email")
	dst.Password = r.PostForm.Get("password")
	dst.Remember = formBool(r.PostForm.Get("remember"))
	return nil
}

func registerFromForm(r *http.Request, dst *registerRequest) error {
	dst.Email = r.PostForm.Get("email")
	dst.Password = r.PostForm.Get("password")
	dst.FullName = r.PostForm.Get("fullName")
	dst.Phone = r.PostForm.Get("phone")
	if raw := strings.TrimSpace(r.PostForm.Get("age")); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil {
			return errors.New("age must be a number")
		}
		dst.Age = age
	}
	return nil
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func orPath(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
