package devapi

import (
	"errors"
	"log/slog"
	"net/http"

	httpx "github.com/target/lms-gateway/internal/http"
)

// NewHandler mounts the dev backend routes.
func NewHandler(svc Users, logger *slog.Logger) (http.Handler, error) {
	if svc == nil {
		return nil, errors.New("dev api requires a user service")
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{Svc: svc, Logger: logger.With("component", "dev_api")}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", httpx.HealthHandler)

	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/refresh", h.Refresh)
	mux.HandleFunc("POST /auth/verify-email", h.VerifyEmail)
	mux.HandleFunc("POST /auth/forgot-password", h.ForgotPassword)
	mux.HandleFunc("POST /auth/reset-password", h.ResetPassword)
	mux.HandleFunc("GET /users/me", h.Me)

	admin := http.NewServeMux()
	admin.HandleFunc("GET /admin/users", h.ListUsers)
	admin.HandleFunc("POST /admin/users", h.CreateUser)
	admin.HandleFunc("PUT /admin/users/{id}/status", h.SetStatus)
	admin.HandleFunc("PUT /admin/users/{id}/role", h.SetRole)
	mux.Handle("/admin/", h.RequireAdmin(admin))

	return httpx.Chain(mux,
		httpx.RequestID(),
		httpx.Recover(h.Logger),
		httpx.Logging(h.Logger),
	), nil
}
