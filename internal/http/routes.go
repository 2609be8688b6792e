// Package httpx is the gateway HTTP surface: the access gate middleware, the
// browser auth endpoints and the upstream proxies.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/target/lms-gateway/internal/domain/access"
)

const (
	// apiPrefix routes reach the backend with the path unchanged; the backend
	// serves its content API under /api.
	apiPrefix = "/api"
	// backendPrefix exposes the backend's root endpoints (/users/me,
	// /admin/users) to the browser; it is stripped before forwarding.
	backendPrefix = "/backend"
)

// forwardedAuthPaths reach the backend unchanged; the gateway adds nothing but
// the bearer header.
var forwardedAuthPaths = []string{ //nolint:gochecknoglobals // read-only route list
	"/auth/verify-email",
	"/auth/forgot-password",
	"/auth/reset-password",
}

// RouterServices holds all the dependencies needed by the gateway router.
type RouterServices struct {
	Gate    GateEvaluator
	Matcher []access.Pattern
	Auth    *AuthHandlers
	Cookies CookieSettings

	BackendURL *url.URL
	// UIOriginURL is optional; without it allowed pages answer 404.
	UIOriginURL *url.URL
	// Transport is shared by both upstream proxies (tests inject one).
	Transport http.RoundTripper

	Logger *slog.Logger
}

// NewRouter creates the gateway handler: auth endpoints, the backend proxies,
// and the gated page proxy.
func NewRouter(services RouterServices) (http.Handler, error) {
	if services.Gate == nil {
		return nil, errors.New("router requires an access gate")
	}
	if services.Auth == nil {
		return nil, errors.New("router requires auth handlers")
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	root, err := NewUpstreamProxy(ProxyOptions{
		Target:       services.BackendURL,
		StripPrefix:  backendPrefix,
		InjectBearer: true,
		Cookies:      services.Cookies,
		Transport:    services.Transport,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	api, err := NewUpstreamProxy(ProxyOptions{
		Target:       services.BackendURL,
		InjectBearer: true,
		Cookies:      services.Cookies,
		Transport:    services.Transport,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	pages := http.NotFoundHandler()
	if services.UIOriginURL != nil {
		if pages, err = NewUpstreamProxy(ProxyOptions{
			Target:    services.UIOriginURL,
			Cookies:   services.Cookies,
			Transport: services.Transport,
			Logger:    logger,
		}); err != nil {
			return nil, err
		}
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", http.HandlerFunc(HealthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(HealthHandler))
	registerAuthRoutes(mux, services.Auth)
	for _, p := range forwardedAuthPaths {
		mux.Handle(p, api)
	}
	mux.Handle(apiPrefix+"/", api)
	mux.Handle(backendPrefix+"/", root)
	mux.Handle("/", Gate(GateOptions{
		Gate:    services.Gate,
		Matcher: services.Matcher,
		Cookies: services.Cookies,
		Logger:  logger,
	})(pages))

	return Chain(mux, RequestID(), Recover(logger), Logging(logger)), nil
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
}
