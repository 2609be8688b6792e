package bootstrap

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/redis/go-redis/v9"
	"github.com/target/lms-gateway/config"
	"github.com/target/lms-gateway/internal/adapters/backend"
	"github.com/target/lms-gateway/internal/adapters/jwttoken"
	"github.com/target/lms-gateway/internal/adapters/mailer"
	"github.com/target/lms-gateway/internal/adapters/memstore"
	redisstore "github.com/target/lms-gateway/internal/adapters/redis"
	"github.com/target/lms-gateway/internal/devapi"
	"github.com/target/lms-gateway/internal/devseed"
	"github.com/target/lms-gateway/internal/domain/access"
	httpx "github.com/target/lms-gateway/internal/http"
	"github.com/target/lms-gateway/internal/observability/statsd"
	"github.com/target/lms-gateway/internal/ports"
	"github.com/target/lms-gateway/internal/service"
)

// ServiceContainer holds the handlers for every enabled service.
type ServiceContainer struct {
	// Gateway is nil unless the gateway mode is enabled.
	Gateway http.Handler
	// DevBackend is nil unless the dev-backend mode is enabled.
	DevBackend http.Handler
	Users      *service.UserService
	Metrics    *statsd.Client
}

// Close releases resources owned by the container.
func (c ServiceContainer) Close() error {
	if c.Metrics == nil {
		return nil
	}
	return c.Metrics.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig
	// Redis is required only when the dev backend uses the redis store.
	Redis  redis.UniversalClient
	Logger *slog.Logger
	// Transport overrides the upstream transport for the gateway proxies and backend client.
	Transport http.RoundTripper
}

// NewServices wires the enabled services from configuration.
func NewServices(ctx context.Context, deps ServiceDeps) (ServiceContainer, error) {
	if deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps require config")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var out ServiceContainer
	metricsSink, err := buildMetrics(cfg.Observability.Metrics, logger)
	if err != nil {
		// Metrics are optional; run without them.
		logger.ErrorContext(ctx, "failed to initialise statsd client", "error", err)
	}
	out.Metrics = metricsSink

	if cfg.IsDevBackendEnabled() {
		users, err := NewUserService(ctx, cfg, deps.Redis, logger)
		if err != nil {
			return out, err
		}
		out.Users = users
		if cfg.DevBackend.Seed {
			if err := devseed.Run(ctx, users, devseed.DefaultAccounts(), cfg.DevBackend.SeedPassword, logger); err != nil {
				logger.WarnContext(ctx, "dev seed incomplete", "error", err)
			}
		}
		if out.DevBackend, err = devapi.NewHandler(users, logger); err != nil {
			return out, fmt.Errorf("dev backend handler: %w", err)
		}
	}

	if cfg.IsGatewayEnabled() {
		var sink statsd.Sink
		if metricsSink.Enabled() {
			sink = metricsSink
		}
		if out.Gateway, err = newGateway(cfg, sink, deps.Transport, logger); err != nil {
			return out, err
		}
	}
	return out, nil
}

func buildMetrics(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (*statsd.Client, error) {
	return statsd.NewClient(statsd.Config{
		Enabled: cfg.IsEnabled(),
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
}

func newGateway(cfg *config.AppConfig, sink statsd.Sink, transport http.RoundTripper, logger *slog.Logger) (http.Handler, error) {
	var hc *http.Client
	if transport != nil {
		hc = &http.Client{Timeout: cfg.Upstream.BackendTimeout, Transport: transport}
	}
	client, err := backend.NewClient(backend.Config{
		BaseURL: cfg.Upstream.BackendURL,
		Timeout: cfg.Upstream.BackendTimeout,
		Client:  hc,
	})
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}

	classifier, err := access.NewClassifier(cfg.Gate.RuleSet())
	if err != nil {
		return nil, fmt.Errorf("gate rules: %w", err)
	}
	matcher, err := access.ParsePatterns(cfg.Gate.Matcher)
	if err != nil {
		return nil, fmt.Errorf("gate matcher: %w", err)
	}

	gate, err := service.NewAccessGate(service.AccessGateOptions{
		Resolver:   client,
		Classifier: classifier,
		LoginPath:  cfg.Gate.LoginPath,
		HomePath:   cfg.Gate.HomePath,
		Metrics:    sink,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	cookies := httpx.CookieSettings{
		Domain:      cfg.HTTP.CookieDomain,
		ForceSecure: cfg.HTTP.SecureCookies,
		TokenName:   cfg.Gate.TokenCookie,
		RefreshName: cfg.Gate.RefreshCookie,
		ProfileName: cfg.Gate.ProfileCookie,
	}
	auth, err := httpx.NewAuthHandlers(httpx.AuthHandlersOptions{
		Backend:    client,
		Resolver:   client,
		Cookies:    cookies,
		RememberMe: cfg.HTTP.RememberMe,
		LoginPath:  cfg.Gate.LoginPath,
		HomePath:   cfg.Gate.HomePath,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	var uiOrigin *url.URL
	if cfg.Upstream.UIOriginURL != "" {
		if uiOrigin, err = url.Parse(cfg.Upstream.UIOriginURL); err != nil {
			return nil, fmt.Errorf("parse UI_ORIGIN_URL: %w", err)
		}
	}

	return httpx.NewRouter(httpx.RouterServices{
		Gate:        gate,
		Matcher:     matcher,
		Auth:        auth,
		Cookies:     cookies,
		BackendURL:  client.BaseURL(),
		UIOriginURL: uiOrigin,
		Transport:   transport,
		Logger:      logger,
	})
}

// NewUserService builds the dev backend account service over the configured store.
func NewUserService(ctx context.Context, cfg *config.AppConfig, rdb redis.UniversalClient, logger *slog.Logger) (*service.UserService, error) {
	users, tokens, err := buildStores(cfg.DevBackend.Store, cfg.Redis.KeyPrefix, rdb)
	if err != nil {
		return nil, err
	}

	secret, err := signingSecret(cfg.DevBackend.JWTSecret)
	if err != nil {
		return nil, err
	}
	if cfg.DevBackend.JWTSecret == "" {
		logger.WarnContext(ctx, "DEV_BACKEND_JWT_SECRET is empty; using an ephemeral secret, tokens will not survive restarts")
	}
	issuer, err := jwttoken.NewIssuer(jwttoken.Config{
		Secret: secret,
		Issuer: cfg.DevBackend.JWTIssuer,
		TTL:    cfg.DevBackend.JWTTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("jwt issuer: %w", err)
	}

	mail, err := buildMailer(cfg.Mail, logger)
	if err != nil {
		return nil, err
	}

	return service.NewUserService(service.UserServiceOptions{
		Users:     users,
		Tokens:    tokens,
		Issuer:    issuer,
		Mailer:    mail,
		Logger:    logger,
		PublicURL: cfg.DevBackend.PublicURL,
	})
}

//nolint:ireturn // the store kind is chosen at runtime.
func buildStores(kind config.StoreKind, prefix string, rdb redis.UniversalClient) (ports.UserStore, ports.TokenStore, error) {
	switch kind {
	case config.StoreRedis:
		if rdb == nil {
			return nil, nil, errors.New("redis store selected but no redis client is connected")
		}
		return redisstore.NewUserStoreWithPrefix(rdb, prefix), redisstore.NewTokenStoreWithPrefix(rdb, prefix), nil
	case config.StoreMemory, "":
		return memstore.NewUserStore(), memstore.NewTokenStore(), nil
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", kind)
	}
}

//nolint:ireturn // the mailer is chosen by configuration.
func buildMailer(cfg config.MailConfig, logger *slog.Logger) (ports.Mailer, error) {
	if !cfg.UseSendGrid() {
		return &mailer.LogMailer{Logger: logger}, nil
	}
	m, err := mailer.NewSendGridMailer(mailer.SendGridConfig{
		APIKey:   cfg.SendGridAPIKey,
		FromName: cfg.FromName,
		From:     cfg.From,
	})
	if err != nil {
		return nil, fmt.Errorf("sendgrid mailer: %w", err)
	}
	return m, nil
}

// signingSecret returns the configured secret or 32 random bytes when none is set.
func signingSecret(configured string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	return b, nil
}
