package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/target/lms-gateway/config"
	"golang.org/x/sync/errgroup"
)

const defaultShutdownTimeout = 10 * time.Second

// Server is one named HTTP listener.
type Server struct {
	Name     string
	Addr     string
	Handler  http.Handler
	Listener net.Listener // optional; tests pass a pre-bound listener
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// ServersFor lists the servers the container's enabled services need.
func ServersFor(cfg *config.AppConfig, c ServiceContainer) []Server {
	var servers []Server
	if c.Gateway != nil {
		servers = append(servers, Server{Name: "gateway", Addr: cfg.HTTP.Addr, Handler: c.Gateway})
	}
	if c.DevBackend != nil {
		servers = append(servers, Server{Name: "dev-backend", Addr: cfg.DevBackend.Addr, Handler: c.DevBackend})
	}
	return servers
}

// Serve runs every server until ctx is canceled or one of them fails, then
// shuts all of them down within shutdownTimeout.
func Serve(ctx context.Context, servers []Server, shutdownTimeout time.Duration, logger *slog.Logger) error {
	if len(servers) == 0 {
		return errors.New("no services enabled")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		srv := newHTTPServer(s.Addr, s.Handler)
		name, ln := s.Name, s.Listener

		g.Go(func() error {
			logger.Info("starting HTTP server", "service", name, "addr", srv.Addr)
			var err error
			if ln != nil {
				err = srv.Serve(ln)
			} else {
				err = srv.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s server: %w", name, err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down HTTP server", "service", name)
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown %s server: %w", name, err)
			}
			logger.Info("HTTP server stopped", "service", name)
			return nil
		})
	}
	return g.Wait()
}

// RunServicesWithShutdown serves until SIGINT or SIGTERM.
func RunServicesWithShutdown(cfg *config.AppConfig, c ServiceContainer, logger *slog.Logger) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return Serve(ctx, ServersFor(cfg, c), cfg.HTTP.ShutdownTimeout, logger)
}
