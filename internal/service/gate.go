package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/target/lms-gateway/internal/domain/access"
	domainauth "github.com/target/lms-gateway/internal/domain/auth"
	obserrors "github.com/target/lms-gateway/internal/observability/errors"
	"github.com/target/lms-gateway/internal/observability/metrics"
	"github.com/target/lms-gateway/internal/observability/statsd"
	"github.com/target/lms-gateway/internal/ports"
)

const (
	DefaultLoginPath = "/login"
	DefaultHomePath  = "/"
)

// AccessGateOptions groups dependencies for AccessGate.
type AccessGateOptions struct {
	Resolver   ports.IdentityResolver
	Classifier *access.Classifier
	LoginPath  string
	HomePath   string
	Metrics    statsd.Sink
	Logger     *slog.Logger
}

// AccessGate decides, per request, whether navigation proceeds or redirects.
// It holds no per-request state and is safe for concurrent use.
type AccessGate struct {
	resolver   ports.IdentityResolver
	classifier *access.Classifier
	loginPath  string
	homePath   string
	metrics    statsd.Sink
	logger     *slog.Logger
}

// NewAccessGate constructs an AccessGate. A nil classifier uses the default rule set.
func NewAccessGate(opts AccessGateOptions) (*AccessGate, error) {
	if opts.Resolver == nil {
		return nil, errors.New("access gate requires an identity resolver")
	}
	classifier := opts.Classifier
	if classifier == nil {
		classifier = access.MustNewClassifier(access.DefaultRuleSet())
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessGate{
		resolver:   opts.Resolver,
		classifier: classifier,
		loginPath:  fallback(opts.LoginPath, DefaultLoginPath),
		homePath:   fallback(opts.HomePath, DefaultHomePath),
		metrics:    opts.Metrics,
		logger:     logger.With("component", "access_gate"),
	}, nil
}

// LoginPath returns the redirect target for unauthenticated callers.
func (g *AccessGate) LoginPath() string { return g.loginPath }

// HomePath returns the redirect target for authenticated callers bounced by role or guest-only rules.
func (g *AccessGate) HomePath() string { return g.homePath }

// Evaluate runs the gate state machine for one request. Resolution failures
// never surface as errors: protected paths fail closed and public paths fail open.
func (g *AccessGate) Evaluate(ctx context.Context, path, token string) access.Outcome {
	start := time.Now()
	out := access.Outcome{Trail: []access.State{access.StateStart, access.StateCredentialCheck}}

	anon := access.ReasonNoCredential
	if token = strings.TrimSpace(token); token != "" {
		out.Trail = append(out.Trail, access.StateIdentityResolution)
		id, reason := g.resolve(ctx, token)
		if id != nil {
			out.Identity = id
		} else {
			anon = reason
		}
	}

	out.Trail = append(out.Trail, access.StateRouteClassification)
	out.Class = g.classifier.Classify(path)
	out.Decision, out.Reason = access.Decide(out.Class, out.Identity, anon)
	out.Trail = append(out.Trail, out.Decision.State())

	switch out.Decision {
	case access.DecisionRedirectLogin:
		out.RedirectTo = g.loginPath
	case access.DecisionRedirectHome:
		out.RedirectTo = g.homePath
	}

	metrics.EmitGateDecision(g.metrics, metrics.GateDecision{
		Decision: string(out.Decision),
		Class:    string(out.Class),
		Reason:   string(out.Reason),
		Duration: time.Since(start),
	})
	g.logger.DebugContext(ctx, "gate decision",
		"path", path,
		"class", out.Class,
		"decision", out.Decision,
		"reason", out.Reason,
	)
	return out
}

func (g *AccessGate) resolve(ctx context.Context, token string) (*domainauth.Identity, access.Reason) {
	start := time.Now()
	id, err := g.resolver.Resolve(ctx, token)
	metrics.EmitIdentityLookup(g.metrics, metrics.IdentityLookup{Duration: time.Since(start), Err: err})

	if err == nil {
		return &id, ""
	}
	if errors.Is(err, ports.ErrInvalidCredential) {
		g.logger.DebugContext(ctx, "credential rejected by identity endpoint", "error", err)
		return nil, access.ReasonInvalidCredential
	}
	g.logger.WarnContext(ctx, "identity lookup failed",
		"error", err,
		"error_class", obserrors.Classify(err),
	)
	return nil, access.ReasonUpstreamUnavailable
}

func fallback(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
