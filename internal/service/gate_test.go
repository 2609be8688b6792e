package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/lms-gateway/internal/domain/access"
	domainauth "github.com/target/lms-gateway/internal/domain/auth"
	"github.com/target/lms-gateway/internal/mocks"
	mockauth "github.com/target/lms-gateway/internal/mocks/auth"
	"github.com/target/lms-gateway/internal/observability/statsd"
	"github.com/target/lms-gateway/internal/ports"
	"go.uber.org/mock/gomock"
)

func newTestGate(t *testing.T, r ports.IdentityResolver, sink statsd.Sink) *AccessGate {
	t.Helper()
	g, err := NewAccessGate(AccessGateOptions{Resolver: r, Metrics: sink})
	require.NoError(t, err)
	return g
}

func TestNewAccessGate_RequiresResolver(t *testing.T) {
	_, err := NewAccessGate(AccessGateOptions{})
	require.Error(t, err)
}

func TestAccessGate_Defaults(t *testing.T) {
	g := newTestGate(t, mockauth.NewStaticResolver(), nil)
	assert.Equal(t, "/login", g.LoginPath())
	assert.Equal(t, "/", g.HomePath())
}

func TestAccessGate_DecisionTable(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		token      string
		wantDec    access.Decision
		wantReason access.Reason
		wantTo     string
	}{
		{"anon admin", "/admin/users", "", access.DecisionRedirectLogin, access.ReasonNoCredential, "/login"},
		{"anon home", "/", "", access.DecisionRedirectLogin, access.ReasonNoCredential, "/login"},
		{"anon login page", "/login", "", access.DecisionAllow, access.ReasonNoCredential, ""},
		{"anon public", "/about", "", access.DecisionAllow, access.ReasonNoCredential, ""},
		{"invalid token on subject", "/subject/7", "expired", access.DecisionRedirectLogin, access.ReasonInvalidCredential, "/login"},
		{"invalid token on register", "/register", "expired", access.DecisionAllow, access.ReasonInvalidCredential, ""},
		{"admin on admin", "/admin", "admin", access.DecisionAllow, access.ReasonAuthorized, ""},
		{"instructor on admin", "/admin/users", "instructor", access.DecisionRedirectHome, access.ReasonInsufficientRole, "/"},
		{"student on instructor", "/instructor/courses", "student", access.DecisionRedirectHome, access.ReasonInsufficientRole, "/"},
		{"admin on instructor", "/instructor/courses", "admin", access.DecisionAllow, access.ReasonAuthorized, ""},
		{"student on login", "/login", "student", access.DecisionRedirectHome, access.ReasonAlreadyAuthenticated, "/"},
		{"student on profile", "/profile/edit", "student", access.DecisionAllow, access.ReasonAuthorized, ""},
		{"whitespace token", "/", "   ", access.DecisionRedirectLogin, access.ReasonNoCredential, "/login"},
	}

	g := newTestGate(t, mockauth.NewStaticResolver(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := g.Evaluate(context.Background(), tt.path, tt.token)
			assert.Equal(t, tt.wantDec, out.Decision)
			assert.Equal(t, tt.wantReason, out.Reason)
			assert.Equal(t, tt.wantTo, out.RedirectTo)
		})
	}
}

func TestAccessGate_UpstreamFailure(t *testing.T) {
	r := mockauth.NewStaticResolver()
	r.Err = fmt.Errorf("dial tcp: %w", ports.ErrUpstreamUnavailable)
	g := newTestGate(t, r, nil)

	protected := g.Evaluate(context.Background(), "/admin", "admin")
	assert.Equal(t, access.DecisionRedirectLogin, protected.Decision)
	assert.Equal(t, access.ReasonUpstreamUnavailable, protected.Reason)
	assert.False(t, protected.Authenticated())

	public := g.Evaluate(context.Background(), "/login", "admin")
	assert.Equal(t, access.DecisionAllow, public.Decision)
	assert.Equal(t, access.ReasonUpstreamUnavailable, public.Reason)
}

func TestAccessGate_Trail(t *testing.T) {
	g := newTestGate(t, mockauth.NewStaticResolver(), nil)

	anon := g.Evaluate(context.Background(), "/admin", "")
	assert.Equal(t, []access.State{
		access.StateStart,
		access.StateCredentialCheck,
		access.StateRouteClassification,
		access.StateRedirectLogin,
	}, anon.Trail)

	authed := g.Evaluate(context.Background(), "/admin", "student")
	assert.Equal(t, []access.State{
		access.StateStart,
		access.StateCredentialCheck,
		access.StateIdentityResolution,
		access.StateRouteClassification,
		access.StateRedirectHome,
	}, authed.Trail)
	require.NotNil(t, authed.Identity)
	assert.Equal(t, domainauth.RoleStudent, authed.Identity.Role)
}

func TestAccessGate_ResolvesExactlyOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	resolver := mocks.NewMockIdentityResolver(ctrl)
	resolver.EXPECT().
		Resolve(gomock.Any(), "tok").
		Return(domainauth.Identity{ID: "1", Role: domainauth.RoleAdmin}, nil).
		Times(1)

	g := newTestGate(t, resolver, nil)
	out := g.Evaluate(context.Background(), "/admin/settings", "tok")
	assert.Equal(t, access.DecisionAllow, out.Decision)
}

func TestAccessGate_NoLookupWithoutCredential(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	resolver := mocks.NewMockIdentityResolver(ctrl)
	resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Times(0)

	g := newTestGate(t, resolver, nil)
	out := g.Evaluate(context.Background(), "/admin", "")
	assert.Equal(t, access.DecisionRedirectLogin, out.Decision)
}

func TestAccessGate_CustomPathsAndRules(t *testing.T) {
	classifier, err := access.NewClassifier(access.RuleSet{
		Admin:     []string{"/ops/:path*"},
		GuestOnly: []string{"/signin"},
	})
	require.NoError(t, err)

	g, err := NewAccessGate(AccessGateOptions{
		Resolver:   mockauth.NewStaticResolver(),
		Classifier: classifier,
		LoginPath:  "/signin",
		HomePath:   "/dashboard",
	})
	require.NoError(t, err)

	assert.Equal(t, "/signin", g.Evaluate(context.Background(), "/ops/x", "").RedirectTo)
	assert.Equal(t, "/dashboard", g.Evaluate(context.Background(), "/ops/x", "student").RedirectTo)
	assert.Equal(t, access.DecisionAllow, g.Evaluate(context.Background(), "/admin", "").Decision)
}

func TestAccessGate_EmitsMetrics(t *testing.T) {
	var rec statsd.Recorder
	g := newTestGate(t, mockauth.NewStaticResolver(), &rec)

	g.Evaluate(context.Background(), "/admin", "instructor")

	decisions := rec.Named("gate.decision")
	require.Len(t, decisions, 1)
	assert.Equal(t, "redirect_home", decisions[0].Tags["decision"])
	assert.Equal(t, "admin-only", decisions[0].Tags["class"])
	assert.Equal(t, "insufficient_role", decisions[0].Tags["reason"])
	assert.Len(t, rec.Named("gate.identity.duration"), 1)
}
