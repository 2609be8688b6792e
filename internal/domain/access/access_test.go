package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/lms-gateway/internal/domain/auth"
)

func TestParsePattern(t *testing.T) {
	tests := []struct {
		in      string
		want    Pattern
		wantErr bool
	}{
		{in: "/", want: Pattern{Path: "/"}},
		{in: "/login", want: Pattern{Path: "/login"}},
		{in: "/login/", want: Pattern{Path: "/login"}},
		{in: "/admin/:path*", want: Pattern{Path: "/admin", Prefix: true}},
		{in: "/:path*", want: Pattern{Path: "/", Prefix: true}},
		{in: "admin", wantErr: true},
		{in: "/admin/:id", wantErr: true},
		{in: "/admin/*", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePattern(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPatternMatch(t *testing.T) {
	admin := Pattern{Path: "/admin", Prefix: true}
	assert.True(t, admin.Match("/admin"))
	assert.True(t, admin.Match("/admin/"))
	assert.True(t, admin.Match("/admin/users/42"))
	assert.False(t, admin.Match("/administrator"))
	assert.False(t, admin.Match("/"))

	root := Pattern{Path: "/"}
	assert.True(t, root.Match("/"))
	assert.False(t, root.Match("/subject"))

	all := Pattern{Path: "/", Prefix: true}
	assert.True(t, all.Match("/anything/at/all"))

	login := Pattern{Path: "/login"}
	assert.True(t, login.Match("/login/"))
	assert.False(t, login.Match("/login/extra"))
}

func TestPatternStringRoundTrip(t *testing.T) {
	for _, s := range []string{"/", "/login", "/admin/:path*", "/:path*"} {
		p, err := ParsePattern(s)
		require.NoError(t, err)
		assert.Equal(t, s, p.String())
	}
}

func TestClassifier_DefaultTable(t *testing.T) {
	c := MustNewClassifier(DefaultRuleSet())

	tests := map[string]Class{
		"/":                 ClassAuthenticated,
		"/subject":          ClassAuthenticated,
		"/subject/12/topic": ClassAuthenticated,
		"/profile":          ClassAuthenticated,
		"/admin":            ClassAdmin,
		"/admin/users":      ClassAdmin,
		"/administrator":    ClassPublic,
		"/instructor/dash":  ClassInstructor,
		"/login":            ClassGuestOnly,
		"/register":         ClassGuestOnly,
		"/about":            ClassPublic,
		"/subjects":         ClassPublic,
	}
	for path, want := range tests {
		assert.Equal(t, want, c.Classify(path), path)
	}
}

func TestClassifier_MostSpecificWins(t *testing.T) {
	c, err := NewClassifier(RuleSet{
		Authenticated: []string{"/:path*"},
		Admin:         []string{"/admin/:path*"},
		GuestOnly:     []string{"/admin/login"},
	})
	require.NoError(t, err)

	assert.Equal(t, ClassAdmin, c.Classify("/admin/users"))
	assert.Equal(t, ClassGuestOnly, c.Classify("/admin/login"))
	assert.Equal(t, ClassAuthenticated, c.Classify("/elsewhere"))
}

func TestClassifier_InvalidPattern(t *testing.T) {
	_, err := NewClassifier(RuleSet{Admin: []string{"admin"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin-only rules")
}

func TestClassifier_Nil(t *testing.T) {
	var c *Classifier
	assert.Equal(t, ClassPublic, c.Classify("/admin"))
	assert.Nil(t, c.Rules())
}

func TestDecide(t *testing.T) {
	admin := &domainauth.Identity{ID: "1", Role: domainauth.RoleAdmin}
	instructor := &domainauth.Identity{ID: "2", Role: domainauth.RoleInstructor}
	student := &domainauth.Identity{ID: "3", Role: domainauth.RoleStudent}

	tests := []struct {
		name       string
		class      Class
		id         *domainauth.Identity
		anon       Reason
		wantDec    Decision
		wantReason Reason
	}{
		{"anon admin path", ClassAdmin, nil, ReasonNoCredential, DecisionRedirectLogin, ReasonNoCredential},
		{"anon general path", ClassAuthenticated, nil, ReasonInvalidCredential, DecisionRedirectLogin, ReasonInvalidCredential},
		{"anon public path", ClassPublic, nil, ReasonUpstreamUnavailable, DecisionAllow, ReasonUpstreamUnavailable},
		{"anon login", ClassGuestOnly, nil, ReasonNoCredential, DecisionAllow, ReasonNoCredential},
		{"admin on admin", ClassAdmin, admin, "", DecisionAllow, ReasonAuthorized},
		{"instructor on admin", ClassAdmin, instructor, "", DecisionRedirectHome, ReasonInsufficientRole},
		{"student on admin", ClassAdmin, student, "", DecisionRedirectHome, ReasonInsufficientRole},
		{"admin on instructor", ClassInstructor, admin, "", DecisionAllow, ReasonAuthorized},
		{"instructor on instructor", ClassInstructor, instructor, "", DecisionAllow, ReasonAuthorized},
		{"student on instructor", ClassInstructor, student, "", DecisionRedirectHome, ReasonInsufficientRole},
		{"student on general", ClassAuthenticated, student, "", DecisionAllow, ReasonAuthorized},
		{"student on public", ClassPublic, student, "", DecisionAllow, ReasonAuthorized},
		{"authenticated on login", ClassGuestOnly, student, "", DecisionRedirectHome, ReasonAlreadyAuthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, reason := Decide(tt.class, tt.id, tt.anon)
			assert.Equal(t, tt.wantDec, dec)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestDecisionState(t *testing.T) {
	assert.Equal(t, StateAllow, DecisionAllow.State())
	assert.Equal(t, StateRedirectLogin, DecisionRedirectLogin.State())
	assert.Equal(t, StateRedirectHome, DecisionRedirectHome.State())
}
