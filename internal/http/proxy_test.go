package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/lms-gateway/internal/domain/auth"
)

type seenRequest struct {
	Path          string
	Query         string
	Authorization string
	UserID        string
	UserRole      string
	RequestID     string
}

func echoUpstream(t *testing.T) (*httptest.Server, *url.URL) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, seenRequest{
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			UserID:        r.Header.Get(HeaderUserID),
			UserRole:      r.Header.Get(HeaderUserRole),
			RequestID:     r.Header.Get(HeaderRequestID),
		})
	}))
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return srv, u
}

func decodeSeen(t *testing.T, rec *httptest.ResponseRecorder) seenRequest {
	t.Helper()
	var seen seenRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &seen))
	return seen
}

func TestNewUpstreamProxy_RequiresTarget(t *testing.T) {
	_, err := NewUpstreamProxy(ProxyOptions{})
	require.Error(t, err)
	_, err = NewUpstreamProxy(ProxyOptions{Target: &url.URL{Path: "/relative"}})
	require.Error(t, err)
}

func TestUpstreamProxy_InjectsBearerAndKeepsPath(t *testing.T) {
	_, target := echoUpstream(t)
	p, err := NewUpstreamProxy(ProxyOptions{Target: target, InjectBearer: true})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/api/subject/3/topics?page=2", nil)
	r.AddCookie(&http.Cookie{Name: DefaultTokenCookie, Value: "tok"})
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	seen := decodeSeen(t, rec)
	assert.Equal(t, "/api/subject/3/topics", seen.Path)
	assert.Equal(t, "page=2", seen.Query)
	assert.Equal(t, "Bearer tok", seen.Authorization)
}

func TestUpstreamProxy_StripsPrefix(t *testing.T) {
	_, target := echoUpstream(t)
	p, err := NewUpstreamProxy(ProxyOptions{Target: target, StripPrefix: "/backend", InjectBearer: true})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/backend/users/me", nil)
	r.AddCookie(&http.Cookie{Name: DefaultTokenCookie, Value: "tok"})
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	seen := decodeSeen(t, rec)
	assert.Equal(t, "/users/me", seen.Path)
	assert.Equal(t, "Bearer tok", seen.Authorization)
}

func TestUpstreamProxy_KeepsExplicitAuthorization(t *testing.T) {
	_, target := echoUpstream(t)
	p, err := NewUpstreamProxy(ProxyOptions{Target: target, InjectBearer: true})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/auth/verify-email", nil)
	r.Header.Set("Authorization", "Bearer explicit")
	r.AddCookie(&http.Cookie{Name: DefaultTokenCookie, Value: "cookie"})
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, r)

	seen := decodeSeen(t, rec)
	assert.Equal(t, "/auth/verify-email", seen.Path)
	assert.Equal(t, "Bearer explicit", seen.Authorization)
}

func TestUpstreamProxy_IdentityHeaders(t *testing.T) {
	_, target := echoUpstream(t)
	p, err := NewUpstreamProxy(ProxyOptions{Target: target})
	require.NoError(t, err)

	// Spoofed headers never reach the upstream.
	r := httptest.NewRequest(http.MethodGet, "/subject/1", nil)
	r.Header.Set(HeaderUserID, "u-admin")
	r.Header.Set(HeaderUserRole, "ADMIN")
	r.AddCookie(&http.Cookie{Name: DefaultTokenCookie, Value: "tok"})
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, r)
	seen := decodeSeen(t, rec)
	assert.Empty(t, seen.UserID)
	assert.Empty(t, seen.UserRole)
	assert.Empty(t, seen.Authorization, "page proxy does not forward the credential")

	// Gate-resolved identities are forwarded.
	id := &domainauth.Identity{ID: "7", Role: domainauth.RoleStudent}
	r = httptest.NewRequest(http.MethodGet, "/subject/1", nil)
	r = r.WithContext(SetIdentityInContext(r.Context(), id))
	rec = httptest.NewRecorder()
	p.ServeHTTP(rec, r)
	seen = decodeSeen(t, rec)
	assert.Equal(t, "7", seen.UserID)
	assert.Equal(t, "STUDENT", seen.UserRole)
}

func TestUpstreamProxy_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)
	srv.Close()

	p, err := NewUpstreamProxy(ProxyOptions{Target: target})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"upstream_unavailable","message":"upstream unavailable"}`, rec.Body.String())
}

func TestStripPrefix(t *testing.T) {
	tests := map[string]string{
		"/backend":              "/",
		"/backend/":             "/",
		"/backend/users/me":     "/users/me",
		"/backend/admin/users/": "/admin/users/",
	}
	for in, want := range tests {
		u := &url.URL{Path: in}
		stripPrefix(u, "/backend")
		assert.Equal(t, want, u.Path, in)
	}
}
