package bootstrap

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/lms-gateway/config"
	"github.com/target/lms-gateway/internal/adapters/mailer"
	"github.com/target/lms-gateway/internal/testutil"
)

func loadTestConfig(t *testing.T, vars map[string]string) *config.AppConfig {
	t.Helper()
	var cfg config.AppConfig
	require.NoError(t, env.ParseWithOptions(&cfg, env.Options{Environment: vars}))
	cfg.Sanitize()
	require.NoError(t, cfg.Validate())
	return &cfg
}

func TestGetEnabledServices(t *testing.T) {
	assert.Empty(t, GetEnabledServices(nil))

	cfg := &config.AppConfig{Services: "dev-backend,gateway"}
	assert.Equal(t, []string{"dev-backend", "gateway"}, GetEnabledServices(cfg))

	cfg.Services = "bogus"
	assert.Empty(t, GetEnabledServices(cfg))
}

func TestBuildStores(t *testing.T) {
	users, tokens, err := buildStores(config.StoreMemory, "lms:", nil)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.NotNil(t, tokens)

	_, _, err = buildStores(config.StoreRedis, "lms:", nil)
	require.Error(t, err)

	_, client := testutil.NewMiniRedis(t)
	users, tokens, err = buildStores(config.StoreRedis, "lms:", client)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.NotNil(t, tokens)

	_, _, err = buildStores(config.StoreKind("sqlite"), "lms:", nil)
	require.Error(t, err)
}

func TestSigningSecret(t *testing.T) {
	s, err := signingSecret("configured")
	require.NoError(t, err)
	assert.Equal(t, []byte("configured"), s)

	a, err := signingSecret("")
	require.NoError(t, err)
	b, err := signingSecret("")
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestBuildMailer(t *testing.T) {
	m, err := buildMailer(config.MailConfig{From: "noreply@lms.local"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &mailer.LogMailer{}, m)

	m, err = buildMailer(config.MailConfig{SendGridAPIKey: "key", From: "noreply@lms.local"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &mailer.SendGridMailer{}, m)
}

func TestNewServices_RequiresConfig(t *testing.T) {
	_, err := NewServices(context.Background(), ServiceDeps{})
	require.Error(t, err)
}

func TestNewServices_RedisStoreWithoutClient(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{
		"SERVICES":          "dev-backend",
		"DEV":               "true",
		"DEV_BACKEND_STORE": "redis",
		"DEV_BACKEND_SEED":  "false",
	})
	_, err := NewServices(context.Background(), ServiceDeps{Config: cfg})
	require.Error(t, err)
}

// TestGatewayAgainstDevBackend wires both services the way main does and
// walks a login through the gateway.
func TestGatewayAgainstDevBackend(t *testing.T) {
	ctx := context.Background()

	devCfg := loadTestConfig(t, map[string]string{
		"SERVICES": "dev-backend",
		"DEV":      "true",
	})
	dev, err := NewServices(ctx, ServiceDeps{Config: devCfg})
	require.NoError(t, err)
	require.Nil(t, dev.Gateway)
	require.NotNil(t, dev.DevBackend)
	defer func() { assert.NoError(t, dev.Close()) }()

	backendSrv := httptest.NewServer(dev.DevBackend)
	defer backendSrv.Close()

	gwCfg := loadTestConfig(t, map[string]string{
		"SERVICES":    "gateway",
		"BACKEND_URL": backendSrv.URL,
	})
	gw, err := NewServices(ctx, ServiceDeps{Config: gwCfg})
	require.NoError(t, err)
	require.NotNil(t, gw.Gateway)
	require.Nil(t, gw.DevBackend)

	login := func(email string) *http.Cookie {
		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"`+email+`","password":"password123"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		gw.Gateway.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		for _, c := range rec.Result().Cookies() {
			if c.Name == "access_token" {
				return c
			}
		}
		t.Fatalf("no access_token cookie for %s", email)
		return nil
	}

	visit := func(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rec := httptest.NewRecorder()
		gw.Gateway.ServeHTTP(rec, req)
		return rec
	}

	rec := visit("/admin/users", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	student := login("student@lms.local")
	rec = visit("/admin/users", student)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	admin := login("admin@lms.local")
	rec = visit("/admin/users", admin)
	// Allowed; no UI origin is configured so the page itself is absent.
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var profile *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "user_profile" {
			profile = c
		}
	}
	require.NotNil(t, profile)
	raw, err := url.PathUnescape(profile.Value)
	require.NoError(t, err)
	var id map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &id))
	assert.Equal(t, "admin@lms.local", id["email"])
	assert.Equal(t, "ADMIN", id["role"])
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, []Server{{
			Name:     "test",
			Handler:  http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) }),
			Listener: ln,
		}}, time.Second, nil)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusTeapot
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServe_NoServers(t *testing.T) {
	require.Error(t, Serve(context.Background(), nil, time.Second, nil))
}

func TestServersFor(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.HTTP.Addr = ":8080"
	cfg.DevBackend.Addr = ":8081"

	assert.Empty(t, ServersFor(cfg, ServiceContainer{}))

	servers := ServersFor(cfg, ServiceContainer{Gateway: http.NotFoundHandler(), DevBackend: http.NotFoundHandler()})
	require.Len(t, servers, 2)
	assert.Equal(t, "gateway", servers[0].Name)
	assert.Equal(t, ":8080", servers[0].Addr)
	assert.Equal(t, "dev-backend", servers[1].Name)
	assert.Equal(t, ":8081", servers[1].Addr)
}
