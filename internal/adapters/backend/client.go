// Package backend talks to the LMS backend over HTTP: identity lookup for the
// access gate and the credential flows behind the gateway's auth routes.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/target/lms-gateway/internal/domain/auth"
	"github.com/target/lms-gateway/internal/ports"
)

const (
	identityPath = "/users/me"
	loginPath    = "/auth/login"
	registerPath = "/auth/register"

	defaultTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
)

// Config captures the backend location and transport settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// Client resolves identities and performs login/registration against the backend.
type Client struct {
	base   *url.URL
	client *http.Client
}

var (
	_ ports.IdentityResolver = (*Client)(nil)
	_ ports.AuthBackend      = (*Client)(nil)
)

// NewClient builds a backend client. BaseURL must be absolute.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("backend base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend base url %q must be absolute", raw)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{base: base, client: hc}, nil
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

func (c *Client) endpoint(p string) string {
	return c.base.JoinPath(p).String()
}

// Resolve fetches the identity behind token. It makes exactly one request.
// A 5xx answer, a transport failure, or an unusable body wraps
// ports.ErrUpstreamUnavailable; any other non-2xx wraps ports.ErrInvalidCredential.
func (c *Client) Resolve(ctx context.Context, token string) (domainauth.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(identityPath), http.NoBody)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("create identity request: %w: %w", ports.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("identity request failed: %w: %w", ports.ErrUpstreamUnavailable, err)
	}
	body, err := readBody(resp)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("read identity response: %w: %w", ports.ErrUpstreamUnavailable, err)
	}

	if err := statusError("identity", resp, ports.ErrInvalidCredential); err != nil {
		return domainauth.Identity{}, err
	}

	var env identityEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domainauth.Identity{}, fmt.Errorf("decode identity: %w: %w", ports.ErrUpstreamUnavailable, err)
	}
	id, err := env.Identity()
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("decode identity: %w: %w", ports.ErrUpstreamUnavailable, err)
	}
	return id, nil
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, in ports.LoginInput) (ports.TokenPair, error) {
	resp, body, err := c.postJSON(ctx, loginPath, in)
	if err != nil {
		return ports.TokenPair{}, err
	}
	if err := statusError("login", resp, ports.ErrInvalidCredential); err != nil {
		return ports.TokenPair{}, err
	}

	var env tokenEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ports.TokenPair{}, fmt.Errorf("decode login response: %w: %w", ports.ErrUpstreamUnavailable, err)
	}
	if env.AccessToken == "" {
		return ports.TokenPair{}, fmt.Errorf("login response has no access token: %w", ports.ErrUpstreamUnavailable)
	}
	return ports.TokenPair{
		AccessToken:  env.AccessToken,
		RefreshToken: env.RefreshToken,
		ExpiresIn:    time.Duration(env.ExpiresIn) * time.Second,
	}, nil
}

// Register forwards the registration form and relays whatever the backend
// answers, including validation failures.
func (c *Client) Register(ctx context.Context, in ports.RegisterInput) (ports.RelayedResponse, error) {
	resp, body, err := c.postJSON(ctx, registerPath, in)
	if err != nil {
		return ports.RelayedResponse{}, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return ports.RelayedResponse{}, fmt.Errorf("register: backend %s: %w", resp.Status, ports.ErrUpstreamUnavailable)
	}
	return ports.RelayedResponse{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (c *Client) postJSON(ctx context.Context, p string, payload any) (*http.Response, []byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encode %s payload: %w", p, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(p), bytes.NewReader(buf))
	if err != nil {
		return nil, nil, fmt.Errorf("create %s request: %w: %w", p, ports.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s request failed: %w: %w", p, ports.ErrUpstreamUnavailable, err)
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s response: %w: %w", p, ports.ErrUpstreamUnavailable, err)
	}
	return resp, body, nil
}

// statusError maps a non-2xx status to a wrapped sentinel: 5xx means the
// backend is unavailable, anything else is reported as clientErr.
func statusError(op string, resp *http.Response, clientErr error) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%s: backend %s: %w", op, resp.Status, ports.ErrUpstreamUnavailable)
	}
	return fmt.Errorf("%s: backend %s: %w", op, resp.Status, clientErr)
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	closeErr := resp.Body.Close()
	if err != nil {
		if closeErr != nil {
			return nil, errors.Join(err, fmt.Errorf("close response body: %w", closeErr))
		}
		return nil, err
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close response body: %w", closeErr)
	}
	return body, nil
}
