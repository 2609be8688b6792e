package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

// Identity headers forwarded to upstreams for requests the gate allowed.
// Client-supplied values are always stripped.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// ProxyOptions configures an upstream reverse proxy.
type ProxyOptions struct {
	Target *url.URL
	// StripPrefix is removed from the request path before forwarding.
	StripPrefix string
	// InjectBearer copies the credential cookie into an Authorization header
	// when the caller did not send one.
	InjectBearer bool
	Cookies      CookieSettings
	Transport    http.RoundTripper
	Logger       *slog.Logger
}

// NewUpstreamProxy returns a reverse proxy to opts.Target. Transport failures
// answer 502 {"error":"upstream_unavailable"}.
func NewUpstreamProxy(opts ProxyOptions) (http.Handler, error) {
	if opts.Target == nil || opts.Target.Scheme == "" || opts.Target.Host == "" {
		return nil, errors.New("proxy target must be an absolute URL")
	}
	cookies := opts.Cookies.withDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "proxy", "upstream", opts.Target.Host)

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			if opts.StripPrefix != "" {
				stripPrefix(pr.Out.URL, opts.StripPrefix)
			}
			pr.SetURL(opts.Target)
			pr.SetXForwarded()

			pr.Out.Header.Del(HeaderUserID)
			pr.Out.Header.Del(HeaderUserRole)
			if id, ok := IdentityFromContext(pr.In.Context()); ok {
				pr.Out.Header.Set(HeaderUserID, id.ID)
				pr.Out.Header.Set(HeaderUserRole, string(id.Role))
			}
			if rid := RequestIDFromContext(pr.In.Context()); rid != "" {
				pr.Out.Header.Set(HeaderRequestID, rid)
			}

			if opts.InjectBearer && pr.Out.Header.Get("Authorization") == "" {
				if token := cookies.token(pr.In); token != "" {
					pr.Out.Header.Set("Authorization", "Bearer "+token)
				}
			}
		},
		Transport: opts.Transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.WarnContext(r.Context(), "upstream request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"error", err,
			)
			WriteError(w, ErrorParams{
				Code:    http.StatusBadGateway,
				ErrCode: "upstream_unavailable",
				Err:     errors.New("upstream unavailable"),
			})
		},
	}
	return rp, nil
}

func stripPrefix(u *url.URL, prefix string) {
	prefix = strings.TrimSuffix(prefix, "/")
	p := strings.TrimPrefix(u.Path, prefix)
	if p == "" || p[0] != '/' {
		p = "/" + p
	}
	u.Path = p
	if u.RawPath != "" {
		rp := strings.TrimPrefix(u.RawPath, prefix)
		if rp == "" || rp[0] != '/' {
			rp = "/" + rp
		}
		u.RawPath = rp
	}
}
