package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists the origins allowed to make cross-origin requests.
	// Empty, or a single "*", allows every origin.
	AllowOrigins []string

	// AllowMethods lists the HTTP methods clients may use in actual
	// requests. Defaults to "GET, POST, DELETE, OPTIONS" when empty.
	AllowMethods []string

	// AllowHeaders lists the request headers clients may send. When empty
	// the preflight's Access-Control-Request-Headers value is echoed back.
	AllowHeaders []string

	// ExposeHeaders lists response headers scripts may read.
	ExposeHeaders []string

	// AllowCredentials permits cookies and auth headers on cross-origin
	// requests. The wildcard origin must not be combined with credentials,
	// so enabling this forces origin echo-back.
	AllowCredentials bool

	// MaxAge is how long, in seconds, browsers may cache preflight results.
	// Zero omits the header; negative sends "0".
	MaxAge int
}

// cors holds the precomputed header values so per-request work is just
// lookups and writes.
type cors struct {
	allowAll         bool
	origins          map[string]string // lowercase -> configured case
	methods          string
	headers          string
	expose           string
	maxAge           string
	allowCredentials bool
}

// CORS returns a middleware handling Cross-Origin Resource Sharing.
// Origin matching is case-insensitive but the configured casing is echoed
// back, and Vary headers are set so shared caches never serve a response
// negotiated for one origin to another.
func CORS(cfg CORSConfig) Middleware {
	c := &cors{
		allowAll:         len(cfg.AllowOrigins) == 0,
		origins:          make(map[string]string, len(cfg.AllowOrigins)),
		methods:          strings.Join(cfg.AllowMethods, ", "),
		headers:          strings.Join(cfg.AllowHeaders, ", "),
		expose:           strings.Join(cfg.ExposeHeaders, ", "),
		allowCredentials: cfg.AllowCredentials,
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			c.allowAll = true
			break
		}
		c.origins[strings.ToLower(o)] = o
	}
	// Credentials may not be combined with the wildcard origin; echo the
	// request origin instead.
	if c.allowCredentials && c.allowAll {
		c.allowAll = false
	}
	if c.methods == "" {
		c.methods = "GET, POST, DELETE, OPTIONS"
	}
	switch {
	case cfg.MaxAge > 0:
		c.maxAge = strconv.Itoa(cfg.MaxAge)
	case cfg.MaxAge < 0:
		c.maxAge = "0"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Same-origin request. Still vary on Origin so a cache keyed
			// without it does not later serve this response cross-origin.
			if origin == "" {
				if !c.allowAll {
					w.Header().Add("Vary", "Origin")
				}
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				c.preflight(w, r, origin)
				return
			}

			c.actual(w, origin)
			next.ServeHTTP(w, r)
		})
	}
}

// preflight answers an OPTIONS probe without invoking the next handler.
func (c *cors) preflight(w http.ResponseWriter, r *http.Request, origin string) {
	h := w.Header()
	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")

	allowOrigin := c.match(origin)
	if allowOrigin == "" {
		// Disallowed origin: 204 with no CORS headers lets the browser
		// surface the failure.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.Set("Access-Control-Allow-Origin", allowOrigin)
	h.Set("Access-Control-Allow-Methods", c.methods)

	if c.headers != "" {
		h.Set("Access-Control-Allow-Headers", c.headers)
	} else if rh := r.Header.Get("Access-Control-Request-Headers"); rh != "" {
		h.Set("Access-Control-Allow-Headers", rh)
	}

	if c.allowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if c.maxAge != "" {
		h.Set("Access-Control-Max-Age", c.maxAge)
	}

	w.WriteHeader(http.StatusNoContent)
}

// actual decorates a simple or actual cross-origin request.
func (c *cors) actual(w http.ResponseWriter, origin string) {
	if !c.allowAll {
		w.Header().Add("Vary", "Origin")
	}

	allowOrigin := c.match(origin)
	if allowOrigin == "" {
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
	if c.allowCredentials {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	if c.expose != "" {
		w.Header().Set("Access-Control-Expose-Headers", c.expose)
	}
}

// match returns the Access-Control-Allow-Origin value for origin, or ""
// when the origin is not allowed.
func (c *cors) match(origin string) string {
	if c.allowAll {
		return "*"
	}
	if configured, ok := c.origins[strings.ToLower(origin)]; ok {
		return configured
	}
	return ""
}
