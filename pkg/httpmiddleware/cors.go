package httpmiddleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CORSConfig configures CORS.
type CORSConfig struct {
	// AllowOrigins lists allowed origins, matched case-insensitively. Empty or
	// "*" allows any origin.
	AllowOrigins []string
	// AllowMethods defaults to GET, HEAD and OPTIONS.
	AllowMethods []string
	// AllowHeaders lists accepted request headers. Empty echoes the
	// preflight's Access-Control-Request-Headers.
	AllowHeaders []string
	// ExposeHeaders defaults to the request id and rate limit headers.
	ExposeHeaders []string
	// AllowCredentials disables the "*" origin; the request origin is echoed
	// instead.
	AllowCredentials bool
	// MaxAge is how long browsers may cache a preflight result, rounded down
	// to seconds. Zero omits the header.
	MaxAge time.Duration
}

var defaultCORSMethods = []string{http.MethodGet, http.MethodHead, http.MethodOptions}

var defaultExposeHeaders = []string{
	HeaderRequestID,
	"X-RateLimit-Limit",
	"X-RateLimit-Remaining",
	"X-RateLimit-Reset",
	"Retry-After",
}

// corsPolicy is CORSConfig with header values computed once.
type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]string // lower-cased -> configured spelling
	methods     []string
	credentials bool

	allowMethods  string
	allowHeaders  string
	exposeHeaders string
	maxAge        string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		anyOrigin:   len(cfg.AllowOrigins) == 0 || slices.Contains(cfg.AllowOrigins, "*"),
		origins:     make(map[string]string, len(cfg.AllowOrigins)),
		methods:     cfg.AllowMethods,
		credentials: cfg.AllowCredentials,
	}
	if p.credentials {
		p.anyOrigin = false
	}
	for _, o := range cfg.AllowOrigins {
		if o != "*" {
			p.origins[strings.ToLower(o)] = o
		}
	}
	if len(p.methods) == 0 {
		p.methods = defaultCORSMethods
	}
	expose := cfg.ExposeHeaders
	if len(expose) == 0 {
		expose = defaultExposeHeaders
	}

	p.allowMethods = strings.Join(p.methods, ", ")
	p.allowHeaders = strings.Join(cfg.AllowHeaders, ", ")
	p.exposeHeaders = strings.Join(expose, ", ")
	if secs := int(cfg.MaxAge / time.Second); secs > 0 {
		p.maxAge = strconv.Itoa(secs)
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or ""
// when the origin is not allowed.
func (p *corsPolicy) allowOrigin(origin string) string {
	if p.anyOrigin {
		return "*"
	}
	return p.origins[strings.ToLower(origin)]
}

func (p *corsPolicy) preflight(w http.ResponseWriter, r *http.Request, allowOrigin string) {
	h := w.Header()
	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")

	method := r.Header.Get("Access-Control-Request-Method")
	if allowOrigin == "" || !slices.Contains(p.methods, method) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.Set("Access-Control-Allow-Origin", allowOrigin)
	h.Set("Access-Control-Allow-Methods", p.allowMethods)
	switch {
	case p.allowHeaders != "":
		h.Set("Access-Control-Allow-Headers", p.allowHeaders)
	case r.Header.Get("Access-Control-Request-Headers") != "":
		h.Set("Access-Control-Allow-Headers", r.Header.Get("Access-Control-Request-Headers"))
	}
	if p.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if p.maxAge != "" {
		h.Set("Access-Control-Max-Age", p.maxAge)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (p *corsPolicy) actual(w http.ResponseWriter, allowOrigin string) {
	h := w.Header()
	if !p.anyOrigin {
		h.Add("Vary", "Origin")
	}
	if allowOrigin == "" {
		return
	}
	h.Set("Access-Control-Allow-Origin", allowOrigin)
	h.Set("Access-Control-Expose-Headers", p.exposeHeaders)
	if p.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

// CORS answers preflight requests itself and decorates every other response
// that carries an Origin header. Preflights for origins or methods outside
// the policy get a bare 204.
func CORS(cfg CORSConfig) Middleware {
	p := newCORSPolicy(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				if !p.anyOrigin {
					w.Header().Add("Vary", "Origin")
				}
				next.ServeHTTP(w, r)
				return
			}

			allowOrigin := p.allowOrigin(origin)
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				p.preflight(w, r, allowOrigin)
				return
			}
			p.actual(w, allowOrigin)
			next.ServeHTTP(w, r)
		})
	}
}
