package httpmiddleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// RateLimitConfig configures the per-client sliding window limiter.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	// KeyFunc identifies the client. Defaults to the client IP.
	KeyFunc func(*http.Request) string
}

// slidingCounter approximates a sliding window from two aligned fixed
// windows: the previous one is weighted by how much of it the sliding window
// still covers.
type slidingCounter struct {
	start      time.Time
	prev, curr float64
}

func (c *slidingCounter) advance(now time.Time, window time.Duration) {
	if now.Sub(c.start) < window {
		return
	}
	if now.Sub(c.start) < 2*window {
		c.prev = c.curr
	} else {
		c.prev = 0
	}
	c.curr = 0
	c.start = now.Truncate(window)
}

func (c *slidingCounter) count(now time.Time, window time.Duration) float64 {
	weight := 1 - float64(now.Sub(c.start))/float64(window)
	return c.prev*max(weight, 0) + c.curr
}

type rateDecision struct {
	allowed   bool
	remaining int
	reset     time.Time
}

type limiter struct {
	cfg      RateLimitConfig
	now      func() time.Time
	mu       sync.Mutex
	counters map[string]*slidingCounter
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	return &limiter{
		cfg:      cfg,
		now:      time.Now,
		counters: make(map[string]*slidingCounter),
	}
}

func (l *limiter) take(key string) rateDecision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[key]
	if !ok {
		c = &slidingCounter{start: now.Truncate(l.cfg.Window)}
		l.counters[key] = c
	}
	c.advance(now, l.cfg.Window)

	d := rateDecision{reset: c.start.Add(l.cfg.Window)}
	used := c.count(now, l.cfg.Window)
	if used >= float64(l.cfg.Max) {
		return d
	}
	c.curr++
	d.allowed = true
	d.remaining = max(int(float64(l.cfg.Max)-used-1), 0)
	return d
}

// evict drops counters with no requests in the last two windows.
func (l *limiter) evict() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, c := range l.counters {
		if now.Sub(c.start) >= 2*l.cfg.Window {
			delete(l.counters, key)
		}
	}
}

func (l *limiter) runEviction(ctx context.Context) {
	ticker := time.NewTicker(2 * l.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict()
		}
	}
}

// RateLimit limits each client to cfg.Max requests per sliding cfg.Window.
// Responses carry X-RateLimit-* headers; rejected requests get a 429 JSON
// error with Retry-After. Counters are never evicted, see
// RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newLimiter(cfg).middleware
}

// RateLimitWithCleanup is RateLimit with idle counters evicted in the
// background until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go l.runEviction(ctx)
	return l.middleware
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.cfg.KeyFunc(r)
		d := l.take(key)

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.reset.Unix(), 10))
		if d.allowed {
			next.ServeHTTP(w, r)
			return
		}

		retry := max(d.reset.Sub(l.now()), 0)
		h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		zctx.From(r.Context()).Debug("Rate limited",
			zap.String("key", key),
			zap.Duration("retry_after", retry),
		)
		WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})
}

const bearerPrefix = "Bearer "

// BearerKeyFunc keys requests by a digest of their bearer token so every
// signed-in device gets its own budget. Requests without a token fall back to
// the client IP.
func BearerKeyFunc(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) <= len(bearerPrefix) || !strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return clientIP(r)
	}
	sum := sha256.Sum256([]byte(h[len(bearerPrefix):]))
	return "bearer:" + hex.EncodeToString(sum[:8])
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
