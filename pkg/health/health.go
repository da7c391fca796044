// Package health serves /livez and /readyz for the detail server.
//
// Checks run periodically in the background; endpoints only report the last
// known state. A check turns unhealthy after a run of consecutive failures
// and healthy again after a run of consecutive successes.
package health

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// CheckFunc returns nil when the checked dependency is usable.
type CheckFunc func(ctx context.Context) error

const (
	defaultFailureThreshold = 3
	defaultSuccessThreshold = 1
)

// monitor is one registered check and its current state.
type monitor struct {
	name    string
	timeout time.Duration
	check   CheckFunc

	failureThreshold int
	successThreshold int

	mu      sync.Mutex
	ok      bool
	streak  int // consecutive results agreeing with the last one, signed: >0 successes, <0 failures
	lastErr error
}

func (p *monitor) healthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ok
}

func (p *monitor) lastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// failure returns the message reported for an unhealthy monitor.
func (p *monitor) failure() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.ok:
		return "", false
	case p.lastErr != nil:
		return p.lastErr.Error(), true
	default:
		return "check is unhealthy", true
	}
}

func (p *monitor) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.check(checkCtx)
	cancel()

	p.mu.Lock()
	was := p.ok
	p.lastErr = err
	if err != nil {
		p.streak = min(p.streak, 0) - 1
		if -p.streak >= p.failureThreshold {
			p.ok = false
		}
	} else {
		p.streak = max(p.streak, 0) + 1
		if p.streak >= p.successThreshold {
			p.ok = true
		}
	}
	now := p.ok
	p.mu.Unlock()

	if was == now {
		return
	}
	lg := zctx.From(ctx).With(zap.String("check", p.name))
	if now {
		lg.Info("Health check recovered")
	} else {
		lg.Warn("Health check failing", zap.Error(err))
	}
}

// CheckOption tunes a registered check.
type CheckOption func(p *monitor)

// WithThresholds sets how many consecutive failures mark a check unhealthy
// and how many consecutive successes mark it healthy. Defaults are 3 and 1.
func WithThresholds(failure, success int) CheckOption {
	return func(p *monitor) {
		if failure > 0 {
			p.failureThreshold = failure
		}
		if success > 0 {
			p.successThreshold = success
		}
	}
}

// Health holds the registered checks and the manual readiness flag.
// Register checks before Start.
type Health struct {
	accepting atomic.Bool

	mu        sync.RWMutex
	liveness  []*monitor
	readiness []*monitor
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New returns a Health that reports not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check for /livez.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc, opts ...CheckOption) {
	p := newMonitor(name, timeout, check, opts)
	h.mu.Lock()
	h.liveness = append(h.liveness, p)
	h.mu.Unlock()
}

// AddReadinessCheck registers a check for /readyz, e.g. the product API or
// the token store.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc, opts ...CheckOption) {
	p := newMonitor(name, timeout, check, opts)
	h.mu.Lock()
	h.readiness = append(h.readiness, p)
	h.mu.Unlock()
}

func newMonitor(name string, timeout time.Duration, check CheckFunc, opts []CheckOption) *monitor {
	p := &monitor{
		name:             name,
		timeout:          timeout,
		check:            check,
		failureThreshold: defaultFailureThreshold,
		successThreshold: defaultSuccessThreshold,
		ok:               true,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Start runs every check now and then every interval until Stop or ctx is
// done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	monitors := slices.Concat(h.liveness, h.readiness)
	h.mu.Unlock()

	for _, p := range monitors {
		h.wg.Go(func() { poll(ctx, p, interval) })
	}
}

func poll(ctx context.Context, p *monitor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.run(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels the background checks and waits for them to return. It may be
// called more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.mu.Unlock()
	h.wg.Wait()
}

// SetReady sets the manual readiness flag: true once wiring is done, false
// when draining before shutdown.
func (h *Health) SetReady(ready bool) {
	h.accepting.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	if !h.accepting.Load() {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, p := range h.readiness {
		if !p.healthy() {
			return false
		}
	}
	return true
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	failures := collectFailures(h.liveness)
	h.mu.RUnlock()

	writeResponse(w, failures)
}

// ReadyEndpoint serves /readyz. A service not marked ready reports the
// pseudo-check "_readiness".
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	failures := collectFailures(h.readiness)
	h.mu.RUnlock()

	if !h.accepting.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeResponse(w, failures)
}

func collectFailures(monitors []*monitor) map[string]string {
	failures := make(map[string]string)
	for _, p := range monitors {
		if msg, failed := p.failure(); failed {
			failures[p.name] = msg
		}
	}
	return failures
}

// writeResponse writes {"status":"ok"} with 200, or
// {"status":"unhealthy","checks":{name: error}} with 503.
func writeResponse(w http.ResponseWriter, failures map[string]string) {
	code := http.StatusOK
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.Obj(func(e *jx.Encoder) {
		if len(failures) == 0 {
			e.Field("status", func(e *jx.Encoder) { e.Str("ok") })
			return
		}
		code = http.StatusServiceUnavailable
		e.Field("status", func(e *jx.Encoder) { e.Str("unhealthy") })
		e.Field("checks", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, name := range slices.Sorted(maps.Keys(failures)) {
					e.Field(name, func(e *jx.Encoder) { e.Str(failures[name]) })
				}
			})
		})
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
