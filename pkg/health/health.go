// Package health runs background liveness and readiness checks for the API
// process and serves them on /livez and /readyz.
//
// A check flips to failing after failureThreshold consecutive errors and
// back after one success, so a single slow database round trip does not
// take the instance out of rotation. Optional checks cover dependencies
// the API degrades without, such as the stats cache or the preview store:
// they are reported but never fail readiness.
package health

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

const failureThreshold = 3

// Response statuses.
const (
	StatusOK        = "ok"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// ErrUnknownCheck is returned by CheckNow for a name that was never registered.
var ErrUnknownCheck = errors.New("unknown health check")

// CheckFunc reports the condition of one dependency.
type CheckFunc func(ctx context.Context) error

type check struct {
	name     string
	timeout  time.Duration
	fn       CheckFunc
	optional bool

	// failing and lastErr are read by handlers while run updates them.
	failing atomic.Bool
	lastErr atomic.Pointer[error]
	// fails is owned by the goroutine calling run.
	fails int
}

func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	c.lastErr.Store(&err)
	if err == nil {
		c.fails = 0
		c.failing.Store(false)
		return
	}
	c.fails++
	if c.fails >= failureThreshold {
		c.failing.Store(true)
	}
}

// message returns the failure shown in the response body, or "" while the
// check passes.
func (c *check) message() string {
	if !c.failing.Load() {
		return ""
	}
	if p := c.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error()
	}
	return "check is failing"
}

// Health holds the registered checks and the manual readiness flag.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
}

// New returns a Health that reports not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a process-level check, such as goroutine
// count or GC pauses.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, &check{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a dependency the API cannot serve orders
// without, such as the database.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.addReadiness(&check{name: name, timeout: timeout, fn: fn})
}

// AddOptionalCheck registers a dependency the API degrades without. Its
// failures mark /readyz as degraded but keep it at 200.
func (h *Health) AddOptionalCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.addReadiness(&check{name: name, timeout: timeout, fn: fn, optional: true})
}

func (h *Health) addReadiness(c *check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, c)
}

// Start runs every check now and then once per interval until Stop or
// until ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := slices.Concat(h.liveness, h.readiness)
	h.mu.Unlock()

	for _, c := range checks {
		go loop(ctx, c, interval)
	}
}

func loop(ctx context.Context, c *check, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.run(ctx)
		}
	}
}

// Stop ends the background checks. It is safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady sets the manual readiness flag: true once wiring is done, false
// when draining before shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// CheckNow runs the named readiness check once and returns its result. The
// background state is left alone, so /health sees the current condition of
// the database while /readyz stays smoothed.
func (h *Health) CheckNow(ctx context.Context, name string) error {
	h.mu.RLock()
	idx := slices.IndexFunc(h.readiness, func(c *check) bool { return c.name == name })
	var c *check
	if idx >= 0 {
		c = h.readiness[idx]
	}
	h.mu.RUnlock()

	if c == nil {
		return errors.Wrap(ErrUnknownCheck, name)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.fn(ctx)
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := slices.Clone(h.liveness)
	h.mu.RUnlock()

	writeReport(w, newReport(checks))
}

// ReadyEndpoint serves /readyz. It fails while the instance is marked not
// ready or any required readiness check is failing.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := slices.Clone(h.readiness)
	h.mu.RUnlock()

	r := newReport(checks)
	if !h.ready.Load() {
		r.failed["_readiness"] = "service is not ready"
	}
	writeReport(w, r)
}

type report struct {
	failed   map[string]string
	degraded map[string]string
}

func newReport(checks []*check) report {
	r := report{failed: map[string]string{}, degraded: map[string]string{}}
	for _, c := range checks {
		msg := c.message()
		switch {
		case msg == "":
		case c.optional:
			r.degraded[c.name] = msg
		default:
			r.failed[c.name] = msg
		}
	}
	return r
}

func (r report) status() (string, int) {
	switch {
	case len(r.failed) > 0:
		return StatusUnhealthy, http.StatusServiceUnavailable
	case len(r.degraded) > 0:
		return StatusDegraded, http.StatusOK
	default:
		return StatusOK, http.StatusOK
	}
}

func writeReport(w http.ResponseWriter, r report) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	status, code := r.status()
	checks := maps.Clone(r.degraded)
	maps.Copy(checks, r.failed)
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str(status) })
		if len(checks) == 0 {
			return
		}
		e.Field("checks", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, name := range slices.Sorted(maps.Keys(checks)) {
					e.Field(name, func(e *jx.Encoder) { e.Str(checks[name]) })
				}
			})
		})
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
