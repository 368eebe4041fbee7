package httpapi

import (
	"context"
	"net/http"
	"time"

	"taskhive.org/internal/auth"
	"taskhive.org/internal/obs"
	"taskhive.org/internal/session"
	"taskhive.org/internal/task"
)

// Pinger reports backing-store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks the document store for the readiness endpoint. A nil
// Store means "always ready" (in-memory mode).
type ReadyProbe struct {
	Store Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Store == nil {
		return nil
	}
	return rp.Store.Ping(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	users      *auth.Service
	tasks      *task.Service
	codec      *session.Codec
	readyProbe ReadyProbe
	version    string

	cookieSecure bool
	maxBodyBytes int64
	rateBurst    int
	ratePerSec   int
}

// Option tunes transport-level behavior.
type Option func(*API)

// WithCookieSecure controls the Secure attribute on issued cookies; disable
// for plain-HTTP development only.
func WithCookieSecure(secure bool) Option {
	return func(a *API) { a.cookieSecure = secure }
}

// WithRateLimit overrides the per-IP token bucket.
func WithRateLimit(burst, perSec int) Option {
	return func(a *API) {
		if burst > 0 {
			a.rateBurst = burst
		}
		if perSec > 0 {
			a.ratePerSec = perSec
		}
	}
}

// WithMaxBodyBytes overrides the request body limit.
func WithMaxBodyBytes(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxBodyBytes = n
		}
	}
}

// New wires the routes.
func New(users *auth.Service, tasks *task.Service, codec *session.Codec, rp ReadyProbe, version string, opts ...Option) *API {
	a := &API{
		mux:          http.NewServeMux(),
		users:        users,
		tasks:        tasks,
		codec:        codec,
		readyProbe:   rp,
		version:      version,
		cookieSecure: true,
		maxBodyBytes: 16 << 10,
		rateBurst:    20,
		ratePerSec:   10,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.mux.HandleFunc("/users", a.handleUsers)
	a.mux.HandleFunc("/users/", a.handleUsers)
	a.mux.HandleFunc("/tasks", a.handleTasks)
	a.mux.HandleFunc("/tasks/", a.handleTasks)

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler returns the mux wrapped with the middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "taskhive-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "taskhive-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
