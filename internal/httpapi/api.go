// Package httpapi exposes the authorization gate and its supporting
// operations over HTTP.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"arventa.group/internal/auth"
	"arventa.group/internal/gate"
	"arventa.group/internal/obs"
	"arventa.group/internal/otp"
	"arventa.group/internal/profile"
	"arventa.group/internal/rbac"
	"arventa.group/internal/stream"
)

// ReadyProbe checks backing-store readiness, typically a DB ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config wires the API to its services.
type Config struct {
	Version  string
	Ready    ReadyProbe
	Auth     *auth.Service
	Gate     *gate.Gate
	OTP      *otp.Verifier
	Resolver *rbac.Resolver
	RBAC     rbac.Store
	Profiles *profile.Resolver
	Events   *stream.Stream
}

// API is the HTTP layer.
type API struct {
	mux      *http.ServeMux
	version  string
	ready    ReadyProbe
	auth     *auth.Service
	gate     *gate.Gate
	otp      *otp.Verifier
	resolver *rbac.Resolver
	rbac     rbac.Store
	profiles *profile.Resolver
	events   *stream.Stream
}

// New registers all routes.
func New(cfg Config) *API {
	a := &API{
		mux:      http.NewServeMux(),
		version:  cfg.Version,
		ready:    cfg.Ready,
		auth:     cfg.Auth,
		gate:     cfg.Gate,
		otp:      cfg.OTP,
		resolver: cfg.Resolver,
		rbac:     cfg.RBAC,
		profiles: cfg.Profiles,
		events:   cfg.Events,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// identity
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)

	// second factor
	a.mux.HandleFunc("/v1/stepup/request", a.handleStepUpRequest)
	a.mux.HandleFunc("/v1/stepup/verify", a.handleStepUpVerify)

	// gate
	a.mux.HandleFunc("/v1/gate/evaluate", a.handleGateEvaluate)

	// session change stream (SSE)
	a.mux.HandleFunc("/v1/session/events", a.Stream)

	// administration
	a.mux.HandleFunc("/v1/permissions", a.handlePermissions)
	a.mux.HandleFunc("/v1/roles/", a.handleRoleResource)
	a.mux.HandleFunc("/v1/profiles/", a.handleProfileResource)
	a.mux.HandleFunc("/v1/members", a.handleMembers)
	a.mux.HandleFunc("/v1/members/", a.handleMemberResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler wraps the mux with authentication and metrics.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.withAuth(a.mux))
}

// --- basic handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "arventa-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
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
		"name":    "arventa-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
