package web

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"time"

	"labconsole/internal/adapters/email"
	"labconsole/internal/adapters/http/middleware"
	"labconsole/internal/adapters/http/perf"
	auditStore "labconsole/internal/adapters/storage/audit"
	"labconsole/internal/application/orchestrators"
	"labconsole/internal/domain/grid"
)

// Deps holds the collaborators of the HTTP handlers.
type Deps struct {
	Lookup       orchestrators.ExperimenterLookup
	Lister       orchestrators.UserLister
	Creator      orchestrators.UserCreator
	Fingerprints orchestrators.Fingerprinter
	AuditStore   auditStore.Store // optional
	Notifier     email.Sender     // optional
	NotifyTo     string
	Welcome      string
	Columns      []grid.Column // defaults to grid.UserColumns()
}

// Options configures the middleware chain.
type Options struct {
	CSRFKey            []byte // generated per process when nil
	Secure             bool
	TrustedOrigins     []string
	SlowRequestMs      int
	RateLimitPerSecond int
}

// Global handler dependencies (set by NewMux)
var deps *Deps

// Global session store instance
var sessions *middleware.SessionStore

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// secureCookies marks session cookies Secure in production.
var secureCookies bool

// DefaultRateLimitPerSecond is used when Options.RateLimitPerSecond is unset.
const DefaultRateLimitPerSecond = 10

// loadCSRFKey returns key, or a random 32-byte key when none is configured.
func loadCSRFKey(key []byte) []byte {
	if key != nil {
		return key
	}
	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic("failed to generate CSRF key: " + err.Error())
	}
	slog.Warn("csrf_key_generated", "detail", "sessions won't survive restart; set LABCONSOLE_CSRF_KEY")
	return key
}

// NewMux wires HTTP handlers for the console.
// PRE: d.Lookup, d.Lister, d.Creator and d.Fingerprints are set
// POST: Returns the handler with the full middleware chain applied
func NewMux(d *Deps, collector *perf.Collector, opts Options) http.Handler {
	if d.Columns == nil {
		d.Columns = grid.UserColumns()
	}
	deps = d
	perfCollector = collector
	sessions = middleware.NewSessionStore()
	secureCookies = opts.Secure

	mux := http.NewServeMux()
	registerRoutes(mux)

	rate := opts.RateLimitPerSecond
	if rate <= 0 {
		rate = DefaultRateLimitPerSecond
	}
	limiter := middleware.NewRateLimiter(rate, time.Second)

	// Apply middleware: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(loadCSRFKey(opts.CSRFKey), opts.Secure, opts.TrustedOrigins),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(collector, opts.SlowRequestMs),
	)
}

// registerRoutes maps every console route. Gated routes redirect to /login
// unless the session's experimenter is authenticated.
func registerRoutes(mux *http.ServeMux) {
	gated := func(h http.HandlerFunc) http.Handler { return middleware.RequireAuth(h) }

	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("/logout", handleLogout)

	mux.Handle("/{$}", gated(handleHome))
	mux.Handle("/users", gated(handleUsers))
	mux.Handle("/users/filter", gated(handleUsersFilter))
	mux.Handle("/users/sort", gated(handleUsersSort))
	mux.Handle("/users/select", gated(handleUsersSelect))
	mux.Handle("/users/select-all", gated(handleUsersSelectAll))
	mux.Handle("/users/inactive", gated(handleUsersInactive))
	mux.Handle("/users/refresh", gated(handleUsersRefresh))
	mux.Handle("/users/export", gated(handleUsersExport))
	mux.Handle("/users/download", gated(handleUsersDownload))
	mux.Handle("/users/create/open", gated(handleCreateOpen))
	mux.Handle("/users/create/cancel", gated(handleCreateCancel))
	mux.Handle("/users/create", gated(handleCreateSubmit))
	mux.Handle("/audit", gated(handleAuditTrail))
	mux.Handle("/debug/perf", gated(handlePerf))
}

// StartSessionSweeper removes expired sessions every interval until stop is closed.
func StartSessionSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := sessions.Sweep(); n > 0 {
					slog.Info("sessions_swept", "count", n, "remaining", sessions.Len())
				}
			case <-stop:
				return
			}
		}
	}()
}

// auditRecorder returns the configured audit store as a recorder, or nil.
func auditRecorder() orchestrators.AuditRecorder {
	if deps.AuditStore == nil {
		return nil
	}
	return deps.AuditStore
}

