package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"labconsole/internal/domain/workspace"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionTTL is how long a browser session lives after login.
const SessionTTL = 24 * time.Hour

const sessionCookieName = "labconsole_session"

// Session binds a browser cookie to its console workspace.
type Session struct {
	Token     string
	Workspace *workspace.Workspace
	CreatedAt time.Time
}

// Authorized reports whether the session's experimenter may see gated routes.
func (s Session) Authorized() bool {
	return s.Workspace != nil && s.Workspace.Identity().IsAuthorized(true)
}

// SessionStore is an in-memory session store keyed by cookie token.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates an empty store with the default TTL.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]Session),
		ttl:      SessionTTL,
		now:      time.Now,
	}
}

// Create stores a new session around ws and returns it.
// PRE: ws is non-nil
// POST: Session stored under a fresh 32-byte hex token
func (ss *SessionStore) Create(ws *workspace.Workspace) (Session, error) {
	token, err := generateToken()
	if err != nil {
		return Session{}, err
	}
	s := Session{Token: token, Workspace: ws, CreatedAt: ss.now()}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sessions[token] = s
	return s, nil
}

// Get retrieves a session by token. Expired sessions are removed.
// POST: Returns the session if present and not expired
func (ss *SessionStore) Get(token string) (Session, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	s, ok := ss.sessions[token]
	if !ok {
		return Session{}, false
	}
	if ss.now().Sub(s.CreatedAt) > ss.ttl {
		delete(ss.sessions, token)
		return Session{}, false
	}
	return s, true
}

// Delete removes a session by token.
func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, token)
}

// Sweep removes every expired session and returns how many were dropped.
func (ss *SessionStore) Sweep() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	n := 0
	for token, s := range ss.sessions {
		if ss.now().Sub(s.CreatedAt) > ss.ttl {
			delete(ss.sessions, token)
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions.
func (ss *SessionStore) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}

// Auth returns middleware that resolves the session cookie and puts the
// session in the request context. It does NOT block anonymous requests;
// use RequireAuth for that.
func Auth(sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err == nil && cookie.Value != "" {
				if s, ok := sessions.Get(cookie.Value); ok {
					r = r.WithContext(ContextWithSession(r.Context(), s))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth redirects to /login unless the session's experimenter is authenticated.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := GetSessionFromContext(r.Context())
		if !ok || !s.Authorized() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSessionFromContext extracts the session from the request context.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(Session)
	return s, ok
}

// ContextWithSession returns a context carrying the given session.
func ContextWithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   int(SessionTTL / time.Second),
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

// SessionCookieName returns the cookie name, for tests and the browser harness.
func SessionCookieName() string { return sessionCookieName }

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
