package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"labconsole/internal/domain/experimenter"
	"labconsole/internal/domain/grid"
	"labconsole/internal/domain/workspace"
)

func newWorkspace(t *testing.T, authenticated bool) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(grid.UserColumns())
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	if authenticated {
		ws.SetIdentity(experimenter.Identity{ExperimenterID: "e1", Names: []string{"Alice"}, Authenticated: true})
	}
	return ws
}

// TestSessionStore_CreateGetDelete verifies the basic session lifecycle.
func TestSessionStore_CreateGetDelete(t *testing.T) {
	ss := NewSessionStore()
	s, err := ss.Create(newWorkspace(t, true))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(s.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(s.Token))
	}
	if _, ok := ss.Get(s.Token); !ok {
		t.Fatal("session should be retrievable")
	}
	ss.Delete(s.Token)
	if _, ok := ss.Get(s.Token); ok {
		t.Error("session should be gone after Delete")
	}
}

// TestSessionStore_Expiry verifies sessions older than the TTL are dropped.
func TestSessionStore_Expiry(t *testing.T) {
	ss := NewSessionStore()
	now := time.Now()
	ss.now = func() time.Time { return now }
	s, _ := ss.Create(newWorkspace(t, true))
	other, _ := ss.Create(newWorkspace(t, true))

	now = now.Add(SessionTTL + time.Second)
	if _, ok := ss.Get(s.Token); ok {
		t.Error("expired session must not be returned")
	}
	if n := ss.Sweep(); n != 1 {
		t.Errorf("Sweep = %d, want 1", n)
	}
	if _, ok := ss.Get(other.Token); ok {
		t.Error("swept session must be gone")
	}
	if ss.Len() != 0 {
		t.Errorf("Len = %d, want 0", ss.Len())
	}
}

// TestRequireAuth tests the gate against anonymous, unauthenticated and authenticated sessions.
func TestRequireAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	tests := []struct {
		name    string
		session *Session
		want    int
	}{
		{"no session", nil, http.StatusSeeOther},
		{"unauthenticated workspace", &Session{Workspace: newWorkspace(t, false)}, http.StatusSeeOther},
		{"authenticated", &Session{Workspace: newWorkspace(t, true)}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/users", nil)
			if tt.session != nil {
				req = req.WithContext(ContextWithSession(req.Context(), *tt.session))
			}
			rr := httptest.NewRecorder()
			RequireAuth(ok).ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusSeeOther && rr.Header().Get("Location") != "/login" {
				t.Errorf("Location = %q, want /login", rr.Header().Get("Location"))
			}
		})
	}
}

// TestAuth_ResolvesCookie verifies the cookie is turned into a context session.
func TestAuth_ResolvesCookie(t *testing.T) {
	ss := NewSessionStore()
	s, _ := ss.Create(newWorkspace(t, true))

	var got Session
	var found bool
	h := Auth(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = GetSessionFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName(), Value: s.Token})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !found || got.Token != s.Token {
		t.Errorf("session = %+v, found = %v", got, found)
	}

	found = false
	req = httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName(), Value: "bogus"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if found {
		t.Error("unknown token must not resolve")
	}
}
