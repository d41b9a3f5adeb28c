package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"labconsole/internal/adapters/http/middleware"
	"labconsole/internal/adapters/remote"
	"labconsole/internal/application/orchestrators"
	"labconsole/internal/domain/experimenter"
	"labconsole/internal/domain/workspace"
)

//go:embed templates/*.html
var templatesFS embed.FS

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Login messages shown inline on the login page.
const (
	msgLoginFailed  = "Login failed. Please try again."
	msgNetworkError = "Network error. Please check your connection and try again."
)

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("internal_error", "error", err.Error())
	}
}

// writeError reports a client error as JSON or plain text depending on Accept.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if wantsJSON(r) {
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	http.Error(w, msg, status)
}

// formValues returns the posted fields. JSON bodies are accepted as a flat
// object of scalars; everything else goes through ParseForm.
func formValues(r *http.Request) (url.Values, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return r.Form, nil
	}
	var body map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	vals := make(url.Values, len(body))
	for k, v := range body {
		switch v := v.(type) {
		case string:
			vals.Set(k, v)
		case json.Number:
			vals.Set(k, v.String())
		case bool:
			vals.Set(k, fmt.Sprint(v))
		case nil:
			vals.Set(k, "")
		default:
			return nil, fmt.Errorf("field %q must be a scalar", k)
		}
	}
	return vals, nil
}

// renderTemplate executes layout.html around the named page template.
func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data map[string]any) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	var identity experimenter.Identity
	if ok && sess.Workspace != nil {
		identity = sess.Workspace.Identity()
	}

	funcMap := template.FuncMap{
		"csrfToken":    func() string { return csrf.Token(r) },
		"isLoggedIn":   func() bool { return identity.Authenticated },
		"currentOwner": func() string { return identity.PrimaryOwner() },
		"renderMarkdown": func(md string) template.HTML {
			var buf bytes.Buffer
			if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(md))
			}
			return template.HTML(buf.String())
		},
		"list": func(items ...string) []string { return items },
		"add":  func(a, b int) int { return a + b },
		"sortArrow": func(dir string) string {
			switch dir {
			case "asc":
				return "▲"
			case "desc":
				return "▼"
			}
			return ""
		},
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templatesFS,
		"templates/layout.html", "templates/"+templateName)
	if err != nil {
		internalError(w, fmt.Errorf("parse %s: %w", templateName, err))
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, fmt.Errorf("render %s: %w", templateName, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// currentWorkspace returns the workspace of an authorized session.
// A request without one is sent to /login.
func currentWorkspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok || sess.Workspace == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return nil, false
	}
	return sess.Workspace, true
}

func fingerprintOf(ws *workspace.Workspace) string {
	return deps.Fingerprints.Fingerprint(ws.Identity().ExperimenterID)
}

// loginMessage turns a login failure into the inline message.
func loginMessage(err error) string {
	var se *remote.StatusError
	switch {
	case errors.As(err, &se),
		errors.Is(err, experimenter.ErrEmptyID),
		errors.Is(err, experimenter.ErrNoNames),
		errors.Is(err, experimenter.ErrEmptyNames):
		return msgLoginFailed
	}
	return msgNetworkError
}

// handleLogin handles GET (form) and POST (lookup) for /login.
// A failed lookup leaves any existing session identity untouched.
func handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		renderTemplate(w, r, "login.html", map[string]any{"Title": "Login"})
		return
	case http.MethodPost:
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	form, err := formValues(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid form submission")
		return
	}

	ctx := r.Context()
	ip := middleware.ClientIP(r)
	id := form.Get("experimenter_id")
	identity, err := orchestrators.ExecuteLogin(ctx, orchestrators.LoginInput{
		ExperimenterID: id,
		IPAddress:      ip,
	}, orchestrators.LoginDeps{
		Lookup:       deps.Lookup,
		Audit:        auditRecorder(),
		Fingerprints: deps.Fingerprints,
	})
	if err != nil {
		msg := loginMessage(err)
		if wantsJSON(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msg})
			return
		}
		renderTemplate(w, r, "login.html", map[string]any{
			"Title":          "Login",
			"Error":          msg,
			"ExperimenterID": id,
		})
		return
	}

	sess, ok := middleware.GetSessionFromContext(ctx)
	if !ok || sess.Workspace == nil {
		ws, err := workspace.New(deps.Columns)
		if err != nil {
			internalError(w, err)
			return
		}
		if sess, err = sessions.Create(ws); err != nil {
			internalError(w, err)
			return
		}
		middleware.SetSessionCookie(w, sess.Token, secureCookies)
	}

	ticket := sess.Workspace.SetIdentity(identity)
	runFetch(r, sess.Workspace, ticket)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"experimenter_id": identity.ExperimenterID,
			"owners":          identity.OwnerNames(),
			"description":     identity.Description,
		})
		return
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if sess, ok := middleware.GetSessionFromContext(r.Context()); ok {
		if sess.Workspace != nil {
			orchestrators.ExecuteLogout(r.Context(), orchestrators.LogoutInput{
				Identity:  sess.Workspace.Identity(),
				IPAddress: middleware.ClientIP(r),
			}, orchestrators.LogoutDeps{
				Audit:        auditRecorder(),
				Fingerprints: deps.Fingerprints,
			})
		}
		sessions.Delete(sess.Token)
	}

	middleware.ClearSessionCookie(w, secureCookies)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleHome renders the welcome page (GET /)
func handleHome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	identity := ws.Identity()
	renderTemplate(w, r, "home.html", map[string]any{
		"Title":       "Home",
		"Welcome":     deps.Welcome,
		"Owners":      identity.OwnerNames(),
		"Description": identity.Description,
	})
}
