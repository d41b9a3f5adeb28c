package web

import (
	"net/http"
	"strconv"
	"time"

	"labconsole/internal/application/projections"
)

// handleAuditTrail lists the signed-in experimenter's own activity (GET /audit)
// PRE: User must be authenticated
// POST: Renders events newest first; ?action= and ?limit= narrow the list
func handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}

	view := projections.AuditTrailView{Limit: projections.DefaultAuditLimit}
	if deps.AuditStore != nil {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		var err error
		view, err = projections.QueryGetAuditTrail(r.Context(), projections.GetAuditTrailQuery{
			Fingerprint: fingerprintOf(ws),
			Action:      r.URL.Query().Get("action"),
			Limit:       limit,
		}, projections.GetAuditTrailDeps{Store: deps.AuditStore})
		if err != nil {
			internalError(w, err)
			return
		}
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, view)
		return
	}
	renderTemplate(w, r, "audit.html", map[string]any{
		"Title":   "Activity",
		"Trail":   view,
		"Enabled": deps.AuditStore != nil,
	})
}

// handlePerf returns request and remote-call timings as JSON (GET /debug/perf)
// ?minutes= sets the window, default 15.
func handlePerf(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if perfCollector == nil {
		http.NotFound(w, r)
		return
	}
	minutes, err := strconv.Atoi(r.URL.Query().Get("minutes"))
	if err != nil || minutes <= 0 {
		minutes = 15
	}
	since := time.Now().Add(-time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(since, 10))
}
