package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"labconsole/internal/adapters/http/middleware"
	"labconsole/internal/adapters/spreadsheet"
	"labconsole/internal/application/listutil"
	"labconsole/internal/application/orchestrators"
	"labconsole/internal/application/projections"
	"labconsole/internal/domain/creation"
	"labconsole/internal/domain/grid"
	"labconsole/internal/domain/workspace"
)

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

func filterKeys() []string {
	var keys []string
	for _, c := range deps.Columns {
		if c.Filterable {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

func sortKeys() []string {
	var keys []string
	for _, c := range deps.Columns {
		if c.Sortable {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// postWorkspace checks the method and returns the session workspace and the posted fields.
func postWorkspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, url.Values, bool) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return nil, nil, false
	}
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return nil, nil, false
	}
	form, err := formValues(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid form submission")
		return nil, nil, false
	}
	return ws, form, true
}

// respondGrid answers a grid action: the JSON projection for API clients,
// a redirect back to the users page for form posts.
func respondGrid(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, status int) {
	if !wantsJSON(r) {
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}
	view, err := projections.QueryGetUserGrid(r.Context(), projections.GetUserGridQuery{},
		projections.GetUserGridDeps{Workspace: ws})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, status, view)
}

// gridError maps grid validation errors to 400.
func gridError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, grid.ErrUnknownColumn),
		errors.Is(err, grid.ErrNotFilterable),
		errors.Is(err, grid.ErrNotSortable),
		errors.Is(err, grid.ErrDuplicateColumn):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		internalError(w, err)
	}
}

// runFetch lists the ticket's owners into ws. A failure is kept in the
// workspace banner, so the error is not returned.
func runFetch(r *http.Request, ws *workspace.Workspace, ticket workspace.FetchTicket) {
	_, _ = orchestrators.ExecuteFetchUsers(r.Context(), orchestrators.FetchUsersInput{
		Ticket:      ticket,
		Fingerprint: fingerprintOf(ws),
		IPAddress:   middleware.ClientIP(r),
	}, orchestrators.FetchUsersDeps{
		Lister:    deps.Lister,
		Workspace: ws,
		Audit:     auditRecorder(),
	})
}

// handleUsers renders the users grid (GET /users)
// POST: HTML page, or the projection as JSON when Accept asks for it
func handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	view, err := projections.QueryGetUserGrid(r.Context(), projections.GetUserGridQuery{},
		projections.GetUserGridDeps{Workspace: ws})
	if err != nil {
		internalError(w, err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, view)
		return
	}
	renderTemplate(w, r, "users.html", map[string]any{
		"Title": "Users",
		"Grid":  view,
	})
}

// handleUsersFilter sets the global search ("q") and column filters ("filter_<key>").
// Fields that are not posted keep their current value; clear=1 drops every filter.
func handleUsersFilter(w http.ResponseWriter, r *http.Request) {
	ws, form, ok := postWorkspace(w, r)
	if !ok {
		return
	}
	params := listutil.ParseFilterParams(form, filterKeys())
	clearAll := listutil.ParseBool(form, "clear")

	err := ws.WithGrid(func(g *grid.Grid) error {
		if clearAll {
			g.SetGlobalFilter("")
			for key := range g.Filters() {
				if err := g.SetFilter(key, ""); err != nil {
					return err
				}
			}
		}
		if params.SearchPresent {
			g.SetGlobalFilter(params.Search)
		}
		for key := range params.Present {
			if err := g.SetFilter(key, params.Filters[key]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		gridError(w, r, err)
		return
	}
	respondGrid(w, r, ws, http.StatusOK)
}

// handleUsersSort changes the sort spec.
// sort=<key> without dir cycles the column the way a header click does;
// with dir (asc, desc or none) it sets that direction; sort_spec replaces
// the whole spec with several keys.
func handleUsersSort(w http.ResponseWriter, r *http.Request) {
	ws, form, ok := postWorkspace(w, r)
	if !ok {
		return
	}

	var apply func(g *grid.Grid) error
	if specs, multi := form["sort_spec"]; multi {
		parsed := listutil.ParseSortSpec(specs[0], sortKeys())
		keys := make([]grid.SortKey, len(parsed))
		for i, p := range parsed {
			keys[i] = grid.SortKey{Column: p.Column, Direction: grid.Direction(p.Dir)}
		}
		apply = func(g *grid.Grid) error { return g.SetSortKeys(keys) }
	} else {
		sp, valid := listutil.ParseSortParams(form, sortKeys())
		if !valid {
			writeError(w, r, http.StatusBadRequest, "unknown sort column")
			return
		}
		if _, hasDir := form["dir"]; hasDir {
			apply = func(g *grid.Grid) error { return g.SetSort(sp.Column, grid.Direction(sp.Dir)) }
		} else {
			apply = func(g *grid.Grid) error {
				_, err := g.CycleSort(sp.Column)
				return err
			}
		}
	}

	if err := ws.WithGrid(apply); err != nil {
		gridError(w, r, err)
		return
	}
	respondGrid(w, r, ws, http.StatusOK)
}

// handleUsersSelect toggles one row ("id"). Rows hidden by the current
// filters cannot be toggled.
func handleUsersSelect(w http.ResponseWriter, r *http.Request) {
	ws, form, ok := postWorkspace(w, r)
	if !ok {
		return
	}
	id, err := listutil.ParseRowID(form, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var toggled bool
	_ = ws.WithGrid(func(g *grid.Grid) error {
		toggled = g.ToggleRowSelected(id)
		return nil
	})
	if !toggled {
		slog.Debug("select_ignored", "row_id", id)
	}
	respondGrid(w, r, ws, http.StatusOK)
}

// handleUsersSelectAll toggles every visible row, or every row with scope=all.
func handleUsersSelectAll(w http.ResponseWriter, r *http.Request) {
	ws, form, ok := postWorkspace(w, r)
	if !ok {
		return
	}
	onlyVisible := form.Get("scope") != "all"
	_ = ws.WithGrid(func(g *grid.Grid) error {
		g.ToggleAllSelected(onlyVisible)
		return nil
	})
	respondGrid(w, r, ws, http.StatusOK)
}

// handleUsersInactive sets the include-inactive flag ("include") and
// refetches when it changed.
func handleUsersInactive(w http.ResponseWriter, r *http.Request) {
	ws, form, ok := postWorkspace(w, r)
	if !ok {
		return
	}
	if ticket, changed := ws.SetIncludeInactive(listutil.ParseBool(form, "include")); changed {
		runFetch(r, ws, ticket)
	}
	respondGrid(w, r, ws, http.StatusOK)
}

// handleUsersRefresh refetches the row set for the current owners.
func handleUsersRefresh(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := postWorkspace(w, r)
	if !ok {
		return
	}
	runFetch(r, ws, ws.BeginFetch())
	respondGrid(w, r, ws, http.StatusOK)
}

// handleUsersExport streams the selected rows as selected_users.xlsx.
func handleUsersExport(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := postWorkspace(w, r)
	if !ok {
		return
	}
	err := orchestrators.ExecuteExportUsers(r.Context(), orchestrators.ExportUsersInput{
		Selected:    ws.SelectedRecords(),
		Owner:       ws.Identity().PrimaryOwner(),
		Fingerprint: fingerprintOf(ws),
		IPAddress:   middleware.ClientIP(r),
	}, orchestrators.ExportUsersDeps{
		Saver:   spreadsheet.AttachmentSaver{W: w},
		Columns: deps.Columns,
		Audit:   auditRecorder(),
	})
	switch {
	case err == nil:
	case errors.Is(err, orchestrators.ErrNothingSelected):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, spreadsheet.ErrEncode):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		internalError(w, err)
	}
}

// handleUsersDownload serves the pending download once (GET /users/download).
func handleUsersDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	d, ok := ws.TakePendingDownload()
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := (spreadsheet.AttachmentSaver{W: w}).Save(r.Context(), d.Filename, d.ContentType, d.Data); err != nil {
		slog.Error("export_event", "event", "download_failed", "filename", d.Filename, "error", err)
	}
}

// handleCreateOpen shows the creation form.
func handleCreateOpen(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := postWorkspace(w, r)
	if !ok {
		return
	}
	if err := ws.OpenCreation(); err != nil {
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}
	respondGrid(w, r, ws, http.StatusOK)
}

// handleCreateCancel hides the creation form.
func handleCreateCancel(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := postWorkspace(w, r)
	if !ok {
		return
	}
	if err := ws.CancelCreation(); err != nil {
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}
	respondGrid(w, r, ws, http.StatusOK)
}

// handleCreateSubmit creates a batch of users for the primary owner.
// Fields: count, grade, language.
// POST: On success the page auto-downloads created_users.xlsx; on failure the
// form stays open with the error
func handleCreateSubmit(w http.ResponseWriter, r *http.Request) {
	ws, form, ok := postWorkspace(w, r)
	if !ok {
		return
	}
	count, _ := strconv.Atoi(form.Get("count"))

	res, err := orchestrators.ExecuteCreateUsers(r.Context(), orchestrators.CreateUsersInput{
		Count:       count,
		Grade:       form.Get("grade"),
		Language:    form.Get("language"),
		Fingerprint: fingerprintOf(ws),
		IPAddress:   middleware.ClientIP(r),
	}, orchestrators.CreateUsersDeps{
		Creator:    deps.Creator,
		Workspace:  ws,
		Columns:    deps.Columns,
		Audit:      auditRecorder(),
		Notifier:   deps.Notifier,
		NotifyTo:   deps.NotifyTo,
		GenerateID: generateID,
	})
	switch {
	case err == nil:
	case errors.Is(err, creation.ErrInvalidTransition), errors.Is(err, workspace.ErrNotAuthenticated):
		writeError(w, r, http.StatusConflict, err.Error())
		return
	default:
		respondGrid(w, r, ws, http.StatusUnprocessableEntity)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"batch_id": res.BatchID,
			"created":  res.Created,
		})
		return
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}
