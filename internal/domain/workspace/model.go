package workspace

import (
	"context"
	"errors"
	"slices"
	"sync"

	"labconsole/internal/domain/creation"
	"labconsole/internal/domain/experimenter"
	"labconsole/internal/domain/grid"
	"labconsole/internal/domain/userrecord"
)

// ErrNotAuthenticated is returned by operations that need an owner.
var ErrNotAuthenticated = errors.New("workspace has no authenticated experimenter")

// Download is a file waiting to be fetched by the browser.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

// FetchTicket identifies one fetch request. Only the ticket with the latest
// generation may apply its result.
type FetchTicket struct {
	Generation      uint64
	Owners          []string
	IncludeInactive bool
}

// Workspace is the console state of one browser session: the experimenter
// identity, the users grid, the creation dialog and a pending download.
// All methods are safe for concurrent use.
type Workspace struct {
	mu sync.Mutex

	identity        experimenter.Identity
	grid            *grid.Grid
	includeInactive bool

	fetchGen uint64
	loaded   bool
	fetchErr string

	creation creation.Workflow
	created  []userrecord.Record

	pending *Download
}

// New creates an empty workspace over the given grid columns.
// PRE: columns pass grid.ValidateColumns
// POST: Returns an unauthenticated workspace with an empty grid
func New(columns []grid.Column, opts ...grid.Option) (*Workspace, error) {
	g, err := grid.New(columns, opts...)
	if err != nil {
		return nil, err
	}
	return &Workspace{grid: g, creation: creation.NewWorkflow()}, nil
}

// Identity returns the current experimenter identity.
func (w *Workspace) Identity() experimenter.Identity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.identity
}

// SetIdentity replaces the identity wholesale and issues a fetch ticket for
// the new owner names.
// PRE: id is authenticated
// POST: Identity replaced; any in-flight fetch is now stale. When the
// experimenter or owner names changed, rows, selection, created users,
// creation dialog and pending download are reset.
func (w *Workspace) SetIdentity(id experimenter.Identity) FetchTicket {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !sameOwner(w.identity, id) {
		w.grid.ReplaceRows(nil)
		w.loaded = false
		w.fetchErr = ""
		w.creation = creation.NewWorkflow()
		w.created = nil
		w.pending = nil
	}
	w.identity = id
	return w.nextTicketLocked()
}

func sameOwner(a, b experimenter.Identity) bool {
	return a.ExperimenterID == b.ExperimenterID && slices.Equal(a.Names, b.Names)
}

// SetIncludeInactive changes the visibility filter.
// POST: Returns a ticket and true when the value changed, false otherwise
func (w *Workspace) SetIncludeInactive(include bool) (FetchTicket, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.includeInactive == include {
		return FetchTicket{}, false
	}
	w.includeInactive = include
	return w.nextTicketLocked(), true
}

// IncludeInactive reports whether users with no activity are listed.
func (w *Workspace) IncludeInactive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.includeInactive
}

// BeginFetch issues a ticket for the current owners and filter.
func (w *Workspace) BeginFetch() FetchTicket {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nextTicketLocked()
}

// ApplyFetch replaces the row set with a fetch result.
// PRE: records carry RowIDs 1..n
// POST: Returns false and changes nothing if a newer ticket was issued;
// otherwise rows replaced, selection cleared, fetch error cleared
func (w *Workspace) ApplyFetch(t FetchTicket, records []userrecord.Record) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t.Generation != w.fetchGen {
		return false
	}
	w.grid.ReplaceRows(records)
	w.loaded = true
	w.fetchErr = ""
	return true
}

// FailFetch records a fetch failure. The row set is kept.
// POST: Returns false and changes nothing if the ticket is stale
func (w *Workspace) FailFetch(t FetchTicket, msg string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t.Generation != w.fetchGen {
		return false
	}
	w.fetchErr = msg
	return true
}

// WithGrid runs fn with exclusive access to the grid.
// fn must not retain the grid after returning.
func (w *Workspace) WithGrid(fn func(g *grid.Grid) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fn(w.grid)
}

// SelectedRecords returns the selected rows in row-set order.
func (w *Workspace) SelectedRecords() []userrecord.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.grid.SelectedRecords()
}

// Columns returns the grid columns.
func (w *Workspace) Columns() []grid.Column {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.grid.Columns()
}

// OpenCreation shows the creation form.
func (w *Workspace) OpenCreation() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.creation.Open()
}

// CancelCreation hides the creation form.
func (w *Workspace) CancelCreation() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.creation.Cancel()
}

// BeginCreation moves the dialog to submitting and returns the owner that
// new users are attributed to.
// PRE: identity is authenticated, form is open
// POST: Workflow is Submitting
func (w *Workspace) BeginCreation() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.identity.Authenticated {
		return "", ErrNotAuthenticated
	}
	if err := w.creation.Submit(); err != nil {
		return "", err
	}
	return w.identity.PrimaryOwner(), nil
}

// CompleteCreation appends a created batch to the row set and closes the dialog.
// PRE: BeginCreation succeeded
// POST: Returns the appended records with RowIDs; the batch is appended to the created-users list
func (w *Workspace) CompleteCreation(records []userrecord.Record) ([]userrecord.Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.creation.Succeed(); err != nil {
		return nil, err
	}
	added := w.grid.AppendRows(records)
	w.created = append(w.created, added...)
	return added, nil
}

// FailCreation reopens the form with a message; nothing is merged.
func (w *Workspace) FailCreation(msg string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.creation.Fail(msg)
}

// Save stores a file as the pending download, replacing any previous one.
// It satisfies the exporter's Saver interface.
func (w *Workspace) Save(_ context.Context, filename, contentType string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = &Download{Filename: filename, ContentType: contentType, Data: slices.Clone(data)}
	return nil
}

// TakePendingDownload returns and clears the pending download.
func (w *Workspace) TakePendingDownload() (Download, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return Download{}, false
	}
	d := *w.pending
	w.pending = nil
	return d, true
}

// Snapshot is a consistent read of everything the users page renders.
type Snapshot struct {
	Identity           experimenter.Identity
	Columns            []grid.Column
	Visible            []userrecord.Record
	Selected           map[int]bool
	SelectedCount      int
	AllVisibleSelected bool
	RowCount           int
	Filters            map[string]string
	GlobalFilter       string
	Sort               []grid.SortKey
	IncludeInactive    bool
	Loaded             bool
	FetchError         string
	Creation           creation.Workflow
	Created            []userrecord.Record
	PendingDownload    string
}

// Snapshot captures the current state under the lock.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	visible := w.grid.Visible()
	selected := make(map[int]bool, w.grid.SelectedCount())
	for _, r := range w.grid.SelectedRecords() {
		selected[r.RowID] = true
	}
	s := Snapshot{
		Identity:           w.identity,
		Columns:            w.grid.Columns(),
		Visible:            visible,
		Selected:           selected,
		SelectedCount:      w.grid.SelectedCount(),
		AllVisibleSelected: w.grid.AllVisibleSelected(),
		RowCount:           w.grid.Len(),
		Filters:            w.grid.Filters(),
		GlobalFilter:       w.grid.GlobalFilter(),
		Sort:               w.grid.Sort(),
		IncludeInactive:    w.includeInactive,
		Loaded:             w.loaded,
		FetchError:         w.fetchErr,
		Creation:           w.creation,
		Created:            slices.Clone(w.created),
	}
	if w.pending != nil {
		s.PendingDownload = w.pending.Filename
	}
	return s
}

func (w *Workspace) nextTicketLocked() FetchTicket {
	w.fetchGen++
	return FetchTicket{
		Generation:      w.fetchGen,
		Owners:          w.identity.OwnerNames(),
		IncludeInactive: w.includeInactive,
	}
}
