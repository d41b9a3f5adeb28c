package projections

import (
	"context"

	"labconsole/internal/domain/creation"
	"labconsole/internal/domain/grid"
	"labconsole/internal/domain/userrecord"
	"labconsole/internal/domain/workspace"
)

// GridSource provides a consistent read of a console workspace.
type GridSource interface {
	Snapshot() workspace.Snapshot
}

// GetUserGridQuery carries query parameters.
type GetUserGridQuery struct{}

// GetUserGridDeps holds dependencies for GetUserGrid.
type GetUserGridDeps struct {
	Workspace GridSource
}

// ColumnView is one header cell of the users table.
type ColumnView struct {
	Key        string `json:"key"`
	Header     string `json:"header"`
	Filterable bool   `json:"filterable"`
	Sortable   bool   `json:"sortable"`
	Filter     string `json:"filter,omitempty"`
	SortDir    string `json:"sort_dir,omitempty"`
	SortRank   int    `json:"sort_rank,omitempty"` // 1-based precedence, 0 when unsorted
}

// RowView is one rendered row.
type RowView struct {
	RowID    int               `json:"id"`
	Selected bool              `json:"selected"`
	Cells    []string          `json:"cells"`
	Record   userrecord.Record `json:"record"`
}

// UserGridView is everything the users page renders.
type UserGridView struct {
	Owners             []string     `json:"owners"`
	PrimaryOwner       string       `json:"primary_owner"`
	Columns            []ColumnView `json:"columns"`
	Rows               []RowView    `json:"rows"`
	GlobalFilter       string       `json:"global_filter"`
	IncludeInactive    bool         `json:"include_inactive"`
	TotalCount         int          `json:"total_count"`
	VisibleCount       int          `json:"visible_count"`
	SelectedCount      int          `json:"selected_count"`
	AllVisibleSelected bool         `json:"all_visible_selected"`
	CanExport          bool         `json:"can_export"`
	Loaded             bool         `json:"loaded"`
	FetchError         string       `json:"fetch_error,omitempty"`

	CreationState   creation.State `json:"creation_state"`
	CreationError   string         `json:"creation_error,omitempty"`
	ShowCreateForm  bool           `json:"show_create_form"`
	Submitting      bool           `json:"submitting"`
	Grades          []string       `json:"grades"`
	Languages       []string       `json:"languages"`
	MinCount        int            `json:"min_count"`
	MaxCount        int            `json:"max_count"`
	CreatedColumns  []ColumnView   `json:"created_columns"`
	Created         []RowView      `json:"created"`
	PendingDownload string         `json:"pending_download,omitempty"`
}

// QueryGetUserGrid renders the workspace state into a view model.
// PRE: deps.Workspace is set
// POST: Rows are the visible projection in display order; Created lists the
// last creation batch with every column filled
func QueryGetUserGrid(_ context.Context, _ GetUserGridQuery, deps GetUserGridDeps) (UserGridView, error) {
	s := deps.Workspace.Snapshot()

	rank := make(map[string]int, len(s.Sort))
	dir := make(map[string]grid.Direction, len(s.Sort))
	for i, k := range s.Sort {
		rank[k.Column] = i + 1
		dir[k.Column] = k.Direction
	}

	cols := make([]ColumnView, len(s.Columns))
	plain := make([]ColumnView, len(s.Columns))
	for i, c := range s.Columns {
		plain[i] = ColumnView{Key: c.Key, Header: c.Header}
		cols[i] = ColumnView{
			Key:        c.Key,
			Header:     c.Header,
			Filterable: c.Filterable,
			Sortable:   c.Sortable,
			Filter:     s.Filters[c.Key],
			SortDir:    string(dir[c.Key]),
			SortRank:   rank[c.Key],
		}
	}

	return UserGridView{
		Owners:             s.Identity.OwnerNames(),
		PrimaryOwner:       s.Identity.PrimaryOwner(),
		Columns:            cols,
		Rows:               rowViews(s.Columns, s.Visible, s.Selected),
		GlobalFilter:       s.GlobalFilter,
		IncludeInactive:    s.IncludeInactive,
		TotalCount:         s.RowCount,
		VisibleCount:       len(s.Visible),
		SelectedCount:      s.SelectedCount,
		AllVisibleSelected: s.AllVisibleSelected,
		CanExport:          s.SelectedCount > 0,
		Loaded:             s.Loaded,
		FetchError:         s.FetchError,

		CreationState:   s.Creation.State,
		CreationError:   s.Creation.Error,
		ShowCreateForm:  s.Creation.State != creation.StateIdle,
		Submitting:      s.Creation.State == creation.StateSubmitting,
		Grades:          userrecord.Grades,
		Languages:       userrecord.Languages,
		MinCount:        userrecord.MinCreateCount,
		MaxCount:        userrecord.MaxCreateCount,
		CreatedColumns:  plain,
		Created:         rowViews(s.Columns, s.Created, nil),
		PendingDownload: s.PendingDownload,
	}, nil
}

func rowViews(columns []grid.Column, records []userrecord.Record, selected map[int]bool) []RowView {
	rows := make([]RowView, len(records))
	for i, r := range records {
		cells := make([]string, len(columns))
		for j, c := range columns {
			cells[j] = c.Value(r)
		}
		rows[i] = RowView{RowID: r.RowID, Selected: selected[r.RowID], Cells: cells, Record: r}
	}
	return rows
}
