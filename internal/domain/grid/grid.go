package grid

import (
	"slices"

	"labconsole/internal/domain/userrecord"
)

// Option configures a Grid.
type Option func(*Grid)

// WithCaseSensitive switches filter matching to case-sensitive substring
// matching. The default is case-insensitive.
func WithCaseSensitive(on bool) Option {
	return func(g *Grid) { g.caseSensitive = on }
}

// Grid holds the row set of a users table together with its filter, sort
// and selection state. The visible projection is derived on demand and
// cached until the next mutation.
// A Grid is not safe for concurrent use; callers serialize access.
type Grid struct {
	columns       []Column
	byKey         map[string]int
	caseSensitive bool

	rows     []userrecord.Record
	filters  map[string]string
	global   string
	sort     []SortKey
	selected map[int]struct{}

	version     uint64
	memoVersion uint64
	memo        []userrecord.Record
}

// New creates an empty grid over the given columns.
// PRE: columns is non-empty
// POST: Returns a grid with no rows, filters, sort or selection
func New(columns []Column, opts ...Option) (*Grid, error) {
	if err := ValidateColumns(columns); err != nil {
		return nil, err
	}
	g := &Grid{
		columns:  slices.Clone(columns),
		byKey:    indexColumns(columns),
		filters:  make(map[string]string),
		selected: make(map[int]struct{}),
		version:  1,
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// Columns returns the column definitions in display order.
func (g *Grid) Columns() []Column {
	return slices.Clone(g.columns)
}

// Rows returns the full row set, pre-filter, in row-set order.
func (g *Grid) Rows() []userrecord.Record {
	return slices.Clone(g.rows)
}

// Len returns the size of the row set.
func (g *Grid) Len() int { return len(g.rows) }

// ReplaceRows swaps in a new row set.
// PRE: records carry unique RowIDs
// POST: Row set replaced; selection cleared so no id from the old set survives
func (g *Grid) ReplaceRows(records []userrecord.Record) {
	g.rows = slices.Clone(records)
	clear(g.selected)
	g.touch()
}

// AppendRows adds records after the current rows, numbering them after the
// highest RowID in use. Selection is kept.
// PRE: none
// POST: Returns the appended records with their assigned RowIDs
func (g *Grid) AppendRows(records []userrecord.Record) []userrecord.Record {
	next := g.maxRowID() + 1
	added := make([]userrecord.Record, len(records))
	for i, r := range records {
		r.RowID = next + i
		added[i] = r
	}
	g.rows = append(g.rows, added...)
	g.touch()
	return slices.Clone(added)
}

// SetFilter sets or clears (empty value) the filter of a column.
// PRE: key names a filterable column
// POST: Filter stored; projection recomputed on next Visible call
func (g *Grid) SetFilter(key, value string) error {
	i, ok := g.byKey[key]
	if !ok {
		return &ColumnError{Key: key, Err: ErrUnknownColumn}
	}
	if !g.columns[i].Filterable {
		return &ColumnError{Key: key, Err: ErrNotFilterable}
	}
	if value == "" {
		delete(g.filters, key)
	} else {
		g.filters[key] = value
	}
	g.touch()
	return nil
}

// Filters returns a copy of the active column filters.
func (g *Grid) Filters() map[string]string {
	out := make(map[string]string, len(g.filters))
	for k, v := range g.filters {
		out[k] = v
	}
	return out
}

// SetGlobalFilter sets the text matched across all filterable columns.
// An empty text disables it.
func (g *Grid) SetGlobalFilter(text string) {
	g.global = text
	g.touch()
}

// GlobalFilter returns the active global filter text.
func (g *Grid) GlobalFilter() string { return g.global }

// SetSort replaces the sort spec with a single column, or clears it with DirNone.
// PRE: key names a sortable column
// POST: Sort spec has at most one entry
func (g *Grid) SetSort(key string, dir Direction) error {
	if err := g.checkSortable(key); err != nil {
		return err
	}
	if dir == DirNone {
		g.sort = nil
	} else {
		g.sort = []SortKey{{Column: key, Direction: dir}}
	}
	g.touch()
	return nil
}

// SetSortKeys replaces the sort spec with several keys, earlier keys taking
// precedence. Entries with DirNone are dropped.
// PRE: each column appears at most once and is sortable
// POST: Sort spec replaced
func (g *Grid) SetSortKeys(keys []SortKey) error {
	seen := make(map[string]bool, len(keys))
	var spec []SortKey
	for _, k := range keys {
		if err := g.checkSortable(k.Column); err != nil {
			return err
		}
		if seen[k.Column] {
			return &ColumnError{Key: k.Column, Err: ErrDuplicateColumn}
		}
		seen[k.Column] = true
		if k.Direction != DirNone {
			spec = append(spec, k)
		}
	}
	g.sort = spec
	g.touch()
	return nil
}

// CycleSort advances a column through none -> asc -> desc -> none, the way a
// header click does, and makes it the only sort key.
// PRE: key names a sortable column
// POST: Returns the new direction of the column
func (g *Grid) CycleSort(key string) (Direction, error) {
	var next Direction
	switch g.SortDirection(key) {
	case DirNone:
		next = DirAsc
	case DirAsc:
		next = DirDesc
	default:
		next = DirNone
	}
	if err := g.SetSort(key, next); err != nil {
		return DirNone, err
	}
	return next, nil
}

// Sort returns a copy of the sort spec.
func (g *Grid) Sort() []SortKey { return slices.Clone(g.sort) }

// SortDirection returns the direction a column is sorted in, or DirNone.
func (g *Grid) SortDirection(key string) Direction {
	for _, k := range g.sort {
		if k.Column == key {
			return k.Direction
		}
	}
	return DirNone
}

// Query returns the projection inputs for the current state.
func (g *Grid) Query() Query {
	return Query{
		Filters:       g.Filters(),
		Global:        g.global,
		Sort:          g.Sort(),
		CaseSensitive: g.caseSensitive,
	}
}

// Visible returns the filtered and sorted rows.
// The result is cached per state version; repeated calls without mutation
// do not recompute.
// POST: Returns a slice the caller may modify
func (g *Grid) Visible() []userrecord.Record {
	if g.memoVersion != g.version {
		g.memo = Project(g.rows, g.columns, g.Query())
		g.memoVersion = g.version
	}
	return slices.Clone(g.memo)
}

// ToggleRowSelected flips the selection of a visible row.
// PRE: none
// POST: Returns false and changes nothing when rowID is not currently visible
func (g *Grid) ToggleRowSelected(rowID int) bool {
	if !g.isVisible(rowID) {
		return false
	}
	if _, ok := g.selected[rowID]; ok {
		delete(g.selected, rowID)
	} else {
		g.selected[rowID] = struct{}{}
	}
	return true
}

// ToggleAllSelected selects every row in scope, or deselects them all when
// they are already all selected. The scope is the visible rows when
// onlyVisible is set, otherwise the whole row set.
// POST: Rows outside the scope keep their selection state
func (g *Grid) ToggleAllSelected(onlyVisible bool) {
	scope := g.rows
	if onlyVisible {
		scope = g.Visible()
	}
	if len(scope) == 0 {
		return
	}
	all := true
	for _, r := range scope {
		if _, ok := g.selected[r.RowID]; !ok {
			all = false
			break
		}
	}
	for _, r := range scope {
		if all {
			delete(g.selected, r.RowID)
		} else {
			g.selected[r.RowID] = struct{}{}
		}
	}
}

// AllVisibleSelected reports whether there is at least one visible row and
// every visible row is selected. It drives the header checkbox.
func (g *Grid) AllVisibleSelected() bool {
	visible := g.Visible()
	if len(visible) == 0 {
		return false
	}
	for _, r := range visible {
		if _, ok := g.selected[r.RowID]; !ok {
			return false
		}
	}
	return true
}

// IsSelected reports whether rowID is selected.
func (g *Grid) IsSelected(rowID int) bool {
	_, ok := g.selected[rowID]
	return ok
}

// SelectedCount returns the number of selected rows.
func (g *Grid) SelectedCount() int { return len(g.selected) }

// ClearSelection deselects every row.
func (g *Grid) ClearSelection() { clear(g.selected) }

// SelectedRecords returns the selected records in row-set order.
func (g *Grid) SelectedRecords() []userrecord.Record {
	out := make([]userrecord.Record, 0, len(g.selected))
	for _, r := range g.rows {
		if _, ok := g.selected[r.RowID]; ok {
			out = append(out, r)
		}
	}
	return out
}

func (g *Grid) isVisible(rowID int) bool {
	if g.memoVersion != g.version {
		g.Visible()
	}
	for _, r := range g.memo {
		if r.RowID == rowID {
			return true
		}
	}
	return false
}

func (g *Grid) checkSortable(key string) error {
	i, ok := g.byKey[key]
	if !ok {
		return &ColumnError{Key: key, Err: ErrUnknownColumn}
	}
	if !g.columns[i].Sortable {
		return &ColumnError{Key: key, Err: ErrNotSortable}
	}
	return nil
}

func (g *Grid) maxRowID() int {
	maxID := 0
	for _, r := range g.rows {
		if r.RowID > maxID {
			maxID = r.RowID
		}
	}
	return maxID
}

func (g *Grid) touch() { g.version++ }
