package grid

import (
	"cmp"
	"strconv"

	"labconsole/internal/domain/userrecord"
)

// Column keys of the users grid.
const (
	ColUserID       = "user_id"
	ColLevelsPlayed = "levels_played"
	ColExperimenter = "experimenter"
	ColGrade        = "grade"
)

// Column declares one grid column.
// Value is required: it feeds filtering, default sorting and rendering.
// Cell, when set, supplies the typed value written to exports.
// Compare, when set, overrides the default string ordering of Value.
type Column struct {
	Key        string
	Header     string
	Filterable bool
	Sortable   bool
	Value      func(userrecord.Record) string
	Cell       func(userrecord.Record) any
	Compare    func(a, b userrecord.Record) int
}

// CellValue returns the typed export value for r.
func (c Column) CellValue(r userrecord.Record) any {
	if c.Cell != nil {
		return c.Cell(r)
	}
	return c.Value(r)
}

func (c Column) compare(a, b userrecord.Record) int {
	if c.Compare != nil {
		return c.Compare(a, b)
	}
	return cmp.Compare(c.Value(a), c.Value(b))
}

// UserColumns returns the column set of the users grid, in display order.
// The same set backs the created-users table, so every header has an accessor.
func UserColumns() []Column {
	return []Column{
		{
			Key: ColUserID, Header: "User ID", Filterable: true, Sortable: true,
			Value: func(r userrecord.Record) string { return r.UserID },
		},
		{
			Key: ColLevelsPlayed, Header: "Levels Played", Filterable: true, Sortable: true,
			Value:   func(r userrecord.Record) string { return strconv.Itoa(r.LevelsPlayed) },
			Cell:    func(r userrecord.Record) any { return r.LevelsPlayed },
			Compare: func(a, b userrecord.Record) int { return cmp.Compare(a.LevelsPlayed, b.LevelsPlayed) },
		},
		{
			Key: ColExperimenter, Header: "Experimenter", Filterable: true, Sortable: true,
			Value: func(r userrecord.Record) string { return r.Experimenter },
		},
		{
			Key: ColGrade, Header: "Grade", Filterable: true, Sortable: true,
			Value: func(r userrecord.Record) string { return r.Grade },
		},
	}
}

// ValidateColumns checks that every column has a unique key and an accessor.
// PRE: none
// POST: Returns nil if the set is usable by a Grid or an exporter
func ValidateColumns(columns []Column) error {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c.Key == "" {
			return ErrEmptyColumnKey
		}
		if c.Value == nil {
			return &ColumnError{Key: c.Key, Err: ErrMissingAccessor}
		}
		if seen[c.Key] {
			return &ColumnError{Key: c.Key, Err: ErrDuplicateColumn}
		}
		seen[c.Key] = true
	}
	return nil
}
