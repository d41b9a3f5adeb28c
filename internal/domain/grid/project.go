package grid

import (
	"sort"
	"strings"

	"labconsole/internal/domain/userrecord"
)

// Direction is a sort direction. The empty value means unsorted.
type Direction string

const (
	DirNone Direction = ""
	DirAsc  Direction = "asc"
	DirDesc Direction = "desc"
)

// ParseDirection maps form values onto a Direction.
// PRE: none
// POST: Returns ErrInvalidDir for anything but "", "none", "asc", "desc"
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "none":
		return DirNone, nil
	case "asc":
		return DirAsc, nil
	case "desc":
		return DirDesc, nil
	}
	return DirNone, ErrInvalidDir
}

// SortKey is one entry of the sort spec.
type SortKey struct {
	Column    string
	Direction Direction
}

// Query is everything the projection depends on besides rows and columns.
type Query struct {
	Filters       map[string]string
	Global        string
	Sort          []SortKey
	CaseSensitive bool
}

// Project returns the visible rows: those matching the global filter and
// every column filter, ordered by the sort spec. Ties keep row-set order.
// Unknown or non-filterable filter keys and unknown sort columns are ignored.
// PRE: columns passed ValidateColumns
// POST: Returns a new slice; rows is not modified
func Project(rows []userrecord.Record, columns []Column, q Query) []userrecord.Record {
	byKey := indexColumns(columns)
	m := matcher{caseSensitive: q.CaseSensitive}

	type activeFilter struct {
		col    Column
		needle string
	}
	var filters []activeFilter
	for key, v := range q.Filters {
		if v == "" {
			continue
		}
		i, ok := byKey[key]
		if !ok || !columns[i].Filterable {
			continue
		}
		filters = append(filters, activeFilter{col: columns[i], needle: v})
	}

	out := make([]userrecord.Record, 0, len(rows))
	for _, r := range rows {
		visible := true
		for _, f := range filters {
			if !m.contains(f.col.Value(r), f.needle) {
				visible = false
				break
			}
		}
		if visible && q.Global != "" {
			visible = false
			for _, c := range columns {
				if c.Filterable && m.contains(c.Value(r), q.Global) {
					visible = true
					break
				}
			}
		}
		if visible {
			out = append(out, r)
		}
	}

	var keys []SortKey
	for _, k := range q.Sort {
		if k.Direction == DirNone {
			continue
		}
		if _, ok := byKey[k.Column]; ok {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return out
	}
	sort.SliceStable(out, func(a, b int) bool {
		for _, k := range keys {
			c := columns[byKey[k.Column]].compare(out[a], out[b])
			if c == 0 {
				continue
			}
			if k.Direction == DirDesc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return out
}

type matcher struct {
	caseSensitive bool
}

func (m matcher) contains(value, needle string) bool {
	if m.caseSensitive {
		return strings.Contains(value, needle)
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(needle))
}

func indexColumns(columns []Column) map[string]int {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c.Key] = i
	}
	return idx
}
