// Package listutil parses the users grid controls posted by the console
// pages and JSON clients.
package listutil

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// FilterPrefix prefixes per-column filter fields ("filter_user_id").
const FilterPrefix = "filter_"

// ErrBadRowID is returned when a row id field is missing or not a positive integer.
var ErrBadRowID = errors.New("invalid row id")

// SortParams carries one sort key parsed from a request.
// Dir is "asc", "desc" or "" for none.
type SortParams struct {
	Column string
	Dir    string
}

// FilterParams carries the global search text and per-column filters.
// Present reports which filter fields were posted, so an empty value can
// clear a filter.
type FilterParams struct {
	Search        string
	SearchPresent bool
	Filters       map[string]string
	Present       map[string]bool
}

// ParseSortParams extracts sort and dir.
// PRE: none
// POST: ok is false when sort is not an allowed column; Dir is "asc", "desc" or ""
func ParseSortParams(q url.Values, allowedColumns []string) (SortParams, bool) {
	col := q.Get("sort")
	if !isAllowedColumn(col, allowedColumns) {
		return SortParams{}, false
	}
	return SortParams{Column: col, Dir: normalizeDir(q.Get("dir"))}, true
}

// ParseSortSpec parses a multi-key spec such as "grade:asc,levels_played:desc".
// Unknown columns and repeated columns are dropped; a key without a
// direction sorts ascending.
// PRE: none
// POST: returns keys in precedence order, each column at most once
func ParseSortSpec(spec string, allowedColumns []string) []SortParams {
	var out []SortParams
	seen := make(map[string]bool)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		col, dir, hasDir := strings.Cut(part, ":")
		if !hasDir {
			dir = "asc"
		}
		if !isAllowedColumn(col, allowedColumns) || seen[col] {
			continue
		}
		seen[col] = true
		out = append(out, SortParams{Column: col, Dir: normalizeDir(dir)})
	}
	return out
}

// ParseFilterParams extracts the global search "q" and "filter_<key>" fields.
// PRE: filterKeys lists the filterable column keys
// POST: returns FilterParams with only recognised keys
func ParseFilterParams(q url.Values, filterKeys []string) FilterParams {
	fp := FilterParams{
		Search:  q.Get("q"),
		Filters: make(map[string]string),
		Present: make(map[string]bool),
	}
	_, fp.SearchPresent = q["q"]
	for _, key := range filterKeys {
		if vs, ok := q[FilterPrefix+key]; ok {
			fp.Present[key] = true
			if len(vs) > 0 {
				fp.Filters[key] = vs[0]
			} else {
				fp.Filters[key] = ""
			}
		}
	}
	return fp
}

// ParseRowID reads a positive integer row id from field key.
func ParseRowID(q url.Values, key string) (int, error) {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil || n < 1 {
		return 0, ErrBadRowID
	}
	return n, nil
}

// ParseBool reports whether a checkbox-style field is set.
func ParseBool(q url.Values, key string) bool {
	switch strings.ToLower(q.Get(key)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func normalizeDir(dir string) string {
	switch strings.ToLower(dir) {
	case "asc":
		return "asc"
	case "desc":
		return "desc"
	}
	return ""
}

func isAllowedColumn(col string, allowed []string) bool {
	for _, a := range allowed {
		if col == a {
			return true
		}
	}
	return false
}
