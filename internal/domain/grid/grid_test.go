package grid

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labconsole/internal/domain/userrecord"
)

func sampleRows() []userrecord.Record {
	return []userrecord.Record{
		{RowID: 1, UserID: "u-alpha", LevelsPlayed: 3, Experimenter: "Alice", Grade: "3rd"},
		{RowID: 2, UserID: "u-beta", LevelsPlayed: 0, Experimenter: "Bob", Grade: "1st"},
		{RowID: 3, UserID: "U-GAMMA", LevelsPlayed: 12, Experimenter: "alice", Grade: "2nd"},
		{RowID: 4, UserID: "u-delta", LevelsPlayed: 7, Experimenter: "Carol", Grade: "3rd"},
	}
}

func newGrid(t *testing.T, opts ...Option) *Grid {
	t.Helper()
	g, err := New(UserColumns(), opts...)
	require.NoError(t, err)
	g.ReplaceRows(sampleRows())
	return g
}

func rowIDs(rows []userrecord.Record) []int {
	ids := make([]int, len(rows))
	for i, r := range rows {
		ids[i] = r.RowID
	}
	return ids
}

// TestNew_RejectsColumnWithoutAccessor verifies every declared column needs a value accessor.
func TestNew_RejectsColumnWithoutAccessor(t *testing.T) {
	cols := UserColumns()
	cols[3].Value = nil

	_, err := New(cols)
	require.ErrorIs(t, err, ErrMissingAccessor)
	assert.Contains(t, err.Error(), ColGrade)
}

// TestNew_RejectsDuplicateKeys verifies column keys are unique.
func TestNew_RejectsDuplicateKeys(t *testing.T) {
	cols := append(UserColumns(), UserColumns()[0])
	_, err := New(cols)
	require.ErrorIs(t, err, ErrDuplicateColumn)
}

// TestSetFilter_CaseInsensitiveByDefault verifies the default substring policy ignores case.
func TestSetFilter_CaseInsensitiveByDefault(t *testing.T) {
	g := newGrid(t)
	require.NoError(t, g.SetFilter(ColExperimenter, "ALICE"))
	assert.Equal(t, []int{1, 3}, rowIDs(g.Visible()))

	require.NoError(t, g.SetFilter(ColUserID, "gam"))
	assert.Equal(t, []int{3}, rowIDs(g.Visible()))
}

// TestSetFilter_CaseSensitive verifies the case-sensitive policy.
func TestSetFilter_CaseSensitive(t *testing.T) {
	g := newGrid(t, WithCaseSensitive(true))
	require.NoError(t, g.SetFilter(ColExperimenter, "alice"))
	assert.Equal(t, []int{3}, rowIDs(g.Visible()))

	require.NoError(t, g.SetFilter(ColExperimenter, "Alice"))
	assert.Equal(t, []int{1}, rowIDs(g.Visible()))
}

// TestSetFilter_EmptyClears verifies an empty value removes the filter.
func TestSetFilter_EmptyClears(t *testing.T) {
	g := newGrid(t)
	require.NoError(t, g.SetFilter(ColGrade, "3rd"))
	assert.Len(t, g.Visible(), 2)

	require.NoError(t, g.SetFilter(ColGrade, ""))
	assert.Len(t, g.Visible(), 4)
	assert.Empty(t, g.Filters())
}

// TestSetFilter_UnknownColumn verifies unknown keys are rejected.
func TestSetFilter_UnknownColumn(t *testing.T) {
	g := newGrid(t)
	require.ErrorIs(t, g.SetFilter("password", "x"), ErrUnknownColumn)
}

// TestSetFilter_NumericColumnMatchesText verifies numbers filter by their decimal text.
func TestSetFilter_NumericColumnMatchesText(t *testing.T) {
	g := newGrid(t)
	require.NoError(t, g.SetFilter(ColLevelsPlayed, "1"))
	assert.Equal(t, []int{3}, rowIDs(g.Visible()))
}

// TestProject_FilterProperty checks over random data that the projection keeps
// exactly the rows whose column value contains the filter text, for both case policies.
func TestProject_FilterProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abAB")
	randWord := func(n int) string {
		var sb strings.Builder
		for i := 0; i < n; i++ {
			sb.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		return sb.String()
	}
	cols := UserColumns()

	for iter := 0; iter < 200; iter++ {
		rows := make([]userrecord.Record, 1+rng.Intn(20))
		for i := range rows {
			rows[i] = userrecord.Record{RowID: i + 1, UserID: randWord(5), Experimenter: randWord(3), LevelsPlayed: rng.Intn(30), Grade: randWord(2)}
		}
		needle := randWord(1 + rng.Intn(2))
		for _, caseSensitive := range []bool{false, true} {
			got := Project(rows, cols, Query{Filters: map[string]string{ColUserID: needle}, CaseSensitive: caseSensitive})
			var want []int
			for _, r := range rows {
				hay, n := r.UserID, needle
				if !caseSensitive {
					hay, n = strings.ToLower(hay), strings.ToLower(n)
				}
				if strings.Contains(hay, n) {
					want = append(want, r.RowID)
				}
			}
			if want == nil {
				want = []int{}
			}
			require.Equal(t, want, rowIDs(got), "needle=%q caseSensitive=%v", needle, caseSensitive)
		}
	}
}

// TestGlobalFilter_AndWithColumnFilters verifies the global filter is ANDed with column filters.
func TestGlobalFilter_AndWithColumnFilters(t *testing.T) {
	g := newGrid(t)
	g.SetGlobalFilter("3rd")
	assert.Equal(t, []int{1, 4}, rowIDs(g.Visible()))

	require.NoError(t, g.SetFilter(ColExperimenter, "carol"))
	assert.Equal(t, []int{4}, rowIDs(g.Visible()))

	g.SetGlobalFilter("")
	assert.Equal(t, []int{4}, rowIDs(g.Visible()))
}

// TestGlobalFilter_MatchesAnyColumn verifies the global text may hit any filterable column.
func TestGlobalFilter_MatchesAnyColumn(t *testing.T) {
	g := newGrid(t)
	g.SetGlobalFilter("b")
	// "u-beta" and "Bob" both live in row 2; "u-alpha" has no b.
	assert.Equal(t, []int{2}, rowIDs(g.Visible()))
}

// TestSetSort_NumericAndReverse verifies numeric ordering and that desc is the exact reverse of asc without ties.
func TestSetSort_NumericAndReverse(t *testing.T) {
	g := newGrid(t)
	require.NoError(t, g.SetSort(ColLevelsPlayed, DirAsc))
	asc := rowIDs(g.Visible())
	assert.Equal(t, []int{2, 1, 4, 3}, asc)

	require.NoError(t, g.SetSort(ColLevelsPlayed, DirDesc))
	desc := rowIDs(g.Visible())
	for i := range asc {
		assert.Equal(t, asc[i], desc[len(desc)-1-i])
	}
}

// TestSetSort_StableForTies verifies equal keys keep row-set order in both directions.
func TestSetSort_StableForTies(t *testing.T) {
	g := newGrid(t)
	require.NoError(t, g.SetSort(ColGrade, DirAsc))
	assert.Equal(t, []int{2, 3, 1, 4}, rowIDs(g.Visible()))

	require.NoError(t, g.SetSort(ColGrade, DirDesc))
	assert.Equal(t, []int{1, 4, 3, 2}, rowIDs(g.Visible()))
}

// TestSetSort_NoneRestoresRowOrder verifies clearing the sort shows row-set order again.
func TestSetSort_NoneRestoresRowOrder(t *testing.T) {
	g := newGrid(t)
	require.NoError(t, g.SetSort(ColUserID, DirDesc))
	require.NoError(t, g.SetSort(ColUserID, DirNone))
	assert.Equal(t, []int{1, 2, 3, 4}, rowIDs(g.Visible()))
	assert.Empty(t, g.Sort())
}

// TestSetSortKeys_TieBreak verifies later keys break ties of earlier keys.
func TestSetSortKeys_TieBreak(t *testing.T) {
	g := newGrid(t)
	require.NoError(t, g.SetSortKeys([]SortKey{{ColGrade, DirAsc}, {ColLevelsPlayed, DirDesc}}))
	assert.Equal(t, []int{2, 3, 4, 1}, rowIDs(g.Visible()))

	err := g.SetSortKeys([]SortKey{{ColGrade, DirAsc}, {ColGrade, DirDesc}})
	require.ErrorIs(t, err, ErrDuplicateColumn)
}

// TestCycleSort verifies header clicks cycle none -> asc -> desc -> none.
func TestCycleSort(t *testing.T) {
	g := newGrid(t)
	for _, want := range []Direction{DirAsc, DirDesc, DirNone, DirAsc} {
		got, err := g.CycleSort(ColUserID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := g.CycleSort(ColGrade)
	require.NoError(t, err)
	assert.Equal(t, DirAsc, got)
	assert.Equal(t, DirNone, g.SortDirection(ColUserID), "sorting a new column replaces the spec")
}

// TestParseDirection covers accepted and rejected direction strings.
func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"": DirNone, "none": DirNone, "asc": DirAsc, "desc": DirDesc} {
		got, err := ParseDirection(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseDirection("DROP")
	require.ErrorIs(t, err, ErrInvalidDir)
}

// TestSelectAll_NarrowFilter_Toggle verifies selection changes never reach rows outside the visible set.
func TestSelectAll_NarrowFilter_Toggle(t *testing.T) {
	g := newGrid(t)
	require.NoError(t, g.SetFilter(ColGrade, "3rd"))
	g.ToggleAllSelected(true)
	assert.Equal(t, []int{1, 4}, rowIDs(g.SelectedRecords()))

	require.NoError(t, g.SetFilter(ColExperimenter, "carol"))
	assert.False(t, g.ToggleRowSelected(2), "hidden row must not toggle")
	assert.False(t, g.ToggleRowSelected(99), "unknown row must not toggle")
	assert.True(t, g.ToggleRowSelected(4))
	assert.Equal(t, []int{1}, rowIDs(g.SelectedRecords()))

	g.ToggleAllSelected(true)
	visible := map[int]bool{4: true}
	for _, r := range g.SelectedRecords() {
		if r.RowID != 1 {
			assert.True(t, visible[r.RowID], "row %d selected while hidden", r.RowID)
		}
	}
	assert.False(t, g.IsSelected(2))
	assert.False(t, g.IsSelected(3))
}

// TestSelectAll_RandomizedNeverSelectsHidden runs random filter/toggle sequences and checks
// that every newly selected id was visible at the time of selection.
func TestSelectAll_RandomizedNeverSelectsHidden(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	needles := []string{"", "a", "u-", "3", "b", "zz"}
	for iter := 0; iter < 100; iter++ {
		g := newGrid(t)
		for step := 0; step < 10; step++ {
			require.NoError(t, g.SetFilter(ColUserID, needles[rng.Intn(len(needles))]))
			before := map[int]bool{}
			for _, r := range g.SelectedRecords() {
				before[r.RowID] = true
			}
			visible := map[int]bool{}
			for _, r := range g.Visible() {
				visible[r.RowID] = true
			}
			if rng.Intn(2) == 0 {
				g.ToggleAllSelected(true)
			} else {
				g.ToggleRowSelected(1 + rng.Intn(5))
			}
			for _, r := range g.SelectedRecords() {
				if !before[r.RowID] {
					require.True(t, visible[r.RowID], "iter %d step %d: row %d selected while hidden", iter, step, r.RowID)
				}
			}
		}
	}
}

// TestToggleAllSelected_WholeRowSet verifies onlyVisible=false ignores filters.
func TestToggleAllSelected_WholeRowSet(t *testing.T) {
	g := newGrid(t)
	require.NoError(t, g.SetFilter(ColUserID, "beta"))
	g.ToggleAllSelected(false)
	assert.Equal(t, 4, g.SelectedCount())
	g.ToggleAllSelected(false)
	assert.Equal(t, 0, g.SelectedCount())
}

// TestToggleAllSelected_DeselectsWhenAllSelected verifies the header checkbox toggles off.
func TestToggleAllSelected_DeselectsWhenAllSelected(t *testing.T) {
	g := newGrid(t)
	g.ToggleAllSelected(true)
	assert.True(t, g.AllVisibleSelected())
	g.ToggleAllSelected(true)
	assert.Equal(t, 0, g.SelectedCount())
	assert.False(t, g.AllVisibleSelected())
}

// TestReplaceRows_ClearsSelection verifies a new row set leaves no dangling selected ids.
func TestReplaceRows_ClearsSelection(t *testing.T) {
	g := newGrid(t)
	g.ToggleAllSelected(true)
	require.Equal(t, 4, g.SelectedCount())

	g.ReplaceRows([]userrecord.Record{{RowID: 1, UserID: "fresh"}})
	assert.Equal(t, 0, g.SelectedCount())
	assert.Empty(t, g.SelectedRecords())
	assert.False(t, g.IsSelected(1))
}

// TestAppendRows_AssignsIDsAndKeepsSelection verifies appended rows get fresh ids after the current maximum.
func TestAppendRows_AssignsIDsAndKeepsSelection(t *testing.T) {
	g := newGrid(t)
	require.True(t, g.ToggleRowSelected(2))

	added := g.AppendRows([]userrecord.Record{{UserID: "new1"}, {UserID: "new2"}})
	assert.Equal(t, []int{5, 6}, rowIDs(added))
	assert.Equal(t, 6, g.Len())
	assert.True(t, g.IsSelected(2))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, rowIDs(g.Visible()))
}

// TestSelectedRecords_RowSetOrder verifies selection projects back in row-set order, not sort order.
func TestSelectedRecords_RowSetOrder(t *testing.T) {
	g := newGrid(t)
	require.NoError(t, g.SetSort(ColLevelsPlayed, DirDesc))
	require.True(t, g.ToggleRowSelected(3))
	require.True(t, g.ToggleRowSelected(1))
	assert.Equal(t, []int{1, 3}, rowIDs(g.SelectedRecords()))
}

// TestVisible_ReturnsCopy verifies callers cannot corrupt the cached projection.
func TestVisible_ReturnsCopy(t *testing.T) {
	g := newGrid(t)
	v := g.Visible()
	v[0].UserID = "mutated"
	assert.Equal(t, "u-alpha", g.Visible()[0].UserID)
}

// TestProject_IsPure verifies the projection does not reorder its input and is repeatable.
func TestProject_IsPure(t *testing.T) {
	rows := sampleRows()
	q := Query{Sort: []SortKey{{ColUserID, DirDesc}}, Filters: map[string]string{ColGrade: "rd"}}
	first := Project(rows, UserColumns(), q)
	second := Project(rows, UserColumns(), q)
	assert.Equal(t, first, second)
	assert.Equal(t, sampleRows(), rows)
}

// TestProject_IgnoresUnknownKeys verifies stale filter or sort keys do not break the projection.
func TestProject_IgnoresUnknownKeys(t *testing.T) {
	got := Project(sampleRows(), UserColumns(), Query{
		Filters: map[string]string{"nope": "x"},
		Sort:    []SortKey{{"nope", DirAsc}},
	})
	assert.Equal(t, []int{1, 2, 3, 4}, rowIDs(got))
}

func ExampleProject() {
	rows := []userrecord.Record{
		{RowID: 1, UserID: "u1", LevelsPlayed: 3, Experimenter: "Alice"},
		{RowID: 2, UserID: "u2", LevelsPlayed: 9, Experimenter: "Bob"},
	}
	for _, r := range Project(rows, UserColumns(), Query{Sort: []SortKey{{ColLevelsPlayed, DirDesc}}}) {
		fmt.Println(r.UserID)
	}
	// Output:
	// u2
	// u1
}
