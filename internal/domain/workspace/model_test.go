package workspace

import (
	"context"
	"errors"
	"sync"
	"testing"

	"labconsole/internal/domain/creation"
	"labconsole/internal/domain/experimenter"
	"labconsole/internal/domain/grid"
	"labconsole/internal/domain/userrecord"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	w, err := New(grid.UserColumns())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

var alice = experimenter.Identity{ExperimenterID: "e1", Names: []string{"Alice", "Bob"}, Authenticated: true}

// TestSetIdentity_IssuesTicketForOwners verifies login issues a fetch ticket for the new owner names.
func TestSetIdentity_IssuesTicketForOwners(t *testing.T) {
	w := newTestWorkspace(t)
	ticket := w.SetIdentity(alice)
	if ticket.Generation != 1 {
		t.Errorf("generation = %d, want 1", ticket.Generation)
	}
	if len(ticket.Owners) != 2 || ticket.Owners[0] != "Alice" {
		t.Errorf("owners = %v", ticket.Owners)
	}
	if ticket.IncludeInactive {
		t.Error("include inactive defaults to false")
	}
}

// TestApplyFetch_DiscardsStaleTicket verifies an older fetch cannot overwrite a newer one.
func TestApplyFetch_DiscardsStaleTicket(t *testing.T) {
	w := newTestWorkspace(t)
	first := w.SetIdentity(alice)
	second, changed := w.SetIncludeInactive(true)
	if !changed {
		t.Fatal("expected include-inactive change")
	}

	newer := []userrecord.Record{{RowID: 1, UserID: "newer"}}
	older := []userrecord.Record{{RowID: 1, UserID: "older"}, {RowID: 2, UserID: "older2"}}

	if !w.ApplyFetch(second, newer) {
		t.Fatal("latest ticket must apply")
	}
	if w.ApplyFetch(first, older) {
		t.Fatal("stale ticket must be discarded")
	}
	snap := w.Snapshot()
	if snap.RowCount != 1 || snap.Visible[0].UserID != "newer" {
		t.Errorf("rows = %+v, want the newer result", snap.Visible)
	}
	if w.FailFetch(first, "late failure") {
		t.Error("stale failure must be discarded")
	}
	if w.Snapshot().FetchError != "" {
		t.Error("stale failure must not set the banner")
	}
}

// TestSetIncludeInactive_NoChange verifies an unchanged value does not issue a fetch.
func TestSetIncludeInactive_NoChange(t *testing.T) {
	w := newTestWorkspace(t)
	if _, changed := w.SetIncludeInactive(false); changed {
		t.Error("unchanged value must not trigger a fetch")
	}
}

// TestApplyFetch_ClearsSelection verifies a new row set leaves no selected ids behind.
func TestApplyFetch_ClearsSelection(t *testing.T) {
	w := newTestWorkspace(t)
	t1 := w.SetIdentity(alice)
	w.ApplyFetch(t1, []userrecord.Record{{RowID: 1, UserID: "a"}, {RowID: 2, UserID: "b"}})
	_ = w.WithGrid(func(g *grid.Grid) error {
		g.ToggleAllSelected(true)
		return nil
	})
	if got := len(w.SelectedRecords()); got != 2 {
		t.Fatalf("selected = %d, want 2", got)
	}

	t2 := w.BeginFetch()
	w.ApplyFetch(t2, []userrecord.Record{{RowID: 1, UserID: "c"}})
	if got := len(w.SelectedRecords()); got != 0 {
		t.Errorf("selected = %d after refetch, want 0", got)
	}
}

// TestFailFetch_KeepsRows verifies a failed fetch keeps the previous row set.
func TestFailFetch_KeepsRows(t *testing.T) {
	w := newTestWorkspace(t)
	t1 := w.SetIdentity(alice)
	w.ApplyFetch(t1, []userrecord.Record{{RowID: 1, UserID: "a"}})

	t2 := w.BeginFetch()
	if !w.FailFetch(t2, "boom") {
		t.Fatal("current ticket failure must be recorded")
	}
	snap := w.Snapshot()
	if snap.RowCount != 1 || snap.FetchError != "boom" {
		t.Errorf("snapshot = %+v", snap)
	}
}

// TestCreation_AppendsBatch verifies a completed creation appends and remembers the batch.
func TestCreation_AppendsBatch(t *testing.T) {
	w := newTestWorkspace(t)
	t1 := w.SetIdentity(alice)
	w.ApplyFetch(t1, []userrecord.Record{{RowID: 1, UserID: "existing"}})

	if err := w.OpenCreation(); err != nil {
		t.Fatalf("OpenCreation: %v", err)
	}
	owner, err := w.BeginCreation()
	if err != nil {
		t.Fatalf("BeginCreation: %v", err)
	}
	if owner != "Alice" {
		t.Errorf("owner = %q, want the first owned name", owner)
	}
	added, err := w.CompleteCreation([]userrecord.Record{{UserID: "new1", Experimenter: owner}})
	if err != nil {
		t.Fatalf("CompleteCreation: %v", err)
	}
	if len(added) != 1 || added[0].RowID != 2 {
		t.Errorf("added = %+v, want RowID 2", added)
	}
	snap := w.Snapshot()
	if snap.RowCount != 2 || len(snap.Created) != 1 || snap.Creation.State != creation.StateIdle {
		t.Errorf("snapshot = %+v", snap)
	}
}

var bob = experimenter.Identity{ExperimenterID: "e2", Names: []string{"Bob"}, Authenticated: true}

// TestSetIdentity_OtherExperimenterStartsFresh verifies a login as someone else
// leaves none of the previous experimenter's rows, selection or created users,
// even when the new fetch fails.
func TestSetIdentity_OtherExperimenterStartsFresh(t *testing.T) {
	w := newTestWorkspace(t)
	t1 := w.SetIdentity(alice)
	w.ApplyFetch(t1, []userrecord.Record{{RowID: 1, UserID: "alice-u1", Experimenter: "Alice"}})
	_ = w.WithGrid(func(g *grid.Grid) error {
		g.ToggleRowSelected(1)
		return nil
	})
	_ = w.OpenCreation()
	if _, err := w.BeginCreation(); err != nil {
		t.Fatalf("BeginCreation: %v", err)
	}
	if _, err := w.CompleteCreation([]userrecord.Record{{UserID: "alice-new", Experimenter: "Alice"}}); err != nil {
		t.Fatalf("CompleteCreation: %v", err)
	}
	_ = w.Save(context.Background(), "created_users.xlsx", "application/octet-stream", []byte("data"))
	_ = w.OpenCreation()

	t2 := w.SetIdentity(bob)
	w.FailFetch(t2, "boom")

	snap := w.Snapshot()
	if snap.RowCount != 0 || len(snap.Visible) != 0 {
		t.Errorf("rows = %d, want none of the previous experimenter's rows", snap.RowCount)
	}
	if got := w.SelectedRecords(); len(got) != 0 {
		t.Errorf("selected = %+v, want none", got)
	}
	if len(snap.Created) != 0 {
		t.Errorf("created = %+v, want empty", snap.Created)
	}
	if snap.Creation.State != creation.StateIdle {
		t.Errorf("creation state = %s, want idle", snap.Creation.State)
	}
	if snap.PendingDownload != "" {
		t.Errorf("pending download = %q, want none", snap.PendingDownload)
	}
	if snap.Loaded || snap.FetchError != "boom" {
		t.Errorf("loaded=%v fetch error=%q", snap.Loaded, snap.FetchError)
	}
}

// TestSetIdentity_SameExperimenterKeepsState verifies logging in again as the same experimenter keeps the grid.
func TestSetIdentity_SameExperimenterKeepsState(t *testing.T) {
	w := newTestWorkspace(t)
	t1 := w.SetIdentity(alice)
	w.ApplyFetch(t1, []userrecord.Record{{RowID: 1, UserID: "a"}})

	w.SetIdentity(alice)
	if got := w.Snapshot().RowCount; got != 1 {
		t.Errorf("rows = %d, want 1 until the refetch lands", got)
	}
}

// TestCompleteCreation_AccumulatesBatches verifies the created-users list grows with each batch.
func TestCompleteCreation_AccumulatesBatches(t *testing.T) {
	w := newTestWorkspace(t)
	w.SetIdentity(alice)
	for _, id := range []string{"new1", "new2"} {
		_ = w.OpenCreation()
		if _, err := w.BeginCreation(); err != nil {
			t.Fatalf("BeginCreation: %v", err)
		}
		if _, err := w.CompleteCreation([]userrecord.Record{{UserID: id, Experimenter: "Alice"}}); err != nil {
			t.Fatalf("CompleteCreation: %v", err)
		}
	}
	created := w.Snapshot().Created
	if len(created) != 2 || created[0].UserID != "new1" || created[1].UserID != "new2" {
		t.Errorf("created = %+v, want both batches in order", created)
	}
}

// TestBeginCreation_RequiresIdentity verifies an anonymous workspace cannot create users.
func TestBeginCreation_RequiresIdentity(t *testing.T) {
	w := newTestWorkspace(t)
	_ = w.OpenCreation()
	if _, err := w.BeginCreation(); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

// TestPendingDownload_TakenOnce verifies the pending download is handed out a single time.
func TestPendingDownload_TakenOnce(t *testing.T) {
	w := newTestWorkspace(t)
	if err := w.Save(context.Background(), "created_users.xlsx", "application/octet-stream", []byte("data")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if w.Snapshot().PendingDownload != "created_users.xlsx" {
		t.Error("snapshot should expose the pending filename")
	}
	d, ok := w.TakePendingDownload()
	if !ok || d.Filename != "created_users.xlsx" || string(d.Data) != "data" {
		t.Errorf("download = %+v, ok=%v", d, ok)
	}
	if _, ok := w.TakePendingDownload(); ok {
		t.Error("download must only be served once")
	}
}

// TestWorkspace_ConcurrentAccess exercises the lock under the race detector.
func TestWorkspace_ConcurrentAccess(t *testing.T) {
	w := newTestWorkspace(t)
	w.SetIdentity(alice)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticket := w.BeginFetch()
			w.ApplyFetch(ticket, []userrecord.Record{{RowID: 1, UserID: "x"}})
			_ = w.WithGrid(func(g *grid.Grid) error {
				g.ToggleRowSelected(1)
				return nil
			})
			_ = w.Snapshot()
		}(i)
	}
	wg.Wait()
}
