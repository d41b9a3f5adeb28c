package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"labconsole/internal/adapters/remote"
	"labconsole/internal/domain/audit"
	"labconsole/internal/domain/userrecord"
	"labconsole/internal/domain/workspace"
)

// ErrFetch is returned when the user listing could not be retrieved.
var ErrFetch = errors.New("failed to fetch users")

// UserLister lists the users owned by a set of experimenters.
type UserLister interface {
	ListUsers(ctx context.Context, req remote.ListRequest) ([]userrecord.Payload, error)
}

// FetchWorkspace is the part of the workspace a fetch writes to.
type FetchWorkspace interface {
	ApplyFetch(t workspace.FetchTicket, records []userrecord.Record) bool
	FailFetch(t workspace.FetchTicket, msg string) bool
}

// FetchUsersInput carries input for the fetch orchestrator.
type FetchUsersInput struct {
	Ticket      workspace.FetchTicket
	Fingerprint string
	IPAddress   string
}

// FetchUsersDeps holds dependencies for FetchUsers.
type FetchUsersDeps struct {
	Lister    UserLister
	Workspace FetchWorkspace
	Audit     AuditRecorder
}

// FetchUsersResult reports what happened to the fetched rows.
type FetchUsersResult struct {
	Applied bool
	Count   int
}

// ExecuteFetchUsers lists the ticket's owners and replaces the row set.
// The remote call runs without holding the workspace lock.
// PRE: Ticket was issued by the workspace being written
// POST: On success rows are numbered 1..n in response order and applied if the
// ticket is still current; on failure the banner is set and rows are kept;
// a stale ticket changes nothing
func ExecuteFetchUsers(ctx context.Context, input FetchUsersInput, deps FetchUsersDeps) (FetchUsersResult, error) {
	t := input.Ticket
	payloads, err := deps.Lister.ListUsers(ctx, remote.ListRequest{
		Experimenters:   t.Owners,
		FilterNonPlayed: !t.IncludeInactive,
	})
	if err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrFetch, err)
		if !deps.Workspace.FailFetch(t, wrapped.Error()) {
			slog.Info("fetch_stale_discarded", "generation", t.Generation, "error", err)
			return FetchUsersResult{}, nil
		}
		slog.Error("fetch_event", "event", "fetch_failed", "actor", input.Fingerprint, "generation", t.Generation, "error", err)
		return FetchUsersResult{}, wrapped
	}

	records := userrecord.FromPayloads(payloads)
	if !deps.Workspace.ApplyFetch(t, records) {
		slog.Info("fetch_stale_discarded", "generation", t.Generation, "count", len(records))
		return FetchUsersResult{Count: len(records)}, nil
	}

	slog.Info("fetch_event", "event", "fetch_applied", "actor", input.Fingerprint,
		"generation", t.Generation, "owners", len(t.Owners), "include_inactive", t.IncludeInactive, "count", len(records))
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Fingerprint, audit.CategoryRecords, audit.ActionFetch).
		WithOwner(firstOwner(t.Owners)).WithRecordCount(len(records)).WithIP(input.IPAddress))
	return FetchUsersResult{Applied: true, Count: len(records)}, nil
}

func firstOwner(owners []string) string {
	if len(owners) == 0 {
		return ""
	}
	return owners[0]
}
