package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"labconsole/internal/domain/audit"
	"labconsole/internal/domain/experimenter"
)

// ErrAuth is returned when an experimenter identifier cannot be resolved.
var ErrAuth = errors.New("login failed")

// ExperimenterLookup resolves an experimenter identifier.
type ExperimenterLookup interface {
	LookupExperimenter(ctx context.Context, id string) (experimenter.LookupResult, error)
}

// Fingerprinter turns an identifier into a non-reversible audit fingerprint.
type Fingerprinter interface {
	Fingerprint(id string) string
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	ExperimenterID string
	IPAddress      string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	Lookup       ExperimenterLookup
	Audit        AuditRecorder
	Fingerprints Fingerprinter
}

// ExecuteLogin resolves the identifier through the lookup collaborator.
// The identifier is sent as typed; an empty one is rejected without a call.
// PRE: deps.Lookup and deps.Fingerprints are set
// POST: Returns an authenticated identity, or an error wrapping ErrAuth.
// The caller's session state is not touched here.
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (experimenter.Identity, error) {
	fp := deps.Fingerprints.Fingerprint(input.ExperimenterID)
	fail := func(reason string, err error) (experimenter.Identity, error) {
		slog.Info("auth_event", "event", "login_failed", "actor", fp, "reason", reason, "error", err)
		recordAudit(ctx, deps.Audit, audit.NewEvent(fp, audit.CategorySession, audit.ActionLoginFailed).
			WithSeverity(audit.SeverityWarning).WithDescription(reason).WithIP(input.IPAddress))
		return experimenter.Identity{}, fmt.Errorf("%w: %w", ErrAuth, err)
	}

	if input.ExperimenterID == "" {
		return fail("empty_id", experimenter.ErrEmptyID)
	}

	res, err := deps.Lookup.LookupExperimenter(ctx, input.ExperimenterID)
	if err != nil {
		return fail("lookup", err)
	}
	id, err := experimenter.FromLookup(input.ExperimenterID, res)
	if err != nil {
		return fail("invalid_identity", err)
	}

	// The resolved id may differ from the typed one; later events use the resolved id.
	fp = deps.Fingerprints.Fingerprint(id.ExperimenterID)
	slog.Info("auth_event", "event", "login_success", "actor", fp, "owners", len(id.Names))
	recordAudit(ctx, deps.Audit, audit.NewEvent(fp, audit.CategorySession, audit.ActionLogin).
		WithOwner(id.PrimaryOwner()).WithIP(input.IPAddress))
	return id, nil
}

// LogoutInput carries input for the logout orchestrator.
type LogoutInput struct {
	Identity  experimenter.Identity
	IPAddress string
}

// LogoutDeps holds dependencies for Logout.
type LogoutDeps struct {
	Audit        AuditRecorder
	Fingerprints Fingerprinter
}

// ExecuteLogout records the end of a session. Session removal is the
// caller's job.
func ExecuteLogout(ctx context.Context, input LogoutInput, deps LogoutDeps) {
	fp := deps.Fingerprints.Fingerprint(input.Identity.ExperimenterID)
	slog.Info("auth_event", "event", "logout", "actor", fp)
	recordAudit(ctx, deps.Audit, audit.NewEvent(fp, audit.CategorySession, audit.ActionLogout).
		WithOwner(input.Identity.PrimaryOwner()).WithIP(input.IPAddress))
}
