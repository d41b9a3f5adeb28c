package orchestrators

import (
	"context"
	"log/slog"

	"labconsole/internal/domain/audit"
)

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Save(ctx context.Context, e audit.Event) error
}

// recordAudit saves e when a recorder is configured. Failures are logged only;
// an audit outage never fails the user's action.
func recordAudit(ctx context.Context, rec AuditRecorder, e audit.Event) {
	if rec == nil {
		return
	}
	if err := rec.Save(ctx, e); err != nil {
		slog.Error("audit_save_failed", "action", e.Action, "error", err)
	}
}
