package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"labconsole/internal/adapters/spreadsheet"
	"labconsole/internal/domain/audit"
	"labconsole/internal/domain/grid"
	"labconsole/internal/domain/userrecord"
)

// ErrNothingSelected is returned when an export is requested with no selected rows.
var ErrNothingSelected = errors.New("no users selected")

// ExportUsersInput carries input for the export orchestrator.
type ExportUsersInput struct {
	Selected    []userrecord.Record
	Owner       string
	Fingerprint string
	IPAddress   string
}

// ExportUsersDeps holds dependencies for ExportUsers.
type ExportUsersDeps struct {
	Saver   spreadsheet.Saver
	Columns []grid.Column
	Audit   AuditRecorder
}

// ExecuteExportUsers writes the selected rows to selected_users.xlsx.
// PRE: Selected is in row-set order
// POST: Saver received one workbook with exactly the selected rows, or an
// error is returned and nothing was saved
func ExecuteExportUsers(ctx context.Context, input ExportUsersInput, deps ExportUsersDeps) error {
	if len(input.Selected) == 0 {
		return ErrNothingSelected
	}
	if err := spreadsheet.Export(ctx, deps.Saver, spreadsheet.SelectedUsers, deps.Columns, input.Selected); err != nil {
		slog.Error("export_event", "event", "export_failed", "actor", input.Fingerprint, "error", err)
		return err
	}
	slog.Info("export_event", "event", "exported", "actor", input.Fingerprint, "count", len(input.Selected))
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Fingerprint, audit.CategoryExport, audit.ActionExport).
		WithOwner(input.Owner).WithRecordCount(len(input.Selected)).WithIP(input.IPAddress))
	return nil
}
