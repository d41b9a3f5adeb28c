package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"labconsole/internal/adapters/email"
	"labconsole/internal/adapters/spreadsheet"
	"labconsole/internal/domain/audit"
	"labconsole/internal/domain/grid"
	"labconsole/internal/domain/userrecord"
)

// ErrCreation is returned when a user batch could not be created.
var ErrCreation = errors.New("failed to create users")

// UserCreator issues new user identifiers.
type UserCreator interface {
	CreateUsers(ctx context.Context, params userrecord.CreateParams) ([]string, error)
}

// CreationWorkspace is the part of the workspace the creation flow drives.
// Save receives the created_users.xlsx pending download.
type CreationWorkspace interface {
	BeginCreation() (string, error)
	CompleteCreation(records []userrecord.Record) ([]userrecord.Record, error)
	FailCreation(msg string) error
	spreadsheet.Saver
}

// CreateUsersInput carries input for the creation orchestrator.
type CreateUsersInput struct {
	Count       int
	Grade       string
	Language    string
	Fingerprint string
	IPAddress   string
}

// CreateUsersDeps holds dependencies for CreateUsers.
// Notifier and NotifyTo are optional.
type CreateUsersDeps struct {
	Creator    UserCreator
	Workspace  CreationWorkspace
	Columns    []grid.Column
	Audit      AuditRecorder
	Notifier   email.Sender
	NotifyTo   string
	GenerateID func() string
}

// CreateUsersResult carries the appended batch.
type CreateUsersResult struct {
	BatchID string
	Created []userrecord.Record
}

// ExecuteCreateUsers runs one submission of the creation form.
// Users are attributed to the identity's primary owner only.
// PRE: the creation form is open
// POST: On success the batch is appended to the rows, exported as
// created_users.xlsx to the workspace and the form is closed. On failure the
// form is reopened with the message and nothing is merged.
func ExecuteCreateUsers(ctx context.Context, input CreateUsersInput, deps CreateUsersDeps) (CreateUsersResult, error) {
	owner, err := deps.Workspace.BeginCreation()
	if err != nil {
		return CreateUsersResult{}, fmt.Errorf("%w: %w", ErrCreation, err)
	}
	fail := func(err error) (CreateUsersResult, error) {
		wrapped := fmt.Errorf("%w: %w", ErrCreation, err)
		slog.Warn("creation_event", "event", "creation_failed", "actor", input.Fingerprint, "owner", owner, "error", err)
		if ferr := deps.Workspace.FailCreation(wrapped.Error()); ferr != nil {
			slog.Error("creation_event", "event", "fail_transition", "error", ferr)
		}
		return CreateUsersResult{}, wrapped
	}

	params := userrecord.CreateParams{Owner: owner, Count: input.Count, Grade: input.Grade, Language: input.Language}
	if err := params.Validate(); err != nil {
		return fail(err)
	}
	ids, err := deps.Creator.CreateUsers(ctx, params)
	if err != nil {
		return fail(err)
	}
	records, err := userrecord.NewCreated(ids, params)
	if err != nil {
		return fail(err)
	}
	added, err := deps.Workspace.CompleteCreation(records)
	if err != nil {
		return fail(err)
	}

	batchID := deps.GenerateID()
	slog.Info("creation_event", "event", "users_created", "actor", input.Fingerprint, "owner", owner,
		"batch_id", batchID, "count", len(added), "grade", params.Grade, "language", params.Language)
	recordAudit(ctx, deps.Audit, audit.NewEvent(input.Fingerprint, audit.CategoryRecords, audit.ActionCreate).
		WithOwner(owner).WithRecordCount(len(added)).WithBatch(batchID).WithIP(input.IPAddress).
		WithDescription(fmt.Sprintf("grade=%s language=%s", params.Grade, params.Language)))

	data, err := spreadsheet.Encode(spreadsheet.CreatedUsers, deps.Columns, added)
	if err != nil {
		slog.Error("export_event", "event", "created_export_failed", "batch_id", batchID, "error", err)
		return CreateUsersResult{BatchID: batchID, Created: added}, nil
	}
	if err := deps.Workspace.Save(ctx, spreadsheet.CreatedUsers.Filename, spreadsheet.ContentType, data); err != nil {
		slog.Error("export_event", "event", "created_export_failed", "batch_id", batchID, "error", err)
	}
	notifyCreated(ctx, deps, owner, batchID, added, data)

	return CreateUsersResult{BatchID: batchID, Created: added}, nil
}

var createdMailTmpl = template.Must(template.New("created").Parse(
	`<p>{{.Count}} users were created for <strong>{{.Owner}}</strong> (batch {{.BatchID}}).</p>
<ul>{{range .IDs}}<li>{{.}}</li>{{end}}</ul>`))

// notifyCreated emails the created spreadsheet when a recipient is configured.
func notifyCreated(ctx context.Context, deps CreateUsersDeps, owner, batchID string, added []userrecord.Record, data []byte) {
	if deps.Notifier == nil || deps.NotifyTo == "" {
		return
	}
	ids := make([]string, len(added))
	for i, r := range added {
		ids[i] = r.UserID
	}
	var body strings.Builder
	if err := createdMailTmpl.Execute(&body, map[string]any{
		"Count": len(added), "Owner": owner, "BatchID": batchID, "IDs": ids,
	}); err != nil {
		slog.Error("creation_event", "event", "notify_render_failed", "error", err)
		return
	}
	_, err := deps.Notifier.Send(ctx, email.SendRequest{
		To:      []string{deps.NotifyTo},
		Subject: fmt.Sprintf("%d users created for %s", len(added), owner),
		HTML:    body.String(),
		Attachments: []email.Attachment{{
			Filename:    spreadsheet.CreatedUsers.Filename,
			ContentType: spreadsheet.ContentType,
			Content:     data,
		}},
	})
	if err != nil {
		slog.Error("creation_event", "event", "notify_failed", "batch_id", batchID, "error", err)
	}
}
