package projections

import (
	"context"
	"fmt"

	auditStore "labconsole/internal/adapters/storage/audit"
	"labconsole/internal/domain/audit"
)

// DefaultAuditLimit caps the audit trail when no limit is requested.
const DefaultAuditLimit = 100

// MaxAuditLimit is the largest accepted limit.
const MaxAuditLimit = 1000

// AuditLister reads persisted audit events.
type AuditLister interface {
	List(ctx context.Context, filter auditStore.Filter, limit int) ([]audit.Event, error)
}

// GetAuditTrailQuery carries query parameters.
type GetAuditTrailQuery struct {
	Fingerprint string
	Action      string
	Limit       int
}

// GetAuditTrailDeps holds dependencies for GetAuditTrail.
type GetAuditTrailDeps struct {
	Store AuditLister
}

// AuditTrailView is the activity page of one experimenter.
type AuditTrailView struct {
	Events []audit.Event `json:"events"`
	Action string        `json:"action,omitempty"`
	Limit  int           `json:"limit"`
}

// QueryGetAuditTrail lists the events recorded for one experimenter fingerprint.
// PRE: query.Fingerprint is non-empty
// POST: Returns at most Limit events, newest first, never another actor's
func QueryGetAuditTrail(ctx context.Context, query GetAuditTrailQuery, deps GetAuditTrailDeps) (AuditTrailView, error) {
	limit := query.Limit
	if limit <= 0 || limit > MaxAuditLimit {
		limit = DefaultAuditLimit
	}
	fp := query.Fingerprint
	filter := auditStore.Filter{ActorFingerprint: &fp}
	if query.Action != "" {
		act := audit.Action(query.Action)
		filter.Action = &act
	}
	events, err := deps.Store.List(ctx, filter, limit)
	if err != nil {
		return AuditTrailView{}, fmt.Errorf("list audit events: %w", err)
	}
	if events == nil {
		events = []audit.Event{}
	}
	return AuditTrailView{Events: events, Action: query.Action, Limit: limit}, nil
}
