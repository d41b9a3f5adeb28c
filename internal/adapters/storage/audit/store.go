package audit

import (
	"context"

	domain "labconsole/internal/domain/audit"
)

// Store defines the interface for audit event persistence.
type Store interface {
	// Save persists an audit event.
	// PRE: event has an ID
	// POST: Event is persisted
	Save(ctx context.Context, event domain.Event) error

	// List returns audit events matching filter, newest first.
	// PRE: limit > 0
	List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error)

	// GetByID retrieves a specific audit event.
	GetByID(ctx context.Context, id string) (domain.Event, error)
}

// Filter narrows List. Nil fields do not filter.
type Filter struct {
	Category         *domain.Category
	Action           *domain.Action
	ActorFingerprint *string
	Owner            *string
	BatchID          *string
}

var _ Store = (*SQLiteStore)(nil)
