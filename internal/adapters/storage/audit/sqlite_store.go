package audit

import (
	"context"
	"time"

	"labconsole/internal/adapters/storage"
	domain "labconsole/internal/domain/audit"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

const eventColumns = `id, timestamp, category, action, severity, actor_fingerprint, owner, record_count, description, ip_address, batch_id`

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new audit event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists an audit event.
// PRE: event has an ID
// POST: Event is persisted
func (s *SQLiteStore) Save(ctx context.Context, e domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_event (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC().Format(dateLayout), string(e.Category), string(e.Action), string(e.Severity),
		e.ActorFingerprint, e.Owner, e.RecordCount, e.Description, e.IPAddress, e.BatchID)
	return err
}

// List returns audit events matching filter, newest first.
// PRE: limit > 0
// POST: Returns at most limit events
func (s *SQLiteStore) List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM audit_event WHERE 1=1`
	args := []any{}

	if filter.Category != nil {
		query += " AND category = ?"
		args = append(args, string(*filter.Category))
	}
	if filter.Action != nil {
		query += " AND action = ?"
		args = append(args, string(*filter.Action))
	}
	if filter.ActorFingerprint != nil {
		query += " AND actor_fingerprint = ?"
		args = append(args, *filter.ActorFingerprint)
	}
	if filter.Owner != nil {
		query += " AND owner = ?"
		args = append(args, *filter.Owner)
	}
	if filter.BatchID != nil {
		query += " AND batch_id = ?"
		args = append(args, *filter.BatchID)
	}
	query += " ORDER BY timestamp DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID retrieves a specific audit event.
// PRE: id is non-empty
// POST: Returns sql.ErrNoRows if absent
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM audit_event WHERE id = ?`, id)
	return scanEvent(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (domain.Event, error) {
	var e domain.Event
	var ts string
	err := sc.Scan(&e.ID, &ts, &e.Category, &e.Action, &e.Severity, &e.ActorFingerprint,
		&e.Owner, &e.RecordCount, &e.Description, &e.IPAddress, &e.BatchID)
	if err != nil {
		return domain.Event{}, err
	}
	e.Timestamp, _ = time.Parse(dateLayout, ts)
	return e, nil
}
