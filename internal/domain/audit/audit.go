package audit

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Category represents the area an audit event belongs to.
type Category string

const (
	CategorySession Category = "session"
	CategoryRecords Category = "records"
	CategoryExport  Category = "export"
)

// Action represents the action that occurred.
type Action string

const (
	ActionLogin       Action = "login"
	ActionLoginFailed Action = "login_failed"
	ActionLogout      Action = "logout"
	ActionFetch       Action = "fetch"
	ActionCreate      Action = "create"
	ActionExport      Action = "export"
)

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Event represents a single audit log entry.
// ActorFingerprint is a keyed hash of the experimenter identifier; the raw
// identifier is the only credential of the console and is never stored.
type Event struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	Category         Category  `json:"category"`
	Action           Action    `json:"action"`
	Severity         Severity  `json:"severity"`
	ActorFingerprint string    `json:"actor_fingerprint"`
	Owner            string    `json:"owner"`
	RecordCount      int       `json:"record_count"`
	Description      string    `json:"description"`
	IPAddress        string    `json:"ip_address"`
	BatchID          string    `json:"batch_id,omitempty"`
}

// NewEvent creates a new audit event with the current timestamp.
// PRE: action is non-empty
// POST: Returns an Event with a fresh ID and info severity
func NewEvent(fingerprint string, category Category, action Action) Event {
	return Event{
		ID:               uuid.NewString(),
		Timestamp:        time.Now().UTC(),
		Category:         category,
		Action:           action,
		Severity:         SeverityInfo,
		ActorFingerprint: fingerprint,
	}
}

// WithSeverity sets the severity level.
func (e Event) WithSeverity(s Severity) Event {
	e.Severity = s
	return e
}

// WithOwner sets the experimenter name the event acted for.
func (e Event) WithOwner(owner string) Event {
	e.Owner = owner
	return e
}

// WithRecordCount sets how many records the event touched.
func (e Event) WithRecordCount(n int) Event {
	e.RecordCount = n
	return e
}

// WithDescription sets the event description.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithIP sets the client address.
func (e Event) WithIP(ip string) Event {
	e.IPAddress = ip
	return e
}

// WithBatch links the event to a creation batch.
func (e Event) WithBatch(id string) Event {
	e.BatchID = id
	return e
}

// Fingerprinter derives stable, non-reversible actor fingerprints.
type Fingerprinter struct {
	key []byte
}

// NewFingerprinter returns a fingerprinter keyed with key.
// PRE: len(key) <= 64
// POST: An empty key yields an unkeyed hash
func NewFingerprinter(key []byte) (*Fingerprinter, error) {
	if _, err := blake2b.New256(key); err != nil {
		return nil, err
	}
	return &Fingerprinter{key: append([]byte(nil), key...)}, nil
}

// Fingerprint returns the first 16 bytes of the keyed BLAKE2b-256 digest, hex encoded.
// An empty id fingerprints to "".
func (f *Fingerprinter) Fingerprint(id string) string {
	if id == "" {
		return ""
	}
	h, _ := blake2b.New256(f.key)
	h.Write([]byte(id))
	return hex.EncodeToString(h.Sum(nil)[:16])
}
