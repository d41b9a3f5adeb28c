package orchestrators

import (
	"context"
	"errors"
	"sync"

	"labconsole/internal/adapters/remote"
	"labconsole/internal/domain/audit"
	"labconsole/internal/domain/experimenter"
	"labconsole/internal/domain/userrecord"
)

// mockLookup implements ExperimenterLookup for testing.
type mockLookup struct {
	result experimenter.LookupResult
	err    error
	calls  []string
}

func (m *mockLookup) LookupExperimenter(_ context.Context, id string) (experimenter.LookupResult, error) {
	m.calls = append(m.calls, id)
	return m.result, m.err
}

// mockLister implements UserLister for testing.
type mockLister struct {
	payloads []userrecord.Payload
	err      error
	requests []remote.ListRequest
}

func (m *mockLister) ListUsers(_ context.Context, req remote.ListRequest) ([]userrecord.Payload, error) {
	m.requests = append(m.requests, req)
	return m.payloads, m.err
}

// mockCreator implements UserCreator for testing.
type mockCreator struct {
	ids    []string
	err    error
	params []userrecord.CreateParams
}

func (m *mockCreator) CreateUsers(_ context.Context, p userrecord.CreateParams) ([]string, error) {
	m.params = append(m.params, p)
	return m.ids, m.err
}

// mockAudit implements AuditRecorder for testing.
type mockAudit struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (m *mockAudit) Save(_ context.Context, e audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

func (m *mockAudit) actions() []audit.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Action, len(m.events))
	for i, e := range m.events {
		out[i] = e.Action
	}
	return out
}

// fixedFingerprinter implements Fingerprinter for testing.
type fixedFingerprinter struct{}

func (fixedFingerprinter) Fingerprint(id string) string {
	if id == "" {
		return ""
	}
	return "fp-" + id
}

var errRemote = errors.New("remote unavailable")
