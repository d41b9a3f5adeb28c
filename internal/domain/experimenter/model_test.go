package experimenter

import (
	"errors"
	"testing"
)

// TestFromLookup_Success verifies a lookup with names yields an authenticated identity.
func TestFromLookup_Success(t *testing.T) {
	id, err := FromLookup("abc", LookupResult{ID: "exp-1", Names: []string{"Alice", "Bob"}, Description: "Lab A"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !id.Authenticated {
		t.Error("expected authenticated identity")
	}
	if id.ExperimenterID != "exp-1" {
		t.Errorf("ExperimenterID = %q, want exp-1", id.ExperimenterID)
	}
	if id.PrimaryOwner() != "Alice" {
		t.Errorf("PrimaryOwner = %q, want Alice", id.PrimaryOwner())
	}
}

// TestFromLookup_NoNames verifies an empty name list never authenticates.
func TestFromLookup_NoNames(t *testing.T) {
	id, err := FromLookup("abc", LookupResult{ID: "exp-1"})
	if !errors.Is(err, ErrNoNames) {
		t.Fatalf("err = %v, want ErrNoNames", err)
	}
	if id.Authenticated {
		t.Error("identity must not be authenticated")
	}
}

// TestFromLookup_Validation covers the remaining rejection cases.
func TestFromLookup_Validation(t *testing.T) {
	tests := []struct {
		name    string
		reqID   string
		result  LookupResult
		wantErr error
	}{
		{"empty id", "  ", LookupResult{Names: []string{"A"}}, ErrEmptyID},
		{"blank name", "x", LookupResult{Names: []string{"A", " "}}, ErrEmptyNames},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromLookup(tt.reqID, tt.result); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestFromLookup_FallsBackToRequestedID verifies the requested id is kept when the payload omits _id.
func TestFromLookup_FallsBackToRequestedID(t *testing.T) {
	id, err := FromLookup("typed-id", LookupResult{Names: []string{"A"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.ExperimenterID != "typed-id" {
		t.Errorf("ExperimenterID = %q, want typed-id", id.ExperimenterID)
	}
}

// TestIsAuthorized verifies route gating reads only the authenticated flag.
func TestIsAuthorized(t *testing.T) {
	var anon Identity
	if !anon.IsAuthorized(false) {
		t.Error("public routes must be authorized")
	}
	if anon.IsAuthorized(true) {
		t.Error("anonymous identity must not reach gated routes")
	}
	authed := Identity{Names: []string{"A"}, Authenticated: true}
	if !authed.IsAuthorized(true) {
		t.Error("authenticated identity must reach gated routes")
	}
}

// TestOwnerNames_ReturnsCopy verifies callers cannot mutate the identity through OwnerNames.
func TestOwnerNames_ReturnsCopy(t *testing.T) {
	id := Identity{Names: []string{"A", "B"}, Authenticated: true}
	names := id.OwnerNames()
	names[0] = "Z"
	if id.Names[0] != "A" {
		t.Error("OwnerNames must return a copy")
	}
}
