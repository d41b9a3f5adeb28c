package experimenter

import (
	"errors"
	"strings"
)

// Domain errors.
var (
	ErrEmptyID    = errors.New("experimenter id is required")
	ErrNoNames    = errors.New("experimenter has no owned names")
	ErrEmptyNames = errors.New("experimenter names must be non-empty")
)

// Identity is the authenticated experimenter attached to a browser session.
// The zero value is an unauthenticated identity.
// INVARIANT: Authenticated is true iff Names is non-empty and the value came from FromLookup
type Identity struct {
	ExperimenterID string
	Names          []string
	Description    string
	Authenticated  bool
}

// LookupResult is the payload returned by the remote experimenter lookup.
type LookupResult struct {
	ID          string   `json:"_id"`
	Names       []string `json:"experimenter_names"`
	Description string   `json:"description"`
}

// FromLookup builds an authenticated identity from a successful lookup.
// PRE: result came from a 200 response of the lookup collaborator
// POST: Returns an authenticated Identity, or an error if the result owns no names
func FromLookup(requestedID string, result LookupResult) (Identity, error) {
	if strings.TrimSpace(requestedID) == "" {
		return Identity{}, ErrEmptyID
	}
	if len(result.Names) == 0 {
		return Identity{}, ErrNoNames
	}
	names := make([]string, 0, len(result.Names))
	for _, n := range result.Names {
		if strings.TrimSpace(n) == "" {
			return Identity{}, ErrEmptyNames
		}
		names = append(names, n)
	}
	id := result.ID
	if id == "" {
		id = requestedID
	}
	return Identity{
		ExperimenterID: id,
		Names:          names,
		Description:    result.Description,
		Authenticated:  true,
	}, nil
}

// IsAuthorized reports whether the identity may view a route.
// PRE: none
// POST: Routes that do not require auth are always authorized
func (i Identity) IsAuthorized(routeRequiresAuth bool) bool {
	if !routeRequiresAuth {
		return true
	}
	return i.Authenticated
}

// PrimaryOwner returns the experimenter name new users are attributed to.
// Only the first owned name is used for creation; additional names only widen the listing.
// PRE: Identity is authenticated
// POST: Returns Names[0], or "" for an unauthenticated identity
func (i Identity) PrimaryOwner() string {
	if len(i.Names) == 0 {
		return ""
	}
	return i.Names[0]
}

// OwnerNames returns a copy of the owned experimenter names.
func (i Identity) OwnerNames() []string {
	out := make([]string, len(i.Names))
	copy(out, i.Names)
	return out
}
