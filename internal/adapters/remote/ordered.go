package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"labconsole/internal/domain/userrecord"
)

// ErrNotObject is returned when the listing response is not a JSON object.
var ErrNotObject = errors.New("expected a JSON object")

// DecodeOrderedUsers reads a JSON object of key -> user payload and returns
// the payloads in document order. Keys are discarded. A JSON null is an
// empty listing.
// PRE: r holds a single JSON value
// POST: Returns payloads in the order their keys appear
func DecodeOrderedUsers(r io.Reader) ([]userrecord.Payload, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return []userrecord.Payload{}, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w, got %v", ErrNotObject, tok)
	}

	payloads := []userrecord.Payload{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		var p userrecord.Payload
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("record %q: %w", key, err)
		}
		payloads = append(payloads, p)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return payloads, nil
}
