package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"labconsole/internal/domain/experimenter"
	"labconsole/internal/domain/userrecord"
)

// Endpoint paths of the cloud API. "fetchExperimeter" is spelled the way the
// deployed function is named.
const (
	PathLookup = "/fetchExperimeter"
	PathList   = "/fetchAllUsers"
	PathCreate = "/createUsers"
)

// maxErrorBody caps how much of a failed response is kept for the error message.
const maxErrorBody = 512

// HTTPClient is the subset of *http.Client the API client needs.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// StatusError is returned when the API answers with a non-200 status.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// ListRequest is the body of the listing call.
type ListRequest struct {
	Experimenters   []string `json:"experimenters"`
	FilterNonPlayed bool     `json:"filter_non_played"`
}

// Client talks to the experiment platform's cloud functions.
type Client struct {
	baseURL string
	client  HTTPClient
}

// NewClient creates an API client rooted at baseURL.
// PRE: baseURL is an absolute URL without trailing path segments for the endpoints
// POST: Returns a client; a nil HTTPClient falls back to http.DefaultClient
func NewClient(baseURL string, c HTTPClient) *Client {
	if c == nil {
		c = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), client: c}
}

// LookupExperimenter resolves an experimenter identifier.
// PRE: id is the raw identifier typed by the user
// POST: Returns the lookup payload on 200, a *StatusError otherwise
func (c *Client) LookupExperimenter(ctx context.Context, id string) (experimenter.LookupResult, error) {
	var out experimenter.LookupResult
	res, err := c.postJSON(ctx, PathLookup, nil, map[string]string{"id": id})
	if err != nil {
		return out, err
	}
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("%s: decode response: %w", PathLookup, err)
	}
	return out, nil
}

// ListUsers fetches the user payloads owned by the given experimenters.
// PRE: none
// POST: Payloads are returned in the document order of the response object
func (c *Client) ListUsers(ctx context.Context, req ListRequest) ([]userrecord.Payload, error) {
	if req.Experimenters == nil {
		req.Experimenters = []string{}
	}
	res, err := c.postJSON(ctx, PathList, nil, req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	payloads, err := DecodeOrderedUsers(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", PathList, err)
	}
	return payloads, nil
}

// CreateUsers asks the platform to issue new user identifiers.
// The parameters travel in the query string; the body is empty.
// PRE: params are valid
// POST: Returns the new identifiers in the order the API listed them
func (c *Client) CreateUsers(ctx context.Context, params userrecord.CreateParams) ([]string, error) {
	q := url.Values{}
	q.Set("experimenter", params.Owner)
	q.Set("grade", params.Grade)
	q.Set("language", params.Language)
	q.Set("num", strconv.Itoa(params.Count))

	res, err := c.postJSON(ctx, PathCreate, q, nil)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	var ids []string
	if err := json.NewDecoder(res.Body).Decode(&ids); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", PathCreate, err)
	}
	return ids, nil
}

// postJSON sends a POST and returns the response only when it is a 200.
// A nil body sends no payload.
func (c *Client) postJSON(ctx context.Context, path string, query url.Values, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", path, err)
		}
		reader = buf
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if res.StatusCode != http.StatusOK {
		defer res.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &StatusError{Endpoint: path, StatusCode: res.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return res, nil
}
