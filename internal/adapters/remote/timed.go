package remote

import (
	"log/slog"
	"net/http"
	"time"

	"labconsole/internal/adapters/http/perf"
)

// DefaultSlowCallMs is the threshold above which a remote call is logged as slow.
const DefaultSlowCallMs = 1000

// TimedHTTPClient wraps an HTTPClient to log slow calls and record their
// timing to a collector. Satisfies HTTPClient.
type TimedHTTPClient struct {
	inner     HTTPClient
	collector *perf.Collector
	threshold float64
}

var _ HTTPClient = (*TimedHTTPClient)(nil)

// NewTimedHTTPClient wraps inner with timing instrumentation.
// PRE: inner is non-nil; collector may be nil
// POST: Returns a client that records one KindRemote entry per call
func NewTimedHTTPClient(inner HTTPClient, collector *perf.Collector) *TimedHTTPClient {
	return &TimedHTTPClient{inner: inner, collector: collector, threshold: DefaultSlowCallMs}
}

// WithThreshold sets the slow-call threshold in milliseconds. Values <= 0 keep the default.
func (t *TimedHTTPClient) WithThreshold(ms int) *TimedHTTPClient {
	if ms > 0 {
		t.threshold = float64(ms)
	}
	return t
}

// Do performs the request and records its duration, also on failure.
func (t *TimedHTTPClient) Do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	res, err := t.inner.Do(req)
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0

	status := 0
	if res != nil {
		status = res.StatusCode
	}
	if durationMs >= t.threshold {
		slog.Warn("slow_remote_call",
			"endpoint", req.URL.Path,
			"status", status,
			"duration_ms", durationMs,
		)
	} else {
		slog.Debug("remote_call",
			"endpoint", req.URL.Path,
			"status", status,
			"duration_ms", durationMs,
		)
	}

	if t.collector != nil {
		t.collector.Record(perf.Entry{
			Kind:       perf.KindRemote,
			Path:       req.URL.Path,
			StatusCode: status,
			DurationMs: durationMs,
			Timestamp:  start,
		})
	}
	return res, err
}
