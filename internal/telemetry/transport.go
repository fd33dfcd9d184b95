package telemetry

import (
	"context"
	"io"
	"net/http"
	"time"
)

// InstrumentedTransport wraps an http.RoundTripper with remote fetch metrics.
type InstrumentedTransport struct {
	base    http.RoundTripper
	source  string
	metrics *Metrics
}

// TransportOption configures an InstrumentedTransport.
type TransportOption func(*InstrumentedTransport)

// WithMetrics records into m instead of Default().
func WithMetrics(m *Metrics) TransportOption {
	return func(t *InstrumentedTransport) {
		t.metrics = m
	}
}

// NewInstrumentedTransport creates a new instrumented transport for a source.
// If base is nil, http.DefaultTransport is used.
func NewInstrumentedTransport(base http.RoundTripper, source string, opts ...TransportOption) *InstrumentedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &InstrumentedTransport{base: base, source: source}
	for _, opt := range opts {
		opt(t)
	}
	if t.metrics == nil {
		t.metrics = Default()
	}
	return t
}

// RoundTrip implements http.RoundTripper with metrics recording.
func (t *InstrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		outcome := "error"
		if req.Context().Err() != nil {
			outcome = "canceled"
		}
		t.metrics.RecordFetch(req.Context(), t.source, time.Since(start), 0, outcome)
		return nil, err
	}

	outcome := "success"
	switch {
	case resp.StatusCode >= 500:
		outcome = "5xx"
	case resp.StatusCode >= 400:
		outcome = "4xx"
	}

	resp.Body = &instrumentedBody{
		ReadCloser: resp.Body,
		ctx:        req.Context(),
		transport:  t,
		start:      start,
		outcome:    outcome,
	}
	return resp, nil
}

// instrumentedBody wraps a response body to record bytes read on close.
type instrumentedBody struct {
	io.ReadCloser
	ctx       context.Context
	transport *InstrumentedTransport
	start     time.Time
	bytes     int64
	outcome   string
	recorded  bool
}

func (b *instrumentedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.bytes += int64(n)
	return n, err
}

func (b *instrumentedBody) Close() error {
	if !b.recorded {
		b.recorded = true
		b.transport.metrics.RecordFetch(b.ctx, b.transport.source, time.Since(b.start), b.bytes, b.outcome)
	}
	return b.ReadCloser.Close()
}
