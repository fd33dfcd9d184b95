// Package telemetry records metrics about requests made to remote artifact
// sources. Instruments are created from the OpenTelemetry global meter
// provider, which is a no-op unless the embedding host installs an SDK.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/ZebulonRouseFrantzich/xmlls"

// Metric names.
const (
	RemoteRequestsTotal   = "xmlls.remote.requests"
	RemoteRequestDuration = "xmlls.remote.duration"
	RemoteBytesTotal      = "xmlls.remote.bytes"
)

// Metrics holds the instruments for remote fetches.
type Metrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	bytes    metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requests, err := meter.Int64Counter(RemoteRequestsTotal,
		metric.WithDescription("Requests made to remote artifact sources"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", RemoteRequestsTotal, err)
	}

	duration, err := meter.Float64Histogram(RemoteRequestDuration,
		metric.WithDescription("Duration of remote artifact requests"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", RemoteRequestDuration, err)
	}

	bytes, err := meter.Int64Counter(RemoteBytesTotal,
		metric.WithDescription("Response bytes read from remote artifact sources"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", RemoteBytesTotal, err)
	}

	return &Metrics{requests: requests, duration: duration, bytes: bytes}, nil
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns metrics bound to the global meter provider. It returns nil
// if the instruments could not be created.
func Default() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.Meter(meterName))
		if err == nil {
			defaultMetrics = m
		}
	})
	return defaultMetrics
}

// RecordFetch records one completed remote request.
func (m *Metrics) RecordFetch(ctx context.Context, source string, d time.Duration, bytesRead int64, outcome string) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
	if bytesRead > 0 {
		m.bytes.Add(ctx, bytesRead, attrs)
	}
}
