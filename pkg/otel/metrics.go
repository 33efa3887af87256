package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/velostrade/bookcore/pkg/otel"

// BookMetrics holds the instruments for order-book monitoring. A nil
// *BookMetrics is valid inside the book (telemetry disabled); the methods
// here are only reached through a non-nil instance.
type BookMetrics struct {
	// Latency metrics
	updateLatency metric.Float64Histogram

	// Traffic metrics
	updatesTotal metric.Int64Counter
	seqRejects   metric.Int64Counter

	// Depth metrics
	sideDepth metric.Int64Gauge
}

// NewBookMetrics creates the book instruments on the given meter.
func NewBookMetrics(meter metric.Meter) (*BookMetrics, error) {
	updateLatency, err := meter.Float64Histogram(
		"book.update.duration",
		metric.WithDescription("Latency (seconds) of order book updates"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	updatesTotal, err := meter.Int64Counter(
		"book.updates.total",
		metric.WithDescription("Total number of order book updates applied"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, err
	}

	seqRejects, err := meter.Int64Counter(
		"book.updates.seq_rejected",
		metric.WithDescription("Updates discarded for stale or inverted sequences"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, err
	}

	sideDepth, err := meter.Int64Gauge(
		"book.side.depth",
		metric.WithDescription("Number of tracked non-empty levels per side"),
		metric.WithUnit("{level}"),
	)
	if err != nil {
		return nil, err
	}

	return &BookMetrics{
		updateLatency: updateLatency,
		updatesTotal:  updatesTotal,
		seqRejects:    seqRejects,
		sideDepth:     sideDepth,
	}, nil
}

// ObserveUpdate records one applied update with its effect class.
func (m *BookMetrics) ObserveUpdate(instr, effect string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("instrument", instr),
		attribute.String("effect", effect),
	)
	ctx := context.Background()
	m.updateLatency.Record(ctx, d.Seconds(), attrs)
	m.updatesTotal.Add(ctx, 1, attrs)
}

// IncSeqReject counts a sequence-rejected update.
func (m *BookMetrics) IncSeqReject(instr string) {
	m.seqRejects.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("instrument", instr),
	))
}

// SetDepth records the current tracked depth of a side.
func (m *BookMetrics) SetDepth(instr, side string, depth int64) {
	m.sideDepth.Record(context.Background(), depth, metric.WithAttributes(
		attribute.String("instrument", instr),
		attribute.String("side", side),
	))
}
