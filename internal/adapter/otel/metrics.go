package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "promptbox"

// Metrics holds all promptbox metric instruments.
type Metrics struct {
	ForksCreated   metric.Int64Counter
	ForksFinished  metric.Int64Counter
	LaunchFailures metric.Int64Counter
	ForksEvicted   metric.Int64Counter
	LaunchDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.ForksCreated, err = meter.Int64Counter("promptbox.forks.created",
		metric.WithDescription("Number of forks created"))
	if err != nil {
		return nil, err
	}

	m.ForksFinished, err = meter.Int64Counter("promptbox.forks.finished",
		metric.WithDescription("Number of forks reaching a terminal status"))
	if err != nil {
		return nil, err
	}

	m.LaunchFailures, err = meter.Int64Counter("promptbox.launch.failures",
		metric.WithDescription("Number of terminal launches that failed"))
	if err != nil {
		return nil, err
	}

	m.ForksEvicted, err = meter.Int64Counter("promptbox.forks.evicted",
		metric.WithDescription("Number of terminal forks dropped by retention"))
	if err != nil {
		return nil, err
	}

	m.LaunchDuration, err = meter.Float64Histogram("promptbox.launch.duration_seconds",
		metric.WithDescription("Terminal launch duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Gauges supplies live values sampled at each collection.
type Gauges struct {
	ActiveForks   func() int64
	Connections   func() int64
	FanoutDropped func() int64
	FanoutQueued  func() int64
}

// RegisterGauges registers observable gauges backed by g. Nil funcs are skipped.
func RegisterGauges(g Gauges) error {
	meter := otel.Meter(meterName)

	type gauge struct {
		name, desc string
		fn         func() int64
	}
	gauges := []gauge{
		{"promptbox.forks.active", "Forks in spawning or running status", g.ActiveForks},
		{"promptbox.ws.connections", "Connected WebSocket clients", g.Connections},
		{"promptbox.fanout.dropped", "Events dropped on full subscriber queues", g.FanoutDropped},
		{"promptbox.fanout.published", "Events accepted by the fan-out", g.FanoutQueued},
	}

	for _, gg := range gauges {
		if gg.fn == nil {
			continue
		}
		fn := gg.fn
		_, err := meter.Int64ObservableGauge(gg.name,
			metric.WithDescription(gg.desc),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(fn())
				return nil
			}))
		if err != nil {
			return err
		}
	}
	return nil
}

// AgentAttrs returns the metric attribute set for an agent and status.
func AgentAttrs(agentID, status string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("agent", agentID),
		attribute.String("status", status),
	)
}
