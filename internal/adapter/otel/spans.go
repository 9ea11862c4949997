package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "promptbox"

// StartLaunchSpan starts a span around one terminal launch.
func StartLaunchSpan(ctx context.Context, forkID, agentID, launcher string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "fork.launch",
		trace.WithAttributes(
			attribute.String("fork.id", forkID),
			attribute.String("fork.agent", agentID),
			attribute.String("launcher", launcher),
		),
	)
}

// StartKillSpan starts a span around a best-effort process kill.
func StartKillSpan(ctx context.Context, forkID string, pid int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "fork.kill",
		trace.WithAttributes(
			attribute.String("fork.id", forkID),
			attribute.Int("process.pid", pid),
		),
	)
}

// StartReloadSpan starts a span around an agent catalog reload.
func StartReloadSpan(ctx context.Context, trigger string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "catalog.reload",
		trace.WithAttributes(attribute.String("reload.trigger", trigger)),
	)
}
