package worker

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// serviceMetrics holds the worker's OpenTelemetry instruments. Only the
// metric API is wired; without an SDK registered behind the global
// provider every recording is a no-op, which is exactly what embedded
// deployments want.
type serviceMetrics struct {
	messages       metric.Int64Counter
	emergencies    metric.Int64Counter
	clarifications metric.Int64Counter
	activeSessions metric.Int64UpDownCounter
}

func newServiceMetrics() *serviceMetrics {
	meter := otel.Meter("nova/worker")

	messages, _ := meter.Int64Counter(
		"nova.messages",
		metric.WithDescription("Messages handled by the responder"),
	)
	emergencies, _ := meter.Int64Counter(
		"nova.emergencies",
		metric.WithDescription("Messages that tripped emergency detection"),
	)
	clarifications, _ := meter.Int64Counter(
		"nova.clarifications",
		metric.WithDescription("Clarification menus posed to users"),
	)
	activeSessions, _ := meter.Int64UpDownCounter(
		"nova.sessions.active",
		metric.WithDescription("Currently live sessions"),
	)

	return &serviceMetrics{
		messages:       messages,
		emergencies:    emergencies,
		clarifications: clarifications,
		activeSessions: activeSessions,
	}
}

func (m *serviceMetrics) messageHandled(ctx context.Context) {
	if m.messages != nil {
		m.messages.Add(ctx, 1)
	}
}

func (m *serviceMetrics) emergencyDetected(ctx context.Context) {
	if m.emergencies != nil {
		m.emergencies.Add(ctx, 1)
	}
}

func (m *serviceMetrics) clarificationAsked(ctx context.Context) {
	if m.clarifications != nil {
		m.clarifications.Add(ctx, 1)
	}
}

func (m *serviceMetrics) sessionOpened(ctx context.Context) {
	if m.activeSessions != nil {
		m.activeSessions.Add(ctx, 1)
	}
}

func (m *serviceMetrics) sessionClosed(ctx context.Context) {
	if m.activeSessions != nil {
		m.activeSessions.Add(ctx, -1)
	}
}
