// Package otel publishes shopAuth engine metrics as OpenTelemetry observable
// instruments.
//
// Each counter becomes an Int64ObservableCounter and each latency bucket an
// Int64ObservableGauge. One callback reads [shopAuth.Engine.MetricsSnapshot]
// per collection cycle. Callers own the MeterProvider.
package otel
