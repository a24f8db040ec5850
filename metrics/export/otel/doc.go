// Package otel bridges authcore's in-process counters to OpenTelemetry.
//
// [NewExporter] registers one Int64ObservableCounter per service counter
// plus one for dropped audit events; a single callback reads
// [authcore.Service.MetricsSnapshot] on each collection cycle. The caller
// owns the MeterProvider.
package otel
