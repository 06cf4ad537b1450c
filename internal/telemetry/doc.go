// Package telemetry exposes monitor state over HTTP: Prometheus gauges for
// every target and a small JSON API for targets, history and alerts.
package telemetry
