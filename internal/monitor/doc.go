// Package monitor runs the polling loop over a set of remote targets.
//
// Every tick the Monitor dispatches one goroutine per enabled target that is
// not already being checked. Each goroutine runs a Checker (normally a remote
// session plus the probe strategy chains) and hands a typed result back to a
// single merge routine, which is the only writer of per-target state.
//
// # State
//
// TargetState holds the last poll time, connectivity, the last error and the
// derived metrics of a target. CPU percentage and network throughput are
// computed from counter deltas against the previous successful cycle, so a
// failed cycle clears those counters and the next success starts over.
//
// # Identity
//
// Results carry the slot index, the target ID and the epoch assigned when the
// target entered the monitor. A result is discarded when its target was
// removed or replaced while the check was running, which keeps late results
// from resurrecting deleted state.
//
// # Alerts
//
// After every merged result the Evaluator inspects the new state. Connectivity
// alerts are edge triggered; metric alerts are level triggered with an
// optional cooldown.
//
// # History
//
// History stores per-target CPU, memory and disk usage in ring buffers for
// sparklines and the HTTP history endpoint.
package monitor
