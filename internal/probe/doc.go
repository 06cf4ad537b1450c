// Package probe turns remote command output into typed metrics.
//
// Each metric is collected by an ordered list of Strategy values tried by
// Chain until one succeeds, so a target missing one tool (free, ip, docker's
// --format flag) still reports through the next. Parse functions are pure
// and tested directly against captured output.
//
// CPU and network collection return raw cumulative counters. Turning them
// into a percentage or a rate needs two samples, which is the monitor's job.
package probe
