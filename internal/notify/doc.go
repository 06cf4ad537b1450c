// Package notify delivers alert decisions from the monitor.
//
// Multi implements monitor.AlertSink. It turns every decision into an Event
// with a fresh ID and hands it to each configured Sink: the log, a NATS
// subject, or the SQLite journal. A failing sink is logged and never blocks
// the others.
package notify
