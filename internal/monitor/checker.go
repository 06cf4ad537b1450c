package monitor

import (
	"context"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/probe"
	"github.com/rileyhilliard/hostwatch/internal/remote"
)

// Checker gathers one sample from a target.
type Checker interface {
	Check(ctx context.Context, target config.Target) (*probe.Sample, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, target config.Target) (*probe.Sample, error)

func (f CheckerFunc) Check(ctx context.Context, target config.Target) (*probe.Sample, error) {
	return f(ctx, target)
}

// Pinger measures local round-trip latency to a host.
type Pinger interface {
	MeasureLatency(ctx context.Context, host string) (time.Duration, bool)
}

// forgetter is implemented by checkers that cache per-target data.
type forgetter interface {
	Forget(targetID string)
}

// SessionChecker opens a remote session, runs the probe chains through it
// and closes it again, so temporary key files live only for one check.
type SessionChecker struct {
	exec   *remote.Executor
	prober *probe.Prober
}

// NewSessionChecker creates a checker over exec and prober.
func NewSessionChecker(exec *remote.Executor, prober *probe.Prober) *SessionChecker {
	return &SessionChecker{exec: exec, prober: prober}
}

// Check connects, collects and disconnects.
func (c *SessionChecker) Check(ctx context.Context, target config.Target) (*probe.Sample, error) {
	sess, err := c.exec.Connect(ctx, target)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Close() }()

	return c.prober.Collect(ctx, sess, target)
}

// Forget drops cached per-target data such as the discovered remote IP.
func (c *SessionChecker) Forget(targetID string) {
	c.prober.Forget(targetID)
}
