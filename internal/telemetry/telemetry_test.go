package telemetry

import (
	"context"
	"sync/atomic"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/internal/probe"
)

// newTestMonitor returns a monitor over two targets: "web1" always answers
// with CPU counters advancing by 100 ticks (50 busy) and one running
// container, "db" never connects.
func newTestMonitor() *monitor.Monitor {
	var ticks atomic.Uint64
	checker := monitor.CheckerFunc(func(_ context.Context, t config.Target) (*probe.Sample, error) {
		if t.ID == "db" {
			return nil, errors.New(errors.ErrConnect, "Connection to db failed", "")
		}
		n := ticks.Add(1)
		return &probe.Sample{
			CPU:    probe.CPUCounters{Total: n * 100, Idle: n * 50},
			Memory: probe.Memory{UsedPercent: 42, TotalGB: 16},
			Disk:   probe.Disk{AvailableGB: 120, UsedPercent: 40, TotalGB: 200},
			Network: &probe.NetCounters{
				Interface: "eth0", RxBytes: n * 1000, TxBytes: n * 500,
			},
			Containers: []probe.Container{
				{Name: "api", Status: "Up 2 hours"},
				{Name: "job", Status: "Exited (0) 1 hour ago"},
			},
			RemoteIP: "203.0.113.7",
		}, nil
	})

	m := monitor.New(checker, monitor.Options{History: monitor.NewHistory(10)})
	m.SetTargets([]config.Target{
		{ID: "web1", Name: "Web", Host: "10.0.0.5", User: "ops"},
		{ID: "db", Host: "db.internal", User: "root"},
	})
	return m
}
