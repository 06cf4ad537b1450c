package probe

import (
	"context"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
)

// Sample is everything collected from a target in one cycle.
type Sample struct {
	CPU    CPUCounters
	Memory Memory
	Disk   Disk

	// Network is nil when no strategy produced counters.
	Network *NetCounters

	// Containers is nil when docker could not be queried, and empty when
	// docker answered with no containers.
	Containers []Container

	RemoteIP string
}

// Prober collects Samples.
type Prober struct {
	ips *IPCache
	log logger.Logger
}

// NewProber creates a prober. cache may be nil to disable address caching.
func NewProber(cache *IPCache, l logger.Logger) *Prober {
	return &Prober{ips: cache, log: logger.With(l, "[probe]")}
}

// Forget drops cached data for a target.
func (p *Prober) Forget(targetID string) {
	p.ips.Remove(targetID)
}

// Collect gathers one sample. CPU, memory and disk are required and fail
// the call; network and containers are optional; the remote IP is best
// effort.
func (p *Prober) Collect(ctx context.Context, ex Execer, target config.Target) (*Sample, error) {
	s := &Sample{}
	var err error

	if s.CPU, err = CollectCPU(ctx, ex); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeOrDefault(err, errors.ErrResponse),
			"Couldn't read CPU counters", "")
	}
	if s.Memory, err = CollectMemory(ctx, ex); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeOrDefault(err, errors.ErrResponse),
			"Couldn't read memory usage", "")
	}
	if s.Disk, err = CollectDisk(ctx, ex); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeOrDefault(err, errors.ErrResponse),
			"Couldn't read disk usage", "")
	}

	if net, err := CollectNetwork(ctx, ex); err != nil {
		p.log.Debug("%s: network unavailable: %s", target.ID, errors.Summarize(err))
	} else {
		s.Network = &net
	}

	if cs, err := CollectContainers(ctx, ex); err != nil {
		p.log.Debug("%s: containers unavailable: %s", target.ID, errors.Summarize(err))
	} else {
		s.Containers = cs
	}

	s.RemoteIP = ResolveRemoteIP(ctx, ex, p.ips, target.ID, target.Host)
	return s, nil
}
