package probe

import (
	"context"
	"testing"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthyHost() map[string]remote.Result {
	return map[string]remote.Result{
		CPUCommand:          ok(sampleProcStat),
		"free -b":           ok(sampleFree),
		"df -BG":            ok(sampleDF),
		"cat /proc/net/dev": ok(sampleProcNetDev + "---\n"),
		dockerPipeFormat:    ok("web|abc|Exited (0) 1 day ago|nginx\n"),
		"curl":              ok("203.0.113.7\n"),
	}
}

func TestProber_Collect(t *testing.T) {
	p := NewProber(nil, logger.Noop())
	ex := newFakeExec(healthyHost())

	s, err := p.Collect(context.Background(), ex, config.Target{ID: "web", Host: "h"})

	require.NoError(t, err)
	assert.Equal(t, CPUCounters{Total: 2280, Idle: 950}, s.CPU)
	assert.InDelta(t, 75.0, s.Memory.UsedPercent, 0.001)
	assert.Equal(t, 55.0, s.Disk.AvailableGB)
	require.NotNil(t, s.Network)
	assert.Equal(t, "eth0", s.Network.Interface)
	require.Len(t, s.Containers, 1)
	assert.Equal(t, "203.0.113.7", s.RemoteIP)
}

func TestProber_RequiredMetricFails(t *testing.T) {
	for _, missing := range []string{CPUCommand, "free -b", "df -BG"} {
		t.Run(missing, func(t *testing.T) {
			responses := healthyHost()
			delete(responses, missing)

			_, err := NewProber(nil, logger.Noop()).Collect(context.Background(), newFakeExec(responses), config.Target{ID: "web"})

			assert.Error(t, err)
		})
	}
}

func TestProber_OptionalMetricsAbsent(t *testing.T) {
	responses := healthyHost()
	delete(responses, "cat /proc/net/dev")
	delete(responses, dockerPipeFormat)
	delete(responses, "curl")
	log := logger.NewBufferLogger()

	s, err := NewProber(nil, log).Collect(context.Background(), newFakeExec(responses), config.Target{ID: "web", Host: "10.0.0.5"})

	require.NoError(t, err)
	assert.Nil(t, s.Network)
	assert.Nil(t, s.Containers)
	assert.Equal(t, "10.0.0.5", s.RemoteIP)
	assert.True(t, log.HasLevel("debug"))
}
