package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rileyhilliard/hostwatch/internal/probe"
)

func TestCPUPercent(t *testing.T) {
	tests := []struct {
		name string
		prev *probe.CPUCounters
		cur  probe.CPUCounters
		want float64
	}{
		{"first sample", nil, probe.CPUCounters{Total: 1000, Idle: 900}, 0},
		{"busy quarter", &probe.CPUCounters{Total: 1000, Idle: 900}, probe.CPUCounters{Total: 1200, Idle: 950}, 75},
		{"idle", &probe.CPUCounters{Total: 1000, Idle: 900}, probe.CPUCounters{Total: 1100, Idle: 1000}, 0},
		{"fully busy", &probe.CPUCounters{Total: 1000, Idle: 900}, probe.CPUCounters{Total: 1100, Idle: 900}, 100},
		{"no progress", &probe.CPUCounters{Total: 1000, Idle: 900}, probe.CPUCounters{Total: 1000, Idle: 900}, 0},
		{"counter reset", &probe.CPUCounters{Total: 1000, Idle: 900}, probe.CPUCounters{Total: 10, Idle: 5}, 0},
		{"idle went backwards", &probe.CPUCounters{Total: 1000, Idle: 900}, probe.CPUCounters{Total: 1100, Idle: 800}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CPUPercent(tt.prev, tt.cur)
			assert.InDelta(t, tt.want, got, 0.001)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestNetworkRate(t *testing.T) {
	prev := probe.NetCounters{Interface: "eth0", RxBytes: 1000, TxBytes: 1000}

	rate, ok := NetworkRate(prev, probe.NetCounters{Interface: "eth0", RxBytes: 6000, TxBytes: 2000}, 5*time.Second)
	assert.True(t, ok)
	assert.InDelta(t, 1000.0, rate.DownloadBps, 0.001)
	assert.InDelta(t, 200.0, rate.UploadBps, 0.001)

	rate, ok = NetworkRate(prev, probe.NetCounters{Interface: "eth0", RxBytes: 10, TxBytes: 10}, 5*time.Second)
	assert.True(t, ok)
	assert.Equal(t, NetRate{}, rate, "reset counters clamp to zero")

	_, ok = NetworkRate(prev, probe.NetCounters{Interface: "wlan0"}, 5*time.Second)
	assert.False(t, ok)

	_, ok = NetworkRate(prev, prev, 0)
	assert.False(t, ok)
}
