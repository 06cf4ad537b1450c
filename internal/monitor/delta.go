package monitor

import (
	"time"

	"github.com/rileyhilliard/hostwatch/internal/probe"
)

// counterDiff returns cur-prev, or 0 when the counter went backwards
// (reboot, driver reset, wraparound).
func counterDiff(cur, prev uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}

// CPUPercent computes busy time between two /proc/stat snapshots.
// The first sample (prev nil) and a zero total delta both yield 0.
func CPUPercent(prev *probe.CPUCounters, cur probe.CPUCounters) float64 {
	if prev == nil {
		return 0
	}
	total := counterDiff(cur.Total, prev.Total)
	idle := counterDiff(cur.Idle, prev.Idle)
	if total == 0 || idle >= total {
		return 0
	}
	pct := float64(total-idle) / float64(total) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// NetworkRate converts two counter snapshots of the same interface into bytes
// per second. It reports false when no time has passed or the interface
// differs.
func NetworkRate(prev, cur probe.NetCounters, elapsed time.Duration) (NetRate, bool) {
	if prev.Interface != cur.Interface || elapsed <= 0 {
		return NetRate{}, false
	}
	secs := elapsed.Seconds()
	return NetRate{
		DownloadBps: float64(counterDiff(cur.RxBytes, prev.RxBytes)) / secs,
		UploadBps:   float64(counterDiff(cur.TxBytes, prev.TxBytes)) / secs,
	}, true
}
