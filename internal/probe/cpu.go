package probe

import (
	"context"
	"strconv"
	"strings"
)

// CPUCommand reads the aggregate CPU line.
const CPUCommand = "head -n 1 /proc/stat"

// CPUCounters are cumulative jiffies since boot. Idle includes iowait.
type CPUCounters struct {
	Total uint64
	Idle  uint64
}

// CollectCPU reads the raw CPU counters.
func CollectCPU(ctx context.Context, ex Execer) (CPUCounters, error) {
	out, err := runOutput(ctx, ex, CPUCommand)
	if err != nil {
		return CPUCounters{}, err
	}
	return ParseCPUCounters(out)
}

// ParseCPUCounters parses the "cpu " line of /proc/stat.
// Fields: cpu user nice system idle iowait irq softirq steal guest guest_nice
func ParseCPUCounters(out string) (CPUCounters, error) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 5 {
			return CPUCounters{}, responseError("cpu line has %d fields", len(fields))
		}

		var c CPUCounters
		for i := 1; i < len(fields); i++ {
			val, err := strconv.ParseUint(fields[i], 10, 64)
			if err != nil {
				return CPUCounters{}, responseError("cpu field %d is not a number: %q", i, fields[i])
			}
			c.Total += val
			if i == 4 || i == 5 {
				c.Idle += val
			}
		}
		return c, nil
	}
	return CPUCounters{}, responseError("no aggregate cpu line in output")
}
