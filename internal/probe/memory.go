package probe

import (
	"context"
	"strconv"
	"strings"
)

const bytesPerGB = 1024 * 1024 * 1024

// Memory is a memory usage snapshot.
type Memory struct {
	UsedPercent float64 `json:"used_percent"`
	TotalGB     float64 `json:"total_gb"`
}

// MemoryStrategies lists memory collectors: Linux first, then BSD/macOS.
func MemoryStrategies() []Strategy[Memory] {
	return []Strategy[Memory]{
		commandStrategy("free", "free -b", ParseFree),
		commandStrategy("vm_stat", "vm_stat; sysctl -n hw.memsize", ParseVMStat),
	}
}

// CollectMemory runs the memory chain.
func CollectMemory(ctx context.Context, ex Execer) (Memory, error) {
	m, _, err := Chain(ctx, ex, MemoryStrategies()...)
	return m, err
}

// ParseFree parses `free -b`. Usage is based on the available column when
// present, since buff/cache is reclaimable.
func ParseFree(out string) (Memory, error) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "Mem:" {
			continue
		}

		total, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || total <= 0 {
			return Memory{}, responseError("free: bad total %q", fields[1])
		}

		used, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return Memory{}, responseError("free: bad used %q", fields[2])
		}
		// total used free shared buff/cache available
		if len(fields) >= 7 {
			if avail, err := strconv.ParseFloat(fields[6], 64); err == nil {
				used = total - avail
			}
		}

		return Memory{
			UsedPercent: clampPercent(used / total * 100),
			TotalGB:     total / bytesPerGB,
		}, nil
	}
	return Memory{}, responseError("free: no Mem: line")
}

// ParseVMStat parses vm_stat output followed by the hw.memsize value on
// the last non-empty line.
func ParseVMStat(out string) (Memory, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return Memory{}, responseError("vm_stat: output too short")
	}

	total, err := strconv.ParseFloat(strings.TrimSpace(lines[len(lines)-1]), 64)
	if err != nil || total <= 0 {
		return Memory{}, responseError("vm_stat: missing hw.memsize")
	}

	pageSize := 4096.0
	var active, wired, compressed, speculative float64
	found := 0

	for _, line := range lines[:len(lines)-1] {
		// "Mach Virtual Memory Statistics: (page size of 16384 bytes)"
		if idx := strings.Index(line, "page size of"); idx >= 0 {
			if f := strings.Fields(line[idx+len("page size of"):]); len(f) > 0 {
				if v, err := strconv.ParseFloat(f[0], 64); err == nil {
					pageSize = v
				}
			}
			continue
		}

		colon := strings.Index(line, ":")
		if colon < 0 {
			continue
		}
		key := strings.TrimSpace(line[:colon])
		val, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(line[colon+1:]), "."), 64)
		if err != nil {
			continue
		}

		switch key {
		case "Pages active":
			active = val
			found++
		case "Pages wired down":
			wired = val
			found++
		case "Pages occupied by compressor":
			compressed = val
		case "Pages speculative":
			speculative = val
		}
	}

	if found < 2 {
		return Memory{}, responseError("vm_stat: page counters not found")
	}

	used := (active + wired + compressed + speculative) * pageSize
	return Memory{
		UsedPercent: clampPercent(used / total * 100),
		TotalGB:     total / bytesPerGB,
	}, nil
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
