package probe

import (
	"context"
	"strconv"
	"strings"
)

// Disk is root filesystem usage in gigabytes.
type Disk struct {
	AvailableGB float64 `json:"available_gb"`
	UsedPercent float64 `json:"used_percent"`
	TotalGB     float64 `json:"total_gb"`
}

// DiskStrategies lists disk collectors: GNU df, then BSD df.
// BSD df applies size flags in order, so -g must come after -P.
func DiskStrategies() []Strategy[Disk] {
	return []Strategy[Disk]{
		commandStrategy("df -BG", "df -BG -P /", ParseDF),
		commandStrategy("df -g", "df -P -g /", ParseDF),
	}
}

// CollectDisk runs the disk chain.
func CollectDisk(ctx context.Context, ex Execer) (Disk, error) {
	d, _, err := Chain(ctx, ex, DiskStrategies()...)
	return d, err
}

// ParseDF parses POSIX df output sized in gigabytes, with or without a
// trailing G unit. Columns are read from the right so filesystem names with
// spaces don't shift them.
func ParseDF(out string) (Disk, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 6 || fields[0] == "Filesystem" {
			continue
		}

		// size used avail capacity mount
		cols := fields[len(fields)-5:]
		total, err1 := parseGB(cols[0])
		avail, err2 := parseGB(cols[2])
		pct, err3 := strconv.ParseFloat(strings.TrimSuffix(cols[3], "%"), 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return Disk{}, responseError("df: unexpected row %q", line)
		}

		return Disk{
			AvailableGB: avail,
			UsedPercent: clampPercent(pct),
			TotalGB:     total,
		}, nil
	}
	return Disk{}, responseError("df: no filesystem row")
}

func parseGB(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(s, "G"), 64)
}
