package probe

import (
	"context"
	"strconv"
	"strings"
)

// OutputSeparator splits sections of a batched command.
const OutputSeparator = "---"

// ActivityFloor is the combined rx+tx an interface needs before it counts
// as active. Below it, the default-route interface is preferred.
const ActivityFloor = 1 << 20

// Interface holds raw cumulative counters for one network interface.
type Interface struct {
	Name    string
	RxBytes uint64
	TxBytes uint64
}

// NetCounters are the raw counters of the selected interface.
type NetCounters struct {
	Interface string
	RxBytes   uint64
	TxBytes   uint64
}

// NetworkStrategies lists network collectors: procfs, then BSD netstat.
func NetworkStrategies() []Strategy[NetCounters] {
	return []Strategy[NetCounters]{
		commandStrategy("proc/net/dev",
			`cat /proc/net/dev; echo "`+OutputSeparator+`"; ip route show default 2>/dev/null || true`,
			parseSections(ParseProcNetDev, ParseIPRouteDefault)),
		commandStrategy("netstat",
			`netstat -ibn; echo "`+OutputSeparator+`"; route -n get default 2>/dev/null || true`,
			parseSections(ParseNetstat, ParseRouteGetDefault)),
	}
}

// CollectNetwork runs the network chain.
func CollectNetwork(ctx context.Context, ex Execer) (NetCounters, error) {
	n, _, err := Chain(ctx, ex, NetworkStrategies()...)
	return n, err
}

// parseSections splits "<interfaces>---<default route>" output and picks
// an interface.
func parseSections(parseIfaces func(string) ([]Interface, error), parseRoute func(string) string) func(string) (NetCounters, error) {
	return func(out string) (NetCounters, error) {
		ifaceOut, routeOut, _ := strings.Cut(out, OutputSeparator+"\n")
		ifaces, err := parseIfaces(ifaceOut)
		if err != nil {
			return NetCounters{}, err
		}
		selected, ok := SelectInterface(ifaces, parseRoute(routeOut))
		if !ok {
			return NetCounters{}, responseError("no non-loopback interface")
		}
		return NetCounters{Interface: selected.Name, RxBytes: selected.RxBytes, TxBytes: selected.TxBytes}, nil
	}
}

// SelectInterface picks the busiest non-loopback interface above
// ActivityFloor, else the default-route interface, else the first
// non-loopback interface.
func SelectInterface(ifaces []Interface, defaultRoute string) (Interface, bool) {
	var busiest, firstUp, routed *Interface
	for i := range ifaces {
		iface := &ifaces[i]
		if isLoopback(iface.Name) {
			continue
		}
		if firstUp == nil {
			firstUp = iface
		}
		if iface.Name == defaultRoute {
			routed = iface
		}
		activity := iface.RxBytes + iface.TxBytes
		if activity > ActivityFloor && (busiest == nil || activity > busiest.RxBytes+busiest.TxBytes) {
			busiest = iface
		}
	}

	switch {
	case busiest != nil:
		return *busiest, true
	case routed != nil:
		return *routed, true
	case firstUp != nil:
		return *firstUp, true
	default:
		return Interface{}, false
	}
}

func isLoopback(name string) bool {
	return name == "lo" || strings.HasPrefix(name, "lo0") || strings.HasPrefix(name, "lo:")
}

// ParseProcNetDev parses /proc/net/dev.
func ParseProcNetDev(out string) ([]Interface, error) {
	var ifaces []Interface
	for _, line := range strings.Split(out, "\n") {
		// Format: "  iface: bytes packets errs drop fifo frame compressed multicast | bytes packets..."
		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 16 {
			continue
		}

		rx, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return nil, responseError("bad rx bytes for %s", strings.TrimSpace(name))
		}
		tx, err := strconv.ParseUint(fields[8], 10, 64)
		if err != nil {
			return nil, responseError("bad tx bytes for %s", strings.TrimSpace(name))
		}

		ifaces = append(ifaces, Interface{Name: strings.TrimSpace(name), RxBytes: rx, TxBytes: tx})
	}

	if len(ifaces) == 0 {
		return nil, responseError("no interfaces in /proc/net/dev")
	}
	return ifaces, nil
}

// ParseNetstat parses `netstat -ibn`, keeping the link-level row of each
// interface (the one carrying totals rather than per-protocol counts).
func ParseNetstat(out string) ([]Interface, error) {
	var ifaces []Interface
	seen := make(map[string]bool)
	headerSkipped := false

	for _, line := range strings.Split(out, "\n") {
		if !headerSkipped {
			if strings.HasPrefix(line, "Name") {
				headerSkipped = true
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 7 || seen[fields[0]] {
			continue
		}
		if !strings.Contains(line, "<Link#") {
			continue
		}

		// Numeric columns after the name: mtu, ipkts, ierrs, ibytes, opkts, oerrs, obytes[, coll]
		var nums []uint64
		for _, f := range fields[1:] {
			if v, err := strconv.ParseUint(f, 10, 64); err == nil {
				nums = append(nums, v)
			}
		}
		if len(nums) < 7 {
			continue
		}

		seen[fields[0]] = true
		ifaces = append(ifaces, Interface{Name: fields[0], RxBytes: nums[3], TxBytes: nums[6]})
	}

	if len(ifaces) == 0 {
		return nil, responseError("no link rows in netstat output")
	}
	return ifaces, nil
}

// ParseIPRouteDefault extracts the device from `ip route show default`.
func ParseIPRouteDefault(out string) string {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != "default" {
			continue
		}
		for i := 0; i < len(fields)-1; i++ {
			if fields[i] == "dev" {
				return fields[i+1]
			}
		}
	}
	return ""
}

// ParseRouteGetDefault extracts the interface from `route -n get default`.
func ParseRouteGetDefault(out string) string {
	for _, line := range strings.Split(out, "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if ok && key == "interface" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
