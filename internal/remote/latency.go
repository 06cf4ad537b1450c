package remote

import (
	"context"
	"regexp"
	"runtime"
	"strconv"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/util"
)

var pingTimePattern = regexp.MustCompile(`time[=<]\s*([0-9]+(?:\.[0-9]+)?)\s*ms`)

// MeasureLatency sends a single local ping to host and returns the round
// trip. It never goes through ssh. ok is false when there is no measurement.
func (e *Executor) MeasureLatency(ctx context.Context, host string) (rtt time.Duration, ok bool) {
	if host == "" {
		return 0, false
	}

	res, err := e.runner.Run(ctx, pingCommand(e.transport.PingBinary, host, runtime.GOOS))
	if err != nil || !res.OK() {
		e.log.Debug("ping %s failed: exit %d", host, res.ExitCode)
		return 0, false
	}

	return ParsePingTime(res.Stdout)
}

// pingCommand returns a one-shot ping line. The wait flag differs per
// platform: seconds on Linux, milliseconds on BSD/macOS.
func pingCommand(binary, host, goos string) string {
	wait := []string{"-W", "2"}
	if goos == "darwin" || goos == "freebsd" {
		wait = []string{"-W", "2000"}
	}
	args := append([]string{binary, "-c", "1"}, wait...)
	args = append(args, host)
	return util.ShellJoin(args...)
}

// ParsePingTime extracts time=<ms> from ping output.
func ParsePingTime(output string) (time.Duration, bool) {
	m := pingTimePattern.FindStringSubmatch(output)
	if m == nil {
		return 0, false
	}
	ms, err := strconv.ParseFloat(m[1], 64)
	if err != nil || ms < 0 {
		return 0, false
	}
	return time.Duration(ms * float64(time.Millisecond)), true
}
