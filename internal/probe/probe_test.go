package probe

import (
	"context"
	"strings"
	"sync"

	"github.com/rileyhilliard/hostwatch/internal/remote"
)

// fakeExec answers commands by prefix. Unknown commands exit 127.
type fakeExec struct {
	mu        sync.Mutex
	responses map[string]remote.Result
	calls     []string
}

func newFakeExec(responses map[string]remote.Result) *fakeExec {
	return &fakeExec{responses: responses}
}

func (f *fakeExec) Run(_ context.Context, cmd string) (remote.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)

	// Longest matching prefix wins so specific commands can shadow general ones.
	best := ""
	for prefix := range f.responses {
		if strings.HasPrefix(cmd, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return remote.Result{Stderr: "sh: command not found", ExitCode: 127}, nil
	}
	return f.responses[best], nil
}

func (f *fakeExec) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeExec) Called(prefix string) bool {
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func ok(stdout string) remote.Result {
	return remote.Result{Stdout: stdout}
}

const (
	sampleProcStat = "cpu  1000 20 300 900 50 0 10 0 0 0\n"

	sampleFree = `               total        used        free      shared  buff/cache   available
Mem:     8589934592  4294967296  1073741824    10485760  3221225472  2147483648
Swap:    2147483648           0  2147483648
`

	sampleDF = `Filesystem     1G-blocks  Used Available Capacity Mounted on
/dev/sda1           100G   40G       55G      43% /
`

	sampleProcNetDev = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo: 9000000000 100 0 0 0 0 0 0 9000000000 100 0 0 0 0 0 0
  eth0: 5000000 4000 0 0 0 0 0 0 3000000 3000 0 0 0 0 0 0
docker0: 200 2 0 0 0 0 0 0 100 1 0 0 0 0 0 0
`
)
