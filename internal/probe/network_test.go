package probe

import (
	"context"
	"testing"

	"github.com/rileyhilliard/hostwatch/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProcNetDev(t *testing.T) {
	ifaces, err := ParseProcNetDev(sampleProcNetDev)
	require.NoError(t, err)

	require.Len(t, ifaces, 3)
	assert.Equal(t, Interface{Name: "lo", RxBytes: 9000000000, TxBytes: 9000000000}, ifaces[0])
	assert.Equal(t, Interface{Name: "eth0", RxBytes: 5000000, TxBytes: 3000000}, ifaces[1])

	_, err = ParseProcNetDev("Inter-|   Receive\n")
	assert.Error(t, err)
}

func TestParseNetstat(t *testing.T) {
	out := `Name       Mtu   Network       Address            Ipkts Ierrs     Ibytes    Opkts Oerrs     Obytes  Coll
lo0        16384 <Link#1>                         1000     0     500000     1000     0     500000     0
lo0        16384 127           127.0.0.1          1000     -     500000     1000     -     500000     -
en0        1500  <Link#4>      aa:bb:cc:dd:ee:ff  20000    0   90000000    15000     0   10000000     0
en0        1500  192.168.1     192.168.1.20       20000    -   90000000    15000     -   10000000     -
`
	ifaces, err := ParseNetstat(out)
	require.NoError(t, err)

	require.Len(t, ifaces, 2)
	assert.Equal(t, Interface{Name: "en0", RxBytes: 90000000, TxBytes: 10000000}, ifaces[1])
}

func TestParseDefaultRoutes(t *testing.T) {
	assert.Equal(t, "eth0", ParseIPRouteDefault("default via 10.0.0.1 dev eth0 proto dhcp metric 100\n"))
	assert.Equal(t, "", ParseIPRouteDefault(""))
	assert.Equal(t, "en0", ParseRouteGetDefault("   route to: default\ndestination: default\n  interface: en0\n"))
	assert.Equal(t, "", ParseRouteGetDefault("route: writing to routing socket: not in table"))
}

func TestSelectInterface(t *testing.T) {
	tests := []struct {
		name   string
		ifaces []Interface
		route  string
		want   string
		ok     bool
	}{
		{
			name: "busiest above floor wins over route",
			ifaces: []Interface{
				{Name: "lo", RxBytes: 1 << 40},
				{Name: "eth0", RxBytes: 2 << 20},
				{Name: "eth1", RxBytes: 5 << 20, TxBytes: 1},
			},
			route: "eth0",
			want:  "eth1",
			ok:    true,
		},
		{
			name: "idle fleet falls back to default route",
			ifaces: []Interface{
				{Name: "docker0", RxBytes: 100},
				{Name: "wlan0", RxBytes: 500},
			},
			route: "wlan0",
			want:  "wlan0",
			ok:    true,
		},
		{
			name: "no route falls back to first non-loopback",
			ifaces: []Interface{
				{Name: "lo0", RxBytes: 10},
				{Name: "en0", RxBytes: 10},
				{Name: "en1", RxBytes: 20},
			},
			want: "en0",
			ok:   true,
		},
		{
			name:   "loopback only",
			ifaces: []Interface{{Name: "lo", RxBytes: 1 << 30}},
			ok:     false,
		},
		{
			name:   "exactly at the floor is not active",
			ifaces: []Interface{{Name: "eth0", RxBytes: ActivityFloor}, {Name: "eth1", RxBytes: 1}},
			route:  "eth1",
			want:   "eth1",
			ok:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectInterface(tt.ifaces, tt.route)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestCollectNetwork(t *testing.T) {
	t.Run("procfs", func(t *testing.T) {
		ex := newFakeExec(map[string]remote.Result{
			"cat /proc/net/dev": ok(sampleProcNetDev + "---\ndefault via 10.0.0.1 dev eth0\n"),
		})
		n, err := CollectNetwork(context.Background(), ex)
		require.NoError(t, err)
		assert.Equal(t, NetCounters{Interface: "eth0", RxBytes: 5000000, TxBytes: 3000000}, n)
	})

	t.Run("falls back to netstat", func(t *testing.T) {
		ex := newFakeExec(map[string]remote.Result{
			"cat /proc/net/dev": {Stderr: "No such file or directory", ExitCode: 1},
			"netstat -ibn": ok("Name Mtu Network Address Ipkts Ierrs Ibytes Opkts Oerrs Obytes Coll\n" +
				"en0 1500 <Link#4> aa:bb:cc:dd:ee:ff 1 0 300 2 0 400 0\n---\n  interface: en0\n"),
		})
		n, err := CollectNetwork(context.Background(), ex)
		require.NoError(t, err)
		assert.Equal(t, NetCounters{Interface: "en0", RxBytes: 300, TxBytes: 400}, n)
	})
}
