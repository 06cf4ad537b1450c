package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/probe"
)

// scriptedChecker returns queued outcomes per target ID.
type scriptedChecker struct {
	mu    sync.Mutex
	queue map[string][]outcome
	calls map[string]int
}

type outcome struct {
	sample *probe.Sample
	err    error
}

func newScriptedChecker() *scriptedChecker {
	return &scriptedChecker{queue: map[string][]outcome{}, calls: map[string]int{}}
}

func (c *scriptedChecker) push(id string, o ...outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue[id] = append(c.queue[id], o...)
}

func (c *scriptedChecker) Check(_ context.Context, target config.Target) (*probe.Sample, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[target.ID]++
	q := c.queue[target.ID]
	if len(q) == 0 {
		return nil, errors.New(errors.ErrConnect, "no scripted outcome", "")
	}
	c.queue[target.ID] = q[1:]
	return q[0].sample, q[0].err
}

func (c *scriptedChecker) callCount(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

func sampleWith(total, idle uint64) *probe.Sample {
	return &probe.Sample{
		CPU:    probe.CPUCounters{Total: total, Idle: idle},
		Memory: probe.Memory{UsedPercent: 40, TotalGB: 16},
		Disk:   probe.Disk{AvailableGB: 100, UsedPercent: 50, TotalGB: 200},
	}
}

func withNet(s *probe.Sample, iface string, rx, tx uint64) *probe.Sample {
	s.Network = &probe.NetCounters{Interface: iface, RxBytes: rx, TxBytes: tx}
	return s
}

func failure() outcome {
	return outcome{err: errors.New(errors.ErrConnect, "Connection to web1 failed", "")}
}

func success(s *probe.Sample) outcome {
	return outcome{sample: s}
}

func target(id string) config.Target {
	return config.Target{ID: id, Host: id + ".example", User: "ops"}
}

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRunOnce_CPUDelta(t *testing.T) {
	chk := newScriptedChecker()
	chk.push("web1", success(sampleWith(1000, 900)), success(sampleWith(1200, 950)))

	m := New(chk, Options{})
	m.SetTargets([]config.Target{target("web1")})

	states := m.RunOnce(context.Background())
	require.Len(t, states, 1)
	require.NotNil(t, states[0].CPUPercent)
	assert.Equal(t, 0.0, *states[0].CPUPercent, "first sample has no baseline")
	assert.True(t, states[0].Connected)

	states = m.RunOnce(context.Background())
	require.NotNil(t, states[0].CPUPercent)
	assert.InDelta(t, 75.0, *states[0].CPUPercent, 0.001)
}

func TestRunOnce_CounterResetIsClamped(t *testing.T) {
	chk := newScriptedChecker()
	chk.push("web1", success(sampleWith(1000, 900)), success(sampleWith(500, 400)))

	m := New(chk, Options{})
	m.SetTargets([]config.Target{target("web1")})

	m.RunOnce(context.Background())
	states := m.RunOnce(context.Background())
	require.NotNil(t, states[0].CPUPercent)
	assert.Equal(t, 0.0, *states[0].CPUPercent)
}

func TestRunOnce_FailureClearsState(t *testing.T) {
	chk := newScriptedChecker()
	chk.push("web1",
		success(sampleWith(1000, 900)),
		failure(),
		success(sampleWith(1200, 950)),
	)

	m := New(chk, Options{})
	m.SetTargets([]config.Target{target("web1")})

	m.RunOnce(context.Background())

	st := m.RunOnce(context.Background())[0]
	assert.False(t, st.Connected)
	assert.Contains(t, st.LastError, "Connection to web1 failed")
	assert.Equal(t, errors.ErrConnect, st.ErrorCode)
	assert.Nil(t, st.CPUPercent)
	assert.Nil(t, st.Memory)
	assert.Nil(t, st.Disk)
	assert.Nil(t, st.Network)
	assert.False(t, st.HasBaseline())

	// The next success starts a new baseline instead of diffing against the
	// sample from before the failure.
	st = m.RunOnce(context.Background())[0]
	assert.True(t, st.Connected)
	assert.Empty(t, st.LastError)
	require.NotNil(t, st.CPUPercent)
	assert.Equal(t, 0.0, *st.CPUPercent)
	assert.True(t, st.HasBaseline())
}

func TestRunOnce_NetworkRate(t *testing.T) {
	clk := newClock()
	chk := newScriptedChecker()
	chk.push("web1",
		success(withNet(sampleWith(100, 50), "eth0", 1000, 500)),
		success(withNet(sampleWith(200, 100), "eth0", 11000, 2500)),
		success(withNet(sampleWith(300, 150), "wlan0", 50, 50)),
		success(withNet(sampleWith(400, 200), "wlan0", 20050, 10050)),
	)

	m := New(chk, Options{Now: clk.Now})
	m.SetTargets([]config.Target{target("web1")})

	st := m.RunOnce(context.Background())[0]
	assert.Nil(t, st.Network, "first sample has no rate")
	assert.Equal(t, "eth0", st.Interface)

	clk.Advance(10 * time.Second)
	st = m.RunOnce(context.Background())[0]
	require.NotNil(t, st.Network)
	assert.InDelta(t, 1000.0, st.Network.DownloadBps, 0.001)
	assert.InDelta(t, 200.0, st.Network.UploadBps, 0.001)

	clk.Advance(10 * time.Second)
	st = m.RunOnce(context.Background())[0]
	assert.Nil(t, st.Network, "interface changed")
	assert.Equal(t, "wlan0", st.Interface)

	clk.Advance(20 * time.Second)
	st = m.RunOnce(context.Background())[0]
	require.NotNil(t, st.Network)
	assert.InDelta(t, 1000.0, st.Network.DownloadBps, 0.001)
	assert.InDelta(t, 500.0, st.Network.UploadBps, 0.001)
}

// forgettingChecker records which targets had their cached data dropped.
type forgettingChecker struct {
	*scriptedChecker
	forgotten []string
}

func (c *forgettingChecker) Forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forgotten = append(c.forgotten, id)
}

func TestRunOnce_FailureDropsCachedRemoteIP(t *testing.T) {
	chk := &forgettingChecker{scriptedChecker: newScriptedChecker()}
	s := sampleWith(100, 50)
	s.RemoteIP = "203.0.113.7"
	chk.push("web1", success(s), failure())

	m := New(chk, Options{})
	m.SetTargets([]config.Target{target("web1")})

	st := m.RunOnce(context.Background())[0]
	assert.Equal(t, "203.0.113.7", st.RemoteIP)
	assert.Empty(t, chk.forgotten)

	st = m.RunOnce(context.Background())[0]
	assert.Empty(t, st.RemoteIP)
	assert.Equal(t, []string{"web1"}, chk.forgotten)
}

func TestRunOnce_FailureIsolatedPerTarget(t *testing.T) {
	chk := newScriptedChecker()
	chk.push("a", success(sampleWith(100, 50)))
	chk.push("b", failure())

	m := New(chk, Options{})
	m.SetTargets([]config.Target{target("a"), target("b")})

	states := m.RunOnce(context.Background())
	require.Len(t, states, 2)
	assert.Equal(t, "a", states[0].Target.ID)
	assert.True(t, states[0].Connected)
	assert.Equal(t, "b", states[1].Target.ID)
	assert.False(t, states[1].Connected)
}

func TestRunOnce_SkipsDisabledTargets(t *testing.T) {
	chk := newScriptedChecker()
	disabled := false
	off := target("off")
	off.Enabled = &disabled

	m := New(chk, Options{})
	m.SetTargets([]config.Target{off})

	states := m.RunOnce(context.Background())
	require.Len(t, states, 1)
	assert.False(t, states[0].Polled())
	assert.Equal(t, 0, chk.callCount("off"))
}

type fixedPinger struct {
	rtt time.Duration
	ok  bool
}

func (p fixedPinger) MeasureLatency(context.Context, string) (time.Duration, bool) {
	return p.rtt, p.ok
}

func TestRunOnce_LatencySurvivesFailure(t *testing.T) {
	chk := newScriptedChecker()
	chk.push("web1", failure())

	m := New(chk, Options{Pinger: fixedPinger{rtt: 5 * time.Millisecond, ok: true}})
	m.SetTargets([]config.Target{target("web1")})

	st := m.RunOnce(context.Background())[0]
	assert.False(t, st.Connected)
	require.NotNil(t, st.Latency)
	assert.Equal(t, 5*time.Millisecond, *st.Latency)
}

func TestRunOnce_NilSampleIsFailure(t *testing.T) {
	m := New(CheckerFunc(func(context.Context, config.Target) (*probe.Sample, error) {
		return nil, nil
	}), Options{})
	m.SetTargets([]config.Target{target("web1")})

	st := m.RunOnce(context.Background())[0]
	assert.False(t, st.Connected)
	assert.Equal(t, errors.ErrResponse, st.ErrorCode)
}

// gatedChecker blocks every check until release is closed.
type gatedChecker struct {
	entered chan string
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func newGatedChecker() *gatedChecker {
	return &gatedChecker{entered: make(chan string, 8), release: make(chan struct{})}
}

func (g *gatedChecker) Check(ctx context.Context, target config.Target) (*probe.Sample, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	g.entered <- target.ID
	<-g.release
	return sampleWith(100, 50), nil
}

func TestRemoveTarget_InFlightResultDiscarded(t *testing.T) {
	gate := newGatedChecker()
	var removed []string
	m := New(gate, Options{OnRemove: func(t config.Target) { removed = append(removed, t.ID) }})
	m.SetTargets([]config.Target{target("a"), target("b")})

	done := make(chan []TargetState)
	go func() { done <- m.RunOnce(context.Background()) }()

	<-gate.entered
	<-gate.entered
	require.True(t, m.RemoveTarget("a"))
	assert.False(t, m.RemoveTarget("a"))
	close(gate.release)

	states := <-done
	require.Len(t, states, 1)
	assert.Equal(t, "b", states[0].Target.ID)
	assert.True(t, states[0].Connected, "b shifted slots but still merges")
	assert.Equal(t, []string{"a"}, removed)

	_, ok := m.State("a")
	assert.False(t, ok)
}

func TestRemoveTarget_ReaddedTargetIgnoresStaleResult(t *testing.T) {
	gate := newGatedChecker()
	m := New(gate, Options{})
	m.SetTargets([]config.Target{target("a")})

	done := make(chan []TargetState)
	go func() { done <- m.RunOnce(context.Background()) }()
	<-gate.entered

	m.RemoveTarget("a")
	m.SetTargets([]config.Target{target("a")})
	close(gate.release)

	states := <-done
	require.Len(t, states, 1)
	assert.False(t, states[0].Polled(), "result from the old epoch must not land")
}

func TestDispatch_SkipsTargetsInFlight(t *testing.T) {
	gate := newGatedChecker()
	m := New(gate, Options{})
	m.SetTargets([]config.Target{target("a")})

	first := make(chan []TargetState)
	go func() { first <- m.RunOnce(context.Background()) }()
	<-gate.entered

	// The second cycle finds "a" busy and completes without a new check.
	m.RunOnce(context.Background())
	gate.mu.Lock()
	assert.Equal(t, 1, gate.calls)
	gate.mu.Unlock()

	close(gate.release)
	states := <-first
	assert.True(t, states[0].Connected)
}

func TestSetTargets_KeepsSurvivingState(t *testing.T) {
	chk := newScriptedChecker()
	chk.push("a", success(sampleWith(1000, 900)), success(sampleWith(1200, 950)))
	chk.push("b", success(sampleWith(100, 50)))

	m := New(chk, Options{})
	m.SetTargets([]config.Target{target("a"), target("b")})
	m.RunOnce(context.Background())

	renamed := target("a")
	renamed.Name = "Alpha"
	m.SetTargets([]config.Target{renamed})

	states := m.Snapshot()
	require.Len(t, states, 1)
	assert.Equal(t, "Alpha", states[0].Target.Name)
	assert.True(t, states[0].HasBaseline())

	states = m.RunOnce(context.Background())
	require.NotNil(t, states[0].CPUPercent)
	assert.InDelta(t, 75.0, *states[0].CPUPercent, 0.001)
}

func TestSetTargets_AddressChangeResetsBaseline(t *testing.T) {
	clk := newClock()
	chk := newScriptedChecker()
	chk.push("web1",
		success(withNet(sampleWith(1000, 900), "eth0", 1000, 1000)),
		success(withNet(sampleWith(500000, 100), "eth0", 9e6, 9e6)),
	)

	m := New(chk, Options{Now: clk.Now})
	m.SetTargets([]config.Target{target("web1")})
	m.RunOnce(context.Background())

	moved := target("web1")
	moved.Host = "other-machine.example"
	m.SetTargets([]config.Target{moved})

	st, ok := m.State("web1")
	require.True(t, ok)
	assert.False(t, st.HasBaseline())
	assert.False(t, st.Polled())
	assert.Equal(t, "other-machine.example", st.Target.Host)

	clk.Advance(10 * time.Second)
	st = m.RunOnce(context.Background())[0]
	require.NotNil(t, st.CPUPercent)
	assert.Equal(t, 0.0, *st.CPUPercent, "first sample from the new host has no baseline")
	assert.Nil(t, st.Network)
}

func TestSetTargets_IdentityChanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Target)
		reset  bool
	}{
		{"name only", func(t *config.Target) { t.Name = "Web" }, false},
		{"host", func(t *config.Target) { t.Host = "10.0.0.9" }, true},
		{"port", func(t *config.Target) { t.Port = 2222 }, true},
		{"explicit default port", func(t *config.Target) { t.Port = 22 }, false},
		{"user", func(t *config.Target) { t.User = "root" }, true},
		{"credential", func(t *config.Target) { t.PasswordEnc = "new"; t.HasPassword = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chk := newScriptedChecker()
			chk.push("web1", success(sampleWith(1000, 900)))
			m := New(chk, Options{})
			m.SetTargets([]config.Target{target("web1")})
			m.RunOnce(context.Background())

			edited := target("web1")
			tt.mutate(&edited)
			m.SetTargets([]config.Target{edited})

			st, _ := m.State("web1")
			assert.Equal(t, !tt.reset, st.HasBaseline())
		})
	}
}

func TestSetTargets_AddressChangeDiscardsInFlightResult(t *testing.T) {
	gate := newGatedChecker()
	m := New(gate, Options{})
	m.SetTargets([]config.Target{target("a")})

	done := make(chan []TargetState)
	go func() { done <- m.RunOnce(context.Background()) }()
	<-gate.entered

	moved := target("a")
	moved.Host = "10.0.0.9"
	m.SetTargets([]config.Target{moved})
	close(gate.release)

	states := <-done
	require.Len(t, states, 1)
	assert.False(t, states[0].Polled(), "result from the old host must not land")
}

// cancelAwareChecker blocks until released and records the context it saw.
type cancelAwareChecker struct {
	entered  chan context.Context
	release  chan struct{}
	finished chan error
}

func (c *cancelAwareChecker) Check(ctx context.Context, _ config.Target) (*probe.Sample, error) {
	c.entered <- ctx
	select {
	case <-ctx.Done():
		c.finished <- ctx.Err()
		return nil, ctx.Err()
	case <-c.release:
		c.finished <- nil
		return sampleWith(100, 50), nil
	}
}

func TestStop_InFlightCheckRunsToCompletion(t *testing.T) {
	chk := &cancelAwareChecker{
		entered:  make(chan context.Context, 1),
		release:  make(chan struct{}),
		finished: make(chan error, 1),
	}
	var cycles int
	var mu sync.Mutex
	m := New(chk, Options{
		Policy: IntervalPolicy{Base: time.Hour},
		OnCycle: func([]TargetState) {
			mu.Lock()
			cycles++
			mu.Unlock()
		},
	})

	m.Start(context.Background(), []config.Target{target("a")})
	checkCtx := <-chk.entered

	m.Stop()
	assert.NoError(t, checkCtx.Err(), "stopping must not cancel running checks")

	// A restarted set gets new epochs, so the old result can't land.
	m.SetTargets([]config.Target{target("a")})
	close(chk.release)
	require.NoError(t, <-chk.finished)

	assert.Never(t, func() bool {
		st, _ := m.State("a")
		return st.Polled()
	}, 200*time.Millisecond, 10*time.Millisecond)
	mu.Lock()
	assert.Zero(t, cycles)
	mu.Unlock()
}

func TestRunOnce_CancelledContextDoesNotKillChecks(t *testing.T) {
	chk := &cancelAwareChecker{
		entered:  make(chan context.Context, 1),
		release:  make(chan struct{}),
		finished: make(chan error, 1),
	}
	m := New(chk, Options{})
	m.SetTargets([]config.Target{target("a")})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan []TargetState)
	go func() { done <- m.RunOnce(ctx) }()

	checkCtx := <-chk.entered
	cancel()
	assert.NoError(t, checkCtx.Err())
	close(chk.release)

	states := <-done
	assert.True(t, states[0].Connected)
}

func TestSnapshot_ReturnsCopies(t *testing.T) {
	chk := newScriptedChecker()
	s := sampleWith(100, 50)
	s.Containers = []probe.Container{{Name: "api", Status: "Up 1 hour"}}
	chk.push("a", success(s))

	m := New(chk, Options{})
	m.SetTargets([]config.Target{target("a")})
	m.RunOnce(context.Background())

	snap := m.Snapshot()
	*snap[0].CPUPercent = 99
	snap[0].Containers[0].Name = "changed"

	again := m.Snapshot()
	assert.Equal(t, 0.0, *again[0].CPUPercent)
	assert.Equal(t, "api", again[0].Containers[0].Name)
}

func TestStartStop(t *testing.T) {
	chk := newScriptedChecker()
	chk.push("a", success(sampleWith(100, 50)))

	cycles := make(chan []TargetState, 4)
	m := New(chk, Options{
		Policy:  IntervalPolicy{Base: time.Hour},
		OnCycle: func(s []TargetState) { cycles <- s },
	})

	m.Start(context.Background(), []config.Target{target("a")})
	assert.True(t, m.Running())

	select {
	case states := <-cycles:
		require.Len(t, states, 1)
		assert.True(t, states[0].Connected)
	case <-time.After(5 * time.Second):
		t.Fatal("first cycle did not run")
	}

	m.Stop()
	assert.False(t, m.Running())
	assert.Empty(t, m.Snapshot())
}

func TestSetInterval(t *testing.T) {
	m := New(newScriptedChecker(), Options{Policy: IntervalPolicy{Base: time.Minute}})
	assert.Equal(t, time.Minute, m.Interval())

	m.SetInterval(2 * time.Minute)
	assert.Equal(t, 2*time.Minute, m.Interval())

	m.SetInterval(time.Second)
	assert.Equal(t, config.MinInterval, m.Interval())
}

func TestRunOnce_FeedsHistoryAndAlerts(t *testing.T) {
	chk := newScriptedChecker()
	chk.push("a", success(sampleWith(1000, 900)), success(sampleWith(1200, 950)))

	sink := &recordingSink{}
	hist := NewHistory(10)
	cfg := config.DefaultConfig().Alerts
	cfg.CPUPercent = 50

	m := New(chk, Options{History: hist, Evaluator: NewEvaluator(cfg, sink)})
	m.SetTargets([]config.Target{target("a")})

	m.RunOnce(context.Background())
	m.RunOnce(context.Background())

	assert.Equal(t, []float64{0, 75}, hist.CPU("a", 10))
	require.Len(t, sink.metrics, 1)
	assert.Equal(t, KindCPU, sink.metrics[0].kind)

	m.RemoveTarget("a")
	assert.Equal(t, 0, hist.Count("a"))
}
