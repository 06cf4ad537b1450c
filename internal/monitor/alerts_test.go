package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/probe"
)

type connectivityAlert struct {
	target    string
	connected bool
}

type metricAlert struct {
	target  string
	kind    MetricKind
	message string
}

type recordingSink struct {
	mu           sync.Mutex
	connectivity []connectivityAlert
	metrics      []metricAlert
}

func (r *recordingSink) AlertConnectivity(t config.Target, connected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectivity = append(r.connectivity, connectivityAlert{t.ID, connected})
}

func (r *recordingSink) AlertMetric(t config.Target, kind MetricKind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, metricAlert{t.ID, kind, message})
}

func polledState(id string, connected bool) TargetState {
	return TargetState{
		Target:    config.Target{ID: id},
		LastPoll:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Connected: connected,
	}
}

func busyState(id string, cpu, mem, diskFree float64) TargetState {
	st := polledState(id, true)
	st.CPUPercent = &cpu
	st.Memory = &probe.Memory{UsedPercent: mem, TotalGB: 8}
	st.Disk = &probe.Disk{AvailableGB: diskFree, UsedPercent: 50, TotalGB: 100}
	return st
}

func alertConfig() config.AlertConfig {
	return config.AlertConfig{
		Connectivity:  true,
		Performance:   true,
		CPUPercent:    90,
		MemoryPercent: 80,
		DiskFreeGB:    10,
	}
}

func TestEvaluator_ConnectivityEdges(t *testing.T) {
	sink := &recordingSink{}
	e := NewEvaluator(alertConfig(), sink)

	for _, connected := range []bool{true, true, false, false, false, true, true} {
		e.Evaluate(polledState("web1", connected))
	}

	assert.Equal(t, []connectivityAlert{
		{"web1", false},
		{"web1", true},
	}, sink.connectivity)
}

func TestEvaluator_FirstObservationIsSilent(t *testing.T) {
	sink := &recordingSink{}
	e := NewEvaluator(alertConfig(), sink)

	e.Evaluate(polledState("web1", false))
	assert.Empty(t, sink.connectivity)

	e.Evaluate(TargetState{Target: config.Target{ID: "web2"}})
	e.Evaluate(polledState("web2", false))
	assert.Empty(t, sink.connectivity, "unpolled states are ignored")
}

func TestEvaluator_ConnectivityDisabled(t *testing.T) {
	cfg := alertConfig()
	cfg.Connectivity = false
	sink := &recordingSink{}
	e := NewEvaluator(cfg, sink)

	e.Evaluate(polledState("web1", true))
	e.Evaluate(polledState("web1", false))
	assert.Empty(t, sink.connectivity)
}

func TestEvaluator_Metrics(t *testing.T) {
	tests := []struct {
		name  string
		state TargetState
		kinds []MetricKind
	}{
		{"all healthy", busyState("a", 10, 10, 50), nil},
		{"cpu over", busyState("a", 95, 10, 50), []MetricKind{KindCPU}},
		{"cpu at threshold", busyState("a", 90, 10, 50), nil},
		{"memory over", busyState("a", 10, 81, 50), []MetricKind{KindMemory}},
		{"disk low", busyState("a", 10, 10, 9.5), []MetricKind{KindDisk}},
		{"everything", busyState("a", 99, 99, 1), []MetricKind{KindCPU, KindMemory, KindDisk}},
		{"disconnected", polledState("a", false), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			NewEvaluator(alertConfig(), sink).Evaluate(tt.state)

			var kinds []MetricKind
			for _, m := range sink.metrics {
				kinds = append(kinds, m.kind)
			}
			assert.Equal(t, tt.kinds, kinds)
		})
	}
}

func TestEvaluator_MetricMessage(t *testing.T) {
	sink := &recordingSink{}
	NewEvaluator(alertConfig(), sink).Evaluate(busyState("a", 93.24, 10, 50))

	require.Len(t, sink.metrics, 1)
	assert.Equal(t, "CPU at 93.2% (threshold 90%)", sink.metrics[0].message)
}

func TestEvaluator_LevelTriggered(t *testing.T) {
	sink := &recordingSink{}
	e := NewEvaluator(alertConfig(), sink)

	for i := 0; i < 3; i++ {
		e.Evaluate(busyState("a", 95, 10, 50))
	}
	assert.Len(t, sink.metrics, 3)
}

func TestEvaluator_Cooldown(t *testing.T) {
	cfg := alertConfig()
	cfg.MetricCooldown = 5 * time.Minute
	sink := &recordingSink{}
	e := NewEvaluator(cfg, sink)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }

	e.Evaluate(busyState("a", 95, 10, 50))
	now = now.Add(time.Minute)
	e.Evaluate(busyState("a", 95, 10, 50))
	e.Evaluate(busyState("b", 95, 10, 50))
	assert.Len(t, sink.metrics, 2, "cooldown is per target")

	now = now.Add(5 * time.Minute)
	e.Evaluate(busyState("a", 95, 10, 50))
	assert.Len(t, sink.metrics, 3)
}

func TestEvaluator_PerformanceDisabled(t *testing.T) {
	cfg := alertConfig()
	cfg.Performance = false
	sink := &recordingSink{}
	NewEvaluator(cfg, sink).Evaluate(busyState("a", 99, 99, 1))
	assert.Empty(t, sink.metrics)
}

func TestEvaluator_Forget(t *testing.T) {
	sink := &recordingSink{}
	e := NewEvaluator(alertConfig(), sink)

	e.Evaluate(polledState("a", true))
	e.Forget("a")
	e.Evaluate(polledState("a", false))
	assert.Empty(t, sink.connectivity, "forgotten target starts fresh")

	e.Reset()
	e.Evaluate(polledState("a", true))
	assert.Empty(t, sink.connectivity)
}

func TestEvaluator_NilSafe(t *testing.T) {
	var e *Evaluator
	assert.NotPanics(t, func() {
		e.Evaluate(polledState("a", true))
		e.Forget("a")
		e.Reset()
	})
	assert.NotPanics(t, func() {
		NewEvaluator(alertConfig(), nil).Evaluate(busyState("a", 99, 99, 1))
	})
}
