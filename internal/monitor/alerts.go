package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/config"
)

// MetricKind names the metric a performance alert is about.
type MetricKind string

const (
	KindCPU    MetricKind = "cpu"
	KindMemory MetricKind = "memory"
	KindDisk   MetricKind = "disk"
)

// AlertSink receives alert decisions. Calls happen while the monitor holds
// its merge lock, so implementations must not call back into the Monitor and
// should not block for long.
type AlertSink interface {
	AlertConnectivity(target config.Target, connected bool)
	AlertMetric(target config.Target, kind MetricKind, message string)
}

type cooldownKey struct {
	target string
	kind   MetricKind
}

// Evaluator decides when to alert. Connectivity alerts fire on transitions
// only; the first observation of a target is recorded silently.
type Evaluator struct {
	cfg  config.AlertConfig
	sink AlertSink
	now  func() time.Time

	mu        sync.Mutex
	connected map[string]bool
	lastFired map[cooldownKey]time.Time
}

// NewEvaluator creates an evaluator. A nil sink discards alerts.
func NewEvaluator(cfg config.AlertConfig, sink AlertSink) *Evaluator {
	return &Evaluator{
		cfg:       cfg,
		sink:      sink,
		now:       time.Now,
		connected: make(map[string]bool),
		lastFired: make(map[cooldownKey]time.Time),
	}
}

// Evaluate inspects a freshly merged state.
func (e *Evaluator) Evaluate(st TargetState) {
	if e == nil || !st.Polled() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	id := st.Target.ID
	prev, seen := e.connected[id]
	e.connected[id] = st.Connected
	if e.cfg.Connectivity && seen && prev != st.Connected && e.sink != nil {
		e.sink.AlertConnectivity(st.Target, st.Connected)
	}

	if !e.cfg.Performance || !st.Connected {
		return
	}
	if st.CPUPercent != nil && *st.CPUPercent > e.cfg.CPUPercent {
		e.fire(st.Target, KindCPU, fmt.Sprintf("CPU at %.1f%% (threshold %.0f%%)", *st.CPUPercent, e.cfg.CPUPercent))
	}
	if st.Memory != nil && st.Memory.UsedPercent > e.cfg.MemoryPercent {
		e.fire(st.Target, KindMemory, fmt.Sprintf("Memory at %.1f%% (threshold %.0f%%)", st.Memory.UsedPercent, e.cfg.MemoryPercent))
	}
	if st.Disk != nil && st.Disk.AvailableGB < e.cfg.DiskFreeGB {
		e.fire(st.Target, KindDisk, fmt.Sprintf("Disk has %.1f GB free (threshold %.0f GB)", st.Disk.AvailableGB, e.cfg.DiskFreeGB))
	}
}

// fire must be called with e.mu held.
func (e *Evaluator) fire(target config.Target, kind MetricKind, msg string) {
	if e.sink == nil {
		return
	}
	if e.cfg.MetricCooldown > 0 {
		key := cooldownKey{target: target.ID, kind: kind}
		now := e.now()
		if last, ok := e.lastFired[key]; ok && now.Sub(last) < e.cfg.MetricCooldown {
			return
		}
		e.lastFired[key] = now
	}
	e.sink.AlertMetric(target, kind, msg)
}

// Forget drops all alert state for a target.
func (e *Evaluator) Forget(targetID string) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.connected, targetID)
	for k := range e.lastFired {
		if k.target == targetID {
			delete(e.lastFired, k)
		}
	}
}

// Reset drops alert state for every target.
func (e *Evaluator) Reset() {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = make(map[string]bool)
	e.lastFired = make(map[cooldownKey]time.Time)
}
