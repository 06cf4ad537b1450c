package notify

import (
	"sync"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// Sink receives events.
type Sink interface {
	Name() string
	Send(e Event) error
}

// Multi fans alert decisions out to sinks.
type Multi struct {
	mu    sync.RWMutex
	sinks []Sink
	log   logger.Logger
	now   func() time.Time
}

var _ monitor.AlertSink = (*Multi)(nil)

// NewMulti creates a fan-out over sinks.
func NewMulti(l logger.Logger, sinks ...Sink) *Multi {
	return &Multi{
		sinks: sinks,
		log:   logger.With(l, "[notify]"),
		now:   time.Now,
	}
}

// Add appends a sink.
func (m *Multi) Add(s Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, s)
}

// Len returns the number of sinks.
func (m *Multi) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sinks)
}

// AlertConnectivity implements monitor.AlertSink.
func (m *Multi) AlertConnectivity(t config.Target, connected bool) {
	_ = m.Send(NewConnectivityEvent(t, connected, m.now()))
}

// AlertMetric implements monitor.AlertSink.
func (m *Multi) AlertMetric(t config.Target, kind monitor.MetricKind, message string) {
	_ = m.Send(NewMetricEvent(t, kind, message, m.now()))
}

// Send delivers e to every sink and returns the first error.
func (m *Multi) Send(e Event) error {
	m.mu.RLock()
	sinks := m.sinks
	m.mu.RUnlock()

	var first error
	for _, s := range sinks {
		if err := s.Send(e); err != nil {
			m.log.Warn("%s sink failed for %s: %s", s.Name(), e.TargetID, errors.Summarize(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}
