package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// KindConnectivity marks connectivity transitions. Metric alerts use the
// monitor.MetricKind value as their kind.
const KindConnectivity = "connectivity"

// Event is one alert as delivered to sinks.
type Event struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	TargetID   string    `json:"target_id"`
	TargetName string    `json:"target_name"`
	Host       string    `json:"host"`
	Connected  *bool     `json:"connected,omitempty"`
	Message    string    `json:"message"`
	Time       time.Time `json:"time"`
}

// Recovery reports whether the event announces a target coming back.
func (e Event) Recovery() bool {
	return e.Connected != nil && *e.Connected
}

// NewConnectivityEvent describes a connectivity transition.
func NewConnectivityEvent(t config.Target, connected bool, at time.Time) Event {
	msg := fmt.Sprintf("%s is unreachable", t.DisplayName())
	if connected {
		msg = fmt.Sprintf("%s is back online", t.DisplayName())
	}
	return Event{
		ID:         uuid.NewString(),
		Kind:       KindConnectivity,
		TargetID:   t.ID,
		TargetName: t.DisplayName(),
		Host:       t.Host,
		Connected:  &connected,
		Message:    msg,
		Time:       at,
	}
}

// NewMetricEvent describes a threshold breach.
func NewMetricEvent(t config.Target, kind monitor.MetricKind, message string, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       string(kind),
		TargetID:   t.ID,
		TargetName: t.DisplayName(),
		Host:       t.Host,
		Message:    message,
		Time:       at,
	}
}
