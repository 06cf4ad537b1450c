package monitor

import (
	"time"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/probe"
)

// NetRate is network throughput of the selected interface in bytes per second.
type NetRate struct {
	UploadBps   float64 `json:"upload_bps"`
	DownloadBps float64 `json:"download_bps"`
}

// TargetState is the merged view of one target after its latest check.
// Pointer fields are nil when the value is not known.
type TargetState struct {
	Target    config.Target `json:"-"`
	LastPoll  time.Time     `json:"last_poll"`
	Connected bool          `json:"connected"`
	LastError string        `json:"last_error,omitempty"`
	ErrorCode string        `json:"error_code,omitempty"`

	CPUPercent *float64      `json:"cpu_percent,omitempty"`
	Memory     *probe.Memory `json:"memory,omitempty"`
	Disk       *probe.Disk   `json:"disk,omitempty"`

	// Network is nil on the first sample and after the interface changed.
	Network   *NetRate `json:"network,omitempty"`
	Interface string   `json:"interface,omitempty"`

	Containers []probe.Container `json:"containers,omitempty"`
	RemoteIP   string            `json:"remote_ip,omitempty"`

	// Latency is the local ping round trip, independent of the session.
	Latency *time.Duration `json:"-"`

	prevCPU *probe.CPUCounters
	prevNet *probe.NetCounters
	prevAt  time.Time
}

// Polled reports whether the target has been checked at least once.
func (s TargetState) Polled() bool {
	return !s.LastPoll.IsZero()
}

// HasBaseline reports whether delta counters from a previous successful
// cycle are held.
func (s TargetState) HasBaseline() bool {
	return s.prevCPU != nil
}

// clone returns a copy that shares no mutable memory with s.
func (s TargetState) clone() TargetState {
	out := s
	if s.CPUPercent != nil {
		v := *s.CPUPercent
		out.CPUPercent = &v
	}
	if s.Memory != nil {
		v := *s.Memory
		out.Memory = &v
	}
	if s.Disk != nil {
		v := *s.Disk
		out.Disk = &v
	}
	if s.Network != nil {
		v := *s.Network
		out.Network = &v
	}
	if s.Latency != nil {
		v := *s.Latency
		out.Latency = &v
	}
	if s.Containers != nil {
		out.Containers = make([]probe.Container, len(s.Containers))
		copy(out.Containers, s.Containers)
	}
	out.prevCPU = nil
	out.prevNet = nil
	if s.prevCPU != nil {
		v := *s.prevCPU
		out.prevCPU = &v
	}
	if s.prevNet != nil {
		v := *s.prevNet
		out.prevNet = &v
	}
	return out
}

// applySuccess folds a sample into s. at is when the check completed.
func (s *TargetState) applySuccess(sample *probe.Sample, at time.Time) {
	s.LastPoll = at
	s.Connected = true
	s.LastError = ""
	s.ErrorCode = ""

	cpu := CPUPercent(s.prevCPU, sample.CPU)
	s.CPUPercent = &cpu
	prevCPU := sample.CPU
	s.prevCPU = &prevCPU

	mem := sample.Memory
	s.Memory = &mem
	disk := sample.Disk
	s.Disk = &disk

	s.Network = nil
	if cur := sample.Network; cur != nil {
		if s.prevNet != nil && s.prevNet.Interface == cur.Interface {
			if rate, ok := NetworkRate(*s.prevNet, *cur, at.Sub(s.prevAt)); ok {
				s.Network = &rate
			}
		}
		next := *cur
		s.prevNet = &next
		s.Interface = cur.Interface
	} else {
		s.prevNet = nil
		s.Interface = ""
	}
	s.prevAt = at

	s.Containers = sample.Containers
	s.RemoteIP = sample.RemoteIP
}

// applyFailure records a failed check and drops everything derived from
// previous cycles. Latency is left to the caller.
func (s *TargetState) applyFailure(errText, code string, at time.Time) {
	s.LastPoll = at
	s.Connected = false
	s.LastError = errText
	s.ErrorCode = code

	s.CPUPercent = nil
	s.Memory = nil
	s.Disk = nil
	s.Network = nil
	s.Interface = ""
	s.Containers = nil
	s.RemoteIP = ""

	s.prevCPU = nil
	s.prevNet = nil
	s.prevAt = time.Time{}
}
