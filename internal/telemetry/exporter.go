package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/internal/notify"
)

const namespace = "hostwatch"

var targetLabels = []string{"target", "name", "host"}

// Exporter mirrors the latest cycle into Prometheus gauges on a private
// registry. Targets missing from a cycle disappear from the output.
type Exporter struct {
	reg *prometheus.Registry

	mu                sync.Mutex
	up                *prometheus.GaugeVec
	lastPoll          *prometheus.GaugeVec
	cpu               *prometheus.GaugeVec
	memory            *prometheus.GaugeVec
	memoryTotal       *prometheus.GaugeVec
	diskUsed          *prometheus.GaugeVec
	diskFree          *prometheus.GaugeVec
	download          *prometheus.GaugeVec
	upload            *prometheus.GaugeVec
	latency           *prometheus.GaugeVec
	containers        *prometheus.GaugeVec
	containersRunning *prometheus.GaugeVec

	cycles prometheus.Counter
	alerts *prometheus.CounterVec
}

var _ notify.Sink = (*Exporter)(nil)

func gauge(name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, targetLabels)
}

// NewExporter creates an exporter with Go runtime and process collectors.
func NewExporter() *Exporter {
	e := &Exporter{
		reg:               prometheus.NewRegistry(),
		up:                gauge("target_up", "1 when the last check of the target succeeded."),
		lastPoll:          gauge("target_last_poll_timestamp_seconds", "Unix time of the last completed check."),
		cpu:               gauge("cpu_usage_percent", "CPU busy percentage since the previous check."),
		memory:            gauge("memory_usage_percent", "Memory in use, percent of total."),
		memoryTotal:       gauge("memory_total_gigabytes", "Installed memory."),
		diskUsed:          gauge("disk_usage_percent", "Root filesystem usage, percent."),
		diskFree:          gauge("disk_available_gigabytes", "Root filesystem space available."),
		download:          gauge("network_receive_bytes_per_second", "Receive rate of the selected interface."),
		upload:            gauge("network_transmit_bytes_per_second", "Transmit rate of the selected interface."),
		latency:           gauge("ping_latency_seconds", "Local ping round trip to the target."),
		containers:        gauge("containers", "Containers reported by docker."),
		containersRunning: gauge("containers_running", "Containers whose status is up."),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed polling cycles.",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts raised, by kind.",
		}, []string{"kind"}),
	}

	e.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		e.up, e.lastPoll, e.cpu, e.memory, e.memoryTotal, e.diskUsed, e.diskFree,
		e.download, e.upload, e.latency, e.containers, e.containersRunning,
		e.cycles, e.alerts,
	)
	return e
}

// Registry returns the private registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.reg, promhttp.HandlerOpts{Registry: e.reg})
}

func (e *Exporter) targetVecs() []*prometheus.GaugeVec {
	return []*prometheus.GaugeVec{
		e.up, e.lastPoll, e.cpu, e.memory, e.memoryTotal, e.diskUsed, e.diskFree,
		e.download, e.upload, e.latency, e.containers, e.containersRunning,
	}
}

// Observe replaces all target gauges with the given cycle snapshot.
// It is meant to be used as the monitor's OnCycle callback.
func (e *Exporter) Observe(states []monitor.TargetState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, v := range e.targetVecs() {
		v.Reset()
	}
	e.cycles.Inc()

	for _, st := range states {
		if !st.Polled() {
			continue
		}
		labels := prometheus.Labels{
			"target": st.Target.ID,
			"name":   st.Target.DisplayName(),
			"host":   st.Target.Host,
		}

		up := 0.0
		if st.Connected {
			up = 1
		}
		e.up.With(labels).Set(up)
		e.lastPoll.With(labels).Set(float64(st.LastPoll.UnixNano()) / 1e9)

		if st.Latency != nil {
			e.latency.With(labels).Set(st.Latency.Seconds())
		}
		if st.CPUPercent != nil {
			e.cpu.With(labels).Set(*st.CPUPercent)
		}
		if st.Memory != nil {
			e.memory.With(labels).Set(st.Memory.UsedPercent)
			e.memoryTotal.With(labels).Set(st.Memory.TotalGB)
		}
		if st.Disk != nil {
			e.diskUsed.With(labels).Set(st.Disk.UsedPercent)
			e.diskFree.With(labels).Set(st.Disk.AvailableGB)
		}
		if st.Network != nil {
			e.download.With(labels).Set(st.Network.DownloadBps)
			e.upload.With(labels).Set(st.Network.UploadBps)
		}
		if st.Containers != nil {
			running := 0
			for _, c := range st.Containers {
				if c.Running() {
					running++
				}
			}
			e.containers.With(labels).Set(float64(len(st.Containers)))
			e.containersRunning.With(labels).Set(float64(running))
		}
	}
}

// Name implements notify.Sink.
func (e *Exporter) Name() string { return "metrics" }

// Send implements notify.Sink by counting the alert.
func (e *Exporter) Send(ev notify.Event) error {
	kind := ev.Kind
	if ev.Kind == notify.KindConnectivity {
		kind += "_down"
		if ev.Recovery() {
			kind = notify.KindConnectivity + "_up"
		}
	}
	e.alerts.WithLabelValues(kind).Inc()
	return nil
}
