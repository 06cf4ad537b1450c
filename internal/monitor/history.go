package monitor

import "sync"

// DefaultHistorySize is the number of samples kept per metric when no size
// is configured.
const DefaultHistorySize = 60

// Series is a chronological (oldest first) view of one target's history.
type Series struct {
	CPU      []float64 `json:"cpu"`
	Memory   []float64 `json:"memory"`
	Disk     []float64 `json:"disk"`
	Download []float64 `json:"download_bps"`
	Upload   []float64 `json:"upload_bps"`
}

// History keeps per-target ring buffers of usage percentages and throughput.
// It is safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	size    int
	targets map[string]*targetHistory
}

type targetHistory struct {
	cpu      *ringBuffer
	memory   *ringBuffer
	disk     *ringBuffer
	download *ringBuffer
	upload   *ringBuffer
}

// ringBuffer is a fixed-size circular buffer for float64 values.
type ringBuffer struct {
	data  []float64
	head  int
	count int
	size  int
}

// NewHistory creates a tracker holding size samples per metric.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		size:    size,
		targets: make(map[string]*targetHistory),
	}
}

// Size returns the per-metric capacity.
func (h *History) Size() int {
	return h.size
}

// Push records the metrics of a state. Disconnected states add nothing, and
// each metric is only appended when it is known.
func (h *History) Push(st TargetState) {
	if h == nil || !st.Connected {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	hist := h.getOrCreate(st.Target.ID)
	if st.CPUPercent != nil {
		hist.cpu.push(*st.CPUPercent)
	}
	if st.Memory != nil {
		hist.memory.push(st.Memory.UsedPercent)
	}
	if st.Disk != nil {
		hist.disk.push(st.Disk.UsedPercent)
	}
	if st.Network != nil {
		hist.download.push(st.Network.DownloadBps)
		hist.upload.push(st.Network.UploadBps)
	}
}

// Get returns up to count most recent samples per metric. The bool is false
// for targets with no history.
func (h *History) Get(targetID string, count int) (Series, bool) {
	if h == nil {
		return Series{}, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	hist, ok := h.targets[targetID]
	if !ok {
		return Series{}, false
	}
	return Series{
		CPU:      hist.cpu.getLast(count),
		Memory:   hist.memory.getLast(count),
		Disk:     hist.disk.getLast(count),
		Download: hist.download.getLast(count),
		Upload:   hist.upload.getLast(count),
	}, true
}

// CPU returns the last count CPU percentages of a target.
func (h *History) CPU(targetID string, count int) []float64 {
	s, _ := h.Get(targetID, count)
	return s.CPU
}

// Count returns the number of CPU samples stored for a target.
func (h *History) Count(targetID string) int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	hist, ok := h.targets[targetID]
	if !ok {
		return 0
	}
	return hist.cpu.count
}

// Clear removes the history of one target.
func (h *History) Clear(targetID string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.targets, targetID)
}

// ClearAll removes all history.
func (h *History) ClearAll() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.targets = make(map[string]*targetHistory)
}

// Must be called with h.mu held.
func (h *History) getOrCreate(id string) *targetHistory {
	hist, ok := h.targets[id]
	if !ok {
		hist = &targetHistory{
			cpu:      newRingBuffer(h.size),
			memory:   newRingBuffer(h.size),
			disk:     newRingBuffer(h.size),
			download: newRingBuffer(h.size),
			upload:   newRingBuffer(h.size),
		}
		h.targets[id] = hist
	}
	return hist
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		data: make([]float64, size),
		size: size,
	}
}

func (r *ringBuffer) push(value float64) {
	r.data[r.head] = value
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// getLast returns the last count values, oldest first.
func (r *ringBuffer) getLast(count int) []float64 {
	if count <= 0 || r.count == 0 {
		return nil
	}
	if count > r.count {
		count = r.count
	}

	out := make([]float64, count)
	// head is the next write position, so the newest value sits at head-1.
	start := (r.head - count + r.size) % r.size
	for i := 0; i < count; i++ {
		out[i] = r.data[(start+i)%r.size]
	}
	return out
}
