package monitor

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/probe"
)

// Options configures a Monitor. Every field is optional.
type Options struct {
	Policy    IntervalPolicy
	Evaluator *Evaluator
	History   *History

	// Pinger, when set, measures local latency alongside every check.
	Pinger Pinger

	// OnCycle runs once per completed cycle with a snapshot of all targets.
	OnCycle func([]TargetState)

	// OnRemove runs after RemoveTarget dropped a target.
	OnRemove func(config.Target)

	// CheckTimeout bounds a single target check. Zero means no bound
	// beyond the transport's own timeouts.
	CheckTimeout time.Duration

	Logger logger.Logger
	Now    func() time.Time
}

type slot struct {
	target config.Target
	epoch  uint64
	state  TargetState
}

type job struct {
	slot   int
	epoch  uint64
	target config.Target
}

type result struct {
	slot   int
	id     string
	epoch  uint64
	at     time.Time
	sample *probe.Sample
	err    error

	pinged  bool
	latency *time.Duration
}

// Monitor polls a set of targets and keeps their merged state.
type Monitor struct {
	checker Checker
	opts    Options
	log     logger.Logger

	mu        sync.Mutex
	slots     []*slot
	nextEpoch uint64
	inFlight  map[uint64]struct{}
	gen       uint64
	cancel    context.CancelFunc
	running   bool

	cycleMu sync.Mutex
	retune  chan struct{}
	wg      sync.WaitGroup
}

// New creates a Monitor that checks targets with checker.
func New(checker Checker, opts Options) *Monitor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Monitor{
		checker:  checker,
		opts:     opts,
		log:      logger.With(opts.Logger, "[monitor]"),
		inFlight: make(map[uint64]struct{}),
		retune:   make(chan struct{}, 1),
	}
}

// SetTargets replaces the monitored set without starting the loop. State is
// kept for IDs present in both sets.
func (m *Monitor) SetTargets(targets []config.Target) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setTargetsLocked(targets)
}

func (m *Monitor) setTargetsLocked(targets []config.Target) {
	existing := make(map[string]*slot, len(m.slots))
	for _, s := range m.slots {
		existing[s.target.ID] = s
	}

	next := make([]*slot, 0, len(targets))
	for _, t := range targets {
		if s, ok := existing[t.ID]; ok {
			delete(existing, t.ID)
			if sameSession(s.target, t) {
				s.target = t
				s.state.Target = t
				next = append(next, s)
				continue
			}
			// A new address or credential is a different machine or login:
			// its counters must not be diffed against the old ones, and a
			// result still in flight for the old slot is discarded.
			m.forgetLocked(t.ID)
		}
		m.nextEpoch++
		next = append(next, &slot{
			target: t,
			epoch:  m.nextEpoch,
			state:  TargetState{Target: t},
		})
	}
	for id := range existing {
		m.forgetLocked(id)
	}
	m.slots = next
}

// sameSession reports whether a and b reach the same login on the same host.
func sameSession(a, b config.Target) bool {
	return a.Host == b.Host &&
		a.EffectivePort() == b.EffectivePort() &&
		a.User == b.User &&
		a.KeyEnc == b.KeyEnc &&
		a.PasswordEnc == b.PasswordEnc
}

// forgetLocked drops auxiliary per-target state. Must be called with m.mu held.
func (m *Monitor) forgetLocked(id string) {
	m.opts.Evaluator.Forget(id)
	m.opts.History.Clear(id)
	if f, ok := m.checker.(forgetter); ok {
		f.Forget(id)
	}
}

// Start replaces the target set and starts the polling loop. The first cycle
// runs immediately. Calling Start on a running monitor only swaps targets.
func (m *Monitor) Start(ctx context.Context, targets []config.Target) {
	m.mu.Lock()
	m.setTargetsLocked(targets)
	if m.running {
		m.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	gen := m.gen
	m.wg.Add(1)
	m.mu.Unlock()

	m.log.Info("Monitoring %d target(s) every %s", len(targets), m.Interval())
	go m.loop(loopCtx, gen)
}

// Stop cancels the loop and clears all state. Checks still running are not
// cancelled; they finish in the background and their results are discarded.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.running = false
	m.gen++
	m.slots = nil
	m.inFlight = make(map[uint64]struct{})
	m.mu.Unlock()

	m.wg.Wait()
	m.opts.Evaluator.Reset()
	m.opts.History.ClearAll()
}

// Running reports whether the loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// SetInterval changes the base interval. The running loop picks it up
// immediately; target state is untouched.
func (m *Monitor) SetInterval(d time.Duration) {
	m.mu.Lock()
	m.opts.Policy.Base = d
	m.mu.Unlock()

	select {
	case m.retune <- struct{}{}:
	default:
	}
}

// Interval returns the wait before the next cycle, including the power
// adjustment.
func (m *Monitor) Interval() time.Duration {
	m.mu.Lock()
	policy := m.opts.Policy
	m.mu.Unlock()
	return policy.Effective()
}

func (m *Monitor) loop(ctx context.Context, gen uint64) {
	defer m.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.retune:
			timer.Reset(m.Interval())
		case <-timer.C:
			m.dispatch(ctx, gen)
			timer.Reset(m.Interval())
		}
	}
}

// RunOnce runs one cycle and waits for every dispatched check to merge.
func (m *Monitor) RunOnce(ctx context.Context) []TargetState {
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	<-m.dispatch(ctx, gen)
	return m.Snapshot()
}

// dispatch starts a check for every enabled target not already in flight.
// The returned channel closes once the cycle completed.
func (m *Monitor) dispatch(ctx context.Context, gen uint64) <-chan struct{} {
	m.mu.Lock()
	var jobs []job
	if m.gen == gen {
		for i, s := range m.slots {
			if !s.target.IsEnabled() {
				continue
			}
			if _, busy := m.inFlight[s.epoch]; busy {
				m.log.Debug("%s: previous check still running, skipping", s.target.ID)
				continue
			}
			m.inFlight[s.epoch] = struct{}{}
			jobs = append(jobs, job{slot: i, epoch: s.epoch, target: s.target})
		}
	}
	m.mu.Unlock()

	// Cancelling the loop must not kill running ssh processes. A hung
	// session is bounded by the transport timeouts and CheckTimeout.
	checkCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			m.merge(m.check(checkCtx, j))
		}(j)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		m.finishCycle(gen)
		close(done)
	}()
	return done
}

func (m *Monitor) check(ctx context.Context, j job) result {
	if m.opts.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.CheckTimeout)
		defer cancel()
	}

	res := result{slot: j.slot, id: j.target.ID, epoch: j.epoch}

	var pingWG sync.WaitGroup
	if m.opts.Pinger != nil {
		res.pinged = true
		pingWG.Add(1)
		go func() {
			defer pingWG.Done()
			if rtt, ok := m.opts.Pinger.MeasureLatency(ctx, j.target.Host); ok {
				res.latency = &rtt
			}
		}()
	}

	res.sample, res.err = m.checker.Check(ctx, j.target)
	if res.err == nil && res.sample == nil {
		res.err = errors.New(errors.ErrResponse, "Check returned no data", "")
	}
	pingWG.Wait()
	res.at = m.opts.Now()
	return res
}

// merge is the only writer of target state.
func (m *Monitor) merge(res result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.inFlight, res.epoch)

	s := m.slotForLocked(res)
	if s == nil {
		m.log.Debug("%s: discarding result, target no longer monitored", res.id)
		return
	}

	if res.err != nil {
		s.state.applyFailure(errors.Summarize(res.err), errors.CodeOf(res.err), res.at)
		if f, ok := m.checker.(forgetter); ok {
			f.Forget(res.id)
		}
		m.log.Debug("%s: check failed: %v", res.id, res.err)
	} else {
		s.state.applySuccess(res.sample, res.at)
	}
	if res.pinged {
		s.state.Latency = res.latency
	}

	st := s.state.clone()
	m.opts.History.Push(st)
	m.opts.Evaluator.Evaluate(st)
}

// slotForLocked finds the slot a result belongs to. Slots shift when a
// target is removed, so the recorded index is only a hint; the epoch decides.
func (m *Monitor) slotForLocked(res result) *slot {
	if res.slot >= 0 && res.slot < len(m.slots) {
		if s := m.slots[res.slot]; s.target.ID == res.id && s.epoch == res.epoch {
			return s
		}
	}
	for _, s := range m.slots {
		if s.target.ID == res.id && s.epoch == res.epoch {
			return s
		}
	}
	return nil
}

func (m *Monitor) finishCycle(gen uint64) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	states := m.snapshotLocked()
	m.mu.Unlock()

	if m.opts.OnCycle != nil {
		m.opts.OnCycle(states)
	}
}

// RemoveTarget drops a target with its state, alert state and history, then
// runs the removal hook. It reports false for unknown IDs.
func (m *Monitor) RemoveTarget(id string) bool {
	m.mu.Lock()
	idx := slices.IndexFunc(m.slots, func(s *slot) bool { return s.target.ID == id })
	if idx < 0 {
		m.mu.Unlock()
		return false
	}
	removed := m.slots[idx].target
	m.slots = slices.Delete(m.slots, idx, idx+1)
	m.forgetLocked(id)
	m.mu.Unlock()

	m.log.Info("Removed target %s", id)
	if m.opts.OnRemove != nil {
		m.opts.OnRemove(removed)
	}
	return true
}

// Snapshot returns copies of all target states in target order.
func (m *Monitor) Snapshot() []TargetState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Monitor) snapshotLocked() []TargetState {
	out := make([]TargetState, len(m.slots))
	for i, s := range m.slots {
		out[i] = s.state.clone()
	}
	return out
}

// State returns a copy of one target's state.
func (m *Monitor) State(id string) (TargetState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if s.target.ID == id {
			return s.state.clone(), true
		}
	}
	return TargetState{}, false
}

// History returns the history store, which may be nil.
func (m *Monitor) History() *History {
	return m.opts.History
}
