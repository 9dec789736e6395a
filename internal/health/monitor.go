package health

import (
	"sync"
	"time"

	"github.com/magray-run/agentcore/internal/config"
)

// outcome is one recorded request/operation result, kept in a fixed-size
// ring per component so rolling stats only reflect recent behavior.
type outcome struct {
	success  bool
	duration time.Duration
	errMsg   string
}

// componentTracker holds one component's ring buffer of recent outcomes
// plus an optional forced-down flag set by MarkDown (the Fatal-error path:
// "Fatal → DI core stops + Down health").
type componentTracker struct {
	mu        sync.RWMutex
	ring      []outcome
	head      int
	size      int
	total     uint64
	forceDown bool
}

func newComponentTracker(capacity int) *componentTracker {
	if capacity <= 0 {
		capacity = 100
	}
	return &componentTracker{ring: make([]outcome, capacity)}
}

func (t *componentTracker) record(o outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ring[t.head] = o
	t.head = (t.head + 1) % len(t.ring)
	if t.size < len(t.ring) {
		t.size++
	}
	t.total++
}

func (t *componentTracker) markDown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.forceDown = true
}

func (t *componentTracker) report(component Component) ComponentReport {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rep := ComponentReport{Component: component, TotalRequests: t.total}
	if t.size == 0 {
		rep.Status = Healthy
		return rep
	}

	var successes int
	var totalDuration time.Duration
	lastError := ""
	for i := 0; i < t.size; i++ {
		o := t.ring[i]
		if o.success {
			successes++
		} else if o.errMsg != "" {
			lastError = o.errMsg
		}
		totalDuration += o.duration
	}
	rep.SuccessRate = float64(successes) / float64(t.size)
	rep.AvgResponseTime = totalDuration / time.Duration(t.size)
	rep.LastError = lastError
	rep.Status = deriveStatus(rep.SuccessRate, t.forceDown)
	return rep
}

// deriveStatus maps a rolling success rate to a coarse status. forceDown
// always wins: it represents a Fatal error the component cannot recover
// from without restart.
func deriveStatus(successRate float64, forceDown bool) Status {
	if forceDown {
		return Down
	}
	switch {
	case successRate >= 0.9:
		return Healthy
	case successRate >= 0.5:
		return Degraded
	default:
		return Unhealthy
	}
}

// Monitor tracks rolling per-component stats and aggregates them into a
// system-level report. It is the in-process half of the health core; the
// Prometheus side lives in metrics.go.
type Monitor struct {
	mu         sync.RWMutex
	started    time.Time
	trackers   map[Component]*componentTracker
	windowSize int
}

// NewMonitor creates a Monitor with one rolling-stats tracker per known
// component, each holding cfg.RollingWindowSize recent outcomes.
func NewMonitor(cfg config.HealthConfig) *Monitor {
	m := &Monitor{
		started:    time.Now().UTC(),
		trackers:   make(map[Component]*componentTracker),
		windowSize: cfg.RollingWindowSize,
	}
	for _, c := range []Component{
		ComponentVectorIndex, ComponentCache, ComponentEmbedding,
		ComponentReranker, ComponentPromotion, ComponentStore,
	} {
		m.trackers[c] = newComponentTracker(cfg.RollingWindowSize)
	}
	return m
}

func (m *Monitor) tracker(c Component) *componentTracker {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trackers[c]
	if !ok {
		t = newComponentTracker(m.windowSize)
		m.trackers[c] = t
	}
	return t
}

// RecordSuccess records a successful operation and its duration for c.
func (m *Monitor) RecordSuccess(c Component, d time.Duration) {
	m.tracker(c).record(outcome{success: true, duration: d})
}

// RecordFailure records a failed operation, its duration, and the error
// that caused it for c.
func (m *Monitor) RecordFailure(c Component, d time.Duration, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	m.tracker(c).record(outcome{success: false, duration: d, errMsg: msg})
}

// MarkDown forces c's status to Down regardless of its rolling success
// rate, until the process restarts. Used for the Fatal-error path.
func (m *Monitor) MarkDown(c Component) {
	m.tracker(c).markDown()
}

// Report returns c's current rolling-stats snapshot.
func (m *Monitor) Report(c Component) ComponentReport {
	return m.tracker(c).report(c)
}

// SystemReport aggregates every tracked component's report plus process
// uptime and a count of components currently below Healthy.
func (m *Monitor) SystemReport() SystemReport {
	m.mu.RLock()
	components := make([]Component, 0, len(m.trackers))
	for c := range m.trackers {
		components = append(components, c)
	}
	m.mu.RUnlock()

	reports := make(map[Component]ComponentReport, len(components))
	alerts := 0
	for _, c := range components {
		rep := m.Report(c)
		reports[c] = rep
		if rep.Status != Healthy {
			alerts++
		}
	}
	return SystemReport{
		Uptime:       time.Since(m.started),
		ActiveAlerts: alerts,
		Components:  reports,
	}
}
