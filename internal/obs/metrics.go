package obs

import (
	"sync"
	"sync/atomic"
	"time"

	"main/internal/event"
)

const maxEventKind = int(event.KindControl)

// Metrics collects lightweight counters for the engine's observability
// channel: events by kind, per-strategy stage failures, bus drops, order
// outcomes, and dispatch latency.
type Metrics struct {
	eventCounts     [maxEventKind + 1]uint64
	busDrops        uint64
	busClosed       uint64
	ordersAccepted  uint64
	ordersRejected  uint64
	dispatchLatency LatencyStats

	mu          sync.Mutex
	stageErrors map[string]uint64
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventCounts     map[event.Kind]uint64
	StageErrors     map[string]uint64
	BusDrops        uint64
	BusClosed       uint64
	OrdersAccepted  uint64
	OrdersRejected  uint64
	DispatchLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{stageErrors: make(map[string]uint64)}
}

// ObserveEvent counts a consumed event by kind.
func (m *Metrics) ObserveEvent(kind event.Kind) {
	if m == nil {
		return
	}
	idx := int(kind)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
}

// ObserveDispatch records the wall time of one full strategy dispatch.
func (m *Metrics) ObserveDispatch(d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchLatency.Observe(d)
}

// IncStageError counts a stage failure attributed to a strategy.
func (m *Metrics) IncStageError(strategy string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.stageErrors[strategy]++
	m.mu.Unlock()
}

// IncBusDrop counts a publish rejected by a full bus.
func (m *Metrics) IncBusDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.busDrops, 1)
}

// IncBusClosed counts a publish attempted after bus close.
func (m *Metrics) IncBusClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.busClosed, 1)
}

// AddOrders accumulates order submission outcomes.
func (m *Metrics) AddOrders(accepted, rejected int) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersAccepted, uint64(accepted))
	atomic.AddUint64(&m.ordersRejected, uint64(rejected))
}

// Snapshot captures the current values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	snap := Snapshot{
		EventCounts:     make(map[event.Kind]uint64),
		StageErrors:     make(map[string]uint64),
		BusDrops:        atomic.LoadUint64(&m.busDrops),
		BusClosed:       atomic.LoadUint64(&m.busClosed),
		OrdersAccepted:  atomic.LoadUint64(&m.ordersAccepted),
		OrdersRejected:  atomic.LoadUint64(&m.ordersRejected),
		DispatchLatency: m.dispatchLatency.Snapshot(),
	}
	for i := range m.eventCounts {
		if v := atomic.LoadUint64(&m.eventCounts[i]); v > 0 {
			snap.EventCounts[event.Kind(i)] = v
		}
	}
	m.mu.Lock()
	for name, v := range m.stageErrors {
		snap.StageErrors[name] = v
	}
	m.mu.Unlock()
	return snap
}

// Observe records one duration sample.
func (s *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	v := uint64(d)
	atomic.AddUint64(&s.count, 1)
	atomic.AddUint64(&s.sum, v)
	for {
		old := atomic.LoadUint64(&s.min)
		if old != 0 && old <= v {
			break
		}
		if atomic.CompareAndSwapUint64(&s.min, old, v) {
			break
		}
	}
	for {
		old := atomic.LoadUint64(&s.max)
		if old >= v {
			break
		}
		if atomic.CompareAndSwapUint64(&s.max, old, v) {
			break
		}
	}
}

// Snapshot captures the latency aggregate.
func (s *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&s.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&s.sum)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&s.min)),
		Max:   time.Duration(atomic.LoadUint64(&s.max)),
		Avg:   time.Duration(sum / count),
	}
}
