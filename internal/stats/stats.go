// Package stats collects request and connection counters for a running
// server. All methods are safe for concurrent use and safe on a nil tracker,
// so callers can leave collection unwired.
package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"lukas/map8x32/internal/protocol"
)

const defaultMaxSamples = 1000

// Tracker accumulates per-op counters, connection counters and a bounded
// sample of request latencies.
type Tracker struct {
	started time.Time

	setOps      atomic.Uint64
	getOps      atomic.Uint64
	deleteOps   atomic.Uint64
	listOps     atomic.Uint64
	badRequests atomic.Uint64

	totalLatencyNs atomic.Uint64

	connsOpened   atomic.Uint64
	connsRejected atomic.Uint64
	activeConns   atomic.Int64

	mu         sync.RWMutex
	latencies  []time.Duration
	maxSamples int
}

func NewTracker() *Tracker {
	return &Tracker{
		started:    time.Now(),
		latencies:  make([]time.Duration, 0, defaultMaxSamples),
		maxSamples: defaultMaxSamples,
	}
}

// RecordOp records one completed request for the given op code.
func (t *Tracker) RecordOp(op byte, latency time.Duration) {
	if t == nil {
		return
	}
	switch op {
	case protocol.OpSet:
		t.setOps.Add(1)
	case protocol.OpGet:
		t.getOps.Add(1)
	case protocol.OpDelete:
		t.deleteOps.Add(1)
	case protocol.OpList:
		t.listOps.Add(1)
	}
	t.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	t.mu.Lock()
	if len(t.latencies) < t.maxSamples {
		t.latencies = append(t.latencies, latency)
	}
	t.mu.Unlock()
}

// RecordBadRequest records one rejected frame.
func (t *Tracker) RecordBadRequest() {
	if t == nil {
		return
	}
	t.badRequests.Add(1)
}

// ConnOpened records an accepted connection.
func (t *Tracker) ConnOpened() {
	if t == nil {
		return
	}
	t.connsOpened.Add(1)
	t.activeConns.Add(1)
}

// ConnClosed records a finished connection.
func (t *Tracker) ConnClosed() {
	if t == nil {
		return
	}
	t.activeConns.Add(-1)
}

// ConnRejected records a connection turned away at the limit.
func (t *Tracker) ConnRejected() {
	if t == nil {
		return
	}
	t.connsRejected.Add(1)
}

func (t *Tracker) totalOps() uint64 {
	return t.setOps.Load() + t.getOps.Load() + t.deleteOps.Load() + t.listOps.Load()
}

func (t *Tracker) averageLatency() time.Duration {
	total := t.totalOps()
	if total == 0 {
		return 0
	}
	return time.Duration(t.totalLatencyNs.Load() / total)
}

func (t *Tracker) p95Latency() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(t.latencies))
	copy(sorted, t.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := int(float64(len(sorted)) * 0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Snapshot is a point-in-time copy of the tracker's counters.
type Snapshot struct {
	TotalRequests       uint64        `json:"total_requests"`
	SetOps              uint64        `json:"set_ops"`
	GetOps              uint64        `json:"get_ops"`
	DeleteOps           uint64        `json:"delete_ops"`
	ListOps             uint64        `json:"list_ops"`
	BadRequests         uint64        `json:"bad_requests"`
	ConnectionsOpened   uint64        `json:"connections_opened"`
	ConnectionsRejected uint64        `json:"connections_rejected"`
	ActiveConnections   int64         `json:"active_connections"`
	AverageLatency      time.Duration `json:"average_latency_ns"`
	P95Latency          time.Duration `json:"p95_latency_ns"`
	Uptime              time.Duration `json:"uptime_ns"`
}

// Snapshot returns the current counters. A nil tracker yields a zero snapshot.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	return Snapshot{
		TotalRequests:       t.totalOps(),
		SetOps:              t.setOps.Load(),
		GetOps:              t.getOps.Load(),
		DeleteOps:           t.deleteOps.Load(),
		ListOps:             t.listOps.Load(),
		BadRequests:         t.badRequests.Load(),
		ConnectionsOpened:   t.connsOpened.Load(),
		ConnectionsRejected: t.connsRejected.Load(),
		ActiveConnections:   t.activeConns.Load(),
		AverageLatency:      t.averageLatency(),
		P95Latency:          t.p95Latency(),
		Uptime:              time.Since(t.started),
	}
}
