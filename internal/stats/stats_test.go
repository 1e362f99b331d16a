package stats

import (
	"sync"
	"testing"
	"time"

	"lukas/map8x32/internal/protocol"
)

func TestSnapshotCounts(t *testing.T) {
	tr := NewTracker()
	tr.RecordOp(protocol.OpSet, 2*time.Millisecond)
	tr.RecordOp(protocol.OpSet, 4*time.Millisecond)
	tr.RecordOp(protocol.OpGet, 6*time.Millisecond)
	tr.RecordOp(protocol.OpDelete, time.Millisecond)
	tr.RecordOp(protocol.OpList, time.Millisecond)
	tr.RecordBadRequest()
	tr.ConnOpened()
	tr.ConnOpened()
	tr.ConnClosed()
	tr.ConnRejected()

	snap := tr.Snapshot()
	if snap.TotalRequests != 5 {
		t.Fatalf("TotalRequests = %d, want 5", snap.TotalRequests)
	}
	if snap.SetOps != 2 || snap.GetOps != 1 || snap.DeleteOps != 1 || snap.ListOps != 1 {
		t.Fatalf("per-op counts = %d/%d/%d/%d, want 2/1/1/1",
			snap.SetOps, snap.GetOps, snap.DeleteOps, snap.ListOps)
	}
	if snap.BadRequests != 1 {
		t.Fatalf("BadRequests = %d, want 1", snap.BadRequests)
	}
	if snap.ConnectionsOpened != 2 || snap.ActiveConnections != 1 || snap.ConnectionsRejected != 1 {
		t.Fatalf("connection counts = %d/%d/%d, want 2/1/1",
			snap.ConnectionsOpened, snap.ActiveConnections, snap.ConnectionsRejected)
	}
	if snap.AverageLatency == 0 {
		t.Fatal("AverageLatency = 0, want > 0")
	}
	if snap.P95Latency < snap.AverageLatency {
		t.Fatalf("P95Latency %v < AverageLatency %v", snap.P95Latency, snap.AverageLatency)
	}
}

func TestNilTrackerIsSafe(t *testing.T) {
	var tr *Tracker
	tr.RecordOp(protocol.OpSet, time.Millisecond)
	tr.RecordBadRequest()
	tr.ConnOpened()
	tr.ConnClosed()
	tr.ConnRejected()

	if snap := tr.Snapshot(); snap != (Snapshot{}) {
		t.Fatalf("nil tracker snapshot = %+v, want zero", snap)
	}
}

func TestConcurrentRecording(t *testing.T) {
	tr := NewTracker()
	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				tr.RecordOp(protocol.OpGet, time.Microsecond)
			}
		}()
	}
	wg.Wait()

	if got := tr.Snapshot().GetOps; got != workers*perWorker {
		t.Fatalf("GetOps = %d, want %d", got, workers*perWorker)
	}
}
