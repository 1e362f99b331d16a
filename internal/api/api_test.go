package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lukas/map8x32/internal/protocol"
	"lukas/map8x32/internal/stats"
	"lukas/map8x32/internal/store"
)

func TestHealth(t *testing.T) {
	handler := NewHandler(stats.NewTracker(), store.NewStore())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Body.String(); got != `{"status":"ok"}` {
		t.Fatalf("body = %q", got)
	}
}

func TestStatsSnapshot(t *testing.T) {
	tracker := stats.NewTracker()
	tracker.RecordOp(protocol.OpSet, time.Millisecond)
	tracker.RecordOp(protocol.OpGet, time.Millisecond)
	tracker.RecordBadRequest()

	handler := NewHandler(tracker, store.NewStore())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var snap stats.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.TotalRequests != 2 || snap.SetOps != 1 || snap.GetOps != 1 || snap.BadRequests != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestKeysListing(t *testing.T) {
	st := store.NewStore()
	st.Set(42, 1337)
	st.Set(42, 7)
	st.Set(3, 1)

	handler := NewHandler(stats.NewTracker(), st)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/keys", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var infos []struct {
		Key    uint8 `json:"key"`
		Values int   `json:"values"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d keys, want 2", len(infos))
	}
	if infos[0].Key != 3 || infos[0].Values != 1 {
		t.Fatalf("infos[0] = %+v, want key 3 with 1 value", infos[0])
	}
	if infos[1].Key != 42 || infos[1].Values != 2 {
		t.Fatalf("infos[1] = %+v, want key 42 with 2 values", infos[1])
	}
}
