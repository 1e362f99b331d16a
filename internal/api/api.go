// Package api exposes a small HTTP endpoint for inspecting a running server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"lukas/map8x32/internal/stats"
	"lukas/map8x32/internal/store"
)

type keyInfo struct {
	Key    uint8 `json:"key"`
	Values int   `json:"values"`
}

// NewHandler wires the inspection routes onto a router. The routes only read;
// nothing here mutates the store.
func NewHandler(tracker *stats.Tracker, st *store.Store) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(tracker.Snapshot())
	})

	r.Get("/keys", func(w http.ResponseWriter, r *http.Request) {
		keys := st.Keys()
		infos := make([]keyInfo, 0, len(keys))
		for _, k := range keys {
			infos = append(infos, keyInfo{Key: k, Values: st.Len(k)})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(infos)
	})

	return r
}

// Server runs the inspection routes on their own TCP listener, separate from
// the unix socket serving the data protocol.
type Server struct {
	logger *zap.Logger
	http   *http.Server
}

func NewServer(addr string, logger *zap.Logger, tracker *stats.Tracker, st *store.Store) *Server {
	return &Server{
		logger: logger,
		http: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(tracker, st),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *Server) Start() {
	go func() {
		s.logger.Info("debug endpoint listening", zap.String("addr", s.http.Addr))
		err := s.http.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("debug endpoint failed", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
