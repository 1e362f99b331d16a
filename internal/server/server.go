package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"

	"go.uber.org/zap"

	"lukas/map8x32/internal/stats"
	"lukas/map8x32/internal/store"
)

type ServerConfig struct {
	SocketPath     string
	MaxConnections int
}

// Server owns the store and the unix socket listener. One server maps the
// whole 256-key space; all connections share it.
type Server struct {
	store             *store.Store
	logger            *zap.Logger
	tracker           *stats.Tracker
	connectionManager ConnectionManager
	serverConfig      ServerConfig
}

func NewServer(logger *zap.Logger, serverConfig ServerConfig, connConfig ConnectionConfig, tracker *stats.Tracker) *Server {
	store := store.NewStore()
	return &Server{
		store:             store,
		logger:            logger,
		tracker:           tracker,
		connectionManager: NewDefaultConnectionManager(store, logger, serverConfig.MaxConnections, connConfig, tracker),
		serverConfig:      serverConfig,
	}
}

// Store exposes the underlying key space, mainly for inspection endpoints.
func (s *Server) Store() *store.Store {
	return s.store
}

// Start binds the unix socket and begins accepting connections. A socket file
// left behind by a previous run is removed before binding.
func (s *Server) Start() error {
	if err := removeStaleSocket(s.serverConfig.SocketPath); err != nil {
		return err
	}
	listener, err := net.Listen("unix", s.serverConfig.SocketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.serverConfig.SocketPath, err)
	}
	s.logger.Info("listening", zap.String("socket", s.serverConfig.SocketPath))
	s.connectionManager.Start(listener)
	return nil
}

// Shutdown stops accepting, closes every active connection and waits for
// their goroutines to finish, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.connectionManager.Shutdown(ctx)
	if err != nil {
		s.logger.Warn("error shutting down connection manager", zap.Error(err))
		return err
	}
	return nil
}

func removeStaleSocket(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return nil
}
