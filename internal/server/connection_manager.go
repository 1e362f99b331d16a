package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"lukas/map8x32/internal/stats"
	"lukas/map8x32/internal/store"
)

type ConnectionManager interface {
	Start(listener net.Listener)
	Stop()
	Shutdown(ctx context.Context) error
}

// DefaultConnectionManager accepts connections and hands each one to its own
// goroutine. A maxConnections of zero means no limit.
type DefaultConnectionManager struct {
	store          *store.Store
	logger         *zap.Logger
	tracker        *stats.Tracker
	listener       net.Listener
	listenerClosed atomic.Bool
	mutex          sync.Mutex
	activeConn     map[string]*Connection
	maxConnections int
	connConfig     ConnectionConfig
	done           chan struct{}
	connWg         sync.WaitGroup
}

func NewDefaultConnectionManager(store *store.Store, logger *zap.Logger, maxConnections int, connConfig ConnectionConfig, tracker *stats.Tracker) *DefaultConnectionManager {
	return &DefaultConnectionManager{
		store:          store,
		logger:         logger,
		tracker:        tracker,
		listener:       nil,
		activeConn:     make(map[string]*Connection),
		maxConnections: maxConnections,
		connConfig:     connConfig,
		done:           make(chan struct{}),
	}
}

func (m *DefaultConnectionManager) Stop() {
	m.closeListener()
}

func (m *DefaultConnectionManager) Shutdown(ctx context.Context) error {
	m.Stop()
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *DefaultConnectionManager) Start(listener net.Listener) {
	m.listener = listener
	go m.acceptConnections()
}

func (m *DefaultConnectionManager) closeListener() {
	if m.listenerClosed.CompareAndSwap(false, true) {
		err := m.listener.Close()
		if err != nil {
			m.logger.Error("error closing listener", zap.Error(err))
		}
	}
}

func (m *DefaultConnectionManager) acceptConnections() {
	for {
		conn, err := m.listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			m.logger.Debug("listener closed")
			break
		} else if err != nil {
			m.logger.Error("error accepting connection", zap.Error(err))
			continue
		}
		m.addConnection(conn)
	}
	m.closeListener()
	m.mutex.Lock()
	for _, conn := range m.activeConn {
		conn.Stop()
	}
	m.mutex.Unlock()
	m.connWg.Wait()
	close(m.done)
}

func (m *DefaultConnectionManager) addConnection(conn net.Conn) bool {
	newConn := NewConnection(conn, m.store, m.logger, m.connConfig, m.tracker, func(connection *Connection) {
		m.removeConnection(connection)
	})
	m.connWg.Add(1)
	m.mutex.Lock()
	if m.maxConnections > 0 && len(m.activeConn) >= m.maxConnections {
		m.mutex.Unlock()
		m.logger.Debug("maximum number of connections exceeded", zap.Int("maxConnections", m.maxConnections))
		m.tracker.ConnRejected()
		m.connWg.Done()
		newConn.Stop()
		return false
	}
	m.logger.Debug("accepting new connection", zap.String("connId", newConn.ID()))
	m.tracker.ConnOpened()
	newConn.Handle()
	m.activeConn[newConn.ID()] = newConn
	m.mutex.Unlock()
	return true
}

func (m *DefaultConnectionManager) removeConnection(connection *Connection) {
	m.logger.Debug("removing connection", zap.String("connId", connection.ID()))
	m.mutex.Lock()
	delete(m.activeConn, connection.ID())
	m.mutex.Unlock()
	m.tracker.ConnClosed()
	m.connWg.Done()
}
