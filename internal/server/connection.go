package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lukas/map8x32/internal/protocol"
	"lukas/map8x32/internal/stats"
	"lukas/map8x32/internal/store"
)

// ConnectionConfig carries per-connection I/O limits. Zero timeouts disable
// deadlines, which is the default for local sockets.
type ConnectionConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type ConnectionClosedCb func(*Connection)

// Connection serves one client. Requests are handled strictly in arrival
// order: the next frame is not read until the previous response has been
// written.
type Connection struct {
	id         string
	conn       net.Conn
	store      *store.Store
	logger     *zap.Logger
	config     ConnectionConfig
	tracker    *stats.Tracker
	connClosed atomic.Bool
	done       chan struct{}
	closedCb   ConnectionClosedCb
}

func NewConnection(conn net.Conn, store *store.Store, logger *zap.Logger, config ConnectionConfig, tracker *stats.Tracker, closedCb ConnectionClosedCb) *Connection {
	return &Connection{
		id:       uuid.NewString(),
		conn:     conn,
		store:    store,
		logger:   logger,
		config:   config,
		tracker:  tracker,
		done:     make(chan struct{}),
		closedCb: closedCb,
	}
}

func (conn *Connection) ID() string {
	return conn.id
}

func (conn *Connection) Handle() {
	go conn.serve()
}

func (conn *Connection) Stop() {
	conn.closeConnection()
}

func (conn *Connection) Shutdown(ctx context.Context) error {
	conn.Stop()
	select {
	case <-conn.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (conn *Connection) closeConnection() {
	if conn.connClosed.CompareAndSwap(false, true) {
		err := conn.conn.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			conn.logger.Error("error closing connection", zap.String("connId", conn.id), zap.Error(err))
		}
	}
}

func (conn *Connection) serve() {
	conn.logger.Debug("serving connection", zap.String("connId", conn.id))
	frame := make([]byte, protocol.RequestSize)
	for {
		if conn.config.ReadTimeout > 0 {
			err := conn.conn.SetReadDeadline(time.Now().Add(conn.config.ReadTimeout))
			if err != nil {
				conn.logger.Debug("error setting read deadline", zap.String("connId", conn.id), zap.Error(err))
				break
			}
		}
		_, err := io.ReadFull(conn.conn, frame)
		if errors.Is(err, io.EOF) {
			conn.logger.Debug("received EOF", zap.String("connId", conn.id))
			break
		} else if err != nil {
			conn.logger.Debug("error reading frame", zap.String("connId", conn.id), zap.Error(err))
			break
		}
		response := conn.handleFrame(frame)
		if conn.config.WriteTimeout > 0 {
			err := conn.conn.SetWriteDeadline(time.Now().Add(conn.config.WriteTimeout))
			if err != nil {
				conn.logger.Debug("error setting write deadline", zap.String("connId", conn.id), zap.Error(err))
				break
			}
		}
		if _, err := conn.conn.Write(response); err != nil {
			conn.logger.Debug("error writing response", zap.String("connId", conn.id), zap.Error(err))
			break
		}
	}
	conn.closeConnection()
	conn.logger.Debug("connection closed", zap.String("connId", conn.id))
	close(conn.done)
	if conn.closedCb != nil {
		conn.closedCb(conn)
	}
}

// handleFrame decodes one request and applies it to the store. Malformed
// frames yield BAD_REQUEST and leave the connection open.
func (conn *Connection) handleFrame(frame []byte) []byte {
	start := time.Now()
	req, err := protocol.DecodeRequest(frame)
	if err != nil {
		conn.logger.Debug("rejecting request", zap.String("connId", conn.id), zap.Error(err))
		conn.tracker.RecordBadRequest()
		return protocol.EncodeStatus(protocol.StatusBadRequest)
	}
	var response []byte
	switch req.Op {
	case protocol.OpSet:
		conn.store.Set(req.Key, req.Value)
		response = protocol.EncodeStatus(protocol.StatusOK)
	case protocol.OpGet:
		response = protocol.EncodeValues(conn.store.Get(req.Key))
	case protocol.OpDelete:
		if conn.store.Delete(req.Key) {
			response = protocol.EncodeStatus(protocol.StatusOK)
		} else {
			response = protocol.EncodeStatus(protocol.StatusNotFound)
		}
	case protocol.OpList:
		response = protocol.EncodeKeys(conn.store.Keys())
	}
	conn.tracker.RecordOp(req.Op, time.Since(start))
	return response
}
