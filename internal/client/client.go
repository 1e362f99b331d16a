// Package client is a small synchronous SDK for the map8x32 socket protocol.
package client

import (
	"errors"
	"fmt"
	"net"

	"lukas/map8x32/internal/protocol"
)

// ErrBadRequest is returned when the server rejects a frame. ErrUnexpectedStatus
// covers status bytes outside the protocol's range, which indicate a desynced
// connection.
var (
	ErrBadRequest       = errors.New("server rejected request")
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Client issues requests over one connection, one request in flight at a
// time. Methods must not be called concurrently; open one client per worker
// instead.
type Client struct {
	conn net.Conn
}

// Dial connects to the server's unix socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", socketPath, err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Set appends value to the collection under key.
func (c *Client) Set(key uint8, value uint32) error {
	if err := c.send(protocol.Request{Op: protocol.OpSet, Key: key, Value: value}); err != nil {
		return err
	}
	status, err := protocol.ReadStatus(c.conn)
	if err != nil {
		return err
	}
	return checkStatus(status)
}

// Get returns the values stored under key in insertion order, or nil when the
// key is absent.
func (c *Client) Get(key uint8) ([]uint32, error) {
	if err := c.send(protocol.Request{Op: protocol.OpGet, Key: key}); err != nil {
		return nil, err
	}
	status, values, err := protocol.ReadValues(c.conn)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(status); err != nil {
		return nil, err
	}
	return values, nil
}

// Delete removes the collection under key and reports whether it existed.
func (c *Client) Delete(key uint8) (bool, error) {
	if err := c.send(protocol.Request{Op: protocol.OpDelete, Key: key}); err != nil {
		return false, err
	}
	status, err := protocol.ReadStatus(c.conn)
	if err != nil {
		return false, err
	}
	if err := checkStatus(status); err != nil {
		return false, err
	}
	return status == protocol.StatusOK, nil
}

// Keys returns the keys that currently hold values, in ascending order.
func (c *Client) Keys() ([]uint8, error) {
	if err := c.send(protocol.Request{Op: protocol.OpList}); err != nil {
		return nil, err
	}
	status, keys, err := protocol.ReadKeys(c.conn)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(status); err != nil {
		return nil, err
	}
	return keys, nil
}

func (c *Client) send(req protocol.Request) error {
	_, err := c.conn.Write(protocol.EncodeRequest(req))
	return err
}

func checkStatus(status byte) error {
	switch status {
	case protocol.StatusOK, protocol.StatusNotFound:
		return nil
	case protocol.StatusBadRequest:
		return ErrBadRequest
	}
	return fmt.Errorf("%w: %d", ErrUnexpectedStatus, status)
}
