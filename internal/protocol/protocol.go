// Package protocol implements the fixed-size binary wire format: a 6-byte
// request frame [op:u8][key:u8][value:u32 LE] and the per-op response
// encodings. Multi-byte fields are little-endian throughout.
package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// RequestSize is the exact length of every request frame.
const RequestSize = 6

// Op codes carried in the first byte of a request frame.
const (
	OpSet    byte = 1
	OpGet    byte = 2
	OpDelete byte = 3
	OpList   byte = 4
)

// Status codes carried in the first byte of every response.
const (
	StatusNotFound   byte = 0
	StatusOK         byte = 1
	StatusBadRequest byte = 2
)

var (
	ErrFrameSize = errors.New("request frame must be exactly 6 bytes")
	ErrUnknownOp = errors.New("unknown op code")
)

// Request is one decoded request frame. Key is ignored for LIST and Value is
// ignored for everything but SET.
type Request struct {
	Op    byte
	Key   uint8
	Value uint32
}

// DecodeRequest parses a complete request frame. The frame is either accepted
// whole or rejected; nothing is partially consumed.
func DecodeRequest(frame []byte) (Request, error) {
	if len(frame) != RequestSize {
		return Request{}, ErrFrameSize
	}
	req := Request{
		Op:    frame[0],
		Key:   frame[1],
		Value: binary.LittleEndian.Uint32(frame[2:6]),
	}
	switch req.Op {
	case OpSet, OpGet, OpDelete, OpList:
		return req, nil
	}
	return Request{}, ErrUnknownOp
}

// EncodeRequest serializes a request frame for the client side.
func EncodeRequest(req Request) []byte {
	frame := make([]byte, RequestSize)
	frame[0] = req.Op
	frame[1] = req.Key
	binary.LittleEndian.PutUint32(frame[2:6], req.Value)
	return frame
}

// EncodeStatus serializes a status-only response (SET, DELETE, rejected frames).
func EncodeStatus(status byte) []byte {
	return []byte{status}
}

// EncodeValues serializes a GET response: status, value count, then the values
// in insertion order. An empty snapshot means the key is absent and encodes as
// NOT_FOUND with a zero count.
func EncodeValues(values []uint32) []byte {
	if len(values) == 0 {
		return []byte{StatusNotFound, 0, 0, 0, 0}
	}
	resp := make([]byte, 5+4*len(values))
	resp[0] = StatusOK
	binary.LittleEndian.PutUint32(resp[1:5], uint32(len(values)))
	for i, v := range values {
		binary.LittleEndian.PutUint32(resp[5+4*i:], v)
	}
	return resp
}

// EncodeKeys serializes a LIST response. Keys must already be in ascending
// order; the status is always OK.
func EncodeKeys(keys []uint8) []byte {
	resp := make([]byte, 5+len(keys))
	resp[0] = StatusOK
	binary.LittleEndian.PutUint32(resp[1:5], uint32(len(keys)))
	copy(resp[5:], keys)
	return resp
}

// ReadStatus reads the status byte that prefixes every response.
func ReadStatus(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadValues reads a complete GET response. A BAD_REQUEST status carries no
// payload, so only the status is returned in that case.
func ReadValues(r io.Reader) (byte, []uint32, error) {
	status, err := ReadStatus(r)
	if err != nil {
		return 0, nil, err
	}
	if status == StatusBadRequest {
		return status, nil, nil
	}
	count, err := readUint32(r)
	if err != nil {
		return status, nil, err
	}
	if count == 0 {
		return status, nil, nil
	}
	values := make([]uint32, count)
	for i := range values {
		values[i], err = readUint32(r)
		if err != nil {
			return status, nil, err
		}
	}
	return status, values, nil
}

// ReadKeys reads a complete LIST response.
func ReadKeys(r io.Reader) (byte, []uint8, error) {
	status, err := ReadStatus(r)
	if err != nil {
		return 0, nil, err
	}
	if status == StatusBadRequest {
		return status, nil, nil
	}
	count, err := readUint32(r)
	if err != nil {
		return status, nil, err
	}
	if count == 0 {
		return status, nil, nil
	}
	keys := make([]uint8, count)
	if _, err := io.ReadFull(r, keys); err != nil {
		return status, nil, err
	}
	return status, keys, nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
