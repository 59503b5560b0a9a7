// File: wshub/socket.go
// Package wshub tracks upgraded WebSocket connections and serves broadcast.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package wshub

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/protocol"
)

// Socket is one connection that completed the WebSocket handshake. Reads
// stay on the owning worker goroutine; Send is safe to call from any
// goroutine (the hub's dispatcher uses it concurrently with the owner).
type Socket struct {
	id   uint64
	path string
	conn api.ByteConn
	req  *protocol.Request
	hub  *Hub

	writeMu sync.Mutex
	closed  atomic.Bool
}

// ID returns the socket's registry identifier.
func (s *Socket) ID() uint64 { return s.id }

// Path returns the route path the socket was upgraded on.
func (s *Socket) Path() string { return s.path }

// Request returns the upgrade request.
func (s *Socket) Request() *protocol.Request { return s.req }

// Closed reports whether the socket has been torn down.
func (s *Socket) Closed() bool { return s.closed.Load() }

// Send writes one text message to the peer.
func (s *Socket) Send(msg []byte) error {
	return s.send(protocol.OpcodeText, msg)
}

// SendBinary writes one binary message to the peer.
func (s *Socket) SendBinary(msg []byte) error {
	return s.send(protocol.OpcodeBinary, msg)
}

func (s *Socket) send(opcode byte, msg []byte) error {
	if s.closed.Load() {
		return api.ErrSocketClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return protocol.WriteMessage(s.conn, opcode, msg)
}

// Receive blocks for the next complete message from the peer. It must only
// be called from the goroutine owning the connection.
func (s *Socket) Receive() ([]byte, error) {
	msg, _, err := protocol.ReadMessage(s.conn)
	return msg, err
}

// Broadcast sends msg to every open socket on the same path except this
// one. Delivery happens on the hub's dispatcher, never blocking the caller.
func (s *Socket) Broadcast(msg []byte) {
	s.hub.Broadcast(s.path, msg, s.id)
}

// Close tears down the stream and removes the socket from the hub.
// Idempotent.
func (s *Socket) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.writeMu.Lock()
	_ = protocol.WriteClose(s.conn)
	s.writeMu.Unlock()
	err := s.conn.Close()
	s.hub.remove(s.id)
	return err
}
