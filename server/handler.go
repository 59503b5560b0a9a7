// File: server/handler.go
// Package server: handler and WebSocket route types.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/momentics/hioload-http/protocol"
	"github.com/momentics/hioload-http/wshub"
)

// Handler serves one HTTP request. The return value decides connection
// reuse: false forces the connection closed after this response regardless
// of the request's Connection header.
type Handler interface {
	ServeHTTP(req *protocol.Request, res *protocol.ResponseWriter) bool
}

// HandlerFunc converts a function into a Handler.
type HandlerFunc func(req *protocol.Request, res *protocol.ResponseWriter) bool

// ServeHTTP calls the underlying function.
func (f HandlerFunc) ServeHTTP(req *protocol.Request, res *protocol.ResponseWriter) bool {
	return f(req, res)
}

// SocketHandler receives the lifecycle of one upgraded WebSocket
// connection. All three callbacks run on the goroutine owning the
// connection, strictly in arrival order.
type SocketHandler interface {
	OnOpen(s *wshub.Socket)
	OnMessage(s *wshub.Socket, msg []byte)
	OnClose(s *wshub.Socket)
}

// SocketCallbacks adapts plain functions into a SocketHandler. Nil fields
// are skipped.
type SocketCallbacks struct {
	Open    func(s *wshub.Socket)
	Message func(s *wshub.Socket, msg []byte)
	Closed  func(s *wshub.Socket)
}

func (c SocketCallbacks) OnOpen(s *wshub.Socket) {
	if c.Open != nil {
		c.Open(s)
	}
}

func (c SocketCallbacks) OnMessage(s *wshub.Socket, msg []byte) {
	if c.Message != nil {
		c.Message(s, msg)
	}
}

func (c SocketCallbacks) OnClose(s *wshub.Socket) {
	if c.Closed != nil {
		c.Closed(s)
	}
}
