// File: server/worker.go
// Package server: per-connection request loop and dispatch.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// One worker owns one connection at a time. The loop parses a request,
// decides keep-alive from the Connection header before dispatch, invokes
// the handler (or hands the connection to the WebSocket path, which then
// owns it until close), finalizes the response, and either reuses or
// releases the connection.

package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/protocol"
	"github.com/momentics/hioload-http/wshub"
)

func (s *Server) serveConn(conn api.ByteConn) {
	defer conn.Close()

	keepAlive := true
	for keepAlive {
		req, err := protocol.ReadRequest(conn, protocol.ParseOptions{
			MaxBodyBytes:   s.cfg.MaxBodyBytes,
			MaxHeaderLines: s.cfg.MaxHeaderLines,
		})
		if err != nil {
			s.deny(conn, err)
			return
		}

		res := protocol.NewResponseWriter(conn, req)
		s.cfg.Observer.RequestStarted(req.RemoteAddr, req.Method, req.Path)

		connHeader := strings.ToLower(req.Header["connection"])
		switch {
		case strings.Contains(connHeader, "upgrade"):
			s.upgrade(conn, req, res)
			s.cfg.Observer.RequestFinished(req.RemoteAddr, req.Method, req.Path, res.Status())
			return
		case strings.Contains(connHeader, "keep-alive"):
			res.SetHeader("Connection", "Keep-Alive")
			res.SetHeader("keep-alive", keepAliveAdvisory)
		default:
			res.SetHeader("Connection", "close")
			keepAlive = false
		}

		keep, failure := s.dispatch(req, res)
		if failure != nil {
			s.cfg.Logger.Printf("[worker] %s %s from %s: %v",
				req.Method, req.Path, req.RemoteAddr, failure)
			keepAlive = false
			if !res.HeadersSent() {
				res.SetHeader("Connection", "close")
				_ = res.Send(500, nil)
			}
		} else if !keep {
			res.SetHeader("Connection", "close")
			keepAlive = false
		}

		if err := res.Finalize(); err != nil {
			keepAlive = false
		}
		s.ctrl.Metrics().Inc("server.requests", 1)
		s.cfg.Observer.RequestFinished(req.RemoteAddr, req.Method, req.Path, res.Status())
	}
}

// deny closes out a connection whose request could not be parsed. End of
// stream is the normal keep-alive exit and stays quiet; an oversized body
// is the one parse failure that still gets a status-coded answer.
func (s *Server) deny(conn api.ByteConn, err error) {
	switch {
	case errors.Is(err, api.ErrEndOfStream):
	case errors.Is(err, api.ErrPayloadTooLarge):
		res := protocol.NewResponseWriter(conn, &protocol.Request{Proto: "HTTP/1.1"})
		res.SetHeader("Connection", "close")
		_ = res.Send(413, nil)
		s.cfg.Logger.Printf("[worker] %s: %v", conn.RemoteAddr(), err)
	default:
		s.cfg.Logger.Printf("[worker] %s: %v", conn.RemoteAddr(), err)
	}
}

// dispatch invokes the handler, converting the early-termination signal
// back into a normal continue and any other panic into a failure.
func (s *Server) dispatch(req *protocol.Request, res *protocol.ResponseWriter) (keep bool, failure error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if err, ok := r.(error); ok && errors.Is(err, api.ErrEarlyTermination) {
			keep = true
			return
		}
		failure = fmt.Errorf("handler panic: %v", r)
	}()
	return s.handler.ServeHTTP(req, res), nil
}

// upgrade performs the WebSocket handshake and runs the message loop. The
// HTTP loop never resumes for this connection.
func (s *Server) upgrade(conn api.ByteConn, req *protocol.Request, res *protocol.ResponseWriter) {
	h, route, ok := s.socketRoute(req.Path)
	if !ok {
		s.cfg.Logger.Printf("[worker] upgrade to unregistered route %s from %s",
			req.Path, req.RemoteAddr)
		return
	}
	if err := protocol.Upgrade(req, res); err != nil {
		s.cfg.Logger.Printf("[worker] handshake with %s: %v", req.RemoteAddr, err)
		return
	}

	sock := s.hub.Add(conn, req, route)
	s.ctrl.Metrics().Inc("ws.upgrades", 1)
	s.runSocket(sock, h)
}

// runSocket drives one upgraded connection until close. Registry removal
// happens on every exit path, including handler panics.
func (s *Server) runSocket(sock *wshub.Socket, h SocketHandler) {
	defer func() {
		r := recover()
		_ = sock.Close()
		h.OnClose(sock)
		if r != nil {
			s.cfg.Logger.Printf("[worker] socket %d handler panic: %v", sock.ID(), r)
		}
	}()

	h.OnOpen(sock)
	for {
		msg, err := sock.Receive()
		if err != nil {
			if !errors.Is(err, api.ErrSocketClosed) {
				s.cfg.Logger.Printf("[worker] socket %d read: %v", sock.ID(), err)
			}
			return
		}
		s.ctrl.Metrics().Inc("ws.messages", 1)
		h.OnMessage(sock, msg)
	}
}
