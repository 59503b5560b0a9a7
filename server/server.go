// File: server/server.go
// Package server: construction, listen/serve lifecycle, worker supervision.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"strings"
	"time"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/transport"
	"github.com/momentics/hioload-http/wshub"
)

var ErrAlreadyRunning = errors.New("server already running")

// New builds a Server around the request handler.
func New(handler Handler, opts ...Option) *Server {
	s := &Server{
		cfg:     DefaultConfig(),
		handler: handler,
		ctrl:    control.New(),
		routes:  make(map[string]SocketHandler),
		quit:    make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.hub = wshub.NewHub(s.cfg.Logger)
	s.ctrl.RegisterDebugProbe("ws.active", func() any { return s.hub.Len() })
	return s
}

// WebSocket registers a handler for upgrade requests whose first URI path
// segment matches path (e.g. "/chat" also matches "/chat/room"). Must be
// called before Listen/Serve.
func (s *Server) WebSocket(path string, h SocketHandler) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	s.routesMu.Lock()
	s.routes[path] = h
	s.routesMu.Unlock()
}

// Listen binds a TCP listener on addr and serves until Shutdown.
func (s *Server) Listen(addr string) error {
	ln, err := transport.Listen(addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve starts the worker pool on ln and blocks until Shutdown completes.
func (s *Server) Serve(ln api.Listener) error {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.ln = ln
	s.runMu.Unlock()

	s.cfg.Logger.Printf("[server] listening on %s with %d workers", ln.Addr(), s.cfg.Workers)
	for i := 0; i < s.cfg.Workers; i++ {
		s.startWorker(i)
	}

	<-s.quit

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownTimeout):
		s.cfg.Logger.Printf("[server] shutdown timeout, abandoning workers")
	}
	return nil
}

// Shutdown stops accepting, closes all WebSocket sessions, and signals the
// worker pool to drain. Safe to call more than once.
func (s *Server) Shutdown() {
	s.quitOnce.Do(func() {
		close(s.quit)
		if s.ln != nil {
			_ = s.ln.Close()
		}
		s.hub.Close()
	})
}

// stopping reports whether Shutdown has been initiated.
func (s *Server) stopping() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

// startWorker launches one pooled worker goroutine.
func (s *Server) startWorker(id int) {
	s.wg.Add(1)
	go s.runWorker(id)
}

// runWorker is the accept loop of one pool slot. An uncaught failure
// escaping the connection loop is logged and the slot is respawned
// immediately, keeping the pool at its configured size.
func (s *Server) runWorker(id int) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.cfg.Logger.Printf("[worker %d] fatal: %v", id, r)
			if !s.stopping() {
				s.startWorker(id)
			}
		}
	}()

	for {
		if s.stopping() {
			return
		}
		conn, err := s.ln.Accept()
		if err != nil {
			if s.stopping() {
				return
			}
			continue
		}
		s.ctrl.Metrics().Inc("server.accepted", 1)
		s.serveConn(conn)
	}
}

// socketRoute finds the SocketHandler registered for the first path
// segment of path.
func (s *Server) socketRoute(path string) (SocketHandler, string, bool) {
	if !strings.HasPrefix(path, "/") {
		return nil, "", false
	}
	seg := path
	if i := strings.IndexByte(path[1:], '/'); i >= 0 {
		seg = path[:i+1]
	}
	s.routesMu.RLock()
	h, ok := s.routes[seg]
	s.routesMu.RUnlock()
	return h, seg, ok
}
