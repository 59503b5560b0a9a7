// File: server/types.go
// Package server implements the worker-pool HTTP/WebSocket server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log"
	"sync"
	"time"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/protocol"
	"github.com/momentics/hioload-http/wshub"
)

// keepAliveAdvisory is the advisory keep-alive parameter header sent with
// reused connections.
const keepAliveAdvisory = "timeout=5; max=10000000"

// Config holds all server-side configuration parameters.
type Config struct {
	Workers         int           // fixed worker pool size
	MaxBodyBytes    int64         // request body cap, enforced pre-read
	MaxHeaderLines  int           // header line cap per request
	ShutdownTimeout time.Duration // worker drain timeout on shutdown
	Logger          *log.Logger
	Observer        api.Observer
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Workers:         50,
		MaxBodyBytes:    protocol.DefaultMaxBodyBytes,
		MaxHeaderLines:  protocol.DefaultMaxHeaderLines,
		ShutdownTimeout: 30 * time.Second,
		Logger:          log.Default(),
		Observer:        api.NopObserver{},
	}
}

// Server owns the listener, the fixed worker pool, the request handler,
// and the WebSocket route table. Workers that die from an uncaught failure
// are respawned immediately; the pool size is a maintained invariant.
type Server struct {
	cfg     *Config
	handler Handler
	ctrl    *control.Control
	hub     *wshub.Hub

	routesMu sync.RWMutex
	routes   map[string]SocketHandler

	ln       api.Listener
	quit     chan struct{}
	quitOnce sync.Once
	running  bool
	runMu    sync.Mutex
	wg       sync.WaitGroup
}

// GetControl exposes runtime metrics and debug control.
func (s *Server) GetControl() api.Control { return s.ctrl }

// Hub exposes the WebSocket registry, mainly for handlers that broadcast
// from outside a socket callback.
func (s *Server) Hub() *wshub.Hub { return s.hub }
