// File: server/options.go
// Package server defines functional options for Server construction.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log"
	"time"

	"github.com/momentics/hioload-http/api"
)

// Option customizes server initialization.
type Option func(*Server)

// WithWorkers sets the fixed worker pool size.
func WithWorkers(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.cfg.Workers = n
		}
	}
}

// WithMaxBodyBytes sets the request body cap.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		s.cfg.MaxBodyBytes = n
	}
}

// WithMaxHeaderLines sets the header line cap per request.
func WithMaxHeaderLines(n int) Option {
	return func(s *Server) {
		s.cfg.MaxHeaderLines = n
	}
}

// WithShutdownTimeout bounds the worker drain on Shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.cfg.ShutdownTimeout = d
	}
}

// WithLogger routes server logging to l.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.cfg.Logger = l
	}
}

// WithObserver attaches request lifecycle notifications.
func WithObserver(o api.Observer) Option {
	return func(s *Server) {
		s.cfg.Observer = o
	}
}
