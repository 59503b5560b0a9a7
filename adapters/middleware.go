// File: adapters/middleware.go
// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Handler middleware glue: logging, panic recovery, and metrics wrappers
// applied in chain order around a server.Handler.

package adapters

import (
	"errors"
	"log"
	"time"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/protocol"
	"github.com/momentics/hioload-http/server"
)

// Middleware wraps a Handler with additional behavior.
type Middleware func(next server.Handler) server.Handler

// Chain applies middleware around base in declaration order: the first
// element observes the request first.
func Chain(base server.Handler, mw ...Middleware) server.Handler {
	h := base
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// Logging logs method, path, status, and duration of each request.
func Logging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next server.Handler) server.Handler {
		return server.HandlerFunc(func(req *protocol.Request, res *protocol.ResponseWriter) bool {
			start := time.Now()
			keep := next.ServeHTTP(req, res)
			logger.Printf("[handler] %s %s -> %d (%s)",
				req.Method, req.Path, res.Status(), time.Since(start).Round(time.Microsecond))
			return keep
		})
	}
}

// Recovery converts handler panics into a 500 response while the
// connection is still writable. The early-termination signal is not a
// failure and is re-raised for the worker loop.
func Recovery(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next server.Handler) server.Handler {
		return server.HandlerFunc(func(req *protocol.Request, res *protocol.ResponseWriter) (keep bool) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if err, ok := r.(error); ok && errors.Is(err, api.ErrEarlyTermination) {
					panic(r)
				}
				logger.Printf("[handler] panic serving %s %s: %v", req.Method, req.Path, r)
				if !res.HeadersSent() {
					_ = res.Send(500, nil)
				}
				keep = false
			}()
			return next.ServeHTTP(req, res)
		})
	}
}

// Metrics counts handled requests and keep-alive refusals in ctrl.
func Metrics(ctrl *control.Control) Middleware {
	return func(next server.Handler) server.Handler {
		return server.HandlerFunc(func(req *protocol.Request, res *protocol.ResponseWriter) bool {
			keep := next.ServeHTTP(req, res)
			ctrl.Metrics().Inc("handler.processed", 1)
			if !keep {
				ctrl.Metrics().Inc("handler.closed", 1)
			}
			return keep
		})
	}
}
