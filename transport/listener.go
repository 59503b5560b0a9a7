// File: transport/listener.go
// Package transport provides the default TCP listener.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"context"
	"net"

	"github.com/momentics/hioload-http/api"
)

// Listener wraps a net.Listener and hands out *Conn. Accept is safe for
// concurrent use by multiple worker goroutines.
type Listener struct {
	ln net.Listener
}

// Listen opens a TCP listener on addr (e.g. ":8080" or "127.0.0.1:8080")
// with SO_REUSEADDR applied where supported.
func Listen(addr string) (*Listener, error) {
	lc := net.ListenConfig{Control: listenControl}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln}, nil
}

// NewListener wraps an existing net.Listener, mainly for tests using
// in-memory or pre-bound listeners.
func NewListener(ln net.Listener) *Listener {
	return &Listener{ln: ln}
}

// Accept blocks for the next inbound connection.
func (l *Listener) Accept() (api.ByteConn, error) {
	nc, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return NewConn(nc), nil
}

// Close stops accepting. Pending Accept calls fail.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Addr reports the bound address.
func (l *Listener) Addr() string {
	return l.ln.Addr().String()
}

var _ api.Listener = (*Listener)(nil)
