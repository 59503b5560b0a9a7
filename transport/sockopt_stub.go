// File: transport/sockopt_stub.go
//go:build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Portable fallback: rely on net defaults where raw socket options are not
// wired up.

package transport

import (
	"net"
	"syscall"
)

func listenControl(network, address string, rc syscall.RawConn) error {
	return nil
}

func tuneConn(nc net.Conn) {
	if tc, ok := nc.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
}
