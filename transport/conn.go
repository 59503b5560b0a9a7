// File: transport/conn.go
// Package transport provides the default net-based ByteConn implementation.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Conn wraps a net.Conn with buffered line/exact-count reads and buffered
// writes. All calls block; the protocol layer relies on that.

package transport

import (
	"bufio"
	"io"
	"net"
	"strings"

	"github.com/momentics/hioload-http/api"
)

// readBufferSize is the bufio buffer size for inbound data. 64 KiB keeps a
// full header block plus typical bodies in one refill.
const readBufferSize = 64 * 1024

// Conn implements api.ByteConn over a net.Conn.
type Conn struct {
	nc net.Conn
	br *bufio.Reader
	bw *bufio.Writer

	localPort int
}

// NewConn wraps nc. TCP connections get TCP_NODELAY applied where the
// platform supports it.
func NewConn(nc net.Conn) *Conn {
	tuneConn(nc)
	c := &Conn{
		nc: nc,
		br: bufio.NewReaderSize(nc, readBufferSize),
		bw: bufio.NewWriter(nc),
	}
	if ta, ok := nc.LocalAddr().(*net.TCPAddr); ok {
		c.localPort = ta.Port
	}
	return c
}

// ReadLine reads one line, stripping the trailing CRLF or LF.
func (c *Conn) ReadLine() (string, error) {
	line, err := c.br.ReadString('\n')
	if err != nil {
		// A partial line before EOF is still unusable for the protocol
		// layer; surface the error.
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// ReadFull fills p completely from the stream.
func (c *Conn) ReadFull(p []byte) error {
	_, err := io.ReadFull(c.br, p)
	return err
}

// Write buffers p for transmission.
func (c *Conn) Write(p []byte) (int, error) {
	return c.bw.Write(p)
}

// Flush pushes buffered output to the socket.
func (c *Conn) Flush() error {
	return c.bw.Flush()
}

// Close flushes pending output best-effort and closes the socket.
func (c *Conn) Close() error {
	_ = c.bw.Flush()
	return c.nc.Close()
}

// RemoteAddr reports the peer address.
func (c *Conn) RemoteAddr() string {
	if c.nc.RemoteAddr() == nil {
		return ""
	}
	return c.nc.RemoteAddr().String()
}

// LocalPort reports the accepting TCP port, 0 for non-TCP transports.
func (c *Conn) LocalPort() int {
	return c.localPort
}

var _ api.ByteConn = (*Conn)(nil)
