// File: protocol/conn_test.go
// In-memory ByteConn used across the protocol tests.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

type memConn struct {
	r      *bufio.Reader
	out    bytes.Buffer
	closed bool
	port   int
}

func newMemConn(in string) *memConn {
	return newMemConnBytes([]byte(in))
}

func newMemConnBytes(in []byte) *memConn {
	return &memConn{
		r:    bufio.NewReader(bytes.NewReader(in)),
		port: 8080,
	}
}

func (c *memConn) ReadLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

func (c *memConn) ReadFull(p []byte) error {
	_, err := io.ReadFull(c.r, p)
	return err
}

func (c *memConn) Write(p []byte) (int, error) { return c.out.Write(p) }
func (c *memConn) Flush() error                { return nil }
func (c *memConn) Close() error                { c.closed = true; return nil }
func (c *memConn) RemoteAddr() string          { return "203.0.113.7:49152" }
func (c *memConn) LocalPort() int              { return c.port }
