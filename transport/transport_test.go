// File: transport/transport_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipePair(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return NewConn(a), b
}

func TestConnReadLine(t *testing.T) {
	c, peer := pipePair(t)
	go func() {
		peer.Write([]byte("GET / HTTP/1.1\r\nbare-lf\nlast"))
		peer.Close()
	}()

	line, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "GET / HTTP/1.1", line)

	line, err = c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "bare-lf", line)

	_, err = c.ReadLine()
	assert.Error(t, err, "partial line before EOF is not usable")
}

func TestConnReadFull(t *testing.T) {
	c, peer := pipePair(t)
	go func() {
		// Two writes; ReadFull must assemble across both.
		peer.Write([]byte("abc"))
		peer.Write([]byte("def"))
	}()

	buf := make([]byte, 6)
	require.NoError(t, c.ReadFull(buf))
	assert.Equal(t, "abcdef", string(buf))
}

func TestConnWriteFlush(t *testing.T) {
	c, peer := pipePair(t)
	received := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 5)
		n, _ := peer.Read(buf)
		received <- buf[:n]
	}()

	_, err := c.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, c.Flush())
	assert.Equal(t, "hello", string(<-received))
}

func TestListenerAccept(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		nc, err := net.Dial("tcp", ln.Addr())
		if err == nil {
			nc.Write([]byte("ping\r\n"))
		}
	}()

	conn, err := ln.Accept()
	require.NoError(t, err)
	defer conn.Close()

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "ping", line)
	assert.NotZero(t, conn.LocalPort())
	assert.NotEmpty(t, conn.RemoteAddr())
}

func TestListenerCloseUnblocksAccept(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := ln.Accept()
		done <- err
	}()
	require.NoError(t, ln.Close())
	assert.Error(t, <-done)
}
