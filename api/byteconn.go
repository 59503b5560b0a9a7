// File: api/byteconn.go
// Package api defines the transport interfaces consumed by the server core.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ByteConn is the only I/O primitive the protocol layer sees: a blocking
// bidirectional byte stream with line-oriented and exact-count reads.
// Implementations live in the transport package; tests substitute an
// in-memory pair.

package api

// ByteConn is a blocking bidirectional byte stream.
type ByteConn interface {
	// ReadLine reads up to and including the next LF and returns the line
	// with the trailing CRLF (or lone LF) stripped.
	ReadLine() (string, error)

	// ReadFull fills p completely or fails.
	ReadFull(p []byte) error

	// Write queues p for transmission. Data may be buffered until Flush.
	Write(p []byte) (int, error)

	// Flush pushes all buffered output to the peer.
	Flush() error

	// Close releases both directions of the stream.
	Close() error

	// RemoteAddr reports the peer address in host:port form.
	RemoteAddr() string

	// LocalPort reports the local (accepting) TCP port.
	LocalPort() int
}

// Listener accepts inbound byte streams. Accept is safe for concurrent use
// by multiple workers; exactly one worker receives each connection.
type Listener interface {
	Accept() (ByteConn, error)
	Close() error
	Addr() string
}
