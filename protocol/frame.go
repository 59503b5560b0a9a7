// File: protocol/frame.go
// Package protocol implements the RFC 6455 WebSocket frame codec.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frames are read from and written to a blocking ByteConn. Client frames
// arrive masked; server frames go out unmasked. ReadMessage reassembles
// fragmented messages, answers pings, and reports close frames as
// api.ErrSocketClosed.

package protocol

import (
	"encoding/binary"

	"github.com/momentics/hioload-http/api"
)

// WebSocket opcodes.
const (
	OpcodeContinuation byte = 0x0
	OpcodeText         byte = 0x1
	OpcodeBinary       byte = 0x2
	OpcodeClose        byte = 0x8
	OpcodePing         byte = 0x9
	OpcodePong         byte = 0xA
)

const (
	finBit  = 0x80
	maskBit = 0x80
)

// MaxFramePayload caps a single frame's payload. Oversized frames abort
// the connection instead of exhausting memory.
const MaxFramePayload = 1 << 20 // 1 MiB

// MaxMessagePayload caps a reassembled fragmented message.
const MaxMessagePayload = 16 << 20 // 16 MiB

// Frame is one decoded WebSocket frame.
type Frame struct {
	Final   bool
	Opcode  byte
	Masked  bool
	Payload []byte
}

// ReadFrame decodes one frame from conn, unmasking the payload in place.
func ReadFrame(conn api.ByteConn) (*Frame, error) {
	var hdr [2]byte
	if err := conn.ReadFull(hdr[:]); err != nil {
		return nil, err
	}

	f := &Frame{
		Final:  hdr[0]&finBit != 0,
		Opcode: hdr[0] & 0x0F,
		Masked: hdr[1]&maskBit != 0,
	}
	length := int64(hdr[1] & 0x7F)

	switch length {
	case 126:
		var ext [2]byte
		if err := conn.ReadFull(ext[:]); err != nil {
			return nil, err
		}
		length = int64(binary.BigEndian.Uint16(ext[:]))
	case 127:
		var ext [8]byte
		if err := conn.ReadFull(ext[:]); err != nil {
			return nil, err
		}
		length = int64(binary.BigEndian.Uint64(ext[:]))
	}
	if length < 0 || length > MaxFramePayload {
		return nil, api.NewError(api.ErrCodeProtocol, "frame payload exceeds maximum allowed size",
			"length", length)
	}

	var maskKey [4]byte
	if f.Masked {
		if err := conn.ReadFull(maskKey[:]); err != nil {
			return nil, err
		}
	}

	f.Payload = make([]byte, length)
	if err := conn.ReadFull(f.Payload); err != nil {
		return nil, err
	}
	if f.Masked {
		unmaskInPlace(f.Payload, maskKey)
	}
	return f, nil
}

// WriteFrame encodes one server frame (never masked) and flushes it.
func WriteFrame(conn api.ByteConn, final bool, opcode byte, payload []byte) error {
	var hdr [10]byte
	b0 := opcode & 0x0F
	if final {
		b0 |= finBit
	}
	hdr[0] = b0

	n := 2
	switch plen := len(payload); {
	case plen <= 125:
		hdr[1] = byte(plen)
	case plen <= 0xFFFF:
		hdr[1] = 126
		binary.BigEndian.PutUint16(hdr[2:], uint16(plen))
		n = 4
	default:
		hdr[1] = 127
		binary.BigEndian.PutUint64(hdr[2:], uint64(plen))
		n = 10
	}

	if _, err := conn.Write(hdr[:n]); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := conn.Write(payload); err != nil {
			return err
		}
	}
	return conn.Flush()
}

// WriteMessage sends one unfragmented text or binary message.
func WriteMessage(conn api.ByteConn, opcode byte, payload []byte) error {
	return WriteFrame(conn, true, opcode, payload)
}

// WriteClose sends a close frame.
func WriteClose(conn api.ByteConn) error {
	return WriteFrame(conn, true, OpcodeClose, nil)
}

// ReadMessage reads the next complete data message, reassembling
// fragments. Pings are answered with a pong and pongs are skipped, both
// transparently. A close frame (or any decode failure) ends the stream:
// close yields api.ErrSocketClosed.
func ReadMessage(conn api.ByteConn) ([]byte, byte, error) {
	var (
		message []byte
		opcode  byte
	)
	for {
		f, err := ReadFrame(conn)
		if err != nil {
			return nil, 0, err
		}
		switch f.Opcode {
		case OpcodeClose:
			return nil, OpcodeClose, api.ErrSocketClosed
		case OpcodePing:
			if err := WriteFrame(conn, true, OpcodePong, nil); err != nil {
				return nil, 0, err
			}
			continue
		case OpcodePong:
			continue
		case OpcodeText, OpcodeBinary:
			opcode = f.Opcode
			message = f.Payload
		case OpcodeContinuation:
			if opcode == 0 {
				// Continuation without an initial data frame.
				return nil, 0, api.NewError(api.ErrCodeProtocol, "orphan continuation frame")
			}
			message = append(message, f.Payload...)
		default:
			// Reserved opcodes are skipped.
			continue
		}
		if len(message) > MaxMessagePayload {
			return nil, 0, api.NewError(api.ErrCodeProtocol, "message exceeds maximum allowed size")
		}
		if f.Final {
			return message, opcode, nil
		}
	}
}

// unmaskInPlace applies the cyclic XOR mask.
func unmaskInPlace(buf []byte, key [4]byte) {
	for i := range buf {
		buf[i] ^= key[i%4]
	}
}
