// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-http.
// The request loop distinguishes outcomes by errors.Is against these
// sentinels; none of them is matched by string comparison.

package api

import (
	"errors"
	"fmt"
)

// Sentinel errors used across the library.
var (
	// ErrEndOfStream reports that the peer closed the connection before a
	// request line arrived. It is a graceful outcome, not a failure.
	ErrEndOfStream = errors.New("end of stream")

	// ErrPayloadTooLarge reports a declared body above the configured cap.
	ErrPayloadTooLarge = errors.New("request body exceeds limit")

	// ErrHeaderLimit reports more header lines than the configured cap.
	ErrHeaderLimit = errors.New("header line limit exceeded")

	// ErrProtocolViolation reports an unparseable request or a malformed
	// upgrade attempt.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrEarlyTermination is the recoverable signal raised by
	// ResponseWriter.Stop and Redirect. The worker resumes the keep-alive
	// loop instead of closing the connection.
	ErrEarlyTermination = errors.New("response terminated early")

	// ErrNotFound reports a missing file for SendFile.
	ErrNotFound = errors.New("file not found")

	// ErrSocketClosed reports an orderly WebSocket close.
	ErrSocketClosed = errors.New("websocket closed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeEndOfStream
	ErrCodePayloadTooLarge
	ErrCodeHeaderLimit
	ErrCodeProtocol
	ErrCodeNotFound
	ErrCodeInternal
)

// sentinelFor maps codes onto the matchable sentinels above.
var sentinelFor = map[ErrorCode]error{
	ErrCodeEndOfStream:     ErrEndOfStream,
	ErrCodePayloadTooLarge: ErrPayloadTooLarge,
	ErrCodeHeaderLimit:     ErrHeaderLimit,
	ErrCodeProtocol:        ErrProtocolViolation,
	ErrCodeNotFound:        ErrNotFound,
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap exposes the matching sentinel so errors.Is works on structured
// errors as well.
func (e *Error) Unwrap() error {
	return sentinelFor[e.Code]
}

// NewError constructs a structured error with optional key/value context.
// Pairs are consumed as (string key, value); a trailing odd element is
// dropped.
func NewError(code ErrorCode, message string, kv ...any) *Error {
	var ctx map[string]any
	if len(kv) >= 2 {
		ctx = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			key, ok := kv[i].(string)
			if !ok {
				continue
			}
			ctx[key] = kv[i+1]
		}
	}
	return &Error{Code: code, Message: message, Context: ctx}
}
