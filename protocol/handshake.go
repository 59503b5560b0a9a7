// File: protocol/handshake.go
// Package protocol implements the HTTP to WebSocket upgrade handshake.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The handshake validates the upgrade headers on an already-parsed Request,
// computes Sec-WebSocket-Accept per RFC 6455 Section 1.3, and answers 101
// through the bound ResponseWriter.

package protocol

import (
	"crypto/sha1"
	"encoding/base64"
	"strings"

	"github.com/momentics/hioload-http/api"
)

// WebSocketGUID is the fixed GUID appended to the client key.
const WebSocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// ComputeAcceptKey computes the Sec-WebSocket-Accept value from the
// client's key.
func ComputeAcceptKey(clientKey string) string {
	hash := sha1.Sum([]byte(clientKey + WebSocketGUID))
	return base64.StdEncoding.EncodeToString(hash[:])
}

// Upgrade validates req's upgrade headers and completes the handshake on
// w. After a nil return the connection speaks WebSocket frames; the HTTP
// request loop must not resume.
func Upgrade(req *Request, w *ResponseWriter) error {
	if !containsToken(req.Header["upgrade"], "websocket") {
		return api.NewError(api.ErrCodeProtocol, "upgrade header is not websocket",
			"upgrade", req.Header["upgrade"])
	}
	key := req.Header["sec-websocket-key"]
	if key == "" {
		return api.NewError(api.ErrCodeProtocol, "missing Sec-WebSocket-Key header")
	}

	w.WriteHead(101, map[string]string{
		"Upgrade":              "websocket",
		"Connection":           "Upgrade",
		"Sec-WebSocket-Accept": ComputeAcceptKey(key),
	})
	if err := w.sendHeaders(); err != nil {
		return err
	}
	w.ended = true
	return w.conn.Flush()
}

// containsToken reports whether the comma-separated header value contains
// token, case-insensitive.
func containsToken(headerValue, token string) bool {
	for _, part := range strings.Split(headerValue, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}
