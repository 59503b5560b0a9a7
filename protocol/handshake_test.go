// File: protocol/handshake_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-http/api"
)

func TestComputeAcceptKey(t *testing.T) {
	// RFC 6455 Section 1.3 sample handshake.
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=",
		ComputeAcceptKey("dGhlIHNhbXBsZSBub25jZQ=="))
}

func upgradeRequest(header map[string]string) (*memConn, *Request, *ResponseWriter) {
	conn := newMemConn("")
	req := &Request{Method: "GET", Path: "/chat", Proto: "HTTP/1.1", Header: header}
	return conn, req, NewResponseWriter(conn, req)
}

func TestUpgrade(t *testing.T) {
	conn, req, res := upgradeRequest(map[string]string{
		"connection":        "Upgrade",
		"upgrade":           "websocket",
		"sec-websocket-key": "dGhlIHNhbXBsZSBub25jZQ==",
	})
	require.NoError(t, Upgrade(req, res))

	head := conn.out.String()
	assert.True(t, strings.HasPrefix(head, "HTTP/1.1 101 Switching Protocols\r\n"))
	assert.Contains(t, head, "Upgrade: websocket\r\n")
	assert.Contains(t, head, "Connection: Upgrade\r\n")
	assert.Contains(t, head, "Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n")
	assert.True(t, strings.HasSuffix(head, "\r\n\r\n"), "no body after 101")
	assert.True(t, res.Ended())
}

func TestUpgradeRejectsNonWebSocket(t *testing.T) {
	conn, req, res := upgradeRequest(map[string]string{
		"connection": "Upgrade",
		"upgrade":    "h2c",
	})
	err := Upgrade(req, res)
	assert.ErrorIs(t, err, api.ErrProtocolViolation)
	assert.Zero(t, conn.out.Len(), "nothing written on a rejected upgrade")
}

func TestUpgradeRequiresKey(t *testing.T) {
	_, req, res := upgradeRequest(map[string]string{
		"connection": "Upgrade",
		"upgrade":    "websocket",
	})
	assert.ErrorIs(t, Upgrade(req, res), api.ErrProtocolViolation)
}

func TestContainsToken(t *testing.T) {
	assert.True(t, containsToken("keep-alive, Upgrade", "upgrade"))
	assert.True(t, containsToken("WebSocket", "websocket"))
	assert.False(t, containsToken("keep-alive", "upgrade"))
	assert.False(t, containsToken("", "websocket"))
}
