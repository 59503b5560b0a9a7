// File: server/websocket_test.go
// Interop tests driving the server with a real WebSocket client.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-http/wshub"
)

func dialWS(t *testing.T, addr, path string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketEcho(t *testing.T) {
	srv, addr := startServer(t, echoHandler())
	srv.WebSocket("/echo", SocketCallbacks{
		Message: func(s *wshub.Socket, msg []byte) {
			_ = s.Send(msg)
		},
	})

	conn := dialWS(t, addr, "/echo")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("round trip")))

	_, reply, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "round trip", string(reply))
}

func TestWebSocketLargeMessage(t *testing.T) {
	srv, addr := startServer(t, echoHandler())
	srv.WebSocket("/echo", SocketCallbacks{
		Message: func(s *wshub.Socket, msg []byte) {
			_ = s.Send(msg)
		},
	})

	conn := dialWS(t, addr, "/echo")

	// 70000 bytes forces the 64-bit length extension in both directions.
	payload := strings.Repeat("x", 70000)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))

	_, reply, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, payload, string(reply))
}

func TestWebSocketBroadcastExcludesSender(t *testing.T) {
	srv, addr := startServer(t, echoHandler())
	srv.WebSocket("/chat", SocketCallbacks{
		Message: func(s *wshub.Socket, msg []byte) {
			s.Broadcast(msg)
		},
	})
	srv.WebSocket("/news", SocketCallbacks{})

	sender := dialWS(t, addr, "/chat")
	peer := dialWS(t, addr, "/chat")
	other := dialWS(t, addr, "/news")

	// Registration happens just after the 101 reaches the client; wait for
	// all three sockets to be in the registry before broadcasting.
	require.Eventually(t, func() bool { return srv.Hub().Len() == 3 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte("to the room")))

	_, msg, err := peer.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "to the room", string(msg))

	// Neither the sender nor a different path sees the message.
	_ = sender.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err = sender.ReadMessage()
	assert.Error(t, err, "sender must not receive its own broadcast")

	_ = other.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "other routes must not receive the broadcast")
}

func TestWebSocketLifecycleCallbacks(t *testing.T) {
	opened := make(chan uint64, 1)
	closed := make(chan uint64, 1)

	srv, addr := startServer(t, echoHandler())
	srv.WebSocket("/live", SocketCallbacks{
		Open:   func(s *wshub.Socket) { opened <- s.ID() },
		Closed: func(s *wshub.Socket) { closed <- s.ID() },
	})

	conn := dialWS(t, addr, "/live")
	var id uint64
	select {
	case id = <-opened:
	case <-time.After(2 * time.Second):
		t.Fatal("OnOpen never fired")
	}
	assert.Equal(t, 1, srv.Hub().Len())

	// An orderly client close tears the socket down and removes it from
	// the registry.
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	select {
	case gone := <-closed:
		assert.Equal(t, id, gone)
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose never fired")
	}
	assert.Eventually(t, func() bool { return srv.Hub().Len() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestWebSocketUnregisteredRouteCloses(t *testing.T) {
	_, addr := startServer(t, echoHandler())
	_, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/nowhere", nil)
	assert.Error(t, err, "upgrade on an unregistered route aborts the connection")
}

func TestWebSocketSubPathRouting(t *testing.T) {
	srv, addr := startServer(t, echoHandler())
	srv.WebSocket("/chat", SocketCallbacks{
		Message: func(s *wshub.Socket, msg []byte) { _ = s.Send(msg) },
	})

	// The first path segment selects the route.
	conn := dialWS(t, addr, "/chat/room42")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("sub")))
	_, reply, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "sub", string(reply))
}
