// File: adapters/middleware_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package adapters

import (
	"bytes"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/protocol"
	"github.com/momentics/hioload-http/server"
)

type sinkConn struct{ out bytes.Buffer }

func (c *sinkConn) ReadLine() (string, error)   { return "", io.EOF }
func (c *sinkConn) ReadFull(p []byte) error     { return io.EOF }
func (c *sinkConn) Write(p []byte) (int, error) { return c.out.Write(p) }
func (c *sinkConn) Flush() error                { return nil }
func (c *sinkConn) Close() error                { return nil }
func (c *sinkConn) RemoteAddr() string          { return "test:0" }
func (c *sinkConn) LocalPort() int              { return 0 }

func testExchange() (*sinkConn, *protocol.Request, *protocol.ResponseWriter) {
	conn := &sinkConn{}
	req := &protocol.Request{Method: "GET", Path: "/x", Proto: "HTTP/1.1",
		Header: map[string]string{}}
	return conn, req, protocol.NewResponseWriter(conn, req)
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next server.Handler) server.Handler {
			return server.HandlerFunc(func(req *protocol.Request, res *protocol.ResponseWriter) bool {
				order = append(order, name)
				return next.ServeHTTP(req, res)
			})
		}
	}
	base := server.HandlerFunc(func(req *protocol.Request, res *protocol.ResponseWriter) bool {
		order = append(order, "base")
		return true
	})

	_, req, res := testExchange()
	assert.True(t, Chain(base, tag("outer"), tag("inner")).ServeHTTP(req, res))
	assert.Equal(t, []string{"outer", "inner", "base"}, order)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	base := server.HandlerFunc(func(req *protocol.Request, res *protocol.ResponseWriter) bool {
		return res.Send(200, "ok") == nil
	})
	_, req, res := testExchange()
	Chain(base, Logging(logger)).ServeHTTP(req, res)

	assert.Contains(t, buf.String(), "GET /x -> 200")
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := server.HandlerFunc(func(req *protocol.Request, res *protocol.ResponseWriter) bool {
		panic("boom")
	})

	conn, req, res := testExchange()
	keep := Chain(base, Recovery(log.New(&buf, "", 0))).ServeHTTP(req, res)

	assert.False(t, keep)
	assert.Contains(t, buf.String(), "panic serving GET /x")
	assert.True(t, strings.HasPrefix(conn.out.String(), "HTTP/1.1 500 "))
}

func TestRecoveryReRaisesEarlyTermination(t *testing.T) {
	base := server.HandlerFunc(func(req *protocol.Request, res *protocol.ResponseWriter) bool {
		res.Stop()
		return true
	})

	_, req, res := testExchange()
	defer func() {
		r := recover()
		if err, ok := r.(error); !ok || !assert.ErrorIs(t, err, api.ErrEarlyTermination) {
			t.Fatalf("expected the early-termination signal, got %v", r)
		}
	}()
	Chain(base, Recovery(nil)).ServeHTTP(req, res)
}

func TestMetricsMiddleware(t *testing.T) {
	ctrl := control.New()
	base := server.HandlerFunc(func(req *protocol.Request, res *protocol.ResponseWriter) bool {
		return req.Path != "/close"
	})

	_, req, res := testExchange()
	Chain(base, Metrics(ctrl)).ServeHTTP(req, res)

	req.Path = "/close"
	_, _, res = testExchange()
	Chain(base, Metrics(ctrl)).ServeHTTP(req, res)

	assert.Equal(t, int64(2), ctrl.Metrics().Counter("handler.processed"))
	assert.Equal(t, int64(1), ctrl.Metrics().Counter("handler.closed"))
}
