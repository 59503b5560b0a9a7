// File: protocol/response.go
// Package protocol implements the HTTP response writer state machine.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// One ResponseWriter serves exactly one request on one connection. The
// state machine is one-directional: Idle -> HeadersPending -> HeadersSent
// -> (Chunked ->) Ended. Once headers are on the wire, mutation of status,
// headers, or cookies has no further effect, and switching the framing mode
// is a no-op.

package protocol

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/pool"
)

// httpTimeFormat is the RFC 1123 date layout used on the wire.
const httpTimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// copyBuffers provides scratch buffers for file streaming.
var copyBuffers = pool.New(32 * 1024)

type cookie struct {
	name    string
	value   string
	expires time.Time
	path    string
	domain  string
}

// ResponseWriter accumulates status, headers, and cookies for one request
// and serializes them plus a body to the connection. Not safe for
// concurrent use; it is owned by the worker goroutine serving the request.
type ResponseWriter struct {
	conn api.ByteConn
	req  *Request

	status      int
	headerOrder []string
	header      map[string]string
	cookies     []cookie

	headersSent bool
	chunked     bool
	ended       bool
}

// NewResponseWriter binds a writer to one parsed request. Status defaults
// to 200.
func NewResponseWriter(conn api.ByteConn, req *Request) *ResponseWriter {
	return &ResponseWriter{
		conn:   conn,
		req:    req,
		status: 200,
		header: make(map[string]string),
	}
}

// Status reports the response status code as currently set.
func (w *ResponseWriter) Status() int { return w.status }

// HeadersSent reports whether the header block is already on the wire.
func (w *ResponseWriter) HeadersSent() bool { return w.headersSent }

// Ended reports whether the response is finalized.
func (w *ResponseWriter) Ended() bool { return w.ended }

// SetHeader sets one header, preserving first-set ordering on the wire.
// No effect after the headers are sent.
func (w *ResponseWriter) SetHeader(key, value string) *ResponseWriter {
	if w.headersSent {
		return w
	}
	if _, ok := w.header[key]; !ok {
		w.headerOrder = append(w.headerOrder, key)
	}
	w.header[key] = value
	return w
}

// WriteHead merges headers and sets the status code. No effect after the
// headers are sent.
func (w *ResponseWriter) WriteHead(status int, headers map[string]string) *ResponseWriter {
	if w.headersSent {
		return w
	}
	w.status = status
	for k, v := range headers {
		w.SetHeader(k, v)
	}
	return w
}

// SetCookie queues a Set-Cookie entry. Zero values for expires, path, and
// domain omit the corresponding attribute.
func (w *ResponseWriter) SetCookie(name, value string, expires time.Time, path, domain string) *ResponseWriter {
	if w.headersSent {
		return w
	}
	w.cookies = append(w.cookies, cookie{name, value, expires, path, domain})
	return w
}

// UnsetCookie queues an already-expired cookie so the client drops it.
func (w *ResponseWriter) UnsetCookie(name string) *ResponseWriter {
	return w.SetCookie(name, "", time.Unix(0, 0).UTC(), "", "")
}

// sendHeaders serializes the status line, Date, explicit headers, and
// queued Set-Cookie lines. Idempotent.
func (w *ResponseWriter) sendHeaders() error {
	if w.headersSent {
		return nil
	}
	w.headersSent = true

	proto := w.req.Proto
	if len(proto) < 5 || proto[:5] != "HTTP/" {
		proto = "HTTP/1.1"
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %d %s\r\n", proto, w.status, ReasonPhrase(w.status))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(httpTimeFormat))
	for _, k := range w.headerOrder {
		fmt.Fprintf(&b, "%s: %s\r\n", k, w.header[k])
	}
	if _, explicit := w.header["Set-Cookie"]; !explicit {
		for _, c := range w.cookies {
			fmt.Fprintf(&b, "Set-Cookie: %s\r\n", c.serialize())
		}
	}
	b.WriteString("\r\n")

	_, err := w.conn.Write(b.Bytes())
	return err
}

func (c cookie) serialize() string {
	s := c.name + "=" + url.QueryEscape(c.value)
	if !c.expires.IsZero() {
		s += "; expires=" + c.expires.UTC().Format(httpTimeFormat)
	}
	if c.path != "" {
		s += "; path=" + c.path
	}
	if c.domain != "" {
		s += "; domain=" + c.domain
	}
	return s
}

// Send emits a complete response. A nil body renders the reason phrase as
// a small HTML page; a string body goes out as text/html; any other value
// is JSON-encoded. A status of 0 keeps the current status.
func (w *ResponseWriter) Send(status int, body any) error {
	if status != 0 {
		w.WriteHead(status, nil)
	}
	switch v := body.(type) {
	case nil:
		page := fmt.Sprintf("<html><body><h1>%d %s</h1></body></html>",
			w.status, ReasonPhrase(w.status))
		w.defaultHeader("Content-Type", "text/html")
		return w.End([]byte(page), false)
	case string:
		w.defaultHeader("Content-Type", "text/html")
		return w.End([]byte(v), false)
	case []byte:
		return w.End(v, false)
	default:
		enc, err := json.Marshal(v)
		if err != nil {
			return err
		}
		w.defaultHeader("Content-Type", "application/json")
		return w.End(enc, false)
	}
}

// defaultHeader sets key only when the caller has not.
func (w *ResponseWriter) defaultHeader(key, value string) {
	if _, ok := w.header[key]; !ok {
		w.SetHeader(key, value)
	}
}

// SendFile streams a file with its MIME type resolved from the extension.
// A non-zero modifiedSince at or after the file's modification time yields
// 304 with no body. Missing files fail with api.ErrNotFound.
func (w *ResponseWriter) SendFile(path string, modifiedSince time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return api.NewError(api.ErrCodeNotFound, "file not found", "path", path)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		return api.NewError(api.ErrCodeNotFound, "file not found", "path", path)
	}
	if notModified(fi.ModTime(), modifiedSince) {
		return w.sendNotModified()
	}

	w.defaultHeader("Content-Type", MimeByExt(path))
	w.SetHeader("Content-Length", strconv.FormatInt(fi.Size(), 10))
	if err := w.sendHeaders(); err != nil {
		return err
	}

	buf := copyBuffers.Get()
	defer copyBuffers.Put(buf)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if _, werr := w.conn.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	w.ended = true
	return w.conn.Flush()
}

// SendBytes emits bytes with a fixed Content-Length, applying the same 304
// short-circuit against the explicit timestamps.
func (w *ResponseWriter) SendBytes(b []byte, mimeType string, lastModified, modifiedSince time.Time) error {
	if !lastModified.IsZero() && notModified(lastModified, modifiedSince) {
		return w.sendNotModified()
	}
	w.defaultHeader("Content-Type", mimeType)
	if !lastModified.IsZero() {
		w.SetHeader("Last-Modified", lastModified.UTC().Format(httpTimeFormat))
	}
	return w.End(b, false)
}

func notModified(lastModified, modifiedSince time.Time) bool {
	if modifiedSince.IsZero() {
		return false
	}
	// Wire dates carry second precision.
	return !modifiedSince.Truncate(time.Second).Before(lastModified.Truncate(time.Second))
}

func (w *ResponseWriter) sendNotModified() error {
	w.status = 304
	if err := w.sendHeaders(); err != nil {
		return err
	}
	w.ended = true
	return w.conn.Flush()
}

// Write switches the response into chunked mode on first call (sending the
// headers immediately) and emits one chunk per call. A no-op once a
// fixed-length response was started or the response ended.
func (w *ResponseWriter) Write(chunk []byte) error {
	if w.ended {
		return nil
	}
	if !w.chunked {
		if w.headersSent {
			// Fixed-length framing already chosen.
			return nil
		}
		w.SetHeader("Transfer-Encoding", "chunked")
		w.chunked = true
		if err := w.sendHeaders(); err != nil {
			return err
		}
	}
	if len(chunk) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(writerTo{w.conn}, "%x\r\n", len(chunk)); err != nil {
		return err
	}
	if _, err := w.conn.Write(chunk); err != nil {
		return err
	}
	if _, err := w.conn.Write(crlf); err != nil {
		return err
	}
	return w.conn.Flush()
}

var crlf = []byte("\r\n")

// writerTo adapts api.ByteConn for fmt.Fprintf.
type writerTo struct{ c api.ByteConn }

func (w writerTo) Write(p []byte) (int, error) { return w.c.Write(p) }

// End finalizes the response. In chunked mode it writes an optional final
// chunk and the terminator. Otherwise it computes Content-Length, optionally
// gzip-compressing the body, sends headers if needed, and flushes. Calling
// End on an ended response is a no-op.
func (w *ResponseWriter) End(body []byte, gzipBody bool) error {
	if w.ended {
		return nil
	}
	if w.chunked {
		if len(body) > 0 {
			if err := w.Write(body); err != nil {
				return err
			}
		}
		w.ended = true
		if _, err := w.conn.Write([]byte("0\r\n\r\n")); err != nil {
			return err
		}
		return w.conn.Flush()
	}

	if gzipBody && len(body) > 0 && !w.headersSent {
		var err error
		if body, err = gzipBytes(body); err != nil {
			return err
		}
		w.SetHeader("Content-Encoding", "gzip")
	}
	w.SetHeader("Content-Length", strconv.Itoa(len(body)))
	if err := w.sendHeaders(); err != nil {
		return err
	}
	w.ended = true
	if len(body) > 0 {
		if _, err := w.conn.Write(body); err != nil {
			return err
		}
	}
	return w.conn.Flush()
}

// Redirect answers 303 with a Location resolved against the request's
// host/port for relative URLs, then terminates the handler early.
func (w *ResponseWriter) Redirect(target string) {
	if !containsScheme(target) {
		host := w.req.Host
		if w.req.Port != 80 {
			host = fmt.Sprintf("%s:%d", w.req.Host, w.req.Port)
		}
		target = "http://" + host + target
	}
	w.WriteHead(303, map[string]string{"Location": target})
	_ = w.End(nil, false)
	w.Stop()
}

func containsScheme(u string) bool {
	for i := 0; i+2 < len(u); i++ {
		if u[i] == ':' {
			return u[i+1] == '/' && u[i+2] == '/'
		}
		if u[i] == '/' {
			return false
		}
	}
	return false
}

// Stop abandons the in-flight request without closing the connection. The
// worker recovers the typed signal, finalizes the response, and resumes the
// keep-alive loop at the next request.
func (w *ResponseWriter) Stop() {
	panic(api.ErrEarlyTermination)
}

// Finalize closes out the response after the handler returns: the chunk
// terminator in chunked mode, an empty fixed-length response when the
// handler produced nothing.
func (w *ResponseWriter) Finalize() error {
	if w.ended {
		return nil
	}
	return w.End(nil, false)
}

// gzipBytes is the pure byte-transform used by End.
func gzipBytes(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseHTTPDate parses an RFC 1123 wire date, returning the zero time when
// s is empty or malformed. Handlers use it to feed If-Modified-Since into
// SendFile/SendBytes.
func ParseHTTPDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(httpTimeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
