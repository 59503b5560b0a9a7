// File: protocol/request.go
// Package protocol implements HTTP/1.x request parsing over a ByteConn.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ReadRequest consumes exactly one request from the stream: request line,
// headers, and (when Content-Length says so) the body. Malformed query or
// cookie pairs are skipped rather than failing the whole parse; only an
// unusable request line or a breached limit aborts.

package protocol

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/momentics/hioload-http/api"
)

const (
	// DefaultMaxBodyBytes caps the declared request body size.
	DefaultMaxBodyBytes = 10 << 20 // 10 MiB

	// DefaultMaxHeaderLines caps the number of header lines per request.
	DefaultMaxHeaderLines = 100

	defaultHost = "localhost"
	defaultPort = 80
)

// Request is one parsed HTTP request. It is immutable after ReadRequest
// returns; the maps must not be mutated by handlers.
type Request struct {
	Method string // uppercased token, e.g. "GET"
	Path   string // URI path with the query stripped
	Proto  string // raw protocol token, "HTTP/0.9" when absent

	// Header maps lower-cased field names to values, last one wins.
	Header map[string]string

	// Query holds decoded query-string parameters.
	Query map[string]string

	// Cookies holds decoded Cookie header pairs.
	Cookies map[string]string

	// Data merges query parameters, cookies, and body-derived fields, in
	// that order: later writers win, so body fields overwrite same-named
	// query keys.
	Data map[string]any

	// JSON holds the decoded body for application/json requests, nil
	// otherwise.
	JSON any

	Host       string
	Port       int
	RemoteAddr string
}

// FormPart is one decoded multipart/form-data part, stored in Data under
// its field name.
type FormPart struct {
	Name        string
	Filename    string
	ContentType string
	Content     []byte
	Size        int
}

// ParseOptions tune ReadRequest limits. The zero value selects defaults.
type ParseOptions struct {
	MaxBodyBytes   int64
	MaxHeaderLines int
}

func (o *ParseOptions) normalize() {
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if o.MaxHeaderLines <= 0 {
		o.MaxHeaderLines = DefaultMaxHeaderLines
	}
}

// ReadRequest parses one request from conn.
//
// It fails with api.ErrEndOfStream when the peer closed before a request
// line, api.ErrPayloadTooLarge when the declared Content-Length exceeds the
// body cap (rejected before the body is read), and api.ErrHeaderLimit when
// the header line cap is breached.
func ReadRequest(conn api.ByteConn, opts ParseOptions) (*Request, error) {
	opts.normalize()

	line, err := conn.ReadLine()
	if err != nil {
		return nil, api.NewError(api.ErrCodeEndOfStream, "connection closed before request line")
	}
	if line == "" {
		return nil, api.NewError(api.ErrCodeEndOfStream, "empty request line")
	}

	req := &Request{
		Header:     make(map[string]string),
		Query:      make(map[string]string),
		Cookies:    make(map[string]string),
		Data:       make(map[string]any),
		RemoteAddr: conn.RemoteAddr(),
	}

	if err := req.parseRequestLine(line); err != nil {
		return nil, err
	}
	if err := req.readHeaders(conn, opts.MaxHeaderLines); err != nil {
		return nil, err
	}
	req.resolveHostPort(conn)
	req.parseCookies()

	if err := req.readBody(conn, opts.MaxBodyBytes); err != nil {
		return nil, err
	}
	return req, nil
}

// parseRequestLine splits "METHOD URI [PROTO]" and decodes the query string.
func (r *Request) parseRequestLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return api.NewError(api.ErrCodeProtocol, "malformed request line", "line", line)
	}
	r.Method = strings.ToUpper(fields[0])
	uri := fields[1]
	if len(fields) >= 3 {
		r.Proto = fields[2]
	} else {
		r.Proto = "HTTP/0.9"
	}

	r.Path = uri
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		r.Path = uri[:i]
		for name, value := range decodePairs(uri[i+1:], "&") {
			r.Query[name] = value
			r.Data[name] = value
		}
	}
	return nil
}

// readHeaders consumes header lines until the blank separator, enforcing
// the line cap. Keys are lower-cased; duplicate names keep the last value.
func (r *Request) readHeaders(conn api.ByteConn, maxLines int) error {
	for i := 0; i < maxLines; i++ {
		line, err := conn.ReadLine()
		if err != nil {
			return api.NewError(api.ErrCodeProtocol, "connection closed inside header block")
		}
		if line == "" {
			return nil
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			// Tolerated, same as malformed query pairs.
			continue
		}
		r.Header[strings.ToLower(key)] = value
	}
	return api.NewError(api.ErrCodeHeaderLimit, "too many header lines", "limit", maxLines)
}

// resolveHostPort derives Host/Port from the Host header, falling back to
// the transport's local port.
func (r *Request) resolveHostPort(conn api.ByteConn) {
	r.Host = defaultHost
	r.Port = conn.LocalPort()
	if r.Port == 0 {
		r.Port = defaultPort
	}
	host := r.Header["host"]
	if host == "" {
		return
	}
	if h, p, ok := strings.Cut(host, ":"); ok {
		r.Host = h
		if n, err := strconv.Atoi(p); err == nil {
			r.Port = n
		}
	} else {
		r.Host = host
		r.Port = defaultPort
	}
}

// parseCookies decodes the Cookie header into Cookies and merges the pairs
// into Data.
func (r *Request) parseCookies() {
	raw := r.Header["cookie"]
	if raw == "" {
		return
	}
	for name, value := range decodePairs(raw, "; ") {
		r.Cookies[name] = value
		r.Data[name] = value
	}
}

// decodePairs splits raw on sep into name=value pairs, URL-decoding both
// sides. Malformed pairs are dropped silently.
func decodePairs(raw, sep string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, sep) {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			continue
		}
		dn, err := decodeComponent(name)
		if err != nil {
			continue
		}
		dv, err := decodeComponent(value)
		if err != nil {
			continue
		}
		out[dn] = dv
	}
	return out
}

// decodeComponent applies form decoding: '+' to space, then percent
// decoding.
func decodeComponent(s string) (string, error) {
	return url.QueryUnescape(s)
}
