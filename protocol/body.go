// File: protocol/body.go
// Package protocol: request body decoding.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The body is read only when a positive Content-Length is declared, and the
// declared size is checked against the cap before any byte is read.
// Dispatch on Content-Type: multipart/form-data, urlencoded forms, JSON,
// and an opaque fallback stored under Data["post"].

package protocol

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/momentics/hioload-http/api"
)

func (r *Request) readBody(conn api.ByteConn, maxBody int64) error {
	cl, err := strconv.ParseInt(r.Header["content-length"], 10, 64)
	if err != nil || cl <= 0 {
		return nil
	}
	if cl > maxBody {
		return api.NewError(api.ErrCodePayloadTooLarge, "declared body too large",
			"content-length", cl, "limit", maxBody)
	}

	body := make([]byte, cl)
	if err := conn.ReadFull(body); err != nil {
		return api.NewError(api.ErrCodeProtocol, "connection closed inside body")
	}

	ctype := r.Header["content-type"]
	switch {
	case strings.HasPrefix(ctype, "multipart/form-data"):
		r.parseMultipart(body, ctype)
	case strings.HasPrefix(ctype, "application/x-www-form-urlencoded"):
		for name, value := range decodePairs(string(body), "&") {
			r.Data[name] = value
		}
	case strings.HasPrefix(ctype, "application/json"):
		r.parseJSONBody(body)
	default:
		r.Data["post"] = string(body)
	}
	return nil
}

// parseJSONBody keeps the raw decoded value in JSON and merges top-level
// object keys into Data. A decode failure leaves the request untouched;
// body errors never abort the parse.
func (r *Request) parseJSONBody(body []byte) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return
	}
	r.JSON = v
	if obj, ok := v.(map[string]any); ok {
		for k, val := range obj {
			r.Data[k] = val
		}
	}
}

// parseMultipart splits the body on the boundary markers and decodes each
// part's own header block. Parts without a field name are dropped.
func (r *Request) parseMultipart(body []byte, ctype string) {
	boundary := multipartBoundary(ctype)
	if boundary == "" {
		return
	}
	for _, chunk := range strings.Split(string(body), "--"+boundary) {
		chunk = strings.TrimPrefix(chunk, "\r\n")
		if chunk == "" || chunk == "--" || chunk == "--\r\n" {
			continue
		}
		part := parsePart(chunk)
		if part != nil && part.Name != "" {
			r.Data[part.Name] = part
		}
	}
}

// multipartBoundary extracts the boundary parameter from a Content-Type
// value.
func multipartBoundary(ctype string) string {
	for _, param := range strings.Split(ctype, ";") {
		param = strings.TrimSpace(param)
		if val, ok := strings.CutPrefix(param, "boundary="); ok {
			return strings.Trim(val, `"`)
		}
	}
	return ""
}

// parsePart decodes one multipart chunk: header block, blank line, content.
func parsePart(chunk string) *FormPart {
	head, content, ok := strings.Cut(chunk, "\r\n\r\n")
	if !ok {
		return nil
	}
	content = strings.TrimSuffix(content, "\r\n")

	part := &FormPart{Content: []byte(content), Size: len(content)}
	for _, line := range strings.Split(head, "\r\n") {
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "content-disposition":
			part.Name = dispositionParam(value, "name")
			part.Filename = dispositionParam(value, "filename")
		case "content-type":
			part.ContentType = value
		}
	}
	return part
}

// dispositionParam pulls a quoted parameter such as name="field" out of a
// Content-Disposition value.
func dispositionParam(value, name string) string {
	for _, param := range strings.Split(value, ";") {
		param = strings.TrimSpace(param)
		if val, ok := strings.CutPrefix(param, name+"="); ok {
			return strings.Trim(val, `"`)
		}
	}
	return ""
}
