// File: protocol/mime.go
// Package protocol: extension to MIME type lookup for SendFile.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"mime"
	"path/filepath"
	"strings"
)

// fallbackMime covers the common web types independent of the host's mime
// database.
var fallbackMime = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "text/javascript",
	".json": "application/json",
	".txt":  "text/plain",
	".xml":  "application/xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".pdf":  "application/pdf",
	".wasm": "application/wasm",
	".zip":  "application/zip",
}

// MimeByExt resolves a MIME type from the file extension, defaulting to
// application/octet-stream.
func MimeByExt(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := fallbackMime[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
