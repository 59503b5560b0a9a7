// File: api/observer.go
// Package api defines the request observer interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Observer replaces the dynamic event-name hooks of earlier designs with a
// small typed interface passed at server construction.

package api

// Observer receives request lifecycle notifications from connection workers.
// Implementations must be safe for concurrent use; calls happen on the
// worker goroutine serving the connection.
type Observer interface {
	// RequestStarted fires after a request is parsed, before dispatch.
	RequestStarted(remote, method, path string)

	// RequestFinished fires after the response is finalized.
	RequestFinished(remote, method, path string, status int)
}

// NopObserver discards all notifications.
type NopObserver struct{}

func (NopObserver) RequestStarted(remote, method, path string)              {}
func (NopObserver) RequestFinished(remote, method, path string, status int) {}
