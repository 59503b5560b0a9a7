// File: wshub/hub.go
// Package wshub: process-scoped registry of upgraded connections.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The registry is a concurrent map mutated by upgrade and close and
// iterated by broadcast from different worker goroutines. Broadcasts are
// queued and drained by a single dispatcher goroutine so a broadcasting
// connection's own read loop never blocks on peer writes.

package wshub

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/protocol"
)

type broadcastJob struct {
	path   string
	msg    []byte
	sender uint64
}

// Hub owns the socket registry and the broadcast dispatcher. Construct
// with NewHub and release with Close; there is no package-level instance.
type Hub struct {
	sockets *xsync.MapOf[uint64, *Socket]
	nextID  atomic.Uint64
	logger  *log.Logger

	mu      sync.Mutex
	pending *queue.Queue
	notify  chan struct{}
	done    chan struct{}

	wg sync.WaitGroup
}

// NewHub creates a hub and starts its dispatcher goroutine.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	h := &Hub{
		sockets: xsync.NewMapOf[uint64, *Socket](),
		logger:  logger,
		pending: queue.New(),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	h.wg.Add(1)
	go h.dispatch()
	return h
}

// Add registers a freshly upgraded connection and returns its Socket.
func (h *Hub) Add(conn api.ByteConn, req *protocol.Request, path string) *Socket {
	s := &Socket{
		id:   h.nextID.Add(1),
		path: path,
		conn: conn,
		req:  req,
		hub:  h,
	}
	h.sockets.Store(s.id, s)
	return s
}

// remove drops a socket from the registry. Called from Socket.Close on
// every exit path of the message loop.
func (h *Hub) remove(id uint64) {
	h.sockets.Delete(id)
}

// Len reports the number of registered sockets.
func (h *Hub) Len() int {
	return h.sockets.Size()
}

// Broadcast queues msg for delivery to every socket on path except the
// sender. Non-blocking.
func (h *Hub) Broadcast(path string, msg []byte, sender uint64) {
	h.mu.Lock()
	h.pending.Add(broadcastJob{path: path, msg: msg, sender: sender})
	h.mu.Unlock()
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// dispatch drains the pending queue, delivering each job sequentially.
func (h *Hub) dispatch() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return
		case <-h.notify:
		}
		for {
			h.mu.Lock()
			if h.pending.Length() == 0 {
				h.mu.Unlock()
				break
			}
			job := h.pending.Remove().(broadcastJob)
			h.mu.Unlock()
			h.deliver(job)
		}
	}
}

func (h *Hub) deliver(job broadcastJob) {
	h.sockets.Range(func(id uint64, s *Socket) bool {
		if id == job.sender || s.path != job.path {
			return true
		}
		if err := s.Send(job.msg); err != nil {
			// A dead peer: drop it so the registry does not leak.
			h.logger.Printf("[wshub] drop socket %d: %v", id, err)
			_ = s.Close()
		}
		return true
	})
}

// Close stops the dispatcher and closes every registered socket.
func (h *Hub) Close() {
	close(h.done)
	h.wg.Wait()
	h.sockets.Range(func(id uint64, s *Socket) bool {
		_ = s.Close()
		return true
	})
}
