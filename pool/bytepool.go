// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed-size byte buffer pool backing file streaming and other scratch
// I/O. A thin wrapper over sync.Pool; buffers of a foreign size are
// dropped rather than pooled.

package pool

import "sync"

// BytePool hands out byte slices of one fixed size.
type BytePool struct {
	size int
	p    sync.Pool
}

// New creates a pool of buffers of the given size.
func New(size int) *BytePool {
	bp := &BytePool{size: size}
	bp.p.New = func() any {
		return make([]byte, size)
	}
	return bp
}

// Get returns a buffer of the pool's size.
func (b *BytePool) Get() []byte {
	return b.p.Get().([]byte)
}

// Put returns a buffer to the pool. Buffers of the wrong size are ignored.
func (b *BytePool) Put(buf []byte) {
	if cap(buf) != b.size {
		return
	}
	b.p.Put(buf[:b.size])
}

// Size reports the pooled buffer size.
func (b *BytePool) Size() int { return b.size }
