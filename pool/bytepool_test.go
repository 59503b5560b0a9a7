// File: pool/bytepool_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytePoolSizes(t *testing.T) {
	bp := New(4096)
	buf := bp.Get()
	assert.Len(t, buf, 4096)
	assert.Equal(t, 4096, bp.Size())

	bp.Put(buf)
	again := bp.Get()
	assert.Len(t, again, 4096)
}

func TestBytePoolRejectsForeignSizes(t *testing.T) {
	bp := New(64)
	bp.Put(make([]byte, 128))
	assert.Len(t, bp.Get(), 64)
}
