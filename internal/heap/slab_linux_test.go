//go:build linux

package heap_test

import (
	"asyncfs/internal/heap"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Slab_Page_Aligned(t *testing.T) {
	pageSize := os.Getpagesize()

	buf, err := heap.Slab{}.Alloc(pageSize+1, 8)
	require.NoError(t, err)
	assert.Len(t, buf, pageSize+1)
	assert.Equal(t, 2*pageSize, cap(buf))
	assert.True(t, heap.Aligned(buf, pageSize))

	buf[pageSize] = 0xff
	heap.Slab{}.Free(buf)

	_, err = heap.Slab{}.Alloc(16, pageSize*2)
	assert.ErrorIs(t, err, heap.ErrInvalidAlign)
}

func Test_Slab_Under_Heap(t *testing.T) {
	h := heap.CreateHeap(heap.Slab{}, false)
	buf, err := h.Alloc(10, 8)
	require.NoError(t, err)
	copy(buf, "0123456789")
	h.Free(buf)
	assert.Equal(t, 0, h.Destroy())
}
