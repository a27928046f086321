package heap_test

import (
	"asyncfs/internal/heap"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Go_Alloc_Alignment(t *testing.T) {
	for _, align := range []int{1, 8, 64, 4096} {
		buf, err := heap.Go{}.Alloc(100, align)
		require.NoError(t, err)
		assert.Len(t, buf, 100)
		assert.True(t, heap.Aligned(buf, align), "align %d", align)
	}

	_, err := heap.Go{}.Alloc(10, 3)
	assert.ErrorIs(t, err, heap.ErrInvalidAlign)
	_, err = heap.Go{}.Alloc(-1, 8)
	assert.ErrorIs(t, err, heap.ErrInvalidSize)

	empty, err := heap.Go{}.Alloc(0, 8)
	require.NoError(t, err)
	assert.Len(t, empty, 0)
}

func Test_Heap_Tracks_And_Reports_Leaks(t *testing.T) {
	h := heap.CreateHeap(nil, true)

	a, err := h.Alloc(128, 8)
	require.NoError(t, err)
	b, err := h.Alloc(256, 64)
	require.NoError(t, err)

	blocks, bytes := h.Live()
	assert.Equal(t, 2, blocks)
	assert.Equal(t, 384, bytes)

	// freeing a resliced buffer still finds the block
	h.Free(a[:10])
	blocks, bytes = h.Live()
	assert.Equal(t, 1, blocks)
	assert.Equal(t, 256, bytes)

	// double free is reported, not fatal
	h.Free(a)

	leaks := h.Leaks()
	require.Len(t, leaks, 1)
	assert.Equal(t, 256, leaks[0].Size)
	assert.Contains(t, leaks[0].Caller, "heap_test.go")

	assert.Equal(t, 1, h.Destroy())
	blocks, _ = h.Live()
	assert.Equal(t, 0, blocks)

	h.Free(b)
}

func Test_Heap_Zero_Size(t *testing.T) {
	h := heap.CreateHeap(nil, false)
	buf, err := h.Alloc(0, 8)
	require.NoError(t, err)
	assert.Len(t, buf, 0)
	h.Free(buf)
	blocks, _ := h.Live()
	assert.Equal(t, 0, blocks)
}

func Test_Heap_Concurrent(t *testing.T) {
	h := heap.CreateHeap(heap.CreatePool(), false)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				buf, err := h.Alloc(1+i*37, 8)
				if err != nil {
					t.Error(err)
					return
				}
				buf[0] = 1
				h.Free(buf)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, h.Destroy())
}

func Test_Pool_Reuses_Size_Classes(t *testing.T) {
	p := heap.CreatePool()

	small, err := p.Alloc(100, 8)
	require.NoError(t, err)
	assert.Len(t, small, 100)
	assert.Equal(t, heap.POOL_SMALL, cap(small))
	p.Free(small)

	medium, err := p.Alloc(heap.POOL_SMALL+1, 8)
	require.NoError(t, err)
	assert.Equal(t, heap.POOL_MEDIUM, cap(medium))
	p.Free(medium)

	huge, err := p.Alloc(heap.POOL_LARGE+1, 8)
	require.NoError(t, err)
	assert.Len(t, huge, heap.POOL_LARGE+1)
	p.Free(huge)

	aligned, err := p.Alloc(100, 256)
	require.NoError(t, err)
	assert.True(t, heap.Aligned(aligned, 256))
}

func Test_Open_Allocators(t *testing.T) {
	for _, name := range []string{"", heap.ALLOC_GO, heap.ALLOC_POOL} {
		a, err := heap.Open(name)
		require.NoError(t, err, name)
		buf, err := a.Alloc(1000, 8)
		require.NoError(t, err, name)
		assert.Len(t, buf, 1000)
		a.Free(buf)
	}

	_, err := heap.Open("jemalloc")
	assert.ErrorIs(t, err, heap.ErrUnknownAllocator)
}
