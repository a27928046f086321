package util_test

import (
	"asyncfs/internal/util"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_Queue(t *testing.T) {
	q := util.CreateQueue[int](8)
	assert.Equal(t, q.Cnt(), 0)

	for range 3 {
		for i := range 5 {
			q.Push(i)
		}
		assert.Equal(t, q.Cnt(), 5)
		for i := range 5 {
			res := q.Pop()
			assert.Equal(t, res, i)
		}
		assert.Equal(t, q.Cnt(), 0)
	}

	for range 8 {
		q.Push(0)
	}
	assert.True(t, q.Full())
	assert.Panics(t, func() { q.Push(1) })
	for range 8 {
		q.Pop()
	}
	assert.Panics(t, func() { q.Pop() })
}

func Test_Queue_Grow_Keeps_Order(t *testing.T) {
	q := util.CreateQueue[int](4)
	// wrap the head around first so Grow has to unroll the ring
	q.Push(-1)
	q.Push(-2)
	q.Pop()
	q.Pop()
	for i := range 4 {
		q.Push(i)
	}
	q.Grow()
	assert.Equal(t, 8, q.Cap())
	for i := 4; i < 8; i++ {
		q.Push(i)
	}
	for i := range 8 {
		assert.Equal(t, i, q.Pop())
	}
}

func Test_BlockingQueue_FIFO_Across_Goroutines(t *testing.T) {
	q := util.CreateBlockingQueue[int](2)
	const N = 1000

	go func() {
		for i := range N {
			q.Push(i)
		}
	}()

	for i := range N {
		assert.Equal(t, i, q.Pop())
	}
	assert.Equal(t, 0, q.Len())
}

func Test_BlockingQueue_Push_Blocks_When_Full(t *testing.T) {
	q := util.CreateBlockingQueue[int](1)
	q.Push(1)
	assert.False(t, q.TryPush(2))

	pushed := make(chan struct{})
	go func() {
		q.Push(2)
		close(pushed)
	}()

	select {
	case <-pushed:
		t.Fatal("push should block on a full queue")
	case <-time.After(50 * time.Millisecond):
	}

	assert.Equal(t, 1, q.Pop())
	<-pushed
	assert.Equal(t, 2, q.Pop())
}

func Test_BlockingQueue_PushForce_Exceeds_Capacity(t *testing.T) {
	q := util.CreateBlockingQueue[int](2)
	for i := range 5 {
		q.PushForce(i)
	}
	assert.Equal(t, 5, q.Len())
	assert.Equal(t, 2, q.Cap())
	assert.False(t, q.TryPush(5))
	for i := range 4 {
		assert.Equal(t, i, q.Pop())
	}
	v, ok := q.TryPop()
	assert.True(t, ok)
	assert.Equal(t, 4, v)
	_, ok = q.TryPop()
	assert.False(t, ok)
}

func Test_BlockingQueue_Many_Producers(t *testing.T) {
	q := util.CreateBlockingQueue[int](4)
	const WORKERS = 8
	const PER_WORKER = 250

	var wg sync.WaitGroup
	for range WORKERS {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range PER_WORKER {
				q.Push(1)
			}
		}()
	}

	sum := 0
	for range WORKERS * PER_WORKER {
		sum += q.Pop()
	}
	wg.Wait()
	assert.Equal(t, WORKERS*PER_WORKER, sum)
}
