package util

import "sync"

func mod(a int, b int) int {
	return ((a % b) + b) % b
}

// ring-buffer queue, fixed size unless grown explicitly
type Queue[T any] struct {
	data []T
	head int // next slot to write to
	cnt  int
}

func CreateQueue[T any](size int) Queue[T] {
	return Queue[T]{
		head: 0,
		cnt:  0,
		data: make([]T, size),
	}
}

func (q *Queue[T]) Cnt() int {
	return q.cnt
}

func (q *Queue[T]) Cap() int {
	return len(q.data)
}

func (q *Queue[T]) Full() bool {
	return q.cnt == len(q.data)
}

// will panic if out of space.
func (q *Queue[T]) Push(val T) {
	if q.Full() {
		panic("queue overflow")
	}
	q.data[q.head] = val
	q.head = mod((q.head + 1), len(q.data))
	q.cnt++
}

func (q *Queue[T]) Pop() T {
	if q.cnt == 0 {
		panic("queue underflow")
	}
	i := mod((q.head - q.cnt), len(q.data))
	q.cnt--
	val := q.data[i]
	var zero T
	q.data[i] = zero // dont keep popped items alive
	return val
}

// Grow doubles the backing array. FIFO order is preserved.
func (q *Queue[T]) Grow() {
	data := make([]T, max(1, len(q.data)*2))
	for j := range q.cnt {
		data[j] = q.data[mod(q.head-q.cnt+j, len(q.data))]
	}
	q.data = data
	q.head = q.cnt
}

// BlockingQueue is a bounded FIFO that is safe for any number of producers and
// consumers. Push blocks while the queue holds capacity items, Pop blocks while it
// is empty.
type BlockingQueue[T any] struct {
	mu       sync.Mutex
	notEmpty sync.Cond
	notFull  sync.Cond
	queue    Queue[T]
	capacity int
}

func CreateBlockingQueue[T any](capacity int) *BlockingQueue[T] {
	if capacity < 1 {
		panic("queue capacity must be positive")
	}
	q := &BlockingQueue[T]{
		queue:    CreateQueue[T](capacity),
		capacity: capacity,
	}
	q.notEmpty.L = &q.mu
	q.notFull.L = &q.mu
	return q
}

func (q *BlockingQueue[T]) Push(val T) {
	q.mu.Lock()
	for q.queue.Cnt() >= q.capacity {
		q.notFull.Wait()
	}
	q.queue.Push(val)
	q.notEmpty.Signal()
	q.mu.Unlock()
}

// TryPush is Push without blocking. Returns false if the queue is at capacity.
func (q *BlockingQueue[T]) TryPush(val T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.queue.Cnt() >= q.capacity {
		return false
	}
	q.queue.Push(val)
	q.notEmpty.Signal()
	return true
}

// PushForce enqueues past capacity instead of blocking. Consumers that also
// produce into each others queues use this so they can never wait on each other.
func (q *BlockingQueue[T]) PushForce(val T) {
	q.mu.Lock()
	if q.queue.Full() {
		q.queue.Grow()
	}
	q.queue.Push(val)
	q.notEmpty.Signal()
	q.mu.Unlock()
}

func (q *BlockingQueue[T]) Pop() T {
	q.mu.Lock()
	for q.queue.Cnt() == 0 {
		q.notEmpty.Wait()
	}
	val := q.queue.Pop()
	q.notFull.Signal()
	q.mu.Unlock()
	return val
}

// TryPop is Pop without blocking. Returns false if the queue is empty.
func (q *BlockingQueue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.queue.Cnt() == 0 {
		var zero T
		return zero, false
	}
	val := q.queue.Pop()
	q.notFull.Signal()
	return val, true
}

func (q *BlockingQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queue.Cnt()
}

func (q *BlockingQueue[T]) Cap() int {
	return q.capacity
}
