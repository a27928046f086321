package heap

import "sync"

// Size classes for Pool.
const (
	POOL_SMALL  = 4 << 10
	POOL_MEDIUM = 64 << 10
	POOL_LARGE  = 1 << 20
)

// Pool recycles buffers in three size classes through sync.Pool. Requests above
// the large class, or with alignment beyond what the Go allocator guarantees,
// are served directly and not recycled. Pooled buffers are not zeroed.
type Pool struct {
	classes [3]sizeClass
}

type sizeClass struct {
	size int
	pool sync.Pool
}

func CreatePool() *Pool {
	p := &Pool{}
	for i, size := range []int{POOL_SMALL, POOL_MEDIUM, POOL_LARGE} {
		c := &p.classes[i]
		c.size = size
		c.pool.New = func() any {
			buf := make([]byte, size)
			return &buf
		}
	}
	return p
}

func (p *Pool) class(size int) *sizeClass {
	for i := range p.classes {
		if size <= p.classes[i].size {
			return &p.classes[i]
		}
	}
	return nil
}

func (p *Pool) Alloc(size int, align int) ([]byte, error) {
	if err := checkArgs(size, align); err != nil {
		return nil, err
	}
	c := p.class(size)
	if size == 0 || c == nil || align > 8 {
		return allocAligned(size, align), nil
	}
	bufp := c.pool.Get().(*[]byte)
	return (*bufp)[:size], nil
}

func (p *Pool) Free(buf []byte) {
	for i := range p.classes {
		c := &p.classes[i]
		if cap(buf) == c.size {
			buf = buf[:c.size]
			c.pool.Put(&buf)
			return
		}
	}
}
