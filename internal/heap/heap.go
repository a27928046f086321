package heap

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
)

// Heap wraps another allocator and keeps a record of every live block, so
// leaks and bad frees can be reported. Tests use it to check that the pipeline
// releases everything it owns; the CLI wraps its allocator in one when
// allocation tracking is on.
type Heap struct {
	log    *slog.Logger
	base   Allocator
	traces bool

	mu     sync.Mutex
	blocks map[uintptr]block
	bytes  int
}

type block struct {
	size   int
	caller string
}

// Leak describes a block that was never freed.
type Leak struct {
	Size   int
	Caller string
}

// CreateHeap returns a tracking heap on top of base (Default if nil). With
// traces set, the allocating call site is recorded for each block, which costs
// a runtime.Caller per allocation.
func CreateHeap(base Allocator, traces bool) *Heap {
	if base == nil {
		base = Default
	}
	return &Heap{
		log:    slog.With("src", "Heap"),
		base:   base,
		traces: traces,
		blocks: make(map[uintptr]block),
	}
}

func (h *Heap) Alloc(size int, align int) ([]byte, error) {
	buf, err := h.base.Alloc(size, align)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return buf, nil
	}

	b := block{size: size}
	if h.traces {
		if _, file, line, ok := runtime.Caller(1); ok {
			b.caller = fmt.Sprintf("%s:%d", file, line)
		}
	}

	h.mu.Lock()
	h.blocks[base(buf)] = b
	h.bytes += size
	h.mu.Unlock()
	return buf, nil
}

func (h *Heap) Free(buf []byte) {
	addr := base(buf)
	if addr == 0 {
		return
	}

	h.mu.Lock()
	b, ok := h.blocks[addr]
	if ok {
		delete(h.blocks, addr)
		h.bytes -= b.size
	}
	h.mu.Unlock()

	if !ok {
		h.log.Warn("free of unknown block", "addr", fmt.Sprintf("0x%x", addr), "len", len(buf))
		return
	}
	h.base.Free(buf)
}

// Live returns the number of outstanding blocks and their total size.
func (h *Heap) Live() (blocks int, bytes int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.blocks), h.bytes
}

func (h *Heap) Leaks() []Leak {
	h.mu.Lock()
	defer h.mu.Unlock()
	leaks := make([]Leak, 0, len(h.blocks))
	for _, b := range h.blocks {
		leaks = append(leaks, Leak{Size: b.size, Caller: b.caller})
	}
	return leaks
}

// Destroy logs every block still live and forgets about them. Returns the
// number of leaked blocks.
func (h *Heap) Destroy() int {
	leaks := h.Leaks()
	for _, l := range leaks {
		h.log.Warn("memory leak", "bytes", l.Size, "caller", l.Caller)
	}

	h.mu.Lock()
	h.blocks = make(map[uintptr]block)
	h.bytes = 0
	h.mu.Unlock()
	return len(leaks)
}
