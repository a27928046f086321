//go:build linux

package heap

import (
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

const MMAP_MODE = unix.MAP_ANON | unix.MAP_PRIVATE
const MMAP_PROT = unix.PROT_READ | unix.PROT_WRITE

// Slab maps every allocation straight from the kernel. Buffers are page aligned
// and live outside the Go heap, so they can be handed to the kernel (io_uring,
// O_DIRECT) without pinning concerns. Good for few large buffers, wasteful for
// many small ones.
type Slab struct{}

func (Slab) Alloc(size int, align int) ([]byte, error) {
	if err := checkArgs(size, align); err != nil {
		return nil, err
	}
	pageSize := os.Getpagesize()
	if align > pageSize {
		return nil, ErrInvalidAlign
	}
	if size == 0 {
		return []byte{}, nil
	}
	return AllocSlab(size)
}

func (Slab) Free(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	_ = DeallocSlab(buf)
}

// The mapping is rounded up to whole pages; the returned slice has len size and
// cap of the full mapping.
func AllocSlab(size int) ([]byte, error) {
	pageSize := os.Getpagesize()
	mapped := (size + pageSize - 1) / pageSize * pageSize
	raw, err := unix.Mmap(-1, 0, mapped, MMAP_PROT, MMAP_MODE)
	if err != nil {
		slog.Error("AllocSlab", "err", err)
		return nil, err
	}
	return raw[:size], nil
}

func DeallocSlab(ptr []byte) error {
	err := unix.Munmap(ptr[:cap(ptr)])
	if err != nil {
		slog.Error("DeallocSlab", "err", err)
	}
	return err
}
