// Package heap provides the allocators work buffers are drawn from.
//
// Every allocator here is safe for concurrent use: callers, the storage stage
// and the codec stage all allocate and free at the same time.
package heap

import (
	"errors"
	"fmt"
	"unsafe"
)

var (
	ErrInvalidSize      = errors.New("heap: invalid allocation size")
	ErrInvalidAlign     = errors.New("heap: alignment must be a power of two")
	ErrUnknownAllocator = errors.New("heap: unknown allocator")
)

// Allocator names accepted by Open.
const (
	ALLOC_GO   = "go"
	ALLOC_POOL = "pool"
	ALLOC_SLAB = "slab"
)

// Allocator hands out byte buffers. Free must only be given buffers returned by
// Alloc on the same allocator; the slice may have been resliced, but must still
// start at the same address.
type Allocator interface {
	Alloc(size int, align int) ([]byte, error)
	Free(buf []byte)
}

// Go allocates from the Go heap and leaves freeing to the garbage collector.
type Go struct{}

func (Go) Alloc(size int, align int) ([]byte, error) {
	if err := checkArgs(size, align); err != nil {
		return nil, err
	}
	return allocAligned(size, align), nil
}

func (Go) Free([]byte) {}

// Default is used whenever a caller does not provide an allocator.
var Default Allocator = Go{}

func checkArgs(size int, align int) error {
	if size < 0 {
		return ErrInvalidSize
	}
	if align <= 0 || align&(align-1) != 0 {
		return ErrInvalidAlign
	}
	return nil
}

// allocAligned over-allocates by align bytes and slices forward to the first
// aligned address. The backing array stays alive through the returned slice.
func allocAligned(size int, align int) []byte {
	if size == 0 {
		return []byte{}
	}
	if align <= 8 {
		// the Go allocator already guarantees 8 byte alignment for these
		return make([]byte, size)
	}
	buf := make([]byte, size+align)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	offset := int((uintptr(align) - (addr & uintptr(align-1))) & uintptr(align-1))
	return buf[offset : offset+size : offset+size]
}

// base returns the address a buffer is tracked under. Zero capacity buffers
// have no address.
func base(buf []byte) uintptr {
	if cap(buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf[:1])))
}

// Aligned reports whether buf starts on an align byte boundary.
func Aligned(buf []byte, align int) bool {
	if cap(buf) == 0 {
		return true
	}
	return base(buf)&uintptr(align-1) == 0
}

// Open builds an allocator by name; "" means ALLOC_GO.
func Open(name string) (Allocator, error) {
	switch name {
	case "", ALLOC_GO:
		return Go{}, nil
	case ALLOC_POOL:
		return CreatePool(), nil
	case ALLOC_SLAB:
		return Slab{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAllocator, name)
	}
}
