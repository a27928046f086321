//go:build !linux

package heap

import "errors"

var ErrSlabUnsupported = errors.New("heap: slab allocator requires linux")

type Slab struct{}

func (Slab) Alloc(size int, align int) ([]byte, error) {
	return nil, ErrSlabUnsupported
}

func (Slab) Free([]byte) {}
