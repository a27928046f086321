package iomgr

import (
	"context"
	"sync/atomic"
	"time"

	"asyncfs/internal/event"
	"asyncfs/internal/heap"
)

type Op uint8

const (
	OpRead Op = iota
	OpWrite
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	default:
		return "invalid"
	}
}

// Work is one submitted read or write. Until done is signalled it belongs to
// whichever stage currently holds it, and the submitter may only wait on it.
// After that the fields are frozen and the accessors read them freely.
type Work struct {
	mgr *IoMgr

	op             Op
	path           string
	useCompression bool
	nullTerminate  bool

	// Reads: where the delivered buffer comes from.
	alloc heap.Allocator

	// Writes: the caller's data, never modified.
	src []byte

	buffer []byte
	size   int
	// buffer came from the manager's allocator and is freed with the Work.
	// Compressed writes hold their frame here.
	ownedBuf bool

	err  error
	done *event.Event

	submitted time.Time
	destroyed atomic.Bool
}

// IsDone never blocks. A nil Work counts as done, like Wait returning at once.
func (w *Work) IsDone() bool {
	if w == nil {
		return true
	}
	return w.done.IsSet()
}

func (w *Work) Wait() {
	if w == nil {
		return
	}
	w.done.Wait()
}

// WaitContext gives up when ctx is done. The work keeps running either way.
func (w *Work) WaitContext(ctx context.Context) error {
	if w == nil {
		return ErrInvalidOp
	}
	return w.done.WaitContext(ctx)
}

// Result waits and returns the status code: 0, a positive errno, or
// StatusInternal.
func (w *Work) Result() int32 {
	if w == nil {
		return StatusInternal
	}
	w.Wait()
	return StatusOf(w.err)
}

func (w *Work) Err() error {
	if w == nil {
		return ErrInvalidOp
	}
	w.Wait()
	return w.err
}

// Buffer waits and returns the read result, nil if the read failed. A
// null-terminated read returns Size()+1 bytes, the last being 0. For writes it
// is the caller's own buffer.
func (w *Work) Buffer() []byte {
	if w == nil {
		return nil
	}
	w.Wait()
	if w.op == OpWrite {
		return w.src
	}
	return w.buffer
}

// Size waits and returns the content size. Writes report the bytes written
// to storage, which for compressed writes is the frame length.
func (w *Work) Size() int {
	if w == nil {
		return 0
	}
	w.Wait()
	return w.size
}

func (w *Work) Op() Op { return w.op }

func (w *Work) Path() string { return w.path }

// Destroy waits for completion and releases what the manager allocated for
// this work. A read's buffer belongs to the caller and is left alone.
func (w *Work) Destroy() {
	if w == nil {
		return
	}
	w.Wait()
	if !w.destroyed.CompareAndSwap(false, true) {
		return
	}
	if w.ownedBuf {
		w.mgr.heap.Free(w.buffer)
		w.ownedBuf = false
	}
	w.buffer = nil
}
