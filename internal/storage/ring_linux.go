//go:build linux

package storage

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"github.com/aethne0/giouring"
	"golang.org/x/sys/unix"
)

const RING_ENTRIES = 0x40

// Largest single read/write we hand to the kernel; bigger requests are split.
const MAX_IO_CHUNK = 1 << 30

// Ring does file reads and writes through io_uring. Opening, stat and close
// still go through the os package; only the data transfer is on the ring.
//
// Every request is submitted and reaped before the next one, the storage stage
// is a single goroutine so there is never more than one in flight anyway.
type Ring struct {
	log    *slog.Logger
	mu     sync.Mutex
	ring   *giouring.Ring
	closed bool
}

func CreateRing() (*Ring, error) {
	ring, err := giouring.CreateRing(RING_ENTRIES)
	if err != nil {
		return nil, err
	}
	return &Ring{
		log:  slog.With("src", "Ring"),
		ring: ring,
	}, nil
}

func (r *Ring) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &ringFile{ring: r, f: f}, nil
}

func (r *Ring) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.ring.QueueExit()
		r.closed = true
	}
	return nil
}

func transient(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) || errors.Is(err, unix.ETIME)
}

// rw runs one read or write on the ring and returns the byte count.
func (r *Ring) rw(write bool, fd int, buf []byte, off uint64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, os.ErrClosed
	}

	sqe := r.ring.GetSQE()
	if sqe == nil {
		// we only ever have one entry outstanding, so this is a bug
		r.log.Error("no free SQE")
		return 0, unix.EBUSY
	}
	ptr := uintptr(unsafe.Pointer(&buf[0]))
	if write {
		sqe.PrepareWrite(fd, ptr, uint32(len(buf)), off)
	} else {
		sqe.PrepareRead(fd, ptr, uint32(len(buf)), off)
	}

	res, err := r.reap()
	runtime.KeepAlive(buf)
	if err != nil {
		return 0, err
	}
	if res < 0 {
		return 0, unix.Errno(-res)
	}
	return int(res), nil
}

func (r *Ring) reap() (int32, error) {
	if _, err := r.ring.SubmitAndWait(1); err != nil && !transient(err) {
		r.log.Error("Submit", "err", err)
		return 0, err
	}
	for {
		cqe, err := r.ring.PeekCQE()
		if err == nil && cqe != nil {
			res := cqe.Res
			r.ring.CQESeen(cqe)
			return res, nil
		}
		if err != nil && !transient(err) {
			r.log.Error("Peek cqe", "err", err)
			return 0, err
		}
		if _, err := r.ring.SubmitAndWait(1); err != nil && !transient(err) {
			return 0, err
		}
	}
}

type ringFile struct {
	ring *Ring
	f    *os.File
	off  uint64
}

func (rf *ringFile) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := rf.ring.rw(false, int(rf.f.Fd()), p[:min(len(p), MAX_IO_CHUNK)], rf.off)
	runtime.KeepAlive(rf.f)
	if err != nil {
		return 0, &os.PathError{Op: "read", Path: rf.f.Name(), Err: err}
	}
	if n == 0 {
		return 0, io.EOF
	}
	rf.off += uint64(n)
	return n, nil
}

func (rf *ringFile) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		chunk := p[total:min(len(p), total+MAX_IO_CHUNK)]
		n, err := rf.ring.rw(true, int(rf.f.Fd()), chunk, rf.off)
		runtime.KeepAlive(rf.f)
		if err != nil {
			return total, &os.PathError{Op: "write", Path: rf.f.Name(), Err: err}
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
		total += n
		rf.off += uint64(n)
	}
	return total, nil
}

func (rf *ringFile) Stat() (os.FileInfo, error) {
	return rf.f.Stat()
}

func (rf *ringFile) Close() error {
	return rf.f.Close()
}
