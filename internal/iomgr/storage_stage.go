package iomgr

import (
	c "asyncfs/internal"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"

	"asyncfs/internal/heap"
)

func (m *IoMgr) storageStage() {
	defer m.workers.Done()
	log := m.log.With("stage", QUEUE_STORAGE)

	if m.cfg.StorageCPU >= 0 {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := pinThread(m.cfg.StorageCPU); err != nil {
			log.Warn("pinning storage stage", "cpu", m.cfg.StorageCPU, "err", err)
		}
	}

	for {
		msg := m.storageQ.Pop()
		m.metrics.SetQueueDepth(QUEUE_STORAGE, m.storageQ.Len())
		if msg.kind == msgShutdown {
			log.Debug("shutdown")
			return
		}

		w := msg.work
		log.Debug("pop", "op", w.op, "path", w.path, "compressed", w.useCompression)
		switch w.op {
		case OpRead:
			m.fileRead(w)
		case OpWrite:
			m.fileWrite(w)
		default:
			m.complete(w, fmt.Errorf("%w: %d", ErrInvalidOp, w.op))
		}
	}
}

// fileRead loads the file. Compressed reads keep the raw bytes in a buffer
// of the manager's and continue to the codec stage; everything else is
// finished here.
func (m *IoMgr) fileRead(w *Work) {
	if err := checkPath(w.path); err != nil {
		m.complete(w, err)
		return
	}

	alloc := w.alloc
	extra := 0
	if w.useCompression {
		alloc = m.heap
	} else if w.nullTerminate {
		extra = 1
	}

	buf, n, err := m.readFile(w.path, alloc, extra)
	if err != nil {
		m.complete(w, err)
		return
	}
	m.stats.bytesRead.Add(uint64(n))
	m.metrics.AddBytes(QUEUE_STORAGE, "in", n)

	w.buffer = buf
	w.size = n
	if w.useCompression {
		w.ownedBuf = true
		m.forward(w, m.codecQ, QUEUE_CODEC)
		return
	}
	if w.nullTerminate {
		buf[n] = 0
	}
	m.complete(w, nil)
}

// readFile returns a buffer of size+extra bytes holding the whole file in its
// first size bytes.
func (m *IoMgr) readFile(path string, alloc heap.Allocator, extra int) ([]byte, int, error) {
	f, err := m.store.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}
	size := fi.Size()
	if size < 0 || size > math.MaxInt-int64(extra) {
		return nil, 0, fmt.Errorf("%s: unreadable size %d: %w", path, size, os.ErrInvalid)
	}

	buf, err := alloc.Alloc(int(size)+extra, c.BUF_ALIGN)
	if err != nil {
		return nil, 0, err
	}
	n, err := io.ReadFull(f, buf[:size])
	if err != nil {
		alloc.Free(buf)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = fmt.Errorf("%w: %s: %d of %d bytes", ErrShortRead, path, n, size)
		}
		return nil, 0, err
	}
	return buf, n, nil
}

func (m *IoMgr) fileWrite(w *Work) {
	if err := checkPath(w.path); err != nil {
		m.complete(w, err)
		return
	}

	n, err := m.writeFile(w.path, w.buffer[:w.size])
	w.size = n
	if err != nil {
		m.complete(w, err)
		return
	}
	m.stats.bytesWritten.Add(uint64(n))
	m.metrics.AddBytes(QUEUE_STORAGE, "out", n)
	m.complete(w, nil)
}

func (m *IoMgr) writeFile(path string, data []byte) (int, error) {
	f, err := m.store.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, m.cfg.FilePerm)
	if err != nil {
		return 0, err
	}

	n, err := f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n < len(data) {
		err = fmt.Errorf("%w: %s: %d of %d bytes", ErrShortWrite, path, n, len(data))
	}
	return n, err
}
