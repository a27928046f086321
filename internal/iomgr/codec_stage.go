package iomgr

import (
	c "asyncfs/internal"
	"fmt"
	"math"

	"asyncfs/internal/codec"
	"asyncfs/internal/heap"
)

func (m *IoMgr) codecStage() {
	defer m.workers.Done()
	log := m.log.With("stage", QUEUE_CODEC)

	for {
		msg := m.codecQ.Pop()
		m.metrics.SetQueueDepth(QUEUE_CODEC, m.codecQ.Len())
		if msg.kind == msgShutdown {
			log.Debug("shutdown")
			return
		}

		w := msg.work
		log.Debug("pop", "op", w.op, "path", w.path, "size", w.size)
		switch w.op {
		case OpWrite:
			m.compress(w)
		case OpRead:
			m.decompress(w)
		default:
			m.complete(w, fmt.Errorf("%w: %d", ErrInvalidOp, w.op))
		}
	}
}

// compress frames the caller's data into a buffer of the manager's and passes
// the write on to storage.
func (m *IoMgr) compress(w *Work) {
	frame, err := m.heap.Alloc(codec.MaxFrameLen(m.codec, len(w.src)), c.BUF_ALIGN)
	if err != nil {
		m.complete(w, fmt.Errorf("%w: frame for %d bytes: %w", ErrCodec, len(w.src), err))
		return
	}

	n, err := codec.EncodeFrameInto(m.codec, frame, w.src)
	if err != nil {
		m.heap.Free(frame)
		m.complete(w, fmt.Errorf("%w: %s encode: %w", ErrCodec, m.codec.Algorithm(), err))
		return
	}
	m.stats.bytesCompressed.Add(uint64(n))
	m.metrics.AddBytes(QUEUE_CODEC, "in", len(w.src))
	m.metrics.AddBytes(QUEUE_CODEC, "out", n)

	w.buffer = frame[:n]
	w.size = n
	w.ownedBuf = true
	m.forward(w, m.storageQ, QUEUE_STORAGE)
}

// decompress replaces the raw frame with the decoded data, allocated from the
// caller's allocator. The frame is freed either way.
func (m *IoMgr) decompress(w *Work) {
	raw := w.buffer
	w.buffer = nil
	w.size = 0
	w.ownedBuf = false

	out, n, err := m.decodeFrame(raw, w.alloc, w.nullTerminate)
	m.heap.Free(raw)
	if err != nil {
		m.complete(w, fmt.Errorf("%w: %s decode: %w", ErrCodec, m.codec.Algorithm(), err))
		return
	}
	m.stats.bytesDecompressed.Add(uint64(n))
	m.metrics.AddBytes(QUEUE_CODEC, "in", len(raw))
	m.metrics.AddBytes(QUEUE_CODEC, "out", n)

	if w.nullTerminate {
		out[n] = 0
	}
	w.buffer = out
	w.size = n
	m.complete(w, nil)
}

func (m *IoMgr) decodeFrame(raw []byte, alloc heap.Allocator, nullTerminate bool) ([]byte, int, error) {
	size, payload, err := codec.ParseFrame(raw)
	if err != nil {
		return nil, 0, err
	}
	if size > m.cfg.MaxDecodedSize || size > math.MaxInt-1 {
		return nil, 0, fmt.Errorf("%w: frame claims %d bytes, limit %d",
			codec.ErrCorruptFrame, size, m.cfg.MaxDecodedSize)
	}

	n := int(size)
	extra := 0
	if nullTerminate {
		extra = 1
	}
	out, err := alloc.Alloc(n+extra, c.BUF_ALIGN)
	if err != nil {
		return nil, 0, err
	}
	// Decode insists on producing exactly len(dst) bytes, which checks the
	// header against the payload.
	if _, err := m.codec.Decode(out[:n], payload); err != nil {
		alloc.Free(out)
		return nil, 0, err
	}
	return out, n, nil
}
