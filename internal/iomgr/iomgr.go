// Package iomgr runs file reads and writes off the calling goroutine, with
// optional compression.
//
// Two long-lived workers make up the pipeline. The storage stage owns all file
// access, the codec stage owns compression and decompression. Each consumes
// its own bounded queue and hands work to the other when a request needs both:
//
//	read,  compressed:   storage -> codec
//	write, compressed:   codec   -> storage
//	uncompressed:        storage
//
// Callers get a *Work back immediately and observe the outcome through it.
package iomgr

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"asyncfs/internal/codec"
	"asyncfs/internal/event"
	"asyncfs/internal/heap"
	"asyncfs/internal/metrics"
	"asyncfs/internal/storage"
	"asyncfs/internal/util"

	"github.com/negrel/assert"
)

const QUEUE_STORAGE = "storage"
const QUEUE_CODEC = "codec"

const DEFAULT_QUEUE_CAPACITY = 8
const DEFAULT_MAX_DECODED = uint64(1) << 32

type Config struct {
	// Capacity of each stage queue. Submitting blocks once a queue is full.
	QueueCapacity int

	// Compression used for requests that ask for it. Every reader of a file
	// must use the algorithm it was written with.
	Algorithm codec.Algorithm
	Level     int

	// Storage backend by name ("os" or "uring"). Storage, when set, is used
	// instead and is not closed by Destroy.
	Backend string
	Storage storage.Backend

	// Pin the storage stage to this CPU; -1 leaves it unpinned.
	StorageCPU int

	// Permissions for files created by writes.
	FilePerm os.FileMode

	// Compressed reads whose frame header claims more than this are rejected.
	MaxDecodedSize uint64

	// Optional; nil disables metrics.
	Metrics *metrics.Metrics
}

func DefaultConfig() Config {
	return Config{
		QueueCapacity:  DEFAULT_QUEUE_CAPACITY,
		Algorithm:      codec.AlgorithmLZ4,
		Level:          0,
		Backend:        storage.BackendOS,
		StorageCPU:     -1,
		FilePerm:       0o644,
		MaxDecodedSize: DEFAULT_MAX_DECODED,
	}
}

// FastestConfig trades ratio for speed.
func FastestConfig() Config {
	cfg := DefaultConfig()
	cfg.Algorithm = codec.AlgorithmS2
	return cfg
}

// BestCompressionConfig is for data written once and read many times.
func BestCompressionConfig() Config {
	cfg := DefaultConfig()
	cfg.Algorithm = codec.AlgorithmZstd
	cfg.Level = 19
	return cfg
}

func (cfg *Config) Validate() error {
	if cfg.QueueCapacity < 1 {
		return fmt.Errorf("%w: queue capacity %d", ErrInvalidConfig, cfg.QueueCapacity)
	}
	if cfg.StorageCPU < -1 {
		return fmt.Errorf("%w: storage cpu %d", ErrInvalidConfig, cfg.StorageCPU)
	}
	if cfg.MaxDecodedSize == 0 {
		return fmt.Errorf("%w: max decoded size must be positive", ErrInvalidConfig)
	}
	if cfg.FilePerm&^os.ModePerm != 0 {
		return fmt.Errorf("%w: file perm %v", ErrInvalidConfig, cfg.FilePerm)
	}
	return nil
}

type msgKind uint8

const (
	msgWork msgKind = iota
	msgShutdown
)

// What travels through the stage queues. Shutdown is its own kind so an empty
// message can never be mistaken for it.
type message struct {
	kind msgKind
	work *Work
}

type IoMgr struct {
	log       *slog.Logger
	cfg       Config
	heap      heap.Allocator
	codec     codec.Codec
	store     storage.Backend
	ownsStore bool
	metrics   *metrics.Metrics

	storageQ *util.BlockingQueue[message]
	codecQ   *util.BlockingQueue[message]

	workers sync.WaitGroup
	// Held shared by submitters from the destroyed check until their push
	// lands, so nothing can be queued behind the shutdown message.
	lifecycle sync.RWMutex
	destroyed atomic.Bool
	stats     stats
}

// CreateIoMgr starts the two stage workers. alloc provides every buffer the
// pipeline owns itself (compressed frames, raw reads awaiting decompression);
// nil means heap.Default.
func CreateIoMgr(alloc heap.Allocator, cfg Config) (*IoMgr, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if alloc == nil {
		alloc = heap.Default
	}

	cd, err := codec.New(cfg.Algorithm, cfg.Level)
	if err != nil {
		return nil, err
	}

	store := cfg.Storage
	ownsStore := false
	if store == nil {
		store, err = storage.Open(cfg.Backend)
		if err != nil {
			return nil, err
		}
		ownsStore = true
	}

	m := &IoMgr{
		log:       slog.With("src", "IoMgr"),
		cfg:       cfg,
		heap:      alloc,
		codec:     cd,
		store:     store,
		ownsStore: ownsStore,
		metrics:   cfg.Metrics,
		storageQ:  util.CreateBlockingQueue[message](cfg.QueueCapacity),
		codecQ:    util.CreateBlockingQueue[message](cfg.QueueCapacity),
	}

	m.workers.Add(2)
	go m.storageStage()
	go m.codecStage()

	m.log.Debug("CreateIoMgr", "queue", cfg.QueueCapacity, "algorithm", cd.Algorithm(),
		"backend", fmt.Sprintf("%T", store))
	return m, nil
}

// Read loads the whole file at path. The delivered buffer comes from alloc (nil
// means heap.Default) and belongs to the caller once the work completes. With
// nullTerminate the buffer carries one extra zero byte after the content.
// Never blocks unless the storage queue is full; errors surface on the Work.
func (m *IoMgr) Read(path string, alloc heap.Allocator, nullTerminate bool, useCompression bool) *Work {
	if alloc == nil {
		alloc = heap.Default
	}
	w := m.newWork(OpRead, path, alloc, useCompression)
	w.nullTerminate = nullTerminate
	m.submit(w, m.storageQ, QUEUE_STORAGE)
	return w
}

// Write replaces the file at path with buf. buf stays owned by the caller but
// must not be modified until the work completes. With compression the codec
// stage writes a compressed frame of buf; buf itself is never touched.
func (m *IoMgr) Write(path string, buf []byte, useCompression bool) *Work {
	w := m.newWork(OpWrite, path, m.heap, useCompression)
	w.src = buf
	w.buffer = buf
	w.size = len(buf)
	if useCompression {
		m.submit(w, m.codecQ, QUEUE_CODEC)
	} else {
		m.submit(w, m.storageQ, QUEUE_STORAGE)
	}
	return w
}

func (m *IoMgr) newWork(op Op, path string, alloc heap.Allocator, useCompression bool) *Work {
	return &Work{
		mgr:            m,
		op:             op,
		path:           path,
		useCompression: useCompression,
		alloc:          alloc,
		done:           event.Create(),
		submitted:      time.Now(),
	}
}

// submit hands a new work item to its first stage. Blocks while the queue is
// full. Once Destroy has started, w completes at once with ErrClosed. The
// caller must not touch w afterwards.
func (m *IoMgr) submit(w *Work, q *util.BlockingQueue[message], name string) {
	m.stats.submitted(w.op)
	m.metrics.ObserveSubmit(w.op.String())

	m.lifecycle.RLock()
	defer m.lifecycle.RUnlock()
	if m.destroyed.Load() {
		m.complete(w, ErrClosed)
		return
	}
	q.Push(message{kind: msgWork, work: w})
	m.metrics.SetQueueDepth(name, q.Len())
}

// forward moves a work item from one stage to the other. Stages never block on
// each other's queue: if both were full and both stages were pushing, neither
// could ever pop again.
func (m *IoMgr) forward(w *Work, q *util.BlockingQueue[message], name string) {
	assert.True(!w.done.IsSet(), "forwarding a completed work item")
	q.PushForce(message{kind: msgWork, work: w})
	m.metrics.SetQueueDepth(name, q.Len())
}

// complete records the outcome and signals the caller. Signalling is the last
// thing that happens to a work item; the stage must not touch w afterwards.
func (m *IoMgr) complete(w *Work, err error) {
	assert.True(!w.done.IsSet(), "work item completed twice")
	if err != nil {
		w.err = err
		if w.op == OpRead {
			w.buffer = nil
			w.size = 0
		}
		m.log.Warn("work failed", "op", w.op, "path", w.path, "status", StatusOf(err), "err", err)
	} else {
		m.log.Debug("work done", "op", w.op, "path", w.path, "size", w.size)
	}

	m.stats.completed(err)
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	m.metrics.ObserveComplete(w.op.String(), outcome, time.Since(w.submitted))

	w.done.Signal()
}

// Destroy stops both stages and waits for them to exit. Work still queued or
// in flight is a caller error: anything the stages did not get to is completed
// with ErrClosed rather than processed. Safe to call more than once.
func (m *IoMgr) Destroy() {
	// Waits out submitters still pushing; the stages keep popping meanwhile.
	m.lifecycle.Lock()
	first := m.destroyed.CompareAndSwap(false, true)
	m.lifecycle.Unlock()
	if !first {
		return
	}

	m.storageQ.PushForce(message{kind: msgShutdown})
	m.codecQ.PushForce(message{kind: msgShutdown})
	m.workers.Wait()

	m.drain(m.storageQ)
	m.drain(m.codecQ)

	if m.ownsStore {
		if err := m.store.Close(); err != nil {
			m.log.Warn("closing storage backend", "err", err)
		}
	}

	s := m.Stats()
	m.log.Debug("Destroy", "submitted", s.ReadsSubmitted+s.WritesSubmitted,
		"completed", s.Completed, "failed", s.Failed)
}

func (m *IoMgr) drain(q *util.BlockingQueue[message]) {
	for {
		msg, ok := q.TryPop()
		if !ok {
			return
		}
		if msg.kind != msgWork {
			continue
		}
		w := msg.work
		m.log.Warn("work abandoned at shutdown", "op", w.op, "path", w.path)
		if w.op == OpRead && w.ownedBuf {
			m.heap.Free(w.buffer)
			w.ownedBuf = false
		}
		m.complete(w, ErrClosed)
	}
}

func (m *IoMgr) Codec() codec.Codec {
	return m.codec
}
